// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/netmon/internal/core"
	"firestige.xyz/netmon/internal/log"
)

// GlobalConfig is the static process configuration.
// Maps to the `netmon:` root key in YAML; env vars use the NETMON_ prefix.
type GlobalConfig struct {
	Capture   CaptureConfig    `mapstructure:"capture"`
	Control   ControlConfig    `mapstructure:"control"`
	Output    OutputConfig     `mapstructure:"output"`
	Scheduler SchedulerConfig  `mapstructure:"scheduler"`
	Filters   FiltersConfig    `mapstructure:"filters"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
	Log       log.LoggerConfig `mapstructure:"log"`
}

// ─── Capture ───

// Capture source types.
const (
	CapturePcap     = "pcap"
	CaptureAFPacket = "afpacket"
	CaptureFile     = "file"
)

// CaptureConfig selects and tunes the frame source.
type CaptureConfig struct {
	Type        string         `mapstructure:"type"`      // pcap / afpacket / file
	Interface   string         `mapstructure:"interface"` // overridden by the positional argument
	File        string         `mapstructure:"file"`      // pcap file for type=file
	SnapLen     int            `mapstructure:"snaplen"`
	Promiscuous bool           `mapstructure:"promiscuous"`
	BPFFilter   string         `mapstructure:"bpf_filter"`
	Options     map[string]any `mapstructure:"options"` // source-specific, see source package
}

// ─── Control Channel ───

// Control channel types.
const (
	ControlStdin = "stdin"
	ControlUnix  = "unix"
	ControlKafka = "kafka"
)

// ControlConfig selects the inbound command transport.
type ControlConfig struct {
	Type    string         `mapstructure:"type"`
	Options map[string]any `mapstructure:"options"`
}

// ─── Event Output ───

// Output sink types.
const (
	OutputStdout = "stdout"
	OutputKafka  = "kafka"
	OutputNATS   = "nats"
)

// OutputConfig selects the outbound event sink.
type OutputConfig struct {
	Type    string         `mapstructure:"type"`
	Options map[string]any `mapstructure:"options"`
}

// ─── Run Loop ───

// SchedulerConfig tunes the run loop.
type SchedulerConfig struct {
	PollEvery int           `mapstructure:"poll_every"` // control queue is drained every PollEvery iterations
	IdleSleep time.Duration `mapstructure:"idle_sleep"` // sleep while paused without throttle
}

// MaxPollEvery bounds the control poll cadence.
const MaxPollEvery = 1000

// ─── Filters ───

// FiltersConfig points at the initial filter document.
type FiltersConfig struct {
	File string `mapstructure:"file"` // empty = built-in default
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

type configRoot struct {
	Netmon GlobalConfig `mapstructure:"netmon"`
}

// Load loads configuration from file. An empty path loads defaults and
// environment overrides only (e.g. NETMON_LOG_LEVEL).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// key "netmon.log.level" maps to env "NETMON_LOG_LEVEL"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Netmon

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use the "netmon." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Capture defaults
	v.SetDefault("netmon.capture.type", CapturePcap)
	v.SetDefault("netmon.capture.interface", "")
	v.SetDefault("netmon.capture.file", "")
	v.SetDefault("netmon.capture.snaplen", 65535)
	v.SetDefault("netmon.capture.promiscuous", true)
	v.SetDefault("netmon.capture.bpf_filter", "")

	// Control channel defaults
	v.SetDefault("netmon.control.type", ControlStdin)

	// Output defaults
	v.SetDefault("netmon.output.type", OutputStdout)

	// Run loop defaults
	v.SetDefault("netmon.scheduler.poll_every", 10)
	v.SetDefault("netmon.scheduler.idle_sleep", "10ms")

	// Filters defaults
	v.SetDefault("netmon.filters.file", "")

	// Metrics defaults
	v.SetDefault("netmon.metrics.enabled", false)
	v.SetDefault("netmon.metrics.listen", ":9091")
	v.SetDefault("netmon.metrics.path", "/metrics")

	// Log defaults
	v.SetDefault("netmon.log.level", "info")
	v.SetDefault("netmon.log.format", "text")
	v.SetDefault("netmon.log.pattern", log.DefaultPattern)
	v.SetDefault("netmon.log.time", log.DefaultTime)
	v.SetDefault("netmon.log.file.filename", "")
	v.SetDefault("netmon.log.file.max_size", 100)
	v.SetDefault("netmon.log.file.max_backups", 5)
	v.SetDefault("netmon.log.file.max_age", 30)
	v.SetDefault("netmon.log.file.compress", true)
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: log level %q (must be trace/debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("%w: log format %q (must be json/text)", core.ErrConfigInvalid, cfg.Log.Format)
	}

	// ── Capture validation ──
	switch cfg.Capture.Type {
	case CapturePcap, CaptureAFPacket:
	case CaptureFile:
		if cfg.Capture.File == "" {
			return fmt.Errorf("%w: capture.file is required when capture.type=file", core.ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: capture.type %q (must be pcap/afpacket/file)", core.ErrConfigInvalid, cfg.Capture.Type)
	}
	if cfg.Capture.SnapLen <= 0 {
		cfg.Capture.SnapLen = 65535
	}

	// ── Control channel validation ──
	switch cfg.Control.Type {
	case ControlStdin, ControlUnix, ControlKafka:
	default:
		return fmt.Errorf("%w: control.type %q (must be stdin/unix/kafka)", core.ErrConfigInvalid, cfg.Control.Type)
	}

	// ── Output validation ──
	switch cfg.Output.Type {
	case OutputStdout, OutputKafka, OutputNATS:
	default:
		return fmt.Errorf("%w: output.type %q (must be stdout/kafka/nats)", core.ErrConfigInvalid, cfg.Output.Type)
	}

	// ── Run loop validation ──
	if cfg.Scheduler.PollEvery < 1 || cfg.Scheduler.PollEvery > MaxPollEvery {
		return fmt.Errorf("%w: scheduler.poll_every %d (must be 1..%d)", core.ErrConfigInvalid, cfg.Scheduler.PollEvery, MaxPollEvery)
	}
	if cfg.Scheduler.IdleSleep <= 0 {
		cfg.Scheduler.IdleSleep = 10 * time.Millisecond
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	return nil
}
