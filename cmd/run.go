package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"syscall"

	"firestige.xyz/netmon/internal/command"
	"firestige.xyz/netmon/internal/config"
	"firestige.xyz/netmon/internal/core"
	"firestige.xyz/netmon/internal/filter"
	"firestige.xyz/netmon/internal/log"
	"firestige.xyz/netmon/internal/metrics"
	"firestige.xyz/netmon/internal/scheduler"
	"firestige.xyz/netmon/internal/sink"
	"firestige.xyz/netmon/internal/source"
)

// monitorOptions are the command-line overrides applied on top of the
// loaded configuration.
type monitorOptions struct {
	Interface   string
	ConfigFile  string
	FiltersFile string
	ReadFile    string
	CaptureType string
	BPFFilter   string
	LogLevel    string
}

// apply overlays opts onto cfg and checks that a capture target is known.
func (o monitorOptions) apply(cfg *config.GlobalConfig) error {
	if o.Interface != "" {
		cfg.Capture.Interface = o.Interface
	}
	if o.ReadFile != "" {
		cfg.Capture.Type = config.CaptureFile
		cfg.Capture.File = o.ReadFile
	}
	if o.CaptureType != "" {
		cfg.Capture.Type = o.CaptureType
	}
	if o.BPFFilter != "" {
		cfg.Capture.BPFFilter = o.BPFFilter
	}
	if o.FiltersFile != "" {
		cfg.Filters.File = o.FiltersFile
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}

	if cfg.Capture.Type == config.CaptureFile {
		if cfg.Capture.File == "" {
			return ErrUsage
		}
		return nil
	}
	if cfg.Capture.Interface == "" {
		return ErrUsage
	}
	return nil
}

func runMonitor(ctx context.Context, opts monitorOptions, stdin io.Reader, stdout io.Writer) error {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return err
	}
	if err := opts.apply(cfg); err != nil {
		return err
	}
	if err := log.Init(&cfg.Log); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	logger := log.GetLogger()

	filters := loadFilters(cfg.Filters.File)

	src, err := source.Open(cfg.Capture)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := sink.New(cfg.Output, stdout)
	if err != nil {
		return fmt.Errorf("failed to create output sink: %w", err)
	}
	emitter := sink.NewEmitter(out)
	defer emitter.Close()

	ctx, stop := watchSignals(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctl, err := command.New(cfg.Control, stdin)
	if err != nil {
		return fmt.Errorf("failed to create control source: %w", err)
	}
	listenCtx, cancelListen := context.WithCancel(ctx)
	defer func() {
		cancelListen()
		ctl.Close()
	}()
	queue := command.Listen(listenCtx, ctl)

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Stop(context.Background())
	}

	logger.WithFields(map[string]interface{}{
		"interface": src.InterfaceName(),
		"capture":   cfg.Capture.Type,
		"control":   cfg.Control.Type,
		"output":    cfg.Output.Type,
		"filters":   filters.Len(),
	}).Info("netmon started")

	loop := scheduler.NewLoop(src, queue, emitter, filters, scheduler.Options{
		PollEvery: cfg.Scheduler.PollEvery,
		IdleSleep: cfg.Scheduler.IdleSleep,
	})
	err = loop.Run(ctx)

	stats := loop.Dissector().Stats()
	logger.WithFields(map[string]interface{}{
		"frames":  stats.Frames,
		"matched": stats.Matched,
	}).Info("netmon stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// loadFilters reads the initial FilterSet. A missing or malformed document
// falls back to the built-in default.
func loadFilters(path string) *filter.Config {
	if path == "" {
		return filter.Default()
	}
	logger := log.GetLogger().WithField("file", path)
	cfg, err := filter.LoadFile(path)
	if cfg == nil {
		logger.WithError(err).Warn("failed to load filters, using default")
		return filter.Default()
	}
	if errors.Is(err, core.ErrInvalidPattern) {
		logger.WithError(err).Warn("filters loaded with invalid patterns")
	}
	return cfg
}
