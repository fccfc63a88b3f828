package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"firestige.xyz/netmon/internal/config"
	"firestige.xyz/netmon/internal/core"
	"firestige.xyz/netmon/internal/decoder"
	"firestige.xyz/netmon/internal/filter"
	"firestige.xyz/netmon/internal/gmcp"
	"firestige.xyz/netmon/internal/log"
	"firestige.xyz/netmon/internal/metrics"
	"firestige.xyz/netmon/internal/sink"
)

const (
	DefaultPollEvery = 10
	DefaultIdleSleep = 10 * time.Millisecond
)

// Log areas carried by log envelopes.
const (
	areaControl = "control"
	areaConfig  = "config"
	areaLoop    = "loop"
)

// FrameSource is the capture side of the loop.
type FrameSource interface {
	NextFrame() ([]byte, error)
	InterfaceName() string
}

// CommandQueue is drained without blocking at poll boundaries.
type CommandQueue interface {
	Drain() ([]string, error)
}

// Options tunes the loop.
type Options struct {
	PollEvery int           // control poll cadence in iterations, bounded to 1..1000
	IdleSleep time.Duration // sleep while paused without throttle
}

// Loop owns the active FilterSet and RunParams. Neither is shared with
// other goroutines.
type Loop struct {
	src       FrameSource
	queue     CommandQueue
	emitter   *sink.Emitter
	dissector *decoder.Dissector

	filters   *filter.Config
	params    RunParams
	pollEvery int
	idleSleep time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// NewLoop creates a loop in the running state with the given initial filters.
func NewLoop(src FrameSource, queue CommandQueue, emitter *sink.Emitter, filters *filter.Config, opts Options) *Loop {
	if opts.PollEvery <= 0 {
		opts.PollEvery = DefaultPollEvery
	}
	if opts.PollEvery > config.MaxPollEvery {
		opts.PollEvery = config.MaxPollEvery
	}
	if opts.IdleSleep <= 0 {
		opts.IdleSleep = DefaultIdleSleep
	}
	if filters == nil {
		filters = filter.Default()
	}
	metrics.ActiveFilters.Set(float64(filters.Len()))
	return &Loop{
		src:       src,
		queue:     queue,
		emitter:   emitter,
		dissector: decoder.NewDissector(),
		filters:   filters,
		pollEvery: opts.PollEvery,
		idleSleep: opts.IdleSleep,
		sleep:     sleepContext,
	}
}

// Filters returns the active FilterSet.
func (l *Loop) Filters() *filter.Config {
	return l.filters
}

// Params returns the active RunParams.
func (l *Loop) Params() RunParams {
	return l.params
}

// Dissector exposes decode statistics.
func (l *Loop) Dissector() *decoder.Dissector {
	return l.dissector
}

// Run executes until STOP, end of an offline capture, a fatal error or ctx
// cancellation. STOP and end of capture return nil; cancellation returns
// ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	logger := log.GetLogger()
	for {
		l.applyOneShots(ctx)

		state := l.params.State()
		metrics.LoopState.Set(float64(state))
		if state == StateExiting {
			logger.Info("stop command received, shutting down")
			l.notify(ctx, gmcp.SeverityInfo, areaLoop, "graceful shutdown")
			return nil
		}
		logger.WithFields(map[string]interface{}{
			"state":    state.String(),
			"throttle": l.params.IterationSleep,
			"filters":  l.filters.Len(),
		}).Debug("run loop started")

		restart, err := l.runOnce(ctx)
		if err != nil {
			return err
		}
		if !restart {
			return nil
		}
	}
}

// runOnce iterates with the current RunParams. It returns true when a command
// batch replaced them and false when the capture is exhausted.
func (l *Loop) runOnce(ctx context.Context) (bool, error) {
	for iteration := 0; ; iteration++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		if iteration%l.pollEvery == 0 {
			cmds, err := l.poll(ctx)
			if err != nil {
				return false, err
			}
			if len(cmds) > 0 {
				l.params = NewRunParams(cmds)
				return true, nil
			}
		}

		if !l.params.ShouldPause {
			if err := l.step(ctx); err != nil {
				if errors.Is(err, io.EOF) {
					log.GetLogger().Info("capture source exhausted")
					return false, nil
				}
				return false, err
			}
		}

		if err := l.pause(ctx); err != nil {
			return false, err
		}
	}
}

// poll drains every pending control line and parses them in order. Parse
// errors are reported on the sink and never interrupt the loop.
func (l *Loop) poll(ctx context.Context) ([]gmcp.Command, error) {
	lines, err := l.queue.Drain()
	if err != nil {
		if errors.Is(err, core.ErrQueueEmpty) {
			return nil, nil
		}
		return nil, err
	}

	var in gmcp.InputContainer
	for _, line := range lines {
		in.Append(gmcp.Parse(line))
	}
	for _, msg := range in.Errors {
		metrics.ControlParseErrorsTotal.Inc()
		log.GetLogger().WithField("error", msg).Warn("control envelope rejected")
		l.notify(ctx, gmcp.SeverityWarn, areaControl, msg)
	}
	for _, c := range in.Commands {
		metrics.CommandsAppliedTotal.WithLabelValues(c.Type.String()).Inc()
	}
	return in.Commands, nil
}

// step pulls exactly one frame and emits its event, if any.
func (l *Loop) step(ctx context.Context) error {
	frame, err := l.src.NextFrame()
	if err != nil {
		return err
	}
	iface := l.src.InterfaceName()
	metrics.FramesCapturedTotal.WithLabelValues(iface).Inc()

	ev, ok := l.dissector.Dissect(iface, frame, l.filters)
	if !ok {
		return nil
	}
	metrics.FramesMatchedTotal.WithLabelValues(string(ev.DataType)).Inc()
	if err := l.emitter.Event(ctx, ev); err != nil {
		metrics.EmitErrorsTotal.Inc()
		log.GetLogger().WithError(err).Warn("failed to emit event")
	}
	return nil
}

func (l *Loop) pause(ctx context.Context) error {
	switch {
	case l.params.IterationSleep > 0:
		return l.sleep(ctx, l.params.IterationSleep)
	case l.params.ShouldPause:
		return l.sleep(ctx, l.idleSleep)
	}
	return nil
}

// applyOneShots handles the fields of a fresh RunParams that act once per
// restart: a pending configuration and the configuration dumps.
func (l *Loop) applyOneShots(ctx context.Context) {
	if l.params.HasPendingConfig {
		l.reconfigure(ctx, l.params.PendingConfig)
		l.params.PendingConfig = ""
		l.params.HasPendingConfig = false
	}
	if l.params.ShouldShowDefaultConfig {
		l.dump(ctx, filter.Default())
		l.params.ShouldShowDefaultConfig = false
	}
	if l.params.ShouldShowExampleConfig {
		l.dump(ctx, filter.Example())
		l.params.ShouldShowExampleConfig = false
	}
}

// reconfigure replaces the FilterSet. A malformed document keeps the previous
// set; invalid patterns keep the new set with those patterns inert.
func (l *Loop) reconfigure(ctx context.Context, doc string) {
	logger := log.GetLogger()
	cfg, err := filter.Parse([]byte(doc))
	if cfg == nil {
		metrics.ConfigReloadsTotal.WithLabelValues(metrics.ReloadRejected).Inc()
		logger.WithError(err).Warn("filter configuration rejected, keeping previous filters")
		l.notify(ctx, gmcp.SeverityError, areaConfig, err.Error())
		return
	}

	l.filters = cfg
	metrics.ActiveFilters.Set(float64(cfg.Len()))
	if err != nil {
		metrics.ConfigReloadsTotal.WithLabelValues(metrics.ReloadInvalid).Inc()
		logger.WithError(err).Warn("filter configuration applied with invalid patterns")
		l.notify(ctx, gmcp.SeverityWarn, areaConfig, err.Error())
		return
	}
	metrics.ConfigReloadsTotal.WithLabelValues(metrics.ReloadApplied).Inc()
	logger.WithField("filters", cfg.Len()).Info("filter configuration applied")
}

func (l *Loop) dump(ctx context.Context, cfg *filter.Config) {
	doc, err := json.Marshal(cfg)
	if err != nil {
		log.GetLogger().WithError(err).Error("failed to encode configuration")
		return
	}
	if err := l.emitter.Raw(ctx, doc); err != nil {
		metrics.EmitErrorsTotal.Inc()
		log.GetLogger().WithError(err).Warn("failed to emit configuration")
	}
}

// notify reports a recoverable condition as a log envelope.
func (l *Loop) notify(ctx context.Context, severity gmcp.Severity, area, msg string) {
	if err := l.emitter.Log(ctx, severity, area, strings.TrimSpace(msg)); err != nil {
		metrics.EmitErrorsTotal.Inc()
		log.GetLogger().WithError(err).Warn("failed to emit log message")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
