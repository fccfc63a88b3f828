// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesCapturedTotal counts frames read from the capture source
	FramesCapturedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netmon_frames_captured_total",
			Help: "Total number of frames read from the capture source",
		},
		[]string{"interface"},
	)

	// FramesMatchedTotal counts frames that produced an event
	FramesMatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netmon_frames_matched_total",
			Help: "Total number of frames that matched a filter and produced an event",
		},
		[]string{"data_type"},
	)

	// EmitErrorsTotal counts messages the output sink failed to deliver
	EmitErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netmon_emit_errors_total",
			Help: "Total number of messages the output sink failed to deliver",
		},
	)

	// CommandsAppliedTotal counts control commands by type
	CommandsAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netmon_commands_applied_total",
			Help: "Total number of control commands received",
		},
		[]string{"command"},
	)

	// ControlParseErrorsTotal counts malformed control envelopes
	ControlParseErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netmon_control_parse_errors_total",
			Help: "Total number of control envelopes that failed to parse",
		},
	)

	// ConfigReloadsTotal counts UPDATE_CONFIG outcomes
	ConfigReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netmon_config_reloads_total",
			Help: "Total number of filter configuration updates by result",
		},
		[]string{"result"},
	)

	// ActiveFilters tracks the size of the current filter set
	ActiveFilters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netmon_active_filters",
			Help: "Number of filters in the active configuration",
		},
	)

	// LoopState tracks the run loop state (0=running, 1=paused, 2=exiting)
	LoopState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netmon_loop_state",
			Help: "Current run loop state (0=running, 1=paused, 2=exiting)",
		},
	)
)

// Config reload results.
const (
	ReloadApplied  = "applied"
	ReloadInvalid  = "invalid"
	ReloadRejected = "rejected"
)
