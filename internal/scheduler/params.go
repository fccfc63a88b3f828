// Package scheduler implements the run loop: a single cooperative loop that
// pulls frames, emits matches and restarts with fresh parameters whenever the
// control channel delivers commands.
package scheduler

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"firestige.xyz/netmon/internal/gmcp"
)

// ThrottleUnit converts the user-facing throttle value into a sleep.
const ThrottleUnit = 5 * time.Millisecond

// State is the run loop state derived from RunParams.
type State int

const (
	StateRunning State = iota
	StatePaused
	StateExiting
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateExiting:
		return "exiting"
	}
	return "unknown"
}

// RunParams is rebuilt from scratch for every command batch.
type RunParams struct {
	IterationSleep          time.Duration
	ShouldExit              bool
	ShouldPause             bool
	ShouldShowDefaultConfig bool
	ShouldShowExampleConfig bool

	// PendingConfig holds the document of the last UPDATE_CONFIG in the
	// batch; HasPendingConfig distinguishes an empty document from none.
	PendingConfig    string
	HasPendingConfig bool
}

// NewRunParams folds cmds, in order, over a zero RunParams. Later commands
// override earlier ones on the same field.
func NewRunParams(cmds []gmcp.Command) RunParams {
	var p RunParams
	for _, c := range cmds {
		p = p.Apply(c)
	}
	return p
}

// Apply returns p with c applied. Unknown commands leave p unchanged.
func (p RunParams) Apply(c gmcp.Command) RunParams {
	switch c.Type {
	case gmcp.CommandStart:
		p.ShouldPause = false
	case gmcp.CommandStop:
		p.ShouldExit = true
	case gmcp.CommandPause:
		p.ShouldPause = true
	case gmcp.CommandThrottle:
		p.IterationSleep = parseThrottle(c.Data)
	case gmcp.CommandUpdateConfig:
		p.PendingConfig = c.Data
		p.HasPendingConfig = true
	case gmcp.CommandShowDefaultConfig:
		p.ShouldShowDefaultConfig = true
	case gmcp.CommandShowExampleConfig:
		p.ShouldShowExampleConfig = true
	}
	return p
}

// State reports the loop state these parameters put the loop in.
func (p RunParams) State() State {
	switch {
	case p.ShouldExit:
		return StateExiting
	case p.ShouldPause:
		return StatePaused
	}
	return StateRunning
}

// maxThrottle is the largest value whose sleep still fits in a Duration.
const maxThrottle = uint64(math.MaxInt64 / int64(ThrottleUnit))

// parseThrottle treats anything that is not an unsigned integer as zero.
// Values too large for a Duration saturate instead of wrapping.
func parseThrottle(data string) time.Duration {
	n, err := strconv.ParseUint(strings.TrimSpace(data), 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return time.Duration(math.MaxInt64)
	}
	if err != nil {
		return 0
	}
	if n > maxThrottle {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(n) * ThrottleUnit
}
