// Package command implements the control channel: line sources feeding an
// unbounded queue that the run loop drains without blocking.
package command

import (
	"fmt"
	"sync"

	"firestige.xyz/netmon/internal/core"
)

// Queue is an unbounded FIFO of control lines. Producers never block and the
// consumer never waits.
type Queue struct {
	mu     sync.Mutex
	lines  []string
	closed bool
	cause  error
}

func NewQueue() *Queue {
	return &Queue{}
}

// Push appends a line. It reports false once the queue is closed.
func (q *Queue) Push(line string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.lines = append(q.lines, line)
	return true
}

// Close marks the producer side as terminated. Pending lines stay receivable.
func (q *Queue) Close(cause error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cause = cause
}

// TryReceive pops the oldest line. It returns core.ErrQueueEmpty when nothing
// is pending, and an error wrapping core.ErrControlDisconnected once the
// queue is closed and drained.
func (q *Queue) TryReceive() (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.lines) == 0 {
		return "", q.emptyErr()
	}
	line := q.lines[0]
	q.lines[0] = ""
	q.lines = q.lines[1:]
	return line, nil
}

// Drain pops every pending line in order. The error semantics match TryReceive.
func (q *Queue) Drain() ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.lines) == 0 {
		return nil, q.emptyErr()
	}
	lines := q.lines
	q.lines = nil
	return lines, nil
}

// Len returns the number of pending lines.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lines)
}

func (q *Queue) emptyErr() error {
	if !q.closed {
		return core.ErrQueueEmpty
	}
	if q.cause != nil {
		return fmt.Errorf("%w: %v", core.ErrControlDisconnected, q.cause)
	}
	return core.ErrControlDisconnected
}
