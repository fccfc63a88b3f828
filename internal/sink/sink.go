// Package sink delivers framed messages to the outbound channel.
package sink

import (
	"context"
	"fmt"
	"io"
	"sync"

	"firestige.xyz/netmon/internal/config"
)

// Sink delivers one framed message. Delivery is best effort: a failing sink
// reports the error and the message is dropped.
type Sink interface {
	Write(ctx context.Context, msg []byte) error
	Close() error
}

// New builds the sink selected by cfg. stdout backs the stdout type.
func New(cfg config.OutputConfig, stdout io.Writer) (Sink, error) {
	switch cfg.Type {
	case "", config.OutputStdout:
		return NewWriterSink(stdout), nil
	case config.OutputKafka:
		var opts KafkaOptions
		if err := config.DecodeOptions(cfg.Options, &opts); err != nil {
			return nil, err
		}
		return NewKafkaSink(opts)
	case config.OutputNATS:
		var opts NATSOptions
		if err := config.DecodeOptions(cfg.Options, &opts); err != nil {
			return nil, err
		}
		return NewNATSSink(opts)
	}
	return nil, fmt.Errorf("unsupported output type: %s", cfg.Type)
}

// WriterSink writes one message per line to an io.Writer.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Write(_ context.Context, msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := make([]byte, 0, len(msg)+1)
	line = append(line, msg...)
	line = append(line, '\n')
	if _, err := s.w.Write(line); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Close is a no-op; the writer is owned by the caller.
func (s *WriterSink) Close() error {
	return nil
}
