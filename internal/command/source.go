package command

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"firestige.xyz/netmon/internal/config"
	"firestige.xyz/netmon/internal/log"
)

// maxLineSize bounds a single control line. Config updates travel inline.
const maxLineSize = 4 << 20

// Source produces control lines into a queue until it fails or ctx ends.
type Source interface {
	Run(ctx context.Context, q *Queue) error
	Close() error
}

// Listen runs src in the background and closes the returned queue when src
// returns, so the consumer observes the disconnect.
func Listen(ctx context.Context, src Source) *Queue {
	q := NewQueue()
	go func() {
		err := src.Run(ctx, q)
		if err == nil {
			err = io.EOF
		}
		log.GetLogger().WithError(err).Warn("control source terminated")
		q.Close(err)
	}()
	return q
}

// New builds the control source selected by cfg. stdin backs the stdin type.
func New(cfg config.ControlConfig, stdin io.Reader) (Source, error) {
	switch cfg.Type {
	case "", config.ControlStdin:
		return NewStreamSource(stdin), nil
	case config.ControlUnix:
		var opts UDSOptions
		if err := config.DecodeOptions(cfg.Options, &opts); err != nil {
			return nil, err
		}
		return NewUDSServer(opts), nil
	case config.ControlKafka:
		var opts KafkaOptions
		if err := config.DecodeOptions(cfg.Options, &opts); err != nil {
			return nil, err
		}
		return NewKafkaSource(opts)
	}
	return nil, fmt.Errorf("unsupported control type: %s", cfg.Type)
}

// StreamSource reads newline-delimited control text from a reader.
type StreamSource struct {
	r io.Reader
}

func NewStreamSource(r io.Reader) *StreamSource {
	return &StreamSource{r: r}
}

// Run blocks reading lines. It returns io.EOF when the reader is exhausted.
func (s *StreamSource) Run(ctx context.Context, q *Queue) error {
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !q.Push(scanner.Text()) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("control stream read failed: %w", err)
	}
	return io.EOF
}

// Close closes the underlying reader when it is closable.
func (s *StreamSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
