package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"firestige.xyz/netmon/internal/log"
)

// KafkaOptions configures the Kafka control source. Each message value is
// treated as one control line.
type KafkaOptions struct {
	Brokers     []string      `mapstructure:"brokers"`
	Topic       string        `mapstructure:"topic"`
	GroupID     string        `mapstructure:"group_id"`
	StartOffset string        `mapstructure:"start_offset"` // earliest / latest
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

// KafkaSource consumes control lines from a Kafka topic. Close may be
// called while Run is fetching.
type KafkaSource struct {
	opts   KafkaOptions
	reader *kafka.Reader

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// NewKafkaSource validates opts and creates the underlying reader.
func NewKafkaSource(opts KafkaOptions) (*KafkaSource, error) {
	if len(opts.Brokers) == 0 {
		return nil, fmt.Errorf("brokers is required")
	}
	if opts.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if opts.GroupID == "" {
		opts.GroupID = "netmon"
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}

	var startOffset int64
	switch opts.StartOffset {
	case "earliest":
		startOffset = kafka.FirstOffset
	case "", "latest":
		startOffset = kafka.LastOffset
	default:
		return nil, fmt.Errorf("invalid start_offset %q (must be earliest/latest)", opts.StartOffset)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        opts.Brokers,
		Topic:          opts.Topic,
		GroupID:        opts.GroupID,
		StartOffset:    startOffset,
		MinBytes:       1,
		MaxBytes:       10 << 20,
		CommitInterval: time.Second,
		MaxWait:        1 * time.Second,
	})

	return &KafkaSource{opts: opts, reader: reader, done: make(chan struct{})}, nil
}

// Run fetches messages until ctx is cancelled. Fetch errors are retried.
func (s *KafkaSource) Run(ctx context.Context, q *Queue) error {
	logger := log.GetLogger().WithFields(map[string]interface{}{
		"brokers":  s.opts.Brokers,
		"topic":    s.opts.Topic,
		"group_id": s.opts.GroupID,
	})
	logger.Info("kafka control source started")

	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if s.closed() || errors.Is(err, io.EOF) {
				return fmt.Errorf("kafka reader closed: %w", io.EOF)
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			logger.WithError(err).Error("failed to fetch kafka message")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.done:
				return fmt.Errorf("kafka reader closed: %w", io.EOF)
			case <-time.After(s.opts.RetryDelay):
				continue
			}
		}

		if !q.Push(string(msg.Value)) {
			return nil
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			logger.WithError(err).Error("failed to commit message")
		}
	}
}

func (s *KafkaSource) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Close closes the reader once. A concurrent Run returns io.EOF.
func (s *KafkaSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if err := s.reader.Close(); err != nil {
			s.closeErr = fmt.Errorf("failed to close kafka reader: %w", err)
		}
	})
	return s.closeErr
}
