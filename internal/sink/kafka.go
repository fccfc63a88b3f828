package sink

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	"firestige.xyz/netmon/internal/log"
)

const (
	defaultBatchSize    = 100
	defaultBatchTimeout = 100 * time.Millisecond
	defaultCompression  = "snappy"
	defaultMaxAttempts  = 3
)

// KafkaOptions configures the Kafka event sink.
type KafkaOptions struct {
	Brokers      []string      `mapstructure:"brokers"`       // required
	Topic        string        `mapstructure:"topic"`         // required
	BatchSize    int           `mapstructure:"batch_size"`    // default 100
	BatchTimeout time.Duration `mapstructure:"batch_timeout"` // default 100ms
	Compression  string        `mapstructure:"compression"`   // none|gzip|snappy|lz4, default snappy
	MaxAttempts  int           `mapstructure:"max_attempts"`  // default 3
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes every message as one Kafka record.
type KafkaSink struct {
	opts   KafkaOptions
	writer messageWriter

	sentCount  atomic.Uint64
	errorCount atomic.Uint64
}

// NewKafkaSink validates opts, applies defaults and creates the writer.
func NewKafkaSink(opts KafkaOptions) (*KafkaSink, error) {
	if len(opts.Brokers) == 0 {
		return nil, fmt.Errorf("brokers is required")
	}
	if opts.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = defaultBatchTimeout
	}
	if opts.Compression == "" {
		opts.Compression = defaultCompression
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}

	writerConfig := kafka.WriterConfig{
		Brokers:      opts.Brokers,
		Topic:        opts.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    opts.BatchSize,
		BatchTimeout: opts.BatchTimeout,
		MaxAttempts:  opts.MaxAttempts,
		Async:        false,
	}

	switch opts.Compression {
	case "none":
		writerConfig.CompressionCodec = nil
	case "gzip":
		writerConfig.CompressionCodec = compress.Gzip.Codec()
	case "snappy":
		writerConfig.CompressionCodec = compress.Snappy.Codec()
	case "lz4":
		writerConfig.CompressionCodec = compress.Lz4.Codec()
	default:
		return nil, fmt.Errorf("invalid compression type: %s", opts.Compression)
	}

	log.GetLogger().WithFields(map[string]interface{}{
		"brokers":     opts.Brokers,
		"topic":       opts.Topic,
		"compression": opts.Compression,
	}).Info("kafka sink created")

	return &KafkaSink{opts: opts, writer: kafka.NewWriter(writerConfig)}, nil
}

func (s *KafkaSink) Write(ctx context.Context, msg []byte) error {
	if err := s.writer.WriteMessages(ctx, kafka.Message{Value: msg}); err != nil {
		s.errorCount.Add(1)
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	s.sentCount.Add(1)
	return nil
}

func (s *KafkaSink) Close() error {
	if s.writer == nil {
		return nil
	}
	w := s.writer
	s.writer = nil
	log.GetLogger().WithFields(map[string]interface{}{
		"sent":   s.sentCount.Load(),
		"errors": s.errorCount.Load(),
	}).Info("kafka sink closed")
	return w.Close()
}
