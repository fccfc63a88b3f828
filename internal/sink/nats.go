package sink

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"firestige.xyz/netmon/internal/log"
)

// NATSOptions configures the NATS event sink.
type NATSOptions struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"` // required
	Name    string `mapstructure:"name"`
}

type publisher interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSSink publishes every message on a NATS subject.
type NATSSink struct {
	pub     publisher
	subject string
}

// NewNATSSink connects to the NATS server.
func NewNATSSink(opts NATSOptions) (*NATSSink, error) {
	if opts.Subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	if opts.URL == "" {
		opts.URL = nats.DefaultURL
	}
	if opts.Name == "" {
		opts.Name = "netmon"
	}
	nc, err := nats.Connect(opts.URL, nats.Name(opts.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats %s: %w", opts.URL, err)
	}
	log.GetLogger().WithFields(map[string]interface{}{
		"url":     opts.URL,
		"subject": opts.Subject,
	}).Info("connected to nats")
	return &NATSSink{pub: nc, subject: opts.Subject}, nil
}

func (s *NATSSink) Write(_ context.Context, msg []byte) error {
	if err := s.pub.Publish(s.subject, msg); err != nil {
		return fmt.Errorf("failed to publish nats message: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (s *NATSSink) Close() error {
	if s.pub == nil {
		return nil
	}
	p := s.pub
	s.pub = nil
	return p.Drain()
}
