package sink

import (
	"context"

	"firestige.xyz/netmon/internal/core"
	"firestige.xyz/netmon/internal/gmcp"
)

// Emitter frames events, log messages and raw documents onto a Sink.
type Emitter struct {
	sink Sink
}

func NewEmitter(s Sink) *Emitter {
	return &Emitter{sink: s}
}

// Event writes a packetMatch event envelope.
func (e *Emitter) Event(ctx context.Context, ev core.Event) error {
	msg, err := gmcp.EncodeEvent(ev)
	if err != nil {
		return err
	}
	return e.sink.Write(ctx, msg)
}

// Log writes a log envelope.
func (e *Emitter) Log(ctx context.Context, severity gmcp.Severity, area, text string) error {
	msg, err := gmcp.EncodeLog(gmcp.NewLog(severity, area, text))
	if err != nil {
		return err
	}
	return e.sink.Write(ctx, msg)
}

// Raw writes an unframed document, used for configuration dumps.
func (e *Emitter) Raw(ctx context.Context, doc []byte) error {
	return e.sink.Write(ctx, doc)
}

// Close closes the underlying sink.
func (e *Emitter) Close() error {
	return e.sink.Close()
}
