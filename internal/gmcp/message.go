package gmcp

import (
	"encoding/json"
	"fmt"
	"time"

	"firestige.xyz/netmon/internal/core"
)

// Message is the outer envelope body. Data holds the nested JSON document as a string.
type Message struct {
	Type MessageType `json:"type"`
	Data string      `json:"data"`
}

// Command is a control command carried in a command message.
type Command struct {
	Type CommandType `json:"type"`
	Data string      `json:"data"`
}

// Event is the inner body of an event message.
type Event struct {
	Type EventType `json:"eventType"`
	Data EventData `json:"eventData"`
}

// EventData carries the typed payload of an Event.
type EventData struct {
	DataType core.DataType `json:"dataType"`
	Data     any           `json:"data"`
}

// GeneralLog is the inner body of a log message.
type GeneralLog struct {
	Severity  Severity  `json:"severity"`
	Area      string    `json:"area"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPacketMatch wraps a dissected event as a packetMatch event body.
func NewPacketMatch(e core.Event) Event {
	return Event{
		Type: EventPacketMatch,
		Data: EventData{DataType: e.DataType, Data: e.Payload},
	}
}

// NewLog builds a log body stamped with the current time.
func NewLog(severity Severity, area, msg string) GeneralLog {
	return GeneralLog{
		Severity:  severity,
		Area:      area,
		Message:   msg,
		Timestamp: time.Now().UTC(),
	}
}

// Encode serialises body as the data of a message of type t and wraps it in
// the envelope delimiters. encoding/json escapes '<' and '>', so the encoded
// message never contains a delimiter.
func Encode(t MessageType, body any) ([]byte, error) {
	inner, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s body: %w", t, err)
	}
	outer, err := json.Marshal(Message{Type: t, Data: string(inner)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", t, err)
	}
	buf := make([]byte, 0, len(TagOpen)+len(outer)+len(TagClose))
	buf = append(buf, TagOpen...)
	buf = append(buf, outer...)
	buf = append(buf, TagClose...)
	return buf, nil
}

// EncodeCommand wraps a command in a command envelope.
func EncodeCommand(c Command) ([]byte, error) {
	return Encode(MessageCommand, c)
}

// EncodeEvent wraps a dissected event in an event envelope.
func EncodeEvent(e core.Event) ([]byte, error) {
	return Encode(MessageEvent, NewPacketMatch(e))
}

// EncodeLog wraps a log body in a log envelope.
func EncodeLog(l GeneralLog) ([]byte, error) {
	return Encode(MessageLog, l)
}
