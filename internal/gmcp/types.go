// Package gmcp implements the delimited JSON envelope protocol shared by the
// control and event channels.
package gmcp

// Envelope delimiters.
const (
	TagOpen  = "<<GMCP>>"
	TagClose = "<</GMCP>>"
)

// nameTable is the single string mapping used for both encoding and decoding
// of one tag family, so every tag round-trips.
type nameTable[T ~int] struct {
	names  []string
	values map[string]T
}

func newNameTable[T ~int](names []string) nameTable[T] {
	values := make(map[string]T, len(names))
	for i, n := range names {
		values[n] = T(i)
	}
	return nameTable[T]{names: names, values: values}
}

func (t nameTable[T]) name(v T) string {
	if int(v) < 0 || int(v) >= len(t.names) {
		return t.names[0]
	}
	return t.names[v]
}

// lookup returns the zero (unknown) value for unrecognised names.
func (t nameTable[T]) lookup(s string) T {
	return t.values[s]
}

// MessageType tags the outer envelope.
type MessageType int

const (
	MessageUnknown MessageType = iota
	MessageEvent
	MessageLog
	MessageCommand
)

var messageTypes = newNameTable[MessageType]([]string{
	MessageUnknown: "unknown",
	MessageEvent:   "event",
	MessageLog:     "log",
	MessageCommand: "command",
})

func (t MessageType) String() string { return messageTypes.name(t) }

func (t MessageType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *MessageType) UnmarshalText(b []byte) error {
	*t = messageTypes.lookup(string(b))
	return nil
}

// CommandType tags a control command.
type CommandType int

const (
	CommandUnknown CommandType = iota
	CommandStart
	CommandStop
	CommandPause
	CommandThrottle
	CommandUpdateConfig
	CommandShowDefaultConfig
	CommandShowExampleConfig
)

var commandTypes = newNameTable[CommandType]([]string{
	CommandUnknown:           "unknown",
	CommandStart:             "start",
	CommandStop:              "stop",
	CommandPause:             "pause",
	CommandThrottle:          "throttle",
	CommandUpdateConfig:      "updateConfig",
	CommandShowDefaultConfig: "showDefaultConfig",
	CommandShowExampleConfig: "showExampleConfig",
})

func (t CommandType) String() string { return commandTypes.name(t) }

func (t CommandType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText never fails; unrecognised names decode to CommandUnknown.
func (t *CommandType) UnmarshalText(b []byte) error {
	*t = commandTypes.lookup(string(b))
	return nil
}

// ParseCommandType maps a wire name to its CommandType.
func ParseCommandType(s string) CommandType { return commandTypes.lookup(s) }

// EventType tags the inner event body.
type EventType int

const (
	EventUnknown EventType = iota
	EventPacketMatch
)

var eventTypes = newNameTable[EventType]([]string{
	EventUnknown:     "none",
	EventPacketMatch: "packetMatch",
})

func (t EventType) String() string { return eventTypes.name(t) }

func (t EventType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *EventType) UnmarshalText(b []byte) error {
	*t = eventTypes.lookup(string(b))
	return nil
}

// Severity of a log message.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)
