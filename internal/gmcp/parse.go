package gmcp

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var envelopeRe = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(TagOpen) + `\s*(.*?)\s*` + regexp.QuoteMeta(TagClose))

// InputContainer is the result of one parse pass over control-channel text.
type InputContainer struct {
	Commands []Command
	Errors   []string
}

// Append adds the results of another pass, preserving order.
func (in *InputContainer) Append(other InputContainer) {
	in.Commands = append(in.Commands, other.Commands...)
	in.Errors = append(in.Errors, other.Errors...)
}

// Parse extracts every command envelope from text in order of appearance.
// Malformed envelopes are reported in Errors and never stop the scan.
// Envelopes of other message types are skipped.
func Parse(text string) InputContainer {
	var in InputContainer
	for _, m := range envelopeRe.FindAllStringSubmatch(text, -1) {
		raw := m[1]
		// An unterminated open tag swallows the next envelope; keep only its body.
		if i := strings.LastIndex(raw, TagOpen); i >= 0 {
			raw = strings.TrimSpace(raw[i+len(TagOpen):])
		}
		var msg Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			in.Errors = append(in.Errors, fmt.Sprintf("failed to parse message %q: %v", raw, err))
			continue
		}
		if msg.Type != MessageCommand {
			continue
		}
		var cmd Command
		if err := json.Unmarshal([]byte(msg.Data), &cmd); err != nil {
			in.Errors = append(in.Errors, fmt.Sprintf("failed to parse command %q: %v", msg.Data, err))
			continue
		}
		in.Commands = append(in.Commands, cmd)
	}
	return in
}
