// Package core defines core types with zero external dependencies.
package core

import (
	"net/netip"
	"strings"
)

// FlowTuple is the per-frame addressing, size and payload view used as filter input.
// It is built fresh for every frame and discarded after matching.
type FlowTuple struct {
	SrcIP   netip.Addr
	SrcPort uint16
	DstIP   netip.Addr
	DstPort uint16
	Size    uint64
	Payload []byte // zero-copy slice into the captured frame
}

// SrcIPString returns the textual source address, or "" when the address is unset.
func (t *FlowTuple) SrcIPString() string {
	return addrString(t.SrcIP)
}

// DstIPString returns the textual destination address, or "" when the address is unset.
func (t *FlowTuple) DstIPString() string {
	return addrString(t.DstIP)
}

// PayloadText interprets the payload as text, replacing invalid UTF-8 sequences.
func (t *FlowTuple) PayloadText() string {
	return strings.ToValidUTF8(string(t.Payload), "�")
}

func addrString(a netip.Addr) string {
	if !a.IsValid() {
		return ""
	}
	return a.String()
}
