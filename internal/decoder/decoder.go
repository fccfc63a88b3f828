// Package decoder dissects raw Ethernet frames and turns matching ones into events.
package decoder

import (
	"net"
	"net/netip"
	"strconv"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/netmon/internal/core"
)

// Matcher decides whether a flow tuple is of interest.
type Matcher interface {
	Match(t *core.FlowTuple) bool
}

// Dissector walks Ethernet -> {IPv4, IPv6, ARP} -> {TCP, UDP, ICMP, ICMPv6}.
// It reuses its layer buffers between frames and must not be shared between goroutines.
type Dissector struct {
	parser *gopacket.DecodingLayerParser

	eth     layers.Ethernet
	dot1q   layers.Dot1Q
	arp     layers.ARP
	ip4     layers.IPv4
	ip6     layers.IPv6
	tcp     layers.TCP
	udp     layers.UDP
	icmp4   layers.ICMPv4
	icmp6   layers.ICMPv6
	payload gopacket.Payload

	decoded []gopacket.LayerType

	statistics
}

type statistics struct {
	frames    uint64
	truncated uint64
	ipv4Count uint64
	ipv6Count uint64
	arpCount  uint64
	matched   uint64
}

// Stats is a snapshot of dissector counters.
type Stats struct {
	Frames    uint64
	Truncated uint64
	IPv4      uint64
	IPv6      uint64
	ARP       uint64
	Matched   uint64
}

func NewDissector() *Dissector {
	d := &Dissector{}
	d.parser = gopacket.NewDecodingLayerParser(
		layers.LayerTypeEthernet,
		&d.eth,
		&d.dot1q,
		&d.arp,
		&d.ip4,
		&d.ip6,
		&d.tcp,
		&d.udp,
		&d.icmp4,
		&d.icmp6,
		&d.payload,
	)
	d.parser.IgnoreUnsupported = true
	d.decoded = make([]gopacket.LayerType, 0, 8)
	return d
}

// Dissect decodes frame and, if m matches the extracted flow tuple, returns
// the resulting event. Frames that are malformed, of an unhandled protocol or
// not matched yield no event.
func (d *Dissector) Dissect(iface string, frame []byte, m Matcher) (core.Event, bool) {
	atomic.AddUint64(&d.frames, 1)

	d.decoded = d.decoded[:0]
	if err := d.parser.DecodeLayers(frame, &d.decoded); err != nil {
		// layers decoded before the failure are still usable
		atomic.AddUint64(&d.truncated, 1)
	}
	if !d.has(layers.LayerTypeEthernet) {
		return core.Event{}, false
	}

	etherType := d.eth.EthernetType
	if d.has(layers.LayerTypeDot1Q) {
		etherType = d.dot1q.Type
	}

	switch etherType {
	case layers.EthernetTypeIPv4:
		if !d.has(layers.LayerTypeIPv4) {
			return core.Event{}, false
		}
		atomic.AddUint64(&d.ipv4Count, 1)
		return d.transport(iface, toAddr(d.ip4.SrcIP), toAddr(d.ip4.DstIP), d.ip4.Protocol, m)
	case layers.EthernetTypeIPv6:
		if !d.has(layers.LayerTypeIPv6) {
			return core.Event{}, false
		}
		atomic.AddUint64(&d.ipv6Count, 1)
		return d.transport(iface, toAddr(d.ip6.SrcIP), toAddr(d.ip6.DstIP), d.ip6.NextHeader, m)
	case layers.EthernetTypeARP:
		if !d.has(layers.LayerTypeARP) {
			return core.Event{}, false
		}
		atomic.AddUint64(&d.arpCount, 1)
		return d.handleARP(iface, m)
	}
	return core.Event{}, false
}

func (d *Dissector) transport(iface string, src, dst netip.Addr, proto layers.IPProtocol, m Matcher) (core.Event, bool) {
	switch proto {
	case layers.IPProtocolTCP:
		return d.handleTCP(iface, src, dst, m)
	case layers.IPProtocolUDP:
		return d.handleUDP(iface, src, dst, m)
	case layers.IPProtocolICMPv4:
		return d.handleICMPv4(iface, src, dst, m)
	case layers.IPProtocolICMPv6:
		return d.handleICMPv6(iface, src, dst, m)
	}
	return core.Event{}, false
}

func (d *Dissector) handleTCP(iface string, src, dst netip.Addr, m Matcher) (core.Event, bool) {
	if !d.has(layers.LayerTypeTCP) {
		return core.Event{}, false
	}
	t := core.FlowTuple{
		SrcIP:   src,
		SrcPort: uint16(d.tcp.SrcPort),
		DstIP:   dst,
		DstPort: uint16(d.tcp.DstPort),
		Size:    uint64(len(d.tcp.Contents) + len(d.tcp.Payload)),
		Payload: d.tcp.Payload,
	}
	if !d.match(m, &t) {
		return core.Event{}, false
	}
	return core.Event{DataType: core.DataTypeTCP, Payload: transportData(iface, &t)}, true
}

func (d *Dissector) handleUDP(iface string, src, dst netip.Addr, m Matcher) (core.Event, bool) {
	if !d.has(layers.LayerTypeUDP) {
		return core.Event{}, false
	}
	t := core.FlowTuple{
		SrcIP:   src,
		SrcPort: uint16(d.udp.SrcPort),
		DstIP:   dst,
		DstPort: uint16(d.udp.DstPort),
		Size:    uint64(d.udp.Length),
		Payload: d.udp.Payload,
	}
	if !d.match(m, &t) {
		return core.Event{}, false
	}
	return core.Event{DataType: core.DataTypeUDP, Payload: transportData(iface, &t)}, true
}

// Only echo request and reply produce events.
func (d *Dissector) handleICMPv4(iface string, src, dst netip.Addr, m Matcher) (core.Event, bool) {
	if !d.has(layers.LayerTypeICMPv4) {
		return core.Event{}, false
	}
	var dataType core.DataType
	switch d.icmp4.TypeCode.Type() {
	case layers.ICMPv4TypeEchoRequest:
		dataType = core.DataTypeEchoRequest
	case layers.ICMPv4TypeEchoReply:
		dataType = core.DataTypeEchoReply
	default:
		return core.Event{}, false
	}

	t := core.FlowTuple{SrcIP: src, DstIP: dst}
	if !d.match(m, &t) {
		return core.Event{}, false
	}
	return core.Event{
		DataType: dataType,
		Payload: core.EchoData{
			InterfaceName: iface,
			SourceIP:      t.SrcIPString(),
			DestIP:        t.DstIPString(),
			Identifier:    d.icmp4.Id,
			SeqNumber:     d.icmp4.Seq,
		},
	}, true
}

func (d *Dissector) handleICMPv6(iface string, src, dst netip.Addr, m Matcher) (core.Event, bool) {
	if !d.has(layers.LayerTypeICMPv6) {
		return core.Event{}, false
	}
	t := core.FlowTuple{SrcIP: src, DstIP: dst}
	if !d.match(m, &t) {
		return core.Event{}, false
	}
	return core.Event{
		DataType: core.DataTypeICMPv6,
		Payload: core.ICMPv6Data{
			InterfaceName: iface,
			SourceIP:      t.SrcIPString(),
			DestIP:        t.DstIPString(),
			Type:          d.icmp6.TypeCode.String(),
		},
	}, true
}

// ARP is filtered on the sender and target protocol addresses.
func (d *Dissector) handleARP(iface string, m Matcher) (core.Event, bool) {
	t := core.FlowTuple{
		SrcIP: toAddr(d.arp.SourceProtAddress),
		DstIP: toAddr(d.arp.DstProtAddress),
	}
	if !d.match(m, &t) {
		return core.Event{}, false
	}
	return core.Event{
		DataType: core.DataTypeARP,
		Payload: core.ARPData{
			InterfaceName: iface,
			SourceMAC:     d.eth.SrcMAC.String(),
			DestMAC:       d.eth.DstMAC.String(),
			SenderProto:   t.SrcIPString(),
			TargetProto:   t.DstIPString(),
			Operation:     arpOperation(d.arp.Operation),
		},
	}, true
}

func (d *Dissector) match(m Matcher, t *core.FlowTuple) bool {
	if m == nil || !m.Match(t) {
		return false
	}
	atomic.AddUint64(&d.matched, 1)
	return true
}

func (d *Dissector) has(lt gopacket.LayerType) bool {
	for _, l := range d.decoded {
		if l == lt {
			return true
		}
	}
	return false
}

// Stats returns a snapshot of the dissector counters.
func (d *Dissector) Stats() Stats {
	return Stats{
		Frames:    atomic.LoadUint64(&d.frames),
		Truncated: atomic.LoadUint64(&d.truncated),
		IPv4:      atomic.LoadUint64(&d.ipv4Count),
		IPv6:      atomic.LoadUint64(&d.ipv6Count),
		ARP:       atomic.LoadUint64(&d.arpCount),
		Matched:   atomic.LoadUint64(&d.matched),
	}
}

func transportData(iface string, t *core.FlowTuple) core.TransportData {
	return core.TransportData{
		InterfaceName: iface,
		SourceIP:      t.SrcIPString(),
		SourcePort:    t.SrcPort,
		DestIP:        t.DstIPString(),
		DestPort:      t.DstPort,
		Size:          t.Size,
		Payload:       t.PayloadText(),
	}
}

func toAddr(ip net.IP) netip.Addr {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}
	}
	return addr.Unmap()
}

func arpOperation(op uint16) string {
	switch op {
	case layers.ARPRequest:
		return "request"
	case layers.ARPReply:
		return "reply"
	}
	return strconv.Itoa(int(op))
}
