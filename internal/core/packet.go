// Package core defines core data structures with zero external dependencies.
package core

// DataType tags the payload carried by an Event.
type DataType string

const (
	DataTypeTCP         DataType = "tcp"
	DataTypeUDP         DataType = "udp"
	DataTypeARP         DataType = "arp"
	DataTypeEchoReply   DataType = "echoReply"
	DataTypeEchoRequest DataType = "echoRequest"
	DataTypeICMPv6      DataType = "icmpv6"
)

// Event is produced at most once per matching frame and handed straight to the emitter.
type Event struct {
	DataType DataType
	Payload  any // one of the *Data types below, selected by DataType
}

// TransportData is the payload of tcp and udp events.
type TransportData struct {
	InterfaceName string `json:"interfaceName"`
	SourceIP      string `json:"sourceIp"`
	SourcePort    uint16 `json:"sourcePort"`
	DestIP        string `json:"destIp"`
	DestPort      uint16 `json:"destPort"`
	Size          uint64 `json:"size"`
	Payload       string `json:"payload"`
}

// EchoData is the payload of echoRequest and echoReply events.
type EchoData struct {
	InterfaceName string `json:"interfaceName"`
	SourceIP      string `json:"sourceIp"`
	DestIP        string `json:"destIp"`
	Identifier    uint16 `json:"identifier"`
	SeqNumber     uint16 `json:"seqNumber"`
}

// ICMPv6Data is the payload of icmpv6 events.
type ICMPv6Data struct {
	InterfaceName string `json:"interfaceName"`
	SourceIP      string `json:"sourceIp"`
	DestIP        string `json:"destIp"`
	Type          string `json:"type"`
}

// ARPData is the payload of arp events.
type ARPData struct {
	InterfaceName string `json:"interfaceName"`
	SourceMAC     string `json:"sourceMac"`
	DestMAC       string `json:"destMac"`
	SenderProto   string `json:"senderProto"`
	TargetProto   string `json:"targetProto"`
	Operation     string `json:"operation"`
}
