package source

import (
	"fmt"

	"github.com/google/gopacket/pcap"

	"firestige.xyz/netmon/internal/config"
	"firestige.xyz/netmon/internal/core"
	"firestige.xyz/netmon/internal/log"
)

// LiveSource captures from a network interface through libpcap.
type LiveSource struct {
	iface  string
	handle *pcap.Handle
}

// OpenLive opens iface in blocking mode and applies the BPF filter, if any.
func OpenLive(cfg config.CaptureConfig) (*LiveSource, error) {
	handle, err := pcap.OpenLive(cfg.Interface, int32(cfg.SnapLen), cfg.Promiscuous, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", core.ErrCaptureFailed, cfg.Interface, err)
	}
	if cfg.BPFFilter != "" {
		if err := handle.SetBPFFilter(cfg.BPFFilter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("failed to set BPF filter %q: %w", cfg.BPFFilter, err)
		}
	}
	log.GetLogger().WithFields(map[string]interface{}{
		"interface":   cfg.Interface,
		"snaplen":     cfg.SnapLen,
		"promiscuous": cfg.Promiscuous,
	}).Info("pcap capture opened")
	return &LiveSource{iface: cfg.Interface, handle: handle}, nil
}

func (s *LiveSource) NextFrame() ([]byte, error) {
	data, _, err := s.handle.ReadPacketData()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrCaptureFailed, err)
	}
	return data, nil
}

func (s *LiveSource) InterfaceName() string {
	return s.iface
}

func (s *LiveSource) Close() error {
	s.handle.Close()
	return nil
}
