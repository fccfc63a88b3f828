package source

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/gopacket/pcap"

	"firestige.xyz/netmon/internal/config"
	"firestige.xyz/netmon/internal/core"
)

// FileSource replays frames from a pcap file.
type FileSource struct {
	path   string
	iface  string
	handle *pcap.Handle
}

// OpenFile opens cfg.File for offline reading. The interface name reported
// in events is cfg.Interface, falling back to the file path.
func OpenFile(cfg config.CaptureConfig) (*FileSource, error) {
	if cfg.File == "" {
		return nil, fmt.Errorf("file is required for capture type %s", config.CaptureFile)
	}
	handle, err := pcap.OpenOffline(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("%w: open pcap file %s: %v", core.ErrCaptureFailed, cfg.File, err)
	}
	if cfg.BPFFilter != "" {
		if err := handle.SetBPFFilter(cfg.BPFFilter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("failed to set BPF filter %q: %w", cfg.BPFFilter, err)
		}
	}
	iface := cfg.Interface
	if iface == "" {
		iface = cfg.File
	}
	return &FileSource{path: cfg.File, iface: iface, handle: handle}, nil
}

func (s *FileSource) NextFrame() ([]byte, error) {
	data, _, err := s.handle.ReadPacketData()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: read %s: %v", core.ErrCaptureFailed, s.path, err)
	}
	return data, nil
}

func (s *FileSource) InterfaceName() string {
	return s.iface
}

func (s *FileSource) Close() error {
	s.handle.Close()
	return nil
}
