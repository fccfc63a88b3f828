// Package source reads raw link-layer frames from a capture device or file.
package source

import (
	"fmt"
	"net"

	"firestige.xyz/netmon/internal/config"
	"firestige.xyz/netmon/internal/core"
)

const defaultSnapLen = 65535

// Source yields one raw frame per call. NextFrame blocks until a frame is
// available; a file source returns io.EOF when exhausted.
type Source interface {
	NextFrame() ([]byte, error)
	InterfaceName() string
	Close() error
}

// Open creates the source selected by cfg.Type.
func Open(cfg config.CaptureConfig) (Source, error) {
	if cfg.SnapLen <= 0 {
		cfg.SnapLen = defaultSnapLen
	}
	switch cfg.Type {
	case "", config.CapturePcap:
		if err := checkInterface(cfg.Interface); err != nil {
			return nil, err
		}
		s, err := OpenLive(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.CaptureAFPacket:
		if err := checkInterface(cfg.Interface); err != nil {
			return nil, err
		}
		s, err := OpenAFPacket(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.CaptureFile:
		s, err := OpenFile(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported capture type: %s", cfg.Type)
}

func checkInterface(name string) error {
	if name == "" {
		return fmt.Errorf("%w: no interface given", core.ErrInterfaceMissing)
	}
	if _, err := net.InterfaceByName(name); err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrInterfaceMissing, name, err)
	}
	return nil
}
