//go:build linux

package source

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/gopacket/afpacket"

	"firestige.xyz/netmon/internal/config"
	"firestige.xyz/netmon/internal/core"
	"firestige.xyz/netmon/internal/log"
)

// AFPacketOptions are decoded from capture.options for the afpacket type.
type AFPacketOptions struct {
	BufferSizeMB int    `mapstructure:"buffer_size_mb"`
	TimeoutMs    int    `mapstructure:"timeout_ms"`
	FanoutID     uint16 `mapstructure:"fanout_id"`
}

const (
	defaultBufferSizeMB = 8
	defaultTimeoutMs    = 100
)

// AFPacketSource captures through a TPACKET_V3 ring.
type AFPacketSource struct {
	iface  string
	handle *afpacket.TPacket
}

// OpenAFPacket sizes the ring from the buffer budget and snaplen, then
// attaches fanout and BPF as configured.
func OpenAFPacket(cfg config.CaptureConfig) (*AFPacketSource, error) {
	var opts AFPacketOptions
	if err := config.DecodeOptions(cfg.Options, &opts); err != nil {
		return nil, err
	}
	if opts.BufferSizeMB <= 0 {
		opts.BufferSizeMB = defaultBufferSizeMB
	}
	if opts.TimeoutMs <= 0 {
		opts.TimeoutMs = defaultTimeoutMs
	}

	ring, err := recomputeSize(opts.BufferSizeMB, cfg.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, err
	}

	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(cfg.Interface),
		afpacket.OptFrameSize(ring.FrameSize),
		afpacket.OptBlockSize(ring.BlockSize),
		afpacket.OptNumBlocks(ring.NumBlocks),
		afpacket.OptPollTimeout(opts.TimeoutMs),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: afpacket %s: %v", core.ErrCaptureFailed, cfg.Interface, err)
	}

	if opts.FanoutID > 0 {
		if err := tp.SetFanout(afpacket.FanoutHashWithDefrag, opts.FanoutID); err != nil {
			tp.Close()
			return nil, fmt.Errorf("failed to set fanout %d: %w", opts.FanoutID, err)
		}
	}

	if cfg.BPFFilter != "" {
		raw, err := compileBPF(cfg.BPFFilter, ring.FrameSize)
		if err != nil {
			tp.Close()
			return nil, err
		}
		if err := tp.SetBPF(raw); err != nil {
			tp.Close()
			return nil, fmt.Errorf("failed to attach BPF filter: %w", err)
		}
	}

	log.GetLogger().WithFields(map[string]interface{}{
		"interface":  cfg.Interface,
		"frame_size": ring.FrameSize,
		"block_size": ring.BlockSize,
		"num_blocks": ring.NumBlocks,
		"fanout_id":  opts.FanoutID,
	}).Info("afpacket capture opened")

	return &AFPacketSource{iface: cfg.Interface, handle: tp}, nil
}

// NextFrame retries on poll timeouts so the call blocks like a pcap handle.
func (s *AFPacketSource) NextFrame() ([]byte, error) {
	for {
		data, _, err := s.handle.ReadPacketData()
		if err == nil {
			return data, nil
		}
		if errors.Is(err, afpacket.ErrTimeout) {
			continue
		}
		return nil, fmt.Errorf("%w: %v", core.ErrCaptureFailed, err)
	}
}

func (s *AFPacketSource) InterfaceName() string {
	return s.iface
}

func (s *AFPacketSource) Close() error {
	s.handle.Close()
	return nil
}
