//go:build !linux

package source

import (
	"fmt"

	"firestige.xyz/netmon/internal/config"
)

// OpenAFPacket is only available on Linux.
func OpenAFPacket(cfg config.CaptureConfig) (Source, error) {
	return nil, fmt.Errorf("capture type %s is not supported on this platform", config.CaptureAFPacket)
}
