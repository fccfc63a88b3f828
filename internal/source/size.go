package source

import "fmt"

const (
	tpacketAlignment = 16 // TPACKET_ALIGNMENT
	tpacketHdrLen    = 52 // approximate TPACKET3 header length
	maxBlockSize     = 4 << 20
)

// ringLayout is the PACKET_MMAP ring geometry handed to afpacket.
type ringLayout struct {
	FrameSize int
	BlockSize int
	NumBlocks int
}

// recomputeSize derives a ring layout close to bufferMB megabytes that
// satisfies the kernel constraints: frames aligned to 16 bytes, blocks a
// multiple of both the page size and the frame size.
func recomputeSize(bufferMB, snapLen, pageSize int) (ringLayout, error) {
	if bufferMB <= 0 {
		return ringLayout{}, fmt.Errorf("buffer_size_mb must be positive, got %d", bufferMB)
	}
	if snapLen <= 0 {
		return ringLayout{}, fmt.Errorf("snaplen must be positive, got %d", snapLen)
	}
	if pageSize <= 0 || pageSize%tpacketAlignment != 0 {
		return ringLayout{}, fmt.Errorf("page size must be a positive multiple of %d, got %d", tpacketAlignment, pageSize)
	}

	frame := alignUp(tpacketHdrLen+snapLen, tpacketAlignment)

	block := lcm(pageSize, frame)
	if block > maxBlockSize {
		// page-aligned frames make every whole number of frames a valid block
		frame = alignUp(frame, pageSize)
		block = maxBlockSize / frame * frame
	}
	if block < frame {
		block = frame
	}

	blocks := bufferMB * 1024 * 1024 / block
	if blocks < 1 {
		blocks = 1
	}
	return ringLayout{FrameSize: frame, BlockSize: block, NumBlocks: blocks}, nil
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd(a, b) * b
}
