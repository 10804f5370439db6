package velodyne

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Velodyne data packet layout. Every UDP payload is 1206 bytes: 12 data
// blocks of 100 bytes each, a 4-byte microsecond timestamp and 2 factory
// bytes (return mode + product model).
const (
	PacketSize       = 1206
	BlocksPerPacket  = 12
	ChannelsPerBlock = 32
	BlockSize        = 4 + ChannelsPerBlock*3 // flag + azimuth + 32 channels
	blockFlag        = 0xEEFF                 // 0xFF 0xEE on the wire

	// azimuthResolution converts raw block azimuth to degrees.
	azimuthResolution = 0.01
	rotationMaxUnits  = 36000
)

var ErrBadPacket = errors.New("malformed velodyne packet")

// Channel is one laser measurement inside a data block.
type Channel struct {
	Distance     uint16
	Reflectivity uint8
}

// Block is one data block: a shared azimuth plus 32 channel readings.
type Block struct {
	Azimuth  uint16 // 0.01 degree units
	Channels [ChannelsPerBlock]Channel
}

// Packet is a fully parsed data packet.
type Packet struct {
	Blocks      [BlocksPerPacket]Block
	TimestampUS uint32 // microseconds since top of the hour
	ReturnByte  byte
	ProductByte byte
}

// ParsePacket decodes a 1206-byte UDP payload. Block flags are validated
// so that foreign traffic on the capture port is rejected early.
func ParsePacket(payload []byte) (*Packet, error) {
	if len(payload) != PacketSize {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrBadPacket, len(payload), PacketSize)
	}

	var p Packet
	for b := 0; b < BlocksPerPacket; b++ {
		base := b * BlockSize
		if flag := binary.LittleEndian.Uint16(payload[base:]); flag != blockFlag {
			return nil, fmt.Errorf("%w: block %d flag 0x%04X", ErrBadPacket, b, flag)
		}
		block := &p.Blocks[b]
		block.Azimuth = binary.LittleEndian.Uint16(payload[base+2:])
		if block.Azimuth >= rotationMaxUnits {
			return nil, fmt.Errorf("%w: block %d azimuth %d", ErrBadPacket, b, block.Azimuth)
		}
		for c := 0; c < ChannelsPerBlock; c++ {
			off := base + 4 + c*3
			block.Channels[c] = Channel{
				Distance:     binary.LittleEndian.Uint16(payload[off:]),
				Reflectivity: payload[off+2],
			}
		}
	}

	tail := BlocksPerPacket * BlockSize
	p.TimestampUS = binary.LittleEndian.Uint32(payload[tail:])
	p.ReturnByte = payload[tail+4]
	p.ProductByte = payload[tail+5]
	return &p, nil
}
