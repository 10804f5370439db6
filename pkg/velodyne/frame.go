package velodyne

import (
	"fmt"
	"log"
	"math"
)

// Point is one decoded laser return in the sensor frame.
type Point struct {
	X, Y, Z     float64
	Distance    float64 // meters
	AzimuthDeg  float64
	Intensity   uint8
	LaserID     int
	TimestampNS uint64
}

// Frame is one full rotation's worth of returns. Single-return captures
// populate only the stream matching their mode; dual-return captures
// populate both in parallel.
type Frame struct {
	Index     int
	Strongest []Point
	Last      []Point
}

// frameBuilder accumulates decoded blocks and cuts a frame whenever the
// azimuth rolls over through zero.
type frameBuilder struct {
	cfg  *Config
	emit func(Frame) error

	index       int
	lastAzimuth int // -1 until the first block
	strongest   []Point
	last        []Point
	started     bool
	verified    bool
}

func newFrameBuilder(cfg *Config, emit func(Frame) error) *frameBuilder {
	return &frameBuilder{cfg: cfg, emit: emit, lastAzimuth: -1}
}

func (fb *frameBuilder) feed(p *Packet) error {
	if !fb.verified {
		if err := fb.verifyFactory(p); err != nil {
			return err
		}
		fb.verified = true
	}

	if fb.cfg.Mode == Dual {
		return fb.feedDual(p)
	}
	return fb.feedSingle(p)
}

// verifyFactory cross-checks the packet tail against the configured
// return mode. A model mismatch only warns: the capture still decodes,
// with the configured calibration tables.
func (fb *frameBuilder) verifyFactory(p *Packet) error {
	if want := fb.cfg.Mode.factoryByte(); p.ReturnByte != want {
		return fmt.Errorf("capture reports return-mode byte 0x%02X, configured mode %v expects 0x%02X",
			p.ReturnByte, fb.cfg.Mode, want)
	}
	if want := fb.cfg.Model.productByte(); p.ProductByte != 0 && p.ProductByte != want {
		log.Printf("warning: capture reports product byte 0x%02X, configured model %v expects 0x%02X",
			p.ProductByte, fb.cfg.Model, want)
	}
	return nil
}

func (fb *frameBuilder) feedSingle(p *Packet) error {
	baseNS := uint64(p.TimestampUS) * 1000
	for b := 0; b < BlocksPerPacket; b++ {
		block := &p.Blocks[b]
		if err := fb.checkRollover(int(block.Azimuth)); err != nil {
			return err
		}
		gap := azimuthGap(p, b, 1)
		tNS := baseNS + uint64(b)*fb.blockDurationNS()
		points := fb.decodeBlock(block, gap, tNS)
		if fb.cfg.Mode == Last {
			fb.last = append(fb.last, points...)
		} else {
			fb.strongest = append(fb.strongest, points...)
		}
		fb.started = true
	}
	return nil
}

// feedDual walks blocks in pairs sharing one azimuth: the first of each
// pair carries the last return, the second the strongest.
func (fb *frameBuilder) feedDual(p *Packet) error {
	baseNS := uint64(p.TimestampUS) * 1000
	for b := 0; b+1 < BlocksPerPacket; b += 2 {
		lastBlock, strongestBlock := &p.Blocks[b], &p.Blocks[b+1]
		if err := fb.checkRollover(int(lastBlock.Azimuth)); err != nil {
			return err
		}
		gap := azimuthGap(p, b, 2)
		tNS := baseNS + uint64(b/2)*fb.blockDurationNS()
		fb.last = append(fb.last, fb.decodeBlock(lastBlock, gap, tNS)...)
		fb.strongest = append(fb.strongest, fb.decodeBlock(strongestBlock, gap, tNS)...)
		fb.started = true
	}
	return nil
}

// checkRollover cuts the current frame when the azimuth wraps past 360.
func (fb *frameBuilder) checkRollover(azimuth int) error {
	if fb.lastAzimuth >= 0 && azimuth < fb.lastAzimuth && fb.started {
		if err := fb.cut(); err != nil {
			return err
		}
	}
	fb.lastAzimuth = azimuth
	return nil
}

func (fb *frameBuilder) cut() error {
	frame := Frame{Index: fb.index, Strongest: fb.strongest, Last: fb.last}
	fb.index++
	fb.strongest = nil
	fb.last = nil
	fb.started = false
	return fb.emit(frame)
}

// flush emits the trailing partial frame at end of capture.
func (fb *frameBuilder) flush() error {
	if !fb.started {
		return nil
	}
	return fb.cut()
}

// decodeBlock converts one data block into points. gapDeg is the azimuth
// advance to the next block of the same return stream, used to
// interpolate the second firing sequence of 16-laser packets.
func (fb *frameBuilder) decodeBlock(block *Block, gapDeg float64, baseNS uint64) []Point {
	points := make([]Point, 0, ChannelsPerBlock)
	for c := 0; c < ChannelsPerBlock; c++ {
		ch := block.Channels[c]
		if ch.Distance == 0 {
			// no return on this channel
			continue
		}

		laser := c % fb.cfg.lasers
		sequence := c / fb.cfg.lasers

		azDeg := float64(block.Azimuth)*azimuthResolution + fb.cfg.azimuthOffsets[laser]
		if sequence == 1 {
			azDeg += gapDeg / 2
		}
		azDeg = math.Mod(azDeg+360, 360)
		azRad := azDeg * math.Pi / 180

		distance := float64(ch.Distance) * fb.cfg.distanceResolution
		sinAz, cosAz := math.Sincos(azRad)

		var slotNS uint64
		if fb.cfg.lasers == 16 {
			slotNS = uint64(sequence)*firingSequenceNS + uint64(laser)*channelSlotNS
		} else {
			slotNS = uint64(laser/2) * channelSlotNS
		}

		points = append(points, Point{
			X:           distance * fb.cfg.cosElevation[laser] * sinAz,
			Y:           distance * fb.cfg.cosElevation[laser] * cosAz,
			Z:           distance * fb.cfg.sinElevation[laser],
			Distance:    distance,
			AzimuthDeg:  azDeg,
			Intensity:   ch.Reflectivity,
			LaserID:     laser,
			TimestampNS: baseNS + slotNS,
		})
	}
	return points
}

// blockDurationNS is the firing time a block spans for timestamping.
func (fb *frameBuilder) blockDurationNS() uint64 {
	if fb.cfg.lasers == 16 {
		return 2 * firingSequenceNS
	}
	return firingSequenceNS
}

// azimuthGap measures the azimuth advance (degrees) between a block and
// the next block of the same return stream, handling the 360 wrap. The
// final block of a packet reuses the preceding gap.
func azimuthGap(p *Packet, b, step int) float64 {
	i, j := b, b+step
	if j >= BlocksPerPacket {
		i, j = b-step, b
		if i < 0 {
			return 0
		}
	}
	diff := int(p.Blocks[j].Azimuth) - int(p.Blocks[i].Azimuth)
	if diff < 0 {
		diff += rotationMaxUnits
	}
	return float64(diff) * azimuthResolution
}

// productByte is the model identifier sensors stamp into packet tails.
func (p ProductID) productByte() byte {
	switch p {
	case VLP16, PuckLite:
		return 0x22
	case PuckHiRes:
		return 0x24
	case VLP32C:
		return 0x28
	}
	return 0
}
