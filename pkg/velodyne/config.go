// Package velodyne decodes Velodyne LiDAR capture files into frames of
// cartesian points. It covers the 16- and 32-laser pucks in single and
// dual return modes, reading packets out of pcap captures.
package velodyne

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownProduct    = errors.New("unknown velodyne model")
	ErrUnknownReturnMode = errors.New("unknown return mode")
	ErrUnsupportedCombo  = errors.New("unsupported model/return-mode combination")
)

// ProductID identifies the sensor model a capture was recorded with.
type ProductID uint8

const (
	ProductUnknown ProductID = iota
	VLP16
	PuckLite
	PuckHiRes
	VLP32C
)

var productTokens = map[string]ProductID{
	"vlp16":      VLP16,
	"puck-lite":  PuckLite,
	"puck-hires": PuckHiRes,
	"vlp32c":     VLP32C,
}

// ParseProductID parses a CLI model token.
func ParseProductID(tok string) (ProductID, error) {
	if p, ok := productTokens[tok]; ok {
		return p, nil
	}
	return ProductUnknown, fmt.Errorf("%w: %q", ErrUnknownProduct, tok)
}

func (p ProductID) String() string {
	for tok, id := range productTokens {
		if id == p {
			return tok
		}
	}
	return "unknown"
}

// ReturnMode selects which echoes per firing the capture reports.
type ReturnMode uint8

const (
	ReturnUnknown ReturnMode = iota
	Strongest
	Last
	Dual
)

// ParseReturnMode parses a CLI return-mode token.
func ParseReturnMode(tok string) (ReturnMode, error) {
	switch tok {
	case "strongest":
		return Strongest, nil
	case "last":
		return Last, nil
	case "dual":
		return Dual, nil
	}
	return ReturnUnknown, fmt.Errorf("%w: %q", ErrUnknownReturnMode, tok)
}

func (m ReturnMode) String() string {
	switch m {
	case Strongest:
		return "strongest"
	case Last:
		return "last"
	case Dual:
		return "dual"
	}
	return "unknown"
}

// factoryByte is the return-mode identifier sensors stamp into every
// packet tail.
func (m ReturnMode) factoryByte() byte {
	switch m {
	case Strongest:
		return 0x37
	case Last:
		return 0x38
	default:
		return 0x39
	}
}

// Per-laser elevation angles in degrees, in firing order.
var (
	vlp16Elevations = [16]float64{
		-15, 1, -13, 3, -11, 5, -9, 7, -7, 9, -5, 11, -3, 13, -1, 15,
	}
	puckHiResElevations = [16]float64{
		-10, 0.667, -8.667, 2, -7.333, 3.333, -6, 4.667,
		-4.667, 6, -3.333, 7.333, -2, 8.667, -0.667, 10,
	}
	vlp32cElevations = [32]float64{
		-25, -1, -1.667, -15.639, -11.31, 0, -0.667, -8.843,
		-7.254, 0.333, -0.333, -6.148, -5.333, 1.333, 0.667, -4,
		-4.667, 1.667, 1, -3.667, -3.333, 3.333, 2.333, -2.667,
		-3, 7, 4.667, -2.333, -2, 15, 10.333, -1.333,
	}
	vlp32cAzimuthOffsets = [32]float64{
		1.4, -4.2, 1.4, -1.4, 1.4, -1.4, 4.2, -1.4,
		1.4, -4.2, 1.4, -1.4, 4.2, -1.4, 4.2, -1.4,
		1.4, -4.2, 1.4, -4.2, 4.2, -1.4, 1.4, -1.4,
		1.4, -1.4, 1.4, -4.2, 4.2, -1.4, 1.4, -1.4,
	}
)

// Timing constants in nanoseconds (VLP-16/VLP-32C firing cadence).
const (
	firingSequenceNS = 55296
	channelSlotNS    = 2304
)

// Config carries the decode parameters of one capture: the sensor model,
// the return mode and the precomputed per-laser calibration tables.
type Config struct {
	Model ProductID
	Mode  ReturnMode

	lasers             int
	distanceResolution float64
	azimuthOffsets     [32]float64
	cosElevation       [32]float64
	sinElevation       [32]float64
}

// NewConfig builds the decode configuration for a model/return-mode
// pair, mirroring the sensor product matrix.
func NewConfig(model ProductID, mode ReturnMode) (*Config, error) {
	if mode != Strongest && mode != Last && mode != Dual {
		return nil, fmt.Errorf("%w: mode %v", ErrUnknownReturnMode, mode)
	}

	cfg := &Config{Model: model, Mode: mode}
	var elevations []float64
	switch model {
	case VLP16, PuckLite:
		cfg.lasers = 16
		cfg.distanceResolution = 0.002
		elevations = vlp16Elevations[:]
	case PuckHiRes:
		cfg.lasers = 16
		cfg.distanceResolution = 0.002
		elevations = puckHiResElevations[:]
	case VLP32C:
		cfg.lasers = 32
		cfg.distanceResolution = 0.004
		elevations = vlp32cElevations[:]
		cfg.azimuthOffsets = vlp32cAzimuthOffsets
	default:
		return nil, fmt.Errorf("%w: model %v", ErrUnsupportedCombo, model)
	}

	for i, deg := range elevations {
		rad := deg * math.Pi / 180
		cfg.sinElevation[i], cfg.cosElevation[i] = math.Sincos(rad)
	}
	return cfg, nil
}
