// Package convert wires the per-format codecs into the conversion
// pipeline: format resolution, the pairwise conversion matrix, frame
// windowing for sensor captures and concurrent directory batches.
package convert

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrFormatAmbiguous       = errors.New("cannot determine file format")
	ErrUnknownFormat         = errors.New("unknown format token")
	ErrUnsupportedConversion = errors.New("unsupported conversion")
	ErrMissingRequiredOption = errors.New("missing required option")
	ErrFrameRangeInvalid     = errors.New("invalid frame range")
	ErrDirectoryConflict     = errors.New("output directory already exists")
)

// Format is the closed set of storage representations the tool converts
// between. FormatUnknown means "infer from the path".
type Format int

const (
	FormatUnknown Format = iota
	GenericPCD
	NewslabPCD
	SensorCapture
	RawBinary
)

var formatTokens = map[string]Format{
	"pcd.libpcl":    GenericPCD,
	"pcd.newslab":   NewslabPCD,
	"pcap.velodyne": SensorCapture,
	"raw.bin":       RawBinary,
}

// ParseFormat parses an explicit CLI format token.
func ParseFormat(tok string) (Format, error) {
	if f, ok := formatTokens[tok]; ok {
		return f, nil
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrUnknownFormat, tok)
}

func (f Format) String() string {
	for tok, ff := range formatTokens {
		if ff == f {
			return tok
		}
	}
	return "unknown"
}

// GuessFormat infers the format from the file name suffix. Raw binary
// has no recognized suffix and is never inferred; FormatUnknown means
// the caller must have an explicit override.
func GuessFormat(path string) Format {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".newslab.pcd"):
		return NewslabPCD
	case strings.HasSuffix(name, ".pcd"):
		return GenericPCD
	case strings.HasSuffix(name, ".pcap"):
		return SensorCapture
	}
	return FormatUnknown
}

// Extension is the file suffix used when naming outputs and enumerating
// batch directories.
func (f Format) Extension() string {
	switch f {
	case GenericPCD:
		return ".pcd"
	case NewslabPCD:
		return ".newslab.pcd"
	case SensorCapture:
		return ".pcap"
	case RawBinary:
		return ".bin"
	}
	return ""
}

// resolveFormat applies the explicit override or falls back to suffix
// inference.
func resolveFormat(path string, explicit Format, role string) (Format, error) {
	if explicit != FormatUnknown {
		return explicit, nil
	}
	f := GuessFormat(path)
	if f == FormatUnknown {
		return FormatUnknown, fmt.Errorf("%w: %s file %q has no recognized suffix", ErrFormatAmbiguous, role, path)
	}
	return f, nil
}
