package pcd

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DataKind is the PCD DATA storage mode.
type DataKind string

const (
	Ascii  DataKind = "ascii"
	Binary DataKind = "binary"
)

// Header is the parsed PCD v0.7 preamble.
type Header struct {
	Schema    Schema
	Width     int
	Height    int
	Viewpoint [7]float32
	Points    int
	Data      DataKind
}

// DefaultViewpoint is the identity viewpoint written when no source
// header supplies one.
var DefaultViewpoint = [7]float32{0, 0, 0, 1, 0, 0, 0}

// headerLines is the number of header lines following VERSION.
const headerLines = 9

// ReadHeader parses the PCD preamble up to and including the DATA line.
// Comment lines starting with '#' are skipped.
func ReadHeader(br *bufio.Reader) (Header, error) {
	version, err := readHeaderLine(br)
	if err != nil {
		return Header{}, err
	}
	if !strings.HasPrefix(version, "VERSION 0.7") {
		return Header{}, fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}

	entries := make(map[string][]string, headerLines)
	for i := 0; i < headerLines; i++ {
		line, err := readHeaderLine(br)
		if err != nil {
			return Header{}, err
		}
		parts := strings.Fields(line)
		if len(parts) < 1 {
			return Header{}, fmt.Errorf("%w: empty header line", ErrInvalidHeader)
		}
		entries[parts[0]] = parts[1:]
	}

	var h Header

	names := entries["FIELDS"]
	sizes, err := intEntries(entries, "SIZE")
	if err != nil {
		return Header{}, err
	}
	types := entries["TYPE"]
	counts, err := intEntries(entries, "COUNT")
	if err != nil {
		return Header{}, err
	}
	if len(names) == 0 || len(sizes) != len(names) || len(types) != len(names) || len(counts) != len(names) {
		return Header{}, fmt.Errorf("%w: FIELDS/SIZE/TYPE/COUNT lengths differ", ErrInvalidHeader)
	}

	h.Schema = make(Schema, len(names))
	for i, name := range names {
		kind, err := kindOf(types[i], sizes[i])
		if err != nil {
			return Header{}, fmt.Errorf("field %q: %w", name, err)
		}
		h.Schema[i] = Field{Name: name, Kind: kind, Count: counts[i]}
	}
	if err := h.Schema.Validate(); err != nil {
		return Header{}, err
	}

	if h.Width, err = intEntry(entries, "WIDTH"); err != nil {
		return Header{}, err
	}
	if h.Height, err = intEntry(entries, "HEIGHT"); err != nil {
		return Header{}, err
	}
	if h.Points, err = intEntry(entries, "POINTS"); err != nil {
		return Header{}, err
	}
	if h.Width*h.Height != h.Points {
		return Header{}, fmt.Errorf("%w: WIDTH %d * HEIGHT %d != POINTS %d",
			ErrInvalidHeader, h.Width, h.Height, h.Points)
	}

	vp := entries["VIEWPOINT"]
	if len(vp) != 7 {
		return Header{}, fmt.Errorf("%w: VIEWPOINT needs 7 values, got %d", ErrInvalidHeader, len(vp))
	}
	for i, v := range vp {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return Header{}, fmt.Errorf("%w: VIEWPOINT value %q", ErrInvalidHeader, v)
		}
		h.Viewpoint[i] = float32(f)
	}

	data := entries["DATA"]
	if len(data) != 1 {
		return Header{}, fmt.Errorf("%w: DATA line", ErrInvalidHeader)
	}
	switch kind := DataKind(strings.ToLower(data[0])); kind {
	case Ascii, Binary:
		h.Data = kind
	default:
		return Header{}, fmt.Errorf("%w: %q", ErrUnsupportedDataKind, data[0])
	}

	return h, nil
}

func readHeaderLine(br *bufio.Reader) (string, error) {
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return "", fmt.Errorf("%w: truncated header", ErrInvalidHeader)
			}
			return "", err
		}
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, "#") {
			continue
		}
		return line, nil
	}
}

func intEntries(entries map[string][]string, key string) ([]int, error) {
	vals := make([]int, 0, len(entries[key]))
	for _, v := range entries[key] {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s value %q", ErrInvalidHeader, key, v)
		}
		vals = append(vals, n)
	}
	return vals, nil
}

func intEntry(entries map[string][]string, key string) (int, error) {
	if len(entries[key]) != 1 {
		return 0, fmt.Errorf("%w: %s line", ErrInvalidHeader, key)
	}
	n, err := strconv.Atoi(entries[key][0])
	if err != nil {
		return 0, fmt.Errorf("%w: %s value %q", ErrInvalidHeader, key, entries[key][0])
	}
	return n, nil
}

// Encode serializes the header preamble.
func (h Header) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString("# .PCD v0.7 - Point Cloud Data file format\n")
	buf.WriteString("VERSION 0.7\n")

	names := make([]string, len(h.Schema))
	sizes := make([]string, len(h.Schema))
	types := make([]string, len(h.Schema))
	counts := make([]string, len(h.Schema))
	for i, f := range h.Schema {
		names[i] = f.Name
		sizes[i] = strconv.Itoa(f.Kind.Size())
		types[i] = f.Kind.TypeChar()
		counts[i] = strconv.Itoa(f.Count)
	}
	fmt.Fprintf(&buf, "FIELDS %s\n", strings.Join(names, " "))
	fmt.Fprintf(&buf, "SIZE %s\n", strings.Join(sizes, " "))
	fmt.Fprintf(&buf, "TYPE %s\n", strings.Join(types, " "))
	fmt.Fprintf(&buf, "COUNT %s\n", strings.Join(counts, " "))
	fmt.Fprintf(&buf, "WIDTH %d\n", h.Width)
	fmt.Fprintf(&buf, "HEIGHT %d\n", h.Height)

	vp := make([]string, len(h.Viewpoint))
	for i, v := range h.Viewpoint {
		vp[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	fmt.Fprintf(&buf, "VIEWPOINT %s\n", strings.Join(vp, " "))
	fmt.Fprintf(&buf, "POINTS %d\n", h.Points)
	fmt.Fprintf(&buf, "DATA %s\n", h.Data)
	return buf.Bytes()
}
