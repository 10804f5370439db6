package pcd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Reader streams records from a PCD file. Records are surfaced as raw
// little-endian rows in the file's schema layout so that fields the
// caller does not know about survive a rewrite untouched; ascii input
// is packed into the same binary layout on the fly.
type Reader struct {
	f    *os.File
	br   *bufio.Reader
	h    Header
	row  []byte
	read int
}

// Open opens a PCD file and parses its header.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(f)
	h, err := ReadHeader(br)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Reader{
		f:   f,
		br:  br,
		h:   h,
		row: make([]byte, h.Schema.Stride()),
	}, nil
}

// Header returns the parsed file header.
func (r *Reader) Header() Header {
	return r.h
}

// Next returns the next record. The returned slice aliases an internal
// buffer and is only valid until the following call. io.EOF signals the
// end of the declared point count.
func (r *Reader) Next() ([]byte, error) {
	if r.read >= r.h.Points {
		return nil, io.EOF
	}
	switch r.h.Data {
	case Binary:
		if _, err := io.ReadFull(r.br, r.row); err != nil {
			if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: %d of %d points read", ErrMalformedData, r.read, r.h.Points)
			}
			return nil, err
		}
	case Ascii:
		if err := r.nextAsciiRow(); err != nil {
			return nil, err
		}
	}
	r.read++
	return r.row, nil
}

func (r *Reader) nextAsciiRow() error {
	line, err := r.br.ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return fmt.Errorf("%w: %d of %d points read", ErrMalformedData, r.read, r.h.Points)
	}

	tokens := strings.Fields(line)
	if len(tokens) != r.h.Schema.elements() {
		return fmt.Errorf("%w: record has %d values, schema has %d",
			ErrMalformedData, len(tokens), r.h.Schema.elements())
	}

	i := 0
	offset := 0
	for _, f := range r.h.Schema {
		for c := 0; c < f.Count; c++ {
			a := Accessor{offset: offset, kind: f.Kind}
			if f.Kind == U64 {
				// 64-bit timestamps do not survive a float64 round trip;
				// keep them integral.
				v, err := strconv.ParseUint(tokens[i], 10, 64)
				if err != nil {
					return fmt.Errorf("%w: field %q value %q", ErrMalformedData, f.Name, tokens[i])
				}
				a.PutUint64(r.row, v)
			} else {
				v, err := parseAsciiValue(tokens[i], f.Kind)
				if err != nil {
					return fmt.Errorf("%w: field %q value %q", ErrMalformedData, f.Name, tokens[i])
				}
				a.PutFloat64(r.row, v)
			}
			i++
			offset += f.Kind.Size()
		}
	}
	return nil
}

func parseAsciiValue(tok string, k Kind) (float64, error) {
	switch k.TypeChar() {
	case "U":
		v, err := strconv.ParseUint(tok, 10, 64)
		if err != nil {
			// some writers emit unsigned fields as floats; accept those
			f, ferr := strconv.ParseFloat(tok, 64)
			if ferr != nil {
				return 0, err
			}
			return f, nil
		}
		return float64(v), nil
	case "I":
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return 0, err
		}
		return float64(v), nil
	default:
		return strconv.ParseFloat(tok, 64)
	}
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}
