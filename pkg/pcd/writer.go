package pcd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Writer streams records into a PCD file. The full header, including the
// point count, must be known at creation time. Finish is the one-shot
// finalizer; Close is the error-path backstop that releases the file
// without promising a well-formed result.
type Writer struct {
	f      *os.File
	bw     *bufio.Writer
	h      Header
	pushed int
	done   bool
}

// Create creates the output file and writes the header.
func Create(path string, h Header) (*Writer, error) {
	if err := h.Schema.Validate(); err != nil {
		return nil, err
	}
	if h.Data != Ascii && h.Data != Binary {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDataKind, h.Data)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriter(f)
	if _, err := bw.Write(h.Encode()); err != nil {
		f.Close()
		return nil, err
	}
	return &Writer{f: f, bw: bw, h: h}, nil
}

// Header returns the header the writer was created with.
func (w *Writer) Header() Header {
	return w.h
}

// PushRow appends one record given as a raw binary row in the writer's
// schema layout.
func (w *Writer) PushRow(row []byte) error {
	if len(row) != w.h.Schema.Stride() {
		return fmt.Errorf("%w: record is %d bytes, schema stride is %d",
			ErrMalformedData, len(row), w.h.Schema.Stride())
	}
	switch w.h.Data {
	case Binary:
		if _, err := w.bw.Write(row); err != nil {
			return err
		}
	case Ascii:
		if err := w.writeAsciiRow(row); err != nil {
			return err
		}
	}
	w.pushed++
	return nil
}

func (w *Writer) writeAsciiRow(row []byte) error {
	tokens := make([]string, 0, w.h.Schema.elements())
	offset := 0
	for _, f := range w.h.Schema {
		for c := 0; c < f.Count; c++ {
			a := Accessor{offset: offset, kind: f.Kind}
			var tok string
			switch f.Kind.TypeChar() {
			case "F":
				tok = strconv.FormatFloat(a.Float64(row), 'g', -1, f.Kind.Size()*8)
			case "U":
				tok = strconv.FormatUint(a.Uint64(row), 10)
			default:
				tok = strconv.FormatInt(int64(a.Float64(row)), 10)
			}
			tokens = append(tokens, tok)
			offset += f.Kind.Size()
		}
	}
	_, err := w.bw.WriteString(strings.Join(tokens, " ") + "\n")
	return err
}

// Finish flushes and closes the file. It fails when the number of pushed
// records does not match the declared point count, since the header was
// already committed.
func (w *Writer) Finish() error {
	if w.done {
		return nil
	}
	w.done = true
	if w.pushed != w.h.Points {
		w.f.Close()
		return fmt.Errorf("%w: %d records pushed, header declares %d",
			ErrMalformedData, w.pushed, w.h.Points)
	}
	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// Close releases the file. It is a no-op after a successful Finish and
// safe to defer alongside it.
func (w *Writer) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	return w.f.Close()
}
