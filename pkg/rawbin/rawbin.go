// Package rawbin reads and writes the raw binary point dump format: a
// flat sequence of 16-byte little-endian records holding x, y, z and
// intensity as float32 each, with no header or framing.
package rawbin

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// RecordSize is the fixed byte length of one point record.
const RecordSize = 16

// ErrTruncatedRecord reports a file whose length is not a multiple of
// the record size. A partial trailing record is corruption, not EOF.
var ErrTruncatedRecord = errors.New("truncated raw binary record")

// Point is one raw binary record.
type Point struct {
	X, Y, Z   float32
	Intensity float32
}

// Reader streams points from a raw binary file.
type Reader struct {
	f   *os.File
	br  *bufio.Reader
	buf [RecordSize]byte
}

// Open opens a raw binary file for reading.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{f: f, br: bufio.NewReader(f)}, nil
}

// Next returns the next point, or io.EOF at a clean record boundary.
func (r *Reader) Next() (Point, error) {
	n, err := io.ReadFull(r.br, r.buf[:])
	if err != nil {
		if err == io.EOF {
			return Point{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Point{}, fmt.Errorf("%w: %d leftover bytes", ErrTruncatedRecord, n)
		}
		return Point{}, err
	}
	return Point{
		X:         math.Float32frombits(binary.LittleEndian.Uint32(r.buf[0:])),
		Y:         math.Float32frombits(binary.LittleEndian.Uint32(r.buf[4:])),
		Z:         math.Float32frombits(binary.LittleEndian.Uint32(r.buf[8:])),
		Intensity: math.Float32frombits(binary.LittleEndian.Uint32(r.buf[12:])),
	}, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

// PointCount returns the number of records in the file, failing when the
// size does not fall on a record boundary.
func PointCount(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if rem := info.Size() % RecordSize; rem != 0 {
		return 0, fmt.Errorf("%s: %w: %d leftover bytes", path, ErrTruncatedRecord, rem)
	}
	return int(info.Size() / RecordSize), nil
}

// Writer streams points into a raw binary file. Finish is the one-shot
// finalizer; Close is the error-path backstop.
type Writer struct {
	f    *os.File
	bw   *bufio.Writer
	done bool
}

// Create creates the output file.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Writer{f: f, bw: bufio.NewWriter(f)}, nil
}

// Push appends one point record.
func (w *Writer) Push(p Point) error {
	var buf [RecordSize]byte
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(p.X))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(p.Y))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(p.Z))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(p.Intensity))
	_, err := w.bw.Write(buf[:])
	return err
}

// Finish flushes and closes the file.
func (w *Writer) Finish() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// Close releases the file without flushing buffered records.
func (w *Writer) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	return w.f.Close()
}
