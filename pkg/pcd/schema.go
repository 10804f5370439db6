package pcd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidHeader       = errors.New("invalid pcd header")
	ErrUnsupportedVersion  = errors.New("unsupported pcd version")
	ErrUnsupportedDataKind = errors.New("unsupported pcd data kind")
	ErrUnsupportedField    = errors.New("unsupported pcd field encoding")
	ErrMissingField        = errors.New("missing required field")
	ErrMalformedData       = errors.New("malformed pcd data")
)

// Kind is the numeric encoding of one field element.
type Kind uint8

const (
	I8 Kind = iota
	I16
	I32
	U8
	U16
	U32
	U64
	F32
	F64
)

// Size returns the element width in bytes.
func (k Kind) Size() int {
	switch k {
	case I8, U8:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	default:
		return 8
	}
}

// TypeChar returns the PCD TYPE letter of the kind.
func (k Kind) TypeChar() string {
	switch k {
	case I8, I16, I32:
		return "I"
	case U8, U16, U32, U64:
		return "U"
	default:
		return "F"
	}
}

func (k Kind) String() string {
	return fmt.Sprintf("%s%d", k.TypeChar(), k.Size()*8)
}

func kindOf(typeChar string, size int) (Kind, error) {
	switch typeChar {
	case "I":
		switch size {
		case 1:
			return I8, nil
		case 2:
			return I16, nil
		case 4:
			return I32, nil
		}
	case "U":
		switch size {
		case 1:
			return U8, nil
		case 2:
			return U16, nil
		case 4:
			return U32, nil
		case 8:
			return U64, nil
		}
	case "F":
		switch size {
		case 4:
			return F32, nil
		case 8:
			return F64, nil
		}
	}
	return 0, fmt.Errorf("%w: TYPE %s SIZE %d", ErrUnsupportedField, typeChar, size)
}

// Field is one named column of a point record.
type Field struct {
	Name  string
	Kind  Kind
	Count int
}

// Schema is the ordered field layout of a PCD file.
type Schema []Field

// Validate checks the schema invariants: at least one field, unique
// names, positive counts.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: no fields", ErrInvalidHeader)
	}
	seen := make(map[string]struct{}, len(s))
	for _, f := range s {
		if f.Name == "" {
			return fmt.Errorf("%w: unnamed field", ErrInvalidHeader)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidHeader, f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.Count < 1 {
			return fmt.Errorf("%w: field %q has count %d", ErrInvalidHeader, f.Name, f.Count)
		}
	}
	return nil
}

// Stride returns the binary record size in bytes.
func (s Schema) Stride() int {
	var n int
	for _, f := range s {
		n += f.Kind.Size() * f.Count
	}
	return n
}

// elements returns the total number of scalar values per record.
func (s Schema) elements() int {
	var n int
	for _, f := range s {
		n += f.Count
	}
	return n
}

// Accessor reads and writes one scalar field inside a raw binary record.
type Accessor struct {
	offset int
	kind   Kind
}

// Accessor locates the named field. Only scalar (count = 1) fields are
// addressable; multi-count fields can be copied but not interpreted.
func (s Schema) Accessor(name string) (Accessor, error) {
	offset := 0
	for _, f := range s {
		if f.Name == name {
			if f.Count != 1 {
				return Accessor{}, fmt.Errorf("%w: field %q has count %d, want 1",
					ErrUnsupportedField, name, f.Count)
			}
			return Accessor{offset: offset, kind: f.Kind}, nil
		}
		offset += f.Kind.Size() * f.Count
	}
	return Accessor{}, fmt.Errorf("%w: %q", ErrMissingField, name)
}

// Float64 decodes the field value from a raw record.
func (a Accessor) Float64(row []byte) float64 {
	b := row[a.offset:]
	switch a.kind {
	case I8:
		return float64(int8(b[0]))
	case I16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case I32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case U8:
		return float64(b[0])
	case U16:
		return float64(binary.LittleEndian.Uint16(b))
	case U32:
		return float64(binary.LittleEndian.Uint32(b))
	case U64:
		return float64(binary.LittleEndian.Uint64(b))
	case F32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	default:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
}

// PutFloat64 encodes the value into a raw record using the field's kind.
func (a Accessor) PutFloat64(row []byte, v float64) {
	b := row[a.offset:]
	switch a.kind {
	case I8:
		b[0] = byte(int8(v))
	case I16:
		binary.LittleEndian.PutUint16(b, uint16(int16(v)))
	case I32:
		binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	case U8:
		b[0] = byte(uint8(v))
	case U16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case U32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case U64:
		binary.LittleEndian.PutUint64(b, uint64(v))
	case F32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	default:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	}
}

// Uint64 decodes an unsigned field without a float64 round trip.
func (a Accessor) Uint64(row []byte) uint64 {
	if a.kind == U64 {
		return binary.LittleEndian.Uint64(row[a.offset:])
	}
	return uint64(a.Float64(row))
}

// PutUint64 encodes an unsigned value without a float64 round trip.
func (a Accessor) PutUint64(row []byte, v uint64) {
	if a.kind == U64 {
		binary.LittleEndian.PutUint64(row[a.offset:], v)
		return
	}
	a.PutFloat64(row, float64(v))
}

// Kind returns the element kind the accessor decodes.
func (a Accessor) Kind() Kind {
	return a.kind
}

// Position bundles the x/y/z accessors a point's location is read from.
type Position struct {
	X, Y, Z Accessor
}

// Position resolves the required scalar x, y and z fields.
func (s Schema) Position() (Position, error) {
	var p Position
	var err error
	if p.X, err = s.Accessor("x"); err != nil {
		return Position{}, err
	}
	if p.Y, err = s.Accessor("y"); err != nil {
		return Position{}, err
	}
	if p.Z, err = s.Accessor("z"); err != nil {
		return Position{}, err
	}
	return p, nil
}

// Get decodes the point location from a raw record.
func (p Position) Get(row []byte) (x, y, z float64) {
	return p.X.Float64(row), p.Y.Float64(row), p.Z.Float64(row)
}

// Set encodes the point location into a raw record.
func (p Position) Set(row []byte, x, y, z float64) {
	p.X.PutFloat64(row, x)
	p.Y.PutFloat64(row, y)
	p.Z.PutFloat64(row, z)
}
