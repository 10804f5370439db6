package pcd

import "fmt"

// NewslabSchema is the field layout of the newslab PCD variant: 64-bit
// cartesian coordinates plus the spherical projection of each point.
func NewslabSchema() Schema {
	return Schema{
		{Name: "x", Kind: F64, Count: 1},
		{Name: "y", Kind: F64, Count: 1},
		{Name: "z", Kind: F64, Count: 1},
		{Name: "distance", Kind: F64, Count: 1},
		{Name: "azimuthal_angle", Kind: F64, Count: 1},
		{Name: "vertical_angle", Kind: F64, Count: 1},
		{Name: "intensity", Kind: F32, Count: 1},
		{Name: "laser_id", Kind: U32, Count: 1},
		{Name: "timestamp_ns", Kind: U64, Count: 1},
	}
}

// LibpclSchema is the plain libpcl point layout used when re-deriving a
// generic file from a newslab one.
func LibpclSchema() Schema {
	return Schema{
		{Name: "x", Kind: F32, Count: 1},
		{Name: "y", Kind: F32, Count: 1},
		{Name: "z", Kind: F32, Count: 1},
		{Name: "rgb", Kind: U32, Count: 1},
	}
}

// XYZISchema is the layout written for decoded sensor captures and raw
// binary sources, which carry a real per-point intensity.
func XYZISchema() Schema {
	return Schema{
		{Name: "x", Kind: F32, Count: 1},
		{Name: "y", Kind: F32, Count: 1},
		{Name: "z", Kind: F32, Count: 1},
		{Name: "intensity", Kind: F32, Count: 1},
	}
}

// NewslabPoint is one decoded newslab record.
type NewslabPoint struct {
	X, Y, Z     float64
	Distance    float64
	Azimuth     float64
	Vertical    float64
	Intensity   float32
	LaserID     uint32
	TimestampNS uint64
}

// NewslabCodec encodes and decodes newslab records against a file's
// schema, which must carry the newslab fields (in any order).
type NewslabCodec struct {
	pos                           Position
	distance, azimuth, vertical   Accessor
	intensity, laserID, timestamp Accessor
	stride                        int
}

// NewNewslabCodec resolves the newslab fields in the schema.
func NewNewslabCodec(s Schema) (*NewslabCodec, error) {
	c := &NewslabCodec{stride: s.Stride()}
	var err error
	if c.pos, err = s.Position(); err != nil {
		return nil, err
	}
	fields := []struct {
		name string
		dst  *Accessor
	}{
		{"distance", &c.distance},
		{"azimuthal_angle", &c.azimuth},
		{"vertical_angle", &c.vertical},
		{"intensity", &c.intensity},
		{"laser_id", &c.laserID},
		{"timestamp_ns", &c.timestamp},
	}
	for _, f := range fields {
		if *f.dst, err = s.Accessor(f.name); err != nil {
			return nil, fmt.Errorf("newslab schema: %w", err)
		}
	}
	return c, nil
}

// Decode reads a newslab point from a raw record.
func (c *NewslabCodec) Decode(row []byte) NewslabPoint {
	x, y, z := c.pos.Get(row)
	return NewslabPoint{
		X: x, Y: y, Z: z,
		Distance:    c.distance.Float64(row),
		Azimuth:     c.azimuth.Float64(row),
		Vertical:    c.vertical.Float64(row),
		Intensity:   float32(c.intensity.Float64(row)),
		LaserID:     uint32(c.laserID.Uint64(row)),
		TimestampNS: c.timestamp.Uint64(row),
	}
}

// Encode writes a newslab point into the row buffer.
func (c *NewslabCodec) Encode(row []byte, p NewslabPoint) {
	c.pos.Set(row, p.X, p.Y, p.Z)
	c.distance.PutFloat64(row, p.Distance)
	c.azimuth.PutFloat64(row, p.Azimuth)
	c.vertical.PutFloat64(row, p.Vertical)
	c.intensity.PutFloat64(row, float64(p.Intensity))
	c.laserID.PutUint64(row, uint64(p.LaserID))
	c.timestamp.PutUint64(row, p.TimestampNS)
}

// Stride returns the record size the codec was built for.
func (c *NewslabCodec) Stride() int {
	return c.stride
}
