package geom

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gopkg.in/yaml.v3"
)

var ErrMalformedTransformSpec = errors.New("malformed transform spec")

// rotationTolerance bounds how far a user-supplied matrix may drift from a
// proper rotation (det = +1, orthonormal columns) before it is rejected.
const rotationTolerance = 1e-6

// Transform is a rigid isometry p' = R*p + t. A nil *Transform is the
// identity and applies as an exact no-op. Transforms are immutable after
// construction and safe to share across goroutines.
type Transform struct {
	r [9]float64 // row-major rotation
	t [3]float64
}

// NewTransform validates the rotation matrix and builds a transform.
func NewTransform(rotation [9]float64, translation [3]float64) (*Transform, error) {
	if err := validateRotation(rotation); err != nil {
		return nil, err
	}
	return &Transform{r: rotation, t: translation}, nil
}

// Apply transforms a point in 64-bit arithmetic.
func (tr *Transform) Apply(x, y, z float64) (float64, float64, float64) {
	if tr == nil {
		return x, y, z
	}
	r, t := &tr.r, &tr.t
	wx := r[0]*x + r[1]*y + r[2]*z + t[0]
	wy := r[3]*x + r[4]*y + r[5]*z + t[1]
	wz := r[6]*x + r[7]*y + r[8]*z + t[2]
	return wx, wy, wz
}

// Apply32 transforms a point keeping 32-bit arithmetic, matching the
// precision of formats that store float32 coordinates.
func (tr *Transform) Apply32(x, y, z float32) (float32, float32, float32) {
	if tr == nil {
		return x, y, z
	}
	var r [9]float32
	for i, v := range tr.r {
		r[i] = float32(v)
	}
	tx, ty, tz := float32(tr.t[0]), float32(tr.t[1]), float32(tr.t[2])
	wx := r[0]*x + r[1]*y + r[2]*z + tx
	wy := r[3]*x + r[4]*y + r[5]*z + ty
	wz := r[6]*x + r[7]*y + r[8]*z + tz
	return wx, wy, wz
}

func validateRotation(r [9]float64) error {
	m := mat.NewDense(3, 3, append([]float64(nil), r[:]...))
	if d := mat.Det(m); math.Abs(d-1) > rotationTolerance {
		return fmt.Errorf("%w: rotation determinant %v, want +1", ErrMalformedTransformSpec, d)
	}
	var rtr mat.Dense
	rtr.Mul(m.T(), m)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(rtr.At(i, j)-want) > rotationTolerance {
				return fmt.Errorf("%w: rotation matrix is not orthonormal", ErrMalformedTransformSpec)
			}
		}
	}
	return nil
}

// The transform spec is an externally owned, versioned YAML schema. Exactly
// one rotation representation may be given; both rotation and translation
// default to identity when absent.
type transformSpec struct {
	Version     int           `yaml:"version"`
	Rotation    *rotationSpec `yaml:"rotation"`
	Translation []float64     `yaml:"translation"`
}

type rotationSpec struct {
	Quaternion *quaternionSpec `yaml:"quaternion"`
	EulerDeg   *eulerSpec      `yaml:"euler_deg"`
	Matrix     []float64       `yaml:"matrix"`
}

type quaternionSpec struct {
	W float64 `yaml:"w"`
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

type eulerSpec struct {
	Roll  float64 `yaml:"roll"`
	Pitch float64 `yaml:"pitch"`
	Yaw   float64 `yaml:"yaw"`
}

// ParseTransformSpec parses an inline transform spec blob.
func ParseTransformSpec(data []byte) (*Transform, error) {
	var spec transformSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTransformSpec, err)
	}
	if spec.Version != 1 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedTransformSpec, spec.Version)
	}

	rotation := identityRotation()
	if spec.Rotation != nil {
		var err error
		rotation, err = spec.Rotation.matrixForm()
		if err != nil {
			return nil, err
		}
	}

	var translation [3]float64
	switch len(spec.Translation) {
	case 0:
	case 3:
		copy(translation[:], spec.Translation)
	default:
		return nil, fmt.Errorf("%w: translation needs 3 components, got %d",
			ErrMalformedTransformSpec, len(spec.Translation))
	}

	return NewTransform(rotation, translation)
}

// LoadTransformSpec parses a transform spec file.
func LoadTransformSpec(path string) (*Transform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transform spec %s: %w", path, err)
	}
	tr, err := ParseTransformSpec(data)
	if err != nil {
		return nil, fmt.Errorf("transform spec %s: %w", path, err)
	}
	return tr, nil
}

func identityRotation() [9]float64 {
	return [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

func (rs *rotationSpec) matrixForm() ([9]float64, error) {
	given := 0
	if rs.Quaternion != nil {
		given++
	}
	if rs.EulerDeg != nil {
		given++
	}
	if len(rs.Matrix) > 0 {
		given++
	}
	if given > 1 {
		return [9]float64{}, fmt.Errorf("%w: rotation given in more than one form", ErrMalformedTransformSpec)
	}

	switch {
	case rs.Quaternion != nil:
		return rs.Quaternion.matrixForm()
	case rs.EulerDeg != nil:
		return rs.EulerDeg.matrixForm(), nil
	case len(rs.Matrix) > 0:
		if len(rs.Matrix) != 9 {
			return [9]float64{}, fmt.Errorf("%w: rotation matrix needs 9 entries, got %d",
				ErrMalformedTransformSpec, len(rs.Matrix))
		}
		var m [9]float64
		copy(m[:], rs.Matrix)
		return m, nil
	}
	return identityRotation(), nil
}

func (qs *quaternionSpec) matrixForm() ([9]float64, error) {
	q := quat.Number{Real: qs.W, Imag: qs.X, Jmag: qs.Y, Kmag: qs.Z}
	n := quat.Abs(q)
	if n < rotationTolerance {
		return [9]float64{}, fmt.Errorf("%w: zero-norm quaternion", ErrMalformedTransformSpec)
	}
	q = quat.Scale(1/n, q)

	// Columns of the rotation matrix are the rotated basis vectors.
	var m [9]float64
	basis := [3]quat.Number{
		{Imag: 1},
		{Jmag: 1},
		{Kmag: 1},
	}
	for col, e := range basis {
		v := quat.Mul(quat.Mul(q, e), quat.Conj(q))
		m[col] = v.Imag
		m[3+col] = v.Jmag
		m[6+col] = v.Kmag
	}
	return m, nil
}

func (es *eulerSpec) matrixForm() [9]float64 {
	roll := es.Roll * math.Pi / 180
	pitch := es.Pitch * math.Pi / 180
	yaw := es.Yaw * math.Pi / 180

	sr, cr := math.Sincos(roll)
	sp, cp := math.Sincos(pitch)
	sy, cy := math.Sincos(yaw)

	// Z-Y-X intrinsic convention: R = Rz(yaw) * Ry(pitch) * Rx(roll).
	return [9]float64{
		cy * cp, cy*sp*sr - sy*cr, cy*sp*cr + sy*sr,
		sy * cp, sy*sp*sr + cy*cr, sy*sp*cr - cy*sr,
		-sp, cp * sr, cp * cr,
	}
}
