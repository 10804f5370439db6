package convert

import (
	"fmt"
	"io"
	"os"

	"pcdtool/pkg/geom"
	"pcdtool/pkg/pcd"
	"pcdtool/pkg/rawbin"
	"pcdtool/pkg/velodyne"
)

// Options carries the per-invocation conversion configuration. The zero
// value infers both formats from the path suffixes and applies no
// transform or frame window.
type Options struct {
	From, To  Format
	Transform *geom.Transform
	Start     *StartBound
	End       *EndBound
	Model     velodyne.ProductID
	Mode      velodyne.ReturnMode
}

func (o Options) windowed() bool {
	return o.Start != nil || o.End != nil
}

// Convert converts inputPath into outputPath according to the format
// pair support matrix. Directory inputs fan out into a concurrent batch
// for file-to-file pairs.
func Convert(inputPath, outputPath string, opts Options) error {
	from, err := resolveFormat(inputPath, opts.From, "input")
	if err != nil {
		return err
	}

	info, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("input %s: %w", inputPath, err)
	}
	if info.IsDir() {
		if from == SensorCapture {
			return fmt.Errorf("%w: directory batches do not apply to sensor captures", ErrUnsupportedConversion)
		}
		to, err := resolveFormat(outputPath, opts.To, "output")
		if err != nil {
			return err
		}
		summary, err := ConvertDirectory(inputPath, outputPath, from, to, opts)
		if err != nil {
			return err
		}
		summary.Log()
		return nil
	}

	return convertFile(inputPath, outputPath, from, opts)
}

// convertFile converts a single file; from has already been resolved.
func convertFile(inputPath, outputPath string, from Format, opts Options) error {
	to, err := resolveFormat(outputPath, opts.To, "output")
	if err != nil {
		return err
	}

	if opts.windowed() && from != SensorCapture {
		return fmt.Errorf("%w: frame windows apply only to sensor capture inputs", ErrUnsupportedConversion)
	}

	switch {
	case from == to && (from == GenericPCD || from == NewslabPCD):
		if opts.Transform == nil {
			return copyFile(inputPath, outputPath)
		}
		return transformPCD(inputPath, outputPath, from, opts.Transform)

	case from == to:
		// Sensor captures and raw dumps are copy-only on the identity edge.
		if opts.Transform != nil || opts.windowed() {
			return fmt.Errorf("%w: %v files only support plain copies, not transforms or windows",
				ErrUnsupportedConversion, from)
		}
		return copyFile(inputPath, outputPath)

	case from == GenericPCD && to == NewslabPCD:
		return genericToNewslab(inputPath, outputPath, opts.Transform)

	case from == NewslabPCD && to == GenericPCD:
		return newslabToGeneric(inputPath, outputPath, opts.Transform)

	case (from == GenericPCD || from == NewslabPCD) && to == RawBinary:
		return pcdToRaw(inputPath, outputPath, opts.Transform)

	case from == RawBinary && to == GenericPCD:
		return rawToGeneric(inputPath, outputPath, opts.Transform)

	case from == SensorCapture && (to == GenericPCD || to == RawBinary):
		return captureToFiles(inputPath, outputPath, to, opts)
	}

	return fmt.Errorf("%w: %v -> %v", ErrUnsupportedConversion, from, to)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}

// transformPCD rewrites a PCD file in place of its own format, applying
// the transform to x/y/z and leaving every other field byte-identical.
// Newslab files additionally get their spherical fields re-derived from
// the moved location.
func transformPCD(src, dst string, format Format, tr *geom.Transform) error {
	r, err := pcd.Open(src)
	if err != nil {
		return err
	}
	defer r.Close()

	h := r.Header()
	w, err := pcd.Create(dst, h)
	if err != nil {
		return err
	}
	defer w.Close()

	pos, err := h.Schema.Position()
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	var codec *pcd.NewslabCodec
	if format == NewslabPCD {
		if codec, err = pcd.NewNewslabCodec(h.Schema); err != nil {
			return fmt.Errorf("%s: %w", src, err)
		}
	}

	wide := pos.X.Kind() == pcd.F64

	for {
		row, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		x, y, z := pos.Get(row)
		if wide {
			x, y, z = tr.Apply(x, y, z)
		} else {
			x32, y32, z32 := tr.Apply32(float32(x), float32(y), float32(z))
			x, y, z = float64(x32), float64(y32), float64(z32)
		}
		pos.Set(row, x, y, z)

		if codec != nil {
			p := codec.Decode(row)
			s := geom.Project(p.X, p.Y, p.Z)
			p.Distance, p.Azimuth, p.Vertical = s.Distance, s.Azimuth, s.Vertical
			codec.Encode(row, p)
		}

		if err := w.PushRow(row); err != nil {
			return err
		}
	}
	return w.Finish()
}

// genericToNewslab projects each generic point into the newslab layout.
// Intensity, laser and timestamp have no generic-side source and are
// written as zero.
func genericToNewslab(src, dst string, tr *geom.Transform) error {
	r, err := pcd.Open(src)
	if err != nil {
		return err
	}
	defer r.Close()

	h := r.Header()
	pos, err := h.Schema.Position()
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}

	outHeader := pcd.Header{
		Schema:    pcd.NewslabSchema(),
		Width:     h.Width,
		Height:    h.Height,
		Viewpoint: h.Viewpoint,
		Points:    h.Points,
		Data:      h.Data,
	}
	w, err := pcd.Create(dst, outHeader)
	if err != nil {
		return err
	}
	defer w.Close()

	codec, err := pcd.NewNewslabCodec(outHeader.Schema)
	if err != nil {
		return err
	}
	row := make([]byte, codec.Stride())
	wide := pos.X.Kind() == pcd.F64

	for {
		srcRow, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		x, y, z := pos.Get(srcRow)
		if wide {
			x, y, z = tr.Apply(x, y, z)
		} else {
			x32, y32, z32 := tr.Apply32(float32(x), float32(y), float32(z))
			x, y, z = float64(x32), float64(y32), float64(z32)
		}

		s := geom.Project(x, y, z)
		codec.Encode(row, pcd.NewslabPoint{
			X: x, Y: y, Z: z,
			Distance: s.Distance,
			Azimuth:  s.Azimuth,
			Vertical: s.Vertical,
		})
		if err := w.PushRow(row); err != nil {
			return err
		}
	}
	return w.Finish()
}

// newslabToGeneric re-derives a generic file from the stored cartesian
// coordinates, discarding the spherical fields.
func newslabToGeneric(src, dst string, tr *geom.Transform) error {
	r, err := pcd.Open(src)
	if err != nil {
		return err
	}
	defer r.Close()

	h := r.Header()
	pos, err := h.Schema.Position()
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}

	outHeader := pcd.Header{
		Schema:    pcd.LibpclSchema(),
		Width:     h.Width,
		Height:    h.Height,
		Viewpoint: h.Viewpoint,
		Points:    h.Points,
		Data:      h.Data,
	}
	w, err := pcd.Create(dst, outHeader)
	if err != nil {
		return err
	}
	defer w.Close()

	outPos, err := outHeader.Schema.Position()
	if err != nil {
		return err
	}
	row := make([]byte, outHeader.Schema.Stride())

	for {
		srcRow, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		x, y, z := tr.Apply(pos.Get(srcRow))
		outPos.Set(row, x, y, z)
		if err := w.PushRow(row); err != nil {
			return err
		}
	}
	return w.Finish()
}

// pcdToRaw strips either PCD variant down to x/y/z records with zero
// intensity.
func pcdToRaw(src, dst string, tr *geom.Transform) error {
	r, err := pcd.Open(src)
	if err != nil {
		return err
	}
	defer r.Close()

	pos, err := r.Header().Schema.Position()
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	wide := pos.X.Kind() == pcd.F64

	w, err := rawbin.Create(dst)
	if err != nil {
		return err
	}
	defer w.Close()

	for {
		row, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		x, y, z := pos.Get(row)
		if wide {
			x, y, z = tr.Apply(x, y, z)
		} else {
			x32, y32, z32 := tr.Apply32(float32(x), float32(y), float32(z))
			x, y, z = float64(x32), float64(y32), float64(z32)
		}
		if err := w.Push(rawbin.Point{X: float32(x), Y: float32(y), Z: float32(z)}); err != nil {
			return err
		}
	}
	return w.Finish()
}

// rawToGeneric decodes a raw dump into a fresh x/y/z/intensity PCD. The
// point count comes from the file size, which also rejects truncated
// dumps before any output is created.
func rawToGeneric(src, dst string, tr *geom.Transform) error {
	count, err := rawbin.PointCount(src)
	if err != nil {
		return err
	}

	r, err := rawbin.Open(src)
	if err != nil {
		return err
	}
	defer r.Close()

	outHeader := pcd.Header{
		Schema:    pcd.XYZISchema(),
		Width:     count,
		Height:    1,
		Viewpoint: pcd.DefaultViewpoint,
		Points:    count,
		Data:      pcd.Binary,
	}
	w, err := pcd.Create(dst, outHeader)
	if err != nil {
		return err
	}
	defer w.Close()

	pos, err := outHeader.Schema.Position()
	if err != nil {
		return err
	}
	intensity, err := outHeader.Schema.Accessor("intensity")
	if err != nil {
		return err
	}
	row := make([]byte, outHeader.Schema.Stride())

	for {
		p, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%s: %w", src, err)
		}

		x, y, z := tr.Apply32(p.X, p.Y, p.Z)
		pos.Set(row, float64(x), float64(y), float64(z))
		intensity.PutFloat64(row, float64(p.Intensity))
		if err := w.PushRow(row); err != nil {
			return err
		}
	}
	return w.Finish()
}
