package convert

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"pcdtool/pkg/geom"
	"pcdtool/pkg/pcd"
	"pcdtool/pkg/rawbin"
	"pcdtool/pkg/velodyne"
)

// errStopDecoding aborts the capture read loop once the frame window is
// exhausted; it never escapes captureToFiles.
var errStopDecoding = errors.New("frame window exhausted")

// captureToFiles decodes a sensor capture into one output file per
// frame and return stream, laid out as outDir/<stream>/<index>.<ext>.
func captureToFiles(inputPath, outDir string, to Format, opts Options) error {
	if opts.Model == velodyne.ProductUnknown || opts.Mode == velodyne.ReturnUnknown {
		return fmt.Errorf("%w: sensor captures need --velodyne-model and --velodyne-return-mode", ErrMissingRequiredOption)
	}
	cfg, err := velodyne.NewConfig(opts.Model, opts.Mode)
	if err != nil {
		return err
	}

	var window *Window
	if opts.windowed() {
		// Captures carry no frame index, so bound validation needs the
		// total count: one full decode pass before the extraction pass.
		if requiresFullScan(opts.Start, opts.End) {
			log.Printf("backward frame selector: counting frames in %s (full scan)", inputPath)
		} else {
			log.Printf("counting frames in %s", inputPath)
		}
		total, err := velodyne.CountFrames(inputPath, cfg)
		if err != nil {
			return err
		}
		w, err := ResolveWindow(opts.Start, opts.End, total)
		if err != nil {
			return err
		}
		window = &w
	}

	streams := captureStreams(opts.Mode)
	if err := makeOutputDirs(outDir, streams); err != nil {
		return err
	}

	written := 0
	err = velodyne.ReadFrames(inputPath, cfg, func(f velodyne.Frame) error {
		if window != nil {
			if f.Index >= window.End {
				return errStopDecoding
			}
			if !window.Contains(f.Index) {
				return nil
			}
		}
		log.Printf("converting frame %d", f.Index)
		for _, stream := range streams {
			points := f.Strongest
			if stream == "last" {
				points = f.Last
			}
			name := filepath.Join(outDir, stream, fmt.Sprintf("%06d%s", f.Index, to.Extension()))
			if err := writeFrame(name, to, points, opts.Transform); err != nil {
				return err
			}
		}
		written++
		return nil
	})
	if err != nil && !errors.Is(err, errStopDecoding) {
		return err
	}
	if window != nil && written < window.End-window.Start {
		return fmt.Errorf("%w: capture ended after %d of %d requested frames",
			ErrFrameRangeInvalid, written, window.End-window.Start)
	}
	return nil
}

func captureStreams(mode velodyne.ReturnMode) []string {
	switch mode {
	case velodyne.Last:
		return []string{"last"}
	case velodyne.Dual:
		return []string{"strongest", "last"}
	default:
		return []string{"strongest"}
	}
}

func makeOutputDirs(outDir string, streams []string) error {
	if err := os.Mkdir(outDir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrDirectoryConflict, outDir)
		}
		return err
	}
	for _, stream := range streams {
		if err := os.Mkdir(filepath.Join(outDir, stream), 0o755); err != nil {
			return err
		}
	}
	return nil
}

// writeFrame writes one frame's points to a single output file.
// Decoded points are 64-bit, so the transform applies at full width
// before narrowing to the storage format.
func writeFrame(path string, to Format, points []velodyne.Point, tr *geom.Transform) error {
	switch to {
	case RawBinary:
		w, err := rawbin.Create(path)
		if err != nil {
			return err
		}
		defer w.Close()
		for _, p := range points {
			x, y, z := tr.Apply(p.X, p.Y, p.Z)
			err := w.Push(rawbin.Point{
				X: float32(x), Y: float32(y), Z: float32(z),
				Intensity: float32(p.Intensity),
			})
			if err != nil {
				return err
			}
		}
		return w.Finish()

	default:
		h := pcd.Header{
			Schema:    pcd.XYZISchema(),
			Width:     len(points),
			Height:    1,
			Viewpoint: pcd.DefaultViewpoint,
			Points:    len(points),
			Data:      pcd.Binary,
		}
		w, err := pcd.Create(path, h)
		if err != nil {
			return err
		}
		defer w.Close()

		pos, err := h.Schema.Position()
		if err != nil {
			return err
		}
		intensity, err := h.Schema.Accessor("intensity")
		if err != nil {
			return err
		}
		row := make([]byte, h.Schema.Stride())
		for _, p := range points {
			x, y, z := tr.Apply(p.X, p.Y, p.Z)
			pos.Set(row, float64(float32(x)), float64(float32(y)), float64(float32(z)))
			intensity.PutFloat64(row, float64(p.Intensity))
			if err := w.PushRow(row); err != nil {
				return err
			}
		}
		return w.Finish()
	}
}
