package convert

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Summary tallies the outcome of a directory conversion. Per-file
// failures are reported here rather than aborting the batch.
type Summary struct {
	Succeeded int
	Failed    int
}

func (s Summary) Log() {
	log.Printf("batch conversion finished: %d succeeded, %d failed", s.Succeeded, s.Failed)
}

// ConvertDirectory converts every matching file in inputDir, writing
// results with the same base name into a freshly created outputDir.
// Files are converted concurrently; one bad file fails its own entry
// in the summary, never the batch.
func ConvertDirectory(inputDir, outputDir string, from, to Format, opts Options) (Summary, error) {
	if from == SensorCapture || to == SensorCapture {
		return Summary{}, fmt.Errorf("%w: sensor captures cannot be batch converted", ErrUnsupportedConversion)
	}
	if opts.windowed() {
		return Summary{}, fmt.Errorf("%w: frame windows apply only to sensor capture inputs", ErrUnsupportedConversion)
	}

	if err := os.Mkdir(outputDir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return Summary{}, fmt.Errorf("%w: %s", ErrDirectoryConflict, outputDir)
		}
		return Summary{}, err
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return Summary{}, err
	}

	var (
		mu      sync.Mutex
		summary Summary
		g       errgroup.Group
	)
	g.SetLimit(runtime.NumCPU())

	ext := from.Extension()
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ext) {
			continue
		}
		if !entry.Type().IsRegular() {
			log.Printf("skipping %s: not a regular file", filepath.Join(inputDir, name))
			continue
		}
		if from == GenericPCD && strings.HasSuffix(name, ".newslab.pcd") {
			continue
		}
		src := filepath.Join(inputDir, name)
		dst := filepath.Join(outputDir, strings.TrimSuffix(name, ext)+to.Extension())
		g.Go(func() error {
			err := convertFile(src, dst, from, opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("convert %s: %v", src, err)
				summary.Failed++
			} else {
				summary.Succeeded++
			}
			return nil
		})
	}

	// Tasks swallow their own errors into the summary.
	_ = g.Wait()
	return summary, nil
}
