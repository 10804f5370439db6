package pcd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/seqsense/pcgol/pc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Files produced by Writer must parse with the pcgol reader other tools
// in the fleet use.
func TestWriter_PcgolInterop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interop.pcd")
	h := Header{
		Schema:    XYZISchema(),
		Width:     3,
		Height:    1,
		Viewpoint: DefaultViewpoint,
		Points:    3,
		Data:      Binary,
	}
	writeTestFile(t, path, h, [][]byte{
		xyziRow(0, 0, 0, 0),
		xyziRow(1, 2, 3, 0.5),
		xyziRow(-1, -2, -3, 1),
	})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	cloud, err := pc.Unmarshal(f)
	require.NoError(t, err)
	assert.Equal(t, 3, cloud.Points)
	assert.Equal(t, 3, cloud.Width)
	assert.Equal(t, 1, cloud.Height)
	assert.Equal(t, []string{"x", "y", "z", "intensity"}, cloud.Fields)
}
