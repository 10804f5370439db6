package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStartBound(t *testing.T) {
	b, err := ParseStartBound("")
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = ParseStartBound("3")
	require.NoError(t, err)
	assert.Equal(t, &StartBound{N: 3}, b)

	b, err = ParseStartBound("-10")
	require.NoError(t, err)
	assert.Equal(t, &StartBound{N: 10, Backward: true}, b)

	for _, bad := range []string{"0", "-0", "x", "+3", "1.5", "--3", "-+3"} {
		_, err := ParseStartBound(bad)
		assert.ErrorIs(t, err, ErrFrameRangeInvalid, bad)
	}
}

func TestParseEndBound(t *testing.T) {
	b, err := ParseEndBound("")
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = ParseEndBound("7")
	require.NoError(t, err)
	assert.Equal(t, &EndBound{N: 7}, b)

	b, err = ParseEndBound("-2")
	require.NoError(t, err)
	assert.Equal(t, &EndBound{N: 2, Backward: true}, b)

	b, err = ParseEndBound("+5")
	require.NoError(t, err)
	assert.Equal(t, &EndBound{N: 5, Relative: true}, b)

	for _, bad := range []string{"0", "+0", "-0", "five", "++3", "+-3", "-+3"} {
		_, err := ParseEndBound(bad)
		assert.ErrorIs(t, err, ErrFrameRangeInvalid, bad)
	}
}

func TestResolveWindow(t *testing.T) {
	const total = 100

	tests := []struct {
		name  string
		start *StartBound
		end   *EndBound
		want  Window
	}{
		{"defaults", nil, nil, Window{0, total}},
		{"full forward", &StartBound{N: 1}, &EndBound{N: 100}, Window{0, 100}},
		{"forward slice", &StartBound{N: 10}, &EndBound{N: 20}, Window{9, 20}},
		{"tail by count", &StartBound{N: 10, Backward: true}, &EndBound{N: 5, Relative: true}, Window{90, 95}},
		{"backward end", nil, &EndBound{N: 10, Backward: true}, Window{0, 91}},
		{"start only", &StartBound{N: 95}, nil, Window{94, total}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ResolveWindow(tt.start, tt.end, total)
			require.NoError(t, err)
			assert.Equal(t, tt.want, w)
		})
	}

	fails := []struct {
		name  string
		start *StartBound
		end   *EndBound
	}{
		{"backward start past total", &StartBound{N: 101, Backward: true}, nil},
		{"forward end past total", nil, &EndBound{N: 101}},
		{"backward end past total", nil, &EndBound{N: 101, Backward: true}},
		{"count past total", &StartBound{N: 1}, &EndBound{N: 101, Relative: true}},
		{"empty window", &StartBound{N: 50}, &EndBound{N: 60, Backward: true}},
		{"inverted", &StartBound{N: 50}, &EndBound{N: 40}},
	}
	for _, tt := range fails {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveWindow(tt.start, tt.end, total)
			assert.ErrorIs(t, err, ErrFrameRangeInvalid)
		})
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{Start: 5, End: 8}
	assert.False(t, w.Contains(4))
	assert.True(t, w.Contains(5))
	assert.True(t, w.Contains(7))
	assert.False(t, w.Contains(8))
}

func TestRequiresFullScan(t *testing.T) {
	assert.False(t, requiresFullScan(nil, nil))
	assert.False(t, requiresFullScan(&StartBound{N: 1}, &EndBound{N: 2}))
	assert.True(t, requiresFullScan(&StartBound{N: 1, Backward: true}, nil))
	assert.True(t, requiresFullScan(nil, &EndBound{N: 1, Backward: true}))
}
