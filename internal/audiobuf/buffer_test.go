package audiobuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmpty(t *testing.T) {
	b := New(0, 2)
	assert.True(t, b.Empty())
}

func TestFrameRoundTrip(t *testing.T) {
	b := New(4, 2)
	require.NoError(t, b.CopyFrame(1, []float32{0.5, -0.25}))
	got, err := b.FrameChecked(1)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.25}, got)
}

func TestFrameCheckedOutOfRange(t *testing.T) {
	b := New(4, 2)
	_, err := b.FrameChecked(10)
	var invalid *InvalidRangeError
	assert.ErrorAs(t, err, &invalid)
}

func TestClearRange(t *testing.T) {
	b := New(4, 2)
	for i := 0; i < 4; i++ {
		require.NoError(t, b.CopyFrame(i, []float32{1, 1}))
	}
	require.NoError(t, b.Clear(1, 3))
	assert.Equal(t, []float32{1, 1}, b.Frame(0))
	assert.Equal(t, []float32{0, 0}, b.Frame(1))
	assert.Equal(t, []float32{0, 0}, b.Frame(2))
	assert.Equal(t, []float32{1, 1}, b.Frame(3))
}

func TestAddFromMixesScaled(t *testing.T) {
	dst := New(2, 1)
	src := New(2, 1)
	require.NoError(t, src.CopyFrame(0, []float32{1}))
	require.NoError(t, src.CopyFrame(1, []float32{2}))
	n := dst.AddFrom(&src, 2, 0, 0.5)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float32{0.5}, dst.Frame(0))
	assert.Equal(t, []float32{1}, dst.Frame(1))
}

func TestPeak(t *testing.T) {
	b := New(2, 1)
	require.NoError(t, b.CopyFrame(0, []float32{-0.9}))
	require.NoError(t, b.CopyFrame(1, []float32{0.3}))
	assert.InDelta(t, float32(0.9), b.Peak(), 1e-6)
}

func TestMoveEmptiesSource(t *testing.T) {
	b := New(2, 2)
	moved := b.Move()
	assert.True(t, b.Empty())
	assert.False(t, moved.Empty())
}
