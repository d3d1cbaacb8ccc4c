package wave

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loopstation/loopcore/internal/audiobuf"
)

func makeWave(frames, channels int) *Wave {
	buf := audiobuf.New(frames, channels)
	for i := 0; i < frames; i++ {
		_ = buf.CopyFrame(i, []float32{float32(i)})
	}
	return NewWave("w1", "mem", 44100, buf)
}

func TestFillCopyPathAtUnityPitch(t *testing.T) {
	w := makeWave(1000, 1)
	dst := audiobuf.New(64, 1)
	r := NewReader()

	used := r.Fill(w, &dst, 0, 1000, 0, 1.0)
	assert.Equal(t, 64, used)
	assert.Equal(t, float32(0), dst.Frame(0)[0])
	assert.Equal(t, float32(63), dst.Frame(63)[0])
}

func TestFillCopyPathStopsAtEnd(t *testing.T) {
	w := makeWave(1000, 1)
	dst := audiobuf.New(64, 1)
	r := NewReader()

	used := r.Fill(w, &dst, 990, 1000, 0, 1.0)
	assert.Equal(t, 10, used)
}

func TestFillResamplePathConsumesProportionally(t *testing.T) {
	w := makeWave(1000, 1)
	dst := audiobuf.New(64, 1)
	r := NewReader()

	used := r.Fill(w, &dst, 0, 1000, 0, 2.0)
	// at pitch 2.0, 64 output frames should consume ~128 source frames
	assert.InDelta(t, 128, used, 1)
}

func TestFillResampleStateCarriesAcrossCalls(t *testing.T) {
	w := makeWave(1000, 1)
	r := NewReader()

	dst1 := audiobuf.New(10, 1)
	used1 := r.Fill(w, &dst1, 0, 1000, 0, 1.5)

	dst2 := audiobuf.New(10, 1)
	used2 := r.Fill(w, &dst2, used1, 1000, 0, 1.5)

	// Total consumption over both calls should track 1.5x the output frames produced.
	assert.InDelta(t, 30, used1+used2, 1)
}
