package wave

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestWAV(t *testing.T, path string, sampleRate, channels, frames int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: 16,
		Data:           make([]int, frames*channels),
	}
	for i := range buf.Data {
		buf.Data[i] = (i % 100) - 50
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

func TestLoadFileDecodesMatchingRate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mono.wav")
	writeTestWAV(t, path, 44100, 1, 500)

	l := NewLoader(44100)
	w, status := l.LoadFile("w1", path)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, 500, w.Size())
	assert.Equal(t, 1, w.Channels())
	assert.Equal(t, 44100, w.SampleRate())
}

func TestLoadFileResamplesToDeviceRate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "48k.wav")
	writeTestWAV(t, path, 48000, 2, 4800)

	l := NewLoader(44100)
	w, status := l.LoadFile("w2", path)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, 2, w.Channels())
	assert.InDelta(t, 4410, w.Size(), 5)
	assert.Equal(t, 44100, w.SampleRate())
}

func TestLoadFileMissingPathIsIOError(t *testing.T) {
	l := NewLoader(44100)
	_, status := l.LoadFile("w3", "/nonexistent/path/does-not-exist.wav")
	assert.Equal(t, StatusIO, status)
}

func TestLoadFilePathTooLong(t *testing.T) {
	l := NewLoader(44100)
	longPath := make([]byte, maxPathLength+10)
	for i := range longPath {
		longPath[i] = 'a'
	}
	_, status := l.LoadFile("w4", string(longPath))
	assert.Equal(t, StatusPathTooLong, status)
}

func TestLoadFileRejectsMultichannelBeyondStereo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quad.wav")
	writeTestWAV(t, path, 44100, 4, 100)

	l := NewLoader(44100)
	_, status := l.LoadFile("w5", path)
	assert.Equal(t, StatusWrongData, status)
}
