// Package wave implements the Wave asset type, the pitch/loop-aware
// WaveReader that fills per-block AudioBuffers, and a concrete WaveLoader
// that decodes .wav files. Spec §3 (Wave), §4.2 (WaveReader), §6 (wave
// loader external interface).
package wave

import "github.com/loopstation/loopcore/internal/audiobuf"

// Wave is an immutable decoded audio asset. Created by a WaveLoader,
// never mutated on the audio thread.
type Wave struct {
	id         string
	path       string
	sampleRate int
	buf        audiobuf.Buffer
}

// NewWave constructs a Wave from already-decoded, already-rate-matched
// samples. Exposed so a WaveLoader implementation can build the result.
func NewWave(id, path string, sampleRate int, buf audiobuf.Buffer) *Wave {
	return &Wave{id: id, path: path, sampleRate: sampleRate, buf: buf}
}

func (w *Wave) ID() string         { return w.id }
func (w *Wave) Path() string       { return w.path }
func (w *Wave) SampleRate() int    { return w.sampleRate }
func (w *Wave) Size() int          { return w.buf.Frames() }
func (w *Wave) Channels() int      { return w.buf.Channels() }
func (w *Wave) Buffer() *audiobuf.Buffer { return &w.buf }
