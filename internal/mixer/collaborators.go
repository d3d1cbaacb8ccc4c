// Collaborator interfaces the Mixer depends on instead of concrete driver
// code, per spec §6's "external interfaces" framing. They live here rather
// than in internal/engine because internal/engine constructs the Mixer
// itself — defining the interfaces in
// the engine package would make internal/mixer import its own constructor's
// package. Go convention is to declare an interface next to its consumer,
// so Mixer keeps them; internal/engine only ever provides implementations.
package mixer

import (
	"github.com/loopstation/loopcore/internal/audiobuf"
	"github.com/loopstation/loopcore/internal/channel"
	"github.com/loopstation/loopcore/internal/wave"
)

// WaveLoader decodes a wave asset for MixerHandler.LoadWave. The one
// concrete implementation this module ships is internal/wave.Loader.
type WaveLoader interface {
	LoadFile(id, path string) (*wave.Wave, wave.Status)
}

// PluginHost processes buffered MIDI messages against a channel's scratch
// buffer. Out of scope per spec §1 Non-goals (arbitrary effects); the
// module ships only NoopPluginHost and the seam.
type PluginHost interface {
	Process(messages []channel.MidiMessage, scratch *audiobuf.Buffer)
}

// Transport is an external, JACK-style musical clock the Mixer can defer
// to instead of driving its own Clock. Out of scope per spec §1; the
// module ships only NoopTransport and the seam.
type Transport interface {
	Poll() (running bool, bpm float64, frame int64)
}

// NoopPluginHost discards every MIDI message. It is the Mixer's default
// PluginHost so the engine is runnable end-to-end with no plug-in SDK.
type NoopPluginHost struct{}

func (NoopPluginHost) Process([]channel.MidiMessage, *audiobuf.Buffer) {}

// NoopTransport reports no external transport, so the Mixer always drives
// its own Clock.
type NoopTransport struct{}

func (NoopTransport) Poll() (bool, float64, int64) { return false, 0, 0 }
