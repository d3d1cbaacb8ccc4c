// File loading is grounded on the go-audio/wav + go-audio/audio decode
// pipeline (seen across the pack, e.g. tphakala-birdnet-go) and on the
// teacher's PolyphaseResampler (internal/audio/polyphase.go), adapted here
// from a mono STT-rate-conversion helper into a per-channel, load-time
// sample-rate converter. Spec §6 (wave loader external interface).
package wave

import (
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/loopstation/loopcore/internal/audiobuf"
)

// Status is the outcome of a LoadFile call, per spec §6.
type Status int

const (
	StatusOK Status = iota
	StatusWrongData
	StatusIO
	StatusPathTooLong
	StatusNoData
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWrongData:
		return "WRONG_DATA"
	case StatusIO:
		return "IO"
	case StatusPathTooLong:
		return "PATH_TOO_LONG"
	case StatusNoData:
		return "NO_DATA"
	default:
		return "UNKNOWN"
	}
}

// maxPathLength mirrors common filesystem path limits; a path longer than
// this is rejected before any syscall is attempted.
const maxPathLength = 4096

// maxChannels bounds the channel layouts a Wave will accept. Anything
// beyond stereo is rejected as WRONG_DATA rather than silently downmixed.
const maxChannels = 2

// Loader decodes .wav files into Waves, resampling at load time (never on
// the audio thread) to match the engine's device sample rate.
type Loader struct {
	deviceSampleRate int
}

// NewLoader returns a Loader that resamples every decoded file to
// deviceSampleRate.
func NewLoader(deviceSampleRate int) *Loader {
	return &Loader{deviceSampleRate: deviceSampleRate}
}

// LoadFile decodes the .wav file at path into a Wave tagged with id. The
// returned Status classifies failure per spec §6; on anything but OK the
// returned *Wave is nil.
func (l *Loader) LoadFile(id, path string) (*Wave, Status) {
	if len(path) > maxPathLength {
		return nil, StatusPathTooLong
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, StatusIO
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, StatusWrongData
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, StatusIO
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, StatusNoData
	}

	channels := dec.NumChans
	if channels < 1 || int(channels) > maxChannels {
		return nil, StatusWrongData
	}

	frames := buf.NumFrames()
	if frames == 0 {
		return nil, StatusNoData
	}

	planar := deinterleave(buf, int(channels), frames)
	sourceRate := int(dec.SampleRate)
	if sourceRate != l.deviceSampleRate {
		planar = resamplePlanar(planar, sourceRate, l.deviceSampleRate)
	}

	out := audiobuf.New(len(planar[0]), int(channels))
	frame := make([]float32, channels)
	for i := range planar[0] {
		for c := 0; c < int(channels); c++ {
			frame[c] = planar[c][i]
		}
		out.CopyFrame(i, frame)
	}

	return NewWave(id, path, l.deviceSampleRate, out), StatusOK
}

// deinterleave converts a go-audio IntBuffer into per-channel float32
// slices normalized to [-1, 1].
func deinterleave(buf *audio.IntBuffer, channels, frames int) [][]float32 {
	planar := make([][]float32, channels)
	for c := range planar {
		planar[c] = make([]float32, frames)
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float32(int(1) << (bitDepth - 1))

	for i, sample := range buf.Data {
		c := i % channels
		f := i / channels
		if f >= frames {
			break
		}
		planar[c][f] = float32(sample) / scale
	}
	return planar
}

// resamplePlanar runs the teacher's polyphase/linear resample technique
// independently per channel so stereo files keep channel alignment.
func resamplePlanar(planar [][]float32, fromRate, toRate int) [][]float32 {
	out := make([][]float32, len(planar))
	for c, channel := range planar {
		r := NewFileResampler(fromRate, toRate)
		out[c] = r.Resample(channel)
	}
	return out
}
