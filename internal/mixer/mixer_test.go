package mixer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopstation/loopcore/internal/audiobuf"
	"github.com/loopstation/loopcore/internal/channel"
	"github.com/loopstation/loopcore/internal/clock"
	"github.com/loopstation/loopcore/internal/eventqueue"
	"github.com/loopstation/loopcore/internal/wave"
)

const testBlockFrames = 64

func newTestMixer() (*Mixer, *channel.Channel, *channel.Channel) {
	c := clock.New(44100, 120, 4, 4, 0)
	m := New(testBlockFrames, 1, c, 44100)

	masterIn := channel.NewChannel(channel.KindMasterIn, "", "master-in", testBlockFrames, 1)
	masterOut := channel.NewChannel(channel.KindMasterOut, "", "master-out", testBlockFrames, 1)
	m.Channels().Push(masterIn)
	m.Channels().Push(masterOut)
	return m, masterIn, masterOut
}

func constWave(id string, value float32, frames int) *wave.Wave {
	buf := audiobuf.New(frames, 1)
	for i := 0; i < frames; i++ {
		_ = buf.CopyFrame(i, []float32{value})
	}
	return wave.NewWave(id, "mem", 44100, buf)
}

func newPlayingChannel(m *Mixer, value float32) *channel.Channel {
	ch := channel.NewChannel(channel.KindSample, "col", "ch", testBlockFrames, 1)
	ch.Player().SetMode(channel.ModeSingleEndless)
	ch.Player().SetWave(constWave(ch.ID(), value, 1000))
	m.Channels().Push(ch)
	ch.Parse([]eventqueue.Event{{Type: eventqueue.Press, LocalFrame: 0}}, false)
	return ch
}

// Scenario 6: soloing one channel silences every other non-internal
// channel, but never the internal MASTER_IN/MASTER_OUT bus.
func TestProcessSoloMasksOtherChannels(t *testing.T) {
	m, _, masterOut := newTestMixer()
	masterOut.State().SetVolume(1.0)
	m.SetLimiterEnabled(false)

	a := newPlayingChannel(m, 0.5)
	_ = newPlayingChannel(m, 0.25)
	a.State().SetSolo(true)

	out := audiobuf.New(testBlockFrames, 1)
	m.Process(&out, nil)

	assert.InDelta(t, 0.5, out.Frame(0)[0], 1e-6, "only the soloed channel's contribution should reach the mix")
}

// The mix-sum invariant of spec §8: out equals the sum of each channel's
// scratch scaled by its own volume and audibility (solo masking), with no
// limiter/master-volume distortion to complicate the arithmetic.
func TestProcessMixSumInvariant(t *testing.T) {
	m, _, masterOut := newTestMixer()
	masterOut.State().SetVolume(1.0)
	m.SetLimiterEnabled(false)

	a := newPlayingChannel(m, 0.2)
	b := newPlayingChannel(m, 0.1)
	a.State().SetVolume(0.5)
	b.State().SetVolume(2.0)

	out := audiobuf.New(testBlockFrames, 1)
	m.Process(&out, nil)

	want := float32(0.2*0.5 + 0.1*2.0)
	assert.InDelta(t, want, out.Frame(10)[0], 1e-5)
}

// Scenario: the hard limiter clamps output to [-1, 1] when enabled.
func TestProcessLimiterClampsOutput(t *testing.T) {
	m, _, masterOut := newTestMixer()
	masterOut.State().SetVolume(1.0)
	m.SetLimiterEnabled(true)

	newPlayingChannel(m, 5.0) // well beyond [-1, 1] before the limiter
	out := audiobuf.New(testBlockFrames, 1)
	m.Process(&out, nil)

	for i := 0; i < out.Frames(); i++ {
		v := out.Frame(i)[0]
		assert.LessOrEqual(t, v, float32(1.0))
		assert.GreaterOrEqual(t, v, float32(-1.0))
	}
}

// MASTER_OUT's volume scales the entire finalized mix (spec §4.9 step 10).
func TestProcessMasterOutVolumeScalesMix(t *testing.T) {
	m, _, masterOut := newTestMixer()
	masterOut.State().SetVolume(0.5)
	m.SetLimiterEnabled(false)

	newPlayingChannel(m, 0.4)
	out := audiobuf.New(testBlockFrames, 1)
	m.Process(&out, nil)

	assert.InDelta(t, 0.2, out.Frame(5)[0], 1e-5)
}

// MASTER_OUT mute silences the whole mix even though channels themselves
// are unmuted and playing.
func TestProcessMasterOutMuteSilencesMix(t *testing.T) {
	m, _, masterOut := newTestMixer()
	masterOut.State().SetMute(true)

	newPlayingChannel(m, 0.9)
	out := audiobuf.New(testBlockFrames, 1)
	m.Process(&out, nil)

	for i := 0; i < out.Frames(); i++ {
		assert.Equal(t, float32(0), out.Frame(i)[0])
	}
}

// Disabling the mixer produces silent output regardless of channel state.
func TestProcessDisabledProducesSilence(t *testing.T) {
	m, _, _ := newTestMixer()
	m.SetEnabled(false)
	newPlayingChannel(m, 1.0)

	out := audiobuf.New(testBlockFrames, 1)
	m.Process(&out, nil)

	for i := 0; i < out.Frames(); i++ {
		assert.Equal(t, float32(0), out.Frame(i)[0])
	}
}

func TestNewHandlerAddCloneDeleteChannel(t *testing.T) {
	m, _, _ := newTestMixer()
	loader := wave.NewLoader(44100)
	h := NewHandler(m, loader, testBlockFrames, 1)

	ch := h.AddChannel(channel.KindSample, "col", "sample")
	require.NotNil(t, ch)
	_, ok := m.Channels().Get(ch.ID())
	require.True(t, ok)

	clone, err := h.CloneChannel(ch.ID())
	require.NoError(t, err)
	assert.NotEqual(t, ch.ID(), clone.ID())
	assert.Equal(t, ch.State().Kind(), clone.State().Kind())

	require.NoError(t, h.DeleteChannel(clone.ID()))
	_, ok = m.Channels().Get(clone.ID())
	assert.False(t, ok)
}
