package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopstation/loopcore/internal/audiobuf"
	"github.com/loopstation/loopcore/internal/eventqueue"
	"github.com/loopstation/loopcore/internal/wave"
)

func rampWave(id string, frames int) *wave.Wave {
	buf := audiobuf.New(frames, 1)
	for i := 0; i < frames; i++ {
		_ = buf.CopyFrame(i, []float32{float32(i)})
	}
	return wave.NewWave(id, "mem", 44100, buf)
}

func newTestChannel(mode Mode, waveFrames, blockFrames int) *Channel {
	c := NewChannel(KindSample, "col", "test", blockFrames, 1)
	c.Player().SetMode(mode)
	c.Player().SetWave(rampWave("w", waveFrames))
	return c
}

// Scenario 1: Press LOOP_BASIC, transport STOPPED.
func TestScenarioPressLoopBasicThenFirstBeat(t *testing.T) {
	c := newTestChannel(ModeLoopBasic, 1000, 64)
	require.Equal(t, StatusOff, c.State().Status())

	c.Parse([]eventqueue.Event{{Type: eventqueue.Press, LocalFrame: 0}}, false)
	assert.Equal(t, StatusWait, c.State().Status())

	out := audiobuf.New(64, 1)
	c.Render(&out, true)
	assert.Equal(t, StatusWait, c.State().Status())
	assert.Equal(t, float32(0), c.Scratch().Frame(0)[0])

	c.Parse([]eventqueue.Event{{Type: eventqueue.OnFirstBeat, LocalFrame: 0}}, false)
	assert.Equal(t, StatusPlay, c.State().Status())

	out2 := audiobuf.New(64, 1)
	c.Render(&out2, true)
	assert.Equal(t, StatusPlay, c.State().Status())
	assert.Equal(t, int64(64), c.Player().Tracker())
	assert.Equal(t, float32(0), c.Scratch().Frame(0)[0])
	assert.Equal(t, float32(63), c.Scratch().Frame(63)[0])
}

// Scenario 2: SINGLE_BASIC retrig via second press.
func TestScenarioSingleBasicSecondPressStops(t *testing.T) {
	c := newTestChannel(ModeSingleBasic, 200, 64)

	c.Parse([]eventqueue.Event{{Type: eventqueue.Press, LocalFrame: 0}}, false)
	assert.Equal(t, StatusPlay, c.State().Status())

	out := audiobuf.New(64, 1)
	c.Render(&out, true)
	out2 := audiobuf.New(64, 1)
	c.Render(&out2, true)
	require.Equal(t, int64(128), c.Player().Tracker())

	c.Parse([]eventqueue.Event{{Type: eventqueue.Press, LocalFrame: 10}}, false)
	out3 := audiobuf.New(64, 1)
	c.Render(&out3, true)

	assert.Equal(t, StatusOff, c.State().Status())
	assert.Equal(t, int64(54), c.Player().Tracker())
	for i := 0; i < 10; i++ {
		assert.Equal(t, float32(128+i), c.Scratch().Frame(i)[0], "tail frame %d should continue from old tracker position", i)
	}
	for i := 10; i < 64; i++ {
		assert.Equal(t, float32(i-10), c.Scratch().Frame(i)[0], "frame %d should play the new body once before the channel falls silent", i)
	}

	out4 := audiobuf.New(64, 1)
	c.Render(&out4, true)
	for i := 0; i < 64; i++ {
		assert.Equal(t, float32(0), c.Scratch().Frame(i)[0], "channel should be silent the block after the new body played once")
	}
}

// Scenario 3: LOOP_REPEAT crosses bar.
func TestScenarioLoopRepeatCrossesBar(t *testing.T) {
	c := newTestChannel(ModeLoopRepeat, 1000, 64)
	c.Parse([]eventqueue.Event{{Type: eventqueue.Press, LocalFrame: 0}}, false)
	c.Parse([]eventqueue.Event{{Type: eventqueue.OnFirstBeat, LocalFrame: 0}}, false)
	require.Equal(t, StatusPlay, c.State().Status())

	c.Parse([]eventqueue.Event{{Type: eventqueue.OnBar, LocalFrame: 32}}, false)

	out := audiobuf.New(64, 1)
	c.Render(&out, true)

	assert.Equal(t, int64(32), c.Player().Tracker())
}

// Scenario 4: kill mid-block produces valid audio then silence.
func TestScenarioKillMidBlock(t *testing.T) {
	c := newTestChannel(ModeLoopBasic, 1000, 64)
	c.Parse([]eventqueue.Event{{Type: eventqueue.Press, LocalFrame: 0}}, false)
	c.Parse([]eventqueue.Event{{Type: eventqueue.OnFirstBeat, LocalFrame: 0}}, false)
	out := audiobuf.New(64, 1)
	c.Render(&out, true)
	require.Equal(t, StatusPlay, c.State().Status())

	c.Parse([]eventqueue.Event{{Type: eventqueue.Kill, LocalFrame: 40}}, false)
	out2 := audiobuf.New(64, 1)
	c.Render(&out2, true)

	assert.Equal(t, StatusOff, c.State().Status())
	assert.Equal(t, int64(0), c.Player().Tracker())
	for i := 40; i < 64; i++ {
		assert.Equal(t, float32(0), c.Scratch().Frame(i)[0], "frame %d should be silent after kill", i)
	}
	assert.NotEqual(t, float32(0), c.Scratch().Frame(0)[0])
}

// Kill on an already-idle channel must not spuriously produce audio.
func TestKillWhenNotPlayingProducesSilence(t *testing.T) {
	c := newTestChannel(ModeLoopBasic, 1000, 64)
	c.Parse([]eventqueue.Event{{Type: eventqueue.Kill, LocalFrame: 10}}, false)

	out := audiobuf.New(64, 1)
	c.Render(&out, true)

	for i := 0; i < 64; i++ {
		assert.Equal(t, float32(0), c.Scratch().Frame(i)[0])
	}
}

func TestSinglePressReleaseKillsImmediately(t *testing.T) {
	c := newTestChannel(ModeSinglePress, 1000, 64)
	c.Parse([]eventqueue.Event{{Type: eventqueue.Press, LocalFrame: 0}}, false)
	require.Equal(t, StatusPlay, c.State().Status())

	c.Parse([]eventqueue.Event{{Type: eventqueue.Release, LocalFrame: 20}}, false)
	out := audiobuf.New(64, 1)
	c.Render(&out, true)

	assert.Equal(t, StatusOff, c.State().Status())
	for i := 20; i < 64; i++ {
		assert.Equal(t, float32(0), c.Scratch().Frame(i)[0])
	}
}
