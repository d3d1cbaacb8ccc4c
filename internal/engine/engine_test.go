package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopstation/loopcore/internal/audiobuf"
	"github.com/loopstation/loopcore/internal/channel"
	"github.com/loopstation/loopcore/internal/config"
	"github.com/loopstation/loopcore/internal/eventqueue"
	"github.com/loopstation/loopcore/internal/wave"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.SampleRate = 8000
	cfg.BlockSizeMs = 8
	cfg.Channels = 1
	return cfg
}

func TestNewWiresMasterChannels(t *testing.T) {
	e := New(testConfig())

	_, ok := e.Mixer().Channels().Get(channel.MasterInID)
	require.True(t, ok)
	_, ok = e.Mixer().Channels().Get(channel.MasterOutID)
	require.True(t, ok)
}

func TestProcessDelegatesToMixerAndRecordsStats(t *testing.T) {
	e := New(testConfig())
	blockFrames := e.cfg.SampleRate * e.cfg.BlockSizeMs / 1000
	out := audiobuf.New(blockFrames, e.cfg.Channels)

	e.Process(&out, nil)
	assert.Equal(t, 0, e.countActiveChannels())
}

func TestPushUIEventReturnsQueueFullWhenSaturated(t *testing.T) {
	e := New(testConfig())
	var lastErr error
	for i := 0; i < eventqueue.Capacity()+1; i++ {
		lastErr = e.PushUIEvent(eventqueue.Event{Type: eventqueue.Press})
	}
	require.Error(t, lastErr)
	var qf *QueueFull
	require.ErrorAs(t, lastErr, &qf)
	assert.Equal(t, "ui", qf.Queue)
}

func TestDisableWaitsForInFlightProcessing(t *testing.T) {
	e := New(testConfig())
	e.Disable()
	assert.False(t, e.Mixer().Enabled())
	e.Enable()
	assert.True(t, e.Mixer().Enabled())
}

func TestLoadWaveTranslatesMixerErrorShape(t *testing.T) {
	e := New(testConfig())
	ch := e.Handler().AddChannel(channel.KindSample, "col", "sample")

	err := e.LoadWave(ch.ID(), "w1", "/nonexistent/path/does-not-exist.wav")
	require.Error(t, err)
	var wl *WaveLoad
	require.ErrorAs(t, err, &wl)
	assert.Equal(t, wave.StatusIO, wl.Status)
}
