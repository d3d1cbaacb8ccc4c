// Package engine wires the Clock, Mixer, MixerHandler, audio Driver and
// metrics Recorder into the single process-wide context a running loop
// engine needs, per spec §2/§9 ("single process-wide engine context owned
// by an Engine value"). Engine.Process implements driver.Processor and is
// the only method ever invoked from the realtime audio callback.
package engine

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/loopstation/loopcore/internal/audiobuf"
	"github.com/loopstation/loopcore/internal/channel"
	"github.com/loopstation/loopcore/internal/clock"
	"github.com/loopstation/loopcore/internal/config"
	"github.com/loopstation/loopcore/internal/driver"
	"github.com/loopstation/loopcore/internal/eventqueue"
	"github.com/loopstation/loopcore/internal/metrics"
	"github.com/loopstation/loopcore/internal/mixer"
	"github.com/loopstation/loopcore/internal/wave"
)

// Engine owns every collaborator needed to run the loop: the musical
// Clock, the Mixer (and its Sequencer), the MixerHandler for channel/wave
// mutation, the audio Driver once started, and the metrics Recorder.
type Engine struct {
	cfg *config.Config

	clock   *clock.Clock
	mixer   *mixer.Mixer
	handler *mixer.Handler
	loader  *wave.Loader

	driver   *driver.Driver
	recorder *metrics.Recorder

	lastInPeakBits     atomic.Uint32
	lastOutPeakBits    atomic.Uint32
	lastActiveChannels atomic.Int32
	lastProcessNanos   atomic.Int64

	metricsStop chan struct{}
	metricsDone chan struct{}
}

// New constructs an Engine from cfg. It does not open an audio device;
// call Start for that once the caller is ready to hear sound.
func New(cfg *config.Config) *Engine {
	blockFrames := cfg.SampleRate * cfg.BlockSizeMs / 1000
	c := clock.New(cfg.SampleRate, cfg.DefaultBPM, cfg.DefaultBars, cfg.DefaultBeats, 0)

	// One loop (DefaultBars bars) of virtual input capacity at the
	// configured tempo gives overdub recording a full loop without an
	// unbounded buffer.
	virtualInFrames := c.FramesInLoop()
	if virtualInFrames <= 0 {
		virtualInFrames = cfg.SampleRate * 4
	}
	m := mixer.New(blockFrames, cfg.Channels, c, virtualInFrames)
	m.SetLimiterEnabled(cfg.LimiterEnabled)
	m.SetInputMonitor(cfg.InputMonitor)
	m.SetRecordInput(cfg.RecordInput)

	loader := wave.NewLoader(cfg.SampleRate)
	h := mixer.NewHandler(m, loader, blockFrames, cfg.Channels)

	masterIn := channel.NewChannel(channel.KindMasterIn, "", "Master In", blockFrames, cfg.Channels)
	masterOut := channel.NewChannel(channel.KindMasterOut, "", "Master Out", blockFrames, cfg.Channels)
	masterOut.State().SetVolume(cfg.MasterVolume)
	m.Channels().Push(masterIn)
	m.Channels().Push(masterOut)

	return &Engine{
		cfg:      cfg,
		clock:    c,
		mixer:    m,
		handler:  h,
		loader:   loader,
		recorder: metrics.New(),
	}
}

func (e *Engine) Clock() *clock.Clock         { return e.clock }
func (e *Engine) Mixer() *mixer.Mixer         { return e.mixer }
func (e *Engine) Handler() *mixer.Handler     { return e.handler }
func (e *Engine) Sequencer() *mixer.Sequencer { return e.mixer.Sequencer() }

// Start opens the audio device, begins driving Process from its callback,
// starts the metrics scrape endpoint and the post-hoc metrics publisher
// loop. withCapture mirrors cfg.InputMonitor || cfg.RecordInput.
func (e *Engine) Start() error {
	d, err := driver.Open(e.cfg.SampleRate, e.cfg.Channels, e.cfg.BlockSizeMs)
	if err != nil {
		return &DeviceError{Op: "open", Err: err}
	}
	e.driver = d

	withCapture := e.cfg.InputMonitor || e.cfg.RecordInput
	if err := d.Start(e, withCapture); err != nil {
		return &DeviceError{Op: "start", Err: err}
	}

	e.recorder.Serve(e.cfg.MetricsListenAddr)
	e.startMetricsLoop()
	return nil
}

// Stop halts the metrics loop and the audio device, but keeps the malgo
// context alive so Start can be called again. Use Close to release it.
func (e *Engine) Stop() {
	e.stopMetricsLoop()
	if e.driver != nil {
		e.driver.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = e.recorder.Shutdown(ctx)
}

// Close stops the device (if running) and releases the audio context.
func (e *Engine) Close() {
	e.Stop()
	if e.driver != nil {
		e.driver.Close()
		e.driver = nil
	}
}

// Disable implements spec §5's suspension point: it gates the Mixer to
// silence, then spins at a 50ms interval (same cadence as the teacher's
// Player.Play completion poll) until any in-flight block finishes, so the
// caller can safely mutate channel/wave state that the realtime path would
// otherwise race with.
func (e *Engine) Disable() {
	e.mixer.SetEnabled(false)
	for e.mixer.Processing() {
		time.Sleep(50 * time.Millisecond)
	}
}

// Enable re-arms the Mixer after a Disable.
func (e *Engine) Enable() { e.mixer.SetEnabled(true) }

// Process implements driver.Processor. It is the only method ever called
// from the audio callback: it delegates the eleven-step mix to the Mixer,
// then stashes the block's peak/duration/active-channel counts into plain
// atomics for the metrics loop to pick up later — no Prometheus call
// happens on this thread (spec §4.9 DOMAIN note).
func (e *Engine) Process(out, in *audiobuf.Buffer) {
	start := time.Now()
	e.mixer.Process(out, in)
	elapsed := time.Since(start)

	e.lastInPeakBits.Store(math.Float32bits(e.mixer.InputPeak()))
	e.lastOutPeakBits.Store(math.Float32bits(e.mixer.OutputPeak()))
	e.lastActiveChannels.Store(int32(e.countActiveChannels()))
	e.lastProcessNanos.Store(elapsed.Nanoseconds())
}

func (e *Engine) countActiveChannels() int {
	n := 0
	for _, ch := range e.mixer.Channels().Snapshot() {
		if ch.IsInternal() {
			continue
		}
		switch ch.State().Status() {
		case channel.StatusPlay, channel.StatusWait, channel.StatusEnding:
			n++
		}
	}
	return n
}

// startMetricsLoop runs a ticker goroutine, off the audio thread, that
// republishes the atomics Process stashes as Prometheus observations.
func (e *Engine) startMetricsLoop() {
	e.metricsStop = make(chan struct{})
	e.metricsDone = make(chan struct{})
	go func() {
		defer close(e.metricsDone)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.recorder.Observe(metrics.BlockStats{
					InputPeak:       math.Float32frombits(e.lastInPeakBits.Load()),
					OutputPeak:      math.Float32frombits(e.lastOutPeakBits.Load()),
					ActiveChannels:  int(e.lastActiveChannels.Load()),
					ProcessDuration: time.Duration(e.lastProcessNanos.Load()),
					UIDropped:       e.mixer.UIEvents().Dropped(),
					MidiDropped:     e.mixer.MidiEvents().Dropped(),
				})
			case <-e.metricsStop:
				return
			}
		}
	}()
}

func (e *Engine) stopMetricsLoop() {
	if e.metricsStop == nil {
		return
	}
	close(e.metricsStop)
	<-e.metricsDone
	e.metricsStop = nil
}

// PushUIEvent enqueues a UI-originated event (press/release/kill) for the
// next audio block to parse. Returns QueueFull if the ring buffer is at
// capacity.
func (e *Engine) PushUIEvent(ev eventqueue.Event) error {
	if !e.mixer.UIEvents().Push(ev) {
		return &QueueFull{Queue: "ui"}
	}
	return nil
}

// PushMidiEvent enqueues a MIDI-originated event. Returns QueueFull if the
// ring buffer is at capacity.
func (e *Engine) PushMidiEvent(ev eventqueue.Event) error {
	if !e.mixer.MidiEvents().Push(ev) {
		return &QueueFull{Queue: "midi"}
	}
	return nil
}

// LoadWave decodes path and assigns it to channelID, translating the
// mixer layer's WaveLoadError into the engine's own WaveLoad type so every
// caller sees the spec §7 error shapes regardless of which package raised
// them.
func (e *Engine) LoadWave(channelID, waveID, path string) error {
	err := e.handler.LoadWave(channelID, waveID, path)
	var wl *mixer.WaveLoadError
	if errors.As(err, &wl) {
		return &WaveLoad{Path: wl.Path, Status: wl.Status}
	}
	return err
}
