// Package mixer implements the audio-callback mixing engine, its
// user-thread orchestration (Handler) and the musical-transport sequencer
// (Sequencer), spec §4.9-§4.11. Mixer.Process is the realtime entrypoint
// invoked once per audio block by internal/driver.
package mixer

import (
	"math"
	"sync/atomic"

	"github.com/loopstation/loopcore/internal/audiobuf"
	"github.com/loopstation/loopcore/internal/channel"
	"github.com/loopstation/loopcore/internal/clock"
	"github.com/loopstation/loopcore/internal/eventqueue"
	"github.com/loopstation/loopcore/internal/rcu"
	"github.com/loopstation/loopcore/internal/wave"
)

// Mixer owns the channel list, both event queues, the musical Clock and the
// per-block scratch state needed to implement spec §4.9's eleven-step
// Process. One Mixer belongs to exactly one Engine.
type Mixer struct {
	channels *rcu.List[*channel.Channel]
	waves    *rcu.List[*wave.Wave]

	uiEvents   *eventqueue.Queue
	midiEvents *eventqueue.Queue

	clock      *clock.Clock
	sequencer  *Sequencer
	pluginHost PluginHost
	transport  Transport

	enabled atomic.Bool

	limiterEnabled atomic.Bool
	inputMonitor   atomic.Bool
	recordInput    atomic.Bool

	processing atomic.Bool

	inPeakBits  atomic.Uint32
	outPeakBits atomic.Uint32

	thresholdArmed    atomic.Bool
	thresholdDB       float32
	thresholdCallback func(peak float32)

	// Audio-thread-only scratch, allocated once at construction.
	bridge        audiobuf.Buffer // in-to-out monitor bridge, rebuilt each block
	virtualIn     audiobuf.Buffer // overdub accumulation buffer for record-armed input
	eventBuf      []eventqueue.Event
	clockEventBuf []eventqueue.Event
}

// New constructs a Mixer. virtualInFrames bounds the overdub buffer's
// capacity (spec §4.9 step 8); it is fixed at construction since resizing
// would require an audio-thread allocation.
func New(blockFrames, ioChannels int, c *clock.Clock, virtualInFrames int) *Mixer {
	m := &Mixer{
		channels:   rcu.New[*channel.Channel](),
		waves:      rcu.New[*wave.Wave](),
		uiEvents:   eventqueue.New("ui"),
		midiEvents: eventqueue.New("midi"),
		clock:      c,
		pluginHost: NoopPluginHost{},
		transport:  NoopTransport{},
		bridge:     audiobuf.New(blockFrames, ioChannels),
		virtualIn:  audiobuf.New(virtualInFrames, ioChannels),
	}
	// Room for both queues drained in full, and for an ON_BAR plus an
	// ON_FIRST_BEAT on every frame of a block.
	m.eventBuf = make([]eventqueue.Event, 0, 2*eventqueue.Capacity())
	m.clockEventBuf = make([]eventqueue.Event, 0, 2*blockFrames)
	m.enabled.Store(true)
	m.limiterEnabled.Store(true)
	m.sequencer = newSequencer(c, m.channels)
	return m
}

// Channels exposes the channel RCU list for MixerHandler/Sequencer/tests.
func (m *Mixer) Channels() *rcu.List[*channel.Channel] { return m.channels }

// Sequencer returns the transport sequencer bound to this Mixer's Clock
// and channel list (spec §4.11).
func (m *Mixer) Sequencer() *Sequencer { return m.sequencer }

// UIEvents returns the queue the UI thread pushes PRESS/RELEASE/KILL
// events into.
func (m *Mixer) UIEvents() *eventqueue.Queue { return m.uiEvents }

// MidiEvents returns the queue the MIDI input thread pushes events into.
func (m *Mixer) MidiEvents() *eventqueue.Queue { return m.midiEvents }

// SetPluginHost installs the plug-in collaborator (spec §6); defaults to
// NoopPluginHost.
func (m *Mixer) SetPluginHost(h PluginHost) {
	if h != nil {
		m.pluginHost = h
	}
}

// SetTransport installs the external-transport collaborator (spec §6);
// defaults to NoopTransport.
func (m *Mixer) SetTransport(t Transport) {
	if t != nil {
		m.transport = t
	}
}

// SetEnabled toggles spec §5's "engine disabled" gate; Process returns
// zeroed output while disabled.
func (m *Mixer) SetEnabled(v bool) { m.enabled.Store(v) }
func (m *Mixer) Enabled() bool     { return m.enabled.Load() }

// SetInputMonitor toggles in-to-out bridging (processLineIn, spec §4.9
// step 5).
func (m *Mixer) SetInputMonitor(v bool) { m.inputMonitor.Store(v) }

// SetRecordInput toggles overdub accumulation into the virtual input
// buffer (lineInRec, spec §4.9 step 8).
func (m *Mixer) SetRecordInput(v bool) { m.recordInput.Store(v) }

// SetLimiterEnabled toggles the hard output limiter (finalizeOutput, spec
// §4.9 step 10).
func (m *Mixer) SetLimiterEnabled(v bool) { m.limiterEnabled.Store(v) }

// ArmSignalThreshold arms a one-shot callback invoked the next time the
// input peak (in dBFS) exceeds thresholdDB, per spec §4.9 step 5. The
// callback fires from the audio thread and must not block or allocate.
func (m *Mixer) ArmSignalThreshold(thresholdDB float32, cb func(peak float32)) {
	m.thresholdDB = thresholdDB
	m.thresholdCallback = cb
	m.thresholdArmed.Store(true)
}

// InputPeak returns the most recent block's input peak (linear, 0..1+).
func (m *Mixer) InputPeak() float32 { return math.Float32frombits(m.inPeakBits.Load()) }

// OutputPeak returns the most recent block's output peak (linear, 0..1+).
func (m *Mixer) OutputPeak() float32 { return math.Float32frombits(m.outPeakBits.Load()) }

// Processing reports whether a Process call is currently in flight, per
// spec §5's "processing" suspension-point flag.
func (m *Mixer) Processing() bool { return m.processing.Load() }

// Process implements spec §4.9's eleven-step mixer callback. in is nil
// when no capture device is open. Process never allocates and never
// blocks.
func (m *Mixer) Process(out, in *audiobuf.Buffer) {
	// Step 1: kernel/engine gate.
	if !m.enabled.Load() {
		out.ClearAll()
		return
	}

	// Step 2: mark processing.
	m.processing.Store(true)
	defer m.processing.Store(false)

	// Step 3: external transport, if any.
	if running, bpm, _ := m.transport.Poll(); running {
		m.clock.SetTempo(bpm)
	}

	// Step 4: reset peak meters, clear output and bridge.
	out.ClearAll()
	m.bridge.ClearAll()

	// Step 5: processLineIn.
	var inPeak float32
	if in != nil {
		inPeak = in.Peak()
		if m.thresholdArmed.Load() {
			db := dBFS(inPeak)
			if db > m.thresholdDB {
				if m.thresholdCallback != nil {
					m.thresholdCallback(inPeak)
				}
				m.thresholdArmed.Store(false)
			}
		}
		if m.inputMonitor.Load() {
			m.bridge.CopyFrom(in, in.Frames(), 0)
		}
	}
	m.inPeakBits.Store(math.Float32bits(inPeak))

	// Step 6: parseEvents.
	m.eventBuf = m.uiEvents.DrainInto(m.eventBuf[:0])
	m.eventBuf = m.midiEvents.DrainInto(m.eventBuf)
	snapshot := m.channels.Snapshot()
	if len(m.eventBuf) > 0 {
		canQuantize := m.clock.CanQuantize()
		for _, ch := range snapshot {
			ch.Parse(m.eventBuf, canQuantize)
		}
	}

	// Step 7: transport-driven per-frame clock advance.
	blockStartFrame := m.clock.CurrentFrame()
	if m.clock.Status() == clock.Running {
		m.clockEventBuf = m.clockEventBuf[:0]
		blockFrames := out.Frames()
		for j := 0; j < blockFrames; j++ {
			onBar, _, onFirstBeat := m.clock.Advance()
			if m.sequencer.consumeRewindWait(m.clock.QuantoHasPassed()) {
				for _, ch := range snapshot {
					ch.RewindToBegin()
				}
			}
			if onBar {
				m.clockEventBuf = append(m.clockEventBuf, eventqueue.Event{Type: eventqueue.OnBar, LocalFrame: j})
			}
			if onFirstBeat {
				m.clockEventBuf = append(m.clockEventBuf, eventqueue.Event{Type: eventqueue.OnFirstBeat, LocalFrame: j})
			}
		}
		if len(m.clockEventBuf) > 0 {
			for _, ch := range snapshot {
				ch.Parse(m.clockEventBuf, false)
			}
		}
	}

	// Step 8: lineInRec — overdub input into the virtual input buffer,
	// wrapping modulo its fixed capacity.
	if m.recordInput.Load() && in != nil && m.virtualIn.Frames() > 0 {
		inVol := m.inputChannelVolume()
		loopLen := m.virtualIn.Frames()
		for i := 0; i < in.Frames(); i++ {
			vFrame := (blockStartFrame + i) % loopLen
			src := in.Frame(i)
			dst := m.virtualIn.Frame(vFrame)
			for c := range dst {
				if c < len(src) {
					dst[c] += src[c] * inVol
				}
			}
		}
	}

	// Step 9: render every non-MASTER channel, then MASTER_IN and
	// MASTER_OUT last.
	anySolo := false
	for _, ch := range snapshot {
		if !ch.IsInternal() && ch.State().Solo() {
			anySolo = true
			break
		}
	}
	for _, ch := range snapshot {
		switch ch.State().Kind() {
		case channel.KindMasterIn, channel.KindMasterOut:
			continue
		}
		audible := !anySolo || ch.State().Solo()
		ch.Render(out, audible)
	}
	var masterIn, masterOut *channel.Channel
	if ch, ok := m.channels.Get(channel.MasterInID); ok {
		masterIn = ch
		masterIn.RenderBridge(out, &m.bridge, true)
	}
	if ch, ok := m.channels.Get(channel.MasterOutID); ok {
		masterOut = ch
	}

	// Step 10: finalizeOutput — the bridge is already folded into out via
	// MASTER_IN above; apply MASTER_OUT's volume/mute, then the limiter.
	if masterOut != nil {
		if masterOut.State().Mute() {
			out.ClearAll()
		} else {
			scaleInPlace(out, masterOut.State().Volume())
		}
	}
	if m.limiterEnabled.Load() {
		clampInPlace(out)
	}

	// Step 11: output peak.
	m.outPeakBits.Store(math.Float32bits(out.Peak()))
}

func (m *Mixer) inputChannelVolume() float32 {
	if ch, ok := m.channels.Get(channel.MasterInID); ok {
		return ch.State().Volume()
	}
	return 1.0
}

func scaleInPlace(b *audiobuf.Buffer, gain float32) {
	data := b.Data()
	for i := range data {
		data[i] *= gain
	}
}

func clampInPlace(b *audiobuf.Buffer) {
	data := b.Data()
	for i, v := range data {
		if v > 1 {
			data[i] = 1
		} else if v < -1 {
			data[i] = -1
		}
	}
}

// dBFS converts a linear peak amplitude to decibels full-scale. A silent
// peak maps to a very negative number rather than -Inf so threshold
// comparisons stay well-defined.
func dBFS(peak float32) float32 {
	if peak <= 0 {
		return -120
	}
	return float32(20 * math.Log10(float64(peak)))
}
