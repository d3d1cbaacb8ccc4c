package channel

import (
	"github.com/loopstation/loopcore/internal/audiobuf"
	"github.com/loopstation/loopcore/internal/eventqueue"
)

// Channel owns its ChannelState and, for SAMPLE kind, an optional
// SamplePlayer. Spec §9: "virtual channel hierarchy" is expressed as a
// tagged variant with a shared {parse, render} contract, dispatch static
// per block per channel rather than an interface-method vtable — Kind
// decides the branch taken inside Parse/Render.
type Channel struct {
	state   *ChannelState
	player  *SamplePlayer  // non-nil only for KindSample
	midi    *MidiReceiver  // non-nil for KindSample and KindMidi
	scratch audiobuf.Buffer
}

// NewChannel constructs a Channel of the given kind. blockFrames sizes the
// per-channel scratch buffer once, at device block length (spec §3
// ChannelState.buffer).
func NewChannel(kind Kind, columnID, name string, blockFrames, ioChannels int) *Channel {
	c := &Channel{
		state:   NewChannelState(kind, columnID, name),
		scratch: audiobuf.New(blockFrames, ioChannels),
	}
	if kind == KindSample {
		c.player = NewSamplePlayer()
		c.midi = NewMidiReceiver()
	}
	if kind == KindMidi {
		c.midi = NewMidiReceiver()
	}
	return c
}

// AdoptState replaces c's ChannelState with one already constructed
// elsewhere (used by MixerHandler.CloneChannel, which clones the source
// channel's state — fresh ID included — before NewChannel builds c's own).
func (c *Channel) AdoptState(state *ChannelState) { c.state = state }

func (c *Channel) State() *ChannelState     { return c.state }
func (c *Channel) Player() *SamplePlayer    { return c.player }
func (c *Channel) Midi() *MidiReceiver      { return c.midi }
func (c *Channel) Scratch() *audiobuf.Buffer { return &c.scratch }
func (c *Channel) ID() string               { return c.state.ID() }

// IsInternal reports whether kind is MASTER_IN, MASTER_OUT or PREVIEW
// (spec §4.5).
func (c *Channel) IsInternal() bool {
	switch c.state.Kind() {
	case KindMasterIn, KindMasterOut, KindPreview:
		return true
	default:
		return false
	}
}

// IsActive reports whether this channel participates in parse/render this
// block: internal channels always are; SAMPLE channels only once a wave is
// assigned (spec §4.5).
func (c *Channel) IsActive() bool {
	if c.IsInternal() {
		return true
	}
	return c.state.Kind() == KindSample && c.player != nil && c.player.Wave() != nil
}

// Parse filters events whose ChannelID matches this channel (or "" =
// broadcast) and dispatches them to the SamplePlayer/MidiReceiver, per
// spec §4.5. canQuantize reflects Clock.CanQuantize() for this block; it is
// armed on the player before any event is dispatched so a PRESS landing in
// this batch sees the correct quantization policy (spec §9 resolution).
func (c *Channel) Parse(events []eventqueue.Event, canQuantize bool) {
	if c.player != nil {
		c.player.ArmQuantize(canQuantize)
	}
	for _, ev := range events {
		if ev.ChannelID != "" && ev.ChannelID != c.state.ID() {
			continue
		}
		if c.player != nil {
			c.player.OnEvent(ev, c.state.Status(), c.state.SetStatus)
		}
		if c.midi != nil && ev.Midi != (eventqueue.MidiMessage{}) {
			c.midi.Parse(MidiMessage{Status: ev.Midi.Status, Note: ev.Midi.Note, Velocity: ev.Midi.Velocity}, int64(ev.LocalFrame))
		}
	}
}

// Render clears the scratch buffer, dispatches to the SamplePlayer if
// active, then (if not muted and audible) mixes scratch into out scaled by
// volume, per spec §4.5. MASTER channels are rendered last by the Mixer,
// after every other channel has accumulated into out.
func (c *Channel) Render(out *audiobuf.Buffer, audible bool) {
	c.scratch.ClearAll()
	if c.player != nil {
		newStatus := c.player.Render(&c.scratch, c.state.Status())
		c.state.SetStatus(newStatus)
	}
	if c.state.Mute() || !audible {
		return
	}
	volume := c.state.Volume()
	out.AddFrom(&c.scratch, c.scratch.Frames(), 0, volume)
}

// RenderBridge is the MASTER_IN-only counterpart of Render: there is no
// SamplePlayer to fill scratch, so the in-to-out bridge buffer the Mixer
// assembled in processLineIn is copied in instead. MASTER_IN's own
// volume/mute still apply exactly as they would for a played channel.
func (c *Channel) RenderBridge(out, bridge *audiobuf.Buffer, audible bool) {
	c.scratch.ClearAll()
	c.scratch.CopyFrom(bridge, bridge.Frames(), 0)
	if c.state.Mute() || !audible {
		return
	}
	out.AddFrom(&c.scratch, c.scratch.Frames(), 0, c.state.Volume())
}

// StopBySeq kills this channel's playback if it is configured to stop when
// the sequencer halts (spec §4.11 Stop). No-op for internal channels or
// channels with no SamplePlayer.
func (c *Channel) StopBySeq(localFrame int) {
	if c.player == nil || c.IsInternal() || !c.state.StopOnSeqHalt() {
		return
	}
	status := c.state.Status()
	if status != StatusPlay && status != StatusWait && status != StatusEnding {
		return
	}
	c.player.OnEvent(eventqueue.Event{Type: eventqueue.Kill, LocalFrame: localFrame}, status, c.state.SetStatus)
}

// RewindToBegin snaps this channel's tracker back to its wave's begin
// directly, bypassing the normal rewind/quantize negotiation (spec §4.11
// Sequencer.rewindChannels).
func (c *Channel) RewindToBegin() {
	if c.player != nil {
		c.player.ResetToBegin()
	}
}
