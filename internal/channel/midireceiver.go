package channel

import (
	"github.com/loopstation/loopcore/internal/midi"
)

// midiBufferCapacity bounds the per-channel MIDI event buffer; it is
// pre-sized once at channel construction and never resized on the audio
// thread, per spec §4.4.
const midiBufferCapacity = 256

// MidiMessage is the normalized (status, note, velocity, delta) tuple
// MidiReceiver.Parse appends to its buffer.
type MidiMessage struct {
	Status   byte
	Note     byte
	Velocity byte
	Delta    int64
}

// MidiReceiver holds a bounded MIDI event buffer feeding an optional
// plug-in host, plus the learn-pattern configuration of spec §4.4.
type MidiReceiver struct {
	Enabled    bool
	InChannel  int // -1 = any
	PressLearn midi.Pattern
	ReleaseLearn midi.Pattern
	KillLearn  midi.Pattern
	ArmLearn   midi.Pattern
	VolumeLearn midi.Pattern
	MuteLearn  midi.Pattern
	SoloLearn  midi.Pattern
	ReadActionsLearn midi.Pattern
	PitchLearn midi.Pattern

	buffer      [midiBufferCapacity]MidiMessage
	count       int
	lastFrame   int64
}

// NewMidiReceiver returns a MidiReceiver accepting MIDI on any channel,
// with every learn pattern unset (the zero Pattern: channel 0, status 0x00,
// data 0x00 — matches nothing until learned).
func NewMidiReceiver() *MidiReceiver {
	return &MidiReceiver{Enabled: true, InChannel: -1}
}

// Parse normalizes ev to channel 0 and appends (status, note, velocity,
// delta) to the buffer, dropping the event if the buffer is full (never
// grows on the audio thread).
func (r *MidiReceiver) Parse(ev MidiMessage, frame int64) {
	if !r.Enabled || r.count >= midiBufferCapacity {
		return
	}
	ev.Delta = frame - r.lastFrame
	r.lastFrame = frame
	if ev.Status >= 0x80 && ev.Status < 0xF0 {
		ev.Status &= 0xF0 // channel voice message: drop the channel nibble
	}
	r.buffer[r.count] = MidiMessage{Status: ev.Status, Note: ev.Note, Velocity: ev.Velocity, Delta: ev.Delta}
	r.count++
}

// Buffer returns the messages accumulated since the last Clear.
func (r *MidiReceiver) Buffer() []MidiMessage { return r.buffer[:r.count] }

// Clear empties the buffer; called by the plug-in host once it has
// consumed Buffer().
func (r *MidiReceiver) Clear() { r.count = 0 }
