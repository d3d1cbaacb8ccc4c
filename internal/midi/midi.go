// Package midi decodes raw MIDI wire bytes into engine events and
// implements the 32-bit learn-pattern matching used by MidiReceiver
// (spec §4.4). Decoding is grounded on gitlab.com/gomidi/midi/v2, used
// the same way other programs in the pack (aaliyan1230-midi-mixer,
// schollz-221e, zurustar-son-et) pull channel/command/data bytes out of a
// midi.Message.
package midi

import "gitlab.com/gomidi/midi/v2"

// Message is the normalized form MidiReceiver appends to its buffer:
// (status, note, velocity, delta), per spec §4.4.
type Message struct {
	Status   byte
	Note     byte
	Velocity byte
	Delta    int64 // frames since the previous message on this channel
}

// Decode extracts a Message from a raw gomidi message, normalizing the
// channel nibble away (MidiReceiver always normalizes to channel 0 per
// spec §4.4; channel filtering happens separately via Pattern).
func Decode(raw midi.Message) (Message, bool) {
	var ch, key, vel uint8
	switch {
	case raw.GetNoteOn(&ch, &key, &vel):
		return Message{Status: 0x90, Note: key, Velocity: vel}, true
	case raw.GetNoteOff(&ch, &key, &vel):
		return Message{Status: 0x80, Note: key, Velocity: vel}, true
	case raw.GetControlChange(&ch, &key, &vel):
		return Message{Status: 0xB0, Note: key, Velocity: vel}, true
	default:
		return Message{}, false
	}
}

// Channel extracts the MIDI channel (0-15) a raw message was sent on, or
// -1 if it carries no channel (e.g. a system message).
func Channel(raw midi.Message) int {
	b := raw.Bytes()
	if len(b) == 0 {
		return -1
	}
	status := b[0]
	if status < 0x80 || status >= 0xF0 {
		return -1
	}
	return int(status & 0x0F)
}

// Pattern is a 32-bit channel/status/data match pattern used by the
// MidiReceiver learn fields (press, release, kill, arm, volume, mute,
// solo, read-actions, pitch — spec §4.4). Bits, high to low:
//
//	[31:28] channel (0-15, or 0xF = any)
//	[27:20] status byte
//	[19:12] data1 (note/controller number)
//	[11:0]  reserved / velocity-range hint, unused by Matches
type Pattern uint32

// AnyChannel matches a Pattern against any incoming channel.
const AnyChannel = 0xF

// NewPattern packs a learned (channel, status, data1) triple.
func NewPattern(channel int, status, data1 byte) Pattern {
	ch := uint32(AnyChannel)
	if channel >= 0 && channel <= 15 {
		ch = uint32(channel)
	}
	return Pattern(ch<<28 | uint32(status)<<20 | uint32(data1)<<12)
}

// Matches reports whether raw satisfies the learned pattern.
func (p Pattern) Matches(raw midi.Message) bool {
	msg, ok := Decode(raw)
	if !ok {
		return false
	}
	ch := Channel(raw)
	wantCh := (uint32(p) >> 28) & 0xF
	if wantCh != AnyChannel && int(wantCh) != ch {
		return false
	}
	wantStatus := byte((uint32(p) >> 20) & 0xFF)
	if wantStatus != msg.Status {
		return false
	}
	wantData1 := byte((uint32(p) >> 12) & 0xFF)
	return wantData1 == msg.Note
}
