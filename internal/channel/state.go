// Package channel implements the per-channel state machine: ChannelState,
// SamplePlayer, MidiReceiver and the Channel tagged variant that ties them
// together for parse/render dispatch each audio block. Spec §3
// (ChannelState, SamplePlayerState), §4.3-§4.5.
//
// Atomic field style (plain atomic.Bool/atomic.Uint32 struct fields rather
// than a mutex) is carried over from the teacher's Capturer/Player structs
// (internal/audio: atomic.Bool running/playing, atomic.Uint64 head/tail).
package channel

import (
	"math"
	"sync/atomic"

	"github.com/google/uuid"
)

// Kind distinguishes the four channel roles of spec §3/§9 (virtual
// channel hierarchy tagged variant).
type Kind int

const (
	KindMasterIn Kind = iota
	KindMasterOut
	KindPreview
	KindSample
	KindMidi
)

func (k Kind) String() string {
	switch k {
	case KindMasterIn:
		return "MASTER_IN"
	case KindMasterOut:
		return "MASTER_OUT"
	case KindPreview:
		return "PREVIEW"
	case KindSample:
		return "SAMPLE"
	case KindMidi:
		return "MIDI"
	default:
		return "UNKNOWN"
	}
}

// Status is the ChannelStatus of spec §3.
type Status int32

const (
	StatusEmpty Status = iota
	StatusOff
	StatusPlay
	StatusWait
	StatusEnding
	StatusMissing
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "EMPTY"
	case StatusOff:
		return "OFF"
	case StatusPlay:
		return "PLAY"
	case StatusWait:
		return "WAIT"
	case StatusEnding:
		return "ENDING"
	case StatusMissing:
		return "MISSING"
	default:
		return "UNKNOWN"
	}
}

// Reserved channel IDs, stable for the life of the process per spec §6
// "Persisted state: none... IDs are stable only within one process
// lifetime".
const (
	MasterOutID = "master-out"
	MasterInID  = "master-in"
	PreviewID   = "preview"
)

// ID returns c's stable identifier, satisfying rcu.Identified.
func (s *ChannelState) ID() string { return s.id }

// ChannelState holds the fields of spec §3's ChannelState. Atomic fields
// may be written by either thread (except where noted); name and columnID
// are UI-thread-only.
type ChannelState struct {
	id       string
	kind     Kind
	columnID string

	status atomic.Int32

	volumeBits atomic.Uint32 // math.Float32bits(volume)
	panBits    atomic.Uint32 // math.Float32bits(pan), pan in [0,1]

	mute  atomic.Bool
	solo  atomic.Bool
	armed atomic.Bool

	stopOnSeqHalt atomic.Bool

	name string
}

// NewChannelState constructs a ChannelState with a fresh stable ID (or a
// reserved one for MASTER/PREVIEW kinds), default volume 1.0 and pan 0.5
// (centered).
func NewChannelState(kind Kind, columnID, name string) *ChannelState {
	cs := &ChannelState{id: newID(kind), kind: kind, columnID: columnID, name: name}
	cs.status.Store(int32(StatusOff))
	cs.volumeBits.Store(math.Float32bits(1.0))
	cs.panBits.Store(math.Float32bits(0.5))
	cs.stopOnSeqHalt.Store(true)
	return cs
}

func newID(kind Kind) string {
	switch kind {
	case KindMasterIn:
		return MasterInID
	case KindMasterOut:
		return MasterOutID
	case KindPreview:
		return PreviewID
	default:
		return uuid.NewString()
	}
}

func (s *ChannelState) Kind() Kind         { return s.kind }
func (s *ChannelState) ColumnID() string   { return s.columnID }
func (s *ChannelState) Name() string       { return s.name }
func (s *ChannelState) SetName(name string) { s.name = name }

func (s *ChannelState) Status() Status       { return Status(s.status.Load()) }
func (s *ChannelState) SetStatus(st Status)  { s.status.Store(int32(st)) }

func (s *ChannelState) Volume() float32      { return math.Float32frombits(s.volumeBits.Load()) }
func (s *ChannelState) SetVolume(v float32)  { s.volumeBits.Store(math.Float32bits(v)) }

func (s *ChannelState) Pan() float32         { return math.Float32frombits(s.panBits.Load()) }
func (s *ChannelState) SetPan(p float32)     { s.panBits.Store(math.Float32bits(p)) }

func (s *ChannelState) Mute() bool           { return s.mute.Load() }
func (s *ChannelState) SetMute(m bool)       { s.mute.Store(m) }

func (s *ChannelState) Solo() bool           { return s.solo.Load() }
func (s *ChannelState) SetSolo(v bool)       { s.solo.Store(v) }

func (s *ChannelState) Armed() bool          { return s.armed.Load() }
func (s *ChannelState) SetArmed(v bool)      { s.armed.Store(v) }

// StopOnSeqHalt reports whether Sequencer.Stop should kill this channel
// when the transport halts (spec §4.11 "honours per-config 'stop on seq
// halt'"). Defaults to true.
func (s *ChannelState) StopOnSeqHalt() bool      { return s.stopOnSeqHalt.Load() }
func (s *ChannelState) SetStopOnSeqHalt(v bool)  { s.stopOnSeqHalt.Store(v) }

// Clone returns a deep, independent copy of s with a freshly generated ID
// (per spec §4.10 Clone: "deep-copy channel state... then push the new
// channel" — the clone is a distinct entity, not an alias).
func (s *ChannelState) Clone() *ChannelState {
	c := &ChannelState{id: uuid.NewString(), kind: s.kind, columnID: s.columnID, name: s.name}
	c.status.Store(s.status.Load())
	c.volumeBits.Store(s.volumeBits.Load())
	c.panBits.Store(s.panBits.Load())
	c.mute.Store(s.mute.Load())
	c.solo.Store(s.solo.Load())
	c.armed.Store(s.armed.Load())
	c.stopOnSeqHalt.Store(s.stopOnSeqHalt.Load())
	return c
}
