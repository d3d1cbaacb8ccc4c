package channel

import (
	"math"
	"sync/atomic"

	"github.com/loopstation/loopcore/internal/audiobuf"
	"github.com/loopstation/loopcore/internal/eventqueue"
	"github.com/loopstation/loopcore/internal/wave"
)

// Mode is the SamplePlayerMode of spec §3.
type Mode int32

const (
	ModeLoopBasic Mode = iota
	ModeLoopOnce
	ModeLoopRepeat
	ModeLoopOnceBar
	ModeSingleBasic
	ModeSinglePress
	ModeSingleRetrig
	ModeSingleEndless
)

func (m Mode) looping() bool {
	switch m {
	case ModeLoopBasic, ModeLoopOnce, ModeLoopRepeat, ModeLoopOnceBar:
		return true
	default:
		return false
	}
}

// continuesAtBegin reports whether render should keep filling from the
// wave's begin once tracker reaches end (spec §4.3 render step 4: LOOP_BASIC,
// LOOP_REPEAT, SINGLE_ENDLESS continue; everything else stops).
func (m Mode) continuesAtBegin() bool {
	switch m {
	case ModeLoopBasic, ModeLoopRepeat, ModeSingleEndless:
		return true
	default:
		return false
	}
}

// SamplePlayer is the per-channel sample-playback state machine of spec
// §4.3. One SamplePlayer belongs to exactly one SAMPLE-kind Channel.
type SamplePlayer struct {
	tracker atomic.Int64
	begin   atomic.Int64
	end     atomic.Int64
	shift   atomic.Int64

	pitchBits atomic.Uint32 // math.Float32bits(pitch)
	mode      atomic.Int32

	// Audio-thread-only per spec Invariant 1.
	rewinding           bool
	quantizing          bool
	offset              int
	pendingKillFrame    int  // >= 0 for one Render call after a kill(), else -1
	pendingKillWasAudible bool // whether the channel was actually producing sound when the kill fired
	forceQuantize       bool // Clock.CanQuantize() for the batch being parsed, set via ArmQuantize

	reader *wave.Reader
	wave   *wave.Wave // nil when no wave assigned
}

// NewSamplePlayer returns a SamplePlayer with no wave assigned, pitch 1.0,
// mode LOOP_BASIC.
func NewSamplePlayer() *SamplePlayer {
	sp := &SamplePlayer{reader: wave.NewReader(), pendingKillFrame: -1}
	sp.pitchBits.Store(math.Float32bits(1.0))
	sp.mode.Store(int32(ModeLoopBasic))
	return sp
}

// SetWave assigns w and resets the playable range to its full extent.
// Called from the user thread as part of MixerHandler.LoadWave's swap
// choreography; never called from the audio thread.
func (sp *SamplePlayer) SetWave(w *wave.Wave) {
	sp.wave = w
	sp.begin.Store(0)
	if w != nil {
		sp.end.Store(int64(w.Size()))
		sp.reader.Prepare(w.Channels())
	} else {
		sp.end.Store(0)
	}
	sp.tracker.Store(sp.begin.Load())
	sp.reader.ResetState()
}

func (sp *SamplePlayer) Wave() *wave.Wave { return sp.wave }

func (sp *SamplePlayer) Mode() Mode      { return Mode(sp.mode.Load()) }
func (sp *SamplePlayer) SetMode(m Mode)  { sp.mode.Store(int32(m)) }

func (sp *SamplePlayer) Pitch() float64     { return float64(math.Float32frombits(sp.pitchBits.Load())) }
func (sp *SamplePlayer) SetPitch(p float32) { sp.pitchBits.Store(math.Float32bits(p)) }

func (sp *SamplePlayer) Begin() int64    { return sp.begin.Load() }
func (sp *SamplePlayer) End() int64      { return sp.end.Load() }
func (sp *SamplePlayer) Tracker() int64  { return sp.tracker.Load() }

// SetRange restricts playback to [begin, end) of the assigned wave.
func (sp *SamplePlayer) SetRange(begin, end int64) {
	sp.begin.Store(begin)
	sp.end.Store(end)
}

// OnEvent dispatches one Event against the (status, mode) table of spec
// §4.3. status is read from the owning ChannelState; OnEvent mutates it
// via setStatus when a transition applies.
func (sp *SamplePlayer) OnEvent(ev eventqueue.Event, status Status, setStatus func(Status)) {
	mode := sp.Mode()
	switch ev.Type {
	case eventqueue.Press:
		switch status {
		case StatusOff:
			sp.offset = ev.LocalFrame
			if sp.canQuantize() {
				sp.quantizing = true
			} else if mode.looping() {
				setStatus(StatusWait)
			} else {
				setStatus(StatusPlay)
			}
		case StatusPlay:
			switch mode {
			case ModeSingleRetrig:
				sp.rewind(ev.LocalFrame, setStatus, status)
			case ModeSingleBasic:
				sp.rewind(ev.LocalFrame, setStatus, status)
				setStatus(StatusOff)
			default:
				if mode.looping() || mode == ModeSingleEndless {
					setStatus(StatusEnding)
				}
			}
		}
	case eventqueue.Release:
		if status == StatusPlay && mode == ModeSinglePress {
			sp.kill(ev.LocalFrame, setStatus, true)
		}
	case eventqueue.Kill:
		sp.kill(ev.LocalFrame, setStatus, status == StatusPlay || status == StatusEnding)
	case eventqueue.OnBar:
		switch {
		case mode == ModeLoopRepeat && status == StatusPlay:
			sp.rewind(ev.LocalFrame, setStatus, status)
		case mode == ModeLoopOnceBar && status == StatusWait:
			sp.offset = ev.LocalFrame
		}
	case eventqueue.OnFirstBeat:
		switch {
		case sp.quantizing:
			sp.quantizing = false
			setStatus(StatusPlay)
			sp.offset = ev.LocalFrame
		case status == StatusWait:
			setStatus(StatusPlay)
			sp.offset = ev.LocalFrame
		case status == StatusEnding && mode.looping():
			sp.kill(ev.LocalFrame, setStatus, true)
		case status == StatusPlay && mode.looping():
			sp.rewind(ev.LocalFrame, setStatus, status)
		}
	}
}

// canQuantize reports whether a PRESS on an OFF channel should defer into
// quantizing=true instead of moving to WAIT (looping modes) or PLAY (other
// modes), per spec §9's resolved open question. A SamplePlayer has no Clock
// reference, so Channel.Parse calls ArmQuantize with the Mixer's
// Clock.CanQuantize() value before dispatching each batch of events.
func (sp *SamplePlayer) canQuantize() bool { return sp.forceQuantize }

// rewind implements spec §4.3 rewind(localFrame).
func (sp *SamplePlayer) rewind(localFrame int, setStatus func(Status), status Status) {
	sp.quantizing = false
	if status == StatusPlay || status == StatusEnding {
		sp.rewinding = true
		sp.offset = localFrame
	} else {
		sp.tracker.Store(sp.begin.Load())
	}
}

// kill implements spec §4.3 kill(localFrame): stop, reset tracker, clear
// the channel scratch buffer tail so a mid-block cut doesn't click. The
// tracker reset to begin happens at the end of the following Render call
// rather than here, since Render still needs the pre-kill tracker position
// to fill the audio that legitimately played before localFrame.
func (sp *SamplePlayer) kill(localFrame int, setStatus func(Status), wasAudible bool) {
	setStatus(StatusOff)
	sp.quantizing = false
	sp.pendingKillFrame = localFrame
	sp.pendingKillWasAudible = wasAudible
}

// Render implements spec §4.3 render into scratch, given the current
// status. Returns the (possibly updated) status after the block (ENDING
// transitions to OFF once the tail has played out; the Mixer reads this
// back and stores it on ChannelState).
func (sp *SamplePlayer) Render(scratch *audiobuf.Buffer, status Status) Status {
	if sp.pendingKillFrame >= 0 {
		killFrame := sp.pendingKillFrame
		wasAudible := sp.pendingKillWasAudible
		sp.pendingKillFrame = -1

		scratch.ClearAll()
		if wasAudible && sp.wave != nil {
			sp.reader.Fill(sp.wave, scratch, int(sp.tracker.Load()), int(sp.end.Load()), 0, sp.Pitch())
			if killFrame < scratch.Frames() {
				scratch.Clear(killFrame, scratch.Frames())
			}
		}
		sp.tracker.Store(sp.begin.Load())
		return StatusOff
	}

	if sp.wave == nil || (!sp.rewinding && status != StatusPlay && status != StatusEnding) {
		scratch.ClearAll()
		return status
	}

	begin := sp.begin.Load()
	end := sp.end.Load()
	tracker := sp.tracker.Load()
	pitch := sp.Pitch()
	mode := sp.Mode()

	dstOffset := 0
	if sp.rewinding {
		// Tail of the old position plays out for exactly sp.offset frames
		// (the localFrame the retrigger/rewind landed on), then the new
		// body starts from begin at dstOffset — even when the event that
		// triggered the rewind also stopped the channel (SINGLE_BASIC's
		// second press): the new body still plays once this block before
		// the channel actually falls silent on the next Render call, once
		// status reads OFF with rewinding already cleared.
		sp.reader.FillN(sp.wave, scratch, int(tracker), int(end), 0, pitch, sp.offset)
		dstOffset = sp.offset
		tracker = begin
		sp.rewinding = false
	}

	used := sp.reader.Fill(sp.wave, scratch, int(tracker), int(end), dstOffset, pitch)
	tracker += int64(used)

	if tracker >= end {
		tracker = begin
		if mode.continuesAtBegin() {
			clampedOffset := used
			if clampedOffset > scratch.Frames()-1 {
				clampedOffset = scratch.Frames() - 1
			}
			more := sp.reader.Fill(sp.wave, scratch, int(begin), int(end), clampedOffset, pitch)
			tracker = begin + int64(more)
		} else {
			status = StatusOff
		}
	}

	sp.offset = 0
	sp.tracker.Store(tracker)
	return status
}

// ArmQuantize is called by Channel.Parse, before it dispatches a batch of
// events, to reflect the Mixer's Clock.CanQuantize() for this block.
func (sp *SamplePlayer) ArmQuantize(can bool) { sp.forceQuantize = can }

// ResetToBegin snaps the tracker back to begin outside of the normal
// event/render flow, discarding any in-flight rewind/kill/quantize state.
// Used by Sequencer.rewindChannels (spec §4.11), which resets every
// channel's tracker directly rather than synthesizing a kill event.
func (sp *SamplePlayer) ResetToBegin() {
	sp.tracker.Store(sp.begin.Load())
	sp.rewinding = false
	sp.quantizing = false
	sp.pendingKillFrame = -1
	sp.offset = 0
	sp.reader.ResetState()
}

// IsQuantizing reports whether this player is deferring a PRESS to the
// next ON_FIRST_BEAT.
func (sp *SamplePlayer) IsQuantizing() bool { return sp.quantizing }
