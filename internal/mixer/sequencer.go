package mixer

import (
	"sync/atomic"

	"github.com/loopstation/loopcore/internal/channel"
	"github.com/loopstation/loopcore/internal/clock"
	"github.com/loopstation/loopcore/internal/rcu"
)

// Sequencer implements spec §4.11's transport controls: Start, Stop,
// Toggle, Rewind. It holds no audio-thread state beyond rewindWait, which
// Mixer.Process consumes once per quanto boundary.
type Sequencer struct {
	clock    *clock.Clock
	channels *rcu.List[*channel.Channel]

	rewindWait atomic.Bool
}

func newSequencer(c *clock.Clock, channels *rcu.List[*channel.Channel]) *Sequencer {
	return &Sequencer{clock: c, channels: channels}
}

// Start transitions STOPPED or WAITING to RUNNING (spec §4.11). Any active
// action recording is expected to stop as a side effect of the caller's
// own recording-arm bookkeeping, which lives outside the Sequencer per
// spec §1 Non-goals (action-recording timeline is an external concern).
func (s *Sequencer) Start() {
	if s.clock.Status() != clock.Running {
		s.clock.Start()
	}
}

// Stop transitions to STOPPED and calls StopBySeq on every non-internal
// channel (spec §4.11).
func (s *Sequencer) Stop() {
	s.clock.Stop()
	for _, ch := range s.channels.Snapshot() {
		ch.StopBySeq(0)
	}
}

// Toggle starts the transport if it is not running, else stops it.
func (s *Sequencer) Toggle() {
	if s.clock.Status() == clock.Running {
		s.Stop()
	} else {
		s.Start()
	}
}

// Rewind resets the play position to the top of the loop. If quantization
// is configured and the transport is running, the rewind is deferred to
// the next quanto boundary (consumed by Mixer.Process); otherwise it
// applies immediately.
func (s *Sequencer) Rewind() {
	if s.clock.CanQuantize() {
		s.rewindWait.Store(true)
		return
	}
	s.rewindNow()
}

func (s *Sequencer) rewindNow() {
	s.clock.Rewind()
	s.rewindChannels()
}

func (s *Sequencer) rewindChannels() {
	for _, ch := range s.channels.Snapshot() {
		if !ch.IsInternal() {
			ch.RewindToBegin()
		}
	}
}

// consumeRewindWait is called once per frame from Mixer.Process. If a
// rewind is pending and quantoPassed is true this frame, it clears the
// pending flag, resets the clock position, and reports true so the caller
// rewinds every channel's tracker this frame.
func (s *Sequencer) consumeRewindWait(quantoPassed bool) bool {
	if !quantoPassed || !s.rewindWait.Load() {
		return false
	}
	s.rewindWait.Store(false)
	s.clock.Rewind()
	return true
}
