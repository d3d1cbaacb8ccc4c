// Package clock implements the musical transport: bpm, meter, and the
// derived per-frame boundary booleans the Mixer uses to emit ON_BAR and
// ON_FIRST_BEAT events. Spec §4.6.
package clock

// Status is the transport run state.
type Status int

const (
	Stopped Status = iota
	Waiting
	Running
)

// Clock carries tempo/meter state and the current play position, with
// frame counts derived from the device sample rate. It is owned and
// mutated only by the audio thread inside Mixer.Process; tempo/meter
// changes arrive as plain method calls made on the user thread before the
// Engine starts, or are applied between blocks under the caller's own
// serialization (per spec, Clock advances monotonically within a block and
// is otherwise single-writer).
type Clock struct {
	sampleRate int

	bpm       float64
	bars      int
	beats     int // beats per bar
	quantize  int // per-beat subdivision, 0 = no quantization

	framesInBeat int
	framesInBar  int
	framesInLoop int
	framesInSeq  int

	currentFrame int
	status       Status
}

// New creates a Clock for the given device sample rate with the given
// initial tempo and meter.
func New(sampleRate int, bpm float64, bars, beats, quantize int) *Clock {
	c := &Clock{
		sampleRate: sampleRate,
		bpm:        bpm,
		bars:       bars,
		beats:      beats,
		quantize:   quantize,
	}
	c.recompute()
	return c
}

func (c *Clock) recompute() {
	secondsPerBeat := 60.0 / c.bpm
	c.framesInBeat = int(secondsPerBeat * float64(c.sampleRate))
	c.framesInBar = c.framesInBeat * c.beats
	c.framesInLoop = c.framesInBar * c.bars
	c.framesInSeq = c.framesInLoop
	if c.framesInLoop <= 0 {
		c.framesInLoop = c.framesInBeat
	}
}

// SetTempo changes bpm and recomputes derived frame counts.
func (c *Clock) SetTempo(bpm float64) {
	if bpm <= 0 {
		return
	}
	c.bpm = bpm
	c.recompute()
}

// SetMeter changes bar/beat layout and recomputes derived frame counts.
func (c *Clock) SetMeter(bars, beats int) {
	if bars <= 0 || beats <= 0 {
		return
	}
	c.bars = bars
	c.beats = beats
	c.recompute()
}

// SetQuantize changes the per-beat subdivision used by canQuantize.
func (c *Clock) SetQuantize(q int) { c.quantize = q }

func (c *Clock) BPM() float64        { return c.bpm }
func (c *Clock) FramesInBar() int    { return c.framesInBar }
func (c *Clock) FramesInBeat() int   { return c.framesInBeat }
func (c *Clock) FramesInLoop() int   { return c.framesInLoop }
func (c *Clock) CurrentFrame() int   { return c.currentFrame }
func (c *Clock) Status() Status      { return c.status }
func (c *Clock) Quantize() int       { return c.quantize }

// Start transitions the transport to Running.
func (c *Clock) Start() { c.status = Running }

// Stop transitions the transport to Stopped.
func (c *Clock) Stop() { c.status = Stopped }

// Wait transitions the transport to Waiting (armed, not yet advancing).
func (c *Clock) Wait() { c.status = Waiting }

// Rewind resets the play position to the top of the loop.
func (c *Clock) Rewind() { c.currentFrame = 0 }

// Advance moves the clock forward by one frame, wrapping modulo
// framesInLoop, and reports the boundary state observed *before* the
// advance (i.e. whether frame 0-relative position `currentFrame` sits on a
// bar/beat boundary this tick).
func (c *Clock) Advance() (onBar, onBeat, onFirstBeat bool) {
	onBar = c.IsOnBar()
	onBeat = c.IsOnBeat()
	onFirstBeat = c.IsOnFirstBeat()

	c.currentFrame++
	if c.framesInLoop > 0 && c.currentFrame >= c.framesInLoop {
		c.currentFrame -= c.framesInLoop
	}
	return onBar, onBeat, onFirstBeat
}

// IsOnBar reports whether currentFrame sits exactly on a bar boundary.
func (c *Clock) IsOnBar() bool {
	return c.framesInBar > 0 && c.currentFrame%c.framesInBar == 0
}

// IsOnBeat reports whether currentFrame sits exactly on a beat boundary.
func (c *Clock) IsOnBeat() bool {
	return c.framesInBeat > 0 && c.currentFrame%c.framesInBeat == 0
}

// IsOnFirstBeat reports whether currentFrame sits on the first beat of a bar.
func (c *Clock) IsOnFirstBeat() bool {
	return c.IsOnBar()
}

// QuantoHasPassed reports whether currentFrame sits on a quantize-unit
// boundary (the subdivision of a beat configured by quantize).
func (c *Clock) QuantoHasPassed() bool {
	if c.quantize <= 0 || c.framesInBeat <= 0 {
		return false
	}
	quantoFrames := c.framesInBeat / c.quantize
	if quantoFrames <= 0 {
		return false
	}
	return c.currentFrame%quantoFrames == 0
}

// CanQuantize reports whether quantization is currently configured and the
// transport is running, i.e. whether a press/rewind should be deferred to
// the next musical boundary rather than applied immediately.
func (c *Clock) CanQuantize() bool {
	return c.quantize > 0 && c.status == Running
}
