package engine

import (
	"errors"
	"fmt"

	"github.com/loopstation/loopcore/internal/wave"
)

// QueueFull is returned when a caller's event could not be enqueued
// because the target queue (UI or MIDI) is at capacity. The event is
// dropped; the queue's own dropped counter is already incremented by the
// time this is returned.
type QueueFull struct {
	Queue string
}

func (e *QueueFull) Error() string {
	return fmt.Sprintf("engine: %s event queue is full, event dropped", e.Queue)
}

// WaveLoad reports a failed LoadWave call, wrapping the underlying
// wave.Status (spec §7). It is a distinct type with the same fields as
// mixer.WaveLoadError; Engine.LoadWave translates the mixer error into it
// so callers checking errors.As get one shape.
type WaveLoad struct {
	Path   string
	Status wave.Status
}

func (e *WaveLoad) Error() string {
	return fmt.Sprintf("engine: load wave %q: %s", e.Path, e.Status)
}

// DeviceError reports a failure opening, starting or stopping the audio
// device (spec §7).
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("engine: audio device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// ResamplerInit reports a failure preparing the realtime pitch resampler
// state for a newly assigned wave (spec §7).
type ResamplerInit struct {
	ChannelID string
	Err       error
}

func (e *ResamplerInit) Error() string {
	return fmt.Sprintf("engine: init resampler for channel %q: %v", e.ChannelID, e.Err)
}

func (e *ResamplerInit) Unwrap() error { return e.Err }

// ErrNotRunning is returned by engine methods that require the device to
// be started first.
var ErrNotRunning = errors.New("engine: device not started")
