// Package driver wraps malgo to open the engine's playback (and optional
// capture) device and drive the engine's realtime callback. Device
// lifecycle management (context init, device config, start/stop/close) is
// carried over from the teacher's internal/audio Capturer/Player, collapsed
// here into a single duplex-capable driver since the engine mixes its own
// channels into one output block rather than streaming one-shot TTS
// buffers.
package driver

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/malgo"

	"github.com/loopstation/loopcore/internal/audiobuf"
)

// Processor is the realtime callback the driver invokes once per audio
// period. in is nil when no capture device was opened. Implementations
// must not allocate, lock, or perform I/O.
type Processor interface {
	Process(out, in *audiobuf.Buffer)
}

// Driver owns the malgo audio context and the playback/capture devices
// opened against it.
type Driver struct {
	ctx      *malgo.AllocatedContext
	playback *malgo.Device
	capture  *malgo.Device

	sampleRate int
	channels   int
	blockMs    int

	running atomic.Bool

	// captureFrame is fillFromBytes's per-frame scratch, sized once in
	// Start so the capture callback never allocates.
	captureFrame []float32
}

// Open initializes the malgo context. Devices are started separately via
// Start so the caller can construct the Processor (which typically needs
// the opened Driver) before audio begins flowing.
func Open(sampleRate, channels, blockMs int) (*Driver, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("driver: init audio context: %w", err)
	}
	return &Driver{ctx: ctx, sampleRate: sampleRate, channels: channels, blockMs: blockMs}, nil
}

// Start opens the playback device (and, if withCapture is true, a capture
// device) and begins invoking proc.Process from the playback callback.
func (d *Driver) Start(proc Processor, withCapture bool) error {
	var captureBuf *audiobuf.Buffer
	if withCapture {
		buf := audiobuf.New(d.framesPerPeriod(), d.channels)
		captureBuf = &buf
		d.captureFrame = make([]float32, d.channels)

		capConfig := malgo.DefaultDeviceConfig(malgo.Capture)
		capConfig.Capture.Format = malgo.FormatF32
		capConfig.Capture.Channels = uint32(d.channels)
		capConfig.SampleRate = uint32(d.sampleRate)
		capConfig.PeriodSizeInMilliseconds = uint32(d.blockMs)

		onRecv := func(_, in []byte, framecount uint32) {
			fillFromBytes(captureBuf, in, int(framecount), d.channels, d.captureFrame)
		}
		capDevice, err := malgo.InitDevice(d.ctx.Context, capConfig, malgo.DeviceCallbacks{Data: onRecv})
		if err != nil {
			return fmt.Errorf("driver: init capture device: %w", err)
		}
		d.capture = capDevice
	}

	playConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	playConfig.Playback.Format = malgo.FormatF32
	playConfig.Playback.Channels = uint32(d.channels)
	playConfig.SampleRate = uint32(d.sampleRate)
	playConfig.PeriodSizeInMilliseconds = uint32(d.blockMs)

	outBuf := audiobuf.New(d.framesPerPeriod(), d.channels)

	onSend := func(out, _ []byte, framecount uint32) {
		if !d.running.Load() {
			zeroBytes(out)
			return
		}
		frames := int(framecount)
		if frames > outBuf.Frames() {
			frames = outBuf.Frames()
		}
		proc.Process(&outBuf, captureBuf)
		writeToBytes(out, &outBuf, frames, d.channels)
	}

	playDevice, err := malgo.InitDevice(d.ctx.Context, playConfig, malgo.DeviceCallbacks{Data: onSend})
	if err != nil {
		return fmt.Errorf("driver: init playback device: %w", err)
	}
	d.playback = playDevice
	d.running.Store(true)

	if d.capture != nil {
		if err := d.capture.Start(); err != nil {
			return fmt.Errorf("driver: start capture device: %w", err)
		}
	}
	if err := d.playback.Start(); err != nil {
		return fmt.Errorf("driver: start playback device: %w", err)
	}

	log.Info("audio device started", "sampleRate", d.sampleRate, "channels", d.channels, "blockMs", d.blockMs, "capture", withCapture)
	return nil
}

// Stop halts callback delivery and closes both devices. Safe to call more
// than once.
func (d *Driver) Stop() {
	d.running.Store(false)
	if d.playback != nil {
		d.playback.Stop()
		d.playback.Uninit()
		d.playback = nil
	}
	if d.capture != nil {
		d.capture.Stop()
		d.capture.Uninit()
		d.capture = nil
	}
}

// Close stops the devices and releases the malgo context.
func (d *Driver) Close() {
	d.Stop()
	if d.ctx != nil {
		_ = d.ctx.Uninit()
		d.ctx.Free()
		d.ctx = nil
	}
}

func (d *Driver) framesPerPeriod() int {
	return d.sampleRate * d.blockMs / 1000
}

// fillFromBytes decodes raw little-endian f32 samples into dst. frame is
// reused scratch sized to channels — the caller (Driver.Start's capture
// callback) allocates it once up front so this never allocates on the
// audio thread.
func fillFromBytes(dst *audiobuf.Buffer, raw []byte, frames, channels int, frame []float32) {
	n := frames
	if n > dst.Frames() {
		n = dst.Frames()
	}
	for i := 0; i < n; i++ {
		for c := 0; c < channels; c++ {
			off := (i*channels + c) * 4
			if off+4 > len(raw) {
				frame[c] = 0
				continue
			}
			bits := binary.LittleEndian.Uint32(raw[off:])
			frame[c] = math.Float32frombits(bits)
		}
		dst.CopyFrame(i, frame)
	}
}

func writeToBytes(raw []byte, src *audiobuf.Buffer, frames, channels int) {
	for i := 0; i < frames; i++ {
		vals := src.Frame(i)
		for c := 0; c < channels; c++ {
			off := (i*channels + c) * 4
			if off+4 > len(raw) {
				continue
			}
			binary.LittleEndian.PutUint32(raw[off:], math.Float32bits(vals[c]))
		}
	}
}

func zeroBytes(raw []byte) {
	for i := range raw {
		raw[i] = 0
	}
}
