// Reader is the realtime-safe fill path used by SamplePlayer.render. The
// resample branch is the teacher's internal/audio.Resampler technique
// (persistent last-sample-derived fractional position carried across
// calls) generalized from a one-shot stream converter to a seek-based,
// begin/end-ranged, per-channel-interleaved reader.
package wave

import "github.com/loopstation/loopcore/internal/audiobuf"

// Reader fills a destination AudioBuffer with audio from a Wave's
// [start, end) range at a given pitch. One Reader instance belongs to
// exactly one channel's SamplePlayer; its persistent fractional read
// position (frac) must not be shared across channels.
type Reader struct {
	frac   float64   // fractional source-frame carried across Fill calls
	interp []float32 // resample scratch, sized by Prepare — never grown on the audio thread
}

// NewReader returns a Reader with freshly-zeroed resample state.
func NewReader() *Reader { return &Reader{} }

// ResetState zeroes the persistent fractional position. SamplePlayer calls
// it when a wave is assigned (SetWave) and when the sequencer snaps the
// tracker back to begin (ResetToBegin); rewind and kill do not.
func (r *Reader) ResetState() { r.frac = 0 }

// Prepare sizes the resample scratch buffer for the given channel count.
// Callers must invoke this from the user thread (SamplePlayer.SetWave does,
// whenever a wave is assigned) before Fill/FillN ever runs on the audio
// thread, so fillResample never allocates there.
func (r *Reader) Prepare(channels int) {
	if cap(r.interp) < channels {
		r.interp = make([]float32, channels)
		return
	}
	r.interp = r.interp[:channels]
}

// Fill writes audio from wave[start, end) into dst starting at dstOffset,
// at the given pitch ratio, and returns the number of whole *source*
// frames consumed (so the caller can advance its integer tracker).
//
// pitch == 1.0 takes the copy path (memcpy-equivalent, no resample state
// touched). pitch != 1.0 takes the linear-interpolation resample path,
// consuming the persistent fractional remainder left over from the
// previous call so that pitch shifting stays phase-continuous across
// block boundaries.
//
// Fill produces as many output frames as fit in dst from dstOffset onward.
// Use FillN to cap production to fewer frames than that (the tail-then-body
// split a mid-block rewind needs).
func (r *Reader) Fill(wave *Wave, dst *audiobuf.Buffer, start, end, dstOffset int, pitch float64) int {
	return r.FillN(wave, dst, start, end, dstOffset, pitch, dst.Frames()-dstOffset)
}

// FillN is Fill with an explicit output-frame cap, further clamped to what
// actually fits in dst from dstOffset onward.
func (r *Reader) FillN(wave *Wave, dst *audiobuf.Buffer, start, end, dstOffset int, pitch float64, maxOut int) int {
	outCount := dst.Frames() - dstOffset
	if maxOut < outCount {
		outCount = maxOut
	}
	if outCount <= 0 || start >= end {
		return 0
	}

	if pitch == 1.0 {
		return r.fillCopy(wave, dst, start, end, dstOffset, outCount)
	}
	return r.fillResample(wave, dst, start, end, dstOffset, outCount, pitch)
}

func (r *Reader) fillCopy(wave *Wave, dst *audiobuf.Buffer, start, end, dstOffset, outCount int) int {
	avail := end - start
	n := outCount
	if n > avail {
		n = avail
	}
	srcBuf := wave.Buffer()
	for i := 0; i < n; i++ {
		dst.CopyFrame(dstOffset+i, srcBuf.Frame(start+i))
	}
	return n
}

func (r *Reader) fillResample(wave *Wave, dst *audiobuf.Buffer, start, end, dstOffset, outCount int, pitch float64) int {
	srcBuf := wave.Buffer()
	channels := srcBuf.Channels()
	if len(r.interp) != channels {
		r.Prepare(channels)
	}
	interp := r.interp

	produced := 0
	pos := r.frac
	for produced < outCount {
		srcIdx := start + int(pos)
		if srcIdx >= end-1 {
			if srcIdx >= end {
				break
			}
			// Last available frame: hold it rather than read past end.
			copy(interp, srcBuf.Frame(srcIdx))
			dst.CopyFrame(dstOffset+produced, interp)
			produced++
			pos += pitch
			continue
		}

		frac := float32(pos - float64(int(pos)))
		s0 := srcBuf.Frame(srcIdx)
		s1 := srcBuf.Frame(srcIdx + 1)
		for c := 0; c < channels; c++ {
			interp[c] = s0[c] + (s1[c]-s0[c])*frac
		}
		dst.CopyFrame(dstOffset+produced, interp)
		produced++
		pos += pitch
	}

	used := int(pos)
	r.frac = pos - float64(used)
	return used
}
