// FileResampler is the teacher's PolyphaseResampler (internal/audio/polyphase.go)
// carried over unchanged in algorithm, renamed out of its STT framing: here
// it converts a decoded wave file's native sample rate to the device's
// sample rate once at load time, off the audio thread, so the realtime
// Reader never has to do anti-aliased filtering.
package wave

import "math"

// FileResampler performs a one-shot sample-rate conversion of a whole
// channel's worth of samples. Downsampling uses a windowed-sinc FIR filter
// to avoid aliasing; upsampling uses linear interpolation, which introduces
// no aliasing in that direction.
type FileResampler struct {
	ratio     float64
	filterLen int
	filter    []float32
}

// NewFileResampler builds a resampler converting fromRate to toRate.
func NewFileResampler(fromRate, toRate int) *FileResampler {
	ratio := float64(toRate) / float64(fromRate)
	filterLen := 64

	cutoff := 0.5
	if ratio < 1.0 {
		cutoff = ratio * 0.5
	}

	filter := make([]float32, filterLen)
	for i := 0; i < filterLen; i++ {
		n := float64(i) - float64(filterLen-1)/2.0
		if n == 0 {
			filter[i] = float32(2.0 * cutoff)
		} else {
			sinc := math.Sin(2.0*math.Pi*cutoff*n) / (math.Pi * n)
			window := 0.54 - 0.46*math.Cos(2.0*math.Pi*float64(i)/float64(filterLen-1))
			filter[i] = float32(sinc * window)
		}
	}

	sum := float32(0.0)
	for _, f := range filter {
		sum += f
	}
	if sum != 0 {
		for i := range filter {
			filter[i] /= sum
		}
	}

	return &FileResampler{ratio: ratio, filterLen: filterLen, filter: filter}
}

// Resample converts a full channel buffer in one pass. There is no
// persistent state across calls; a FileResampler is used once per channel
// per file.
func (r *FileResampler) Resample(input []float32) []float32 {
	if r.ratio == 1.0 || len(input) == 0 {
		return input
	}
	if r.ratio > 1.0 {
		return r.upsample(input)
	}
	return r.downsample(input)
}

func (r *FileResampler) upsample(input []float32) []float32 {
	inputLen := len(input)
	outputLen := int(float64(inputLen) * r.ratio)
	output := make([]float32, outputLen)

	for i := 0; i < outputLen; i++ {
		srcPos := float64(i) / r.ratio
		srcIdx := int(srcPos)
		frac := float32(srcPos - float64(srcIdx))

		sample1 := input[0]
		if srcIdx < inputLen {
			sample1 = input[srcIdx]
		} else {
			sample1 = input[inputLen-1]
		}

		sample2 := sample1
		if srcIdx+1 < inputLen {
			sample2 = input[srcIdx+1]
		}

		output[i] = sample1 + (sample2-sample1)*frac
	}
	return output
}

func (r *FileResampler) downsample(input []float32) []float32 {
	inputLen := len(input)
	outputLen := int(float64(inputLen) * r.ratio)
	output := make([]float32, outputLen)

	half := r.filterLen / 2
	for i := 0; i < outputLen; i++ {
		srcPos := float64(i) / r.ratio
		srcIdx := int(srcPos)

		sample := float32(0.0)
		for j := 0; j < r.filterLen; j++ {
			idx := srcIdx - half + j
			if idx >= 0 && idx < inputLen {
				sample += input[idx] * r.filter[j]
			}
		}
		output[i] = sample
	}
	return output
}
