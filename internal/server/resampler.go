// ABOUTME: Streaming sample rate converter for listener audio
// ABOUTME: Linear interpolation that carries state across consecutive chunks
package server

// Resampler converts interleaved int32 audio between sample rates. It keeps
// the last input frame and the fractional read position so consecutive
// chunks join without clicks.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int

	step   float64 // input frames per output frame
	pos    float64 // read position; 0 is the carried frame
	last   []int32
	primed bool
}

// NewResampler creates a converter from inputRate to outputRate
func NewResampler(inputRate, outputRate, channels int) *Resampler {
	if channels < 1 {
		channels = 1
	}
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		step:       float64(inputRate) / float64(outputRate),
		last:       make([]int32, channels),
	}
}

// OutputSize returns an upper bound on the samples Resample writes for
// inputSamples samples of input
func (r *Resampler) OutputSize(inputSamples int) int {
	frames := inputSamples / r.channels
	return (int(float64(frames)/r.step) + 2) * r.channels
}

// Resample converts input into output and returns the number of samples
// written. Input that does not fit into output is dropped.
func (r *Resampler) Resample(input, output []int32) int {
	ch := r.channels
	frames := len(input) / ch
	if frames == 0 {
		return 0
	}

	if !r.primed {
		copy(r.last, input[:ch])
		r.primed = true
	}

	// Frame k of the extended stream is the carried frame for k == 0 and
	// input frame k-1 otherwise.
	sample := func(k, c int) int32 {
		if k == 0 {
			return r.last[c]
		}
		return input[(k-1)*ch+c]
	}

	maxOut := len(output) / ch
	n := 0
	for n < maxOut {
		i := int(r.pos)
		if i >= frames {
			break
		}
		frac := r.pos - float64(i)
		for c := 0; c < ch; c++ {
			a := float64(sample(i, c))
			b := float64(sample(i+1, c))
			output[n*ch+c] = int32(a + (b-a)*frac)
		}
		n++
		r.pos += r.step
	}

	r.pos -= float64(frames)
	if r.pos < 0 {
		r.pos = 0
	}
	copy(r.last, input[(frames-1)*ch:frames*ch])

	return n * ch
}
