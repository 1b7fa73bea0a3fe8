// ABOUTME: Fractional-position wavetable reader with linear interpolation
// ABOUTME: Plays a Source at a pitch-shifted speed, optionally looping a region
package resample

import (
	"math"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
)

const (
	// centsPerOctave is 100 cents per semitone * 12 semitones
	centsPerOctave = 1200.0

	// tailTolerance is how far past the last frame (in frames) still reads
	// the final sample instead of silence
	tailTolerance = 0.001
)

// Resampler reads one channel of a Source at a fractional position
type Resampler struct {
	source    audio.Source
	channel   int
	position  float64
	speed     float64 // current per-tick advance
	base      float64 // speed before pitch offset
	loopStart int
	loopEnd   int
}

// New creates a resampler over one channel of src. The loop region is
// [loopStart, loopEnd]; loopStart >= loopEnd disables looping.
func New(src audio.Source, channel int, speed float64, loopStart, loopEnd int) *Resampler {
	r := &Resampler{}
	r.Bind(src, channel, speed, loopStart, loopEnd)
	return r
}

// Bind re-targets the resampler in place, rewinding to position 0 with
// no pitch offset
func (r *Resampler) Bind(src audio.Source, channel int, speed float64, loopStart, loopEnd int) {
	*r = Resampler{
		source:    src,
		channel:   channel,
		speed:     speed,
		base:      speed,
		loopStart: loopStart,
		loopEnd:   loopEnd,
	}
}

// Looping reports whether a loop region is active
func (r *Resampler) Looping() bool {
	return r.loopStart >= 0 && r.loopStart < r.loopEnd
}

// Position returns the raw (unwrapped) read position in frames
func (r *Resampler) Position() float64 {
	return r.position
}

// Speed returns the current per-tick advance in frames
func (r *Resampler) Speed() float64 {
	return r.speed
}

// BaseSpeed returns the advance before any pitch offset
func (r *Resampler) BaseSpeed() float64 {
	return r.base
}

// ReadPosition returns the position actually read, after loop wrapping
func (r *Resampler) ReadPosition() float64 {
	index, _ := r.wrap()
	return index
}

// wrap folds positions past the loop end back into the loop by whole
// loop intervals, keeping the fractional offset
func (r *Resampler) wrap() (float64, bool) {
	if !r.Looping() || r.position <= float64(r.loopEnd) {
		return r.position, false
	}
	interval := float64(r.loopEnd - r.loopStart)
	laps := math.Floor((r.position - float64(r.loopStart)) / interval)
	return r.position - laps*interval, true
}

// Output returns the interpolated sample at the current position
func (r *Resampler) Output() float64 {
	if r.source == nil {
		return 0
	}
	frames := r.source.Frames()
	if frames == 0 || r.position < 0 || r.channel < 0 || r.channel >= r.source.Channels() {
		return 0
	}

	index, looped := r.wrap()
	i := int(index)
	e := i + 1
	if looped && e >= frames {
		e = r.loopStart
	}
	frac := index - float64(i)

	if i < frames && e < frames {
		return r.source.Sample(i, r.channel)*(1-frac) + r.source.Sample(e, r.channel)*frac
	}

	// End of data: the last frame itself, or within tolerance just past it
	last := frames - 1
	if (i == last || i == frames) && frac < tailTolerance {
		return r.source.Sample(last, r.channel)
	}
	return 0
}

// Next advances the read position by one tick
func (r *Resampler) Next() {
	r.position += r.speed
}

// PitchOffset sets the advance to the base speed shifted by cents.
// Always relative to the base speed, so calls never compound.
func (r *Resampler) PitchOffset(cents float64) {
	r.speed = r.base * math.Pow(2, cents/centsPerOctave)
}

// Reset rewinds to the start of the data; speed and pitch are untouched
func (r *Resampler) Reset() {
	r.position = 0
}
