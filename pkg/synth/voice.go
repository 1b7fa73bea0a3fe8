// ABOUTME: A single sounding note of the synthesizer
// ABOUTME: Couples an envelope with a resampler bound to the note's zone
package synth

import "github.com/Resonate-Protocol/resonate-synth/pkg/audio/resample"

const (
	// freeKey marks a voice that is not sounding
	freeKey = -1

	// silencedCents parks a freed voice's resampler far below hearing
	silencedCents = -25600.0
)

// Voice is one slot of the pool. A negative key means the slot is free.
type Voice struct {
	key        int // cents
	velocity   float64
	instrument int
	env        Envelope
	phase      resample.Resampler

	epsilon float64
	mixDown float64
}

// Free reports whether the voice is available for assignment
func (v *Voice) Free() bool {
	return v.key < 0
}

// Key returns the voice's note in cents, negative when free
func (v *Voice) Key() int {
	return v.key
}

// Output is the enveloped, mixed-down sample for this tick
func (v *Voice) Output() float64 {
	if v.Free() {
		return 0
	}
	return v.phase.Output() * v.env.Output() * v.mixDown
}

// Next advances the voice one tick, freeing it once a release has decayed
// below the audibility epsilon
func (v *Voice) Next() {
	if v.Free() {
		return
	}
	if v.env.Phase() == Release && v.env.Output() < v.epsilon {
		v.key = freeKey
		v.velocity = 0
		v.phase.PitchOffset(silencedCents)
		return
	}
	v.phase.Next()
	v.env.Next()
}

// Play binds the resampler to the zone of the voice's instrument that
// covers its key, at the given host sampling rate
func (v *Voice) Play(rate float64, bank Bank) {
	zone := bank.Instrument(v.instrument).Zone(float64(v.key))
	if zone == nil || zone.Source == nil {
		v.phase.Bind(nil, 0, 0, 0, 0)
		return
	}

	speed := zone.Speed
	if native := zone.Source.SampleRate(); native > 0 {
		if ratio := rate / float64(native); ratio != 0 {
			speed *= ratio
		}
	}

	v.phase.Bind(zone.Source, zone.Channel, speed, zone.LoopStart, zone.LoopEnd)
	v.phase.PitchOffset(float64(v.key) - A440Cents)
}

// pitch applies a total offset from the voice's tuned pitch in cents
func (v *Voice) pitch(cents float64) {
	v.phase.PitchOffset(cents + float64(v.key) - A440Cents)
}
