// ABOUTME: Four phase ADSR amplitude envelope
// ABOUTME: Linear attack, exponential decay and release, held sustain
package synth

import "math"

// DefaultDynamicRange is the loudness drop in dB that decay and release
// cover over their configured duration (the 16-bit dynamic range)
const DefaultDynamicRange = 96.0

// Phase is the current stage of an envelope
type Phase int

const (
	Attack Phase = iota
	Decay
	Sustain
	Release
)

func (p Phase) String() string {
	switch p {
	case Attack:
		return "attack"
	case Decay:
		return "decay"
	case Sustain:
		return "sustain"
	case Release:
		return "release"
	default:
		return "unknown"
	}
}

// EnvelopeParams holds envelope timing in seconds and the sustain ratio
type EnvelopeParams struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// Envelope is an amplitude multiplier in [0,1] that moves through
// Attack, Decay, Sustain and Release one sample at a time
type Envelope struct {
	phase         Phase
	level         float64
	sustainLevel  float64
	attackStep    float64
	decayFactor   float64
	releaseFactor float64
	instant       bool // zero attack time
}

// NewEnvelope builds an envelope for the given sampling rate using the
// default 96 dB decay reference
func NewEnvelope(p EnvelopeParams, rate float64) Envelope {
	return NewEnvelopeRef(p, rate, DefaultDynamicRange)
}

// NewEnvelopeRef builds an envelope whose decay and release cover db decibels
func NewEnvelopeRef(p EnvelopeParams, rate, db float64) Envelope {
	e := Envelope{
		phase:         Attack,
		sustainLevel:  clamp01(p.Sustain),
		attackStep:    AttackIncrement(p.Attack, rate),
		decayFactor:   ExpDegradeRateRef(p.Decay, rate, db),
		releaseFactor: ExpDegradeRateRef(p.Release, rate, db),
		instant:       p.Attack == 0,
	}
	if e.instant {
		e.level = 1
	}
	return e
}

// AttackIncrement is the per-sample linear step that ramps 0 to 1 in t
// seconds. A zero duration or rate jumps straight to full scale.
func AttackIncrement(t, rate float64) float64 {
	if t == 0 || rate == 0 {
		return 1
	}
	return 1 / (t * rate)
}

// ExpDegradeRate is the per-sample multiplier that drops a signal by
// DefaultDynamicRange dB over t seconds
func ExpDegradeRate(t, rate float64) float64 {
	return ExpDegradeRateRef(t, rate, DefaultDynamicRange)
}

// ExpDegradeRateRef is ExpDegradeRate with an explicit dB reference.
// t == 0 silences immediately (0); rate == 0 never changes (1).
func ExpDegradeRateRef(t, rate, db float64) float64 {
	if t == 0 {
		return 0
	}
	if rate == 0 {
		return 1
	}
	k := math.Ln10 * (db / 20) / t
	return math.Exp(-k / rate)
}

// Next advances the envelope by one sample
func (e *Envelope) Next() {
	switch e.phase {
	case Attack:
		e.level += e.attackStep
		if e.level >= 1 {
			e.level = 1
			e.phase = Decay
		}
	case Decay:
		e.level *= e.decayFactor
		if e.level <= e.sustainLevel {
			e.level = e.sustainLevel
		}
	case Sustain:
	default:
		e.level *= e.releaseFactor
	}
	e.level = clamp01(e.level)
}

// SustainOff moves the envelope into Release from any phase
func (e *Envelope) SustainOff() {
	e.phase = Release
}

// Hold pins the envelope at its current level until SustainOff or Reset
func (e *Envelope) Hold() {
	e.phase = Sustain
}

// Reset re-arms the envelope at the start of Attack. Level restarts at 0,
// or at full scale when the attack time is zero.
func (e *Envelope) Reset() {
	e.level = 0
	if e.instant {
		e.level = 1
	}
	e.phase = Attack
}

// Output returns the current amplitude
func (e *Envelope) Output() float64 {
	return e.level
}

// Phase returns the current stage
func (e *Envelope) Phase() Phase {
	return e.phase
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
