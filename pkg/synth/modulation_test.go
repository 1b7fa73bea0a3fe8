// ABOUTME: Tests for pitch bend, vibrato and volume control
// ABOUTME: Verifies wheel scaling and per-voice pitch application
package synth

import (
	"math"
	"testing"
)

func TestControllerScaling(t *testing.T) {
	p := NewPool(testConfig(2), singleFrameBank(), nil)
	c := p.ctrl

	c.PitchWheel(p, 1)
	if c.Bend() != 200 {
		t.Errorf("expected bend 200 cents, got %f", c.Bend())
	}
	c.PitchWheel(p, -0.5)
	if c.Bend() != -100 {
		t.Errorf("expected bend -100 cents, got %f", c.Bend())
	}
	c.PitchWheel(p, 3)
	if c.Bend() != 200 {
		t.Errorf("expected out-of-range wheel clamped to 200, got %f", c.Bend())
	}

	c.ModWheel(p, 127)
	if c.Vibrato() != 200 {
		t.Errorf("expected vibrato depth 200, got %f", c.Vibrato())
	}

	c.Volume(127)
	if c.VolumeRatio() != 1 {
		t.Errorf("expected volume 1, got %f", c.VolumeRatio())
	}
	c.Volume(0)
	if c.VolumeRatio() != 0 {
		t.Errorf("expected volume 0, got %f", c.VolumeRatio())
	}
}

func TestPitchWheelRetunesSoundingVoices(t *testing.T) {
	p := NewPool(testConfig(2), singleFrameBank(), nil)
	p.NoteOn(69, 127)
	base := p.voices[0].phase.BaseSpeed()

	p.ctrl.PitchWheel(p, 1)
	want := base * math.Pow(2, 200.0/1200)
	if got := p.voices[0].phase.Speed(); math.Abs(got-want) > 1e-12 {
		t.Errorf("expected speed %f after +200 cents, got %f", want, got)
	}

	p.ctrl.PitchWheel(p, 0)
	if got := p.voices[0].phase.Speed(); got != base {
		t.Errorf("expected base speed %f with wheel centred, got %f", base, got)
	}
}

func TestNoteOnHonoursHeldBend(t *testing.T) {
	p := NewPool(testConfig(2), singleFrameBank(), nil)
	p.ctrl.PitchWheel(p, -1)
	p.NoteOn(69, 127)

	want := p.voices[0].phase.BaseSpeed() * math.Pow(2, -200.0/1200)
	if got := p.voices[0].phase.Speed(); math.Abs(got-want) > 1e-12 {
		t.Errorf("expected bent speed %f, got %f", want, got)
	}
}

func TestVibratoOscillatesAroundPitch(t *testing.T) {
	cfg := testConfig(1)
	cfg.SampleRate = 1000
	p := NewPool(cfg, singleFrameBank(), nil)
	p.NoteOn(69, 127)
	base := p.voices[0].phase.BaseSpeed()

	p.ctrl.ModWheel(p, 127)
	lo, hi := math.Inf(1), math.Inf(-1)
	// one full 5 Hz cycle at 1 kHz is 200 ticks
	for i := 0; i < 200; i++ {
		p.Next()
		s := p.voices[0].phase.Speed()
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}

	wantHi := base * math.Pow(2, 200.0/1200)
	wantLo := base * math.Pow(2, -200.0/1200)
	if math.Abs(hi-wantHi) > 1e-3 || math.Abs(lo-wantLo) > 1e-3 {
		t.Errorf("expected swing [%f,%f], got [%f,%f]", wantLo, wantHi, lo, hi)
	}
	if p.ctrl.lfoPhase < 0 || p.ctrl.lfoPhase > twoPi {
		t.Errorf("expected lfo phase within one cycle, got %f", p.ctrl.lfoPhase)
	}

	p.ctrl.ModWheel(p, 0)
	if got := p.voices[0].phase.Speed(); got != base {
		t.Errorf("expected vibrato off to restore %f, got %f", base, got)
	}
}

func TestVibratoSkipsFreeVoices(t *testing.T) {
	p := NewPool(testConfig(2), singleFrameBank(), nil)
	p.ctrl.ModWheel(p, 64)
	before := p.voices[1].phase.Speed()
	for i := 0; i < 100; i++ {
		p.Next()
	}
	if got := p.voices[1].phase.Speed(); got != before {
		t.Errorf("expected free voice pitch untouched, got %f -> %f", before, got)
	}
}
