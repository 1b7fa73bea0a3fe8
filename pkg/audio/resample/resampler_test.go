// ABOUTME: Tests for the wavetable resampler
// ABOUTME: Covers interpolation, loop wrapping, end-of-data handling and pitch math
package resample

import (
	"math"
	"testing"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
)

// ramp builds a mono source where frame i holds i/frames
func ramp(frames int) *audio.Data {
	d := audio.NewData(frames, 44100, 1)
	for i := 0; i < frames; i++ {
		d.Set(i, 0, float32(i)/float32(frames))
	}
	return d
}

func TestOutputOnIntegerFrameIsExact(t *testing.T) {
	src := ramp(16)
	r := New(src, 0, 1.0, 0, 0)

	for i := 0; i < 15; i++ {
		want := src.Sample(i, 0)
		if got := r.Output(); got != want {
			t.Errorf("frame %d: expected %f, got %f", i, want, got)
		}
		r.Next()
	}
}

func TestOutputInterpolates(t *testing.T) {
	d := audio.NewData(2, 44100, 1)
	d.Set(0, 0, 0)
	d.Set(1, 0, 1)
	r := New(d, 0, 0.25, 0, 0)

	expected := []float64{0, 0.25, 0.5, 0.75}
	for i, want := range expected {
		if got := r.Output(); math.Abs(got-want) > 1e-9 {
			t.Errorf("step %d: expected %f, got %f", i, want, got)
		}
		r.Next()
	}
}

func TestOutputPastEndIsSilent(t *testing.T) {
	d := audio.NewData(4, 44100, 1)
	for i := 0; i < 4; i++ {
		d.Set(i, 0, 0.5)
	}
	r := New(d, 0, 1.0, 0, 0)

	// Last frame exactly: trailing sample
	for i := 0; i < 3; i++ {
		r.Next()
	}
	if got := r.Output(); got != 0.5 {
		t.Errorf("expected last sample 0.5 at final frame, got %f", got)
	}

	// Just past end-of-data, inside the tolerance window
	r.Next()
	r.position += 0.0005
	if got := r.Output(); got != 0.5 {
		t.Errorf("expected trailing sample inside tolerance, got %f", got)
	}

	// Well past the end
	r.position = 10.3
	if got := r.Output(); got != 0 {
		t.Errorf("expected silence past end, got %f", got)
	}

	// Between last frame and end, outside tolerance
	r.position = 3.5
	if got := r.Output(); got != 0 {
		t.Errorf("expected silence at 3.5, got %f", got)
	}
}

func TestLoopWrapKeepsPositionInsideLoop(t *testing.T) {
	src := ramp(300)
	r := New(src, 0, 1.0, 100, 200)

	exceeded := false
	for tick := 0; tick < 1000; tick++ {
		r.Next()
		if r.Position() > 200 {
			exceeded = true
		}
		if !exceeded {
			continue
		}
		pos := r.ReadPosition()
		if pos < 100 || pos >= 200 {
			t.Fatalf("tick %d: wrapped position %f outside [100,200)", tick, pos)
		}
	}
	if !exceeded {
		t.Fatal("position never passed the loop end")
	}
}

func TestLoopWrapKeepsFraction(t *testing.T) {
	src := ramp(300)
	r := New(src, 0, 1.0, 100, 200)
	r.position = 250.25

	if got := r.ReadPosition(); math.Abs(got-150.25) > 1e-9 {
		t.Errorf("expected 150.25, got %f", got)
	}

	r.position = 401.5 // three laps past the start
	if got := r.ReadPosition(); math.Abs(got-101.5) > 1e-9 {
		t.Errorf("expected 101.5, got %f", got)
	}

	want := src.Sample(101, 0)*0.5 + src.Sample(102, 0)*0.5
	if got := r.Output(); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected interpolated %f, got %f", want, got)
	}
}

func TestInvalidLoopDisablesLooping(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
	}{
		{"equal", 10, 10},
		{"inverted", 20, 10},
		{"zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(ramp(32), 0, 1.0, tt.start, tt.end)
			if r.Looping() {
				t.Error("expected looping to be disabled")
			}
			r.position = 64
			if got := r.Output(); got != 0 {
				t.Errorf("expected silence, got %f", got)
			}
		})
	}
}

func TestPitchOffsetOctaves(t *testing.T) {
	r := New(ramp(8), 0, 0.75, 0, 0)

	r.PitchOffset(1200)
	if r.Speed() != 1.5 {
		t.Errorf("expected +1200 cents to double speed to 1.5, got %f", r.Speed())
	}

	r.PitchOffset(-1200)
	if r.Speed() != 0.375 {
		t.Errorf("expected -1200 cents to halve speed to 0.375, got %f", r.Speed())
	}

	r.PitchOffset(0)
	if r.Speed() != 0.75 {
		t.Errorf("expected 0 cents to restore base speed 0.75, got %f", r.Speed())
	}
}

func TestPitchOffsetDoesNotCompound(t *testing.T) {
	r := New(ramp(8), 0, 1.0, 0, 0)
	for i := 0; i < 5; i++ {
		r.PitchOffset(700)
	}
	want := math.Pow(2, 700.0/1200.0)
	if math.Abs(r.Speed()-want) > 1e-12 {
		t.Errorf("expected %f, got %f", want, r.Speed())
	}
}

func TestResetKeepsSpeed(t *testing.T) {
	r := New(ramp(8), 0, 1.0, 0, 0)
	r.PitchOffset(1200)
	r.Next()
	r.Next()
	r.Reset()

	if r.Position() != 0 {
		t.Errorf("expected position 0 after reset, got %f", r.Position())
	}
	if r.Speed() != 2 {
		t.Errorf("expected speed 2 after reset, got %f", r.Speed())
	}
}

func TestGuards(t *testing.T) {
	if got := New(nil, 0, 1, 0, 0).Output(); got != 0 {
		t.Errorf("nil source: expected 0, got %f", got)
	}
	if got := New(audio.NewData(0, 44100, 1), 0, 1, 0, 0).Output(); got != 0 {
		t.Errorf("empty source: expected 0, got %f", got)
	}
	if got := New(ramp(8), 1, 1, 0, 0).Output(); got != 0 {
		t.Errorf("missing channel: expected 0, got %f", got)
	}

	r := New(ramp(8), 0, 1, 0, 0)
	r.PitchOffset(-25600)
	r.Next()
	if r.Position() <= 0 || r.Position() > 1e-6 {
		t.Errorf("expected a vanishing advance, got position %g", r.Position())
	}
}
