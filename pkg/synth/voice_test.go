// ABOUTME: Tests for single voice behaviour
// ABOUTME: Covers release-to-free, zone selection and playback speed
package synth

import (
	"math"
	"testing"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
)

func constantSource(frames, rate int, value float32) *audio.Data {
	d := audio.NewData(frames, rate, 1)
	for i := 0; i < frames; i++ {
		d.Set(i, 0, value)
	}
	return d
}

func TestVoiceReleaseToFree(t *testing.T) {
	// 0.5 per tick from 1.0 drops under 0.01 after 7 halvings; one more
	// tick notices and frees the voice
	const bound = 8

	for _, start := range []float64{1, 0.75, 0.3, 0.02, 0.011, 0.005} {
		v := Voice{
			key:     6900,
			epsilon: 0.01,
			mixDown: 0.3,
			env: Envelope{
				phase:         Release,
				level:         start,
				releaseFactor: 0.5,
			},
		}

		ticks := 0
		for !v.Free() && ticks <= bound {
			v.Next()
			ticks++
		}
		if !v.Free() {
			t.Errorf("start %g: voice still sounding after %d ticks", start, bound)
			continue
		}
		if v.velocity != 0 {
			t.Errorf("start %g: expected velocity reset, got %f", start, v.velocity)
		}
		if v.Output() != 0 {
			t.Errorf("start %g: expected freed voice to be silent", start)
		}
	}
}

func TestVoiceFreeSilencesPitch(t *testing.T) {
	bank := Bank{{Name: "a", Zones: []Zone{{Source: constantSource(8, 44100, 1), Speed: 1}}}}
	v := Voice{key: 6900, epsilon: 0.01, mixDown: 0.3}
	v.Play(44100, bank)
	v.env = Envelope{phase: Release, level: 0.001, releaseFactor: 0.5}

	v.Next()
	if !v.Free() {
		t.Fatal("expected voice to be freed")
	}
	if v.phase.Speed() > 1e-6 {
		t.Errorf("expected resampler parked far below hearing, got speed %g", v.phase.Speed())
	}
}

func TestVoiceFreeNextIsNoop(t *testing.T) {
	v := Voice{key: freeKey, env: Envelope{phase: Attack, attackStep: 0.5}}
	v.Next()
	if v.env.Output() != 0 {
		t.Errorf("expected free voice envelope untouched, got %f", v.env.Output())
	}
}

func TestVoiceOutputMixesDown(t *testing.T) {
	bank := Bank{{Name: "a", Zones: []Zone{{Source: constantSource(8, 44100, 0.5), Speed: 1}}}}
	v := Voice{key: 6900, epsilon: 0.01, mixDown: 0.3, env: Envelope{phase: Sustain, level: 0.8}}
	v.Play(44100, bank)

	want := 0.5 * 0.8 * 0.3
	if got := v.Output(); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %f, got %f", want, got)
	}
}

func TestInstrumentZoneSelection(t *testing.T) {
	in := &Instrument{
		Name: "piano",
		Zones: []Zone{
			{Name: "low", UpperCents: 1600},
			{Name: "mid", UpperCents: 3200},
			{Name: "high", UpperCents: 4800},
		},
	}

	tests := []struct {
		cents float64
		want  string
	}{
		{0, "low"},
		{1599, "low"},
		{1600, "mid"},
		{4700, "high"},
		{12700, "high"}, // past every bound
	}
	for _, tt := range tests {
		if z := in.Zone(tt.cents); z == nil || z.Name != tt.want {
			t.Errorf("Zone(%g): expected %s, got %+v", tt.cents, tt.want, z)
		}
	}

	if (&Instrument{}).Zone(0) != nil {
		t.Error("expected nil zone for empty instrument")
	}
	var nilInst *Instrument
	if nilInst.Zone(0) != nil {
		t.Error("expected nil zone for nil instrument")
	}
}

func TestVoicePlaySpeed(t *testing.T) {
	tests := []struct {
		name      string
		native    int
		host      float64
		key       int
		wantSpeed float64
	}{
		{"same rate A440", 44100, 44100, 6900, 2},
		{"host double native", 22050, 44100, 6900, 4},
		{"octave up", 44100, 44100, 8100, 4},
		{"zero native rate", 0, 44100, 6900, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank := Bank{{Zones: []Zone{{Source: constantSource(4, tt.native, 1), Speed: 2}}}}
			v := Voice{key: tt.key}
			v.Play(tt.host, bank)
			if math.Abs(v.phase.Speed()-tt.wantSpeed) > 1e-9 {
				t.Errorf("expected speed %f, got %f", tt.wantSpeed, v.phase.Speed())
			}
		})
	}
}

func TestVoicePlayWithoutInstrument(t *testing.T) {
	v := Voice{key: 6900, instrument: 3, env: Envelope{phase: Sustain, level: 1}, mixDown: 1}
	v.Play(44100, Bank{})
	if got := v.Output(); got != 0 {
		t.Errorf("expected silence with no instrument, got %f", got)
	}
}
