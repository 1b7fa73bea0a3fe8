// ABOUTME: Default acoustic manifest layout
// ABOUTME: Grand piano zones, oboe and cello with their tuning speeds and loops
package bank

// Patch numbers of DefaultManifest
const (
	PatchGrand = 0
	PatchOboe  = 1
	PatchCello = 2
)

// DefaultManifest describes the acoustic sample set: a grand piano sampled
// at every A from 22.5 Hz to 3520 Hz, an oboe and a cello. The files are
// expected under samples/ next to the manifest.
func DefaultManifest() *Manifest {
	grand := []struct {
		file       string
		speed      float64
		start, end int
	}{
		{"A22_5.wav", 16, 46310, 66775},
		{"A55.wav", 8, 129883, 197134},
		{"A110.wav", 4, 71353, 117383},
		{"A220.wav", 2, 109664, 169738},
		{"A440.wav", 1, 56129, 100326},
		{"A880.wav", 0.5, 11437, 40303},
		{"A1760.wav", 0.25, 6344, 13215},
		{"A3520.wav", 0.125, 14565, 28123},
	}

	piano := InstrumentManifest{Name: "Grand Piano"}
	for i, g := range grand {
		piano.Zones = append(piano.Zones, ZoneManifest{
			File:       g.file,
			Speed:      g.speed,
			LoopStart:  g.start,
			LoopEnd:    g.end,
			UpperCents: float64(i+1) * 1600,
		})
	}

	return &Manifest{
		SampleDir: "samples",
		Instruments: []InstrumentManifest{
			piano,
			{Name: "Oboe", Zones: []ZoneManifest{{File: "oboe.wav", Speed: 0.990990990990991, LoopStart: 322, LoopEnd: 17455}}},
			{Name: "Cello", Zones: []ZoneManifest{{File: "cello.wav", Speed: 4.5128051280512805, LoopStart: 39763, LoopEnd: 42019}}},
		},
	}
}
