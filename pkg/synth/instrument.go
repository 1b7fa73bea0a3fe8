// ABOUTME: Instrument definitions for wavetable playback
// ABOUTME: Maps an instrument and key to the recorded zone that should sound it
package synth

import "github.com/Resonate-Protocol/resonate-synth/pkg/audio"

// A440Cents is the key, in cents, that sounds a recording at its tuned pitch
const A440Cents = 6900.0

// Zone is one recording of an instrument and how to play it
type Zone struct {
	Name      string
	Source    audio.Source
	Channel   int
	LoopStart int
	LoopEnd   int

	// Speed is the playback gain that makes the recording sound A440
	Speed float64

	// UpperCents is the exclusive upper key bound for this zone. Ignored
	// for the last zone, which catches everything above.
	UpperCents float64
}

// Instrument is a patch made of one or more pitch zones ordered low to high
type Instrument struct {
	Name  string
	Zones []Zone
}

// Zone picks the lowest zone whose upper bound exceeds cents, falling back
// to the highest zone. Nil when the instrument has no zones.
func (in *Instrument) Zone(cents float64) *Zone {
	if in == nil || len(in.Zones) == 0 {
		return nil
	}
	for i := range in.Zones {
		if cents < in.Zones[i].UpperCents {
			return &in.Zones[i]
		}
	}
	return &in.Zones[len(in.Zones)-1]
}

// Bank is the set of patches selectable by program change
type Bank []*Instrument

// Instrument returns the patch at index, or nil when out of range
func (b Bank) Instrument(index int) *Instrument {
	if index < 0 || index >= len(b) {
		return nil
	}
	return b[index]
}

// Names lists the patch names in program order
func (b Bank) Names() []string {
	names := make([]string, len(b))
	for i, in := range b {
		if in != nil {
			names[i] = in.Name
		}
	}
	return names
}
