// ABOUTME: Generated single-cycle waveform instruments
// ABOUTME: Sine, saw and square tables used when no sample manifest is given
package bank

import (
	"math"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
	"github.com/Resonate-Protocol/resonate-synth/pkg/synth"
)

// TableSize is the number of frames in one generated cycle
const TableSize = 2048

// harmonics limits the band-limited saw and square series
const harmonics = 32

// Builtin returns sine, saw and square instruments for a host running at
// rate. Each table is stored at the host rate so no rate correction applies.
func Builtin(rate int) synth.Bank {
	return synth.Bank{
		table("Sine", rate, func(phase float64) float64 {
			return math.Sin(phase)
		}),
		table("Saw", rate, func(phase float64) float64 {
			sum := 0.0
			for k := 1; k <= harmonics; k++ {
				sum += math.Sin(float64(k)*phase) / float64(k)
			}
			return sum * 2 / math.Pi
		}),
		table("Square", rate, func(phase float64) float64 {
			sum := 0.0
			for k := 1; k <= harmonics; k += 2 {
				sum += math.Sin(float64(k)*phase) / float64(k)
			}
			return sum * 4 / math.Pi
		}),
	}
}

// table renders one cycle plus a wrap frame equal to the first, looping
// over exactly one period
func table(name string, rate int, wave func(phase float64) float64) *synth.Instrument {
	data := audio.NewData(TableSize+1, rate, 1)
	peak := 0.0
	values := make([]float64, TableSize)
	for i := range values {
		values[i] = wave(2 * math.Pi * float64(i) / TableSize)
		peak = math.Max(peak, math.Abs(values[i]))
	}
	if peak == 0 {
		peak = 1
	}
	for i, v := range values {
		data.Set(i, 0, float32(v/peak))
	}
	data.Set(TableSize, 0, float32(values[0]/peak))

	return &synth.Instrument{
		Name: name,
		Zones: []synth.Zone{{
			Name:      name,
			Source:    data,
			LoopStart: 0,
			LoopEnd:   TableSize,
			Speed:     440 * TableSize / float64(rate),
		}},
	}
}
