// ABOUTME: Wavetable resampling package using linear interpolation
// ABOUTME: Reads recorded audio at pitch-shifted fractional positions
// Package resample plays a recorded audio.Source at an arbitrary speed.
//
// A Resampler keeps a fractional read position, advances it by a
// pitch-derived increment every tick and linearly interpolates between the
// two neighbouring frames. An optional loop region keeps sustained notes
// sounding; without one, reads past the end of the data are silent.
//
// Example:
//
//	r := resample.New(data, 0, 1.0, 100, 200)
//	r.PitchOffset(700) // up a fifth
//	for i := 0; i < n; i++ {
//	    out[i] = float32(r.Output())
//	    r.Next()
//	}
package resample
