// ABOUTME: Sample-source provider abstraction for wavetable playback
// ABOUTME: Defines the read-only Source interface and the in-memory Data buffer
package audio

import "fmt"

// Source is a read-only, frame addressable block of recorded audio.
// Implementations must tolerate concurrent readers.
type Source interface {
	// Frames returns the number of frames (samples per channel)
	Frames() int
	// Channels returns the number of interleaved channels
	Channels() int
	// SampleRate returns the native sampling rate in Hz
	SampleRate() int
	// Sample returns the [-1,1] amplitude of one channel of one frame
	Sample(frame, channel int) float64
}

// Data holds decoded audio as interleaved float32 samples
type Data struct {
	samples  []float32
	frames   int
	channels int
	rate     int
}

// NewData allocates silent audio of the given length and layout
func NewData(frames, rate, channels int) *Data {
	if frames < 0 {
		frames = 0
	}
	if channels < 1 {
		channels = 1
	}
	return &Data{
		samples:  make([]float32, frames*channels),
		frames:   frames,
		channels: channels,
		rate:     rate,
	}
}

// NewDataFromSamples wraps interleaved samples. The slice length must be a
// multiple of channels.
func NewDataFromSamples(samples []float32, rate, channels int) (*Data, error) {
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("unsupported channel count: %d (supported: 1, 2)", channels)
	}
	if len(samples)%channels != 0 {
		return nil, fmt.Errorf("sample count %d is not a multiple of %d channels", len(samples), channels)
	}
	return &Data{
		samples:  samples,
		frames:   len(samples) / channels,
		channels: channels,
		rate:     rate,
	}, nil
}

func (d *Data) Frames() int     { return d.frames }
func (d *Data) Channels() int   { return d.channels }
func (d *Data) SampleRate() int { return d.rate }

// Sample returns 0 for any out-of-range frame or channel
func (d *Data) Sample(frame, channel int) float64 {
	if frame < 0 || frame >= d.frames || channel < 0 || channel >= d.channels {
		return 0
	}
	return float64(d.samples[frame*d.channels+channel])
}

// Set writes one sample. Out-of-range writes are ignored. Data must not be
// modified once it is shared with a player.
func (d *Data) Set(frame, channel int, value float32) {
	if frame < 0 || frame >= d.frames || channel < 0 || channel >= d.channels {
		return
	}
	d.samples[frame*d.channels+channel] = value
}

// Samples exposes the interleaved backing slice
func (d *Data) Samples() []float32 {
	return d.samples
}
