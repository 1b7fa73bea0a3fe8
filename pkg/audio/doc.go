// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, the Source provider interface and sample conversions
// Package audio provides fundamental audio types shared by the synthesizer.
//
// This package defines:
//   - Source: read-only frame/channel access to recorded waveforms
//   - Data: an in-memory Source holding interleaved float32 samples
//   - Format: describes an encoded stream (codec, sample rate, channels, bit depth)
//
// It also provides conversions between float, 16-bit and 24-bit samples.
//
// Example:
//
//	data := audio.NewData(1024, 48000, 1)
//	data.Set(0, 0, 1.0)
//	v := data.Sample(0, 0)
package audio
