// ABOUTME: Audio output package for playing synthesized audio
// ABOUTME: Provides the pull-based Output interface with oto and headless backends
// Package output plays audio pulled from a Renderer.
//
// Oto opens the system audio device through oto and lets the device clock
// drive Render calls. Headless renders on a wall-clock ticker for hosts
// without a sound card. Reader is the io.Reader bridge that converts mono
// renderer output to float32 LE frames and applies software volume.
//
// Example:
//
//	out := output.NewOto(50 * time.Millisecond)
//	err := out.Open(44100, 2)
//	err = out.Play(synth)
package output
