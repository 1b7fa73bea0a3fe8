// ABOUTME: Audio encoder package for rendered synth output
// ABOUTME: Provides Encoder implementations for PCM and Opus plus a WAV writer
// Package encode turns rendered synth audio into wire and file formats.
//
// Encoders accept int32 samples in 24-bit range; FromFloat converts the
// float output of a synth.Renderer. PCM supports 16 and 24-bit, Opus
// encodes fixed 20ms frames. WAVWriter streams 16-bit PCM to a file.
//
// Example:
//
//	w, err := encode.NewWAVWriter(f, 44100, 1)
//	err = w.Write(buf)
//	err = w.Close()
package encode
