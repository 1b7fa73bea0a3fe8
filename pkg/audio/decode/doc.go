// ABOUTME: Audio decoder package for instrument samples
// ABOUTME: Provides whole-file loaders for WAV, FLAC and MP3 plus chunk decoders
// Package decode turns recorded audio into audio.Data for wavetable playback.
//
// Load and LoadReader decode a complete file into memory: RIFF/WAVE with
// 8, 16 or 24-bit integer PCM, FLAC, and MP3. Only mono and stereo sources
// are accepted.
//
// The Decoder interface covers chunk decoders (PCM and Opus) that emit
// int32 samples in 24-bit range, used for streamed audio.
//
// Example:
//
//	data, err := decode.Load("samples/A440.wav")
//	src := audio.Source(data)
package decode
