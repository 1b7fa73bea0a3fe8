// ABOUTME: Instrument bank package
// ABOUTME: Loads sample manifests and generates fallback waveform instruments
// Package bank builds the synth.Bank a synthesizer plays from.
//
// Load reads a JSON manifest listing, per instrument, the zones of recorded
// samples with their A440 speed, loop points and upper key bound. Builtin
// generates sine, saw and square single-cycle instruments that need no files.
package bank
