// ABOUTME: MIDI wire format package
// ABOUTME: Decodes raw MIDI channel messages into synthesizer events
// Package midi converts between raw MIDI 1.0 channel messages and
// synth.Event values.
//
// Note on with velocity 0 is reported as note off. Controller 1 becomes a
// mod-wheel event and controller 7 a volume event; other controllers are
// reported as generic control events. The 14-bit pitch wheel is centred
// at 8192 and scaled onto [-1,1].
//
// Example:
//
//	dec := midi.NewDecoder()
//	events, err := dec.Decode([]byte{0x90, 69, 127})
package midi
