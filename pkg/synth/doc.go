// ABOUTME: Polyphonic wavetable synthesizer engine
// ABOUTME: Envelopes, voices, voice pool, modulation and event dispatch
// Package synth turns note and controller events into a single audio signal.
//
// A Synth owns a fixed pool of voices. Each voice pairs an ADSR Envelope
// with a resample.Resampler reading the instrument zone that covers its
// key. Note-ons retrigger a voice already holding the note, take the first
// free voice, or steal round-robin from the most recently assigned slot.
// A Controller adds pitch bend and a 5 Hz vibrato to every sounding voice.
//
// Control events and audio ticks may come from different goroutines:
// Handle and Enqueue are safe to call while another goroutine runs Render.
//
// Example:
//
//	s := synth.New(synth.DefaultConfig(), bank)
//	s.Handle(synth.NoteOn(0, 69, 127))
//	buf := make([]float32, 512)
//	s.Render(buf)
package synth
