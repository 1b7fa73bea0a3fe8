// ABOUTME: Lua score package
// ABOUTME: Drives a synthesizer from deterministic Lua scripts
// Package score renders Lua scripts through the synthesizer.
//
// A score is a Lua program calling note_on, note_off, pitch, mod, patch,
// volume and control to send events, and wait to render audio between
// them. Time only advances inside wait, so a score renders identically on
// every run regardless of machine speed.
//
//	patch(0)
//	note_on(60, 100)
//	wait(0.5)
//	note_off(60)
//	wait(1)
package score
