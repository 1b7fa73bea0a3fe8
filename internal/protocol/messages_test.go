// ABOUTME: Tests for synth protocol message types
// ABOUTME: Verifies event conversion, payload decoding and status snapshots
package protocol

import (
	"encoding/json"
	"testing"

	"github.com/Resonate-Protocol/resonate-synth/pkg/synth"
)

func TestSynthEventConversion(t *testing.T) {
	events := []synth.Event{
		synth.NoteOn(0, 60, 100),
		synth.NoteOff(3, 61),
		synth.PitchWheel(0, 0.25),
		synth.ModWheel(0, 64),
		synth.PatchChange(0, 2),
		synth.Volume(0, 90),
		{Kind: synth.KindControl, Controller: 64, Value: 127},
	}

	for _, ev := range events {
		t.Run(ev.Kind.String(), func(t *testing.T) {
			got, ok := FromEvent(ev).Event()
			if !ok {
				t.Fatal("expected known kind")
			}
			if got != ev {
				t.Errorf("expected %v, got %v", ev, got)
			}
		})
	}

	if _, ok := (SynthEvent{Kind: "sysex"}).Event(); ok {
		t.Error("expected unknown kind to be rejected")
	}
}

func TestDecodePayloadFromWire(t *testing.T) {
	raw := `{"type":"synth/event","payload":{"kind":"note_on","note":69,"velocity":127}}`

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if msg.Type != TypeSynthEvent {
		t.Errorf("expected type %s, got %s", TypeSynthEvent, msg.Type)
	}

	var se SynthEvent
	if err := DecodePayload(msg.Payload, &se); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	ev, ok := se.Event()
	if !ok || ev != synth.NoteOn(0, 69, 127) {
		t.Errorf("expected note on 69, got %v", ev)
	}

	var wrong ClientTime
	if err := DecodePayload("not an object", &wrong); err == nil {
		t.Error("expected error decoding string into struct, got nil")
	}
}

func TestStreamStartFlattensFormat(t *testing.T) {
	data, err := json.Marshal(StreamStart{AudioFormat: AudioFormat{Codec: "opus", Channels: 1, SampleRate: 48000, BitDepth: 16}})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if fields["codec"] != "opus" {
		t.Errorf("expected top-level codec opus, got %v", fields["codec"])
	}
	if _, ok := fields["codec_header"]; ok {
		t.Error("expected empty codec_header to be omitted")
	}
}

func TestStatusFrom(t *testing.T) {
	st := synth.Status{
		Patch:  1,
		Volume: 0.5,
		Active: 1,
		Voices: []synth.VoiceState{
			{Index: 0, Key: 6900, Phase: synth.Sustain, Level: 0.8},
			{Index: 1, Key: -1, Phase: synth.Release, Level: 0.004},
		},
	}

	got := StatusFrom(st, []string{"Grand Piano", "Oboe"}, 3)
	if got.PatchName != "Oboe" {
		t.Errorf("expected patch name Oboe, got %s", got.PatchName)
	}
	if got.Listeners != 3 {
		t.Errorf("expected 3 listeners, got %d", got.Listeners)
	}
	if got.Voices[0].Note != 69 || got.Voices[0].Phase != "sustain" {
		t.Errorf("expected note 69 sustain, got %+v", got.Voices[0])
	}
	if got.Voices[1].Note != -1 || got.Voices[1].Level != 0 {
		t.Errorf("expected free voice at level 0, got %+v", got.Voices[1])
	}

	if StatusFrom(synth.Status{Patch: 5}, nil, 0).PatchName != "" {
		t.Error("expected empty name for out of range patch")
	}
}
