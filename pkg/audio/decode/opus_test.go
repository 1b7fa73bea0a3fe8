// ABOUTME: Tests for the Opus chunk decoder
// ABOUTME: Tests decoder creation, validation and codec dispatch
package decode

import (
	"testing"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
)

func TestNewOpus(t *testing.T) {
	for _, channels := range []int{1, 2} {
		format := audio.Format{Codec: "opus", SampleRate: 48000, Channels: channels, BitDepth: 16}

		decoder, err := NewOpus(format)
		if err != nil {
			t.Fatalf("failed to create %d channel decoder: %v", channels, err)
		}
		if decoder == nil {
			t.Fatal("expected decoder to be created")
		}
		if err := decoder.Close(); err != nil {
			t.Errorf("expected Close to succeed, got error: %v", err)
		}
	}
}

func TestNewOpus_InvalidCodec(t *testing.T) {
	format := audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16}

	decoder, err := NewOpus(format)
	if err == nil {
		t.Fatal("expected error for invalid codec, got nil")
	}
	if decoder != nil {
		t.Fatal("expected decoder to be nil for invalid codec")
	}

	expectedError := "invalid codec for Opus decoder: pcm"
	if err.Error() != expectedError {
		t.Errorf("expected error %q, got %q", expectedError, err.Error())
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		codec   string
		wantErr bool
	}{
		{"pcm", false},
		{"opus", false},
		{"flac", true},
	}

	for _, tt := range tests {
		t.Run(tt.codec, func(t *testing.T) {
			dec, err := ForFormat(audio.Format{Codec: tt.codec, SampleRate: 48000, Channels: 1, BitDepth: 16})
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if dec == nil {
				t.Fatal("expected decoder, got nil")
			}
		})
	}
}
