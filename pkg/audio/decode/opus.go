// ABOUTME: Opus chunk decoder for streamed synth audio
// ABOUTME: Decodes one Opus packet at a time to int32 samples
package decode

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusFrame is the longest Opus frame in samples per channel (120 ms at 48 kHz)
const maxOpusFrame = 5760

// OpusDecoder decodes Opus packets
type OpusDecoder struct {
	decoder  *opus.Decoder
	channels int
	pcm16    []int16
}

// NewOpus creates a new Opus decoder
func NewOpus(format audio.Format) (Decoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus decoder: %s", format.Codec)
	}

	dec, err := opus.NewDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder:  dec,
		channels: format.Channels,
		pcm16:    make([]int16, maxOpusFrame*format.Channels),
	}, nil
}

// Decode converts one Opus packet to int32 samples
func (d *OpusDecoder) Decode(data []byte) ([]int32, error) {
	n, err := d.decoder.Decode(data, d.pcm16)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}

	pcm := make([]int32, n*d.channels)
	for i := range pcm {
		pcm[i] = audio.SampleFromInt16(d.pcm16[i])
	}
	return pcm, nil
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	return nil
}

// ForFormat returns the chunk decoder for a stream format
func ForFormat(format audio.Format) (Decoder, error) {
	switch format.Codec {
	case "pcm":
		return NewPCM(format)
	case "opus":
		return NewOpus(format)
	default:
		return nil, fmt.Errorf("unsupported stream codec: %s", format.Codec)
	}
}
