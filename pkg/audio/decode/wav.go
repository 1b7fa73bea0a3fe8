// ABOUTME: RIFF/WAVE sample loader
// ABOUTME: Scans chunks for fmt and data and decodes integer PCM
package decode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

type wavFormat struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// LoadWAV decodes a complete RIFF/WAVE stream of 8, 16 or 24-bit PCM
func LoadWAV(r io.Reader) (*audio.Data, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("failed to read RIFF header: %w", err)
	}
	if !bytes.Equal(header[0:4], []byte("RIFF")) || !bytes.Equal(header[8:12], []byte("WAVE")) {
		return nil, fmt.Errorf("not a RIFF/WAVE stream")
	}

	var format *wavFormat
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if format == nil {
				return nil, fmt.Errorf("missing fmt chunk: %w", err)
			}
			return nil, fmt.Errorf("missing data chunk: %w", err)
		}
		id := string(chunk[0:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			format = &wavFormat{}
			if err := binary.Read(r, binary.LittleEndian, format); err != nil {
				return nil, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			if err := skip(r, size-16+size%2); err != nil {
				return nil, err
			}
		case "data":
			if format == nil {
				return nil, fmt.Errorf("data chunk before fmt chunk")
			}
			return decodeWAVData(r, format, size)
		default:
			if err := skip(r, size+size%2); err != nil {
				return nil, err
			}
		}
	}
}

func decodeWAVData(r io.Reader, f *wavFormat, size int64) (*audio.Data, error) {
	if f.AudioFormat != wavFormatPCM && f.AudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("unsupported WAV encoding: %d (only integer PCM)", f.AudioFormat)
	}
	channels := int(f.Channels)
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("unsupported channel count: %d (supported: 1, 2)", channels)
	}

	dec, err := NewPCM(audio.Format{Codec: "pcm", SampleRate: int(f.SampleRate), Channels: channels, BitDepth: int(f.BitsPerSample)})
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	raw, err := io.ReadAll(io.LimitReader(r, size))
	if err != nil {
		return nil, fmt.Errorf("failed to read data chunk: %w", err)
	}
	// drop a trailing partial frame
	frameBytes := channels * int(f.BitsPerSample) / 8
	raw = raw[:len(raw)-len(raw)%frameBytes]

	pcm, err := dec.Decode(raw)
	if err != nil {
		return nil, err
	}
	return toData(pcm, int(f.SampleRate), channels)
}

func skip(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("failed to skip chunk: %w", err)
	}
	return nil
}
