// ABOUTME: RIFF/WAVE file writer
// ABOUTME: Streams 16-bit PCM and patches chunk sizes on close
package encode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
)

const wavHeaderSize = 44

// WAVWriter writes 16-bit PCM WAV data to a seekable stream
type WAVWriter struct {
	w        io.WriteSeeker
	pcm      Encoder
	rate     int
	channels int
	written  int64
	scratch  []int32
	closed   bool
}

// NewWAVWriter writes a placeholder header and returns a writer for
// interleaved float samples
func NewWAVWriter(w io.WriteSeeker, rate, channels int) (*WAVWriter, error) {
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("unsupported channel count: %d (supported: 1, 2)", channels)
	}
	if rate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", rate)
	}

	pcm, err := NewPCM(audio.Format{Codec: "pcm", SampleRate: rate, Channels: channels, BitDepth: 16})
	if err != nil {
		return nil, err
	}

	ww := &WAVWriter{w: w, pcm: pcm, rate: rate, channels: channels}
	if err := ww.writeHeader(); err != nil {
		return nil, err
	}
	return ww, nil
}

// Write appends interleaved samples in [-1,1]; louder samples clip
func (ww *WAVWriter) Write(samples []float32) error {
	if ww.closed {
		return fmt.Errorf("wav writer closed")
	}
	ww.scratch = FromFloat(ww.scratch, samples)
	data, err := ww.pcm.Encode(ww.scratch)
	if err != nil {
		return err
	}
	n, err := ww.w.Write(data)
	ww.written += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	return nil
}

// Frames returns the number of frames written so far
func (ww *WAVWriter) Frames() int64 {
	return ww.written / int64(2*ww.channels)
}

// Close finalizes the header. It does not close the underlying stream.
func (ww *WAVWriter) Close() error {
	if ww.closed {
		return nil
	}
	ww.closed = true

	if ww.written%2 == 1 {
		if _, err := ww.w.Write([]byte{0}); err != nil {
			return fmt.Errorf("failed to pad data chunk: %w", err)
		}
	}
	if _, err := ww.w.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind: %w", err)
	}
	if err := ww.writeHeader(); err != nil {
		return err
	}
	if _, err := ww.w.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}
	return ww.pcm.Close()
}

func (ww *WAVWriter) writeHeader() error {
	blockAlign := ww.channels * 2
	h := make([]byte, wavHeaderSize)
	copy(h[0:], "RIFF")
	binary.LittleEndian.PutUint32(h[4:], uint32(36+ww.written+ww.written%2))
	copy(h[8:], "WAVE")
	copy(h[12:], "fmt ")
	binary.LittleEndian.PutUint32(h[16:], 16)
	binary.LittleEndian.PutUint16(h[20:], 1)
	binary.LittleEndian.PutUint16(h[22:], uint16(ww.channels))
	binary.LittleEndian.PutUint32(h[24:], uint32(ww.rate))
	binary.LittleEndian.PutUint32(h[28:], uint32(ww.rate*blockAlign))
	binary.LittleEndian.PutUint16(h[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:], 16)
	copy(h[36:], "data")
	binary.LittleEndian.PutUint32(h[40:], uint32(ww.written))

	if _, err := ww.w.Write(h); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}
	return nil
}
