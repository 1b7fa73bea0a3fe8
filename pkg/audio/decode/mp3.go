// ABOUTME: MP3 sample loader
// ABOUTME: Decodes a whole MP3 stream into memory with go-mp3
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// LoadMP3 decodes an MP3 stream. The decoder always yields 16-bit stereo.
func LoadMP3(r io.Reader) (*audio.Data, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("mp3 decode error: %w", err)
	}

	numSamples := len(raw) / 4 * 2
	pcm := make([]int32, numSamples)
	for i := 0; i < numSamples; i++ {
		pcm[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(raw[i*2:])))
	}

	return toData(pcm, decoder.SampleRate(), 2)
}
