// ABOUTME: FLAC sample loader
// ABOUTME: Decodes a whole FLAC stream into memory with mewkiz/flac
package decode

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
	"github.com/mewkiz/flac"
)

// LoadFLAC decodes every frame of a FLAC stream
func LoadFLAC(r io.Reader) (*audio.Data, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("unsupported channel count: %d (supported: 1, 2)", channels)
	}

	pcm := make([]int32, 0, int(info.NSamples)*channels)
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}

		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				pcm = append(pcm, to24Bit(frame.Subframes[ch].Samples[i], bitDepth))
			}
		}
	}

	return toData(pcm, int(info.SampleRate), channels)
}

// to24Bit rescales a signed sample of the given width to 24-bit range
func to24Bit(sample int32, bitDepth int) int32 {
	shift := bitDepth - 24
	if shift > 0 {
		return sample >> shift
	}
	return sample << -shift
}
