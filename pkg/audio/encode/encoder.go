// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for all audio encoders plus float conversion
package encode

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
)

// Encoder encodes PCM int32 samples to various formats
type Encoder interface {
	// Encode converts PCM samples to encoded audio data
	Encode(samples []int32) ([]byte, error)

	// Close releases encoder resources
	Close() error
}

// ForFormat returns the encoder for a stream format
func ForFormat(format audio.Format) (Encoder, error) {
	switch format.Codec {
	case "pcm":
		return NewPCM(format)
	case "opus":
		return NewOpus(format)
	default:
		return nil, fmt.Errorf("unsupported stream codec: %s", format.Codec)
	}
}

// FromFloat converts rendered [-1,1] samples to 24-bit range, clipping
// anything outside. dst is reused when it is large enough.
func FromFloat(dst []int32, src []float32) []int32 {
	if cap(dst) < len(src) {
		dst = make([]int32, len(src))
	}
	dst = dst[:len(src)]
	for i, s := range src {
		dst[i] = audio.SampleFromFloat(s)
	}
	return dst
}
