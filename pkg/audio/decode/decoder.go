// ABOUTME: Decoder interface and whole-file sample loading
// ABOUTME: Dispatches instrument sample files to the matching format loader
package decode

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
)

// Decoder decodes audio chunks to PCM int32 samples in 24-bit range
type Decoder interface {
	// Decode converts encoded audio data to PCM samples
	Decode(data []byte) ([]int32, error)

	// Close releases decoder resources
	Close() error
}

// Load reads a whole sample file into memory. The format is chosen from the
// file extension: .wav, .flac or .mp3.
func Load(path string) (*audio.Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sample file: %w", err)
	}
	defer f.Close()

	codec := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	data, err := LoadReader(f, codec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	log.Printf("Loaded %s: %s (sample rate: %d Hz, channels: %d, frames: %d)",
		strings.ToUpper(codec), filepath.Base(path), data.SampleRate(), data.Channels(), data.Frames())
	return data, nil
}

// LoadReader decodes a complete stream in the named codec
func LoadReader(r io.Reader, codec string) (*audio.Data, error) {
	switch codec {
	case "wav", "wave":
		return LoadWAV(r)
	case "flac":
		return LoadFLAC(r)
	case "mp3":
		return LoadMP3(r)
	default:
		return nil, fmt.Errorf("unsupported sample format: %q", codec)
	}
}

// toData converts interleaved 24-bit samples to a float buffer
func toData(pcm []int32, rate, channels int) (*audio.Data, error) {
	samples := make([]float32, len(pcm))
	for i, s := range pcm {
		samples[i] = audio.SampleToFloat(s)
	}
	return audio.NewDataFromSamples(samples, rate, channels)
}
