// ABOUTME: io.Reader adapter that pulls audio from a Renderer
// ABOUTME: Emits float32 little-endian frames with software volume control
package output

import (
	"encoding/binary"
	"math"
	"sync"
)

// Reader pulls mono blocks from a Renderer and writes them as interleaved
// float32 LE frames, copying the mono signal to every channel
type Reader struct {
	renderer Renderer
	channels int
	mono     []float32

	mu     sync.Mutex
	volume int
	muted  bool
}

// NewReader wraps r for a device with the given channel count
func NewReader(r Renderer, channels int) *Reader {
	if channels < 1 {
		channels = 1
	}
	return &Reader{
		renderer: r,
		channels: channels,
		volume:   100,
	}
}

// Read fills p with whole frames. A trailing partial frame is left unused.
func (r *Reader) Read(p []byte) (int, error) {
	frameBytes := 4 * r.channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}

	if cap(r.mono) < frames {
		r.mono = make([]float32, frames)
	}
	mono := r.mono[:frames]
	r.renderer.Render(mono)

	gain := float32(r.multiplier())
	off := 0
	for _, s := range mono {
		bits := math.Float32bits(clip(s * gain))
		for ch := 0; ch < r.channels; ch++ {
			binary.LittleEndian.PutUint32(p[off:], bits)
			off += 4
		}
	}
	return off, nil
}

// SetVolume sets the volume (0-100)
func (r *Reader) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	r.mu.Lock()
	r.volume = volume
	r.mu.Unlock()
}

// SetMuted sets mute state
func (r *Reader) SetMuted(muted bool) {
	r.mu.Lock()
	r.muted = muted
	r.mu.Unlock()
}

// Volume returns current volume
func (r *Reader) Volume() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.volume
}

// Muted returns mute state
func (r *Reader) Muted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.muted
}

func (r *Reader) multiplier() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.muted {
		return 0
	}
	return float64(r.volume) / 100
}

func clip(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
