// ABOUTME: Playback buffer for a remote synth's audio stream
// ABOUTME: Decodes received chunks into a FIFO that an output device pulls
package client

import (
	"context"
	"log"
	"sync"

	"github.com/Resonate-Protocol/resonate-synth/internal/protocol"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/decode"
)

// ListenerStats counts buffer activity
type ListenerStats struct {
	Received  uint64 // chunks decoded
	Underruns uint64 // renders that ran dry
	Overflows uint64 // samples discarded because the buffer was full
	Buffered  int    // samples waiting
}

// Listener is a mono FIFO between the network and an output device. It
// renders silence until prebuffer samples are queued, and again after an
// underrun, so playback restarts with headroom instead of stuttering.
type Listener struct {
	mu        sync.Mutex
	ring      []float32
	read      int
	size      int
	prebuffer int
	primed    bool
	stats     ListenerStats
}

// NewListener creates a FIFO holding capacity samples
func NewListener(capacity, prebuffer int) *Listener {
	if prebuffer > capacity {
		prebuffer = capacity
	}
	return &Listener{
		ring:      make([]float32, capacity),
		prebuffer: prebuffer,
	}
}

// Write appends samples, discarding the oldest when full
func (l *Listener) Write(samples []float32) {
	l.mu.Lock()
	defer l.mu.Unlock()

	capacity := len(l.ring)
	for _, s := range samples {
		if l.size == capacity {
			l.read = (l.read + 1) % capacity
			l.size--
			l.stats.Overflows++
		}
		l.ring[(l.read+l.size)%capacity] = s
		l.size++
	}
	if !l.primed && l.size >= l.prebuffer {
		l.primed = true
	}
}

// Render fills dst from the FIFO, padding with silence
func (l *Listener) Render(dst []float32) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.primed {
		clear(dst)
		return
	}

	capacity := len(l.ring)
	n := 0
	for ; n < len(dst) && l.size > 0; n++ {
		dst[n] = l.ring[l.read]
		l.read = (l.read + 1) % capacity
		l.size--
	}
	if n < len(dst) {
		clear(dst[n:])
		l.primed = false
		l.stats.Underruns++
	}
}

// Stats returns a snapshot of the buffer counters
func (l *Listener) Stats() ListenerStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.stats
	st.Buffered = l.size
	return st
}

// Feed decodes chunks into the FIFO until ctx ends or chunks closes.
// Multi-channel streams are mixed down to mono.
func (l *Listener) Feed(ctx context.Context, chunks <-chan AudioChunk, dec decode.Decoder, channels int) {
	if channels < 1 {
		channels = 1
	}
	var mono []float32

	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			pcm, err := dec.Decode(chunk.Data)
			if err != nil {
				log.Printf("Failed to decode chunk: %v", err)
				continue
			}

			frames := len(pcm) / channels
			if cap(mono) < frames {
				mono = make([]float32, frames)
			}
			mono = mono[:frames]
			for i := range mono {
				var sum float32
				for ch := 0; ch < channels; ch++ {
					sum += audio.SampleToFloat(pcm[i*channels+ch])
				}
				mono[i] = sum / float32(channels)
			}

			l.Write(mono)
			l.mu.Lock()
			l.stats.Received++
			l.mu.Unlock()
		}
	}
}

// StreamFormat converts a stream/start announcement to a decoder format
func StreamFormat(start protocol.StreamStart) audio.Format {
	return audio.Format{
		Codec:      start.Codec,
		SampleRate: start.SampleRate,
		Channels:   start.Channels,
		BitDepth:   start.BitDepth,
	}
}
