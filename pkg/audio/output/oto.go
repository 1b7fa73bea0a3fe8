// ABOUTME: Oto-based audio output implementation
// ABOUTME: Pulls synth audio through an oto player in float32 format
package output

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Oto output implementation using oto library. oto allows only one
// context per process.
type Oto struct {
	mu         sync.Mutex
	otoCtx     *oto.Context
	player     *oto.Player
	reader     *Reader
	bufferSize time.Duration
	sampleRate int
	channels   int
	ready      bool
}

// NewOto creates a new Oto output. bufferSize is the device buffer
// length; zero lets oto choose.
func NewOto(bufferSize time.Duration) *Oto {
	return &Oto{bufferSize: bufferSize}
}

// Open initializes the output device
func (o *Oto) Open(sampleRate, channels int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil {
		if o.sampleRate != sampleRate || o.channels != channels {
			log.Printf("Warning: format change (%dHz %dch -> %dHz %dch) ignored, oto cannot reinitialize",
				o.sampleRate, o.channels, sampleRate, channels)
		}
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   o.bufferSize,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o.otoCtx = ctx
	o.sampleRate = sampleRate
	o.channels = channels
	o.ready = true

	log.Printf("Audio output initialized: %dHz, %d channels", sampleRate, channels)
	return nil
}

// Play starts a player pulling from r
func (o *Oto) Play(r Renderer) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.ready {
		return fmt.Errorf("output not initialized")
	}
	if o.player != nil {
		return fmt.Errorf("output already playing")
	}

	o.reader = NewReader(r, o.channels)
	o.player = o.otoCtx.NewPlayer(o.reader)
	o.player.Play()
	return nil
}

// Close stops playback and suspends the device
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		o.player.Pause()
		o.player = nil
	}
	if o.otoCtx != nil && o.ready {
		o.ready = false
		if err := o.otoCtx.Suspend(); err != nil {
			return fmt.Errorf("failed to suspend oto context: %w", err)
		}
	}
	return nil
}

// SetVolume sets the software volume (0-100)
func (o *Oto) SetVolume(volume int) {
	if r := o.currentReader(); r != nil {
		r.SetVolume(volume)
		log.Printf("Volume set to %d", r.Volume())
	}
}

// SetMuted sets mute state
func (o *Oto) SetMuted(muted bool) {
	if r := o.currentReader(); r != nil {
		r.SetMuted(muted)
		log.Printf("Muted: %v", muted)
	}
}

func (o *Oto) currentReader() *Reader {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reader
}
