// ABOUTME: Wall-clock output for machines without an audio device
// ABOUTME: Pulls fixed blocks from a Renderer on a ticker and discards them
package output

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Headless pulls audio at real-time pace without playing it, so the
// renderer keeps its clock when only network listeners consume audio
type Headless struct {
	period     time.Duration
	sampleRate int

	mu       sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// NewHeadless creates an output that renders one block per period
func NewHeadless(period time.Duration) *Headless {
	if period <= 0 {
		period = 20 * time.Millisecond
	}
	return &Headless{period: period}
}

// Open records the sample rate; channels are ignored
func (h *Headless) Open(sampleRate, channels int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	h.sampleRate = sampleRate
	log.Printf("Headless output initialized: %dHz, %v blocks", sampleRate, h.period)
	return nil
}

// Play starts the render loop
func (h *Headless) Play(r Renderer) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sampleRate == 0 {
		return fmt.Errorf("output not initialized")
	}
	if h.stopChan != nil {
		return fmt.Errorf("output already playing")
	}

	h.stopChan = make(chan struct{})
	h.done = make(chan struct{})
	frames := int(int64(h.sampleRate) * int64(h.period) / int64(time.Second))
	if frames < 1 {
		frames = 1
	}

	go h.loop(r, make([]float32, frames), h.stopChan, h.done)
	return nil
}

func (h *Headless) loop(r Renderer, buf []float32, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(h.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Render(buf)
		case <-stop:
			return
		}
	}
}

// Close stops the render loop and waits for it to exit
func (h *Headless) Close() error {
	h.mu.Lock()
	stop, done := h.stopChan, h.done
	h.stopChan, h.done = nil, nil
	h.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}
