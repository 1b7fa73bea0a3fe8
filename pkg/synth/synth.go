// ABOUTME: Thread-safe synthesizer front end
// ABOUTME: Serializes control events against audio ticks and renders buffers
package synth

import (
	"log"
	"sync"
)

// Renderer fills a buffer with consecutive mono output samples
type Renderer interface {
	Render(dst []float32)
}

// Status is a snapshot of the synthesizer for displays
type Status struct {
	Patch      int
	Volume     float64
	Bend       float64
	Vibrato    float64
	Active     int
	Voices     []VoiceState
	Dropped    uint64
	SampleRate int
}

// Synth couples a voice pool with its controller. A single mutex guards
// both so a control event never lands in the middle of a tick.
type Synth struct {
	mu   sync.Mutex
	pool *Pool
	ctrl *Controller
	rate int

	queue   chan Event
	dropped uint64
}

// New creates a synthesizer playing instruments from bank
func New(cfg Config, bank Bank) *Synth {
	cfg = cfg.withDefaults()
	ctrl := NewController(cfg)
	return &Synth{
		pool:  NewPool(cfg, bank, ctrl),
		ctrl:  ctrl,
		rate:  cfg.SampleRate,
		queue: make(chan Event, cfg.QueueSize),
	}
}

// SampleRate returns the host sampling rate
func (s *Synth) SampleRate() int {
	return s.rate
}

// Handle applies an event immediately, between ticks
func (s *Synth) Handle(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatch(ev)
}

// Enqueue posts an event to be applied at the start of the next tick or
// buffer. It never blocks; a full queue drops the event and returns false.
func (s *Synth) Enqueue(ev Event) bool {
	select {
	case s.queue <- ev:
		return true
	default:
		s.mu.Lock()
		s.dropped++
		n := s.dropped
		s.mu.Unlock()
		if n%1000 == 1 {
			log.Printf("Warning: synth event queue full, dropped %d events (latest: %s)", n, ev)
		}
		return false
	}
}

// Tick produces one output sample and advances every voice once
func (s *Synth) Tick() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drain()
	out := s.pool.Output()
	s.pool.Next()
	return out
}

// Render fills dst with consecutive samples. Events handled while Render
// runs take effect from the next buffer.
func (s *Synth) Render(dst []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drain()
	for i := range dst {
		dst[i] = float32(s.pool.Output())
		s.pool.Next()
	}
}

// Status returns a snapshot of the synthesizer state
func (s *Synth) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Patch:      s.ctrl.Patch(),
		Volume:     s.ctrl.VolumeRatio(),
		Bend:       s.ctrl.Bend(),
		Vibrato:    s.ctrl.Vibrato(),
		Active:     s.pool.Active(),
		Voices:     s.pool.Voices(),
		Dropped:    s.dropped,
		SampleRate: s.rate,
	}
}

// drain applies queued events; caller holds mu
func (s *Synth) drain() {
	for {
		select {
		case ev := <-s.queue:
			s.dispatch(ev)
		default:
			return
		}
	}
}

// dispatch routes one event; caller holds mu
func (s *Synth) dispatch(ev Event) {
	switch ev.Kind {
	case KindNoteOn:
		s.pool.NoteOn(ev.Note, ev.Velocity)
	case KindNoteOff:
		s.pool.NoteOff(ev.Note)
	case KindPitchWheel:
		s.ctrl.PitchWheel(s.pool, ev.Bend)
	case KindModWheel:
		s.ctrl.ModWheel(s.pool, ev.Value)
	case KindPatchChange:
		s.pool.PatchChange(ev.Value)
	case KindVolume:
		s.ctrl.Volume(ev.Value)
	}
}
