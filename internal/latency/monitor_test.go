// ABOUTME: Tests for round-trip latency tracking
// ABOUTME: Tests RTT and offset math, smoothing, quality and the probe loop
package latency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/resonate-synth/internal/protocol"
)

func TestRTTCalculation(t *testing.T) {
	// 5ms on the wire, 0.5ms inside the server
	t1 := int64(1000000)
	t2 := int64(2000)
	t3 := int64(2500)
	t4 := int64(1005000)

	m := NewMonitor(false)
	m.Process(t1, t2, t3, t4)

	stats := m.Stats()
	if stats.RTT != 4500*time.Microsecond {
		t.Errorf("expected RTT 4.5ms, got %v", stats.RTT)
	}
	if stats.LastRTT != stats.RTT {
		t.Errorf("expected last RTT %v, got %v", stats.RTT, stats.LastRTT)
	}
	// ((2000-1000000) + (2500-1005000)) / 2
	expectedOffset := time.Duration(-1000250) * time.Microsecond
	if stats.Offset != expectedOffset {
		t.Errorf("expected offset %v, got %v", expectedOffset, stats.Offset)
	}
	if stats.Samples != 1 {
		t.Errorf("expected 1 sample, got %d", stats.Samples)
	}
}

func TestSmoothing(t *testing.T) {
	m := NewMonitor(false)
	m.Process(0, 5000, 5000, 10000)   // rtt 10ms
	m.Process(0, 10000, 10000, 20000) // rtt 20ms

	// 10ms + 0.2 * (20ms - 10ms)
	if got := m.Stats().RTT; got != 12*time.Millisecond {
		t.Errorf("expected smoothed RTT 12ms, got %v", got)
	}
	if got := m.Stats().LastRTT; got != 20*time.Millisecond {
		t.Errorf("expected last RTT 20ms, got %v", got)
	}
}

func TestDiscardsBadSamples(t *testing.T) {
	m := NewMonitor(false)

	// Negative round trip
	m.Process(1000, 0, 5000, 2000)
	// Round trip beyond MaxRTT
	m.Process(0, 0, 0, MaxRTT.Microseconds()+1)

	stats := m.Stats()
	if stats.Samples != 0 {
		t.Errorf("expected 0 samples, got %d", stats.Samples)
	}
	if stats.Discarded != 2 {
		t.Errorf("expected 2 discarded, got %d", stats.Discarded)
	}
	if stats.Quality != QualityLost {
		t.Errorf("expected QualityLost, got %v", stats.Quality)
	}
}

func TestQuality(t *testing.T) {
	now := time.Unix(1000, 0)
	m := NewMonitor(false)
	m.now = func() time.Time { return now }

	if q := m.Stats().Quality; q != QualityLost {
		t.Errorf("expected lost before any sample, got %v", q)
	}

	m.Process(0, 0, 0, 10000)
	if q := m.Stats().Quality; q != QualityGood {
		t.Errorf("expected good at 10ms, got %v", q)
	}

	slow := NewMonitor(false)
	slow.now = m.now
	slow.Process(0, 0, 0, 100000)
	if q := slow.Stats().Quality; q != QualityDegraded {
		t.Errorf("expected degraded at 100ms, got %v", q)
	}

	now = now.Add(LostAfter + time.Second)
	if q := m.Stats().Quality; q != QualityLost {
		t.Errorf("expected lost after silence, got %v", q)
	}
}

func TestStatsString(t *testing.T) {
	if got := (Stats{}).String(); got != "measuring..." {
		t.Errorf("expected measuring..., got %q", got)
	}
	s := Stats{RTT: 4500 * time.Microsecond, Samples: 1, Quality: QualityGood}
	if got := s.String(); got != "4.5ms (good)" {
		t.Errorf("expected \"4.5ms (good)\", got %q", got)
	}
}

func TestStreamDelay(t *testing.T) {
	now := time.UnixMicro(10_000_000)
	m := NewMonitor(false)
	m.now = func() time.Time { return now }

	// Server clock runs 9s behind the client clock
	m.Process(10_000_000, 1_000_000, 1_000_000, 10_000_000)

	// Server now reads 1_000_000; a chunk stamped 40ms earlier is 40ms old
	if got := m.StreamDelay(960_000); got != 40*time.Millisecond {
		t.Errorf("expected 40ms delay, got %v", got)
	}
}

func TestRun(t *testing.T) {
	replies := make(chan protocol.ServerTime, 4)
	var mu sync.Mutex
	var sent []int64
	send := func(t1 int64) error {
		mu.Lock()
		sent = append(sent, t1)
		mu.Unlock()
		replies <- protocol.ServerTime{ClientTransmitted: t1, ServerReceived: 500, ServerTransmitted: 500}
		return nil
	}

	m := NewMonitor(false)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, send, replies, time.Hour)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for m.Stats().Samples == 0 {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for first sample")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(sent) != 1 {
		t.Errorf("expected 1 probe, got %d", len(sent))
	}
}

func TestRunStopsOnClosedReplies(t *testing.T) {
	replies := make(chan protocol.ServerTime)
	close(replies)

	done := make(chan struct{})
	go func() {
		NewMonitor(false).Run(context.Background(), func(int64) error { return nil }, replies, time.Hour)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return when replies closed")
	}
}
