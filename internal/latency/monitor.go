// ABOUTME: Round-trip latency tracking for remote controllers
// ABOUTME: Turns client/time exchanges into smoothed RTT, clock offset and link quality
package latency

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-synth/internal/protocol"
)

// Thresholds for a playable link. A key press travels one way, so half
// the round trip is what the player feels.
const (
	GoodRTT     = 30 * time.Millisecond
	MaxRTT      = 500 * time.Millisecond
	LostAfter   = 5 * time.Second
	DefaultRate = time.Second
)

// Quality represents how usable the link is for live playing
type Quality int

const (
	QualityLost Quality = iota
	QualityGood
	QualityDegraded
)

func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "good"
	case QualityDegraded:
		return "degraded"
	default:
		return "lost"
	}
}

// Monitor accumulates round-trip samples
type Monitor struct {
	mu            sync.RWMutex
	offset        int64 // server - client, microseconds
	rtt           int64 // smoothed round trip, microseconds
	lastRTT       int64
	samples       int
	discarded     int
	lastSample    time.Time
	smoothingRate float64
	debug         bool

	now func() time.Time
}

// Stats is a point-in-time view of the link
type Stats struct {
	RTT       time.Duration
	LastRTT   time.Duration
	Offset    time.Duration
	Samples   int
	Discarded int
	Quality   Quality
}

// String formats the stats for display
func (s Stats) String() string {
	if s.Samples == 0 {
		return "measuring..."
	}
	return fmt.Sprintf("%.1fms (%s)", float64(s.RTT.Microseconds())/1000, s.Quality)
}

// NewMonitor creates an empty monitor
func NewMonitor(debug bool) *Monitor {
	return &Monitor{
		smoothingRate: 0.2,
		debug:         debug,
		now:           time.Now,
	}
}

// Process folds one exchange into the estimate. t1 and t4 are client
// clock readings, t2 and t3 server clock readings, all in microseconds.
func (m *Monitor) Process(t1, t2, t3, t4 int64) {
	rtt, offset := calculateOffset(t1, t2, t3, t4)

	m.mu.Lock()
	defer m.mu.Unlock()

	if rtt < 0 || rtt > MaxRTT.Microseconds() {
		m.discarded++
		if m.debug {
			log.Printf("[DEBUG] Discarding latency sample: rtt=%dμs", rtt)
		}
		return
	}

	m.lastRTT = rtt
	m.lastSample = m.now()

	if m.samples == 0 {
		m.rtt = rtt
		m.offset = offset
	} else {
		m.rtt += int64(m.smoothingRate * float64(rtt-m.rtt))
		m.offset += int64(m.smoothingRate * float64(offset-m.offset))
	}
	m.samples++

	if m.debug && m.samples <= 3 {
		log.Printf("[DEBUG] Latency sample #%d: rtt=%dμs offset=%dμs", m.samples, rtt, offset)
	}
}

// calculateOffset computes RTT and clock offset
func calculateOffset(t1, t2, t3, t4 int64) (rtt, offset int64) {
	rtt = (t4 - t1) - (t3 - t2)

	// Positive means the server clock is ahead
	offset = ((t2 - t1) + (t3 - t4)) / 2

	return
}

// Stats returns the current estimate
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Stats{
		RTT:       time.Duration(m.rtt) * time.Microsecond,
		LastRTT:   time.Duration(m.lastRTT) * time.Microsecond,
		Offset:    time.Duration(m.offset) * time.Microsecond,
		Samples:   m.samples,
		Discarded: m.discarded,
		Quality:   m.qualityLocked(),
	}
}

func (m *Monitor) qualityLocked() Quality {
	if m.samples == 0 || m.now().Sub(m.lastSample) > LostAfter {
		return QualityLost
	}
	if time.Duration(m.rtt)*time.Microsecond <= GoodRTT {
		return QualityGood
	}
	return QualityDegraded
}

// StreamDelay reports how far behind the server's clock a chunk
// timestamped at serverMicros is when heard now
func (m *Monitor) StreamDelay(serverMicros int64) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	serverNow := m.now().UnixMicro() + m.offset
	return time.Duration(serverNow-serverMicros) * time.Microsecond
}

// Run sends a probe every interval and folds in the replies until ctx
// ends or the reply channel closes
func (m *Monitor) Run(ctx context.Context, send func(t1 int64) error, replies <-chan protocol.ServerTime, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRate
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	probe := func() {
		if err := send(ClientMicros()); err != nil && m.debug {
			log.Printf("[DEBUG] Latency probe failed: %v", err)
		}
	}
	probe()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		case reply, ok := <-replies:
			if !ok {
				return
			}
			m.Process(reply.ClientTransmitted, reply.ServerReceived, reply.ServerTransmitted, ClientMicros())
		}
	}
}

// ClientMicros returns the local Unix epoch time in microseconds
func ClientMicros() int64 {
	return time.Now().UnixMicro()
}
