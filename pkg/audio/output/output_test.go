// ABOUTME: Audio output tests
// ABOUTME: Verifies the pull reader, volume handling and headless loop
package output

import (
	"encoding/binary"
	"math"
	"sync/atomic"
	"testing"
	"time"
)

func TestOutputsImplementInterface(t *testing.T) {
	var _ Output = (*Oto)(nil)
	var _ Output = (*Headless)(nil)
}

// rampRenderer returns 0.1, 0.2, ... and counts calls
type rampRenderer struct {
	next  float32
	calls int32
}

func (r *rampRenderer) Render(dst []float32) {
	atomic.AddInt32(&r.calls, 1)
	for i := range dst {
		r.next += 0.1
		dst[i] = r.next
	}
}

func sampleAt(p []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
}

func TestReaderDuplicatesMonoToChannels(t *testing.T) {
	r := NewReader(&rampRenderer{}, 2)

	p := make([]byte, 8*2+3) // two stereo frames plus a partial one
	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 16 {
		t.Fatalf("expected 16 bytes, got %d", n)
	}

	expected := []float32{0.1, 0.1, 0.2, 0.2}
	for i, want := range expected {
		if got := sampleAt(p, i); math.Abs(float64(got-want)) > 1e-6 {
			t.Errorf("sample %d: expected %f, got %f", i, want, got)
		}
	}
}

func TestReaderShortBuffer(t *testing.T) {
	src := &rampRenderer{}
	r := NewReader(src, 2)

	n, err := r.Read(make([]byte, 7))
	if err != nil || n != 0 {
		t.Errorf("expected 0 bytes and no error, got %d, %v", n, err)
	}
	if src.calls != 0 {
		t.Errorf("expected no render call, got %d", src.calls)
	}
}

func TestReaderVolumeAndMute(t *testing.T) {
	r := NewReader(&rampRenderer{next: 0.9}, 1) // first sample 1.0

	r.SetVolume(50)
	p := make([]byte, 4)
	r.Read(p)
	if got := sampleAt(p, 0); math.Abs(float64(got-0.5)) > 1e-6 {
		t.Errorf("expected 0.5 at half volume, got %f", got)
	}

	r.SetMuted(true)
	r.Read(p)
	if got := sampleAt(p, 0); got != 0 {
		t.Errorf("expected silence when muted, got %f", got)
	}
	if !r.Muted() {
		t.Error("expected muted state")
	}
}

func TestReaderVolumeClamp(t *testing.T) {
	tests := []struct {
		set, want int
	}{
		{-10, 0},
		{150, 100},
		{42, 42},
	}

	r := NewReader(&rampRenderer{}, 1)
	for _, tt := range tests {
		r.SetVolume(tt.set)
		if got := r.Volume(); got != tt.want {
			t.Errorf("SetVolume(%d): expected %d, got %d", tt.set, tt.want, got)
		}
	}
}

func TestReaderClipsOutput(t *testing.T) {
	r := NewReader(&rampRenderer{next: 1.9}, 1) // renders 2.0

	p := make([]byte, 4)
	r.Read(p)
	if got := sampleAt(p, 0); got != 1 {
		t.Errorf("expected clip to 1, got %f", got)
	}
}

func TestHeadlessRendersUntilClosed(t *testing.T) {
	h := NewHeadless(5 * time.Millisecond)
	src := &rampRenderer{}

	if err := h.Play(src); err == nil {
		t.Error("expected error before Open, got nil")
	}
	if err := h.Open(8000, 1); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := h.Play(src); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if err := h.Play(src); err == nil {
		t.Error("expected error on second Play, got nil")
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&src.calls) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	calls := atomic.LoadInt32(&src.calls)
	if calls < 3 {
		t.Fatalf("expected at least 3 renders, got %d", calls)
	}
	time.Sleep(20 * time.Millisecond)
	if after := atomic.LoadInt32(&src.calls); after != calls {
		t.Errorf("expected rendering to stop after Close, got %d more calls", after-calls)
	}
}

func TestHeadlessRejectsBadRate(t *testing.T) {
	if err := NewHeadless(0).Open(0, 1); err == nil {
		t.Error("expected error for zero rate, got nil")
	}
}
