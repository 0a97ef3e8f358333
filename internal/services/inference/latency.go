package inference

import (
	"sort"
	"sync"
	"time"
)

// latencyWindow is a fixed-size ring of recent serving latencies with their
// observation times, used for avg/p95 health reporting over a trailing span.
type latencyWindow struct {
	mu   sync.Mutex
	buf  []latencySample
	pos  int
	full bool
}

type latencySample struct {
	ms float64
	at time.Time
}

func newLatencyWindow(size int) *latencyWindow {
	if size <= 0 {
		size = 1024
	}
	return &latencyWindow{buf: make([]latencySample, 0, size)}
}

func (w *latencyWindow) add(ms float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := latencySample{ms: ms, at: time.Now()}
	if !w.full {
		w.buf = append(w.buf, s)
		if len(w.buf) == cap(w.buf) {
			w.full = true
			w.pos = 0
		}
		return
	}
	w.buf[w.pos] = s
	w.pos++
	if w.pos >= len(w.buf) {
		w.pos = 0
	}
}

// statsSince returns (avgMs, p95Ms, count) over samples newer than cutoff.
func (w *latencyWindow) statsSince(cutoff time.Time) (float64, float64, int) {
	w.mu.Lock()
	vals := make([]float64, 0, len(w.buf))
	for _, s := range w.buf {
		if s.at.After(cutoff) {
			vals = append(vals, s.ms)
		}
	}
	w.mu.Unlock()

	if len(vals) == 0 {
		return 0, 0, 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	sort.Float64s(vals)
	idx := int(float64(len(vals)-1) * 0.95)
	return sum / float64(len(vals)), vals[idx], len(vals)
}
