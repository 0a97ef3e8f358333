package usecase

import (
	"sync"

	"QuantPulse/internal/domain/models"
)

// DefaultBufferSize bounds each symbol's trailing window.
const DefaultBufferSize = 1000

// TickBuffers holds a bounded trailing window of ticks per symbol. Appends
// are serialized per buffer; readers always get a copied snapshot, never a
// view into live state.
type TickBuffers struct {
	size int

	mu    sync.RWMutex
	bySym map[string]*ring
}

type ring struct {
	mu    sync.Mutex
	ticks []models.Tick
	head  int
	full  bool
}

func NewTickBuffers(size int) *TickBuffers {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &TickBuffers{size: size, bySym: make(map[string]*ring)}
}

// Append adds one tick to the symbol's window, evicting the oldest when full.
func (b *TickBuffers) Append(t models.Tick) {
	r := b.ringFor(t.Symbol)
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.ticks) < cap(r.ticks) && !r.full {
		r.ticks = append(r.ticks, t)
		if len(r.ticks) == cap(r.ticks) {
			r.full = true
		}
		return
	}
	r.ticks[r.head] = t
	r.head = (r.head + 1) % len(r.ticks)
}

// AppendBatch adds ticks in order.
func (b *TickBuffers) AppendBatch(ticks []models.Tick) {
	for _, t := range ticks {
		b.Append(t)
	}
}

// Snapshot returns the symbol's window oldest-first. The slice is owned by
// the caller.
func (b *TickBuffers) Snapshot(symbol string) []models.Tick {
	b.mu.RLock()
	r, ok := b.bySym[symbol]
	b.mu.RUnlock()
	if !ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Tick, 0, len(r.ticks))
	if r.full {
		out = append(out, r.ticks[r.head:]...)
		out = append(out, r.ticks[:r.head]...)
	} else {
		out = append(out, r.ticks...)
	}
	return out
}

// Len reports the symbol's current window length.
func (b *TickBuffers) Len(symbol string) int {
	b.mu.RLock()
	r, ok := b.bySym[symbol]
	b.mu.RUnlock()
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ticks)
}

// Symbols lists the symbols with at least one buffered tick.
func (b *TickBuffers) Symbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.bySym))
	for sym := range b.bySym {
		out = append(out, sym)
	}
	return out
}

func (b *TickBuffers) ringFor(symbol string) *ring {
	b.mu.RLock()
	r, ok := b.bySym[symbol]
	b.mu.RUnlock()
	if ok {
		return r
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok = b.bySym[symbol]; ok {
		return r
	}
	r = &ring{ticks: make([]models.Tick, 0, b.size)}
	b.bySym[symbol] = r
	return r
}
