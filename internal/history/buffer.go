package history

import (
	"sync"

	"pidash/internal/models"
)

// series is the bounded recent-history window for one metric type. Each
// series carries its own lock so samplers and readers of unrelated types
// never contend.
//
// The live window is entries[start:]. Eviction advances start instead of
// shifting elements; the backing array is compacted once start reaches the
// capacity, so appends stay O(1) amortized at any window size.
type series struct {
	mu      sync.RWMutex
	entries []models.Snapshot
	start   int
	// flushedThrough is the timestamp of the newest entry confirmed durable.
	// Entries with a later timestamp are pending persistence.
	flushedThrough int64
}

func (s *series) window() []models.Snapshot {
	return s.entries[s.start:]
}

// Buffer keeps the most recent snapshots per metric type in memory. It is the
// single source of truth for recent history: one writer (the sampler) appends,
// many readers (handlers, the flusher) read. Entries are never mutated after
// insertion; eviction drops the oldest entry first.
type Buffer struct {
	capacity int
	series   map[models.MetricType]*series
}

// NewBuffer creates a buffer retaining up to capacity snapshots per metric
// type. The type set is fixed at construction.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	b := &Buffer{
		capacity: capacity,
		series:   make(map[models.MetricType]*series),
	}
	for _, t := range models.AllMetricTypes() {
		b.series[t] = &series{entries: make([]models.Snapshot, 0, capacity)}
	}
	return b
}

// Append adds a snapshot to its type's window, evicting the oldest entry when
// the window is full. Snapshots arrive with non-decreasing timestamps.
func (b *Buffer) Append(snap models.Snapshot) {
	s, ok := b.series[snap.Type]
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries)-s.start >= b.capacity {
		s.start++
	}
	if s.start >= b.capacity {
		n := copy(s.entries, s.entries[s.start:])
		s.entries = s.entries[:n]
		s.start = 0
	}
	s.entries = append(s.entries, snap)
}

// ReadRange returns a copy of all buffered snapshots of one type with
// timestamp >= since, ascending. An empty result is not an error.
func (b *Buffer) ReadRange(t models.MetricType, since int64) []models.Snapshot {
	s, ok := b.series[t]
	if !ok {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	window := s.window()
	// Entries are timestamp-ordered; find the first qualifying index.
	i := 0
	for i < len(window) && window[i].Timestamp < since {
		i++
	}
	out := make([]models.Snapshot, len(window)-i)
	copy(out, window[i:])
	return out
}

// EarliestTimestamp reports the oldest retained timestamp for a type. ok is
// false when that type's window is empty.
func (b *Buffer) EarliestTimestamp(t models.MetricType) (ts int64, ok bool) {
	s, exists := b.series[t]
	if !exists {
		return 0, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	window := s.window()
	if len(window) == 0 {
		return 0, false
	}
	return window[0].Timestamp, true
}

// Pending returns, per metric type, the snapshots not yet confirmed durable.
func (b *Buffer) Pending() map[models.MetricType][]models.Snapshot {
	out := make(map[models.MetricType][]models.Snapshot)
	for t, s := range b.series {
		s.mu.RLock()
		window := s.window()
		i := 0
		for i < len(window) && window[i].Timestamp <= s.flushedThrough {
			i++
		}
		if i < len(window) {
			pending := make([]models.Snapshot, len(window)-i)
			copy(pending, window[i:])
			out[t] = pending
		}
		s.mu.RUnlock()
	}
	return out
}

// MarkFlushed records that every entry of type t with timestamp <= through is
// now durable. Called by the flusher only after a successful batch write.
func (b *Buffer) MarkFlushed(t models.MetricType, through int64) {
	s, ok := b.series[t]
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if through > s.flushedThrough {
		s.flushedThrough = through
	}
}

// Len reports the number of buffered entries for one type.
func (b *Buffer) Len(t models.MetricType) int {
	s, ok := b.series[t]
	if !ok {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.window())
}
