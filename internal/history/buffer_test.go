package history

import (
	"sync"
	"testing"

	"pidash/internal/models"
)

func cpuSnap(ts int64, pct float64) models.Snapshot {
	return models.Snapshot{
		Type:      models.MetricCPU,
		Timestamp: ts,
		Payload:   models.CPUPayload{Percent: pct},
	}
}

func TestReadRangeOrderedAscending(t *testing.T) {
	buf := NewBuffer(10)
	for ts := int64(100); ts < 110; ts++ {
		buf.Append(cpuSnap(ts, float64(ts)))
	}

	got := buf.ReadRange(models.MetricCPU, 103)
	if len(got) != 7 {
		t.Fatalf("expected 7 entries, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp < got[i-1].Timestamp {
			t.Fatalf("entries out of order at %d: %d < %d", i, got[i].Timestamp, got[i-1].Timestamp)
		}
		if got[i].Timestamp == got[i-1].Timestamp {
			t.Fatalf("duplicate timestamp %d", got[i].Timestamp)
		}
	}
	if got[0].Timestamp != 103 {
		t.Fatalf("expected first entry at 103, got %d", got[0].Timestamp)
	}
}

func TestReadRangeEmptyIsNotError(t *testing.T) {
	buf := NewBuffer(10)
	buf.Append(cpuSnap(100, 1))

	if got := buf.ReadRange(models.MetricCPU, 500); len(got) != 0 {
		t.Fatalf("expected empty result, got %d entries", len(got))
	}
	if got := buf.ReadRange(models.MetricMemory, 0); len(got) != 0 {
		t.Fatalf("expected empty result for untouched type, got %d entries", len(got))
	}
}

func TestEvictionDropsOldestFirst(t *testing.T) {
	buf := NewBuffer(3)
	// Interleave two types: each type's window evicts independently.
	for ts := int64(1); ts <= 5; ts++ {
		buf.Append(cpuSnap(ts, 0))
		buf.Append(models.Snapshot{Type: models.MetricMemory, Timestamp: ts, Payload: models.MemoryPayload{}})
	}

	for _, typ := range []models.MetricType{models.MetricCPU, models.MetricMemory} {
		got := buf.ReadRange(typ, 0)
		if len(got) != 3 {
			t.Fatalf("%s: expected capacity 3, got %d", typ, len(got))
		}
		if got[0].Timestamp != 3 || got[2].Timestamp != 5 {
			t.Fatalf("%s: expected window [3..5], got [%d..%d]", typ, got[0].Timestamp, got[2].Timestamp)
		}
	}
}

func TestWindowSurvivesManyEvictionCycles(t *testing.T) {
	const capacity = 16
	buf := NewBuffer(capacity)

	// Push far past several compactions of the backing array; the window must
	// always hold exactly the newest `capacity` entries in order.
	var last int64
	for ts := int64(1); ts <= capacity*10+3; ts++ {
		buf.Append(cpuSnap(ts, float64(ts)))
		last = ts
	}

	got := buf.ReadRange(models.MetricCPU, 0)
	if len(got) != capacity {
		t.Fatalf("expected window of %d, got %d", capacity, len(got))
	}
	for i, snap := range got {
		want := last - int64(capacity) + 1 + int64(i)
		if snap.Timestamp != want {
			t.Fatalf("entry %d: expected ts %d, got %d", i, want, snap.Timestamp)
		}
	}

	earliest, ok := buf.EarliestTimestamp(models.MetricCPU)
	if !ok || earliest != last-capacity+1 {
		t.Fatalf("expected earliest %d, got %d ok=%v", last-capacity+1, earliest, ok)
	}

	// Flush bookkeeping must track the live window, not the backing array.
	buf.MarkFlushed(models.MetricCPU, last-2)
	pending := buf.Pending()[models.MetricCPU]
	if len(pending) != 2 || pending[0].Timestamp != last-1 || pending[1].Timestamp != last {
		t.Fatalf("expected the two newest entries pending, got %+v", pending)
	}
}

func TestSingleEntryCapacity(t *testing.T) {
	buf := NewBuffer(1)
	for ts := int64(1); ts <= 5; ts++ {
		buf.Append(cpuSnap(ts, 0))
	}
	got := buf.ReadRange(models.MetricCPU, 0)
	if len(got) != 1 || got[0].Timestamp != 5 {
		t.Fatalf("expected only the newest entry, got %+v", got)
	}
}

func TestEarliestTimestamp(t *testing.T) {
	buf := NewBuffer(2)
	if _, ok := buf.EarliestTimestamp(models.MetricCPU); ok {
		t.Fatal("expected no earliest timestamp for empty window")
	}
	buf.Append(cpuSnap(10, 0))
	buf.Append(cpuSnap(11, 0))
	buf.Append(cpuSnap(12, 0))
	ts, ok := buf.EarliestTimestamp(models.MetricCPU)
	if !ok || ts != 11 {
		t.Fatalf("expected earliest 11 after eviction, got %d ok=%v", ts, ok)
	}
}

func TestPendingAndMarkFlushed(t *testing.T) {
	buf := NewBuffer(10)
	for ts := int64(1); ts <= 4; ts++ {
		buf.Append(cpuSnap(ts, 0))
	}

	pending := buf.Pending()
	if len(pending[models.MetricCPU]) != 4 {
		t.Fatalf("expected 4 pending, got %d", len(pending[models.MetricCPU]))
	}

	buf.MarkFlushed(models.MetricCPU, 3)
	pending = buf.Pending()
	if len(pending[models.MetricCPU]) != 1 || pending[models.MetricCPU][0].Timestamp != 4 {
		t.Fatalf("expected only ts=4 pending, got %+v", pending[models.MetricCPU])
	}

	// Marking backwards never un-flushes.
	buf.MarkFlushed(models.MetricCPU, 1)
	if got := buf.Pending()[models.MetricCPU]; len(got) != 1 {
		t.Fatalf("expected pending unchanged after stale mark, got %d", len(got))
	}
}

func TestConcurrentAppendAndRead(t *testing.T) {
	buf := NewBuffer(64)
	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for ts := int64(1); ts <= 500; ts++ {
			buf.Append(cpuSnap(ts, float64(ts)))
		}
		close(done)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			got := buf.ReadRange(models.MetricCPU, 0)
			for i := 1; i < len(got); i++ {
				if got[i].Timestamp <= got[i-1].Timestamp {
					t.Errorf("torn or unordered read: %d then %d", got[i-1].Timestamp, got[i].Timestamp)
					return
				}
			}
			select {
			case <-done:
				return
			default:
			}
		}
	}()

	wg.Wait()
}
