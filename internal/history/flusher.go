package history

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"pidash/internal/models"
	"pidash/internal/storage"
)

// Flusher periodically drains not-yet-persisted buffer entries to the durable
// store as one atomic batch. A failed write marks nothing; the same entries
// are retried on the next cycle and stay servable from the buffer throughout.
type Flusher struct {
	buffer   *Buffer
	store    storage.Store
	log      *zap.Logger
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewFlusher wires a flusher over the buffer and store.
func NewFlusher(buf *Buffer, store storage.Store, interval time.Duration, log *zap.Logger) *Flusher {
	return &Flusher{
		buffer:   buf,
		store:    store,
		log:      log,
		interval: interval,
	}
}

// Start launches the background flush loop. No-op when already running.
func (f *Flusher) Start() {
	f.mu.Lock()
	if f.stop != nil {
		f.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	f.stop = stop
	f.mu.Unlock()

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				f.FlushOnce(context.Background())
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts the loop, then runs one final flush so a clean shutdown loses
// nothing that was already buffered.
func (f *Flusher) Stop() {
	f.mu.Lock()
	stop := f.stop
	f.stop = nil
	f.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	f.wg.Wait()
	f.FlushOnce(context.Background())
}

// FlushOnce performs one flush cycle and reports whether the batch was
// persisted. An empty pending set is a successful no-op.
func (f *Flusher) FlushOnce(ctx context.Context) bool {
	pending := f.buffer.Pending()
	if len(pending) == 0 {
		return true
	}

	var batch []storage.Record
	newest := make(map[models.MetricType]int64, len(pending))
	for t, snaps := range pending {
		for _, snap := range snaps {
			data, err := json.Marshal(snap.Payload)
			if err != nil {
				f.log.Error("marshal payload, dropping entry from batch",
					zap.String("metric_type", string(t)), zap.Error(err))
				continue
			}
			batch = append(batch, storage.Record{Type: t, Timestamp: snap.Timestamp, Data: data})
			if snap.Timestamp > newest[t] {
				newest[t] = snap.Timestamp
			}
		}
	}
	if len(batch) == 0 {
		return true
	}

	if err := f.store.AppendBatch(ctx, batch); err != nil {
		f.log.Warn("flush failed, will retry next cycle",
			zap.Int("records", len(batch)), zap.Error(err))
		return false
	}

	for t, through := range newest {
		f.buffer.MarkFlushed(t, through)
	}
	f.log.Debug("flush cycle complete", zap.Int("records", len(batch)))
	return true
}
