package history

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"pidash/internal/collector"
	"pidash/internal/models"
)

// Broadcaster receives each successful snapshot for live distribution. The
// websocket hub satisfies this; a nil broadcaster disables streaming.
type Broadcaster interface {
	Broadcast(message []byte)
}

// Sampler drives the collector into the buffer on a fixed cadence. A failed
// collection for one metric type is logged and skipped; the gap it leaves in
// the buffer is legitimate and never interpolated.
type Sampler struct {
	collector collector.Collector
	buffer    *Buffer
	hub       Broadcaster
	log       *zap.Logger
	interval  time.Duration

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewSampler wires a sampler; hub may be nil.
func NewSampler(c collector.Collector, buf *Buffer, hub Broadcaster, interval time.Duration, log *zap.Logger) *Sampler {
	return &Sampler{
		collector: c,
		buffer:    buf,
		hub:       hub,
		log:       log,
		interval:  interval,
	}
}

// Start launches the background sampling loop. Calling Start on a running
// sampler is a no-op.
func (s *Sampler) Start() {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.stop = stop
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		ctx := context.Background()
		s.SampleOnce(ctx)
		for {
			select {
			case <-ticker.C:
				s.SampleOnce(ctx)
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts the sampling loop and waits for the in-flight tick to finish.
func (s *Sampler) Stop() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	s.wg.Wait()
}

// SampleOnce runs a single tick: collect every metric type and append the
// successes. Exported so a caller can prime the buffer synchronously.
func (s *Sampler) SampleOnce(ctx context.Context) {
	for _, t := range models.AllMetricTypes() {
		snap, err := s.collector.Collect(ctx, t)
		if err != nil {
			s.log.Warn("collection failed, skipping tick for type",
				zap.String("metric_type", string(t)), zap.Error(err))
			continue
		}
		s.buffer.Append(snap)
		s.publish(snap)
	}
}

func (s *Sampler) publish(snap models.Snapshot) {
	if s.hub == nil {
		return
	}
	msg, err := json.Marshal(snap)
	if err != nil {
		s.log.Warn("marshal snapshot for stream", zap.Error(err))
		return
	}
	s.hub.Broadcast(msg)
}
