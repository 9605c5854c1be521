package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"pidash/internal/models"
)

// fakeCollector returns canned payloads and can fail per metric type.
type fakeCollector struct {
	mu      sync.Mutex
	clock   int64
	failing map[models.MetricType]bool
}

func newFakeCollector() *fakeCollector {
	return &fakeCollector{clock: 1000, failing: map[models.MetricType]bool{}}
}

func (f *fakeCollector) setFailing(t models.MetricType, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[t] = fail
}

func (f *fakeCollector) advance() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock++
}

func (f *fakeCollector) Collect(_ context.Context, t models.MetricType) (models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[t] {
		return models.Snapshot{}, errors.New("sensor unavailable")
	}
	var payload models.Payload
	switch t {
	case models.MetricCPU:
		payload = models.CPUPayload{Percent: 50}
	case models.MetricMemory:
		payload = models.MemoryPayload{Percent: 40}
	case models.MetricDisk:
		payload = models.DiskPayload{Percent: 30}
	case models.MetricTemperature:
		payload = models.TemperaturePayload{}
	case models.MetricNetwork:
		payload = models.NetworkPayload{}
	case models.MetricUptime:
		payload = models.UptimePayload{UptimeSeconds: 123}
	}
	return models.Snapshot{Type: t, Timestamp: f.clock, Payload: payload}, nil
}

type captureHub struct {
	mu       sync.Mutex
	messages [][]byte
}

func (h *captureHub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

func (h *captureHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

func TestSampleOnceAppendsEveryType(t *testing.T) {
	buf := NewBuffer(10)
	coll := newFakeCollector()
	hub := &captureHub{}
	s := NewSampler(coll, buf, hub, time.Second, zap.NewNop())

	s.SampleOnce(context.Background())

	for _, typ := range models.AllMetricTypes() {
		if buf.Len(typ) != 1 {
			t.Fatalf("%s: expected 1 entry, got %d", typ, buf.Len(typ))
		}
	}
	if hub.count() != len(models.AllMetricTypes()) {
		t.Fatalf("expected one broadcast per type, got %d", hub.count())
	}
}

func TestFailedTypeLeavesGapOthersContinue(t *testing.T) {
	buf := NewBuffer(10)
	coll := newFakeCollector()
	s := NewSampler(coll, buf, nil, time.Second, zap.NewNop())

	s.SampleOnce(context.Background()) // tick T-1
	coll.advance()
	coll.setFailing(models.MetricTemperature, true)
	tickT := coll.clock
	s.SampleOnce(context.Background()) // tick T: temperature fails
	coll.advance()
	coll.setFailing(models.MetricTemperature, false)
	s.SampleOnce(context.Background()) // tick T+1

	if buf.Len(models.MetricCPU) != 3 {
		t.Fatalf("cpu should have all 3 ticks, got %d", buf.Len(models.MetricCPU))
	}
	if buf.Len(models.MetricTemperature) != 2 {
		t.Fatalf("temperature should have 2 ticks around the gap, got %d", buf.Len(models.MetricTemperature))
	}

	got := buf.ReadRange(models.MetricTemperature, tickT-1)
	if len(got) != 2 {
		t.Fatalf("expected T-1 and T+1 with T omitted, got %d entries", len(got))
	}
	for _, snap := range got {
		if snap.Timestamp == tickT {
			t.Fatal("tick T should be a gap for temperature")
		}
	}
}

func TestSamplerStartStopIdempotent(t *testing.T) {
	buf := NewBuffer(10)
	s := NewSampler(newFakeCollector(), buf, nil, 10*time.Millisecond, zap.NewNop())

	s.Start()
	s.Start() // second start is a no-op
	time.Sleep(30 * time.Millisecond)
	s.Stop()
	s.Stop() // second stop is a no-op

	if buf.Len(models.MetricCPU) == 0 {
		t.Fatal("expected at least the priming sample")
	}
}
