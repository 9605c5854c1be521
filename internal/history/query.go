package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"pidash/internal/models"
	"pidash/internal/storage"
)

// ErrInvalidRange rejects history queries whose range is not one of the
// supported chart windows. Callers get the error, never a clamped default.
var ErrInvalidRange = errors.New("invalid history range")

// allowedRanges are the selectable chart windows, in minutes.
var allowedRanges = map[int]struct{}{
	5:    {},
	15:   {},
	60:   {},
	360:  {},
	1440: {},
}

// Engine answers range-bounded history queries by combining the in-memory
// buffer with the durable store. The buffer always wins on overlap: its
// entries are the fresher copy of any timestamp both sides hold.
type Engine struct {
	buffer *Buffer
	store  storage.Store
	log    *zap.Logger
	now    func() time.Time
}

// NewEngine wires a query engine. store may be nil when persistence is
// disabled; queries are then served from the buffer alone.
func NewEngine(buf *Buffer, store storage.Store, log *zap.Logger) *Engine {
	return &Engine{buffer: buf, store: store, log: log, now: time.Now}
}

// Query returns the last rangeMinutes of one metric type, ascending by
// timestamp with no duplicates.
func (e *Engine) Query(ctx context.Context, t models.MetricType, rangeMinutes int) ([]models.Point, error) {
	if _, ok := allowedRanges[rangeMinutes]; !ok {
		return nil, fmt.Errorf("%w: %d minutes", ErrInvalidRange, rangeMinutes)
	}

	now := e.now().Unix()
	since := now - int64(rangeMinutes)*60

	buffered := e.buffer.ReadRange(t, since)

	// Fast path: the buffer retains the whole requested range.
	if earliest, ok := e.buffer.EarliestTimestamp(t); ok && earliest <= since {
		return snapshotPoints(buffered), nil
	}
	if e.store == nil {
		return snapshotPoints(buffered), nil
	}

	records, err := e.store.ReadRange(ctx, t, since, now)
	if err != nil {
		// Storage outage: partial results beat a hard failure.
		e.log.Warn("durable read failed, serving buffer-resident range",
			zap.String("metric_type", string(t)), zap.Error(err))
		return snapshotPoints(buffered), nil
	}

	return mergePoints(records, buffered), nil
}

func snapshotPoints(snaps []models.Snapshot) []models.Point {
	points := make([]models.Point, 0, len(snaps))
	for _, s := range snaps {
		points = append(points, models.Point{Timestamp: s.Timestamp, Data: s.Payload})
	}
	return points
}

// mergePoints combines durable records with buffered snapshots, deduplicating
// by timestamp with the buffer taking precedence.
func mergePoints(records []storage.Record, buffered []models.Snapshot) []models.Point {
	byTS := make(map[int64]models.Point, len(records)+len(buffered))
	for _, rec := range records {
		byTS[rec.Timestamp] = models.Point{Timestamp: rec.Timestamp, Data: rec.Data}
	}
	for _, snap := range buffered {
		byTS[snap.Timestamp] = models.Point{Timestamp: snap.Timestamp, Data: snap.Payload}
	}

	points := make([]models.Point, 0, len(byTS))
	for _, p := range byTS {
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
	return points
}
