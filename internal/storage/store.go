package storage

import (
	"context"
	"encoding/json"

	"pidash/internal/models"
)

// Record is a single persisted metric row. Data is the JSON-encoded payload
// exactly as it left the buffer.
type Record struct {
	Type      models.MetricType
	Timestamp int64
	Data      json.RawMessage
}

// Store abstracts the append-only persistence back-end for metric snapshots.
type Store interface {
	// AppendBatch writes all records in a single transaction. Either every
	// row is written or none; a failed batch leaves the store unchanged so
	// the caller can retry the same records next cycle.
	AppendBatch(ctx context.Context, batch []Record) error

	// ReadRange returns records of one type with since <= timestamp <= until,
	// sorted by timestamp ascending.
	ReadRange(ctx context.Context, t models.MetricType, since, until int64) ([]Record, error)

	// DeleteOlderThan removes records with timestamp < cutoff and reports how
	// many rows were deleted. Used by the long-period retention sweep only;
	// nothing in normal operation deletes rows.
	DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error)

	// Close releases the underlying connection.
	Close() error
}
