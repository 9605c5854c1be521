package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"pidash/internal/models"
)

// SQLite persists metric snapshots in a local SQLite file. The modernc.org
// driver is pure Go and works without CGO.
type SQLite struct {
	db  *sql.DB
	log *zap.Logger
}

// NewSQLite opens (or creates) the SQLite file at dbPath and runs the
// migration that creates the metrics table if it does not exist. The caller
// must call Close() on shutdown.
func NewSQLite(dbPath string, log *zap.Logger) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_fk=1", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &SQLite{db: db, log: log}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migration: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	const stmt = `
CREATE TABLE IF NOT EXISTS metrics (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp   INTEGER NOT NULL,
    metric_type TEXT NOT NULL,
    data        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_metrics_timestamp ON metrics(timestamp);
CREATE INDEX IF NOT EXISTS idx_metrics_type_timestamp ON metrics(metric_type, timestamp);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("create metrics table: %w", err)
	}
	s.log.Info("sqlite migration applied")
	return nil
}

// AppendBatch stores all records in a single transaction.
func (s *SQLite) AppendBatch(ctx context.Context, batch []Record) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO metrics (timestamp, metric_type, data) VALUES (?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range batch {
		if _, err := stmt.ExecContext(ctx, rec.Timestamp, string(rec.Type), string(rec.Data)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec insert for %s: %w", rec.Type, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.log.Debug("batch persisted", zap.Int("records", len(batch)))
	return nil
}

// ReadRange returns persisted records of one type within [since, until],
// ascending by timestamp.
func (s *SQLite) ReadRange(ctx context.Context, t models.MetricType, since, until int64) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, data
         FROM metrics
         WHERE metric_type = ? AND timestamp >= ? AND timestamp <= ?
         ORDER BY timestamp ASC`,
		string(t), since, until)
	if err != nil {
		return nil, fmt.Errorf("query range: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var ts int64
		var data string
		if err := rows.Scan(&ts, &data); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, Record{Type: t, Timestamp: ts, Data: []byte(data)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// DeleteOlderThan removes records older than cutoff.
func (s *SQLite) DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM metrics WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old metrics: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.log.Info("retention sweep removed rows", zap.Int64("rows", n))
	}
	return n, nil
}

// Close shuts down the database connection.
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
