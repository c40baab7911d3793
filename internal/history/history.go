// Package history is an optional, disk-backed log of monitor lifecycle
// events (launch/shutdown/build failure), never of verdicts or witnesses.
// It exists purely so a long-running hplrv process has something to
// consult after the fact ("when did monitor X last restart?"); it plays no
// part in computing a verdict.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS monitor_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	monitor_id TEXT    NOT NULL,
	event      TEXT    NOT NULL,
	detail     TEXT    NOT NULL DEFAULT '',
	occurred_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_monitor_events_monitor ON monitor_events(monitor_id, occurred_at);
CREATE INDEX IF NOT EXISTS idx_monitor_events_ts ON monitor_events(occurred_at);
`

// Event kinds recorded by Store.Record.
const (
	EventLaunch       = "launch"
	EventShutdown     = "shutdown"
	EventBuildFailure = "build_failure"
)

// Store persists monitor lifecycle events to a SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path, in WAL mode, single
// connection (a local diagnostics log has no concurrent-writer
// requirement).
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordEvent appends one lifecycle event. detail is free-form (e.g. the
// builder error text for an EventBuildFailure); it is never a witness or a
// verdict.
func (s *Store) RecordEvent(ctx context.Context, monitorID, event, detail string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO monitor_events (monitor_id, event, detail, occurred_at) VALUES (?, ?, ?, ?)`,
		monitorID, event, detail, at.Unix())
	if err != nil {
		return fmt.Errorf("record monitor event: %w", err)
	}
	return nil
}

// Record implements manager.Lifecycle structurally (manager depends on no
// concrete history type, only this two-argument shape): it stamps the
// event with wall-clock time and logs failures rather than returning them,
// since the manager's launch/shutdown fan-out has no error path to give it.
func (s *Store) Record(monitorID, event string) {
	if err := s.RecordEvent(context.Background(), monitorID, event, "", time.Now()); err != nil {
		slog.Default().Warn("history: record lifecycle event", "monitor_id", monitorID, "event", event, "error", err)
	}
}

// EventRecord is one row read back from the log.
type EventRecord struct {
	MonitorID  string
	Event      string
	Detail     string
	OccurredAt time.Time
}

// Recent returns the most recent events for monitorID (all monitors if
// monitorID is empty), newest first, capped at limit.
func (s *Store) Recent(ctx context.Context, monitorID string, limit int) ([]EventRecord, error) {
	var rows *sql.Rows
	var err error
	if monitorID == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT monitor_id, event, detail, occurred_at FROM monitor_events ORDER BY occurred_at DESC, id DESC LIMIT ?`,
			limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT monitor_id, event, detail, occurred_at FROM monitor_events WHERE monitor_id = ? ORDER BY occurred_at DESC, id DESC LIMIT ?`,
			monitorID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query monitor events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var rec EventRecord
		var occurredAt int64
		if err := rows.Scan(&rec.MonitorID, &rec.Event, &rec.Detail, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan monitor event: %w", err)
		}
		rec.OccurredAt = time.Unix(occurredAt, 0)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monitor events: %w", err)
	}
	return out, nil
}

// Prune deletes events older than retentionDays.
func (s *Store) Prune(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays).Unix()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM monitor_events WHERE occurred_at < ?`, cutoff); err != nil {
		return fmt.Errorf("prune monitor events: %w", err)
	}
	return nil
}
