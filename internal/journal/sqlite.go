package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dlots/foreman/internal/model"

	_ "modernc.org/sqlite"
)

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id     TEXT NOT NULL,
    kind       TEXT NOT NULL,
    worker_id  INTEGER NOT NULL,
    value      INTEGER,
    created_at DATETIME NOT NULL
)`

// DefaultListLimit is used when List is called with a non-positive limit.
const DefaultListLimit = 20

// MaxListLimit caps the number of events a single List call returns.
const MaxListLimit = 500

// Compile-time interface satisfaction check.
var _ Journal = (*SQLite)(nil)

// SQLite implements Journal using SQLite.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the journal database at dbPath and runs migrations.
// Pass ":memory:" for an ephemeral journal.
func OpenSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createEventsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create events table: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (j *SQLite) Close() error {
	return j.db.Close()
}

// Record inserts one lifecycle event and fills in its assigned row ID.
func (j *SQLite) Record(ctx context.Context, ev *model.Event) error {
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO events (run_id, kind, worker_id, value, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		ev.RunID, ev.Kind, ev.WorkerID, ev.Value, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("event row id: %w", err)
	}
	ev.ID = id
	return nil
}

// List returns up to limit events ordered by insertion, most recent first.
func (j *SQLite) List(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, run_id, kind, worker_id, value, created_at
		FROM events ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.ID, &ev.RunID, &ev.Kind, &ev.WorkerID, &ev.Value, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}
