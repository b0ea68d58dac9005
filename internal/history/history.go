// SPDX-License-Identifier: MPL-2.0

package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Attempt outcomes.
const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned when an attempt id does not exist.
var ErrNotFound = errors.New("build attempt not found")

type (
	// Status is the outcome of a build attempt.
	Status string

	// Attempt is one row of the build log.
	Attempt struct {
		ID          int64     `yaml:"id"`
		Name        string    `yaml:"name"`
		Fingerprint string    `yaml:"fingerprint"`
		Tag         string    `yaml:"tag"`
		Builder     string    `yaml:"builder"`
		Status      Status    `yaml:"status"`
		StartedAt   time.Time `yaml:"started_at"`
		EndedAt     time.Time `yaml:"ended_at,omitempty"`
		Error       string    `yaml:"error,omitempty"`
	}

	// Recorder is the write side the orchestrator uses.
	Recorder interface {
		Begin(ctx context.Context, a Attempt) (int64, error)
		Finish(ctx context.Context, id int64, status Status, errMsg string) error
	}

	// Store is a sqlite-backed Recorder.
	Store struct {
		db  *sql.DB
		now func() time.Time
	}

	// Nop discards every attempt. It is used when history is disabled.
	Nop struct{}
)

// String returns the string representation of the Status.
func (s Status) String() string { return string(s) }

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	// Concurrent distrobox-boost processes share the file; wait instead of
	// failing with SQLITE_BUSY.
	dsn := "file:" + (&url.URL{Path: path}).EscapedPath() + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS builds (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			tag TEXT NOT NULL,
			builder TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			error TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS builds_name_started ON builds (name, started_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Begin inserts a running attempt and returns its id. Status and StartedAt
// are set by the store.
func (s *Store) Begin(ctx context.Context, a Attempt) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (name, fingerprint, tag, builder, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.Name, a.Fingerprint, a.Tag, a.Builder, string(StatusRunning), formatTime(s.now()),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Finish records the outcome of attempt id.
func (s *Store) Finish(ctx context.Context, id int64, status Status, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE builds SET status = ?, ended_at = ?, error = ? WHERE id = ?`,
		string(status), formatTime(s.now()), nullableString(errMsg), id,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

// Recent returns the latest attempts, newest first. An empty name lists
// every environment. limit <= 0 means 20.
func (s *Store) Recent(ctx context.Context, name string, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, fingerprint, tag, builder, status, started_at, COALESCE(ended_at,''), COALESCE(error,'')
		 FROM builds WHERE (? = '' OR name = ?) ORDER BY started_at DESC, id DESC LIMIT ?`,
		name, name, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Attempt, 0)
	for rows.Next() {
		var a Attempt
		var status, started, ended string
		if err := rows.Scan(&a.ID, &a.Name, &a.Fingerprint, &a.Tag, &a.Builder, &status, &started, &ended, &a.Error); err != nil {
			return nil, err
		}
		a.Status = Status(status)
		a.StartedAt = parseTime(started)
		a.EndedAt = parseTime(ended)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Begin discards a.
func (Nop) Begin(context.Context, Attempt) (int64, error) { return 0, nil }

// Finish does nothing.
func (Nop) Finish(context.Context, int64, Status, string) error { return nil }

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
