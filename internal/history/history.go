// Package history records check results in a SQLite database for later
// inspection. It is optional: the monitor runs fine without it.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"trackerwatch/internal/model"
	"trackerwatch/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// CheckRecord is one row of check history.
type CheckRecord struct {
	ID         int64
	TargetName string
	Status     model.Status
	FetchError string
	DurationMS int64
	Notified   bool
	CheckedAt  time.Time
}

// Store persists check history in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at dsn and runs pending
// migrations.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordCheck inserts one check result and populates its ID.
func (s *Store) RecordCheck(ctx context.Context, rec *CheckRecord) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO checks (target_name, status, fetch_error, duration_ms, notified, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.TargetName, string(rec.Status), rec.FetchError, rec.DurationMS,
		boolToInt(rec.Notified), rec.CheckedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert check: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	rec.ID = id
	return nil
}

// RecentChecks returns the most recent check records, newest first.
func (s *Store) RecentChecks(ctx context.Context, limit int) ([]CheckRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, target_name, status, fetch_error, duration_ms, notified, checked_at
		 FROM checks ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query checks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []CheckRecord
	for rows.Next() {
		var rec CheckRecord
		var status, checkedAt string
		var notified int
		if err := rows.Scan(&rec.ID, &rec.TargetName, &status, &rec.FetchError,
			&rec.DurationMS, &notified, &checkedAt); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		rec.Status = model.Status(status)
		rec.Notified = notified == 1
		rec.CheckedAt, _ = time.Parse(timeLayout, checkedAt)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// LastTransitions returns the most recent notified transitions, newest first.
func (s *Store) LastTransitions(ctx context.Context, limit int) ([]CheckRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, target_name, status, fetch_error, duration_ms, notified, checked_at
		 FROM checks WHERE notified = 1 ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []CheckRecord
	for rows.Next() {
		var rec CheckRecord
		var status, checkedAt string
		var notified int
		if err := rows.Scan(&rec.ID, &rec.TargetName, &status, &rec.FetchError,
			&rec.DurationMS, &notified, &checkedAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		rec.Status = model.Status(status)
		rec.Notified = notified == 1
		rec.CheckedAt, _ = time.Parse(timeLayout, checkedAt)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
