// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package history keeps a local SQLite log of delivery attempts.
//
// It is an audit trail for `mibo history`, not a retry queue: nothing reads
// it back to resend a batch.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mibo-ai/mibo-cli/internal/delivery"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Entry is one recorded delivery attempt.
type Entry struct {
	ID            string
	CorrelationID string
	WorkflowID    string
	ExecutionID   string
	PlatformID    string
	TraceID       string
	Sent          bool
	Error         string
	Records       int
	Digest        string
	Duration      time.Duration
	CreatedAt     time.Time
}

// Filter narrows List results.
type Filter struct {
	// Limit caps the number of entries. Zero means 50.
	Limit int

	// FailedOnly keeps attempts that were not delivered.
	FailedOnly bool

	// WorkflowID keeps attempts for one workflow when set.
	WorkflowID string
}

// Store is a SQLite-backed attempt log. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history database path is required")
	}

	dsn := path
	if path != MemoryPath {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if path == MemoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			correlation_id TEXT,
			workflow_id TEXT NOT NULL,
			execution_id TEXT NOT NULL,
			platform_id TEXT,
			trace_id TEXT,
			sent INTEGER NOT NULL,
			error TEXT,
			records INTEGER NOT NULL,
			digest TEXT,
			duration_ms INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_created_at ON attempts(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_workflow ON attempts(workflow_id)`,
	}
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts an entry. Missing ID and CreatedAt are filled in.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (id, correlation_id, workflow_id, execution_id, platform_id,
			trace_id, sent, error, records, digest, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CorrelationID, e.WorkflowID, e.ExecutionID, e.PlatformID,
		e.TraceID, boolToInt(e.Sent), e.Error, e.Records, e.Digest,
		e.Duration.Milliseconds(), e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// RecordAttempt implements delivery.Recorder.
func (s *Store) RecordAttempt(ctx context.Context, a delivery.Attempt) error {
	return s.Record(ctx, Entry{
		CorrelationID: a.CorrelationID,
		WorkflowID:    a.WorkflowID,
		ExecutionID:   a.ExecutionID,
		PlatformID:    a.PlatformID,
		TraceID:       a.TraceID,
		Sent:          a.Sent,
		Error:         a.Error,
		Records:       a.Records,
		Digest:        a.Digest,
		Duration:      a.Duration,
		CreatedAt:     a.At,
	})
}

// List returns entries newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	var where []string
	var args []any
	if f.FailedOnly {
		where = append(where, "sent = 0")
	}
	if f.WorkflowID != "" {
		where = append(where, "workflow_id = ?")
		args = append(args, f.WorkflowID)
	}

	query := `SELECT id, correlation_id, workflow_id, execution_id, platform_id, trace_id,
		sent, error, records, digest, duration_ms, created_at FROM attempts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                         Entry
			correlationID, platformID sql.NullString
			traceID, errText, digest  sql.NullString
			sent                      int
			durationMS, createdAt     int64
		)
		if err := rows.Scan(&e.ID, &correlationID, &e.WorkflowID, &e.ExecutionID, &platformID,
			&traceID, &sent, &errText, &e.Records, &digest, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		e.CorrelationID = correlationID.String
		e.PlatformID = platformID.String
		e.TraceID = traceID.String
		e.Error = errText.String
		e.Digest = digest.String
		e.Sent = sent != 0
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.CreatedAt = time.Unix(0, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteOlderThan removes entries created before cutoff and returns how many
// were removed.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attempts WHERE created_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune attempts: %w", err)
	}
	return res.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
