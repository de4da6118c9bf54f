// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage caches the backend thread list in a local SQLite
// database so history listing and the sidebar work without waiting on
// a network round-trip. The backend stays authoritative: the cache is
// replaced wholesale after every successful refresh.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/guide-tui/internal/api"
	"github.com/jeranaias/guide-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrDatabaseError = errors.New("database error")
	ErrNotFound      = errors.New("thread not found")
)

// =============================================================================
// HISTORY STORE
// =============================================================================

// Schema is the cache layout. History is the thread's question/answer
// pairs as JSON; the remaining columns exist so listing and search
// never need to unmarshal it.
const Schema = `
CREATE TABLE IF NOT EXISTS threads (
	id            INTEGER PRIMARY KEY,
	video_url     TEXT NOT NULL,
	title         TEXT NOT NULL,
	last_message  TEXT NOT NULL,
	updated_at    TEXT NOT NULL,
	message_count INTEGER NOT NULL,
	history       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_threads_updated ON threads(updated_at DESC);
`

// Store is the local thread cache.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the cache database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// =============================================================================
// WRITES
// =============================================================================

// ReplaceAll swaps the cached list for the given threads in one
// transaction. An empty slice empties the cache.
func (s *Store) ReplaceAll(threads []model.Thread) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM threads"); err != nil {
		return fmt.Errorf("failed to clear threads: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO threads (id, video_url, title, last_message, updated_at, message_count, history)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer stmt.Close()

	for _, t := range threads {
		history, err := json.Marshal(t.History)
		if err != nil {
			return fmt.Errorf("failed to encode history for thread %d: %w", t.ID, err)
		}
		if _, err := stmt.Exec(t.ID, t.VideoURL, t.Title, t.LastMessage,
			t.UpdatedAt.UTC().Format(time.RFC3339Nano), t.MessageCount, string(history)); err != nil {
			return fmt.Errorf("failed to insert thread %d: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

// =============================================================================
// READS
// =============================================================================

const selectCols = "id, video_url, title, last_message, updated_at, message_count, history"

// List returns all cached threads, most recently updated first.
func (s *Store) List() ([]model.Thread, error) {
	rows, err := s.db.Query("SELECT " + selectCols + " FROM threads ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()
	return scanThreads(rows)
}

// Get returns one cached thread by id.
func (s *Store) Get(id int64) (model.Thread, error) {
	row := s.db.QueryRow("SELECT "+selectCols+" FROM threads WHERE id = ?", id)
	t, err := scanThread(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Thread{}, ErrNotFound
	}
	return t, err
}

// Search returns cached threads whose title, last message, or video URL
// contains term, case-insensitively, most recently updated first.
func (s *Store) Search(term string) ([]model.Thread, error) {
	pattern := "%" + term + "%"
	rows, err := s.db.Query(`
		SELECT `+selectCols+` FROM threads
		WHERE title LIKE ? COLLATE NOCASE
		   OR last_message LIKE ? COLLATE NOCASE
		   OR video_url LIKE ? COLLATE NOCASE
		ORDER BY updated_at DESC`, pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()
	return scanThreads(rows)
}

// Count returns the number of cached threads.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM threads").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return n, nil
}

// =============================================================================
// ROW SCANNING
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThread(row rowScanner) (model.Thread, error) {
	var t model.Thread
	var updatedAt, history string
	if err := row.Scan(&t.ID, &t.VideoURL, &t.Title, &t.LastMessage,
		&updatedAt, &t.MessageCount, &history); err != nil {
		return model.Thread{}, err
	}

	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		t.UpdatedAt = ts
	}
	var exchanges []api.Exchange
	if err := json.Unmarshal([]byte(history), &exchanges); err != nil {
		return model.Thread{}, fmt.Errorf("corrupt history for thread %d: %w", t.ID, err)
	}
	t.History = exchanges
	return t, nil
}

func scanThreads(rows *sql.Rows) ([]model.Thread, error) {
	var out []model.Thread
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
