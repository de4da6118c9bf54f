// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks whether the user is authenticated.
//
// The flag is the only client-persisted state: it is read once at
// startup and rewritten synchronously on every change, so a restarted
// client lands on the right screen without a network round-trip. The
// backend session cookie remains the actual credential; this flag only
// steers the UI.
package session

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/jeranaias/guide-tui/internal/util"
)

// state is the on-disk shape of the session file.
type state struct {
	Authenticated bool `json:"authenticated"`
}

// Store holds the persisted authenticated flag. Safe for concurrent use;
// the flag is only ever set, never read-modified-written.
type Store struct {
	mu   sync.Mutex
	path string
	cur  state

	// onLogout runs after a forced logout flips the flag to false.
	onLogout func()

	// pending forced logout, nil when none is scheduled
	cancelPending context.CancelFunc
}

// NewStore loads the flag from path, defaulting to unauthenticated when
// the file is missing or unreadable.
func NewStore(path string) *Store {
	s := &Store{path: path}
	data, err := os.ReadFile(path)
	if err == nil {
		_ = json.Unmarshal(data, &s.cur) // corrupt file reads as false
	}
	return s
}

// Get returns the persisted flag.
func (s *Store) Get() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.Authenticated
}

// Set writes the flag and persists it synchronously before returning.
func (s *Store) Set(authenticated bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(authenticated)
}

func (s *Store) setLocked(authenticated bool) error {
	s.cur.Authenticated = authenticated
	data, err := json.Marshal(s.cur)
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(s.path, data, 0600)
}

// SetLogoutCallback registers the function run after a forced logout.
func (s *Store) SetLogoutCallback(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = fn
}

// ScheduleLogout arranges a forced logout after the grace delay. Used
// when the backend answers 401: the user gets a moment to read the
// expiry message before being returned to the login screen. A second
// schedule while one is pending replaces it. Cancelling ctx (e.g. the
// app quitting) aborts the logout instead of leaking the timer.
func (s *Store) ScheduleLogout(ctx context.Context, delay time.Duration) {
	s.mu.Lock()
	if s.cancelPending != nil {
		s.cancelPending()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancelPending = cancel
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		s.mu.Lock()
		_ = s.setLocked(false)
		fn := s.onLogout
		s.cancelPending = nil
		s.mu.Unlock()

		if fn != nil {
			fn()
		}
	}()
}

// CancelPendingLogout aborts a scheduled forced logout, if any.
func (s *Store) CancelPendingLogout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelPending != nil {
		s.cancelPending()
		s.cancelPending = nil
	}
}
