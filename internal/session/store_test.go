// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func storePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "session.json")
}

func TestStore_DefaultsToFalse(t *testing.T) {
	s := NewStore(storePath(t))
	if s.Get() {
		t.Error("fresh store should be unauthenticated")
	}
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	path := storePath(t)

	first := NewStore(path)
	if err := first.Set(true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// A new instance (new process) reads the persisted value.
	second := NewStore(path)
	if !second.Get() {
		t.Error("flag should survive reload")
	}

	if err := second.Set(false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	third := NewStore(path)
	if third.Get() {
		t.Error("cleared flag should survive reload")
	}
}

func TestStore_CorruptFileReadsAsFalse(t *testing.T) {
	path := storePath(t)
	if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}
	s := NewStore(path)
	if s.Get() {
		t.Error("corrupt file should read as unauthenticated")
	}
}

func TestStore_ScheduleLogout(t *testing.T) {
	s := NewStore(storePath(t))
	if err := s.Set(true); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	s.SetLogoutCallback(func() { close(done) })

	s.ScheduleLogout(context.Background(), 10*time.Millisecond)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("forced logout never fired")
	}

	if s.Get() {
		t.Error("flag should be false after forced logout")
	}
}

func TestStore_ScheduleLogout_CancelledByContext(t *testing.T) {
	s := NewStore(storePath(t))
	if err := s.Set(true); err != nil {
		t.Fatal(err)
	}

	fired := make(chan struct{}, 1)
	s.SetLogoutCallback(func() { fired <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	s.ScheduleLogout(ctx, 20*time.Millisecond)
	cancel() // user quit before the grace period elapsed

	select {
	case <-fired:
		t.Fatal("cancelled logout should not fire")
	case <-time.After(100 * time.Millisecond):
	}

	if !s.Get() {
		t.Error("flag should be untouched after cancelled logout")
	}
}

func TestStore_CancelPendingLogout(t *testing.T) {
	s := NewStore(storePath(t))
	if err := s.Set(true); err != nil {
		t.Fatal(err)
	}

	s.ScheduleLogout(context.Background(), 20*time.Millisecond)
	s.CancelPendingLogout()

	time.Sleep(100 * time.Millisecond)
	if !s.Get() {
		t.Error("cancelled logout must not flip the flag")
	}
}
