// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/guide-tui/internal/api"
	"github.com/jeranaias/guide-tui/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleThreads() []model.Thread {
	return []model.Thread{
		{
			ID:           1,
			VideoURL:     "https://example.com/cooking.mp4",
			Title:        "Cooking basics",
			LastMessage:  "Add the onions first.",
			UpdatedAt:    time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
			MessageCount: 4,
			History: []api.Exchange{
				{Query: "when do the onions go in?", Response: &api.ProcessResponse{ChatID: 1, Response: "Add the onions first."}},
			},
		},
		{
			ID:           2,
			VideoURL:     "https://example.com/lecture.mp4",
			Title:        "Physics lecture",
			LastMessage:  "Around the five minute mark.",
			UpdatedAt:    time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
			MessageCount: 2,
		},
	}
}

func TestReplaceAllAndList(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.ReplaceAll(sampleThreads()))

	got, err := store.List()
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Most recently updated first.
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(1), got[1].ID)
	assert.Equal(t, "Cooking basics", got[1].Title)
	require.Len(t, got[1].History, 1)
	assert.Equal(t, "when do the onions go in?", got[1].History[0].Query)
	assert.True(t, got[1].UpdatedAt.Equal(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)))
}

func TestReplaceAllSwapsWholesale(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.ReplaceAll(sampleThreads()))

	// The second refresh drops thread 1.
	require.NoError(t, store.ReplaceAll(sampleThreads()[1:]))

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.Get(1)
	assert.ErrorIs(t, err, ErrNotFound)

	// An empty refresh empties the cache.
	require.NoError(t, store.ReplaceAll(nil))
	n, err = store.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestGet(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.ReplaceAll(sampleThreads()))

	got, err := store.Get(2)
	require.NoError(t, err)
	assert.Equal(t, "Physics lecture", got.Title)
	assert.Empty(t, got.History)

	_, err = store.Get(99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearch(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.ReplaceAll(sampleThreads()))

	tests := []struct {
		term    string
		wantIDs []int64
	}{
		{"cooking", []int64{1}},       // matches title and URL, case-insensitive
		{"ONIONS", []int64{1}},        // matches last message
		{"example.com", []int64{2, 1}}, // matches both URLs, newest first
		{"quantum", nil},
	}

	for _, tt := range tests {
		got, err := store.Search(tt.term)
		require.NoError(t, err, "term %q", tt.term)
		ids := make([]int64, 0, len(got))
		for _, th := range got {
			ids = append(ids, th.ID)
		}
		if tt.wantIDs == nil {
			assert.Empty(t, ids, "term %q", tt.term)
		} else {
			assert.Equal(t, tt.wantIDs, ids, "term %q", tt.term)
		}
	}
}

func TestSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.ReplaceAll(sampleThreads()))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
