// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/guide-tui/internal/api"
	"github.com/jeranaias/guide-tui/internal/chat"
	"github.com/jeranaias/guide-tui/internal/model"
	"github.com/jeranaias/guide-tui/internal/session"
)

func newTestOrchestrator(t *testing.T, handler http.Handler) *chat.Orchestrator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sess := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, sess.Set(true))
	return chat.New(api.NewClient(srv.URL+"/api"), sess)
}

func TestSubmitErrorText_PrefersClassifiedMessage(t *testing.T) {
	orch := newTestOrchestrator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Query is required"}`))
	}))

	_, err := orch.Submit(context.Background(), model.NewURLSource("https://example.com/v"), "q")
	require.Error(t, err)
	assert.Equal(t, "Query is required", submitErrorText(orch, err))
}

func TestSubmitErrorText_FallsBackForPreflightRejection(t *testing.T) {
	orch := chat.New(
		api.NewClient("http://127.0.0.1:1/api"),
		session.NewStore(filepath.Join(t.TempDir(), "session.json")),
	)

	// A stored thread can carry a backend-local media path as its
	// source; resubmitting against it fails the URL pre-flight before
	// the orchestrator's error state is ever set.
	orch.LoadThread(model.Thread{ID: 3, VideoURL: "/media/uploads/lecture.mp4"})
	_, err := orch.Submit(context.Background(), orch.ActiveSource(), "what happens?")
	require.Error(t, err)
	require.Empty(t, orch.ErrorMessage())

	got := submitErrorText(orch, err)
	assert.NotEmpty(t, got)
	assert.Equal(t, err.Error(), got)
}

func TestSourceFromArg(t *testing.T) {
	src := sourceFromArg("https://example.com/v.mp4")
	assert.Equal(t, model.SourceURL, src.Type)

	src = sourceFromArg("./lecture.mp4")
	assert.Equal(t, model.SourceUpload, src.Type)
	assert.Equal(t, "lecture.mp4", src.Name)
}
