// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/guide-tui/internal/api"
	"github.com/jeranaias/guide-tui/internal/model"
	"github.com/jeranaias/guide-tui/internal/session"
)

// fakeCache records ReplaceAll calls.
type fakeCache struct {
	mu      sync.Mutex
	threads []model.Thread
	calls   int
}

func (f *fakeCache) ReplaceAll(threads []model.Thread) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads = threads
	f.calls++
	return nil
}

func newTestOrchestrator(t *testing.T, handler http.Handler) (*Orchestrator, *session.Store, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sess := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, sess.Set(true))
	orch := New(api.NewClient(srv.URL+"/api"), sess)
	return orch, sess, srv
}

func processHandler(t *testing.T, gotReq *api.ProcessRequest, resp api.ProcessResponse) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/videos/process/", func(w http.ResponseWriter, r *http.Request) {
		if gotReq != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(gotReq))
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/api/videos/history/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chats":[]}`))
	})
	return mux
}

// =============================================================================
// BEGIN
// =============================================================================

func TestBegin_AppendsExactlyOneUserMessage(t *testing.T) {
	orch := New(api.NewClient("http://localhost:1/api"), session.NewStore(filepath.Join(t.TempDir(), "s.json")))

	src := model.NewURLSource("https://example.com/v.mp4")
	p, err := orch.Begin(src, "what happens at the start?")
	require.NoError(t, err)
	require.NotNil(t, p)

	msgs := orch.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "what happens at the start?", msgs[0].Content)
	require.NotNil(t, msgs[0].VideoInfo)
	assert.True(t, orch.Processing())
}

func TestBegin_BlankQueryAndMissingSourceAreNoOps(t *testing.T) {
	orch := New(api.NewClient("http://localhost:1/api"), session.NewStore(filepath.Join(t.TempDir(), "s.json")))

	_, err := orch.Begin(model.NewURLSource("https://example.com/v"), "   ")
	assert.ErrorIs(t, err, ErrNoInput)

	_, err = orch.Begin(model.VideoSource{}, "a question")
	assert.ErrorIs(t, err, ErrNoInput)

	assert.Empty(t, orch.Messages())
	assert.False(t, orch.Processing())
}

func TestBegin_RejectsMalformedURL(t *testing.T) {
	orch := New(api.NewClient("http://localhost:1/api"), session.NewStore(filepath.Join(t.TempDir(), "s.json")))

	for _, bad := range []string{"example.com/v", "ftp://example.com/v", "www.example.com"} {
		_, err := orch.Begin(model.NewURLSource(bad), "q")
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr), "url %q", bad)
		assert.Equal(t, msgInvalidURL, vErr.Reason)
	}
	assert.Empty(t, orch.Messages())
}

func TestBegin_SecondSubmissionWhileProcessingIsRejected(t *testing.T) {
	orch := New(api.NewClient("http://localhost:1/api"), session.NewStore(filepath.Join(t.TempDir(), "s.json")))

	src := model.NewURLSource("https://example.com/v")
	_, err := orch.Begin(src, "first")
	require.NoError(t, err)

	_, err = orch.Begin(src, "second")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Len(t, orch.Messages(), 1)
}

// =============================================================================
// THREAD CONTINUITY
// =============================================================================

func TestSubmit_FirstCallOmitsThreadID(t *testing.T) {
	var got api.ProcessRequest
	orch, _, _ := newTestOrchestrator(t, processHandler(t, &got, api.ProcessResponse{ChatID: 7, Response: "answer"}))

	_, err := orch.Submit(context.Background(), model.NewURLSource("https://example.com/v"), "q")
	require.NoError(t, err)
	assert.Nil(t, got.ChatID, "a new conversation must not send a thread id")
	require.NotNil(t, orch.ThreadID())
	assert.Equal(t, int64(7), *orch.ThreadID())
}

func TestSubmit_SameSourceContinuesThread(t *testing.T) {
	var got api.ProcessRequest
	orch, _, _ := newTestOrchestrator(t, processHandler(t, &got, api.ProcessResponse{ChatID: 7, Response: "answer"}))

	src := model.NewURLSource("https://example.com/v")
	_, err := orch.Submit(context.Background(), src, "first")
	require.NoError(t, err)

	_, err = orch.Submit(context.Background(), src, "second")
	require.NoError(t, err)
	require.NotNil(t, got.ChatID, "same source must reuse the thread")
	assert.Equal(t, int64(7), *got.ChatID)
}

func TestSubmit_ChangedSourceStartsFreshThread(t *testing.T) {
	var got api.ProcessRequest
	orch, _, _ := newTestOrchestrator(t, processHandler(t, &got, api.ProcessResponse{ChatID: 7, Response: "answer"}))

	_, err := orch.Submit(context.Background(), model.NewURLSource("https://example.com/a"), "first")
	require.NoError(t, err)

	_, err = orch.Submit(context.Background(), model.NewURLSource("https://example.com/b"), "second")
	require.NoError(t, err)
	assert.Nil(t, got.ChatID, "a different source must not carry the old thread id")
}

func TestSubmit_FailedSwitchDoesNotReviveOldThread(t *testing.T) {
	var mu sync.Mutex
	var requests []api.ProcessRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/api/videos/process/", func(w http.ResponseWriter, r *http.Request) {
		var req api.ProcessRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()
		if req.VideoURL == "https://example.com/b" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(api.ProcessResponse{ChatID: 5, Response: "answer"})
	})
	mux.HandleFunc("/api/videos/history/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chats":[]}`))
	})
	orch, _, _ := newTestOrchestrator(t, mux)

	a := model.NewURLSource("https://example.com/a")
	b := model.NewURLSource("https://example.com/b")

	_, err := orch.Submit(context.Background(), a, "first")
	require.NoError(t, err)
	require.NotNil(t, orch.ThreadID())

	_, err = orch.Submit(context.Background(), b, "second")
	require.Error(t, err)
	assert.Equal(t, b.Resolved(), orch.ActiveSource().Resolved(),
		"the switch to the new source sticks despite the failure")
	assert.Nil(t, orch.ThreadID(),
		"the abandoned thread id must not survive the failed switch")

	_, err = orch.Submit(context.Background(), a, "third")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, requests, 3)
	assert.Nil(t, requests[2].ChatID, "returning to the first source starts a fresh thread")
}

// =============================================================================
// COMPLETION
// =============================================================================

func TestSubmit_SuccessAppendsAndSelectsAssistant(t *testing.T) {
	resp := api.ProcessResponse{
		ChatID:    3,
		Response:  "The dog jumps.",
		Reasoning: "Frame analysis.",
		KeyFrames: []api.WireKeyFrame{{Timestamp: "0:05", Frame: "f1.jpg", Description: "dog"}},
		Timestamps: []api.WireTimeSpan{
			{Time: "0:10 - 0:20", Description: "the jump"},
		},
	}
	orch, _, _ := newTestOrchestrator(t, processHandler(t, nil, resp))

	msg, err := orch.Submit(context.Background(), model.NewURLSource("https://example.com/v"), "what does the dog do?")
	require.NoError(t, err)

	msgs := orch.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "The dog jumps.", msgs[1].Content)
	require.Len(t, msgs[1].Timestamps, 1)
	assert.Equal(t, "0:10", msgs[1].Timestamps[0].Start)
	assert.Equal(t, "0:20", msgs[1].Timestamps[0].End)
	assert.Equal(t, msg.ID, orch.SelectedID(), "the new answer is selected for the detail pane")
	assert.False(t, orch.Processing())
	assert.Empty(t, orch.ErrorMessage())
}

func TestSubmit_FailureKeepsOptimisticMessage(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Video could not be downloaded"}`))
	}))

	_, err := orch.Submit(context.Background(), model.NewURLSource("https://example.com/v"), "q")
	require.Error(t, err)

	msgs := orch.Messages()
	require.Len(t, msgs, 1, "the user message survives the failure")
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "Video could not be downloaded", orch.ErrorMessage())
	assert.False(t, orch.Processing())
	assert.Nil(t, orch.ThreadID(), "a failed first submission adopts no thread")
}

func TestSubmit_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"client error verbatim", 400, `{"error":"Query is required"}`, "Query is required"},
		{"server error generic", 502, ``, api.MsgServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch, _, _ := newTestOrchestrator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			_, err := orch.Submit(context.Background(), model.NewURLSource("https://example.com/v"), "q")
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, orch.ErrorMessage())
		})
	}
}

func TestSubmit_ExpiredSessionSchedulesForcedLogout(t *testing.T) {
	orch, sess, _ := newTestOrchestrator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	fired := make(chan struct{})
	sess.SetLogoutCallback(func() { close(fired) })

	_, err := orch.Submit(context.Background(), model.NewURLSource("https://example.com/v"), "q")
	require.Error(t, err)
	assert.Equal(t, api.MsgSessionExpired, orch.ErrorMessage())
	assert.True(t, sess.Get(), "the flag holds during the grace period")

	select {
	case <-fired:
	case <-time.After(LogoutGrace + 2*time.Second):
		t.Fatal("forced logout never fired")
	}
	assert.False(t, sess.Get())
}

// =============================================================================
// THREAD MANAGEMENT
// =============================================================================

func TestStartNewThread_ClearsConversationState(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, processHandler(t, nil, api.ProcessResponse{ChatID: 9, Response: "a"}))

	_, err := orch.Submit(context.Background(), model.NewURLSource("https://example.com/v"), "q")
	require.NoError(t, err)
	require.NotEmpty(t, orch.Messages())

	orch.StartNewThread()
	assert.Empty(t, orch.Messages())
	assert.Nil(t, orch.ThreadID())
	assert.True(t, orch.ActiveSource().IsZero())
	assert.Empty(t, orch.SelectedID())
	assert.Empty(t, orch.ErrorMessage())
}

func TestLoadThread_FlattensHistoryAndSelectsLastAnswer(t *testing.T) {
	orch := New(api.NewClient("http://localhost:1/api"), session.NewStore(filepath.Join(t.TempDir(), "s.json")))

	thread := model.Thread{
		ID:       12,
		VideoURL: "https://example.com/v",
		History: []api.Exchange{
			{Query: "first?", Response: &api.ProcessResponse{ChatID: 12, Response: "one"}},
			{Query: "second?", Response: &api.ProcessResponse{ChatID: 12, Response: "two"}},
		},
	}
	orch.LoadThread(thread)

	msgs := orch.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, model.RoleAssistant, msgs[3].Role)
	assert.Equal(t, "two", msgs[3].Content)
	assert.Equal(t, msgs[3].ID, orch.SelectedID())
	require.NotNil(t, orch.ThreadID())
	assert.Equal(t, int64(12), *orch.ThreadID())
	assert.Equal(t, "https://example.com/v", orch.ActiveSource().Resolved())
}

func TestLoadThread_ThenSubmitContinuesIt(t *testing.T) {
	var got api.ProcessRequest
	orch, _, _ := newTestOrchestrator(t, processHandler(t, &got, api.ProcessResponse{ChatID: 12, Response: "three"}))

	orch.LoadThread(model.Thread{ID: 12, VideoURL: "https://example.com/v"})

	_, err := orch.Submit(context.Background(), model.NewURLSource("https://example.com/v"), "third?")
	require.NoError(t, err)
	require.NotNil(t, got.ChatID)
	assert.Equal(t, int64(12), *got.ChatID)
}

func TestRefreshThreads_UpdatesListAndCache(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/videos/history/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chats":[
			{"id":1,"videoUrl":"https://example.com/a","videoTitle":"A","messageCount":2},
			{"id":2,"videoUrl":"https://example.com/b","videoTitle":"B","messageCount":1}
		]}`))
	})
	cache := &fakeCache{}
	orch, _, _ := newTestOrchestrator(t, mux)
	orch.WithCache(cache)

	require.NoError(t, orch.RefreshThreads(context.Background()))

	threads := orch.Threads()
	require.Len(t, threads, 2)
	assert.Equal(t, "A", threads[0].Title)
	assert.Equal(t, 1, cache.calls)
	assert.Len(t, cache.threads, 2)

	got, ok := orch.FindThread(2)
	require.True(t, ok)
	assert.Equal(t, "B", got.Title)
}

func TestRefreshThreads_FailureKeepsPreviousList(t *testing.T) {
	orch := New(api.NewClient("http://localhost:1/api"), session.NewStore(filepath.Join(t.TempDir(), "s.json")))
	orch.SeedThreads([]model.Thread{{ID: 1, Title: "kept"}})

	err := orch.RefreshThreads(context.Background())
	require.Error(t, err)
	require.Len(t, orch.Threads(), 1)
	assert.Equal(t, "kept", orch.Threads()[0].Title)
}
