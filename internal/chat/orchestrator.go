// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat sequences question submission against the backend:
// source validation, optimistic transcript updates, thread continuity,
// and failure classification. It owns no rendering; the UI and CLI
// both drive it.
package chat

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/guide-tui/internal/api"
	"github.com/jeranaias/guide-tui/internal/model"
	"github.com/jeranaias/guide-tui/internal/session"
)

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// LogoutGrace is how long an expired-session message stays on screen
// before the forced logout fires.
const LogoutGrace = 2 * time.Second

// urlPattern is the pre-flight check for URL sources. The backend does
// its own resolution; this only catches obvious non-URLs before a
// network round-trip.
var urlPattern = regexp.MustCompile(`^https?://`)

const msgInvalidURL = "Please enter a valid video URL"

// ErrBusy is returned while a previous submission is still in flight.
var ErrBusy = errors.New("chat: a submission is already in flight")

// ErrNoInput is returned when the query is blank or no video source is
// selected. Callers treat it as a no-op, not a failure to display.
var ErrNoInput = errors.New("chat: nothing to submit")

// ThreadCache receives the refreshed thread list after a successful
// submission. A nil cache is allowed.
type ThreadCache interface {
	ReplaceAll(threads []model.Thread) error
}

// Orchestrator holds the live conversation state: the transcript, the
// active thread, and the in-flight submission. One Orchestrator serves
// one user session.
type Orchestrator struct {
	mu     sync.Mutex
	client *api.Client
	sess   *session.Store
	cache  ThreadCache
	log    *zap.Logger

	messages   []*model.Message
	threadID   *int64
	source     model.VideoSource
	threads    []model.Thread
	selectedID string
	processing bool
	errMsg     string
}

// New creates an orchestrator with an empty transcript.
func New(client *api.Client, sess *session.Store) *Orchestrator {
	return &Orchestrator{
		client: client,
		sess:   sess,
		log:    zap.NewNop(),
	}
}

// WithCache attaches a local thread cache, refreshed after successful
// submissions.
func (o *Orchestrator) WithCache(cache ThreadCache) *Orchestrator {
	o.cache = cache
	return o
}

// WithLogger sets the logger.
func (o *Orchestrator) WithLogger(log *zap.Logger) *Orchestrator {
	o.log = log
	return o
}

// =============================================================================
// STATE ACCESSORS
// =============================================================================

// Messages returns the transcript in order.
func (o *Orchestrator) Messages() []*model.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*model.Message, len(o.messages))
	copy(out, o.messages)
	return out
}

// ThreadID returns the active backend thread id, nil before the first
// successful submission of a new conversation.
func (o *Orchestrator) ThreadID() *int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.threadID == nil {
		return nil
	}
	id := *o.threadID
	return &id
}

// ActiveSource returns the video source the current thread is tied to.
func (o *Orchestrator) ActiveSource() model.VideoSource {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.source
}

// Threads returns the cached thread list, newest first.
func (o *Orchestrator) Threads() []model.Thread {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]model.Thread, len(o.threads))
	copy(out, o.threads)
	return out
}

// SelectedID returns the id of the transcript message whose detail is
// shown, empty when nothing is selected.
func (o *Orchestrator) SelectedID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.selectedID
}

// Select marks a message as the detail target. Unknown ids clear the
// selection.
func (o *Orchestrator) Select(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, m := range o.messages {
		if m.ID == id {
			o.selectedID = id
			return
		}
	}
	o.selectedID = ""
}

// Processing reports whether a submission is in flight.
func (o *Orchestrator) Processing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.processing
}

// ErrorMessage returns the display text of the last failure, empty
// after a success or a reset.
func (o *Orchestrator) ErrorMessage() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errMsg
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Pending is a submission accepted by Begin and not yet completed. It
// carries everything the network call needs.
type Pending struct {
	Query    string
	Source   model.VideoSource
	ThreadID *int64 // non-nil when continuing an existing thread
	userID   string // optimistic message, kept on failure
}

// Begin validates a submission and applies its synchronous effects:
// the user message lands in the transcript and the processing flag is
// set before any network traffic. The caller passes the returned
// Pending to Complete along with the backend's answer.
//
// A blank query or empty source returns ErrNoInput and changes
// nothing. The thread id is reused only when the submitted source
// resolves to the same string as the active thread's source. A changed
// source takes effect here, not on completion: the old thread id is
// dropped and the new source becomes current before the call goes out,
// so a later failure cannot fall back to the abandoned thread.
func (o *Orchestrator) Begin(source model.VideoSource, query string) (*Pending, error) {
	query = strings.TrimSpace(query)
	if query == "" || source.IsZero() {
		return nil, ErrNoInput
	}
	if source.Type == model.SourceURL && !urlPattern.MatchString(source.URL) {
		return nil, &ValidationError{Reason: msgInvalidURL}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.processing {
		return nil, ErrBusy
	}

	p := &Pending{Query: query, Source: source}
	if o.threadID != nil && source.Resolved() == o.source.Resolved() {
		id := *o.threadID
		p.ThreadID = &id
	} else {
		o.threadID = nil
	}
	o.source = source

	userMsg := model.NewUserMessage(query, source)
	p.userID = userMsg.ID
	o.messages = append(o.messages, userMsg)
	o.processing = true
	o.errMsg = ""

	o.log.Debug("submission started",
		zap.String("source", source.Resolved()),
		zap.Bool("continuing", p.ThreadID != nil))
	return p, nil
}

// Complete applies the outcome of the network call for a Pending
// submission. On success the returned thread id becomes the active
// thread and the assistant message is appended and selected; callers
// follow up with RefreshThreads. On failure the optimistic user
// message stays in the transcript, the error is classified for
// display, and an expired session schedules a forced logout after
// LogoutGrace. The source adopted by Begin is not reverted.
func (o *Orchestrator) Complete(ctx context.Context, p *Pending, resp *api.ProcessResponse, callErr error) {
	o.mu.Lock()
	o.processing = false

	if callErr != nil {
		apiErr := api.AsError(callErr)
		o.errMsg = apiErr.UserMessage()
		o.log.Warn("submission failed",
			zap.Int("status", apiErr.Status),
			zap.Error(callErr))
		expired := apiErr.Kind() == api.KindAuth
		o.mu.Unlock()
		if expired {
			o.sess.ScheduleLogout(ctx, LogoutGrace)
		}
		return
	}

	id := resp.ChatID
	o.threadID = &id

	assistant := model.AssistantFromResponse(resp)
	o.messages = append(o.messages, assistant)
	o.selectedID = assistant.ID
	o.errMsg = ""
	o.mu.Unlock()

	o.log.Debug("submission completed", zap.Int64("thread", id))
}

// Submit is the blocking form of Begin/Complete for CLI use.
func (o *Orchestrator) Submit(ctx context.Context, source model.VideoSource, query string) (*model.Message, error) {
	p, err := o.Begin(source, query)
	if err != nil {
		return nil, err
	}

	resp, callErr := o.client.ProcessVideo(ctx, api.ProcessRequest{
		VideoURL: source.Resolved(),
		Query:    query,
		ChatID:   p.ThreadID,
	})
	o.Complete(ctx, p, resp, callErr)
	if callErr != nil {
		return nil, callErr
	}
	if err := o.RefreshThreads(ctx); err != nil {
		o.log.Warn("thread list refresh failed", zap.Error(err))
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return o.messages[len(o.messages)-1], nil
}

// =============================================================================
// THREAD MANAGEMENT
// =============================================================================

// StartNewThread clears the conversation: transcript, thread id,
// source, selection, and error all reset. Callers follow up with
// RefreshThreads so the thread list reflects the conversation that was
// just left.
func (o *Orchestrator) StartNewThread() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.processing {
		return
	}
	o.messages = nil
	o.threadID = nil
	o.source = model.VideoSource{}
	o.selectedID = ""
	o.errMsg = ""
}

// LoadThread adopts a saved thread: its id and source become active and
// its history is flattened into the transcript. The last assistant
// message, when present, is selected so the detail pane has content.
func (o *Orchestrator) LoadThread(t model.Thread) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.processing {
		return
	}

	id := t.ID
	o.threadID = &id
	o.source = t.Source()
	o.messages = t.Flatten()
	o.errMsg = ""

	o.selectedID = ""
	for i := len(o.messages) - 1; i >= 0; i-- {
		if o.messages[i].Role == model.RoleAssistant {
			o.selectedID = o.messages[i].ID
			break
		}
	}
}

// FindThread returns the cached thread with the given id.
func (o *Orchestrator) FindThread(id int64) (model.Thread, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, t := range o.threads {
		if t.ID == id {
			return t, true
		}
	}
	return model.Thread{}, false
}

// RefreshThreads pulls the thread list from the backend and updates the
// local cache. Refresh failures leave the previous list in place.
func (o *Orchestrator) RefreshThreads(ctx context.Context) error {
	summaries, err := o.client.ChatHistory(ctx)
	if err != nil {
		return err
	}

	threads := make([]model.Thread, 0, len(summaries))
	for _, s := range summaries {
		threads = append(threads, model.ThreadFromSummary(s))
	}

	o.mu.Lock()
	o.threads = threads
	o.mu.Unlock()

	if o.cache != nil {
		if err := o.cache.ReplaceAll(threads); err != nil {
			o.log.Warn("thread cache update failed", zap.Error(err))
		}
	}
	return nil
}

// SeedThreads installs a thread list without touching the backend,
// used to paint the sidebar from the local cache at startup.
func (o *Orchestrator) SeedThreads(threads []model.Thread) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.threads = threads
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError is a pre-flight rejection with display text.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}
