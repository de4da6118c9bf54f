// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/jeranaias/guide-tui/internal/api"
)

// =============================================================================
// THREAD TYPE
// =============================================================================

// Thread is a backend-persisted conversation scoped to one video source.
// The client caches the listing and can rebuild a transcript from the
// stored history.
type Thread struct {
	ID           int64
	VideoURL     string
	Title        string
	LastMessage  string
	UpdatedAt    time.Time
	MessageCount int
	History      []api.Exchange
}

// ThreadFromSummary converts a backend history entry.
func ThreadFromSummary(s api.ChatSummary) Thread {
	return Thread{
		ID:           s.ID,
		VideoURL:     s.VideoURL,
		Title:        s.Title,
		LastMessage:  s.LastMessage,
		UpdatedAt:    s.UpdatedAt,
		MessageCount: s.MessageCount,
		History:      s.History,
	}
}

// Source reconstructs the video source this thread is tied to. Stored
// threads always carry a URL-or-path string, never an upload handle.
func (t Thread) Source() VideoSource {
	return NewURLSource(t.VideoURL)
}

// Flatten rebuilds the transcript from the stored history: one user
// message per query, followed by an assistant message when the backend
// recorded an answer. Unanswered trailing queries yield only the user
// half.
func (t Thread) Flatten() []*Message {
	messages := make([]*Message, 0, len(t.History)*2)
	for _, ex := range t.History {
		messages = append(messages, NewUserMessage(ex.Query, t.Source()))
		if ex.Response != nil {
			messages = append(messages, AssistantFromResponse(ex.Response))
		}
	}
	return messages
}

// =============================================================================
// WIRE CONVERSION
// =============================================================================

// AssistantFromResponse builds an assistant message from a backend
// answer, splitting each combined range string on the literal " - "
// separator.
func AssistantFromResponse(r *api.ProcessResponse) *Message {
	frames := make([]KeyFrame, 0, len(r.KeyFrames))
	for _, kf := range r.KeyFrames {
		frames = append(frames, KeyFrame{
			Timestamp:   kf.Timestamp,
			FrameRef:    kf.Frame,
			Description: kf.Description,
		})
	}

	spans := make([]TimeRange, 0, len(r.Timestamps))
	for _, ts := range r.Timestamps {
		start, end := SplitTimeRange(ts.Time)
		spans = append(spans, TimeRange{
			Start:   start,
			End:     end,
			Content: ts.Description,
		})
	}

	return NewAssistantMessage(r.Response, r.Reasoning, frames, spans)
}
