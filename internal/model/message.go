// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the chat transcript.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Guide AI"
	default:
		return string(r)
	}
}

// =============================================================================
// VIDEO SOURCE
// =============================================================================

// SourceType distinguishes local uploads from remote URLs.
type SourceType string

const (
	SourceUpload SourceType = "upload"
	SourceURL    SourceType = "url"
)

// VideoSource identifies the video a question is asked about. Exactly one
// of Path or URL is set, matching Type.
type VideoSource struct {
	Type SourceType `json:"type"`
	Name string     `json:"name,omitempty"` // display name for uploads
	Path string     `json:"path,omitempty"` // local file path for uploads
	URL  string     `json:"url,omitempty"`  // remote URL
}

// NewUploadSource builds an upload source from a local file path.
func NewUploadSource(path string) VideoSource {
	name := path
	if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
		name = path[i+1:]
	}
	return VideoSource{Type: SourceUpload, Name: name, Path: path}
}

// NewURLSource builds a source from a remote video URL.
func NewURLSource(url string) VideoSource {
	return VideoSource{Type: SourceURL, Name: url, URL: url}
}

// Resolved returns the string the backend identifies this source by.
// Thread continuity is decided by comparing resolved strings.
func (s VideoSource) Resolved() string {
	if s.Type == SourceUpload {
		return s.Path
	}
	return s.URL
}

// IsZero reports whether no source is set.
func (s VideoSource) IsZero() bool {
	return s.Path == "" && s.URL == ""
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// KeyFrame is a backend-selected still image representing a moment in the
// video, referenced by timestamp.
type KeyFrame struct {
	Timestamp   string `json:"timestamp"`
	FrameRef    string `json:"frameRef"`
	Description string `json:"description"`
}

// TimeRange is a span of the video relevant to the answer.
type TimeRange struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	Content string `json:"content"`
}

// Message is one entry in the transcript. Messages are immutable once
// created; the transcript is append-only within a thread and replaced
// wholesale when a saved thread is loaded.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Set on user messages
	VideoInfo *VideoSource `json:"videoInfo,omitempty"`

	// Set on assistant messages
	Reasoning  string      `json:"reasoning,omitempty"`
	Frames     []KeyFrame  `json:"frames,omitempty"`
	Timestamps []TimeRange `json:"timestamps,omitempty"`
}

// NewUserMessage creates a user message for a submitted question.
func NewUserMessage(content string, source VideoSource) *Message {
	msg := &Message{
		ID:        generateID(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
	if !source.IsZero() {
		src := source
		msg.VideoInfo = &src
	}
	return msg
}

// NewAssistantMessage creates an assistant message from answer parts.
func NewAssistantMessage(content, reasoning string, frames []KeyFrame, spans []TimeRange) *Message {
	return &Message{
		ID:         generateID(),
		Role:       RoleAssistant,
		Content:    content,
		Reasoning:  reasoning,
		Frames:     frames,
		Timestamps: spans,
		Timestamp:  time.Now(),
	}
}

// Preview returns a truncated single-line preview of the content.
func (m *Message) Preview(maxLen int) string {
	content := strings.ReplaceAll(m.Content, "\n", " ")
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty reports whether the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0
}

// =============================================================================
// TIMESTAMP RANGES
// =============================================================================

// rangeSeparator is the literal separator the backend uses inside a
// combined range string such as "0:10 - 0:20".
const rangeSeparator = " - "

// SplitTimeRange splits a combined backend range string into its start
// and end halves. A string without the separator becomes a start with an
// empty end.
func SplitTimeRange(s string) (start, end string) {
	parts := strings.SplitN(s, rangeSeparator, 2)
	start = parts[0]
	if len(parts) == 2 {
		end = parts[1]
	}
	return start, end
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique, time-derived message ID.
func generateID() string {
	suffix := make([]byte, 3)
	rand.Read(suffix)
	return "msg_" + strconv.FormatInt(time.Now().UnixNano(), 36) + hex.EncodeToString(suffix)
}
