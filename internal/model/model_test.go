// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"
	"time"

	"github.com/jeranaias/guide-tui/internal/api"
)

func TestSplitTimeRange(t *testing.T) {
	tests := []struct {
		input     string
		wantStart string
		wantEnd   string
	}{
		{"0:10 - 0:20", "0:10", "0:20"},
		{"00:00 - 00:30", "00:00", "00:30"},
		{"1:30:00 - 1:45:12", "1:30:00", "1:45:12"},
		{"2:35", "2:35", ""},                 // no separator: start only
		{"0:10 - 0:20 - 0:30", "0:10", "0:20 - 0:30"}, // split once, at the first separator
		{"", "", ""},
	}

	for _, tt := range tests {
		start, end := SplitTimeRange(tt.input)
		if start != tt.wantStart || end != tt.wantEnd {
			t.Errorf("SplitTimeRange(%q) = (%q, %q), want (%q, %q)",
				tt.input, start, end, tt.wantStart, tt.wantEnd)
		}
	}
}

func TestGenerateID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := generateID()
		if seen[id] {
			t.Fatalf("duplicate ID %q after %d generations", id, i)
		}
		seen[id] = true
	}
}

func TestVideoSource_Resolved(t *testing.T) {
	url := NewURLSource("https://youtube.test/watch?v=abc")
	if url.Resolved() != "https://youtube.test/watch?v=abc" {
		t.Errorf("URL source resolved = %q", url.Resolved())
	}
	if url.Type != SourceURL {
		t.Errorf("URL source type = %q", url.Type)
	}

	up := NewUploadSource("/home/user/videos/lecture.mp4")
	if up.Resolved() != "/home/user/videos/lecture.mp4" {
		t.Errorf("upload source resolved = %q", up.Resolved())
	}
	if up.Name != "lecture.mp4" {
		t.Errorf("upload source name = %q", up.Name)
	}

	if !(VideoSource{}).IsZero() {
		t.Error("zero source should report IsZero")
	}
	if up.IsZero() {
		t.Error("upload source should not report IsZero")
	}
}

func TestNewUserMessage_CarriesSource(t *testing.T) {
	src := NewURLSource("https://x.test/v")
	msg := NewUserMessage("what happens at the end?", src)

	if msg.Role != RoleUser {
		t.Errorf("role = %q", msg.Role)
	}
	if msg.VideoInfo == nil || msg.VideoInfo.URL != "https://x.test/v" {
		t.Errorf("videoInfo = %+v", msg.VideoInfo)
	}
	if msg.ID == "" {
		t.Error("message must have an ID")
	}
	if msg.Timestamp.IsZero() {
		t.Error("message must be timestamped")
	}

	// A blank source stays absent rather than becoming an empty struct.
	bare := NewUserMessage("q", VideoSource{})
	if bare.VideoInfo != nil {
		t.Errorf("blank source should leave VideoInfo nil, got %+v", bare.VideoInfo)
	}
}

func TestThread_Flatten(t *testing.T) {
	thread := Thread{
		ID:       5,
		VideoURL: "https://x.test/v",
		History: []api.Exchange{
			{
				Query: "Q1",
				Response: &api.ProcessResponse{
					ChatID:   5,
					Response: "A1",
					Timestamps: []api.WireTimeSpan{
						{Time: "0:10 - 0:20", Description: "d"},
					},
				},
			},
		},
	}

	msgs := thread.Flatten()
	if len(msgs) != 2 {
		t.Fatalf("Flatten produced %d messages, want 2", len(msgs))
	}

	if msgs[0].Role != RoleUser || msgs[0].Content != "Q1" {
		t.Errorf("first message = %s %q", msgs[0].Role, msgs[0].Content)
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Content != "A1" {
		t.Errorf("second message = %s %q", msgs[1].Role, msgs[1].Content)
	}

	if len(msgs[1].Timestamps) != 1 {
		t.Fatalf("assistant timestamps = %d, want 1", len(msgs[1].Timestamps))
	}
	span := msgs[1].Timestamps[0]
	if span.Start != "0:10" || span.End != "0:20" || span.Content != "d" {
		t.Errorf("span = %+v", span)
	}
}

func TestThread_Flatten_UnansweredQuery(t *testing.T) {
	thread := Thread{
		VideoURL: "https://x.test/v",
		History: []api.Exchange{
			{Query: "Q1", Response: &api.ProcessResponse{Response: "A1"}},
			{Query: "Q2", Response: nil}, // backend crashed before answering
		},
	}

	msgs := thread.Flatten()
	if len(msgs) != 3 {
		t.Fatalf("Flatten produced %d messages, want 3", len(msgs))
	}
	if msgs[2].Role != RoleUser || msgs[2].Content != "Q2" {
		t.Errorf("trailing message = %s %q", msgs[2].Role, msgs[2].Content)
	}
}

func TestThreadFromSummary(t *testing.T) {
	now := time.Now()
	s := api.ChatSummary{
		ID: 9, VideoURL: "https://x.test/v", Title: "T",
		LastMessage: "Q", UpdatedAt: now, MessageCount: 4,
	}
	thread := ThreadFromSummary(s)
	if thread.ID != 9 || thread.Title != "T" || thread.MessageCount != 4 {
		t.Errorf("thread = %+v", thread)
	}
	if !thread.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v", thread.UpdatedAt)
	}
}

func TestMessage_Preview(t *testing.T) {
	msg := NewUserMessage("line one\nline two that keeps going for a while", VideoSource{})
	got := msg.Preview(20)
	if len([]rune(got)) > 20 {
		t.Errorf("preview too long: %q", got)
	}
	if got[:8] != "line one" {
		t.Errorf("preview = %q", got)
	}
}
