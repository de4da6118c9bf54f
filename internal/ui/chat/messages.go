// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the conversation view for the TUI.
//
// This file defines the Bubble Tea message types used by the view:
// submission results, thread list updates, and the forced-logout
// signal raised when the backend reports an expired session.
package chat

import (
	"github.com/jeranaias/guide-tui/internal/api"
	chatcore "github.com/jeranaias/guide-tui/internal/chat"
	"github.com/jeranaias/guide-tui/internal/model"
)

// SubmitResultMsg carries the outcome of one question round-trip.
type SubmitResultMsg struct {
	Pending *chatcore.Pending
	Resp    *api.ProcessResponse
	Err     error
}

// ThreadsLoadedMsg delivers a refreshed thread list for the sidebar.
type ThreadsLoadedMsg struct {
	Threads []model.Thread
	Err     error
}

// SessionExpiredMsg tells the root model to swap back to the login
// screen once the logout grace period has elapsed.
type SessionExpiredMsg struct{}

// clearStatusMsg removes a transient status line.
type clearStatusMsg struct{}
