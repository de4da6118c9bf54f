// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/guide-tui/internal/api"
	chatcore "github.com/jeranaias/guide-tui/internal/chat"
	"github.com/jeranaias/guide-tui/internal/config"
	"github.com/jeranaias/guide-tui/internal/model"
	"github.com/jeranaias/guide-tui/internal/ui/styles"
)

// =============================================================================
// VIEW STATE
// =============================================================================

// Focus identifies which region receives key input.
type Focus int

const (
	FocusInput Focus = iota
	FocusTranscript
	FocusSidebar
	FocusPicker
)

// Tab is one pane of the answer detail view.
type Tab int

const (
	TabAnswer Tab = iota
	TabReasoning
	TabFrames
	TabTimestamps

	tabCount
)

// String returns the tab label.
func (t Tab) String() string {
	switch t {
	case TabAnswer:
		return "Answer"
	case TabReasoning:
		return "Reasoning"
	case TabFrames:
		return "Frames"
	case TabTimestamps:
		return "Timestamps"
	default:
		return "?"
	}
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the conversation view.
type Model struct {
	// Orchestration
	orch   *chatcore.Orchestrator
	client *api.Client

	// Styling
	theme *styles.Theme
	cfg   *config.Config

	// Dimensions
	width  int
	height int

	// UI components
	transcript viewport.Model
	detail     viewport.Model
	input      textinput.Model
	sourceIn   textinput.Model
	spin       spinner.Model

	// Markdown rendering for the Answer tab
	renderer *glamour.TermRenderer

	// View state
	focus        Focus
	activeTab    Tab
	showSidebar  bool
	sidebarIdx   int
	sourceType   model.SourceType
	status       string
	keyMap       KeyMap
}

// New creates the conversation view.
func New(orch *chatcore.Orchestrator, client *api.Client, theme *styles.Theme, cfg *config.Config) Model {
	input := textinput.New()
	input.Placeholder = "Ask a question about the video..."
	input.PlaceholderStyle = theme.InputPlaceholder
	input.CharLimit = 2000
	input.Focus()

	sourceIn := textinput.New()
	sourceIn.Placeholder = "https://..."
	sourceIn.PlaceholderStyle = theme.InputPlaceholder
	sourceIn.CharLimit = 2000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(cfg.UI.MarkdownWidth),
	)

	return Model{
		orch:       orch,
		client:     client,
		theme:      theme,
		cfg:        cfg,
		transcript: viewport.New(0, 0),
		detail:     viewport.New(0, 0),
		input:      input,
		sourceIn:   sourceIn,
		spin:       sp,
		renderer:   renderer,
		focus:      FocusInput,
		sourceType: model.SourceURL,
		keyMap:     DefaultKeyMap(),
	}
}

// Init starts the spinner and pulls the thread list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.refreshThreadsCmd())
}

// =============================================================================
// COMMANDS
// =============================================================================

// submitCmd runs the network half of a submission. The synchronous
// half (validation, optimistic append) already ran in Update.
func (m Model) submitCmd(p *chatcore.Pending) tea.Cmd {
	client := m.client
	timeout := time.Duration(m.cfg.API.TimeoutSecs) * time.Second
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		resp, err := client.ProcessVideo(ctx, api.ProcessRequest{
			VideoURL: p.Source.Resolved(),
			Query:    p.Query,
			ChatID:   p.ThreadID,
		})
		return SubmitResultMsg{Pending: p, Resp: resp, Err: err}
	}
}

// refreshThreadsCmd reloads the sidebar from the backend.
func (m Model) refreshThreadsCmd() tea.Cmd {
	orch := m.orch
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := orch.RefreshThreads(ctx)
		return ThreadsLoadedMsg{Threads: orch.Threads(), Err: err}
	}
}

// expireCmd emits SessionExpiredMsg after the logout grace period, so
// the expiry message is readable before the login screen replaces the
// conversation.
func expireCmd() tea.Cmd {
	return tea.Tick(chatcore.LogoutGrace, func(time.Time) tea.Msg {
		return SessionExpiredMsg{}
	})
}

// clearStatusCmd removes the transient status line after a beat.
func clearStatusCmd() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}
