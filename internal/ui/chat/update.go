// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the conversation view for the TUI.
//
// This file contains the Bubble Tea update loop for the conversation
// screen.
package chat

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/guide-tui/internal/api"
	chatcore "github.com/jeranaias/guide-tui/internal/chat"
	"github.com/jeranaias/guide-tui/internal/model"
)

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refreshViews()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SubmitResultMsg:
		m.orch.Complete(context.Background(), msg.Pending, msg.Resp, msg.Err)
		m.refreshViews()
		if msg.Err != nil {
			if api.AsError(msg.Err).Kind() == api.KindAuth {
				return m, expireCmd()
			}
			return m, nil
		}
		m.activeTab = TabAnswer
		return m, m.refreshThreadsCmd()

	case ThreadsLoadedMsg:
		// A failed refresh keeps the previous sidebar content.
		if msg.Err == nil && m.sidebarIdx >= len(msg.Threads) {
			m.sidebarIdx = 0
		}
		return m, nil

	case clearStatusMsg:
		m.status = ""
		return m, nil

	case spinner.TickMsg:
		if m.orch.Processing() {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	// Forward everything else to the focused text input.
	var cmd tea.Cmd
	switch m.focus {
	case FocusInput:
		m.input, cmd = m.input.Update(msg)
	case FocusPicker:
		m.sourceIn, cmd = m.sourceIn.Update(msg)
	}
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// handleKey routes key presses by focus region.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.NewThread):
		m.orch.StartNewThread()
		m.input.SetValue("")
		m.sourceIn.SetValue("")
		m.status = ""
		m.refreshViews()
		return m, m.refreshThreadsCmd()

	case key.Matches(msg, m.keyMap.Sidebar):
		m.showSidebar = !m.showSidebar
		if m.showSidebar {
			m.focus = FocusSidebar
			m.input.Blur()
		} else {
			m.focus = FocusInput
			m.input.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keyMap.NextTab):
		m.activeTab = (m.activeTab + 1) % tabCount
		m.refreshDetail()
		return m, nil

	case key.Matches(msg, m.keyMap.PrevTab):
		m.activeTab = (m.activeTab + tabCount - 1) % tabCount
		m.refreshDetail()
		return m, nil

	case key.Matches(msg, m.keyMap.ToggleSrc):
		if m.sourceType == model.SourceURL {
			m.sourceType = model.SourceUpload
			m.sourceIn.Placeholder = "/path/to/video.mp4"
		} else {
			m.sourceType = model.SourceURL
			m.sourceIn.Placeholder = "https://..."
		}
		// The two source kinds are mutually exclusive; switching
		// clears whatever was typed for the other one.
		m.sourceIn.SetValue("")
		return m, nil
	}

	switch m.focus {
	case FocusSidebar:
		return m.handleSidebarKey(msg)
	case FocusTranscript:
		return m.handleTranscriptKey(msg)
	default:
		return m.handleInputKey(msg)
	}
}

// handleInputKey handles keys while the question input is focused.
func (m Model) handleInputKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Submit):
		return m.submit()

	case key.Matches(msg, m.keyMap.Escape):
		m.focus = FocusTranscript
		m.input.Blur()
		return m, nil

	case msg.String() == "ctrl+o":
		// Jump to the source field.
		m.focus = FocusPicker
		m.input.Blur()
		m.sourceIn.Focus()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSidebarKey handles keys while the thread list is focused.
func (m Model) handleSidebarKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	threads := m.orch.Threads()
	switch {
	case key.Matches(msg, m.keyMap.Up):
		if m.sidebarIdx > 0 {
			m.sidebarIdx--
		}
	case key.Matches(msg, m.keyMap.Down):
		if m.sidebarIdx < len(threads)-1 {
			m.sidebarIdx++
		}
	case key.Matches(msg, m.keyMap.Submit):
		if m.sidebarIdx < len(threads) {
			m.orch.LoadThread(threads[m.sidebarIdx])
			m.showSidebar = false
			m.focus = FocusInput
			m.input.Focus()
			m.refreshViews()
		}
	case key.Matches(msg, m.keyMap.Escape):
		m.showSidebar = false
		m.focus = FocusInput
		m.input.Focus()
	}
	return m, nil
}

// handleTranscriptKey handles keys while the transcript is focused.
// Up/down move the selection across assistant messages so their detail
// can be inspected.
func (m Model) handleTranscriptKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Up):
		m.moveSelection(-1)
		m.refreshViews()
	case key.Matches(msg, m.keyMap.Down):
		m.moveSelection(1)
		m.refreshViews()
	case key.Matches(msg, m.keyMap.FocusInput), key.Matches(msg, m.keyMap.Escape):
		m.focus = FocusInput
		m.input.Focus()
	default:
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	}
	return m, nil
}

// submit runs the synchronous half of a question submission and kicks
// off the network call.
func (m Model) submit() (Model, tea.Cmd) {
	source := m.currentSource()
	p, err := m.orch.Begin(source, m.input.Value())
	if err != nil {
		switch {
		case errors.Is(err, chatcore.ErrNoInput), errors.Is(err, chatcore.ErrBusy):
			// Silent no-op, matching the disabled-submit behavior.
			return m, nil
		default:
			m.status = err.Error()
			return m, clearStatusCmd()
		}
	}

	m.input.SetValue("")
	m.refreshViews()
	return m, tea.Batch(m.spin.Tick, m.submitCmd(p))
}

// currentSource builds the video source from the picker field, falling
// back to the active thread's source when the field is empty.
func (m Model) currentSource() model.VideoSource {
	value := m.sourceIn.Value()
	if value == "" {
		return m.orch.ActiveSource()
	}
	if m.sourceType == model.SourceUpload {
		return model.NewUploadSource(value)
	}
	return model.NewURLSource(value)
}

// moveSelection shifts the selected assistant message by delta.
func (m *Model) moveSelection(delta int) {
	msgs := m.orch.Messages()
	var assistants []string
	cur := -1
	for _, msg := range msgs {
		if msg.Role != model.RoleAssistant {
			continue
		}
		if msg.ID == m.orch.SelectedID() {
			cur = len(assistants)
		}
		assistants = append(assistants, msg.ID)
	}
	if len(assistants) == 0 {
		return
	}

	next := cur + delta
	if next < 0 {
		next = 0
	}
	if next >= len(assistants) {
		next = len(assistants) - 1
	}
	m.orch.Select(assistants[next])
}
