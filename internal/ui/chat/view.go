// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the conversation view for the TUI.
//
// This file contains rendering for the conversation screen: header,
// optional history sidebar, transcript, answer detail tabs, the video
// source picker, and the status bar.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/guide-tui/internal/model"
	"github.com/jeranaias/guide-tui/internal/util"
)

const sidebarWidth = 32

// View renders the full screen.
func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	var rows []string
	rows = append(rows, m.renderHeader())

	body := lipgloss.JoinVertical(lipgloss.Left,
		m.transcript.View(),
		m.renderTabs(),
		m.detail.View(),
	)
	if m.showSidebar {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), body)
	}
	rows = append(rows, body)

	rows = append(rows, m.renderInput())
	rows = append(rows, m.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// resize recomputes component dimensions.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)

	bodyWidth := width
	if m.showSidebar {
		bodyWidth -= sidebarWidth
	}

	// Header, tabs, input, status bar each take a row or two.
	bodyHeight := height - 6
	transcriptHeight := bodyHeight * 2 / 3
	if transcriptHeight < 3 {
		transcriptHeight = 3
	}
	detailHeight := bodyHeight - transcriptHeight - 1
	if detailHeight < 3 {
		detailHeight = 3
	}

	m.transcript.Width = bodyWidth
	m.transcript.Height = transcriptHeight
	m.detail.Width = bodyWidth
	m.detail.Height = detailHeight
	m.input.Width = width - 10
	m.sourceIn.Width = width - 24
}

// refreshViews rebuilds both viewports from orchestrator state.
func (m *Model) refreshViews() {
	m.refreshTranscript()
	m.refreshDetail()
}

// =============================================================================
// HEADER AND STATUS BAR
// =============================================================================

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("Guide AI")
	source := m.orch.ActiveSource()
	var right string
	if !source.IsZero() {
		right = m.theme.SourceTag.Render("▸ " + util.TruncateWidth(source.Name, 48))
	}

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(title + strings.Repeat(" ", gap) + right)
}

func (m Model) renderStatusBar() string {
	if m.status != "" {
		return m.theme.StatusBar.Width(m.width).Render(m.theme.ErrorStyle.Render(m.status))
	}
	if errMsg := m.orch.ErrorMessage(); errMsg != "" {
		return m.theme.StatusBar.Width(m.width).Render(m.theme.ErrorStyle.Render(errMsg))
	}
	if m.orch.Processing() {
		return m.theme.StatusBar.Width(m.width).Render(
			m.spin.View() + m.theme.Processing.Render(" Processing video..."))
	}

	help := []string{
		m.theme.StatusKey.Render("Enter") + m.theme.StatusDesc.Render(" ask"),
		m.theme.StatusKey.Render("C-o") + m.theme.StatusDesc.Render(" source"),
		m.theme.StatusKey.Render("C-n") + m.theme.StatusDesc.Render(" new"),
		m.theme.StatusKey.Render("C-s") + m.theme.StatusDesc.Render(" history"),
		m.theme.StatusKey.Render("Tab") + m.theme.StatusDesc.Render(" detail"),
		m.theme.StatusKey.Render("C-q") + m.theme.StatusDesc.Render(" quit"),
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(help, "  "))
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m *Model) refreshTranscript() {
	var sb strings.Builder
	selected := m.orch.SelectedID()

	for _, msg := range m.orch.Messages() {
		label := m.theme.MessageMeta.Render(msg.Role.DisplayName() + " · " + msg.Timestamp.Format("15:04"))
		switch msg.Role {
		case model.RoleUser:
			body := msg.Content
			if msg.VideoInfo != nil {
				body += "\n" + m.theme.SourceTag.Render("▸ "+util.TruncateWidth(msg.VideoInfo.Name, 40))
			}
			sb.WriteString(lipgloss.JoinVertical(lipgloss.Right, label, m.theme.UserBubble.Render(body)))
		case model.RoleAssistant:
			style := m.theme.AssistantBubble
			if msg.ID == selected {
				style = m.theme.AssistantSelected
			}
			sb.WriteString(lipgloss.JoinVertical(lipgloss.Left, label, style.Render(msg.Preview(400))))
		}
		sb.WriteString("\n")
	}

	m.transcript.SetContent(sb.String())
	m.transcript.GotoBottom()
}

// =============================================================================
// DETAIL TABS
// =============================================================================

func (m Model) renderTabs() string {
	var tabs []string
	for t := TabAnswer; t < tabCount; t++ {
		style := m.theme.TabInactive
		if t == m.activeTab {
			style = m.theme.TabActive
		}
		tabs = append(tabs, style.Render(t.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
}

// refreshDetail rebuilds the detail viewport for the selected answer.
func (m *Model) refreshDetail() {
	msg := m.selectedMessage()
	if msg == nil {
		m.detail.SetContent(m.theme.DetailBox.Render(
			m.theme.FormHint.Render("Ask a question to see the answer here.")))
		return
	}

	var content string
	switch m.activeTab {
	case TabAnswer:
		content = m.renderMarkdown(msg.Content)
	case TabReasoning:
		if msg.Reasoning == "" {
			content = m.theme.FormHint.Render("No reasoning provided for this answer.")
		} else {
			content = m.renderMarkdown(msg.Reasoning)
		}
	case TabFrames:
		content = m.renderFrames(msg.Frames)
	case TabTimestamps:
		content = m.renderSpans(msg.Timestamps)
	}

	m.detail.SetContent(content)
	m.detail.GotoTop()
}

func (m Model) selectedMessage() *model.Message {
	id := m.orch.SelectedID()
	if id == "" {
		return nil
	}
	for _, msg := range m.orch.Messages() {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

func (m Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return out
}

func (m Model) renderFrames(frames []model.KeyFrame) string {
	if len(frames) == 0 {
		return m.theme.FormHint.Render("No key frames for this answer.")
	}

	var cards []string
	for _, f := range frames {
		card := lipgloss.JoinVertical(lipgloss.Left,
			m.theme.SpanTime.Render(f.Timestamp),
			m.theme.SpanText.Render(util.TruncateWidth(f.Description, 36)),
		)
		cards = append(cards, m.theme.FrameCard.Render(card))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func (m Model) renderSpans(spans []model.TimeRange) string {
	if len(spans) == 0 {
		return m.theme.FormHint.Render("No timestamps for this answer.")
	}

	var lines []string
	for _, s := range spans {
		span := s.Start
		if s.End != "" {
			span += " – " + s.End
		}
		lines = append(lines, fmt.Sprintf("%s  %s",
			m.theme.SpanTime.Render(span),
			m.theme.SpanText.Render(s.Content)))
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) renderSidebar() string {
	threads := m.orch.Threads()
	var sb strings.Builder
	sb.WriteString(m.theme.ThreadTitle.Bold(true).Render("History"))
	sb.WriteString("\n\n")

	if len(threads) == 0 {
		sb.WriteString(m.theme.ThreadMeta.Render("No saved conversations."))
	}
	for i, t := range threads {
		style := m.theme.ThreadItem
		if i == m.sidebarIdx && m.focus == FocusSidebar {
			style = m.theme.ThreadItemSelected
		}
		title := t.Title
		if title == "" {
			title = t.VideoURL
		}
		item := lipgloss.JoinVertical(lipgloss.Left,
			m.theme.ThreadTitle.Render(util.TruncateWidth(title, sidebarWidth-4)),
			m.theme.ThreadMeta.Render(fmt.Sprintf("%d messages", t.MessageCount)),
		)
		sb.WriteString(style.Render(item))
		sb.WriteString("\n")
	}

	return m.theme.Sidebar.Width(sidebarWidth).Height(m.height - 6).Render(sb.String())
}

// =============================================================================
// INPUT
// =============================================================================

func (m Model) renderInput() string {
	kind := "URL"
	if m.sourceType == model.SourceUpload {
		kind = "File"
	}
	pickStyle := m.theme.PickerInactive
	if m.focus == FocusPicker {
		pickStyle = m.theme.PickerActive
	}
	picker := m.theme.PickerBox.Render(pickStyle.Render(kind) + " " + m.sourceIn.View())

	prompt := m.theme.InputPrompt.Render("❯ ")
	return m.theme.InputContainer.Width(m.width).Render(
		lipgloss.JoinVertical(lipgloss.Left, picker, prompt+m.input.View()))
}
