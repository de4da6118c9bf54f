// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared lipgloss styles for CLI output.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/guide-tui/internal/ui/styles"
)

var (
	promptStyle  = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(styles.Emerald).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(styles.Rose).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(styles.Amber).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(styles.TextSecondary)
	valueStyle   = lipgloss.NewStyle().Foreground(styles.TextPrimary)
	metaStyle    = lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)
	titleStyle   = lipgloss.NewStyle().Foreground(styles.Indigo).Bold(true)
)
