// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER AND STATUS BAR
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	StatusDesc  lipgloss.Style
	Processing  lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT STYLES
	// ==========================================================================

	UserBubble        lipgloss.Style
	AssistantBubble   lipgloss.Style
	AssistantSelected lipgloss.Style
	MessageMeta       lipgloss.Style
	SourceTag         lipgloss.Style

	// ==========================================================================
	// DETAIL PANE STYLES
	// ==========================================================================

	TabActive   lipgloss.Style
	TabInactive lipgloss.Style
	DetailBox   lipgloss.Style
	FrameCard   lipgloss.Style
	SpanTime    lipgloss.Style
	SpanText    lipgloss.Style

	// ==========================================================================
	// SIDEBAR STYLES
	// ==========================================================================

	Sidebar            lipgloss.Style
	ThreadItem         lipgloss.Style
	ThreadItemSelected lipgloss.Style
	ThreadTitle        lipgloss.Style
	ThreadMeta         lipgloss.Style

	// ==========================================================================
	// INPUT AND PICKER STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style
	PickerBox        lipgloss.Style
	PickerActive     lipgloss.Style
	PickerInactive   lipgloss.Style

	// ==========================================================================
	// FORM STYLES (login / signup)
	// ==========================================================================

	FormBox        lipgloss.Style
	FormTitle      lipgloss.Style
	FormLabel      lipgloss.Style
	FormFieldFocus lipgloss.Style
	FormHint       lipgloss.Style

	// ==========================================================================
	// STATUS INDICATOR STYLES
	// ==========================================================================

	ErrorStyle   lipgloss.Style
	WarningStyle lipgloss.Style
}

// NewTheme creates a new theme with all styles configured.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}

	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(SurfaceDim).
		Padding(0, 2)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Indigo)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.StatusKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.StatusDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Processing = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	// Transcript
	t.UserBubble = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Cyan).
		Padding(0, 2).
		MarginLeft(4)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Indigo).
		Padding(0, 2).
		MarginRight(4)

	t.AssistantSelected = t.AssistantBubble.
		BorderForeground(Emerald).
		Background(SurfaceBright)

	t.MessageMeta = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.SourceTag = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	// Detail pane
	t.TabActive = lipgloss.NewStyle().
		Bold(true).
		Foreground(Indigo).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Indigo).
		Padding(0, 2)

	t.TabInactive = lipgloss.NewStyle().
		Foreground(TextMuted).
		Padding(0, 2)

	t.DetailBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(1, 2)

	t.FrameCard = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Overlay).
		Padding(0, 1).
		MarginRight(2)

	t.SpanTime = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.SpanText = lipgloss.NewStyle().
		Foreground(TextSecondary)

	// Sidebar
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		PaddingRight(1)

	t.ThreadItem = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Padding(0, 1)

	t.ThreadItemSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SurfaceBright).
		Bold(true).
		Padding(0, 1)

	t.ThreadTitle = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.ThreadMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Input and picker
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.PickerBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.PickerActive = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.PickerInactive = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Forms
	t.FormBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Indigo).
		Padding(1, 3)

	t.FormTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Indigo).
		MarginBottom(1)

	t.FormLabel = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.FormFieldFocus = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.FormHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Status indicators
	t.ErrorStyle = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.WarningStyle = lipgloss.NewStyle().Foreground(Amber).Bold(true)
}

// SetSize records the terminal dimensions for layout decisions.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// Error renders text with an error indicator.
func (t *Theme) Error(text string) string {
	return t.ErrorStyle.Render("✗ " + text)
}
