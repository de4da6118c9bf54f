// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package login provides the login and signup screens for the TUI.
package login

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/guide-tui/internal/api"
	"github.com/jeranaias/guide-tui/internal/auth"
	"github.com/jeranaias/guide-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// AuthenticatedMsg tells the root model that login or signup succeeded.
type AuthenticatedMsg struct {
	User *api.UserInfo
}

// resultMsg carries a finished flow attempt back to the update loop.
type resultMsg struct {
	user *api.UserInfo
	err  error
}

// =============================================================================
// MODE AND FIELDS
// =============================================================================

// Mode selects which form is shown.
type Mode int

const (
	ModeLogin Mode = iota
	ModeSignup
)

// Field indices for the two forms. Login uses the first two; signup
// uses all of them.
const (
	fieldEmail = iota
	fieldPassword
	fieldConfirm
	fieldFirstName
	fieldLastName
	fieldPhone

	fieldCount
)

var loginFields = []int{fieldEmail, fieldPassword}
var signupFields = []int{fieldEmail, fieldPassword, fieldConfirm, fieldFirstName, fieldLastName, fieldPhone}

var fieldLabels = map[int]string{
	fieldEmail:     "Email",
	fieldPassword:  "Password",
	fieldConfirm:   "Confirm password",
	fieldFirstName: "First name",
	fieldLastName:  "Last name",
	fieldPhone:     "Phone (optional)",
}

// =============================================================================
// LOGIN MODEL
// =============================================================================

// Model is the Bubble Tea model for authentication.
type Model struct {
	theme  *styles.Theme
	login  *auth.LoginFlow
	signup *auth.SignupFlow

	mode       Mode
	inputs     [fieldCount]textinput.Model
	focusIdx   int
	submitting bool
	errMsg     string

	width  int
	height int
}

// New creates the authentication screen in login mode.
func New(login *auth.LoginFlow, signup *auth.SignupFlow, theme *styles.Theme) Model {
	m := Model{
		theme:  theme,
		login:  login,
		signup: signup,
	}

	for i := range m.inputs {
		in := textinput.New()
		in.Placeholder = fieldLabels[i]
		in.CharLimit = 200
		if i == fieldPassword || i == fieldConfirm {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		m.inputs[i] = in
	}
	m.inputs[fieldEmail].Focus()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// fields returns the active field order for the current mode.
func (m Model) fields() []int {
	if m.mode == ModeSignup {
		return signupFields
	}
	return loginFields
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case resultMsg:
		m.submitting = false
		if msg.err != nil {
			m.errMsg = failText(m.mode, m.login, m.signup, msg.err)
			return m, nil
		}
		user := msg.user
		return m, func() tea.Msg { return AuthenticatedMsg{User: user} }

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "ctrl+q":
		return m, tea.Quit

	case "ctrl+t":
		// Flip between login and signup; field contents carry over.
		if m.mode == ModeLogin {
			m.mode = ModeSignup
		} else {
			m.mode = ModeLogin
		}
		m.errMsg = ""
		m.setFocus(0)
		return m, nil

	case "tab", "down":
		m.setFocus(m.focusIdx + 1)
		return m, nil

	case "shift+tab", "up":
		m.setFocus(m.focusIdx - 1)
		return m, nil

	case "enter":
		if m.focusIdx < len(m.fields())-1 {
			m.setFocus(m.focusIdx + 1)
			return m, nil
		}
		return m.submit()
	}

	return m.updateFocused(msg)
}

func (m Model) updateFocused(msg tea.Msg) (Model, tea.Cmd) {
	idx := m.fields()[m.focusIdx]
	var cmd tea.Cmd
	m.inputs[idx], cmd = m.inputs[idx].Update(msg)
	return m, cmd
}

// setFocus moves focus to the field at position i, wrapping around.
func (m *Model) setFocus(i int) {
	order := m.fields()
	n := len(order)
	m.focusIdx = ((i % n) + n) % n

	for pos, idx := range order {
		if pos == m.focusIdx {
			m.inputs[idx].Focus()
		} else {
			m.inputs[idx].Blur()
		}
	}
}

// submit runs the active flow off the update loop.
func (m Model) submit() (Model, tea.Cmd) {
	m.errMsg = ""
	m.submitting = true

	email := strings.TrimSpace(m.inputs[fieldEmail].Value())
	password := m.inputs[fieldPassword].Value()

	if m.mode == ModeLogin {
		flow := m.login
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			user, err := flow.Submit(ctx, email, password)
			return resultMsg{user: user, err: err}
		}
	}

	req := api.SignupRequest{
		Email:       email,
		Password:    password,
		FirstName:   strings.TrimSpace(m.inputs[fieldFirstName].Value()),
		LastName:    strings.TrimSpace(m.inputs[fieldLastName].Value()),
		PhoneNumber: strings.TrimSpace(m.inputs[fieldPhone].Value()),
	}
	confirm := m.inputs[fieldConfirm].Value()
	flow := m.signup
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		user, err := flow.Submit(ctx, req, confirm)
		return resultMsg{user: user, err: err}
	}
}

// failText prefers the flow's display reason over the raw error.
func failText(mode Mode, login *auth.LoginFlow, signup *auth.SignupFlow, err error) string {
	var vErr *auth.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Reason
	}
	if mode == ModeLogin {
		if reason := login.FailReason(); reason != "" {
			return reason
		}
	} else if reason := signup.FailReason(); reason != "" {
		return reason
	}
	return err.Error()
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the form centered on screen.
func (m Model) View() string {
	title := "Log in to Guide AI"
	hint := "C-t sign up instead · Enter next/submit · C-q quit"
	if m.mode == ModeSignup {
		title = "Create your Guide AI account"
		hint = "C-t log in instead · Enter next/submit · C-q quit"
	}

	var rows []string
	rows = append(rows, m.theme.FormTitle.Render(title))

	for pos, idx := range m.fields() {
		label := m.theme.FormLabel.Render(fieldLabels[idx])
		if pos == m.focusIdx {
			label = m.theme.FormFieldFocus.Render(fieldLabels[idx])
		}
		rows = append(rows, label)
		rows = append(rows, m.inputs[idx].View())
	}

	if m.submitting {
		rows = append(rows, "")
		rows = append(rows, m.theme.WarningStyle.Render("Signing in..."))
	} else if m.errMsg != "" {
		rows = append(rows, "")
		rows = append(rows, m.theme.Error(m.errMsg))
	}

	rows = append(rows, "")
	rows = append(rows, m.theme.FormHint.Render(hint))

	box := m.theme.FormBox.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	if m.width == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
