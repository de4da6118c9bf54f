// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the conversation view for the TUI.
//
// This file defines the keyboard bindings for the conversation screen.
package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keyboard bindings for the conversation view.
type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	Submit     key.Binding
	NewThread  key.Binding
	Sidebar    key.Binding
	NextTab    key.Binding
	PrevTab    key.Binding
	ToggleSrc  key.Binding
	FocusInput key.Binding
	Escape     key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "previous"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "next"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "ask"),
		),
		NewThread: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new conversation"),
		),
		Sidebar: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "toggle history"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "next detail tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-Tab", "previous detail tab"),
		),
		ToggleSrc: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "switch source type"),
		),
		FocusInput: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "focus input"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q", "ctrl+c"),
			key.WithHelp("C-q", "quit"),
		),
	}
}
