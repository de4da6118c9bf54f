// guide - A terminal client for Guide AI video Q&A.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/guide-tui/internal/auth"
	"github.com/jeranaias/guide-tui/internal/cli"
	"github.com/jeranaias/guide-tui/internal/config"
	chatui "github.com/jeranaias/guide-tui/internal/ui/chat"
	"github.com/jeranaias/guide-tui/internal/ui/login"
	"github.com/jeranaias/guide-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdVersion:
		cli.HandleVersion()
		return
	case cli.CmdHelp:
		cli.Usage()
		return
	}

	app, err := cli.NewApp(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	switch cmd {
	case cli.CmdTUI:
		err = runTUI(app)
	case cli.CmdLogin:
		err = cli.HandleLogin(app)
	case cli.CmdLogout:
		err = cli.HandleLogout(app)
	case cli.CmdSignup:
		err = cli.HandleSignup(app)
	case cli.CmdAsk:
		err = cli.HandleAsk(app, args)
	case cli.CmdChat:
		err = cli.HandleChat(app, args)
	case cli.CmdHistory:
		err = cli.HandleHistory(app, args)
	case cli.CmdProfile:
		err = cli.HandleProfile(app, args)
	case cli.CmdPasswd:
		err = cli.HandlePasswd(app)
	case cli.CmdStatus:
		err = cli.HandleStatus(app, args)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		app.Close()
		os.Exit(1)
	}
}

// =============================================================================
// TUI ENTRY
// =============================================================================

// screen selects which sub-model owns the terminal.
type screen int

const (
	screenLogin screen = iota
	screenChat
)

// configReloadedMsg carries a freshly parsed config after an on-disk edit.
type configReloadedMsg struct {
	cfg *config.Config
}

// rootModel swaps between the login form and the chat screen.
type rootModel struct {
	app    *cli.App
	theme  *styles.Theme
	screen screen
	login  login.Model
	chat   chatui.Model
	width  int
	height int
}

func newRootModel(app *cli.App) rootModel {
	theme := styles.NewTheme()

	m := rootModel{
		app:   app,
		theme: theme,
		chat:  chatui.New(app.Orch, app.Client, theme, app.Cfg),
	}

	if app.Sess.Get() && app.Client.HasSession() {
		m.screen = screenChat
	} else {
		m.screen = screenLogin
		m.login = newLoginModel(app, theme)
	}
	return m
}

func newLoginModel(app *cli.App, theme *styles.Theme) login.Model {
	return login.New(
		auth.NewLoginFlow(app.Client, app.Sess),
		auth.NewSignupFlow(app.Client, app.Sess),
		theme,
	)
}

func (m rootModel) Init() tea.Cmd {
	if m.screen == screenChat {
		return m.chat.Init()
	}
	return m.login.Init()
}

func (m rootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)

	case configReloadedMsg:
		// Swap in place so every component holding the pointer sees
		// the new values on its next render.
		*m.app.Cfg = *msg.cfg
		return m, nil

	case login.AuthenticatedMsg:
		m.screen = screenChat
		m.chat = chatui.New(m.app.Orch, m.app.Client, m.theme, m.app.Cfg)
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		return m, tea.Batch(m.chat.Init(), cmd)

	case chatui.SessionExpiredMsg:
		m.screen = screenLogin
		m.login = newLoginModel(m.app, m.theme)
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		return m, tea.Batch(m.login.Init(), cmd)
	}

	var cmd tea.Cmd
	switch m.screen {
	case screenLogin:
		m.login, cmd = m.login.Update(msg)
	case screenChat:
		m.chat, cmd = m.chat.Update(msg)
	}
	return m, cmd
}

func (m rootModel) View() string {
	if m.screen == screenLogin {
		return m.login.View()
	}
	return m.chat.View()
}

// runTUI starts the full-screen interface.
func runTUI(app *cli.App) error {
	// Seed the sidebar from the local cache so history shows up
	// before the first backend round trip completes.
	if app.History != nil {
		if threads, err := app.History.List(); err == nil {
			app.Orch.SeedThreads(threads)
		}
	}

	p := tea.NewProgram(newRootModel(app), tea.WithAltScreen())

	// Pick up config edits made while the TUI is running.
	if path, err := config.ConfigPath(); err == nil {
		w, werr := config.NewWatcher(path, func(cfg *config.Config) {
			p.Send(configReloadedMsg{cfg: cfg})
		})
		if werr == nil && w.Watch() == nil {
			defer w.Close()
		}
	}

	_, err := p.Run()
	return err
}
