// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Shared wiring for CLI command handlers.
package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/guide-tui/internal/api"
	"github.com/jeranaias/guide-tui/internal/chat"
	"github.com/jeranaias/guide-tui/internal/config"
	"github.com/jeranaias/guide-tui/internal/logging"
	"github.com/jeranaias/guide-tui/internal/session"
	"github.com/jeranaias/guide-tui/internal/storage"
)

// App bundles everything a command handler needs.
type App struct {
	Cfg     *config.Config
	Log     *zap.Logger
	Client  *api.Client
	Sess    *session.Store
	History *storage.Store
	Orch    *chat.Orchestrator

	cleanup []func()
}

// NewApp loads config and wires the shared components. History cache
// failures are non-fatal: the CLI still works against the backend.
func NewApp(args Args) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if args.BaseURL != "" {
		cfg.API.BaseURL = args.BaseURL
	}

	if err := config.EnsureConfigDir(); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}

	log, logCleanup, err := logging.New(dir, cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		// Logging is best-effort; run silent rather than refuse to start.
		log = zap.NewNop()
		logCleanup = func() {}
	}

	client := api.NewClient(cfg.API.BaseURL).
		WithTimeout(time.Duration(cfg.API.TimeoutSecs) * time.Second).
		WithLogger(log).
		WithCookiePath(filepath.Join(dir, "cookies.json"))

	sess := session.NewStore(filepath.Join(dir, "session.json"))

	app := &App{
		Cfg:     cfg,
		Log:     log,
		Client:  client,
		Sess:    sess,
		cleanup: []func(){logCleanup},
	}

	history, err := storage.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		log.Warn("history cache unavailable", zap.Error(err))
	} else {
		app.History = history
		app.cleanup = append(app.cleanup, func() { history.Close() })
	}

	orch := chat.New(client, sess).WithLogger(log)
	if app.History != nil {
		orch.WithCache(app.History)
	}
	app.Orch = orch

	return app, nil
}

// Close releases resources in reverse order.
func (a *App) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

// RequireSession fails fast when no local session exists.
func (a *App) RequireSession() error {
	if !a.Sess.Get() {
		return fmt.Errorf("not logged in. Run: guide login")
	}
	return nil
}
