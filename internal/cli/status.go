// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Status command handler.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/guide-tui/internal/config"
)

// HandleStatus prints the backend address, session state, and local
// cache details. It works without a session so users can diagnose a
// failed login.
func HandleStatus(app *App, args Args) error {
	fmt.Println(titleStyle.Render("Guide AI status"))
	fmt.Println()

	printField("Backend", app.Client.BaseURL())
	if path, err := config.ConfigPath(); err == nil {
		printField("Config", path)
	}

	switch {
	case !app.Sess.Get():
		printField("Session", warningStyle.Render("not logged in"))
	case !app.Client.HasSession():
		// The flag survived but the cookie jar did not.
		printField("Session", warningStyle.Render("expired (run: guide login)"))
	default:
		printField("Session", successStyle.Render("active"))
	}

	if app.History != nil {
		if n, err := app.History.Count(); err == nil {
			printField("Cached chats", fmt.Sprintf("%d", n))
		}
		printField("Cache", app.History.Path())
	} else {
		printField("Cache", metaStyle.Render("unavailable"))
	}

	// Reachability probe. History is the cheapest authenticated call;
	// an auth error still proves the backend answered.
	if app.Sess.Get() && app.Client.HasSession() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		start := time.Now()
		_, err := app.Client.ChatHistory(ctx)
		if err != nil {
			printField("Reachable", errorStyle.Render("no ("+err.Error()+")"))
		} else {
			printField("Reachable", successStyle.Render(fmt.Sprintf("yes (%dms)", time.Since(start).Milliseconds())))
		}
	}
	return nil
}
