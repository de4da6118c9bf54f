// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history.go - Conversation history command handler.
//
// Commands:
//   history              List saved conversations
//   history search TERM  Search titles, answers, and video URLs
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/guide-tui/internal/model"
	"github.com/jeranaias/guide-tui/internal/util"
)

// HandleHistory lists or searches the conversation history. Listing
// prefers the backend (refreshing the local cache as a side effect) and
// falls back to the cache when offline. Search always runs against the
// local cache.
func HandleHistory(app *App, args Args) error {
	if err := app.RequireSession(); err != nil {
		return err
	}

	if args.Subcommand == "search" {
		return handleHistorySearch(app, args)
	}

	threads, fromCache := loadThreads(app)
	if len(threads) == 0 {
		fmt.Println(metaStyle.Render("No conversations yet. Try: guide ask --video URL \"your question\""))
		return nil
	}

	if fromCache && !args.Quiet {
		fmt.Println(warningStyle.Render("⚠ Backend unreachable, showing cached history"))
	}
	printThreadTable(threads)
	return nil
}

func handleHistorySearch(app *App, args Args) error {
	term := strings.TrimSpace(strings.Join(args.Raw, " "))
	if term == "" {
		return fmt.Errorf("usage: guide history search TERM")
	}
	if app.History == nil {
		return fmt.Errorf("history cache unavailable")
	}

	// Best-effort refresh so the search sees recent conversations.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	_ = app.Orch.RefreshThreads(ctx)
	cancel()

	threads, err := app.History.Search(term)
	if err != nil {
		return err
	}
	if len(threads) == 0 {
		fmt.Println(metaStyle.Render(fmt.Sprintf("No conversations matching %q", term)))
		return nil
	}
	printThreadTable(threads)
	return nil
}

// loadThreads fetches the thread list from the backend, falling back to
// the local cache. The second return reports whether the cache served.
func loadThreads(app *App) ([]model.Thread, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Orch.RefreshThreads(ctx); err == nil {
		return app.Orch.Threads(), false
	}
	if app.History != nil {
		if threads, err := app.History.List(); err == nil {
			return threads, true
		}
	}
	return app.Orch.Threads(), false
}

// listThreads prints the current thread list for the chat REPL.
func listThreads(app *App) {
	threads, fromCache := loadThreads(app)
	if len(threads) == 0 {
		fmt.Println(metaStyle.Render("No conversations yet."))
		return
	}
	if fromCache {
		fmt.Println(warningStyle.Render("⚠ Backend unreachable, showing cached history"))
	}
	printThreadTable(threads)
}

func printThreadTable(threads []model.Thread) {
	for _, t := range threads {
		id := labelStyle.Render(fmt.Sprintf("%4d", t.ID))
		title := valueStyle.Render(util.TruncateWidth(util.OneLine(t.Title), 48))
		when := metaStyle.Render(t.UpdatedAt.Local().Format("2006-01-02 15:04"))
		count := metaStyle.Render(fmt.Sprintf("%d msg", t.MessageCount))
		fmt.Printf("%s  %s  %s  %s\n", id, title, when, count)
		if t.LastMessage != "" {
			fmt.Println("      " + metaStyle.Render(util.TruncateWidth(util.OneLine(t.LastMessage), 72)))
		}
	}
}
