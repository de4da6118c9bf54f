// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler.
//
// Command: chat [--video URL|FILE]
//
// REPL commands:
//   /video URL|FILE   Set or change the video source
//   /new              Start a new conversation
//   /history          List saved conversations
//   /load N           Load conversation with id N
//   /quit, /q         Exit
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/guide-tui/internal/config"
	"github.com/jeranaias/guide-tui/internal/model"
)

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{line: line}
	if dir, err := config.ConfigDir(); err == nil {
		c.historyFile = filepath.Join(dir, "chat_history")
		c.loadHistory()
	}
	return c
}

func (c *ChatCLI) loadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads one line with history navigation.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	if c.historyFile != "" {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// HandleChat runs the interactive REPL.
func HandleChat(app *App, args Args) error {
	if err := app.RequireSession(); err != nil {
		return err
	}

	input := NewChatCLI()
	defer input.Close()

	var source model.VideoSource
	if args.Video != "" {
		source = sourceFromArg(args.Video)
	}

	if !args.Quiet {
		fmt.Println(titleStyle.Render("Guide AI chat"))
		fmt.Println(metaStyle.Render("Ask about a video. /video sets the source, /quit exits, /help lists commands."))
		if !source.IsZero() {
			fmt.Println(successStyle.Render("▸ " + source.Name))
		}
		fmt.Println()
	}

	for {
		raw, err := input.ReadInput(promptStyle.Render("guide> "))
		if err != nil {
			// Ctrl+C or Ctrl+D both end the session.
			fmt.Println()
			return nil
		}
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			done, newSource := handleChatCommand(app, line, source)
			source = newSource
			if done {
				return nil
			}
			continue
		}

		active := source
		if active.IsZero() {
			active = app.Orch.ActiveSource()
		}
		if active.IsZero() {
			fmt.Println(warningStyle.Render("⚠ No video selected. Use /video URL or /video /path/to/file first."))
			continue
		}

		fmt.Println(metaStyle.Render("Processing..."))
		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(app.Cfg.API.TimeoutSecs)*time.Second)
		answer, err := app.Orch.Submit(ctx, active, line)
		cancel()
		if err != nil {
			fmt.Println(errorStyle.Render("✗ " + submitErrorText(app.Orch, err)))
			continue
		}

		printAnswer(app, answer, args.Verbose)
	}
}

// handleChatCommand executes a slash command. It returns done=true when
// the REPL should exit, and the (possibly updated) video source.
func handleChatCommand(app *App, line string, source model.VideoSource) (bool, model.VideoSource) {
	parts := strings.Fields(line)
	switch parts[0] {
	case "/quit", "/q", "/exit":
		return true, source

	case "/help", "/?":
		fmt.Println("  /video URL|FILE   set the video source")
		fmt.Println("  /new              start a new conversation")
		fmt.Println("  /history          list saved conversations")
		fmt.Println("  /load N           load conversation N")
		fmt.Println("  /quit             exit")
		return false, source

	case "/video", "/v":
		if len(parts) < 2 {
			fmt.Println(warningStyle.Render("Usage: /video URL|FILE"))
			return false, source
		}
		next := sourceFromArg(parts[1])
		fmt.Println(successStyle.Render("▸ " + next.Name))
		return false, next

	case "/new", "/n":
		app.Orch.StartNewThread()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := app.Orch.RefreshThreads(ctx); err != nil {
			fmt.Println(warningStyle.Render("⚠ Could not refresh the conversation list"))
		}
		cancel()
		fmt.Println(successStyle.Render("✓ New conversation"))
		// Clearing the thread also clears the source binding.
		return false, model.VideoSource{}

	case "/history", "/h":
		listThreads(app)
		return false, source

	case "/load", "/l":
		if len(parts) < 2 {
			fmt.Println(warningStyle.Render("Usage: /load N"))
			return false, source
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			fmt.Println(warningStyle.Render("Usage: /load N"))
			return false, source
		}
		thread, ok := findThread(app, id)
		if !ok {
			fmt.Println(errorStyle.Render("✗ No conversation with id " + parts[1]))
			return false, source
		}
		app.Orch.LoadThread(thread)
		fmt.Println(successStyle.Render("✓ Loaded: " + thread.Title))
		for _, msg := range app.Orch.Messages() {
			prefix := promptStyle.Render(msg.Role.DisplayName() + ": ")
			fmt.Println(prefix + msg.Preview(120))
		}
		return false, thread.Source()

	default:
		fmt.Println(warningStyle.Render("Unknown command: " + parts[0]))
		return false, source
	}
}

// findThread looks in the in-memory list, then the local cache, then
// the backend.
func findThread(app *App, id int64) (model.Thread, bool) {
	if t, ok := app.Orch.FindThread(id); ok {
		return t, true
	}
	if app.History != nil {
		if t, err := app.History.Get(id); err == nil {
			return t, true
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Orch.RefreshThreads(ctx); err == nil {
		return app.Orch.FindThread(id)
	}
	return model.Thread{}, false
}
