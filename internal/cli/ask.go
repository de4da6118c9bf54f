// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single question command handler.
//
// Command: ask --video URL|FILE "question"
//
// Examples:
//   guide ask --video https://youtu.be/abc123 "What is shown at 2:30?"
//   guide ask --video ./lecture.mp4 "Summarize the last section"
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/guide-tui/internal/chat"
	"github.com/jeranaias/guide-tui/internal/model"
)

// HandleAsk submits one question and prints the full answer.
func HandleAsk(app *App, args Args) error {
	if err := app.RequireSession(); err != nil {
		return err
	}
	if args.Query == "" {
		return fmt.Errorf("no question given. Usage: guide ask --video URL \"question\"")
	}
	if args.Video == "" {
		return fmt.Errorf("no video given. Usage: guide ask --video URL \"question\"")
	}

	source := sourceFromArg(args.Video)

	if !args.Quiet {
		fmt.Println(metaStyle.Render("Processing video... this can take a while."))
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(app.Cfg.API.TimeoutSecs)*time.Second)
	defer cancel()

	answer, err := app.Orch.Submit(ctx, source, args.Query)
	if err != nil {
		return fmt.Errorf("%s", submitErrorText(app.Orch, err))
	}

	printAnswer(app, answer, args.Verbose)
	return nil
}

// submitErrorText prefers the orchestrator's classified message.
// Pre-flight rejections never reach the orchestrator's error state, so
// the raw error carries the reason instead.
func submitErrorText(orch *chat.Orchestrator, err error) string {
	if msg := orch.ErrorMessage(); msg != "" {
		return msg
	}
	return err.Error()
}

// sourceFromArg treats anything that is not an http(s) URL as a local
// file path.
func sourceFromArg(arg string) model.VideoSource {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return model.NewURLSource(arg)
	}
	return model.NewUploadSource(arg)
}

// printAnswer renders the answer with its reasoning, frames, and
// timestamps.
func printAnswer(app *App, msg *model.Message, verbose bool) {
	fmt.Println(renderCLIMarkdown(app, msg.Content))

	if verbose && msg.Reasoning != "" {
		fmt.Println(titleStyle.Render("Reasoning"))
		fmt.Println(renderCLIMarkdown(app, msg.Reasoning))
	}

	if len(msg.Frames) > 0 {
		fmt.Println(titleStyle.Render("Key frames"))
		for _, f := range msg.Frames {
			fmt.Printf("  %s  %s\n", promptStyle.Render(f.Timestamp), f.Description)
		}
		fmt.Println()
	}

	if len(msg.Timestamps) > 0 {
		fmt.Println(titleStyle.Render("Timestamps"))
		for _, s := range msg.Timestamps {
			span := s.Start
			if s.End != "" {
				span += " – " + s.End
			}
			fmt.Printf("  %s  %s\n", promptStyle.Render(span), s.Content)
		}
		fmt.Println()
	}
}

// renderCLIMarkdown renders markdown for terminal output, falling back
// to plain text when the renderer cannot be built (e.g. no TTY).
func renderCLIMarkdown(app *App, text string) string {
	if fi, err := os.Stdout.Stat(); err == nil && fi.Mode()&os.ModeCharDevice == 0 {
		return text
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(app.Cfg.UI.MarkdownWidth),
	)
	if err != nil {
		return text
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return out
}
