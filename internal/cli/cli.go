// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for guide.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdLogout
	CmdSignup
	CmdAsk
	CmdChat
	CmdHistory
	CmdProfile
	CmdPasswd
	CmdStatus
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	BaseURL string // overrides the configured backend URL

	// Command-specific
	Query      string // ask: the question
	Video      string // ask/chat: video URL or file path
	Subcommand string // history: "search"
	Raw        []string
}

const usageText = `guide - terminal client for Guide AI video Q&A

Guide answers questions about videos: paste a link or point at a local
file, ask, and get the answer with its reasoning, key frames, and
timestamp references.

Usage:
  guide                      Start TUI (default)
  guide login                Log in to the backend
  guide logout               Log out and clear the local session
  guide signup               Create an account
  guide ask --video URL "question"
                             Ask a single question
  guide chat [--video URL]   Interactive chat
  guide history              List saved conversations
  guide history search TERM  Search saved conversations
  guide profile [show|edit]  View or edit your profile
  guide passwd               Change your password
  guide status, s            Show connection and session status
  guide version              Show version information

Flags:
  --video URL|FILE   Video source for ask/chat
  --base-url URL     Override the backend API URL
  -q, --quiet        Minimal output
  -v, --verbose      Verbose output
  -h, --help         Show this help

Examples:
  guide ask --video https://youtu.be/abc123 "What is shown at 2:30?"
  guide chat --video ./lecture.mp4
  guide history search onions
`

// Usage prints the help text.
func Usage() {
	fmt.Print(usageText)
}

// Parse reads os.Args and returns the command to run.
func Parse() (Command, Args) {
	raw := os.Args[1:]
	remaining, args := parseGlobalFlags(raw)

	if len(remaining) == 0 {
		return CmdTUI, args
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, args

	case "login":
		return CmdLogin, args

	case "logout":
		return CmdLogout, args

	case "signup", "register":
		return CmdSignup, args

	case "ask":
		parseAskArgs(&args, remaining)
		return CmdAsk, args

	case "chat":
		parseChatArgs(&args, remaining)
		return CmdChat, args

	case "history", "threads":
		if len(remaining) > 0 {
			args.Subcommand = strings.ToLower(remaining[0])
			args.Raw = remaining[1:]
		}
		return CmdHistory, args

	case "profile":
		if len(remaining) > 0 {
			args.Subcommand = strings.ToLower(remaining[0])
		}
		return CmdProfile, args

	case "passwd", "password":
		return CmdPasswd, args

	case "status", "s":
		return CmdStatus, args

	case "version", "--version":
		return CmdVersion, args

	case "help", "-h", "--help":
		return CmdHelp, args

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		return CmdHelp, args
	}
}

// parseGlobalFlags strips flags that apply to every command.
func parseGlobalFlags(in []string) ([]string, Args) {
	var args Args
	var remaining []string

	for i := 0; i < len(in); i++ {
		switch in[i] {
		case "-q", "--quiet":
			args.Quiet = true
		case "-v", "--verbose":
			args.Verbose = true
		case "--base-url":
			if i+1 < len(in) {
				i++
				args.BaseURL = in[i]
			}
		default:
			remaining = append(remaining, in[i])
		}
	}
	return remaining, args
}

// parseAskArgs extracts --video and joins the rest into the query.
func parseAskArgs(args *Args, in []string) {
	var queryParts []string
	for i := 0; i < len(in); i++ {
		switch in[i] {
		case "--video", "-V":
			if i+1 < len(in) {
				i++
				args.Video = in[i]
			}
		default:
			queryParts = append(queryParts, in[i])
		}
	}
	args.Query = strings.Join(queryParts, " ")
}

// parseChatArgs extracts --video.
func parseChatArgs(args *Args, in []string) {
	for i := 0; i < len(in); i++ {
		if in[i] == "--video" || in[i] == "-V" {
			if i+1 < len(in) {
				i++
				args.Video = in[i]
			}
		}
	}
}

// HandleVersion prints version information.
func HandleVersion() error {
	fmt.Printf("guide %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	return nil
}
