// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - login, logout, signup, profile, and passwd handlers.
//
// Commands:
//   guide login
//   guide logout
//   guide signup
//   guide profile [show|edit]
//   guide passwd
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/jeranaias/guide-tui/internal/api"
	"github.com/jeranaias/guide-tui/internal/auth"
)

// signupRequest assembles the wire request from prompt answers.
func signupRequest(email, password, firstName, lastName, phone string) api.SignupRequest {
	return api.SignupRequest{
		Email:       email,
		Password:    password,
		FirstName:   firstName,
		LastName:    lastName,
		PhoneNumber: phone,
	}
}

// readLine prompts and reads one trimmed line from stdin.
func readLine(prompt string) (string, error) {
	fmt.Print(promptStyle.Render(prompt))
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword prompts and reads a password without echoing it.
func readPassword(prompt string) (string, error) {
	fmt.Print(promptStyle.Render(prompt))
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}

// authContext is the deadline for interactive auth calls.
func authContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// HandleLogin prompts for credentials and starts a session.
func HandleLogin(app *App) error {
	email, err := readLine("Email: ")
	if err != nil {
		return err
	}
	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	flow := auth.NewLoginFlow(app.Client, app.Sess)
	ctx, cancel := authContext()
	defer cancel()

	user, err := flow.Submit(ctx, email, password)
	if err != nil {
		if reason := flow.FailReason(); reason != "" {
			return fmt.Errorf("%s", reason)
		}
		return err
	}

	name := user.FirstName
	if name == "" {
		name = user.Email
	}
	fmt.Println(successStyle.Render("✓ Logged in as " + name))
	return nil
}

// HandleLogout ends the session locally and on the backend.
func HandleLogout(app *App) error {
	ctx, cancel := authContext()
	defer cancel()

	if err := auth.Logout(ctx, app.Client, app.Sess); err != nil {
		// The local session is gone either way.
		fmt.Println(warningStyle.Render("⚠ Backend logout failed; local session cleared."))
		return nil
	}
	fmt.Println(successStyle.Render("✓ Logged out"))
	return nil
}

// HandleSignup prompts for account details and creates an account.
func HandleSignup(app *App) error {
	email, err := readLine("Email: ")
	if err != nil {
		return err
	}
	firstName, err := readLine("First name: ")
	if err != nil {
		return err
	}
	lastName, err := readLine("Last name: ")
	if err != nil {
		return err
	}
	phone, err := readLine("Phone (10 digits, optional): ")
	if err != nil {
		return err
	}
	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return err
	}

	flow := auth.NewSignupFlow(app.Client, app.Sess)
	ctx, cancel := authContext()
	defer cancel()

	user, err := flow.Submit(ctx, signupRequest(email, password, firstName, lastName, phone), confirm)
	if err != nil {
		if reason := flow.FailReason(); reason != "" {
			return fmt.Errorf("%s", reason)
		}
		return err
	}

	fmt.Println(successStyle.Render("✓ Account created. You are now logged in as " + user.Email))
	return nil
}

// HandleProfile shows or edits the user profile.
func HandleProfile(app *App, args Args) error {
	if err := app.RequireSession(); err != nil {
		return err
	}

	mgr := auth.NewProfileManager(app.Client)
	ctx, cancel := authContext()
	defer cancel()

	profile, err := mgr.Load(ctx)
	if err != nil {
		return err
	}

	if args.Subcommand != "edit" {
		fmt.Println(titleStyle.Render("Profile"))
		printField("Email", profile.Email)
		printField("First name", profile.FirstName)
		printField("Last name", profile.LastName)
		printField("Phone", profile.PhoneNumber)
		if !profile.DateJoined.IsZero() {
			printField("Member since", profile.DateJoined.Format("2006-01-02"))
		}
		return nil
	}

	fmt.Println(metaStyle.Render("Press Enter to keep the current value."))
	firstName, err := readLine(fmt.Sprintf("First name [%s]: ", profile.FirstName))
	if err != nil {
		return err
	}
	lastName, err := readLine(fmt.Sprintf("Last name [%s]: ", profile.LastName))
	if err != nil {
		return err
	}
	phone, err := readLine(fmt.Sprintf("Phone [%s]: ", profile.PhoneNumber))
	if err != nil {
		return err
	}

	if firstName == "" {
		firstName = profile.FirstName
	}
	if lastName == "" {
		lastName = profile.LastName
	}
	if phone == "" {
		phone = profile.PhoneNumber
	}

	saveCtx, saveCancel := authContext()
	defer saveCancel()
	if _, err := mgr.Save(saveCtx, firstName, lastName, phone); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ Profile updated"))
	return nil
}

// HandlePasswd drives the verification-code password change.
func HandlePasswd(app *App) error {
	if err := app.RequireSession(); err != nil {
		return err
	}

	flow := auth.NewPasswordFlow(app.Client)

	ctx, cancel := authContext()
	if err := flow.RequestCode(ctx); err != nil {
		cancel()
		return err
	}
	cancel()
	fmt.Println(successStyle.Render("✓ Verification code sent to your email."))

	for {
		code, err := readLine("6-digit code: ")
		if err != nil {
			return err
		}
		if err := flow.VerifyCode(code); err != nil {
			fmt.Println(errorStyle.Render("✗ " + err.Error()))
			continue
		}

		newPassword, err := readPassword("New password: ")
		if err != nil {
			return err
		}
		confirm, err := readPassword("Confirm new password: ")
		if err != nil {
			return err
		}

		subCtx, subCancel := authContext()
		err = flow.Submit(subCtx, code, newPassword, confirm)
		subCancel()
		if err == nil {
			fmt.Println(successStyle.Render("✓ Password changed"))
			return nil
		}

		fmt.Println(errorStyle.Render("✗ " + err.Error()))
		if flow.State() == auth.PwCodeRequested {
			// The backend rejected the code; go round for a new one.
			continue
		}
		return err
	}
}

func printField(label, value string) {
	if value == "" {
		value = metaStyle.Render("(not set)")
	} else {
		value = valueStyle.Render(value)
	}
	fmt.Printf("  %s %s\n", labelStyle.Render(label+":"), value)
}
