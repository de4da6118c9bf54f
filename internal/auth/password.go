// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/guide-tui/internal/api"
)

// =============================================================================
// PASSWORD CHANGE STATE MACHINE
// =============================================================================

// PasswordState is the step the password-change flow is on. Transitions
// only move forward through RequestCode → VerifyCode → Submit, except
// that a backend rejection of the code drops back to CodeRequested and a
// failed code request drops back to Idle.
type PasswordState int

const (
	PwIdle PasswordState = iota
	PwCodeRequested
	PwCodeVerified
	PwSubmitting
	PwCompleted
)

// String returns a readable name for logging.
func (s PasswordState) String() string {
	switch s {
	case PwIdle:
		return "idle"
	case PwCodeRequested:
		return "code-requested"
	case PwCodeVerified:
		return "code-verified"
	case PwSubmitting:
		return "submitting"
	case PwCompleted:
		return "completed"
	default:
		return fmt.Sprintf("PasswordState(%d)", int(s))
	}
}

// ResendCooldown is how long a user must wait between code requests.
const ResendCooldown = 30 * time.Second

// Flow errors.
var (
	// ErrInvalidTransition is returned when a step is called out of order.
	ErrInvalidTransition = errors.New("auth: operation not valid in current state")

	// ErrCooldown is returned when a code is re-requested too soon.
	ErrCooldown = errors.New("auth: resend cooldown active")
)

// Code-step messages, verbatim as the UI shows them.
const (
	msgCodeWrongLength = "Please enter a valid 6-digit code"
	msgCodeNotNumeric  = "Code must contain only numbers"
	msgCodeSendFailed  = "Failed to send verification code. Please try again."
)

var codePattern = regexp.MustCompile(`^\d{6}$`)

// PasswordFlow drives the multi-step password change. The client-side
// code check is format only; the backend verifies the code atomically
// with the password change itself.
type PasswordFlow struct {
	mu     sync.Mutex
	client *api.Client

	state    PasswordState
	lastSent time.Time

	// limiter gates code requests to one per cooldown window.
	limiter *rate.Limiter
}

// NewPasswordFlow creates a flow in the Idle state.
func NewPasswordFlow(client *api.Client) *PasswordFlow {
	return &PasswordFlow{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(ResendCooldown), 1),
	}
}

// State returns the current step.
func (f *PasswordFlow) State() PasswordState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// CooldownRemaining reports how long until another code may be
// requested; zero when a request is allowed now.
func (f *PasswordFlow) CooldownRemaining() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastSent.IsZero() {
		return 0
	}
	remaining := ResendCooldown - time.Since(f.lastSent)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RequestCode asks the backend to email a verification code. Valid from
// Idle and, for resends, from CodeRequested. A failure reverts to Idle.
func (f *PasswordFlow) RequestCode(ctx context.Context) error {
	f.mu.Lock()
	if f.state != PwIdle && f.state != PwCodeRequested {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	if !f.limiter.Allow() {
		f.mu.Unlock()
		return ErrCooldown
	}
	f.mu.Unlock()

	if err := f.client.RequestPasswordChange(ctx); err != nil {
		f.mu.Lock()
		f.state = PwIdle
		f.mu.Unlock()
		return fmt.Errorf("%s: %w", msgCodeSendFailed, err)
	}

	f.mu.Lock()
	f.state = PwCodeRequested
	f.lastSent = time.Now()
	f.mu.Unlock()
	return nil
}

// VerifyCode runs the client-side format check: exactly six digits.
// Passing it only advances the flow; the backend remains the authority
// when the change is submitted.
func (f *PasswordFlow) VerifyCode(code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != PwCodeRequested {
		return ErrInvalidTransition
	}
	if len(code) != 6 {
		return &ValidationError{Reason: msgCodeWrongLength}
	}
	if !codePattern.MatchString(code) {
		return &ValidationError{Reason: msgCodeNotNumeric}
	}

	f.state = PwCodeVerified
	return nil
}

// Submit sends the code and new password. New and confirm must match
// and be at least six characters; both checks run before the network
// call. A backend rejection that mentions the code sends the flow back
// to CodeRequested so the user can re-enter it.
func (f *PasswordFlow) Submit(ctx context.Context, code, newPassword, confirmPassword string) error {
	f.mu.Lock()
	if f.state != PwCodeVerified {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	f.mu.Unlock()

	if newPassword != confirmPassword {
		return &ValidationError{Reason: msgPasswordsDontMatch}
	}
	if len(newPassword) < 6 {
		return &ValidationError{Reason: msgPasswordTooShort}
	}

	f.mu.Lock()
	f.state = PwSubmitting
	f.mu.Unlock()

	if err := f.client.ChangePassword(ctx, code, newPassword); err != nil {
		apiErr := api.AsError(err)
		f.mu.Lock()
		if strings.Contains(apiErr.Message, "code") {
			// Expired or wrong code: back to the code entry step.
			f.state = PwCodeRequested
		} else {
			f.state = PwCodeVerified
		}
		f.mu.Unlock()
		return err
	}

	f.mu.Lock()
	f.state = PwCompleted
	f.mu.Unlock()
	return nil
}

// Reset returns the flow to Idle, e.g. when the user leaves the screen.
// The resend limiter is deliberately kept: abandoning the form does not
// earn a fresh code budget.
func (f *PasswordFlow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = PwIdle
}
