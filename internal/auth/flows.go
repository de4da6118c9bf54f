// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth sequences the authentication flows against the backend.
//
// Each flow is an explicit state machine: validation runs before any
// network call, a single submission is in flight at a time, and failure
// reasons are classified from the HTTP status the backend answered with.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/jeranaias/guide-tui/internal/api"
	"github.com/jeranaias/guide-tui/internal/session"
)

// =============================================================================
// FLOW STATE
// =============================================================================

// FlowState is the lifecycle of a login or signup attempt.
type FlowState int

const (
	FlowIdle FlowState = iota
	FlowSubmitting
	FlowSucceeded
	FlowFailed
)

// String returns a readable name for logging.
func (s FlowState) String() string {
	switch s {
	case FlowIdle:
		return "idle"
	case FlowSubmitting:
		return "submitting"
	case FlowSucceeded:
		return "succeeded"
	case FlowFailed:
		return "failed"
	default:
		return fmt.Sprintf("FlowState(%d)", int(s))
	}
}

// ErrBusy is returned when a submission is already in flight.
var ErrBusy = errors.New("auth: a submission is already in flight")

// ValidationError is a pre-network rejection; it is shown inline and
// never reaches the backend.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Validation messages, verbatim as the UI shows them.
const (
	msgPasswordsDontMatch = "Passwords do not match"
	msgPasswordTooShort   = "Password must be at least 6 characters"
	msgInvalidPhone       = "Please enter a valid 10-digit US phone number"
	msgMissingCredentials = "Email and password are required"
	msgSignupFallback     = "Email already exists"
	msgSignupConnectivity = "Unable to sign up. Please check your connection"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// =============================================================================
// LOGIN FLOW
// =============================================================================

// LoginFlow authenticates existing users. On success the session flag is
// set before the flow reports Succeeded.
type LoginFlow struct {
	mu      sync.Mutex
	client  *api.Client
	session *session.Store

	state      FlowState
	failReason string
}

// NewLoginFlow creates a login flow bound to the gateway and session store.
func NewLoginFlow(client *api.Client, sess *session.Store) *LoginFlow {
	return &LoginFlow{client: client, session: sess}
}

// State returns the current flow state.
func (f *LoginFlow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// FailReason returns the user-facing reason of the last failure.
func (f *LoginFlow) FailReason() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failReason
}

// Submit attempts a login. Exactly one request is made; there is no
// retry. Blank credentials fail validation without a network call.
func (f *LoginFlow) Submit(ctx context.Context, email, password string) (*api.UserInfo, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, &ValidationError{Reason: msgMissingCredentials}
	}

	if err := f.begin(); err != nil {
		return nil, err
	}

	resp, err := f.client.Login(ctx, email, password)
	if err != nil {
		reason := credentialFailReason(err)
		f.finish(FlowFailed, reason)
		return nil, err
	}

	if err := f.session.Set(true); err != nil {
		f.finish(FlowFailed, err.Error())
		return nil, err
	}

	f.finish(FlowSucceeded, "")
	return &resp.User, nil
}

func (f *LoginFlow) begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == FlowSubmitting {
		return ErrBusy
	}
	f.state = FlowSubmitting
	f.failReason = ""
	return nil
}

func (f *LoginFlow) finish(state FlowState, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
	f.failReason = reason
}

// =============================================================================
// SIGNUP FLOW
// =============================================================================

// SignupFlow registers a new account and, on success, immediately logs
// in with the same credentials so the user never sees a second form.
type SignupFlow struct {
	mu      sync.Mutex
	client  *api.Client
	session *session.Store

	state      FlowState
	failReason string
}

// NewSignupFlow creates a signup flow bound to the gateway and session store.
func NewSignupFlow(client *api.Client, sess *session.Store) *SignupFlow {
	return &SignupFlow{client: client, session: sess}
}

// State returns the current flow state.
func (f *SignupFlow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// FailReason returns the user-facing reason of the last failure.
func (f *SignupFlow) FailReason() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failReason
}

// Submit validates, registers, and chains straight into a login.
// confirmPassword must equal req.Password; an optional phone number must
// be exactly 10 digits.
func (f *SignupFlow) Submit(ctx context.Context, req api.SignupRequest, confirmPassword string) (*api.UserInfo, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, &ValidationError{Reason: msgMissingCredentials}
	}
	if req.Password != confirmPassword {
		return nil, &ValidationError{Reason: msgPasswordsDontMatch}
	}
	if len(req.Password) < 6 {
		return nil, &ValidationError{Reason: msgPasswordTooShort}
	}
	if req.PhoneNumber != "" && !phonePattern.MatchString(req.PhoneNumber) {
		return nil, &ValidationError{Reason: msgInvalidPhone}
	}

	f.mu.Lock()
	if f.state == FlowSubmitting {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	f.state = FlowSubmitting
	f.failReason = ""
	f.mu.Unlock()

	if err := f.client.Signup(ctx, req); err != nil {
		f.fail(signupFailReason(err))
		return nil, err
	}

	// The backend does not open a session on signup; log in with the
	// same credentials right away.
	resp, err := f.client.Login(ctx, req.Email, req.Password)
	if err != nil {
		f.fail(signupFailReason(err))
		return nil, err
	}

	if err := f.session.Set(true); err != nil {
		f.fail(err.Error())
		return nil, err
	}

	f.mu.Lock()
	f.state = FlowSucceeded
	f.mu.Unlock()
	return &resp.User, nil
}

func (f *SignupFlow) fail(reason string) {
	f.mu.Lock()
	f.state = FlowFailed
	f.failReason = reason
	f.mu.Unlock()
}

// =============================================================================
// FAILURE CLASSIFICATION
// =============================================================================

// signupFailReason maps a failed signup/login chain to display text:
// 400 shows the server's message (or the duplicate-email fallback),
// 5xx is the server's problem, anything else reads as connectivity.
func signupFailReason(err error) string {
	apiErr := api.AsError(err)
	switch {
	case apiErr.Status == 400:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return msgSignupFallback
	case apiErr.Status >= 500:
		return api.MsgServerError
	default:
		return msgSignupConnectivity
	}
}

// credentialFailReason maps a failed login to display text. The backend
// answers 404 for unknown emails and 401 for wrong passwords, both with
// a message worth showing verbatim.
func credentialFailReason(err error) string {
	apiErr := api.AsError(err)
	switch {
	case apiErr.Status >= 400 && apiErr.Status < 500:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return api.MsgServerError
	case apiErr.Status >= 500:
		return api.MsgServerError
	default:
		return api.MsgConnectivity
	}
}

// =============================================================================
// LOGOUT
// =============================================================================

// Logout ends the backend session and clears the local flag. The flag
// is cleared even when the backend call fails: a user asking to leave
// always leaves.
func Logout(ctx context.Context, client *api.Client, sess *session.Store) error {
	err := client.Logout(ctx)
	client.ClearCookies()
	if setErr := sess.Set(false); setErr != nil && err == nil {
		err = setErr
	}
	return err
}
