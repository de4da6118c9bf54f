// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

// Kind classifies a failed call for presentation. The mapping follows
// the backend contract: 401 means the session is gone, 400 carries a
// user-facing message, anything 5xx is the server's problem, and
// everything else is connectivity.
type Kind int

const (
	KindAuth    Kind = iota // 401: session expired or not logged in
	KindClient              // 4xx other than 401
	KindServer              // 5xx
	KindNetwork             // transport failure, no HTTP status
)

// Generic user-facing messages for failures without a usable server message.
const (
	MsgSessionExpired = "Your session has expired. Please log in again."
	MsgServerError    = "Server error. Please try again later."
	MsgConnectivity   = "Unable to reach the server. Please check your connection."
)

// Error is a normalized backend failure. Status is zero for transport
// errors that never produced an HTTP response.
type Error struct {
	Status  int    // HTTP status code, 0 for network failures
	Message string // server-supplied error body message, may be empty
	Err     error  // underlying transport error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("api: request failed: %v", e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("api: HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: HTTP %d", e.Status)
}

// Unwrap exposes the transport error for errors.Is checks.
func (e *Error) Unwrap() error {
	return e.Err
}

// Kind classifies the failure.
func (e *Error) Kind() Kind {
	switch {
	case e.Status == http.StatusUnauthorized:
		return KindAuth
	case e.Status >= 500:
		return KindServer
	case e.Status >= 400:
		return KindClient
	default:
		return KindNetwork
	}
}

// UserMessage renders the failure the way the UI should show it: the
// verbatim server message for client errors that carry one, generic text
// for everything else.
func (e *Error) UserMessage() string {
	switch e.Kind() {
	case KindAuth:
		return MsgSessionExpired
	case KindServer:
		return MsgServerError
	case KindClient:
		if e.Message != "" {
			return e.Message
		}
		return MsgServerError
	default:
		return MsgConnectivity
	}
}

// AsError extracts an *Error from err, or wraps an unknown error as a
// network-kind failure so callers always have a classification.
func AsError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{Err: err}
}
