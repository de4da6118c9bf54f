// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the typed HTTP gateway to the Guide AI backend.
//
// The backend owns all video understanding (download, transcription,
// frame extraction, question answering) and the authentication state;
// this package only builds requests, attaches the anti-forgery token,
// and normalizes errors. Every call is a single attempt - retry policy
// is "the user tries again".
package api

import "time"

// =============================================================================
// AUTH PAYLOADS
// =============================================================================

// LoginRequest is the payload for POST /auth/login/.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserInfo is the user confirmation returned by a successful login.
type UserInfo struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Message string   `json:"message"`
	User    UserInfo `json:"user"`
}

// SignupRequest is the payload for POST /auth/signup/.
type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
}

// Profile is the account data returned by GET /auth/profile/.
// Email and DateJoined are immutable server-side.
type Profile struct {
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	PhoneNumber string    `json:"phoneNumber"`
	DateJoined  time.Time `json:"dateJoined"`
}

// ProfileUpdate is the payload for PUT /auth/profile/.
type ProfileUpdate struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
}

// ChangePasswordRequest is the payload for POST /auth/change-password/.
// The verification code was delivered out-of-band after a prior
// request-password-change call; the backend checks it atomically with
// the password change.
type ChangePasswordRequest struct {
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// =============================================================================
// VIDEO PAYLOADS
// =============================================================================

// ProcessRequest is the payload for POST /videos/process/. ChatID is nil
// when a new thread should be created for this video.
type ProcessRequest struct {
	VideoURL string `json:"videoUrl"`
	Query    string `json:"query"`
	ChatID   *int64 `json:"chatId,omitempty"`
}

// WireKeyFrame is a key frame as the backend sends it.
type WireKeyFrame struct {
	Timestamp   string `json:"timestamp"`
	Frame       string `json:"frame"`
	Description string `json:"description"`
}

// WireTimeSpan is a relevant span as the backend sends it: the range is a
// single string with a literal " - " between start and end.
type WireTimeSpan struct {
	Time        string `json:"time"`
	Description string `json:"description"`
}

// ProcessResponse is the structured answer for one question.
type ProcessResponse struct {
	ChatID     int64          `json:"chatId"`
	Response   string         `json:"response"`
	Reasoning  string         `json:"reasoning"`
	KeyFrames  []WireKeyFrame `json:"keyFrames"`
	Timestamps []WireTimeSpan `json:"timestamps"`
}

// Exchange is one question/answer pair inside a thread's stored history.
// Response is nil while the backend has not answered the query yet.
type Exchange struct {
	Query    string           `json:"query"`
	Response *ProcessResponse `json:"response"`
}

// ChatSummary describes one backend-persisted conversation thread.
type ChatSummary struct {
	ID           int64      `json:"id"`
	VideoURL     string     `json:"videoUrl"`
	Title        string     `json:"videoTitle"`
	LastMessage  string     `json:"lastMessage"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	MessageCount int        `json:"messageCount"`
	History      []Exchange `json:"chat_history"`
}

// historyResponse is the body of GET /videos/history/.
type historyResponse struct {
	Chats []ChatSummary `json:"chats"`
}
