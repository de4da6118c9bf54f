// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/guide-tui/internal/api"
	"github.com/jeranaias/guide-tui/internal/session"
)

func newSessionStore(t *testing.T) *session.Store {
	t.Helper()
	return session.NewStore(filepath.Join(t.TempDir(), "session.json"))
}

func TestLoginFlow_SuccessSetsSessionFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.LoginResponse{
			Message: "Login successful",
			User:    api.UserInfo{Email: "a@b.com", FirstName: "Ada"},
		})
	}))
	defer srv.Close()

	sess := newSessionStore(t)
	flow := NewLoginFlow(api.NewClient(srv.URL+"/api"), sess)

	user, err := flow.Submit(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.FirstName)
	assert.Equal(t, FlowSucceeded, flow.State())
	assert.True(t, sess.Get(), "session flag must flip on login success")
}

func TestLoginFlow_BlankCredentialsNeverCallBackend(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	flow := NewLoginFlow(api.NewClient(srv.URL+"/api"), newSessionStore(t))

	_, err := flow.Submit(context.Background(), "  ", "pw")
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, FlowIdle, flow.State())
}

func TestLoginFlow_FailureReasons(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantReason string
	}{
		{"unknown user", 404, `{"error":"User not found"}`, "User not found"},
		{"wrong password", 401, `{"error":"Incorrect password"}`, "Incorrect password"},
		{"server down", 503, ``, api.MsgServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			sess := newSessionStore(t)
			flow := NewLoginFlow(api.NewClient(srv.URL+"/api"), sess)

			_, err := flow.Submit(context.Background(), "a@b.com", "pw")
			require.Error(t, err)
			assert.Equal(t, FlowFailed, flow.State())
			assert.Equal(t, tt.wantReason, flow.FailReason())
			assert.False(t, sess.Get())
		})
	}
}

func TestSignupFlow_ValidationBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	flow := NewSignupFlow(api.NewClient(srv.URL+"/api"), newSessionStore(t))
	base := api.SignupRequest{Email: "a@b.com", Password: "secret1", FirstName: "Ada"}

	tests := []struct {
		name    string
		mutate  func(r *api.SignupRequest) (confirm string)
		wantMsg string
	}{
		{"mismatch", func(r *api.SignupRequest) string { return "different" }, msgPasswordsDontMatch},
		{"too short", func(r *api.SignupRequest) string { r.Password = "abc"; return "abc" }, msgPasswordTooShort},
		{"bad phone", func(r *api.SignupRequest) string { r.PhoneNumber = "555-1234"; return r.Password }, msgInvalidPhone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			confirm := tt.mutate(&req)

			_, err := flow.Submit(context.Background(), req, confirm)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "want validation error, got %v", err)
			assert.Equal(t, tt.wantMsg, vErr.Reason)
		})
	}

	assert.Equal(t, int32(0), calls.Load(), "validation failures must not reach the backend")
}

func TestSignupFlow_SuccessChainsIntoLogin(t *testing.T) {
	var signupHit, loginHit atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/signup/", func(w http.ResponseWriter, r *http.Request) {
		signupHit.Add(1)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"message": "User created successfully"})
	})
	mux.HandleFunc("/api/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		loginHit.Add(1)
		var req api.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "new@b.com", req.Email)
		assert.Equal(t, "secret1", req.Password)
		json.NewEncoder(w).Encode(api.LoginResponse{User: api.UserInfo{Email: req.Email}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sess := newSessionStore(t)
	flow := NewSignupFlow(api.NewClient(srv.URL+"/api"), sess)

	req := api.SignupRequest{Email: "new@b.com", Password: "secret1", PhoneNumber: "5551234567"}
	user, err := flow.Submit(context.Background(), req, "secret1")
	require.NoError(t, err)
	assert.Equal(t, "new@b.com", user.Email)
	assert.Equal(t, int32(1), signupHit.Load())
	assert.Equal(t, int32(1), loginHit.Load())
	assert.Equal(t, FlowSucceeded, flow.State())
	assert.True(t, sess.Get())
}

func TestSignupFlow_DuplicateEmailFallback(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantReason string
	}{
		{"server message shown verbatim", `{"error":"Email already exists"}`, "Email already exists"},
		{"empty body uses fallback", `{}`, msgSignupFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			flow := NewSignupFlow(api.NewClient(srv.URL+"/api"), newSessionStore(t))
			_, err := flow.Submit(context.Background(), api.SignupRequest{Email: "a@b.com", Password: "secret1"}, "secret1")
			require.Error(t, err)
			assert.Equal(t, FlowFailed, flow.State())
			assert.Equal(t, tt.wantReason, flow.FailReason())
		})
	}
}

func TestLogout_ClearsFlagEvenWhenBackendFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sess := newSessionStore(t)
	require.NoError(t, sess.Set(true))

	client := api.NewClient(srv.URL + "/api")
	err := Logout(context.Background(), client, sess)
	require.Error(t, err)
	assert.False(t, sess.Get(), "local flag must clear regardless of backend outcome")
	assert.False(t, client.HasSession())
}

func TestProfileManager_PhoneValidation(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(api.Profile{Email: "a@b.com", PhoneNumber: "5551234567"})
	}))
	defer srv.Close()

	mgr := NewProfileManager(api.NewClient(srv.URL + "/api"))

	_, err := mgr.Save(context.Background(), "Ada", "L", "555-123-4567")
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, msgInvalidPhone, vErr.Reason)
	assert.Equal(t, int32(0), calls.Load())

	// Ten digits pass; an empty phone is allowed too.
	_, err = mgr.Save(context.Background(), "Ada", "L", "5551234567")
	require.NoError(t, err)
	_, err = mgr.Save(context.Background(), "Ada", "L", "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
