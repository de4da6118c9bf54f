// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/guide-tui/internal/api"
)

func TestPasswordFlow_HappyPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/request-password-change/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"Code sent"}`))
	})
	mux.HandleFunc("/api/auth/change-password/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"Password changed"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	flow := NewPasswordFlow(api.NewClient(srv.URL + "/api"))
	assert.Equal(t, PwIdle, flow.State())

	require.NoError(t, flow.RequestCode(context.Background()))
	assert.Equal(t, PwCodeRequested, flow.State())

	require.NoError(t, flow.VerifyCode("123456"))
	assert.Equal(t, PwCodeVerified, flow.State())

	require.NoError(t, flow.Submit(context.Background(), "123456", "newpass1", "newpass1"))
	assert.Equal(t, PwCompleted, flow.State())
}

func TestPasswordFlow_CodeFormat(t *testing.T) {
	flow := NewPasswordFlow(api.NewClient("http://localhost:1/api"))
	flow.state = PwCodeRequested

	tests := []struct {
		code    string
		wantMsg string
	}{
		{"12345", msgCodeWrongLength},
		{"1234567", msgCodeWrongLength},
		{"", msgCodeWrongLength},
		{"12a456", msgCodeNotNumeric},
		{"12 456", msgCodeNotNumeric},
	}
	for _, tt := range tests {
		err := flow.VerifyCode(tt.code)
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr), "code %q", tt.code)
		assert.Equal(t, tt.wantMsg, vErr.Reason)
		assert.Equal(t, PwCodeRequested, flow.State(), "bad code must not advance the flow")
	}

	require.NoError(t, flow.VerifyCode("000000"))
	assert.Equal(t, PwCodeVerified, flow.State())
}

func TestPasswordFlow_OrderEnforced(t *testing.T) {
	flow := NewPasswordFlow(api.NewClient("http://localhost:1/api"))

	// No code requested yet.
	assert.ErrorIs(t, flow.VerifyCode("123456"), ErrInvalidTransition)
	// Not verified yet.
	assert.ErrorIs(t, flow.Submit(context.Background(), "123456", "newpass1", "newpass1"), ErrInvalidTransition)
}

func TestPasswordFlow_ResendCooldown(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"message":"Code sent"}`))
	}))
	defer srv.Close()

	flow := NewPasswordFlow(api.NewClient(srv.URL + "/api"))
	require.NoError(t, flow.RequestCode(context.Background()))

	err := flow.RequestCode(context.Background())
	assert.ErrorIs(t, err, ErrCooldown)
	assert.Equal(t, int32(1), calls.Load(), "resend inside the cooldown must not hit the backend")
	assert.Greater(t, flow.CooldownRemaining(), ResendCooldown/2)
}

func TestPasswordFlow_RequestFailureStaysIdle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	flow := NewPasswordFlow(api.NewClient(srv.URL + "/api"))
	err := flow.RequestCode(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), msgCodeSendFailed)
	assert.Equal(t, PwIdle, flow.State())
}

func TestPasswordFlow_SubmitValidatesBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	flow := NewPasswordFlow(api.NewClient(srv.URL + "/api"))
	flow.state = PwCodeVerified

	err := flow.Submit(context.Background(), "123456", "newpass1", "different")
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, msgPasswordsDontMatch, vErr.Reason)

	err = flow.Submit(context.Background(), "123456", "abc", "abc")
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, msgPasswordTooShort, vErr.Reason)

	assert.Equal(t, int32(0), calls.Load(), "local validation must not reach the backend")
	assert.Equal(t, PwCodeVerified, flow.State())
}

func TestPasswordFlow_BadCodeRevertsToEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Invalid or expired code"}`))
	}))
	defer srv.Close()

	flow := NewPasswordFlow(api.NewClient(srv.URL + "/api"))
	flow.state = PwCodeVerified

	err := flow.Submit(context.Background(), "999999", "newpass1", "newpass1")
	require.Error(t, err)
	assert.Equal(t, PwCodeRequested, flow.State(), "a rejected code sends the user back to code entry")
}

func TestPasswordFlow_OtherFailureKeepsVerified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"database unavailable"}`))
	}))
	defer srv.Close()

	flow := NewPasswordFlow(api.NewClient(srv.URL + "/api"))
	flow.state = PwCodeVerified

	err := flow.Submit(context.Background(), "123456", "newpass1", "newpass1")
	require.Error(t, err)
	assert.Equal(t, PwCodeVerified, flow.State())
}

func TestPasswordFlow_ResetKeepsCooldown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"Code sent"}`))
	}))
	defer srv.Close()

	flow := NewPasswordFlow(api.NewClient(srv.URL + "/api"))
	require.NoError(t, flow.RequestCode(context.Background()))

	flow.Reset()
	assert.Equal(t, PwIdle, flow.State())
	assert.ErrorIs(t, flow.RequestCode(context.Background()), ErrCooldown)
}
