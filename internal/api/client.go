// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Configuration constants for the Guide AI backend API.
const (
	// DefaultBaseURL is the base URL of the backend API.
	DefaultBaseURL = "http://localhost:8000/api"

	// DefaultTimeout is the default timeout for API requests. Video
	// processing downloads and transcribes server-side, so the first
	// question on a video can take minutes.
	DefaultTimeout = 5 * time.Minute

	// MaxResponseSize is the maximum allowed response body size. Key
	// frames arrive as inline data URIs, so bodies can be large, but a
	// hard cap keeps a misbehaving server from exhausting memory.
	MaxResponseSize = 32 * 1024 * 1024

	// csrfCookieName is the cookie the backend stores the anti-forgery
	// token in. Mutating requests echo it in the csrfHeaderName header.
	csrfCookieName = "csrftoken"
	csrfHeaderName = "X-CSRFToken"
)

// Client is the gateway to the Guide AI backend. It holds the session
// cookie jar, so one Client represents one authenticated session.
//
// There is no client-side retry anywhere: each user action maps to
// exactly one request attempt.
type Client struct {
	baseURL    string
	httpClient *http.Client
	jar        http.CookieJar
	log        *zap.Logger

	// cookiePath, when set, persists the session cookies across
	// processes so CLI invocations share one login.
	cookiePath string
}

// NewClient creates a gateway for the backend at baseURL.
func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		jar:     jar,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Jar:     jar,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
		},
		log: zap.NewNop(),
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithLogger sets the logger used for request/response logging.
func (c *Client) WithLogger(log *zap.Logger) *Client {
	if log != nil {
		c.log = log
	}
	return c
}

// WithCookiePath enables persisting session cookies to the given file,
// and loads any cookies already stored there.
func (c *Client) WithCookiePath(path string) *Client {
	c.cookiePath = path
	c.loadCookies()
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// AUTH ENDPOINTS
// =============================================================================

// Login authenticates with the backend. On success the session cookie
// lands in the jar and subsequent calls are authenticated.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login/", LoginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup registers a new account. It does not log the account in; the
// caller chains a Login with the same credentials.
func (c *Client) Signup(ctx context.Context, req SignupRequest) error {
	return c.do(ctx, http.MethodPost, "/auth/signup/", req, nil)
}

// Logout terminates the backend session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout/", struct{}{}, nil)
}

// GetProfile fetches the signed-in user's profile.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, http.MethodGet, "/auth/profile/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile saves the mutable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, http.MethodPut, "/auth/profile/", upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestPasswordChange asks the backend to send a verification code to
// the account's email address.
func (c *Client) RequestPasswordChange(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/request-password-change/", struct{}{}, nil)
}

// ChangePassword submits the emailed code together with the new
// password. Code verification happens atomically with the change.
func (c *Client) ChangePassword(ctx context.Context, code, newPassword string) error {
	req := ChangePasswordRequest{Code: code, NewPassword: newPassword}
	return c.do(ctx, http.MethodPost, "/auth/change-password/", req, nil)
}

// =============================================================================
// VIDEO ENDPOINTS
// =============================================================================

// ProcessVideo submits a (video source, question) pair. A nil ChatID in
// the request tells the backend to open a new thread; the response
// carries the thread id either way.
func (c *Client) ProcessVideo(ctx context.Context, req ProcessRequest) (*ProcessResponse, error) {
	var out ProcessResponse
	if err := c.do(ctx, http.MethodPost, "/videos/process/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChatHistory fetches all of the user's persisted threads, most recent
// first.
func (c *Client) ChatHistory(ctx context.Context) ([]ChatSummary, error) {
	var out historyResponse
	if err := c.do(ctx, http.MethodGet, "/videos/history/", nil, &out); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// errorBody is the error shape the backend uses on 4xx/5xx responses.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do performs one request. body is marshalled as JSON when non-nil; the
// response is unmarshalled into out when non-nil. Mutating methods carry
// the anti-forgery header sourced from the cookie jar - an absent cookie
// sends the empty string and the server rejects the call, which surfaces
// here as an auth error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && method != http.MethodHead {
		req.Header.Set(csrfHeaderName, c.csrfToken())
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return &Error{Err: err}
	}
	defer resp.Body.Close()

	// Status and duration only. Bodies hold credentials and answers.
	c.log.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	c.saveCookies()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return &Error{Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		msg := eb.Error
		if msg == "" {
			msg = eb.Message
		}
		return &Error{Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("api: decode response: %w", err)
		}
	}
	return nil
}

// csrfToken reads the anti-forgery token from the cookie jar. Returns
// the empty string when the cookie is absent.
func (c *Client) csrfToken() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	for _, cookie := range c.jar.Cookies(u) {
		if cookie.Name == csrfCookieName {
			return cookie.Value
		}
	}
	return ""
}

// HasSession reports whether any cookies are held for the backend, which
// is the closest client-side signal for "a login happened at some point".
// The backend remains the authority on whether the session is alive.
func (c *Client) HasSession() bool {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	return len(c.jar.Cookies(u)) > 0
}
