// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/guide-tui/internal/util"
)

// Cookie persistence. The browser keeps Django's session and csrftoken
// cookies for us; a CLI process has to do it by hand so that
// "guide login" followed by "guide ask" in a fresh process shares the
// session. The file holds nothing but the cookies the backend set.

// storedCookie is the serializable subset of http.Cookie we keep.
type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Domain  string    `json:"domain,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

// saveCookies writes the jar's cookies for the backend URL to disk.
// A miss or failure is non-fatal; the user just logs in again.
func (c *Client) saveCookies() {
	if c.cookiePath == "" {
		return
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return
	}

	var stored []storedCookie
	for _, ck := range c.jar.Cookies(u) {
		stored = append(stored, storedCookie{
			Name:    ck.Name,
			Value:   ck.Value,
			Path:    ck.Path,
			Domain:  ck.Domain,
			Expires: ck.Expires,
		})
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return
	}
	// 0600: the session cookie is a credential.
	if err := util.AtomicWriteFile(c.cookiePath, data, 0600); err != nil {
		c.log.Warn("failed to persist session cookies", zap.Error(err))
	}
}

// loadCookies primes the jar from disk, if a cookie file exists.
func (c *Client) loadCookies() {
	if c.cookiePath == "" {
		return
	}
	data, err := os.ReadFile(c.cookiePath)
	if err != nil {
		return
	}
	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, sc := range stored {
		if !sc.Expires.IsZero() && sc.Expires.Before(time.Now()) {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:    sc.Name,
			Value:   sc.Value,
			Path:    sc.Path,
			Domain:  sc.Domain,
			Expires: sc.Expires,
		})
	}
	c.jar.SetCookies(u, cookies)
}

// ClearCookies drops all session state, in memory and on disk.
func (c *Client) ClearCookies() {
	jar, _ := cookiejar.New(nil)
	c.jar = jar
	c.httpClient.Jar = jar
	if c.cookiePath != "" {
		os.Remove(c.cookiePath)
	}
}
