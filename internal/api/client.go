// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/cashdesk/internal/logging"
)

// Endpoint paths, relative to BaseURL.
const (
	PathVersion = "/auth/AppVersion"
	PathLogin   = "/auth/login"
	PathLogout  = "/auth/logout"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 1 << 20

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the API client.
type ClientConfig struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string

	// LoginTimeout bounds Login (default: 15s).
	LoginTimeout time.Duration

	// VersionTimeout bounds CheckVersion (default: 10s).
	VersionTimeout time.Duration

	// UserAgent is sent on every request.
	UserAgent string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:        "https://api.cashdesk.local",
		LoginTimeout:   15 * time.Second,
		VersionTimeout: 10 * time.Second,
		UserAgent:      "cashdesk",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the authentication endpoints. It is safe for concurrent
// use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	log        zerolog.Logger

	mu               sync.RWMutex
	cookie           string // raw Set-Cookie value(s), newline separated
	onTransportError func(error)
}

// NewClient creates a client. Zero fields in config take defaults.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	d := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = d.BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.LoginTimeout == 0 {
		config.LoginTimeout = d.LoginTimeout
	}
	if config.VersionTimeout == 0 {
		config.VersionTimeout = d.VersionTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = d.UserAgent
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		log: logging.Component("api"),
	}
}

// SetSessionCookie sets the raw Set-Cookie value replayed on later requests,
// typically restored from the session store at startup. Empty clears it.
func (c *Client) SetSessionCookie(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cookie = raw
}

// SessionCookie returns the raw Set-Cookie value captured at login.
func (c *Client) SessionCookie() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cookie
}

// OnTransportError registers fn to be called whenever a request fails to
// reach the server. Used to nudge the connectivity monitor.
func (c *Client) OnTransportError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTransportError = fn
}

// =============================================================================
// LOGOUT
// =============================================================================

// Logout invalidates the server-side session. It does not retry and has no
// timeout of its own; callers bound it with ctx.
func (c *Client) Logout(ctx context.Context) error {
	resp, body, err := c.post(ctx, PathLogout, struct{}{})
	if err != nil {
		return err
	}
	if !isSuccess(resp.StatusCode) {
		return &StatusError{Endpoint: PathLogout, Code: resp.StatusCode, Message: serverMessage(body)}
	}
	return nil
}

// =============================================================================
// VERSION CHECK
// =============================================================================

// VersionResult is the outcome of CheckVersion.
type VersionResult struct {
	// Latest is the server's version, empty if unknown.
	Latest string
	// UpToDate is false only when the server named a different version.
	UpToDate bool
}

type versionResponse struct {
	Version string `json:"version"`
}

// CheckVersion asks the server for the current client version. It fails
// open: any error, non-2xx status, or missing version yields UpToDate=true.
// A transport error is still returned so callers can surface it.
func (c *Client) CheckVersion(ctx context.Context, current string) (VersionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.VersionTimeout)
	defer cancel()

	ok := VersionResult{UpToDate: true}

	resp, body, err := c.post(ctx, PathVersion, nil)
	if err != nil {
		return ok, err
	}
	if !isSuccess(resp.StatusCode) {
		c.log.Debug().Int("status", resp.StatusCode).Msg("VERSION_CHECK_SKIPPED")
		return ok, nil
	}

	var v versionResponse
	if err := json.Unmarshal(body, &v); err != nil || v.Version == "" {
		return ok, nil
	}
	return VersionResult{Latest: v.Version, UpToDate: v.Version == current}, nil
}

// =============================================================================
// LOGIN
// =============================================================================

// LoginResult holds what a successful login yields.
type LoginResult struct {
	// FullName is user[0].FullName, the display name.
	FullName string
	// UserData is the complete response body, stored opaquely.
	UserData json.RawMessage
	// Cookie is the raw Set-Cookie header value(s), empty if none.
	Cookie string
	// Token is the response "token" field, empty if none.
	Token string
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User []struct {
		FullName string `json:"FullName"`
	} `json:"user"`
	Token   string `json:"token"`
	Message string `json:"message"`
}

// Login posts credentials. A 2xx response without a non-empty user array
// is an invalid-credentials error carrying the server's message.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.LoginTimeout)
	defer cancel()

	resp, body, err := c.post(ctx, PathLogin, loginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.StatusCode) {
		return nil, &StatusError{Endpoint: PathLogin, Code: resp.StatusCode, Message: serverMessage(body)}
	}

	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode login response", Cause: err}
	}
	if len(lr.User) == 0 {
		msg := lr.Message
		if msg == "" {
			msg = ErrInvalidCredentials.Message
		}
		return nil, &ClientError{Type: ErrTypeInvalidCredentials, Message: msg}
	}

	cookie := strings.Join(resp.Header.Values("Set-Cookie"), "\n")
	if cookie != "" {
		c.SetSessionCookie(cookie)
	}

	c.log.Info().Str("user", username).Bool("cookie", cookie != "").Msg("LOGIN_OK")
	return &LoginResult{
		FullName: lr.User[0].FullName,
		UserData: json.RawMessage(body),
		Cookie:   cookie,
		Token:    lr.Token,
	}, nil
}

// LoginFailureMessage turns a Login error into the text shown to the user.
func LoginFailureMessage(err error) string {
	var se *StatusError
	var ce *ClientError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &se):
		if se.Message != "" {
			return se.Message
		}
		return fmt.Sprintf("Login failed with status %d", se.Code)
	case IsTimeout(err):
		return "Request timed out. Please try again."
	case IsTransport(err):
		return "Unable to reach the server. Please check your network."
	case errors.As(err, &ce):
		return ce.Message
	default:
		return "An error occurred during login"
	}
}

// =============================================================================
// TRANSPORT
// =============================================================================

// post sends a JSON POST and reads the (capped) response body. payload nil
// sends no body.
func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, []byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, nil, &ClientError{Type: ErrTypeTransport, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if h := cookieHeader(c.SessionCookie()); h != "" {
		req.Header.Set("Cookie", h)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, c.classify(path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, nil, c.classify(path, err)
	}
	return resp, body, nil
}

func (c *Client) classify(path string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		c.log.Warn().Str("path", path).Msg("REQUEST_TIMEOUT")
		return &ClientError{Type: ErrTypeTimeout, Message: ErrTimeout.Message, Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	c.log.Warn().Err(err).Str("path", path).Msg("REQUEST_TRANSPORT_FAILED")
	c.mu.RLock()
	hook := c.onTransportError
	c.mu.RUnlock()
	if hook != nil {
		hook(err)
	}
	return &ClientError{Type: ErrTypeTransport, Message: ErrTransport.Message, Cause: err}
}

// cookieHeader reduces raw Set-Cookie values to a Cookie request header.
func cookieHeader(raw string) string {
	if raw == "" {
		return ""
	}
	var pairs []string
	for _, line := range strings.Split(raw, "\n") {
		ck, err := http.ParseSetCookie(strings.TrimSpace(line))
		if err != nil {
			continue
		}
		pairs = append(pairs, ck.Name+"="+ck.Value)
	}
	return strings.Join(pairs, "; ")
}

func serverMessage(body []byte) string {
	var m struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &m) != nil {
		return ""
	}
	return m.Message
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
