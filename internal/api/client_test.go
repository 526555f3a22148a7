// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(&ClientConfig{
		BaseURL:        srv.URL + "/",
		LoginTimeout:   500 * time.Millisecond,
		VersionTimeout: 500 * time.Millisecond,
	}), srv
}

// =============================================================================
// LOGOUT
// =============================================================================

func TestLogout_PostsEmptyObjectWithCookie(t *testing.T) {
	var gotBody, gotCookie, gotMethod, gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody, gotCookie = string(b), r.Header.Get("Cookie")
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	})
	c.SetSessionCookie("sid=abc123; Path=/; HttpOnly")

	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, PathLogout, gotPath)
	assert.Equal(t, "{}", gotBody)
	assert.Equal(t, "sid=abc123", gotCookie)
}

func TestLogout_ServerErrorIsStatusError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"message":"boom"}`)
	})

	err := c.Logout(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Contains(t, err.Error(), "boom")
}

func TestLogout_HonoursContextDeadline(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := c.Logout(ctx)
	assert.True(t, IsTimeout(err), "got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestTransportErrorCallsHook(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(&ClientConfig{BaseURL: url})
	var calls atomic.Int32
	c.OnTransportError(func(error) { calls.Add(1) })

	err := c.Logout(context.Background())
	assert.True(t, IsTransport(err), "got %v", err)
	assert.Equal(t, int32(1), calls.Load())
}

// =============================================================================
// VERSION CHECK
// =============================================================================

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		upToDate bool
		latest   string
	}{
		{"same version", 200, `{"version":"1.0.0"}`, true, "1.0.0"},
		{"newer version", 200, `{"version":"1.1.0"}`, false, "1.1.0"},
		{"missing version", 200, `{}`, true, ""},
		{"empty body", 200, ``, true, ""},
		{"server error", 503, `{"version":"9.9.9"}`, true, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, PathVersion, r.URL.Path)
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			})
			res, err := c.CheckVersion(context.Background(), "1.0.0")
			require.NoError(t, err)
			assert.Equal(t, tc.upToDate, res.UpToDate)
			assert.Equal(t, tc.latest, res.Latest)
		})
	}
}

func TestCheckVersion_FailsOpenOnTransportError(t *testing.T) {
	c := NewClient(&ClientConfig{BaseURL: "http://127.0.0.1:1"})
	res, err := c.CheckVersion(context.Background(), "1.0.0")
	assert.Error(t, err)
	assert.True(t, res.UpToDate)
}

// =============================================================================
// LOGIN
// =============================================================================

func TestLogin_Success(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "teller01", req.Username)
		assert.Equal(t, "pw", req.Password)

		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "xyz", Path: "/"})
		io.WriteString(w, `{"user":[{"FullName":"ADA LOVELACE","BranchID":4}],"token":"t-1"}`)
	})

	res, err := c.Login(context.Background(), "teller01", "pw")
	require.NoError(t, err)
	assert.Equal(t, "ADA LOVELACE", res.FullName)
	assert.Equal(t, "t-1", res.Token)
	assert.Contains(t, res.Cookie, "sid=xyz")
	assert.JSONEq(t, `{"user":[{"FullName":"ADA LOVELACE","BranchID":4}],"token":"t-1"}`, string(res.UserData))
	assert.Equal(t, res.Cookie, c.SessionCookie())
}

func TestLogin_EmptyUserIsInvalidCredentials(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"user":[],"message":"Wrong password"}`)
	})

	_, err := c.Login(context.Background(), "a", "b")
	require.Error(t, err)
	assert.True(t, IsInvalidCredentials(err))
	assert.Equal(t, "Wrong password", LoginFailureMessage(err))
}

func TestLogin_EmptyUserDefaultMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	})

	_, err := c.Login(context.Background(), "a", "b")
	assert.Equal(t, "Invalid Credentials!", LoginFailureMessage(err))
}

func TestLogin_StatusMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"message":"Account locked"}`)
	})

	_, err := c.Login(context.Background(), "a", "b")
	assert.Equal(t, "Account locked", LoginFailureMessage(err))
}

func TestLogin_StatusWithoutMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Login(context.Background(), "a", "b")
	assert.Equal(t, "Login failed with status 502", LoginFailureMessage(err))
}

func TestLogin_Timeout(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	_, err := c.Login(context.Background(), "a", "b")
	assert.True(t, IsTimeout(err), "got %v", err)
	assert.False(t, errors.Is(err, ErrInvalidCredentials))
}

func TestCookieHeader(t *testing.T) {
	assert.Equal(t, "", cookieHeader(""))
	assert.Equal(t, "a=1; b=2", cookieHeader("a=1; Path=/\nb=2; HttpOnly"))
	assert.Equal(t, "a=1", cookieHeader("a=1\n;;;"))
}
