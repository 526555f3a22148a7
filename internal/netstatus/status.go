// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package netstatus reports network reachability.
//
// Two independent watchers live here. Probe is advisory: it feeds the UI's
// network indicator and the login button and never triggers a logout.
// Monitor is the authoritative source of connectivity transitions consumed
// by the session package's connectivity guard.
package netstatus

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Status is a single reachability observation.
type Status struct {
	// Connected means at least one usable network interface is up.
	Connected bool
	// InternetReachable means the API host answered.
	InternetReachable bool
}

// Offline reports whether the status counts as lost connectivity.
func (s Status) Offline() bool {
	return !s.Connected || !s.InternetReachable
}

// Checker performs one reachability check.
type Checker interface {
	Check(ctx context.Context) (Status, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) (Status, error)

// Check calls f.
func (f CheckerFunc) Check(ctx context.Context) (Status, error) { return f(ctx) }

// =============================================================================
// HTTP CHECKER
// =============================================================================

// HTTPChecker checks interfaces locally, then sends a HEAD request to URL.
// Any HTTP response, whatever its status, counts as reachable.
type HTTPChecker struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client

	// Interfaces lists network interfaces; nil means net.Interfaces.
	Interfaces func() ([]net.Interface, error)
}

// NewHTTPChecker returns a checker against url with a 3s request timeout.
func NewHTTPChecker(url string) *HTTPChecker {
	return &HTTPChecker{
		URL:     url,
		Timeout: 3 * time.Second,
		Client:  &http.Client{},
	}
}

// Check implements Checker. A loopback API host skips the interface test.
func (c *HTTPChecker) Check(ctx context.Context) (Status, error) {
	up := isLoopbackURL(c.URL)
	var err error
	if !up {
		up, err = c.interfacesUp()
	}
	if err != nil {
		return Status{}, fmt.Errorf("failed to list interfaces: %w", err)
	}
	if !up {
		return Status{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.URL, nil)
	if err != nil {
		return Status{Connected: true}, fmt.Errorf("failed to create request: %w", err)
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Status{Connected: true}, nil
	}
	resp.Body.Close()
	return Status{Connected: true, InternetReachable: true}, nil
}

func (c *HTTPChecker) interfacesUp() (bool, error) {
	list := c.Interfaces
	if list == nil {
		list = net.Interfaces
	}
	ifaces, err := list()
	if err != nil {
		return false, err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		return true, nil
	}
	return false, nil
}

func isLoopbackURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
