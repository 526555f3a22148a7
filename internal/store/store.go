// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
)

// Keys persisted by the session subsystem.
const (
	KeyUserData      = "userData"
	KeyUserName      = "userName"
	KeySessionCookie = "sessionCookie"
	KeyUserToken     = "userToken"
)

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("store: key not found")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("store: closed")

	// ErrNoSession is returned by LoadRecord when no user is logged in.
	ErrNoSession = errors.New("store: no session")
)

// Store is a small persistent key-value store.
type Store interface {
	Put(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
	Close() error
}

// SessionKeys returns every key that identifies or authenticates the user.
func SessionKeys() []string {
	return []string{KeyUserData, KeyUserName, KeySessionCookie, KeyUserToken}
}
