// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// SessionRecord is the authenticated user as written at login.
type SessionRecord struct {
	// UserData is the login response payload, kept opaque.
	UserData json.RawMessage

	// UserName is the human-readable display name.
	UserName string

	// Cookie is the transport session cookie, if the server issued one.
	Cookie string

	// Token is the bearer token from the login response, if any.
	Token string
}

// SaveRecord writes every artifact of rec. Empty optional fields are removed
// so that a stale cookie from an earlier login does not survive.
func SaveRecord(ctx context.Context, st Store, rec SessionRecord) error {
	if len(rec.UserData) == 0 {
		return errors.New("store: session record has no user data")
	}

	if err := st.Put(ctx, KeyUserData, string(rec.UserData)); err != nil {
		return err
	}
	if err := st.Put(ctx, KeyUserName, rec.UserName); err != nil {
		return err
	}
	if err := putOrDelete(ctx, st, KeySessionCookie, rec.Cookie); err != nil {
		return err
	}
	return putOrDelete(ctx, st, KeyUserToken, rec.Token)
}

func putOrDelete(ctx context.Context, st Store, key, value string) error {
	if value == "" {
		return st.Delete(ctx, key)
	}
	return st.Put(ctx, key, value)
}

// LoadRecord reads the current session. It returns ErrNoSession when no
// user data is stored.
func LoadRecord(ctx context.Context, st Store) (SessionRecord, error) {
	var rec SessionRecord

	data, err := st.Get(ctx, KeyUserData)
	if errors.Is(err, ErrNotFound) {
		return rec, ErrNoSession
	}
	if err != nil {
		return rec, err
	}
	rec.UserData = json.RawMessage(data)

	if rec.UserName, err = getOptional(ctx, st, KeyUserName); err != nil {
		return rec, err
	}
	if rec.Cookie, err = getOptional(ctx, st, KeySessionCookie); err != nil {
		return rec, err
	}
	if rec.Token, err = getOptional(ctx, st, KeyUserToken); err != nil {
		return rec, err
	}
	return rec, nil
}

func getOptional(ctx context.Context, st Store, key string) (string, error) {
	v, err := st.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// ClearSession deletes every session key. Each delete is attempted even if an
// earlier one failed; the failures are returned joined.
func ClearSession(ctx context.Context, st Store) error {
	var errs []error
	for _, key := range SessionKeys() {
		if err := st.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
