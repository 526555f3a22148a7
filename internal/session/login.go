// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jeranaias/cashdesk/internal/api"
	"github.com/jeranaias/cashdesk/internal/logging"
	"github.com/jeranaias/cashdesk/internal/store"
)

// MinPasswordLength is the shortest password accepted before any request.
const MinPasswordLength = 6

// NoNetworkMessage is shown when a login is attempted while offline.
const NoNetworkMessage = "No internet connection. Please check your network settings."

// =============================================================================
// CREDENTIAL VALIDATION
// =============================================================================

// CredentialErrors holds per-field validation messages. Empty means valid.
type CredentialErrors struct {
	Username string
	Password string
}

// OK reports whether both fields passed.
func (e CredentialErrors) OK() bool {
	return e.Username == "" && e.Password == ""
}

// Error joins the field messages.
func (e CredentialErrors) Error() string {
	var parts []string
	if e.Username != "" {
		parts = append(parts, e.Username)
	}
	if e.Password != "" {
		parts = append(parts, e.Password)
	}
	return strings.Join(parts, "; ")
}

// ValidateCredentials checks the login form before anything is sent.
func ValidateCredentials(username, password string) CredentialErrors {
	var e CredentialErrors
	if strings.TrimSpace(username) == "" {
		e.Username = "Username is required"
	}
	switch {
	case password == "":
		e.Password = "Password is required"
	case len(password) < MinPasswordLength:
		e.Password = fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)
	}
	return e
}

// =============================================================================
// LOGIN FLOW
// =============================================================================

// UpdateRequiredError blocks login when the server names a different
// client version.
type UpdateRequiredError struct {
	Latest  string
	Current string
}

func (e *UpdateRequiredError) Error() string {
	return fmt.Sprintf("Please update to version %s to continue. Current version: %s", e.Latest, e.Current)
}

// Authenticator is the part of the API client the login flow needs.
type Authenticator interface {
	CheckVersion(ctx context.Context, current string) (api.VersionResult, error)
	Login(ctx context.Context, username, password string) (*api.LoginResult, error)
}

// LoginOutcome is a successful login.
type LoginOutcome struct {
	Record store.SessionRecord
	// VersionWarning is set when the version check could not reach the
	// server. Login still proceeds.
	VersionWarning error
}

// LoginFlow validates credentials, checks the client version, logs in and
// persists the session record.
type LoginFlow struct {
	Client  Authenticator
	Store   store.Store
	Version string

	log zerolog.Logger
}

// NewLoginFlow creates a login flow.
func NewLoginFlow(client Authenticator, st store.Store, version string) *LoginFlow {
	return &LoginFlow{
		Client:  client,
		Store:   st,
		Version: version,
		log:     logging.Component("login"),
	}
}

// Run performs one login attempt. Errors are CredentialErrors,
// *UpdateRequiredError, api errors, or a store error.
func (f *LoginFlow) Run(ctx context.Context, username, password string) (LoginOutcome, error) {
	if v := ValidateCredentials(username, password); !v.OK() {
		return LoginOutcome{}, v
	}
	username = strings.TrimSpace(username)

	var out LoginOutcome
	ver, err := f.Client.CheckVersion(ctx, f.Version)
	if err != nil {
		f.log.Warn().Err(err).Msg("VERSION_CHECK_FAILED")
		out.VersionWarning = err
	}
	if !ver.UpToDate {
		f.log.Warn().Str("latest", ver.Latest).Str("current", f.Version).Msg("UPDATE_REQUIRED")
		return LoginOutcome{}, &UpdateRequiredError{Latest: ver.Latest, Current: f.Version}
	}

	res, err := f.Client.Login(ctx, username, password)
	if err != nil {
		f.log.Warn().Err(err).Str("user", username).Msg("LOGIN_FAILED")
		return LoginOutcome{}, err
	}

	out.Record = store.SessionRecord{
		UserData: res.UserData,
		UserName: res.FullName,
		Cookie:   res.Cookie,
		Token:    res.Token,
	}
	if err := store.SaveRecord(ctx, f.Store, out.Record); err != nil {
		return LoginOutcome{}, fmt.Errorf("save session: %w", err)
	}
	f.log.Info().Str("user", username).Msg("SESSION_SAVED")
	return out, nil
}

// LoginErrorMessage is the text shown for a failed Run.
func LoginErrorMessage(err error) string {
	var ce CredentialErrors
	var ur *UpdateRequiredError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ce):
		return ce.Error()
	case errors.As(err, &ur):
		return ur.Error()
	case errors.Is(err, context.Canceled):
		return "Login cancelled."
	default:
		var apiErr *api.ClientError
		var statusErr *api.StatusError
		if errors.As(err, &apiErr) || errors.As(err, &statusErr) {
			return api.LoginFailureMessage(err)
		}
		return "An unexpected error occurred. Please try again."
	}
}
