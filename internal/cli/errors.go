// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jeranaias/cashdesk/internal/api"
	"github.com/jeranaias/cashdesk/internal/config"
	"github.com/jeranaias/cashdesk/internal/session"
	"github.com/jeranaias/cashdesk/internal/store"
)

// =============================================================================
// EXIT CODES - Specific codes for different error categories
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates authentication failure
	ExitAuthError = 4
	// ExitNetworkError indicates network or connectivity error
	ExitNetworkError = 5
	// ExitUpdateRequired indicates the server requires a newer client
	ExitUpdateRequired = 6
	// ExitNotFoundError indicates there is no session
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string
	Action  string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// wrap attaches command context to err. nil stays nil.
func wrap(command, action string, err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{Command: command, Action: action, Err: err}
}

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Command == "config" && cmdErr.Action == "load" {
		return ExitConfigError
	}

	var usageErr *UsageError
	var credErr session.CredentialErrors
	var cfgErr config.ValidateErrors
	var updateErr *session.UpdateRequiredError

	switch {
	case errors.As(err, &usageErr), errors.As(err, &credErr):
		return ExitUsageError
	case errors.As(err, &cfgErr):
		return ExitConfigError
	case errors.As(err, &updateErr):
		return ExitUpdateRequired
	case errors.Is(err, store.ErrNoSession):
		return ExitNotFoundError
	case api.IsInvalidCredentials(err):
		return ExitAuthError
	case api.IsTimeout(err):
		return ExitTimeoutError
	case api.IsTransport(err), errors.Is(err, errOffline):
		return ExitNetworkError
	}

	switch api.StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ExitAuthError
	}
	return ExitGeneralError
}

// DisplayError prints err for the user: a JSON envelope on out in JSON
// mode, otherwise a line on errOut.
func DisplayError(out, errOut io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Write(out)
		return
	}
	fmt.Fprintf(errOut, "Error: %v\n", err)
}
