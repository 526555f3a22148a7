// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
)

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeTimeout
	ErrTypeTransport
	ErrTypeInvalidCredentials
	ErrTypeStatus
	ErrTypeInvalidResponse
)

// ClientError represents an error from the API client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches any ClientError of the same Type, so an error carrying the
// server's message still satisfies errors.Is(err, ErrInvalidCredentials).
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	return ok && t.Type == e.Type
}

// Sentinel errors for easy checking.
var (
	ErrTimeout            = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrTransport          = &ClientError{Type: ErrTypeTransport, Message: "server unreachable"}
	ErrInvalidCredentials = &ClientError{Type: ErrTypeInvalidCredentials, Message: "Invalid Credentials!"}
)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Endpoint string
	Code     int
	// Message is the server's "message" field, if any.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Endpoint, e.Code)
}

// IsTimeout reports whether err is a request timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsTransport reports whether err means the server could not be reached.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsInvalidCredentials reports whether the login was rejected.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
