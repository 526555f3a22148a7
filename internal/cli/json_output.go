// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"io"
	"time"
)

// JSONResponse is the standardized response format for all CLI commands.
type JSONResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Error     *string     `json:"error"`
	Timestamp string      `json:"timestamp"`
	Command   string      `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write encodes the response with indentation.
func (r *JSONResponse) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// StatusData is the status command's data.
type StatusData struct {
	Session StatusSessionInfo `json:"session"`
	Network StatusNetworkInfo `json:"network"`
	Config  StatusConfigInfo  `json:"config"`
}

// StatusSessionInfo describes the stored session.
type StatusSessionInfo struct {
	LoggedIn  bool   `json:"logged_in"`
	UserName  string `json:"user_name,omitempty"`
	HasCookie bool   `json:"has_cookie"`
	Encrypted bool   `json:"encrypted"`
	StorePath string `json:"store_path"`
}

// StatusNetworkInfo is one connectivity check.
type StatusNetworkInfo struct {
	Connected         bool   `json:"connected"`
	InternetReachable bool   `json:"internet_reachable"`
	Error             string `json:"error,omitempty"`
}

// StatusConfigInfo lists the effective guard settings.
type StatusConfigInfo struct {
	BaseURL           string `json:"base_url"`
	InactivityTimeout string `json:"inactivity_timeout"`
	OfflineGrace      string `json:"offline_grace"`
	ProbeInterval     string `json:"probe_interval"`
}

// LoginData is the login command's data.
type LoginData struct {
	UserName       string `json:"user_name"`
	VersionWarning string `json:"version_warning,omitempty"`
}

// LogoutData is the logout command's data.
type LogoutData struct {
	AttemptID  string `json:"attempt_id"`
	Result     string `json:"result"`
	LocalOnly  bool   `json:"local_only"`
	HadSession bool   `json:"had_session"`
	RemoteErr  string `json:"remote_error,omitempty"`
	StoreErr   string `json:"store_error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// ConfigPathData is the config path command's data.
type ConfigPathData struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}
