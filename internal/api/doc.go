// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the cash-desk authentication endpoints.
//
// # Endpoints
//
//   - POST /auth/AppVersion: latest client version (fail-open)
//   - POST /auth/login: credentials in, user record and session cookie out
//   - POST /auth/logout: invalidates the server-side session
//
// The session cookie captured at login (or restored from the session store
// with SetSessionCookie) is replayed as a Cookie header on later calls.
//
// # Usage
//
//	client := api.NewClient(&api.ClientConfig{BaseURL: cfg.API.BaseURL})
//	res, err := client.Login(ctx, "teller01", password)
//	if err != nil {
//	    fmt.Println(api.LoginFailureMessage(err))
//	}
package api
