// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the cashdesk terminal shell: a bubbletea program with a
// login screen and a home screen.
//
// # Navigation
//
// The model keeps a screen stack. Login pushes Home; a logout replaces the
// whole stack with [Login] so there is no way back to an authenticated
// screen.
//
// # Bridge
//
// Bridge implements session.Navigator and session.Notifier by sending
// messages into the running program. Bridge methods block until the
// program receives the message, so they must never be called from Update.
// Logout therefore always runs inside a tea.Cmd.
//
// # Lifecycle
//
// The program runs with focus reporting. FocusMsg publishes Active and
// BlurMsg publishes Background to the lifecycle broker that drives the
// inactivity guard.
package app
