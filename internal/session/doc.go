// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the session lifecycle: login, the logout
// coordinator and the two guards that can force a logout.
//
// # Key Types
//
//   - Coordinator: the single logout entry point. Holds the in-flight latch,
//     the guard timers and the event subscriptions, with an explicit
//     Init/Dispose lifecycle.
//   - GuardTimer: one cancellable deadline. Arming replaces the previous
//     deadline; cancelling is idempotent.
//   - InactivityGuard: logs out after the app has stayed in background for
//     the inactivity timeout (30s by default).
//   - ConnectivityGuard: performs a local-only logout after connectivity has
//     been lost for the offline grace period (3s by default).
//   - LoginFlow: validates credentials, runs the fail-open version check,
//     logs in and saves the session record.
//
// # Usage
//
//	coord := session.NewCoordinator(session.CoordinatorConfig{
//	    Store:     st,
//	    Remote:    client,
//	    Navigator: nav,
//	    Notifier:  toasts,
//	})
//	coord.Init()
//	defer coord.Dispose()
//
//	session.NewInactivityGuard(coord, 30*time.Second).Start(broker)
//	session.NewConnectivityGuard(coord, 3*time.Second).Start(monitor)
//
// Both guards may fire at once; the latch turns the second call into a
// no-op. Outcomes are logged and never returned as errors to the guards.
package session
