// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the cashdesk command line.
//
// # Commands
//
//	cashdesk                      Start the TUI (default)
//	cashdesk login [--user NAME]  Log in from the terminal
//	cashdesk logout [--local]     End the session
//	cashdesk status [--json]      Show session and network status
//	cashdesk config [show|path|init]
//	cashdesk version
//	cashdesk help
//
// Every command returns an error; main maps it to an exit code with
// GetExitCode. With --json, commands print a JSONResponse envelope to
// stdout and keep human-readable text on stderr.
//
// # Runtime
//
// NewRuntime wires config, store, API client, coordinator, probes and
// guards in one place so the TUI and the one-shot commands share it.
package cli
