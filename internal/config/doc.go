// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for cashdesk.
//
// Configuration is TOML, decoded with sensible defaults, environment variable
// overrides, and validation.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CASHDESK_*)
//   - ~/.cashdesk/config.toml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	grace := cfg.Session.OfflineGrace.Duration
//
// Watch the file and push guard durations on change:
//
//	w, err := config.NewWatcher(path, 250*time.Millisecond, func(cfg *config.Config) {
//	    inactivity.SetTimeout(cfg.Session.InactivityTimeout.Duration)
//	})
package config
