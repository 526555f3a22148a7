// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/cashdesk/internal/config"
	"github.com/jeranaias/cashdesk/internal/logging"
	"github.com/jeranaias/cashdesk/internal/ui/app"
	"github.com/jeranaias/cashdesk/internal/ui/styles"
)

// configDebounce coalesces editor save bursts.
const configDebounce = 500 * time.Millisecond

// RunTUI starts the terminal UI with both guards armed and blocks until
// the user quits.
func RunTUI(env *Env, args Args) error {
	log := logging.Component("tui")
	if !IsTTY() || !IsStdoutTTY() {
		return &TTYRequiredError{Operation: "the TUI"}
	}

	bridge := app.NewBridge()
	rt, err := env.NewRuntime(RuntimeOptions{Navigator: bridge, Notifier: bridge, Guards: true})
	if err != nil {
		return err
	}
	defer rt.Close()
	rt.Probe.OnChange(bridge.NetworkChanged)

	model := app.New(app.Deps{
		Store:     rt.Store,
		Login:     rt.Login,
		Session:   rt.Coordinator,
		Probe:     rt.Probe,
		Lifecycle: rt.Broker,
		Theme:     styles.NewTheme(),
		Version:   env.Config.App.Version,
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),   // Use alternate screen buffer
		tea.WithReportFocus(), // Focus/blur drive the inactivity guard
	)
	bridge.Attach(p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Start(ctx)

	if w := watchConfig(args, rt); w != nil {
		defer w.Close()
	}

	log.Info().Str("version", Version).Msg("TUI_START")
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running cashdesk: %w", err)
	}
	log.Info().Msg("TUI_EXIT")
	return nil
}

// watchConfig hot-reloads guard durations. Failure to watch is logged and
// not fatal.
func watchConfig(args Args, rt *Runtime) *config.Watcher {
	log := logging.Component("tui")

	path := args.ConfigPath
	if path == "" {
		var err error
		if path, err = config.ConfigPath(); err != nil {
			log.Warn().Err(err).Msg("CONFIG_WATCH_DISABLED")
			return nil
		}
	}

	w, err := config.NewWatcher(path, configDebounce, rt.ApplyConfig)
	if err != nil {
		log.Warn().Err(err).Msg("CONFIG_WATCH_DISABLED")
		return nil
	}
	if err := w.Start(); err != nil {
		w.Close()
		log.Warn().Err(err).Msg("CONFIG_WATCH_DISABLED")
		return nil
	}
	return w
}
