// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/jeranaias/cashdesk/internal/api"
	"github.com/jeranaias/cashdesk/internal/config"
	"github.com/jeranaias/cashdesk/internal/lifecycle"
	"github.com/jeranaias/cashdesk/internal/logging"
	"github.com/jeranaias/cashdesk/internal/netstatus"
	"github.com/jeranaias/cashdesk/internal/session"
	"github.com/jeranaias/cashdesk/internal/store"
)

// =============================================================================
// ENVIRONMENT
// =============================================================================

// Env carries what every command handler needs.
type Env struct {
	Config *config.Config
	Out    io.Writer
	Err    io.Writer
	Prompt Prompter

	// newChecker overrides the connectivity checker in tests.
	newChecker func(cfg *config.Config) netstatus.Checker
}

// Setup loads configuration and starts file logging. The returned cleanup
// closes the log file.
func Setup(args Args) (*Env, func(), error) {
	var cfg *config.Config
	var err error
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, func() {}, wrap("config", "load", err)
	}

	level := cfg.Log.Level
	if args.Verbose {
		level = "debug"
	}
	logPath, err := cfg.LogPath()
	if err != nil {
		return nil, func() {}, err
	}
	if err := logging.Init(logging.Options{Level: level, Path: logPath}); err != nil {
		return nil, func() {}, fmt.Errorf("failed to start logging: %w", err)
	}

	env := &Env{Config: cfg, Out: os.Stdout, Err: os.Stderr, Prompt: newTermPrompter()}
	return env, func() { _ = logging.Close() }, nil
}

func (e *Env) checker() netstatus.Checker {
	if e.newChecker != nil {
		return e.newChecker(e.Config)
	}
	return netstatus.NewHTTPChecker(e.Config.API.BaseURL)
}

// =============================================================================
// RUNTIME
// =============================================================================

// RuntimeOptions selects what NewRuntime wires.
type RuntimeOptions struct {
	Navigator session.Navigator
	Notifier  session.Notifier

	// Guards starts the inactivity and connectivity guards.
	Guards bool
}

// Runtime is the wired session subsystem.
type Runtime struct {
	Config       *config.Config
	Store        store.Store
	Encrypted    bool
	Client       *api.Client
	Coordinator  *session.Coordinator
	Login        *session.LoginFlow
	Broker       *lifecycle.Broker
	Probe        *netstatus.Probe
	Monitor      *netstatus.Monitor
	Inactivity   *session.InactivityGuard
	Connectivity *session.ConnectivityGuard

	cancel context.CancelFunc
	log    zerolog.Logger
}

// OpenStore opens the configured session store, sealed when a key is set.
func OpenStore(cfg *config.Config) (store.Store, bool, error) {
	path, err := cfg.StorePath()
	if err != nil {
		return nil, false, err
	}
	db, err := store.OpenSQLite(path)
	if err != nil {
		return nil, false, err
	}
	if cfg.Store.EncryptionKey == "" {
		return db, false, nil
	}
	sealed, err := store.NewSealedStore(db, cfg.Store.EncryptionKey)
	if err != nil {
		db.Close()
		return nil, false, err
	}
	return sealed, true, nil
}

// NewRuntime wires the session subsystem and initializes the coordinator.
// Call Start to begin polling and Close when done.
func (e *Env) NewRuntime(opts RuntimeOptions) (*Runtime, error) {
	cfg := e.Config
	log := logging.Component("runtime")

	st, encrypted, err := OpenStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	client := api.NewClient(&api.ClientConfig{
		BaseURL:        cfg.API.BaseURL,
		LoginTimeout:   cfg.API.LoginTimeout.Duration,
		VersionTimeout: cfg.API.VersionTimeout.Duration,
		UserAgent:      "cashdesk/" + Version,
	})
	if rec, err := store.LoadRecord(context.Background(), st); err == nil {
		client.SetSessionCookie(rec.Cookie)
	} else if !errors.Is(err, store.ErrNoSession) {
		log.Warn().Err(err).Msg("SESSION_RESTORE_FAILED")
	}

	coord := session.NewCoordinator(session.CoordinatorConfig{
		Store:         st,
		Remote:        client,
		Navigator:     opts.Navigator,
		Notifier:      opts.Notifier,
		RemoteTimeout: cfg.API.LogoutTimeout.Duration,
	})
	if err := coord.Init(); err != nil {
		st.Close()
		return nil, err
	}
	coord.OnLoggedOut(func(session.Outcome) { client.SetSessionCookie("") })

	checker := e.checker()
	rt := &Runtime{
		Config:      cfg,
		Store:       st,
		Encrypted:   encrypted,
		Client:      client,
		Coordinator: coord,
		Login:       session.NewLoginFlow(client, st, cfg.App.Version),
		Broker:      lifecycle.NewBroker(),
		Probe:       netstatus.NewProbe(checker, cfg.Network.ProbeInterval.Duration),
		Monitor:     netstatus.NewMonitor(checker, cfg.Network.MonitorInterval.Duration),
		log:         log,
	}
	client.OnTransportError(func(error) { rt.Monitor.Nudge() })

	if opts.Guards {
		rt.Inactivity = session.NewInactivityGuard(coord, cfg.Session.InactivityTimeout.Duration).Start(rt.Broker)
		rt.Connectivity = session.NewConnectivityGuard(coord, cfg.Session.OfflineGrace.Duration).Start(rt.Monitor)
	}
	coord.OnDispose(rt.Probe.Stop)
	coord.OnDispose(rt.Monitor.Stop)

	log.Info().
		Bool("guards", opts.Guards).
		Bool("encrypted", encrypted).
		Str("base_url", cfg.API.BaseURL).
		Msg("RUNTIME_READY")
	return rt, nil
}

// Start begins probe and monitor polling.
func (r *Runtime) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.Probe.Start(ctx)
	r.Monitor.Start(ctx)
}

// ApplyConfig pushes reloadable settings into the running guards. New
// durations apply to the next armed timer.
func (r *Runtime) ApplyConfig(cfg *config.Config) {
	if r.Inactivity != nil {
		r.Inactivity.SetTimeout(cfg.Session.InactivityTimeout.Duration)
	}
	if r.Connectivity != nil {
		r.Connectivity.SetGrace(cfg.Session.OfflineGrace.Duration)
	}
	r.log.Info().
		Dur("inactivity_timeout", cfg.Session.InactivityTimeout.Duration).
		Dur("offline_grace", cfg.Session.OfflineGrace.Duration).
		Msg("CONFIG_APPLIED")
}

// Close disposes the coordinator (which stops guards and polling) and
// closes the store. A logout still running is allowed to clear the store
// first.
func (r *Runtime) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	if r.Coordinator.InFlight() {
		r.log.Info().Msg("CLOSE_WAITING_FOR_LOGOUT")
	}
	r.Coordinator.Dispose()
	return r.Store.Close()
}
