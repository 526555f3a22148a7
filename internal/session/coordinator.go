// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/cashdesk/internal/logging"
	"github.com/jeranaias/cashdesk/internal/store"
)

// DefaultRemoteTimeout bounds the remote logout call.
const DefaultRemoteTimeout = 5 * time.Second

// disposeSlack is added to the remote timeout when Dispose waits for a
// running logout to finish clearing the store.
const disposeSlack = 2 * time.Second

// FailedMessage is shown when logout fails unexpectedly.
const FailedMessage = "Failed to logout. Please try again."

// Sentinel errors.
var (
	ErrNotInitialized = errors.New("session: coordinator not initialized")
	ErrDisposed       = errors.New("session: coordinator disposed")
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Navigator replaces the navigation history with the login screen.
type Navigator interface {
	ReplaceToLogin()
}

// Notifier shows a non-blocking message to the user.
type Notifier interface {
	Notify(msg string)
}

// RemoteLogout invalidates the server-side session.
type RemoteLogout interface {
	Logout(ctx context.Context) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func()

// ReplaceToLogin calls f.
func (f NavigatorFunc) ReplaceToLogin() { f() }

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

// Notify calls f.
func (f NotifierFunc) Notify(msg string) { f(msg) }

// =============================================================================
// OUTCOME
// =============================================================================

// Result classifies a LogOut call.
type Result int

const (
	// Completed means the store was cleared (possibly partially) and the
	// user was sent to login.
	Completed Result = iota
	// Skipped means another logout was already in flight.
	Skipped
	// Failed means an unexpected panic aborted the logout before navigation.
	Failed
	// NotReady means the coordinator was not initialized or was disposed.
	NotReady
)

func (r Result) String() string {
	switch r {
	case Completed:
		return "completed"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	case NotReady:
		return "not_ready"
	default:
		return "unknown"
	}
}

// Outcome describes one LogOut call. RemoteErr and StoreErr are recovered
// failures and do not change Result.
type Outcome struct {
	AttemptID string
	Result    Result
	Reason    string
	LocalOnly bool
	RemoteErr error
	StoreErr  error
	Err       error
	Duration  time.Duration
}

// =============================================================================
// OPTIONS
// =============================================================================

type logoutOptions struct {
	localOnly bool
	reason    string
	epoch     uint64
	hasEpoch  bool
}

// LogoutOption configures a LogOut call.
type LogoutOption func(*logoutOptions)

// LocalOnly skips the remote invalidation call.
func LocalOnly() LogoutOption {
	return func(o *logoutOptions) { o.localOnly = true }
}

// WithReason tags the attempt in logs ("manual", "inactivity", "offline").
func WithReason(reason string) LogoutOption {
	return func(o *logoutOptions) { o.reason = reason }
}

// IfEpoch makes the call a no-op unless no logout has completed since
// epoch was read from Coordinator.Epoch. Guards pass the epoch they armed
// in, so a deadline set for a session that has already ended cannot log out
// a second time.
func IfEpoch(epoch uint64) LogoutOption {
	return func(o *logoutOptions) { o.epoch, o.hasEpoch = epoch, true }
}

// =============================================================================
// COORDINATOR
// =============================================================================

// CoordinatorConfig wires a Coordinator. Store is required. A nil Remote
// makes every logout local-only; a nil Navigator suits headless callers.
type CoordinatorConfig struct {
	Store         store.Store
	Remote        RemoteLogout
	Navigator     Navigator
	Notifier      Notifier
	RemoteTimeout time.Duration
}

type lifeState int

const (
	stateNew lifeState = iota
	stateReady
	stateDisposed
)

// Coordinator is the single entry point for logging out. It owns the
// in-flight latch, the guard timers and the guards' event subscriptions.
type Coordinator struct {
	store         store.Store
	remote        RemoteLogout
	nav           Navigator
	notifier      Notifier
	remoteTimeout time.Duration
	log           zerolog.Logger

	inFlight atomic.Bool
	epoch    atomic.Uint64 // completed logouts

	running sync.WaitGroup // logouts past the readiness check

	mu       sync.Mutex
	state    lifeState
	timers   []*GuardTimer
	cleanups []func()
	hooks    []func(Outcome)
}

// NewCoordinator creates a coordinator. Call Init before use.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = DefaultRemoteTimeout
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NotifierFunc(func(string) {})
	}
	if cfg.Navigator == nil {
		cfg.Navigator = NavigatorFunc(func() {})
	}
	return &Coordinator{
		store:         cfg.Store,
		remote:        cfg.Remote,
		nav:           cfg.Navigator,
		notifier:      cfg.Notifier,
		remoteTimeout: cfg.RemoteTimeout,
		log:           logging.Component("session"),
	}
}

// Init makes the coordinator ready. Calling it again is a no-op; calling it
// after Dispose returns ErrDisposed.
func (c *Coordinator) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateDisposed:
		return ErrDisposed
	case stateReady:
		return nil
	}
	c.state = stateReady
	c.log.Debug().Msg("COORDINATOR_READY")
	return nil
}

// Dispose cancels and disables every guard timer, runs registered cleanups
// (event unsubscriptions) and turns later LogOut calls into no-ops. A logout
// already running is waited for, up to the remote timeout plus a short
// slack, so the store can be closed safely once Dispose returns.
// Dispose is idempotent.
func (c *Coordinator) Dispose() {
	c.mu.Lock()
	if c.state == stateDisposed {
		c.mu.Unlock()
		return
	}
	c.state = stateDisposed
	timers := c.timers
	cleanups := c.cleanups
	c.timers, c.cleanups = nil, nil
	c.mu.Unlock()

	for _, t := range timers {
		t.Close()
	}
	c.waitRunning(c.remoteTimeout + disposeSlack)
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	c.log.Debug().Int("timers", len(timers)).Int("cleanups", len(cleanups)).Msg("COORDINATOR_DISPOSED")
}

// waitRunning blocks until running logouts finish or limit elapses.
func (c *Coordinator) waitRunning(limit time.Duration) {
	done := make(chan struct{})
	go func() {
		c.running.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(limit):
		c.log.Warn().Dur("waited", limit).Msg("DISPOSE_LOGOUT_STILL_RUNNING")
	}
}

// Ready reports whether Init has run and Dispose has not.
func (c *Coordinator) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateReady
}

// InFlight reports whether a logout is running.
func (c *Coordinator) InFlight() bool {
	return c.inFlight.Load()
}

// Epoch counts completed logouts.
func (c *Coordinator) Epoch() uint64 {
	return c.epoch.Load()
}

// NewTimer returns a GuardTimer that Dispose will close. On a disposed
// coordinator the timer is returned already closed.
func (c *Coordinator) NewTimer() *GuardTimer {
	t := &GuardTimer{}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateDisposed {
		t.Close()
		return t
	}
	c.timers = append(c.timers, t)
	return t
}

// OnDispose registers fn to run during Dispose, in reverse registration
// order. On a disposed coordinator fn runs immediately.
func (c *Coordinator) OnDispose(fn func()) {
	c.mu.Lock()
	if c.state == stateDisposed {
		c.mu.Unlock()
		fn()
		return
	}
	c.cleanups = append(c.cleanups, fn)
	c.mu.Unlock()
}

// OnLoggedOut registers fn to run after the store is cleared and before
// navigation, for every logout that gets that far.
func (c *Coordinator) OnLoggedOut(fn func(Outcome)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// LogOut runs the logout sequence: remote invalidation (unless local-only)
// bounded by the remote timeout, best-effort removal of every session key,
// then a replace-to-login navigation. Remote and store failures are logged
// and swallowed. If another logout is in flight the call returns at once
// with Result Skipped, as does a call made with a stale IfEpoch. A panic is
// recovered and reported to the user through the Notifier; navigation does
// not happen in that case.
//
// LogOut blocks for at most the remote timeout plus store latency; callers
// on a UI goroutine should run it asynchronously.
func (c *Coordinator) LogOut(ctx context.Context, opts ...LogoutOption) (out Outcome) {
	o := logoutOptions{reason: "manual"}
	for _, opt := range opts {
		opt(&o)
	}
	out = Outcome{Reason: o.reason, LocalOnly: o.localOnly || c.remote == nil}

	// Registering under mu orders the Add before any Dispose wait.
	c.mu.Lock()
	state := c.state
	if state == stateReady {
		c.running.Add(1)
	}
	c.mu.Unlock()
	if state != stateReady {
		out.Result = NotReady
		out.Err = ErrNotInitialized
		if state == stateDisposed {
			out.Err = ErrDisposed
		}
		c.log.Debug().Str("reason", o.reason).Err(out.Err).Msg("LOGOUT_IGNORED")
		return out
	}
	defer c.running.Done()

	if !c.inFlight.CompareAndSwap(false, true) {
		out.Result = Skipped
		c.log.Debug().Str("reason", o.reason).Msg("LOGOUT_ALREADY_IN_FLIGHT")
		return out
	}
	defer c.inFlight.Store(false)

	if o.hasEpoch && c.epoch.Load() != o.epoch {
		out.Result = Skipped
		c.log.Debug().Str("reason", o.reason).Msg("LOGOUT_STALE_TRIGGER")
		return out
	}

	out.AttemptID = uuid.NewString()
	log := c.log.With().
		Str("attempt", out.AttemptID).
		Str("reason", out.Reason).
		Bool("local_only", out.LocalOnly).
		Logger()
	start := time.Now()

	defer func() {
		out.Duration = time.Since(start)
		if r := recover(); r != nil {
			out.Result = Failed
			out.Err = fmt.Errorf("logout panicked: %v", r)
			log.Error().Interface("panic", r).Msg("LOGOUT_FAILED")
			c.notifier.Notify(FailedMessage)
		}
	}()

	log.Info().Msg("LOGOUT_START")

	if !out.LocalOnly {
		out.RemoteErr = c.invalidateRemote(ctx)
		if out.RemoteErr != nil {
			log.Warn().Err(out.RemoteErr).Msg("LOGOUT_REMOTE_FAILED")
		}
	}

	// The caller's cancellation must not stop local cleanup.
	out.StoreErr = store.ClearSession(context.WithoutCancel(ctx), c.store)
	if out.StoreErr != nil {
		log.Warn().Err(out.StoreErr).Msg("LOGOUT_STORE_PARTIAL")
	}

	c.mu.Lock()
	hooks := append([]func(Outcome){}, c.hooks...)
	c.mu.Unlock()
	for _, fn := range hooks {
		fn(out)
	}

	c.nav.ReplaceToLogin()
	c.epoch.Add(1)
	out.Result = Completed
	log.Info().Dur("took", time.Since(start)).Msg("LOGOUT_DONE")
	return out
}

// invalidateRemote enforces the timeout even if the remote ignores ctx.
func (c *Coordinator) invalidateRemote(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("remote logout: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.remoteTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("remote logout panicked: %v", r)
			}
		}()
		done <- c.remote.Logout(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("remote logout: %w", ctx.Err())
	}
}
