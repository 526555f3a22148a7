// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/cashdesk/internal/lifecycle"
	"github.com/jeranaias/cashdesk/internal/logging"
)

// DefaultInactivityTimeout is how long the app may stay in background.
const DefaultInactivityTimeout = 30 * time.Second

// LifecycleSource delivers lifecycle transitions.
type LifecycleSource interface {
	Subscribe(fn func(lifecycle.State)) (unsubscribe func())
}

// InactivityGuard logs out once the app has been in background for the
// timeout.
//
// The guard is either foregrounded or backgrounded. Active and Inactive both
// count as foreground until Background arrives, so the active, inactive,
// background sequence still arms the timer. Only Active returns to the
// foreground and cancels it. Inactive and repeated Background events while
// backgrounded change nothing.
type InactivityGuard struct {
	coord *Coordinator
	timer *GuardTimer
	log   zerolog.Logger

	mu           sync.Mutex
	timeout      time.Duration
	backgrounded bool
	unsubscribe  func()
	epoch        uint64
}

// NewInactivityGuard creates a guard. timeout <= 0 uses
// DefaultInactivityTimeout.
func NewInactivityGuard(coord *Coordinator, timeout time.Duration) *InactivityGuard {
	if timeout <= 0 {
		timeout = DefaultInactivityTimeout
	}
	return &InactivityGuard{
		coord:   coord,
		timer:   coord.NewTimer(),
		log:     logging.Component("inactivity"),
		timeout: timeout,
	}
}

// SetTimeout changes the timeout used the next time the timer is armed.
func (g *InactivityGuard) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.timeout = d
}

// Timeout returns the current timeout.
func (g *InactivityGuard) Timeout() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.timeout
}

// Backgrounded reports whether the guard considers the app in background.
func (g *InactivityGuard) Backgrounded() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.backgrounded
}

// Pending reports whether a logout is scheduled.
func (g *InactivityGuard) Pending() bool {
	return g.timer.Pending()
}

// Start subscribes to src. The subscription is released by Stop or by the
// coordinator's Dispose.
func (g *InactivityGuard) Start(src LifecycleSource) *InactivityGuard {
	unsub := src.Subscribe(g.Handle)

	g.mu.Lock()
	g.unsubscribe = unsub
	g.mu.Unlock()

	g.coord.OnDispose(g.Stop)
	return g
}

// Stop unsubscribes and cancels any pending logout. Safe to call twice.
func (g *InactivityGuard) Stop() {
	g.mu.Lock()
	unsub := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	g.timer.Cancel()
}

// Handle applies one lifecycle transition.
func (g *InactivityGuard) Handle(state lifecycle.State) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch state {
	case lifecycle.Active:
		g.backgrounded = false
		if g.timer.Cancel() {
			g.log.Info().Msg("GUARD_CANCELLED")
		}
	case lifecycle.Background:
		if g.backgrounded {
			return
		}
		g.backgrounded = true
		g.epoch = g.coord.Epoch()
		g.timer.Arm(g.timeout, g.fire)
		g.log.Info().Dur("timeout", g.timeout).Msg("GUARD_ARMED")
	case lifecycle.Inactive:
		// Transitional; wait for Active or Background.
	}
}

func (g *InactivityGuard) fire() {
	g.mu.Lock()
	still, epoch := g.backgrounded, g.epoch
	g.mu.Unlock()
	if !still {
		return
	}

	g.log.Info().Msg("GUARD_FIRED")
	g.coord.LogOut(context.Background(), WithReason("inactivity"), IfEpoch(epoch))
}
