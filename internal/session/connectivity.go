// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/cashdesk/internal/logging"
	"github.com/jeranaias/cashdesk/internal/netstatus"
)

// DefaultOfflineGrace is how long connectivity may stay lost before the
// local-only logout.
const DefaultOfflineGrace = 3 * time.Second

// ConnectivitySource delivers connectivity transitions.
type ConnectivitySource interface {
	Subscribe(fn func(netstatus.ConnectivityState)) (unsubscribe func())
}

// ConnectivityGuard performs a local-only logout when connectivity stays
// lost for the grace period. Going offline arms the timer; coming back
// cancels it. Each offline edge replaces the previous deadline, so after a
// burst of flaps only the final state can fire. Unknown is ignored.
type ConnectivityGuard struct {
	coord *Coordinator
	timer *GuardTimer
	log   zerolog.Logger

	mu          sync.Mutex
	grace       time.Duration
	offline     bool
	unsubscribe func()
	epoch       uint64
}

// NewConnectivityGuard creates a guard. A negative grace uses
// DefaultOfflineGrace; zero fires on the next scheduler tick.
func NewConnectivityGuard(coord *Coordinator, grace time.Duration) *ConnectivityGuard {
	if grace < 0 {
		grace = DefaultOfflineGrace
	}
	return &ConnectivityGuard{
		coord: coord,
		timer: coord.NewTimer(),
		log:   logging.Component("connectivity"),
		grace: grace,
	}
}

// SetGrace changes the grace used the next time the timer is armed.
func (g *ConnectivityGuard) SetGrace(d time.Duration) {
	if d < 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.grace = d
}

// Grace returns the current grace period.
func (g *ConnectivityGuard) Grace() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.grace
}

// Offline reports the last observed connectivity.
func (g *ConnectivityGuard) Offline() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.offline
}

// Pending reports whether a logout is scheduled.
func (g *ConnectivityGuard) Pending() bool {
	return g.timer.Pending()
}

// Start subscribes to src. The subscription is released by Stop or by the
// coordinator's Dispose.
func (g *ConnectivityGuard) Start(src ConnectivitySource) *ConnectivityGuard {
	unsub := src.Subscribe(g.Handle)

	g.mu.Lock()
	g.unsubscribe = unsub
	g.mu.Unlock()

	g.coord.OnDispose(g.Stop)
	return g
}

// Stop unsubscribes and cancels any pending logout. Safe to call twice.
func (g *ConnectivityGuard) Stop() {
	g.mu.Lock()
	unsub := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	g.timer.Cancel()
}

// Handle applies one connectivity transition.
func (g *ConnectivityGuard) Handle(state netstatus.ConnectivityState) {
	switch state {
	case netstatus.Disconnected:
		g.setOffline(true)
	case netstatus.Connected:
		g.setOffline(false)
	}
}

func (g *ConnectivityGuard) setOffline(offline bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !offline {
		g.offline = false
		if g.timer.Cancel() {
			g.log.Info().Msg("GUARD_CANCELLED")
		}
		return
	}
	if g.offline {
		return
	}
	g.offline = true
	g.epoch = g.coord.Epoch()
	g.timer.Arm(g.grace, g.fire)
	g.log.Info().Dur("grace", g.grace).Msg("GUARD_ARMED")
}

func (g *ConnectivityGuard) fire() {
	g.mu.Lock()
	still, epoch := g.offline, g.epoch
	g.mu.Unlock()
	if !still {
		return
	}

	g.log.Info().Msg("GUARD_FIRED")
	g.coord.LogOut(context.Background(), LocalOnly(), WithReason("offline"), IfEpoch(epoch))
}
