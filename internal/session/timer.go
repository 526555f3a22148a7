// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"
)

// GuardTimer holds at most one pending deadline.
//
// Every Arm and Cancel bumps a generation counter, and a firing callback
// checks its generation before running. time.Timer.Stop cannot recall a
// callback whose goroutine has already started; the counter can.
type GuardTimer struct {
	mu       sync.Mutex
	timer    *time.Timer
	gen      uint64
	deadline time.Time
	closed   bool
}

// Arm schedules fn after d, cancelling any pending deadline first. It is a
// no-op on a closed timer.
func (g *GuardTimer) Arm(d time.Duration, fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	g.stopLocked()

	g.gen++
	gen := g.gen
	g.deadline = time.Now().Add(d)
	g.timer = time.AfterFunc(d, func() {
		g.mu.Lock()
		if g.gen != gen || g.closed {
			g.mu.Unlock()
			return
		}
		g.timer = nil
		g.deadline = time.Time{}
		g.mu.Unlock()

		fn()
	})
}

// Cancel drops the pending deadline. It reports whether one was pending;
// cancelling an idle, fired or closed timer returns false.
func (g *GuardTimer) Cancel() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	pending := g.timer != nil
	g.stopLocked()
	g.gen++
	return pending
}

// Pending reports whether a deadline is armed.
func (g *GuardTimer) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.timer != nil
}

// Deadline returns when the pending callback is due.
func (g *GuardTimer) Deadline() (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.deadline, g.timer != nil
}

// Close cancels and permanently disables the timer.
func (g *GuardTimer) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopLocked()
	g.gen++
	g.closed = true
}

func (g *GuardTimer) stopLocked() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.deadline = time.Time{}
}
