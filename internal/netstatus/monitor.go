// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package netstatus

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/cashdesk/internal/logging"
)

// DefaultMonitorInterval is the Monitor check period.
const DefaultMonitorInterval = 2 * time.Second

// ConnectivityState is the Monitor's view of the network.
type ConnectivityState int

const (
	Unknown ConnectivityState = iota
	Connected
	Disconnected
)

func (s ConnectivityState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Monitor turns periodic checks into a stream of connectivity transitions.
// Subscribers see a state only when it differs from the previous one.
// A check that returns an error is not an observation and leaves the state
// unchanged.
type Monitor struct {
	checker  Checker
	interval time.Duration
	log      zerolog.Logger
	nudge    chan struct{}

	pubMu  sync.Mutex // serializes Observe so subscribers see transitions in order
	mu     sync.Mutex
	state  ConnectivityState
	nextID int
	subs   map[int]func(ConnectivityState)

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor creates a monitor. interval <= 0 uses DefaultMonitorInterval.
func NewMonitor(checker Checker, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	return &Monitor{
		checker:  checker,
		interval: interval,
		log:      logging.Component("monitor"),
		nudge:    make(chan struct{}, 1),
		subs:     make(map[int]func(ConnectivityState)),
	}
}

// State returns the last published state.
func (m *Monitor) State() ConnectivityState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn for future transitions. fn runs on the monitor
// goroutine and must not block.
func (m *Monitor) Subscribe(fn func(ConnectivityState)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Nudge requests an immediate re-check. It never blocks; nudges that arrive
// while one is queued are merged.
func (m *Monitor) Nudge() {
	select {
	case m.nudge <- struct{}{}:
	default:
	}
}

// Start runs an immediate check and then one every interval (or on Nudge)
// until Stop or ctx is done. Calling Start twice is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.check(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-m.nudge:
			}
			m.check(ctx)
		}
	}()
}

// Stop halts checking and waits for the goroutine to exit.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.runMu.Unlock()

	if cancel != nil {
		cancel()
		m.wg.Wait()
	}
}

func (m *Monitor) check(ctx context.Context) {
	st, err := m.checker.Check(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		m.log.Warn().Err(err).Msg("MONITOR_CHECK_FAILED")
		return
	}
	m.Observe(st)
}

// Observe feeds one status into the monitor as if a check had returned it.
// It reports whether a transition was published.
func (m *Monitor) Observe(st Status) bool {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	next := Connected
	if st.Offline() {
		next = Disconnected
	}

	m.mu.Lock()
	if next == m.state {
		m.mu.Unlock()
		return false
	}
	prev := m.state
	m.state = next
	fns := make([]func(ConnectivityState), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	m.log.Info().
		Stringer("from", prev).
		Stringer("to", next).
		Bool("connected", st.Connected).
		Bool("reachable", st.InternetReachable).
		Msg("CONNECTIVITY_CHANGED")
	for _, fn := range fns {
		fn(next)
	}
	return true
}
