// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package netstatus

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jeranaias/cashdesk/internal/logging"
)

// DefaultProbeInterval is the Probe polling period.
const DefaultProbeInterval = 10 * time.Second

// Probe polls a Checker and exposes an advisory "network available" flag.
// It starts out true so the UI does not flash offline before the first
// check. A failing check reads as false. Probe never logs anyone out.
type Probe struct {
	checker  Checker
	interval time.Duration
	limiter  *rate.Limiter
	log      zerolog.Logger

	mu        sync.RWMutex
	available bool
	listeners []func(bool)

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProbe creates a probe. interval <= 0 uses DefaultProbeInterval.
func NewProbe(checker Checker, interval time.Duration) *Probe {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &Probe{
		checker:   checker,
		interval:  interval,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
		log:       logging.Component("probe"),
		available: true,
	}
}

// Available returns the last observed availability.
func (p *Probe) Available() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.available
}

// OnChange registers fn to run whenever availability flips. fn runs on the
// probe goroutine and must not block.
func (p *Probe) OnChange(fn func(available bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Start runs an immediate check and then one every interval until Stop or
// ctx is done. Calling Start twice is a no-op.
func (p *Probe) Start(ctx context.Context) {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.check(ctx)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.check(ctx)
			}
		}
	}()
}

// Stop halts polling and waits for an in-progress check to finish.
func (p *Probe) Stop() {
	p.runMu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.runMu.Unlock()

	if cancel != nil {
		cancel()
		p.wg.Wait()
	}
}

// Refresh runs an on-demand check, at most once per second. When the
// limiter refuses, the cached value is returned.
func (p *Probe) Refresh(ctx context.Context) bool {
	if !p.limiter.Allow() {
		return p.Available()
	}
	return p.check(ctx)
}

func (p *Probe) check(ctx context.Context) bool {
	st, err := p.checker.Check(ctx)
	available := err == nil && !st.Offline()
	if err != nil && ctx.Err() == nil {
		p.log.Debug().Err(err).Msg("PROBE_CHECK_FAILED")
	}
	if ctx.Err() != nil {
		// Shutting down; the result is meaningless.
		return p.Available()
	}
	p.set(available)
	return available
}

func (p *Probe) set(available bool) {
	p.mu.Lock()
	if p.available == available {
		p.mu.Unlock()
		return
	}
	p.available = available
	fns := append([]func(bool){}, p.listeners...)
	p.mu.Unlock()

	p.log.Info().Bool("available", available).Msg("PROBE_CHANGED")
	for _, fn := range fns {
		fn(available)
	}
}
