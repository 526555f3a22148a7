// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lifecycle tracks whether the application is in front of the user.
//
// The terminal UI publishes Active when it gains focus and Background when it
// loses it. Inactive is a transitional state (suspend, app switcher) that
// subscribers must not treat as either.
package lifecycle

import (
	"sync"
)

// State is the application's lifecycle state.
type State int

const (
	// Active means the app is in front and receiving input.
	Active State = iota
	// Background means the app is not visible to the user.
	Background
	// Inactive is a transitional state between Active and Background.
	Inactive
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Background:
		return "background"
	case Inactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Broker fans lifecycle transitions out to subscribers. Publishing the state
// the broker already holds is dropped. The zero value is not usable; use
// NewBroker.
type Broker struct {
	mu      sync.Mutex
	current State
	nextID  int
	subs    map[int]func(State)
}

// NewBroker returns a broker whose current state is Active.
func NewBroker() *Broker {
	return &Broker{
		current: Active,
		subs:    make(map[int]func(State)),
	}
}

// Current returns the last published state.
func (b *Broker) Current() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Subscribe registers fn for future transitions and returns a function that
// removes it. Subscribers run synchronously on the publisher's goroutine and
// must not block.
func (b *Broker) Subscribe(fn func(State)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish records s and notifies subscribers if it differs from the current
// state. It reports whether a transition happened.
func (b *Broker) Publish(s State) bool {
	b.mu.Lock()
	if s == b.current {
		b.mu.Unlock()
		return false
	}
	b.current = s
	fns := make([]func(State), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
	return true
}
