// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/cashdesk/internal/store"
)

// countingNav counts ReplaceToLogin calls.
type countingNav struct {
	n atomic.Int32
}

func (c *countingNav) ReplaceToLogin() { c.n.Add(1) }
func (c *countingNav) count() int      { return int(c.n.Load()) }

// recordingNotifier keeps every message.
type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingNotifier) Notify(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingNotifier) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.msgs...)
}

// fakeRemote is a RemoteLogout with programmable behaviour.
type fakeRemote struct {
	calls atomic.Int32
	err   error
	delay time.Duration
	// ignoreCtx makes the fake sleep the full delay regardless of ctx.
	ignoreCtx bool
	panicMsg  string
}

func (f *fakeRemote) Logout(ctx context.Context) error {
	f.calls.Add(1)
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.delay > 0 {
		if f.ignoreCtx {
			time.Sleep(f.delay)
		} else {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return f.err
}

func (f *fakeRemote) count() int { return int(f.calls.Load()) }

// flakyStore fails Delete for selected keys.
type flakyStore struct {
	*store.MemoryStore
	failDelete map[string]bool
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	if f.failDelete[key] {
		return errors.New("storage unavailable")
	}
	return f.MemoryStore.Delete(ctx, key)
}

// panicStore panics on Delete.
type panicStore struct {
	*store.MemoryStore
}

func (panicStore) Delete(context.Context, string) error {
	panic("corrupted storage handle")
}

// fakeSource is a subscribable event source for guard tests.
type fakeSource[T any] struct {
	mu   sync.Mutex
	subs map[int]func(T)
	next int
}

func newFakeSource[T any]() *fakeSource[T] {
	return &fakeSource[T]{subs: make(map[int]func(T))}
}

func (s *fakeSource[T]) Subscribe(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *fakeSource[T]) emit(v T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

func (s *fakeSource[T]) subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func seedSession(st store.Store) {
	ctx := context.Background()
	for _, k := range store.SessionKeys() {
		_ = st.Put(ctx, k, "v-"+k)
	}
}

func sessionKeysLeft(st store.Store) []string {
	ctx := context.Background()
	var left []string
	for _, k := range store.SessionKeys() {
		if _, err := st.Get(ctx, k); err == nil {
			left = append(left, k)
		}
	}
	return left
}
