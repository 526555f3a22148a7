// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lifecycle

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "active", Active.String())
	assert.Equal(t, "background", Background.String())
	assert.Equal(t, "inactive", Inactive.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestBroker_PublishesTransitionsOnly(t *testing.T) {
	b := NewBroker()
	var got []State
	b.Subscribe(func(s State) { got = append(got, s) })

	assert.False(t, b.Publish(Active))
	assert.True(t, b.Publish(Inactive))
	assert.True(t, b.Publish(Background))
	assert.False(t, b.Publish(Background))
	assert.True(t, b.Publish(Active))

	assert.Equal(t, []State{Inactive, Background, Active}, got)
	assert.Equal(t, Active, b.Current())
}

func TestBroker_Unsubscribe(t *testing.T) {
	b := NewBroker()
	calls := 0
	unsub := b.Subscribe(func(State) { calls++ })

	b.Publish(Background)
	unsub()
	unsub()
	b.Publish(Active)

	assert.Equal(t, 1, calls)
}

func TestBroker_SubscriberMayUnsubscribeDuringPublish(t *testing.T) {
	b := NewBroker()
	var unsub func()
	calls := 0
	unsub = b.Subscribe(func(State) {
		calls++
		unsub()
	})

	b.Publish(Background)
	b.Publish(Active)
	require.Equal(t, 1, calls)
}

func TestBroker_ConcurrentPublish(t *testing.T) {
	b := NewBroker()
	var mu sync.Mutex
	n := 0
	b.Subscribe(func(State) {
		mu.Lock()
		n++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				b.Publish(Background)
			} else {
				b.Publish(Active)
			}
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, n, 100)
}
