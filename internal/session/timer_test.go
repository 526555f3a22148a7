// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardTimer_Fires(t *testing.T) {
	var g GuardTimer
	var fired atomic.Int32

	g.Arm(10*time.Millisecond, func() { fired.Add(1) })
	assert.True(t, g.Pending())

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 2*time.Millisecond)
	assert.False(t, g.Pending())
}

func TestGuardTimer_CancelIsIdempotent(t *testing.T) {
	var g GuardTimer
	var fired atomic.Int32

	assert.False(t, g.Cancel(), "cancel on idle timer")

	g.Arm(20*time.Millisecond, func() { fired.Add(1) })
	assert.True(t, g.Cancel())
	assert.False(t, g.Cancel())

	require.Never(t, func() bool { return fired.Load() > 0 }, 60*time.Millisecond, 5*time.Millisecond)
}

func TestGuardTimer_CancelAfterFire(t *testing.T) {
	var g GuardTimer
	var fired atomic.Int32

	g.Arm(time.Millisecond, func() { fired.Add(1) })
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)

	assert.False(t, g.Cancel())
	assert.False(t, g.Cancel())
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestGuardTimer_ArmReplacesPending(t *testing.T) {
	var g GuardTimer
	var first, second atomic.Int32

	g.Arm(15*time.Millisecond, func() { first.Add(1) })
	g.Arm(30*time.Millisecond, func() { second.Add(1) })

	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 2*time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
}

func TestGuardTimer_Deadline(t *testing.T) {
	var g GuardTimer
	_, ok := g.Deadline()
	assert.False(t, ok)

	before := time.Now()
	g.Arm(time.Hour, func() {})
	d, ok := g.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, before.Add(time.Hour), d, time.Second)
	g.Cancel()
}

func TestGuardTimer_ClosedNeverFires(t *testing.T) {
	var g GuardTimer
	var fired atomic.Int32

	g.Arm(10*time.Millisecond, func() { fired.Add(1) })
	g.Close()
	g.Arm(time.Millisecond, func() { fired.Add(1) })

	assert.False(t, g.Pending())
	require.Never(t, func() bool { return fired.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}
