// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "[session]\noffline_grace = \"3s\"\n")

	var grace atomic.Int64
	w, err := NewWatcher(path, 20*time.Millisecond, func(cfg *Config) {
		grace.Store(int64(cfg.Session.OfflineGrace.Duration))
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { w.Close() })

	require.NoError(t, os.WriteFile(path, []byte("[session]\noffline_grace = \"9s\"\n"), 0600))

	require.Eventually(t, func() bool {
		return time.Duration(grace.Load()) == 9*time.Second
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_InvalidFileKeepsPrevious(t *testing.T) {
	path := writeConfig(t, "[session]\noffline_grace = \"3s\"\n")

	var calls atomic.Int32
	w, err := NewWatcher(path, 20*time.Millisecond, func(*Config) { calls.Add(1) })
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { w.Close() })

	require.NoError(t, os.WriteFile(path, []byte("[session\n"), 0600))

	require.Never(t, func() bool { return calls.Load() > 0 }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestWatcher_CloseWithoutStart(t *testing.T) {
	w, err := NewWatcher(writeConfig(t, ""), 0, nil)
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}
