// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteFile_CreatesParentsAndPerms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "config.toml")

	require.NoError(t, AtomicWriteFile(path, []byte("x = 1\n"), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestAtomicWriteFile_ReplacesAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state")

	require.NoError(t, AtomicWriteFile(path, []byte("old"), 0600))
	require.NoError(t, AtomicWriteFile(path, []byte("new"), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestHomeDir(t *testing.T) {
	t.Setenv("HOME", "/tmp/cashdesk-home")
	dir, err := HomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/cashdesk-home", ".cashdesk"), dir)
}
