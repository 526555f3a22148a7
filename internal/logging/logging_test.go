// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{" WARN ", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"loud", zerolog.InfoLevel, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseLevel(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNew_WriterReceivesStructuredEvents(t *testing.T) {
	var buf bytes.Buffer
	logger, c, err := New(Options{Level: "debug", Writer: &buf})
	require.NoError(t, err)
	defer c.Close()

	logger.Info().Str("reason", "inactivity").Msg("LOGOUT_START")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "LOGOUT_START", entry["message"])
	assert.Equal(t, "inactivity", entry["reason"])
	assert.Equal(t, "info", entry["level"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Level: "warn", Writer: &buf})
	require.NoError(t, err)

	logger.Info().Msg("GUARD_ARMED")
	assert.Zero(t, buf.Len())
}

func TestInit_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "cashdesk.log")
	require.NoError(t, Init(Options{Path: path}))
	t.Cleanup(func() { Close() })

	l := Component("session")
	l.Info().Msg("GUARD_ARMED")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"session"`)
	assert.Contains(t, string(data), "GUARD_ARMED")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestRoot_DiscardsBeforeInit(t *testing.T) {
	require.NoError(t, Close())
	l := Root()
	assert.Equal(t, zerolog.Disabled, l.GetLevel())
}
