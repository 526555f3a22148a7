// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog logger shared by every cashdesk
// component.
//
// The TUI owns the terminal, so logs go to a file (default
// ~/.cashdesk/cashdesk.log). Messages use UPPER_SNAKE event names
// (LOGOUT_START, GUARD_ARMED, ...) with key/value fields.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger construction.
type Options struct {
	// Level is a zerolog level name ("debug", "info", "warn", "error").
	Level string

	// Path is the log file. Empty means Writer is used.
	Path string

	// Writer is used when Path is empty. Nil means io.Discard.
	Writer io.Writer
}

var (
	rootMu sync.RWMutex
	root   = zerolog.Nop()
	closer io.Closer
)

// New builds a logger from opts. The returned closer releases the log file
// and is never nil.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), io.NopCloser(nil), err
	}

	var w io.Writer = io.Discard
	var c io.Closer = io.NopCloser(nil)
	switch {
	case opts.Path != "":
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0700); err != nil {
			return zerolog.Nop(), c, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return zerolog.Nop(), c, fmt.Errorf("failed to open log file: %w", err)
		}
		w, c = f, f
	case opts.Writer != nil:
		w = opts.Writer
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return logger, c, nil
}

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(name string) (zerolog.Level, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

// Init builds the process-wide logger. A previous log file is closed.
func Init(opts Options) error {
	logger, c, err := New(opts)
	if err != nil {
		return err
	}

	rootMu.Lock()
	old := closer
	root, closer = logger, c
	rootMu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// Close releases the process-wide log file.
func Close() error {
	rootMu.Lock()
	c := closer
	closer = nil
	root = zerolog.Nop()
	rootMu.Unlock()

	if c != nil {
		return c.Close()
	}
	return nil
}

// Root returns the process-wide logger. It discards output until Init.
func Root() zerolog.Logger {
	rootMu.RLock()
	defer rootMu.RUnlock()
	return root
}

// Component returns a child of the root logger tagged with name.
func Component(name string) zerolog.Logger {
	return Root().With().Str("component", name).Logger()
}
