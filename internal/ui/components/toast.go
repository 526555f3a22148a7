// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable pieces of the cashdesk TUI.
//
// Toasts are non-blocking notifications: they stack in a corner and
// auto-dismiss, so the user can keep working while one is shown.
package components

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/cashdesk/internal/ui/styles"
)

// =============================================================================
// TOAST TYPES
// =============================================================================

// ToastKind selects a toast's color and indicator.
type ToastKind int

const (
	ToastKindStatus ToastKind = iota
	ToastKindError
	ToastKindWarning
	ToastKindSuccess
)

// DefaultToastDuration is the auto-dismiss duration for status toasts.
const DefaultToastDuration = 4 * time.Second

// ErrorToastDuration is longer so errors can be read.
const ErrorToastDuration = 8 * time.Second

// Toast is one notification.
type Toast struct {
	ID        int
	Message   string
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired reports whether the toast should be dismissed at now.
func (t Toast) IsExpired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// ToastManager holds the visible toasts, newest first. It is safe for
// concurrent use.
type ToastManager struct {
	mu        sync.Mutex
	toasts    []Toast
	nextID    int
	maxToasts int
	now       func() time.Time
}

// NewToastManager creates a manager that keeps at most 5 toasts.
func NewToastManager() *ToastManager {
	return &ToastManager{nextID: 1, maxToasts: 5, now: time.Now}
}

// Add shows msg and returns the toast ID.
func (m *ToastManager) Add(kind ToastKind, msg string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := DefaultToastDuration
	if kind == ToastKindError {
		d = ErrorToastDuration
	}
	t := Toast{ID: m.nextID, Message: msg, Kind: kind, CreatedAt: m.now(), Duration: d}
	m.nextID++

	m.toasts = append([]Toast{t}, m.toasts...)
	if len(m.toasts) > m.maxToasts {
		m.toasts = m.toasts[:m.maxToasts]
	}
	return t.ID
}

// Dismiss removes a toast by ID.
func (m *ToastManager) Dismiss(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.toasts {
		if t.ID == id {
			m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
			return
		}
	}
}

// Tick drops expired toasts and returns the rest.
func (m *ToastManager) Tick() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	active := m.toasts[:0]
	for _, t := range m.toasts {
		if !t.IsExpired(now) {
			active = append(active, t)
		}
	}
	m.toasts = active
	return append([]Toast(nil), m.toasts...)
}

// Toasts returns a copy of the visible toasts.
func (m *ToastManager) Toasts() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Toast(nil), m.toasts...)
}

// =============================================================================
// MESSAGES
// =============================================================================

// ToastTickMsg drives expiry.
type ToastTickMsg struct {
	Time time.Time
}

// ToastTickCmd ticks toasts every 250ms.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return ToastTickMsg{Time: t}
	})
}

// =============================================================================
// RENDERING
// =============================================================================

// RenderToast renders one toast no wider than width.
func RenderToast(t Toast, width int) string {
	maxWidth := 50
	if width > 0 && width-4 < maxWidth {
		maxWidth = width - 4
	}
	if maxWidth < 20 {
		maxWidth = 20
	}

	var color lipgloss.AdaptiveColor
	var icon string
	switch t.Kind {
	case ToastKindError:
		color, icon = styles.Rose, styles.StatusIndicators.Error
	case ToastKindWarning:
		color, icon = styles.Amber, styles.StatusIndicators.Warning
	case ToastKindSuccess:
		color, icon = styles.Emerald, styles.StatusIndicators.Success
	default:
		color, icon = styles.Teal, styles.StatusIndicators.Info
	}

	// border (2) + padding (2) + icon and space
	textWidth := maxWidth - 4 - runewidth.StringWidth(icon) - 1
	msg := wrap(t.Message, textWidth)

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Render(lipgloss.NewStyle().Foreground(color).Bold(true).Render(icon) + " " + msg)
}

// RenderToastStack renders toasts right-aligned, newest at the bottom.
func RenderToastStack(toasts []Toast, width int) string {
	if len(toasts) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(toasts))
	for i := len(toasts) - 1; i >= 0; i-- {
		rendered = append(rendered, RenderToast(toasts[i], width))
	}
	stack := lipgloss.JoinVertical(lipgloss.Right, rendered...)
	if width <= 0 {
		return stack
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, stack)
}

// wrap breaks s into lines of at most width display cells on word
// boundaries. Words longer than width are truncated.
func wrap(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	var lines []string
	var line strings.Builder
	lineWidth := 0
	for _, word := range strings.Fields(s) {
		w := runewidth.StringWidth(word)
		if w > width {
			word = runewidth.Truncate(word, width, "…")
			w = runewidth.StringWidth(word)
		}
		if lineWidth > 0 && lineWidth+1+w > width {
			lines = append(lines, line.String())
			line.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			line.WriteByte(' ')
			lineWidth++
		}
		line.WriteString(word)
		lineWidth += w
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
