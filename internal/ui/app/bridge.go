// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/cashdesk/internal/logging"
	"github.com/jeranaias/cashdesk/internal/ui/components"
)

// =============================================================================
// MESSAGES
// =============================================================================

// ReplaceToLoginMsg resets the screen stack to [Login].
type ReplaceToLoginMsg struct{}

// NotifyMsg shows a toast.
type NotifyMsg struct {
	Kind components.ToastKind
	Text string
}

// NetworkMsg carries a Network Probe reading.
type NetworkMsg struct {
	Available bool
}

// =============================================================================
// BRIDGE
// =============================================================================

// Bridge forwards session and network events into the running program.
type Bridge struct {
	mu   sync.Mutex
	send func(tea.Msg)
	log  zerolog.Logger
}

// NewBridge creates an unattached bridge. Messages sent before Attach are
// dropped.
func NewBridge() *Bridge {
	return &Bridge{log: logging.Component("ui")}
}

// Attach routes messages to p.
func (b *Bridge) Attach(p *tea.Program) {
	b.attach(p.Send)
}

func (b *Bridge) attach(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	b.mu.Unlock()
}

// Send delivers msg to the program.
func (b *Bridge) Send(msg tea.Msg) {
	b.mu.Lock()
	send := b.send
	b.mu.Unlock()

	if send == nil {
		b.log.Debug().Type("msg", msg).Msg("UI_MSG_DROPPED")
		return
	}
	send(msg)
}

// ReplaceToLogin implements session.Navigator.
func (b *Bridge) ReplaceToLogin() {
	b.Send(ReplaceToLoginMsg{})
}

// Notify implements session.Notifier. Session notifications are failures.
func (b *Bridge) Notify(msg string) {
	b.Send(NotifyMsg{Kind: components.ToastKindError, Text: msg})
}

// NetworkChanged is the Network Probe change callback.
func (b *Bridge) NetworkChanged(available bool) {
	b.Send(NetworkMsg{Available: available})
}
