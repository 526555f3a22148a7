// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jeranaias/cashdesk/internal/session"
	"github.com/jeranaias/cashdesk/internal/ui/components"
)

// homeState is the home screen's state.
type homeState struct {
	user       string
	confirming bool
	loggingOut bool
}

// DisplayName title-cases name and truncates it to width display cells.
// width <= 0 means no limit.
func DisplayName(name string, width int) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	name = cases.Title(language.Und).String(name)
	if width > 0 && runewidth.StringWidth(name) > width {
		name = runewidth.Truncate(name, width, "…")
	}
	return name
}

func (m Model) updateHome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.home.loggingOut {
		return m, nil
	}

	if m.home.confirming {
		switch msg.String() {
		case "y", "Y", "enter":
			m.home.confirming = false
			m.home.loggingOut = true
			return m, m.logoutCmd()
		case "n", "N", "esc":
			m.home.confirming = false
		}
		return m, nil
	}

	switch msg.String() {
	case "l":
		m.home.confirming = true
	case "r":
		return m, m.refreshCmd()
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

// logoutCmd runs the user-initiated logout off the event loop; the
// coordinator navigates through the Bridge.
func (m Model) logoutCmd() tea.Cmd {
	lo := m.deps.Session
	return func() tea.Msg {
		if lo == nil {
			return logoutDoneMsg{outcome: session.Outcome{Result: session.NotReady}}
		}
		return logoutDoneMsg{outcome: lo.LogOut(context.Background(), session.WithReason("user"))}
	}
}

func (m Model) handleLogoutDone(msg logoutDoneMsg) (tea.Model, tea.Cmd) {
	m.home.loggingOut = false
	m.home.confirming = false

	out := msg.outcome
	m.log.Info().
		Str("attempt", out.AttemptID).
		Str("result", out.Result.String()).
		Dur("took", out.Duration).
		Msg("USER_LOGOUT_DONE")

	if out.Result == session.NotReady {
		m.toasts.Add(components.ToastKindError, session.FailedMessage)
	}
	return m, nil
}

func (m Model) viewHome() string {
	th := m.theme

	nameWidth := m.width - 20
	if nameWidth < 12 {
		nameWidth = 12
	}
	name := DisplayName(m.home.user, nameWidth)
	if name == "" {
		name = "cashier"
	}

	var b strings.Builder
	b.WriteString(th.Label.Render("Signed in as") + "\n")
	b.WriteString(th.HeaderTitle.Render(name))

	parts := []string{th.Panel.Render(b.String())}
	switch {
	case m.home.loggingOut:
		parts = append(parts, m.spinner.View()+" Logging out...")
	case m.home.confirming:
		parts = append(parts, th.Confirm.Render("Are you sure you want to logout? (y/n)"))
	default:
		parts = append(parts, th.Hint.Render("l logout  r refresh network  q quit"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
