// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cashdesk/internal/session"
	"github.com/jeranaias/cashdesk/internal/ui/components"
	"github.com/jeranaias/cashdesk/internal/ui/styles"
)

type loginField int

const (
	fieldUser loginField = iota
	fieldPass
)

// loginForm is the login screen's state.
type loginForm struct {
	user     textinput.Model
	pass     textinput.Model
	focus    loginField
	showPass bool
	busy     bool

	userErr string
	passErr string
	err     string
}

func newLoginForm(th *styles.Theme) loginForm {
	user := textinput.New()
	user.Placeholder = "Username"
	user.CharLimit = 64
	user.Width = 32
	user.Prompt = "> "
	user.PromptStyle = th.InputFocus

	pass := textinput.New()
	pass.Placeholder = "Password"
	pass.CharLimit = 128
	pass.Width = 32
	pass.Prompt = "> "
	pass.PromptStyle = th.InputBlur
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'

	return loginForm{user: user, pass: pass}
}

// reset clears everything but the username and focuses the first field.
func (f *loginForm) reset() tea.Cmd {
	f.pass.Reset()
	f.busy = false
	f.showPass = false
	f.pass.EchoMode = textinput.EchoPassword
	f.userErr, f.passErr, f.err = "", "", ""
	return f.setFocus(fieldUser)
}

func (f *loginForm) setFocus(field loginField) tea.Cmd {
	f.focus = field
	if field == fieldUser {
		f.pass.Blur()
		return f.user.Focus()
	}
	f.user.Blur()
	return f.pass.Focus()
}

func (f *loginForm) togglePassword() {
	f.showPass = !f.showPass
	if f.showPass {
		f.pass.EchoMode = textinput.EchoNormal
	} else {
		f.pass.EchoMode = textinput.EchoPassword
	}
}

// =============================================================================
// UPDATE
// =============================================================================

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.login.busy {
		return m, nil
	}

	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		next := fieldPass
		if m.login.focus == fieldPass {
			next = fieldUser
		}
		return m, m.login.setFocus(next)

	case "ctrl+r":
		m.login.togglePassword()
		return m, nil

	case "ctrl+n":
		return m, m.refreshCmd()

	case "enter":
		if m.login.focus == fieldUser {
			return m, m.login.setFocus(fieldPass)
		}
		return m.submitLogin()
	}

	return m.forwardToLogin(msg)
}

func (m Model) forwardToLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.login.user, cmd = m.login.user.Update(msg)
	cmds = append(cmds, cmd)
	m.login.pass, cmd = m.login.pass.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	m.login.err = ""
	if !m.online {
		m.login.err = session.NoNetworkMessage
		return m, nil
	}

	user, pass := m.login.user.Value(), m.login.pass.Value()
	v := session.ValidateCredentials(user, pass)
	m.login.userErr, m.login.passErr = v.Username, v.Password
	if !v.OK() || m.deps.Login == nil {
		return m, nil
	}

	m.login.busy = true
	runner := m.deps.Login
	return m, func() tea.Msg {
		out, err := runner.Run(context.Background(), user, pass)
		return loginResultMsg{outcome: out, err: err}
	}
}

func (m Model) handleLoginResult(msg loginResultMsg) (tea.Model, tea.Cmd) {
	m.login.busy = false

	if w := msg.outcome.VersionWarning; w != nil {
		m.toasts.Add(components.ToastKindWarning, "Version check failed: "+w.Error())
	}

	if msg.err != nil {
		var ce session.CredentialErrors
		if errors.As(msg.err, &ce) {
			m.login.userErr, m.login.passErr = ce.Username, ce.Password
			return m, nil
		}
		m.login.err = session.LoginErrorMessage(msg.err)
		m.toasts.Add(components.ToastKindError, "Login Failed: "+m.login.err)
		return m, nil
	}

	m.login.pass.Reset()
	m.login.userErr, m.login.passErr, m.login.err = "", "", ""
	m.home = homeState{user: msg.outcome.Record.UserName}
	m.stack = append(m.stack, ScreenHome)
	m.log.Info().Msg("NAV_PUSH_HOME")
	return m, nil
}

// =============================================================================
// VIEW
// =============================================================================

func (m Model) viewLogin() string {
	th := m.theme
	f := m.login

	f.user.PromptStyle, f.pass.PromptStyle = th.InputBlur, th.InputBlur
	if f.focus == fieldUser {
		f.user.PromptStyle = th.InputFocus
	} else {
		f.pass.PromptStyle = th.InputFocus
	}

	var b strings.Builder
	b.WriteString(th.Label.Render("Username") + "\n")
	b.WriteString(f.user.View() + "\n")
	if f.userErr != "" {
		b.WriteString(th.RenderError(f.userErr) + "\n")
	}
	b.WriteString("\n" + th.Label.Render("Password") + "\n")
	b.WriteString(f.pass.View() + "\n")
	if f.passErr != "" {
		b.WriteString(th.RenderError(f.passErr) + "\n")
	}
	b.WriteString("\n")

	switch {
	case f.busy:
		b.WriteString(m.spinner.View() + " Signing in...")
	case !m.online:
		b.WriteString(th.ButtonOff.Render("Login"))
	default:
		b.WriteString(th.Button.Render("Login"))
	}
	if f.err != "" {
		b.WriteString("\n\n" + th.RenderError(f.err))
	}

	hints := "tab switch field  enter submit  ctrl+r show password  ctrl+c quit"
	if !m.online {
		hints = "ctrl+n retry network  " + hints
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		th.Panel.Render(b.String()),
		th.Hint.Render(hints),
	)
}
