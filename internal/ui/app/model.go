// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/jeranaias/cashdesk/internal/lifecycle"
	"github.com/jeranaias/cashdesk/internal/logging"
	"github.com/jeranaias/cashdesk/internal/session"
	"github.com/jeranaias/cashdesk/internal/store"
	"github.com/jeranaias/cashdesk/internal/ui/components"
	"github.com/jeranaias/cashdesk/internal/ui/styles"
)

// refreshTimeout bounds a manual network re-check.
const refreshTimeout = 5 * time.Second

// =============================================================================
// DEPENDENCIES
// =============================================================================

// LoginRunner performs a login attempt.
type LoginRunner interface {
	Run(ctx context.Context, username, password string) (session.LoginOutcome, error)
}

// Logouter is the logout entry point.
type Logouter interface {
	LogOut(ctx context.Context, opts ...session.LogoutOption) session.Outcome
}

// NetworkProbe is the advisory reachability reading.
type NetworkProbe interface {
	Available() bool
	Refresh(ctx context.Context) bool
}

// LifecyclePublisher receives foreground/background transitions.
type LifecyclePublisher interface {
	Publish(s lifecycle.State) bool
}

// Deps are the model's collaborators. Probe and Lifecycle may be nil.
type Deps struct {
	Store     store.Store
	Login     LoginRunner
	Session   Logouter
	Probe     NetworkProbe
	Lifecycle LifecyclePublisher
	Theme     *styles.Theme
	Version   string
}

// =============================================================================
// SCREENS
// =============================================================================

// Screen identifies a screen in the navigation stack.
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenHome
)

func (s Screen) String() string {
	switch s {
	case ScreenLogin:
		return "login"
	case ScreenHome:
		return "home"
	default:
		return "unknown"
	}
}

// =============================================================================
// INTERNAL MESSAGES
// =============================================================================

type authCheckedMsg struct {
	record store.SessionRecord
	err    error
}

type loginResultMsg struct {
	outcome session.LoginOutcome
	err     error
}

type logoutDoneMsg struct {
	outcome session.Outcome
}

type networkRefreshedMsg struct {
	available bool
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the root bubbletea model.
type Model struct {
	deps  Deps
	theme *styles.Theme
	log   zerolog.Logger

	stack   []Screen
	login   loginForm
	home    homeState
	online  bool
	spinner spinner.Model
	toasts  *components.ToastManager

	width  int
	height int
}

// New creates the root model. The screen stack stays empty until the
// startup auth check completes.
func New(deps Deps) Model {
	th := deps.Theme
	if th == nil {
		th = styles.NewTheme()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Teal)

	online := true
	if deps.Probe != nil {
		online = deps.Probe.Available()
	}

	return Model{
		deps:    deps,
		theme:   th,
		log:     logging.Component("ui"),
		login:   newLoginForm(th),
		online:  online,
		spinner: sp,
		toasts:  components.NewToastManager(),
	}
}

// Init starts the auth check and the tickers.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.checkAuthCmd(),
		m.spinner.Tick,
		components.ToastTickCmd(),
		textinput.Blink,
	)
}

// Current returns the top of the screen stack, or false before the auth
// check finished.
func (m Model) Current() (Screen, bool) {
	if len(m.stack) == 0 {
		return 0, false
	}
	return m.stack[len(m.stack)-1], true
}

// Stack returns a copy of the navigation stack.
func (m Model) Stack() []Screen {
	return append([]Screen(nil), m.stack...)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.FocusMsg:
		m.publish(lifecycle.Active)
		return m, nil

	case tea.BlurMsg:
		m.publish(lifecycle.Background)
		return m, nil

	case authCheckedMsg:
		return m.handleAuthChecked(msg)

	case ReplaceToLoginMsg:
		m.log.Info().Int("depth", len(m.stack)).Msg("NAV_REPLACE_TO_LOGIN")
		m.stack = []Screen{ScreenLogin}
		m.home = homeState{}
		return m, m.login.reset()

	case NotifyMsg:
		m.toasts.Add(msg.Kind, msg.Text)
		return m, nil

	case NetworkMsg:
		m.setOnline(msg.Available)
		return m, nil

	case networkRefreshedMsg:
		m.setOnline(msg.available)
		if !msg.available {
			if top, ok := m.Current(); ok && top == ScreenLogin {
				m.login.err = "Still no internet connection."
			}
		}
		return m, nil

	case loginResultMsg:
		return m.handleLoginResult(msg)

	case logoutDoneMsg:
		return m.handleLogoutDone(msg)

	case components.ToastTickMsg:
		m.toasts.Tick()
		return m, components.ToastTickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		top, ok := m.Current()
		if !ok {
			return m, nil
		}
		switch top {
		case ScreenLogin:
			return m.updateLogin(msg)
		case ScreenHome:
			return m.updateHome(msg)
		}
	}

	if top, ok := m.Current(); ok && top == ScreenLogin {
		return m.forwardToLogin(msg)
	}
	return m, nil
}

func (m *Model) publish(s lifecycle.State) {
	if m.deps.Lifecycle == nil {
		return
	}
	if m.deps.Lifecycle.Publish(s) {
		m.log.Debug().Str("state", s.String()).Msg("APP_STATE_CHANGED")
	}
}

func (m *Model) setOnline(available bool) {
	m.online = available
	if available && m.login.err == session.NoNetworkMessage {
		m.login.err = ""
	}
}

func (m Model) handleAuthChecked(msg authCheckedMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err == nil:
		m.log.Info().Msg("STARTUP_SESSION_FOUND")
		m.home = homeState{user: msg.record.UserName}
		m.stack = []Screen{ScreenHome}
		return m, nil
	case errors.Is(msg.err, store.ErrNoSession):
		m.log.Info().Msg("STARTUP_NO_SESSION")
	default:
		m.log.Error().Err(msg.err).Msg("STARTUP_SESSION_CHECK_FAILED")
	}
	m.stack = []Screen{ScreenLogin}
	return m, m.login.setFocus(fieldUser)
}

// =============================================================================
// COMMANDS
// =============================================================================

// checkAuthCmd keys on userData rather than userToken: login always writes
// userData, while the API only sometimes returns a token.
func (m Model) checkAuthCmd() tea.Cmd {
	st := m.deps.Store
	return func() tea.Msg {
		if st == nil {
			return authCheckedMsg{err: store.ErrNoSession}
		}
		rec, err := store.LoadRecord(context.Background(), st)
		return authCheckedMsg{record: rec, err: err}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	probe := m.deps.Probe
	if probe == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		return networkRefreshedMsg{available: probe.Refresh(ctx)}
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the current screen with the toast stack.
func (m Model) View() string {
	var body string
	top, ok := m.Current()
	switch {
	case !ok:
		body = m.theme.Hint.Render(m.spinner.View() + " Checking session...")
	case top == ScreenLogin:
		body = m.viewLogin()
	case top == ScreenHome:
		body = m.viewHome()
	}

	parts := []string{m.viewHeader(), "", body}
	if stack := components.RenderToastStack(m.toasts.Toasts(), m.width); stack != "" {
		parts = append(parts, "", stack)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewHeader() string {
	title := m.theme.HeaderTitle.Render("cashdesk")
	if m.deps.Version != "" {
		title += m.theme.Hint.Render(" v" + m.deps.Version)
	}
	badge := m.theme.NetworkBadge(m.online)

	left := title
	if top, ok := m.Current(); ok && top == ScreenHome && m.home.user != "" {
		nameWidth := m.width - lipgloss.Width(title) - lipgloss.Width(badge) - 8
		left += "  " + m.theme.HeaderUser.Render(DisplayName(m.home.user, nameWidth))
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(badge) - 2
	if gap < 2 {
		gap = 2
	}
	return m.theme.Header.Render(left + strings.Repeat(" ", gap) + badge)
}
