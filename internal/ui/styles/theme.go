// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for every screen.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderUser  lipgloss.Style

	Panel      lipgloss.Style
	Label      lipgloss.Style
	InputFocus lipgloss.Style
	InputBlur  lipgloss.Style
	Button     lipgloss.Style
	ButtonOff  lipgloss.Style
	Hint       lipgloss.Style
	ErrorText  lipgloss.Style

	BadgeOnline  lipgloss.Style
	BadgeOffline lipgloss.Style

	Confirm lipgloss.Style
}

// NewTheme detects the terminal's color profile and background and builds
// the styles.
func NewTheme() *Theme {
	return newTheme(termenv.ColorProfile(), termenv.HasDarkBackground())
}

// NewPlainTheme returns a theme for terminals without color (and for tests).
func NewPlainTheme() *Theme {
	return newTheme(termenv.Ascii, true)
}

func newTheme(profile termenv.Profile, dark bool) *Theme {
	t := &Theme{IsDark: dark, ColorProfile: profile}

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Teal)
	t.HeaderUser = lipgloss.NewStyle().Foreground(TextPrimary)

	t.Panel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Teal).
		Padding(1, 3)
	t.Label = lipgloss.NewStyle().Foreground(TextSecondary)
	t.InputFocus = lipgloss.NewStyle().Foreground(Teal)
	t.InputBlur = lipgloss.NewStyle().Foreground(TextMuted)

	t.Button = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(Teal).
		Padding(0, 2)
	t.ButtonOff = lipgloss.NewStyle().
		Foreground(TextMuted).
		Background(Overlay).
		Padding(0, 2)

	t.Hint = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.ErrorText = lipgloss.NewStyle().Foreground(Rose).Bold(true)

	t.BadgeOnline = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.BadgeOffline = lipgloss.NewStyle().Foreground(Rose).Bold(true)

	t.Confirm = lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(Amber).
		Padding(0, 2)

	return t
}

// NetworkBadge renders the connectivity indicator.
func (t *Theme) NetworkBadge(online bool) string {
	if online {
		return t.BadgeOnline.Render(StatusIndicators.Online + " online")
	}
	return t.BadgeOffline.Render(StatusIndicators.Offline + " offline")
}

// RenderError renders an error line with its indicator.
func (t *Theme) RenderError(msg string) string {
	return t.ErrorText.Render(StatusIndicators.Error + " " + msg)
}
