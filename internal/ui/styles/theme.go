// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER / STATUS STYLES
	// ==========================================================================

	Header       lipgloss.Style
	HeaderTitle  lipgloss.Style
	StatusBar    lipgloss.Style
	StatusOK     lipgloss.Style
	StatusWarn   lipgloss.Style
	StatusError  lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	SenderMine   lipgloss.Style
	SenderTheirs lipgloss.Style
	Timestamp    lipgloss.Style
	MessageText  lipgloss.Style

	// ==========================================================================
	// INPUT / ERROR STYLES
	// ==========================================================================

	InputBox  lipgloss.Style
	ErrorLine lipgloss.Style
}

// NewTheme creates a theme for the detected terminal.
func NewTheme() *Theme {
	profile := termenv.ColorProfile()

	t := &Theme{
		IsDark:       lipgloss.HasDarkBackground(),
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextMuted).
		Padding(0, 1)
	t.StatusOK = lipgloss.NewStyle().Foreground(Emerald)
	t.StatusWarn = lipgloss.NewStyle().Foreground(Amber)
	t.StatusError = lipgloss.NewStyle().Foreground(Rose).Bold(true)

	t.SenderMine = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.SenderTheirs = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.MessageText = lipgloss.NewStyle().Foreground(Text)

	t.InputBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	t.ErrorLine = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	return t
}
