// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/protalk-tui/internal/api"
	"github.com/morganforge/protalk-tui/internal/config"
	"github.com/morganforge/protalk-tui/internal/model"
	"github.com/morganforge/protalk-tui/internal/session"
	"github.com/morganforge/protalk-tui/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateConnected State = iota // Stream open, ready for input
	StateDropped                // Stream failed, input disabled
)

// maxInputRunes caps one outbound message.
const maxInputRunes = 2000

// SendFunc posts one outbound message. Production wires this to
// api.Client.SendGroupMessage; tests substitute a fake.
type SendFunc func(ctx context.Context, channelID, text, senderID string) error

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// State
	state State

	// Styling
	theme *styles.Theme

	// Dimensions
	width  int
	height int

	// Collaborators
	send    SendFunc
	sess    session.Session
	channel string

	// Rendered log, in store arrival order
	messages       []model.ChatMessage
	showTimestamps bool

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Transient status
	errLine string
	notice  string

	ready bool
}

// New creates the chat model for one authenticated session.
func New(client *api.Client, sess session.Session, cfg *config.Config, theme *styles.Theme) Model {
	m := newModel(sess, cfg, theme)
	m.send = client.SendGroupMessage
	return m
}

func newModel(sess session.Session, cfg *config.Config, theme *styles.Theme) Model {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = maxInputRunes
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		state:          StateConnected,
		theme:          theme,
		sess:           sess,
		channel:        cfg.Chat.DefaultChannel,
		showTimestamps: cfg.UI.ShowTimestamps,
		input:          input,
		spinner:        sp,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Messages returns the rendered message log, for tests and export.
func (m Model) Messages() []model.ChatMessage {
	return m.messages
}
