// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/protalk-tui/internal/config"
	"github.com/morganforge/protalk-tui/internal/export"
)

// sendTimeout bounds one send attempt. One attempt only; a timeout is a
// failure like any other.
const sendTimeout = 10 * time.Second

// errDisplayDuration is how long a transient error stays on screen.
const errDisplayDuration = 5 * time.Second

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m.submitInput()
		case "ctrl+e":
			return m.exportTranscript()
		}

	case ChatMessageMsg:
		m.messages = append(m.messages, msg.Message)
		m.refreshViewport()
		m.viewport.GotoBottom()

	case StreamErrorMsg:
		// The stream is gone and stays gone. Disable input rather than
		// pretend messages would still go somewhere visible.
		m.state = StateDropped
		m.errLine = "stream dropped: " + msg.Err.Error()
		m.input.Blur()

	case SendResultMsg:
		if msg.Err != nil {
			m.errLine = "send failed: " + msg.Err.Error()
			cmds = append(cmds, clearErrorAfter(errDisplayDuration))
		}

	case ExportResultMsg:
		if msg.Err != nil {
			m.errLine = "export failed: " + msg.Err.Error()
		} else {
			m.notice = "exported to " + msg.Path
		}
		cmds = append(cmds, clearErrorAfter(errDisplayDuration))

	case clearErrorMsg:
		if m.state != StateDropped {
			m.errLine = ""
		}
		m.notice = ""
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submitInput fires one send for the current input line. The input box is
// cleared immediately; the message itself only appears when the server
// echoes it back through the stream.
func (m Model) submitInput() (tea.Model, tea.Cmd) {
	if m.state == StateDropped {
		return m, nil
	}

	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()

	send := m.send
	channel := m.channel
	senderID := m.sess.UserID
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		return SendResultMsg{Err: send(ctx, channel, text, senderID)}
	}
}

// exportTranscript writes the current log to the config directory.
func (m Model) exportTranscript() (tea.Model, tea.Cmd) {
	if len(m.messages) == 0 {
		return m, nil
	}

	messages := m.messages
	channel := m.channel
	return m, func() tea.Msg {
		dir, err := config.ConfigDir()
		if err != nil {
			return ExportResultMsg{Err: err}
		}
		path := filepath.Join(dir, export.Filename(channel, export.FormatText, time.Now()))
		if err := export.WriteTranscript(path, messages, channel, export.FormatText); err != nil {
			return ExportResultMsg{Err: err}
		}
		return ExportResultMsg{Path: path}
	}
}

// layout recomputes component dimensions after a resize.
func (m *Model) layout() {
	// Header, status bar, error line, input box with border.
	contentHeight := m.height - 6
	if contentHeight < 1 {
		contentHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(m.width, contentHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = contentHeight
	}
	m.input.Width = m.width - 6
}

// refreshViewport re-renders the message log into the viewport.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
}

func clearErrorAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearErrorMsg{}
	})
}
