// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/protalk-tui/internal/model"
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return m.spinner.View() + " connecting..."
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	switch {
	case m.errLine != "":
		b.WriteString(m.theme.ErrorLine.Render(m.errLine))
	case m.notice != "":
		b.WriteString(m.theme.StatusOK.Render(m.notice))
	}
	b.WriteString("\n")

	b.WriteString(m.theme.InputBox.Width(m.width - 2).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())

	return b.String()
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("protalk")
	channel := m.theme.Timestamp.Render("#" + m.channel)
	return m.theme.Header.Width(m.width).Render(title + "  " + channel)
}

func (m Model) renderStatusBar() string {
	var status string
	switch m.state {
	case StateConnected:
		status = m.theme.StatusOK.Render("● connected")
	case StateDropped:
		status = m.theme.StatusError.Render("● disconnected")
	}

	user := m.sess.Name
	if user == "" {
		user = m.sess.UserID
	}
	return m.theme.StatusBar.Width(m.width).Render(status + "  " + user)
}

// renderMessages renders the full log. Messages stay in arrival order; the
// store already enforced ordering and deduplication.
func (m Model) renderMessages() string {
	if len(m.messages) == 0 {
		return m.theme.Timestamp.Render("No messages yet.")
	}

	lines := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		lines = append(lines, m.renderMessage(msg))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderMessage(msg model.ChatMessage) string {
	var parts []string

	if m.showTimestamps {
		parts = append(parts, m.theme.Timestamp.Render(msg.DisplayTime))
	}

	sender := m.theme.SenderTheirs.Render(msg.Sender)
	if msg.IsMine {
		sender = m.theme.SenderMine.Render(msg.Sender)
	}
	parts = append(parts, sender+":")
	parts = append(parts, m.theme.MessageText.Render(msg.Text))

	line := strings.Join(parts, " ")
	if msg.IsMine && m.width > 0 {
		// Own messages sit flush right, mirroring the classic chat layout.
		return lipgloss.NewStyle().Width(m.viewport.Width).Align(lipgloss.Right).Render(line)
	}
	return line
}
