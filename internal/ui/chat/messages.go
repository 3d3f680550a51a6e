// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines the Bubble Tea message types used by the chat interface.
// Inbound messages originate from the reconciliation engine (delivered via
// Program.Send from the store observer); send results and errors come back
// from commands.
package chat

import (
	"github.com/morganforge/protalk-tui/internal/model"
)

// =============================================================================
// STREAM MESSAGES
// =============================================================================

// ChatMessageMsg delivers one newly accepted message from the store.
// Duplicates never reach the UI; the store absorbs them before notifying.
type ChatMessageMsg struct {
	Message model.ChatMessage
}

// StreamErrorMsg signals a failure on the event stream. The stream does not
// reconnect; the user restarts the client to resubscribe.
type StreamErrorMsg struct {
	Err error
}

// =============================================================================
// SEND MESSAGES
// =============================================================================

// SendResultMsg reports the outcome of one send attempt. On success the
// message itself arrives later through the stream; there is nothing to
// render here.
type SendResultMsg struct {
	Err error
}

// ExportResultMsg reports the outcome of a transcript export.
type ExportResultMsg struct {
	Path string
	Err  error
}

// =============================================================================
// UI STATE MESSAGES
// =============================================================================

// clearErrorMsg dismisses the transient error line.
type clearErrorMsg struct{}
