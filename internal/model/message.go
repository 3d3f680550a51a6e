// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/morganforge/protalk-tui/internal/util"
)

// =============================================================================
// CHAT MESSAGE
// =============================================================================

// SelfLabel is the sender label shown for the current user's own messages.
const SelfLabel = "You"

// senderLabelRunes is how many characters of a foreign sender ID are shown.
const senderLabelRunes = 8

// ChatMessage is the application-level view of a message event, immutable
// once created.
//
// DedupKey is derived from the event timestamp alone. That matches the
// upstream event contract, which carries no message ID — and it means two
// distinct messages sent within the same integer second collide and the
// second is dropped. Known limitation; a stronger key needs the server to
// provide a real message identifier first.
type ChatMessage struct {
	DedupKey    int64  `json:"dedup_key"`
	Sender      string `json:"sender"`
	Text        string `json:"text"`
	DisplayTime string `json:"display_time"`
	IsMine      bool   `json:"is_mine"`
}

// NewChatMessage derives a ChatMessage from a decoded message event.
// Authorship is classified against currentUserID: own messages are labeled
// SelfLabel, foreign senders are shown as a shortened sender ID.
func NewChatMessage(evt *MessageEvent, currentUserID string) ChatMessage {
	isMine := evt.Payload.SenderID == currentUserID

	sender := SelfLabel
	if !isMine {
		sender = util.TruncateRunesNoEllipsis(evt.Payload.SenderID, senderLabelRunes)
	}

	return ChatMessage{
		DedupKey:    evt.Timestamp,
		Sender:      sender,
		Text:        evt.Payload.EncryptedBlob,
		DisplayTime: formatClock(evt.Timestamp),
		IsMine:      isMine,
	}
}

// formatClock renders a unix timestamp (seconds) as a local hour:minute
// string, matching the original client's hh:mm display.
func formatClock(unixSecs int64) string {
	return time.Unix(unixSecs, 0).Local().Format("15:04")
}
