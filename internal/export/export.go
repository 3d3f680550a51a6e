// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts to disk in text or JSON format.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/morganforge/protalk-tui/internal/model"
	"github.com/morganforge/protalk-tui/internal/util"
)

// Format selects the transcript output format.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// Extension returns the file extension for the format.
func (f Format) Extension() string {
	if f == FormatJSON {
		return "json"
	}
	return "txt"
}

// Filename returns a timestamped transcript filename for the channel.
func Filename(channel string, format Format, now time.Time) string {
	return fmt.Sprintf("protalk-%s-%s.%s", channel, now.Format("20060102-150405"), format.Extension())
}

// transcriptEntry is the JSON shape of one exported message.
type transcriptEntry struct {
	Time   string `json:"time"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
	Mine   bool   `json:"mine"`
}

// Render serializes the message log in the given format. Messages keep their
// store order; the export is a faithful copy of what was on screen.
func Render(messages []model.ChatMessage, channel string, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		entries := make([]transcriptEntry, 0, len(messages))
		for _, m := range messages {
			entries = append(entries, transcriptEntry{
				Time:   m.DisplayTime,
				Sender: m.Sender,
				Text:   m.Text,
				Mine:   m.IsMine,
			})
		}
		return json.MarshalIndent(map[string]any{
			"channel":  channel,
			"messages": entries,
		}, "", "  ")

	default:
		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n", channel)
		for _, m := range messages {
			fmt.Fprintf(&b, "[%s] %s: %s\n", m.DisplayTime, m.Sender, m.Text)
		}
		return []byte(b.String()), nil
	}
}

// WriteTranscript renders the log and writes it atomically to path.
func WriteTranscript(path string, messages []model.ChatMessage, channel string, format Format) error {
	data, err := Render(messages, channel, format)
	if err != nil {
		return fmt.Errorf("failed to render transcript: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}
