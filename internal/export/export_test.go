// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/morganforge/protalk-tui/internal/model"
)

func sampleLog() []model.ChatMessage {
	return []model.ChatMessage{
		{DedupKey: 1, Sender: "abcdefgh", Text: "hello", DisplayTime: "09:15"},
		{DedupKey: 2, Sender: "You", Text: "hi back", DisplayTime: "09:16", IsMine: true},
	}
}

func TestFilename(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	got := Filename("general", FormatText, now)
	if got != "protalk-general-20250314-092653.txt" {
		t.Errorf("unexpected filename: %q", got)
	}
	if !strings.HasSuffix(Filename("general", FormatJSON, now), ".json") {
		t.Error("json format must use .json extension")
	}
}

func TestRenderText(t *testing.T) {
	data, err := Render(sampleLog(), "general", FormatText)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	text := string(data)
	if !strings.Contains(text, "# general") {
		t.Error("missing channel header")
	}
	if !strings.Contains(text, "[09:15] abcdefgh: hello") {
		t.Errorf("missing message line:\n%s", text)
	}

	// Order must match the on-screen log.
	if strings.Index(text, "hello") > strings.Index(text, "hi back") {
		t.Error("messages exported out of order")
	}
}

func TestRenderJSON(t *testing.T) {
	data, err := Render(sampleLog(), "general", FormatJSON)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	var doc struct {
		Channel  string `json:"channel"`
		Messages []struct {
			Sender string `json:"sender"`
			Text   string `json:"text"`
			Mine   bool   `json:"mine"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if doc.Channel != "general" || len(doc.Messages) != 2 {
		t.Errorf("unexpected document: %+v", doc)
	}
	if !doc.Messages[1].Mine {
		t.Error("ownership flag lost in export")
	}
}

func TestWriteTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.txt")
	if err := WriteTranscript(path, sampleLog(), "general", FormatText); err != nil {
		t.Fatalf("WriteTranscript failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Error("transcript content missing")
	}
}
