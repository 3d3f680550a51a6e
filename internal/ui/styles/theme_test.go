// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "testing"

func TestNewTheme(t *testing.T) {
	theme := NewTheme()
	if theme == nil {
		t.Fatal("NewTheme returned nil")
	}

	// Styles must render without panicking regardless of terminal profile.
	_ = theme.HeaderTitle.Render("protalk")
	_ = theme.SenderMine.Render("You")
	_ = theme.SenderTheirs.Render("abcdefgh")
	_ = theme.ErrorLine.Render("stream dropped")
}
