// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// Glamour re-wraps to the target width, so renderers are cached per width.
// Streaming turns bypass markdown entirely; only finalized assistant content
// goes through here.
var (
	rendererMu    sync.Mutex
	rendererCache = map[int]*glamour.TermRenderer{}
)

// RenderMarkdown renders markdown for terminal display at the given width.
// Falls back to the raw text if rendering fails; a bad document must never
// blank out a message bubble.
func RenderMarkdown(text string, width int) string {
	if width < 20 {
		width = 20
	}

	r, err := rendererForWidth(width)
	if err != nil {
		return text
	}

	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return out
}

func rendererForWidth(width int) (*glamour.TermRenderer, error) {
	rendererMu.Lock()
	defer rendererMu.Unlock()

	if r, ok := rendererCache[width]; ok {
		return r, nil
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil, err
	}
	rendererCache[width] = r
	return r, nil
}
