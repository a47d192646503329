// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/taskchat-tui/internal/ui/styles"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header renders the title bar: app name, transcript title, backend host.
type Header struct {
	Title      string
	ChatTitle  string
	BackendURL string
	Connected  bool
	Width      int
	theme      *styles.Theme
}

// NewHeader creates a new Header component.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: "taskchat",
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// View renders the header.
func (h *Header) View() string {
	width := h.Width
	if width < 40 {
		width = 40
	}

	brand := h.theme.HeaderTitle.Render(h.Title)

	chatTitle := ""
	if h.ChatTitle != "" {
		chatTitle = h.theme.HeaderSubtitle.Render(Truncate(h.ChatTitle, width/3))
	}

	var conn string
	if h.BackendURL != "" {
		connStyle := lipgloss.NewStyle().Foreground(styles.TextMuted)
		indicator := styles.StatusIndicators.Active
		if !h.Connected {
			indicator = styles.StatusIndicators.Error
		}
		conn = connStyle.Render(indicator + " " + Truncate(h.BackendURL, width/3))
	}

	line := brand
	if chatTitle != "" {
		line += "  " + chatTitle
	}
	if conn != "" {
		gap := width - lipgloss.Width(line) - lipgloss.Width(conn) - 6
		if gap < 1 {
			gap = 1
		}
		line += lipgloss.NewStyle().Width(gap).Render("") + conn
	}

	return h.theme.Header.Width(width - 2).Align(lipgloss.Left).Render(line)
}
