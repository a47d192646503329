// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file renders the full chat layout: header, transcript viewport,
// working indicator, input field, and status bar. The approval panel
// overlays the viewport while a decision is pending.
package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/taskchat-tui/internal/ui/styles"
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Starting taskchat..."
	}

	var sections []string

	sections = append(sections, m.header.View())

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else if m.approvalPanel.IsVisible() {
		sections = append(sections, m.approvalPanel.View())
	} else {
		sections = append(sections, m.viewport.View())
	}

	sections = append(sections, m.renderInputArea())
	sections = append(sections, m.statusBar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// INPUT AREA
// =============================================================================

// renderInputArea renders the input field, or the working line while a task
// runs.
func (m Model) renderInputArea() string {
	var line string

	switch {
	case m.statusFlash != "":
		flashStyle := lipgloss.NewStyle().
			Foreground(styles.Amber).
			Italic(true).
			PaddingLeft(1)
		line = flashStyle.Render(m.statusFlash) + "\n" + m.renderInput()

	case m.spin.IsActive():
		line = lipgloss.NewStyle().PaddingLeft(1).Render(m.spin.View()) + "\n" + m.renderInput()

	default:
		line = "\n" + m.renderInput()
	}

	return m.theme.InputContainer.Width(m.width - 2).Render(line)
}

// renderInput renders the text input field.
func (m Model) renderInput() string {
	if !m.input.Focused() {
		dimStyle := lipgloss.NewStyle().Foreground(styles.TextMuted)
		return dimStyle.Render("  (input disabled while task runs)")
	}
	return m.input.View()
}

// =============================================================================
// HELP OVERLAY
// =============================================================================

// helpContext maps the UI state to a help filtering context.
func (m Model) helpContext() HelpContext {
	switch m.state {
	case StateStreaming:
		return ContextStreaming
	case StateAwaitingApproval:
		return ContextApproval
	default:
		return ContextReady
	}
}

// renderHelp renders the keyboard shortcut overlay.
func (m Model) renderHelp() string {
	items := GetHelpItemsForContext(m.helpContext())

	var rows []string
	rows = append(rows, m.theme.HeaderTitle.Render("Keyboard Shortcuts"))
	rows = append(rows, "")

	keyStyle := lipgloss.NewStyle().Foreground(styles.Cyan).Width(12)
	descStyle := lipgloss.NewStyle().Foreground(styles.TextSecondary)

	for _, item := range items {
		rows = append(rows, keyStyle.Render(item.Key)+" "+descStyle.Render(item.Desc))
	}

	rows = append(rows, "")
	hintStyle := lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)
	rows = append(rows, hintStyle.Render("press any key to close"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Purple).
		Padding(1, 3).
		Render(strings.Join(rows, "\n"))

	return lipgloss.Place(m.width, m.viewport.Height, lipgloss.Center, lipgloss.Center, box)
}
