// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/taskchat-tui/internal/model"
	"github.com/jeranaias/taskchat-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// StatusBar renders the bottom status line: task state on the left,
// keyboard shortcuts on the right.
type StatusBar struct {
	TaskState  model.TaskState
	TaskID     string
	BackendURL string
	Width      int
	Spinner    string // current spinner frame while a task is running
	theme      *styles.Theme
}

// NewStatusBar creates a new StatusBar component.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the available width.
func (sb *StatusBar) SetWidth(width int) {
	sb.Width = width
}

// stateStyle picks the style for the current task state.
func (sb *StatusBar) stateStyle() lipgloss.Style {
	switch sb.TaskState {
	case model.TaskQueued, model.TaskWorking:
		return sb.theme.StatusWorking
	case model.TaskAwaitingApproval:
		return sb.theme.StatusAwaiting
	case model.TaskFailed:
		return sb.theme.StatusFailed
	default:
		return sb.theme.StatusReady
	}
}

// stateIndicator returns the shape indicator for the current state.
// ACCESSIBILITY: shape cues alongside color.
func (sb *StatusBar) stateIndicator() string {
	switch sb.TaskState {
	case model.TaskQueued, model.TaskWorking:
		if sb.Spinner != "" {
			return sb.Spinner
		}
		return styles.StatusIndicators.Pending
	case model.TaskAwaitingApproval:
		return styles.StatusIndicators.Warning
	case model.TaskFailed:
		return styles.StatusIndicators.Error
	case model.TaskDone:
		return styles.StatusIndicators.Success
	default:
		return styles.StatusIndicators.Active
	}
}

// View renders the status bar.
func (sb *StatusBar) View() string {
	stateLabel := "ready"
	if sb.TaskState != model.TaskIdle {
		stateLabel = sb.TaskState.DisplayName()
	}

	left := sb.stateStyle().Render(sb.stateIndicator() + " " + stateLabel)
	if sb.TaskID != "" {
		idStyle := lipgloss.NewStyle().Foreground(styles.TextMuted)
		left += idStyle.Render("  task " + Truncate(sb.TaskID, 16))
	}

	var shortcuts []string
	switch sb.TaskState {
	case model.TaskAwaitingApproval:
		shortcuts = []string{"y approve", "n deny", "e note"}
	case model.TaskQueued, model.TaskWorking:
		shortcuts = []string{"esc cancel", "ctrl+q quit"}
	default:
		shortcuts = []string{"enter send", "ctrl+l clear", "ctrl+q quit"}
	}

	var rendered []string
	for _, s := range shortcuts {
		parts := strings.SplitN(s, " ", 2)
		rendered = append(rendered,
			sb.theme.ShortcutKey.Render(parts[0])+" "+sb.theme.ShortcutDesc.Render(parts[1]))
	}
	right := strings.Join(rendered, "  ")

	gap := sb.Width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}

	return sb.theme.StatusBar.
		Width(sb.Width).
		Render(left + strings.Repeat(" ", gap) + right)
}
