// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/taskchat-tui/internal/ui/styles"
)

// =============================================================================
// SPINNER COMPONENT
// =============================================================================

// Spinner is the working-state indicator shown while a task runs.
type Spinner struct {
	spinner   spinner.Model
	message   string
	startTime time.Time
	isActive  bool
	showTimer bool
	theme     *styles.Theme
}

// NewSpinner creates a spinner with ASCII-safe frames.
func NewSpinner(theme *styles.Theme) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	s.Style = theme.Spinner

	return Spinner{
		spinner:   s,
		message:   "Working",
		showTimer: true,
		theme:     theme,
	}
}

// Start activates the spinner with a message and returns the tick command.
func (s *Spinner) Start(message string) tea.Cmd {
	s.message = message
	s.startTime = time.Now()
	s.isActive = true
	return s.spinner.Tick
}

// Stop deactivates the spinner.
func (s *Spinner) Stop() {
	s.isActive = false
}

// IsActive returns whether the spinner is running.
func (s *Spinner) IsActive() bool {
	return s.isActive
}

// Frame returns the current spinner frame for inline use (status bar).
func (s *Spinner) Frame() string {
	if !s.isActive {
		return ""
	}
	return s.spinner.View()
}

// Update advances the spinner animation.
func (s *Spinner) Update(msg tea.Msg) tea.Cmd {
	if !s.isActive {
		return nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return cmd
}

// View renders the spinner line with message and elapsed time.
func (s *Spinner) View() string {
	if !s.isActive {
		return ""
	}

	out := s.spinner.View() + " " + s.theme.ThinkingText.Render(s.message)
	if s.showTimer {
		elapsed := time.Since(s.startTime).Round(time.Second)
		out += " " + s.theme.ThinkingTime.Render("("+elapsed.String()+")")
	}
	return out
}
