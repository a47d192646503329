// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file contains input submission: validation, slash command dispatch,
// and the task start flow (user bubble, create task, open stream).
package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/taskchat-tui/internal/model"
)

// =============================================================================
// INPUT SUBMISSION
// =============================================================================

// submitInput handles Enter in the input field: dispatches slash commands or
// starts a new task from the prompt.
func (m Model) submitInput() (tea.Model, tea.Cmd) {
	content := strings.TrimSpace(m.input.Value())
	if content == "" {
		return m, nil
	}

	if strings.HasPrefix(content, "/") {
		return m.handleCommand(content)
	}

	if !m.state.acceptsInput() {
		return m, nil
	}

	m.input.Reset()
	return m.startTask(content)
}

// startTask appends the user bubble and kicks off task creation plus the
// stream pump. The task ID is server-issued; until TaskStartedMsg arrives
// the model is streaming with no active task ID, and Esc still cancels via
// the stored cancel function.
func (m Model) startTask(prompt string) (tea.Model, tea.Cmd) {
	m.transcript.AddUserMessage(prompt)
	history := buildHistory(m.transcript)

	ctx, cancel := context.WithCancel(context.Background())
	m.setCancelFunc(cancel)

	m.state = StateStreaming
	m.taskStats = model.NewStatistics()
	m.transcript.TaskState = model.TaskQueued
	m.statusFlash = ""
	m.input.Blur()
	m.refreshViewport()

	return m, tea.Batch(
		startTaskCmd(m.client, ctx, prompt, history),
		m.spin.Start("Sending"),
	)
}

// cancelActiveTask abandons the running task: the context cancel tears down
// the read loop, open bubbles keep their partial content, and the UI
// returns to ready. The backend is not notified; abandonment is the only
// cancellation.
func (m Model) cancelActiveTask() (tea.Model, tea.Cmd) {
	m.flushStreamBuf()
	m.transcript.FinalizeOpenStreams(" [cancelled]")
	m.transcript.TaskState = model.TaskIdle

	m.finishTask(StateReady)
	m.statusFlash = "task cancelled"
	m.refreshViewport()

	return m, tea.Batch(textinput.Blink, flashStatusCmd())
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand dispatches a slash command.
func (m Model) handleCommand(content string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(content)
	cmd := fields[0]

	switch cmd {
	case "/help":
		m.input.Reset()
		m.showHelp = true
		return m, nil

	case "/clear":
		if m.state == StateStreaming || m.state == StateAwaitingApproval {
			m.statusFlash = "cannot clear while a task is running"
			return m, flashStatusCmd()
		}
		m.input.Reset()
		m.transcript.Clear()
		m.state = StateReady
		m.statusFlash = ""
		m.refreshViewport()
		return m, nil

	case "/save":
		m.input.Reset()
		if m.history == nil {
			m.statusFlash = "history store not available"
			return m, flashStatusCmd()
		}
		if m.transcript.IsEmpty() {
			m.statusFlash = "nothing to save"
			return m, flashStatusCmd()
		}
		return m, saveTranscriptCmd(m.history, m.transcript)

	case "/quit", "/exit":
		return m, tea.Quit

	default:
		m.input.Reset()
		m.statusFlash = "unknown command: " + cmd + " (try /help)"
		return m, flashStatusCmd()
	}
}
