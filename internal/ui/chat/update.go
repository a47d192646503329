// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file contains the Bubble Tea update loop. Stream events are pumped
// one per cycle: each StreamEventMsg is folded through the reducer and the
// wait command is re-armed until the channel closes.
package chat

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/taskchat-tui/internal/model"
	"github.com/jeranaias/taskchat-tui/internal/ui/components"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TaskStartedMsg:
		return m.handleTaskStarted(msg)

	case StreamEventMsg:
		return m.handleStreamEvent(msg)

	case StreamClosedMsg:
		return m.handleStreamClosed(msg)

	case StreamTickMsg:
		return m.handleStreamTick()

	case components.ApprovalDecisionMsg:
		return m.handleApprovalDecision(msg)

	case ApprovalPostedMsg:
		return m.handleApprovalPosted(msg)

	case TranscriptSavedMsg:
		if msg.Err != nil {
			m.statusFlash = "save failed: " + msg.Err.Error()
		} else {
			m.statusFlash = "transcript saved"
		}
		return m, flashStatusCmd()

	case BackendStatusMsg:
		m.header.Connected = msg.Healthy
		return m, nil

	case StatusFlashMsg:
		m.statusFlash = msg.Text
		return m, flashStatusCmd()

	case ClearStatusFlashMsg:
		m.statusFlash = ""
		return m, nil

	case spinner.TickMsg:
		cmd := m.spin.Update(msg)
		m.syncStatusBar()
		return m, cmd
	}

	return m.updateComponents(msg)
}

// =============================================================================
// KEYBOARD
// =============================================================================

// handleKey routes key presses by priority: quit, help overlay, approval
// panel, then state-dependent bindings.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keyMap.Quit) {
		m.cancelTask()
		return m, tea.Quit
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if key.Matches(msg, m.keyMap.Help) {
		m.showHelp = true
		return m, nil
	}

	// The approval panel owns the keyboard while visible.
	if m.approvalPanel.IsVisible() {
		cmd, handled := m.approvalPanel.Update(msg)
		if handled {
			return m, cmd
		}
	}

	if key.Matches(msg, m.keyMap.Cancel) {
		if m.state == StateStreaming {
			return m.cancelActiveTask()
		}
		return m, nil
	}

	if key.Matches(msg, m.keyMap.Clear) {
		return m.handleCommand("/clear")
	}

	if key.Matches(msg, m.keyMap.Submit) && m.input.Focused() {
		return m.submitInput()
	}

	switch {
	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	case key.Matches(msg, m.keyMap.Home):
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keyMap.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	return m.updateComponents(msg)
}

// =============================================================================
// TASK LIFECYCLE
// =============================================================================

// handleTaskStarted wires up the event stream after task creation.
func (m Model) handleTaskStarted(msg TaskStartedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		cmd := m.applyStreamFailure(msg.Err)
		return m, cmd
	}

	m.activeTaskID = msg.TaskID
	m.eventCh = msg.Events
	m.transcript.BindTask(msg.TaskID)
	m.syncStatusBar()

	return m, tea.Batch(
		waitForEventCmd(msg.TaskID, msg.Events),
		streamTickCmd(),
	)
}

// handleStreamEvent folds one event through the reducer and re-arms the
// stream pump. Events from an abandoned task are dropped.
func (m Model) handleStreamEvent(msg StreamEventMsg) (tea.Model, tea.Cmd) {
	if msg.TaskID != m.activeTaskID {
		return m, nil
	}

	cmd := m.applyEvent(msg.Event)
	m.syncStatusBar()

	// A terminal event tears the stream down inside the reducer.
	if m.eventCh == nil {
		return m, cmd
	}
	return m, tea.Batch(cmd, waitForEventCmd(m.activeTaskID, m.eventCh))
}

// handleStreamClosed handles the channel closing. If the stream ended
// without a terminal event (server EOF), open bubbles are closed with their
// partial content and the view returns to ready.
func (m Model) handleStreamClosed(msg StreamClosedMsg) (tea.Model, tea.Cmd) {
	if msg.TaskID != m.activeTaskID {
		return m, nil
	}

	m.flushStreamBuf()
	m.transcript.FinalizeOpenStreams("")
	if !m.transcript.TaskState.Terminal() {
		m.transcript.TaskState = model.TaskIdle
		m.statusFlash = "stream ended unexpectedly"
	}

	m.finishTask(StateReady)
	m.refreshViewport()
	m.syncStatusBar()
	return m, tea.Batch(textinput.Blink, flashStatusCmd())
}

// handleStreamTick drains the stream buffer into the transcript at the
// capped frame rate.
func (m Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if m.eventCh == nil {
		return m, nil
	}

	if id, role, text, ok := m.streamBuf.Flush(); ok {
		m.transcript.UpsertStreaming(id, role, text)
		m.refreshViewport()
	}
	return m, streamTickCmd()
}

// =============================================================================
// APPROVAL FLOW
// =============================================================================

// handleApprovalDecision resolves the approval bubble in place and posts
// the decision back. The stream resumes once the backend sees the decision.
func (m Model) handleApprovalDecision(msg components.ApprovalDecisionMsg) (tea.Model, tea.Cmd) {
	resolved := m.transcript.ResolveApproval(msg.ApprovalID, msg.Approved)
	if resolved == nil {
		// Superseded or unknown; nothing to post.
		return m, nil
	}

	m.approvalPanel.Hide()
	m.state = StateStreaming
	m.transcript.TaskState = model.TaskWorking
	m.refreshViewport()
	m.syncStatusBar()

	return m, tea.Batch(
		postApprovalCmd(m.client, m.activeTaskID, msg.ApprovalID, msg.Approved, msg.Note),
		m.spin.Start("Working"),
	)
}

// handleApprovalPosted reports a failed decision post. The backend never saw
// the decision, so the task is abandoned.
func (m Model) handleApprovalPosted(msg ApprovalPostedMsg) (tea.Model, tea.Cmd) {
	if msg.TaskID != m.activeTaskID || msg.Err == nil {
		return m, nil
	}
	cmd := m.applyStreamFailure(msg.Err)
	return m, cmd
}

// =============================================================================
// COMPONENT PASSTHROUGH
// =============================================================================

// updateComponents forwards unhandled messages to the focused input and the
// viewport.
func (m Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.input.Focused() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}
