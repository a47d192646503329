// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file is the event reducer: the single place where decoded backend
// events are folded into the transcript and UI state. Events arrive one per
// Update cycle from waitForEventCmd, so the reducer never runs concurrently
// with itself. Transcript order is append-only except for in-place splices
// (streaming bubble growth, approval resolution), so already-rendered
// history never shifts.
package chat

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/taskchat-tui/internal/backend"
	"github.com/jeranaias/taskchat-tui/internal/model"
)

// =============================================================================
// EVENT REDUCER
// =============================================================================

// applyEvent folds one stream event into the transcript and UI state.
func (m *Model) applyEvent(ev backend.Event) tea.Cmd {
	if ev.Err != nil {
		return m.applyStreamFailure(ev.Err)
	}

	switch ev.Kind {
	case backend.EventMessage:
		return m.applyMessage(ev.Message)
	case backend.EventApproval:
		return m.applyApproval(ev.Approval)
	case backend.EventStatus:
		return m.applyStatus(ev.Status)
	case backend.EventDone:
		return m.applyDone(ev.Done)
	case backend.EventError:
		return m.applyError(ev.Error)
	default:
		// The decoder drops unknown kinds before they get here.
		return nil
	}
}

// =============================================================================
// MESSAGE FRAMES
// =============================================================================

// applyMessage handles a partial or final message frame.
//
// Partial frames go through the stream buffer so rendering is batched; a
// frame for an unknown message ID opens a new streaming bubble when the
// buffer drains. The final frame is authoritative: its text replaces
// whatever partial content accumulated.
func (m *Model) applyMessage(p *backend.MessageEvent) tea.Cmd {
	role := model.Role(p.Role)

	if p.Partial {
		if m.taskStats != nil {
			m.taskStats.RecordFirstToken()
		}

		// A partial for a different turn displaces buffered text; land
		// the displaced text before buffering the new turn's.
		prevID, prevRole, prevText, displaced := m.streamBuf.Write(p.MessageID, role, p.Text)
		if displaced {
			m.transcript.UpsertStreaming(prevID, prevRole, prevText)
			m.refreshViewport()
		}
		return nil
	}

	// Final frame: drain the buffer first so the turn exists, then replace
	// its content with the authoritative text.
	m.flushStreamBuf()

	var stats *model.Statistics
	if m.taskStats != nil {
		m.taskStats.Finalize()
		stats = m.taskStats
	}

	m.transcript.FinalizeMessage(p.MessageID, role, p.Text, stats)
	m.refreshViewport()
	return nil
}

// flushStreamBuf drains any buffered partial text into the transcript.
func (m *Model) flushStreamBuf() {
	if id, role, text, ok := m.streamBuf.ForceFlush(); ok {
		m.transcript.UpsertStreaming(id, role, text)
	}
}

// =============================================================================
// APPROVAL REQUESTS
// =============================================================================

// applyApproval splices a pending approval turn and pauses for a decision.
// A second approval while one is pending supersedes the first: the backend
// only ever waits on its most recent request.
func (m *Model) applyApproval(p *backend.ApprovalEvent) tea.Cmd {
	m.flushStreamBuf()

	msg := m.transcript.SpliceApproval(p.ApprovalID, p.Title, p.Command, p.Detail)
	m.transcript.TaskState = model.TaskAwaitingApproval
	m.state = StateAwaitingApproval

	m.approvalPanel.Show(msg)
	m.input.Blur()
	m.spin.Stop()
	m.refreshViewport()
	return nil
}

// =============================================================================
// STATUS TRANSITIONS
// =============================================================================

// applyStatus updates the status bar from a lifecycle event.
// An approval pause is only entered via the approval event itself; a bare
// awaiting_approval status just updates the label.
func (m *Model) applyStatus(p *backend.StatusEvent) tea.Cmd {
	state := model.TaskState(p.State)
	m.transcript.TaskState = state

	if state == model.TaskWorking && !m.spin.IsActive() {
		return m.spin.Start("Working")
	}
	return nil
}

// =============================================================================
// TERMINAL EVENTS
// =============================================================================

// applyDone closes out a successful task.
func (m *Model) applyDone(p *backend.DoneEvent) tea.Cmd {
	m.flushStreamBuf()
	m.transcript.FinalizeOpenStreams("")
	m.transcript.TaskState = model.TaskDone

	m.statusFlash = "task complete"
	if p.StopReason != "" {
		m.statusFlash = "task complete (" + p.StopReason + ")"
	}

	m.finishTask(StateReady)
	m.refreshViewport()

	return tea.Batch(m.maybeAutoSave(), flashStatusCmd())
}

// applyError closes out a failed task with a single error bubble.
func (m *Model) applyError(p *backend.ErrorEvent) tea.Cmd {
	m.flushStreamBuf()
	m.transcript.FinalizeOpenStreams("")

	text := p.Message
	if text == "" {
		text = "task failed"
	}
	if p.Code != "" {
		text += " (" + p.Code + ")"
	}
	m.transcript.AppendError(text)
	m.transcript.TaskState = model.TaskFailed

	m.finishTask(StateError)
	m.refreshViewport()
	return nil
}

// applyStreamFailure handles a transport-level stream failure.
// Like a backend error event, it surfaces as exactly one error bubble.
func (m *Model) applyStreamFailure(err error) tea.Cmd {
	m.flushStreamBuf()
	m.transcript.FinalizeOpenStreams("")

	m.transcript.AppendError(humanizeErr(err))
	m.transcript.TaskState = model.TaskFailed

	m.finishTask(StateError)
	m.refreshViewport()
	return nil
}

// humanizeErr maps transport errors to user-facing text.
func humanizeErr(err error) string {
	switch {
	case errors.Is(err, backend.ErrNotConfigured):
		return "no backend configured. Set backend.url in ~/.taskchat/config.toml"
	case errors.Is(err, backend.ErrAuthFailed):
		return "authentication failed. Check your backend token"
	case errors.Is(err, backend.ErrTaskNotFound):
		return "task not found on the backend"
	case errors.Is(err, backend.ErrRateLimited):
		return "backend is rate limiting requests. Try again shortly"
	case errors.Is(err, backend.ErrBackendDown):
		return "backend is unreachable"
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
