// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file contains the async tea.Cmd constructors that talk to the
// backend. Each command does one thing and reports back with a message from
// messages.go; the update loop owns all state.
package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/taskchat-tui/internal/backend"
	"github.com/jeranaias/taskchat-tui/internal/model"
)

// =============================================================================
// TASK COMMANDS
// =============================================================================

// startTaskCmd creates the task and opens its event stream in one shot.
// The context governs both the create call and the whole stream lifetime;
// cancelling it is the only way the stream is abandoned.
func startTaskCmd(client *backend.Client, ctx context.Context, prompt string, history []backend.Turn) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return TaskStartedMsg{Err: backend.ErrNotConfigured}
		}

		taskID, err := client.CreateTask(ctx, prompt, history)
		if err != nil {
			return TaskStartedMsg{Err: err}
		}

		events, err := client.StreamEvents(ctx, taskID)
		if err != nil {
			return TaskStartedMsg{TaskID: taskID, Err: err}
		}

		return TaskStartedMsg{TaskID: taskID, Events: events}
	}
}

// waitForEventCmd reads the next event from the stream channel.
// Re-issued from the update loop after each StreamEventMsg, so the channel
// is drained one event per Update cycle and the reducer stays sequential.
func waitForEventCmd(taskID string, events <-chan backend.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return StreamClosedMsg{TaskID: taskID}
		}
		return StreamEventMsg{TaskID: taskID, Event: ev}
	}
}

// buildHistory converts completed transcript turns into wire-format history.
// Streaming turns and approval bookkeeping are client-side only.
func buildHistory(t *model.Transcript) []backend.Turn {
	var turns []backend.Turn
	for _, msg := range t.History() {
		if msg.IsStreaming || msg.Role == model.RoleApproval {
			continue
		}
		content := msg.GetDisplayContent()
		if content == "" {
			continue
		}
		turns = append(turns, backend.Turn{
			Role:    msg.Role.String(),
			Content: content,
		})
	}
	return turns
}

// =============================================================================
// APPROVAL COMMANDS
// =============================================================================

// postApprovalCmd posts an approval decision back to the backend.
func postApprovalCmd(client *backend.Client, taskID, approvalID string, approved bool, note string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), backend.DefaultTimeout)
		defer cancel()

		err := client.RespondApproval(ctx, taskID, approvalID, approved, note)
		return ApprovalPostedMsg{
			TaskID:     taskID,
			ApprovalID: approvalID,
			Approved:   approved,
			Err:        err,
		}
	}
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// healthCheckCmd probes the backend's health endpoint once at startup.
func healthCheckCmd(client *backend.Client) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return BackendStatusMsg{Healthy: false, Err: backend.ErrNotConfigured}
		}

		ctx, cancel := context.WithTimeout(context.Background(), backend.DefaultTimeout)
		defer cancel()

		err := client.Health(ctx)
		return BackendStatusMsg{Healthy: err == nil, Err: err}
	}
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// saveTranscriptCmd saves a completed transcript to the history store.
func saveTranscriptCmd(store HistoryStore, t *model.Transcript) tea.Cmd {
	return func() tea.Msg {
		err := store.Save(t)
		return TranscriptSavedMsg{TranscriptID: t.ID, Err: err}
	}
}
