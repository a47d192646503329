// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file implements batched rendering of streamed partial text. Applying
// every partial frame to the viewport immediately would re-render far above
// the terminal's refresh rate and flicker; the StreamBuffer accumulates
// partial text and a 30fps tick drains it into the transcript.
package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/taskchat-tui/internal/model"
)

// =============================================================================
// STREAM BUFFER
// =============================================================================

// StreamBuffer batches partial-frame text for one streaming turn.
// Text is flushed into the transcript when either:
// 1. The frame count threshold is reached (default 15)
// 2. Enough time passed since the last flush (~33ms for 30fps)
//
// Thread-safety: all operations are mutex-protected. Writes arrive from the
// update loop but flushes can race with pending tick commands.
type StreamBuffer struct {
	mu         sync.Mutex
	buffer     strings.Builder
	frameCount int
	lastFlush  time.Time

	// Turn the buffered text belongs to
	messageID string
	role      model.Role

	// Configuration
	batchSize  int
	minFlushMs time.Duration
}

// NewStreamBuffer creates a stream buffer with default settings:
// 15 frames per batch, 30fps max flush rate.
func NewStreamBuffer() *StreamBuffer {
	const (
		defaultBatchSize = 15
		defaultMaxFPS    = 30
	)

	return &StreamBuffer{
		batchSize:  defaultBatchSize,
		minFlushMs: time.Duration(1000/defaultMaxFPS) * time.Millisecond,
		lastFlush:  time.Now(),
	}
}

// Write adds partial text for the given turn to the buffer.
// If the buffer holds text for a different turn, that text is returned so
// the caller can apply it before the buffer switches over. The returned
// values are the displaced turn's ID, role, and text; displaced is false
// when no switch happened.
func (sb *StreamBuffer) Write(messageID string, role model.Role, text string) (prevID string, prevRole model.Role, prevText string, displaced bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.messageID != "" && sb.messageID != messageID && sb.buffer.Len() > 0 {
		prevID = sb.messageID
		prevRole = sb.role
		prevText = sb.buffer.String()
		displaced = true
		sb.buffer.Reset()
		sb.frameCount = 0
	}

	sb.messageID = messageID
	sb.role = role
	sb.buffer.WriteString(text)
	sb.frameCount++
	return
}

// Flush returns buffered text if a flush threshold was reached.
// Returns (messageID, role, text, true) on flush, or ok=false when there is
// nothing to flush yet.
func (sb *StreamBuffer) Flush() (string, model.Role, string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 || !sb.shouldFlushLocked() {
		return "", "", "", false
	}
	return sb.drainLocked()
}

// ForceFlush immediately returns all buffered text regardless of thresholds.
// Used when a final frame or terminal event arrives so no partial text is
// dropped.
func (sb *StreamBuffer) ForceFlush() (string, model.Role, string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", "", "", false
	}
	return sb.drainLocked()
}

// Reset clears the buffer without flushing. Used on cancel.
func (sb *StreamBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.Reset()
	sb.frameCount = 0
	sb.messageID = ""
	sb.role = ""
	sb.lastFlush = time.Now()
}

// Pending returns the number of buffered frames.
func (sb *StreamBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.frameCount
}

// shouldFlushLocked checks flush conditions. Caller must hold the lock.
func (sb *StreamBuffer) shouldFlushLocked() bool {
	if sb.frameCount >= sb.batchSize {
		return true
	}
	return time.Since(sb.lastFlush) >= sb.minFlushMs
}

// drainLocked extracts and resets the buffer. Caller must hold the lock.
func (sb *StreamBuffer) drainLocked() (string, model.Role, string, bool) {
	id := sb.messageID
	role := sb.role
	text := sb.buffer.String()

	sb.buffer.Reset()
	sb.frameCount = 0
	sb.lastFlush = time.Now()

	return id, role, text, true
}

// =============================================================================
// STREAMING TICK COMMAND
// =============================================================================

// streamTickCmd creates a tea.Cmd that sends StreamTickMsg at 30fps while a
// stream is open.
func streamTickCmd() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
