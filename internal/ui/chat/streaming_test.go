// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/taskchat-tui/internal/model"
)

// =============================================================================
// STREAM BUFFER TESTS
// =============================================================================

func TestStreamBufferBatchSizeFlush(t *testing.T) {
	sb := NewStreamBuffer()

	// Below the batch threshold and the time threshold: no flush.
	sb.Write("msg_1", model.RoleAssistant, "a")
	_, _, _, ok := sb.Flush()
	assert.False(t, ok)

	// Reach the batch threshold.
	for i := 0; i < 14; i++ {
		sb.Write("msg_1", model.RoleAssistant, "b")
	}
	id, role, text, ok := sb.Flush()
	require.True(t, ok)
	assert.Equal(t, "msg_1", id)
	assert.Equal(t, model.RoleAssistant, role)
	assert.Equal(t, "abbbbbbbbbbbbbb", text)
	assert.Equal(t, 0, sb.Pending())
}

func TestStreamBufferTimeBasedFlush(t *testing.T) {
	sb := NewStreamBuffer()
	sb.Write("msg_1", model.RoleAssistant, "slow token")

	time.Sleep(40 * time.Millisecond)

	_, _, text, ok := sb.Flush()
	require.True(t, ok)
	assert.Equal(t, "slow token", text)
}

func TestStreamBufferForceFlush(t *testing.T) {
	sb := NewStreamBuffer()
	sb.Write("msg_1", model.RoleAssistant, "x")

	id, _, text, ok := sb.ForceFlush()
	require.True(t, ok)
	assert.Equal(t, "msg_1", id)
	assert.Equal(t, "x", text)

	// Empty buffer force-flushes nothing.
	_, _, _, ok = sb.ForceFlush()
	assert.False(t, ok)
}

func TestStreamBufferDisplacement(t *testing.T) {
	sb := NewStreamBuffer()
	sb.Write("msg_1", model.RoleAssistant, "first turn text")

	prevID, prevRole, prevText, displaced := sb.Write("msg_2", model.RoleAssistant, "second")
	require.True(t, displaced)
	assert.Equal(t, "msg_1", prevID)
	assert.Equal(t, model.RoleAssistant, prevRole)
	assert.Equal(t, "first turn text", prevText)

	// Buffer now holds only the new turn's text.
	_, _, text, ok := sb.ForceFlush()
	require.True(t, ok)
	assert.Equal(t, "second", text)
}

func TestStreamBufferSameIDNoDisplacement(t *testing.T) {
	sb := NewStreamBuffer()
	sb.Write("msg_1", model.RoleAssistant, "a")
	_, _, _, displaced := sb.Write("msg_1", model.RoleAssistant, "b")
	assert.False(t, displaced)
}

func TestStreamBufferReset(t *testing.T) {
	sb := NewStreamBuffer()
	sb.Write("msg_1", model.RoleAssistant, "discard me")
	sb.Reset()

	_, _, _, ok := sb.ForceFlush()
	assert.False(t, ok)
	assert.Equal(t, 0, sb.Pending())
}

func TestStreamBufferConcurrentAccess(t *testing.T) {
	sb := NewStreamBuffer()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sb.Write("msg_1", model.RoleAssistant, "t")
				sb.Flush()
			}
		}()
	}
	wg.Wait()

	// Drain whatever is left; no panic or deadlock is the assertion.
	sb.ForceFlush()
	assert.Equal(t, 0, sb.Pending())
}

// =============================================================================
// TICK INTEGRATION
// =============================================================================

func TestStreamTickDrainsBufferIntoTranscript(t *testing.T) {
	m := newStreamingModel()

	m.applyEvent(partialEvent("msg_a", "tick-flushed text"))
	time.Sleep(40 * time.Millisecond) // pass the time threshold

	updated, cmd := m.handleStreamTick()
	m = updated.(Model)

	assert.NotNil(t, cmd) // tick re-armed while the stream is open
	msg := m.transcript.ByID("msg_a")
	require.NotNil(t, msg)
	assert.Equal(t, "tick-flushed text", msg.GetDisplayContent())
}

func TestStreamTickStopsWhenStreamClosed(t *testing.T) {
	m := newTestModel()

	_, cmd := m.handleStreamTick()
	assert.Nil(t, cmd)
}
