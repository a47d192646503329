// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file implements thread-safe cancel function handling. The cancel
// function for the in-flight task is set from a command goroutine and
// invoked from the update loop, so access must be synchronized.
package chat

import (
	"context"
	"sync"
)

// =============================================================================
// CANCEL FUNCTION MANAGEMENT (THREAD-SAFE)
// =============================================================================

// cancelManager holds the cancel function of the in-flight task's context.
// IMPORTANT: This must be used as a pointer (*cancelManager) in the Model to
// prevent copying the mutex when Bubble Tea's Update returns model copies.
type cancelManager struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

// newCancelManager creates a new cancelManager pointer.
func newCancelManager() *cancelManager {
	return &cancelManager{}
}

// set stores the cancel function for a newly started task.
func (cm *cancelManager) set(fn context.CancelFunc) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.cancelFunc = fn
}

// cancel invokes the stored cancel function and clears it.
// Safe to call multiple times or with no cancel function set.
func (cm *cancelManager) cancel() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
		cm.cancelFunc = nil
	}
}

// =============================================================================
// MODEL METHODS (CONVENIENCE WRAPPERS)
// =============================================================================

// setCancelFunc stores the cancel function for the running task.
func (m *Model) setCancelFunc(fn context.CancelFunc) {
	m.cancelMgr.set(fn)
}

// cancelTask cancels the running task's context, if any.
// Contexts are always cancelled through here to prevent leaks.
func (m *Model) cancelTask() {
	m.cancelMgr.cancel()
}
