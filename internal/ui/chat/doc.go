// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the main chat view for the taskchat TUI.

The chat package implements a terminal conversation interface on the Bubble
Tea framework. User prompts are submitted to a remote task-execution backend
and the resulting event stream is folded incrementally into the transcript.

# Key Components

## Model (model.go)

The Model struct is the central Bubble Tea model:
  - Transcript state and turn management
  - Input handling and submission
  - Viewport for transcript scrolling
  - Task lifecycle state (ready, streaming, awaiting approval)

## Event Reducer (reducer.go)

The heart of the package. Each event from the backend stream is applied to
the transcript through a single reducer:
  - message: partial frames grow a streaming bubble; the final frame is
    authoritative and replaces accumulated partials
  - approval: splices a pending approval turn and opens the decision panel
  - status: drives the status bar state
  - done / error: close the stream and return the view to ready

## Streaming (streaming.go)

Batched token rendering for smooth, flicker-free streaming:
  - StreamBuffer accumulates partial text between frames
  - A 30fps tick flushes batched text into the transcript

## Update Loop (update.go)

Handles Bubble Tea messages: keyboard input, window resizes, stream events,
approval decisions, and spinner ticks.

# Usage

Create a chat model and run it as a Bubble Tea program:

	client := backend.NewClient("http://localhost:8080")
	m := chat.New(chat.Options{
		Client: client,
		Theme:  styles.NewTheme(),
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
*/
package chat
