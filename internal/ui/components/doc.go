// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the taskchat TUI.
//
// Components here are pure presentation: they take transcript data and layout
// dimensions and return rendered strings. State transitions live in the chat
// package.
package components
