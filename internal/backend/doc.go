// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend implements the HTTP client for the task-execution backend.
//
// The backend owns the wire protocol; this package only consumes it. A task
// is created with a POST, its progress arrives as a live Server-Sent Events
// stream, and approval decisions are posted back while the stream stays open.
// Requests are single-shot: there is no retry, no backoff, and no stream
// reconnection. Cancelling the context is the only way to abandon a stream.
package backend
