// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for transcripts and chat turns.
//
// A Transcript is the in-memory record of one conversation with the task
// backend: an ordered list of turns plus the server-issued task identifier
// for the task currently in flight. Turns are spliced in place as stream
// events arrive (partial message growth, approval resolution); nothing in
// this package touches the network or the disk.
package model
