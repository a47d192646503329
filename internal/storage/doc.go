// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package storage provides transcript history persistence for taskchat.

Completed transcripts are stored in a SQLite database at
~/.taskchat/history.db using the pure-Go modernc.org/sqlite driver.
Turns are serialized as JSON inside the transcript row; transcripts are
read and written whole, never partially.

Only completed transcripts are persisted. In-flight tasks live purely in
memory and do not survive a restart.
*/
package storage
