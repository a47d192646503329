// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across taskchat.
//
//   - AtomicWriteFile: crash-safe file writing with fsync, used for the
//     config file so a crash mid-save never leaves a torn config.
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis, used for
//     transcript titles and previews.
package util
