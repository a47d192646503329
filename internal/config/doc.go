// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package config provides configuration loading and management for taskchat.

Supports both TOML and JSON configuration formats, with sensible defaults,
environment variable overrides, and validation.

Configuration file locations (in order of precedence):
  - ~/.taskchat/config.toml
  - ~/.taskchat/config.json
  - Built-in defaults

Environment overrides (applied last):
  - TASKCHAT_BACKEND_URL
  - TASKCHAT_TOKEN
  - TASKCHAT_THEME
  - TASKCHAT_AUTOSAVE

A fsnotify watcher can reload the configuration when the file changes on
disk; see Watch.
*/
package config
