// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across chathub packages.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with an ellipsis inside the budget
//   - PrefixRunes: keep the first n runes and append a suffix when cut
//   - WrapWidth, TruncateWidth: display-width aware layout for exports
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	title := util.PrefixRunes(firstMessage, 30, "...")
//	lines := util.WrapWidth(body, 80)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
