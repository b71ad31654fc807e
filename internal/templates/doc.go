// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package templates provides the built-in prompt templates offered when
// starting a message.
package templates
