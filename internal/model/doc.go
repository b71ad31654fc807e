// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
//
// # Key Types
//
//   - Message: one chat message with id, content, role and timestamp
//   - Conversation: a saved chat in the history list
//   - ChatState: the active session (messages, loading flag, last error)
//   - ModelInfo: metadata for a completions model and its alias
//
// All types are plain values. Clone helpers return copies that share no
// slices with the original so a loaded chat can be edited without touching
// the saved entry.
//
// # Usage
//
//	msgs := []model.Message{model.NewMessage(model.RoleUser, "Hello!")}
//	conv := model.NewConversation("Hello!", msgs, time.Now())
//	fmt.Println(conv.Title)
//
//	id := model.ResolveModel("claude-3") // "anthropic/claude-3-opus"
package model
