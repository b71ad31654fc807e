// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chathub state as three independent records in a
// key-value backend.
//
// # Key Types
//
//   - KV: backend interface with FileKV, SQLiteKV and MemoryKV implementations
//   - Persister: encodes and decodes the active messages, the saved chat
//     list and the current chat pointer
//   - State: the three records loaded together
//
// # Records
//
//	chat-messages    active session, timestamps as epoch milliseconds
//	chat-histories   saved chats, timestamps as ISO 8601 strings
//	current-chat-id  bare id string; absent when the session is unsaved
//
// Decoding is tolerant. Timestamps may be numbers, numeric strings or ISO
// strings, and the legacy "sender": "bot" field is read as the assistant
// role. Malformed records are logged and replaced by empty defaults.
//
// # Usage
//
//	kv, err := storage.Open("sqlite", dataDir)
//	p := storage.NewPersister(kv, logger)
//	st := p.Load()
//	_ = p.SaveMessages(st.Messages)
//
// # Storage Location
//
// Records live in ~/.chathub/data/ unless the config overrides data_dir.
package storage
