// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// ChatState is the active, possibly unsaved, session.
type ChatState struct {
	Messages  []Message `json:"messages"`
	IsLoading bool      `json:"isLoading"`
	Error     string    `json:"error,omitempty"`
}

// Clone returns a copy that shares no backing storage with s.
func (s ChatState) Clone() ChatState {
	s.Messages = CloneMessages(s.Messages)
	return s
}

// LastUserMessage returns the most recent user message in the session.
func (s ChatState) LastUserMessage() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}
