// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/jeranaias/chathub/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// ParseRole maps a stored role or sender string onto a Role. The legacy
// sender value "bot" is an alias for the assistant.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "user":
		return RoleUser, true
	case "assistant", "bot":
		return RoleAssistant, true
	case "system":
		return RoleSystem, true
	}
	return "", false
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single chat message. Messages are treated as immutable once
// appended to a session or a saved chat.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(role Role, content string) Message {
	return NewMessageAt(role, content, time.Now())
}

// NewMessageAt creates a message with an explicit timestamp.
func NewMessageAt(role Role, content string, ts time.Time) Message {
	return Message{
		ID:        NewID(),
		Content:   content,
		Role:      role,
		Timestamp: ts,
	}
}

// Preview returns a rune-safe truncated preview of the content.
func (m Message) Preview(maxLen int) string {
	return util.TruncateRunes(m.Content, maxLen)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// NewID returns a fresh identifier for a message or chat. Version 7 UUIDs
// sort by creation time, which keeps stored records in a stable order.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// CloneMessages returns an independent copy of msgs. A nil input yields an
// empty, non-nil slice so callers can serialize it as [].
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}
