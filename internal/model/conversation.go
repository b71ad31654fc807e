// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/jeranaias/chathub/internal/util"
)

// TitleMaxRunes is how much of the first user message becomes a chat title.
const TitleMaxRunes = 30

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is a saved chat in the history list.
//
// Invariants: Messages is never empty and UpdatedAt is never before
// CreatedAt. The session layer creates a Conversation only after the first
// exchange completes, and storage drops entries that violate either rule.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewConversation creates a saved chat seeded with a copy of msgs. The title
// is derived from trigger, the user message that completed the first
// exchange.
func NewConversation(trigger string, msgs []Message, now time.Time) Conversation {
	return Conversation{
		ID:        NewID(),
		Title:     DeriveTitle(trigger),
		Messages:  CloneMessages(msgs),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds msgs to the end of the chat and bumps UpdatedAt.
func (c *Conversation) Append(now time.Time, msgs ...Message) {
	c.Messages = append(c.Messages, msgs...)
	if now.Before(c.CreatedAt) {
		now = c.CreatedAt
	}
	c.UpdatedAt = now
}

// Clone returns a deep copy of the conversation.
func (c Conversation) Clone() Conversation {
	c.Messages = CloneMessages(c.Messages)
	return c
}

// MessageCount returns the number of messages.
func (c Conversation) MessageCount() int {
	return len(c.Messages)
}

// Valid reports whether the conversation satisfies its invariants.
func (c Conversation) Valid() bool {
	return c.ID != "" && len(c.Messages) > 0 && !c.UpdatedAt.Before(c.CreatedAt)
}

// GetTitle returns the title or a placeholder.
func (c Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New Chat"
}

// Preview returns a short preview of the last user message.
func (c Conversation) Preview() string {
	if len(c.Messages) == 0 {
		return "Empty conversation"
	}
	last := c.Messages[0]
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			last = c.Messages[i]
			break
		}
	}
	return last.Preview(100)
}

// GetMeta returns listing metadata for the conversation.
func (c Conversation) GetMeta() ConversationMeta {
	return ConversationMeta{
		ID:           c.ID,
		Title:        c.GetTitle(),
		MessageCount: len(c.Messages),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		Preview:      c.Preview(),
	}
}

// ConversationMeta holds lightweight metadata for listing.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Preview      string    `json:"preview"`
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// DeriveTitle builds a chat title from the first 30 characters of content,
// followed by "..." when the content is longer.
func DeriveTitle(content string) string {
	return util.PrefixRunes(strings.TrimSpace(content), TitleMaxRunes, "...")
}

// CloneConversations deep-copies a history list.
func CloneConversations(in []Conversation) []Conversation {
	out := make([]Conversation, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
