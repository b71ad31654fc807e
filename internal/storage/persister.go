// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jeranaias/chathub/internal/model"
)

// Record keys. Each is written independently; there is no transaction
// spanning them.
const (
	KeyMessages      = "chat-messages"
	KeyHistories     = "chat-histories"
	KeyCurrentChatID = "current-chat-id"
)

// =============================================================================
// PERSISTER
// =============================================================================

// State is everything the persister stores for one user.
type State struct {
	Messages      []model.Message
	Histories     []model.Conversation
	CurrentChatID string
}

// Persister maps chat state onto the three KV records.
//
// Loads never fail: a missing record yields an empty default, and an
// unreadable one is logged and defaulted. Saves return their error but also
// log it, so callers that must not surface storage trouble can ignore it.
type Persister struct {
	kv     KV
	logger *slog.Logger
}

// NewPersister wraps kv. A nil logger uses slog.Default().
func NewPersister(kv KV, logger *slog.Logger) *Persister {
	if logger == nil {
		logger = slog.Default()
	}
	return &Persister{kv: kv, logger: logger.With("component", "storage")}
}

// KV returns the underlying backend.
func (p *Persister) KV() KV {
	return p.kv
}

// Close closes the underlying backend.
func (p *Persister) Close() error {
	return p.kv.Close()
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load reads all three records and reconciles them: empty saved chats are
// dropped and a current-chat pointer that names no saved chat is cleared.
func (p *Persister) Load() State {
	st := State{
		Messages:      p.LoadMessages(),
		Histories:     p.LoadHistories(),
		CurrentChatID: p.LoadCurrentChatID(),
	}

	if st.CurrentChatID != "" {
		found := false
		for _, h := range st.Histories {
			if h.ID == st.CurrentChatID {
				found = true
				break
			}
		}
		if !found {
			p.logger.Warn("current chat id not in history, clearing", "id", st.CurrentChatID)
			st.CurrentChatID = ""
		}
	}
	return st
}

// LoadMessages returns the active session's messages.
func (p *Persister) LoadMessages() []model.Message {
	var raw []looseMessage
	if !p.read(KeyMessages, &raw) {
		return []model.Message{}
	}
	return decodeMessages(raw, p.skipper(KeyMessages))
}

// LoadHistories returns saved chats in stored order (newest first).
func (p *Persister) LoadHistories() []model.Conversation {
	var raw []looseRecord
	if !p.read(KeyHistories, &raw) {
		return []model.Conversation{}
	}

	out := make([]model.Conversation, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		conv, ok := decodeHistory(r, p.skipper(KeyHistories))
		if !ok {
			p.logger.Warn("dropping empty saved chat", "id", r.ID)
			continue
		}
		if seen[conv.ID] {
			p.logger.Warn("dropping duplicate saved chat", "id", conv.ID)
			continue
		}
		seen[conv.ID] = true
		out = append(out, conv)
	}
	return out
}

// LoadCurrentChatID returns the saved pointer, or "" when absent.
func (p *Persister) LoadCurrentChatID() string {
	data, err := p.kv.Get(KeyCurrentChatID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			p.logger.Warn("failed to read record", "key", KeyCurrentChatID, "error", err)
		}
		return ""
	}

	// Older writers JSON-encoded the id; newer ones store it bare.
	var id string
	if json.Unmarshal(data, &id) == nil {
		return id
	}
	return string(data)
}

// read loads key into v. It reports false when the record is absent or
// unusable, logging the latter.
func (p *Persister) read(key string, v any) bool {
	data, err := p.kv.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			p.logger.Warn("failed to read record", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		p.logger.Warn("malformed record, using default", "key", key, "error", err)
		return false
	}
	return true
}

func (p *Persister) skipper(key string) func(string, error) {
	return func(id string, err error) {
		p.logger.Warn("skipping unreadable message", "key", key, "id", id, "error", err)
	}
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// SaveMessages writes the active session's messages.
func (p *Persister) SaveMessages(msgs []model.Message) error {
	data, err := encodeActive(msgs)
	if err != nil {
		return p.saveFailed(KeyMessages, err)
	}
	if err := p.kv.Set(KeyMessages, data); err != nil {
		return p.saveFailed(KeyMessages, err)
	}
	return nil
}

// SaveHistories writes the saved chat list.
func (p *Persister) SaveHistories(convs []model.Conversation) error {
	data, err := encodeHistories(convs)
	if err != nil {
		return p.saveFailed(KeyHistories, err)
	}
	if err := p.kv.Set(KeyHistories, data); err != nil {
		return p.saveFailed(KeyHistories, err)
	}
	return nil
}

// SaveCurrentChatID writes the pointer, or removes it when id is empty.
func (p *Persister) SaveCurrentChatID(id string) error {
	var err error
	if id == "" {
		err = p.kv.Delete(KeyCurrentChatID)
	} else {
		err = p.kv.Set(KeyCurrentChatID, []byte(id))
	}
	if err != nil {
		return p.saveFailed(KeyCurrentChatID, err)
	}
	return nil
}

// Save writes all three records, continuing past individual failures.
func (p *Persister) Save(st State) error {
	return errors.Join(
		p.SaveMessages(st.Messages),
		p.SaveHistories(st.Histories),
		p.SaveCurrentChatID(st.CurrentChatID),
	)
}

func (p *Persister) saveFailed(key string, err error) error {
	p.logger.Error("failed to persist record", "key", key, "error", err)
	return fmt.Errorf("save %s: %w", key, err)
}
