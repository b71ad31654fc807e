// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/chathub/internal/model"
)

// isoMillis is the layout history records use for timestamps.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

var errMissingTimestamp = errors.New("missing timestamp")

// =============================================================================
// WIRE TYPES
// =============================================================================

// activeMessage is the on-disk shape of a message in the active session.
// Timestamps are epoch milliseconds.
type activeMessage struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Role      string `json:"role"`
	Timestamp int64  `json:"timestamp"`
}

// historyMessage is the on-disk shape of a message inside a saved chat.
// Timestamps are ISO 8601 strings.
type historyMessage struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Role      string `json:"role"`
	Timestamp string `json:"timestamp"`
}

type historyRecord struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Messages  []historyMessage `json:"messages"`
	CreatedAt string           `json:"createdAt"`
	UpdatedAt string           `json:"updatedAt"`
}

// looseMessage accepts every shape a message has been written in: numeric,
// numeric-string or ISO timestamps, and the older "sender" field.
type looseMessage struct {
	ID        string          `json:"id"`
	Content   string          `json:"content"`
	Role      string          `json:"role"`
	Sender    string          `json:"sender"`
	Timestamp json.RawMessage `json:"timestamp"`
}

type looseRecord struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Messages  []looseMessage  `json:"messages"`
	CreatedAt json.RawMessage `json:"createdAt"`
	UpdatedAt json.RawMessage `json:"updatedAt"`
}

// =============================================================================
// ENCODING
// =============================================================================

func encodeActive(msgs []model.Message) ([]byte, error) {
	out := make([]activeMessage, len(msgs))
	for i, m := range msgs {
		out[i] = activeMessage{
			ID:        m.ID,
			Content:   m.Content,
			Role:      string(m.Role),
			Timestamp: m.Timestamp.UnixMilli(),
		}
	}
	return json.Marshal(out)
}

func encodeHistories(convs []model.Conversation) ([]byte, error) {
	out := make([]historyRecord, len(convs))
	for i, c := range convs {
		msgs := make([]historyMessage, len(c.Messages))
		for j, m := range c.Messages {
			msgs[j] = historyMessage{
				ID:        m.ID,
				Content:   m.Content,
				Role:      string(m.Role),
				Timestamp: formatISO(m.Timestamp),
			}
		}
		out[i] = historyRecord{
			ID:        c.ID,
			Title:     c.Title,
			Messages:  msgs,
			CreatedAt: formatISO(c.CreatedAt),
			UpdatedAt: formatISO(c.UpdatedAt),
		}
	}
	return json.Marshal(out)
}

func formatISO(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

// =============================================================================
// DECODING
// =============================================================================

// decodeMessages converts loosely typed messages into model messages.
// Messages with an unknown role or an unreadable timestamp are skipped and
// reported through skip. Duplicate or missing ids are replaced so ids stay
// unique within the collection.
func decodeMessages(in []looseMessage, skip func(id string, err error)) []model.Message {
	out := make([]model.Message, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, lm := range in {
		roleName := lm.Role
		if roleName == "" {
			roleName = lm.Sender
		}
		role, ok := model.ParseRole(roleName)
		if !ok {
			skip(lm.ID, fmt.Errorf("unknown role %q", roleName))
			continue
		}
		ts, err := parseTimestamp(lm.Timestamp)
		if err != nil {
			skip(lm.ID, err)
			continue
		}
		id := lm.ID
		if id == "" || seen[id] {
			id = model.NewID()
		}
		seen[id] = true
		out = append(out, model.Message{
			ID:        id,
			Content:   lm.Content,
			Role:      role,
			Timestamp: ts,
		})
	}
	return out
}

// decodeHistory converts a loose record into a Conversation, repairing what
// can be repaired. ok is false when the record cannot satisfy the
// Conversation invariants, in which case it should be dropped.
func decodeHistory(r looseRecord, skip func(id string, err error)) (model.Conversation, bool) {
	msgs := decodeMessages(r.Messages, skip)
	if len(msgs) == 0 {
		return model.Conversation{}, false
	}

	created, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		created = msgs[0].Timestamp
	}
	updated, err := parseTimestamp(r.UpdatedAt)
	if err != nil || updated.Before(created) {
		updated = created
		if last := msgs[len(msgs)-1].Timestamp; last.After(updated) {
			updated = last
		}
	}

	id := r.ID
	if id == "" {
		id = model.NewID()
	}
	title := r.Title
	if title == "" {
		for _, m := range msgs {
			if m.Role == model.RoleUser {
				title = model.DeriveTitle(m.Content)
				break
			}
		}
	}

	return model.Conversation{
		ID:        id,
		Title:     title,
		Messages:  msgs,
		CreatedAt: created,
		UpdatedAt: updated,
	}, true
}

// parseTimestamp reads a timestamp stored as epoch milliseconds (number or
// numeric string) or as an ISO 8601 string.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, errMissingTimestamp
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("bad timestamp %s: %w", raw, err)
		}
		return parseTimestampString(s)
	}

	var ms float64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %s: %w", raw, err)
	}
	return fromMillis(ms)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestampString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errMissingTimestamp
	}
	if ms, err := strconv.ParseFloat(s, 64); err == nil {
		return fromMillis(ms)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func fromMillis(ms float64) (time.Time, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 || ms >= math.MaxInt64 {
		return time.Time{}, fmt.Errorf("timestamp %v out of range", ms)
	}
	return time.UnixMilli(int64(ms)), nil
}
