// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Formatting and lookup helpers shared by CLI commands.
package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/chathub/internal/model"
	"github.com/jeranaias/chathub/internal/util"
)

// MaxFileSize is the largest file ask --file will attach.
const MaxFileSize = 50 * 1024

// formatAge renders how long ago t was, relative to now.
func formatAge(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// formatDurationShort formats a latency for display.
func formatDurationShort(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

// formatMillis formats a millisecond figure from the analytics snapshot.
func formatMillis(ms float64) string {
	return formatDurationShort(time.Duration(ms * float64(time.Millisecond)))
}

// shortID returns the leading part of an id, enough to type back.
func shortID(id string) string {
	return util.TruncateRunes(id, 8)
}

// readFileForContext reads path and wraps it for inclusion in a prompt.
func readFileForContext(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &NotFoundError{Resource: "file", ID: path}
		}
		return "", fmt.Errorf("cannot access file: %w", err)
	}
	if info.Size() > MaxFileSize {
		return "", &ValidationError{
			Field:  "file",
			Value:  path,
			Reason: fmt.Sprintf("too large: %d bytes (max %d bytes)", info.Size(), MaxFileSize),
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n--- File: %s ---\n", path)
	b.Write(content)
	b.WriteString("\n--- End of file ---\n")
	return b.String(), nil
}

// resolveChat finds a saved chat by full id or unique id prefix.
func resolveChat(chats []model.Conversation, ref string) (model.Conversation, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Conversation{}, ErrMissingArgument("chat id", "chathub history show <id>")
	}

	var matches []model.Conversation
	for _, c := range chats {
		if c.ID == ref {
			return c, nil
		}
		if strings.HasPrefix(c.ID, ref) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return model.Conversation{}, &NotFoundError{Resource: "chat", ID: ref}
	case 1:
		return matches[0], nil
	default:
		return model.Conversation{}, &ValidationError{
			Field:  "chat id",
			Value:  ref,
			Reason: fmt.Sprintf("prefix matches %d chats", len(matches)),
		}
	}
}
