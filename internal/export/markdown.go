// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/chathub/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports chats to Markdown with optional YAML front matter.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	return &MarkdownExporter{options: opts.normalized()}
}

// Export converts a chat to Markdown.
func (e *MarkdownExporter) Export(doc Document) ([]byte, error) {
	if len(doc.Messages) == 0 {
		return nil, ErrNoMessages
	}
	loc := e.options.Location

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(doc.Title)))
		if !doc.CreatedAt.IsZero() {
			sb.WriteString(fmt.Sprintf("date: %s\n", doc.CreatedAt.In(loc).Format(time.RFC3339)))
		}
		if !doc.UpdatedAt.IsZero() {
			sb.WriteString(fmt.Sprintf("updated: %s\n", doc.UpdatedAt.In(loc).Format(time.RFC3339)))
		}
		sb.WriteString(fmt.Sprintf("messages: %d\n", len(doc.Messages)))
		sb.WriteString(fmt.Sprintf("exported: %s\n", e.options.Now().In(loc).Format(time.RFC3339)))
		sb.WriteString("generator: chathub\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(doc.Title)))

	for i, msg := range doc.Messages {
		sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n",
			markdownRoleLabel(msg.Role), msg.Timestamp.In(loc).Format("2006-01-02 15:04:05")))
		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")
		if i < len(doc.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

func (e *MarkdownExporter) FileExtension() string { return ".md" }

func (e *MarkdownExporter) MimeType() string { return "text/markdown" }

func markdownRoleLabel(role model.Role) string {
	switch role {
	case model.RoleUser:
		return "[User]"
	case model.RoleAssistant:
		return "[Assistant]"
	case model.RoleSystem:
		return "[System]"
	case "":
		return "Unknown"
	default:
		return string(role)
	}
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break a heading.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("#", `\#`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`)
	return r.Replace(s)
}

// escapeYAML quotes a scalar when it contains YAML syntax or newlines.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)
		return `"` + r.Replace(s) + `"`
	}
	return s
}
