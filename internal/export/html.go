// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports chats to a standalone HTML page with embedded CSS.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	return &HTMLExporter{options: opts.normalized()}
}

// Export converts a chat to HTML.
func (e *HTMLExporter) Export(doc Document) ([]byte, error) {
	if len(doc.Messages) == 0 {
		return nil, ErrNoMessages
	}
	loc := e.options.Location
	title := html.EscapeString(doc.Title)

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", title))
	sb.WriteString("    <meta name=\"generator\" content=\"chathub\">\n")
	sb.WriteString(htmlCSS)
	sb.WriteString("</head>\n<body>\n    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(fmt.Sprintf("        <header><h1>%s</h1>", title))
		if !doc.CreatedAt.IsZero() {
			sb.WriteString(fmt.Sprintf("<p class=\"meta\">Created %s &middot; %d messages</p>",
				html.EscapeString(formatTimestamp(doc.CreatedAt, loc)), len(doc.Messages)))
		}
		sb.WriteString("</header>\n")
	}

	sb.WriteString("        <main>\n")
	for _, msg := range doc.Messages {
		sb.WriteString(fmt.Sprintf("            <div class=\"message %s\">\n", html.EscapeString(string(msg.Role))))
		sb.WriteString(fmt.Sprintf("                <div class=\"head\"><span class=\"role\">%s</span> <time datetime=\"%s\">%s</time></div>\n",
			html.EscapeString(msg.Role.DisplayName()),
			msg.Timestamp.UTC().Format(time.RFC3339),
			html.EscapeString(formatTimestamp(msg.Timestamp, loc))))
		sb.WriteString(fmt.Sprintf("                <div class=\"body\">%s</div>\n", html.EscapeString(msg.Content)))
		sb.WriteString("            </div>\n")
	}
	sb.WriteString("        </main>\n")

	sb.WriteString(fmt.Sprintf("        <footer>Exported from <strong>chathub</strong> on %s</footer>\n",
		e.options.Now().In(loc).Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("    </div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

func (e *HTMLExporter) FileExtension() string { return ".html" }

func (e *HTMLExporter) MimeType() string { return "text/html" }

const htmlCSS = `    <style>
        body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; background: #f7f7f8; color: #1f2328; margin: 0; }
        .container { max-width: 820px; margin: 0 auto; padding: 24px; }
        header h1 { margin: 0 0 4px; font-size: 1.5rem; }
        .meta { color: #6e7781; margin: 0 0 16px; }
        .message { border-radius: 8px; padding: 12px 16px; margin: 12px 0; }
        .message.user { background: #dbeafe; }
        .message.assistant { background: #ffffff; border: 1px solid #e5e7eb; }
        .message.system { background: #fef3c7; }
        .head { font-size: 0.8rem; color: #6e7781; margin-bottom: 6px; }
        .role { font-weight: 600; color: #1f2328; }
        .body { white-space: pre-wrap; line-height: 1.5; }
        footer { margin-top: 24px; font-size: 0.8rem; color: #6e7781; text-align: center; }
    </style>
`
