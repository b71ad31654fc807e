// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"strings"
)

// =============================================================================
// TEXT EXPORTER
// =============================================================================

// TextExporter renders a plain transcript: one "[time] ROLE: content" entry
// per message, entries separated by a blank line.
type TextExporter struct {
	options *Options
}

// NewTextExporter creates a plain-text exporter.
func NewTextExporter(opts *Options) *TextExporter {
	return &TextExporter{options: opts.normalized()}
}

// Export renders the transcript.
func (e *TextExporter) Export(doc Document) ([]byte, error) {
	if len(doc.Messages) == 0 {
		return nil, ErrNoMessages
	}
	return []byte(transcript(doc, e.options)), nil
}

func (e *TextExporter) FileExtension() string { return ".txt" }

func (e *TextExporter) MimeType() string { return "text/plain" }

// transcript is the shared body of the text and paginated formats.
func transcript(doc Document, opts *Options) string {
	entries := make([]string, len(doc.Messages))
	for i, m := range doc.Messages {
		entries[i] = "[" + formatTimestamp(m.Timestamp, opts.Location) + "] " +
			roleLabel(m.Role) + ": " + m.Content
	}
	return strings.Join(entries, "\n\n")
}
