// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/chathub/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports the complete transcript as indented JSON. Output
// always carries every field regardless of options so it can be re-imported.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	return &JSONExporter{options: opts.normalized()}
}

type jsonExport struct {
	Title      string          `json:"title"`
	CreatedAt  *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time      `json:"updatedAt,omitempty"`
	ExportedAt time.Time       `json:"exportedAt"`
	Messages   []model.Message `json:"messages"`
}

// Export converts the transcript to JSON.
func (e *JSONExporter) Export(doc Document) ([]byte, error) {
	if len(doc.Messages) == 0 {
		return nil, ErrNoMessages
	}
	out := jsonExport{
		Title:      doc.Title,
		ExportedAt: e.options.Now().UTC(),
		Messages:   doc.Messages,
	}
	if !doc.CreatedAt.IsZero() {
		out.CreatedAt = &doc.CreatedAt
	}
	if !doc.UpdatedAt.IsZero() {
		out.UpdatedAt = &doc.UpdatedAt
	}
	return json.MarshalIndent(out, "", "  ")
}

func (e *JSONExporter) FileExtension() string { return ".json" }

func (e *JSONExporter) MimeType() string { return "application/json" }
