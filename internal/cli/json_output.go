// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - Machine-readable output for --json mode.
package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/jeranaias/chathub/internal/model"
)

// JSONResponse is the envelope every command prints in --json mode.
type JSONResponse struct {
	Success bool `json:"success"`

	// Data contains the command-specific payload.
	Data any `json:"data"`

	// Error is set when Success is false.
	Error *string `json:"error"`

	Timestamp string `json:"timestamp"`
	Command   string `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a failed response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the response as indented JSON.
func (r *JSONResponse) Print(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// VersionData is returned by the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// AskData is returned by the ask and templates use commands.
type AskData struct {
	Prompt     string `json:"prompt"`
	Response   string `json:"response"`
	Model      string `json:"model"`
	ChatID     string `json:"chat_id"`
	DurationMs int64  `json:"duration_ms"`
}

// ChatListData is returned by history list.
type ChatListData struct {
	Chats         []model.ConversationMeta `json:"chats"`
	CurrentChatID string                   `json:"current_chat_id"`
}

// ExportData is returned by export.
type ExportData struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	ChatID string `json:"chat_id,omitempty"`
}

// ModelData describes one entry of the models listing.
type ModelData struct {
	Alias   string `json:"alias,omitempty"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Context int    `json:"context_length"`
	Current bool   `json:"current"`
}
