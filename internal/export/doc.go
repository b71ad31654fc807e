// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders chat transcripts into downloadable files.
//
// Every format refuses an empty transcript with ErrNoMessages so callers can
// report "nothing to export" without writing a file.
//
// # Key Types
//
//   - Exporter: Format interface (Export, FileExtension, MimeType)
//   - Document: Transcript plus optional saved-chat metadata
//   - Options: Output directory, time zone, page geometry
//   - Page: One page of a paginated transcript
//
// # Supported Formats
//
//   - txt: "[time] ROLE: content" entries separated by blank lines
//   - pdf: The same transcript wrapped and paginated onto A4 pages
//   - pages: The paginated transcript as form-feed separated text
//   - md, json, html: Richer renderings of the same messages
//
// # Usage
//
//	exp, err := export.ByFormat("txt", nil)
//	path, err := export.ExportToFile(export.FromMessages(msgs), exp, nil)
//	// path is ./chat-export-<unix-ms>.txt
package export
