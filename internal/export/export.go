// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jeranaias/chathub/internal/model"
	"github.com/jeranaias/chathub/internal/util"
)

// ErrNoMessages is returned when there is nothing to export.
var ErrNoMessages = errors.New("no messages to export")

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a chat transcript into a downloadable format.
type Exporter interface {
	// Export renders doc. It returns ErrNoMessages for an empty transcript.
	Export(doc Document) ([]byte, error)

	// FileExtension returns the file extension, including the dot.
	FileExtension() string

	// MimeType returns the MIME type of the rendered output.
	MimeType() string
}

// Document is the input to every exporter: an ordered transcript plus
// optional metadata from a saved chat.
type Document struct {
	Title     string
	Messages  []model.Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FromMessages wraps the active session's messages.
func FromMessages(msgs []model.Message) Document {
	doc := Document{Title: "Chat Export", Messages: msgs}
	if len(msgs) > 0 {
		doc.CreatedAt = msgs[0].Timestamp
		doc.UpdatedAt = msgs[len(msgs)-1].Timestamp
	}
	return doc
}

// FromConversation wraps a saved chat.
func FromConversation(c model.Conversation) Document {
	return Document{
		Title:     c.GetTitle(),
		Messages:  c.Messages,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is where ExportToFile writes. Default: current directory.
	OutputDir string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata adds a title/date header where the format has one.
	IncludeMetadata bool

	// Location is the zone timestamps are rendered in. Default: time.Local.
	Location *time.Location

	// PageWidth and PageHeight size the paginated formats, in terminal
	// cells and lines.
	PageWidth  int
	PageHeight int

	// Now stamps file names and footers. Default: time.Now.
	Now func() time.Time
}

// Default page geometry: 80 columns of Courier fit an A4 page with 10mm
// margins.
const (
	DefaultPageWidth  = 80
	DefaultPageHeight = 60
)

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		IncludeMetadata: true,
		Location:        time.Local,
		PageWidth:       DefaultPageWidth,
		PageHeight:      DefaultPageHeight,
		Now:             time.Now,
	}
}

func (o *Options) normalized() *Options {
	d := DefaultOptions()
	if o == nil {
		return d
	}
	out := *o
	if out.OutputDir == "" {
		out.OutputDir = d.OutputDir
	}
	if out.Location == nil {
		out.Location = d.Location
	}
	if out.PageWidth <= 0 {
		out.PageWidth = d.PageWidth
	}
	if out.PageHeight <= 0 {
		out.PageHeight = d.PageHeight
	}
	if out.Now == nil {
		out.Now = d.Now
	}
	return &out
}

// =============================================================================
// FORMAT REGISTRY
// =============================================================================

// Formats lists the names accepted by ByFormat.
var Formats = []string{"txt", "pdf", "pages", "md", "json", "html"}

// ByFormat returns the exporter for a format name.
func ByFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "txt", "text", "":
		return NewTextExporter(opts), nil
	case "pdf":
		return NewPDFExporter(opts), nil
	case "pages", "paged":
		return NewPagedExporter(opts), nil
	case "md", "markdown":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// FileName returns the download name for an export made at now.
func FileName(exporter Exporter, now time.Time) string {
	return fmt.Sprintf("chat-export-%d%s", now.UnixMilli(), exporter.FileExtension())
}

// ExportToFile renders doc and writes it into opts.OutputDir. It returns the
// written path. Nothing is written when doc has no messages.
func ExportToFile(doc Document, exporter Exporter, opts *Options) (string, error) {
	opts = opts.normalized()

	content, err := exporter.Export(doc)
	if err != nil {
		return "", err
	}

	outputPath := filepath.Join(opts.OutputDir, FileName(exporter, opts.Now()))
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil {
			// the file exists; failing to open it is not an export failure
			return outputPath, nil
		}
	}
	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}

// formatTimestamp renders a message time the way a US-locale browser does,
// e.g. "3/4/2025, 2:05:09 PM".
func formatTimestamp(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("1/2/2006, 3:04:05 PM")
}

// roleLabel is the upper-case speaker tag used in transcripts.
func roleLabel(r model.Role) string {
	if r == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(string(r))
}
