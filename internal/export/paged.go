// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/chathub/internal/util"
)

// =============================================================================
// PAGINATION
// =============================================================================

// Page is one page of a paginated transcript.
type Page struct {
	Number int
	Total  int
	Lines  []string
}

// headerLines is the title line plus a rule; footerLines is a blank line
// plus "Page N of M".
const (
	headerLines = 2
	footerLines = 2
)

// Paginate wraps the transcript to width cells and splits it into pages of
// height lines, including header and footer.
func Paginate(doc Document, opts *Options) []Page {
	opts = opts.normalized()
	body := util.WrapWidth(transcript(doc, opts), opts.PageWidth)

	perPage := opts.PageHeight - headerLines - footerLines
	if perPage < 1 {
		perPage = 1
	}

	var pages []Page
	for start := 0; start < len(body); start += perPage {
		end := start + perPage
		if end > len(body) {
			end = len(body)
		}
		// a page should not open with the blank separator line
		lines := body[start:end]
		for len(lines) > 1 && lines[0] == "" {
			lines = lines[1:]
		}
		pages = append(pages, Page{Number: len(pages) + 1, Lines: lines})
	}
	if len(pages) == 0 {
		pages = []Page{{Number: 1}}
	}
	for i := range pages {
		pages[i].Total = len(pages)
	}
	return pages
}

func pageHeader(doc Document, width int) string {
	return util.TruncateWidth(doc.Title, width)
}

func pageFooter(p Page) string {
	return fmt.Sprintf("Page %d of %d", p.Number, p.Total)
}

// =============================================================================
// PAGED TEXT EXPORTER
// =============================================================================

// PagedExporter renders the transcript as fixed-size text pages separated by
// form feeds, suitable for printing on a line printer or terminal pager.
type PagedExporter struct {
	options *Options
}

// NewPagedExporter creates a paginated text exporter.
func NewPagedExporter(opts *Options) *PagedExporter {
	return &PagedExporter{options: opts.normalized()}
}

// Export renders the paginated transcript.
func (e *PagedExporter) Export(doc Document) ([]byte, error) {
	if len(doc.Messages) == 0 {
		return nil, ErrNoMessages
	}

	width := e.options.PageWidth
	var sb strings.Builder
	for i, p := range Paginate(doc, e.options) {
		if i > 0 {
			sb.WriteString("\f")
		}
		sb.WriteString(pageHeader(doc, width))
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat("=", width))
		sb.WriteString("\n")
		for _, line := range p.Lines {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		// pad short pages so every footer sits on the same line
		for pad := len(p.Lines); pad < e.options.PageHeight-headerLines-footerLines; pad++ {
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
		footer := pageFooter(p)
		sb.WriteString(strings.Repeat(" ", max(0, width-runewidth.StringWidth(footer))))
		sb.WriteString(footer)
		sb.WriteString("\n")
	}
	return []byte(sb.String()), nil
}

func (e *PagedExporter) FileExtension() string { return ".pages.txt" }

func (e *PagedExporter) MimeType() string { return "text/plain" }
