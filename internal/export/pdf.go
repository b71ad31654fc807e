// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// =============================================================================
// PDF EXPORTER
// =============================================================================

// PDF layout in millimetres. Courier at 10pt is 2.117mm per cell, so the
// default 80-column page fills the 190mm text width of A4.
const (
	pdfMargin     = 10.0
	pdfFontSize   = 10.0
	pdfLineHeight = 4.2
)

// PDFExporter renders the paginated transcript as an A4 PDF, one
// Paginate page per PDF page.
type PDFExporter struct {
	options *Options
}

// NewPDFExporter creates a PDF exporter.
func NewPDFExporter(opts *Options) *PDFExporter {
	return &PDFExporter{options: opts.normalized()}
}

// Export renders the document.
func (e *PDFExporter) Export(doc Document) ([]byte, error) {
	if len(doc.Messages) == 0 {
		return nil, ErrNoMessages
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("chathub", true)
	pdf.SetCreationDate(e.options.Now())

	// Core fonts are cp1252; the translator maps what it can and drops the rest.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	_, pageHeight := pdf.GetPageSize()

	for _, p := range Paginate(doc, e.options) {
		pdf.AddPage()

		pdf.SetFont("Courier", "B", pdfFontSize)
		pdf.CellFormat(0, pdfLineHeight, tr(pageHeader(doc, e.options.PageWidth)), "B", 1, "L", false, 0, "")
		pdf.Ln(pdfLineHeight / 2)

		pdf.SetFont("Courier", "", pdfFontSize)
		for _, line := range p.Lines {
			pdf.CellFormat(0, pdfLineHeight, tr(line), "", 1, "L", false, 0, "")
		}

		pdf.SetY(pageHeight - pdfMargin - pdfLineHeight)
		pdf.SetFont("Courier", "I", pdfFontSize-2)
		pdf.CellFormat(0, pdfLineHeight, pageFooter(p), "", 0, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) FileExtension() string { return ".pdf" }

func (e *PDFExporter) MimeType() string { return "application/pdf" }
