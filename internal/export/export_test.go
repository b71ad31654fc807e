// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chathub/internal/model"
)

var (
	testZone = time.FixedZone("EST", -5*3600)
	testNow  = time.Date(2025, 3, 4, 19, 0, 0, 0, time.UTC)
)

func testOptions(dir string) *Options {
	return &Options{
		OutputDir:       dir,
		IncludeMetadata: true,
		Location:        testZone,
		Now:             func() time.Time { return testNow },
	}
}

func testDoc() Document {
	t0 := time.Date(2025, 3, 4, 19, 5, 9, 0, time.UTC)
	return FromMessages([]model.Message{
		model.NewMessageAt(model.RoleUser, "Hello there", t0),
		model.NewMessageAt(model.RoleAssistant, "Hi! How can I help?", t0.Add(2*time.Second)),
	})
}

// =============================================================================
// TEXT
// =============================================================================

func TestTextExporter_Transcript(t *testing.T) {
	out, err := NewTextExporter(testOptions("")).Export(testDoc())
	require.NoError(t, err)

	want := "[3/4/2025, 2:05:09 PM] USER: Hello there\n\n" +
		"[3/4/2025, 2:05:11 PM] ASSISTANT: Hi! How can I help?"
	assert.Equal(t, want, string(out))
}

func TestExporters_RejectEmptyTranscript(t *testing.T) {
	for _, format := range Formats {
		t.Run(format, func(t *testing.T) {
			exp, err := ByFormat(format, nil)
			require.NoError(t, err)

			_, err = exp.Export(FromMessages(nil))
			assert.True(t, errors.Is(err, ErrNoMessages))
		})
	}
}

func TestByFormat(t *testing.T) {
	tests := []struct {
		format string
		ext    string
	}{
		{"", ".txt"},
		{"txt", ".txt"},
		{"TEXT", ".txt"},
		{".pdf", ".pdf"},
		{"pages", ".pages.txt"},
		{"markdown", ".md"},
		{"json", ".json"},
		{"htm", ".html"},
	}
	for _, tt := range tests {
		exp, err := ByFormat(tt.format, nil)
		require.NoError(t, err, tt.format)
		assert.Equal(t, tt.ext, exp.FileExtension(), tt.format)
	}

	_, err := ByFormat("docx", nil)
	assert.Error(t, err)
}

// =============================================================================
// FILES
// =============================================================================

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(dir)

	path, err := ExportToFile(testDoc(), NewTextExporter(opts), opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "chat-export-1741114800000.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "[3/4/2025, 2:05:09 PM] USER:"))
}

func TestExportToFile_EmptyWritesNothing(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(dir)

	_, err := ExportToFile(FromMessages(nil), NewPDFExporter(opts), opts)
	require.ErrorIs(t, err, ErrNoMessages)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// =============================================================================
// PAGINATION
// =============================================================================

func TestPaginate_SplitsLongTranscripts(t *testing.T) {
	var msgs []model.Message
	ts := testNow
	for i := 0; i < 40; i++ {
		msgs = append(msgs, model.NewMessageAt(model.RoleUser, strings.Repeat("word ", 30), ts))
		ts = ts.Add(time.Second)
	}
	opts := testOptions("")
	opts.PageWidth = 40
	opts.PageHeight = 20

	pages := Paginate(FromMessages(msgs), opts)
	require.Greater(t, len(pages), 1)

	for i, p := range pages {
		assert.Equal(t, i+1, p.Number)
		assert.Equal(t, len(pages), p.Total)
		assert.LessOrEqual(t, len(p.Lines), 20-headerLines-footerLines)
		assert.NotEqual(t, "", p.Lines[0], "page %d opens with a blank line", p.Number)
		for _, line := range p.Lines {
			assert.LessOrEqual(t, len([]rune(line)), 40)
		}
	}
}

func TestPagedExporter_FormFeeds(t *testing.T) {
	opts := testOptions("")
	opts.PageHeight = 6 // two body lines per page

	out, err := NewPagedExporter(opts).Export(testDoc())
	require.NoError(t, err)

	pages := strings.Split(string(out), "\f")
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0], "Page 1 of 2")
	assert.Contains(t, pages[1], "Page 2 of 2")
	assert.True(t, strings.HasPrefix(pages[0], "Chat Export\n"))
}

func TestPDFExporter(t *testing.T) {
	exp := NewPDFExporter(testOptions(""))
	out, err := exp.Export(testDoc())
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Equal(t, "application/pdf", exp.MimeType())
}

// =============================================================================
// RICH FORMATS
// =============================================================================

func TestMarkdownExporter(t *testing.T) {
	doc := testDoc()
	doc.Title = "Plans: week #1"

	out, err := NewMarkdownExporter(testOptions("")).Export(doc)
	require.NoError(t, err)

	md := string(out)
	assert.True(t, strings.HasPrefix(md, "---\ntitle: \"Plans: week #1\"\n"))
	assert.Contains(t, md, "# Plans: week \\#1")
	assert.Contains(t, md, "### [User]")
	assert.Contains(t, md, "Hi! How can I help?")
}

func TestJSONExporter(t *testing.T) {
	doc := testDoc()
	out, err := NewJSONExporter(testOptions("")).Export(doc)
	require.NoError(t, err)

	var decoded struct {
		Title    string          `json:"title"`
		Messages []model.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "Chat Export", decoded.Title)
	require.Len(t, decoded.Messages, 2)
	assert.Equal(t, doc.Messages[0].ID, decoded.Messages[0].ID)
	assert.True(t, doc.Messages[1].Timestamp.Equal(decoded.Messages[1].Timestamp))
}

func TestHTMLExporter_Escapes(t *testing.T) {
	doc := FromMessages([]model.Message{
		model.NewMessageAt(model.RoleUser, "<script>alert(1)</script>", testNow),
	})
	out, err := NewHTMLExporter(testOptions("")).Export(doc)
	require.NoError(t, err)

	assert.NotContains(t, string(out), "<script>alert")
	assert.Contains(t, string(out), "&lt;script&gt;")
}

func TestFromConversation(t *testing.T) {
	c := model.NewConversation("What is Go?", testDoc().Messages, testNow)
	doc := FromConversation(c)
	assert.Equal(t, "What is Go?", doc.Title)
	assert.Len(t, doc.Messages, 2)
	assert.Equal(t, testNow, doc.CreatedAt)
}
