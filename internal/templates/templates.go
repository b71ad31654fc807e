// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package templates

import (
	"strings"

	"github.com/jeranaias/chathub/internal/util"
)

// PreviewRunes is how much of a template's content a listing shows.
const PreviewRunes = 50

// Template is a canned prompt the user can start a message from.
type Template struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

// Preview returns the start of the prompt for listings.
func (t Template) Preview() string {
	return util.PrefixRunes(t.Content, PreviewRunes, "...")
}

var builtin = []Template{
	{
		ID:       "1",
		Slug:     "code-review",
		Title:    "Code Review",
		Category: "Development",
		Content:  "Please review this code and suggest improvements for better performance and readability:",
	},
	{
		ID:       "2",
		Slug:     "creative-writing",
		Title:    "Creative Writing",
		Category: "Creative",
		Content:  "Write a creative story about a programmer who discovers their code can alter reality. Make it engaging and include unexpected plot twists.",
	},
	{
		ID:       "3",
		Slug:     "explain-concept",
		Title:    "Explain Concept",
		Category: "Learning",
		Content:  "Explain React hooks in simple terms with practical examples that a beginner can understand.",
	},
	{
		ID:       "4",
		Slug:     "debug-help",
		Title:    "Debug Help",
		Category: "Development",
		Content:  "I'm getting an error in my code. Can you help me debug and fix this issue:",
	},
}

// All returns a copy of the built-in templates in display order.
func All() []Template {
	out := make([]Template, len(builtin))
	copy(out, builtin)
	return out
}

// Lookup finds a template by id, slug or title. Slug and title matching
// ignore case.
func Lookup(key string) (Template, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Template{}, false
	}
	for _, t := range builtin {
		if t.ID == key || strings.EqualFold(t.Slug, key) || strings.EqualFold(t.Title, key) {
			return t, true
		}
	}
	return Template{}, false
}
