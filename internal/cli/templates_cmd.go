// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/chathub/internal/templates"
)

var templateSubcommands = []string{"list", "show", "use"}

// runTemplates lists, shows or sends prompt templates. `use` sends the
// template, followed by any extra words, as a message in the active chat.
func (a *App) runTemplates(ctx context.Context) error {
	p := NewArgParser(a.Args.Raw, "new")
	sub := strings.ToLower(p.Subcommand())

	switch sub {
	case "", "list", "ls":
		if a.Args.JSON {
			return a.printJSON(CmdTemplates, templates.All())
		}
		printTemplates(a.Out)
		return nil

	case "show":
		t, err := lookupTemplate(p.Positional(1))
		if err != nil {
			return err
		}
		if a.Args.JSON {
			return a.printJSON(CmdTemplates, t)
		}
		fmt.Fprintln(a.Out, TitleStyle.Render(t.Title))
		fmt.Fprintln(a.Out, RenderField("Id", t.ID+" ("+t.Slug+")"))
		fmt.Fprintln(a.Out, RenderField("Category", t.Category))
		fmt.Fprintln(a.Out)
		fmt.Fprintln(a.Out, t.Content)
		return nil

	case "use":
		t, err := lookupTemplate(p.Positional(1))
		if err != nil {
			return err
		}
		prompt := strings.TrimSpace(t.Content + " " + strings.Join(p.PositionalFrom(2), " "))
		if err := a.requireAPIKey(); err != nil {
			return err
		}
		sess, err := a.Session()
		if err != nil {
			return err
		}
		if p.BoolFlag("new") {
			sess.StartNewChat()
		}
		return a.sendOnce(ctx, CmdTemplates, sess, prompt)

	default:
		return ErrUnknownSubcommand(CmdTemplates.String(), sub, templateSubcommands)
	}
}

func lookupTemplate(key string) (templates.Template, error) {
	if key == "" {
		return templates.Template{}, ErrMissingArgument("template", "chathub templates show code-review")
	}
	t, ok := templates.Lookup(key)
	if !ok {
		return templates.Template{}, &NotFoundError{Resource: "template", ID: key}
	}
	return t, nil
}

func printTemplates(w io.Writer) {
	category := ""
	for _, t := range templates.All() {
		if t.Category != category {
			category = t.Category
			fmt.Fprintln(w, SectionStyle.Render(category))
		}
		fmt.Fprintf(w, "  %s %-18s %s\n", DimStyle.Render(t.ID), t.Slug, DimStyle.Render(t.Preview()))
	}
}
