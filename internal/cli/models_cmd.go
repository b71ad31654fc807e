// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jeranaias/chathub/internal/model"
)

// remoteModelsTimeout bounds `models --remote`.
const remoteModelsTimeout = 30 * time.Second

// runModels lists the built-in model aliases, or with --remote everything
// OpenRouter currently offers. The model in use is marked.
func (a *App) runModels(ctx context.Context) error {
	p := NewArgParser(a.Args.Raw, "remote")
	current := a.Client.Model()

	var rows []ModelData
	if p.BoolFlag("remote") {
		ctx, cancel := context.WithTimeout(ctx, remoteModelsTimeout)
		defer cancel()
		remote, err := a.Client.ListModels(ctx)
		if err != nil {
			return err
		}
		for _, m := range remote {
			rows = append(rows, ModelData{ID: m.ID, Name: m.Name, Context: m.ContextSize, Current: m.ID == current})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	} else {
		for _, alias := range model.ModelAliases() {
			info := model.Models[alias]
			rows = append(rows, ModelData{
				Alias:   alias,
				ID:      info.ID,
				Name:    info.Name,
				Context: info.MaxTokens,
				Current: info.ID == current,
			})
		}
	}

	if a.Args.JSON {
		return a.printJSON(CmdModels, rows)
	}

	fmt.Fprintln(a.Out, TitleStyle.Render("Models"))
	for _, r := range rows {
		marker := "  "
		if r.Current {
			marker = HighlightStyle.Render("* ")
		}
		name := r.ID
		if r.Alias != "" {
			name = fmt.Sprintf("%-16s %s", r.Alias, DimStyle.Render(r.ID))
		}
		ctxLen := ""
		if r.Context > 0 {
			ctxLen = DimStyle.Render(fmt.Sprintf("  %dK ctx", r.Context/1000))
		}
		fmt.Fprintf(a.Out, "%s%s%s\n", marker, name, ctxLen)
	}
	if !a.Args.Quiet {
		fmt.Fprintln(a.Out)
		fmt.Fprintln(a.Out, DimStyle.Render("Use -m <alias|id> for one run, or `chathub config set model <alias|id>`."))
	}
	return nil
}
