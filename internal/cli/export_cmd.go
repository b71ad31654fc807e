// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export_cmd.go - Chat export.
//
//	chathub export                          active chat as text in the current directory
//	chathub export --format pdf --out ~/Documents
//	chathub export --chat 3f2a --format md  a saved chat
//	chathub export --format json --stdout   write to stdout instead of a file
//	chathub export --open                   open the file afterwards
package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/chathub/internal/export"
)

func (a *App) runExport() error {
	p := NewArgParser(a.Args.Raw, "open", "stdout")

	format := strings.ToLower(p.Flag("format", "f"))
	if format == "" {
		format = "txt"
	}
	opts := a.exportOptions()
	if dir := p.Flag("out", "o"); dir != "" {
		opts.OutputDir = dir
	}
	opts.OpenAfterExport = p.BoolFlag("open")

	exp, err := export.ByFormat(format, opts)
	if err != nil {
		return unsupportedFormat(format)
	}

	sess, err := a.Session()
	if err != nil {
		return err
	}

	chatID := ""
	if ref := p.Flag("chat", "c"); ref != "" {
		c, err := resolveChat(sess.Histories(), ref)
		if err != nil {
			return err
		}
		chatID = c.ID
	}

	if p.BoolFlag("stdout") {
		out, err := sess.Render(chatID, exp)
		if err != nil {
			return err
		}
		_, err = a.Out.Write(out)
		return err
	}

	path, err := sess.ExportFile(chatID, exp, opts)
	if err != nil {
		return err
	}
	if a.Args.JSON {
		return a.printJSON(CmdExport, ExportData{Path: path, Format: format, ChatID: chatID})
	}
	if a.Args.Quiet {
		fmt.Fprintln(a.Out, path)
		return nil
	}
	fmt.Fprintln(a.Out, RenderField("Saved to", path))
	return nil
}

// exportOptions applies the UI page geometry and the app clock.
func (a *App) exportOptions() *export.Options {
	opts := export.DefaultOptions()
	opts.PageWidth = a.Config.UI.PageWidth
	opts.PageHeight = a.Config.UI.PageHeight
	opts.Location = a.opts.Location
	opts.Now = a.opts.Now
	return opts
}

func unsupportedFormat(format string) error {
	return &ValidationError{
		Field:   "format",
		Value:   format,
		Reason:  "unsupported export format",
		Example: "--format " + strings.Join(export.Formats, "|"),
	}
}
