// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/jeranaias/chathub/internal/server"
)

// runServe exposes the session over HTTP until ctx is cancelled.
//
//	chathub serve [--addr HOST:PORT] [--rate N] [--cors]
//
// --rate caps API requests per client per minute; 0 keeps the default and
// --rate=-1 disables the limit. --cors allows the local dev-server origins.
func (a *App) runServe(ctx context.Context) error {
	p := NewArgParser(a.Args.Raw, "cors")

	if err := a.requireAPIKey(); err != nil {
		return err
	}

	// Metrics must exist before the session so generations are measured.
	a.metrics = server.NewMetrics()
	sess, err := a.Session()
	if err != nil {
		return err
	}

	rate := 0
	if p.HasFlag("rate") {
		if rate, err = p.FlagInt("rate"); err != nil {
			return &ValidationError{Field: "rate", Value: p.Flag("rate"), Reason: "expected an integer", Example: "--rate 60"}
		}
	}

	opts := server.Options{
		Addr:              p.FlagOrDefault("addr", a.Config.Server.Addr),
		Version:           Version,
		Logger:            a.Logger.With("component", "server"),
		Metrics:           a.metrics,
		RequestsPerMinute: rate,
		Location:          a.opts.Location,
		Now:               a.opts.Now,
	}
	if p.BoolFlag("cors") {
		opts.CORS = server.DefaultCORSConfig()
	}

	srv := server.New(sess, opts)
	if !a.Args.Quiet && !a.Args.JSON {
		fmt.Fprintf(a.Out, "%s http://%s\n", SuccessStyle.Render("Serving on"), srv.Addr())
		fmt.Fprintln(a.Out, DimStyle.Render("Model "+a.Client.Model()+". Ctrl+C to stop."))
	}
	return srv.Start(ctx)
}
