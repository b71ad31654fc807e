// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and execution for chathub.
//
// Every command works on the same persisted session as the interactive
// chat, so a question asked with `chathub ask` shows up in `chathub
// history`, in `chathub stats` and in the JSON API served by `chathub serve`.
//
// # Key Types
//
//   - Command: Enumeration of the CLI commands
//   - Args: Global flags plus the raw arguments for the command
//   - App: Configuration and lazily opened session shared by all commands
//   - ArgParser: Flag and positional parsing for a single command
//   - LineReader: Line input for the chat REPL (liner on a terminal)
//   - JSONResponse: Envelope printed in --json mode
//
// # Usage
//
//	cmd, args, err := cli.Parse(os.Args[1:])
//	if err != nil {
//	    cli.DisplayError(os.Stderr, err, "chathub", false)
//	    os.Exit(cli.ExitUsageError)
//	}
//	app := cli.NewApp(cfg, args, logger, cli.AppOptions{})
//	defer app.Close()
//	if err := app.Run(ctx, cmd); err != nil {
//	    cli.DisplayError(os.Stderr, err, cmd.String(), args.JSON)
//	    os.Exit(cli.GetExitCode(err))
//	}
//
// # Commands Overview
//
//   - chat: Interactive chat with slash commands (default)
//   - ask: One question in the active chat, from arguments, --file or stdin
//   - history, new: Saved chat management
//   - stats: Seven-day analytics, optionally redrawn live with --watch
//   - export: Chat transcripts as txt, pdf, pages, md, json or html
//   - templates: Prompt templates
//   - models: Model aliases, or the live OpenRouter list with --remote
//   - serve: JSON API with Prometheus metrics
//   - config: Configuration file management
//
// All commands except chat and serve support --json.
package cli
