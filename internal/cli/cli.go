// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command line parsing and dispatch for chathub.
package cli

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdAsk
	CmdModels
	CmdHistory
	CmdNew
	CmdStats
	CmdExport
	CmdTemplates
	CmdServe
	CmdConfig
	CmdVersion
	CmdHelp
)

var commandNames = map[Command]string{
	CmdChat:      "chat",
	CmdAsk:       "ask",
	CmdModels:    "models",
	CmdHistory:   "history",
	CmdNew:       "new",
	CmdStats:     "stats",
	CmdExport:    "export",
	CmdTemplates: "templates",
	CmdServe:     "serve",
	CmdConfig:    "config",
	CmdVersion:   "version",
	CmdHelp:      "help",
}

// String returns the command's name as typed on the command line.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// commandAliases maps every accepted spelling to its command.
var commandAliases = map[string]Command{
	"chat":      CmdChat,
	"ask":       CmdAsk,
	"models":    CmdModels,
	"model":     CmdModels,
	"history":   CmdHistory,
	"chats":     CmdHistory,
	"new":       CmdNew,
	"stats":     CmdStats,
	"analytics": CmdStats,
	"export":    CmdExport,
	"templates": CmdTemplates,
	"template":  CmdTemplates,
	"serve":     CmdServe,
	"server":    CmdServe,
	"config":    CmdConfig,
	"version":   CmdVersion,
	"help":      CmdHelp,
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet      bool
	Verbose    bool
	JSON       bool
	Model      string
	ConfigPath string

	// Raw holds the arguments after the command name, for the command's own
	// ArgParser.
	Raw []string
}

const usageText = `chathub - chat with OpenRouter models from the terminal

Usage:
  chathub                              Interactive chat (default)
  chathub ask "question"               Ask one question in the active chat
  chathub models [--remote]            List known models
  chathub history [list|show|load|rename|delete]
                                       Manage saved chats
  chathub new                          Start a new chat
  chathub stats [--watch]              Seven-day usage analytics
  chathub export [--format F] [--out DIR] [--chat ID] [--stdout]
                                       Export a chat (txt, pdf, pages, md, json, html)
  chathub templates [show|use] [ID]    Prompt templates
  chathub serve [--addr HOST:PORT]     Serve the JSON API
  chathub config [show|path|init|get|set|keys]
                                       Configuration
  chathub version                      Version information

Global flags:
  -m, --model NAME    Model alias or OpenRouter id for this run
  --config PATH       Config file (default ~/.chathub/config.toml)
  --json              Machine-readable output
  -q, --quiet         Minimal output
  -v, --verbose       Debug logging

Environment:
  CHATHUB_API_KEY or OPENROUTER_API_KEY   OpenRouter API key

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "chathub version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:         %s\n", runtime.Version())
}

// Parse parses command-line arguments (without the program name).
// Unknown commands are reported with a suggestion when one is close.
func Parse(argv []string) (Command, Args, error) {
	remaining, args := parseGlobalFlags(argv)
	if len(remaining) == 0 {
		return CmdChat, args, nil
	}

	name := strings.ToLower(remaining[0])
	args.Raw = remaining[1:]

	switch name {
	case "-h", "--help":
		return CmdHelp, args, nil
	case "--version":
		return CmdVersion, args, nil
	}
	if cmd, ok := commandAliases[name]; ok {
		return cmd, args, nil
	}

	err := &ValidationError{Field: "command", Value: remaining[0], Reason: "unknown command"}
	if s := SuggestCommand(name); s != "" {
		err.Example = "chathub " + s
	}
	return CmdHelp, args, err
}

// parseGlobalFlags extracts global flags from args and returns the rest.
// Global flags may appear before or after the command name.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var (
		remaining []string
		args      Args
	)
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch arg {
		case "-q", "--quiet":
			args.Quiet = true
		case "-v", "--verbose":
			args.Verbose = true
		case "--json":
			args.JSON = true
		case "-m", "--model", "--config":
			if i+1 < len(argv) {
				i++
				if arg == "--config" {
					args.ConfigPath = argv[i]
				} else {
					args.Model = argv[i]
				}
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--model="):
				args.Model = strings.TrimPrefix(arg, "--model=")
			case strings.HasPrefix(arg, "--config="):
				args.ConfigPath = strings.TrimPrefix(arg, "--config=")
			default:
				remaining = append(remaining, arg)
			}
		}
	}
	return remaining, args
}

// =============================================================================
// DISPATCH
// =============================================================================

// Run executes cmd. Errors are returned for the caller to display; see
// DisplayError and GetExitCode.
func (a *App) Run(ctx context.Context, cmd Command) error {
	switch cmd {
	case CmdChat:
		return a.runChat(ctx)
	case CmdAsk:
		return a.runAsk(ctx)
	case CmdModels:
		return a.runModels(ctx)
	case CmdHistory:
		return a.runHistory(ctx)
	case CmdNew:
		return a.runNew()
	case CmdStats:
		return a.runStats(ctx)
	case CmdExport:
		return a.runExport()
	case CmdTemplates:
		return a.runTemplates(ctx)
	case CmdServe:
		return a.runServe(ctx)
	case CmdConfig:
		return a.runConfig()
	case CmdVersion:
		return a.runVersion()
	default:
		PrintUsage(a.Out)
		return nil
	}
}

func (a *App) runVersion() error {
	if a.Args.JSON {
		return a.printJSON(CmdVersion, VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		})
	}
	PrintVersion(a.Out)
	return nil
}
