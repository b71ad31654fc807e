// chathub - chat with OpenRouter models from the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/chathub/internal/cli"
	"github.com/jeranaias/chathub/internal/config"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	cmd, args, err := cli.Parse(os.Args[1:])
	if err != nil {
		cli.DisplayError(os.Stderr, err, "chathub", args.JSON)
		if !args.JSON {
			fmt.Fprintln(os.Stderr)
			cli.PrintUsage(os.Stderr)
		}
		return cli.ExitUsageError
	}

	cfg, err := loadConfig(args.ConfigPath)
	if err != nil {
		// config, help and version still run with a broken config file
		switch cmd {
		case cli.CmdConfig, cli.CmdHelp, cli.CmdVersion:
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			cfg = config.Default()
		default:
			cli.DisplayError(os.Stderr, err, cmd.String(), args.JSON)
			return cli.ExitConfigError
		}
	}

	level := cfg.LogLevel
	if args.Verbose {
		level = "debug"
	}
	logger := setupLogging(level)

	sigs := []os.Signal{os.Interrupt, syscall.SIGTERM}
	if cmd == cli.CmdChat {
		// the REPL handles Ctrl+C itself, per request
		sigs = []os.Signal{syscall.SIGTERM}
	}
	ctx, stop := signal.NotifyContext(context.Background(), sigs...)
	defer stop()

	app := cli.NewApp(cfg, args, logger, cli.AppOptions{})
	defer app.Close()

	if err := app.Run(ctx, cmd); err != nil {
		cli.DisplayError(os.Stderr, err, cmd.String(), args.JSON)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// setupLogging installs a text handler on stderr so log lines never mix
// with command output on stdout.
func setupLogging(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}
