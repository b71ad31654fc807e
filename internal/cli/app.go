// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jeranaias/chathub/internal/cloud"
	"github.com/jeranaias/chathub/internal/config"
	"github.com/jeranaias/chathub/internal/server"
	"github.com/jeranaias/chathub/internal/session"
	"github.com/jeranaias/chathub/internal/storage"
)

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// AppOptions overrides the collaborators NewApp would otherwise build from
// the configuration. Zero values select the real thing.
type AppOptions struct {
	// Generator replaces the OpenRouter client as the reply source.
	Generator session.Generator

	// KV replaces the configured storage backend.
	KV storage.KV

	// LineReader replaces the interactive line editor used by chat.
	LineReader LineReader

	In  io.Reader
	Out io.Writer
	Err io.Writer

	Now      func() time.Time
	Location *time.Location
}

// App carries the configuration and collaborators shared by every command.
// Storage and the session are opened on first use, so commands such as
// version or config never touch the data directory.
type App struct {
	Config *config.Config
	Args   Args
	Logger *slog.Logger
	Client *cloud.OpenRouterClient

	In  io.Reader
	Out io.Writer
	Err io.Writer

	opts    AppOptions
	store   *storage.Persister
	session *session.Session
	metrics *server.Metrics
}

// NewApp builds the application for one CLI invocation.
func NewApp(cfg *config.Config, args Args, logger *slog.Logger, opts AppOptions) *App {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	modelName := cfg.Model
	if args.Model != "" {
		modelName = args.Model
	}

	client := cloud.NewOpenRouterClient(cfg.APIKey).
		WithBaseURL(cfg.BaseURL).
		WithModel(modelName).
		WithFallbackModel(cfg.FallbackModel).
		WithSystemPrompt(cfg.SystemPrompt).
		WithTemperature(cfg.Temperature).
		WithMaxTokens(cfg.MaxTokens).
		WithSiteURL(cfg.SiteURL).
		WithSiteName(cfg.SiteName).
		WithTimeout(time.Duration(cfg.TimeoutSecs) * time.Second).
		WithRateLimit(cfg.RequestsPerMinute).
		WithLogger(logger)

	return &App{
		Config: cfg,
		Args:   args,
		Logger: logger,
		Client: client,
		In:     opts.In,
		Out:    opts.Out,
		Err:    opts.Err,
		opts:   opts,
	}
}

// Session opens storage and restores the saved session on first call.
func (a *App) Session() (*session.Session, error) {
	if a.session != nil {
		return a.session, nil
	}

	kv := a.opts.KV
	if kv == nil {
		dir, err := a.Config.DataDir()
		if err != nil {
			return nil, fmt.Errorf("resolve data directory: %w", err)
		}
		kv, err = storage.Open(a.Config.Storage.Backend, dir)
		if err != nil {
			return nil, fmt.Errorf("open %s storage: %w", a.Config.Storage.Backend, err)
		}
	}
	a.store = storage.NewPersister(kv, a.Logger)

	var gen session.Generator = a.Client
	if a.opts.Generator != nil {
		gen = a.opts.Generator
	}
	if a.metrics != nil {
		gen = a.metrics.Instrument(gen)
	}

	sess, err := session.New(session.Options{
		Generator: gen,
		Store:     a.store,
		Notifier:  newToastNotifier(a.Err, a.Args.Quiet || a.Args.JSON),
		Logger:    a.Logger,
		Now:       a.opts.Now,
	})
	if err != nil {
		a.store.Close()
		a.store = nil
		return nil, err
	}
	a.session = sess
	return sess, nil
}

// Close releases storage.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// requireAPIKey fails early, before any message is stored, when replies
// cannot possibly be generated.
func (a *App) requireAPIKey() error {
	if a.opts.Generator != nil || a.Client.IsConfigured() {
		return nil
	}
	return fmt.Errorf("%w: run `chathub config set api_key <key>` or set CHATHUB_API_KEY", cloud.ErrNotConfigured)
}

func (a *App) now() time.Time {
	return a.opts.Now()
}

func (a *App) printJSON(cmd Command, data any) error {
	return NewJSONResponse(cmd.String(), data).Print(a.Out)
}
