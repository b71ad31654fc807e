// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot questions.
//
//	chathub ask "What is a goroutine?"
//	chathub ask --file main.go "Review this"
//	chathub ask --template code-review --file main.go
//	git diff | chathub ask "Write a commit message"
//	chathub ask --new --json "Start fresh"
//
// The question is added to the active chat, exactly as if it had been typed
// in the REPL, so the exchange shows up in history and analytics.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jeranaias/chathub/internal/session"
	"github.com/jeranaias/chathub/internal/templates"
)

func (a *App) runAsk(ctx context.Context) error {
	p := NewArgParser(a.Args.Raw, "new")

	prompt := strings.Join(p.PositionalFrom(0), " ")
	if key := p.Flag("template", "t"); key != "" {
		t, ok := templates.Lookup(key)
		if !ok {
			return &NotFoundError{Resource: "template", ID: key}
		}
		prompt = strings.TrimSpace(t.Content + " " + prompt)
	}
	if path := p.Flag("file", "f"); path != "" {
		content, err := readFileForContext(path)
		if err != nil {
			return err
		}
		prompt += content
	}
	if !isTerminalReader(a.In) {
		piped, err := io.ReadAll(io.LimitReader(a.In, MaxFileSize))
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		if s := strings.TrimSpace(string(piped)); s != "" {
			prompt = strings.TrimSpace(prompt + "\n\n" + s)
		}
	}
	if strings.TrimSpace(prompt) == "" {
		return ErrMissingArgument("prompt", `chathub ask "What is a goroutine?"`)
	}

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
	return a.sendOnce(ctx, CmdAsk, sess, prompt)
}

// sendOnce sends prompt and prints the reply, or the AskData envelope in
// JSON mode.
func (a *App) sendOnce(ctx context.Context, cmd Command, sess *session.Session, prompt string) error {
	start := time.Now()
	if err := sess.SendMessage(ctx, prompt); err != nil {
		return err
	}
	elapsed := time.Since(start)
	reply := lastReply(sess.Messages())

	if a.Args.JSON {
		return a.printJSON(cmd, AskData{
			Prompt:     prompt,
			Response:   reply,
			Model:      a.Client.Model(),
			ChatID:     sess.CurrentChatID(),
			DurationMs: elapsed.Milliseconds(),
		})
	}
	a.showReply(reply, elapsed)
	return nil
}
