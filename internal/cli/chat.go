// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat REPL.
//
// Plain input is sent to the model. Lines starting with "/" are commands:
//
//	/new               start a new chat
//	/clear             empty the active chat
//	/history           list saved chats
//	/load <id>         switch to a saved chat
//	/delete <id>       delete a saved chat
//	/rename <title>    rename the active chat
//	/stats             seven-day analytics
//	/export [format]   export the active chat
//	/template [id]     list templates, or start a message from one
//	/model             show the model in use
//	/help              this list
//	/quit, /exit       leave
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/chathub/internal/config"
	"github.com/jeranaias/chathub/internal/export"
	"github.com/jeranaias/chathub/internal/session"
	"github.com/jeranaias/chathub/internal/templates"
)

// =============================================================================
// LINE INPUT
// =============================================================================

// LineReader reads chat input one line at a time.
type LineReader interface {
	Prompt(prompt string) (string, error)
	// PromptWithSuggestion prompts with text already typed, cursor at pos
	// (-1 for the end).
	PromptWithSuggestion(prompt, text string, pos int) (string, error)
	AppendHistory(item string)
	Close() error
}

// slashCommands are completed on Tab.
var slashCommands = []string{
	"/new", "/clear", "/history", "/load", "/delete", "/rename",
	"/stats", "/export", "/template", "/model", "/help", "/quit", "/exit",
}

// linerReader is the terminal line editor, with input history kept in the
// config directory.
type linerReader struct {
	line        *liner.State
	historyFile string
}

func newLinerReader() *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(input string) []string {
		if !strings.HasPrefix(input, "/") {
			return nil
		}
		var out []string
		for _, c := range slashCommands {
			if strings.HasPrefix(c, input) {
				out = append(out, c)
			}
		}
		return out
	})

	r := &linerReader{line: line}
	if dir, err := config.ConfigDir(); err == nil {
		r.historyFile = filepath.Join(dir, "chat_history")
		if f, err := os.Open(r.historyFile); err == nil {
			r.line.ReadHistory(f)
			f.Close()
		}
	}
	return r
}

func (r *linerReader) Prompt(prompt string) (string, error) {
	return r.line.Prompt(prompt)
}

func (r *linerReader) PromptWithSuggestion(prompt, text string, pos int) (string, error) {
	return r.line.PromptWithSuggestion(prompt, text, pos)
}

func (r *linerReader) AppendHistory(item string) {
	r.line.AppendHistory(item)
}

// Close writes input history (owner-only) and restores the terminal.
func (r *linerReader) Close() error {
	if r.historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err == nil {
			if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
				r.line.WriteHistory(f)
				f.Close()
			}
		}
	}
	return r.line.Close()
}

// scannerReader reads piped input. Prompts are not echoed.
type scannerReader struct {
	scanner *bufio.Scanner
}

func newScannerReader(in io.Reader) *scannerReader {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 0, 64*1024), MaxFileSize*4)
	return &scannerReader{scanner: s}
}

func (r *scannerReader) Prompt(string) (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// PromptWithSuggestion appends the next input line to text.
func (r *scannerReader) PromptWithSuggestion(prompt, text string, _ int) (string, error) {
	line, err := r.Prompt(prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text + " " + line), nil
}

func (r *scannerReader) AppendHistory(string) {}
func (r *scannerReader) Close() error         { return nil }

func (a *App) lineReader() LineReader {
	if a.opts.LineReader != nil {
		return a.opts.LineReader
	}
	if isTerminalReader(a.In) && isTerminalWriter(a.Out) {
		return newLinerReader()
	}
	return newScannerReader(a.In)
}

// =============================================================================
// REPL
// =============================================================================

type chatREPL struct {
	app  *App
	sess *session.Session
	in   LineReader
}

const chatPrompt = "you> "

func (a *App) runChat(ctx context.Context) error {
	if a.Args.JSON {
		return &ValidationError{
			Field:   "mode",
			Reason:  "chat is interactive and has no JSON output",
			Example: `chathub ask --json "question"`,
		}
	}
	if err := a.requireAPIKey(); err != nil {
		return err
	}
	sess, err := a.Session()
	if err != nil {
		return err
	}

	r := &chatREPL{app: a, sess: sess, in: a.lineReader()}
	defer r.in.Close()

	r.banner()
	return r.loop(ctx)
}

func (r *chatREPL) banner() {
	a := r.app
	if a.Args.Quiet {
		return
	}
	fmt.Fprintf(a.Out, "%s %s\n", promptStyle.Render("chathub"), DimStyle.Render("v"+Version))
	fmt.Fprintln(a.Out, RenderField("Model", a.Client.Model()))
	if id := r.sess.CurrentChatID(); id != "" {
		if c, ok := r.sess.FindChat(id); ok {
			fmt.Fprintln(a.Out, RenderField("Chat", c.GetTitle()))
		}
	}
	if n := len(r.sess.Messages()); n > 0 {
		fmt.Fprintln(a.Out, RenderField("Messages", fmt.Sprintf("%d", n)))
	}
	fmt.Fprintln(a.Out, DimStyle.Render("Type /help for commands, /quit to leave."))
	fmt.Fprintln(a.Out)
}

func (r *chatREPL) loop(ctx context.Context) error {
	aborted := false
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := r.in.Prompt(chatPrompt)
		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			if aborted {
				return nil
			}
			aborted = true
			fmt.Fprintln(r.app.Out, DimStyle.Render("(press Ctrl+C again or type /quit to leave)"))
			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(r.app.Out)
			return nil
		case err != nil:
			return fmt.Errorf("read input: %w", err)
		}
		aborted = false

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		r.in.AppendHistory(input)

		switch strings.ToLower(input) {
		case "exit", "quit":
			return nil
		}

		if strings.HasPrefix(input, "/") {
			quit, err := r.command(ctx, input)
			if err != nil {
				DisplayError(r.app.Err, err, CmdChat.String(), false)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := r.send(ctx, input); err != nil {
			DisplayError(r.app.Err, err, CmdChat.String(), false)
		}
	}
}

// send delivers one message. Ctrl+C while waiting cancels the request
// without leaving the REPL.
func (r *chatREPL) send(ctx context.Context, content string) error {
	sendCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	start := time.Now()
	err := r.sess.SendMessage(sendCtx, content)
	if err != nil {
		if ctx.Err() == nil && sendCtx.Err() != nil {
			fmt.Fprintln(r.app.Out, DimStyle.Render("Request cancelled."))
			return nil
		}
		return err
	}
	r.app.showReply(lastReply(r.sess.Messages()), time.Since(start))
	fmt.Fprintln(r.app.Out)
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// command runs one slash command and reports whether the REPL should end.
func (r *chatREPL) command(ctx context.Context, input string) (bool, error) {
	name, rest, _ := strings.Cut(input, " ")
	name = strings.ToLower(name)
	rest = strings.TrimSpace(rest)
	a := r.app

	switch name {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		r.help()

	case "/new":
		r.sess.StartNewChat()
		fmt.Fprintln(a.Out, SuccessStyle.Render("Started a new chat."))

	case "/clear":
		r.sess.ClearMessages()
		clearScreen(a.Out)
		fmt.Fprintln(a.Out, DimStyle.Render("Chat cleared."))

	case "/history":
		printChatList(a.Out, chatMetas(r.sess.Histories()), r.sess.CurrentChatID(), a.now())

	case "/load":
		c, err := resolveChat(r.sess.Histories(), rest)
		if err != nil {
			return false, err
		}
		r.sess.LoadChat(c.ID)
		clearScreen(a.Out)
		fmt.Fprintf(a.Out, "%s %s\n\n", SuccessStyle.Render("Loaded"), c.GetTitle())
		a.printTranscript(r.sess.Messages())

	case "/delete":
		c, err := resolveChat(r.sess.Histories(), rest)
		if err != nil {
			return false, err
		}
		r.sess.DeleteChat(c.ID)

	case "/rename":
		id := r.sess.CurrentChatID()
		if id == "" {
			return false, &ValidationError{Field: "chat", Reason: "the active chat has not been saved yet"}
		}
		if rest == "" {
			return false, ErrMissingArgument("title", "/rename My new title")
		}
		r.sess.RenameChat(id, rest)
		fmt.Fprintf(a.Out, "%s %s\n", SuccessStyle.Render("Renamed to"), rest)

	case "/stats":
		snap := a.analytics(r.sess.Histories(), r.sess.Messages())
		a.renderStats(a.Out, snap)

	case "/export":
		return false, r.export(rest)

	case "/template", "/templates":
		if rest == "" {
			printTemplates(a.Out)
			return false, nil
		}
		return false, r.fromTemplate(ctx, rest)

	case "/model":
		fmt.Fprintln(a.Out, RenderField("Model", a.Client.Model()))
		fmt.Fprintln(a.Out, RenderField("Fallback", a.Client.FallbackModel()))

	default:
		err := &ValidationError{Field: "command", Value: name, Reason: "unknown chat command"}
		if s := suggestFrom(name, slashCommands); s != "" {
			err.Example = s
		}
		return false, err
	}
	return false, nil
}

func (r *chatREPL) help() {
	w := r.app.Out
	fmt.Fprintln(w, TitleStyle.Render("Chat commands"))
	for _, line := range [][2]string{
		{"/new", "Start a new chat"},
		{"/clear", "Empty the active chat"},
		{"/history", "List saved chats"},
		{"/load <id>", "Switch to a saved chat (id prefix is enough)"},
		{"/delete <id>", "Delete a saved chat"},
		{"/rename <title>", "Rename the active chat"},
		{"/stats", "Seven-day analytics"},
		{"/export [format]", "Export the active chat (" + strings.Join(export.Formats, ", ") + ")"},
		{"/template [id]", "List templates, or start a message from one"},
		{"/model", "Show the model in use"},
		{"/quit", "Leave"},
	} {
		fmt.Fprintln(w, RenderField(line[0], line[1]))
	}
}

func (r *chatREPL) export(format string) error {
	if format == "" {
		format = "txt"
	}
	opts := r.app.exportOptions()
	exp, err := export.ByFormat(format, opts)
	if err != nil {
		return unsupportedFormat(format)
	}
	path, err := r.sess.ExportFile("", exp, opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.app.Out, RenderField("Saved to", path))
	return nil
}

// fromTemplate pre-fills the prompt with a template for the user to finish.
func (r *chatREPL) fromTemplate(ctx context.Context, key string) error {
	t, ok := templates.Lookup(key)
	if !ok {
		return &NotFoundError{Resource: "template", ID: key}
	}
	line, err := r.in.PromptWithSuggestion(chatPrompt, t.Content+" ", -1)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return nil
		}
		return err
	}
	content := strings.TrimSpace(line)
	if content == "" {
		return nil
	}
	r.in.AppendHistory(content)
	return r.send(ctx, content)
}
