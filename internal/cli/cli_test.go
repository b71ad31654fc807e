// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/chathub/internal/cloud"
	"github.com/jeranaias/chathub/internal/config"
	"github.com/jeranaias/chathub/internal/export"
	"github.com/jeranaias/chathub/internal/model"
	"github.com/jeranaias/chathub/internal/session"
	"github.com/jeranaias/chathub/internal/storage"
	"github.com/jeranaias/chathub/internal/templates"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var testNow = time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

// echoGenerator answers every message with "reply to: <content>".
type echoGenerator struct {
	mu    sync.Mutex
	calls [][]model.Message
	err   error
}

func (g *echoGenerator) Generate(ctx context.Context, history []model.Message) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, history)
	if g.err != nil {
		return "", g.err
	}
	return "reply to: " + history[len(history)-1].Content, nil
}

func (g *echoGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.calls) == 0 {
		return ""
	}
	h := g.calls[len(g.calls)-1]
	return h[len(h)-1].Content
}

// scriptedReader feeds fixed lines to the chat REPL.
type scriptedReader struct {
	lines       []string
	suggestions []string
	history     []string
}

func (r *scriptedReader) Prompt(string) (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *scriptedReader) PromptWithSuggestion(prompt, text string, _ int) (string, error) {
	r.suggestions = append(r.suggestions, text)
	line, err := r.Prompt(prompt)
	if err != nil {
		return "", err
	}
	return text + line, nil
}

func (r *scriptedReader) AppendHistory(item string) { r.history = append(r.history, item) }
func (r *scriptedReader) Close() error              { return nil }

// testEnv shares one store across several command invocations, the way
// consecutive chathub runs share the data directory.
type testEnv struct {
	t   *testing.T
	cfg *config.Config
	kv  storage.KV
	gen *echoGenerator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.UI.Markdown = false
	cfg.Storage.DataDir = t.TempDir()
	return &testEnv{t: t, cfg: cfg, kv: storage.NewMemoryKV(), gen: &echoGenerator{}}
}

type runResult struct {
	out string
	err string
	app *App
}

func (e *testEnv) run(cmd Command, args Args, in io.Reader, lr LineReader) (runResult, error) {
	e.t.Helper()
	if in == nil {
		in = &bytes.Buffer{}
	}
	var out, errOut bytes.Buffer
	opts := AppOptions{
		KV:         e.kv,
		LineReader: lr,
		In:         in,
		Out:        &out,
		Err:        &errOut,
		Now:        func() time.Time { return testNow },
		Location:   time.UTC,
	}
	if e.gen != nil {
		opts.Generator = e.gen
	}
	app := NewApp(e.cfg, args, nil, opts)
	err := app.Run(context.Background(), cmd)
	app.Close()
	return runResult{out: out.String(), err: errOut.String(), app: app}, err
}

func (e *testEnv) mustRun(cmd Command, args Args) runResult {
	e.t.Helper()
	res, err := e.run(cmd, args, nil, nil)
	if err != nil {
		e.t.Fatalf("%s %v: %v", cmd, args.Raw, err)
	}
	return res
}

func (e *testEnv) session() *session.Session {
	e.t.Helper()
	app := NewApp(e.cfg, Args{}, nil, AppOptions{KV: e.kv, Generator: e.gen, Out: io.Discard, Err: io.Discard})
	sess, err := app.Session()
	if err != nil {
		e.t.Fatalf("Session: %v", err)
	}
	return sess
}

// decodeData unwraps the --json envelope into T.
func decodeData[T any](t *testing.T, out string) T {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("decode envelope: %v\n%s", err, out)
	}
	if !env.Success {
		t.Fatalf("envelope reports failure: %s", out)
	}
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data: %v\n%s", err, env.Data)
	}
	return v
}

// =============================================================================
// PARSING
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		wantCmd  Command
		validate func(*testing.T, Args)
	}{
		{name: "no args starts chat", argv: nil, wantCmd: CmdChat},
		{
			name:    "ask with prompt",
			argv:    []string{"ask", "What", "is", "Go?"},
			wantCmd: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if got := strings.Join(a.Raw, " "); got != "What is Go?" {
					t.Errorf("Raw = %q", got)
				}
			},
		},
		{name: "alias", argv: []string{"chats"}, wantCmd: CmdHistory},
		{name: "case insensitive", argv: []string{"STATS"}, wantCmd: CmdStats},
		{
			name:    "global flags before command",
			argv:    []string{"--json", "-m", "gpt-4o", "history"},
			wantCmd: CmdHistory,
			validate: func(t *testing.T, a Args) {
				if !a.JSON || a.Model != "gpt-4o" {
					t.Errorf("JSON=%v Model=%q", a.JSON, a.Model)
				}
			},
		},
		{
			name:    "global flags after command",
			argv:    []string{"export", "--format", "pdf", "-q", "--config=/tmp/c.toml"},
			wantCmd: CmdExport,
			validate: func(t *testing.T, a Args) {
				if !a.Quiet || a.ConfigPath != "/tmp/c.toml" {
					t.Errorf("Quiet=%v ConfigPath=%q", a.Quiet, a.ConfigPath)
				}
				if got := strings.Join(a.Raw, " "); got != "--format pdf" {
					t.Errorf("Raw = %q", got)
				}
			},
		},
		{name: "help flag", argv: []string{"--help"}, wantCmd: CmdHelp},
		{name: "version flag", argv: []string{"--version"}, wantCmd: CmdVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, err := Parse(tt.argv)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if cmd != tt.wantCmd {
				t.Errorf("cmd = %s, want %s", cmd, tt.wantCmd)
			}
			if tt.validate != nil {
				tt.validate(t, args)
			}
		})
	}
}

func TestParse_UnknownCommandSuggests(t *testing.T) {
	_, _, err := Parse([]string{"histroy"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if ve.Example != "chathub history" {
		t.Errorf("Example = %q, want %q", ve.Example, "chathub history")
	}
	if GetExitCode(err) != ExitUsageError {
		t.Errorf("exit code = %d, want %d", GetExitCode(err), ExitUsageError)
	}
}

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"show", "abc", "--format", "md", "--watch", "-o", "out", "--rate=5", "--", "--literal"}, "watch")

	if p.Subcommand() != "show" {
		t.Errorf("Subcommand = %q", p.Subcommand())
	}
	if p.Positional(1) != "abc" {
		t.Errorf("Positional(1) = %q", p.Positional(1))
	}
	if p.Flag("format") != "md" {
		t.Errorf("Flag(format) = %q", p.Flag("format"))
	}
	if !p.BoolFlag("watch") {
		t.Error("BoolFlag(watch) = false")
	}
	if p.Flag("out", "o") != "out" {
		t.Errorf("Flag(out, o) = %q", p.Flag("out", "o"))
	}
	if p.FlagIntOrDefault("rate", 0) != 5 {
		t.Errorf("FlagIntOrDefault(rate) = %d", p.FlagIntOrDefault("rate", 0))
	}
	if p.Positional(2) != "--literal" {
		t.Errorf("args after -- should be positional, got %q", p.Positional(2))
	}
	if p.FlagOrDefault("missing", "def") != "def" {
		t.Error("FlagOrDefault should fall back")
	}
	if !p.HasFlag("--format") || p.HasFlag("nope") {
		t.Error("HasFlag mismatch")
	}
}

func TestArgParser_BoolDoesNotConsumeValue(t *testing.T) {
	p := NewArgParser([]string{"--new", "hello"}, "new")
	if !p.BoolFlag("new") {
		t.Error("BoolFlag(new) = false")
	}
	if p.Positional(0) != "hello" {
		t.Errorf("Positional(0) = %q, want hello", p.Positional(0))
	}
}

func TestSuggestCommand(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"ak", "ask"},
		{"exprot", "export"},
		{"templtes", "templates"},
		{"stats", ""},
		{"x", ""},
		{"zzzzzzzz", ""},
	}
	for _, tt := range tests {
		if got := SuggestCommand(tt.input); got != tt.want {
			t.Errorf("SuggestCommand(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", &ValidationError{Field: "x", Reason: "bad"}, ExitUsageError},
		{"not found", &NotFoundError{Resource: "chat", ID: "x"}, ExitNotFoundError},
		{"chat not found", fmt.Errorf("wrap: %w", session.ErrChatNotFound), ExitNotFoundError},
		{"nothing to export", export.ErrNoMessages, ExitNotFoundError},
		{"no api key", fmt.Errorf("%w: set it", cloud.ErrNotConfigured), ExitConfigError},
		{"invalid config", config.ValidateErrors{{Field: "model", Message: "empty"}}, ExitConfigError},
		{"auth", fmt.Errorf("%w: %w", session.ErrGeneration, cloud.ErrAuthFailed), ExitAuthError},
		{"deadline", context.DeadlineExceeded, ExitTimeoutError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func TestResolveChat(t *testing.T) {
	chats := []model.Conversation{
		{ID: "abc123", Title: "one"},
		{ID: "abd456", Title: "two"},
		{ID: "xyz789", Title: "three"},
	}

	c, err := resolveChat(chats, "xyz")
	if err != nil || c.Title != "three" {
		t.Errorf("prefix: got %q, %v", c.Title, err)
	}
	c, err = resolveChat(chats, "abc123")
	if err != nil || c.Title != "one" {
		t.Errorf("exact: got %q, %v", c.Title, err)
	}

	_, err = resolveChat(chats, "ab")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("ambiguous: err = %v, want *ValidationError", err)
	}
	_, err = resolveChat(chats, "nope")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("missing: err = %v, want *NotFoundError", err)
	}
	if _, err := resolveChat(chats, " "); !errors.As(err, &ve) {
		t.Errorf("blank: err = %v, want *ValidationError", err)
	}
}

func TestReadFileForContext(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "main.go")
	if err := os.WriteFile(small, []byte("package main"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := readFileForContext(small)
	if err != nil {
		t.Fatalf("readFileForContext: %v", err)
	}
	if !strings.Contains(got, "--- File: "+small) || !strings.Contains(got, "package main") {
		t.Errorf("unexpected wrapping: %q", got)
	}

	big := filepath.Join(dir, "big.txt")
	if err := os.WriteFile(big, bytes.Repeat([]byte("x"), MaxFileSize+1), 0644); err != nil {
		t.Fatal(err)
	}
	var ve *ValidationError
	if _, err := readFileForContext(big); !errors.As(err, &ve) {
		t.Errorf("oversized file: err = %v, want *ValidationError", err)
	}

	var nf *NotFoundError
	if _, err := readFileForContext(filepath.Join(dir, "missing")); !errors.As(err, &nf) {
		t.Errorf("missing file: err = %v, want *NotFoundError", err)
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{2 * 24 * time.Hour, "2d ago"},
		{30 * 24 * time.Hour, "2025-02-10"},
	}
	for _, tt := range tests {
		if got := formatAge(testNow.Add(-tt.ago), testNow); got != tt.want {
			t.Errorf("formatAge(-%s) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}

func TestBar(t *testing.T) {
	if bar(0, 10) != "" {
		t.Error("zero count should have no bar")
	}
	if got := []rune(bar(1, 1000)); len(got) != 1 {
		t.Errorf("small non-zero count should get one cell, got %d", len(got))
	}
	if got := []rune(bar(10, 10)); len(got) != statsBarWidth {
		t.Errorf("peak should fill the bar, got %d", len(got))
	}
}

func TestMaskIfSecret(t *testing.T) {
	if got := maskIfSecret("api_key", "sk-or-secret"); !strings.HasPrefix(got, "sha256:") || strings.Contains(got, "secret") {
		t.Errorf("api_key not masked: %q", got)
	}
	if got := maskIfSecret("api_key", ""); got != "(not set)" {
		t.Errorf("empty api_key = %q", got)
	}
	if got := maskIfSecret("max_tokens", "1000"); got != "1000" {
		t.Errorf("max_tokens should not be masked, got %q", got)
	}
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_JSON(t *testing.T) {
	env := newTestEnv(t)
	res := env.mustRun(CmdAsk, Args{JSON: true, Raw: []string{"What", "is", "Go?"}})

	data := decodeData[AskData](t, res.out)
	if data.Prompt != "What is Go?" {
		t.Errorf("Prompt = %q", data.Prompt)
	}
	if data.Response != "reply to: What is Go?" {
		t.Errorf("Response = %q", data.Response)
	}
	if data.ChatID == "" {
		t.Error("ChatID should be set after the first exchange")
	}
	if data.Model != model.DefaultModelID {
		t.Errorf("Model = %q, want %q", data.Model, model.DefaultModelID)
	}

	sess := env.session()
	if got := len(sess.Histories()); got != 1 {
		t.Errorf("histories = %d, want 1", got)
	}
}

func TestAsk_ContinuesActiveChat(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(CmdAsk, Args{Raw: []string{"first"}})
	env.mustRun(CmdAsk, Args{Raw: []string{"second"}})

	sess := env.session()
	if got := len(sess.Histories()); got != 1 {
		t.Fatalf("histories = %d, want 1", got)
	}
	if got := len(sess.Messages()); got != 4 {
		t.Errorf("active messages = %d, want 4", got)
	}

	env.mustRun(CmdAsk, Args{Raw: []string{"--new", "third"}})
	if got := len(env.session().Histories()); got != 2 {
		t.Errorf("histories after --new = %d, want 2", got)
	}
}

func TestAsk_TextOutput(t *testing.T) {
	env := newTestEnv(t)
	res := env.mustRun(CmdAsk, Args{Raw: []string{"hello"}})
	if !strings.Contains(res.out, "Assistant") || !strings.Contains(res.out, "reply to: hello") {
		t.Errorf("unexpected output:\n%s", res.out)
	}
}

func TestAsk_FileTemplateAndStdin(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "main.go")
	if err := os.WriteFile(path, []byte("package main"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := env.run(CmdAsk, Args{Raw: []string{"--template", "code-review", "--file", path}}, strings.NewReader("extra context"), nil)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}

	tmpl, _ := templates.Lookup("code-review")
	got := env.gen.lastPrompt()
	if !strings.HasPrefix(got, tmpl.Content) {
		t.Errorf("prompt should start with the template: %q", got)
	}
	if !strings.Contains(got, "package main") || !strings.HasSuffix(got, "extra context") {
		t.Errorf("prompt should carry file and stdin: %q", got)
	}
}

func TestAsk_Errors(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(CmdAsk, Args{}, nil, nil)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("missing prompt: err = %v, want *ValidationError", err)
	}

	_, err = env.run(CmdAsk, Args{Raw: []string{"--template", "nope", "hi"}}, nil, nil)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("unknown template: err = %v, want *NotFoundError", err)
	}

	env.gen = nil
	_, err = env.run(CmdAsk, Args{Raw: []string{"hi"}}, nil, nil)
	if !errors.Is(err, cloud.ErrNotConfigured) {
		t.Errorf("no api key: err = %v, want ErrNotConfigured", err)
	}
	if GetExitCode(err) != ExitConfigError {
		t.Errorf("exit code = %d, want %d", GetExitCode(err), ExitConfigError)
	}
}

func TestAsk_GenerationFailure(t *testing.T) {
	env := newTestEnv(t)
	env.gen.err = errors.New("upstream exploded")

	res, err := env.run(CmdAsk, Args{Raw: []string{"hi"}}, nil, nil)
	if !errors.Is(err, session.ErrGeneration) {
		t.Fatalf("err = %v, want ErrGeneration", err)
	}
	if !strings.Contains(res.err, session.MsgSendFailed) {
		t.Errorf("stderr should carry the failure notice, got %q", res.err)
	}

	sess := env.session()
	if got := len(sess.Messages()); got != 1 {
		t.Errorf("user message should remain, got %d messages", got)
	}
	if len(sess.Histories()) != 0 {
		t.Error("failed exchange should not create a history entry")
	}
}

// =============================================================================
// CHAT REPL
// =============================================================================

func TestChat_REPL(t *testing.T) {
	env := newTestEnv(t)
	lr := &scriptedReader{lines: []string{
		"Hello there",
		"",
		"/history",
		"/rename Greetings",
		"/bogus",
		"/new",
		"quit",
		"never reached",
	}}

	res, err := env.run(CmdChat, Args{}, nil, lr)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !strings.Contains(res.out, "reply to: Hello there") {
		t.Errorf("reply not shown:\n%s", res.out)
	}
	if !strings.Contains(res.err, "unknown chat command") {
		t.Errorf("unknown command not reported: %q", res.err)
	}
	if len(lr.lines) != 1 {
		t.Errorf("quit should stop reading, %d lines left", len(lr.lines))
	}

	sess := env.session()
	hist := sess.Histories()
	if len(hist) != 1 || hist[0].Title != "Greetings" {
		t.Fatalf("histories = %+v, want one chat titled Greetings", hist)
	}
	if sess.CurrentChatID() != "" || len(sess.Messages()) != 0 {
		t.Error("/new should leave an empty unsaved chat")
	}
	if len(env.gen.calls) != 1 {
		t.Errorf("generator calls = %d, want 1", len(env.gen.calls))
	}
}

func TestChat_LoadAndDelete(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(CmdAsk, Args{Raw: []string{"first chat"}})
	id := env.session().Histories()[0].ID
	env.mustRun(CmdNew, Args{})

	lr := &scriptedReader{lines: []string{"/load " + id[:6]}}
	res, err := env.run(CmdChat, Args{}, nil, lr)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !strings.Contains(res.out, "first chat") {
		t.Errorf("loaded transcript not shown:\n%s", res.out)
	}
	if got := env.session().CurrentChatID(); got != id {
		t.Errorf("current chat = %q, want %q", got, id)
	}

	lr = &scriptedReader{lines: []string{"/delete " + id}}
	if _, err := env.run(CmdChat, Args{}, nil, lr); err != nil {
		t.Fatalf("chat: %v", err)
	}
	sess := env.session()
	if len(sess.Histories()) != 0 || sess.CurrentChatID() != "" {
		t.Error("deleting the active chat should remove it and reset the session")
	}
}

func TestChat_TemplatePrefill(t *testing.T) {
	env := newTestEnv(t)
	lr := &scriptedReader{lines: []string{"/template code-review", "func main() {}", "/quit"}}

	if _, err := env.run(CmdChat, Args{}, nil, lr); err != nil {
		t.Fatalf("chat: %v", err)
	}

	tmpl, _ := templates.Lookup("code-review")
	if len(lr.suggestions) != 1 || lr.suggestions[0] != tmpl.Content+" " {
		t.Fatalf("suggestions = %q", lr.suggestions)
	}
	if got, want := env.gen.lastPrompt(), tmpl.Content+" func main() {}"; got != want {
		t.Errorf("sent %q, want %q", got, want)
	}
}

func TestChat_RejectsJSON(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(CmdChat, Args{JSON: true}, nil, &scriptedReader{})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("err = %v, want *ValidationError", err)
	}
}

// =============================================================================
// HISTORY
// =============================================================================

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(CmdAsk, Args{Raw: []string{"first"}})
	env.mustRun(CmdAsk, Args{Raw: []string{"--new", "second"}})

	list := decodeData[ChatListData](t, env.mustRun(CmdHistory, Args{JSON: true}).out)
	if len(list.Chats) != 2 {
		t.Fatalf("chats = %d, want 2", len(list.Chats))
	}
	newest, oldest := list.Chats[0], list.Chats[1]
	if newest.Title != "second" || list.CurrentChatID != newest.ID {
		t.Errorf("newest = %+v, current = %q", newest, list.CurrentChatID)
	}

	res := env.mustRun(CmdHistory, Args{Raw: []string{"show", oldest.ID}})
	if !strings.Contains(res.out, "reply to: first") {
		t.Errorf("show output:\n%s", res.out)
	}

	env.mustRun(CmdHistory, Args{Raw: []string{"rename", oldest.ID, "Renamed", "chat"}})
	if c, _ := env.session().FindChat(oldest.ID); c.Title != "Renamed chat" {
		t.Errorf("title = %q, want %q", c.Title, "Renamed chat")
	}

	env.mustRun(CmdHistory, Args{Raw: []string{"load", oldest.ID}})
	if got := env.session().CurrentChatID(); got != oldest.ID {
		t.Errorf("current = %q after load", got)
	}

	// stdin is not a terminal, so delete needs --confirm
	_, err := env.run(CmdHistory, Args{Raw: []string{"delete", newest.ID}}, nil, nil)
	var tty *TTYRequiredError
	if !errors.As(err, &tty) || tty.Flag != "--confirm" {
		t.Errorf("unconfirmed delete: err = %v, want *TTYRequiredError", err)
	}
	if GetExitCode(err) != ExitUsageError {
		t.Errorf("unconfirmed delete exit code = %d, want %d", GetExitCode(err), ExitUsageError)
	}
	_, err = env.run(CmdHistory, Args{JSON: true, Raw: []string{"delete", newest.ID}}, nil, nil)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("unconfirmed delete in json mode: err = %v, want *ValidationError", err)
	}
	env.mustRun(CmdHistory, Args{Raw: []string{"delete", newest.ID, "-y"}})
	if got := len(env.session().Histories()); got != 1 {
		t.Errorf("histories after delete = %d, want 1", got)
	}

	_, err = env.run(CmdHistory, Args{Raw: []string{"show", "nope"}}, nil, nil)
	if GetExitCode(err) != ExitNotFoundError {
		t.Errorf("unknown chat: err = %v", err)
	}
	_, err = env.run(CmdHistory, Args{Raw: []string{"frobnicate"}}, nil, nil)
	if !errors.As(err, &ve) {
		t.Errorf("unknown subcommand: err = %v", err)
	}
}

func TestHistory_EmptyList(t *testing.T) {
	env := newTestEnv(t)
	res := env.mustRun(CmdHistory, Args{})
	if !strings.Contains(res.out, "No saved chats") {
		t.Errorf("output = %q", res.out)
	}
}

// =============================================================================
// STATS
// =============================================================================

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(CmdAsk, Args{Raw: []string{"hello"}})

	snap := decodeData[struct {
		TotalMessages int `json:"totalMessages"`
		TotalChats    int `json:"totalChats"`
	}](t, env.mustRun(CmdStats, Args{JSON: true}).out)

	// the active chat is counted once on its own and once as a saved chat
	if snap.TotalMessages != 4 || snap.TotalChats != 1 {
		t.Errorf("snapshot = %+v, want 4 messages in 1 chat", snap)
	}

	res := env.mustRun(CmdStats, Args{})
	for _, want := range []string{"Total messages", "Messages per day", "Busiest day: Wed"} {
		if !strings.Contains(res.out, want) {
			t.Errorf("output missing %q:\n%s", want, res.out)
		}
	}
}

func TestStats_WatchNeedsDisk(t *testing.T) {
	env := newTestEnv(t)
	env.kv = nil
	env.cfg.Storage.Backend = storage.BackendMemory

	_, err := env.run(CmdStats, Args{Raw: []string{"--watch"}}, nil, nil)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "storage.backend" {
		t.Errorf("err = %v, want storage.backend validation error", err)
	}
}

// =============================================================================
// EXPORT
// =============================================================================

func TestExport(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(CmdExport, Args{}, nil, nil)
	if !errors.Is(err, export.ErrNoMessages) {
		t.Errorf("empty chat: err = %v, want ErrNoMessages", err)
	}

	env.mustRun(CmdAsk, Args{Raw: []string{"Hello there"}})

	res := env.mustRun(CmdExport, Args{Raw: []string{"--stdout"}})
	if !strings.Contains(res.out, "3/12/2025, 3:00:00 PM] USER: Hello there") {
		t.Errorf("text transcript:\n%s", res.out)
	}
	if !strings.Contains(res.out, "ASSISTANT: reply to: Hello there") {
		t.Errorf("text transcript:\n%s", res.out)
	}

	dir := t.TempDir()
	data := decodeData[ExportData](t, env.mustRun(CmdExport, Args{JSON: true, Raw: []string{"--format", "md", "--out", dir}}).out)
	if filepath.Dir(data.Path) != dir || filepath.Ext(data.Path) != ".md" {
		t.Errorf("path = %q", data.Path)
	}
	if _, err := os.Stat(data.Path); err != nil {
		t.Errorf("exported file: %v", err)
	}

	id := env.session().Histories()[0].ID
	res = env.mustRun(CmdExport, Args{Raw: []string{"--chat", id[:5], "--format", "json", "--stdout"}})
	if !strings.Contains(res.out, "Hello there") {
		t.Errorf("json export:\n%s", res.out)
	}

	_, err = env.run(CmdExport, Args{Raw: []string{"--format", "docx"}}, nil, nil)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("unsupported format: err = %v, want *ValidationError", err)
	}
}

// =============================================================================
// TEMPLATES AND MODELS
// =============================================================================

func TestTemplates(t *testing.T) {
	env := newTestEnv(t)

	all := decodeData[[]templates.Template](t, env.mustRun(CmdTemplates, Args{JSON: true}).out)
	if len(all) != len(templates.All()) {
		t.Errorf("templates = %d, want %d", len(all), len(templates.All()))
	}

	res := env.mustRun(CmdTemplates, Args{Raw: []string{"show", "code-review"}})
	if !strings.Contains(res.out, "Code Review") {
		t.Errorf("show output:\n%s", res.out)
	}

	env.mustRun(CmdTemplates, Args{Raw: []string{"use", "code-review", "x := 1"}})
	tmpl, _ := templates.Lookup("code-review")
	if got := env.gen.lastPrompt(); got != tmpl.Content+" x := 1" {
		t.Errorf("sent %q", got)
	}
}

func TestModels(t *testing.T) {
	env := newTestEnv(t)
	rows := decodeData[[]ModelData](t, env.mustRun(CmdModels, Args{JSON: true}).out)
	if len(rows) != len(model.ModelAliases()) {
		t.Fatalf("rows = %d, want %d", len(rows), len(model.ModelAliases()))
	}
	current := 0
	for _, r := range rows {
		if r.Current {
			current++
			if r.ID != model.DefaultModelID {
				t.Errorf("current model = %q", r.ID)
			}
		}
	}
	if current != 1 {
		t.Errorf("%d models marked current, want 1", current)
	}

	rows = decodeData[[]ModelData](t, env.mustRun(CmdModels, Args{JSON: true, Model: "gpt-4o"}).out)
	for _, r := range rows {
		if r.Current && r.ID != "openai/gpt-4o" {
			t.Errorf("-m gpt-4o marked %q current", r.ID)
		}
	}
}

// =============================================================================
// CONFIG AND VERSION
// =============================================================================

func TestConfig(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	args := func(raw ...string) Args { return Args{ConfigPath: path, Raw: raw} }

	env.mustRun(CmdConfig, args("init"))
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("init did not write the file: %v", err)
	}
	_, err := env.run(CmdConfig, args("init"), nil, nil)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("init over existing file: err = %v", err)
	}
	env.mustRun(CmdConfig, args("init", "--force"))

	env.mustRun(CmdConfig, args("set", "model", "gpt-4o"))
	env.mustRun(CmdConfig, args("set", "system_prompt", "Be", "brief."))
	cfg, err := loadConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model != "gpt-4o" || cfg.SystemPrompt != "Be brief." {
		t.Errorf("file model = %q, system_prompt = %q", cfg.Model, cfg.SystemPrompt)
	}

	_, err = env.run(CmdConfig, args("set", "temperature", "5"), nil, nil)
	if GetExitCode(err) != ExitConfigError {
		t.Errorf("out of range temperature: err = %v", err)
	}
	_, err = env.run(CmdConfig, args("set", "no.such.key", "1"), nil, nil)
	if !errors.As(err, &ve) {
		t.Errorf("unknown key: err = %v", err)
	}

	env.cfg.APIKey = "sk-or-v1-secret"
	res := env.mustRun(CmdConfig, args("get", "api_key"))
	if strings.Contains(res.out, "secret") || !strings.HasPrefix(res.out, "sha256:") {
		t.Errorf("api_key not masked: %q", res.out)
	}
	res = env.mustRun(CmdConfig, args("show"))
	if strings.Contains(res.out, "sk-or-v1-secret") || !strings.Contains(res.out, "[REDACTED]") {
		t.Errorf("show leaks the api key:\n%s", res.out)
	}

	res = env.mustRun(CmdConfig, args("set", "api_key", "not-a-key"))
	if !strings.Contains(res.err, "does not look like an OpenRouter key") {
		t.Errorf("no warning for a malformed key, stderr: %q", res.err)
	}
	res = env.mustRun(CmdConfig, args("set", "api_key", "sk-or-v1-0123456789abcdef0123456789abcdef"))
	if strings.Contains(res.err, "does not look like") {
		t.Errorf("warning for a well-formed key, stderr: %q", res.err)
	}

	res = env.mustRun(CmdConfig, args("keys"))
	if !strings.Contains(res.out, "storage.backend\n") {
		t.Errorf("keys output:\n%s", res.out)
	}
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	data := decodeData[VersionData](t, env.mustRun(CmdVersion, Args{JSON: true}).out)
	if data.Version != Version {
		t.Errorf("version = %q, want %q", data.Version, Version)
	}
}
