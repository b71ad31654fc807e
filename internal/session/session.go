// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/chathub/internal/export"
	"github.com/jeranaias/chathub/internal/model"
	"github.com/jeranaias/chathub/internal/storage"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrBusy is returned by SendMessage while another request is in flight.
	ErrBusy = errors.New("a response is already being generated")

	// ErrGeneration wraps failures reported by the Generator.
	ErrGeneration = errors.New("generation failed")

	// ErrSuperseded is returned by SendMessage when the active chat was
	// replaced while the reply was being generated. The reply is discarded.
	ErrSuperseded = errors.New("chat changed before the reply arrived")

	// ErrChatNotFound is returned when a saved chat id does not exist.
	ErrChatNotFound = errors.New("chat not found")
)

// Notification texts shown to the user.
const (
	MsgSendFailed     = "Failed to send message"
	MsgChatDeleted    = "Chat deleted"
	MsgNothingToSave  = "No messages to export"
	MsgExportComplete = "Chat exported successfully"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Generator produces the assistant reply for an ordered conversation.
type Generator interface {
	Generate(ctx context.Context, history []model.Message) (string, error)
}

// Notifier surfaces short user-facing notices.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Store persists the three session records. *storage.Persister implements it.
type Store interface {
	Load() storage.State
	SaveMessages(msgs []model.Message) error
	SaveHistories(convs []model.Conversation) error
	SaveCurrentChatID(id string) error
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}

// LogNotifier forwards notices to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Success(msg string) { n.logger().Info(msg, "notice", "success") }
func (n LogNotifier) Error(msg string)   { n.logger().Warn(msg, "notice", "error") }

func (n LogNotifier) logger() *slog.Logger {
	if n.Logger == nil {
		return slog.Default()
	}
	return n.Logger
}

// =============================================================================
// SESSION
// =============================================================================

// Options configures a Session. Generator is required; the rest default to
// an in-memory store, no notifications, slog.Default and time.Now.
type Options struct {
	Generator Generator
	Store     Store
	Notifier  Notifier
	Logger    *slog.Logger
	Now       func() time.Time
}

// Session owns the active chat and the saved chat history. All methods are
// safe for concurrent use; at most one generation runs at a time.
type Session struct {
	mu sync.Mutex

	gen    Generator
	store  Store
	notify Notifier
	logger *slog.Logger
	now    func() time.Time

	state     model.ChatState
	histories []model.Conversation
	currentID string

	// lastStamp keeps message timestamps strictly increasing at millisecond
	// resolution, which is what the store keeps.
	lastStamp time.Time

	// inflight is set for the whole of a generator call. Unlike
	// state.IsLoading it survives new, clear and load.
	inflight bool

	// epoch changes whenever the active chat is replaced, so a reply that
	// arrives for an abandoned chat can be recognized and dropped.
	epoch uint64
}

// New creates a session and restores any persisted state from the store.
func New(opts Options) (*Session, error) {
	if opts.Generator == nil {
		return nil, errors.New("session: generator is required")
	}
	if opts.Store == nil {
		opts.Store = storage.NewPersister(storage.NewMemoryKV(), opts.Logger)
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Session{
		gen:    opts.Generator,
		store:  opts.Store,
		notify: opts.Notifier,
		logger: opts.Logger,
		now:    opts.Now,
	}

	st := opts.Store.Load()
	s.state.Messages = st.Messages
	s.histories = st.Histories
	s.currentID = st.CurrentChatID
	for _, m := range s.state.Messages {
		if m.Timestamp.After(s.lastStamp) {
			s.lastStamp = m.Timestamp
		}
	}
	if s.state.Messages == nil {
		s.state.Messages = []model.Message{}
	}
	return s, nil
}

// =============================================================================
// MESSAGE STORE
// =============================================================================

// SendMessage appends content as a user message, asks the generator for a
// reply and records the exchange in history.
//
// Blank content is ignored. A generation failure leaves the user message in
// place, records the error text in the chat state and returns an error
// wrapping ErrGeneration.
func (s *Session) SendMessage(ctx context.Context, content string) error {
	content = strings.TrimSpace(norm.NFC.String(content))
	if content == "" {
		return nil
	}

	s.mu.Lock()
	if s.inflight {
		s.mu.Unlock()
		return ErrBusy
	}
	user := model.NewMessageAt(model.RoleUser, content, s.stamp())
	s.state.Messages = append(s.state.Messages, user)
	s.inflight = true
	s.state.IsLoading = true
	s.state.Error = ""
	epoch := s.epoch
	history := model.CloneMessages(s.state.Messages)
	s.saveMessages()
	s.mu.Unlock()

	reply, err := s.gen.Generate(ctx, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight = false

	if epoch != s.epoch {
		s.state.IsLoading = false
		s.logger.Info("dropping reply for a chat that is no longer active", "error", err)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrGeneration, err)
		}
		return ErrSuperseded
	}

	s.state.IsLoading = false
	if err != nil {
		s.state.Error = err.Error()
		s.logger.Warn("generation failed", "error", err)
		s.notify.Error(MsgSendFailed)
		return fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	bot := model.NewMessageAt(model.RoleAssistant, reply, s.stamp())
	s.state.Messages = append(s.state.Messages, bot)
	s.recordExchange(user, bot)

	s.saveMessages()
	s.saveHistories()
	s.saveCurrentID()
	return nil
}

// recordExchange creates the history entry for the active chat on its first
// completed exchange, or appends the new pair to the existing entry.
// Callers hold s.mu.
func (s *Session) recordExchange(user, bot model.Message) {
	if i := s.indexOf(s.currentID); s.currentID != "" && i >= 0 {
		s.histories[i].Append(bot.Timestamp, user, bot)
		return
	}
	c := model.NewConversation(user.Content, s.state.Messages, bot.Timestamp)
	s.histories = append([]model.Conversation{c}, s.histories...)
	s.currentID = c.ID
}

// StartNewChat clears the active chat and detaches it from history.
func (s *Session) StartNewChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetActive()
	s.saveMessages()
	s.saveCurrentID()
}

// ClearMessages empties the active chat but keeps it attached to its
// history entry.
func (s *Session) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.state = model.ChatState{Messages: []model.Message{}, IsLoading: s.inflight}
	s.saveMessages()
}

func (s *Session) resetActive() {
	s.epoch++
	s.state = model.ChatState{Messages: []model.Message{}, IsLoading: s.inflight}
	s.currentID = ""
}

// =============================================================================
// CHAT HISTORY
// =============================================================================

// LoadChat makes a saved chat the active one. It reports false for an
// unknown id and leaves the session unchanged.
func (s *Session) LoadChat(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.epoch++
	s.state = model.ChatState{Messages: model.CloneMessages(s.histories[i].Messages), IsLoading: s.inflight}
	s.currentID = id
	for _, m := range s.state.Messages {
		if m.Timestamp.After(s.lastStamp) {
			s.lastStamp = m.Timestamp
		}
	}
	s.saveMessages()
	s.saveCurrentID()
	return true
}

// DeleteChat removes a saved chat. Deleting the active chat also starts a
// new one.
func (s *Session) DeleteChat(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.histories = append(s.histories[:i:i], s.histories[i+1:]...)
	if id == s.currentID {
		s.resetActive()
		s.saveMessages()
		s.saveCurrentID()
	}
	s.saveHistories()
	s.notify.Success(MsgChatDeleted)
	return true
}

// RenameChat replaces a saved chat's title.
func (s *Session) RenameChat(id, title string) bool {
	title = strings.TrimSpace(title)
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 || title == "" {
		return false
	}
	s.histories[i].Title = title
	s.saveHistories()
	return true
}

// FindChat returns a copy of a saved chat.
func (s *Session) FindChat(id string) (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.histories[i].Clone(), true
	}
	return model.Conversation{}, false
}

func (s *Session) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.histories {
		if s.histories[i].ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// READERS
// =============================================================================

// Snapshot is a consistent copy of everything a Session holds.
type Snapshot struct {
	State         model.ChatState
	Histories     []model.Conversation
	CurrentChatID string
}

// State returns a copy of the active chat state.
func (s *Session) State() model.ChatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Messages returns a copy of the active chat's messages.
func (s *Session) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneMessages(s.state.Messages)
}

// Histories returns a copy of the saved chats, most recently created first.
func (s *Session) Histories() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneConversations(s.histories)
}

// CurrentChatID returns the id of the saved chat the active chat belongs to,
// or "" when it has not been saved yet.
func (s *Session) CurrentChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// Snapshot returns a copy of the full session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:         s.state.Clone(),
		Histories:     model.CloneConversations(s.histories),
		CurrentChatID: s.currentID,
	}
}

// =============================================================================
// EXPORT
// =============================================================================

// Render exports the active chat, or the saved chat chatID when it is not
// empty. An empty transcript yields export.ErrNoMessages.
func (s *Session) Render(chatID string, exp export.Exporter) ([]byte, error) {
	doc, err := s.document(chatID)
	if err != nil {
		return nil, err
	}
	out, err := exp.Export(doc)
	return out, s.exportDone(err)
}

// ExportFile is Render followed by a write into opts.OutputDir. It returns
// the written path.
func (s *Session) ExportFile(chatID string, exp export.Exporter, opts *export.Options) (string, error) {
	doc, err := s.document(chatID)
	if err != nil {
		return "", err
	}
	path, err := export.ExportToFile(doc, exp, opts)
	return path, s.exportDone(err)
}

func (s *Session) document(chatID string) (export.Document, error) {
	if chatID == "" {
		return export.FromMessages(s.Messages()), nil
	}
	c, ok := s.FindChat(chatID)
	if !ok {
		return export.Document{}, fmt.Errorf("%w: %s", ErrChatNotFound, chatID)
	}
	return export.FromConversation(c), nil
}

func (s *Session) exportDone(err error) error {
	switch {
	case errors.Is(err, export.ErrNoMessages):
		s.notify.Error(MsgNothingToSave)
	case err != nil:
		s.logger.Error("export failed", "error", err)
	default:
		s.notify.Success(MsgExportComplete)
	}
	return err
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// stamp returns the next message timestamp. Callers hold s.mu.
func (s *Session) stamp() time.Time {
	t := s.now().Truncate(time.Millisecond)
	if !t.After(s.lastStamp) {
		t = s.lastStamp.Add(time.Millisecond)
	}
	s.lastStamp = t
	return t
}

// Write-through helpers. The store reports its own failures; a failed write
// never interrupts the chat.

func (s *Session) saveMessages() {
	if err := s.store.SaveMessages(s.state.Messages); err != nil {
		s.logger.Debug("messages not persisted", "error", err)
	}
}

func (s *Session) saveHistories() {
	if err := s.store.SaveHistories(s.histories); err != nil {
		s.logger.Debug("histories not persisted", "error", err)
	}
}

func (s *Session) saveCurrentID() {
	if err := s.store.SaveCurrentChatID(s.currentID); err != nil {
		s.logger.Debug("current chat id not persisted", "error", err)
	}
}
