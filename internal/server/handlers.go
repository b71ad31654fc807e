// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jeranaias/chathub/internal/analytics"
	"github.com/jeranaias/chathub/internal/export"
	"github.com/jeranaias/chathub/internal/model"
	"github.com/jeranaias/chathub/internal/session"
	"github.com/jeranaias/chathub/internal/templates"
)

// ============================================================================
// RESPONSE TYPES
// ============================================================================

// StateResponse is the active chat plus the id of the saved chat it belongs to.
type StateResponse struct {
	model.ChatState
	CurrentChatID string `json:"currentChatId"`
}

// ChatsResponse lists saved chats without their messages.
type ChatsResponse struct {
	Chats         []model.ConversationMeta `json:"chats"`
	CurrentChatID string                   `json:"currentChatId"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type sendRequest struct {
	Content string `json:"content"`
}

type renameRequest struct {
	Title string `json:"title"`
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: s.opts.Version})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.sess.SendMessage(r.Context(), req.Content)
	switch {
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrSuperseded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrGeneration):
		s.logger.Warn("send failed", "error", err)
		writeJSON(w, http.StatusBadGateway, s.state())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, s.state())
	}
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.sess.ClearMessages()
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleNewChat(w http.ResponseWriter, r *http.Request) {
	s.sess.StartNewChat()
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	snap := s.sess.Snapshot()
	metas := make([]model.ConversationMeta, 0, len(snap.Histories))
	for _, c := range snap.Histories {
		metas = append(metas, c.GetMeta())
	}
	writeJSON(w, http.StatusOK, ChatsResponse{Chats: metas, CurrentChatID: snap.CurrentChatID})
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	c, ok := s.sess.FindChat(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, session.ErrChatNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleRenameChat(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	id := chi.URLParam(r, "id")
	if !s.sess.RenameChat(id, req.Title) {
		writeError(w, http.StatusNotFound, session.ErrChatNotFound.Error())
		return
	}
	c, _ := s.sess.FindChat(id)
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleLoadChat(w http.ResponseWriter, r *http.Request) {
	if !s.sess.LoadChat(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, session.ErrChatNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	if !s.sess.DeleteChat(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, session.ErrChatNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	snap := s.sess.Snapshot()
	stats := analytics.CalculateIn(snap.Histories, snap.State.Messages, s.opts.Now(), s.opts.Location)
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := export.DefaultOptions()
	opts.Location = s.opts.Location
	opts.Now = s.opts.Now

	exp, err := export.ByFormat(q.Get("format"), opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, err := s.sess.Render(q.Get("chat"), exp)
	switch {
	case errors.Is(err, export.ErrNoMessages), errors.Is(err, session.ErrChatNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", exp.MimeType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.FileName(exp, s.opts.Now())))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, templates.All())
}

func (s *Server) state() StateResponse {
	snap := s.sess.Snapshot()
	return StateResponse{ChatState: snap.State, CurrentChatID: snap.CurrentChatID}
}
