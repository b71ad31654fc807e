// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Terminal rendering of messages and chat lists.
package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chathub/internal/model"
	"github.com/jeranaias/chathub/internal/util"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is built on first use; nil when glamour cannot start.
var markdownRenderer = sync.OnceValue(func() *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(min(GetTerminalWidth()-4, 100)),
	)
	if err != nil {
		return nil
	}
	return r
})

// renderMarkdown returns content rendered for the terminal, or content
// unchanged when rendering is off or fails.
func (a *App) renderMarkdown(content string) string {
	if !a.Config.UI.Markdown || !isTerminalWriter(a.Out) {
		return content
	}
	r := markdownRenderer()
	if r == nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return out
}

// =============================================================================
// MESSAGES
// =============================================================================

// showReply prints an assistant reply with its label.
func (a *App) showReply(content string, elapsed time.Duration) {
	label := botLabelStyle.Render(model.RoleAssistant.DisplayName())
	if !a.Args.Quiet {
		label += " " + DimStyle.Render(fmt.Sprintf("(%s, %s)", a.Client.Model(), formatDurationShort(elapsed)))
	}
	fmt.Fprintln(a.Out, label)

	body := a.renderMarkdown(content)
	fmt.Fprint(a.Out, body)
	if !strings.HasSuffix(body, "\n") {
		fmt.Fprintln(a.Out)
	}
}

// printTranscript prints msgs in order with role labels.
func (a *App) printTranscript(msgs []model.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(a.Out, DimStyle.Render("(no messages)"))
		return
	}
	for _, m := range msgs {
		stamp := DimStyle.Render(m.Timestamp.In(a.opts.Location).Format("Jan 2 15:04"))
		if m.Role == model.RoleUser {
			fmt.Fprintf(a.Out, "%s %s\n", userLabelStyle.Render(m.Role.DisplayName()), stamp)
			fmt.Fprintln(a.Out, m.Content)
		} else {
			fmt.Fprintf(a.Out, "%s %s\n", botLabelStyle.Render(m.Role.DisplayName()), stamp)
			body := a.renderMarkdown(m.Content)
			fmt.Fprint(a.Out, body)
			if !strings.HasSuffix(body, "\n") {
				fmt.Fprintln(a.Out)
			}
		}
		fmt.Fprintln(a.Out)
	}
}

// lastReply returns the content of the final assistant message.
func lastReply(msgs []model.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleAssistant {
			return msgs[i].Content
		}
	}
	return ""
}

// =============================================================================
// CHAT LIST
// =============================================================================

// printChatList writes one line per saved chat, marking the active one.
func printChatList(w io.Writer, metas []model.ConversationMeta, currentID string, now time.Time) {
	if len(metas) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No saved chats yet. Start one with `chathub` or `chathub ask`."))
		return
	}

	titleWidth := max(GetTerminalWidth()-40, 20)
	for _, m := range metas {
		marker := "  "
		if m.ID == currentID {
			marker = HighlightStyle.Render("* ")
		}
		title := util.TruncateWidth(m.Title, titleWidth)
		fmt.Fprintf(w, "%s%s  %s  %s\n",
			marker,
			DimStyle.Render(shortID(m.ID)),
			lipgloss.NewStyle().Width(titleWidth).Render(title),
			DimStyle.Render(fmt.Sprintf("%3d msgs  %s", m.MessageCount, formatAge(m.UpdatedAt, now))),
		)
	}
}

// chatMetas lists the metadata of histories in order.
func chatMetas(histories []model.Conversation) []model.ConversationMeta {
	metas := make([]model.ConversationMeta, len(histories))
	for i := range histories {
		metas[i] = histories[i].GetMeta()
	}
	return metas
}
