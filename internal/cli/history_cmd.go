// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history_cmd.go - Saved chat management.
//
//	chathub history                     list saved chats
//	chathub history show <id>           print a transcript
//	chathub history load <id>           make a chat the active one
//	chathub history rename <id> <title> rename a chat
//	chathub history delete <id> [-y]    delete a chat
//	chathub new                         start a new chat
//
// Chats may be named by any unique prefix of their id.
package cli

import (
	"context"
	"fmt"
	"strings"
)

var historySubcommands = []string{"list", "show", "load", "rename", "delete"}

func (a *App) runHistory(ctx context.Context) error {
	p := NewArgParser(a.Args.Raw, "confirm", "y")
	sub := strings.ToLower(p.Subcommand())

	sess, err := a.Session()
	if err != nil {
		return err
	}

	switch sub {
	case "", "list", "ls":
		metas := chatMetas(sess.Histories())
		if a.Args.JSON {
			return a.printJSON(CmdHistory, ChatListData{Chats: metas, CurrentChatID: sess.CurrentChatID()})
		}
		printChatList(a.Out, metas, sess.CurrentChatID(), a.now())
		return nil

	case "show":
		c, err := resolveChat(sess.Histories(), p.Positional(1))
		if err != nil {
			return err
		}
		if a.Args.JSON {
			return a.printJSON(CmdHistory, c)
		}
		fmt.Fprintln(a.Out, TitleStyle.Render(c.GetTitle()))
		fmt.Fprintln(a.Out, RenderSeparator(min(GetTerminalWidth(), 70)))
		a.printTranscript(c.Messages)
		return nil

	case "load", "open":
		c, err := resolveChat(sess.Histories(), p.Positional(1))
		if err != nil {
			return err
		}
		sess.LoadChat(c.ID)
		if a.Args.JSON {
			return a.printJSON(CmdHistory, c.GetMeta())
		}
		fmt.Fprintf(a.Out, "%s %s\n", SuccessStyle.Render("Active chat:"), c.GetTitle())
		return nil

	case "rename":
		c, err := resolveChat(sess.Histories(), p.Positional(1))
		if err != nil {
			return err
		}
		title := strings.TrimSpace(strings.Join(p.PositionalFrom(2), " "))
		if title == "" {
			return ErrMissingArgument("title", "chathub history rename <id> New title")
		}
		sess.RenameChat(c.ID, title)
		if a.Args.JSON {
			renamed, _ := sess.FindChat(c.ID)
			return a.printJSON(CmdHistory, renamed.GetMeta())
		}
		fmt.Fprintf(a.Out, "%s %s\n", SuccessStyle.Render("Renamed to"), title)
		return nil

	case "delete", "rm":
		c, err := resolveChat(sess.Histories(), p.Positional(1))
		if err != nil {
			return err
		}
		ok, err := RequireConfirmation(a.In, a.Out, fmt.Sprintf("delete chat %q", c.GetTitle()), ConfirmationOptions{
			ConfirmFlag: p.BoolFlag("confirm", "y"),
			JSONMode:    a.Args.JSON,
			Interactive: isTerminalReader(a.In),
		})
		if err != nil {
			return err
		}
		if !ok {
			showCancelled(a.Out)
			return nil
		}
		sess.DeleteChat(c.ID)
		if a.Args.JSON {
			return a.printJSON(CmdHistory, ChatListData{Chats: chatMetas(sess.Histories()), CurrentChatID: sess.CurrentChatID()})
		}
		return nil

	default:
		return ErrUnknownSubcommand(CmdHistory.String(), sub, historySubcommands)
	}
}

func (a *App) runNew() error {
	sess, err := a.Session()
	if err != nil {
		return err
	}
	sess.StartNewChat()
	if a.Args.JSON {
		return a.printJSON(CmdNew, ChatListData{Chats: chatMetas(sess.Histories()), CurrentChatID: ""})
	}
	if !a.Args.Quiet {
		fmt.Fprintln(a.Out, SuccessStyle.Render("Started a new chat."))
	}
	return nil
}
