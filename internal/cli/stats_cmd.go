// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// stats_cmd.go - Seven-day usage analytics.
//
//	chathub stats           print the dashboard
//	chathub stats --json    print the snapshot
//	chathub stats --watch   redraw whenever another chathub saves
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/chathub/internal/analytics"
	"github.com/jeranaias/chathub/internal/model"
	"github.com/jeranaias/chathub/internal/storage"
)

// statsBarWidth is the length of the longest bar.
const statsBarWidth = 30

func (a *App) runStats(ctx context.Context) error {
	p := NewArgParser(a.Args.Raw, "watch", "w")
	sess, err := a.Session()
	if err != nil {
		return err
	}

	if !p.BoolFlag("watch", "w") {
		snap := a.analytics(sess.Histories(), sess.Messages())
		if a.Args.JSON {
			return a.printJSON(CmdStats, snap)
		}
		a.renderStats(a.Out, snap)
		return nil
	}

	if a.Args.JSON {
		return &ValidationError{Field: "flags", Reason: "--watch cannot be combined with --json"}
	}
	if a.opts.KV == nil && a.Config.Storage.Backend == storage.BackendMemory {
		return &ValidationError{
			Field:   "storage.backend",
			Value:   storage.BackendMemory,
			Reason:  "nothing to watch with in-memory storage",
			Example: "chathub config set storage.backend file",
		}
	}
	dir, err := a.Config.DataDir()
	if err != nil {
		return err
	}

	redraw := func() {
		st := a.store.Load()
		clearScreen(a.Out)
		a.renderStats(a.Out, a.analytics(st.Histories, st.Messages))
		fmt.Fprintln(a.Out, DimStyle.Render("Watching "+dir+" (Ctrl+C to stop)"))
	}
	redraw()
	return storage.Watch(ctx, dir, storage.DefaultWatchDebounce, redraw)
}

func (a *App) analytics(histories []model.Conversation, current []model.Message) analytics.Snapshot {
	return analytics.CalculateIn(histories, current, a.now(), a.opts.Location)
}

// renderStats draws the dashboard: totals, a bar per day, the type split
// and response times.
func (a *App) renderStats(w io.Writer, snap analytics.Snapshot) {
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("Chat analytics (last %d days)", analytics.Days)))
	fmt.Fprintln(w, RenderSeparator(50))
	fmt.Fprintln(w, RenderField("Total messages", fmt.Sprint(snap.TotalMessages)))
	fmt.Fprintln(w, RenderField("Total chats", fmt.Sprint(snap.TotalChats)))
	fmt.Fprintln(w, RenderField("Avg per chat", fmt.Sprint(snap.AverageMessagesPerChat)))
	fmt.Fprintln(w, RenderField("Avg response time", formatMillis(snap.AverageResponseTime)))

	fmt.Fprintln(w, SectionStyle.Render("Messages per day"))
	peak := 0
	for _, d := range snap.MessagesPerDay {
		peak = max(peak, d.Count)
	}
	for _, d := range snap.MessagesPerDay {
		fmt.Fprintf(w, "  %s %s  %s %d\n",
			d.Label, DimStyle.Render(d.Date[5:]), barUserStyle.Render(bar(d.Count, peak)), d.Count)
	}

	fmt.Fprintln(w, SectionStyle.Render("Message types"))
	largest := 0
	for _, t := range snap.MessageTypes {
		largest = max(largest, t.Value)
	}
	for i, t := range snap.MessageTypes {
		style := barUserStyle
		if i > 0 {
			style = barBotStyle
		}
		fmt.Fprintf(w, "  %-14s %s %d\n", t.Name, style.Render(bar(t.Value, largest)), t.Value)
	}

	fmt.Fprintln(w, SectionStyle.Render("Response time per day"))
	for _, d := range snap.ResponseTimes {
		value := DimStyle.Render("-")
		if d.Samples > 0 {
			value = formatMillis(d.ResponseTime)
		}
		fmt.Fprintf(w, "  %s  %s\n", d.Label, value)
	}

	if day, ok := snap.PeakDay(); ok {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %s (%d messages)\n", HighlightStyle.Render("Busiest day:"), day.Label, day.Count)
	}
}

// bar scales n against peak onto statsBarWidth cells. Non-zero counts get at
// least one cell.
func bar(n, peak int) string {
	if n <= 0 || peak <= 0 {
		return ""
	}
	return strings.Repeat("█", max(n*statsBarWidth/peak, 1))
}
