// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package analytics

import (
	"math"
	"time"

	"github.com/jeranaias/chathub/internal/model"
)

// Days is the width of the trend window, today included.
const Days = 7

// Message type names used in the distribution.
const (
	TypeUser      = "User Messages"
	TypeAssistant = "AI Responses"
)

// =============================================================================
// SNAPSHOT TYPES
// =============================================================================

// Snapshot is the aggregate view over saved chats plus the active chat.
type Snapshot struct {
	TotalMessages          int                 `json:"totalMessages"`
	TotalChats             int                 `json:"totalChats"`
	AverageMessagesPerChat int                 `json:"averageMessagesPerChat"`
	MessagesPerDay         []DailyCount        `json:"messagesPerDay"`
	MessageTypes           []TypeCount         `json:"messageTypeData"`
	ResponseTimes          []DailyResponseTime `json:"responseTimeData"`

	// AverageResponseTime is the mean over every user/assistant pair found,
	// in milliseconds, including pairs older than the trend window.
	AverageResponseTime float64 `json:"averageResponseTime"`
}

// DailyCount is the number of messages sent on one calendar day.
type DailyCount struct {
	Date  string `json:"date"`  // YYYY-MM-DD
	Label string `json:"label"` // Mon, Tue, ...
	Count int    `json:"count"`
}

// TypeCount is one slice of the message type distribution.
type TypeCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// DailyResponseTime is the mean reply latency for user messages sent on one
// calendar day, in milliseconds. Zero when there were none.
type DailyResponseTime struct {
	Date         string  `json:"date"`
	Label        string  `json:"label"`
	ResponseTime float64 `json:"responseTime"`
	Samples      int     `json:"samples"`
}

// =============================================================================
// CALCULATION
// =============================================================================

// Calculate aggregates histories and the active chat's messages, bucketing
// by day in the local time zone. Inputs are not modified.
func Calculate(histories []model.Conversation, current []model.Message, now time.Time) Snapshot {
	return CalculateIn(histories, current, now, time.Local)
}

// CalculateIn is Calculate with an explicit time zone for day boundaries.
func CalculateIn(histories []model.Conversation, current []model.Message, now time.Time, loc *time.Location) Snapshot {
	if loc == nil {
		loc = time.Local
	}

	all := flatten(histories, current)

	snap := Snapshot{
		TotalMessages: len(all),
		TotalChats:    len(histories),
	}
	if len(current) > 0 {
		snap.TotalChats++
	}
	if snap.TotalChats > 0 {
		snap.AverageMessagesPerChat = int(math.Round(float64(snap.TotalMessages) / float64(snap.TotalChats)))
	}

	days := window(now, loc)
	index := make(map[string]int, len(days))
	snap.MessagesPerDay = make([]DailyCount, len(days))
	snap.ResponseTimes = make([]DailyResponseTime, len(days))
	for i, d := range days {
		key := d.Format(time.DateOnly)
		label := d.Format("Mon")
		index[key] = i
		snap.MessagesPerDay[i] = DailyCount{Date: key, Label: label}
		snap.ResponseTimes[i] = DailyResponseTime{Date: key, Label: label}
	}

	var users, assistants int
	for _, m := range all {
		switch m.Role {
		case model.RoleUser:
			users++
		case model.RoleAssistant:
			assistants++
		}
		if i, ok := index[dayKey(m.Timestamp, loc)]; ok {
			snap.MessagesPerDay[i].Count++
		}
	}
	snap.MessageTypes = []TypeCount{
		{Name: TypeUser, Value: users},
		{Name: TypeAssistant, Value: assistants},
	}

	// Reply latency: each user message immediately followed by an assistant
	// message in the flattened sequence. Pairs may straddle chat boundaries.
	sums := make([]float64, len(days))
	var total float64
	var pairs int
	for i := 0; i+1 < len(all); i++ {
		if all[i].Role != model.RoleUser || all[i+1].Role != model.RoleAssistant {
			continue
		}
		delta := float64(all[i+1].Timestamp.Sub(all[i].Timestamp)) / float64(time.Millisecond)
		total += delta
		pairs++
		if d, ok := index[dayKey(all[i].Timestamp, loc)]; ok {
			sums[d] += delta
			snap.ResponseTimes[d].Samples++
		}
	}
	for i := range snap.ResponseTimes {
		if n := snap.ResponseTimes[i].Samples; n > 0 {
			snap.ResponseTimes[i].ResponseTime = sums[i] / float64(n)
		}
	}
	if pairs > 0 {
		snap.AverageResponseTime = total / float64(pairs)
	}

	return snap
}

// flatten returns every history message in stored order followed by the
// active chat's messages.
func flatten(histories []model.Conversation, current []model.Message) []model.Message {
	n := len(current)
	for _, h := range histories {
		n += len(h.Messages)
	}
	all := make([]model.Message, 0, n)
	for _, h := range histories {
		all = append(all, h.Messages...)
	}
	return append(all, current...)
}

// window returns midnight of each of the Days calendar days ending on now's
// date, oldest first.
func window(now time.Time, loc *time.Location) []time.Time {
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	days := make([]time.Time, Days)
	for i := range days {
		days[i] = today.AddDate(0, 0, i-(Days-1))
	}
	return days
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}

// PeakDay returns the busiest day in the window, or false when no messages
// fall inside it.
func (s Snapshot) PeakDay() (DailyCount, bool) {
	var best DailyCount
	for _, d := range s.MessagesPerDay {
		if d.Count > best.Count {
			best = d
		}
	}
	return best, best.Count > 0
}
