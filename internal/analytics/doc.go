// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package analytics derives usage statistics from saved chats and the
// active chat.
//
// Calculate is a pure function: it reads copies of the session state and
// returns a fresh Snapshot with totals, a seven-day message trend, the
// user/assistant split and reply latency. Days are calendar dates in the
// caller's time zone, so the same weekday a week apart never shares a bucket.
//
// # Usage
//
//	snap := sess.Snapshot()
//	stats := analytics.Calculate(snap.Histories, snap.State.Messages, time.Now())
//	fmt.Println(stats.TotalMessages, stats.AverageResponseTime)
package analytics
