// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes a chat session over a JSON HTTP API.
//
// # Endpoints
//
//   - GET    /api/state            - Active chat, loading flag and last error
//   - POST   /api/messages         - Send {"content": "..."}; 409 while busy, 502 on generation failure
//   - POST   /api/messages/clear   - Clear the active chat
//   - GET    /api/chats            - Saved chat listing
//   - POST   /api/chats/new        - Start a new chat
//   - GET    /api/chats/{id}       - One saved chat with its messages
//   - PATCH  /api/chats/{id}       - Rename {"title": "..."}
//   - POST   /api/chats/{id}/load  - Make a saved chat active
//   - DELETE /api/chats/{id}       - Delete a saved chat
//   - GET    /api/analytics        - Seven-day usage analytics
//   - GET    /api/export           - Download ?format=txt|pdf|pages|md|json|html&chat=id
//   - GET    /api/templates        - Prompt templates
//   - GET    /health               - Liveness
//   - GET    /metrics              - Prometheus metrics
//
// The /api routes are rate limited per client IP and body size capped.
//
// # Key Types
//
//   - Server: chi router bound to a session.Session
//   - Metrics: Prometheus collectors plus a Generator decorator
//   - RateLimiter: sliding window limiter keyed by client IP
//
// # Usage
//
//	metrics := server.NewMetrics()
//	sess, _ := session.New(session.Options{Generator: metrics.Instrument(client)})
//	srv := server.New(sess, server.Options{Addr: ":8080", Metrics: metrics})
//	if err := srv.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package server
