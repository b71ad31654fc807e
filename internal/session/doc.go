// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the active chat and the saved chat history.
//
// A Session appends user messages, asks a Generator for the reply and keeps
// a history entry per chat. The first completed exchange of a chat creates
// its entry, seeded with everything said so far; later exchanges append the
// new pair. Every change is written through to a Store.
//
// # Key Types
//
//   - Session: Active chat, history and current chat pointer
//   - Generator: Produces assistant replies (cloud.OpenRouterClient)
//   - Store: Persists state (storage.Persister)
//   - Notifier: Receives user-facing notices
//
// # Usage
//
//	sess, err := session.New(session.Options{
//	    Generator: client,
//	    Store:     storage.NewPersister(kv, logger),
//	    Notifier:  notifier,
//	})
//	if err := sess.SendMessage(ctx, "Hello"); err != nil {
//	    // errors.Is(err, session.ErrGeneration) or session.ErrBusy
//	}
//	for _, c := range sess.Histories() {
//	    fmt.Println(c.ID, c.Title)
//	}
package session
