// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides the OpenRouter chat completions client that
// generates assistant replies.
//
// # Key Types
//
//   - OpenRouterClient: HTTP client; its Generate method turns a message
//     history into the next assistant reply
//   - ChatRequest, ChatResponse: wire format of /chat/completions
//   - APIError: non-200 response, unwrapping to ErrAuthFailed,
//     ErrRateLimited, ErrUnknownModel and friends
//
// # Model Fallback
//
// When the API answers 400 with "not a valid model ID", the request is
// repeated exactly once with the fallback model. The fallback is an explicit
// argument to CompleteWithFallback; the client's own settings never change.
//
// # Usage
//
//	client := cloud.NewOpenRouterClient(apiKey).
//	    WithModel("claude-3").
//	    WithRateLimit(20)
//	reply, err := client.Generate(ctx, messages)
//
// # Security
//
// API keys are never logged; request logs carry a SHA-256 fingerprint.
// All requests use TLS 1.2 or newer.
package cloud
