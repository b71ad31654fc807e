// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jeranaias/chathub/internal/model"
)

const testKey = "sk-or-test-abcdefghijklmnopqrstuvwxyz0123456789"

func okBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":    "gen-1",
		"model": "x",
		"choices": []any{map[string]any{
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
	return string(b)
}

// recordingServer captures each decoded request body and answers with
// handler.
func recordingServer(t *testing.T, handler func(n int, req ChatRequest, w http.ResponseWriter)) (*httptest.Server, *[]ChatRequest, *[]http.Header) {
	t.Helper()
	var (
		mu      sync.Mutex
		reqs    []ChatRequest
		headers []http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		mu.Lock()
		reqs = append(reqs, req)
		headers = append(headers, r.Header.Clone())
		n := len(reqs)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		handler(n, req, w)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs, &headers
}

// =============================================================================
// GENERATE TESTS
// =============================================================================

func TestGenerate_SendsSystemPromptAndHistory(t *testing.T) {
	srv, reqs, headers := recordingServer(t, func(_ int, _ ChatRequest, w http.ResponseWriter) {
		w.Write([]byte(okBody("Hi there!")))
	})

	client := NewOpenRouterClient(testKey).WithBaseURL(srv.URL + "/")
	history := []model.Message{
		model.NewMessage(model.RoleUser, "Hello"),
		model.NewMessage(model.RoleAssistant, "Hey"),
		model.NewMessage(model.RoleUser, "How are you?"),
	}

	reply, err := client.Generate(context.Background(), history)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if reply != "Hi there!" {
		t.Errorf("reply = %q", reply)
	}

	if len(*reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*reqs))
	}
	req := (*reqs)[0]
	if req.Model != model.DefaultModelID {
		t.Errorf("model = %q", req.Model)
	}
	if req.Stream {
		t.Error("stream should be false")
	}
	if req.Temperature != DefaultTemperature || req.MaxTokens != DefaultMaxTokens {
		t.Errorf("sampling = %v/%d", req.Temperature, req.MaxTokens)
	}
	if len(req.Messages) != 4 {
		t.Fatalf("expected system + 3 messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != "system" || req.Messages[0].Content != DefaultSystemPrompt {
		t.Errorf("first message should be the system prompt: %+v", req.Messages[0])
	}
	if req.Messages[3].Content != "How are you?" || req.Messages[2].Role != "assistant" {
		t.Errorf("history out of order: %+v", req.Messages)
	}

	h := (*headers)[0]
	if h.Get("Authorization") != "Bearer "+testKey {
		t.Error("missing bearer token")
	}
	if h.Get("X-Title") != DefaultSiteName || h.Get("HTTP-Referer") == "" {
		t.Errorf("attribution headers missing: %v", h)
	}
}

func TestGenerate_EmptyContentYieldsApology(t *testing.T) {
	tests := map[string]string{
		"empty content": okBody(""),
		"no choices":    `{"id":"x","choices":[]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			srv, _, _ := recordingServer(t, func(_ int, _ ChatRequest, w http.ResponseWriter) {
				w.Write([]byte(body))
			})
			reply, err := NewOpenRouterClient(testKey).WithBaseURL(srv.URL).
				Generate(context.Background(), []model.Message{model.NewMessage(model.RoleUser, "hi")})
			if err != nil {
				t.Fatal(err)
			}
			if reply != FallbackReply {
				t.Errorf("reply = %q, want fallback text", reply)
			}
		})
	}
}

func TestGenerate_NotConfigured(t *testing.T) {
	_, err := NewOpenRouterClient("  ").Generate(context.Background(), nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

// =============================================================================
// FALLBACK TESTS
// =============================================================================

func TestGenerate_UnknownModelFallsBackOnce(t *testing.T) {
	srv, reqs, _ := recordingServer(t, func(n int, req ChatRequest, w http.ResponseWriter) {
		if req.Model == "bogus/model" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"code":400,"message":"bogus/model is not a valid model ID"}}`))
			return
		}
		w.Write([]byte(okBody("from fallback")))
	})

	client := NewOpenRouterClient(testKey).WithBaseURL(srv.URL).WithModel("bogus/model")
	reply, err := client.Generate(context.Background(), []model.Message{model.NewMessage(model.RoleUser, "hi")})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if reply != "from fallback" {
		t.Errorf("reply = %q", reply)
	}
	if len(*reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(*reqs))
	}
	if (*reqs)[1].Model != model.DefaultModelID {
		t.Errorf("fallback model = %q", (*reqs)[1].Model)
	}
	if client.Model() != "bogus/model" {
		t.Error("fallback must not change the configured model")
	}
}

func TestGenerate_FallbackIsBounded(t *testing.T) {
	srv, reqs, _ := recordingServer(t, func(_ int, _ ChatRequest, w http.ResponseWriter) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"x is not a valid model ID"}}`))
	})

	client := NewOpenRouterClient(testKey).WithBaseURL(srv.URL).WithModel("bad/one").WithFallbackModel("bad/two")
	_, err := client.Generate(context.Background(), nil)
	if !IsUnknownModel(err) {
		t.Errorf("err = %v, want unknown model", err)
	}
	if len(*reqs) != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", len(*reqs))
	}
}

func TestGenerate_OtherErrorsDoNotRetry(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"plain 400", http.StatusBadRequest, `{"error":{"message":"messages required"}}`, nil},
		{"auth", http.StatusUnauthorized, `{"error":{"message":"No auth credentials"}}`, ErrAuthFailed},
		{"credits", http.StatusPaymentRequired, `{"error":{"message":"Insufficient credits"}}`, ErrInsufficientCredits},
		{"rate", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, ErrRateLimited},
		{"server", http.StatusInternalServerError, `oops`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, reqs, _ := recordingServer(t, func(_ int, _ ChatRequest, w http.ResponseWriter) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := NewOpenRouterClient(testKey).WithBaseURL(srv.URL).Generate(context.Background(), nil)
			if err == nil {
				t.Fatal("expected error")
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Status != tt.status {
				t.Errorf("err = %v, want APIError with status %d", err, tt.status)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if IsUnknownModel(err) {
				t.Error("should not be classified as unknown model")
			}
			if len(*reqs) != 1 {
				t.Errorf("expected 1 attempt, got %d", len(*reqs))
			}
		})
	}
}

// =============================================================================
// CONCURRENCY / PACING TESTS
// =============================================================================

func TestChatWithModel_ModelIsolation(t *testing.T) {
	var mismatches atomic.Int32
	srv, _, _ := recordingServer(t, func(_ int, req ChatRequest, w http.ResponseWriter) {
		w.Write([]byte(okBody(req.Model)))
	})
	client := NewOpenRouterClient(testKey).WithBaseURL(srv.URL)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := []string{"a/one", "b/two"}[i%2]
			resp, err := client.ChatWithModel(context.Background(), id, nil)
			if err != nil || resp.GetContent() != id {
				mismatches.Add(1)
			}
		}(i)
	}
	wg.Wait()
	if mismatches.Load() != 0 {
		t.Errorf("%d responses came back for the wrong model", mismatches.Load())
	}
}

func TestWithRateLimit_HonorsContext(t *testing.T) {
	srv, _, _ := recordingServer(t, func(_ int, _ ChatRequest, w http.ResponseWriter) {
		w.Write([]byte(okBody("ok")))
	})
	client := NewOpenRouterClient(testKey).WithBaseURL(srv.URL).WithRateLimit(1)

	if _, err := client.ChatWithModel(context.Background(), "m/x", nil); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := client.ChatWithModel(ctx, "m/x", nil); err == nil {
		t.Error("second call within the same minute should wait and hit the deadline")
	}
}

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestWithModel_ResolvesAlias(t *testing.T) {
	c := NewOpenRouterClient(testKey).WithModel("claude-3-sonnet")
	if c.Model() != "anthropic/claude-3-sonnet" {
		t.Errorf("Model() = %q", c.Model())
	}
}

func TestAPIKeyMasked(t *testing.T) {
	c := NewOpenRouterClient(testKey)
	masked := c.APIKeyMasked()
	if strings.Contains(masked, "abcdef") {
		t.Errorf("masked key leaks key material: %s", masked)
	}
	if NewOpenRouterClient("").APIKeyMasked() != "[not set]" {
		t.Error("empty key should report not set")
	}
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{testKey, true},
		{"sk-or-short", false},
		{"sk-" + strings.Repeat("a", 40), false},
		{"sk-or-" + strings.Repeat("a", 40), false},
	}
	for _, tt := range tests {
		if got := ValidateAPIKey(tt.key); got != tt.want {
			t.Errorf("ValidateAPIKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestNewAPIError_RawBody(t *testing.T) {
	err := newAPIError(http.StatusBadGateway, []byte("  upstream down "))
	if err.Message != "upstream down" || err.Status != http.StatusBadGateway {
		t.Errorf("unexpected error: %+v", err)
	}
	if err.Unwrap() != nil {
		t.Error("502 should not map to a sentinel")
	}
	if newAPIError(http.StatusBadGateway, nil).Message != "Bad Gateway" {
		t.Error("empty body should use status text")
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"data":[{"id":"openai/gpt-4o","name":"GPT-4o","context_length":128000}]}`))
	}))
	defer srv.Close()

	models, err := NewOpenRouterClient("").WithBaseURL(srv.URL).ListModels(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(models) != 1 || models[0].ContextSize != 128000 {
		t.Errorf("unexpected models: %+v", models)
	}
}
