// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/chathub/internal/model"
)

// Configuration constants for the OpenRouter API.
const (
	// DefaultOpenRouterURL is the base URL for the OpenRouter API.
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1"

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 60 * time.Second

	DefaultTemperature = 0.8
	DefaultMaxTokens   = 2000

	// DefaultSiteName is sent as X-Title so requests show up under this
	// application on the OpenRouter dashboard.
	DefaultSiteName = "Fluent AI Chat Hub"
	DefaultSiteURL  = "http://localhost"

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024

	// FallbackReply is returned when the API answers without any content.
	FallbackReply = "I apologize, but I am unable to generate a response at the moment."
)

// DefaultSystemPrompt is prepended to every conversation sent upstream.
const DefaultSystemPrompt = `You are a highly capable AI assistant. You excel at:
- Providing accurate and detailed responses
- Writing and explaining code with proper formatting and comments
- Solving complex problems step by step
- Maintaining technical accuracy while being easy to understand
Please provide direct, accurate, and helpful responses.`

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatMessage is a single message in the completions request format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of a chat completions request.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatResponse is a response from the chat completions endpoint.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// GetContent returns the content of the first choice, or "" if none.
func (r *ChatResponse) GetContent() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

// RemoteModel is an entry from the /models listing.
type RemoteModel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContextSize int    `json:"context_length"`
}

type modelsResponse struct {
	Data []RemoteModel `json:"data"`
}

type apiErrorResponse struct {
	Error struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// OpenRouterClient talks to an OpenAI-compatible chat completions API.
//
// Configuration is set once with the With* builders before first use. The
// client is never mutated by a request, so one value can serve concurrent
// callers.
type OpenRouterClient struct {
	apiKey        string
	baseURL       string
	httpClient    *http.Client
	model         string
	fallbackModel string
	systemPrompt  string
	temperature   float64
	maxTokens     int
	siteURL       string
	siteName      string
	limiter       *rate.Limiter
	logger        *slog.Logger
}

// NewOpenRouterClient creates a client with the default model, prompt and
// sampling settings. An empty key is accepted; requests then fail with
// ErrNotConfigured.
func NewOpenRouterClient(apiKey string) *OpenRouterClient {
	return &OpenRouterClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: DefaultOpenRouterURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		model:         model.DefaultModelID,
		fallbackModel: model.DefaultModelID,
		systemPrompt:  DefaultSystemPrompt,
		temperature:   DefaultTemperature,
		maxTokens:     DefaultMaxTokens,
		siteURL:       DefaultSiteURL,
		siteName:      DefaultSiteName,
		logger:        slog.Default().With("component", "cloud"),
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *OpenRouterClient) WithBaseURL(url string) *OpenRouterClient {
	if url != "" {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
	return c
}

// WithTimeout sets the per-request timeout.
func (c *OpenRouterClient) WithTimeout(timeout time.Duration) *OpenRouterClient {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func (c *OpenRouterClient) WithHTTPClient(hc *http.Client) *OpenRouterClient {
	c.httpClient = hc
	return c
}

// WithModel sets the model, resolving aliases such as "claude-3".
func (c *OpenRouterClient) WithModel(name string) *OpenRouterClient {
	if id := model.ResolveModel(name); id != "" {
		c.model = id
	}
	return c
}

// WithFallbackModel sets the model retried once when the primary model is
// rejected as unknown. An empty name disables the fallback.
func (c *OpenRouterClient) WithFallbackModel(name string) *OpenRouterClient {
	c.fallbackModel = model.ResolveModel(name)
	return c
}

// WithSystemPrompt replaces the prompt prepended to every request.
func (c *OpenRouterClient) WithSystemPrompt(prompt string) *OpenRouterClient {
	c.systemPrompt = prompt
	return c
}

// WithTemperature sets the sampling temperature.
func (c *OpenRouterClient) WithTemperature(t float64) *OpenRouterClient {
	c.temperature = t
	return c
}

// WithMaxTokens caps the completion length. Zero leaves it to the provider.
func (c *OpenRouterClient) WithMaxTokens(n int) *OpenRouterClient {
	c.maxTokens = n
	return c
}

// WithSiteURL sets the HTTP-Referer header.
func (c *OpenRouterClient) WithSiteURL(url string) *OpenRouterClient {
	c.siteURL = url
	return c
}

// WithSiteName sets the X-Title header.
func (c *OpenRouterClient) WithSiteName(name string) *OpenRouterClient {
	c.siteName = name
	return c
}

// WithRateLimit paces requests to at most perMinute per minute. Zero or a
// negative value removes the limit.
func (c *OpenRouterClient) WithRateLimit(perMinute int) *OpenRouterClient {
	if perMinute <= 0 {
		c.limiter = nil
		return c
	}
	c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	return c
}

// WithLogger sets the logger used for request logging.
func (c *OpenRouterClient) WithLogger(logger *slog.Logger) *OpenRouterClient {
	if logger != nil {
		c.logger = logger.With("component", "cloud")
	}
	return c
}

// Model returns the configured primary model ID.
func (c *OpenRouterClient) Model() string {
	return c.model
}

// FallbackModel returns the configured fallback model ID.
func (c *OpenRouterClient) FallbackModel() string {
	return c.fallbackModel
}

// IsConfigured returns true if the client has an API key.
func (c *OpenRouterClient) IsConfigured() bool {
	return c.apiKey != ""
}

// APIKeyMasked returns a display-safe description of the API key.
// SECURITY: never shows key fragments, only a fingerprint.
func (c *OpenRouterClient) APIKeyMasked() string {
	if c.apiKey == "" {
		return "[not set]"
	}
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(c.apiKey), c.KeyFingerprint())
}

// KeyFingerprint returns a short SHA-256 fingerprint of the API key.
func (c *OpenRouterClient) KeyFingerprint() string {
	if c.apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(h[:4])
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate returns the assistant's reply to history. The system prompt is
// prepended, the configured model is tried, and if the API rejects it as
// an unknown model the request is repeated once with the fallback model.
func (c *OpenRouterClient) Generate(ctx context.Context, history []model.Message) (string, error) {
	resp, err := c.CompleteWithFallback(ctx, c.BuildMessages(history), c.model, c.fallbackModel)
	if err != nil {
		return "", err
	}
	if content := resp.GetContent(); content != "" {
		return content, nil
	}
	return FallbackReply, nil
}

// BuildMessages converts history into request messages with the system
// prompt first.
func (c *OpenRouterClient) BuildMessages(history []model.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(history)+1)
	if c.systemPrompt != "" {
		out = append(out, ChatMessage{Role: string(model.RoleSystem), Content: c.systemPrompt})
	}
	for _, m := range history {
		out = append(out, ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// CompleteWithFallback sends messages to primary. If and only if that
// fails with ErrUnknownModel and fallback names a different model, it is
// retried exactly once against fallback.
func (c *OpenRouterClient) CompleteWithFallback(ctx context.Context, messages []ChatMessage, primary, fallback string) (*ChatResponse, error) {
	resp, err := c.ChatWithModel(ctx, primary, messages)
	if err == nil || fallback == "" || fallback == primary || !IsUnknownModel(err) {
		return resp, err
	}

	c.logger.Warn("model rejected, retrying with fallback",
		"model", primary, "fallback", fallback, "error", err)
	return c.ChatWithModel(ctx, fallback, messages)
}

// ChatWithModel performs one chat completion request against modelID.
func (c *OpenRouterClient) ChatWithModel(ctx context.Context, modelID string, messages []ChatMessage) (*ChatResponse, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	reqBody := ChatRequest{
		Model:       modelID,
		Messages:    messages,
		Stream:      false,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	c.logger.Debug("api request", "method", req.Method, "path", req.URL.Path,
		"model", modelID, "messages", len(messages), "key", c.KeyFingerprint())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api response", "status", resp.StatusCode, "model", modelID,
		"duration", time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.StatusCode, body)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &chatResp, nil
}

// ListModels retrieves the models the API currently offers.
func (c *OpenRouterClient) ListModels(ctx context.Context) ([]RemoteModel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.StatusCode, body)
	}

	var models modelsResponse
	if err := json.Unmarshal(body, &models); err != nil {
		return nil, fmt.Errorf("failed to parse models response: %w", err)
	}
	return models.Data, nil
}

// setHeaders sets the headers OpenRouter expects on every call.
func (c *OpenRouterClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.siteURL != "" {
		req.Header.Set("HTTP-Referer", c.siteURL)
	}
	if c.siteName != "" {
		req.Header.Set("X-Title", c.siteName)
	}
}

// readResponse reads the body with a size cap.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// ValidateAPIKey checks if the key looks like an OpenRouter key. It does not
// contact the API.
func ValidateAPIKey(apiKey string) bool {
	apiKey = strings.TrimSpace(apiKey)
	if !strings.HasPrefix(apiKey, "sk-or-") || len(apiKey) < 38 {
		return false
	}
	unique := make(map[rune]bool)
	for _, r := range apiKey[6:] {
		unique[r] = true
	}
	return len(unique) >= 10
}
