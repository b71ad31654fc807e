// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// MODEL INFO TYPE
// =============================================================================

// ModelInfo describes a completions model reachable through OpenRouter.
type ModelInfo struct {
	// ID is the provider-qualified identifier sent in API calls.
	ID string `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// Provider is the upstream vendor (OpenAI, Anthropic, ...).
	Provider string `json:"provider"`

	// MaxTokens is the context window size.
	MaxTokens int `json:"max_tokens"`

	Description string `json:"description"`
}

// ContextString returns a formatted context window string.
func (m ModelInfo) ContextString() string {
	if m.MaxTokens >= 1000000 {
		return fmt.Sprintf("%.1fM tokens", float64(m.MaxTokens)/1000000)
	}
	if m.MaxTokens >= 1000 {
		return fmt.Sprintf("%dK tokens", m.MaxTokens/1000)
	}
	return fmt.Sprintf("%d tokens", m.MaxTokens)
}

// =============================================================================
// MODEL REGISTRY
// =============================================================================

// DefaultModelID is the model used when none is configured. It is also the
// fallback when the configured model is rejected as unknown.
const DefaultModelID = "openai/gpt-3.5-turbo"

// Models maps short aliases to model metadata.
var Models = map[string]ModelInfo{
	"gpt-3.5": {
		ID:          "openai/gpt-3.5-turbo",
		Name:        "GPT-3.5 Turbo",
		Provider:    "OpenAI",
		MaxTokens:   16385,
		Description: "Fast general purpose chat model",
	},
	"gpt-4o": {
		ID:          "openai/gpt-4o",
		Name:        "GPT-4o",
		Provider:    "OpenAI",
		MaxTokens:   128000,
		Description: "Multimodal flagship model",
	},
	"gpt-4o-mini": {
		ID:          "openai/gpt-4o-mini",
		Name:        "GPT-4o Mini",
		Provider:    "OpenAI",
		MaxTokens:   128000,
		Description: "Small, cheap GPT-4o variant",
	},
	"claude-3": {
		ID:          "anthropic/claude-3-opus",
		Name:        "Claude 3 Opus",
		Provider:    "Anthropic",
		MaxTokens:   200000,
		Description: "Most capable Claude 3 model",
	},
	"claude-3-sonnet": {
		ID:          "anthropic/claude-3-sonnet",
		Name:        "Claude 3 Sonnet",
		Provider:    "Anthropic",
		MaxTokens:   200000,
		Description: "Balanced Claude 3 model",
	},
	"claude-3-haiku": {
		ID:          "anthropic/claude-3-haiku",
		Name:        "Claude 3 Haiku",
		Provider:    "Anthropic",
		MaxTokens:   200000,
		Description: "Fast and efficient for simple tasks",
	},
	"llama3": {
		ID:          "meta-llama/llama-3-70b-instruct",
		Name:        "Llama 3 70B Instruct",
		Provider:    "Meta",
		MaxTokens:   8192,
		Description: "Open-weights instruction model",
	},
	"mixtral": {
		ID:          "mistralai/mixtral-8x7b-instruct",
		Name:        "Mixtral 8x7B Instruct",
		Provider:    "Mistral",
		MaxTokens:   32768,
		Description: "Sparse mixture-of-experts model",
	},
}

// =============================================================================
// MODEL LOOKUP FUNCTIONS
// =============================================================================

// GetModelInfo looks up a model by alias or full ID.
func GetModelInfo(nameOrID string) (ModelInfo, bool) {
	if info, ok := Models[nameOrID]; ok {
		return info, true
	}
	for _, info := range Models {
		if info.ID == nameOrID {
			return info, true
		}
	}
	return ModelInfo{}, false
}

// ResolveModel turns an alias into a model ID. Anything that is not a known
// alias is assumed to already be a provider-qualified ID and is returned
// trimmed, so users can pick models missing from the registry.
func ResolveModel(name string) string {
	name = strings.TrimSpace(name)
	if info, ok := Models[name]; ok {
		return info.ID
	}
	return name
}

// ModelAliases returns all registry aliases sorted alphabetically.
func ModelAliases() []string {
	names := make([]string, 0, len(Models))
	for name := range Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
