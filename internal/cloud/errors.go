// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jeranaias/chathub/internal/util"
)

// unknownModelMarker is the phrase OpenRouter uses in 400 responses for a
// model id it does not recognize.
const unknownModelMarker = "not a valid model ID"

// Error variables for common API failures. APIError unwraps to one of these
// where the status allows, so callers can use errors.Is.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("OpenRouter API key not configured")

	// ErrAuthFailed indicates an invalid or expired API key.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the endpoint or model does not exist.
	ErrModelNotFound = errors.New("model not found")

	// ErrInsufficientCredits indicates the account is out of credits.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrUnknownModel indicates the API rejected the model identifier.
	ErrUnknownModel = errors.New("unknown model")
)

// APIError is a non-200 response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("OpenRouter error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("OpenRouter error (HTTP %d): %s", e.Status, e.Message)
}

// Unwrap maps the status onto a sentinel error.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		if strings.Contains(e.Message, unknownModelMarker) {
			return ErrUnknownModel
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthFailed
	case http.StatusPaymentRequired:
		return ErrInsufficientCredits
	case http.StatusNotFound:
		return ErrModelNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// IsUnknownModel reports whether err is the API rejecting a model id.
func IsUnknownModel(err error) bool {
	return errors.Is(err, ErrUnknownModel)
}

// newAPIError builds an APIError from a response body, preferring the
// structured {"error": {...}} form and falling back to the raw text.
func newAPIError(status int, body []byte) *APIError {
	var parsed apiErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return &APIError{
			Status:  status,
			Code:    strings.Trim(string(parsed.Error.Code), `"`),
			Message: parsed.Error.Message,
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Status: status, Message: util.TruncateRunes(msg, 500)}
}
