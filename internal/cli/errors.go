// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, display and exit codes for CLI commands.
//
// Commands always return errors; main displays them once and maps them to
// an exit code.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/jeranaias/chathub/internal/cloud"
	"github.com/jeranaias/chathub/internal/config"
	"github.com/jeranaias/chathub/internal/export"
	"github.com/jeranaias/chathub/internal/session"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitAuthError     = 4
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError is a command failure with context.
type CommandError struct {
	Command string // e.g. "history"
	Action  string // e.g. "delete"
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError is bad user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NotFoundError is a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrMissingArgument reports a required argument that was not given.
func ErrMissingArgument(argName, usage string) error {
	return &ValidationError{Field: argName, Reason: "required argument missing", Example: usage}
}

// ErrUnknownSubcommand reports a subcommand the command does not have.
func ErrUnknownSubcommand(command, sub string, valid []string) error {
	return &ValidationError{
		Field:   command + " subcommand",
		Value:   sub,
		Reason:  "unknown subcommand",
		Example: fmt.Sprintf("chathub %s [%s]", command, strings.Join(valid, "|")),
	}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as a JSON envelope in JSON mode.
func DisplayError(w io.Writer, err error, command string, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		NewJSONErrorResponse(command, err).Print(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

// GetExitCode maps an error onto an exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var ttyErr *TTYRequiredError
	var notFoundErr *NotFoundError
	var configErrs config.ValidateErrors
	var netErr net.Error

	switch {
	case errors.As(err, &validationErr), errors.As(err, &ttyErr):
		return ExitUsageError
	case errors.As(err, &notFoundErr),
		errors.Is(err, session.ErrChatNotFound),
		errors.Is(err, export.ErrNoMessages):
		return ExitNotFoundError
	case errors.Is(err, cloud.ErrNotConfigured), errors.As(err, &configErrs):
		return ExitConfigError
	case errors.Is(err, cloud.ErrAuthFailed), errors.Is(err, cloud.ErrInsufficientCredits):
		return ExitAuthError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return ExitTimeoutError
		}
		return ExitNetworkError
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "config"):
		return ExitConfigError
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		return ExitNetworkError
	}
	return ExitGeneralError
}
