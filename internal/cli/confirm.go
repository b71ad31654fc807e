// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation for destructive commands.
//
//  1. --confirm (or -y) proceeds without prompting
//  2. --json mode requires --confirm
//  3. Non-interactive stdin requires --confirm (TTYRequiredError)
//  4. Otherwise the user is asked
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ConfirmationOptions carries the flags that decide whether to prompt.
type ConfirmationOptions struct {
	// ConfirmFlag is set when --confirm was passed.
	ConfirmFlag bool
	// JSONMode requires ConfirmFlag, since nobody is there to answer.
	JSONMode bool
	// Interactive is set when stdin is a terminal.
	Interactive bool
}

// RequireConfirmation asks the user to confirm action. It returns an error
// when confirmation is needed but cannot be asked for.
func RequireConfirmation(in io.Reader, out io.Writer, action string, opts ConfirmationOptions) (bool, error) {
	if opts.ConfirmFlag {
		return true, nil
	}
	if opts.JSONMode {
		return false, &ValidationError{
			Field:   "confirmation",
			Reason:  fmt.Sprintf("%s requires --confirm in --json mode", action),
			Example: "--confirm",
		}
	}
	if !opts.Interactive {
		return false, &TTYRequiredError{Operation: "confirm " + action, Flag: "--confirm"}
	}

	fmt.Fprintf(out, "%s %s? [y/N]: ", WarningStyle.Render("Confirm:"), action)
	return readYes(in), nil
}

func readYes(in io.Reader) bool {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// showCancelled prints the standard cancellation notice.
func showCancelled(out io.Writer) {
	fmt.Fprintln(out, DimStyle.Render("Cancelled."))
}
