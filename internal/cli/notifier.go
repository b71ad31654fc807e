// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
)

// toastNotifier prints session notices as one styled line each. Success
// notices are dropped in quiet mode; errors always show.
type toastNotifier struct {
	w     io.Writer
	quiet bool
}

func newToastNotifier(w io.Writer, quiet bool) *toastNotifier {
	return &toastNotifier{w: w, quiet: quiet}
}

func (n *toastNotifier) Success(msg string) {
	if n.quiet {
		return
	}
	fmt.Fprintf(n.w, "%s %s\n", SuccessStyle.Render("✓"), msg)
}

func (n *toastNotifier) Error(msg string) {
	fmt.Fprintf(n.w, "%s %s\n", ErrorStyle.Render("✗"), msg)
}
