// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package trustchain

import (
	"errors"
	"strings"
)

// ErrTrustchain is the sentinel wrapped by every Error produced by this
// package. Use errors.Is to detect trustchain failures and errors.As to
// inspect the failing signature path.
var ErrTrustchain = errors.New("invalid trustchain")

// Error reports a broken link in a certificate chain. Path lists the
// certificates walked so far, subject first, rendered joined by
// " <-sign- " so the failing author chain reads left to right.
type Error struct {
	Path   []string
	Reason string
}

func (e *Error) Error() string {
	if len(e.Path) == 0 {
		return e.Reason
	}
	return strings.Join(e.Path, " <-sign- ") + ": " + e.Reason
}

func (e *Error) Unwrap() error { return ErrTrustchain }

func chainError(path []string, reason string) error {
	// The path keeps growing during recursion; copy so later appends
	// cannot mutate the reported chain.
	frozen := make([]string, len(path))
	copy(frozen, path)
	return &Error{Path: frozen, Reason: reason}
}
