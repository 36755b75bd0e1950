// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package data

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidData reports a payload that decoded but violates its
	// schema: missing required field, wrong constant, forbidden
	// combination. Malformed bytes surface as codec.ErrMalformed and
	// bad signatures as crypto.ErrSignature; both are wrapped into
	// ErrInvalidData by the load helpers so callers have one sentinel
	// to match.
	ErrInvalidData = errors.New("data: invalid payload")

	// ErrUnknownType reports a polymorphic payload whose type
	// discriminator names no known variant.
	ErrUnknownType = errors.New("data: unknown type discriminator")
)

// FieldMismatchError reports a verified payload whose content does not
// match a caller-supplied expectation. The message format is stable;
// operator tooling and tests match on it.
type FieldMismatchError struct {
	Field    string
	Expected string
	Got      string
}

func (e *FieldMismatchError) Error() string {
	return fmt.Sprintf("Invalid %s: expected '%s', got '%s'", e.Field, e.Expected, e.Got)
}

// Unwrap makes every mismatch match errors.Is(err, ErrInvalidData).
func (e *FieldMismatchError) Unwrap() error { return ErrInvalidData }

// CertificateValidationError reports a failed server-side cross-check
// of a new user or device certificate bundle. Status is the protocol
// error status the failure maps to ("invalid_data" or
// "invalid_certification"); Reason is the human-readable explanation
// returned to the client.
type CertificateValidationError struct {
	Status string
	Reason string
}

func (e *CertificateValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Status, e.Reason)
}

func (e *CertificateValidationError) Unwrap() error { return ErrInvalidData }
