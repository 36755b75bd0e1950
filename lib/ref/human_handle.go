// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"net/mail"

	"github.com/fxamacker/cbor/v2"
)

// HumanHandle ties a user to a real person: an email address plus a
// display label ("John Doe"). The email is the identity, the label is
// presentation only; Equal compares emails and ignores labels.
//
// On the wire a HumanHandle is a 2-element CBOR array [email, label].
// In redacted certificates the handle is null, never partially blanked.
type HumanHandle struct {
	email string
	label string
}

// NewHumanHandle validates and builds a handle. The email must be a
// bare addr-spec (no display-name or angle brackets) of at most 254
// bytes; the label must be 1 to 254 bytes.
func NewHumanHandle(email, label string) (HumanHandle, error) {
	if email == "" {
		return HumanHandle{}, fmt.Errorf("email is empty")
	}
	if len(email) > maxEmailLength {
		return HumanHandle{}, fmt.Errorf("email is %d bytes, maximum is %d", len(email), maxEmailLength)
	}
	parsed, err := mail.ParseAddress(email)
	if err != nil {
		return HumanHandle{}, fmt.Errorf("invalid email %q: %w", email, err)
	}
	if parsed.Name != "" || parsed.Address != email {
		return HumanHandle{}, fmt.Errorf("email %q must be a bare address without display name", email)
	}
	if label == "" {
		return HumanHandle{}, fmt.Errorf("label is empty")
	}
	if len(label) > maxEmailLength {
		return HumanHandle{}, fmt.Errorf("label is %d bytes, maximum is %d", len(label), maxEmailLength)
	}
	return HumanHandle{email: email, label: label}, nil
}

// Email returns the address part of the handle.
func (h HumanHandle) Email() string { return h.email }

// Label returns the display label of the handle.
func (h HumanHandle) Label() string { return h.label }

// IsZero reports whether the HumanHandle is the zero value.
func (h HumanHandle) IsZero() bool { return h.email == "" }

// Equal reports whether both handles identify the same person. Labels
// are display-only and do not participate.
func (h HumanHandle) Equal(other HumanHandle) bool {
	return h.email == other.email
}

// String renders the handle as "Label <email>".
func (h HumanHandle) String() string {
	return h.label + " <" + h.email + ">"
}

// humanHandleWire is the CBOR shape: a fixed 2-element array.
type humanHandleWire struct {
	_     struct{} `cbor:",toarray"`
	Email string
	Label string
}

// MarshalCBOR implements cbor.Marshaler.
func (h HumanHandle) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(humanHandleWire{Email: h.email, Label: h.label})
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (h *HumanHandle) UnmarshalCBOR(data []byte) error {
	var wire humanHandleWire
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("invalid human handle encoding: %w", err)
	}
	parsed, err := NewHumanHandle(wire.Email, wire.Label)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
