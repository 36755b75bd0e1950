// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides strongly typed, immutable identifiers and value
// objects for the Parsec data plane: organization, user and device
// names, filesystem entry names, human handles, UUID-backed resource
// IDs, role and profile enumerations, and the microsecond-precision
// DateTime used by every signed payload.
//
// All constructors validate their inputs and return errors for invalid
// values. Once constructed a ref is immutable; the zero value of each
// type is not valid and can be detected with IsZero.
//
// Serialization uses encoding.TextMarshaler / TextUnmarshaler so the
// canonical codec emits each identifier as a text string (UUID-backed
// IDs as 32 lowercase hex characters). DateTime and HumanHandle carry
// their own CBOR representation because the wire encodes them as fixed
// arrays rather than strings.
package ref
