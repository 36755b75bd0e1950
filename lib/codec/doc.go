// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Parsec's canonical serialization configuration.
//
// Every signed or encrypted payload in Parsec (certificates, manifests,
// messages, protocol commands) is a CBOR map encoded with Core
// Deterministic Encoding (RFC 8949 §4.2): sorted map keys, smallest
// integer encoding, no indefinite-length items. Determinism matters
// because the encoded bytes are what gets signed; the same logical data
// must always produce identical bytes or signatures would not be stable.
//
// Polymorphic payloads carry a string "type" discriminator as a regular
// map entry. ProbeType extracts it without decoding the full payload so
// callers can dispatch to the right concrete type.
//
// The package also provides the zlib layer used by the signing and
// encryption envelopes: payloads are compressed after encoding and
// before signing, mirroring the wire format.
package codec
