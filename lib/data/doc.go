// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

// Package data defines the signed and encrypted payloads of the Parsec
// data plane: certificates, remote manifests, recipient-addressed
// messages and invite payloads.
//
// Every payload is a CBOR map (lib/codec) wrapped in one of four
// envelopes:
//
//	E1  sign:                 signature || zlib(encode(struct))
//	E2  sign + secret key:    SecretKey.Encrypt(E1)
//	E3  sign + sealed box:    PublicKey.SealAnonymous(E1)
//	E4  local, unsigned:      SecretKey.Encrypt(zlib(encode(struct)))
//
// Certificates use E1, manifests E2, messages and invite payloads E3
// and E2 respectively, local storage E4.
//
// Loading is split in two deliberate steps. UnsecureLoad* parses a
// payload without checking its signature, exposing only the fields
// needed to locate the author's verify key; the result is a distinct
// Unsecure* type so unverified data cannot flow into verified code
// paths. VerifySignature / the VerifyAndLoad* helpers then check the
// signature and every caller-supplied expectation, failing with a
// FieldMismatchError naming the field and both values.
package data
