// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

// Package trustchain verifies certificate chains against an
// organization root key.
//
// Every certificate is signed either by the organization root key or
// by a device of the organization, whose own device certificate is in
// turn signed by another device, terminating at the root key. A
// Context walks that chain recursively, checking at each hop that the
// signing device's user held the ADMIN profile and was not revoked at
// the time of signature. Successful verifications are cached with a
// configurable time to live so that repeated loads of the same
// organization members stay cheap.
//
// Verification never trusts its inputs: certificates arrive as raw
// signed payloads, are parsed with the unsecure loaders of lib/data,
// and only count once their whole author chain has been checked.
package trustchain
