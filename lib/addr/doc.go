// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

// Package addr parses and renders parsec:// addresses.
//
// A backend address names a server. An organization address adds the
// organization and its root verify key. Bootstrap and invitation
// addresses are organization addresses carrying an action and a token
// instead of the key; they are handed out as links and parsed back
// when the recipient starts the corresponding ceremony.
//
// Addresses are values: parsing and rendering round-trip, and the
// core never mutates one.
package addr
