// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol implements the client/server wire surface: API
// version negotiation, the handshake challenge/answer/result exchange,
// command request and response envelopes, the timestamp ballpark
// check, length-prefixed framing, and a connection manager that
// multiplexes concurrent requests over one stream.
//
// Every message is a canonical-codec map. Requests carry a "cmd"
// discriminator, responses a "status"; "ok" decodes into the
// command-specific shape and anything else into a shared error shape.
// Unknown fields are ignored so envelopes round-trip through versions
// that do not know them.
package protocol
