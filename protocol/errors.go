// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"errors"
	"fmt"
)

// ErrProtocol is the sentinel for malformed wire structures, unknown
// commands, and unknown statuses.
var ErrProtocol = errors.New("invalid protocol message")

// HandshakeKind classifies handshake failures; the values mirror the
// result strings of the handshake result message.
type HandshakeKind string

const (
	HandshakeBadProtocol         HandshakeKind = "bad_protocol"
	HandshakeBadAdminToken       HandshakeKind = "bad_admin_token"
	HandshakeBadIdentity         HandshakeKind = "bad_identity"
	HandshakeOrganizationExpired HandshakeKind = "organization_expired"
	HandshakeRVKMismatch         HandshakeKind = "rvk_mismatch"
	HandshakeRevokedDevice       HandshakeKind = "revoked_device"
	HandshakeAPIVersionMismatch  HandshakeKind = "api_version_mismatch"
)

// HandshakeError reports a failed handshake, either detected locally
// or relayed by the peer's result message.
type HandshakeError struct {
	Kind HandshakeKind
	Help string
}

func (e *HandshakeError) Error() string {
	if e.Help != "" {
		return fmt.Sprintf("handshake failed: %s (%s)", e.Kind, e.Help)
	}
	return fmt.Sprintf("handshake failed: %s", e.Kind)
}

// ConnectionKind classifies backend connection failures.
type ConnectionKind string

const (
	// ConnectionOffline covers transient transport failures; the
	// manager reconnects with backoff.
	ConnectionOffline ConnectionKind = "offline"
	// ConnectionRefused means the backend rejected the credentials.
	// Terminal for a given device; reconnecting cannot help.
	ConnectionRefused ConnectionKind = "refused"
	// ConnectionCrashed covers violations of the wire protocol by the
	// peer.
	ConnectionCrashed ConnectionKind = "crashed"
)

// BackendConnectionError reports why talking to the backend failed.
type BackendConnectionError struct {
	Kind ConnectionKind
	Err  error
}

func (e *BackendConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend connection %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("backend connection %s", e.Kind)
}

func (e *BackendConnectionError) Unwrap() error { return e.Err }
