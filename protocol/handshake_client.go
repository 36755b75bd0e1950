// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"
	"time"

	"github.com/parsec-foundation/parsec/lib/clock"
	"github.com/parsec-foundation/parsec/lib/codec"
	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/ref"
)

// parseChallenge decodes and version-negotiates a server challenge.
// When clk is non-nil the backend clock is checked against the local
// one so a skewed client fails fast instead of at the first timestamped
// command.
func parseChallenge(raw []byte, clk clock.Clock) (*challengeWire, APIVersion, APIVersion, error) {
	var wire challengeWire
	if err := codec.Unmarshal(raw, &wire); err != nil {
		return nil, APIVersion{}, APIVersion{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if wire.Handshake != handshakeChallenge {
		return nil, APIVersion{}, APIVersion{}, fmt.Errorf("%w: expected handshake challenge, got %q", ErrProtocol, wire.Handshake)
	}
	if len(wire.Challenge) != ChallengeSize {
		return nil, APIVersion{}, APIVersion{}, fmt.Errorf("%w: challenge is %d bytes, want %d", ErrProtocol, len(wire.Challenge), ChallengeSize)
	}
	client, backend, err := SettleCompatibleVersions(SupportedAPIVersions, wire.SupportedAPIVersions)
	if err != nil {
		return nil, APIVersion{}, APIVersion{}, err
	}
	if clk != nil && !wire.BackendTimestamp.IsZero() {
		local := ref.FromTime(clk.Now())
		if !TimestampInBallpark(local, wire.BackendTimestamp) {
			return nil, APIVersion{}, APIVersion{}, &BadTimestampError{
				BallparkClientEarlyOffset: time.Duration(wire.BallparkClientEarlyOffset * float64(time.Second)),
				BallparkClientLateOffset:  time.Duration(wire.BallparkClientLateOffset * float64(time.Second)),
				BackendTimestamp:          wire.BackendTimestamp,
				ClientTimestamp:           local,
			}
		}
	}
	return &wire, client, backend, nil
}

// ProcessResult parses the final handshake message. It returns nil for
// an ok result and a *HandshakeError carrying the reported kind
// otherwise.
func ProcessResult(raw []byte) error {
	var wire resultWire
	if err := codec.Unmarshal(raw, &wire); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if wire.Handshake != handshakeResult {
		return fmt.Errorf("%w: expected handshake result, got %q", ErrProtocol, wire.Handshake)
	}
	if wire.Result == resultOK {
		return nil
	}
	return &HandshakeError{Kind: HandshakeKind(wire.Result), Help: wire.Help}
}

// AuthenticatedClientHandshake proves possession of a device signing
// key by signing the server challenge.
type AuthenticatedClientHandshake struct {
	OrganizationID ref.OrganizationID
	DeviceID       ref.DeviceID
	SigningKey     crypto.SigningKey
	RootVerifyKey  crypto.VerifyKey

	// Clock, when set, rejects challenges whose backend timestamp is
	// out of ballpark with the local clock.
	Clock clock.Clock

	// Populated by ProcessChallenge.
	ClientAPIVersion  APIVersion
	BackendAPIVersion APIVersion
}

// ProcessChallenge negotiates versions and returns the answer message.
func (c *AuthenticatedClientHandshake) ProcessChallenge(raw []byte) ([]byte, error) {
	wire, client, backend, err := parseChallenge(raw, c.Clock)
	if err != nil {
		return nil, err
	}
	c.ClientAPIVersion = client
	c.BackendAPIVersion = backend

	payload, err := codec.Marshal(&signedAnswerWire{Answer: wire.Challenge})
	if err != nil {
		return nil, err
	}
	return codec.Marshal(&answerWire{
		Handshake:        handshakeAnswer,
		Type:             answerAuthenticated,
		ClientAPIVersion: client,
		OrganizationID:   c.OrganizationID.String(),
		DeviceID:         c.DeviceID.String(),
		RVK:              c.RootVerifyKey.Bytes(),
		Answer:           c.SigningKey.Sign(payload),
	})
}

// AnonymousClientHandshake is used by invitation claimers (Token set)
// and organization bootstrap (Token nil).
type AnonymousClientHandshake struct {
	OrganizationID ref.OrganizationID
	Token          *ref.InvitationToken
	Clock          clock.Clock

	ClientAPIVersion  APIVersion
	BackendAPIVersion APIVersion
}

// ProcessChallenge negotiates versions and returns the answer message.
func (c *AnonymousClientHandshake) ProcessChallenge(raw []byte) ([]byte, error) {
	_, client, backend, err := parseChallenge(raw, c.Clock)
	if err != nil {
		return nil, err
	}
	c.ClientAPIVersion = client
	c.BackendAPIVersion = backend

	answer := &answerWire{
		Handshake:        handshakeAnswer,
		Type:             answerAnonymous,
		ClientAPIVersion: client,
		OrganizationID:   c.OrganizationID.String(),
	}
	if c.Token != nil {
		answer.Token = c.Token.String()
	}
	return codec.Marshal(answer)
}

// AdministrationClientHandshake authenticates with the backend
// administration token.
type AdministrationClientHandshake struct {
	Token string
	Clock clock.Clock

	ClientAPIVersion  APIVersion
	BackendAPIVersion APIVersion
}

// ProcessChallenge negotiates versions and returns the answer message.
func (c *AdministrationClientHandshake) ProcessChallenge(raw []byte) ([]byte, error) {
	_, client, backend, err := parseChallenge(raw, c.Clock)
	if err != nil {
		return nil, err
	}
	c.ClientAPIVersion = client
	c.BackendAPIVersion = backend

	return codec.Marshal(&answerWire{
		Handshake:        handshakeAnswer,
		Type:             answerAdministration,
		ClientAPIVersion: client,
		Token:            c.Token,
	})
}
