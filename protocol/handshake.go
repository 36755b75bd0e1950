// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"github.com/parsec-foundation/parsec/lib/clock"
	"github.com/parsec-foundation/parsec/lib/codec"
	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/ref"
)

// ChallengeSize is the length of the random handshake challenge.
const ChallengeSize = 48

const (
	handshakeChallenge = "challenge"
	handshakeAnswer    = "answer"
	handshakeResult    = "result"

	answerAuthenticated  = "authenticated"
	answerAnonymous      = "anonymous"
	answerAdministration = "administration"

	resultOK = "ok"
)

type challengeWire struct {
	Handshake                 string       `cbor:"handshake"`
	Challenge                 []byte       `cbor:"challenge"`
	SupportedAPIVersions      []APIVersion `cbor:"supported_api_versions"`
	BackendTimestamp          ref.DateTime `cbor:"backend_timestamp"`
	BallparkClientEarlyOffset float64      `cbor:"ballpark_client_early_offset"`
	BallparkClientLateOffset  float64      `cbor:"ballpark_client_late_offset"`
}

type answerWire struct {
	Handshake        string     `cbor:"handshake"`
	Type             string     `cbor:"type"`
	ClientAPIVersion APIVersion `cbor:"client_api_version"`
	OrganizationID   string     `cbor:"organization_id,omitempty"`
	DeviceID         string     `cbor:"device_id,omitempty"`
	RVK              []byte     `cbor:"rvk,omitempty"`
	Answer           []byte     `cbor:"answer,omitempty"`
	Token            string     `cbor:"token,omitempty"`
}

type resultWire struct {
	Handshake string `cbor:"handshake"`
	Result    string `cbor:"result"`
	Help      string `cbor:"help,omitempty"`
}

// signedAnswerWire is the payload a client signs to prove possession
// of its device signing key.
type signedAnswerWire struct {
	Answer []byte `cbor:"answer"`
}

// AuthenticatedAnswer is a device authenticating with its signing key.
type AuthenticatedAnswer struct {
	ClientAPIVersion APIVersion
	OrganizationID   ref.OrganizationID
	DeviceID         ref.DeviceID
	RootVerifyKey    crypto.VerifyKey
	Answer           []byte
}

// AnonymousAnswer is an invitation claimer or an organization
// bootstrapper; it carries no proof of identity.
type AnonymousAnswer struct {
	ClientAPIVersion APIVersion
	OrganizationID   ref.OrganizationID
	Token            *ref.InvitationToken
}

// AdministrationAnswer authenticates with the backend administration
// token.
type AdministrationAnswer struct {
	ClientAPIVersion APIVersion
	Token            string
}

// ServerHandshake drives the backend side of the exchange: emit a
// challenge, parse the answer, emit a result. The zero value is not
// usable; construct with NewServerHandshake.
type ServerHandshake struct {
	clock    clock.Clock
	versions []APIVersion

	challenge []byte
	answered  bool

	// Populated by ProcessAnswer.
	Answer            any
	ClientAPIVersion  APIVersion
	BackendAPIVersion APIVersion
}

// NewServerHandshake builds a server handshake advertising the given
// API versions, or SupportedAPIVersions when none are given.
func NewServerHandshake(clk clock.Clock, versions ...APIVersion) *ServerHandshake {
	if len(versions) == 0 {
		versions = SupportedAPIVersions
	}
	return &ServerHandshake{clock: clk, versions: versions}
}

// BuildChallenge generates the random challenge message. It may be
// called once per handshake.
func (h *ServerHandshake) BuildChallenge() ([]byte, error) {
	if h.challenge != nil {
		return nil, fmt.Errorf("%w: challenge already issued", ErrProtocol)
	}
	challenge := make([]byte, ChallengeSize)
	if _, err := rand.Read(challenge); err != nil {
		return nil, err
	}
	h.challenge = challenge
	return codec.Marshal(&challengeWire{
		Handshake:                 handshakeChallenge,
		Challenge:                 challenge,
		SupportedAPIVersions:      h.versions,
		BackendTimestamp:          ref.FromTime(h.clock.Now()),
		BallparkClientEarlyOffset: BallparkClientEarlyOffset.Seconds(),
		BallparkClientLateOffset:  BallparkClientLateOffset.Seconds(),
	})
}

// ProcessAnswer parses the client answer, negotiates the API version,
// and returns the typed answer (one of *AuthenticatedAnswer,
// *AnonymousAnswer, *AdministrationAnswer). A version mismatch fails
// with *IncompatibleAPIVersionsError; the server should then send the
// bad_protocol result.
func (h *ServerHandshake) ProcessAnswer(raw []byte) (any, error) {
	if h.challenge == nil || h.answered {
		return nil, fmt.Errorf("%w: answer out of sequence", ErrProtocol)
	}
	var wire answerWire
	if err := codec.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if wire.Handshake != handshakeAnswer {
		return nil, fmt.Errorf("%w: expected handshake answer, got %q", ErrProtocol, wire.Handshake)
	}
	client, backend, err := SettleCompatibleVersions([]APIVersion{wire.ClientAPIVersion}, h.versions)
	if err != nil {
		return nil, err
	}

	answer, err := wire.toAnswer()
	if err != nil {
		return nil, err
	}
	h.Answer = answer
	h.ClientAPIVersion = client
	h.BackendAPIVersion = backend
	h.answered = true
	return answer, nil
}

func (w *answerWire) toAnswer() (any, error) {
	switch w.Type {
	case answerAuthenticated:
		organizationID, err := ref.ParseOrganizationID(w.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		deviceID, err := ref.ParseDeviceID(w.DeviceID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		rvk, err := crypto.VerifyKeyFromBytes(w.RVK)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		if len(w.Answer) == 0 {
			return nil, fmt.Errorf("%w: authenticated answer carries no signed challenge", ErrProtocol)
		}
		return &AuthenticatedAnswer{
			ClientAPIVersion: w.ClientAPIVersion,
			OrganizationID:   organizationID,
			DeviceID:         deviceID,
			RootVerifyKey:    rvk,
			Answer:           w.Answer,
		}, nil
	case answerAnonymous:
		organizationID, err := ref.ParseOrganizationID(w.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		answer := &AnonymousAnswer{
			ClientAPIVersion: w.ClientAPIVersion,
			OrganizationID:   organizationID,
		}
		if w.Token != "" {
			token, err := ref.ParseInvitationToken(w.Token)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
			}
			answer.Token = &token
		}
		return answer, nil
	case answerAdministration:
		if w.Token == "" {
			return nil, fmt.Errorf("%w: administration answer carries no token", ErrProtocol)
		}
		return &AdministrationAnswer{
			ClientAPIVersion: w.ClientAPIVersion,
			Token:            w.Token,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown answer type %q", ErrProtocol, w.Type)
	}
}

// VerifySignedAnswer checks that an authenticated answer signed this
// handshake's challenge under the given device verify key. Failure is
// a bad identity.
func (h *ServerHandshake) VerifySignedAnswer(key crypto.VerifyKey) error {
	answer, ok := h.Answer.(*AuthenticatedAnswer)
	if !ok {
		return fmt.Errorf("%w: no authenticated answer to verify", ErrProtocol)
	}
	payload, err := key.Verify(answer.Answer)
	if err != nil {
		return &HandshakeError{Kind: HandshakeBadIdentity, Help: "Invalid signed answer"}
	}
	var signed signedAnswerWire
	if err := codec.Unmarshal(payload, &signed); err != nil {
		return &HandshakeError{Kind: HandshakeBadIdentity, Help: "Invalid signed answer"}
	}
	if !bytes.Equal(signed.Answer, h.challenge) {
		return &HandshakeError{Kind: HandshakeBadIdentity, Help: "Signed challenge mismatch"}
	}
	return nil
}

// BuildOKResult finishes a successful handshake.
func (h *ServerHandshake) BuildOKResult() ([]byte, error) {
	if !h.answered {
		return nil, fmt.Errorf("%w: result before answer", ErrProtocol)
	}
	return codec.Marshal(&resultWire{Handshake: handshakeResult, Result: resultOK})
}

// BuildErrorResult reports a failed handshake to the client. The
// version-mismatch kind is relayed on the wire as bad_protocol, which
// every client version understands.
func (h *ServerHandshake) BuildErrorResult(kind HandshakeKind, help string) ([]byte, error) {
	result := string(kind)
	if kind == HandshakeAPIVersionMismatch {
		result = string(HandshakeBadProtocol)
	}
	return codec.Marshal(&resultWire{Handshake: handshakeResult, Result: result, Help: help})
}
