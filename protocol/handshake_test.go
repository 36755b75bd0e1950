// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"errors"
	"testing"
	"time"

	"github.com/parsec-foundation/parsec/lib/clock"
	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/ref"
)

func testClock() clock.Clock {
	return clock.Fake(time.Date(2000, 1, 2, 12, 0, 0, 0, time.UTC))
}

func mustOrganizationID(t *testing.T, raw string) ref.OrganizationID {
	t.Helper()
	id, err := ref.ParseOrganizationID(raw)
	if err != nil {
		t.Fatalf("ParseOrganizationID(%q): %v", raw, err)
	}
	return id
}

func mustDeviceID(t *testing.T, raw string) ref.DeviceID {
	t.Helper()
	id, err := ref.ParseDeviceID(raw)
	if err != nil {
		t.Fatalf("ParseDeviceID(%q): %v", raw, err)
	}
	return id
}

func TestAuthenticatedHandshake(t *testing.T) {
	rootKey, err := crypto.NewSigningKey()
	if err != nil {
		t.Fatalf("NewSigningKey: %v", err)
	}
	deviceKey, err := crypto.NewSigningKey()
	if err != nil {
		t.Fatalf("NewSigningKey: %v", err)
	}

	server := NewServerHandshake(testClock())
	challenge, err := server.BuildChallenge()
	if err != nil {
		t.Fatalf("BuildChallenge: %v", err)
	}

	client := &AuthenticatedClientHandshake{
		OrganizationID: mustOrganizationID(t, "CoolOrg"),
		DeviceID:       mustDeviceID(t, "alice@dev1"),
		SigningKey:     deviceKey,
		RootVerifyKey:  rootKey.VerifyKey(),
		Clock:          testClock(),
	}
	answerMsg, err := client.ProcessChallenge(challenge)
	if err != nil {
		t.Fatalf("ProcessChallenge: %v", err)
	}
	if client.ClientAPIVersion != APIVersionV2 {
		t.Errorf("negotiated %s", client.ClientAPIVersion)
	}

	parsed, err := server.ProcessAnswer(answerMsg)
	if err != nil {
		t.Fatalf("ProcessAnswer: %v", err)
	}
	answer, ok := parsed.(*AuthenticatedAnswer)
	if !ok {
		t.Fatalf("answer is %T", parsed)
	}
	if answer.OrganizationID.String() != "CoolOrg" || answer.DeviceID.String() != "alice@dev1" {
		t.Errorf("answer = %+v", answer)
	}
	if answer.RootVerifyKey != rootKey.VerifyKey() {
		t.Error("rvk lost in transit")
	}
	if err := server.VerifySignedAnswer(deviceKey.VerifyKey()); err != nil {
		t.Fatalf("VerifySignedAnswer: %v", err)
	}

	result, err := server.BuildOKResult()
	if err != nil {
		t.Fatalf("BuildOKResult: %v", err)
	}
	if err := ProcessResult(result); err != nil {
		t.Fatalf("ProcessResult: %v", err)
	}
}

func TestHandshakeWrongKeyRejected(t *testing.T) {
	deviceKey, err := crypto.NewSigningKey()
	if err != nil {
		t.Fatalf("NewSigningKey: %v", err)
	}
	otherKey, err := crypto.NewSigningKey()
	if err != nil {
		t.Fatalf("NewSigningKey: %v", err)
	}
	rootKey, err := crypto.NewSigningKey()
	if err != nil {
		t.Fatalf("NewSigningKey: %v", err)
	}

	server := NewServerHandshake(testClock())
	challenge, err := server.BuildChallenge()
	if err != nil {
		t.Fatalf("BuildChallenge: %v", err)
	}
	client := &AuthenticatedClientHandshake{
		OrganizationID: mustOrganizationID(t, "CoolOrg"),
		DeviceID:       mustDeviceID(t, "alice@dev1"),
		SigningKey:     deviceKey,
		RootVerifyKey:  rootKey.VerifyKey(),
	}
	answerMsg, err := client.ProcessChallenge(challenge)
	if err != nil {
		t.Fatalf("ProcessChallenge: %v", err)
	}
	if _, err := server.ProcessAnswer(answerMsg); err != nil {
		t.Fatalf("ProcessAnswer: %v", err)
	}

	err = server.VerifySignedAnswer(otherKey.VerifyKey())
	var handshakeErr *HandshakeError
	if !errors.As(err, &handshakeErr) || handshakeErr.Kind != HandshakeBadIdentity {
		t.Errorf("got %v, want bad_identity", err)
	}
}

func TestHandshakeVersionMismatch(t *testing.T) {
	server := NewServerHandshake(testClock(), APIVersion{Version: 9, Revision: 0})
	challenge, err := server.BuildChallenge()
	if err != nil {
		t.Fatalf("BuildChallenge: %v", err)
	}
	client := &AdministrationClientHandshake{Token: "s3cr3t"}
	_, err = client.ProcessChallenge(challenge)
	var mismatch *IncompatibleAPIVersionsError
	if !errors.As(err, &mismatch) {
		t.Fatalf("got %v, want IncompatibleAPIVersionsError", err)
	}

	// The server relays the mismatch as bad_protocol.
	result, err := server.BuildErrorResult(HandshakeAPIVersionMismatch, "version mismatch")
	if err != nil {
		t.Fatalf("BuildErrorResult: %v", err)
	}
	resultErr := ProcessResult(result)
	var handshakeErr *HandshakeError
	if !errors.As(resultErr, &handshakeErr) || handshakeErr.Kind != HandshakeBadProtocol {
		t.Errorf("got %v, want bad_protocol", resultErr)
	}
}

func TestAnonymousHandshakeWithToken(t *testing.T) {
	token := ref.NewInvitationToken()
	server := NewServerHandshake(testClock())
	challenge, err := server.BuildChallenge()
	if err != nil {
		t.Fatalf("BuildChallenge: %v", err)
	}
	client := &AnonymousClientHandshake{
		OrganizationID: mustOrganizationID(t, "CoolOrg"),
		Token:          &token,
	}
	answerMsg, err := client.ProcessChallenge(challenge)
	if err != nil {
		t.Fatalf("ProcessChallenge: %v", err)
	}
	parsed, err := server.ProcessAnswer(answerMsg)
	if err != nil {
		t.Fatalf("ProcessAnswer: %v", err)
	}
	answer, ok := parsed.(*AnonymousAnswer)
	if !ok {
		t.Fatalf("answer is %T", parsed)
	}
	if answer.Token == nil || *answer.Token != token {
		t.Errorf("token = %v", answer.Token)
	}
}

func TestAdministrationHandshake(t *testing.T) {
	server := NewServerHandshake(testClock())
	challenge, err := server.BuildChallenge()
	if err != nil {
		t.Fatalf("BuildChallenge: %v", err)
	}
	client := &AdministrationClientHandshake{Token: "s3cr3t"}
	answerMsg, err := client.ProcessChallenge(challenge)
	if err != nil {
		t.Fatalf("ProcessChallenge: %v", err)
	}
	parsed, err := server.ProcessAnswer(answerMsg)
	if err != nil {
		t.Fatalf("ProcessAnswer: %v", err)
	}
	answer, ok := parsed.(*AdministrationAnswer)
	if !ok || answer.Token != "s3cr3t" {
		t.Fatalf("answer = %#v", parsed)
	}
}

func TestHandshakeResultErrors(t *testing.T) {
	server := NewServerHandshake(testClock())
	if _, err := server.BuildChallenge(); err != nil {
		t.Fatalf("BuildChallenge: %v", err)
	}
	for _, kind := range []HandshakeKind{
		HandshakeBadAdminToken,
		HandshakeOrganizationExpired,
		HandshakeRVKMismatch,
		HandshakeRevokedDevice,
	} {
		result, err := server.BuildErrorResult(kind, "")
		if err != nil {
			t.Fatalf("BuildErrorResult(%s): %v", kind, err)
		}
		resultErr := ProcessResult(result)
		var handshakeErr *HandshakeError
		if !errors.As(resultErr, &handshakeErr) || handshakeErr.Kind != kind {
			t.Errorf("%s: got %v", kind, resultErr)
		}
	}
}

func TestClientRejectsSkewedBackendClock(t *testing.T) {
	server := NewServerHandshake(testClock())
	challenge, err := server.BuildChallenge()
	if err != nil {
		t.Fatalf("BuildChallenge: %v", err)
	}
	skewed := clock.Fake(time.Date(2000, 1, 2, 13, 0, 0, 0, time.UTC))
	client := &AdministrationClientHandshake{Token: "s3cr3t", Clock: skewed}
	_, err = client.ProcessChallenge(challenge)
	var bad *BadTimestampError
	if !errors.As(err, &bad) {
		t.Fatalf("got %v, want BadTimestampError", err)
	}
	if bad.BallparkClientEarlyOffset != BallparkClientEarlyOffset {
		t.Errorf("early offset = %s", bad.BallparkClientEarlyOffset)
	}
}

func TestServerRejectsAnswerOutOfSequence(t *testing.T) {
	server := NewServerHandshake(testClock())
	if _, err := server.ProcessAnswer([]byte{0xa0}); !errors.Is(err, ErrProtocol) {
		t.Errorf("got %v, want ErrProtocol", err)
	}
}
