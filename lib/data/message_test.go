// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package data

import (
	"errors"
	"strings"
	"testing"

	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/ref"
)

func TestSharingGrantedMessageRoundTrip(t *testing.T) {
	senderKey := mustSigningKey(t)
	recipientKey := mustPrivateKey(t)
	workspaceKey := mustSecretKey(t)

	sent := &SharingGrantedMessage{
		Name:               mustEntryName(t, "project"),
		ID:                 ref.NewEntryID(),
		EncryptionRevision: 1,
		EncryptedOn:        mustDateTime(t, "2000-01-02T00:00:00+00:00"),
		Key:                workspaceKey,
	}
	ciphered, err := sent.DumpSignAndEncryptFor(senderKey, recipientKey.PublicKey())
	if err != nil {
		t.Fatalf("DumpSignAndEncryptFor: %v", err)
	}

	loaded, err := DecryptVerifyAndLoadMessage(ciphered, recipientKey, senderKey.VerifyKey())
	if err != nil {
		t.Fatalf("DecryptVerifyAndLoadMessage: %v", err)
	}
	granted, ok := loaded.(*SharingGrantedMessage)
	if !ok {
		t.Fatalf("loaded %T, want *SharingGrantedMessage", loaded)
	}
	if granted.ID != sent.ID || granted.Key != workspaceKey || granted.EncryptionRevision != 1 {
		t.Errorf("fields lost: %+v", granted)
	}
	if !granted.EncryptedOn.Equal(sent.EncryptedOn) {
		t.Errorf("EncryptedOn = %s, want %s", granted.EncryptedOn, sent.EncryptedOn)
	}
}

func TestSharingReencryptedMessageRoundTrip(t *testing.T) {
	senderKey := mustSigningKey(t)
	recipientKey := mustPrivateKey(t)

	sent := &SharingReencryptedMessage{
		Name:               mustEntryName(t, "project"),
		ID:                 ref.NewEntryID(),
		EncryptionRevision: 2,
		EncryptedOn:        mustDateTime(t, "2000-01-03T00:00:00+00:00"),
		Key:                mustSecretKey(t),
	}
	ciphered, err := sent.DumpSignAndEncryptFor(senderKey, recipientKey.PublicKey())
	if err != nil {
		t.Fatalf("DumpSignAndEncryptFor: %v", err)
	}
	loaded, err := DecryptVerifyAndLoadMessage(ciphered, recipientKey, senderKey.VerifyKey())
	if err != nil {
		t.Fatalf("DecryptVerifyAndLoadMessage: %v", err)
	}
	if _, ok := loaded.(*SharingReencryptedMessage); !ok {
		t.Fatalf("loaded %T, want *SharingReencryptedMessage", loaded)
	}
}

func TestSharingRevokedMessageRoundTrip(t *testing.T) {
	senderKey := mustSigningKey(t)
	recipientKey := mustPrivateKey(t)

	sent := &SharingRevokedMessage{ID: ref.NewEntryID()}
	ciphered, err := sent.DumpSignAndEncryptFor(senderKey, recipientKey.PublicKey())
	if err != nil {
		t.Fatalf("DumpSignAndEncryptFor: %v", err)
	}
	loaded, err := DecryptVerifyAndLoadMessage(ciphered, recipientKey, senderKey.VerifyKey())
	if err != nil {
		t.Fatalf("DecryptVerifyAndLoadMessage: %v", err)
	}
	revoked, ok := loaded.(*SharingRevokedMessage)
	if !ok {
		t.Fatalf("loaded %T, want *SharingRevokedMessage", loaded)
	}
	if revoked.ID != sent.ID {
		t.Errorf("ID = %s, want %s", revoked.ID, sent.ID)
	}
}

func TestPingMessageRoundTrip(t *testing.T) {
	senderKey := mustSigningKey(t)
	recipientKey := mustPrivateKey(t)

	sent := &PingMessage{Ping: "hello"}
	ciphered, err := sent.DumpSignAndEncryptFor(senderKey, recipientKey.PublicKey())
	if err != nil {
		t.Fatalf("DumpSignAndEncryptFor: %v", err)
	}
	loaded, err := DecryptVerifyAndLoadMessage(ciphered, recipientKey, senderKey.VerifyKey())
	if err != nil {
		t.Fatalf("DecryptVerifyAndLoadMessage: %v", err)
	}
	ping, ok := loaded.(*PingMessage)
	if !ok {
		t.Fatalf("loaded %T, want *PingMessage", loaded)
	}
	if ping.Ping != "hello" {
		t.Errorf("Ping = %q", ping.Ping)
	}
}

func TestPingMessageSizeBound(t *testing.T) {
	senderKey := mustSigningKey(t)
	recipientKey := mustPrivateKey(t)

	oversized := &PingMessage{Ping: strings.Repeat("x", maxPingSize+1)}
	if _, err := oversized.DumpSignAndEncryptFor(senderKey, recipientKey.PublicKey()); !errors.Is(err, ErrInvalidData) {
		t.Errorf("oversized ping: got %v, want ErrInvalidData", err)
	}

	atLimit := &PingMessage{Ping: strings.Repeat("x", maxPingSize)}
	if _, err := atLimit.DumpSignAndEncryptFor(senderKey, recipientKey.PublicKey()); err != nil {
		t.Errorf("ping at limit: %v", err)
	}
}

func TestMessageWrongRecipientFails(t *testing.T) {
	senderKey := mustSigningKey(t)
	recipientKey := mustPrivateKey(t)
	eavesdropperKey := mustPrivateKey(t)

	ciphered, err := (&PingMessage{Ping: "secret"}).DumpSignAndEncryptFor(senderKey, recipientKey.PublicKey())
	if err != nil {
		t.Fatalf("DumpSignAndEncryptFor: %v", err)
	}
	if _, err := DecryptVerifyAndLoadMessage(ciphered, eavesdropperKey, senderKey.VerifyKey()); !errors.Is(err, crypto.ErrDecryption) {
		t.Errorf("wrong recipient: got %v, want ErrDecryption", err)
	}
}

func TestMessageWrongAuthorFails(t *testing.T) {
	senderKey := mustSigningKey(t)
	impostorKey := mustSigningKey(t)
	recipientKey := mustPrivateKey(t)

	ciphered, err := (&PingMessage{Ping: "hello"}).DumpSignAndEncryptFor(senderKey, recipientKey.PublicKey())
	if err != nil {
		t.Fatalf("DumpSignAndEncryptFor: %v", err)
	}
	if _, err := DecryptVerifyAndLoadMessage(ciphered, recipientKey, impostorKey.VerifyKey()); !errors.Is(err, crypto.ErrSignature) {
		t.Errorf("wrong author key: got %v, want ErrSignature", err)
	}
}

func TestSharingMessageRejectsZeroRevision(t *testing.T) {
	senderKey := mustSigningKey(t)
	recipientKey := mustPrivateKey(t)

	bad := &SharingGrantedMessage{
		Name:               mustEntryName(t, "project"),
		ID:                 ref.NewEntryID(),
		EncryptionRevision: 0,
		EncryptedOn:        mustDateTime(t, "2000-01-02T00:00:00+00:00"),
		Key:                mustSecretKey(t),
	}
	ciphered, err := bad.DumpSignAndEncryptFor(senderKey, recipientKey.PublicKey())
	if err != nil {
		t.Fatalf("DumpSignAndEncryptFor: %v", err)
	}
	if _, err := DecryptVerifyAndLoadMessage(ciphered, recipientKey, senderKey.VerifyKey()); !errors.Is(err, ErrInvalidData) {
		t.Errorf("zero revision: got %v, want ErrInvalidData", err)
	}
}
