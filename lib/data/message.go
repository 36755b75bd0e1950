// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package data

import (
	"fmt"

	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/ref"
)

// Type discriminators carried by message payloads.
const (
	typeSharingGrantedMessage     = "sharing.granted"
	typeSharingReencryptedMessage = "sharing.reencrypted"
	typeSharingRevokedMessage     = "sharing.revoked"
	typePingMessage               = "ping"
)

// maxPingSize bounds the ping payload.
const maxPingSize = 64

// Message is a recipient-addressed payload delivered through the
// server's message queue. Messages travel in envelope E3: signed by
// the sender's device, sealed for the recipient's public key.
type Message interface {
	// DumpSignAndEncryptFor serializes the message into envelope E3.
	DumpSignAndEncryptFor(author crypto.SigningKey, recipient crypto.PublicKey) ([]byte, error)
}

// SharingGrantedMessage tells the recipient they were granted access
// to a workspace and hands them the workspace key.
type SharingGrantedMessage struct {
	Name               ref.EntryName
	ID                 ref.EntryID
	EncryptionRevision uint32
	EncryptedOn        ref.DateTime
	Key                crypto.SecretKey
}

// SharingReencryptedMessage tells the recipient a workspace they can
// access was re-encrypted and hands them the new key.
type SharingReencryptedMessage struct {
	Name               ref.EntryName
	ID                 ref.EntryID
	EncryptionRevision uint32
	EncryptedOn        ref.DateTime
	Key                crypto.SecretKey
}

// SharingRevokedMessage tells the recipient their access to a
// workspace was withdrawn.
type SharingRevokedMessage struct {
	ID ref.EntryID
}

// PingMessage is a liveness probe used by tests and diagnostics.
type PingMessage struct {
	Ping string
}

type sharingMessageWire struct {
	Type               string        `cbor:"type"`
	Name               ref.EntryName `cbor:"name"`
	ID                 ref.EntryID   `cbor:"id"`
	EncryptionRevision uint32        `cbor:"encryption_revision"`
	EncryptedOn        ref.DateTime  `cbor:"encrypted_on"`
	Key                []byte        `cbor:"key"`
}

type sharingRevokedMessageWire struct {
	Type string      `cbor:"type"`
	ID   ref.EntryID `cbor:"id"`
}

type pingMessageWire struct {
	Type string `cbor:"type"`
	Ping string `cbor:"ping"`
}

// DumpSignAndEncryptFor implements Message.
func (m *SharingGrantedMessage) DumpSignAndEncryptFor(author crypto.SigningKey, recipient crypto.PublicKey) ([]byte, error) {
	wire := sharingMessageWire{
		Type:               typeSharingGrantedMessage,
		Name:               m.Name,
		ID:                 m.ID,
		EncryptionRevision: m.EncryptionRevision,
		EncryptedOn:        m.EncryptedOn,
		Key:                m.Key.Bytes(),
	}
	return signAndSealFor(author, recipient, &wire)
}

// DumpSignAndEncryptFor implements Message.
func (m *SharingReencryptedMessage) DumpSignAndEncryptFor(author crypto.SigningKey, recipient crypto.PublicKey) ([]byte, error) {
	wire := sharingMessageWire{
		Type:               typeSharingReencryptedMessage,
		Name:               m.Name,
		ID:                 m.ID,
		EncryptionRevision: m.EncryptionRevision,
		EncryptedOn:        m.EncryptedOn,
		Key:                m.Key.Bytes(),
	}
	return signAndSealFor(author, recipient, &wire)
}

// DumpSignAndEncryptFor implements Message.
func (m *SharingRevokedMessage) DumpSignAndEncryptFor(author crypto.SigningKey, recipient crypto.PublicKey) ([]byte, error) {
	wire := sharingRevokedMessageWire{Type: typeSharingRevokedMessage, ID: m.ID}
	return signAndSealFor(author, recipient, &wire)
}

// DumpSignAndEncryptFor implements Message.
func (m *PingMessage) DumpSignAndEncryptFor(author crypto.SigningKey, recipient crypto.PublicKey) ([]byte, error) {
	if len(m.Ping) > maxPingSize {
		return nil, fmt.Errorf("%w: ping is %d bytes, maximum is %d", ErrInvalidData, len(m.Ping), maxPingSize)
	}
	wire := pingMessageWire{Type: typePingMessage, Ping: m.Ping}
	return signAndSealFor(author, recipient, &wire)
}

func (w *sharingMessageWire) toMessage() (Message, error) {
	if w.Name.IsZero() || w.ID.IsZero() {
		return nil, fmt.Errorf("%w: sharing message missing name or id", ErrInvalidData)
	}
	if w.EncryptionRevision < 1 {
		return nil, fmt.Errorf("%w: sharing message encryption_revision must be >= 1", ErrInvalidData)
	}
	key, err := crypto.SecretKeyFromBytes(w.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if w.Type == typeSharingGrantedMessage {
		return &SharingGrantedMessage{
			Name:               w.Name,
			ID:                 w.ID,
			EncryptionRevision: w.EncryptionRevision,
			EncryptedOn:        w.EncryptedOn,
			Key:                key,
		}, nil
	}
	return &SharingReencryptedMessage{
		Name:               w.Name,
		ID:                 w.ID,
		EncryptionRevision: w.EncryptionRevision,
		EncryptedOn:        w.EncryptedOn,
		Key:                key,
	}, nil
}

// DecryptVerifyAndLoadMessage reverses envelope E3: opens the sealed
// box with the recipient's private key, verifies the sender's device
// signature, and dispatches on the type discriminator.
func DecryptVerifyAndLoadMessage(ciphered []byte, recipient crypto.PrivateKey, authorVerifyKey crypto.VerifyKey) (Message, error) {
	signed, err := recipient.OpenAnonymous(ciphered)
	if err != nil {
		return nil, err
	}
	body, err := authorVerifyKey.Verify(signed)
	if err != nil {
		return nil, err
	}
	discriminator, err := probeCompressedType(body)
	if err != nil {
		return nil, err
	}

	switch discriminator {
	case typeSharingGrantedMessage, typeSharingReencryptedMessage:
		var wire sharingMessageWire
		if err := decodeCompressed(body, &wire); err != nil {
			return nil, err
		}
		return wire.toMessage()
	case typeSharingRevokedMessage:
		var wire sharingRevokedMessageWire
		if err := decodeCompressed(body, &wire); err != nil {
			return nil, err
		}
		if wire.ID.IsZero() {
			return nil, fmt.Errorf("%w: sharing message missing id", ErrInvalidData)
		}
		return &SharingRevokedMessage{ID: wire.ID}, nil
	case typePingMessage:
		var wire pingMessageWire
		if err := decodeCompressed(body, &wire); err != nil {
			return nil, err
		}
		if len(wire.Ping) > maxPingSize {
			return nil, fmt.Errorf("%w: ping is %d bytes, maximum is %d", ErrInvalidData, len(wire.Ping), maxPingSize)
		}
		return &PingMessage{Ping: wire.Ping}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, discriminator)
	}
}
