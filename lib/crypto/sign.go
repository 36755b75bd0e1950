// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// SignatureSize is the byte length of a detached Ed25519 signature.
const SignatureSize = ed25519.SignatureSize

// SigningKeySize is the byte length of a signing key seed.
const SigningKeySize = ed25519.SeedSize

// VerifyKeySize is the byte length of a verify key.
const VerifyKeySize = ed25519.PublicKeySize

// SigningKey is an Ed25519 private key. Its serialized form is the
// 32-byte seed.
type SigningKey struct {
	key ed25519.PrivateKey
}

// NewSigningKey generates a random signing key.
func NewSigningKey() (SigningKey, error) {
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return SigningKey{}, fmt.Errorf("generating signing key: %w", err)
	}
	return SigningKey{key: private}, nil
}

// SigningKeyFromBytes reconstructs a signing key from its 32-byte seed.
func SigningKeyFromBytes(seed []byte) (SigningKey, error) {
	if len(seed) != SigningKeySize {
		return SigningKey{}, fmt.Errorf("%w: signing key seed must be %d bytes, got %d", ErrInvalidKey, SigningKeySize, len(seed))
	}
	return SigningKey{key: ed25519.NewKeyFromSeed(seed)}, nil
}

// Bytes returns the 32-byte seed.
func (k SigningKey) Bytes() []byte {
	return k.key.Seed()
}

// IsZero reports whether the key is uninitialized.
func (k SigningKey) IsZero() bool { return k.key == nil }

// VerifyKey returns the matching public key.
func (k SigningKey) VerifyKey() VerifyKey {
	var v VerifyKey
	copy(v.key[:], k.key.Public().(ed25519.PublicKey))
	return v
}

// Sign produces the signature-prepended form: signature(64) || message.
// Every signed payload on the wire uses this layout.
func (k SigningKey) Sign(message []byte) []byte {
	signature := ed25519.Sign(k.key, message)
	return append(signature, message...)
}

// SignDetached produces only the 64-byte signature.
func (k SigningKey) SignDetached(message []byte) []byte {
	return ed25519.Sign(k.key, message)
}

// VerifyKey is an Ed25519 public key.
type VerifyKey struct {
	key [VerifyKeySize]byte
}

// VerifyKeyFromBytes wraps raw 32-byte public key material.
func VerifyKeyFromBytes(raw []byte) (VerifyKey, error) {
	if len(raw) != VerifyKeySize {
		return VerifyKey{}, fmt.Errorf("%w: verify key must be %d bytes, got %d", ErrInvalidKey, VerifyKeySize, len(raw))
	}
	var v VerifyKey
	copy(v.key[:], raw)
	return v, nil
}

// Bytes returns the raw public key material.
func (v VerifyKey) Bytes() []byte {
	out := make([]byte, VerifyKeySize)
	copy(out, v.key[:])
	return out
}

// IsZero reports whether the key is uninitialized.
func (v VerifyKey) IsZero() bool {
	return v.key == [VerifyKeySize]byte{}
}

// Verify checks a signature-prepended payload and returns the message
// on success. Fails with ErrSignature on truncation or mismatch.
func (v VerifyKey) Verify(signed []byte) ([]byte, error) {
	if len(signed) < SignatureSize {
		return nil, ErrSignature
	}
	signature, message := signed[:SignatureSize], signed[SignatureSize:]
	if !ed25519.Verify(v.key[:], message, signature) {
		return nil, ErrSignature
	}
	return message, nil
}

// VerifyDetached checks a detached signature over message.
func (v VerifyKey) VerifyDetached(signature, message []byte) error {
	if len(signature) != SignatureSize || !ed25519.Verify(v.key[:], message, signature) {
		return ErrSignature
	}
	return nil
}

// UnsecureUnwrap strips the signature from a signature-prepended
// payload WITHOUT verifying it. Used only to inspect a payload's
// author field before the author's verify key is known; the payload
// must be re-verified before trusting any of it.
func UnsecureUnwrap(signed []byte) ([]byte, error) {
	if len(signed) < SignatureSize {
		return nil, ErrSignature
	}
	return signed[SignatureSize:], nil
}
