// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

// PrivateKeySize is the byte length of an X25519 private key.
const PrivateKeySize = 32

// PublicKeySize is the byte length of an X25519 public key.
const PublicKeySize = 32

// PrivateKey is an X25519 private key used to open sealed boxes:
// payloads encrypted to this key's owner by an anonymous sender.
type PrivateKey struct {
	key [PrivateKeySize]byte
}

// NewPrivateKey generates a random private key.
func NewPrivateKey() (PrivateKey, error) {
	_, private, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("generating private key: %w", err)
	}
	return PrivateKey{key: *private}, nil
}

// PrivateKeyFromBytes wraps raw 32-byte private key material.
func PrivateKeyFromBytes(raw []byte) (PrivateKey, error) {
	if len(raw) != PrivateKeySize {
		return PrivateKey{}, fmt.Errorf("%w: private key must be %d bytes, got %d", ErrInvalidKey, PrivateKeySize, len(raw))
	}
	var k PrivateKey
	copy(k.key[:], raw)
	return k, nil
}

// Bytes returns the raw private key material.
func (k PrivateKey) Bytes() []byte {
	out := make([]byte, PrivateKeySize)
	copy(out, k.key[:])
	return out
}

// IsZero reports whether the key is uninitialized.
func (k PrivateKey) IsZero() bool {
	return k.key == [PrivateKeySize]byte{}
}

// PublicKey derives the matching public key.
func (k PrivateKey) PublicKey() PublicKey {
	derived, err := curve25519.X25519(k.key[:], curve25519.Basepoint)
	if err != nil {
		// Only reachable for the low-order all-zero key, which
		// constructors never produce.
		panic("crypto: public key derivation failed: " + err.Error())
	}
	var p PublicKey
	copy(p.key[:], derived)
	return p
}

// OpenAnonymous decrypts a sealed box addressed to this key. The
// sender is anonymous; integrity is still authenticated. Fails with
// ErrDecryption on tampering.
func (k PrivateKey) OpenAnonymous(ciphertext []byte) ([]byte, error) {
	public := k.PublicKey()
	plaintext, ok := box.OpenAnonymous(nil, ciphertext, &public.key, &k.key)
	if !ok {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

// PublicKey is an X25519 public key used to seal payloads for its
// owner.
type PublicKey struct {
	key [PublicKeySize]byte
}

// PublicKeyFromBytes wraps raw 32-byte public key material.
func PublicKeyFromBytes(raw []byte) (PublicKey, error) {
	if len(raw) != PublicKeySize {
		return PublicKey{}, fmt.Errorf("%w: public key must be %d bytes, got %d", ErrInvalidKey, PublicKeySize, len(raw))
	}
	var k PublicKey
	copy(k.key[:], raw)
	return k, nil
}

// Bytes returns the raw public key material.
func (k PublicKey) Bytes() []byte {
	out := make([]byte, PublicKeySize)
	copy(out, k.key[:])
	return out
}

// IsZero reports whether the key is uninitialized.
func (k PublicKey) IsZero() bool {
	return k.key == [PublicKeySize]byte{}
}

// SealAnonymous encrypts plaintext so only the key's owner can read
// it. A fresh ephemeral key pair is generated per call, so the sender
// cannot decrypt their own output.
func (k PublicKey) SealAnonymous(plaintext []byte) ([]byte, error) {
	ciphertext, err := box.SealAnonymous(nil, plaintext, &k.key, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("sealing payload: %w", err)
	}
	return ciphertext, nil
}
