// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

// SecretKeySize is the byte length of a symmetric key.
const SecretKeySize = 32

// secretNonceSize is the XSalsa20 nonce prepended to every ciphertext.
const secretNonceSize = 24

// SaltSize is the byte length of a password derivation salt.
const SaltSize = 16

// Argon2id parameters matching the libsodium "interactive" profile.
// Changing these invalidates every password-protected device file.
const (
	argonPasses   = 2
	argonMemoryKB = 64 * 1024
	argonThreads  = 1
)

// SecretKey is a 32-byte symmetric key for XSalsa20-Poly1305
// authenticated encryption. Manifest keys, block keys and the local
// device storage key are all SecretKeys.
type SecretKey struct {
	key [SecretKeySize]byte
}

// NewSecretKey generates a random key.
func NewSecretKey() (SecretKey, error) {
	var k SecretKey
	if _, err := rand.Read(k.key[:]); err != nil {
		return SecretKey{}, fmt.Errorf("generating secret key: %w", err)
	}
	return k, nil
}

// SecretKeyFromBytes wraps existing 32-byte key material.
func SecretKeyFromBytes(raw []byte) (SecretKey, error) {
	if len(raw) != SecretKeySize {
		return SecretKey{}, fmt.Errorf("%w: secret key must be %d bytes, got %d", ErrInvalidKey, SecretKeySize, len(raw))
	}
	var k SecretKey
	copy(k.key[:], raw)
	return k, nil
}

// SecretKeyFromPassword derives a key from a password and salt using
// Argon2id. The salt must come from GenerateSalt and be stored next to
// the ciphertext.
func SecretKeyFromPassword(password string, salt []byte) SecretKey {
	derived := argon2.IDKey([]byte(password), salt, argonPasses, argonMemoryKB, argonThreads, SecretKeySize)
	var k SecretKey
	copy(k.key[:], derived)
	return k
}

// GenerateSalt produces a random 16-byte password derivation salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}

// Bytes returns the raw key material.
func (k SecretKey) Bytes() []byte {
	out := make([]byte, SecretKeySize)
	copy(out, k.key[:])
	return out
}

// IsZero reports whether the key is the all-zero value (uninitialized,
// never a valid key in practice).
func (k SecretKey) IsZero() bool {
	return k.key == [SecretKeySize]byte{}
}

// Encrypt seals plaintext with a fresh random nonce. The ciphertext
// layout is nonce(24) || box, where box carries the Poly1305 tag.
func (k SecretKey) Encrypt(plaintext []byte) ([]byte, error) {
	var nonce [secretNonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &k.key), nil
}

// Decrypt opens a ciphertext produced by Encrypt. Fails with
// ErrDecryption on truncation or tag mismatch.
func (k SecretKey) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < secretNonceSize {
		return nil, ErrDecryption
	}
	var nonce [secretNonceSize]byte
	copy(nonce[:], ciphertext[:secretNonceSize])
	plaintext, ok := secretbox.Open(nil, ciphertext[secretNonceSize:], &nonce, &k.key)
	if !ok {
		return nil, ErrDecryption
	}
	return plaintext, nil
}
