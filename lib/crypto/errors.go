// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package crypto

import "errors"

var (
	// ErrDecryption reports a ciphertext that failed authentication or
	// was too short to contain a nonce and tag.
	ErrDecryption = errors.New("crypto: decryption failed")

	// ErrSignature reports a signed payload whose signature does not
	// verify or that is shorter than a detached signature.
	ErrSignature = errors.New("crypto: signature verification failed")

	// ErrInvalidKey reports key material of the wrong size or format.
	ErrInvalidKey = errors.New("crypto: invalid key")
)
