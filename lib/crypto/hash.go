// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashDigestSize is the byte length of a content digest.
const HashDigestSize = sha256.Size

// HashDigest is the SHA-256 digest of a file block's cleartext. Blocks
// are content-addressed: the digest in a BlockAccess is checked after
// download and decryption.
type HashDigest struct {
	digest [HashDigestSize]byte
}

// HashData digests data.
func HashData(data []byte) HashDigest {
	return HashDigest{digest: sha256.Sum256(data)}
}

// HashDigestFromBytes wraps an existing 32-byte digest.
func HashDigestFromBytes(raw []byte) (HashDigest, error) {
	if len(raw) != HashDigestSize {
		return HashDigest{}, fmt.Errorf("digest must be %d bytes, got %d", HashDigestSize, len(raw))
	}
	var h HashDigest
	copy(h.digest[:], raw)
	return h, nil
}

// Bytes returns the raw digest.
func (h HashDigest) Bytes() []byte {
	out := make([]byte, HashDigestSize)
	copy(out, h.digest[:])
	return out
}

// Hex returns the lowercase hex rendering.
func (h HashDigest) Hex() string {
	return hex.EncodeToString(h.digest[:])
}

// IsZero reports whether the digest is uninitialized.
func (h HashDigest) IsZero() bool {
	return h.digest == [HashDigestSize]byte{}
}

// String returns the hex rendering.
func (h HashDigest) String() string { return h.Hex() }
