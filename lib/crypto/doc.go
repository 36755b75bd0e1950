// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

// Package crypto wraps the primitives of the Parsec data plane behind
// small immutable key types:
//
//   - SecretKey: XSalsa20-Poly1305 authenticated encryption with a
//     random nonce prefix, plus the Argon2id password derivation used
//     for on-disk device files.
//   - SigningKey / VerifyKey: Ed25519 signatures in the
//     signature-prepended form (64-byte signature followed by the
//     message).
//   - PrivateKey / PublicKey: X25519 sealed boxes for
//     anonymous-sender encryption to a recipient.
//   - HashDigest: SHA-256 content digests for file blocks.
//   - Sequester keys: RSA keys in DER form (SubjectPublicKeyInfo /
//     PKCS#8) with RSA-PSS signatures and OAEP hybrid encryption.
//
// Failure of any verification or decryption is reported through the
// package sentinels ErrDecryption and ErrSignature; callers never see
// the underlying library errors, which could leak which step failed.
package crypto
