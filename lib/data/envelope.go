// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package data

import (
	"fmt"

	"github.com/parsec-foundation/parsec/lib/codec"
	"github.com/parsec-foundation/parsec/lib/crypto"
)

// maxPayloadSize bounds the inflated size of any decoded payload. It
// matches the largest frame the protocol layer accepts.
const maxPayloadSize = 64 << 20

// encodeCompressed is the body shared by all envelopes:
// zlib(encode(v)).
func encodeCompressed(v any) ([]byte, error) {
	encoded, err := codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return codec.Compress(encoded), nil
}

// signAndDump is envelope E1 over a struct:
// signature || zlib(encode(v)).
func signAndDump(key crypto.SigningKey, v any) ([]byte, error) {
	body, err := encodeCompressed(v)
	if err != nil {
		return nil, err
	}
	return key.Sign(body), nil
}

// verifyAndDecode reverses E1: check the signature, inflate, decode
// into v.
func verifyAndDecode(key crypto.VerifyKey, signed []byte, v any) error {
	body, err := key.Verify(signed)
	if err != nil {
		return err
	}
	return decodeCompressed(body, v)
}

// unsecureDecode strips the signature WITHOUT verifying it, then
// inflates and decodes into v. Callers must treat the result as
// untrusted.
func unsecureDecode(signed []byte, v any) error {
	body, err := crypto.UnsecureUnwrap(signed)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return decodeCompressed(body, v)
}

// signAndEncrypt is envelope E2: SecretKey.Encrypt(E1).
func signAndEncrypt(signKey crypto.SigningKey, key crypto.SecretKey, v any) ([]byte, error) {
	signed, err := signAndDump(signKey, v)
	if err != nil {
		return nil, err
	}
	return key.Encrypt(signed)
}

// decryptVerifyAndDecode reverses E2.
func decryptVerifyAndDecode(key crypto.SecretKey, verifyKey crypto.VerifyKey, ciphered []byte, v any) error {
	signed, err := key.Decrypt(ciphered)
	if err != nil {
		return err
	}
	return verifyAndDecode(verifyKey, signed, v)
}

// signAndSealFor is envelope E3: PublicKey.SealAnonymous(E1).
func signAndSealFor(signKey crypto.SigningKey, recipient crypto.PublicKey, v any) ([]byte, error) {
	signed, err := signAndDump(signKey, v)
	if err != nil {
		return nil, err
	}
	return recipient.SealAnonymous(signed)
}

// openVerifyAndDecode reverses E3.
func openVerifyAndDecode(recipient crypto.PrivateKey, verifyKey crypto.VerifyKey, ciphered []byte, v any) error {
	signed, err := recipient.OpenAnonymous(ciphered)
	if err != nil {
		return err
	}
	return verifyAndDecode(verifyKey, signed, v)
}

// dumpAndEncrypt is envelope E4, the unsigned local form:
// SecretKey.Encrypt(zlib(encode(v))).
func dumpAndEncrypt(key crypto.SecretKey, v any) ([]byte, error) {
	body, err := encodeCompressed(v)
	if err != nil {
		return nil, err
	}
	return key.Encrypt(body)
}

// decryptAndDecode reverses E4.
func decryptAndDecode(key crypto.SecretKey, ciphered []byte, v any) error {
	body, err := key.Decrypt(ciphered)
	if err != nil {
		return err
	}
	return decodeCompressed(body, v)
}

// decodeCompressed inflates a zlib body and decodes it into v,
// wrapping schema failures into ErrInvalidData.
func decodeCompressed(body []byte, v any) error {
	inflated, err := codec.Decompress(body, maxPayloadSize)
	if err != nil {
		return err
	}
	if err := codec.Unmarshal(inflated, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return nil
}

// probeCompressedType inflates a payload that has already been
// unwrapped from its envelope and returns its type discriminator.
func probeCompressedType(body []byte) (string, error) {
	inflated, err := codec.Decompress(body, maxPayloadSize)
	if err != nil {
		return "", err
	}
	return codec.ProbeType(inflated)
}
