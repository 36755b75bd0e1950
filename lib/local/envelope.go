// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"github.com/parsec-foundation/parsec/lib/codec"
	"github.com/parsec-foundation/parsec/lib/crypto"
)

// maxPayloadSize bounds decompression of local payloads, mirroring the
// remote envelope bound.
const maxPayloadSize = 64 << 20

// dumpAndEncrypt produces the local envelope: compressed canonical
// encoding encrypted under the device symmetric key, unsigned.
func dumpAndEncrypt(key crypto.SecretKey, v any) ([]byte, error) {
	encoded, err := codec.Marshal(v)
	if err != nil {
		return nil, err
	}
	return key.Encrypt(codec.Compress(encoded))
}

// decryptAndDecode reverses dumpAndEncrypt.
func decryptAndDecode(key crypto.SecretKey, ciphered []byte, v any) error {
	compressed, err := key.Decrypt(ciphered)
	if err != nil {
		return err
	}
	encoded, err := codec.Decompress(compressed, maxPayloadSize)
	if err != nil {
		return err
	}
	return codec.Unmarshal(encoded, v)
}

// decryptAndProbeType decrypts a local envelope and returns its type
// discriminator without decoding the full payload.
func decryptAndProbeType(key crypto.SecretKey, ciphered []byte) (string, []byte, error) {
	compressed, err := key.Decrypt(ciphered)
	if err != nil {
		return "", nil, err
	}
	encoded, err := codec.Decompress(compressed, maxPayloadSize)
	if err != nil {
		return "", nil, err
	}
	discriminator, err := codec.ProbeType(encoded)
	if err != nil {
		return "", nil, err
	}
	return discriminator, encoded, nil
}
