// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
)

// Sequester keys are RSA keys held by an organization's sequester
// authority and its registered services. Unlike the NaCl types above
// they serialize as DER: SubjectPublicKeyInfo for public halves and
// PKCS#8 for private halves, the formats HSMs and enterprise PKI
// tooling exchange.
//
// Signatures are RSA-PSS with SHA-256 and a 32-byte salt, in the same
// signature-prepended layout as Ed25519 (here the signature length is
// the key modulus size). Encryption is hybrid: a fresh SecretKey is
// sealed with RSA-OAEP-SHA256 and the payload encrypted under it, so
// payloads are not bounded by the modulus.

// sequesterKeyMinBits rejects toy keys at parse and generation time.
const sequesterKeyMinBits = 1024

var pssOptions = &rsa.PSSOptions{SaltLength: 32, Hash: crypto.SHA256}

// SequesterVerifyKeyDer is the public half of a sequester authority
// signing key.
type SequesterVerifyKeyDer struct {
	key *rsa.PublicKey
}

// SequesterVerifyKeyFromDer parses a DER SubjectPublicKeyInfo RSA key.
func SequesterVerifyKeyFromDer(der []byte) (SequesterVerifyKeyDer, error) {
	key, err := parseRSAPublicDer(der)
	if err != nil {
		return SequesterVerifyKeyDer{}, err
	}
	return SequesterVerifyKeyDer{key: key}, nil
}

// Dump returns the DER SubjectPublicKeyInfo form.
func (k SequesterVerifyKeyDer) Dump() []byte {
	return dumpRSAPublicDer(k.key)
}

// IsZero reports whether the key is uninitialized.
func (k SequesterVerifyKeyDer) IsZero() bool { return k.key == nil }

// Verify checks a signature-prepended payload and returns the message.
func (k SequesterVerifyKeyDer) Verify(signed []byte) ([]byte, error) {
	sigSize := k.key.Size()
	if len(signed) < sigSize {
		return nil, ErrSignature
	}
	signature, message := signed[:sigSize], signed[sigSize:]
	hashed := sha256.Sum256(message)
	if err := rsa.VerifyPSS(k.key, crypto.SHA256, hashed[:], signature, pssOptions); err != nil {
		return nil, ErrSignature
	}
	return message, nil
}

// SequesterSigningKeyDer is the private half of a sequester authority
// signing key.
type SequesterSigningKeyDer struct {
	key *rsa.PrivateKey
}

// SequesterSigningKeyFromDer parses a DER PKCS#8 RSA private key.
func SequesterSigningKeyFromDer(der []byte) (SequesterSigningKeyDer, error) {
	key, err := parseRSAPrivateDer(der)
	if err != nil {
		return SequesterSigningKeyDer{}, err
	}
	return SequesterSigningKeyDer{key: key}, nil
}

// GenerateSequesterSigningKeyPair generates an authority key pair of
// the given modulus size in bits.
func GenerateSequesterSigningKeyPair(bits int) (SequesterSigningKeyDer, SequesterVerifyKeyDer, error) {
	key, err := generateRSA(bits)
	if err != nil {
		return SequesterSigningKeyDer{}, SequesterVerifyKeyDer{}, err
	}
	return SequesterSigningKeyDer{key: key}, SequesterVerifyKeyDer{key: &key.PublicKey}, nil
}

// Dump returns the DER PKCS#8 form.
func (k SequesterSigningKeyDer) Dump() []byte {
	return dumpRSAPrivateDer(k.key)
}

// IsZero reports whether the key is uninitialized.
func (k SequesterSigningKeyDer) IsZero() bool { return k.key == nil }

// VerifyKey returns the matching public key.
func (k SequesterSigningKeyDer) VerifyKey() SequesterVerifyKeyDer {
	return SequesterVerifyKeyDer{key: &k.key.PublicKey}
}

// Sign produces the signature-prepended form: signature || message.
func (k SequesterSigningKeyDer) Sign(message []byte) ([]byte, error) {
	hashed := sha256.Sum256(message)
	signature, err := rsa.SignPSS(rand.Reader, k.key, crypto.SHA256, hashed[:], pssOptions)
	if err != nil {
		return nil, fmt.Errorf("signing payload: %w", err)
	}
	return append(signature, message...), nil
}

// SequesterPublicKeyDer is a sequester service's encryption key.
type SequesterPublicKeyDer struct {
	key *rsa.PublicKey
}

// SequesterPublicKeyFromDer parses a DER SubjectPublicKeyInfo RSA key.
func SequesterPublicKeyFromDer(der []byte) (SequesterPublicKeyDer, error) {
	key, err := parseRSAPublicDer(der)
	if err != nil {
		return SequesterPublicKeyDer{}, err
	}
	return SequesterPublicKeyDer{key: key}, nil
}

// Dump returns the DER SubjectPublicKeyInfo form.
func (k SequesterPublicKeyDer) Dump() []byte {
	return dumpRSAPublicDer(k.key)
}

// IsZero reports whether the key is uninitialized.
func (k SequesterPublicKeyDer) IsZero() bool { return k.key == nil }

// Encrypt seals data for the service. Layout:
// RSA-OAEP(fresh SecretKey) sized to the modulus, then the SecretKey
// ciphertext of data.
func (k SequesterPublicKeyDer) Encrypt(data []byte) ([]byte, error) {
	contentKey, err := NewSecretKey()
	if err != nil {
		return nil, err
	}
	sealedKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, k.key, contentKey.Bytes(), nil)
	if err != nil {
		return nil, fmt.Errorf("sealing content key: %w", err)
	}
	ciphertext, err := contentKey.Encrypt(data)
	if err != nil {
		return nil, err
	}
	return append(sealedKey, ciphertext...), nil
}

// SequesterPrivateKeyDer is the private half of a sequester service's
// encryption key. It never leaves the service operator's custody; the
// data plane only ever sees the public half.
type SequesterPrivateKeyDer struct {
	key *rsa.PrivateKey
}

// SequesterPrivateKeyFromDer parses a DER PKCS#8 RSA private key.
func SequesterPrivateKeyFromDer(der []byte) (SequesterPrivateKeyDer, error) {
	key, err := parseRSAPrivateDer(der)
	if err != nil {
		return SequesterPrivateKeyDer{}, err
	}
	return SequesterPrivateKeyDer{key: key}, nil
}

// GenerateSequesterEncryptionKeyPair generates a service key pair of
// the given modulus size in bits.
func GenerateSequesterEncryptionKeyPair(bits int) (SequesterPrivateKeyDer, SequesterPublicKeyDer, error) {
	key, err := generateRSA(bits)
	if err != nil {
		return SequesterPrivateKeyDer{}, SequesterPublicKeyDer{}, err
	}
	return SequesterPrivateKeyDer{key: key}, SequesterPublicKeyDer{key: &key.PublicKey}, nil
}

// Dump returns the DER PKCS#8 form.
func (k SequesterPrivateKeyDer) Dump() []byte {
	return dumpRSAPrivateDer(k.key)
}

// IsZero reports whether the key is uninitialized.
func (k SequesterPrivateKeyDer) IsZero() bool { return k.key == nil }

// PublicKey returns the matching public key.
func (k SequesterPrivateKeyDer) PublicKey() SequesterPublicKeyDer {
	return SequesterPublicKeyDer{key: &k.key.PublicKey}
}

// Decrypt opens a payload produced by Encrypt.
func (k SequesterPrivateKeyDer) Decrypt(data []byte) ([]byte, error) {
	keySize := k.key.Size()
	if len(data) < keySize {
		return nil, ErrDecryption
	}
	keyMaterial, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, k.key, data[:keySize], nil)
	if err != nil {
		return nil, ErrDecryption
	}
	contentKey, err := SecretKeyFromBytes(keyMaterial)
	if err != nil {
		return nil, ErrDecryption
	}
	return contentKey.Decrypt(data[keySize:])
}

func generateRSA(bits int) (*rsa.PrivateKey, error) {
	if bits < sequesterKeyMinBits {
		return nil, fmt.Errorf("%w: modulus must be at least %d bits, got %d", ErrInvalidKey, sequesterKeyMinBits, bits)
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generating RSA key: %w", err)
	}
	return key, nil
}

func parseRSAPublicDer(der []byte) (*rsa.PublicKey, error) {
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected an RSA public key, got %T", ErrInvalidKey, parsed)
	}
	if key.N.BitLen() < sequesterKeyMinBits {
		return nil, fmt.Errorf("%w: modulus must be at least %d bits, got %d", ErrInvalidKey, sequesterKeyMinBits, key.N.BitLen())
	}
	return key, nil
}

func parseRSAPrivateDer(der []byte) (*rsa.PrivateKey, error) {
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected an RSA private key, got %T", ErrInvalidKey, parsed)
	}
	if key.N.BitLen() < sequesterKeyMinBits {
		return nil, fmt.Errorf("%w: modulus must be at least %d bits, got %d", ErrInvalidKey, sequesterKeyMinBits, key.N.BitLen())
	}
	return key, nil
}

func dumpRSAPublicDer(key *rsa.PublicKey) []byte {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		// Marshaling a parsed or generated RSA key cannot fail.
		panic("crypto: DER public key encoding failed: " + err.Error())
	}
	return der
}

func dumpRSAPrivateDer(key *rsa.PrivateKey) []byte {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		panic("crypto: DER private key encoding failed: " + err.Error())
	}
	return der
}
