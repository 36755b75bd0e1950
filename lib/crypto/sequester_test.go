// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"bytes"
	"errors"
	"testing"
)

// 1024-bit keys keep the test fast; production uses 2048 or more.
const testKeyBits = 1024

func TestSequesterSignRoundTrip(t *testing.T) {
	signing, verify, err := GenerateSequesterSigningKeyPair(testKeyBits)
	if err != nil {
		t.Fatalf("GenerateSequesterSigningKeyPair: %v", err)
	}
	message := []byte("authority certificate body")

	signed, err := signing.Sign(message)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	verified, err := verify.Verify(signed)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !bytes.Equal(verified, message) {
		t.Error("verify did not return the message")
	}

	signed[0] ^= 0x01
	if _, err := verify.Verify(signed); !errors.Is(err, ErrSignature) {
		t.Errorf("corrupted signature: got %v, want ErrSignature", err)
	}
	if _, err := verify.Verify([]byte("short")); !errors.Is(err, ErrSignature) {
		t.Errorf("truncated payload: got %v, want ErrSignature", err)
	}
}

func TestSequesterEncryptRoundTrip(t *testing.T) {
	private, public, err := GenerateSequesterEncryptionKeyPair(testKeyBits)
	if err != nil {
		t.Fatalf("GenerateSequesterEncryptionKeyPair: %v", err)
	}
	// Larger than the RSA modulus to exercise the hybrid layout.
	plaintext := bytes.Repeat([]byte("sequestered manifest "), 100)

	ciphertext, err := public.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	decrypted, err := private.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Error("round trip does not preserve plaintext")
	}

	ciphertext[10] ^= 0x01
	if _, err := private.Decrypt(ciphertext); !errors.Is(err, ErrDecryption) {
		t.Errorf("tampered sealed key: got %v, want ErrDecryption", err)
	}
	if _, err := private.Decrypt([]byte("short")); !errors.Is(err, ErrDecryption) {
		t.Errorf("truncated payload: got %v, want ErrDecryption", err)
	}
}

func TestSequesterDerRoundTrip(t *testing.T) {
	signing, verify, err := GenerateSequesterSigningKeyPair(testKeyBits)
	if err != nil {
		t.Fatalf("GenerateSequesterSigningKeyPair: %v", err)
	}

	restoredVerify, err := SequesterVerifyKeyFromDer(verify.Dump())
	if err != nil {
		t.Fatalf("SequesterVerifyKeyFromDer: %v", err)
	}
	restoredSigning, err := SequesterSigningKeyFromDer(signing.Dump())
	if err != nil {
		t.Fatalf("SequesterSigningKeyFromDer: %v", err)
	}

	signed, err := restoredSigning.Sign([]byte("message"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := restoredVerify.Verify(signed); err != nil {
		t.Errorf("restored keys failed round trip: %v", err)
	}

	if _, err := SequesterVerifyKeyFromDer([]byte("not DER")); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("garbage DER: got %v, want ErrInvalidKey", err)
	}
}

func TestSequesterRejectsWeakKeys(t *testing.T) {
	if _, _, err := GenerateSequesterSigningKeyPair(512); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("512-bit modulus: got %v, want ErrInvalidKey", err)
	}
}
