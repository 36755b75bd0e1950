// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package data

import (
	"errors"
	"testing"

	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/ref"
)

func mustDeviceID(t *testing.T, raw string) ref.DeviceID {
	t.Helper()
	id, err := ref.ParseDeviceID(raw)
	if err != nil {
		t.Fatalf("ParseDeviceID(%q): %v", raw, err)
	}
	return id
}

func mustUserID(t *testing.T, raw string) ref.UserID {
	t.Helper()
	id, err := ref.ParseUserID(raw)
	if err != nil {
		t.Fatalf("ParseUserID(%q): %v", raw, err)
	}
	return id
}

func mustDateTime(t *testing.T, raw string) ref.DateTime {
	t.Helper()
	ts, err := ref.ParseDateTime(raw)
	if err != nil {
		t.Fatalf("ParseDateTime(%q): %v", raw, err)
	}
	return ts
}

func mustSigningKey(t *testing.T) crypto.SigningKey {
	t.Helper()
	key, err := crypto.NewSigningKey()
	if err != nil {
		t.Fatalf("NewSigningKey: %v", err)
	}
	return key
}

func mustPrivateKey(t *testing.T) crypto.PrivateKey {
	t.Helper()
	key, err := crypto.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	return key
}

func mustSecretKey(t *testing.T) crypto.SecretKey {
	t.Helper()
	key, err := crypto.NewSecretKey()
	if err != nil {
		t.Fatalf("NewSecretKey: %v", err)
	}
	return key
}

func TestUserCertificateRoundTrip(t *testing.T) {
	aliceKey := mustSigningKey(t)
	aliceDev := DeviceAuthor(mustDeviceID(t, "alice@dev1"))
	bobKey := mustPrivateKey(t)

	cert := &UserCertificate{
		Author:    aliceDev,
		Timestamp: mustDateTime(t, "2000-01-02T00:00:00+00:00"),
		UserID:    mustUserID(t, "bob"),
		PublicKey: bobKey.PublicKey(),
		Profile:   ref.ProfileStandard,
	}
	signed, err := cert.DumpAndSign(aliceKey)
	if err != nil {
		t.Fatalf("DumpAndSign: %v", err)
	}

	loaded, err := VerifyAndLoadUserCertificate(signed, aliceKey.VerifyKey(), &aliceDev, nil, nil)
	if err != nil {
		t.Fatalf("VerifyAndLoadUserCertificate: %v", err)
	}
	if !loaded.Equal(cert) {
		t.Errorf("round trip: got %+v, want %+v", loaded, cert)
	}
}

func TestUserCertificateExpectedAuthorMismatch(t *testing.T) {
	aliceKey := mustSigningKey(t)
	cert := &UserCertificate{
		Author:    DeviceAuthor(mustDeviceID(t, "alice@dev1")),
		Timestamp: mustDateTime(t, "2000-01-02T00:00:00+00:00"),
		UserID:    mustUserID(t, "bob"),
		PublicKey: mustPrivateKey(t).PublicKey(),
		Profile:   ref.ProfileStandard,
	}
	signed, err := cert.DumpAndSign(aliceKey)
	if err != nil {
		t.Fatalf("DumpAndSign: %v", err)
	}

	mallory := DeviceAuthor(mustDeviceID(t, "mallory@dev1"))
	_, err = VerifyAndLoadUserCertificate(signed, aliceKey.VerifyKey(), &mallory, nil, nil)
	if err == nil {
		t.Fatal("expected author mismatch to fail")
	}
	want := "Invalid author: expected 'mallory@dev1', got 'alice@dev1'"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
	var mismatch *FieldMismatchError
	if !errors.As(err, &mismatch) {
		t.Errorf("error is %T, want *FieldMismatchError", err)
	}
	if !errors.Is(err, ErrInvalidData) {
		t.Error("mismatch must match ErrInvalidData")
	}
}

func TestUserCertificateForgery(t *testing.T) {
	aliceKey := mustSigningKey(t)
	malloryKey := mustSigningKey(t)
	cert := &UserCertificate{
		Author:    DeviceAuthor(mustDeviceID(t, "alice@dev1")),
		Timestamp: mustDateTime(t, "2000-01-02T00:00:00+00:00"),
		UserID:    mustUserID(t, "bob"),
		PublicKey: mustPrivateKey(t).PublicKey(),
		Profile:   ref.ProfileStandard,
	}
	signed, err := cert.DumpAndSign(aliceKey)
	if err != nil {
		t.Fatalf("DumpAndSign: %v", err)
	}

	if _, err := VerifyAndLoadUserCertificate(signed, malloryKey.VerifyKey(), nil, nil, nil); !errors.Is(err, crypto.ErrSignature) {
		t.Errorf("wrong verify key: got %v, want ErrSignature", err)
	}
}

func TestUserCertificateRedaction(t *testing.T) {
	handle, err := ref.NewHumanHandle("bob@example.com", "Bob")
	if err != nil {
		t.Fatalf("NewHumanHandle: %v", err)
	}
	cert := &UserCertificate{
		Author:      DeviceAuthor(mustDeviceID(t, "alice@dev1")),
		Timestamp:   mustDateTime(t, "2000-01-02T00:00:00+00:00"),
		UserID:      mustUserID(t, "bob"),
		HumanHandle: &handle,
		PublicKey:   mustPrivateKey(t).PublicKey(),
		Profile:     ref.ProfileStandard,
	}

	redacted := cert.Redacted()
	if redacted.HumanHandle != nil {
		t.Error("redacted certificate still carries a human handle")
	}
	if cert.HumanHandle == nil {
		t.Error("redaction mutated the original")
	}
	if redacted.UserID != cert.UserID || redacted.Timestamp != cert.Timestamp {
		t.Error("redaction changed more than the human handle")
	}
}

func TestUnsecureLoadUserCertificate(t *testing.T) {
	aliceKey := mustSigningKey(t)
	author := DeviceAuthor(mustDeviceID(t, "alice@dev1"))
	cert := &UserCertificate{
		Author:    author,
		Timestamp: mustDateTime(t, "2000-01-02T00:00:00+00:00"),
		UserID:    mustUserID(t, "bob"),
		PublicKey: mustPrivateKey(t).PublicKey(),
		Profile:   ref.ProfileAdmin,
	}
	signed, err := cert.DumpAndSign(aliceKey)
	if err != nil {
		t.Fatalf("DumpAndSign: %v", err)
	}

	unsecure, err := UnsecureLoadUserCertificate(signed)
	if err != nil {
		t.Fatalf("UnsecureLoadUserCertificate: %v", err)
	}
	if unsecure.Author() != author {
		t.Errorf("Author = %s, want %s", unsecure.Author(), author)
	}
	if unsecure.UserID() != cert.UserID {
		t.Errorf("UserID = %s, want %s", unsecure.UserID(), cert.UserID)
	}

	verified, err := unsecure.VerifySignature(aliceKey.VerifyKey())
	if err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
	if !verified.Equal(cert) {
		t.Error("verified certificate differs from the original")
	}

	wrongKey := mustSigningKey(t)
	if _, err := unsecure.VerifySignature(wrongKey.VerifyKey()); !errors.Is(err, crypto.ErrSignature) {
		t.Errorf("wrong key: got %v, want ErrSignature", err)
	}
}

func TestDeviceCertificateRoundTrip(t *testing.T) {
	rootKey := mustSigningKey(t)
	deviceKey := mustSigningKey(t)
	deviceID := mustDeviceID(t, "alice@dev1")

	// Bootstrap: root-authored device certificate.
	cert := &DeviceCertificate{
		Author:    RootAuthor(),
		Timestamp: mustDateTime(t, "2000-01-01T00:00:00+00:00"),
		DeviceID:  deviceID,
		VerifyKey: deviceKey.VerifyKey(),
	}
	signed, err := cert.DumpAndSign(rootKey)
	if err != nil {
		t.Fatalf("DumpAndSign: %v", err)
	}

	root := RootAuthor()
	loaded, err := VerifyAndLoadDeviceCertificate(signed, rootKey.VerifyKey(), &root, &deviceID)
	if err != nil {
		t.Fatalf("VerifyAndLoadDeviceCertificate: %v", err)
	}
	if !loaded.Equal(cert) {
		t.Error("round trip lost fields")
	}
	if loaded.VerifyKey != deviceKey.VerifyKey() {
		t.Error("verify key did not survive the round trip")
	}
}

func TestRevokedUserCertificateRejectsRootAuthor(t *testing.T) {
	rootKey := mustSigningKey(t)
	cert := &RevokedUserCertificate{
		Author:    RootAuthor(),
		Timestamp: mustDateTime(t, "2000-01-03T00:00:00+00:00"),
		UserID:    mustUserID(t, "bob"),
	}
	signed, err := cert.DumpAndSign(rootKey)
	if err != nil {
		t.Fatalf("DumpAndSign: %v", err)
	}
	if _, err := VerifyAndLoadRevokedUserCertificate(signed, rootKey.VerifyKey(), nil, nil); !errors.Is(err, ErrInvalidData) {
		t.Errorf("root-authored revocation: got %v, want ErrInvalidData", err)
	}
}

func TestRealmRoleCertificateRoundTrip(t *testing.T) {
	aliceKey := mustSigningKey(t)
	aliceDev := mustDeviceID(t, "alice@dev1")
	realm := ref.NewRealmID()
	timestamp := mustDateTime(t, "2000-01-02T00:00:00+00:00")

	cert := NewRealmRootRoleCertificate(aliceDev, timestamp, realm)
	signed, err := cert.DumpAndSign(aliceKey)
	if err != nil {
		t.Fatalf("DumpAndSign: %v", err)
	}

	author := DeviceAuthor(aliceDev)
	alice := mustUserID(t, "alice")
	loaded, err := VerifyAndLoadRealmRoleCertificate(signed, aliceKey.VerifyKey(), &author, &realm, &alice)
	if err != nil {
		t.Fatalf("VerifyAndLoadRealmRoleCertificate: %v", err)
	}
	if loaded.Role == nil || *loaded.Role != ref.RoleOwner {
		t.Errorf("Role = %v, want OWNER", loaded.Role)
	}

	// Revoke-from-realm: a null role survives the round trip as nil.
	cert.Role = nil
	signed, err = cert.DumpAndSign(aliceKey)
	if err != nil {
		t.Fatalf("DumpAndSign: %v", err)
	}
	loaded, err = VerifyAndLoadRealmRoleCertificate(signed, aliceKey.VerifyKey(), nil, nil, nil)
	if err != nil {
		t.Fatalf("VerifyAndLoadRealmRoleCertificate: %v", err)
	}
	if loaded.Role != nil {
		t.Errorf("Role = %v, want nil", loaded.Role)
	}
}

func TestSequesterCertificates(t *testing.T) {
	rootKey := mustSigningKey(t)
	authoritySigning, authorityVerify, err := crypto.GenerateSequesterSigningKeyPair(1024)
	if err != nil {
		t.Fatalf("GenerateSequesterSigningKeyPair: %v", err)
	}

	authority := &SequesterAuthorityCertificate{
		Timestamp:    mustDateTime(t, "2000-01-01T00:00:00+00:00"),
		VerifyKeyDer: authorityVerify,
	}
	signed, err := authority.DumpAndSign(rootKey)
	if err != nil {
		t.Fatalf("DumpAndSign: %v", err)
	}
	loadedAuthority, err := VerifyAndLoadSequesterAuthorityCertificate(signed, rootKey.VerifyKey())
	if err != nil {
		t.Fatalf("VerifyAndLoadSequesterAuthorityCertificate: %v", err)
	}
	if loadedAuthority.Timestamp != authority.Timestamp {
		t.Error("timestamp did not survive the round trip")
	}

	_, servicePublic, err := crypto.GenerateSequesterEncryptionKeyPair(1024)
	if err != nil {
		t.Fatalf("GenerateSequesterEncryptionKeyPair: %v", err)
	}
	service := &SequesterServiceCertificate{
		Timestamp:        mustDateTime(t, "2000-01-02T00:00:00+00:00"),
		ServiceID:        ref.NewSequesterServiceID(),
		ServiceLabel:     "Compliance archival",
		EncryptionKeyDer: servicePublic,
	}
	serviceSigned, err := service.DumpAndSign(authoritySigning)
	if err != nil {
		t.Fatalf("DumpAndSign: %v", err)
	}
	loadedService, err := VerifyAndLoadSequesterServiceCertificate(serviceSigned, loadedAuthority.VerifyKeyDer)
	if err != nil {
		t.Fatalf("VerifyAndLoadSequesterServiceCertificate: %v", err)
	}
	if loadedService.ServiceID != service.ServiceID || loadedService.ServiceLabel != service.ServiceLabel {
		t.Error("service certificate fields did not survive the round trip")
	}

	// Tampered authority signature.
	serviceSigned[0] ^= 0x01
	if _, err := VerifyAndLoadSequesterServiceCertificate(serviceSigned, loadedAuthority.VerifyKeyDer); !errors.Is(err, crypto.ErrSignature) {
		t.Errorf("tampered signature: got %v, want ErrSignature", err)
	}
}

func TestLegacyIsAdminDefaulting(t *testing.T) {
	// A payload missing "profile" falls back to the is_admin bit.
	aliceKey := mustSigningKey(t)
	wire := struct {
		Type      string       `cbor:"type"`
		Author    Author       `cbor:"author"`
		Timestamp ref.DateTime `cbor:"timestamp"`
		UserID    ref.UserID   `cbor:"user_id"`
		PublicKey []byte       `cbor:"public_key"`
		IsAdmin   bool         `cbor:"is_admin"`
	}{
		Type:      "user_certificate",
		Author:    DeviceAuthor(mustDeviceID(t, "alice@dev1")),
		Timestamp: mustDateTime(t, "2000-01-02T00:00:00+00:00"),
		UserID:    mustUserID(t, "bob"),
		PublicKey: mustPrivateKey(t).PublicKey().Bytes(),
		IsAdmin:   true,
	}
	signed, err := signAndDump(aliceKey, &wire)
	if err != nil {
		t.Fatalf("signAndDump: %v", err)
	}

	loaded, err := VerifyAndLoadUserCertificate(signed, aliceKey.VerifyKey(), nil, nil, nil)
	if err != nil {
		t.Fatalf("VerifyAndLoadUserCertificate: %v", err)
	}
	if loaded.Profile != ref.ProfileAdmin {
		t.Errorf("Profile = %s, want ADMIN", loaded.Profile)
	}
	if loaded.HumanHandle != nil {
		t.Error("missing human_handle must decode as nil")
	}

	wire.IsAdmin = false
	signed, err = signAndDump(aliceKey, &wire)
	if err != nil {
		t.Fatalf("signAndDump: %v", err)
	}
	loaded, err = VerifyAndLoadUserCertificate(signed, aliceKey.VerifyKey(), nil, nil, nil)
	if err != nil {
		t.Fatalf("VerifyAndLoadUserCertificate: %v", err)
	}
	if loaded.Profile != ref.ProfileStandard {
		t.Errorf("Profile = %s, want STANDARD", loaded.Profile)
	}
}

func TestCertificateRejectsUnknownType(t *testing.T) {
	aliceKey := mustSigningKey(t)
	wire := struct {
		Type string `cbor:"type"`
	}{Type: "mystery_certificate"}
	signed, err := signAndDump(aliceKey, &wire)
	if err != nil {
		t.Fatalf("signAndDump: %v", err)
	}
	if _, err := VerifyAndLoadUserCertificate(signed, aliceKey.VerifyKey(), nil, nil, nil); !errors.Is(err, ErrUnknownType) {
		t.Errorf("unknown type: got %v, want ErrUnknownType", err)
	}
}
