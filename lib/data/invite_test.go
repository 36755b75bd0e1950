// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package data

import (
	"errors"
	"testing"

	"github.com/parsec-foundation/parsec/lib/ref"
)

func TestInviteUserExchangeRoundTrip(t *testing.T) {
	ceremonyKey := mustSecretKey(t)
	claimerSigningKey := mustSigningKey(t)
	greeterSigningKey := mustSigningKey(t)
	rootKey := mustSigningKey(t)

	handle, err := ref.NewHumanHandle("zara@example.com", "Zara")
	if err != nil {
		t.Fatalf("NewHumanHandle: %v", err)
	}
	label, err := ref.ParseDeviceLabel("Zara's phone")
	if err != nil {
		t.Fatalf("ParseDeviceLabel: %v", err)
	}

	request := &InviteUserData{
		RequestedDeviceLabel: &label,
		RequestedHumanHandle: &handle,
		PublicKey:            mustPrivateKey(t).PublicKey(),
		VerifyKey:            claimerSigningKey.VerifyKey(),
	}
	ciphered, err := request.DumpSignAndEncrypt(claimerSigningKey, ceremonyKey)
	if err != nil {
		t.Fatalf("DumpSignAndEncrypt: %v", err)
	}
	loaded, err := DecryptVerifyAndLoadInviteUserData(ciphered, ceremonyKey, claimerSigningKey.VerifyKey())
	if err != nil {
		t.Fatalf("DecryptVerifyAndLoadInviteUserData: %v", err)
	}
	if loaded.RequestedHumanHandle == nil || !loaded.RequestedHumanHandle.Equal(handle) {
		t.Errorf("RequestedHumanHandle = %v", loaded.RequestedHumanHandle)
	}
	if loaded.VerifyKey != claimerSigningKey.VerifyKey() {
		t.Error("verify key did not survive the round trip")
	}

	confirmation := &InviteUserConfirmation{
		DeviceID:      mustDeviceID(t, "zara@dev1"),
		DeviceLabel:   &label,
		HumanHandle:   &handle,
		Profile:       ref.ProfileStandard,
		RootVerifyKey: rootKey.VerifyKey(),
	}
	ciphered, err = confirmation.DumpSignAndEncrypt(greeterSigningKey, ceremonyKey)
	if err != nil {
		t.Fatalf("DumpSignAndEncrypt: %v", err)
	}
	confirmed, err := DecryptVerifyAndLoadInviteUserConfirmation(ciphered, ceremonyKey, greeterSigningKey.VerifyKey())
	if err != nil {
		t.Fatalf("DecryptVerifyAndLoadInviteUserConfirmation: %v", err)
	}
	if confirmed.DeviceID.String() != "zara@dev1" || confirmed.Profile != ref.ProfileStandard {
		t.Errorf("fields lost: %+v", confirmed)
	}
	if confirmed.RootVerifyKey != rootKey.VerifyKey() {
		t.Error("root verify key did not survive the round trip")
	}
}

func TestInviteDeviceExchangeRoundTrip(t *testing.T) {
	ceremonyKey := mustSecretKey(t)
	claimerSigningKey := mustSigningKey(t)
	greeterSigningKey := mustSigningKey(t)
	rootKey := mustSigningKey(t)
	userPrivateKey := mustPrivateKey(t)
	manifestKey := mustSecretKey(t)

	request := &InviteDeviceData{VerifyKey: claimerSigningKey.VerifyKey()}
	ciphered, err := request.DumpSignAndEncrypt(claimerSigningKey, ceremonyKey)
	if err != nil {
		t.Fatalf("DumpSignAndEncrypt: %v", err)
	}
	loaded, err := DecryptVerifyAndLoadInviteDeviceData(ciphered, ceremonyKey, claimerSigningKey.VerifyKey())
	if err != nil {
		t.Fatalf("DecryptVerifyAndLoadInviteDeviceData: %v", err)
	}
	if loaded.RequestedDeviceLabel != nil {
		t.Errorf("RequestedDeviceLabel = %v, want nil", loaded.RequestedDeviceLabel)
	}

	confirmation := &InviteDeviceConfirmation{
		DeviceID:        mustDeviceID(t, "alice@dev2"),
		Profile:         ref.ProfileAdmin,
		PrivateKey:      userPrivateKey,
		UserManifestID:  ref.NewEntryID(),
		UserManifestKey: manifestKey,
		RootVerifyKey:   rootKey.VerifyKey(),
	}
	ciphered, err = confirmation.DumpSignAndEncrypt(greeterSigningKey, ceremonyKey)
	if err != nil {
		t.Fatalf("DumpSignAndEncrypt: %v", err)
	}
	confirmed, err := DecryptVerifyAndLoadInviteDeviceConfirmation(ciphered, ceremonyKey, greeterSigningKey.VerifyKey())
	if err != nil {
		t.Fatalf("DecryptVerifyAndLoadInviteDeviceConfirmation: %v", err)
	}
	if confirmed.PrivateKey != userPrivateKey || confirmed.UserManifestKey != manifestKey {
		t.Error("key material did not survive the round trip")
	}
	if confirmed.UserManifestID != confirmation.UserManifestID {
		t.Errorf("UserManifestID = %s", confirmed.UserManifestID)
	}
}

func TestInviteLoaderRejectsWrongStep(t *testing.T) {
	ceremonyKey := mustSecretKey(t)
	claimerSigningKey := mustSigningKey(t)

	request := &InviteDeviceData{VerifyKey: claimerSigningKey.VerifyKey()}
	ciphered, err := request.DumpSignAndEncrypt(claimerSigningKey, ceremonyKey)
	if err != nil {
		t.Fatalf("DumpSignAndEncrypt: %v", err)
	}
	if _, err := DecryptVerifyAndLoadInviteUserData(ciphered, ceremonyKey, claimerSigningKey.VerifyKey()); !errors.Is(err, ErrUnknownType) {
		t.Errorf("wrong payload type: got %v, want ErrUnknownType", err)
	}
}
