// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package data

import (
	"fmt"

	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/ref"
)

// Type discriminators carried by invite payloads.
const (
	typeInviteUserData           = "invite_user_data"
	typeInviteUserConfirmation   = "invite_user_confirmation"
	typeInviteDeviceData         = "invite_device_data"
	typeInviteDeviceConfirmation = "invite_device_confirmation"
)

// Invite payloads travel in envelope E2 under the ephemeral symmetric
// key both peers derive during the SAS greeting ceremony. Unlike
// manifests the expected payload type is fixed by the ceremony step,
// so each type has its own loader.

// InviteUserData is what a claimer sends the greeter: the identity
// they request and the keys they generated for their new account.
type InviteUserData struct {
	RequestedDeviceLabel *ref.DeviceLabel
	RequestedHumanHandle *ref.HumanHandle
	PublicKey            crypto.PublicKey
	VerifyKey            crypto.VerifyKey
}

type inviteUserDataWire struct {
	Type                 string           `cbor:"type"`
	RequestedDeviceLabel *ref.DeviceLabel `cbor:"requested_device_label"`
	RequestedHumanHandle *ref.HumanHandle `cbor:"requested_human_handle"`
	PublicKey            []byte           `cbor:"public_key"`
	VerifyKey            []byte           `cbor:"verify_key"`
}

// DumpSignAndEncrypt serializes into envelope E2 under the ceremony
// key, signed with the claimer's new signing key.
func (d *InviteUserData) DumpSignAndEncrypt(author crypto.SigningKey, key crypto.SecretKey) ([]byte, error) {
	wire := inviteUserDataWire{
		Type:                 typeInviteUserData,
		RequestedDeviceLabel: d.RequestedDeviceLabel,
		RequestedHumanHandle: d.RequestedHumanHandle,
		PublicKey:            d.PublicKey.Bytes(),
		VerifyKey:            d.VerifyKey.Bytes(),
	}
	return signAndEncrypt(author, key, &wire)
}

// DecryptVerifyAndLoadInviteUserData reverses envelope E2.
func DecryptVerifyAndLoadInviteUserData(ciphered []byte, key crypto.SecretKey, authorVerifyKey crypto.VerifyKey) (*InviteUserData, error) {
	var wire inviteUserDataWire
	if err := decryptVerifyAndDecode(key, authorVerifyKey, ciphered, &wire); err != nil {
		return nil, err
	}
	if err := checkType(wire.Type, typeInviteUserData); err != nil {
		return nil, err
	}
	publicKey, err := crypto.PublicKeyFromBytes(wire.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	verifyKey, err := crypto.VerifyKeyFromBytes(wire.VerifyKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &InviteUserData{
		RequestedDeviceLabel: wire.RequestedDeviceLabel,
		RequestedHumanHandle: wire.RequestedHumanHandle,
		PublicKey:            publicKey,
		VerifyKey:            verifyKey,
	}, nil
}

// InviteUserConfirmation is the greeter's reply: the identity actually
// granted (the greeter may override the request) and the organization
// root verify key.
type InviteUserConfirmation struct {
	DeviceID      ref.DeviceID
	DeviceLabel   *ref.DeviceLabel
	HumanHandle   *ref.HumanHandle
	Profile       ref.UserProfile
	RootVerifyKey crypto.VerifyKey
}

type inviteUserConfirmationWire struct {
	Type          string           `cbor:"type"`
	DeviceID      ref.DeviceID     `cbor:"device_id"`
	DeviceLabel   *ref.DeviceLabel `cbor:"device_label"`
	HumanHandle   *ref.HumanHandle `cbor:"human_handle"`
	Profile       ref.UserProfile  `cbor:"profile"`
	RootVerifyKey []byte           `cbor:"root_verify_key"`
}

// DumpSignAndEncrypt serializes into envelope E2 under the ceremony
// key, signed with the greeter's device signing key.
func (c *InviteUserConfirmation) DumpSignAndEncrypt(author crypto.SigningKey, key crypto.SecretKey) ([]byte, error) {
	wire := inviteUserConfirmationWire{
		Type:          typeInviteUserConfirmation,
		DeviceID:      c.DeviceID,
		DeviceLabel:   c.DeviceLabel,
		HumanHandle:   c.HumanHandle,
		Profile:       c.Profile,
		RootVerifyKey: c.RootVerifyKey.Bytes(),
	}
	return signAndEncrypt(author, key, &wire)
}

// DecryptVerifyAndLoadInviteUserConfirmation reverses envelope E2.
func DecryptVerifyAndLoadInviteUserConfirmation(ciphered []byte, key crypto.SecretKey, authorVerifyKey crypto.VerifyKey) (*InviteUserConfirmation, error) {
	var wire inviteUserConfirmationWire
	if err := decryptVerifyAndDecode(key, authorVerifyKey, ciphered, &wire); err != nil {
		return nil, err
	}
	if err := checkType(wire.Type, typeInviteUserConfirmation); err != nil {
		return nil, err
	}
	if wire.DeviceID.IsZero() {
		return nil, fmt.Errorf("%w: invite confirmation missing device_id", ErrInvalidData)
	}
	if _, err := ref.ParseUserProfile(wire.Profile.String()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	rootVerifyKey, err := crypto.VerifyKeyFromBytes(wire.RootVerifyKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &InviteUserConfirmation{
		DeviceID:      wire.DeviceID,
		DeviceLabel:   wire.DeviceLabel,
		HumanHandle:   wire.HumanHandle,
		Profile:       wire.Profile,
		RootVerifyKey: rootVerifyKey,
	}, nil
}

// InviteDeviceData is what a claimer sends when adding a device to an
// existing user: only the new device's verify key, since the user
// identity already exists.
type InviteDeviceData struct {
	RequestedDeviceLabel *ref.DeviceLabel
	VerifyKey            crypto.VerifyKey
}

type inviteDeviceDataWire struct {
	Type                 string           `cbor:"type"`
	RequestedDeviceLabel *ref.DeviceLabel `cbor:"requested_device_label"`
	VerifyKey            []byte           `cbor:"verify_key"`
}

// DumpSignAndEncrypt serializes into envelope E2 under the ceremony
// key.
func (d *InviteDeviceData) DumpSignAndEncrypt(author crypto.SigningKey, key crypto.SecretKey) ([]byte, error) {
	wire := inviteDeviceDataWire{
		Type:                 typeInviteDeviceData,
		RequestedDeviceLabel: d.RequestedDeviceLabel,
		VerifyKey:            d.VerifyKey.Bytes(),
	}
	return signAndEncrypt(author, key, &wire)
}

// DecryptVerifyAndLoadInviteDeviceData reverses envelope E2.
func DecryptVerifyAndLoadInviteDeviceData(ciphered []byte, key crypto.SecretKey, authorVerifyKey crypto.VerifyKey) (*InviteDeviceData, error) {
	var wire inviteDeviceDataWire
	if err := decryptVerifyAndDecode(key, authorVerifyKey, ciphered, &wire); err != nil {
		return nil, err
	}
	if err := checkType(wire.Type, typeInviteDeviceData); err != nil {
		return nil, err
	}
	verifyKey, err := crypto.VerifyKeyFromBytes(wire.VerifyKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &InviteDeviceData{
		RequestedDeviceLabel: wire.RequestedDeviceLabel,
		VerifyKey:            verifyKey,
	}, nil
}

// InviteDeviceConfirmation is the greeter's reply for a device
// invitation. It carries the user's full private material because the
// new device must be able to act as the user.
type InviteDeviceConfirmation struct {
	DeviceID        ref.DeviceID
	DeviceLabel     *ref.DeviceLabel
	HumanHandle     *ref.HumanHandle
	Profile         ref.UserProfile
	PrivateKey      crypto.PrivateKey
	UserManifestID  ref.EntryID
	UserManifestKey crypto.SecretKey
	RootVerifyKey   crypto.VerifyKey
}

type inviteDeviceConfirmationWire struct {
	Type            string           `cbor:"type"`
	DeviceID        ref.DeviceID     `cbor:"device_id"`
	DeviceLabel     *ref.DeviceLabel `cbor:"device_label"`
	HumanHandle     *ref.HumanHandle `cbor:"human_handle"`
	Profile         ref.UserProfile  `cbor:"profile"`
	PrivateKey      []byte           `cbor:"private_key"`
	UserManifestID  ref.EntryID      `cbor:"user_manifest_id"`
	UserManifestKey []byte           `cbor:"user_manifest_key"`
	RootVerifyKey   []byte           `cbor:"root_verify_key"`
}

// DumpSignAndEncrypt serializes into envelope E2 under the ceremony
// key, signed with the greeter's device signing key.
func (c *InviteDeviceConfirmation) DumpSignAndEncrypt(author crypto.SigningKey, key crypto.SecretKey) ([]byte, error) {
	wire := inviteDeviceConfirmationWire{
		Type:            typeInviteDeviceConfirmation,
		DeviceID:        c.DeviceID,
		DeviceLabel:     c.DeviceLabel,
		HumanHandle:     c.HumanHandle,
		Profile:         c.Profile,
		PrivateKey:      c.PrivateKey.Bytes(),
		UserManifestID:  c.UserManifestID,
		UserManifestKey: c.UserManifestKey.Bytes(),
		RootVerifyKey:   c.RootVerifyKey.Bytes(),
	}
	return signAndEncrypt(author, key, &wire)
}

// DecryptVerifyAndLoadInviteDeviceConfirmation reverses envelope E2.
func DecryptVerifyAndLoadInviteDeviceConfirmation(ciphered []byte, key crypto.SecretKey, authorVerifyKey crypto.VerifyKey) (*InviteDeviceConfirmation, error) {
	var wire inviteDeviceConfirmationWire
	if err := decryptVerifyAndDecode(key, authorVerifyKey, ciphered, &wire); err != nil {
		return nil, err
	}
	if err := checkType(wire.Type, typeInviteDeviceConfirmation); err != nil {
		return nil, err
	}
	if wire.DeviceID.IsZero() || wire.UserManifestID.IsZero() {
		return nil, fmt.Errorf("%w: invite confirmation missing device_id or user_manifest_id", ErrInvalidData)
	}
	if _, err := ref.ParseUserProfile(wire.Profile.String()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	privateKey, err := crypto.PrivateKeyFromBytes(wire.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	manifestKey, err := crypto.SecretKeyFromBytes(wire.UserManifestKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	rootVerifyKey, err := crypto.VerifyKeyFromBytes(wire.RootVerifyKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &InviteDeviceConfirmation{
		DeviceID:        wire.DeviceID,
		DeviceLabel:     wire.DeviceLabel,
		HumanHandle:     wire.HumanHandle,
		Profile:         wire.Profile,
		PrivateKey:      privateKey,
		UserManifestID:  wire.UserManifestID,
		UserManifestKey: manifestKey,
		RootVerifyKey:   rootVerifyKey,
	}, nil
}
