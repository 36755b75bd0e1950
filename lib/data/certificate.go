// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package data

import (
	"fmt"

	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/ref"
)

// Type discriminators carried by certificate payloads.
const (
	typeUserCertificate               = "user_certificate"
	typeDeviceCertificate             = "device_certificate"
	typeRevokedUserCertificate        = "revoked_user_certificate"
	typeRealmRoleCertificate          = "realm_role_certificate"
	typeSequesterAuthorityCertificate = "sequester_authority_certificate"
	typeSequesterServiceCertificate   = "sequester_service_certificate"
)

func checkType(got, want string) error {
	if got != want {
		return fmt.Errorf("%w: expected %q, got %q", ErrUnknownType, want, got)
	}
	return nil
}

// UserCertificate attests that a user exists, binding its encryption
// public key and profile. The redacted variant, served to OUTSIDER
// profiles, has HumanHandle nil.
type UserCertificate struct {
	Author      Author
	Timestamp   ref.DateTime
	UserID      ref.UserID
	HumanHandle *ref.HumanHandle
	PublicKey   crypto.PublicKey
	Profile     ref.UserProfile
}

type userCertificateWire struct {
	Type        string           `cbor:"type"`
	Author      Author           `cbor:"author"`
	Timestamp   ref.DateTime     `cbor:"timestamp"`
	UserID      ref.UserID       `cbor:"user_id"`
	HumanHandle *ref.HumanHandle `cbor:"human_handle"`
	PublicKey   []byte           `cbor:"public_key"`
	// Profile is a pointer to distinguish a legacy payload (absent,
	// fall back to IsAdmin) from a present value.
	Profile *ref.UserProfile `cbor:"profile,omitempty"`
	IsAdmin bool             `cbor:"is_admin"`
}

func (c *UserCertificate) toWire() userCertificateWire {
	profile := c.Profile
	return userCertificateWire{
		Type:        typeUserCertificate,
		Author:      c.Author,
		Timestamp:   c.Timestamp,
		UserID:      c.UserID,
		HumanHandle: c.HumanHandle,
		PublicKey:   c.PublicKey.Bytes(),
		Profile:     &profile,
		// Kept alongside profile so pre-profile peers still decode
		// the admin bit.
		IsAdmin: c.Profile.IsAdmin(),
	}
}

func (w *userCertificateWire) toCert() (*UserCertificate, error) {
	if err := checkType(w.Type, typeUserCertificate); err != nil {
		return nil, err
	}
	if w.UserID.IsZero() || w.Timestamp.IsZero() {
		return nil, fmt.Errorf("%w: user certificate missing user_id or timestamp", ErrInvalidData)
	}
	publicKey, err := crypto.PublicKeyFromBytes(w.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	profile := ref.ProfileFromIsAdmin(w.IsAdmin)
	if w.Profile != nil {
		profile = *w.Profile
	}
	return &UserCertificate{
		Author:      w.Author,
		Timestamp:   w.Timestamp,
		UserID:      w.UserID,
		HumanHandle: w.HumanHandle,
		PublicKey:   publicKey,
		Profile:     profile,
	}, nil
}

// Redacted returns a copy with the human handle nulled, suitable for
// serving to OUTSIDER profiles. It must be signed separately.
func (c *UserCertificate) Redacted() *UserCertificate {
	redacted := *c
	redacted.HumanHandle = nil
	return &redacted
}

// Equal compares all fields. Handles compare by email per
// ref.HumanHandle semantics.
func (c *UserCertificate) Equal(other *UserCertificate) bool {
	if c.Author != other.Author || c.Timestamp != other.Timestamp ||
		c.UserID != other.UserID || c.PublicKey != other.PublicKey ||
		c.Profile != other.Profile {
		return false
	}
	if (c.HumanHandle == nil) != (other.HumanHandle == nil) {
		return false
	}
	return c.HumanHandle == nil || c.HumanHandle.Equal(*other.HumanHandle)
}

// DumpAndSign serializes and E1-signs the certificate. For a root
// author the caller supplies the organization root signing key.
func (c *UserCertificate) DumpAndSign(key crypto.SigningKey) ([]byte, error) {
	wire := c.toWire()
	return signAndDump(key, &wire)
}

// UnsecureUserCertificate is a parsed but UNVERIFIED user certificate.
// Only the fields needed to locate the author's verify key are
// exposed; call VerifySignature to obtain the trusted value.
type UnsecureUserCertificate struct {
	cert   *UserCertificate
	signed []byte
}

// UnsecureLoadUserCertificate parses a signed payload without checking
// its signature.
func UnsecureLoadUserCertificate(signed []byte) (*UnsecureUserCertificate, error) {
	var wire userCertificateWire
	if err := unsecureDecode(signed, &wire); err != nil {
		return nil, err
	}
	cert, err := wire.toCert()
	if err != nil {
		return nil, err
	}
	return &UnsecureUserCertificate{cert: cert, signed: signed}, nil
}

// Author returns the claimed author. Untrusted until verified.
func (u *UnsecureUserCertificate) Author() Author { return u.cert.Author }

// Timestamp returns the claimed signing time. Untrusted until
// verified.
func (u *UnsecureUserCertificate) Timestamp() ref.DateTime { return u.cert.Timestamp }

// UserID returns the claimed subject. Untrusted until verified.
func (u *UnsecureUserCertificate) UserID() ref.UserID { return u.cert.UserID }

// VerifySignature checks the signature against the author's verify
// key and returns the trusted certificate.
func (u *UnsecureUserCertificate) VerifySignature(key crypto.VerifyKey) (*UserCertificate, error) {
	if _, err := key.Verify(u.signed); err != nil {
		return nil, err
	}
	return u.cert, nil
}

// VerifyAndLoadUserCertificate verifies a signed payload and checks
// every non-nil expectation. Each mismatch fails with a
// FieldMismatchError naming the field and both values.
func VerifyAndLoadUserCertificate(signed []byte, key crypto.VerifyKey, expectedAuthor *Author, expectedUser *ref.UserID, expectedHumanHandle *ref.HumanHandle) (*UserCertificate, error) {
	var wire userCertificateWire
	if err := verifyAndDecode(key, signed, &wire); err != nil {
		return nil, err
	}
	cert, err := wire.toCert()
	if err != nil {
		return nil, err
	}
	if expectedAuthor != nil && cert.Author != *expectedAuthor {
		return nil, &FieldMismatchError{Field: "author", Expected: expectedAuthor.String(), Got: cert.Author.String()}
	}
	if expectedUser != nil && cert.UserID != *expectedUser {
		return nil, &FieldMismatchError{Field: "user ID", Expected: expectedUser.String(), Got: cert.UserID.String()}
	}
	if expectedHumanHandle != nil {
		if cert.HumanHandle == nil || !cert.HumanHandle.Equal(*expectedHumanHandle) {
			got := "None"
			if cert.HumanHandle != nil {
				got = cert.HumanHandle.String()
			}
			return nil, &FieldMismatchError{Field: "human handle", Expected: expectedHumanHandle.String(), Got: got}
		}
	}
	return cert, nil
}

// DeviceCertificate attests that a device exists, binding its Ed25519
// verify key. The redacted variant has DeviceLabel nil.
type DeviceCertificate struct {
	Author      Author
	Timestamp   ref.DateTime
	DeviceID    ref.DeviceID
	DeviceLabel *ref.DeviceLabel
	VerifyKey   crypto.VerifyKey
}

type deviceCertificateWire struct {
	Type        string           `cbor:"type"`
	Author      Author           `cbor:"author"`
	Timestamp   ref.DateTime     `cbor:"timestamp"`
	DeviceID    ref.DeviceID     `cbor:"device_id"`
	DeviceLabel *ref.DeviceLabel `cbor:"device_label"`
	VerifyKey   []byte           `cbor:"verify_key"`
}

func (c *DeviceCertificate) toWire() deviceCertificateWire {
	return deviceCertificateWire{
		Type:        typeDeviceCertificate,
		Author:      c.Author,
		Timestamp:   c.Timestamp,
		DeviceID:    c.DeviceID,
		DeviceLabel: c.DeviceLabel,
		VerifyKey:   c.VerifyKey.Bytes(),
	}
}

func (w *deviceCertificateWire) toCert() (*DeviceCertificate, error) {
	if err := checkType(w.Type, typeDeviceCertificate); err != nil {
		return nil, err
	}
	if w.DeviceID.IsZero() || w.Timestamp.IsZero() {
		return nil, fmt.Errorf("%w: device certificate missing device_id or timestamp", ErrInvalidData)
	}
	verifyKey, err := crypto.VerifyKeyFromBytes(w.VerifyKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &DeviceCertificate{
		Author:      w.Author,
		Timestamp:   w.Timestamp,
		DeviceID:    w.DeviceID,
		DeviceLabel: w.DeviceLabel,
		VerifyKey:   verifyKey,
	}, nil
}

// Redacted returns a copy with the device label nulled. It must be
// signed separately.
func (c *DeviceCertificate) Redacted() *DeviceCertificate {
	redacted := *c
	redacted.DeviceLabel = nil
	return &redacted
}

// Equal compares all fields.
func (c *DeviceCertificate) Equal(other *DeviceCertificate) bool {
	if c.Author != other.Author || c.Timestamp != other.Timestamp ||
		c.DeviceID != other.DeviceID || c.VerifyKey != other.VerifyKey {
		return false
	}
	if (c.DeviceLabel == nil) != (other.DeviceLabel == nil) {
		return false
	}
	return c.DeviceLabel == nil || *c.DeviceLabel == *other.DeviceLabel
}

// DumpAndSign serializes and E1-signs the certificate.
func (c *DeviceCertificate) DumpAndSign(key crypto.SigningKey) ([]byte, error) {
	wire := c.toWire()
	return signAndDump(key, &wire)
}

// UnsecureDeviceCertificate is a parsed but UNVERIFIED device
// certificate.
type UnsecureDeviceCertificate struct {
	cert   *DeviceCertificate
	signed []byte
}

// UnsecureLoadDeviceCertificate parses a signed payload without
// checking its signature.
func UnsecureLoadDeviceCertificate(signed []byte) (*UnsecureDeviceCertificate, error) {
	var wire deviceCertificateWire
	if err := unsecureDecode(signed, &wire); err != nil {
		return nil, err
	}
	cert, err := wire.toCert()
	if err != nil {
		return nil, err
	}
	return &UnsecureDeviceCertificate{cert: cert, signed: signed}, nil
}

// Author returns the claimed author. Untrusted until verified.
func (u *UnsecureDeviceCertificate) Author() Author { return u.cert.Author }

// Timestamp returns the claimed signing time. Untrusted until
// verified.
func (u *UnsecureDeviceCertificate) Timestamp() ref.DateTime { return u.cert.Timestamp }

// DeviceID returns the claimed subject. Untrusted until verified.
func (u *UnsecureDeviceCertificate) DeviceID() ref.DeviceID { return u.cert.DeviceID }

// VerifyKey returns the claimed device verify key. Untrusted until
// verified.
func (u *UnsecureDeviceCertificate) VerifyKey() crypto.VerifyKey { return u.cert.VerifyKey }

// VerifySignature checks the signature against the author's verify
// key and returns the trusted certificate.
func (u *UnsecureDeviceCertificate) VerifySignature(key crypto.VerifyKey) (*DeviceCertificate, error) {
	if _, err := key.Verify(u.signed); err != nil {
		return nil, err
	}
	return u.cert, nil
}

// VerifyAndLoadDeviceCertificate verifies a signed payload and checks
// every non-nil expectation.
func VerifyAndLoadDeviceCertificate(signed []byte, key crypto.VerifyKey, expectedAuthor *Author, expectedDevice *ref.DeviceID) (*DeviceCertificate, error) {
	var wire deviceCertificateWire
	if err := verifyAndDecode(key, signed, &wire); err != nil {
		return nil, err
	}
	cert, err := wire.toCert()
	if err != nil {
		return nil, err
	}
	if expectedAuthor != nil && cert.Author != *expectedAuthor {
		return nil, &FieldMismatchError{Field: "author", Expected: expectedAuthor.String(), Got: cert.Author.String()}
	}
	if expectedDevice != nil && cert.DeviceID != *expectedDevice {
		return nil, &FieldMismatchError{Field: "device ID", Expected: expectedDevice.String(), Got: cert.DeviceID.String()}
	}
	return cert, nil
}

// RevokedUserCertificate withdraws a user from the organization.
// Revocation is always a new certificate; existing certificates are
// never mutated.
type RevokedUserCertificate struct {
	Author    Author
	Timestamp ref.DateTime
	UserID    ref.UserID
}

type revokedUserCertificateWire struct {
	Type      string       `cbor:"type"`
	Author    Author       `cbor:"author"`
	Timestamp ref.DateTime `cbor:"timestamp"`
	UserID    ref.UserID   `cbor:"user_id"`
}

func (c *RevokedUserCertificate) toWire() revokedUserCertificateWire {
	return revokedUserCertificateWire{
		Type:      typeRevokedUserCertificate,
		Author:    c.Author,
		Timestamp: c.Timestamp,
		UserID:    c.UserID,
	}
}

func (w *revokedUserCertificateWire) toCert() (*RevokedUserCertificate, error) {
	if err := checkType(w.Type, typeRevokedUserCertificate); err != nil {
		return nil, err
	}
	if w.UserID.IsZero() || w.Timestamp.IsZero() {
		return nil, fmt.Errorf("%w: revoked user certificate missing user_id or timestamp", ErrInvalidData)
	}
	// Bootstrap cannot revoke anyone: a root-authored revocation is
	// meaningless and rejected outright.
	if w.Author.IsRoot() {
		return nil, fmt.Errorf("%w: revoked user certificate cannot have a root author", ErrInvalidData)
	}
	return &RevokedUserCertificate{
		Author:    w.Author,
		Timestamp: w.Timestamp,
		UserID:    w.UserID,
	}, nil
}

// DumpAndSign serializes and E1-signs the certificate.
func (c *RevokedUserCertificate) DumpAndSign(key crypto.SigningKey) ([]byte, error) {
	wire := c.toWire()
	return signAndDump(key, &wire)
}

// UnsecureRevokedUserCertificate is a parsed but UNVERIFIED revocation.
type UnsecureRevokedUserCertificate struct {
	cert   *RevokedUserCertificate
	signed []byte
}

// UnsecureLoadRevokedUserCertificate parses a signed payload without
// checking its signature.
func UnsecureLoadRevokedUserCertificate(signed []byte) (*UnsecureRevokedUserCertificate, error) {
	var wire revokedUserCertificateWire
	if err := unsecureDecode(signed, &wire); err != nil {
		return nil, err
	}
	cert, err := wire.toCert()
	if err != nil {
		return nil, err
	}
	return &UnsecureRevokedUserCertificate{cert: cert, signed: signed}, nil
}

// Author returns the claimed author. Untrusted until verified.
func (u *UnsecureRevokedUserCertificate) Author() Author { return u.cert.Author }

// Timestamp returns the claimed signing time. Untrusted until
// verified.
func (u *UnsecureRevokedUserCertificate) Timestamp() ref.DateTime { return u.cert.Timestamp }

// UserID returns the claimed revoked user. Untrusted until verified.
func (u *UnsecureRevokedUserCertificate) UserID() ref.UserID { return u.cert.UserID }

// VerifySignature checks the signature against the author's verify
// key and returns the trusted certificate.
func (u *UnsecureRevokedUserCertificate) VerifySignature(key crypto.VerifyKey) (*RevokedUserCertificate, error) {
	if _, err := key.Verify(u.signed); err != nil {
		return nil, err
	}
	return u.cert, nil
}

// VerifyAndLoadRevokedUserCertificate verifies a signed payload and
// checks every non-nil expectation.
func VerifyAndLoadRevokedUserCertificate(signed []byte, key crypto.VerifyKey, expectedAuthor *Author, expectedUser *ref.UserID) (*RevokedUserCertificate, error) {
	var wire revokedUserCertificateWire
	if err := verifyAndDecode(key, signed, &wire); err != nil {
		return nil, err
	}
	cert, err := wire.toCert()
	if err != nil {
		return nil, err
	}
	if expectedAuthor != nil && cert.Author != *expectedAuthor {
		return nil, &FieldMismatchError{Field: "author", Expected: expectedAuthor.String(), Got: cert.Author.String()}
	}
	if expectedUser != nil && cert.UserID != *expectedUser {
		return nil, &FieldMismatchError{Field: "user ID", Expected: expectedUser.String(), Got: cert.UserID.String()}
	}
	return cert, nil
}

// RealmRoleCertificate grants, changes or revokes a user's role in a
// realm. A nil Role removes the user from the realm.
type RealmRoleCertificate struct {
	Author    Author
	Timestamp ref.DateTime
	RealmID   ref.RealmID
	UserID    ref.UserID
	Role      *ref.RealmRole
}

type realmRoleCertificateWire struct {
	Type      string         `cbor:"type"`
	Author    Author         `cbor:"author"`
	Timestamp ref.DateTime   `cbor:"timestamp"`
	RealmID   ref.RealmID    `cbor:"realm_id"`
	UserID    ref.UserID     `cbor:"user_id"`
	Role      *ref.RealmRole `cbor:"role"`
}

// NewRealmRootRoleCertificate builds the self-granted OWNER
// certificate a device signs when creating a realm.
func NewRealmRootRoleCertificate(author ref.DeviceID, timestamp ref.DateTime, realm ref.RealmID) *RealmRoleCertificate {
	role := ref.RoleOwner
	return &RealmRoleCertificate{
		Author:    DeviceAuthor(author),
		Timestamp: timestamp,
		RealmID:   realm,
		UserID:    author.UserID(),
		Role:      &role,
	}
}

func (c *RealmRoleCertificate) toWire() realmRoleCertificateWire {
	return realmRoleCertificateWire{
		Type:      typeRealmRoleCertificate,
		Author:    c.Author,
		Timestamp: c.Timestamp,
		RealmID:   c.RealmID,
		UserID:    c.UserID,
		Role:      c.Role,
	}
}

func (w *realmRoleCertificateWire) toCert() (*RealmRoleCertificate, error) {
	if err := checkType(w.Type, typeRealmRoleCertificate); err != nil {
		return nil, err
	}
	if w.RealmID.IsZero() || w.UserID.IsZero() || w.Timestamp.IsZero() {
		return nil, fmt.Errorf("%w: realm role certificate missing realm_id, user_id or timestamp", ErrInvalidData)
	}
	return &RealmRoleCertificate{
		Author:    w.Author,
		Timestamp: w.Timestamp,
		RealmID:   w.RealmID,
		UserID:    w.UserID,
		Role:      w.Role,
	}, nil
}

// DumpAndSign serializes and E1-signs the certificate.
func (c *RealmRoleCertificate) DumpAndSign(key crypto.SigningKey) ([]byte, error) {
	wire := c.toWire()
	return signAndDump(key, &wire)
}

// UnsecureRealmRoleCertificate is a parsed but UNVERIFIED realm role
// certificate.
type UnsecureRealmRoleCertificate struct {
	cert   *RealmRoleCertificate
	signed []byte
}

// UnsecureLoadRealmRoleCertificate parses a signed payload without
// checking its signature.
func UnsecureLoadRealmRoleCertificate(signed []byte) (*UnsecureRealmRoleCertificate, error) {
	var wire realmRoleCertificateWire
	if err := unsecureDecode(signed, &wire); err != nil {
		return nil, err
	}
	cert, err := wire.toCert()
	if err != nil {
		return nil, err
	}
	return &UnsecureRealmRoleCertificate{cert: cert, signed: signed}, nil
}

// Author returns the claimed author. Untrusted until verified.
func (u *UnsecureRealmRoleCertificate) Author() Author { return u.cert.Author }

// Timestamp returns the claimed signing time. Untrusted until
// verified.
func (u *UnsecureRealmRoleCertificate) Timestamp() ref.DateTime { return u.cert.Timestamp }

// RealmID returns the claimed realm. Untrusted until verified.
func (u *UnsecureRealmRoleCertificate) RealmID() ref.RealmID { return u.cert.RealmID }

// UserID returns the claimed subject. Untrusted until verified.
func (u *UnsecureRealmRoleCertificate) UserID() ref.UserID { return u.cert.UserID }

// Role returns the claimed role, nil for a removal. Untrusted until
// verified.
func (u *UnsecureRealmRoleCertificate) Role() *ref.RealmRole { return u.cert.Role }

// VerifySignature checks the signature against the author's verify
// key and returns the trusted certificate.
func (u *UnsecureRealmRoleCertificate) VerifySignature(key crypto.VerifyKey) (*RealmRoleCertificate, error) {
	if _, err := key.Verify(u.signed); err != nil {
		return nil, err
	}
	return u.cert, nil
}

// VerifyAndLoadRealmRoleCertificate verifies a signed payload and
// checks every non-nil expectation.
func VerifyAndLoadRealmRoleCertificate(signed []byte, key crypto.VerifyKey, expectedAuthor *Author, expectedRealm *ref.RealmID, expectedUser *ref.UserID) (*RealmRoleCertificate, error) {
	var wire realmRoleCertificateWire
	if err := verifyAndDecode(key, signed, &wire); err != nil {
		return nil, err
	}
	cert, err := wire.toCert()
	if err != nil {
		return nil, err
	}
	if expectedAuthor != nil && cert.Author != *expectedAuthor {
		return nil, &FieldMismatchError{Field: "author", Expected: expectedAuthor.String(), Got: cert.Author.String()}
	}
	if expectedRealm != nil && cert.RealmID != *expectedRealm {
		return nil, &FieldMismatchError{Field: "realm ID", Expected: expectedRealm.String(), Got: cert.RealmID.String()}
	}
	if expectedUser != nil && cert.UserID != *expectedUser {
		return nil, &FieldMismatchError{Field: "user ID", Expected: expectedUser.String(), Got: cert.UserID.String()}
	}
	return cert, nil
}

// SequesterAuthorityCertificate installs the organization's sequester
// authority: an RSA verify key signed by the organization root key at
// bootstrap. Its presence makes the organization sequestered.
type SequesterAuthorityCertificate struct {
	Timestamp    ref.DateTime
	VerifyKeyDer crypto.SequesterVerifyKeyDer
}

type sequesterAuthorityCertificateWire struct {
	Type         string       `cbor:"type"`
	Author       Author       `cbor:"author"`
	Timestamp    ref.DateTime `cbor:"timestamp"`
	VerifyKeyDer []byte       `cbor:"verify_key_der"`
}

// DumpAndSign serializes and E1-signs with the organization root key;
// the authority certificate never has a device author.
func (c *SequesterAuthorityCertificate) DumpAndSign(rootKey crypto.SigningKey) ([]byte, error) {
	wire := sequesterAuthorityCertificateWire{
		Type:         typeSequesterAuthorityCertificate,
		Author:       RootAuthor(),
		Timestamp:    c.Timestamp,
		VerifyKeyDer: c.VerifyKeyDer.Dump(),
	}
	return signAndDump(rootKey, &wire)
}

// VerifyAndLoadSequesterAuthorityCertificate verifies a signed payload
// against the organization root verify key.
func VerifyAndLoadSequesterAuthorityCertificate(signed []byte, rootVerifyKey crypto.VerifyKey) (*SequesterAuthorityCertificate, error) {
	var wire sequesterAuthorityCertificateWire
	if err := verifyAndDecode(rootVerifyKey, signed, &wire); err != nil {
		return nil, err
	}
	if err := checkType(wire.Type, typeSequesterAuthorityCertificate); err != nil {
		return nil, err
	}
	if !wire.Author.IsRoot() {
		return nil, &FieldMismatchError{Field: "author", Expected: RootAuthor().String(), Got: wire.Author.String()}
	}
	if wire.Timestamp.IsZero() {
		return nil, fmt.Errorf("%w: sequester authority certificate missing timestamp", ErrInvalidData)
	}
	verifyKey, err := crypto.SequesterVerifyKeyFromDer(wire.VerifyKeyDer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &SequesterAuthorityCertificate{
		Timestamp:    wire.Timestamp,
		VerifyKeyDer: verifyKey,
	}, nil
}

// SequesterServiceCertificate registers a sequester service with the
// authority: an RSA encryption key signed by the authority's RSA
// signing key (not by any device).
type SequesterServiceCertificate struct {
	Timestamp        ref.DateTime
	ServiceID        ref.SequesterServiceID
	ServiceLabel     string
	EncryptionKeyDer crypto.SequesterPublicKeyDer
}

type sequesterServiceCertificateWire struct {
	Type             string                 `cbor:"type"`
	Timestamp        ref.DateTime           `cbor:"timestamp"`
	ServiceID        ref.SequesterServiceID `cbor:"service_id"`
	ServiceLabel     string                 `cbor:"service_label"`
	EncryptionKeyDer []byte                 `cbor:"encryption_key_der"`
}

// DumpAndSign serializes the certificate and signs it with the
// sequester authority key (RSA-PSS, signature-prepended).
func (c *SequesterServiceCertificate) DumpAndSign(authority crypto.SequesterSigningKeyDer) ([]byte, error) {
	wire := sequesterServiceCertificateWire{
		Type:             typeSequesterServiceCertificate,
		Timestamp:        c.Timestamp,
		ServiceID:        c.ServiceID,
		ServiceLabel:     c.ServiceLabel,
		EncryptionKeyDer: c.EncryptionKeyDer.Dump(),
	}
	encoded, err := encodeCompressed(&wire)
	if err != nil {
		return nil, err
	}
	return authority.Sign(encoded)
}

// VerifyAndLoadSequesterServiceCertificate verifies a signed payload
// against the sequester authority verify key.
func VerifyAndLoadSequesterServiceCertificate(signed []byte, authority crypto.SequesterVerifyKeyDer) (*SequesterServiceCertificate, error) {
	body, err := authority.Verify(signed)
	if err != nil {
		return nil, err
	}
	var wire sequesterServiceCertificateWire
	if err := decodeCompressed(body, &wire); err != nil {
		return nil, err
	}
	if err := checkType(wire.Type, typeSequesterServiceCertificate); err != nil {
		return nil, err
	}
	if wire.ServiceID.IsZero() || wire.Timestamp.IsZero() || wire.ServiceLabel == "" {
		return nil, fmt.Errorf("%w: sequester service certificate missing service_id, service_label or timestamp", ErrInvalidData)
	}
	encryptionKey, err := crypto.SequesterPublicKeyFromDer(wire.EncryptionKeyDer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &SequesterServiceCertificate{
		Timestamp:        wire.Timestamp,
		ServiceID:        wire.ServiceID,
		ServiceLabel:     wire.ServiceLabel,
		EncryptionKeyDer: encryptionKey,
	}, nil
}
