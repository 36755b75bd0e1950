// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package data

import (
	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/ref"
)

// ValidateNewUserCertificates performs the server-side cross-check of
// a user creation (or organization bootstrap) bundle: the user and
// device certificates plus their redacted variants, all signed by the
// same author.
//
// It verifies each signature against authorVerifyKey and then checks
// that the four certificates are mutually consistent: same author and
// timestamp across the pair, device belonging to the new user,
// redacted variants differing from the plain ones only in the nulled
// fields, and a profile the server accepts for a brand-new user.
//
// Failures are CertificateValidationErrors carrying the protocol
// status ("invalid_certification" for signature problems,
// "invalid_data" for consistency problems) and a stable reason.
func ValidateNewUserCertificates(expectedAuthor Author, authorVerifyKey crypto.VerifyKey, userCertificate, deviceCertificate, redactedUserCertificate, redactedDeviceCertificate []byte) (*UserCertificate, *DeviceCertificate, error) {
	user, err := VerifyAndLoadUserCertificate(userCertificate, authorVerifyKey, &expectedAuthor, nil, nil)
	if err != nil {
		return nil, nil, &CertificateValidationError{Status: "invalid_certification", Reason: "Invalid user certificate: " + err.Error()}
	}
	device, err := VerifyAndLoadDeviceCertificate(deviceCertificate, authorVerifyKey, &expectedAuthor, nil)
	if err != nil {
		return nil, nil, &CertificateValidationError{Status: "invalid_certification", Reason: "Invalid device certificate: " + err.Error()}
	}
	redactedUser, err := VerifyAndLoadUserCertificate(redactedUserCertificate, authorVerifyKey, &expectedAuthor, nil, nil)
	if err != nil {
		return nil, nil, &CertificateValidationError{Status: "invalid_certification", Reason: "Invalid redacted user certificate: " + err.Error()}
	}
	redactedDevice, err := VerifyAndLoadDeviceCertificate(redactedDeviceCertificate, authorVerifyKey, &expectedAuthor, nil)
	if err != nil {
		return nil, nil, &CertificateValidationError{Status: "invalid_certification", Reason: "Invalid redacted device certificate: " + err.Error()}
	}

	if user.Timestamp != device.Timestamp {
		return nil, nil, &CertificateValidationError{Status: "invalid_data", Reason: "Device and User certificates must have the same timestamp."}
	}
	if user.UserID != device.DeviceID.UserID() {
		return nil, nil, &CertificateValidationError{Status: "invalid_data", Reason: "Device and User certificates must target the same user."}
	}
	if user.Profile == ref.ProfileOutsider {
		return nil, nil, &CertificateValidationError{Status: "invalid_data", Reason: "New user profile must be at least STANDARD."}
	}

	if redactedUser.HumanHandle != nil {
		return nil, nil, &CertificateValidationError{Status: "invalid_data", Reason: "Redacted User certificate must not contain a human_handle field."}
	}
	if !redactedUser.Equal(user.Redacted()) {
		return nil, nil, &CertificateValidationError{Status: "invalid_data", Reason: "Redacted User certificate differs from User certificate."}
	}
	if redactedDevice.DeviceLabel != nil {
		return nil, nil, &CertificateValidationError{Status: "invalid_data", Reason: "Redacted Device certificate must not contain a device_label field."}
	}
	if !redactedDevice.Equal(device.Redacted()) {
		return nil, nil, &CertificateValidationError{Status: "invalid_data", Reason: "Redacted Device certificate differs from Device certificate."}
	}

	return user, device, nil
}

// ValidateNewDeviceCertificate is the cross-check for adding a device
// to an existing user: the plain and redacted device certificates
// must agree, and the device must belong to expectedUser.
func ValidateNewDeviceCertificate(expectedAuthor Author, authorVerifyKey crypto.VerifyKey, expectedUser ref.UserID, deviceCertificate, redactedDeviceCertificate []byte) (*DeviceCertificate, error) {
	device, err := VerifyAndLoadDeviceCertificate(deviceCertificate, authorVerifyKey, &expectedAuthor, nil)
	if err != nil {
		return nil, &CertificateValidationError{Status: "invalid_certification", Reason: "Invalid device certificate: " + err.Error()}
	}
	redactedDevice, err := VerifyAndLoadDeviceCertificate(redactedDeviceCertificate, authorVerifyKey, &expectedAuthor, nil)
	if err != nil {
		return nil, &CertificateValidationError{Status: "invalid_certification", Reason: "Invalid redacted device certificate: " + err.Error()}
	}

	if device.DeviceID.UserID() != expectedUser {
		return nil, &CertificateValidationError{Status: "invalid_data", Reason: "Device certificate must target the invited user."}
	}
	if device.Timestamp != redactedDevice.Timestamp {
		return nil, &CertificateValidationError{Status: "invalid_data", Reason: "Redacted and plain Device certificates must have the same timestamp."}
	}
	if redactedDevice.DeviceLabel != nil {
		return nil, &CertificateValidationError{Status: "invalid_data", Reason: "Redacted Device certificate must not contain a device_label field."}
	}
	if !redactedDevice.Equal(device.Redacted()) {
		return nil, &CertificateValidationError{Status: "invalid_data", Reason: "Redacted Device certificate differs from Device certificate."}
	}
	return device, nil
}
