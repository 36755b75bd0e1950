// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

const (
	// maxNameLength bounds OrganizationID, UserID and DeviceName.
	maxNameLength = 32

	// maxDeviceIDLength bounds the combined "<user>@<device>" form.
	maxDeviceIDLength = 65

	// maxLabelLength bounds DeviceLabel and EntryName.
	maxLabelLength = 255

	// maxEmailLength follows the RFC 5321 limit on address length. The
	// HumanHandle display label shares the same bound.
	maxEmailLength = 254
)

// nameChars is the set of bytes permitted in OrganizationID, UserID and
// DeviceName: A-Z, a-z, 0-9, underscore and hyphen.
var nameChars [256]bool

func init() {
	for c := byte('a'); c <= 'z'; c++ {
		nameChars[c] = true
	}
	for c := byte('A'); c <= 'Z'; c++ {
		nameChars[c] = true
	}
	for c := byte('0'); c <= '9'; c++ {
		nameChars[c] = true
	}
	nameChars['_'] = true
	nameChars['-'] = true
}

// validateName enforces the shared rules for OrganizationID, UserID and
// DeviceName: 1 to 32 bytes from [A-Za-z0-9_-].
func validateName(value, label string) error {
	if value == "" {
		return fmt.Errorf("%s is empty", label)
	}
	if len(value) > maxNameLength {
		return fmt.Errorf("%s %q is %d bytes, maximum is %d", label, value, len(value), maxNameLength)
	}
	for i := 0; i < len(value); i++ {
		if !nameChars[value[i]] {
			return fmt.Errorf("%s %q: invalid character at position %d (allowed: A-Z, a-z, 0-9, _, -)", label, value, i)
		}
	}
	return nil
}

// validateLabel enforces the free-form label rules shared by
// DeviceLabel and the HumanHandle display label: 1 to 255 UTF-8 bytes.
func validateLabel(value, label string) error {
	if value == "" {
		return fmt.Errorf("%s is empty", label)
	}
	if len(value) > maxLabelLength {
		return fmt.Errorf("%s is %d bytes, maximum is %d", label, len(value), maxLabelLength)
	}
	return nil
}
