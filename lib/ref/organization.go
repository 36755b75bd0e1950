// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// OrganizationID names an organization on a Parsec server. 1 to 32
// bytes from [A-Za-z0-9_-].
//
// OrganizationID is an immutable value type. The zero value is not
// valid; use IsZero to check.
type OrganizationID struct {
	id string
}

// ParseOrganizationID validates and wraps a raw organization ID string.
func ParseOrganizationID(raw string) (OrganizationID, error) {
	if err := validateName(raw, "organization ID"); err != nil {
		return OrganizationID{}, err
	}
	return OrganizationID{id: raw}, nil
}

// String returns the organization ID string.
func (o OrganizationID) String() string { return o.id }

// IsZero reports whether the OrganizationID is the zero value.
func (o OrganizationID) IsZero() bool { return o.id == "" }

// MarshalText implements encoding.TextMarshaler.
func (o OrganizationID) MarshalText() ([]byte, error) {
	return []byte(o.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value.
func (o *OrganizationID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*o = OrganizationID{}
		return nil
	}
	parsed, err := ParseOrganizationID(string(data))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
