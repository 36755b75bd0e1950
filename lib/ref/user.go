// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// UserID names a user within an organization. 1 to 32 bytes from
// [A-Za-z0-9_-]. User IDs are unique per organization and survive
// device turnover; a user's devices are addressed by DeviceID.
//
// UserID is an immutable value type. The zero value is not valid; use
// IsZero to check.
type UserID struct {
	id string
}

// ParseUserID validates and wraps a raw user ID string.
func ParseUserID(raw string) (UserID, error) {
	if err := validateName(raw, "user ID"); err != nil {
		return UserID{}, err
	}
	return UserID{id: raw}, nil
}

// String returns the user ID string.
func (u UserID) String() string { return u.id }

// IsZero reports whether the UserID is the zero value.
func (u UserID) IsZero() bool { return u.id == "" }

// MarshalText implements encoding.TextMarshaler.
func (u UserID) MarshalText() ([]byte, error) {
	return []byte(u.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value.
func (u *UserID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*u = UserID{}
		return nil
	}
	parsed, err := ParseUserID(string(data))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
