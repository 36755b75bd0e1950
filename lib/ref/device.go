// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// DeviceName names one device of a user. 1 to 32 bytes from
// [A-Za-z0-9_-]. Device names are unique per user, not per
// organization; the globally unique form is DeviceID.
type DeviceName struct {
	name string
}

// ParseDeviceName validates and wraps a raw device name string.
func ParseDeviceName(raw string) (DeviceName, error) {
	if err := validateName(raw, "device name"); err != nil {
		return DeviceName{}, err
	}
	return DeviceName{name: raw}, nil
}

// String returns the device name string.
func (d DeviceName) String() string { return d.name }

// IsZero reports whether the DeviceName is the zero value.
func (d DeviceName) IsZero() bool { return d.name == "" }

// MarshalText implements encoding.TextMarshaler.
func (d DeviceName) MarshalText() ([]byte, error) {
	return []byte(d.name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value.
func (d *DeviceName) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*d = DeviceName{}
		return nil
	}
	parsed, err := ParseDeviceName(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DeviceID addresses one device globally within an organization:
// "<user_id>@<device_name>", at most 65 bytes total. It is the author
// field of every certificate and manifest.
//
// DeviceID is an immutable value type. The zero value is not valid;
// use IsZero to check.
type DeviceID struct {
	id string
}

// ParseDeviceID validates and wraps a raw "<user>@<device>" string.
func ParseDeviceID(raw string) (DeviceID, error) {
	if len(raw) > maxDeviceIDLength {
		return DeviceID{}, fmt.Errorf("device ID is %d bytes, maximum is %d", len(raw), maxDeviceIDLength)
	}
	user, device, found := strings.Cut(raw, "@")
	if !found {
		return DeviceID{}, fmt.Errorf("device ID %q: missing '@' separator", raw)
	}
	if err := validateName(user, "user ID"); err != nil {
		return DeviceID{}, fmt.Errorf("device ID %q: %w", raw, err)
	}
	if err := validateName(device, "device name"); err != nil {
		return DeviceID{}, fmt.Errorf("device ID %q: %w", raw, err)
	}
	return DeviceID{id: raw}, nil
}

// NewDeviceID combines a user ID and device name. Both parts are
// already validated, so the only failure mode is the combined length
// bound.
func NewDeviceID(user UserID, device DeviceName) (DeviceID, error) {
	combined := user.id + "@" + device.name
	if len(combined) > maxDeviceIDLength {
		return DeviceID{}, fmt.Errorf("device ID %q is %d bytes, maximum is %d", combined, len(combined), maxDeviceIDLength)
	}
	return DeviceID{id: combined}, nil
}

// String returns the full "<user>@<device>" string.
func (d DeviceID) String() string { return d.id }

// IsZero reports whether the DeviceID is the zero value.
func (d DeviceID) IsZero() bool { return d.id == "" }

// UserID returns the user portion of the device ID. Panics on the zero
// value.
func (d DeviceID) UserID() UserID {
	if d.id == "" {
		panic("DeviceID.UserID called on zero value")
	}
	user, _, _ := strings.Cut(d.id, "@")
	return UserID{id: user}
}

// DeviceName returns the device portion of the device ID. Panics on
// the zero value.
func (d DeviceID) DeviceName() DeviceName {
	if d.id == "" {
		panic("DeviceID.DeviceName called on zero value")
	}
	_, device, _ := strings.Cut(d.id, "@")
	return DeviceName{name: device}
}

// MarshalText implements encoding.TextMarshaler.
func (d DeviceID) MarshalText() ([]byte, error) {
	return []byte(d.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value.
func (d *DeviceID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*d = DeviceID{}
		return nil
	}
	parsed, err := ParseDeviceID(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DeviceLabel is the human-chosen display name of a device ("Alice's
// laptop"). Free-form, 1 to 255 UTF-8 bytes. Unlike DeviceName it is
// PII and is nulled in redacted certificates.
type DeviceLabel struct {
	label string
}

// ParseDeviceLabel validates and wraps a raw device label string.
func ParseDeviceLabel(raw string) (DeviceLabel, error) {
	if err := validateLabel(raw, "device label"); err != nil {
		return DeviceLabel{}, err
	}
	return DeviceLabel{label: raw}, nil
}

// String returns the label string.
func (d DeviceLabel) String() string { return d.label }

// IsZero reports whether the DeviceLabel is the zero value.
func (d DeviceLabel) IsZero() bool { return d.label == "" }

// MarshalText implements encoding.TextMarshaler.
func (d DeviceLabel) MarshalText() ([]byte, error) {
	return []byte(d.label), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value.
func (d *DeviceLabel) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*d = DeviceLabel{}
		return nil
	}
	parsed, err := ParseDeviceLabel(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
