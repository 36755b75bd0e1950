// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package data

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/parsec-foundation/parsec/lib/ref"
)

// Author identifies who signed a certificate: either a device of the
// organization or, during bootstrap only, the organization root key.
// On the wire the root author is CBOR null and a device author is its
// DeviceID string.
type Author struct {
	device ref.DeviceID
}

// RootAuthor is the organization root key author.
func RootAuthor() Author { return Author{} }

// DeviceAuthor wraps a device as a certificate author.
func DeviceAuthor(device ref.DeviceID) Author {
	return Author{device: device}
}

// IsRoot reports whether the author is the organization root key.
func (a Author) IsRoot() bool { return a.device.IsZero() }

// DeviceID returns the signing device. Panics for the root author;
// check IsRoot first.
func (a Author) DeviceID() ref.DeviceID {
	if a.IsRoot() {
		panic("Author.DeviceID called on root author")
	}
	return a.device
}

// String renders the device ID, or "root key" for the root author.
func (a Author) String() string {
	if a.IsRoot() {
		return "root key"
	}
	return a.device.String()
}

// MarshalCBOR implements cbor.Marshaler: null for root, the device ID
// text for devices.
func (a Author) MarshalCBOR() ([]byte, error) {
	if a.IsRoot() {
		return cbor.Marshal(nil)
	}
	return cbor.Marshal(a.device.String())
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (a *Author) UnmarshalCBOR(data []byte) error {
	var raw *string
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid author encoding: %w", err)
	}
	if raw == nil {
		*a = Author{}
		return nil
	}
	device, err := ref.ParseDeviceID(*raw)
	if err != nil {
		return err
	}
	*a = Author{device: device}
	return nil
}
