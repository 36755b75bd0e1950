// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// ErrMalformed reports bytes that are not a well-formed encoding.
// Schema-level problems (missing field, wrong type, bad constant) are
// reported by the data layer, not here.
var ErrMalformed = errors.New("codec: malformed encoding")

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. Same logical data always
// produces identical bytes.
var encMode cbor.EncMode

// decMode is the CBOR decoder. Unknown fields are silently ignored for
// forward compatibility; missing required fields are the caller's
// responsibility to detect after decoding.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Types implementing encoding.TextMarshaler (ref.UserID,
	// ref.DeviceID, ref.EntryName, etc.) serialize as CBOR text
	// strings via MarshalText. Without this, identifier types backed
	// by unexported data would serialize as empty CBOR maps.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Parsec never uses non-string map keys on the wire. When the
		// decoder's target is any (e.g., probing an unknown payload),
		// it must pick a concrete Go map type; map[string]any is what
		// the rest of the code expects.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// Mirror of the TextMarshaler setting above for round-trip
		// correctness of identifier types.
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes data into v. Trailing bytes after the first data
// item are rejected.
func Unmarshal(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// RawMessage is a raw encoded CBOR value. It can be used to delay
// decoding of a payload or to splice pre-encoded output.
type RawMessage = cbor.RawMessage

// typeProbe matches only the "type" discriminator of a polymorphic
// payload, leaving the rest undecoded.
type typeProbe struct {
	Type string `cbor:"type"`
}

// ProbeType returns the string "type" discriminator of an encoded map.
// An empty string means the payload carries no discriminator.
func ProbeType(data []byte) (string, error) {
	var probe typeProbe
	if err := decMode.Unmarshal(data, &probe); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return probe.Type, nil
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for the
// entire contents of data. Used by parsec-inspect for operator-facing
// dumps of opaque payloads.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
