// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// DateTime is a UTC instant with microsecond resolution. Every signed
// payload carries at least one DateTime, so the type is deliberately
// lossy: sub-microsecond precision is discarded at construction, which
// guarantees that a value re-encodes to the exact bytes it was signed
// with.
//
// On the wire a DateTime is a 2-element CBOR array
// [seconds int64, microseconds uint32] relative to the Unix epoch.
type DateTime struct {
	secs   int64
	micros uint32
}

// microsPerSecond is the exclusive upper bound of the fraction field.
const microsPerSecond = 1_000_000

// NewDateTime builds a DateTime from epoch seconds and a microsecond
// fraction. The fraction must be below one second.
func NewDateTime(secs int64, micros uint32) (DateTime, error) {
	if micros >= microsPerSecond {
		return DateTime{}, fmt.Errorf("microsecond fraction %d out of range [0, %d)", micros, microsPerSecond)
	}
	return DateTime{secs: secs, micros: micros}, nil
}

// FromTime converts a time.Time, truncating to microsecond precision.
func FromTime(t time.Time) DateTime {
	t = t.UTC()
	return DateTime{secs: t.Unix(), micros: uint32(t.Nanosecond() / 1000)}
}

// ParseDateTime parses an RFC 3339 timestamp with optional fractional
// seconds, e.g. "2000-01-02T00:00:00+00:00". This is the inverse of
// String.
func ParseDateTime(raw string) (DateTime, error) {
	t, err := time.Parse("2006-01-02T15:04:05-07:00", raw)
	if err != nil {
		return DateTime{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	return FromTime(t), nil
}

// Time returns the instant as a time.Time in UTC.
func (t DateTime) Time() time.Time {
	return time.Unix(t.secs, int64(t.micros)*1000).UTC()
}

// Add returns the instant shifted by d, truncated to microseconds.
func (t DateTime) Add(d time.Duration) DateTime {
	return FromTime(t.Time().Add(d))
}

// Sub returns the duration t - other.
func (t DateTime) Sub(other DateTime) time.Duration {
	return t.Time().Sub(other.Time())
}

// Before reports whether t is strictly earlier than other.
func (t DateTime) Before(other DateTime) bool {
	if t.secs != other.secs {
		return t.secs < other.secs
	}
	return t.micros < other.micros
}

// After reports whether t is strictly later than other.
func (t DateTime) After(other DateTime) bool {
	return other.Before(t)
}

// Equal reports whether the two instants are identical. DateTime is
// comparable, so == works too; Equal exists for symmetry with Before
// and After.
func (t DateTime) Equal(other DateTime) bool {
	return t == other
}

// IsZero reports whether the DateTime is the zero value. The epoch
// itself never appears in Parsec data, so the zero value doubles as
// "unset".
func (t DateTime) IsZero() bool {
	return t.secs == 0 && t.micros == 0
}

// String renders the instant as RFC 3339 with an explicit +00:00
// offset. The microsecond fraction is printed with all six digits when
// non-zero and omitted entirely when zero.
func (t DateTime) String() string {
	base := time.Unix(t.secs, 0).UTC().Format("2006-01-02T15:04:05")
	if t.micros != 0 {
		return fmt.Sprintf("%s.%06d+00:00", base, t.micros)
	}
	return base + "+00:00"
}

// dateTimeWire is the CBOR shape: a fixed 2-element array.
type dateTimeWire struct {
	_      struct{} `cbor:",toarray"`
	Secs   int64
	Micros uint32
}

// MarshalCBOR implements cbor.Marshaler.
func (t DateTime) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(dateTimeWire{Secs: t.secs, Micros: t.micros})
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (t *DateTime) UnmarshalCBOR(data []byte) error {
	var wire dateTimeWire
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("invalid timestamp encoding: %w", err)
	}
	parsed, err := NewDateTime(wire.Secs, wire.Micros)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
