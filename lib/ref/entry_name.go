// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// EntryName is a single filesystem entry name inside a workspace: the
// key of folder and workspace manifest children maps. Non-empty, at
// most 255 UTF-8 bytes, no '/' or NUL, and never "." or "..". Those
// rules make every EntryName safe to hand to a mountpoint without
// further escaping.
type EntryName struct {
	name string
}

// ParseEntryName validates and wraps a raw entry name string.
func ParseEntryName(raw string) (EntryName, error) {
	if raw == "" {
		return EntryName{}, fmt.Errorf("entry name is empty")
	}
	if len(raw) > maxLabelLength {
		return EntryName{}, fmt.Errorf("entry name is %d bytes, maximum is %d", len(raw), maxLabelLength)
	}
	if strings.ContainsAny(raw, "/\x00") {
		return EntryName{}, fmt.Errorf("entry name %q contains '/' or NUL", raw)
	}
	if raw == "." || raw == ".." {
		return EntryName{}, fmt.Errorf("entry name %q is reserved", raw)
	}
	return EntryName{name: raw}, nil
}

// String returns the entry name string.
func (e EntryName) String() string { return e.name }

// IsZero reports whether the EntryName is the zero value.
func (e EntryName) IsZero() bool { return e.name == "" }

// MarshalText implements encoding.TextMarshaler.
func (e EntryName) MarshalText() ([]byte, error) {
	return []byte(e.name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unlike the other
// identifier types an empty input is rejected: entry names appear as
// map keys, where an unset value has no meaning.
func (e *EntryName) UnmarshalText(data []byte) error {
	parsed, err := ParseEntryName(string(data))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
