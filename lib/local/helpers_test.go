// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"testing"

	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/data"
	"github.com/parsec-foundation/parsec/lib/ref"
)

func mustDeviceID(t *testing.T, raw string) ref.DeviceID {
	t.Helper()
	id, err := ref.ParseDeviceID(raw)
	if err != nil {
		t.Fatalf("ParseDeviceID(%q): %v", raw, err)
	}
	return id
}

func mustDateTime(t *testing.T, raw string) ref.DateTime {
	t.Helper()
	timestamp, err := ref.ParseDateTime(raw)
	if err != nil {
		t.Fatalf("ParseDateTime(%q): %v", raw, err)
	}
	return timestamp
}

func mustEntryName(t *testing.T, raw string) ref.EntryName {
	t.Helper()
	name, err := ref.ParseEntryName(raw)
	if err != nil {
		t.Fatalf("ParseEntryName(%q): %v", raw, err)
	}
	return name
}

func mustSecretKey(t *testing.T) crypto.SecretKey {
	t.Helper()
	key, err := crypto.NewSecretKey()
	if err != nil {
		t.Fatalf("NewSecretKey: %v", err)
	}
	return key
}

func testBlockAccess(t *testing.T, offset, size uint64) data.BlockAccess {
	t.Helper()
	return data.BlockAccess{
		ID:     ref.NewBlockID(),
		Key:    mustSecretKey(t),
		Offset: offset,
		Size:   size,
		Digest: crypto.HashData([]byte("content")),
	}
}

func entryIDPtr(id ref.EntryID) *ref.EntryID { return &id }
