// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// The resource identifiers below all wrap a UUIDv4 but are distinct
// nominal types: an EntryID is never a BlockID even though both are 16
// random bytes. Each serializes as 32 lowercase hex characters;
// constructors also accept the dashed canonical form and raw 16-byte
// slices.

// parseHexUUID decodes a 32-hex-character or dashed canonical UUID.
func parseHexUUID(raw, label string) (uuid.UUID, error) {
	cleaned := strings.ReplaceAll(raw, "-", "")
	decoded, err := hex.DecodeString(cleaned)
	if err != nil || len(decoded) != 16 {
		return uuid.Nil, fmt.Errorf("invalid %s %q: expected 32 hex characters", label, raw)
	}
	id, err := uuid.FromBytes(decoded)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q: %w", label, raw, err)
	}
	return id, nil
}

// uuidFromBytes wraps a raw 16-byte identifier.
func uuidFromBytes(raw []byte, label string) (uuid.UUID, error) {
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", label, err)
	}
	return id, nil
}

// uuidHex renders the compact 32-character lowercase form.
func uuidHex(id uuid.UUID) string {
	return hex.EncodeToString(id[:])
}

// EntryID identifies a manifest entry (file, folder, workspace or user
// manifest). The workspace's EntryID doubles as the realm's VlobID
// namespace root.
type EntryID struct {
	id uuid.UUID
}

// NewEntryID generates a random EntryID.
func NewEntryID() EntryID { return EntryID{id: uuid.New()} }

// ParseEntryID decodes a hex-encoded EntryID.
func ParseEntryID(raw string) (EntryID, error) {
	id, err := parseHexUUID(raw, "entry ID")
	if err != nil {
		return EntryID{}, err
	}
	return EntryID{id: id}, nil
}

// EntryIDFromBytes wraps raw 16 bytes as an EntryID.
func EntryIDFromBytes(raw []byte) (EntryID, error) {
	id, err := uuidFromBytes(raw, "entry ID")
	if err != nil {
		return EntryID{}, err
	}
	return EntryID{id: id}, nil
}

// String returns the 32-character hex form.
func (e EntryID) String() string { return uuidHex(e.id) }

// IsZero reports whether the EntryID is the zero value.
func (e EntryID) IsZero() bool { return e.id == uuid.Nil }

// Bytes returns the raw 16-byte form.
func (e EntryID) Bytes() []byte { return e.id[:] }

// MarshalText implements encoding.TextMarshaler.
func (e EntryID) MarshalText() ([]byte, error) {
	return []byte(uuidHex(e.id)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *EntryID) UnmarshalText(data []byte) error {
	parsed, err := ParseEntryID(string(data))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// RealmID identifies a realm, the server-side access-control unit that
// stores one workspace's vlobs and blocks. By construction a
// workspace's RealmID has the same bytes as its root EntryID.
type RealmID struct {
	id uuid.UUID
}

// NewRealmID generates a random RealmID.
func NewRealmID() RealmID { return RealmID{id: uuid.New()} }

// ParseRealmID decodes a hex-encoded RealmID.
func ParseRealmID(raw string) (RealmID, error) {
	id, err := parseHexUUID(raw, "realm ID")
	if err != nil {
		return RealmID{}, err
	}
	return RealmID{id: id}, nil
}

// RealmIDFromBytes wraps raw 16 bytes as a RealmID.
func RealmIDFromBytes(raw []byte) (RealmID, error) {
	id, err := uuidFromBytes(raw, "realm ID")
	if err != nil {
		return RealmID{}, err
	}
	return RealmID{id: id}, nil
}

// RealmIDFromEntryID reinterprets a workspace root EntryID as the
// realm that stores it.
func RealmIDFromEntryID(entry EntryID) RealmID {
	return RealmID{id: entry.id}
}

// String returns the 32-character hex form.
func (r RealmID) String() string { return uuidHex(r.id) }

// IsZero reports whether the RealmID is the zero value.
func (r RealmID) IsZero() bool { return r.id == uuid.Nil }

// Bytes returns the raw 16-byte form.
func (r RealmID) Bytes() []byte { return r.id[:] }

// MarshalText implements encoding.TextMarshaler.
func (r RealmID) MarshalText() ([]byte, error) {
	return []byte(uuidHex(r.id)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RealmID) UnmarshalText(data []byte) error {
	parsed, err := ParseRealmID(string(data))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// VlobID identifies a versioned encrypted blob stored in a realm. A
// manifest's VlobID has the same bytes as its EntryID.
type VlobID struct {
	id uuid.UUID
}

// NewVlobID generates a random VlobID.
func NewVlobID() VlobID { return VlobID{id: uuid.New()} }

// ParseVlobID decodes a hex-encoded VlobID.
func ParseVlobID(raw string) (VlobID, error) {
	id, err := parseHexUUID(raw, "vlob ID")
	if err != nil {
		return VlobID{}, err
	}
	return VlobID{id: id}, nil
}

// VlobIDFromBytes wraps raw 16 bytes as a VlobID.
func VlobIDFromBytes(raw []byte) (VlobID, error) {
	id, err := uuidFromBytes(raw, "vlob ID")
	if err != nil {
		return VlobID{}, err
	}
	return VlobID{id: id}, nil
}

// VlobIDFromEntryID reinterprets an EntryID as the vlob that stores
// its manifest.
func VlobIDFromEntryID(entry EntryID) VlobID {
	return VlobID{id: entry.id}
}

// String returns the 32-character hex form.
func (v VlobID) String() string { return uuidHex(v.id) }

// IsZero reports whether the VlobID is the zero value.
func (v VlobID) IsZero() bool { return v.id == uuid.Nil }

// Bytes returns the raw 16-byte form.
func (v VlobID) Bytes() []byte { return v.id[:] }

// MarshalText implements encoding.TextMarshaler.
func (v VlobID) MarshalText() ([]byte, error) {
	return []byte(uuidHex(v.id)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *VlobID) UnmarshalText(data []byte) error {
	parsed, err := ParseVlobID(string(data))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// BlockID identifies an immutable encrypted file block stored in a
// realm.
type BlockID struct {
	id uuid.UUID
}

// NewBlockID generates a random BlockID.
func NewBlockID() BlockID { return BlockID{id: uuid.New()} }

// ParseBlockID decodes a hex-encoded BlockID.
func ParseBlockID(raw string) (BlockID, error) {
	id, err := parseHexUUID(raw, "block ID")
	if err != nil {
		return BlockID{}, err
	}
	return BlockID{id: id}, nil
}

// BlockIDFromBytes wraps raw 16 bytes as a BlockID.
func BlockIDFromBytes(raw []byte) (BlockID, error) {
	id, err := uuidFromBytes(raw, "block ID")
	if err != nil {
		return BlockID{}, err
	}
	return BlockID{id: id}, nil
}

// String returns the 32-character hex form.
func (b BlockID) String() string { return uuidHex(b.id) }

// IsZero reports whether the BlockID is the zero value.
func (b BlockID) IsZero() bool { return b.id == uuid.Nil }

// Bytes returns the raw 16-byte form.
func (b BlockID) Bytes() []byte { return b.id[:] }

// MarshalText implements encoding.TextMarshaler.
func (b BlockID) MarshalText() ([]byte, error) {
	return []byte(uuidHex(b.id)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *BlockID) UnmarshalText(data []byte) error {
	parsed, err := ParseBlockID(string(data))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ChunkID identifies a local, not-yet-synchronized piece of file data.
// When a chunk is uploaded its ID is reused as the BlockID.
type ChunkID struct {
	id uuid.UUID
}

// NewChunkID generates a random ChunkID.
func NewChunkID() ChunkID { return ChunkID{id: uuid.New()} }

// ParseChunkID decodes a hex-encoded ChunkID.
func ParseChunkID(raw string) (ChunkID, error) {
	id, err := parseHexUUID(raw, "chunk ID")
	if err != nil {
		return ChunkID{}, err
	}
	return ChunkID{id: id}, nil
}

// ChunkIDFromBytes wraps raw 16 bytes as a ChunkID.
func ChunkIDFromBytes(raw []byte) (ChunkID, error) {
	id, err := uuidFromBytes(raw, "chunk ID")
	if err != nil {
		return ChunkID{}, err
	}
	return ChunkID{id: id}, nil
}

// ChunkIDFromBlockID reinterprets an uploaded block's ID as a local
// chunk ID.
func ChunkIDFromBlockID(block BlockID) ChunkID {
	return ChunkID{id: block.id}
}

// BlockID reinterprets the chunk ID as the block it becomes once
// uploaded.
func (c ChunkID) BlockID() BlockID { return BlockID{id: c.id} }

// String returns the 32-character hex form.
func (c ChunkID) String() string { return uuidHex(c.id) }

// IsZero reports whether the ChunkID is the zero value.
func (c ChunkID) IsZero() bool { return c.id == uuid.Nil }

// Bytes returns the raw 16-byte form.
func (c ChunkID) Bytes() []byte { return c.id[:] }

// MarshalText implements encoding.TextMarshaler.
func (c ChunkID) MarshalText() ([]byte, error) {
	return []byte(uuidHex(c.id)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ChunkID) UnmarshalText(data []byte) error {
	parsed, err := ParseChunkID(string(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// InvitationToken is the secret identifier of a pending user or device
// invitation. It travels in invitation URLs and is the bearer
// credential for the invited handshake.
type InvitationToken struct {
	id uuid.UUID
}

// NewInvitationToken generates a random InvitationToken.
func NewInvitationToken() InvitationToken { return InvitationToken{id: uuid.New()} }

// ParseInvitationToken decodes a hex-encoded InvitationToken.
func ParseInvitationToken(raw string) (InvitationToken, error) {
	id, err := parseHexUUID(raw, "invitation token")
	if err != nil {
		return InvitationToken{}, err
	}
	return InvitationToken{id: id}, nil
}

// InvitationTokenFromBytes wraps raw 16 bytes as an InvitationToken.
func InvitationTokenFromBytes(raw []byte) (InvitationToken, error) {
	id, err := uuidFromBytes(raw, "invitation token")
	if err != nil {
		return InvitationToken{}, err
	}
	return InvitationToken{id: id}, nil
}

// String returns the 32-character hex form.
func (t InvitationToken) String() string { return uuidHex(t.id) }

// IsZero reports whether the InvitationToken is the zero value.
func (t InvitationToken) IsZero() bool { return t.id == uuid.Nil }

// Bytes returns the raw 16-byte form.
func (t InvitationToken) Bytes() []byte { return t.id[:] }

// MarshalText implements encoding.TextMarshaler.
func (t InvitationToken) MarshalText() ([]byte, error) {
	return []byte(uuidHex(t.id)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *InvitationToken) UnmarshalText(data []byte) error {
	parsed, err := ParseInvitationToken(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// SequesterServiceID identifies a sequester service registered with an
// organization's sequester authority.
type SequesterServiceID struct {
	id uuid.UUID
}

// NewSequesterServiceID generates a random SequesterServiceID.
func NewSequesterServiceID() SequesterServiceID { return SequesterServiceID{id: uuid.New()} }

// ParseSequesterServiceID decodes a hex-encoded SequesterServiceID.
func ParseSequesterServiceID(raw string) (SequesterServiceID, error) {
	id, err := parseHexUUID(raw, "sequester service ID")
	if err != nil {
		return SequesterServiceID{}, err
	}
	return SequesterServiceID{id: id}, nil
}

// SequesterServiceIDFromBytes wraps raw 16 bytes as a
// SequesterServiceID.
func SequesterServiceIDFromBytes(raw []byte) (SequesterServiceID, error) {
	id, err := uuidFromBytes(raw, "sequester service ID")
	if err != nil {
		return SequesterServiceID{}, err
	}
	return SequesterServiceID{id: id}, nil
}

// String returns the 32-character hex form.
func (s SequesterServiceID) String() string { return uuidHex(s.id) }

// IsZero reports whether the SequesterServiceID is the zero value.
func (s SequesterServiceID) IsZero() bool { return s.id == uuid.Nil }

// Bytes returns the raw 16-byte form.
func (s SequesterServiceID) Bytes() []byte { return s.id[:] }

// MarshalText implements encoding.TextMarshaler.
func (s SequesterServiceID) MarshalText() ([]byte, error) {
	return []byte(uuidHex(s.id)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SequesterServiceID) UnmarshalText(data []byte) error {
	parsed, err := ParseSequesterServiceID(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// EnrollmentID identifies an in-progress PKI enrollment request.
type EnrollmentID struct {
	id uuid.UUID
}

// NewEnrollmentID generates a random EnrollmentID.
func NewEnrollmentID() EnrollmentID { return EnrollmentID{id: uuid.New()} }

// ParseEnrollmentID decodes a hex-encoded EnrollmentID.
func ParseEnrollmentID(raw string) (EnrollmentID, error) {
	id, err := parseHexUUID(raw, "enrollment ID")
	if err != nil {
		return EnrollmentID{}, err
	}
	return EnrollmentID{id: id}, nil
}

// EnrollmentIDFromBytes wraps raw 16 bytes as an EnrollmentID.
func EnrollmentIDFromBytes(raw []byte) (EnrollmentID, error) {
	id, err := uuidFromBytes(raw, "enrollment ID")
	if err != nil {
		return EnrollmentID{}, err
	}
	return EnrollmentID{id: id}, nil
}

// String returns the 32-character hex form.
func (e EnrollmentID) String() string { return uuidHex(e.id) }

// IsZero reports whether the EnrollmentID is the zero value.
func (e EnrollmentID) IsZero() bool { return e.id == uuid.Nil }

// Bytes returns the raw 16-byte form.
func (e EnrollmentID) Bytes() []byte { return e.id[:] }

// MarshalText implements encoding.TextMarshaler.
func (e EnrollmentID) MarshalText() ([]byte, error) {
	return []byte(uuidHex(e.id)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *EnrollmentID) UnmarshalText(data []byte) error {
	parsed, err := ParseEnrollmentID(string(data))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
