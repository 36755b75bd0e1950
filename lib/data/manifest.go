// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package data

import (
	"fmt"

	"github.com/parsec-foundation/parsec/lib/codec"
	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/ref"
)

// Type discriminators carried by remote manifest payloads.
const (
	typeFileManifest      = "file_manifest"
	typeFolderManifest    = "folder_manifest"
	typeWorkspaceManifest = "workspace_manifest"
	typeUserManifest      = "user_manifest"
)

// MinBlocksize is the smallest accepted file manifest blocksize.
const MinBlocksize = 8

// ManifestMeta holds the fields shared by every remote manifest.
// Remote manifests are immutable per (ID, Version); a change always
// produces Version+1.
type ManifestMeta struct {
	Author    ref.DeviceID
	Timestamp ref.DateTime
	ID        ref.EntryID
	Version   uint32
	Created   ref.DateTime
	Updated   ref.DateTime
}

func (m ManifestMeta) validate() error {
	if m.Author.IsZero() || m.ID.IsZero() || m.Timestamp.IsZero() {
		return fmt.Errorf("%w: manifest missing author, id or timestamp", ErrInvalidData)
	}
	if m.Version < 1 {
		return fmt.Errorf("%w: manifest version must be >= 1", ErrInvalidData)
	}
	return nil
}

// Manifest is any remote manifest: file, folder, workspace or user.
type Manifest interface {
	// Meta returns the shared header fields.
	Meta() ManifestMeta

	// DumpSignAndEncrypt serializes the manifest into envelope E2:
	// encrypted with the workspace (or user) key, signed by the
	// author's device.
	DumpSignAndEncrypt(author crypto.SigningKey, key crypto.SecretKey) ([]byte, error)
}

// BlockAccess locates one encrypted block of a file and carries what
// is needed to fetch, decrypt and check it.
type BlockAccess struct {
	ID     ref.BlockID
	Key    crypto.SecretKey
	Offset uint64
	Size   uint64
	Digest crypto.HashDigest
}

type blockAccessWire struct {
	ID     ref.BlockID `cbor:"id"`
	Key    []byte      `cbor:"key"`
	Offset uint64      `cbor:"offset"`
	Size   uint64      `cbor:"size"`
	Digest []byte      `cbor:"digest"`
}

func (b BlockAccess) toWire() blockAccessWire {
	return blockAccessWire{
		ID:     b.ID,
		Key:    b.Key.Bytes(),
		Offset: b.Offset,
		Size:   b.Size,
		Digest: b.Digest.Bytes(),
	}
}

// MarshalCBOR encodes the access as its wire map so it can nest
// inside local payloads.
func (b BlockAccess) MarshalCBOR() ([]byte, error) {
	wire := b.toWire()
	return codec.Marshal(&wire)
}

// UnmarshalCBOR decodes the wire map produced by MarshalCBOR.
func (b *BlockAccess) UnmarshalCBOR(raw []byte) error {
	var wire blockAccessWire
	if err := codec.Unmarshal(raw, &wire); err != nil {
		return err
	}
	decoded, err := wire.toAccess()
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

func (w blockAccessWire) toAccess() (BlockAccess, error) {
	if w.ID.IsZero() {
		return BlockAccess{}, fmt.Errorf("%w: block access missing id", ErrInvalidData)
	}
	if w.Size == 0 {
		return BlockAccess{}, fmt.Errorf("%w: block access size must be > 0", ErrInvalidData)
	}
	key, err := crypto.SecretKeyFromBytes(w.Key)
	if err != nil {
		return BlockAccess{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	digest, err := crypto.HashDigestFromBytes(w.Digest)
	if err != nil {
		return BlockAccess{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return BlockAccess{ID: w.ID, Key: key, Offset: w.Offset, Size: w.Size, Digest: digest}, nil
}

// FileManifest is the server-stored description of a file: its size
// and the ordered list of encrypted blocks composing it.
type FileManifest struct {
	ManifestMeta
	Parent    ref.EntryID
	Size      uint64
	Blocksize uint64
	Blocks    []BlockAccess
}

type fileManifestWire struct {
	Type      string            `cbor:"type"`
	Author    ref.DeviceID      `cbor:"author"`
	Timestamp ref.DateTime      `cbor:"timestamp"`
	ID        ref.EntryID       `cbor:"id"`
	Version   uint32            `cbor:"version"`
	Created   ref.DateTime      `cbor:"created"`
	Updated   ref.DateTime      `cbor:"updated"`
	Parent    ref.EntryID       `cbor:"parent"`
	Size      uint64            `cbor:"size"`
	Blocksize uint64            `cbor:"blocksize"`
	Blocks    []blockAccessWire `cbor:"blocks"`
}

// Meta implements Manifest.
func (m *FileManifest) Meta() ManifestMeta { return m.ManifestMeta }

// Validate checks the file manifest invariants: blocksize bound,
// blocks sorted and aligned, sizes summing to Size.
func (m *FileManifest) Validate() error {
	if err := m.ManifestMeta.validate(); err != nil {
		return err
	}
	if m.Parent.IsZero() {
		return fmt.Errorf("%w: file manifest missing parent", ErrInvalidData)
	}
	if m.Blocksize < MinBlocksize {
		return fmt.Errorf("%w: blocksize %d is below the minimum %d", ErrInvalidData, m.Blocksize, MinBlocksize)
	}
	var total uint64
	for i, block := range m.Blocks {
		if block.Offset%m.Blocksize != 0 {
			return fmt.Errorf("%w: block %d offset %d is not a multiple of blocksize %d", ErrInvalidData, i, block.Offset, m.Blocksize)
		}
		if i > 0 && block.Offset <= m.Blocks[i-1].Offset {
			return fmt.Errorf("%w: blocks are not sorted by offset", ErrInvalidData)
		}
		total += block.Size
	}
	if total != m.Size {
		return fmt.Errorf("%w: block sizes sum to %d, manifest size is %d", ErrInvalidData, total, m.Size)
	}
	return nil
}

// DumpSignAndEncrypt implements Manifest.
func (m *FileManifest) DumpSignAndEncrypt(author crypto.SigningKey, key crypto.SecretKey) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	wire := fileManifestWire{
		Type:      typeFileManifest,
		Author:    m.Author,
		Timestamp: m.Timestamp,
		ID:        m.ID,
		Version:   m.Version,
		Created:   m.Created,
		Updated:   m.Updated,
		Parent:    m.Parent,
		Size:      m.Size,
		Blocksize: m.Blocksize,
		Blocks:    make([]blockAccessWire, 0, len(m.Blocks)),
	}
	for _, block := range m.Blocks {
		wire.Blocks = append(wire.Blocks, block.toWire())
	}
	return signAndEncrypt(author, key, &wire)
}

// MarshalCBOR encodes the manifest as its wire map. It exists so a
// remote manifest can nest inside another payload (a local manifest's
// base). Unlike DumpSignAndEncrypt it does not validate: a placeholder
// base with version 0 must round-trip.
func (m FileManifest) MarshalCBOR() ([]byte, error) {
	wire := fileManifestWire{
		Type:      typeFileManifest,
		Author:    m.Author,
		Timestamp: m.Timestamp,
		ID:        m.ID,
		Version:   m.Version,
		Created:   m.Created,
		Updated:   m.Updated,
		Parent:    m.Parent,
		Size:      m.Size,
		Blocksize: m.Blocksize,
		Blocks:    make([]blockAccessWire, 0, len(m.Blocks)),
	}
	for _, block := range m.Blocks {
		wire.Blocks = append(wire.Blocks, block.toWire())
	}
	return codec.Marshal(&wire)
}

// UnmarshalCBOR decodes the wire map produced by MarshalCBOR.
func (m *FileManifest) UnmarshalCBOR(raw []byte) error {
	var wire fileManifestWire
	if err := codec.Unmarshal(raw, &wire); err != nil {
		return err
	}
	if err := checkType(wire.Type, typeFileManifest); err != nil {
		return err
	}
	decoded := FileManifest{
		ManifestMeta: ManifestMeta{
			Author:    wire.Author,
			Timestamp: wire.Timestamp,
			ID:        wire.ID,
			Version:   wire.Version,
			Created:   wire.Created,
			Updated:   wire.Updated,
		},
		Parent:    wire.Parent,
		Size:      wire.Size,
		Blocksize: wire.Blocksize,
		Blocks:    make([]BlockAccess, 0, len(wire.Blocks)),
	}
	for _, blockWire := range wire.Blocks {
		block, err := blockWire.toAccess()
		if err != nil {
			return err
		}
		decoded.Blocks = append(decoded.Blocks, block)
	}
	*m = decoded
	return nil
}

func (w *fileManifestWire) toManifest() (*FileManifest, error) {
	manifest := &FileManifest{
		ManifestMeta: ManifestMeta{
			Author:    w.Author,
			Timestamp: w.Timestamp,
			ID:        w.ID,
			Version:   w.Version,
			Created:   w.Created,
			Updated:   w.Updated,
		},
		Parent:    w.Parent,
		Size:      w.Size,
		Blocksize: w.Blocksize,
		Blocks:    make([]BlockAccess, 0, len(w.Blocks)),
	}
	for _, blockWire := range w.Blocks {
		block, err := blockWire.toAccess()
		if err != nil {
			return nil, err
		}
		manifest.Blocks = append(manifest.Blocks, block)
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

// FolderManifest is the server-stored description of a folder: a map
// from entry name to the child's entry ID.
type FolderManifest struct {
	ManifestMeta
	Parent   ref.EntryID
	Children map[ref.EntryName]ref.EntryID
}

type folderManifestWire struct {
	Type      string                        `cbor:"type"`
	Author    ref.DeviceID                  `cbor:"author"`
	Timestamp ref.DateTime                  `cbor:"timestamp"`
	ID        ref.EntryID                   `cbor:"id"`
	Version   uint32                        `cbor:"version"`
	Created   ref.DateTime                  `cbor:"created"`
	Updated   ref.DateTime                  `cbor:"updated"`
	Parent    ref.EntryID                   `cbor:"parent"`
	Children  map[ref.EntryName]ref.EntryID `cbor:"children"`
}

// Meta implements Manifest.
func (m *FolderManifest) Meta() ManifestMeta { return m.ManifestMeta }

// DumpSignAndEncrypt implements Manifest.
func (m *FolderManifest) DumpSignAndEncrypt(author crypto.SigningKey, key crypto.SecretKey) ([]byte, error) {
	if err := m.ManifestMeta.validate(); err != nil {
		return nil, err
	}
	if m.Parent.IsZero() {
		return nil, fmt.Errorf("%w: folder manifest missing parent", ErrInvalidData)
	}
	wire := folderManifestWire{
		Type:      typeFolderManifest,
		Author:    m.Author,
		Timestamp: m.Timestamp,
		ID:        m.ID,
		Version:   m.Version,
		Created:   m.Created,
		Updated:   m.Updated,
		Parent:    m.Parent,
		Children:  m.Children,
	}
	return signAndEncrypt(author, key, &wire)
}

// MarshalCBOR encodes the manifest as its wire map for nesting; see
// FileManifest.MarshalCBOR.
func (m FolderManifest) MarshalCBOR() ([]byte, error) {
	wire := folderManifestWire{
		Type:      typeFolderManifest,
		Author:    m.Author,
		Timestamp: m.Timestamp,
		ID:        m.ID,
		Version:   m.Version,
		Created:   m.Created,
		Updated:   m.Updated,
		Parent:    m.Parent,
		Children:  m.Children,
	}
	return codec.Marshal(&wire)
}

// UnmarshalCBOR decodes the wire map produced by MarshalCBOR.
func (m *FolderManifest) UnmarshalCBOR(raw []byte) error {
	var wire folderManifestWire
	if err := codec.Unmarshal(raw, &wire); err != nil {
		return err
	}
	if err := checkType(wire.Type, typeFolderManifest); err != nil {
		return err
	}
	children := wire.Children
	if children == nil {
		children = map[ref.EntryName]ref.EntryID{}
	}
	*m = FolderManifest{
		ManifestMeta: ManifestMeta{
			Author:    wire.Author,
			Timestamp: wire.Timestamp,
			ID:        wire.ID,
			Version:   wire.Version,
			Created:   wire.Created,
			Updated:   wire.Updated,
		},
		Parent:   wire.Parent,
		Children: children,
	}
	return nil
}

func (w *folderManifestWire) toManifest() (*FolderManifest, error) {
	manifest := &FolderManifest{
		ManifestMeta: ManifestMeta{
			Author:    w.Author,
			Timestamp: w.Timestamp,
			ID:        w.ID,
			Version:   w.Version,
			Created:   w.Created,
			Updated:   w.Updated,
		},
		Parent:   w.Parent,
		Children: w.Children,
	}
	if err := manifest.ManifestMeta.validate(); err != nil {
		return nil, err
	}
	if manifest.Parent.IsZero() {
		return nil, fmt.Errorf("%w: folder manifest missing parent", ErrInvalidData)
	}
	if manifest.Children == nil {
		manifest.Children = map[ref.EntryName]ref.EntryID{}
	}
	return manifest, nil
}

// WorkspaceManifest is the root manifest of a workspace: a folder
// without a parent.
type WorkspaceManifest struct {
	ManifestMeta
	Children map[ref.EntryName]ref.EntryID
}

type workspaceManifestWire struct {
	Type      string                        `cbor:"type"`
	Author    ref.DeviceID                  `cbor:"author"`
	Timestamp ref.DateTime                  `cbor:"timestamp"`
	ID        ref.EntryID                   `cbor:"id"`
	Version   uint32                        `cbor:"version"`
	Created   ref.DateTime                  `cbor:"created"`
	Updated   ref.DateTime                  `cbor:"updated"`
	Children  map[ref.EntryName]ref.EntryID `cbor:"children"`
}

// Meta implements Manifest.
func (m *WorkspaceManifest) Meta() ManifestMeta { return m.ManifestMeta }

// DumpSignAndEncrypt implements Manifest.
func (m *WorkspaceManifest) DumpSignAndEncrypt(author crypto.SigningKey, key crypto.SecretKey) ([]byte, error) {
	if err := m.ManifestMeta.validate(); err != nil {
		return nil, err
	}
	wire := workspaceManifestWire{
		Type:      typeWorkspaceManifest,
		Author:    m.Author,
		Timestamp: m.Timestamp,
		ID:        m.ID,
		Version:   m.Version,
		Created:   m.Created,
		Updated:   m.Updated,
		Children:  m.Children,
	}
	return signAndEncrypt(author, key, &wire)
}

// MarshalCBOR encodes the manifest as its wire map for nesting; see
// FileManifest.MarshalCBOR.
func (m WorkspaceManifest) MarshalCBOR() ([]byte, error) {
	wire := workspaceManifestWire{
		Type:      typeWorkspaceManifest,
		Author:    m.Author,
		Timestamp: m.Timestamp,
		ID:        m.ID,
		Version:   m.Version,
		Created:   m.Created,
		Updated:   m.Updated,
		Children:  m.Children,
	}
	return codec.Marshal(&wire)
}

// UnmarshalCBOR decodes the wire map produced by MarshalCBOR.
func (m *WorkspaceManifest) UnmarshalCBOR(raw []byte) error {
	var wire workspaceManifestWire
	if err := codec.Unmarshal(raw, &wire); err != nil {
		return err
	}
	if err := checkType(wire.Type, typeWorkspaceManifest); err != nil {
		return err
	}
	children := wire.Children
	if children == nil {
		children = map[ref.EntryName]ref.EntryID{}
	}
	*m = WorkspaceManifest{
		ManifestMeta: ManifestMeta{
			Author:    wire.Author,
			Timestamp: wire.Timestamp,
			ID:        wire.ID,
			Version:   wire.Version,
			Created:   wire.Created,
			Updated:   wire.Updated,
		},
		Children: children,
	}
	return nil
}

func (w *workspaceManifestWire) toManifest() (*WorkspaceManifest, error) {
	manifest := &WorkspaceManifest{
		ManifestMeta: ManifestMeta{
			Author:    w.Author,
			Timestamp: w.Timestamp,
			ID:        w.ID,
			Version:   w.Version,
			Created:   w.Created,
			Updated:   w.Updated,
		},
		Children: w.Children,
	}
	if err := manifest.ManifestMeta.validate(); err != nil {
		return nil, err
	}
	if manifest.Children == nil {
		manifest.Children = map[ref.EntryName]ref.EntryID{}
	}
	return manifest, nil
}

// WorkspaceEntry is a user manifest's record of one workspace: its
// root entry ID, current encryption key and the user's cached role.
type WorkspaceEntry struct {
	ID                 ref.EntryID
	Name               ref.EntryName
	Key                crypto.SecretKey
	EncryptionRevision uint32
	EncryptedOn        ref.DateTime
	RoleCachedOn       ref.DateTime
	Role               *ref.RealmRole
}

// NewWorkspaceEntry creates the entry for a brand-new workspace: a
// fresh entry ID and key, OWNER role, encryption revision 1.
func NewWorkspaceEntry(name ref.EntryName, timestamp ref.DateTime) (WorkspaceEntry, error) {
	key, err := crypto.NewSecretKey()
	if err != nil {
		return WorkspaceEntry{}, err
	}
	role := ref.RoleOwner
	return WorkspaceEntry{
		ID:                 ref.NewEntryID(),
		Name:               name,
		Key:                key,
		EncryptionRevision: 1,
		EncryptedOn:        timestamp,
		RoleCachedOn:       timestamp,
		Role:               &role,
	}, nil
}

type workspaceEntryWire struct {
	ID                 ref.EntryID    `cbor:"id"`
	Name               ref.EntryName  `cbor:"name"`
	Key                []byte         `cbor:"key"`
	EncryptionRevision uint32         `cbor:"encryption_revision"`
	EncryptedOn        ref.DateTime   `cbor:"encrypted_on"`
	RoleCachedOn       ref.DateTime   `cbor:"role_cached_on"`
	Role               *ref.RealmRole `cbor:"role"`
}

func (e WorkspaceEntry) toWire() workspaceEntryWire {
	return workspaceEntryWire{
		ID:                 e.ID,
		Name:               e.Name,
		Key:                e.Key.Bytes(),
		EncryptionRevision: e.EncryptionRevision,
		EncryptedOn:        e.EncryptedOn,
		RoleCachedOn:       e.RoleCachedOn,
		Role:               e.Role,
	}
}

// MarshalCBOR encodes the entry as its wire map so it can nest inside
// local payloads.
func (e WorkspaceEntry) MarshalCBOR() ([]byte, error) {
	wire := e.toWire()
	return codec.Marshal(&wire)
}

// UnmarshalCBOR decodes the wire map produced by MarshalCBOR.
func (e *WorkspaceEntry) UnmarshalCBOR(raw []byte) error {
	var wire workspaceEntryWire
	if err := codec.Unmarshal(raw, &wire); err != nil {
		return err
	}
	decoded, err := wire.toEntry()
	if err != nil {
		return err
	}
	*e = decoded
	return nil
}

func (w workspaceEntryWire) toEntry() (WorkspaceEntry, error) {
	if w.ID.IsZero() || w.Name.IsZero() {
		return WorkspaceEntry{}, fmt.Errorf("%w: workspace entry missing id or name", ErrInvalidData)
	}
	if w.EncryptionRevision < 1 {
		return WorkspaceEntry{}, fmt.Errorf("%w: workspace entry encryption_revision must be >= 1", ErrInvalidData)
	}
	key, err := crypto.SecretKeyFromBytes(w.Key)
	if err != nil {
		return WorkspaceEntry{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return WorkspaceEntry{
		ID:                 w.ID,
		Name:               w.Name,
		Key:                key,
		EncryptionRevision: w.EncryptionRevision,
		EncryptedOn:        w.EncryptedOn,
		RoleCachedOn:       w.RoleCachedOn,
		Role:               w.Role,
	}, nil
}

// UserManifest is the per-user root of everything: the list of known
// workspaces and the index of the last processed message.
type UserManifest struct {
	ManifestMeta
	LastProcessedMessage uint64
	Workspaces           []WorkspaceEntry
}

type userManifestWire struct {
	Type                 string               `cbor:"type"`
	Author               ref.DeviceID         `cbor:"author"`
	Timestamp            ref.DateTime         `cbor:"timestamp"`
	ID                   ref.EntryID          `cbor:"id"`
	Version              uint32               `cbor:"version"`
	Created              ref.DateTime         `cbor:"created"`
	Updated              ref.DateTime         `cbor:"updated"`
	LastProcessedMessage uint64               `cbor:"last_processed_message"`
	Workspaces           []workspaceEntryWire `cbor:"workspaces"`
}

// Meta implements Manifest.
func (m *UserManifest) Meta() ManifestMeta { return m.ManifestMeta }

// Workspace returns the entry for the given workspace ID, or nil.
func (m *UserManifest) Workspace(id ref.EntryID) *WorkspaceEntry {
	for i := range m.Workspaces {
		if m.Workspaces[i].ID == id {
			return &m.Workspaces[i]
		}
	}
	return nil
}

// Validate checks that workspace IDs are unique.
func (m *UserManifest) Validate() error {
	if err := m.ManifestMeta.validate(); err != nil {
		return err
	}
	seen := make(map[ref.EntryID]struct{}, len(m.Workspaces))
	for _, entry := range m.Workspaces {
		if _, dup := seen[entry.ID]; dup {
			return fmt.Errorf("%w: duplicate workspace entry %s", ErrInvalidData, entry.ID)
		}
		seen[entry.ID] = struct{}{}
	}
	return nil
}

// DumpSignAndEncrypt implements Manifest.
func (m *UserManifest) DumpSignAndEncrypt(author crypto.SigningKey, key crypto.SecretKey) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	wire := userManifestWire{
		Type:                 typeUserManifest,
		Author:               m.Author,
		Timestamp:            m.Timestamp,
		ID:                   m.ID,
		Version:              m.Version,
		Created:              m.Created,
		Updated:              m.Updated,
		LastProcessedMessage: m.LastProcessedMessage,
		Workspaces:           make([]workspaceEntryWire, 0, len(m.Workspaces)),
	}
	for _, entry := range m.Workspaces {
		wire.Workspaces = append(wire.Workspaces, entry.toWire())
	}
	return signAndEncrypt(author, key, &wire)
}

// MarshalCBOR encodes the manifest as its wire map for nesting; see
// FileManifest.MarshalCBOR.
func (m UserManifest) MarshalCBOR() ([]byte, error) {
	wire := userManifestWire{
		Type:                 typeUserManifest,
		Author:               m.Author,
		Timestamp:            m.Timestamp,
		ID:                   m.ID,
		Version:              m.Version,
		Created:              m.Created,
		Updated:              m.Updated,
		LastProcessedMessage: m.LastProcessedMessage,
		Workspaces:           make([]workspaceEntryWire, 0, len(m.Workspaces)),
	}
	for _, entry := range m.Workspaces {
		wire.Workspaces = append(wire.Workspaces, entry.toWire())
	}
	return codec.Marshal(&wire)
}

// UnmarshalCBOR decodes the wire map produced by MarshalCBOR.
func (m *UserManifest) UnmarshalCBOR(raw []byte) error {
	var wire userManifestWire
	if err := codec.Unmarshal(raw, &wire); err != nil {
		return err
	}
	if err := checkType(wire.Type, typeUserManifest); err != nil {
		return err
	}
	decoded := UserManifest{
		ManifestMeta: ManifestMeta{
			Author:    wire.Author,
			Timestamp: wire.Timestamp,
			ID:        wire.ID,
			Version:   wire.Version,
			Created:   wire.Created,
			Updated:   wire.Updated,
		},
		LastProcessedMessage: wire.LastProcessedMessage,
		Workspaces:           make([]WorkspaceEntry, 0, len(wire.Workspaces)),
	}
	for _, entryWire := range wire.Workspaces {
		entry, err := entryWire.toEntry()
		if err != nil {
			return err
		}
		decoded.Workspaces = append(decoded.Workspaces, entry)
	}
	*m = decoded
	return nil
}

func (w *userManifestWire) toManifest() (*UserManifest, error) {
	manifest := &UserManifest{
		ManifestMeta: ManifestMeta{
			Author:    w.Author,
			Timestamp: w.Timestamp,
			ID:        w.ID,
			Version:   w.Version,
			Created:   w.Created,
			Updated:   w.Updated,
		},
		LastProcessedMessage: w.LastProcessedMessage,
		Workspaces:           make([]WorkspaceEntry, 0, len(w.Workspaces)),
	}
	for _, entryWire := range w.Workspaces {
		entry, err := entryWire.toEntry()
		if err != nil {
			return nil, err
		}
		manifest.Workspaces = append(manifest.Workspaces, entry)
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

// DecryptVerifyAndLoadManifest reverses envelope E2 for any manifest
// type, dispatching on the type discriminator, then checks the
// caller's expectations: the author and timestamp are mandatory pins
// (the server echoes them with the payload and they must agree), the
// ID and version pins are optional.
func DecryptVerifyAndLoadManifest(encrypted []byte, key crypto.SecretKey, authorVerifyKey crypto.VerifyKey, expectedAuthor ref.DeviceID, expectedTimestamp ref.DateTime, expectedID *ref.EntryID, expectedVersion *uint32) (Manifest, error) {
	signed, err := key.Decrypt(encrypted)
	if err != nil {
		return nil, err
	}
	body, err := authorVerifyKey.Verify(signed)
	if err != nil {
		return nil, err
	}
	discriminator, err := probeCompressedType(body)
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	switch discriminator {
	case typeFileManifest:
		var wire fileManifestWire
		if err := decodeCompressed(body, &wire); err != nil {
			return nil, err
		}
		manifest, err = wire.toManifest()
	case typeFolderManifest:
		var wire folderManifestWire
		if err := decodeCompressed(body, &wire); err != nil {
			return nil, err
		}
		manifest, err = wire.toManifest()
	case typeWorkspaceManifest:
		var wire workspaceManifestWire
		if err := decodeCompressed(body, &wire); err != nil {
			return nil, err
		}
		manifest, err = wire.toManifest()
	case typeUserManifest:
		var wire userManifestWire
		if err := decodeCompressed(body, &wire); err != nil {
			return nil, err
		}
		manifest, err = wire.toManifest()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, discriminator)
	}
	if err != nil {
		return nil, err
	}

	meta := manifest.Meta()
	if meta.Author != expectedAuthor {
		return nil, &FieldMismatchError{Field: "author", Expected: expectedAuthor.String(), Got: meta.Author.String()}
	}
	if meta.Timestamp != expectedTimestamp {
		return nil, &FieldMismatchError{Field: "timestamp", Expected: expectedTimestamp.String(), Got: meta.Timestamp.String()}
	}
	if expectedID != nil && meta.ID != *expectedID {
		return nil, &FieldMismatchError{Field: "entry ID", Expected: expectedID.String(), Got: meta.ID.String()}
	}
	if expectedVersion != nil && meta.Version != *expectedVersion {
		return nil, &FieldMismatchError{Field: "version", Expected: fmt.Sprintf("%d", *expectedVersion), Got: fmt.Sprintf("%d", meta.Version)}
	}
	return manifest, nil
}
