// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/data"
	"github.com/parsec-foundation/parsec/lib/ref"
)

// Confinement keeps entries matching the prevent-sync pattern (editor
// temp files, lock files) out of synchronization without losing them:
//
//   - local confinement points are entries that exist locally, stay in
//     Children, and are withheld from ToRemote;
//   - remote confinement points are entries of the remote base that
//     were filtered out of the local view and are restored verbatim by
//     ToRemote so other devices keep seeing them.
//
// The two sets are disjoint by construction.

type entrySet = map[ref.EntryID]struct{}

// evolveChildren applies a change set to a children map. A nil entry
// ID removes the name. Entries whose name matches the pattern become
// locally confined. The returned flag reports whether anything visible
// to synchronization changed.
func evolveChildren(children map[ref.EntryName]ref.EntryID, localConfinement entrySet, changes map[ref.EntryName]*ref.EntryID, pattern *regexp.Regexp) (map[ref.EntryName]ref.EntryID, entrySet, bool) {
	newChildren := make(map[ref.EntryName]ref.EntryID, len(children))
	for name, id := range children {
		newChildren[name] = id
	}
	newLocal := make(entrySet, len(localConfinement))
	for id := range localConfinement {
		newLocal[id] = struct{}{}
	}

	visibleChange := false
	for name, id := range changes {
		if old, ok := newChildren[name]; ok {
			delete(newChildren, name)
			if _, confined := newLocal[old]; confined {
				delete(newLocal, old)
			} else {
				visibleChange = true
			}
		}
		if id == nil {
			continue
		}
		newChildren[name] = *id
		if pattern != nil && pattern.MatchString(name.String()) {
			newLocal[*id] = struct{}{}
		} else {
			visibleChange = true
		}
	}
	return newChildren, newLocal, visibleChange
}

// repartitionChildren recomputes both confinement sets for a new
// prevent-sync pattern: previously filtered remote entries are
// restored, the remote base is re-filtered, and local confinement is
// recomputed from the surviving children.
func repartitionChildren(children, baseChildren map[ref.EntryName]ref.EntryID, remoteConfinement entrySet, pattern *regexp.Regexp) (map[ref.EntryName]ref.EntryID, entrySet, entrySet) {
	newChildren := make(map[ref.EntryName]ref.EntryID, len(children))
	for name, id := range children {
		newChildren[name] = id
	}
	for name, id := range baseChildren {
		if _, confined := remoteConfinement[id]; !confined {
			continue
		}
		if _, taken := newChildren[name]; !taken {
			newChildren[name] = id
		}
	}

	newRemote := entrySet{}
	for name, id := range baseChildren {
		if pattern == nil || !pattern.MatchString(name.String()) {
			continue
		}
		newRemote[id] = struct{}{}
		if newChildren[name] == id {
			delete(newChildren, name)
		}
	}

	newLocal := entrySet{}
	if pattern != nil {
		for name, id := range newChildren {
			if pattern.MatchString(name.String()) {
				newLocal[id] = struct{}{}
			}
		}
	}
	return newChildren, newLocal, newRemote
}

// projectChildren builds the children map ToRemote uploads: the local
// view minus locally confined entries, plus the filtered remote
// entries restored from the base.
func projectChildren(children, baseChildren map[ref.EntryName]ref.EntryID, localConfinement, remoteConfinement entrySet) map[ref.EntryName]ref.EntryID {
	projected := make(map[ref.EntryName]ref.EntryID, len(children))
	for name, id := range children {
		if _, confined := localConfinement[id]; !confined {
			projected[name] = id
		}
	}
	for name, id := range baseChildren {
		if _, confined := remoteConfinement[id]; !confined {
			continue
		}
		if _, taken := projected[name]; !taken {
			projected[name] = id
		}
	}
	return projected
}

func childrenEqual(a, b map[ref.EntryName]ref.EntryID) bool {
	if len(a) != len(b) {
		return false
	}
	for name, id := range a {
		if b[name] != id {
			return false
		}
	}
	return true
}

func filterRemoteChildren(remote map[ref.EntryName]ref.EntryID, pattern *regexp.Regexp) (map[ref.EntryName]ref.EntryID, entrySet) {
	children := make(map[ref.EntryName]ref.EntryID, len(remote))
	confined := entrySet{}
	for name, id := range remote {
		if pattern != nil && pattern.MatchString(name.String()) {
			confined[id] = struct{}{}
			continue
		}
		children[name] = id
	}
	return children, confined
}

func validateConfinement(children, baseChildren map[ref.EntryName]ref.EntryID, localConfinement, remoteConfinement entrySet) error {
	childIDs := make(entrySet, len(children))
	for _, id := range children {
		childIDs[id] = struct{}{}
	}
	for id := range localConfinement {
		if _, ok := childIDs[id]; !ok {
			return fmt.Errorf("%w: local confinement point %s is not a child", ErrInvalidManifest, id)
		}
		if _, ok := remoteConfinement[id]; ok {
			return fmt.Errorf("%w: entry %s is confined both locally and remotely", ErrInvalidManifest, id)
		}
	}
	baseIDs := make(entrySet, len(baseChildren))
	for _, id := range baseChildren {
		baseIDs[id] = struct{}{}
	}
	for id := range remoteConfinement {
		if _, ok := baseIDs[id]; !ok {
			return fmt.Errorf("%w: remote confinement point %s is not a base child", ErrInvalidManifest, id)
		}
	}
	return nil
}

// LocalFolderManifest tracks the device-side state of a folder.
type LocalFolderManifest struct {
	Base                    data.FolderManifest
	NeedSync                bool
	Updated                 ref.DateTime
	Children                map[ref.EntryName]ref.EntryID
	LocalConfinementPoints  entrySet
	RemoteConfinementPoints entrySet
}

// NewLocalFolderManifest creates the placeholder manifest for a folder
// that does not exist remotely yet.
func NewLocalFolderManifest(author ref.DeviceID, parent ref.EntryID, timestamp ref.DateTime) *LocalFolderManifest {
	return &LocalFolderManifest{
		Base: data.FolderManifest{
			ManifestMeta: data.ManifestMeta{
				Author:    author,
				Timestamp: timestamp,
				ID:        ref.NewEntryID(),
				Version:   0,
				Created:   timestamp,
				Updated:   timestamp,
			},
			Parent:   parent,
			Children: map[ref.EntryName]ref.EntryID{},
		},
		NeedSync:                true,
		Updated:                 timestamp,
		Children:                map[ref.EntryName]ref.EntryID{},
		LocalConfinementPoints:  entrySet{},
		RemoteConfinementPoints: entrySet{},
	}
}

// FolderFromRemote builds the local view of a fetched remote folder,
// filtering out entries matching the prevent-sync pattern.
func FolderFromRemote(remote *data.FolderManifest, pattern *regexp.Regexp) *LocalFolderManifest {
	children, remoteConfinement := filterRemoteChildren(remote.Children, pattern)
	return &LocalFolderManifest{
		Base:                    *remote,
		NeedSync:                false,
		Updated:                 remote.Updated,
		Children:                children,
		LocalConfinementPoints:  entrySet{},
		RemoteConfinementPoints: remoteConfinement,
	}
}

// FolderFromRemoteWithLocalContext rebuilds the local view after a
// sync while keeping the locally confined entries of the previous
// local state, so temp files survive a resync.
func FolderFromRemoteWithLocalContext(remote *data.FolderManifest, pattern *regexp.Regexp, previous *LocalFolderManifest, timestamp ref.DateTime) *LocalFolderManifest {
	manifest := FolderFromRemote(remote, pattern)
	restored := confinedEntries(previous.Children, previous.LocalConfinementPoints)
	if len(restored) == 0 {
		return manifest
	}
	return manifest.EvolveChildrenAndMarkUpdated(restored, pattern, timestamp)
}

func confinedEntries(children map[ref.EntryName]ref.EntryID, confinement entrySet) map[ref.EntryName]*ref.EntryID {
	restored := map[ref.EntryName]*ref.EntryID{}
	for name, id := range children {
		if _, confined := confinement[id]; confined {
			entry := id
			restored[name] = &entry
		}
	}
	return restored
}

// AssertIntegrity checks the confinement invariants.
func (m *LocalFolderManifest) AssertIntegrity() error {
	return validateConfinement(m.Children, m.Base.Children, m.LocalConfinementPoints, m.RemoteConfinementPoints)
}

// IsPlaceholder reports whether the folder has never been synchronized.
func (m *LocalFolderManifest) IsPlaceholder() bool { return m.Base.Version == 0 }

// EvolveChildrenAndMarkUpdated returns a copy with the change set
// applied. A nil entry ID removes the name. NeedSync and Updated only
// move when a change is visible to synchronization; adding or removing
// confined entries is invisible.
func (m *LocalFolderManifest) EvolveChildrenAndMarkUpdated(changes map[ref.EntryName]*ref.EntryID, pattern *regexp.Regexp, timestamp ref.DateTime) *LocalFolderManifest {
	children, localConfinement, visibleChange := evolveChildren(m.Children, m.LocalConfinementPoints, changes, pattern)
	evolved := *m
	evolved.Children = children
	evolved.LocalConfinementPoints = localConfinement
	if visibleChange {
		evolved.NeedSync = true
		evolved.Updated = timestamp
	}
	return &evolved
}

// ApplyPreventSyncPattern returns a copy re-partitioned for a new
// prevent-sync pattern without losing entries. Applying the same
// pattern twice is a no-op.
func (m *LocalFolderManifest) ApplyPreventSyncPattern(pattern *regexp.Regexp, timestamp ref.DateTime) *LocalFolderManifest {
	children, localConfinement, remoteConfinement := repartitionChildren(m.Children, m.Base.Children, m.RemoteConfinementPoints, pattern)
	evolved := *m
	evolved.Children = children
	evolved.LocalConfinementPoints = localConfinement
	evolved.RemoteConfinementPoints = remoteConfinement

	before := projectChildren(m.Children, m.Base.Children, m.LocalConfinementPoints, m.RemoteConfinementPoints)
	after := projectChildren(children, m.Base.Children, localConfinement, remoteConfinement)
	if !childrenEqual(before, after) {
		evolved.NeedSync = true
		evolved.Updated = timestamp
	}
	return &evolved
}

// ToRemote converts to the remote manifest a sync would upload,
// bumping the base version. Locally confined entries are dropped and
// remotely confined entries restored.
func (m *LocalFolderManifest) ToRemote(author ref.DeviceID, timestamp ref.DateTime) *data.FolderManifest {
	return m.toRemoteVersion(author, timestamp, m.Base.Version+1)
}

func (m *LocalFolderManifest) toRemoteVersion(author ref.DeviceID, timestamp ref.DateTime, version uint32) *data.FolderManifest {
	return &data.FolderManifest{
		ManifestMeta: data.ManifestMeta{
			Author:    author,
			Timestamp: timestamp,
			ID:        m.Base.ID,
			Version:   version,
			Created:   m.Base.Created,
			Updated:   m.Updated,
		},
		Parent:   m.Base.Parent,
		Children: projectChildren(m.Children, m.Base.Children, m.LocalConfinementPoints, m.RemoteConfinementPoints),
	}
}

// MatchRemote reports whether the local state projects to exactly the
// given remote manifest.
func (m *LocalFolderManifest) MatchRemote(remote *data.FolderManifest) bool {
	candidate := m.toRemoteVersion(remote.Author, remote.Timestamp, remote.Version)
	return candidate.ManifestMeta == remote.ManifestMeta &&
		candidate.Parent == remote.Parent &&
		childrenEqual(candidate.Children, remote.Children)
}

type localFolderManifestWire struct {
	Type                    string                        `cbor:"type"`
	Base                    data.FolderManifest           `cbor:"base"`
	NeedSync                bool                          `cbor:"need_sync"`
	Updated                 ref.DateTime                  `cbor:"updated"`
	Children                map[ref.EntryName]ref.EntryID `cbor:"children"`
	LocalConfinementPoints  []ref.EntryID                 `cbor:"local_confinement_points"`
	RemoteConfinementPoints []ref.EntryID                 `cbor:"remote_confinement_points"`
}

// DumpAndEncrypt serializes into the local envelope under the device
// symmetric key.
func (m *LocalFolderManifest) DumpAndEncrypt(key crypto.SecretKey) ([]byte, error) {
	if err := m.AssertIntegrity(); err != nil {
		return nil, err
	}
	wire := localFolderManifestWire{
		Type:                    typeLocalFolderManifest,
		Base:                    m.Base,
		NeedSync:                m.NeedSync,
		Updated:                 m.Updated,
		Children:                m.Children,
		LocalConfinementPoints:  sortedEntrySet(m.LocalConfinementPoints),
		RemoteConfinementPoints: sortedEntrySet(m.RemoteConfinementPoints),
	}
	return dumpAndEncrypt(key, &wire)
}

func (w *localFolderManifestWire) toManifest() (*LocalFolderManifest, error) {
	manifest := &LocalFolderManifest{
		Base:                    w.Base,
		NeedSync:                w.NeedSync,
		Updated:                 w.Updated,
		Children:                w.Children,
		LocalConfinementPoints:  entrySetFromSlice(w.LocalConfinementPoints),
		RemoteConfinementPoints: entrySetFromSlice(w.RemoteConfinementPoints),
	}
	if manifest.Children == nil {
		manifest.Children = map[ref.EntryName]ref.EntryID{}
	}
	if err := manifest.AssertIntegrity(); err != nil {
		return nil, err
	}
	return manifest, nil
}

// LocalWorkspaceManifest tracks the device-side state of a workspace
// root. Speculative marks a manifest created before the remote base
// was ever fetched (a workspace shared with us that we open offline).
type LocalWorkspaceManifest struct {
	Base                    data.WorkspaceManifest
	NeedSync                bool
	Updated                 ref.DateTime
	Children                map[ref.EntryName]ref.EntryID
	LocalConfinementPoints  entrySet
	RemoteConfinementPoints entrySet
	Speculative             bool
}

// NewLocalWorkspaceManifest creates a placeholder workspace root. With
// speculative set the entry ID is the workspace's known ID and the
// first sync reconciles instead of creating.
func NewLocalWorkspaceManifest(author ref.DeviceID, id ref.EntryID, timestamp ref.DateTime, speculative bool) *LocalWorkspaceManifest {
	return &LocalWorkspaceManifest{
		Base: data.WorkspaceManifest{
			ManifestMeta: data.ManifestMeta{
				Author:    author,
				Timestamp: timestamp,
				ID:        id,
				Version:   0,
				Created:   timestamp,
				Updated:   timestamp,
			},
			Children: map[ref.EntryName]ref.EntryID{},
		},
		NeedSync:                true,
		Updated:                 timestamp,
		Children:                map[ref.EntryName]ref.EntryID{},
		LocalConfinementPoints:  entrySet{},
		RemoteConfinementPoints: entrySet{},
		Speculative:             speculative,
	}
}

// WorkspaceFromRemote builds the local view of a fetched remote
// workspace manifest.
func WorkspaceFromRemote(remote *data.WorkspaceManifest, pattern *regexp.Regexp) *LocalWorkspaceManifest {
	children, remoteConfinement := filterRemoteChildren(remote.Children, pattern)
	return &LocalWorkspaceManifest{
		Base:                    *remote,
		NeedSync:                false,
		Updated:                 remote.Updated,
		Children:                children,
		LocalConfinementPoints:  entrySet{},
		RemoteConfinementPoints: remoteConfinement,
	}
}

// WorkspaceFromRemoteWithLocalContext rebuilds the local view after a
// sync, keeping the locally confined entries of the previous state.
func WorkspaceFromRemoteWithLocalContext(remote *data.WorkspaceManifest, pattern *regexp.Regexp, previous *LocalWorkspaceManifest, timestamp ref.DateTime) *LocalWorkspaceManifest {
	manifest := WorkspaceFromRemote(remote, pattern)
	restored := confinedEntries(previous.Children, previous.LocalConfinementPoints)
	if len(restored) == 0 {
		return manifest
	}
	return manifest.EvolveChildrenAndMarkUpdated(restored, pattern, timestamp)
}

// AssertIntegrity checks the confinement invariants.
func (m *LocalWorkspaceManifest) AssertIntegrity() error {
	return validateConfinement(m.Children, m.Base.Children, m.LocalConfinementPoints, m.RemoteConfinementPoints)
}

// IsPlaceholder reports whether the workspace has never been
// synchronized.
func (m *LocalWorkspaceManifest) IsPlaceholder() bool { return m.Base.Version == 0 }

// EvolveChildrenAndMarkUpdated returns a copy with the change set
// applied; see LocalFolderManifest.EvolveChildrenAndMarkUpdated.
func (m *LocalWorkspaceManifest) EvolveChildrenAndMarkUpdated(changes map[ref.EntryName]*ref.EntryID, pattern *regexp.Regexp, timestamp ref.DateTime) *LocalWorkspaceManifest {
	children, localConfinement, visibleChange := evolveChildren(m.Children, m.LocalConfinementPoints, changes, pattern)
	evolved := *m
	evolved.Children = children
	evolved.LocalConfinementPoints = localConfinement
	if visibleChange {
		evolved.NeedSync = true
		evolved.Updated = timestamp
	}
	return &evolved
}

// ApplyPreventSyncPattern returns a copy re-partitioned for a new
// prevent-sync pattern; see LocalFolderManifest.ApplyPreventSyncPattern.
func (m *LocalWorkspaceManifest) ApplyPreventSyncPattern(pattern *regexp.Regexp, timestamp ref.DateTime) *LocalWorkspaceManifest {
	children, localConfinement, remoteConfinement := repartitionChildren(m.Children, m.Base.Children, m.RemoteConfinementPoints, pattern)
	evolved := *m
	evolved.Children = children
	evolved.LocalConfinementPoints = localConfinement
	evolved.RemoteConfinementPoints = remoteConfinement

	before := projectChildren(m.Children, m.Base.Children, m.LocalConfinementPoints, m.RemoteConfinementPoints)
	after := projectChildren(children, m.Base.Children, localConfinement, remoteConfinement)
	if !childrenEqual(before, after) {
		evolved.NeedSync = true
		evolved.Updated = timestamp
	}
	return &evolved
}

// ToRemote converts to the remote manifest a sync would upload,
// bumping the base version.
func (m *LocalWorkspaceManifest) ToRemote(author ref.DeviceID, timestamp ref.DateTime) *data.WorkspaceManifest {
	return m.toRemoteVersion(author, timestamp, m.Base.Version+1)
}

func (m *LocalWorkspaceManifest) toRemoteVersion(author ref.DeviceID, timestamp ref.DateTime, version uint32) *data.WorkspaceManifest {
	return &data.WorkspaceManifest{
		ManifestMeta: data.ManifestMeta{
			Author:    author,
			Timestamp: timestamp,
			ID:        m.Base.ID,
			Version:   version,
			Created:   m.Base.Created,
			Updated:   m.Updated,
		},
		Children: projectChildren(m.Children, m.Base.Children, m.LocalConfinementPoints, m.RemoteConfinementPoints),
	}
}

// MatchRemote reports whether the local state projects to exactly the
// given remote manifest.
func (m *LocalWorkspaceManifest) MatchRemote(remote *data.WorkspaceManifest) bool {
	candidate := m.toRemoteVersion(remote.Author, remote.Timestamp, remote.Version)
	return candidate.ManifestMeta == remote.ManifestMeta &&
		childrenEqual(candidate.Children, remote.Children)
}

type localWorkspaceManifestWire struct {
	Type                    string                        `cbor:"type"`
	Base                    data.WorkspaceManifest        `cbor:"base"`
	NeedSync                bool                          `cbor:"need_sync"`
	Updated                 ref.DateTime                  `cbor:"updated"`
	Children                map[ref.EntryName]ref.EntryID `cbor:"children"`
	LocalConfinementPoints  []ref.EntryID                 `cbor:"local_confinement_points"`
	RemoteConfinementPoints []ref.EntryID                 `cbor:"remote_confinement_points"`
	Speculative             bool                          `cbor:"speculative"`
}

// DumpAndEncrypt serializes into the local envelope under the device
// symmetric key.
func (m *LocalWorkspaceManifest) DumpAndEncrypt(key crypto.SecretKey) ([]byte, error) {
	if err := m.AssertIntegrity(); err != nil {
		return nil, err
	}
	wire := localWorkspaceManifestWire{
		Type:                    typeLocalWorkspaceManifest,
		Base:                    m.Base,
		NeedSync:                m.NeedSync,
		Updated:                 m.Updated,
		Children:                m.Children,
		LocalConfinementPoints:  sortedEntrySet(m.LocalConfinementPoints),
		RemoteConfinementPoints: sortedEntrySet(m.RemoteConfinementPoints),
		Speculative:             m.Speculative,
	}
	return dumpAndEncrypt(key, &wire)
}

func (w *localWorkspaceManifestWire) toManifest() (*LocalWorkspaceManifest, error) {
	manifest := &LocalWorkspaceManifest{
		Base:                    w.Base,
		NeedSync:                w.NeedSync,
		Updated:                 w.Updated,
		Children:                w.Children,
		LocalConfinementPoints:  entrySetFromSlice(w.LocalConfinementPoints),
		RemoteConfinementPoints: entrySetFromSlice(w.RemoteConfinementPoints),
		Speculative:             w.Speculative,
	}
	if manifest.Children == nil {
		manifest.Children = map[ref.EntryName]ref.EntryID{}
	}
	if err := manifest.AssertIntegrity(); err != nil {
		return nil, err
	}
	return manifest, nil
}

func sortedEntrySet(set entrySet) []ref.EntryID {
	ids := make([]ref.EntryID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	// Deterministic order keeps the encoded payload stable for a given
	// manifest state.
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func entrySetFromSlice(ids []ref.EntryID) entrySet {
	set := make(entrySet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
