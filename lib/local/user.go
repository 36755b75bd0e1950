// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"fmt"

	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/data"
	"github.com/parsec-foundation/parsec/lib/ref"
)

// LocalUserManifest tracks the device-side state of the user manifest:
// the workspace list and message cursor, possibly ahead of the last
// synchronized base.
type LocalUserManifest struct {
	Base                 data.UserManifest
	NeedSync             bool
	Updated              ref.DateTime
	LastProcessedMessage uint64
	Workspaces           []data.WorkspaceEntry
	Speculative          bool
}

// NewLocalUserManifest creates a placeholder user manifest. A
// speculative manifest uses the user manifest ID received during
// enrollment and reconciles with the server copy on first sync.
func NewLocalUserManifest(author ref.DeviceID, id ref.EntryID, timestamp ref.DateTime, speculative bool) *LocalUserManifest {
	return &LocalUserManifest{
		Base: data.UserManifest{
			ManifestMeta: data.ManifestMeta{
				Author:    author,
				Timestamp: timestamp,
				ID:        id,
				Version:   0,
				Created:   timestamp,
				Updated:   timestamp,
			},
		},
		NeedSync:    true,
		Updated:     timestamp,
		Speculative: speculative,
	}
}

// UserFromRemote builds the local view of a fetched remote user
// manifest.
func UserFromRemote(remote *data.UserManifest) *LocalUserManifest {
	workspaces := make([]data.WorkspaceEntry, len(remote.Workspaces))
	copy(workspaces, remote.Workspaces)
	return &LocalUserManifest{
		Base:                 *remote,
		NeedSync:             false,
		Updated:              remote.Updated,
		LastProcessedMessage: remote.LastProcessedMessage,
		Workspaces:           workspaces,
	}
}

// IsPlaceholder reports whether the manifest has never been
// synchronized.
func (m *LocalUserManifest) IsPlaceholder() bool { return m.Base.Version == 0 }

// Workspace returns the entry for the given workspace ID, or nil.
func (m *LocalUserManifest) Workspace(id ref.EntryID) *data.WorkspaceEntry {
	for i := range m.Workspaces {
		if m.Workspaces[i].ID == id {
			return &m.Workspaces[i]
		}
	}
	return nil
}

// EvolveWorkspacesAndMarkUpdated returns a copy with the given entries
// merged into the workspace list: an entry with a known ID replaces
// the existing one, a new ID appends.
func (m *LocalUserManifest) EvolveWorkspacesAndMarkUpdated(timestamp ref.DateTime, entries ...data.WorkspaceEntry) *LocalUserManifest {
	workspaces := make([]data.WorkspaceEntry, len(m.Workspaces))
	copy(workspaces, m.Workspaces)
	for _, entry := range entries {
		replaced := false
		for i := range workspaces {
			if workspaces[i].ID == entry.ID {
				workspaces[i] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			workspaces = append(workspaces, entry)
		}
	}
	evolved := *m
	evolved.Workspaces = workspaces
	evolved.NeedSync = true
	evolved.Updated = timestamp
	return &evolved
}

// EvolveLastProcessedMessage returns a copy with the message cursor
// advanced. Moving the cursor backwards is ignored.
func (m *LocalUserManifest) EvolveLastProcessedMessage(index uint64, timestamp ref.DateTime) *LocalUserManifest {
	if index <= m.LastProcessedMessage {
		return m
	}
	evolved := *m
	evolved.LastProcessedMessage = index
	evolved.NeedSync = true
	evolved.Updated = timestamp
	return &evolved
}

// ToRemote converts to the remote manifest a sync would upload,
// bumping the base version.
func (m *LocalUserManifest) ToRemote(author ref.DeviceID, timestamp ref.DateTime) *data.UserManifest {
	workspaces := make([]data.WorkspaceEntry, len(m.Workspaces))
	copy(workspaces, m.Workspaces)
	return &data.UserManifest{
		ManifestMeta: data.ManifestMeta{
			Author:    author,
			Timestamp: timestamp,
			ID:        m.Base.ID,
			Version:   m.Base.Version + 1,
			Created:   m.Base.Created,
			Updated:   m.Updated,
		},
		LastProcessedMessage: m.LastProcessedMessage,
		Workspaces:           workspaces,
	}
}

type localUserManifestWire struct {
	Type                 string                    `cbor:"type"`
	Base                 data.UserManifest         `cbor:"base"`
	NeedSync             bool                      `cbor:"need_sync"`
	Updated              ref.DateTime              `cbor:"updated"`
	LastProcessedMessage uint64                `cbor:"last_processed_message"`
	Workspaces           []data.WorkspaceEntry `cbor:"workspaces"`
	Speculative          bool                  `cbor:"speculative"`
}

// DumpAndEncrypt serializes into the local envelope under the device
// symmetric key.
func (m *LocalUserManifest) DumpAndEncrypt(key crypto.SecretKey) ([]byte, error) {
	seen := make(map[ref.EntryID]struct{}, len(m.Workspaces))
	for _, entry := range m.Workspaces {
		if _, dup := seen[entry.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate workspace entry %s", ErrInvalidManifest, entry.ID)
		}
		seen[entry.ID] = struct{}{}
	}
	wire := localUserManifestWire{
		Type:                 typeLocalUserManifest,
		Base:                 m.Base,
		NeedSync:             m.NeedSync,
		Updated:              m.Updated,
		LastProcessedMessage: m.LastProcessedMessage,
		Workspaces:           m.Workspaces,
		Speculative:          m.Speculative,
	}
	return dumpAndEncrypt(key, &wire)
}

func (w *localUserManifestWire) toManifest() (*LocalUserManifest, error) {
	seen := make(map[ref.EntryID]struct{}, len(w.Workspaces))
	for _, entry := range w.Workspaces {
		if _, dup := seen[entry.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate workspace entry %s", ErrInvalidManifest, entry.ID)
		}
		seen[entry.ID] = struct{}{}
	}
	return &LocalUserManifest{
		Base:                 w.Base,
		NeedSync:             w.NeedSync,
		Updated:              w.Updated,
		LastProcessedMessage: w.LastProcessedMessage,
		Workspaces:           w.Workspaces,
		Speculative:          w.Speculative,
	}, nil
}
