// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"fmt"

	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/data"
	"github.com/parsec-foundation/parsec/lib/ref"
)

// LocalFileManifest tracks the device-side state of a file: the last
// synchronized remote manifest as Base, plus the current size and
// block layout including unsynchronized writes. The outer Blocks list
// is indexed by block number; each inner list holds the ordered
// chunks currently composing that block's slice of the file.
type LocalFileManifest struct {
	Base      data.FileManifest
	NeedSync  bool
	Updated   ref.DateTime
	Size      uint64
	Blocksize uint64
	Blocks    [][]Chunk
}

// NewLocalFileManifest creates the placeholder manifest for a file
// that does not exist remotely yet. The base carries version 0 until
// the first sync.
func NewLocalFileManifest(author ref.DeviceID, parent ref.EntryID, blocksize uint64, timestamp ref.DateTime) (*LocalFileManifest, error) {
	if blocksize < data.MinBlocksize {
		return nil, fmt.Errorf("%w: blocksize %d is below the minimum %d", ErrInvalidManifest, blocksize, data.MinBlocksize)
	}
	return &LocalFileManifest{
		Base: data.FileManifest{
			ManifestMeta: data.ManifestMeta{
				Author:    author,
				Timestamp: timestamp,
				ID:        ref.NewEntryID(),
				Version:   0,
				Created:   timestamp,
				Updated:   timestamp,
			},
			Parent:    parent,
			Blocksize: blocksize,
		},
		NeedSync:  true,
		Updated:   timestamp,
		Blocksize: blocksize,
	}, nil
}

// FileFromRemote builds the local view of a freshly fetched remote
// manifest: every remote block becomes a one-chunk slot and there is
// nothing to sync.
func FileFromRemote(remote *data.FileManifest) (*LocalFileManifest, error) {
	if err := remote.Validate(); err != nil {
		return nil, err
	}
	blocks := make([][]Chunk, 0, len(remote.Blocks))
	for _, access := range remote.Blocks {
		blocks = append(blocks, []Chunk{ChunkFromBlockAccess(access)})
	}
	manifest := &LocalFileManifest{
		Base:      *remote,
		NeedSync:  false,
		Updated:   remote.Updated,
		Size:      remote.Size,
		Blocksize: remote.Blocksize,
		Blocks:    blocks,
	}
	if err := manifest.AssertIntegrity(); err != nil {
		return nil, err
	}
	return manifest, nil
}

// IsPlaceholder reports whether the file has never been synchronized.
func (m *LocalFileManifest) IsPlaceholder() bool { return m.Base.Version == 0 }

// IsReshaped reports whether every block slot holds exactly one
// uploaded block, the shape ToRemote requires.
func (m *LocalFileManifest) IsReshaped() bool {
	for _, chunks := range m.Blocks {
		if len(chunks) != 1 || !chunks[0].IsBlock() {
			return false
		}
	}
	return true
}

// AssertIntegrity checks the chunk layout invariants: each slot's
// chunks are contiguous, start at the slot boundary, stay within the
// slot and cover exactly the file data falling into it.
func (m *LocalFileManifest) AssertIntegrity() error {
	if m.Blocksize < data.MinBlocksize {
		return fmt.Errorf("%w: blocksize %d is below the minimum %d", ErrInvalidManifest, m.Blocksize, data.MinBlocksize)
	}
	for i, chunks := range m.Blocks {
		slotStart := uint64(i) * m.Blocksize
		if slotStart >= m.Size {
			return fmt.Errorf("%w: block %d starts at %d, past the file size %d", ErrInvalidManifest, i, slotStart, m.Size)
		}
		if len(chunks) == 0 {
			return fmt.Errorf("%w: block %d has no chunks", ErrInvalidManifest, i)
		}
		if chunks[0].Start != slotStart {
			return fmt.Errorf("%w: block %d starts at %d, expected %d", ErrInvalidManifest, i, chunks[0].Start, slotStart)
		}
		for k, chunk := range chunks {
			if err := chunk.Validate(); err != nil {
				return fmt.Errorf("block %d chunk %d: %w", i, k, err)
			}
			if k > 0 && chunk.Start != chunks[k-1].Stop {
				return fmt.Errorf("%w: block %d has a gap between chunks %d and %d", ErrInvalidManifest, i, k-1, k)
			}
		}
		covered := chunks[len(chunks)-1].Stop - slotStart
		expected := m.Blocksize
		if remaining := m.Size - slotStart; remaining < expected {
			expected = remaining
		}
		if covered != expected {
			return fmt.Errorf("%w: block %d covers %d bytes, expected %d", ErrInvalidManifest, i, covered, expected)
		}
	}
	return nil
}

// SetSingleBlock replaces one block slot with a single chunk, which is
// how the reshape step installs an uploaded block. The slot must exist
// or be the next one.
func (m *LocalFileManifest) SetSingleBlock(block uint64, chunk Chunk) error {
	if err := chunk.Validate(); err != nil {
		return err
	}
	if block > uint64(len(m.Blocks)) {
		return fmt.Errorf("%w: block %d is past the end (%d blocks)", ErrInvalidManifest, block, len(m.Blocks))
	}
	if block == uint64(len(m.Blocks)) {
		m.Blocks = append(m.Blocks, []Chunk{chunk})
		return nil
	}
	m.Blocks[block] = []Chunk{chunk}
	return nil
}

// Chunks returns the chunk list of one block slot.
func (m *LocalFileManifest) Chunks(block uint64) []Chunk {
	if block >= uint64(len(m.Blocks)) {
		return nil
	}
	return m.Blocks[block]
}

// EvolveAndMarkUpdated returns a copy with the new size and block
// layout, flagged for synchronization.
func (m *LocalFileManifest) EvolveAndMarkUpdated(size uint64, blocks [][]Chunk, timestamp ref.DateTime) *LocalFileManifest {
	evolved := *m
	evolved.Size = size
	evolved.Blocks = blocks
	evolved.NeedSync = true
	evolved.Updated = timestamp
	return &evolved
}

// ToRemote converts to the remote manifest a sync would upload. The
// manifest must be reshaped; the result bumps the base version.
func (m *LocalFileManifest) ToRemote(author ref.DeviceID, timestamp ref.DateTime) (*data.FileManifest, error) {
	if !m.IsReshaped() {
		return nil, ErrNotReshaped
	}
	if err := m.AssertIntegrity(); err != nil {
		return nil, err
	}
	return m.toRemoteVersion(author, timestamp, m.Base.Version+1), nil
}

func (m *LocalFileManifest) toRemoteVersion(author ref.DeviceID, timestamp ref.DateTime, version uint32) *data.FileManifest {
	blocks := make([]data.BlockAccess, 0, len(m.Blocks))
	for _, chunks := range m.Blocks {
		blocks = append(blocks, *chunks[0].Access)
	}
	return &data.FileManifest{
		ManifestMeta: data.ManifestMeta{
			Author:    author,
			Timestamp: timestamp,
			ID:        m.Base.ID,
			Version:   version,
			Created:   m.Base.Created,
			Updated:   m.Updated,
		},
		Parent:    m.Base.Parent,
		Size:      m.Size,
		Blocksize: m.Blocksize,
		Blocks:    blocks,
	}
}

// MatchRemote reports whether the local state projects to exactly the
// given remote manifest, meaning there is nothing to sync.
func (m *LocalFileManifest) MatchRemote(remote *data.FileManifest) bool {
	if !m.IsReshaped() {
		return false
	}
	candidate := m.toRemoteVersion(remote.Author, remote.Timestamp, remote.Version)
	if candidate.ManifestMeta != remote.ManifestMeta ||
		candidate.Parent != remote.Parent ||
		candidate.Size != remote.Size ||
		candidate.Blocksize != remote.Blocksize ||
		len(candidate.Blocks) != len(remote.Blocks) {
		return false
	}
	for i := range candidate.Blocks {
		if candidate.Blocks[i] != remote.Blocks[i] {
			return false
		}
	}
	return true
}

type localFileManifestWire struct {
	Type      string            `cbor:"type"`
	Base      data.FileManifest `cbor:"base"`
	NeedSync  bool              `cbor:"need_sync"`
	Updated   ref.DateTime      `cbor:"updated"`
	Size      uint64            `cbor:"size"`
	Blocksize uint64            `cbor:"blocksize"`
	Blocks    [][]chunkWire     `cbor:"blocks"`
}

// DumpAndEncrypt serializes into the local envelope under the device
// symmetric key.
func (m *LocalFileManifest) DumpAndEncrypt(key crypto.SecretKey) ([]byte, error) {
	if err := m.AssertIntegrity(); err != nil {
		return nil, err
	}
	wire := localFileManifestWire{
		Type:      typeLocalFileManifest,
		Base:      m.Base,
		NeedSync:  m.NeedSync,
		Updated:   m.Updated,
		Size:      m.Size,
		Blocksize: m.Blocksize,
		Blocks:    make([][]chunkWire, 0, len(m.Blocks)),
	}
	for _, chunks := range m.Blocks {
		slot := make([]chunkWire, 0, len(chunks))
		for _, chunk := range chunks {
			slot = append(slot, chunk.toWire())
		}
		wire.Blocks = append(wire.Blocks, slot)
	}
	return dumpAndEncrypt(key, &wire)
}

func (w *localFileManifestWire) toManifest() (*LocalFileManifest, error) {
	manifest := &LocalFileManifest{
		Base:      w.Base,
		NeedSync:  w.NeedSync,
		Updated:   w.Updated,
		Size:      w.Size,
		Blocksize: w.Blocksize,
		Blocks:    make([][]Chunk, 0, len(w.Blocks)),
	}
	for _, slot := range w.Blocks {
		chunks := make([]Chunk, 0, len(slot))
		for _, wireChunk := range slot {
			chunk, err := wireChunk.toChunk()
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, chunk)
		}
		manifest.Blocks = append(manifest.Blocks, chunks)
	}
	if err := manifest.AssertIntegrity(); err != nil {
		return nil, err
	}
	return manifest, nil
}
