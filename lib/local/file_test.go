// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"errors"
	"testing"

	"github.com/parsec-foundation/parsec/lib/data"
	"github.com/parsec-foundation/parsec/lib/ref"
)

func TestChunkBounds(t *testing.T) {
	chunk, err := NewChunk(100, 200)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	if !chunk.IsPseudoBlock() || chunk.IsBlock() {
		t.Errorf("fresh chunk: pseudo=%v block=%v", chunk.IsPseudoBlock(), chunk.IsBlock())
	}

	if _, err := NewChunk(200, 200); !errors.Is(err, ErrInvalidManifest) {
		t.Errorf("empty span: got %v", err)
	}

	escaped := chunk
	escaped.Stop = 400
	if err := escaped.Validate(); !errors.Is(err, ErrInvalidManifest) {
		t.Errorf("span past raw buffer: got %v", err)
	}
}

func TestChunkEvolveAsBlock(t *testing.T) {
	chunk, err := NewChunk(0, 512)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	content := make([]byte, 512)
	block, err := chunk.EvolveAsBlock(content)
	if err != nil {
		t.Fatalf("EvolveAsBlock: %v", err)
	}
	if !block.IsBlock() {
		t.Fatal("evolved chunk is not a block")
	}
	if block.Access.ID != chunk.ID.BlockID() {
		t.Error("block ID does not reuse the chunk UUID")
	}
	if block.Access.Size != 512 || block.Access.Offset != 0 {
		t.Errorf("access = %+v", block.Access)
	}

	// Evolving again is a no-op.
	again, err := block.EvolveAsBlock(content)
	if err != nil {
		t.Fatalf("EvolveAsBlock twice: %v", err)
	}
	if again.Access.ID != block.Access.ID {
		t.Error("second evolve changed the access")
	}

	if _, err := chunk.EvolveAsBlock(content[:100]); !errors.Is(err, ErrInvalidManifest) {
		t.Errorf("short content: got %v", err)
	}
}

func TestChunkFromBlockAccess(t *testing.T) {
	access := testBlockAccess(t, 512, 512)
	chunk := ChunkFromBlockAccess(access)
	if !chunk.IsBlock() {
		t.Fatal("chunk from access is not a block")
	}
	if chunk.Start != 512 || chunk.Stop != 1024 {
		t.Errorf("span [%d, %d)", chunk.Start, chunk.Stop)
	}
	if err := chunk.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

// A partially rewritten file: the first 250 bytes come from a remote
// block that was truncated, the rest from a local write. The manifest
// is valid but cannot sync until reshaped.
func TestLocalFileManifestReshape(t *testing.T) {
	author := mustDeviceID(t, "alice@dev1")
	timestamp := mustDateTime(t, "2000-01-02T00:00:00+00:00")

	manifest, err := NewLocalFileManifest(author, ref.NewEntryID(), 512, timestamp)
	if err != nil {
		t.Fatalf("NewLocalFileManifest: %v", err)
	}

	truncatedBlock := Chunk{
		ID:        ref.NewChunkID(),
		Start:     0,
		Stop:      250,
		RawOffset: 0,
		RawSize:   512,
		Access:    func() *data.BlockAccess { a := testBlockAccess(t, 0, 512); return &a }(),
	}
	localWrite := Chunk{
		ID:        ref.NewChunkID(),
		Start:     250,
		Stop:      500,
		RawOffset: 250,
		RawSize:   250,
	}
	manifest = manifest.EvolveAndMarkUpdated(500, [][]Chunk{{truncatedBlock, localWrite}}, timestamp)

	if err := manifest.AssertIntegrity(); err != nil {
		t.Fatalf("AssertIntegrity: %v", err)
	}
	if manifest.IsReshaped() {
		t.Fatal("two-chunk block reported as reshaped")
	}
	if _, err := manifest.ToRemote(author, timestamp); !errors.Is(err, ErrNotReshaped) {
		t.Fatalf("ToRemote on unreshaped: got %v, want ErrNotReshaped", err)
	}

	// Reshape: one chunk spanning the whole block, uploaded.
	merged, err := NewChunk(0, 500)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	uploaded, err := merged.EvolveAsBlock(make([]byte, 500))
	if err != nil {
		t.Fatalf("EvolveAsBlock: %v", err)
	}
	if err := manifest.SetSingleBlock(0, uploaded); err != nil {
		t.Fatalf("SetSingleBlock: %v", err)
	}
	if !manifest.IsReshaped() {
		t.Fatal("single uploaded chunk not reported as reshaped")
	}

	remote, err := manifest.ToRemote(author, timestamp)
	if err != nil {
		t.Fatalf("ToRemote: %v", err)
	}
	if remote.Size != 500 || len(remote.Blocks) != 1 || remote.Blocks[0].Size != 500 {
		t.Errorf("remote = size %d, %d blocks", remote.Size, len(remote.Blocks))
	}
	if remote.Version != 1 {
		t.Errorf("Version = %d, want 1 (placeholder bump)", remote.Version)
	}
	if err := remote.Validate(); err != nil {
		t.Errorf("remote manifest invalid: %v", err)
	}
}

func TestLocalFileManifestFromRemoteRoundTrip(t *testing.T) {
	author := mustDeviceID(t, "alice@dev1")
	timestamp := mustDateTime(t, "2000-01-02T00:00:00+00:00")
	remote := &data.FileManifest{
		ManifestMeta: data.ManifestMeta{
			Author:    author,
			Timestamp: timestamp,
			ID:        ref.NewEntryID(),
			Version:   3,
			Created:   timestamp,
			Updated:   timestamp,
		},
		Parent:    ref.NewEntryID(),
		Size:      1024,
		Blocksize: 512,
		Blocks: []data.BlockAccess{
			testBlockAccess(t, 0, 512),
			testBlockAccess(t, 512, 512),
		},
	}

	manifest, err := FileFromRemote(remote)
	if err != nil {
		t.Fatalf("FileFromRemote: %v", err)
	}
	if manifest.NeedSync {
		t.Error("fresh local view needs sync")
	}
	if !manifest.IsReshaped() {
		t.Error("local view of remote manifest is not reshaped")
	}
	if !manifest.MatchRemote(remote) {
		t.Error("local view does not match its own remote")
	}

	projected, err := manifest.ToRemote(author, timestamp)
	if err != nil {
		t.Fatalf("ToRemote: %v", err)
	}
	if projected.Version != 4 {
		t.Errorf("Version = %d, want base+1", projected.Version)
	}
	if projected.Size != remote.Size || len(projected.Blocks) != 2 {
		t.Errorf("projection lost data: %+v", projected)
	}
}

func TestLocalFileManifestIntegrityViolations(t *testing.T) {
	author := mustDeviceID(t, "alice@dev1")
	timestamp := mustDateTime(t, "2000-01-02T00:00:00+00:00")
	manifest, err := NewLocalFileManifest(author, ref.NewEntryID(), 512, timestamp)
	if err != nil {
		t.Fatalf("NewLocalFileManifest: %v", err)
	}

	first, err := NewChunk(0, 200)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	gapped, err := NewChunk(300, 500)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	bad := manifest.EvolveAndMarkUpdated(500, [][]Chunk{{first, gapped}}, timestamp)
	if err := bad.AssertIntegrity(); !errors.Is(err, ErrInvalidManifest) {
		t.Errorf("gap between chunks: got %v", err)
	}

	misaligned, err := NewChunk(1, 500)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	bad = manifest.EvolveAndMarkUpdated(500, [][]Chunk{{misaligned}}, timestamp)
	if err := bad.AssertIntegrity(); !errors.Is(err, ErrInvalidManifest) {
		t.Errorf("first chunk off the slot boundary: got %v", err)
	}

	short, err := NewChunk(0, 100)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	bad = manifest.EvolveAndMarkUpdated(500, [][]Chunk{{short}}, timestamp)
	if err := bad.AssertIntegrity(); !errors.Is(err, ErrInvalidManifest) {
		t.Errorf("undercovered slot: got %v", err)
	}
}

func TestLocalFileManifestEncryptedRoundTrip(t *testing.T) {
	author := mustDeviceID(t, "alice@dev1")
	timestamp := mustDateTime(t, "2000-01-02T00:00:00+00:00")
	key := mustSecretKey(t)

	remote := &data.FileManifest{
		ManifestMeta: data.ManifestMeta{
			Author:    author,
			Timestamp: timestamp,
			ID:        ref.NewEntryID(),
			Version:   1,
			Created:   timestamp,
			Updated:   timestamp,
		},
		Parent:    ref.NewEntryID(),
		Size:      512,
		Blocksize: 512,
		Blocks:    []data.BlockAccess{testBlockAccess(t, 0, 512)},
	}
	manifest, err := FileFromRemote(remote)
	if err != nil {
		t.Fatalf("FileFromRemote: %v", err)
	}

	ciphered, err := manifest.DumpAndEncrypt(key)
	if err != nil {
		t.Fatalf("DumpAndEncrypt: %v", err)
	}
	loaded, err := DecryptAndLoadLocalManifest(ciphered, key)
	if err != nil {
		t.Fatalf("DecryptAndLoadLocalManifest: %v", err)
	}
	file, ok := loaded.(*LocalFileManifest)
	if !ok {
		t.Fatalf("loaded %T, want *LocalFileManifest", loaded)
	}
	if file.Base.ID != remote.ID || file.Base.Version != 1 {
		t.Errorf("base lost: %+v", file.Base.ManifestMeta)
	}
	if !file.MatchRemote(remote) {
		t.Error("decrypted manifest no longer matches the remote")
	}
}
