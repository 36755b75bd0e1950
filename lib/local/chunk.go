// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"fmt"

	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/data"
	"github.com/parsec-foundation/parsec/lib/ref"
)

// Chunk is one piece of locally written file data. Start and Stop
// bound the logical span the chunk currently covers; RawOffset and
// RawSize describe the stored buffer, which may be larger when the
// chunk has been truncated by later writes. Access is set once the
// chunk's data has been uploaded as a remote block.
type Chunk struct {
	ID        ref.ChunkID
	Start     uint64
	Stop      uint64
	RawOffset uint64
	RawSize   uint64
	Access    *data.BlockAccess
}

// NewChunk creates a chunk for freshly written data covering
// [start, stop).
func NewChunk(start, stop uint64) (Chunk, error) {
	if start >= stop {
		return Chunk{}, fmt.Errorf("%w: chunk start %d is not below stop %d", ErrInvalidManifest, start, stop)
	}
	return Chunk{
		ID:        ref.NewChunkID(),
		Start:     start,
		Stop:      stop,
		RawOffset: start,
		RawSize:   stop - start,
	}, nil
}

// ChunkFromBlockAccess wraps a remote block into a chunk covering it
// exactly. The chunk ID reuses the block's UUID so EvolveAsBlock is a
// fixed point across round trips.
func ChunkFromBlockAccess(access data.BlockAccess) Chunk {
	copied := access
	return Chunk{
		ID:        ref.ChunkIDFromBlockID(access.ID),
		Start:     access.Offset,
		Stop:      access.Offset + access.Size,
		RawOffset: access.Offset,
		RawSize:   access.Size,
		Access:    &copied,
	}
}

// Validate checks the chunk's internal bounds.
func (c Chunk) Validate() error {
	if c.ID.IsZero() {
		return fmt.Errorf("%w: chunk missing id", ErrInvalidManifest)
	}
	if c.Start >= c.Stop {
		return fmt.Errorf("%w: chunk start %d is not below stop %d", ErrInvalidManifest, c.Start, c.Stop)
	}
	if c.RawOffset > c.Start || c.Stop > c.RawOffset+c.RawSize {
		return fmt.Errorf("%w: chunk [%d, %d) escapes its raw buffer [%d, %d)", ErrInvalidManifest, c.Start, c.Stop, c.RawOffset, c.RawOffset+c.RawSize)
	}
	if c.Access != nil && (c.Access.Offset != c.RawOffset || c.Access.Size != c.RawSize) {
		// A chunk may cover only part of its block (after a truncating
		// write), but the raw buffer always is the block itself.
		return fmt.Errorf("%w: chunk access does not match its raw buffer", ErrInvalidManifest)
	}
	return nil
}

// IsPseudoBlock reports whether the chunk covers its raw buffer
// exactly, which is the shape required to upload it as a block.
func (c Chunk) IsPseudoBlock() bool {
	return c.Start == c.RawOffset && c.Stop-c.Start == c.RawSize
}

// IsBlock reports whether the chunk is an uploaded remote block
// covered in full: it has an access and its logical span is the whole
// raw buffer.
func (c Chunk) IsBlock() bool {
	return c.Access != nil && c.IsPseudoBlock()
}

// EvolveAsBlock attaches a BlockAccess for the chunk's data, making it
// eligible for ToRemote. No-op if the chunk already is a block. The
// chunk must be a pseudo block and content must be the chunk's bytes.
func (c Chunk) EvolveAsBlock(content []byte) (Chunk, error) {
	if c.IsBlock() {
		return c, nil
	}
	if !c.IsPseudoBlock() {
		return Chunk{}, fmt.Errorf("%w: chunk does not cover its raw buffer", ErrInvalidManifest)
	}
	if uint64(len(content)) != c.Stop-c.Start {
		return Chunk{}, fmt.Errorf("%w: content is %d bytes, chunk spans %d", ErrInvalidManifest, len(content), c.Stop-c.Start)
	}
	key, err := crypto.NewSecretKey()
	if err != nil {
		return Chunk{}, err
	}
	evolved := c
	evolved.Access = &data.BlockAccess{
		ID:     c.ID.BlockID(),
		Key:    key,
		Offset: c.Start,
		Size:   c.Stop - c.Start,
		Digest: crypto.HashData(content),
	}
	return evolved, nil
}

type chunkWire struct {
	ID        ref.ChunkID       `cbor:"id"`
	Start     uint64            `cbor:"start"`
	Stop      uint64            `cbor:"stop"`
	RawOffset uint64            `cbor:"raw_offset"`
	RawSize   uint64            `cbor:"raw_size"`
	Access    *data.BlockAccess `cbor:"access"`
}

func (c Chunk) toWire() chunkWire {
	return chunkWire{
		ID:        c.ID,
		Start:     c.Start,
		Stop:      c.Stop,
		RawOffset: c.RawOffset,
		RawSize:   c.RawSize,
		Access:    c.Access,
	}
}

func (w chunkWire) toChunk() (Chunk, error) {
	chunk := Chunk{
		ID:        w.ID,
		Start:     w.Start,
		Stop:      w.Stop,
		RawOffset: w.RawOffset,
		RawSize:   w.RawSize,
		Access:    w.Access,
	}
	if err := chunk.Validate(); err != nil {
		return Chunk{}, err
	}
	return chunk, nil
}
