// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Frame size limits. Control frames cover the handshake and ordinary
// commands; the payload limit applies to streams carrying vlob or
// block content.
const (
	MaxControlFrame = 1 << 20
	MaxPayloadFrame = 64 << 20
)

// WriteFrame writes one length-prefixed message: a big-endian uint32
// length followed by the payload.
func WriteFrame(w io.Writer, payload []byte, maxSize uint32) error {
	if uint64(len(payload)) > uint64(maxSize) {
		return fmt.Errorf("%w: frame of %d bytes exceeds the %d byte limit", ErrProtocol, len(payload), maxSize)
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed message. Oversized frames fail
// with ErrProtocol before any payload byte is read, leaving the
// stream positioned at the start of the rejected payload.
func ReadFrame(r io.Reader, maxSize uint32) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxSize {
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds the %d byte limit", ErrProtocol, size, maxSize)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
