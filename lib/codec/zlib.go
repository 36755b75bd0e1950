// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Compress wraps data in a zlib stream. The signing and encryption
// envelopes compress the canonical encoding before signing, so the
// compressed form is part of the signed bytes.
func Compress(data []byte) []byte {
	var buffer bytes.Buffer
	writer := zlib.NewWriter(&buffer)
	if _, err := writer.Write(data); err != nil {
		// bytes.Buffer writes cannot fail.
		panic("codec: zlib compression failed: " + err.Error())
	}
	if err := writer.Close(); err != nil {
		panic("codec: zlib finalization failed: " + err.Error())
	}
	return buffer.Bytes()
}

// Decompress inflates a zlib stream produced by Compress. maxSize
// bounds the inflated output so a hostile payload cannot balloon
// memory; pass 0 for no limit (local, trusted data only).
func Decompress(data []byte, maxSize int64) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: not a zlib stream: %v", ErrMalformed, err)
	}
	defer reader.Close()

	var limited io.Reader = reader
	if maxSize > 0 {
		limited = io.LimitReader(reader, maxSize+1)
	}
	inflated, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated zlib stream: %v", ErrMalformed, err)
	}
	if maxSize > 0 && int64(len(inflated)) > maxSize {
		return nil, fmt.Errorf("%w: inflated payload exceeds %d bytes", ErrMalformed, maxSize)
	}
	return inflated, nil
}
