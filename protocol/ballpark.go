// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"
	"time"

	"github.com/parsec-foundation/parsec/lib/codec"
	"github.com/parsec-foundation/parsec/lib/ref"
)

// Ballpark offsets: a command timestamp is accepted when it is at most
// BallparkClientEarlyOffset behind and BallparkClientLateOffset ahead
// of the server clock. The late offset is wider to absorb the request
// transit time.
const (
	BallparkClientEarlyOffset = 300 * time.Second
	BallparkClientLateOffset  = 320 * time.Second
)

// TimestampInBallpark reports whether a client timestamp is close
// enough to the backend clock to be accepted.
func TimestampInBallpark(client, backend ref.DateTime) bool {
	delta := backend.Sub(client)
	return delta <= BallparkClientEarlyOffset && -delta <= BallparkClientLateOffset
}

// BadTimestampError is the bad_timestamp response: it carries both
// clocks and both offsets so the client can re-issue the command with
// a corrected timestamp.
type BadTimestampError struct {
	BallparkClientEarlyOffset time.Duration
	BallparkClientLateOffset  time.Duration
	BackendTimestamp          ref.DateTime
	ClientTimestamp           ref.DateTime
}

func (e *BadTimestampError) Error() string {
	return fmt.Sprintf("timestamp %s out of ballpark (backend clock %s)",
		e.ClientTimestamp, e.BackendTimestamp)
}

type badTimestampWire struct {
	Status                    string       `cbor:"status"`
	BallparkClientEarlyOffset float64      `cbor:"ballpark_client_early_offset"`
	BallparkClientLateOffset  float64      `cbor:"ballpark_client_late_offset"`
	BackendTimestamp          ref.DateTime `cbor:"backend_timestamp"`
	ClientTimestamp           ref.DateTime `cbor:"client_timestamp"`
}

// DumpBadTimestampResponse builds the bad_timestamp response a server
// sends when a command timestamp falls outside the ballpark.
func DumpBadTimestampResponse(client, backend ref.DateTime) ([]byte, error) {
	return codec.Marshal(&badTimestampWire{
		Status:                    statusBadTimestamp,
		BallparkClientEarlyOffset: BallparkClientEarlyOffset.Seconds(),
		BallparkClientLateOffset:  BallparkClientLateOffset.Seconds(),
		BackendTimestamp:          backend,
		ClientTimestamp:           client,
	})
}

func loadBadTimestamp(raw []byte) error {
	var wire badTimestampWire
	if err := codec.Unmarshal(raw, &wire); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return &BadTimestampError{
		BallparkClientEarlyOffset: time.Duration(wire.BallparkClientEarlyOffset * float64(time.Second)),
		BallparkClientLateOffset:  time.Duration(wire.BallparkClientLateOffset * float64(time.Second)),
		BackendTimestamp:          wire.BackendTimestamp,
		ClientTimestamp:           wire.ClientTimestamp,
	}
}
