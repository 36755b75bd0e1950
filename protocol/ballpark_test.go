// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"errors"
	"testing"
	"time"

	"github.com/parsec-foundation/parsec/lib/ref"
)

func TestTimestampInBallpark(t *testing.T) {
	backend := mustDateTime(t, "2000-01-02T12:00:00+00:00")

	cases := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{"exact", 0, true},
		{"early boundary", -BallparkClientEarlyOffset, true},
		{"too early", -BallparkClientEarlyOffset - time.Second, false},
		{"late boundary", BallparkClientLateOffset, true},
		{"too late", BallparkClientLateOffset + time.Second, false},
	}
	for _, tc := range cases {
		client := backend.Add(tc.offset)
		if got := TimestampInBallpark(client, backend); got != tc.want {
			t.Errorf("%s: TimestampInBallpark = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestBadTimestampResponseRoundTrip(t *testing.T) {
	backend := mustDateTime(t, "2000-01-02T12:00:00+00:00")
	client := backend.Add(-10 * time.Minute)

	raw, err := DumpBadTimestampResponse(client, backend)
	if err != nil {
		t.Fatalf("DumpBadTimestampResponse: %v", err)
	}
	err = LoadResponse(raw, &VlobUpdateResponse{})
	var bad *BadTimestampError
	if !errors.As(err, &bad) {
		t.Fatalf("got %v, want BadTimestampError", err)
	}
	if bad.BallparkClientEarlyOffset != BallparkClientEarlyOffset {
		t.Errorf("early offset = %s", bad.BallparkClientEarlyOffset)
	}
	if bad.BallparkClientLateOffset != BallparkClientLateOffset {
		t.Errorf("late offset = %s", bad.BallparkClientLateOffset)
	}
	if !bad.BackendTimestamp.Equal(backend) || !bad.ClientTimestamp.Equal(client) {
		t.Errorf("timestamps = %s / %s", bad.BackendTimestamp, bad.ClientTimestamp)
	}
}

func mustDateTime(t *testing.T, raw string) ref.DateTime {
	t.Helper()
	timestamp, err := ref.ParseDateTime(raw)
	if err != nil {
		t.Fatalf("ParseDateTime(%q): %v", raw, err)
	}
	return timestamp
}
