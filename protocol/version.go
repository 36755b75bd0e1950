// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"
	"strings"

	"github.com/parsec-foundation/parsec/lib/codec"
)

func marshalPair(first, second int64) ([]byte, error) {
	return codec.Marshal([2]int64{first, second})
}

func unmarshalPair(data []byte) (int64, int64, error) {
	var pair [2]int64
	if err := codec.Unmarshal(data, &pair); err != nil {
		return 0, 0, err
	}
	return pair[0], pair[1], nil
}

// APIVersion identifies one revision of the command surface. Version
// gates compatibility; Revision is informational and never breaks the
// wire format.
type APIVersion struct {
	Version  uint32 `cbor:"version"`
	Revision uint32 `cbor:"revision"`
}

// Known API versions, newest first.
var (
	APIVersionV2 = APIVersion{Version: 2, Revision: 5}
	APIVersionV1 = APIVersion{Version: 1, Revision: 3}
)

// SupportedAPIVersions lists the versions this implementation speaks,
// newest first.
var SupportedAPIVersions = []APIVersion{APIVersionV2, APIVersionV1}

func (v APIVersion) String() string {
	return fmt.Sprintf("(%d,%d)", v.Version, v.Revision)
}

// MarshalCBOR encodes the version as a two-element array, the fixed
// wire shape shared with timestamps.
func (v APIVersion) MarshalCBOR() ([]byte, error) {
	return marshalPair(int64(v.Version), int64(v.Revision))
}

// UnmarshalCBOR accepts the two-element array form.
func (v *APIVersion) UnmarshalCBOR(data []byte) error {
	first, second, err := unmarshalPair(data)
	if err != nil {
		return fmt.Errorf("invalid API version encoding: %w", err)
	}
	if first < 0 || second < 0 {
		return fmt.Errorf("invalid API version (%d,%d)", first, second)
	}
	v.Version = uint32(first)
	v.Revision = uint32(second)
	return nil
}

// IncompatibleAPIVersionsError reports that no client version shares a
// major version with any backend version.
type IncompatibleAPIVersionsError struct {
	ClientVersions  []APIVersion
	BackendVersions []APIVersion
}

func (e *IncompatibleAPIVersionsError) Error() string {
	return fmt.Sprintf("No overlap between client API versions %s and backend API versions %s",
		renderVersionSet(e.ClientVersions), renderVersionSet(e.BackendVersions))
}

func renderVersionSet(versions []APIVersion) string {
	rendered := make([]string, len(versions))
	for i, v := range versions {
		rendered[i] = v.String()
	}
	return "{" + strings.Join(rendered, ",") + "}"
}

// SettleCompatibleVersions picks the newest client version whose
// Version number appears in the backend list and returns the matching
// pair (client first).
func SettleCompatibleVersions(clientVersions, backendVersions []APIVersion) (APIVersion, APIVersion, error) {
	var best, bestBackend APIVersion
	found := false
	for _, client := range clientVersions {
		for _, backend := range backendVersions {
			if client.Version != backend.Version {
				continue
			}
			if !found || client.Version > best.Version {
				best, bestBackend = client, backend
				found = true
			}
		}
	}
	if !found {
		return APIVersion{}, APIVersion{}, &IncompatibleAPIVersionsError{
			ClientVersions:  clientVersions,
			BackendVersions: backendVersions,
		}
	}
	return best, bestBackend, nil
}
