// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"fmt"

	"github.com/parsec-foundation/parsec/lib/codec"
	"github.com/parsec-foundation/parsec/lib/crypto"
)

// Type discriminators carried by local manifest payloads.
const (
	typeLocalFileManifest      = "local_file_manifest"
	typeLocalFolderManifest    = "local_folder_manifest"
	typeLocalWorkspaceManifest = "local_workspace_manifest"
	typeLocalUserManifest      = "local_user_manifest"
)

// LocalManifest is any local manifest: file, folder, workspace or
// user.
type LocalManifest interface {
	// IsPlaceholder reports whether the manifest has never been
	// synchronized (base version 0).
	IsPlaceholder() bool

	// DumpAndEncrypt serializes the manifest into the local envelope
	// under the device symmetric key.
	DumpAndEncrypt(key crypto.SecretKey) ([]byte, error)
}

// DecryptAndLoadLocalManifest reverses the local envelope for any
// manifest type, dispatching on the type discriminator.
func DecryptAndLoadLocalManifest(ciphered []byte, key crypto.SecretKey) (LocalManifest, error) {
	discriminator, encoded, err := decryptAndProbeType(key, ciphered)
	if err != nil {
		return nil, err
	}
	switch discriminator {
	case typeLocalFileManifest:
		var wire localFileManifestWire
		if err := codec.Unmarshal(encoded, &wire); err != nil {
			return nil, err
		}
		return wire.toManifest()
	case typeLocalFolderManifest:
		var wire localFolderManifestWire
		if err := codec.Unmarshal(encoded, &wire); err != nil {
			return nil, err
		}
		return wire.toManifest()
	case typeLocalWorkspaceManifest:
		var wire localWorkspaceManifestWire
		if err := codec.Unmarshal(encoded, &wire); err != nil {
			return nil, err
		}
		return wire.toManifest()
	case typeLocalUserManifest:
		var wire localUserManifestWire
		if err := codec.Unmarshal(encoded, &wire); err != nil {
			return nil, err
		}
		return wire.toManifest()
	default:
		return nil, fmt.Errorf("%w: unknown local manifest type %q", ErrInvalidManifest, discriminator)
	}
}
