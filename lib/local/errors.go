// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package local

import "errors"

var (
	// ErrInvalidManifest reports a local manifest (or chunk) that
	// violates its structural invariants.
	ErrInvalidManifest = errors.New("local: invalid manifest")

	// ErrNotReshaped reports a ToRemote call on a local file manifest
	// whose blocks are not yet one uploaded chunk each.
	ErrNotReshaped = errors.New("local: file manifest is not reshaped")

	// ErrInvalidDeviceFile reports an unreadable or malformed device
	// key file.
	ErrInvalidDeviceFile = errors.New("local: invalid device file")

	// ErrDecryptionFailed reports a device file that did not decrypt,
	// which almost always means a wrong passphrase.
	ErrDecryptionFailed = errors.New("local: device file decryption failed")
)
