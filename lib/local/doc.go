// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

// Package local holds the device-side mutable state: local manifests
// tracking unsynchronized changes on top of their remote base, and the
// LocalDevice key file that bootstraps a client session.
//
// Local payloads are stored with the local envelope: zlib-compressed
// canonical encoding encrypted under a device-local symmetric key.
// They are never signed; nothing local ever leaves the device in this
// form.
//
// Local manifests are evolved, not mutated: every change produces a
// new value, and the Evolve* helpers set need_sync and updated as a
// side effect so callers cannot forget. ToRemote converts back to a
// signed remote manifest when a sync pushes the changes.
package local
