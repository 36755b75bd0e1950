// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package trustchain

import (
	"fmt"
	"sync"
	"time"

	"github.com/parsec-foundation/parsec/lib/clock"
	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/data"
	"github.com/parsec-foundation/parsec/lib/ref"
)

// DefaultCacheTTL bounds how long a verified certificate is reused
// without re-checking its signature chain.
const DefaultCacheTTL = 30 * time.Minute

// Trustchain is the supporting certificate material a server sends
// alongside a query result: every certificate needed to walk the
// author chains of the requested user and devices back to the root
// key. All payloads are raw signed bytes.
type Trustchain struct {
	Users        [][]byte
	RevokedUsers [][]byte
	Devices      [][]byte
}

// Context verifies certificates for a single organization. It caches
// successful verifications keyed by user and device ID; an entry is
// reused until the cache TTL elapses. A Context must not be shared
// across organizations since it pins one root verify key.
//
// The three caches are guarded by one mutex and invalidated as one
// unit, so a user, its revocation, and its devices never come from
// different generations.
type Context struct {
	rootVerifyKey crypto.VerifyKey
	clock         clock.Clock
	cacheTTL      time.Duration

	mu          sync.Mutex
	users       map[ref.UserID]cachedEntry[*data.UserCertificate]
	revocations map[ref.UserID]cachedEntry[*data.RevokedUserCertificate]
	devices     map[ref.DeviceID]cachedEntry[*data.DeviceCertificate]
}

type cachedEntry[T any] struct {
	cert     T
	cachedAt time.Time
}

// New builds a verification context for the organization owning
// rootVerifyKey. Pass clock.Real() outside of tests.
func New(rootVerifyKey crypto.VerifyKey, clk clock.Clock, cacheTTL time.Duration) *Context {
	return &Context{
		rootVerifyKey: rootVerifyKey,
		clock:         clk,
		cacheTTL:      cacheTTL,
		users:         make(map[ref.UserID]cachedEntry[*data.UserCertificate]),
		revocations:   make(map[ref.UserID]cachedEntry[*data.RevokedUserCertificate]),
		devices:       make(map[ref.DeviceID]cachedEntry[*data.DeviceCertificate]),
	}
}

// InvalidateCache drops every cached verification at once.
func (c *Context) InvalidateCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = make(map[ref.UserID]cachedEntry[*data.UserCertificate])
	c.revocations = make(map[ref.UserID]cachedEntry[*data.RevokedUserCertificate])
	c.devices = make(map[ref.DeviceID]cachedEntry[*data.DeviceCertificate])
}

// GetUser returns the cached verified certificate for the user, or nil
// if it is absent or stale.
func (c *Context) GetUser(id ref.UserID) *data.UserCertificate {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.users[id]; ok && c.fresh(entry.cachedAt) {
		return entry.cert
	}
	return nil
}

// GetRevokedUser returns the cached verified revocation for the user,
// or nil if it is absent or stale.
func (c *Context) GetRevokedUser(id ref.UserID) *data.RevokedUserCertificate {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.revocations[id]; ok && c.fresh(entry.cachedAt) {
		return entry.cert
	}
	return nil
}

// GetDevice returns the cached verified certificate for the device, or
// nil if it is absent or stale.
func (c *Context) GetDevice(id ref.DeviceID) *data.DeviceCertificate {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.devices[id]; ok && c.fresh(entry.cachedAt) {
		return entry.cert
	}
	return nil
}

func (c *Context) fresh(cachedAt time.Time) bool {
	return c.clock.Now().Sub(cachedAt) < c.cacheTTL
}

// LoadTrustchain verifies every certificate in the batch and returns
// the verified users, revocations, and devices in input order. Nothing
// is cached if any chain is broken.
func (c *Context) LoadTrustchain(tc Trustchain) ([]*data.UserCertificate, []*data.RevokedUserCertificate, []*data.DeviceCertificate, error) {
	state, err := c.newLoadState(tc, nil, nil, nil)
	if err != nil {
		return nil, nil, nil, err
	}

	users := make([]*data.UserCertificate, 0, len(tc.Users))
	for _, signed := range tc.Users {
		unsecure, err := data.UnsecureLoadUserCertificate(signed)
		if err != nil {
			return nil, nil, nil, err
		}
		cert, err := state.verifyUser(unsecure.UserID(), nil)
		if err != nil {
			return nil, nil, nil, err
		}
		users = append(users, cert)
	}
	revocations := make([]*data.RevokedUserCertificate, 0, len(tc.RevokedUsers))
	for _, signed := range tc.RevokedUsers {
		unsecure, err := data.UnsecureLoadRevokedUserCertificate(signed)
		if err != nil {
			return nil, nil, nil, err
		}
		cert, err := state.verifyRevocation(unsecure.UserID(), nil)
		if err != nil {
			return nil, nil, nil, err
		}
		revocations = append(revocations, cert)
	}
	devices := make([]*data.DeviceCertificate, 0, len(tc.Devices))
	for _, signed := range tc.Devices {
		unsecure, err := data.UnsecureLoadDeviceCertificate(signed)
		if err != nil {
			return nil, nil, nil, err
		}
		cert, err := state.verifyDevice(unsecure.DeviceID(), nil)
		if err != nil {
			return nil, nil, nil, err
		}
		devices = append(devices, cert)
	}

	c.commit(state)
	return users, revocations, devices, nil
}

// LoadUserAndDevices verifies a user certificate, its optional
// revocation, and its device certificates, using tc as supporting
// material for the author chains. Every subject must belong to
// expectedUserID. Verified devices are returned in input order.
// Nothing is cached if any chain is broken.
func (c *Context) LoadUserAndDevices(tc Trustchain, userCertif, revokedUserCertif []byte, deviceCertifs [][]byte, expectedUserID ref.UserID) (*data.UserCertificate, *data.RevokedUserCertificate, []*data.DeviceCertificate, error) {
	state, err := c.newLoadState(tc, userCertif, revokedUserCertif, deviceCertifs)
	if err != nil {
		return nil, nil, nil, err
	}

	unsecureUser, err := data.UnsecureLoadUserCertificate(userCertif)
	if err != nil {
		return nil, nil, nil, err
	}
	if unsecureUser.UserID() != expectedUserID {
		return nil, nil, nil, chainError(nil, fmt.Sprintf(
			"Unexpected certificate: expected user %s, got %s", expectedUserID, unsecureUser.UserID()))
	}

	user, err := state.verifyUser(expectedUserID, nil)
	if err != nil {
		return nil, nil, nil, err
	}

	var revocation *data.RevokedUserCertificate
	if revokedUserCertif != nil {
		unsecureRevoked, err := data.UnsecureLoadRevokedUserCertificate(revokedUserCertif)
		if err != nil {
			return nil, nil, nil, err
		}
		if unsecureRevoked.UserID() != expectedUserID {
			return nil, nil, nil, chainError(nil, fmt.Sprintf(
				"Unexpected certificate: expected user %s, got %s", expectedUserID, unsecureRevoked.UserID()))
		}
		revocation, err = state.verifyRevocation(expectedUserID, nil)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	devices := make([]*data.DeviceCertificate, 0, len(deviceCertifs))
	for _, signed := range deviceCertifs {
		unsecure, err := data.UnsecureLoadDeviceCertificate(signed)
		if err != nil {
			return nil, nil, nil, err
		}
		if unsecure.DeviceID().UserID() != expectedUserID {
			return nil, nil, nil, chainError(nil, fmt.Sprintf(
				"Unexpected certificate: expected user %s, got %s", expectedUserID, unsecure.DeviceID().UserID()))
		}
		cert, err := state.verifyDevice(unsecure.DeviceID(), nil)
		if err != nil {
			return nil, nil, nil, err
		}
		devices = append(devices, cert)
	}

	c.commit(state)
	return user, revocation, devices, nil
}

func (c *Context) commit(state *loadState) {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, cert := range state.verifiedUsers {
		c.users[id] = cachedEntry[*data.UserCertificate]{cert: cert, cachedAt: now}
	}
	for id, cert := range state.verifiedRevocations {
		c.revocations[id] = cachedEntry[*data.RevokedUserCertificate]{cert: cert, cachedAt: now}
	}
	for id, cert := range state.verifiedDevices {
		c.devices[id] = cachedEntry[*data.DeviceCertificate]{cert: cert, cachedAt: now}
	}
}
