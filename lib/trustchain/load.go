// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package trustchain

import (
	"fmt"

	"github.com/parsec-foundation/parsec/lib/data"
	"github.com/parsec-foundation/parsec/lib/ref"
)

// loadState is the working set of one verification pass. It indexes
// the unverified inputs by subject, memoizes verified certificates,
// and tracks the devices currently on the recursion stack for loop
// detection. Verified entries are written back to the Context caches
// only when the whole pass succeeds.
type loadState struct {
	ctx *Context

	users       map[ref.UserID]*data.UnsecureUserCertificate
	revocations map[ref.UserID]*data.UnsecureRevokedUserCertificate
	devices     map[ref.DeviceID]*data.UnsecureDeviceCertificate

	verifiedUsers       map[ref.UserID]*data.UserCertificate
	verifiedRevocations map[ref.UserID]*data.RevokedUserCertificate
	verifiedDevices     map[ref.DeviceID]*data.DeviceCertificate

	verifying map[ref.DeviceID]bool
}

func (c *Context) newLoadState(tc Trustchain, userCertif, revokedUserCertif []byte, deviceCertifs [][]byte) (*loadState, error) {
	state := &loadState{
		ctx:                 c,
		users:               make(map[ref.UserID]*data.UnsecureUserCertificate),
		revocations:         make(map[ref.UserID]*data.UnsecureRevokedUserCertificate),
		devices:             make(map[ref.DeviceID]*data.UnsecureDeviceCertificate),
		verifiedUsers:       make(map[ref.UserID]*data.UserCertificate),
		verifiedRevocations: make(map[ref.UserID]*data.RevokedUserCertificate),
		verifiedDevices:     make(map[ref.DeviceID]*data.DeviceCertificate),
		verifying:           make(map[ref.DeviceID]bool),
	}

	userPayloads := tc.Users
	if userCertif != nil {
		userPayloads = append(userPayloads[:len(userPayloads):len(userPayloads)], userCertif)
	}
	for _, signed := range userPayloads {
		unsecure, err := data.UnsecureLoadUserCertificate(signed)
		if err != nil {
			return nil, err
		}
		state.users[unsecure.UserID()] = unsecure
	}

	revokedPayloads := tc.RevokedUsers
	if revokedUserCertif != nil {
		revokedPayloads = append(revokedPayloads[:len(revokedPayloads):len(revokedPayloads)], revokedUserCertif)
	}
	for _, signed := range revokedPayloads {
		unsecure, err := data.UnsecureLoadRevokedUserCertificate(signed)
		if err != nil {
			return nil, err
		}
		state.revocations[unsecure.UserID()] = unsecure
	}

	devicePayloads := tc.Devices
	if len(deviceCertifs) > 0 {
		devicePayloads = append(devicePayloads[:len(devicePayloads):len(devicePayloads)], deviceCertifs...)
	}
	for _, signed := range devicePayloads {
		unsecure, err := data.UnsecureLoadDeviceCertificate(signed)
		if err != nil {
			return nil, err
		}
		state.devices[unsecure.DeviceID()] = unsecure
	}

	// Fresh cache entries short-circuit re-verification. Stale entries
	// are ignored, not evicted; a successful pass overwrites them.
	c.mu.Lock()
	for id, entry := range c.users {
		if c.fresh(entry.cachedAt) {
			state.verifiedUsers[id] = entry.cert
		}
	}
	for id, entry := range c.revocations {
		if c.fresh(entry.cachedAt) {
			state.verifiedRevocations[id] = entry.cert
		}
	}
	for id, entry := range c.devices {
		if c.fresh(entry.cachedAt) {
			state.verifiedDevices[id] = entry.cert
		}
	}
	c.mu.Unlock()

	return state, nil
}

func (s *loadState) verifyDevice(id ref.DeviceID, path []string) (*data.DeviceCertificate, error) {
	if cert, ok := s.verifiedDevices[id]; ok {
		return cert, nil
	}
	if s.verifying[id] {
		return nil, chainError(append(path, id.String()), "Invalid signature loop detected")
	}
	unsecure, ok := s.devices[id]
	if !ok {
		return nil, chainError(path, fmt.Sprintf("Missing device certificate for %s", id))
	}

	s.verifying[id] = true
	defer delete(s.verifying, id)
	path = append(path, id.String())

	author := unsecure.Author()
	var cert *data.DeviceCertificate
	if author.IsRoot() {
		verified, err := unsecure.VerifySignature(s.ctx.rootVerifyKey)
		if err != nil {
			return nil, chainError(path, "Invalid signature")
		}
		cert = verified
	} else {
		authorCert, err := s.verifyDevice(author.DeviceID(), path)
		if err != nil {
			return nil, err
		}
		verified, err := unsecure.VerifySignature(authorCert.VerifyKey)
		if err != nil {
			return nil, chainError(path, "Invalid signature")
		}
		// A user may sign its own extra devices; anyone else needs the
		// ADMIN profile.
		selfSigned := author.DeviceID().UserID() == id.UserID()
		if err := s.checkAuthor(author.DeviceID(), verified.Timestamp, path, !selfSigned); err != nil {
			return nil, err
		}
		cert = verified
	}

	s.verifiedDevices[id] = cert
	return cert, nil
}

func (s *loadState) verifyUser(id ref.UserID, path []string) (*data.UserCertificate, error) {
	if cert, ok := s.verifiedUsers[id]; ok {
		return cert, nil
	}
	unsecure, ok := s.users[id]
	if !ok {
		return nil, chainError(path, fmt.Sprintf("Missing user certificate for %s", id))
	}
	path = append(path, id.String())

	author := unsecure.Author()
	var cert *data.UserCertificate
	if author.IsRoot() {
		verified, err := unsecure.VerifySignature(s.ctx.rootVerifyKey)
		if err != nil {
			return nil, chainError(path, "Invalid signature")
		}
		cert = verified
	} else {
		if author.DeviceID().UserID() == id {
			return nil, chainError(path, "Invalid self-signed user certificate")
		}
		authorCert, err := s.verifyDevice(author.DeviceID(), path)
		if err != nil {
			return nil, err
		}
		verified, err := unsecure.VerifySignature(authorCert.VerifyKey)
		if err != nil {
			return nil, chainError(path, "Invalid signature")
		}
		if err := s.checkAuthor(author.DeviceID(), verified.Timestamp, path, true); err != nil {
			return nil, err
		}
		cert = verified
	}

	s.verifiedUsers[id] = cert
	return cert, nil
}

func (s *loadState) verifyRevocation(id ref.UserID, path []string) (*data.RevokedUserCertificate, error) {
	if cert, ok := s.verifiedRevocations[id]; ok {
		return cert, nil
	}
	unsecure, ok := s.revocations[id]
	if !ok {
		return nil, nil
	}
	path = append(path, id.String())

	author := unsecure.Author()
	if author.IsRoot() {
		cert, err := unsecure.VerifySignature(s.ctx.rootVerifyKey)
		if err != nil {
			return nil, chainError(path, "Invalid signature")
		}
		s.verifiedRevocations[id] = cert
		return cert, nil
	}
	if author.DeviceID().UserID() == id {
		return nil, chainError(path, "Invalid self-signed user revocation certificate")
	}
	authorCert, err := s.verifyDevice(author.DeviceID(), path)
	if err != nil {
		return nil, err
	}
	cert, err := unsecure.VerifySignature(authorCert.VerifyKey)
	if err != nil {
		return nil, chainError(path, "Invalid signature")
	}
	if err := s.checkAuthor(author.DeviceID(), cert.Timestamp, path, true); err != nil {
		return nil, err
	}

	s.verifiedRevocations[id] = cert
	return cert, nil
}

// checkAuthor enforces the signing rules on the author's user at the
// time the certificate was produced: the user must exist, must not be
// revoked yet, and, when requireAdmin is set, must hold the ADMIN
// profile.
func (s *loadState) checkAuthor(authorDevice ref.DeviceID, signedAt ref.DateTime, path []string, requireAdmin bool) error {
	authorUser := authorDevice.UserID()
	userCert, err := s.verifyUser(authorUser, path)
	if err != nil {
		return err
	}
	revocation, err := s.verifyRevocation(authorUser, path)
	if err != nil {
		return err
	}
	if revocation != nil && signedAt.After(revocation.Timestamp) {
		return chainError(path, fmt.Sprintf(
			"Signature (%s) is posterior to user revocation (%s)", signedAt, revocation.Timestamp))
	}
	if requireAdmin && !userCert.Profile.IsAdmin() {
		return chainError(path, fmt.Sprintf("Invalid signature given %s is not admin", authorUser))
	}
	return nil
}
