// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package trustchain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/parsec-foundation/parsec/lib/clock"
	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/data"
	"github.com/parsec-foundation/parsec/lib/ref"
)

// testOrg mints signed certificates for a toy organization. Device
// signing keys are created on demand so certificates can reference
// authors that are minted later (or never).
type testOrg struct {
	t       *testing.T
	rootKey crypto.SigningKey
	keys    map[string]crypto.SigningKey
}

func newTestOrg(t *testing.T) *testOrg {
	t.Helper()
	rootKey, err := crypto.NewSigningKey()
	if err != nil {
		t.Fatalf("NewSigningKey: %v", err)
	}
	return &testOrg{t: t, rootKey: rootKey, keys: make(map[string]crypto.SigningKey)}
}

func (o *testOrg) deviceKey(deviceID string) crypto.SigningKey {
	o.t.Helper()
	if key, ok := o.keys[deviceID]; ok {
		return key
	}
	key, err := crypto.NewSigningKey()
	if err != nil {
		o.t.Fatalf("NewSigningKey: %v", err)
	}
	o.keys[deviceID] = key
	return key
}

// author resolves the signing identity: "" means the organization root
// key, anything else a device ID.
func (o *testOrg) author(deviceID string) (data.Author, crypto.SigningKey) {
	o.t.Helper()
	if deviceID == "" {
		return data.RootAuthor(), o.rootKey
	}
	parsed, err := ref.ParseDeviceID(deviceID)
	if err != nil {
		o.t.Fatalf("ParseDeviceID(%q): %v", deviceID, err)
	}
	return data.DeviceAuthor(parsed), o.deviceKey(deviceID)
}

func (o *testOrg) userCertif(authorID, userID string, profile ref.UserProfile, timestamp ref.DateTime) []byte {
	o.t.Helper()
	author, key := o.author(authorID)
	parsed, err := ref.ParseUserID(userID)
	if err != nil {
		o.t.Fatalf("ParseUserID(%q): %v", userID, err)
	}
	privateKey, err := crypto.NewPrivateKey()
	if err != nil {
		o.t.Fatalf("NewPrivateKey: %v", err)
	}
	cert := &data.UserCertificate{
		Author:    author,
		Timestamp: timestamp,
		UserID:    parsed,
		PublicKey: privateKey.PublicKey(),
		Profile:   profile,
	}
	signed, err := cert.DumpAndSign(key)
	if err != nil {
		o.t.Fatalf("DumpAndSign: %v", err)
	}
	return signed
}

func (o *testOrg) deviceCertif(authorID, deviceID string, timestamp ref.DateTime) []byte {
	o.t.Helper()
	author, key := o.author(authorID)
	parsed, err := ref.ParseDeviceID(deviceID)
	if err != nil {
		o.t.Fatalf("ParseDeviceID(%q): %v", deviceID, err)
	}
	cert := &data.DeviceCertificate{
		Author:    author,
		Timestamp: timestamp,
		DeviceID:  parsed,
		VerifyKey: o.deviceKey(deviceID).VerifyKey(),
	}
	signed, err := cert.DumpAndSign(key)
	if err != nil {
		o.t.Fatalf("DumpAndSign: %v", err)
	}
	return signed
}

func (o *testOrg) revokedCertif(authorID, userID string, timestamp ref.DateTime) []byte {
	o.t.Helper()
	author, key := o.author(authorID)
	parsed, err := ref.ParseUserID(userID)
	if err != nil {
		o.t.Fatalf("ParseUserID(%q): %v", userID, err)
	}
	cert := &data.RevokedUserCertificate{
		Author:    author,
		Timestamp: timestamp,
		UserID:    parsed,
	}
	signed, err := cert.DumpAndSign(key)
	if err != nil {
		o.t.Fatalf("DumpAndSign: %v", err)
	}
	return signed
}

func (o *testOrg) context(clk clock.Clock, ttl time.Duration) *Context {
	return New(o.rootKey.VerifyKey(), clk, ttl)
}

func mustUserID(t *testing.T, raw string) ref.UserID {
	t.Helper()
	id, err := ref.ParseUserID(raw)
	if err != nil {
		t.Fatalf("ParseUserID(%q): %v", raw, err)
	}
	return id
}

func mustDateTime(t *testing.T, raw string) ref.DateTime {
	t.Helper()
	timestamp, err := ref.ParseDateTime(raw)
	if err != nil {
		t.Fatalf("ParseDateTime(%q): %v", raw, err)
	}
	return timestamp
}

func TestLoadUserAndDevicesVerifiesChain(t *testing.T) {
	org := newTestOrg(t)
	t1 := mustDateTime(t, "2000-01-02T00:00:00+00:00")
	t2 := mustDateTime(t, "2000-01-03T00:00:00+00:00")

	tc := Trustchain{
		Users:   [][]byte{org.userCertif("", "alice", ref.ProfileAdmin, t1)},
		Devices: [][]byte{org.deviceCertif("", "alice@dev1", t1)},
	}
	bobCertif := org.userCertif("alice@dev1", "bob", ref.ProfileStandard, t2)
	bobDevices := [][]byte{
		org.deviceCertif("alice@dev1", "bob@dev1", t2),
		org.deviceCertif("bob@dev1", "bob@dev2", t2),
	}

	ctx := org.context(clock.Fake(time.Date(2000, 2, 1, 0, 0, 0, 0, time.UTC)), time.Hour)
	user, revocation, devices, err := ctx.LoadUserAndDevices(tc, bobCertif, nil, bobDevices, mustUserID(t, "bob"))
	if err != nil {
		t.Fatalf("LoadUserAndDevices: %v", err)
	}
	if user.UserID.String() != "bob" || user.Profile != ref.ProfileStandard {
		t.Errorf("user = %+v", user)
	}
	if revocation != nil {
		t.Errorf("unexpected revocation %+v", revocation)
	}
	if len(devices) != 2 || devices[0].DeviceID.String() != "bob@dev1" || devices[1].DeviceID.String() != "bob@dev2" {
		t.Errorf("devices = %+v", devices)
	}

	// The whole chain, supporting material included, is now cached.
	if ctx.GetUser(mustUserID(t, "alice")) == nil {
		t.Error("supporting user certificate not cached")
	}
	if ctx.GetDevice(devices[1].DeviceID) == nil {
		t.Error("verified device certificate not cached")
	}
}

func TestLoadTrustchainBatch(t *testing.T) {
	org := newTestOrg(t)
	t1 := mustDateTime(t, "2000-01-02T00:00:00+00:00")
	t2 := mustDateTime(t, "2000-01-03T00:00:00+00:00")

	tc := Trustchain{
		Users: [][]byte{
			org.userCertif("", "alice", ref.ProfileAdmin, t1),
			org.userCertif("alice@dev1", "bob", ref.ProfileStandard, t2),
		},
		RevokedUsers: [][]byte{org.revokedCertif("alice@dev1", "bob", t2)},
		Devices: [][]byte{
			org.deviceCertif("", "alice@dev1", t1),
			org.deviceCertif("alice@dev1", "bob@dev1", t2),
		},
	}

	ctx := org.context(clock.Fake(time.Date(2000, 2, 1, 0, 0, 0, 0, time.UTC)), time.Hour)
	users, revocations, devices, err := ctx.LoadTrustchain(tc)
	if err != nil {
		t.Fatalf("LoadTrustchain: %v", err)
	}
	if len(users) != 2 || users[0].UserID.String() != "alice" || users[1].UserID.String() != "bob" {
		t.Errorf("users = %+v", users)
	}
	if len(revocations) != 1 || revocations[0].UserID.String() != "bob" {
		t.Errorf("revocations = %+v", revocations)
	}
	if len(devices) != 2 {
		t.Errorf("devices = %+v", devices)
	}
	if ctx.GetRevokedUser(mustUserID(t, "bob")) == nil {
		t.Error("revocation not cached")
	}
}

func TestNonAdminAuthorRejected(t *testing.T) {
	org := newTestOrg(t)
	t1 := mustDateTime(t, "2000-01-02T00:00:00+00:00")
	t2 := mustDateTime(t, "2000-01-03T00:00:00+00:00")

	tc := Trustchain{
		Users: [][]byte{
			org.userCertif("", "alice", ref.ProfileAdmin, t1),
			org.userCertif("alice@dev1", "bob", ref.ProfileStandard, t1),
		},
		Devices: [][]byte{
			org.deviceCertif("", "alice@dev1", t1),
			org.deviceCertif("alice@dev1", "bob@dev1", t1),
		},
	}
	malloryCertif := org.userCertif("bob@dev1", "mallory", ref.ProfileStandard, t2)
	malloryDevice := org.deviceCertif("bob@dev1", "mallory@dev1", t2)

	ctx := org.context(clock.Fake(time.Date(2000, 2, 1, 0, 0, 0, 0, time.UTC)), time.Hour)
	_, _, _, err := ctx.LoadUserAndDevices(tc, malloryCertif, nil, [][]byte{malloryDevice}, mustUserID(t, "mallory"))
	if !errors.Is(err, ErrTrustchain) {
		t.Fatalf("got %v, want trustchain error", err)
	}
	if !strings.Contains(err.Error(), "Invalid signature given bob is not admin") {
		t.Errorf("error = %q", err)
	}

	// A broken pass must not leak partial results into the cache.
	if ctx.GetUser(mustUserID(t, "alice")) != nil {
		t.Error("failed load poisoned the cache")
	}
}

func TestSignatureLoopDetected(t *testing.T) {
	org := newTestOrg(t)
	t1 := mustDateTime(t, "2000-01-02T00:00:00+00:00")

	// Both device certificates carry valid signatures; only the author
	// graph is cyclic.
	tc := Trustchain{
		Users: [][]byte{org.userCertif("", "alice", ref.ProfileAdmin, t1)},
		Devices: [][]byte{
			org.deviceCertif("bob@dev1", "alice@dev1", t1),
			org.deviceCertif("alice@dev1", "bob@dev1", t1),
		},
	}
	aliceCertif := org.userCertif("", "alice", ref.ProfileAdmin, t1)
	aliceDevice := org.deviceCertif("bob@dev1", "alice@dev1", t1)

	ctx := org.context(clock.Fake(time.Date(2000, 2, 1, 0, 0, 0, 0, time.UTC)), time.Hour)
	_, _, _, err := ctx.LoadUserAndDevices(tc, aliceCertif, nil, [][]byte{aliceDevice}, mustUserID(t, "alice"))
	if !errors.Is(err, ErrTrustchain) {
		t.Fatalf("got %v, want trustchain error", err)
	}
	if !strings.Contains(err.Error(), "Invalid signature loop detected") {
		t.Errorf("error = %q", err)
	}
	if !strings.Contains(err.Error(), " <-sign- ") {
		t.Errorf("error does not render the signature path: %q", err)
	}
}

func TestRevokedAuthorRejected(t *testing.T) {
	org := newTestOrg(t)
	t1 := mustDateTime(t, "2000-01-02T00:00:00+00:00")
	revokedAt := mustDateTime(t, "2000-01-05T00:00:00+00:00")
	afterRevocation := mustDateTime(t, "2000-01-06T00:00:00+00:00")

	tc := Trustchain{
		Users: [][]byte{
			org.userCertif("", "adam", ref.ProfileAdmin, t1),
			org.userCertif("adam@dev1", "alice", ref.ProfileAdmin, t1),
		},
		RevokedUsers: [][]byte{org.revokedCertif("adam@dev1", "alice", revokedAt)},
		Devices: [][]byte{
			org.deviceCertif("", "adam@dev1", t1),
			org.deviceCertif("adam@dev1", "alice@dev1", t1),
		},
	}
	bobCertif := org.userCertif("alice@dev1", "bob", ref.ProfileStandard, afterRevocation)
	bobDevice := org.deviceCertif("alice@dev1", "bob@dev1", afterRevocation)

	ctx := org.context(clock.Fake(time.Date(2000, 2, 1, 0, 0, 0, 0, time.UTC)), time.Hour)
	_, _, _, err := ctx.LoadUserAndDevices(tc, bobCertif, nil, [][]byte{bobDevice}, mustUserID(t, "bob"))
	if !errors.Is(err, ErrTrustchain) {
		t.Fatalf("got %v, want trustchain error", err)
	}
	if !strings.Contains(err.Error(), "is posterior to user revocation") {
		t.Errorf("error = %q", err)
	}
}

func TestSigningAtRevocationTimeAllowed(t *testing.T) {
	org := newTestOrg(t)
	t1 := mustDateTime(t, "2000-01-02T00:00:00+00:00")
	revokedAt := mustDateTime(t, "2000-01-05T00:00:00+00:00")

	tc := Trustchain{
		Users: [][]byte{
			org.userCertif("", "adam", ref.ProfileAdmin, t1),
			org.userCertif("adam@dev1", "alice", ref.ProfileAdmin, t1),
		},
		RevokedUsers: [][]byte{org.revokedCertif("adam@dev1", "alice", revokedAt)},
		Devices: [][]byte{
			org.deviceCertif("", "adam@dev1", t1),
			org.deviceCertif("adam@dev1", "alice@dev1", t1),
		},
	}
	bobCertif := org.userCertif("alice@dev1", "bob", ref.ProfileStandard, revokedAt)
	bobDevice := org.deviceCertif("alice@dev1", "bob@dev1", revokedAt)

	ctx := org.context(clock.Fake(time.Date(2000, 2, 1, 0, 0, 0, 0, time.UTC)), time.Hour)
	if _, _, _, err := ctx.LoadUserAndDevices(tc, bobCertif, nil, [][]byte{bobDevice}, mustUserID(t, "bob")); err != nil {
		t.Fatalf("signature at the revocation instant rejected: %v", err)
	}
}

func TestMissingDeviceCertificate(t *testing.T) {
	org := newTestOrg(t)
	t1 := mustDateTime(t, "2000-01-02T00:00:00+00:00")

	tc := Trustchain{
		Users: [][]byte{org.userCertif("", "alice", ref.ProfileAdmin, t1)},
		// alice@dev1's certificate is deliberately withheld.
	}
	bobCertif := org.userCertif("alice@dev1", "bob", ref.ProfileStandard, t1)

	ctx := org.context(clock.Fake(time.Date(2000, 2, 1, 0, 0, 0, 0, time.UTC)), time.Hour)
	_, _, _, err := ctx.LoadUserAndDevices(tc, bobCertif, nil, nil, mustUserID(t, "bob"))
	if !errors.Is(err, ErrTrustchain) {
		t.Fatalf("got %v, want trustchain error", err)
	}
	if !strings.Contains(err.Error(), "Missing device certificate for alice@dev1") {
		t.Errorf("error = %q", err)
	}
}

func TestSelfSignedUserRejected(t *testing.T) {
	org := newTestOrg(t)
	t1 := mustDateTime(t, "2000-01-02T00:00:00+00:00")

	tc := Trustchain{
		Devices: [][]byte{org.deviceCertif("", "alice@dev1", t1)},
	}
	aliceCertif := org.userCertif("alice@dev1", "alice", ref.ProfileAdmin, t1)

	ctx := org.context(clock.Fake(time.Date(2000, 2, 1, 0, 0, 0, 0, time.UTC)), time.Hour)
	_, _, _, err := ctx.LoadUserAndDevices(tc, aliceCertif, nil, nil, mustUserID(t, "alice"))
	if !errors.Is(err, ErrTrustchain) {
		t.Fatalf("got %v, want trustchain error", err)
	}
	if !strings.Contains(err.Error(), "Invalid self-signed user certificate") {
		t.Errorf("error = %q", err)
	}
}

func TestUnexpectedUserRejected(t *testing.T) {
	org := newTestOrg(t)
	t1 := mustDateTime(t, "2000-01-02T00:00:00+00:00")

	aliceCertif := org.userCertif("", "alice", ref.ProfileAdmin, t1)
	ctx := org.context(clock.Fake(time.Date(2000, 2, 1, 0, 0, 0, 0, time.UTC)), time.Hour)
	_, _, _, err := ctx.LoadUserAndDevices(Trustchain{}, aliceCertif, nil, nil, mustUserID(t, "bob"))
	if !errors.Is(err, ErrTrustchain) {
		t.Fatalf("got %v, want trustchain error", err)
	}
	if !strings.Contains(err.Error(), "Unexpected certificate") {
		t.Errorf("error = %q", err)
	}
}

func TestCacheServesUntilTTL(t *testing.T) {
	org := newTestOrg(t)
	t1 := mustDateTime(t, "2000-01-02T00:00:00+00:00")

	tc := Trustchain{
		Users:   [][]byte{org.userCertif("", "alice", ref.ProfileAdmin, t1)},
		Devices: [][]byte{org.deviceCertif("", "alice@dev1", t1)},
	}
	bobCertif := org.userCertif("alice@dev1", "bob", ref.ProfileStandard, t1)
	bobDevice := org.deviceCertif("alice@dev1", "bob@dev1", t1)

	fake := clock.Fake(time.Date(2000, 2, 1, 0, 0, 0, 0, time.UTC))
	ctx := org.context(fake, time.Hour)
	if _, _, _, err := ctx.LoadUserAndDevices(tc, bobCertif, nil, [][]byte{bobDevice}, mustUserID(t, "bob")); err != nil {
		t.Fatalf("LoadUserAndDevices: %v", err)
	}

	// The supporting chain is cached, so reloading bob no longer needs
	// alice's certificates.
	if _, _, _, err := ctx.LoadUserAndDevices(Trustchain{}, bobCertif, nil, [][]byte{bobDevice}, mustUserID(t, "bob")); err != nil {
		t.Fatalf("reload from cache: %v", err)
	}

	// Once the TTL elapses the chain must be re-proven.
	fake.Advance(time.Hour)
	_, _, _, err := ctx.LoadUserAndDevices(Trustchain{}, bobCertif, nil, [][]byte{bobDevice}, mustUserID(t, "bob"))
	if !errors.Is(err, ErrTrustchain) {
		t.Fatalf("got %v, want trustchain error after TTL expiry", err)
	}
	if !strings.Contains(err.Error(), "Missing device certificate for alice@dev1") {
		t.Errorf("error = %q", err)
	}
}

func TestInvalidateCache(t *testing.T) {
	org := newTestOrg(t)
	t1 := mustDateTime(t, "2000-01-02T00:00:00+00:00")

	tc := Trustchain{
		Users:   [][]byte{org.userCertif("", "alice", ref.ProfileAdmin, t1)},
		Devices: [][]byte{org.deviceCertif("", "alice@dev1", t1)},
	}
	ctx := org.context(clock.Fake(time.Date(2000, 2, 1, 0, 0, 0, 0, time.UTC)), time.Hour)
	if _, _, _, err := ctx.LoadTrustchain(tc); err != nil {
		t.Fatalf("LoadTrustchain: %v", err)
	}
	if ctx.GetUser(mustUserID(t, "alice")) == nil {
		t.Fatal("certificate not cached")
	}
	ctx.InvalidateCache()
	if ctx.GetUser(mustUserID(t, "alice")) != nil {
		t.Error("cache survived invalidation")
	}
}

func TestForgedSignatureRejected(t *testing.T) {
	org := newTestOrg(t)
	t1 := mustDateTime(t, "2000-01-02T00:00:00+00:00")

	// The certificate claims the root author but is signed by an
	// unrelated key.
	intruder, err := crypto.NewSigningKey()
	if err != nil {
		t.Fatalf("NewSigningKey: %v", err)
	}
	cert := &data.UserCertificate{
		Author:    data.RootAuthor(),
		Timestamp: t1,
		UserID:    mustUserID(t, "alice"),
		PublicKey: mustPublicKey(t),
		Profile:   ref.ProfileAdmin,
	}
	forged, err := cert.DumpAndSign(intruder)
	if err != nil {
		t.Fatalf("DumpAndSign: %v", err)
	}

	ctx := org.context(clock.Fake(time.Date(2000, 2, 1, 0, 0, 0, 0, time.UTC)), time.Hour)
	_, _, _, loadErr := ctx.LoadUserAndDevices(Trustchain{}, forged, nil, nil, mustUserID(t, "alice"))
	if !errors.Is(loadErr, ErrTrustchain) {
		t.Fatalf("got %v, want trustchain error", loadErr)
	}
	if !strings.Contains(loadErr.Error(), "Invalid signature") {
		t.Errorf("error = %q", loadErr)
	}
}

func mustPublicKey(t *testing.T) crypto.PublicKey {
	t.Helper()
	privateKey, err := crypto.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	return privateKey.PublicKey()
}
