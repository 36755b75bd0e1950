// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package addr

import (
	"encoding/base32"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/ref"
)

// ErrInvalidAddr reports an address that does not parse as the
// requested kind.
var ErrInvalidAddr = errors.New("addr: invalid address")

// Scheme is the URL scheme of every Parsec address.
const Scheme = "parsec"

const (
	defaultSSLPort   = 443
	defaultPlainPort = 80
)

const (
	actionBootstrap   = "bootstrap_organization"
	actionClaimUser   = "claim_user"
	actionClaimDevice = "claim_device"
)

// BackendAddr names a Parsec server: hostname, port and whether the
// transport uses SSL. The port is omitted from the rendered URL when
// it is the scheme default.
type BackendAddr struct {
	hostname string
	port     uint16
	useSSL   bool
}

// NewBackendAddr builds a backend address. A zero port selects the
// default for the transport (443 with SSL, 80 without).
func NewBackendAddr(hostname string, port uint16, useSSL bool) (BackendAddr, error) {
	if hostname == "" {
		return BackendAddr{}, fmt.Errorf("%w: empty hostname", ErrInvalidAddr)
	}
	if port == 0 {
		if useSSL {
			port = defaultSSLPort
		} else {
			port = defaultPlainPort
		}
	}
	return BackendAddr{hostname: hostname, port: port, useSSL: useSSL}, nil
}

// ParseBackendAddr parses a bare server address with no organization
// path.
func ParseBackendAddr(raw string) (BackendAddr, error) {
	parsed, err := parseURL(raw)
	if err != nil {
		return BackendAddr{}, err
	}
	if strings.Trim(parsed.Path, "/") != "" {
		return BackendAddr{}, fmt.Errorf("%w: unexpected path %q", ErrInvalidAddr, parsed.Path)
	}
	return backendFromURL(parsed)
}

// Hostname returns the server hostname.
func (a BackendAddr) Hostname() string { return a.hostname }

// Port returns the effective port.
func (a BackendAddr) Port() uint16 { return a.port }

// UseSSL reports whether the transport uses SSL.
func (a BackendAddr) UseSSL() bool { return a.useSSL }

// IsZero reports whether the address is the zero value.
func (a BackendAddr) IsZero() bool { return a.hostname == "" }

// NetAddr returns the host:port form used to dial the server.
func (a BackendAddr) NetAddr() string {
	return fmt.Sprintf("%s:%d", a.hostname, a.port)
}

// String renders the parsec:// URL.
func (a BackendAddr) String() string {
	return render(a, "", nil)
}

// BackendOrganizationAddr names an organization on a server together
// with the organization's root verify key. This is the address a
// device keeps in its key file: everything it ever trusts descends
// from the embedded key.
type BackendOrganizationAddr struct {
	BackendAddr
	organizationID ref.OrganizationID
	rootVerifyKey  crypto.VerifyKey
}

// NewBackendOrganizationAddr builds an organization address.
func NewBackendOrganizationAddr(backend BackendAddr, organizationID ref.OrganizationID, rootVerifyKey crypto.VerifyKey) (BackendOrganizationAddr, error) {
	if backend.IsZero() || organizationID.IsZero() {
		return BackendOrganizationAddr{}, fmt.Errorf("%w: missing backend or organization", ErrInvalidAddr)
	}
	return BackendOrganizationAddr{
		BackendAddr:    backend,
		organizationID: organizationID,
		rootVerifyKey:  rootVerifyKey,
	}, nil
}

// ParseOrganizationAddr parses an organization connect address:
// parsec://host[:port]/org?rvk=<exported-verify-key>.
func ParseOrganizationAddr(raw string) (BackendOrganizationAddr, error) {
	parsed, err := parseURL(raw)
	if err != nil {
		return BackendOrganizationAddr{}, err
	}
	backend, err := backendFromURL(parsed)
	if err != nil {
		return BackendOrganizationAddr{}, err
	}
	organizationID, err := organizationFromURL(parsed)
	if err != nil {
		return BackendOrganizationAddr{}, err
	}
	exported := parsed.Query().Get("rvk")
	if exported == "" {
		return BackendOrganizationAddr{}, fmt.Errorf("%w: missing rvk parameter", ErrInvalidAddr)
	}
	rootVerifyKey, err := ImportRootVerifyKey(exported)
	if err != nil {
		return BackendOrganizationAddr{}, err
	}
	return BackendOrganizationAddr{
		BackendAddr:    backend,
		organizationID: organizationID,
		rootVerifyKey:  rootVerifyKey,
	}, nil
}

// OrganizationID returns the organization.
func (a BackendOrganizationAddr) OrganizationID() ref.OrganizationID { return a.organizationID }

// RootVerifyKey returns the organization's root verify key.
func (a BackendOrganizationAddr) RootVerifyKey() crypto.VerifyKey { return a.rootVerifyKey }

// String renders the parsec:// URL with the exported root verify key.
func (a BackendOrganizationAddr) String() string {
	query := url.Values{}
	query.Set("rvk", ExportRootVerifyKey(a.rootVerifyKey))
	return render(a.BackendAddr, a.organizationID.String(), query)
}

// BackendOrganizationBootstrapAddr is the link handed to the first
// administrator of a new organization. The token authenticates the
// bootstrap against the server; the root verify key does not exist
// yet.
type BackendOrganizationBootstrapAddr struct {
	BackendAddr
	organizationID ref.OrganizationID
	token          string
}

// NewBackendOrganizationBootstrapAddr builds a bootstrap address.
func NewBackendOrganizationBootstrapAddr(backend BackendAddr, organizationID ref.OrganizationID, token string) (BackendOrganizationBootstrapAddr, error) {
	if backend.IsZero() || organizationID.IsZero() {
		return BackendOrganizationBootstrapAddr{}, fmt.Errorf("%w: missing backend or organization", ErrInvalidAddr)
	}
	return BackendOrganizationBootstrapAddr{
		BackendAddr:    backend,
		organizationID: organizationID,
		token:          token,
	}, nil
}

// ParseBootstrapAddr parses an organization bootstrap address:
// parsec://host[:port]/org?action=bootstrap_organization&token=<t>.
func ParseBootstrapAddr(raw string) (BackendOrganizationBootstrapAddr, error) {
	parsed, err := parseURL(raw)
	if err != nil {
		return BackendOrganizationBootstrapAddr{}, err
	}
	backend, err := backendFromURL(parsed)
	if err != nil {
		return BackendOrganizationBootstrapAddr{}, err
	}
	organizationID, err := organizationFromURL(parsed)
	if err != nil {
		return BackendOrganizationBootstrapAddr{}, err
	}
	if action := parsed.Query().Get("action"); action != actionBootstrap {
		return BackendOrganizationBootstrapAddr{}, fmt.Errorf("%w: action %q, expected %q", ErrInvalidAddr, action, actionBootstrap)
	}
	return BackendOrganizationBootstrapAddr{
		BackendAddr:    backend,
		organizationID: organizationID,
		token:          parsed.Query().Get("token"),
	}, nil
}

// OrganizationID returns the organization.
func (a BackendOrganizationBootstrapAddr) OrganizationID() ref.OrganizationID {
	return a.organizationID
}

// Token returns the bootstrap token. It may be empty for servers with
// spontaneous bootstrap enabled.
func (a BackendOrganizationBootstrapAddr) Token() string { return a.token }

// String renders the parsec:// URL.
func (a BackendOrganizationBootstrapAddr) String() string {
	query := url.Values{}
	query.Set("action", actionBootstrap)
	query.Set("token", a.token)
	return render(a.BackendAddr, a.organizationID.String(), query)
}

// BackendInvitationAddr is the link handed to an invited user or to a
// user adding a device.
type BackendInvitationAddr struct {
	BackendAddr
	organizationID ref.OrganizationID
	invitationType ref.InvitationType
	token          ref.InvitationToken
}

// NewBackendInvitationAddr builds an invitation address.
func NewBackendInvitationAddr(backend BackendAddr, organizationID ref.OrganizationID, invitationType ref.InvitationType, token ref.InvitationToken) (BackendInvitationAddr, error) {
	if backend.IsZero() || organizationID.IsZero() || token.IsZero() {
		return BackendInvitationAddr{}, fmt.Errorf("%w: missing backend, organization or token", ErrInvalidAddr)
	}
	return BackendInvitationAddr{
		BackendAddr:    backend,
		organizationID: organizationID,
		invitationType: invitationType,
		token:          token,
	}, nil
}

// ParseInvitationAddr parses an invitation address:
// parsec://host[:port]/org?action=claim_user|claim_device&token=<uuid>.
func ParseInvitationAddr(raw string) (BackendInvitationAddr, error) {
	parsed, err := parseURL(raw)
	if err != nil {
		return BackendInvitationAddr{}, err
	}
	backend, err := backendFromURL(parsed)
	if err != nil {
		return BackendInvitationAddr{}, err
	}
	organizationID, err := organizationFromURL(parsed)
	if err != nil {
		return BackendInvitationAddr{}, err
	}
	var invitationType ref.InvitationType
	switch action := parsed.Query().Get("action"); action {
	case actionClaimUser:
		invitationType = ref.InvitationUser
	case actionClaimDevice:
		invitationType = ref.InvitationDevice
	default:
		return BackendInvitationAddr{}, fmt.Errorf("%w: action %q, expected %q or %q", ErrInvalidAddr, action, actionClaimUser, actionClaimDevice)
	}
	token, err := ref.ParseInvitationToken(parsed.Query().Get("token"))
	if err != nil {
		return BackendInvitationAddr{}, fmt.Errorf("%w: %v", ErrInvalidAddr, err)
	}
	return BackendInvitationAddr{
		BackendAddr:    backend,
		organizationID: organizationID,
		invitationType: invitationType,
		token:          token,
	}, nil
}

// OrganizationID returns the organization.
func (a BackendInvitationAddr) OrganizationID() ref.OrganizationID { return a.organizationID }

// InvitationType returns whether this invites a user or a device.
func (a BackendInvitationAddr) InvitationType() ref.InvitationType { return a.invitationType }

// Token returns the invitation token.
func (a BackendInvitationAddr) Token() ref.InvitationToken { return a.token }

// String renders the parsec:// URL.
func (a BackendInvitationAddr) String() string {
	query := url.Values{}
	if a.invitationType == ref.InvitationDevice {
		query.Set("action", actionClaimDevice)
	} else {
		query.Set("action", actionClaimUser)
	}
	query.Set("token", a.token.String())
	return render(a.BackendAddr, a.organizationID.String(), query)
}

// ExportRootVerifyKey renders a verify key for embedding in a URL:
// unpadded base32, with the padding character replaced by 's' so the
// result needs no percent-encoding.
func ExportRootVerifyKey(key crypto.VerifyKey) string {
	encoded := base32.StdEncoding.EncodeToString(key.Bytes())
	return strings.ReplaceAll(encoded, "=", "s")
}

// ImportRootVerifyKey reverses ExportRootVerifyKey.
func ImportRootVerifyKey(exported string) (crypto.VerifyKey, error) {
	encoded := strings.ReplaceAll(exported, "s", "=")
	raw, err := base32.StdEncoding.DecodeString(encoded)
	if err != nil {
		return crypto.VerifyKey{}, fmt.Errorf("%w: bad root verify key encoding: %v", ErrInvalidAddr, err)
	}
	key, err := crypto.VerifyKeyFromBytes(raw)
	if err != nil {
		return crypto.VerifyKey{}, fmt.Errorf("%w: %v", ErrInvalidAddr, err)
	}
	return key, nil
}

func parseURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddr, err)
	}
	if parsed.Scheme != Scheme {
		return nil, fmt.Errorf("%w: scheme %q, expected %q", ErrInvalidAddr, parsed.Scheme, Scheme)
	}
	return parsed, nil
}

func backendFromURL(parsed *url.URL) (BackendAddr, error) {
	useSSL := parsed.Query().Get("no_ssl") != "true"
	var port uint16
	if rawPort := parsed.Port(); rawPort != "" {
		parsedPort, err := strconv.ParseUint(rawPort, 10, 16)
		if err != nil {
			return BackendAddr{}, fmt.Errorf("%w: bad port %q", ErrInvalidAddr, rawPort)
		}
		port = uint16(parsedPort)
	}
	return NewBackendAddr(parsed.Hostname(), port, useSSL)
}

func organizationFromURL(parsed *url.URL) (ref.OrganizationID, error) {
	raw := strings.Trim(parsed.Path, "/")
	if raw == "" || strings.Contains(raw, "/") {
		return ref.OrganizationID{}, fmt.Errorf("%w: path %q is not an organization ID", ErrInvalidAddr, parsed.Path)
	}
	organizationID, err := ref.ParseOrganizationID(raw)
	if err != nil {
		return ref.OrganizationID{}, fmt.Errorf("%w: %v", ErrInvalidAddr, err)
	}
	return organizationID, nil
}

func render(backend BackendAddr, organization string, query url.Values) string {
	host := backend.hostname
	if backend.useSSL && backend.port != defaultSSLPort || !backend.useSSL && backend.port != defaultPlainPort {
		host = fmt.Sprintf("%s:%d", backend.hostname, backend.port)
	}
	if query == nil {
		query = url.Values{}
	}
	if !backend.useSSL {
		query.Set("no_ssl", "true")
	}
	rendered := url.URL{Scheme: Scheme, Host: host, RawQuery: query.Encode()}
	if organization != "" {
		rendered.Path = "/" + organization
	}
	return rendered.String()
}
