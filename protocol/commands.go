// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"

	"github.com/parsec-foundation/parsec/lib/codec"
	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/ref"
)

// Command discriminators carried in the "cmd" field.
const (
	cmdPing                   = "ping"
	cmdBlockCreate            = "block_create"
	cmdBlockRead              = "block_read"
	cmdVlobCreate             = "vlob_create"
	cmdVlobRead               = "vlob_read"
	cmdVlobUpdate             = "vlob_update"
	cmdInvite1ClaimerWaitPeer = "invite_1_claimer_wait_peer"
	cmdInvite1GreeterWaitPeer = "invite_1_greeter_wait_peer"
	cmdEventsListen           = "events_listen"
	cmdOrganizationConfig     = "organization_config"
)

const (
	statusOK           = "ok"
	statusBadTimestamp = "bad_timestamp"
)

type cmdProbe struct {
	Cmd string `cbor:"cmd"`
}

type statusProbe struct {
	Status string `cbor:"status"`
}

type errorWire struct {
	Status string  `cbor:"status"`
	Reason *string `cbor:"reason"`
}

// CommandError is any non-ok, non-bad_timestamp response status.
type CommandError struct {
	Status string
	Reason string
}

func (e *CommandError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("backend replied %q: %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("backend replied %q", e.Status)
}

// LoadResponse decodes a response payload. An ok status decodes into
// ok and returns nil; bad_timestamp returns a *BadTimestampError; any
// other status returns a *CommandError.
func LoadResponse(raw []byte, ok any) error {
	var probe statusProbe
	if err := codec.Unmarshal(raw, &probe); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	switch probe.Status {
	case "":
		return fmt.Errorf("%w: response carries no status", ErrProtocol)
	case statusOK:
		if err := codec.Unmarshal(raw, ok); err != nil {
			return fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		return nil
	case statusBadTimestamp:
		return loadBadTimestamp(raw)
	default:
		var wire errorWire
		if err := codec.Unmarshal(raw, &wire); err != nil {
			return fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		reason := ""
		if wire.Reason != nil {
			reason = *wire.Reason
		}
		return &CommandError{Status: wire.Status, Reason: reason}
	}
}

// DumpErrorResponse builds a non-ok response with an optional reason.
func DumpErrorResponse(status, reason string) ([]byte, error) {
	wire := errorWire{Status: status}
	if reason != "" {
		wire.Reason = &reason
	}
	return codec.Marshal(&wire)
}

// LoadRequest decodes a request payload into its typed form; callers
// dispatch with a type switch. Unknown commands fail with ErrProtocol.
func LoadRequest(raw []byte) (any, error) {
	var probe cmdProbe
	if err := codec.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	var req any
	switch probe.Cmd {
	case cmdPing:
		req = &PingRequest{}
	case cmdBlockCreate:
		req = &BlockCreateRequest{}
	case cmdBlockRead:
		req = &BlockReadRequest{}
	case cmdVlobCreate:
		req = &VlobCreateRequest{}
	case cmdVlobRead:
		req = &VlobReadRequest{}
	case cmdVlobUpdate:
		req = &VlobUpdateRequest{}
	case cmdInvite1ClaimerWaitPeer:
		req = &Invite1ClaimerWaitPeerRequest{}
	case cmdInvite1GreeterWaitPeer:
		req = &Invite1GreeterWaitPeerRequest{}
	case cmdEventsListen:
		req = &EventsListenRequest{}
	case cmdOrganizationConfig:
		req = &OrganizationConfigRequest{}
	case "":
		return nil, fmt.Errorf("%w: request carries no cmd", ErrProtocol)
	default:
		return nil, fmt.Errorf("%w: unknown command %q", ErrProtocol, probe.Cmd)
	}
	if err := codec.Unmarshal(raw, req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return req, nil
}

// PingRequest echoes a short string through the backend.
type PingRequest struct {
	Ping string `cbor:"ping"`
}

func (r *PingRequest) Dump() ([]byte, error) {
	return codec.Marshal(&struct {
		Cmd string `cbor:"cmd"`
		*PingRequest
	}{cmdPing, r})
}

type PingResponse struct {
	Pong string `cbor:"pong"`
}

func (r *PingResponse) Dump() ([]byte, error) {
	return codec.Marshal(&struct {
		Status string `cbor:"status"`
		*PingResponse
	}{statusOK, r})
}

// BlockCreateRequest uploads one encrypted block into a realm.
type BlockCreateRequest struct {
	BlockID ref.BlockID `cbor:"block_id"`
	RealmID ref.RealmID `cbor:"realm_id"`
	Block   []byte      `cbor:"block"`
}

func (r *BlockCreateRequest) Dump() ([]byte, error) {
	return codec.Marshal(&struct {
		Cmd string `cbor:"cmd"`
		*BlockCreateRequest
	}{cmdBlockCreate, r})
}

type BlockCreateResponse struct{}

func (r *BlockCreateResponse) Dump() ([]byte, error) {
	return codec.Marshal(&statusProbe{Status: statusOK})
}

type BlockReadRequest struct {
	BlockID ref.BlockID `cbor:"block_id"`
}

func (r *BlockReadRequest) Dump() ([]byte, error) {
	return codec.Marshal(&struct {
		Cmd string `cbor:"cmd"`
		*BlockReadRequest
	}{cmdBlockRead, r})
}

type BlockReadResponse struct {
	Block []byte `cbor:"block"`
}

func (r *BlockReadResponse) Dump() ([]byte, error) {
	return codec.Marshal(&struct {
		Status string `cbor:"status"`
		*BlockReadResponse
	}{statusOK, r})
}

// VlobCreateRequest registers version 1 of an encrypted manifest.
type VlobCreateRequest struct {
	RealmID            ref.RealmID  `cbor:"realm_id"`
	VlobID             ref.VlobID   `cbor:"vlob_id"`
	EncryptionRevision uint64       `cbor:"encryption_revision"`
	Timestamp          ref.DateTime `cbor:"timestamp"`
	Blob               []byte       `cbor:"blob"`
}

func (r *VlobCreateRequest) Dump() ([]byte, error) {
	return codec.Marshal(&struct {
		Cmd string `cbor:"cmd"`
		*VlobCreateRequest
	}{cmdVlobCreate, r})
}

type VlobCreateResponse struct{}

func (r *VlobCreateResponse) Dump() ([]byte, error) {
	return codec.Marshal(&statusProbe{Status: statusOK})
}

// VlobReadRequest fetches a vlob, optionally pinned to a version or a
// point in time. Leaving both nil reads the latest version.
type VlobReadRequest struct {
	VlobID             ref.VlobID    `cbor:"vlob_id"`
	EncryptionRevision uint64        `cbor:"encryption_revision"`
	Version            *uint64       `cbor:"version"`
	Timestamp          *ref.DateTime `cbor:"timestamp"`
}

func (r *VlobReadRequest) Dump() ([]byte, error) {
	return codec.Marshal(&struct {
		Cmd string `cbor:"cmd"`
		*VlobReadRequest
	}{cmdVlobRead, r})
}

type VlobReadResponse struct {
	Version   uint64       `cbor:"version"`
	Author    ref.DeviceID `cbor:"author"`
	Timestamp ref.DateTime `cbor:"timestamp"`
	Blob      []byte       `cbor:"blob"`
}

func (r *VlobReadResponse) Dump() ([]byte, error) {
	return codec.Marshal(&struct {
		Status string `cbor:"status"`
		*VlobReadResponse
	}{statusOK, r})
}

// VlobUpdateRequest uploads the next version of a vlob. The timestamp
// is subject to the ballpark check.
type VlobUpdateRequest struct {
	VlobID             ref.VlobID   `cbor:"vlob_id"`
	EncryptionRevision uint64       `cbor:"encryption_revision"`
	Version            uint64       `cbor:"version"`
	Timestamp          ref.DateTime `cbor:"timestamp"`
	Blob               []byte       `cbor:"blob"`
}

func (r *VlobUpdateRequest) Dump() ([]byte, error) {
	return codec.Marshal(&struct {
		Cmd string `cbor:"cmd"`
		*VlobUpdateRequest
	}{cmdVlobUpdate, r})
}

type VlobUpdateResponse struct{}

func (r *VlobUpdateResponse) Dump() ([]byte, error) {
	return codec.Marshal(&statusProbe{Status: statusOK})
}

// Invite1ClaimerWaitPeerRequest opens the invite exchange: the claimer
// publishes its ephemeral public key and waits for the greeter's.
type Invite1ClaimerWaitPeerRequest struct {
	ClaimerPublicKey crypto.PublicKey
}

func (r *Invite1ClaimerWaitPeerRequest) Dump() ([]byte, error) {
	return codec.Marshal(&struct {
		Cmd              string `cbor:"cmd"`
		ClaimerPublicKey []byte `cbor:"claimer_public_key"`
	}{cmdInvite1ClaimerWaitPeer, r.ClaimerPublicKey.Bytes()})
}

func (r *Invite1ClaimerWaitPeerRequest) UnmarshalCBOR(raw []byte) error {
	var wire struct {
		ClaimerPublicKey []byte `cbor:"claimer_public_key"`
	}
	if err := codec.Unmarshal(raw, &wire); err != nil {
		return err
	}
	key, err := crypto.PublicKeyFromBytes(wire.ClaimerPublicKey)
	if err != nil {
		return err
	}
	r.ClaimerPublicKey = key
	return nil
}

type Invite1ClaimerWaitPeerResponse struct {
	GreeterPublicKey crypto.PublicKey
}

func (r *Invite1ClaimerWaitPeerResponse) Dump() ([]byte, error) {
	return codec.Marshal(&struct {
		Status           string `cbor:"status"`
		GreeterPublicKey []byte `cbor:"greeter_public_key"`
	}{statusOK, r.GreeterPublicKey.Bytes()})
}

func (r *Invite1ClaimerWaitPeerResponse) UnmarshalCBOR(raw []byte) error {
	var wire struct {
		GreeterPublicKey []byte `cbor:"greeter_public_key"`
	}
	if err := codec.Unmarshal(raw, &wire); err != nil {
		return err
	}
	key, err := crypto.PublicKeyFromBytes(wire.GreeterPublicKey)
	if err != nil {
		return err
	}
	r.GreeterPublicKey = key
	return nil
}

// Invite1GreeterWaitPeerRequest is the greeter's half of the opening
// exchange, keyed by the invitation token.
type Invite1GreeterWaitPeerRequest struct {
	Token            ref.InvitationToken
	GreeterPublicKey crypto.PublicKey
}

func (r *Invite1GreeterWaitPeerRequest) Dump() ([]byte, error) {
	return codec.Marshal(&struct {
		Cmd              string              `cbor:"cmd"`
		Token            ref.InvitationToken `cbor:"token"`
		GreeterPublicKey []byte              `cbor:"greeter_public_key"`
	}{cmdInvite1GreeterWaitPeer, r.Token, r.GreeterPublicKey.Bytes()})
}

func (r *Invite1GreeterWaitPeerRequest) UnmarshalCBOR(raw []byte) error {
	var wire struct {
		Token            ref.InvitationToken `cbor:"token"`
		GreeterPublicKey []byte              `cbor:"greeter_public_key"`
	}
	if err := codec.Unmarshal(raw, &wire); err != nil {
		return err
	}
	key, err := crypto.PublicKeyFromBytes(wire.GreeterPublicKey)
	if err != nil {
		return err
	}
	r.Token = wire.Token
	r.GreeterPublicKey = key
	return nil
}

type Invite1GreeterWaitPeerResponse struct {
	ClaimerPublicKey crypto.PublicKey
}

func (r *Invite1GreeterWaitPeerResponse) Dump() ([]byte, error) {
	return codec.Marshal(&struct {
		Status           string `cbor:"status"`
		ClaimerPublicKey []byte `cbor:"claimer_public_key"`
	}{statusOK, r.ClaimerPublicKey.Bytes()})
}

func (r *Invite1GreeterWaitPeerResponse) UnmarshalCBOR(raw []byte) error {
	var wire struct {
		ClaimerPublicKey []byte `cbor:"claimer_public_key"`
	}
	if err := codec.Unmarshal(raw, &wire); err != nil {
		return err
	}
	key, err := crypto.PublicKeyFromBytes(wire.ClaimerPublicKey)
	if err != nil {
		return err
	}
	r.ClaimerPublicKey = key
	return nil
}

// EventsListenRequest polls the backend event stream. With Wait set
// the backend holds the request until an event is available.
type EventsListenRequest struct {
	Wait bool `cbor:"wait"`
}

func (r *EventsListenRequest) Dump() ([]byte, error) {
	return codec.Marshal(&struct {
		Cmd string `cbor:"cmd"`
		*EventsListenRequest
	}{cmdEventsListen, r})
}

// Backend event discriminators.
const (
	EventPinged                   = "pinged"
	EventMessageReceived          = "message.received"
	EventInviteStatusChanged      = "invite.status_changed"
	EventRealmRolesUpdated        = "realm.roles_updated"
	EventRealmVlobsUpdated        = "realm.vlobs_updated"
	EventRealmMaintenanceStarted  = "realm.maintenance_started"
	EventRealmMaintenanceFinished = "realm.maintenance_finished"
)

// EventsListenResponse is a union over Event; only the fields of the
// reported event are populated.
type EventsListenResponse struct {
	Event              string               `cbor:"event"`
	Ping               string               `cbor:"ping,omitempty"`
	Index              uint64               `cbor:"index,omitempty"`
	Token              *ref.InvitationToken `cbor:"token,omitempty"`
	InvitationStatus   string               `cbor:"invitation_status,omitempty"`
	RealmID            *ref.RealmID         `cbor:"realm_id,omitempty"`
	Role               *ref.RealmRole       `cbor:"role,omitempty"`
	Checkpoint         uint64               `cbor:"checkpoint,omitempty"`
	SrcID              *ref.VlobID          `cbor:"src_id,omitempty"`
	SrcVersion         uint64               `cbor:"src_version,omitempty"`
	EncryptionRevision uint64               `cbor:"encryption_revision,omitempty"`
}

func (r *EventsListenResponse) Dump() ([]byte, error) {
	return codec.Marshal(&struct {
		Status string `cbor:"status"`
		*EventsListenResponse
	}{statusOK, r})
}

type OrganizationConfigRequest struct{}

func (r *OrganizationConfigRequest) Dump() ([]byte, error) {
	return codec.Marshal(&cmdProbe{Cmd: cmdOrganizationConfig})
}

// OrganizationConfigResponse reports server-side organization policy.
// The sequester fields stay nil for organizations without sequester
// services, and for backends predating them.
type OrganizationConfigResponse struct {
	UserProfileOutsiderAllowed    bool     `cbor:"user_profile_outsider_allowed"`
	ActiveUsersLimit              *uint64  `cbor:"active_users_limit"`
	SequesterAuthorityCertificate []byte   `cbor:"sequester_authority_certificate,omitempty"`
	SequesterServicesCertificates [][]byte `cbor:"sequester_services_certificates,omitempty"`
}

func (r *OrganizationConfigResponse) Dump() ([]byte, error) {
	return codec.Marshal(&struct {
		Status string `cbor:"status"`
		*OrganizationConfigResponse
	}{statusOK, r})
}
