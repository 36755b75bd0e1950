// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// UserProfile is a user's organization-wide permission level. The wire
// form is the uppercase constant name.
type UserProfile string

const (
	// ProfileAdmin can manage users, devices and organization
	// configuration, and is the only profile allowed to sign
	// certificates for other users.
	ProfileAdmin UserProfile = "ADMIN"

	// ProfileStandard can create and share workspaces but not manage
	// other users.
	ProfileStandard UserProfile = "STANDARD"

	// ProfileOutsider can only access workspaces shared with them and
	// sees other users in redacted form.
	ProfileOutsider UserProfile = "OUTSIDER"
)

// ParseUserProfile validates a wire profile string.
func ParseUserProfile(raw string) (UserProfile, error) {
	switch p := UserProfile(raw); p {
	case ProfileAdmin, ProfileStandard, ProfileOutsider:
		return p, nil
	}
	return "", fmt.Errorf("invalid user profile %q", raw)
}

// ProfileFromIsAdmin maps the legacy is_admin boolean to a profile.
// Payloads predating the profile field only distinguish admins from
// everyone else.
func ProfileFromIsAdmin(isAdmin bool) UserProfile {
	if isAdmin {
		return ProfileAdmin
	}
	return ProfileStandard
}

// IsAdmin is the reverse legacy mapping, used when encoding payloads
// that carry both fields.
func (p UserProfile) IsAdmin() bool { return p == ProfileAdmin }

// String returns the wire form.
func (p UserProfile) String() string { return string(p) }

// MarshalText implements encoding.TextMarshaler.
func (p UserProfile) MarshalText() ([]byte, error) {
	return []byte(p), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, rejecting unknown
// profiles.
func (p *UserProfile) UnmarshalText(data []byte) error {
	parsed, err := ParseUserProfile(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// RealmRole is a user's permission level within one realm. The wire
// form is the uppercase constant name; a null role in a realm role
// certificate means the user is removed from the realm.
type RealmRole string

const (
	// RoleOwner can do everything a manager can plus transfer
	// ownership and trigger maintenance.
	RoleOwner RealmRole = "OWNER"

	// RoleManager can grant and revoke non-owner roles.
	RoleManager RealmRole = "MANAGER"

	// RoleContributor can read and write realm data.
	RoleContributor RealmRole = "CONTRIBUTOR"

	// RoleReader can only read realm data.
	RoleReader RealmRole = "READER"
)

// ParseRealmRole validates a wire role string.
func ParseRealmRole(raw string) (RealmRole, error) {
	switch r := RealmRole(raw); r {
	case RoleOwner, RoleManager, RoleContributor, RoleReader:
		return r, nil
	}
	return "", fmt.Errorf("invalid realm role %q", raw)
}

// CanWrite reports whether the role permits modifying realm data.
func (r RealmRole) CanWrite() bool {
	return r == RoleOwner || r == RoleManager || r == RoleContributor
}

// CanManage reports whether the role permits granting and revoking
// other users' roles.
func (r RealmRole) CanManage() bool {
	return r == RoleOwner || r == RoleManager
}

// String returns the wire form.
func (r RealmRole) String() string { return string(r) }

// MarshalText implements encoding.TextMarshaler.
func (r RealmRole) MarshalText() ([]byte, error) {
	return []byte(r), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, rejecting unknown
// roles.
func (r *RealmRole) UnmarshalText(data []byte) error {
	parsed, err := ParseRealmRole(string(data))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// InvitationType distinguishes invitations that add a new user to the
// organization from invitations that add a new device to an existing
// user.
type InvitationType string

const (
	InvitationUser   InvitationType = "USER"
	InvitationDevice InvitationType = "DEVICE"
)

// ParseInvitationType validates a wire invitation type string.
func ParseInvitationType(raw string) (InvitationType, error) {
	switch t := InvitationType(raw); t {
	case InvitationUser, InvitationDevice:
		return t, nil
	}
	return "", fmt.Errorf("invalid invitation type %q", raw)
}

// String returns the wire form.
func (t InvitationType) String() string { return string(t) }

// MarshalText implements encoding.TextMarshaler.
func (t InvitationType) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *InvitationType) UnmarshalText(data []byte) error {
	parsed, err := ParseInvitationType(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// InvitationStatus tracks the server-side lifecycle of an invitation.
type InvitationStatus string

const (
	// InvitationIdle means the invitee has not connected yet.
	InvitationIdle InvitationStatus = "IDLE"

	// InvitationReady means the invitee is connected and the greeting
	// ceremony can start.
	InvitationReady InvitationStatus = "READY"

	// InvitationDeleted means the invitation is no longer usable; see
	// InvitationDeletedReason.
	InvitationDeleted InvitationStatus = "DELETED"
)

// ParseInvitationStatus validates a wire invitation status string.
func ParseInvitationStatus(raw string) (InvitationStatus, error) {
	switch s := InvitationStatus(raw); s {
	case InvitationIdle, InvitationReady, InvitationDeleted:
		return s, nil
	}
	return "", fmt.Errorf("invalid invitation status %q", raw)
}

// String returns the wire form.
func (s InvitationStatus) String() string { return string(s) }

// MarshalText implements encoding.TextMarshaler.
func (s InvitationStatus) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *InvitationStatus) UnmarshalText(data []byte) error {
	parsed, err := ParseInvitationStatus(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// InvitationDeletedReason records why a deleted invitation ended.
type InvitationDeletedReason string

const (
	// DeletedReasonFinished means the ceremony completed successfully.
	DeletedReasonFinished InvitationDeletedReason = "FINISHED"

	// DeletedReasonCancelled means the greeter withdrew the
	// invitation.
	DeletedReasonCancelled InvitationDeletedReason = "CANCELLED"

	// DeletedReasonRotten means the invitation expired unused.
	DeletedReasonRotten InvitationDeletedReason = "ROTTEN"
)

// ParseInvitationDeletedReason validates a wire deletion reason string.
func ParseInvitationDeletedReason(raw string) (InvitationDeletedReason, error) {
	switch r := InvitationDeletedReason(raw); r {
	case DeletedReasonFinished, DeletedReasonCancelled, DeletedReasonRotten:
		return r, nil
	}
	return "", fmt.Errorf("invalid invitation deletion reason %q", raw)
}

// String returns the wire form.
func (r InvitationDeletedReason) String() string { return string(r) }

// MarshalText implements encoding.TextMarshaler.
func (r InvitationDeletedReason) MarshalText() ([]byte, error) {
	return []byte(r), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *InvitationDeletedReason) UnmarshalText(data []byte) error {
	parsed, err := ParseInvitationDeletedReason(string(data))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
