// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/parsec-foundation/parsec/lib/addr"
	"github.com/parsec-foundation/parsec/lib/codec"
	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/ref"
)

const (
	typeLocalDevice  = "local_device"
	deviceFilePasswd = "password"

	// deviceFileSuffix names device key files under <config>/devices/.
	deviceFileSuffix = ".keys"
)

// LocalDevice is everything a device needs to act as its user: the
// organization address (which embeds the root verify key), the
// device's own key pairs, the user's key material and the pointer to
// the user manifest. It only ever exists in decrypted form in memory;
// on disk it lives E4-encrypted in a .keys file.
type LocalDevice struct {
	OrganizationAddr addr.BackendOrganizationAddr
	DeviceID         ref.DeviceID
	DeviceLabel      *ref.DeviceLabel
	HumanHandle      *ref.HumanHandle
	SigningKey       crypto.SigningKey
	PrivateKey       crypto.PrivateKey
	Profile          ref.UserProfile
	UserManifestID   ref.EntryID
	UserManifestKey  crypto.SecretKey
	LocalSymkey      crypto.SecretKey
}

// NewLocalDevice generates the key material for a brand-new device.
func NewLocalDevice(organizationAddr addr.BackendOrganizationAddr, deviceID ref.DeviceID, deviceLabel *ref.DeviceLabel, humanHandle *ref.HumanHandle, profile ref.UserProfile, userManifestID ref.EntryID, userManifestKey crypto.SecretKey) (*LocalDevice, error) {
	signingKey, err := crypto.NewSigningKey()
	if err != nil {
		return nil, err
	}
	privateKey, err := crypto.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	localSymkey, err := crypto.NewSecretKey()
	if err != nil {
		return nil, err
	}
	return &LocalDevice{
		OrganizationAddr: organizationAddr,
		DeviceID:         deviceID,
		DeviceLabel:      deviceLabel,
		HumanHandle:      humanHandle,
		SigningKey:       signingKey,
		PrivateKey:       privateKey,
		Profile:          profile,
		UserManifestID:   userManifestID,
		UserManifestKey:  userManifestKey,
		LocalSymkey:      localSymkey,
	}, nil
}

// UserID returns the user half of the device ID.
func (d *LocalDevice) UserID() ref.UserID { return d.DeviceID.UserID() }

// OrganizationID returns the organization the device belongs to.
func (d *LocalDevice) OrganizationID() ref.OrganizationID {
	return d.OrganizationAddr.OrganizationID()
}

// RootVerifyKey returns the organization root verify key.
func (d *LocalDevice) RootVerifyKey() crypto.VerifyKey {
	return d.OrganizationAddr.RootVerifyKey()
}

// VerifyKey returns the public half of the device signing key.
func (d *LocalDevice) VerifyKey() crypto.VerifyKey { return d.SigningKey.VerifyKey() }

// PublicKey returns the public half of the user encryption key.
func (d *LocalDevice) PublicKey() crypto.PublicKey { return d.PrivateKey.PublicKey() }

// Slug identifies the device file uniquely across organizations and
// servers: a root-verify-key fingerprint, the organization and the
// device ID.
func (d *LocalDevice) Slug() string {
	fingerprint := crypto.HashData(d.RootVerifyKey().Bytes()).Hex()[:8]
	return fmt.Sprintf("%s#%s#%s", fingerprint, d.OrganizationID(), d.DeviceID)
}

type localDeviceWire struct {
	Type             string           `cbor:"type"`
	OrganizationAddr string           `cbor:"organization_addr"`
	DeviceID         ref.DeviceID     `cbor:"device_id"`
	DeviceLabel      *ref.DeviceLabel `cbor:"device_label"`
	HumanHandle      *ref.HumanHandle `cbor:"human_handle"`
	SigningKey       []byte           `cbor:"signing_key"`
	PrivateKey       []byte           `cbor:"private_key"`
	Profile          ref.UserProfile  `cbor:"profile"`
	UserManifestID   ref.EntryID      `cbor:"user_manifest_id"`
	UserManifestKey  []byte           `cbor:"user_manifest_key"`
	LocalSymkey      []byte           `cbor:"local_symkey"`
}

// DumpAndEncrypt serializes the device into the local envelope under
// the given key.
func (d *LocalDevice) DumpAndEncrypt(key crypto.SecretKey) ([]byte, error) {
	wire := localDeviceWire{
		Type:             typeLocalDevice,
		OrganizationAddr: d.OrganizationAddr.String(),
		DeviceID:         d.DeviceID,
		DeviceLabel:      d.DeviceLabel,
		HumanHandle:      d.HumanHandle,
		SigningKey:       d.SigningKey.Bytes(),
		PrivateKey:       d.PrivateKey.Bytes(),
		Profile:          d.Profile,
		UserManifestID:   d.UserManifestID,
		UserManifestKey:  d.UserManifestKey.Bytes(),
		LocalSymkey:      d.LocalSymkey.Bytes(),
	}
	return dumpAndEncrypt(key, &wire)
}

// DecryptAndLoadDevice reverses DumpAndEncrypt.
func DecryptAndLoadDevice(ciphered []byte, key crypto.SecretKey) (*LocalDevice, error) {
	var wire localDeviceWire
	if err := decryptAndDecode(key, ciphered, &wire); err != nil {
		return nil, err
	}
	if wire.Type != typeLocalDevice {
		return nil, fmt.Errorf("%w: unexpected payload type %q", ErrInvalidDeviceFile, wire.Type)
	}
	organizationAddr, err := addr.ParseOrganizationAddr(wire.OrganizationAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDeviceFile, err)
	}
	if wire.DeviceID.IsZero() || wire.UserManifestID.IsZero() {
		return nil, fmt.Errorf("%w: missing device_id or user_manifest_id", ErrInvalidDeviceFile)
	}
	if _, err := ref.ParseUserProfile(wire.Profile.String()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDeviceFile, err)
	}
	signingKey, err := crypto.SigningKeyFromBytes(wire.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDeviceFile, err)
	}
	privateKey, err := crypto.PrivateKeyFromBytes(wire.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDeviceFile, err)
	}
	userManifestKey, err := crypto.SecretKeyFromBytes(wire.UserManifestKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDeviceFile, err)
	}
	localSymkey, err := crypto.SecretKeyFromBytes(wire.LocalSymkey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDeviceFile, err)
	}
	return &LocalDevice{
		OrganizationAddr: organizationAddr,
		DeviceID:         wire.DeviceID,
		DeviceLabel:      wire.DeviceLabel,
		HumanHandle:      wire.HumanHandle,
		SigningKey:       signingKey,
		PrivateKey:       privateKey,
		Profile:          wire.Profile,
		UserManifestID:   wire.UserManifestID,
		UserManifestKey:  userManifestKey,
		LocalSymkey:      localSymkey,
	}, nil
}

// deviceFileWire is the cleartext outer layer of a .keys file. The
// identity fields duplicate what the ciphertext holds so a device
// picker can list devices without asking for passphrases.
type deviceFileWire struct {
	Type           string             `cbor:"type"`
	Salt           []byte             `cbor:"salt"`
	Ciphertext     []byte             `cbor:"ciphertext"`
	OrganizationID ref.OrganizationID `cbor:"organization_id"`
	DeviceID       ref.DeviceID       `cbor:"device_id"`
	DeviceLabel    *ref.DeviceLabel   `cbor:"device_label"`
	HumanHandle    *ref.HumanHandle   `cbor:"human_handle"`
	Slug           string             `cbor:"slug"`
}

// AvailableDevice describes one device key file found on disk, listed
// from the cleartext outer layer only.
type AvailableDevice struct {
	KeyFilePath    string
	OrganizationID ref.OrganizationID
	DeviceID       ref.DeviceID
	DeviceLabel    *ref.DeviceLabel
	HumanHandle    *ref.HumanHandle
	Slug           string
}

// DeviceKeyFilePath returns where a device's key file lives under the
// given config directory.
func DeviceKeyFilePath(configDir string, device *LocalDevice) string {
	return filepath.Join(configDir, "devices", device.Slug()+deviceFileSuffix)
}

// SaveDeviceWithPassphrase writes the device key file, deriving the
// encryption key from the passphrase with a fresh salt. It returns the
// file path.
func SaveDeviceWithPassphrase(configDir string, device *LocalDevice, passphrase string) (string, error) {
	salt, err := crypto.GenerateSalt()
	if err != nil {
		return "", err
	}
	key := crypto.SecretKeyFromPassword(passphrase, salt)
	ciphertext, err := device.DumpAndEncrypt(key)
	if err != nil {
		return "", err
	}
	wire := deviceFileWire{
		Type:           deviceFilePasswd,
		Salt:           salt,
		Ciphertext:     ciphertext,
		OrganizationID: device.OrganizationID(),
		DeviceID:       device.DeviceID,
		DeviceLabel:    device.DeviceLabel,
		HumanHandle:    device.HumanHandle,
		Slug:           device.Slug(),
	}
	encoded, err := codec.Marshal(&wire)
	if err != nil {
		return "", err
	}

	path := DeviceKeyFilePath(configDir, device)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, encoded, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// LoadDeviceWithPassphrase reads and decrypts a device key file.
func LoadDeviceWithPassphrase(path string, passphrase string) (*LocalDevice, error) {
	encoded, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var wire deviceFileWire
	if err := codec.Unmarshal(encoded, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDeviceFile, err)
	}
	if wire.Type != deviceFilePasswd {
		return nil, fmt.Errorf("%w: unsupported protection type %q", ErrInvalidDeviceFile, wire.Type)
	}
	key := crypto.SecretKeyFromPassword(passphrase, wire.Salt)
	device, err := DecryptAndLoadDevice(wire.Ciphertext, key)
	if err != nil {
		if errors.Is(err, crypto.ErrDecryption) {
			return nil, ErrDecryptionFailed
		}
		return nil, err
	}
	return device, nil
}

// ListAvailableDevices scans <configDir>/devices for key files and
// returns their cleartext identity. Unreadable or malformed files are
// skipped.
func ListAvailableDevices(configDir string) ([]AvailableDevice, error) {
	pattern := filepath.Join(configDir, "devices", "*"+deviceFileSuffix)
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	var devices []AvailableDevice
	for _, path := range paths {
		encoded, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		var wire deviceFileWire
		if err := codec.Unmarshal(encoded, &wire); err != nil {
			continue
		}
		if wire.Type != deviceFilePasswd || wire.DeviceID.IsZero() {
			continue
		}
		devices = append(devices, AvailableDevice{
			KeyFilePath:    path,
			OrganizationID: wire.OrganizationID,
			DeviceID:       wire.DeviceID,
			DeviceLabel:    wire.DeviceLabel,
			HumanHandle:    wire.HumanHandle,
			Slug:           wire.Slug,
		})
	}
	return devices, nil
}
