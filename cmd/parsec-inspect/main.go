// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

// parsec-inspect decodes Parsec data-plane blobs for debugging and
// operator forensics. It never verifies signatures: everything it
// prints is the CLAIMED content of a payload, the operator-side
// analogue of the unsecure loaders. Device key files are the one
// exception, since decrypting them proves possession of the
// passphrase.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/parsec-foundation/parsec/lib/codec"
	"github.com/parsec-foundation/parsec/lib/config"
	"github.com/parsec-foundation/parsec/lib/crypto"
	"github.com/parsec-foundation/parsec/lib/data"
	"github.com/parsec-foundation/parsec/lib/local"
)

// maxInflatedSize bounds the inflated size of any payload this tool is
// willing to open. Matches the largest frame the protocol accepts.
const maxInflatedSize = 64 << 20

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	switch subcommand := os.Args[1]; subcommand {
	case "diagnose":
		return runDiagnose(os.Args[2:])
	case "cert":
		return runCert(os.Args[2:])
	case "devices":
		return runDevices(os.Args[2:])
	case "device":
		return runDevice(os.Args[2:])
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", subcommand)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: parsec-inspect <subcommand> [flags]

Subcommands:
  diagnose    Print a blob's CBOR diagnostic notation, unwrapping the
              signed/compressed envelope if present
  cert        Decode a signed certificate WITHOUT verifying it
  devices     List device key files found in the config directory
  device      Decrypt a device key file and print its identity

Run 'parsec-inspect <subcommand> --help' for subcommand flags.
`)
}

// runDiagnose prints the CBOR diagnostic notation of a blob. Blobs on
// disk come in three shapes: bare CBOR, zlib-compressed CBOR, and the
// signed form signature||zlib(CBOR). The envelope is identified by
// trying each unwrapping in turn.
func runDiagnose(args []string) error {
	flagSet := pflag.NewFlagSet("parsec-inspect diagnose", pflag.ContinueOnError)
	flagSet.SetOutput(os.Stderr)
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("usage: parsec-inspect diagnose <file>")
	}

	raw, err := os.ReadFile(flagSet.Arg(0))
	if err != nil {
		return err
	}
	form, inflated, err := unwrapEnvelope(raw)
	if err != nil {
		return err
	}

	fmt.Printf("envelope: %s\n", form)
	if payloadType, err := codec.ProbeType(inflated); err == nil {
		fmt.Printf("type: %s\n", payloadType)
	}
	notation, err := codec.Diagnose(inflated)
	if err != nil {
		return fmt.Errorf("rendering diagnostic notation: %w", err)
	}
	fmt.Println(notation)
	return nil
}

// unwrapEnvelope peels a blob down to bare CBOR and names the shape it
// arrived in. Encrypted envelopes cannot be opened without a key and
// are reported as such.
func unwrapEnvelope(raw []byte) (string, []byte, error) {
	if _, err := codec.Diagnose(raw); err == nil {
		return "bare CBOR", raw, nil
	}
	if inflated, err := codec.Decompress(raw, maxInflatedSize); err == nil {
		return "zlib(CBOR)", inflated, nil
	}
	if body, err := crypto.UnsecureUnwrap(raw); err == nil {
		if inflated, err := codec.Decompress(body, maxInflatedSize); err == nil {
			return "signature||zlib(CBOR), signature NOT verified", inflated, nil
		}
	}
	return "", nil, fmt.Errorf("not a recognized envelope (encrypted payloads cannot be inspected without their key)")
}

// runCert decodes one of the signed certificate types and prints its
// claimed fields. The type discriminator inside the payload selects
// the loader.
func runCert(args []string) error {
	flagSet := pflag.NewFlagSet("parsec-inspect cert", pflag.ContinueOnError)
	flagSet.SetOutput(os.Stderr)
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("usage: parsec-inspect cert <file>")
	}

	signed, err := os.ReadFile(flagSet.Arg(0))
	if err != nil {
		return err
	}
	body, err := crypto.UnsecureUnwrap(signed)
	if err != nil {
		return fmt.Errorf("not a signed payload: %w", err)
	}
	inflated, err := codec.Decompress(body, maxInflatedSize)
	if err != nil {
		return err
	}
	certType, err := codec.ProbeType(inflated)
	if err != nil {
		return err
	}

	fmt.Printf("type: %s (signature NOT verified)\n", certType)
	switch certType {
	case "user_certificate":
		cert, err := data.UnsecureLoadUserCertificate(signed)
		if err != nil {
			return err
		}
		fmt.Printf("author: %s\n", cert.Author())
		fmt.Printf("timestamp: %s\n", cert.Timestamp())
		fmt.Printf("user_id: %s\n", cert.UserID())
	case "device_certificate":
		cert, err := data.UnsecureLoadDeviceCertificate(signed)
		if err != nil {
			return err
		}
		fmt.Printf("author: %s\n", cert.Author())
		fmt.Printf("timestamp: %s\n", cert.Timestamp())
		fmt.Printf("device_id: %s\n", cert.DeviceID())
		fmt.Printf("verify_key: %s\n", hex.EncodeToString(cert.VerifyKey().Bytes()))
	case "revoked_user_certificate":
		cert, err := data.UnsecureLoadRevokedUserCertificate(signed)
		if err != nil {
			return err
		}
		fmt.Printf("author: %s\n", cert.Author())
		fmt.Printf("timestamp: %s\n", cert.Timestamp())
		fmt.Printf("user_id: %s\n", cert.UserID())
	case "realm_role_certificate":
		cert, err := data.UnsecureLoadRealmRoleCertificate(signed)
		if err != nil {
			return err
		}
		fmt.Printf("author: %s\n", cert.Author())
		fmt.Printf("timestamp: %s\n", cert.Timestamp())
		fmt.Printf("realm_id: %s\n", cert.RealmID())
		fmt.Printf("user_id: %s\n", cert.UserID())
		if role := cert.Role(); role != nil {
			fmt.Printf("role: %s\n", *role)
		} else {
			fmt.Printf("role: <removed>\n")
		}
	default:
		return fmt.Errorf("unknown certificate type %q", certType)
	}
	return nil
}

// runDevices lists the device key files under the config directory,
// printed from their cleartext outer layer only.
func runDevices(args []string) error {
	flagSet := pflag.NewFlagSet("parsec-inspect devices", pflag.ContinueOnError)
	flagSet.SetOutput(os.Stderr)
	configDir := flagSet.String("config-dir", "", "config directory (default: from configuration)")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	dir := *configDir
	if dir == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		dir = cfg.ConfigDir
	}

	devices, err := local.ListAvailableDevices(dir)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Fprintf(os.Stderr, "no device key files in %s\n", dir)
		return nil
	}
	for _, device := range devices {
		label := "-"
		if device.DeviceLabel != nil {
			label = device.DeviceLabel.String()
		}
		handle := "-"
		if device.HumanHandle != nil {
			handle = device.HumanHandle.String()
		}
		fmt.Printf("%s\t%s\t%s\t%s\t%s\n",
			device.OrganizationID, device.DeviceID, label, handle, device.KeyFilePath)
	}
	return nil
}

// runDevice decrypts one device key file and prints the full identity
// it protects. The passphrase is prompted on the terminal unless
// --passphrase-file is given.
func runDevice(args []string) error {
	flagSet := pflag.NewFlagSet("parsec-inspect device", pflag.ContinueOnError)
	flagSet.SetOutput(os.Stderr)
	passphraseFile := flagSet.String("passphrase-file", "", "read the passphrase from this file instead of prompting")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("usage: parsec-inspect device [flags] <file.keys>")
	}

	passphrase, err := readPassphrase(*passphraseFile)
	if err != nil {
		return err
	}
	device, err := local.LoadDeviceWithPassphrase(flagSet.Arg(0), passphrase)
	if err != nil {
		return err
	}

	fmt.Printf("organization_addr: %s\n", device.OrganizationAddr)
	fmt.Printf("device_id: %s\n", device.DeviceID)
	if device.DeviceLabel != nil {
		fmt.Printf("device_label: %s\n", device.DeviceLabel)
	}
	if device.HumanHandle != nil {
		fmt.Printf("human_handle: %s\n", device.HumanHandle)
	}
	fmt.Printf("profile: %s\n", device.Profile)
	fmt.Printf("slug: %s\n", device.Slug())
	fmt.Printf("verify_key: %s\n", hex.EncodeToString(device.VerifyKey().Bytes()))
	fmt.Printf("public_key: %s\n", hex.EncodeToString(device.PublicKey().Bytes()))
	fmt.Printf("user_manifest_id: %s\n", device.UserManifestID)
	return nil
}

// readPassphrase resolves the device passphrase: from a file when
// given, otherwise prompted on the terminal with echo disabled.
func readPassphrase(path string) (string, error) {
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(raw), "\r\n"), nil
	}

	stdinFd := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFd) {
		return "", fmt.Errorf("no terminal available for passphrase prompt (use --passphrase-file)")
	}
	fmt.Fprint(os.Stderr, "Passphrase: ")
	raw, err := term.ReadPassword(stdinFd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(raw), nil
}
