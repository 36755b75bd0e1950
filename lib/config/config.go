// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the client configuration file.
//
// Configuration lives in a single YAML file. Its location is resolved
// from the PARSEC_CONFIG environment variable when set, otherwise from
// the OS-standard user configuration directory. A missing file yields
// the defaults; a malformed file is an error, never silently ignored.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/parsec-foundation/parsec/lib/addr"
)

// EnvConfigPath overrides the configuration file location.
const EnvConfigPath = "PARSEC_CONFIG"

const configFileName = "config.yaml"

// ClientConfig is the resolved client configuration.
type ClientConfig struct {
	// Backend is the server every organization-level address is
	// relative to.
	Backend addr.BackendAddr

	// ConfigDir holds client state, notably the devices/ key files.
	ConfigDir string

	// BootstrapToken authorizes organization bootstrap on backends
	// requiring one. Empty for spontaneous bootstrap.
	BootstrapToken string
}

type clientConfigWire struct {
	BackendAddr    string `yaml:"backend_addr"`
	ConfigDir      string `yaml:"config_dir"`
	BootstrapToken string `yaml:"bootstrap_token"`
}

// Default returns the configuration used when no file exists: the
// local development backend and the OS-standard config directory.
func Default() (*ClientConfig, error) {
	configDir, err := defaultConfigDir()
	if err != nil {
		return nil, err
	}
	backend, err := addr.NewBackendAddr("localhost", 6777, false)
	if err != nil {
		return nil, err
	}
	return &ClientConfig{Backend: backend, ConfigDir: configDir}, nil
}

// Load resolves the configuration file path and loads it. A missing
// file is not an error; defaults are returned instead.
func Load() (*ClientConfig, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return LoadFile(path)
	}
	configDir, err := defaultConfigDir()
	if err != nil {
		return nil, err
	}
	cfg, err := LoadFile(filepath.Join(configDir, configFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return Default()
	}
	return cfg, err
}

// LoadFile loads and validates one configuration file.
func LoadFile(path string) (*ClientConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var wire clientConfigWire
	if err := yaml.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if wire.BackendAddr != "" {
		backend, err := addr.ParseBackendAddr(wire.BackendAddr)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: invalid backend_addr: %w", path, err)
		}
		cfg.Backend = backend
	}
	if wire.ConfigDir != "" {
		cfg.ConfigDir = wire.ConfigDir
	}
	cfg.BootstrapToken = wire.BootstrapToken
	return cfg, nil
}

// Save writes the configuration to the given path, creating parent
// directories as needed.
func Save(cfg *ClientConfig, path string) error {
	wire := clientConfigWire{
		BackendAddr:    cfg.Backend.String(),
		ConfigDir:      cfg.ConfigDir,
		BootstrapToken: cfg.BootstrapToken,
	}
	raw, err := yaml.Marshal(&wire)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func defaultConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "parsec"), nil
}
