// Copyright 2026 Data Respons Solutions AB
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the nvram tool.
//
// Configuration is resolved once at startup and passed by value into
// the store constructors; nothing reads the environment after startup.
// Resolution order, later sources overriding earlier ones:
//
//  1. Built-in defaults ([Default]).
//  2. An optional YAML file named by the NVRAM_CONFIG environment
//     variable (deployments bake one into the image).
//  3. The enumerated NVRAM_* environment variables. An empty value is
//     meaningful for copy paths — it disables the copy — so presence
//     is what matters, not non-emptiness.
//
// The unlock token is deliberately weak: a plain string compared for
// equality. It is a production/development fence, not a security
// boundary.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names an on-disk encoding.
type Format string

const (
	// FormatDefault is the replicated A/B binary container.
	FormatDefault Format = "default"
	// FormatLegacy is the single-copy KEY=VALUE text file.
	FormatLegacy Format = "legacy"
	// FormatPlatform is the single-copy fixed-schema platform header.
	FormatPlatform Format = "platform"
)

// SectionPaths holds the two copy paths of one section. An empty path
// disables that copy; both empty disables the section.
type SectionPaths struct {
	A string `yaml:"a"`
	B string `yaml:"b"`
}

// Config is the resolved configuration for one invocation.
type Config struct {
	// System and User are the backing copy paths per section.
	System SectionPaths `yaml:"system"`
	User   SectionPaths `yaml:"user"`

	// Format selects the on-disk encoder.
	Format Format `yaml:"format"`

	// UnlockToken is the value NVRAM_SYSTEM_UNLOCK must equal to
	// grant SYSTEM mutation privilege.
	UnlockToken string `yaml:"unlock_token"`

	// AllowAllPrefixes relaxes the system-mode prefix requirement.
	AllowAllPrefixes bool `yaml:"allow_all_prefixes"`

	// InitEnabled gates --init ingestion.
	InitEnabled bool `yaml:"init_enabled"`

	// ValidAttributes, when non-empty, is a whitelist of writable keys.
	ValidAttributes []string `yaml:"valid_attributes"`

	// Lockfile is the advisory lock path held for the invocation.
	Lockfile string `yaml:"lockfile"`

	// PlatformWrite enables writes to the platform header.
	PlatformWrite bool `yaml:"platform_write"`

	// Unlocked is computed at load time: the environment supplied an
	// unlock token equal to UnlockToken.
	Unlocked bool `yaml:"-"`

	// Debug raises the log level to debug.
	Debug bool `yaml:"-"`
}

// Environment variable names.
const (
	EnvConfig          = "NVRAM_CONFIG"
	EnvSystemA         = "NVRAM_SYSTEM_A"
	EnvSystemB         = "NVRAM_SYSTEM_B"
	EnvUserA           = "NVRAM_USER_A"
	EnvUserB           = "NVRAM_USER_B"
	EnvSystemUnlock    = "NVRAM_SYSTEM_UNLOCK"
	EnvAllowPrefixes   = "NVRAM_ALLOW_ALL_PREFIXES"
	EnvInitEnabled     = "NVRAM_INIT_ENABLED"
	EnvValidAttributes = "NVRAM_VALID_ATTRIBUTES"
	EnvFormat          = "NVRAM_FORMAT"
	EnvLockfile        = "NVRAM_LOCKFILE"
	EnvPlatformWrite   = "NVRAM_PLATFORM_WRITE"
	EnvDebug           = "NVRAM_DEBUG"
)

// DefaultUnlockToken is the built-in unlock value, overridable via the
// config file.
const DefaultUnlockToken = "16440"

// Default returns the built-in configuration: the standard flash
// paths, the default format, mutations locked.
func Default() *Config {
	return &Config{
		System:      SectionPaths{A: "/var/lib/nvram/system_a", B: "/var/lib/nvram/system_b"},
		User:        SectionPaths{A: "/var/lib/nvram/user_a", B: "/var/lib/nvram/user_b"},
		Format:      FormatDefault,
		UnlockToken: DefaultUnlockToken,
		Lockfile:    "/run/lock/nvram.lock",
	}
}

// Load resolves the configuration from defaults, the optional
// NVRAM_CONFIG file, and the NVRAM_* environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvConfig); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnvironment(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile merges a YAML config file into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnvironment overlays the enumerated environment variables. The
// lookup function is injected (os.LookupEnv in production) so tests
// can run without mutating the process environment.
func (c *Config) ApplyEnvironment(lookupEnv func(string) (string, bool)) {
	setString := func(env string, target *string) {
		if value, ok := lookupEnv(env); ok {
			*target = value
		}
	}

	setString(EnvSystemA, &c.System.A)
	setString(EnvSystemB, &c.System.B)
	setString(EnvUserA, &c.User.A)
	setString(EnvUserB, &c.User.B)
	setString(EnvLockfile, &c.Lockfile)

	if value, ok := lookupEnv(EnvFormat); ok && value != "" {
		c.Format = Format(value)
	}
	if value, ok := lookupEnv(EnvAllowPrefixes); ok {
		c.AllowAllPrefixes = value == "yes"
	}
	if value, ok := lookupEnv(EnvInitEnabled); ok {
		c.InitEnabled = value == "yes"
	}
	if value, ok := lookupEnv(EnvPlatformWrite); ok {
		c.PlatformWrite = value == "yes"
	}
	if value, ok := lookupEnv(EnvValidAttributes); ok && value != "" && value != "none" {
		c.ValidAttributes = splitColonList(value)
	}
	if value, ok := lookupEnv(EnvDebug); ok && value != "" && value != "0" {
		c.Debug = true
	}

	token, _ := lookupEnv(EnvSystemUnlock)
	c.Unlocked = token != "" && token == c.UnlockToken
}

// splitColonList splits a colon-separated list, dropping empty
// elements.
func splitColonList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ":") {
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Whitelist returns the valid-attribute set, or nil when no whitelist
// is configured.
func (c *Config) Whitelist() map[string]struct{} {
	if len(c.ValidAttributes) == 0 {
		return nil
	}
	whitelist := make(map[string]struct{}, len(c.ValidAttributes))
	for _, key := range c.ValidAttributes {
		whitelist[key] = struct{}{}
	}
	return whitelist
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatDefault, FormatLegacy, FormatPlatform:
	default:
		return fmt.Errorf("invalid format %q (want default, legacy, or platform)", c.Format)
	}
	if c.Lockfile == "" {
		return fmt.Errorf("lockfile path is required")
	}
	return nil
}
