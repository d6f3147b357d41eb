// Copyright 2026 Data Respons Solutions AB
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

// envMap builds a lookup function over a fixture environment.
func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Format != FormatDefault {
		t.Errorf("format = %q, want default", cfg.Format)
	}
	if cfg.UnlockToken != DefaultUnlockToken {
		t.Errorf("unlock_token = %q, want %q", cfg.UnlockToken, DefaultUnlockToken)
	}
	if cfg.Unlocked {
		t.Error("default config is unlocked")
	}
	if cfg.System.A == "" || cfg.User.A == "" {
		t.Error("default copy paths missing")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestApplyEnvironmentPaths(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnvironment(envMap(map[string]string{
		EnvSystemA: "/tmp/sa",
		EnvSystemB: "", // present but empty: disable copy B
		EnvUserA:   "/tmp/ua",
		EnvUserB:   "/tmp/ub",
	}))

	if cfg.System.A != "/tmp/sa" || cfg.System.B != "" {
		t.Errorf("system paths = %+v", cfg.System)
	}
	if cfg.User.A != "/tmp/ua" || cfg.User.B != "/tmp/ub" {
		t.Errorf("user paths = %+v", cfg.User)
	}
}

func TestApplyEnvironmentUnsetLeavesDefaults(t *testing.T) {
	cfg := Default()
	want := cfg.System.A
	cfg.ApplyEnvironment(envMap(nil))
	if cfg.System.A != want {
		t.Errorf("unset env changed system.a to %q", cfg.System.A)
	}
}

func TestUnlockComputation(t *testing.T) {
	cases := []struct {
		name  string
		token string
		set   bool
		want  bool
	}{
		{name: "unset", set: false, want: false},
		{name: "wrong", token: "wrong", set: true, want: false},
		{name: "empty", token: "", set: true, want: false},
		{name: "match", token: DefaultUnlockToken, set: true, want: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			env := map[string]string{}
			if tc.set {
				env[EnvSystemUnlock] = tc.token
			}
			cfg.ApplyEnvironment(envMap(env))
			if cfg.Unlocked != tc.want {
				t.Errorf("Unlocked = %v, want %v", cfg.Unlocked, tc.want)
			}
		})
	}
}

func TestYesNoSwitches(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnvironment(envMap(map[string]string{
		EnvAllowPrefixes: "yes",
		EnvInitEnabled:   "yes",
		EnvPlatformWrite: "no",
		EnvDebug:         "1",
	}))

	if !cfg.AllowAllPrefixes || !cfg.InitEnabled {
		t.Error("yes switches not applied")
	}
	if cfg.PlatformWrite {
		t.Error("no switch applied as yes")
	}
	if !cfg.Debug {
		t.Error("debug not applied")
	}
}

func TestValidAttributes(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnvironment(envMap(map[string]string{
		EnvValidAttributes: "SYS_PRODUCT_ID:SYS_PRODUCT_DATE:LM_PRODUCT_ID",
	}))

	whitelist := cfg.Whitelist()
	if len(whitelist) != 3 {
		t.Fatalf("whitelist has %d entries, want 3", len(whitelist))
	}
	if _, ok := whitelist["LM_PRODUCT_ID"]; !ok {
		t.Error("LM_PRODUCT_ID missing from whitelist")
	}

	// "none" and empty mean no whitelist at all.
	for _, value := range []string{"none", ""} {
		cfg := Default()
		cfg.ApplyEnvironment(envMap(map[string]string{EnvValidAttributes: value}))
		if cfg.Whitelist() != nil {
			t.Errorf("value %q produced a whitelist", value)
		}
	}
}

func TestFormatSelection(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnvironment(envMap(map[string]string{EnvFormat: "legacy"}))
	if cfg.Format != FormatLegacy {
		t.Errorf("format = %q, want legacy", cfg.Format)
	}

	cfg.Format = Format("bogus")
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted bogus format")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nvram.yaml")
	content := `
system:
  a: /flash/system_a
  b: /flash/system_b
user:
  a: /flash/user_a
  b: ""
format: default
unlock_token: "999"
init_enabled: true
valid_attributes:
  - SYS_PRODUCT_ID
lockfile: /tmp/nvram.lock
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		t.Fatalf("loadFile failed: %v", err)
	}
	if cfg.System.A != "/flash/system_a" {
		t.Errorf("system.a = %q", cfg.System.A)
	}
	if cfg.User.B != "" {
		t.Errorf("user.b = %q, want disabled", cfg.User.B)
	}
	if cfg.UnlockToken != "999" {
		t.Errorf("unlock_token = %q, want 999", cfg.UnlockToken)
	}
	if !cfg.InitEnabled {
		t.Error("init_enabled not loaded")
	}
	if len(cfg.ValidAttributes) != 1 {
		t.Errorf("valid_attributes = %v", cfg.ValidAttributes)
	}

	// Env token compares against the file-supplied value.
	cfg.ApplyEnvironment(envMap(map[string]string{EnvSystemUnlock: "999"}))
	if !cfg.Unlocked {
		t.Error("file-configured token did not unlock")
	}
}
