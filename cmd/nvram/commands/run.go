// Copyright 2026 Data Respons Solutions AB
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/datarespons/nvram/cmd/nvram/cli"
	"github.com/datarespons/nvram/lib/config"
	"github.com/datarespons/nvram/lib/legacy"
	"github.com/datarespons/nvram/lib/lockfile"
	"github.com/datarespons/nvram/lib/platform"
	"github.com/datarespons/nvram/lib/store"
)

// execute runs one request against the configured store and prints
// the results to stdout.
func execute(request store.Request) error {
	return executeTo(os.Stdout, request)
}

// executeTo is the full invocation pipeline: resolve configuration,
// take the invocation lock, bring up both sections, run the request
// through the manager, and render the reads.
func executeTo(out io.Writer, request store.Request) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cli.NewCommandLogger(cfg.Debug)

	lock, err := lockfile.Acquire(cfg.Lockfile)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("releasing lockfile", "error", err)
		}
	}()

	user, err := openSection(cfg, "user", cfg.User)
	if err != nil {
		return err
	}
	system, err := openSection(cfg, "system", cfg.System)
	if err != nil {
		return err
	}

	manager := store.NewManager(user, system, store.Options{
		AllowAllPrefixes: cfg.AllowAllPrefixes,
		Unlocked:         cfg.Unlocked,
		InitEnabled:      cfg.InitEnabled,
		ValidAttributes:  cfg.Whitelist(),
		Logger:           logger,
	})

	result, err := manager.Execute(request)
	if err != nil {
		return err
	}

	for _, value := range result.Values {
		fmt.Fprintf(out, "%s\n", value)
	}
	for _, entry := range result.Listing {
		fmt.Fprintf(out, "%s=%s\n", entry.Key, entry.Value)
	}
	return nil
}

// openSection brings up one section with the configured format.
func openSection(cfg *config.Config, name string, paths config.SectionPaths) (store.Section, error) {
	switch cfg.Format {
	case config.FormatLegacy:
		return legacy.Open(name, paths.A, paths.B)
	case config.FormatPlatform:
		return platform.Open(name, paths.A, paths.B, cfg.PlatformWrite)
	default:
		return store.OpenReplicated(name, paths.A, paths.B)
	}
}
