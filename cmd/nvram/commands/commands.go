// Copyright 2026 Data Respons Solutions AB
// SPDX-License-Identifier: Apache-2.0

// Package commands defines the nvram command tree. Two surfaces feed
// the same dispatcher: the flag form (--set/--get/--del/--list/--init,
// repeatable and batched) handled by the root command's argument
// scanner, and the legacy subcommand form (set/get/delete/list) kept
// for scripts that predate the flag form.
package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/datarespons/nvram/cmd/nvram/cli"
	"github.com/datarespons/nvram/lib/store"
)

// Root returns the nvram command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name:    "nvram",
		Summary: "non-volatile attribute store",
		Description: "nvram persists key/value attributes across power cycles.\n" +
			"Attributes live in two sections: USER for application state and\n" +
			"SYSTEM (SYS_-prefixed keys) for factory provisioning. Each section\n" +
			"is replicated across two copies so an interrupted write never\n" +
			"corrupts the store.",
		Usage: "nvram [--sys] [--set KEY VALUE]... [--get KEY]... [--del KEY]... [--list] [--init PATH]",
		Examples: []cli.Example{
			{Description: "write and read back a user attribute", Command: "nvram --set key1 val1 && nvram --get key1"},
			{Description: "list the system section", Command: "nvram --sys --list"},
			{Description: "provision the system section from a factory file", Command: "nvram --sys --init /sys/factory/defaults.txt"},
			{Description: "legacy subcommand form", Command: "nvram set key1 val1"},
		},
		Subcommands: []*cli.Command{
			setCommand(),
			getCommand(),
			deleteCommand(),
			listCommand(),
		},
		Run: runFlagForm,
	}
}

// setCommand is the legacy "nvram set KEY VALUE" form.
func setCommand() *cli.Command {
	var systemMode bool
	return &cli.Command{
		Name:    "set",
		Summary: "write one attribute",
		Usage:   "nvram set [--sys] KEY VALUE",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("set", pflag.ContinueOnError)
			flags.BoolVar(&systemMode, "sys", false, "address the SYSTEM section")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("set requires KEY and VALUE")
			}
			return execute(store.Request{
				SystemMode: systemMode,
				Ops:        []store.Operation{{Kind: store.OpSet, Key: args[0], Value: args[1]}},
			})
		},
	}
}

// getCommand is the legacy "nvram get KEY" form.
func getCommand() *cli.Command {
	var systemMode bool
	return &cli.Command{
		Name:    "get",
		Summary: "read one attribute value",
		Usage:   "nvram get [--sys] KEY",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("get", pflag.ContinueOnError)
			flags.BoolVar(&systemMode, "sys", false, "address the SYSTEM section")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("get requires KEY")
			}
			return execute(store.Request{
				SystemMode: systemMode,
				Ops:        []store.Operation{{Kind: store.OpGet, Key: args[0]}},
			})
		},
	}
}

// deleteCommand is the legacy "nvram delete KEY" form.
func deleteCommand() *cli.Command {
	var systemMode bool
	return &cli.Command{
		Name:    "delete",
		Summary: "remove one attribute",
		Usage:   "nvram delete [--sys] KEY",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("delete", pflag.ContinueOnError)
			flags.BoolVar(&systemMode, "sys", false, "address the SYSTEM section")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("delete requires KEY")
			}
			return execute(store.Request{
				SystemMode: systemMode,
				Ops:        []store.Operation{{Kind: store.OpDelete, Key: args[0]}},
			})
		},
	}
}

// listCommand is the legacy "nvram list" form.
func listCommand() *cli.Command {
	var systemMode bool
	return &cli.Command{
		Name:    "list",
		Summary: "list every attribute of the addressed section",
		Usage:   "nvram list [--sys]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flags.BoolVar(&systemMode, "sys", false, "address the SYSTEM section")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("list takes no arguments")
			}
			return execute(store.Request{
				SystemMode: systemMode,
				Ops:        []store.Operation{{Kind: store.OpList}},
			})
		},
	}
}
