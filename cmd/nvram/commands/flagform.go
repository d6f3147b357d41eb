// Copyright 2026 Data Respons Solutions AB
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/datarespons/nvram/lib/legacy"
	"github.com/datarespons/nvram/lib/store"
)

// runFlagForm handles the flag form of the CLI. The operation flags
// take positional operands (--set KEY VALUE) and preserve their
// interleaved order, so they are scanned by hand rather than declared
// as pflag flags. Mode flags may appear anywhere.
func runFlagForm(args []string) error {
	request, err := parseFlagForm(args)
	if err != nil {
		return err
	}
	return execute(request)
}

// parseFlagForm scans the argument list into a request. With no
// operations at all the invocation defaults to list.
func parseFlagForm(args []string) (store.Request, error) {
	var request store.Request
	initPath := ""

	need := func(flag string, count, index int) error {
		if index+count >= len(args) {
			return fmt.Errorf("too few arguments for %s", flag)
		}
		return nil
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--set":
			if err := need("--set", 2, i); err != nil {
				return store.Request{}, err
			}
			request.Ops = append(request.Ops, store.Operation{Kind: store.OpSet, Key: args[i+1], Value: args[i+2]})
			i += 2
		case "--get":
			if err := need("--get", 1, i); err != nil {
				return store.Request{}, err
			}
			request.Ops = append(request.Ops, store.Operation{Kind: store.OpGet, Key: args[i+1]})
			i++
		case "--del":
			if err := need("--del", 1, i); err != nil {
				return store.Request{}, err
			}
			request.Ops = append(request.Ops, store.Operation{Kind: store.OpDelete, Key: args[i+1]})
			i++
		case "--list":
			request.Ops = append(request.Ops, store.Operation{Kind: store.OpList})
		case "--init":
			if err := need("--init", 1, i); err != nil {
				return store.Request{}, err
			}
			initPath = args[i+1]
			i++
		case "--sys":
			request.SystemMode = true
		case "--user":
			// Explicit user mode: clears an earlier --sys. Every format
			// already defaults to user mode, so on its own the flag
			// changes nothing; accepted for script compatibility.
			request.SystemMode = false
		default:
			return store.Request{}, fmt.Errorf("unknown argument: %s", args[i])
		}
	}

	if initPath != "" {
		if len(request.Ops) > 0 {
			return store.Request{}, fmt.Errorf("--init cannot be combined with other operations")
		}
		entries, err := legacy.ParseFile(initPath)
		if err != nil {
			return store.Request{}, err
		}
		request.SystemMode = true
		request.Init = true
		for _, entry := range entries {
			request.Ops = append(request.Ops, store.Operation{Kind: store.OpSet, Key: entry.Key, Value: entry.Value})
		}
		return request, nil
	}

	if len(request.Ops) == 0 {
		request.Ops = append(request.Ops, store.Operation{Kind: store.OpList})
	}
	return request, nil
}
