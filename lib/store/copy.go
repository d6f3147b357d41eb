// Copyright 2026 Data Respons Solutions AB
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/datarespons/nvram/lib/attr"
	"github.com/datarespons/nvram/lib/blob"
)

// CopyState classifies the content of one copy file.
type CopyState int

const (
	// CopyAbsent: the file does not exist, or the copy is disabled
	// (empty path).
	CopyAbsent CopyState = iota

	// CopyEmpty: the file exists with zero bytes. Distinguished from
	// absent for diagnostics; both are treated as "no blob here".
	CopyEmpty

	// CopyInvalid: the file holds bytes that do not decode as a
	// container blob.
	CopyInvalid

	// CopyValid: the file holds a verified blob.
	CopyValid
)

func (s CopyState) String() string {
	switch s {
	case CopyAbsent:
		return "absent"
	case CopyEmpty:
		return "empty"
	case CopyInvalid:
		return "invalid"
	case CopyValid:
		return "valid"
	default:
		return fmt.Sprintf("CopyState(%d)", int(s))
	}
}

// Copy is the read result for one copy file.
type Copy struct {
	State   CopyState
	Entries []attr.Attribute
	Counter uint64
}

// ReadCopy reads and classifies one copy file. An empty path is a
// disabled copy and reads as absent. Decode failure is not an error —
// it is the CopyInvalid state the replication layer consumes. Only
// real I/O failures return a non-nil error.
func ReadCopy(path string) (Copy, error) {
	if path == "" {
		return Copy{State: CopyAbsent}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Copy{State: CopyAbsent}, nil
		}
		return Copy{}, fmt.Errorf("reading copy %s: %w", path, err)
	}
	if len(data) == 0 {
		return Copy{State: CopyEmpty}, nil
	}

	entries, counter, err := blob.Decode(data)
	if err != nil {
		return Copy{State: CopyInvalid}, nil
	}
	return Copy{State: CopyValid, Entries: entries, Counter: counter}, nil
}

// WriteCopy atomically replaces the file at path with data: write to a
// sibling temp file, fsync, rename over the destination, fsync the
// parent directory. A crash at any instant leaves either the old or
// the new contents fully present. The temp name is deterministic
// (<path>.tmp) so a stale temp left by a crash is overwritten rather
// than accumulated.
func WriteCopy(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("writing to disabled copy")
	}

	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating temporary copy file: %w", err)
	}

	// Write, sync, close — in that order. If any step fails, remove
	// the temporary file and report the first error.
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary copy file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary copy file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary copy file: %w", err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming copy file into place: %w", err)
	}

	// Sync the parent directory so the rename survives power loss
	// between the rename and the OS flushing directory metadata.
	parentDirectory, err := os.Open(filepath.Dir(path))
	if err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}

	return nil
}
