// Copyright 2026 Data Respons Solutions AB
// SPDX-License-Identifier: Apache-2.0

// Package lockfile serializes nvram invocations with an advisory
// flock(2) lock. The store itself assumes exclusive ownership for the
// duration of one invocation; the lockfile is what provides that
// exclusivity when several invocations race on the same device.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

const (
	// acquireRetries bounds how long a caller waits for a competing
	// invocation to finish.
	acquireRetries = 10
	retryDelay     = 10 * time.Millisecond
)

// Lock is a held advisory lock.
type Lock struct {
	path string
	file *os.File
}

// Acquire opens (creating if needed) the lock path and takes an
// exclusive non-blocking flock, retrying briefly when another
// invocation holds it. The lock is released by [Lock.Release] or
// implicitly when the process exits.
func Acquire(path string) (*Lock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening lockfile %s: %w", path, err)
	}

	for attempt := 0; ; attempt++ {
		err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &Lock{path: path, file: file}, nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) {
			file.Close()
			return nil, fmt.Errorf("locking %s: %w", path, err)
		}
		if attempt >= acquireRetries {
			file.Close()
			return nil, fmt.Errorf("locking %s: held by another invocation: %w", path, unix.ETIMEDOUT)
		}
		time.Sleep(retryDelay)
	}
}

// Release drops the lock and removes the lockfile. Safe to call once;
// the remove tolerates the path having already been removed.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing lockfile %s: %w", l.path, err)
	}
	l.file = nil
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing lockfile %s: %w", l.path, err)
	}
	return nil
}
