// Copyright 2026 Data Respons Solutions AB
// SPDX-License-Identifier: Apache-2.0

package store

import "errors"

// The store error taxonomy. Callers classify failures with errors.Is;
// the CLI does not distinguish exit codes per class, but tests and
// embedders do.
var (
	// ErrNotFound reports a read of an absent key.
	ErrNotFound = errors.New("attribute not found")

	// ErrInvalidKey reports a key that fails attr.ValidateKey, or a
	// value with a newline.
	ErrInvalidKey = errors.New("invalid attribute key")

	// ErrPrefixViolation reports a key whose prefix does not match the
	// target section under the active policy.
	ErrPrefixViolation = errors.New("key prefix not allowed for section")

	// ErrPrivilegeDenied reports a SYSTEM mutation without the system
	// unlock, or init without init enabled.
	ErrPrivilegeDenied = errors.New("privilege denied")

	// ErrMalformedInput reports a bad line in a legacy init file.
	ErrMalformedInput = errors.New("malformed input")

	// ErrCorrupt reports a read from a section with no valid copy and
	// at least one copy that failed to decode. Mutations do not hit this: they proceed
	// from an empty image and repair the copies on commit.
	ErrCorrupt = errors.New("store corrupt")

	// ErrDisabledSection reports an operation routed to a section with
	// no enabled copy path.
	ErrDisabledSection = errors.New("section disabled")

	// ErrNotWhitelisted reports a write of a key absent from the
	// configured valid-attribute list.
	ErrNotWhitelisted = errors.New("attribute not in valid list")
)
