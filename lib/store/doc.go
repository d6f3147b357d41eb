// Copyright 2026 Data Respons Solutions AB
// SPDX-License-Identifier: Apache-2.0

// Package store implements the transactional attribute store: copy
// I/O, the replicated A/B section store, and the store manager that
// routes keyed operations to the USER and SYSTEM sections.
//
// Each section is backed by up to two copy files, A and B. A commit
// never touches the live copy: the new image is encoded with a
// generation counter one above the live copy's and written — via
// temp-file-and-rename — to the stale copy, which thereby becomes
// live. A crash at any instant leaves the previous live copy intact,
// so the next read observes either the old state or the new state,
// never a mixture. A copy corrupted at rest is overwritten on the
// following commit.
//
// The [Manager] owns both sections, enforces the SYS_ prefix policy
// and the system unlock, and batches a whole invocation's mutations
// into at most one commit per section. Validation runs before any
// image is touched; a failed batch has no observable effect.
//
// The error taxonomy ([ErrNotFound], [ErrPrivilegeDenied], ...) is a
// set of sentinels matched with errors.Is; the CLI maps any of them to
// a single diagnostic line and a non-zero exit.
package store
