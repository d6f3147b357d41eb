// Copyright 2026 Data Respons Solutions AB
// SPDX-License-Identifier: Apache-2.0

// Package blob implements the default on-disk container format: a
// self-describing binary blob holding one section's attribute set, a
// generation counter, and a CRC-32 over the body.
//
// Layout, all header integers little-endian:
//
//	offset  size  field
//	0       4     magic "NVRM"
//	4       4     format version (2)
//	8       8     generation counter
//	16      4     body length
//	20      4     CRC-32 (IEEE) of the body
//	24      ...   body
//
// The body is a sequence of entries, each a 2-byte big-endian key
// length, the key octets, a 2-byte big-endian value length, and the
// value octets. The body ends exactly when the declared length is
// consumed.
//
// The counter is the only ordering signal between the two copies of a
// section; it sits in the header ahead of the CRC so a reader that
// only needs "which copy is newer" can compare counters before paying
// for body verification. The CRC covers the body alone, leaving the
// counter independently verifiable.
//
// Decode failures collapse into the single [ErrInvalid] class. Callers
// must not distinguish why a blob is invalid — a truncated file, a bad
// CRC, and a duplicate key all mean the same thing to the replication
// layer: this copy does not count.
package blob
