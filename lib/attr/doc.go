// Copyright 2026 Data Respons Solutions AB
// SPDX-License-Identifier: Apache-2.0

// Package attr defines the attribute data model shared by every nvram
// format and store: a key/value pair and an ordered list of pairs with
// unique keys and last-write-wins assignment.
//
// Keys are non-empty printable octet sequences that contain neither
// '=' nor a newline. Values are octet sequences without newlines; the
// empty value is legal. Both rules are enforced at the edge
// ([ValidateKey], [ValidateValue]) so the codecs below this package
// can treat entries as opaque bytes.
//
// This package has no dependencies on other nvram packages.
package attr
