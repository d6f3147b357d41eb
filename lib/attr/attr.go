// Copyright 2026 Data Respons Solutions AB
// SPDX-License-Identifier: Apache-2.0

package attr

import (
	"fmt"
	"strings"
)

// Attribute is a single persisted key/value pair.
type Attribute struct {
	Key   string
	Value string
}

// ValidateKey checks that key is usable as an attribute name: non-empty,
// printable, and free of '=' and newlines. The '=' exclusion keeps keys
// unambiguous in the legacy KEY=VALUE text encoding; the newline
// exclusion keeps list output one entry per line.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("attribute key is empty")
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c == '=' {
			return fmt.Errorf("attribute key %q contains '='", key)
		}
		if c < 0x20 || c == 0x7f {
			return fmt.Errorf("attribute key %q contains non-printable byte 0x%02x", key, c)
		}
	}
	return nil
}

// ValidateValue checks that value contains no newline. Empty values are
// legal on the CLI (the legacy file format rejects them separately).
func ValidateValue(value string) error {
	if strings.ContainsAny(value, "\n") {
		return fmt.Errorf("attribute value contains newline")
	}
	return nil
}

// List is the in-memory image of one section: an ordered set of
// attributes with unique keys. Assignment is last-write-wins; insertion
// order is preserved so list output is stable within one process.
//
// The zero value is an empty list ready for use.
type List struct {
	entries []Attribute
}

// NewList builds a list from entries, applying each in order with
// last-write-wins semantics.
func NewList(entries []Attribute) *List {
	list := &List{}
	for _, entry := range entries {
		list.Set(entry.Key, entry.Value)
	}
	return list
}

// Get returns the value for key and whether the key exists.
func (l *List) Get(key string) (string, bool) {
	for _, entry := range l.entries {
		if entry.Key == key {
			return entry.Value, true
		}
	}
	return "", false
}

// Set assigns value to key, inserting or overwriting. Returns true when
// the list changed: a set to an existing identical value is reported as
// unchanged so callers can skip a commit that would rewrite identical
// state.
func (l *List) Set(key, value string) bool {
	for i, entry := range l.entries {
		if entry.Key == key {
			if entry.Value == value {
				return false
			}
			l.entries[i].Value = value
			return true
		}
	}
	l.entries = append(l.entries, Attribute{Key: key, Value: value})
	return true
}

// Remove deletes key from the list. Returns true when the key existed.
func (l *List) Remove(key string) bool {
	for i, entry := range l.entries {
		if entry.Key == key {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of attributes in the list.
func (l *List) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the attributes in insertion order. Mutating
// the returned slice does not affect the list.
func (l *List) Entries() []Attribute {
	entries := make([]Attribute, len(l.entries))
	copy(entries, l.entries)
	return entries
}

// Clone returns an independent copy of the list. The store manager
// mutates clones so a failed batch leaves the live image untouched.
func (l *List) Clone() *List {
	return &List{entries: l.Entries()}
}
