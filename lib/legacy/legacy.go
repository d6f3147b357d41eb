// Copyright 2026 Data Respons Solutions AB
// SPDX-License-Identifier: Apache-2.0

// Package legacy implements the line-oriented text format: one
// KEY=VALUE entry per line, trailing newline optional. It serves two
// callers: the NVRAM_FORMAT=legacy single-copy store, and --init
// ingestion, which parses a legacy file and replays it as one batch of
// sets.
//
// Parsing is strict. Empty lines and leading whitespace are skipped;
// anything else must be a complete KEY=VALUE entry with a non-empty
// key and a non-empty value, and the first malformed line aborts the
// whole parse. The empty value is representable on the CLI but not in
// this format, so writers refuse it too.
package legacy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/datarespons/nvram/lib/attr"
	"github.com/datarespons/nvram/lib/store"
)

// Parse decodes legacy text into attributes, applying last-write-wins
// to repeated keys. The first malformed line aborts with an error
// wrapping store.ErrMalformedInput.
func Parse(data []byte) ([]attr.Attribute, error) {
	list := &attr.List{}
	lineNumber := 0
	for _, line := range strings.Split(string(data), "\n") {
		lineNumber++
		line = strings.TrimLeft(line, " \t")
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("%w: line %d: missing '='", store.ErrMalformedInput, lineNumber)
		}
		if key == "" {
			return nil, fmt.Errorf("%w: line %d: empty key", store.ErrMalformedInput, lineNumber)
		}
		if value == "" {
			return nil, fmt.Errorf("%w: line %d: empty value", store.ErrMalformedInput, lineNumber)
		}
		if err := attr.ValidateKey(key); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", store.ErrMalformedInput, lineNumber, err)
		}
		list.Set(key, value)
	}
	return list.Entries(), nil
}

// ParseFile reads and parses a legacy file. Used by init ingestion.
func ParseFile(path string) ([]attr.Attribute, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading init file: %w", err)
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Serialize encodes attributes as legacy text, one key=value row per
// entry. Entries with empty values are not representable and are
// rejected.
func Serialize(entries []attr.Attribute) ([]byte, error) {
	var builder strings.Builder
	for _, entry := range entries {
		if entry.Value == "" {
			return nil, fmt.Errorf("key %q has an empty value, not representable in legacy format", entry.Key)
		}
		builder.WriteString(entry.Key)
		builder.WriteByte('=')
		builder.WriteString(entry.Value)
		builder.WriteByte('\n')
	}
	return []byte(builder.String()), nil
}

// Section is a single-copy section stored as legacy text. It has no
// generation counter and no replica, so it keeps only the durability
// of atomic rename — the operator's explicit trade when selecting the
// legacy format.
type Section struct {
	name    string
	path    string
	live    *attr.List
	corrupt bool
}

// Open reads a legacy section. The format supports a single (A) copy
// only; a configured B path is a configuration error. Unparseable
// content marks the section corrupt: reads fail until a commit
// rewrites the file.
func Open(name, pathA, pathB string) (*Section, error) {
	if pathB != "" {
		return nil, fmt.Errorf("%s: legacy format supports a single (A) copy only", name)
	}
	section := &Section{name: name, path: pathA, live: &attr.List{}}
	if pathA == "" {
		return section, nil
	}

	data, err := os.ReadFile(pathA)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return section, nil
		}
		return nil, fmt.Errorf("%s: reading %s: %w", name, pathA, err)
	}

	entries, err := Parse(data)
	if err != nil {
		section.corrupt = true
		return section, nil
	}
	section.live = attr.NewList(entries)
	return section, nil
}

// Name implements store.Section.
func (s *Section) Name() string { return s.name }

// Enabled implements store.Section.
func (s *Section) Enabled() bool { return s.path != "" }

// Corrupt implements store.Section.
func (s *Section) Corrupt() bool { return s.corrupt }

// Snapshot implements store.Section.
func (s *Section) Snapshot() *attr.List { return s.live.Clone() }

// Commit implements store.Section: serialize the image and atomically
// replace the single copy.
func (s *Section) Commit(image *attr.List) error {
	if !s.Enabled() {
		return fmt.Errorf("%s: %w", s.name, store.ErrDisabledSection)
	}
	data, err := Serialize(image.Entries())
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	if err := store.WriteCopy(s.path, data); err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	s.live = image.Clone()
	s.corrupt = false
	return nil
}
