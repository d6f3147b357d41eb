// Copyright 2026 Data Respons Solutions AB
// SPDX-License-Identifier: Apache-2.0

// Package platform implements the fixed-schema platform header: a
// single 1024-byte little-endian record identifying the hardware,
// normally provisioned once in manufacturing and read-only in the
// field.
//
// Layout (field order is frozen for backwards compatibility; new
// fields claim reserved space and bump the version):
//
//	offset  size  field
//	0       4     magic 0x54414c50 ("PLAT")
//	4       4     version
//	8       64    platform name, NUL-terminated
//	72      8     serial number            (version >= 1)
//	80      4     boot count               (version >= 1)
//	84      936   reserved, zero
//	1020    4     CRC-32 (IEEE) of bytes 0..1020
//
// The header maps onto the attribute model as typed fields: "name" is
// a string, "serial" a u64, "bootcount" a u32. Numeric fields accept
// decimal or 0x-prefixed hex on input, are range-checked on set, and
// read back as lowercase 0x-prefixed hex.
//
// An absent, short or invalid header reads as an empty section; a header
// with a version newer than this code refuses to open. Writes are
// disabled unless the configuration explicitly enables them.
package platform

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"strconv"
	"strings"

	"github.com/datarespons/nvram/lib/attr"
	"github.com/datarespons/nvram/lib/store"
)

const (
	// HeaderMagic is the on-disk signature, "PLAT" little-endian.
	HeaderMagic = 0x54414c50

	// HeaderVersion is the newest header layout this code writes.
	HeaderVersion = 1

	// HeaderSize is the full record size.
	HeaderSize = 1024

	nameOffset      = 8
	nameSize        = 64
	serialOffset    = 72
	bootCountOffset = 80
	crcOffset       = HeaderSize - 4
)

// Field keys exposed through the attribute model.
const (
	KeyName      = "name"
	KeySerial    = "serial"
	KeyBootCount = "bootcount"
)

// Header is the decoded platform record.
type Header struct {
	Version   uint32
	Name      string
	Serial    uint64
	BootCount uint32
}

// errInvalid marks headers that fail structural validation. Not
// exported: an invalid header is indistinguishable from an absent one
// to callers, both read as empty.
var errInvalid = errors.New("invalid platform header")

// ParseHeader decodes and validates a platform record.
func ParseHeader(data []byte) (Header, error) {
	if len(data) != HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes, want %d", errInvalid, len(data), HeaderSize)
	}
	if checksum := crc32.ChecksumIEEE(data[:crcOffset]); checksum != binary.LittleEndian.Uint32(data[crcOffset:]) {
		return Header{}, fmt.Errorf("%w: CRC mismatch", errInvalid)
	}
	if binary.LittleEndian.Uint32(data[0:4]) != HeaderMagic {
		return Header{}, fmt.Errorf("%w: bad magic", errInvalid)
	}

	header := Header{Version: binary.LittleEndian.Uint32(data[4:8])}

	name := data[nameOffset : nameOffset+nameSize]
	terminator := -1
	for i, c := range name {
		if c == 0 {
			terminator = i
			break
		}
	}
	if terminator < 0 {
		return Header{}, fmt.Errorf("%w: name missing NUL terminator", errInvalid)
	}
	header.Name = string(name[:terminator])

	if header.Version >= 1 {
		header.Serial = binary.LittleEndian.Uint64(data[serialOffset : serialOffset+8])
		header.BootCount = binary.LittleEndian.Uint32(data[bootCountOffset : bootCountOffset+4])
	}
	return header, nil
}

// SerializeHeader encodes a platform record at the current version.
func SerializeHeader(header Header) ([]byte, error) {
	if len(header.Name)+1 > nameSize {
		return nil, fmt.Errorf("platform name %q is %d bytes, maximum is %d plus the NUL terminator", header.Name, len(header.Name), nameSize-1)
	}

	data := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(data[0:4], HeaderMagic)
	binary.LittleEndian.PutUint32(data[4:8], HeaderVersion)
	copy(data[nameOffset:], header.Name)
	binary.LittleEndian.PutUint64(data[serialOffset:], header.Serial)
	binary.LittleEndian.PutUint32(data[bootCountOffset:], header.BootCount)
	binary.LittleEndian.PutUint32(data[crcOffset:], crc32.ChecksumIEEE(data[:crcOffset]))
	return data, nil
}

// parseUint accepts decimal or 0x-prefixed hex and range-checks
// against bits.
func parseUint(key, value string, bits int) (uint64, error) {
	base := 10
	digits := value
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		base = 16
		digits = value[2:]
	}
	parsed, err := strconv.ParseUint(digits, base, bits)
	if err != nil {
		return 0, fmt.Errorf("field %q: value %q is not a valid u%d: %w", key, value, bits, store.ErrInvalidKey)
	}
	return parsed, nil
}

// formatUint renders a numeric field the way list and get emit it.
func formatUint(value uint64) string {
	return fmt.Sprintf("0x%x", value)
}

// Section is the platform header presented as a store section. Single
// copy, read-mostly: commits require the write gate.
type Section struct {
	name     string
	path     string
	writable bool
	live     *attr.List
}

// Open reads the platform section. Like the legacy format it supports
// a single (A) copy only. A short, absent, or invalid header reads as
// empty; a header version newer than this code is an error.
func Open(name, pathA, pathB string, writable bool) (*Section, error) {
	if pathB != "" {
		return nil, fmt.Errorf("%s: platform format supports a single (A) copy only", name)
	}
	section := &Section{name: name, path: pathA, writable: writable, live: &attr.List{}}
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
	if len(data) < HeaderSize {
		return section, nil
	}

	header, err := ParseHeader(data[:HeaderSize])
	if err != nil {
		return section, nil
	}
	if header.Version > HeaderVersion {
		return nil, fmt.Errorf("%s: header version %d is newer than supported version %d", name, header.Version, HeaderVersion)
	}

	section.live.Set(KeyName, header.Name)
	if header.Version >= 1 {
		section.live.Set(KeySerial, formatUint(header.Serial))
		section.live.Set(KeyBootCount, formatUint(uint64(header.BootCount)))
	}
	return section, nil
}

// Name implements store.Section.
func (s *Section) Name() string { return s.name }

// Enabled implements store.Section.
func (s *Section) Enabled() bool { return s.path != "" }

// Corrupt implements store.Section. An undecodable header reads as
// empty rather than corrupt: the field-provisioning flow expects to
// write a fresh header over blank flash.
func (s *Section) Corrupt() bool { return false }

// Snapshot implements store.Section.
func (s *Section) Snapshot() *attr.List { return s.live.Clone() }

// Commit implements store.Section: map the image onto the fixed
// schema, range-check every field, and atomically rewrite the record.
func (s *Section) Commit(image *attr.List) error {
	if !s.Enabled() {
		return fmt.Errorf("%s: %w", s.name, store.ErrDisabledSection)
	}
	if !s.writable {
		return fmt.Errorf("%s: platform header writes disabled: %w", s.name, store.ErrPrivilegeDenied)
	}

	var header Header
	for _, entry := range image.Entries() {
		switch entry.Key {
		case KeyName:
			header.Name = entry.Value
		case KeySerial:
			serial, err := parseUint(KeySerial, entry.Value, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", s.name, err)
			}
			header.Serial = serial
		case KeyBootCount:
			bootCount, err := parseUint(KeyBootCount, entry.Value, 32)
			if err != nil {
				return fmt.Errorf("%s: %w", s.name, err)
			}
			header.BootCount = uint32(bootCount)
		default:
			return fmt.Errorf("%s: unknown platform field %q", s.name, entry.Key)
		}
	}

	data, err := SerializeHeader(header)
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	if err := store.WriteCopy(s.path, data); err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}

	// Normalize numeric fields to their canonical hex rendering so the
	// live image matches what a reopen would read.
	normalized := &attr.List{}
	normalized.Set(KeyName, header.Name)
	normalized.Set(KeySerial, formatUint(header.Serial))
	normalized.Set(KeyBootCount, formatUint(uint64(header.BootCount)))
	s.live = normalized
	return nil
}
