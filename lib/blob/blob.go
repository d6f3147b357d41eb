// Copyright 2026 Data Respons Solutions AB
// SPDX-License-Identifier: Apache-2.0

package blob

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"

	"github.com/datarespons/nvram/lib/attr"
)

// Format constants.
const (
	// FormatVersion is the current container format version. Version 1
	// was the pre-counter format retired before this implementation.
	FormatVersion = 2

	// HeaderSize is the fixed header: 4-byte magic + 4-byte version +
	// 8-byte counter + 4-byte body length + 4-byte body CRC-32.
	HeaderSize = 24

	// maxEntryPart is the largest encodable key or value, bounded by
	// the 2-byte length prefix.
	maxEntryPart = math.MaxUint16
)

// magic is the 4-byte container file signature.
var magic = [4]byte{'N', 'V', 'R', 'M'}

// ErrInvalid is the single failure class for container decoding. Every
// decode failure wraps it; no subclass is exposed.
var ErrInvalid = errors.New("invalid container")

// Encode serializes entries and counter into a container blob. Entries
// whose key or value exceeds the 2-byte length prefix are rejected; an
// empty entry set encodes to a valid zero-entry blob.
func Encode(entries []attr.Attribute, counter uint64) ([]byte, error) {
	bodySize := 0
	for _, entry := range entries {
		if len(entry.Key) > maxEntryPart {
			return nil, fmt.Errorf("key %q is %d bytes, maximum is %d", entry.Key, len(entry.Key), maxEntryPart)
		}
		if len(entry.Value) > maxEntryPart {
			return nil, fmt.Errorf("value for key %q is %d bytes, maximum is %d", entry.Key, len(entry.Value), maxEntryPart)
		}
		bodySize += 2 + len(entry.Key) + 2 + len(entry.Value)
	}
	if bodySize > math.MaxUint32 {
		return nil, fmt.Errorf("body is %d bytes, exceeds 4-byte length field", bodySize)
	}

	buf := make([]byte, HeaderSize+bodySize)
	copy(buf[0:4], magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], FormatVersion)
	binary.LittleEndian.PutUint64(buf[8:16], counter)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(bodySize))

	pos := HeaderSize
	for _, entry := range entries {
		binary.BigEndian.PutUint16(buf[pos:pos+2], uint16(len(entry.Key)))
		pos += 2
		pos += copy(buf[pos:], entry.Key)
		binary.BigEndian.PutUint16(buf[pos:pos+2], uint16(len(entry.Value)))
		pos += 2
		pos += copy(buf[pos:], entry.Value)
	}

	checksum := crc32.ChecksumIEEE(buf[HeaderSize:])
	binary.LittleEndian.PutUint32(buf[20:24], checksum)

	return buf, nil
}

// Counter extracts the generation counter from a blob header without
// verifying the body. Use only after Decode has accepted the blob, or
// for the fast "which copy is newer" comparison when both copies have
// already been verified once.
func Counter(data []byte) uint64 {
	if len(data) < HeaderSize {
		return 0
	}
	return binary.LittleEndian.Uint64(data[8:16])
}

// Decode parses and verifies a container blob, returning its entries
// and generation counter. Validation order: magic, version, header
// consistency, body length bounds, CRC, per-entry bounds, duplicate
// keys. Any failure returns an error wrapping [ErrInvalid].
func Decode(data []byte) ([]attr.Attribute, uint64, error) {
	if len(data) < HeaderSize {
		return nil, 0, fmt.Errorf("%w: %d bytes, header needs %d", ErrInvalid, len(data), HeaderSize)
	}
	if [4]byte(data[0:4]) != magic {
		return nil, 0, fmt.Errorf("%w: bad magic", ErrInvalid)
	}
	if version := binary.LittleEndian.Uint32(data[4:8]); version != FormatVersion {
		return nil, 0, fmt.Errorf("%w: unsupported version %d", ErrInvalid, version)
	}

	counter := binary.LittleEndian.Uint64(data[8:16])
	bodyLength := binary.LittleEndian.Uint32(data[16:20])
	if uint64(bodyLength) != uint64(len(data)-HeaderSize) {
		return nil, 0, fmt.Errorf("%w: declared body %d bytes, have %d", ErrInvalid, bodyLength, len(data)-HeaderSize)
	}

	body := data[HeaderSize:]
	if checksum := crc32.ChecksumIEEE(body); checksum != binary.LittleEndian.Uint32(data[20:24]) {
		return nil, 0, fmt.Errorf("%w: body CRC mismatch", ErrInvalid)
	}

	var entries []attr.Attribute
	seen := make(map[string]struct{})
	pos := 0
	for pos < len(body) {
		key, next, err := readPart(body, pos)
		if err != nil {
			return nil, 0, err
		}
		value, next, err := readPart(body, next)
		if err != nil {
			return nil, 0, err
		}
		if _, duplicate := seen[key]; duplicate {
			return nil, 0, fmt.Errorf("%w: duplicate key %q", ErrInvalid, key)
		}
		seen[key] = struct{}{}
		entries = append(entries, attr.Attribute{Key: key, Value: value})
		pos = next
	}

	return entries, counter, nil
}

// readPart reads one length-prefixed part (key or value) from the body
// at pos, returning the part and the position after it.
func readPart(body []byte, pos int) (string, int, error) {
	if pos+2 > len(body) {
		return "", 0, fmt.Errorf("%w: truncated length prefix at body offset %d", ErrInvalid, pos)
	}
	length := int(binary.BigEndian.Uint16(body[pos : pos+2]))
	pos += 2
	if pos+length > len(body) {
		return "", 0, fmt.Errorf("%w: entry of %d bytes overruns body at offset %d", ErrInvalid, length, pos)
	}
	return string(body[pos : pos+length]), pos + length, nil
}
