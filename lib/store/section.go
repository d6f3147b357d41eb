// Copyright 2026 Data Respons Solutions AB
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"math"

	"github.com/datarespons/nvram/lib/attr"
	"github.com/datarespons/nvram/lib/blob"
)

// Section is one semantic partition of the store (USER or SYSTEM),
// whatever format backs it. The replicated A/B store below is the
// default; the legacy and platform formats provide single-copy
// implementations.
type Section interface {
	// Name identifies the section in diagnostics ("user", "system").
	Name() string

	// Enabled reports whether the section has at least one backing
	// copy configured. A disabled section accepts no operations.
	Enabled() bool

	// Corrupt reports whether the section came up with no valid copy
	// while at least one enabled copy holds undecodable data. Reads fail on a
	// corrupt section; mutations proceed from an empty image and
	// repair the copies on commit.
	Corrupt() bool

	// Snapshot returns an independent copy of the live image. The
	// manager mutates snapshots and publishes them with Commit, so a
	// failed batch never disturbs the live image.
	Snapshot() *attr.List

	// Commit publishes image as the section's new durable state.
	Commit(image *attr.List) error
}

// slot names one of the two copy positions.
type slot int

const (
	slotNone slot = iota
	slotA
	slotB
)

func (s slot) String() string {
	switch s {
	case slotA:
		return "A"
	case slotB:
		return "B"
	default:
		return "NONE"
	}
}

// Replicated is the default A/B section store. The copy holding the
// blob with the greater generation counter is live; commits write to
// the other copy with the counter raised by one, so the live copy is
// never touched while a write is in flight.
type Replicated struct {
	name  string
	pathA string
	pathB string

	live    *attr.List
	counter uint64
	liveIn  slot
	corrupt bool
}

// OpenReplicated reads both copies of a section and selects the live
// image. An empty path disables that copy. With both paths empty the
// section is disabled and every operation on it is rejected by the
// manager. Read failures on the backing files are fatal; undecodable
// content is not (the copy just does not count).
func OpenReplicated(name, pathA, pathB string) (*Replicated, error) {
	section := &Replicated{
		name:  name,
		pathA: pathA,
		pathB: pathB,
		live:  &attr.List{},
	}
	if !section.Enabled() {
		return section, nil
	}

	copyA, err := ReadCopy(pathA)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	copyB, err := ReadCopy(pathB)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	switch {
	case copyA.State == CopyValid && copyB.State == CopyValid:
		// Ties should not occur under correct writer discipline; when
		// they do, prefer A.
		if copyB.Counter > copyA.Counter {
			section.adopt(slotB, copyB)
		} else {
			section.adopt(slotA, copyA)
		}
	case copyA.State == CopyValid:
		section.adopt(slotA, copyA)
	case copyB.State == CopyValid:
		section.adopt(slotB, copyB)
	default:
		// No valid copy. The section is empty; if anything was
		// actually present but undecodable, reads must fail until a
		// commit repairs the store.
		section.corrupt = copyA.State == CopyInvalid || copyB.State == CopyInvalid
	}

	return section, nil
}

func (r *Replicated) adopt(in slot, c Copy) {
	r.live = attr.NewList(c.Entries)
	r.counter = c.Counter
	r.liveIn = in
}

// Name implements Section.
func (r *Replicated) Name() string { return r.name }

// Enabled implements Section.
func (r *Replicated) Enabled() bool { return r.pathA != "" || r.pathB != "" }

// Corrupt implements Section.
func (r *Replicated) Corrupt() bool { return r.corrupt }

// Snapshot implements Section.
func (r *Replicated) Snapshot() *attr.List { return r.live.Clone() }

// Counter returns the live generation counter, 0 when no valid copy
// exists yet.
func (r *Replicated) Counter() uint64 { return r.counter }

// LiveSlot returns which copy currently holds the live blob.
func (r *Replicated) LiveSlot() string { return r.liveIn.String() }

// Commit implements Section: encode image with the next counter and
// publish it to the stale copy, which becomes live once the atomic
// rename lands. With a single enabled copy the write degrades to an
// atomic overwrite of that copy.
//
// Two situations write both copies, the stale one first: the very
// first commit of a section with no live copy (so a later corruption
// of either copy cannot lose the only replica), and the counter
// restart at the (unreachable in practice) top of the range.
func (r *Replicated) Commit(image *attr.List) error {
	if !r.Enabled() {
		return fmt.Errorf("%s: %w", r.name, ErrDisabledSection)
	}

	target := r.staleSlot()
	newCounter := r.counter + 1
	writeBoth := r.liveIn == slotNone
	if r.counter == math.MaxUint64 {
		newCounter = 1
		writeBoth = true
	}

	data, err := blob.Encode(image.Entries(), newCounter)
	if err != nil {
		return fmt.Errorf("%s: encoding image: %w", r.name, err)
	}

	if err := WriteCopy(r.path(target), data); err != nil {
		return fmt.Errorf("%s: %w", r.name, err)
	}
	if writeBoth && r.pathA != "" && r.pathB != "" {
		other := slotA
		if target == slotA {
			other = slotB
		}
		if err := WriteCopy(r.path(other), data); err != nil {
			return fmt.Errorf("%s: %w", r.name, err)
		}
	}

	r.live = image.Clone()
	r.counter = newCounter
	r.liveIn = target
	r.corrupt = false
	return nil
}

// staleSlot picks the copy a commit may overwrite: the one that is not
// live, falling back to A when nothing is live yet. With only one copy
// enabled it is always that copy.
func (r *Replicated) staleSlot() slot {
	switch {
	case r.pathA == "":
		return slotB
	case r.pathB == "":
		return slotA
	case r.liveIn == slotA:
		return slotB
	case r.liveIn == slotB:
		return slotA
	default:
		return slotA
	}
}

func (r *Replicated) path(s slot) string {
	if s == slotA {
		return r.pathA
	}
	return r.pathB
}
