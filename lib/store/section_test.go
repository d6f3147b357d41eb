// Copyright 2026 Data Respons Solutions AB
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/datarespons/nvram/lib/attr"
	"github.com/datarespons/nvram/lib/blob"
)

func writeBlob(t *testing.T, path string, entries []attr.Attribute, counter uint64) {
	t.Helper()
	data, err := blob.Encode(entries, counter)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
}

func readBlob(t *testing.T, path string) ([]attr.Attribute, uint64) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	entries, counter, err := blob.Decode(data)
	if err != nil {
		t.Fatalf("Decode of %s failed: %v", path, err)
	}
	return entries, counter
}

func TestOpenReplicatedSelectsFreshest(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a")
	pathB := filepath.Join(dir, "b")

	writeBlob(t, pathA, []attr.Attribute{{Key: "k", Value: "old"}}, 3)
	writeBlob(t, pathB, []attr.Attribute{{Key: "k", Value: "new"}}, 4)

	section, err := OpenReplicated("user", pathA, pathB)
	if err != nil {
		t.Fatalf("OpenReplicated failed: %v", err)
	}
	if value, _ := section.Snapshot().Get("k"); value != "new" {
		t.Errorf("live value = %q, want new", value)
	}
	if section.Counter() != 4 || section.LiveSlot() != "B" {
		t.Errorf("counter=%d slot=%s, want 4/B", section.Counter(), section.LiveSlot())
	}
}

func TestOpenReplicatedTiePrefersA(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a")
	pathB := filepath.Join(dir, "b")

	writeBlob(t, pathA, []attr.Attribute{{Key: "k", Value: "from_a"}}, 5)
	writeBlob(t, pathB, []attr.Attribute{{Key: "k", Value: "from_b"}}, 5)

	section, err := OpenReplicated("user", pathA, pathB)
	if err != nil {
		t.Fatalf("OpenReplicated failed: %v", err)
	}
	if value, _ := section.Snapshot().Get("k"); value != "from_a" {
		t.Errorf("live value = %q, want from_a", value)
	}
}

func TestOpenReplicatedSingleValidCopy(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a")
	pathB := filepath.Join(dir, "b")

	writeBlob(t, pathB, []attr.Attribute{{Key: "k", Value: "v"}}, 9)
	// A holds garbage; only B decodes, so B is live regardless of
	// counters.
	if err := os.WriteFile(pathA, []byte("garbage"), 0600); err != nil {
		t.Fatal(err)
	}

	section, err := OpenReplicated("user", pathA, pathB)
	if err != nil {
		t.Fatalf("OpenReplicated failed: %v", err)
	}
	if section.Corrupt() {
		t.Error("section with one valid copy reported corrupt")
	}
	if value, _ := section.Snapshot().Get("k"); value != "v" {
		t.Errorf("live value = %q, want v", value)
	}
}

func TestOpenReplicatedBothMissingIsEmpty(t *testing.T) {
	dir := t.TempDir()

	section, err := OpenReplicated("user", filepath.Join(dir, "a"), filepath.Join(dir, "b"))
	if err != nil {
		t.Fatalf("OpenReplicated failed: %v", err)
	}
	if section.Corrupt() {
		t.Error("absent copies reported corrupt")
	}
	if section.Snapshot().Len() != 0 || section.Counter() != 0 {
		t.Error("expected empty image with counter 0")
	}
}

func TestOpenReplicatedBothInvalidIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a")
	pathB := filepath.Join(dir, "b")
	if err := os.WriteFile(pathA, []byte("junk1"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(pathB, []byte("junk2"), 0600); err != nil {
		t.Fatal(err)
	}

	section, err := OpenReplicated("user", pathA, pathB)
	if err != nil {
		t.Fatalf("OpenReplicated failed: %v", err)
	}
	if !section.Corrupt() {
		t.Error("both copies invalid, Corrupt() = false")
	}
	if section.Snapshot().Len() != 0 {
		t.Error("corrupt section image not empty")
	}
}

func TestCommitWritesStaleSlot(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a")
	pathB := filepath.Join(dir, "b")

	writeBlob(t, pathA, []attr.Attribute{{Key: "k", Value: "v1"}}, 1)

	section, err := OpenReplicated("user", pathA, pathB)
	if err != nil {
		t.Fatalf("OpenReplicated failed: %v", err)
	}

	image := section.Snapshot()
	image.Set("k", "v2")
	if err := section.Commit(image); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	// A (counter 1) untouched, B now live with counter 2.
	entriesA, counterA := readBlob(t, pathA)
	entriesB, counterB := readBlob(t, pathB)
	if counterA != 1 || entriesA[0].Value != "v1" {
		t.Errorf("copy A changed: counter=%d value=%s", counterA, entriesA[0].Value)
	}
	if counterB != 2 || entriesB[0].Value != "v2" {
		t.Errorf("copy B: counter=%d value=%s, want 2/v2", counterB, entriesB[0].Value)
	}
	if section.LiveSlot() != "B" {
		t.Errorf("live slot = %s, want B", section.LiveSlot())
	}
}

func TestFirstCommitSeedsBothCopies(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a")
	pathB := filepath.Join(dir, "b")

	section, err := OpenReplicated("user", pathA, pathB)
	if err != nil {
		t.Fatal(err)
	}
	image := section.Snapshot()
	image.Set("k", "v1")
	if err := section.Commit(image); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	// Losing either copy right after the first commit must not lose
	// the data, so both copies carry the image.
	for _, path := range []string{pathA, pathB} {
		entries, counter := readBlob(t, path)
		if counter != 1 || entries[0].Value != "v1" {
			t.Errorf("%s holds counter=%d value=%s, want 1/v1", path, counter, entries[0].Value)
		}
	}
}

func TestCommitAlternatesSlots(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a")
	pathB := filepath.Join(dir, "b")

	section, err := OpenReplicated("user", pathA, pathB)
	if err != nil {
		t.Fatalf("OpenReplicated failed: %v", err)
	}

	for i, wantSlot := range []string{"A", "B", "A", "B"} {
		image := section.Snapshot()
		image.Set("k", string(rune('0'+i)))
		if err := section.Commit(image); err != nil {
			t.Fatalf("Commit %d failed: %v", i, err)
		}
		if section.LiveSlot() != wantSlot {
			t.Errorf("commit %d: live slot = %s, want %s", i, section.LiveSlot(), wantSlot)
		}
		if section.Counter() != uint64(i+1) {
			t.Errorf("commit %d: counter = %d, want %d", i, section.Counter(), i+1)
		}
	}
}

func TestSelfHealAfterCorruption(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a")
	pathB := filepath.Join(dir, "b")

	// Two commits so both copies exist, live in B with counter 2.
	section, err := OpenReplicated("user", pathA, pathB)
	if err != nil {
		t.Fatal(err)
	}
	for _, value := range []string{"v1", "v2"} {
		image := section.Snapshot()
		image.Set("k", value)
		if err := section.Commit(image); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
	}

	// Truncate the live copy B at rest. Reopen: reads fall back to A.
	if err := os.Truncate(pathB, 0); err != nil {
		t.Fatal(err)
	}
	section, err = OpenReplicated("user", pathA, pathB)
	if err != nil {
		t.Fatal(err)
	}
	if value, _ := section.Snapshot().Get("k"); value != "v1" {
		t.Errorf("after truncating B, read %q, want v1", value)
	}

	// Next commit rewrites B above A; both copies valid, counters
	// consecutive.
	image := section.Snapshot()
	image.Set("k", "v3")
	if err := section.Commit(image); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	_, counterA := readBlob(t, pathA)
	entriesB, counterB := readBlob(t, pathB)
	if counterB != counterA+1 {
		t.Errorf("counters A=%d B=%d, want consecutive", counterA, counterB)
	}
	if entriesB[0].Value != "v3" {
		t.Errorf("healed copy holds %q, want v3", entriesB[0].Value)
	}
}

func TestSingleCopyMode(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a")

	section, err := OpenReplicated("user", pathA, "")
	if err != nil {
		t.Fatal(err)
	}
	for i, value := range []string{"v1", "v2"} {
		image := section.Snapshot()
		image.Set("k", value)
		if err := section.Commit(image); err != nil {
			t.Fatalf("Commit %d failed: %v", i, err)
		}
	}

	entries, counter := readBlob(t, pathA)
	if entries[0].Value != "v2" || counter != 2 {
		t.Errorf("single copy holds %s/%d, want v2/2", entries[0].Value, counter)
	}
	// Only the configured copy exists.
	matches, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Name() != "a" {
		t.Errorf("unexpected files in store dir: %v", matches)
	}
}

func TestCommitCounterReset(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a")
	pathB := filepath.Join(dir, "b")

	writeBlob(t, pathA, []attr.Attribute{{Key: "k", Value: "v"}}, math.MaxUint64)

	section, err := OpenReplicated("user", pathA, pathB)
	if err != nil {
		t.Fatal(err)
	}
	image := section.Snapshot()
	image.Set("k", "reset")
	if err := section.Commit(image); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	// Both copies rewritten with the restarted counter.
	entriesA, counterA := readBlob(t, pathA)
	entriesB, counterB := readBlob(t, pathB)
	if counterA != 1 || counterB != 1 {
		t.Errorf("counters A=%d B=%d, want 1/1", counterA, counterB)
	}
	if entriesA[0].Value != "reset" || entriesB[0].Value != "reset" {
		t.Error("copies differ after counter reset")
	}
	if section.Counter() != 1 {
		t.Errorf("live counter = %d, want 1", section.Counter())
	}
}

func TestCommitEmptyImage(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a")

	section, err := OpenReplicated("user", pathA, "")
	if err != nil {
		t.Fatal(err)
	}
	image := section.Snapshot()
	image.Set("k", "v")
	if err := section.Commit(image); err != nil {
		t.Fatal(err)
	}

	image = section.Snapshot()
	image.Remove("k")
	if err := section.Commit(image); err != nil {
		t.Fatalf("Commit of empty image failed: %v", err)
	}

	// The copy holds a valid zero-entry blob, not nothing.
	entries, counter := readBlob(t, pathA)
	if len(entries) != 0 || counter != 2 {
		t.Errorf("empty commit decoded to %d entries counter %d", len(entries), counter)
	}
}

func TestDisabledSectionRejectsCommit(t *testing.T) {
	section, err := OpenReplicated("user", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if section.Enabled() {
		t.Error("section with no paths reports enabled")
	}
	if err := section.Commit(&attr.List{}); err == nil {
		t.Error("expected commit on disabled section to fail")
	}
}
