// Copyright 2026 Data Respons Solutions AB
// SPDX-License-Identifier: Apache-2.0

package attr

import "testing"

func TestValidateKey(t *testing.T) {
	cases := []struct {
		key     string
		wantErr bool
	}{
		{key: "key1", wantErr: false},
		{key: "SYS_PRODUCT_ID", wantErr: false},
		{key: "with space", wantErr: false},
		{key: "", wantErr: true},
		{key: "key=1", wantErr: true},
		{key: "key\n1", wantErr: true},
		{key: "key\t1", wantErr: true},
		{key: "key\x7f", wantErr: true},
	}

	for _, tc := range cases {
		err := ValidateKey(tc.key)
		if (err != nil) != tc.wantErr {
			t.Errorf("ValidateKey(%q) = %v, wantErr=%v", tc.key, err, tc.wantErr)
		}
	}
}

func TestValidateValue(t *testing.T) {
	if err := ValidateValue("anything goes = even this"); err != nil {
		t.Errorf("ValidateValue rejected legal value: %v", err)
	}
	if err := ValidateValue(""); err != nil {
		t.Errorf("ValidateValue rejected empty value: %v", err)
	}
	if err := ValidateValue("line\nbreak"); err == nil {
		t.Error("ValidateValue accepted newline")
	}
}

func TestListLastWriteWins(t *testing.T) {
	list := &List{}

	if changed := list.Set("key1", "val1"); !changed {
		t.Error("first Set reported unchanged")
	}
	if changed := list.Set("key1", "val1"); changed {
		t.Error("identical Set reported changed")
	}
	if changed := list.Set("key1", "val2"); !changed {
		t.Error("overwrite reported unchanged")
	}

	value, ok := list.Get("key1")
	if !ok || value != "val2" {
		t.Errorf("Get = %q/%v, want val2/true", value, ok)
	}
	if list.Len() != 1 {
		t.Errorf("Len = %d, want 1", list.Len())
	}
}

func TestListRemove(t *testing.T) {
	list := NewList([]Attribute{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}})

	if !list.Remove("a") {
		t.Error("Remove existing key reported false")
	}
	if list.Remove("a") {
		t.Error("Remove absent key reported true")
	}
	if _, ok := list.Get("a"); ok {
		t.Error("removed key still present")
	}
	if list.Len() != 1 {
		t.Errorf("Len = %d, want 1", list.Len())
	}
}

func TestListOrderPreserved(t *testing.T) {
	list := &List{}
	list.Set("c", "3")
	list.Set("a", "1")
	list.Set("b", "2")
	list.Set("a", "overwritten")

	entries := list.Entries()
	want := []Attribute{{Key: "c", Value: "3"}, {Key: "a", Value: "overwritten"}, {Key: "b", Value: "2"}}
	if len(entries) != len(want) {
		t.Fatalf("Entries returned %d, want %d", len(entries), len(want))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	list := NewList([]Attribute{{Key: "a", Value: "1"}})
	clone := list.Clone()
	clone.Set("a", "mutated")
	clone.Set("b", "new")

	if value, _ := list.Get("a"); value != "1" {
		t.Errorf("original mutated through clone: a=%q", value)
	}
	if _, ok := list.Get("b"); ok {
		t.Error("original grew through clone")
	}
}
