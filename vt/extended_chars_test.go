// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: vt/extended_chars_test.go
// Summary: Interning-table tests: dedup, collisions and eviction.

package vt

import "testing"

func TestCreateExtendedCharInterns(t *testing.T) {
	tbl := NewExtendedCharTable()

	seq := []rune{'a', 0x0301}
	key := tbl.CreateExtendedChar(seq)
	if key == 0 {
		t.Fatal("key 0 is reserved")
	}
	if again := tbl.CreateExtendedChar([]rune{'a', 0x0301}); again != key {
		t.Errorf("same sequence interned twice: %d vs %d", again, key)
	}
	if got := tbl.LookupExtendedChar(key); !runesEqual(got, seq) {
		t.Errorf("lookup = %v, want %v", got, seq)
	}
	if tbl.Len() != 1 {
		t.Errorf("table length = %d, want 1", tbl.Len())
	}
}

func TestCreateExtendedCharCopiesInput(t *testing.T) {
	tbl := NewExtendedCharTable()

	seq := []rune{'e', 0x0301}
	key := tbl.CreateExtendedChar(seq)
	seq[0] = 'x'

	if got := tbl.LookupExtendedChar(key); got[0] != 'e' {
		t.Error("table aliases the caller's slice")
	}
}

func TestCollidingSequencesGetDistinctKeys(t *testing.T) {
	tbl := NewExtendedCharTable()

	// Both hash to the same slot: 31*'a'+x == 31*'b'+(x-31).
	a := []rune{'a', 100}
	b := []rune{'b', 100 - 31}
	if extendedCharHash(a) != extendedCharHash(b) {
		t.Fatal("sequences do not collide")
	}

	ka := tbl.CreateExtendedChar(a)
	kb := tbl.CreateExtendedChar(b)
	if ka == kb {
		t.Fatalf("colliding sequences share key %d", ka)
	}
	if !runesEqual(tbl.LookupExtendedChar(ka), a) || !runesEqual(tbl.LookupExtendedChar(kb), b) {
		t.Error("probed entries resolve to the wrong sequences")
	}
}

func TestLookupUnknownKey(t *testing.T) {
	tbl := NewExtendedCharTable()
	if got := tbl.LookupExtendedChar(42); got != nil {
		t.Errorf("unknown key resolved to %v", got)
	}
}

func TestEvictionSparesLiveKeys(t *testing.T) {
	tbl := NewExtendedCharTable()
	s := NewScreen(2, 4)
	tbl.RegisterScreen(s)

	live := tbl.CreateExtendedChar([]rune{'o', 0x0308})
	dead := tbl.CreateExtendedChar([]rune{'u', 0x0308})

	// Only the first key is referenced by a cell.
	s.DisplayCharacter('x')
	cells := s.screenLines[0]
	cells[0].Rune = rune(live)
	cells[0].Rendition |= ReExtendedChar

	tbl.evict()

	if tbl.LookupExtendedChar(live) == nil {
		t.Error("referenced key was evicted")
	}
	if tbl.LookupExtendedChar(dead) != nil {
		t.Error("unreferenced key survived eviction")
	}
}

func TestUnregisterScreenRemovesFromSweep(t *testing.T) {
	tbl := NewExtendedCharTable()
	s := NewScreen(2, 4)
	tbl.RegisterScreen(s)
	tbl.UnregisterScreen(s)

	key := tbl.CreateExtendedChar([]rune{'n', 0x0303})
	s.DisplayCharacter('x')
	s.screenLines[0][0].Rune = rune(key)
	s.screenLines[0][0].Rendition |= ReExtendedChar

	tbl.evict()
	if tbl.LookupExtendedChar(key) != nil {
		t.Error("unregistered screen still keeps keys alive")
	}
}
