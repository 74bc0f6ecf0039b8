// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: vt/extended_chars.go
// Summary: Interning table for combining sequences too long for one cell.
// Usage: Written by the emulation engine, read by the character decoders.

package vt

// ExtendedCharTable maps a 16-bit key to a sequence of code points, so a
// grapheme cluster that does not fit a single cell can still be stored in
// one Character. Cells carrying a key set ReExtendedChar in their
// rendition.
//
// The table is owned by an Emulation and shared with its decoders; it is
// not process-global, so independent sessions never contend or cross-talk.
// Not safe for concurrent use.
type ExtendedCharTable struct {
	table map[uint16][]rune

	// screens whose live cells keep keys alive during an eviction sweep
	screens []*Screen
}

// NewExtendedCharTable returns an empty table.
func NewExtendedCharTable() *ExtendedCharTable {
	return &ExtendedCharTable{table: make(map[uint16][]rune)}
}

// RegisterScreen adds a screen to the eviction scope. Keys referenced by a
// registered screen's cells survive eviction sweeps.
func (t *ExtendedCharTable) RegisterScreen(s *Screen) {
	t.screens = append(t.screens, s)
}

// UnregisterScreen removes a screen from the eviction scope.
func (t *ExtendedCharTable) UnregisterScreen(s *Screen) {
	for i, reg := range t.screens {
		if reg == s {
			t.screens = append(t.screens[:i], t.screens[i+1:]...)
			return
		}
	}
}

func extendedCharHash(chars []rune) uint16 {
	var h uint16
	for _, c := range chars {
		h = 31*h + uint16(c)
	}
	return h
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CreateExtendedChar interns a sequence of code points and returns its key.
// Collisions are resolved by probing to the next free key; key 0 is
// reserved so a continuation cell can never alias an interning key. When
// every key is taken, entries no longer referenced by any registered
// screen are evicted to make room.
func (t *ExtendedCharTable) CreateExtendedChar(chars []rune) uint16 {
	hash := extendedCharHash(chars)
	if hash == 0 {
		hash = 1
	}

	for attempt := 0; attempt < 2; attempt++ {
		probes := 0
		for probes <= 0xFFFF {
			existing, ok := t.table[hash]
			if !ok {
				cp := make([]rune, len(chars))
				copy(cp, chars)
				t.table[hash] = cp
				return hash
			}
			if runesEqual(existing, chars) {
				return hash
			}
			hash++
			if hash == 0 {
				hash = 1
			}
			probes++
		}
		// Every key is occupied by some other sequence. Sweep out
		// entries no live cell references and try once more.
		t.evict()
	}
	// Still full after eviction: reuse the probe slot. Losing one
	// combining sequence beats failing the write path.
	cp := make([]rune, len(chars))
	copy(cp, chars)
	t.table[hash] = cp
	return hash
}

// LookupExtendedChar returns the interned sequence for key, or nil if the
// key is unknown (e.g. evicted).
func (t *ExtendedCharTable) LookupExtendedChar(hash uint16) []rune {
	return t.table[hash]
}

// Len returns the number of interned sequences.
func (t *ExtendedCharTable) Len() int {
	return len(t.table)
}

func (t *ExtendedCharTable) evict() {
	used := make(map[uint16]bool)
	for _, s := range t.screens {
		s.collectUsedExtendedChars(used)
	}
	for key := range t.table {
		if !used[key] {
			delete(t.table, key)
		}
	}
}
