// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: vt/search_index_test.go
// Summary: Scrollback FTS index tests against a temporary database.

package vt

import (
	"path/filepath"
	"testing"
)

func newTestIndex(t *testing.T) *ScrollbackIndex {
	t.Helper()
	idx, err := NewScrollbackIndex(filepath.Join(t.TempDir(), "scrollback.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestIndexAndSearch(t *testing.T) {
	idx := newTestIndex(t)

	idx.IndexLine(0, "the quick brown fox")
	idx.IndexLine(1, "jumped over the lazy dog")
	idx.IndexLine(2, "quick reflexes required")
	idx.Flush()

	results, err := idx.Search("quick", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.Line != 0 && r.Line != 2 {
			t.Errorf("unexpected line %d in results", r.Line)
		}
	}
}

func TestShortQueryFallsBackToLike(t *testing.T) {
	idx := newTestIndex(t)

	idx.IndexLine(0, "ab cd")
	idx.IndexLine(1, "xyz")
	idx.Flush()

	results, err := idx.Search("cd", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Line != 0 {
		t.Errorf("results = %+v, want only line 0", results)
	}

	// LIKE metacharacters in the query must match literally.
	if results, err = idx.Search("%", 10); err != nil {
		t.Fatal(err)
	} else if len(results) != 0 {
		t.Errorf("literal %% matched %d lines", len(results))
	}
}

func TestSearchRespectsLimit(t *testing.T) {
	idx := newTestIndex(t)

	for i := int64(0); i < 10; i++ {
		idx.IndexLine(i, "repeated payload line")
	}
	idx.Flush()

	results, err := idx.Search("payload", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Errorf("got %d results, want 3", len(results))
	}
}

func TestDeleteLine(t *testing.T) {
	idx := newTestIndex(t)

	idx.IndexLine(5, "ephemeral content")
	idx.Flush()
	if err := idx.DeleteLine(5); err != nil {
		t.Fatal(err)
	}

	results, err := idx.Search("ephemeral", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("deleted line still indexed: %+v", results)
	}
}

func TestIndexHistory(t *testing.T) {
	scroll := NewHistoryScrollBuffer(10)
	appendLine(scroll, "first entry", false)
	appendLine(scroll, "second entry", false)

	idx := newTestIndex(t)
	idx.IndexHistory(scroll, 100)
	idx.Flush()

	results, err := idx.Search("second entry", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Line != 101 {
		t.Errorf("results = %+v, want line 101", results)
	}
}

func TestEmptyQueryAndEmptyLines(t *testing.T) {
	idx := newTestIndex(t)

	idx.IndexLine(0, "")
	idx.Flush()

	results, err := idx.Search("", 10)
	if err != nil {
		t.Fatal(err)
	}
	if results != nil {
		t.Errorf("empty query returned %+v", results)
	}
}
