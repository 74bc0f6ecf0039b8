// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: vt/history.go
// Summary: Scrollback history contract and the strategy objects that build
// the concrete backends.
// Usage: The screen appends evicted rows here; windows and search read back.

package vt

// HistoryScroll is the append-only line store a screen pushes evicted rows
// into. Lines are addressed oldest-first; once a backend drops a line its
// index is never reused and reads of dropped indexes return defaults.
//
// AddCells followed by AddLine is the atomic unit of appending one history
// line: AddCells stores the row's cells, AddLine seals it and records
// whether the previous line wrapped into it.
type HistoryScroll interface {
	// HasScroll reports whether this backend actually retains lines.
	HasScroll() bool

	GetLines() int
	GetLineLen(lineno int) int

	// GetCells returns count cells of a stored line starting at colno.
	// Out-of-range requests yield default cells rather than failing.
	GetCells(lineno, colno, count int) []Character

	IsWrappedLine(lineno int) bool

	AddCells(cells []Character)
	AddLine(previousWrapped bool)

	Type() HistoryType
}

// HistoryType describes a history strategy and knows how to build (or
// rebuild) a scroll for it. Scroll(old) copies existing lines forward into
// the new backend, bounded by the new backend's capacity, so switching
// strategy at runtime never silently discards reachable scrollback.
type HistoryType interface {
	IsEnabled() bool
	// MaximumLineCount returns the line cap, 0 meaning unlimited.
	MaximumLineCount() int
	Scroll(old HistoryScroll) HistoryScroll
}

// IsUnlimited reports whether t stores lines without a cap.
func IsUnlimited(t HistoryType) bool {
	return t.MaximumLineCount() == 0
}

// copyScroll replays the newest lines of old into dst, keeping at most
// maxLines (0 = all of them).
func copyScroll(dst, old HistoryScroll, maxLines int) {
	lines := old.GetLines()
	start := 0
	if maxLines > 0 && lines > maxLines {
		start = lines - maxLines
	}
	for i := start; i < lines; i++ {
		if size := old.GetLineLen(i); size > 0 {
			dst.AddCells(old.GetCells(i, 0, size))
		} else {
			dst.AddCells(nil)
		}
		dst.AddLine(old.IsWrappedLine(i))
	}
}

// --- None strategy ---

// HistoryTypeNone disables scrollback entirely.
type HistoryTypeNone struct{}

func (HistoryTypeNone) IsEnabled() bool       { return false }
func (HistoryTypeNone) MaximumLineCount() int { return 0 }
func (t HistoryTypeNone) Scroll(HistoryScroll) HistoryScroll {
	return &HistoryScrollNone{histType: t}
}

// HistoryScrollNone is the no-op backend: nothing in, nothing out.
type HistoryScrollNone struct {
	histType HistoryType
}

// NewHistoryScrollNone returns a scroll that retains nothing.
func NewHistoryScrollNone() *HistoryScrollNone {
	return &HistoryScrollNone{histType: HistoryTypeNone{}}
}

func (s *HistoryScrollNone) HasScroll() bool                  { return false }
func (s *HistoryScrollNone) GetLines() int                    { return 0 }
func (s *HistoryScrollNone) GetLineLen(int) int               { return 0 }
func (s *HistoryScrollNone) GetCells(_, _, _ int) []Character { return nil }
func (s *HistoryScrollNone) IsWrappedLine(int) bool           { return false }
func (s *HistoryScrollNone) AddCells([]Character)             {}
func (s *HistoryScrollNone) AddLine(bool)                     {}
func (s *HistoryScrollNone) Type() HistoryType                { return s.histType }

// --- Ring-buffer strategy ---

// HistoryTypeBuffer retains the most recent maxLines lines in memory.
type HistoryTypeBuffer struct {
	Lines int
}

func (t HistoryTypeBuffer) IsEnabled() bool       { return true }
func (t HistoryTypeBuffer) MaximumLineCount() int { return t.Lines }

func (t HistoryTypeBuffer) Scroll(old HistoryScroll) HistoryScroll {
	if buf, ok := old.(*HistoryScrollBuffer); ok {
		buf.SetMaxLineCount(t.Lines)
		return buf
	}
	fresh := NewHistoryScrollBuffer(t.Lines)
	if old != nil {
		copyScroll(fresh, old, t.Lines)
	}
	return fresh
}

// --- Compact strategy ---

// CompactHistoryType retains lines in the packed block-allocated store.
type CompactHistoryType struct {
	Lines int
}

func (t CompactHistoryType) IsEnabled() bool       { return true }
func (t CompactHistoryType) MaximumLineCount() int { return t.Lines }

func (t CompactHistoryType) Scroll(old HistoryScroll) HistoryScroll {
	if compact, ok := old.(*CompactHistoryScroll); ok {
		compact.SetMaxLineCount(t.Lines)
		return compact
	}
	fresh := NewCompactHistoryScroll(t.Lines)
	if old != nil {
		copyScroll(fresh, old, t.Lines)
	}
	return fresh
}

// --- File strategy ---

// HistoryTypeFile stores unlimited scrollback in temp files.
type HistoryTypeFile struct{}

func (HistoryTypeFile) IsEnabled() bool       { return true }
func (HistoryTypeFile) MaximumLineCount() int { return 0 }

func (t HistoryTypeFile) Scroll(old HistoryScroll) HistoryScroll {
	if file, ok := old.(*HistoryScrollFile); ok {
		return file
	}
	fresh := NewHistoryScrollFile()
	if old != nil {
		copyScroll(fresh, old, 0)
	}
	return fresh
}
