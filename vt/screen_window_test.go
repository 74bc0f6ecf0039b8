// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: vt/screen_window_test.go
// Summary: Viewport tests: output tracking, scrollback pinning and
// image caching.

package vt

import (
	"fmt"
	"strings"
	"testing"
)

func newWindowedScreen(lines, columns, histLines int) (*Screen, *ScreenWindow) {
	s := NewScreen(lines, columns)
	s.SetScroll(HistoryTypeBuffer{Lines: histLines}, false)
	w := NewScreenWindow(s)
	w.SetWindowLines(lines)
	return s, w
}

func windowRow(w *ScreenWindow, row int) string {
	img := w.GetImage()
	var b strings.Builder
	for col := 0; col < w.WindowColumns(); col++ {
		c := img[row*w.WindowColumns()+col]
		if c.Rune != 0 {
			b.WriteRune(c.Rune)
		}
	}
	return strings.TrimRight(b.String(), " ")
}

func TestTrackingWindowFollowsOutput(t *testing.T) {
	s, w := newWindowedScreen(5, 20, 100)

	for i := 0; i < 12; i++ {
		feedLine(s, fmt.Sprintf("line %d", i))
	}
	w.NotifyOutputChanged()

	if !w.AtEndOfOutput() {
		t.Fatal("tracking window should sit at the live edge")
	}
	if got := w.CurrentLine(); got != s.GetHistLines() {
		t.Errorf("CurrentLine() = %d, want %d", got, s.GetHistLines())
	}
	if got := windowRow(w, 0); got != "line 8" {
		t.Errorf("top window row = %q", got)
	}
}

func TestPinnedWindowStaysPut(t *testing.T) {
	s, w := newWindowedScreen(5, 20, 100)

	for i := 0; i < 12; i++ {
		feedLine(s, fmt.Sprintf("line %d", i))
	}
	w.NotifyOutputChanged()

	w.SetTrackOutput(false)
	w.ScrollTo(2)
	if got := windowRow(w, 0); got != "line 2" {
		t.Fatalf("scrolled row = %q", got)
	}

	feedLine(s, "line 12")
	w.NotifyOutputChanged()

	if got := w.CurrentLine(); got != 2 {
		t.Errorf("pinned CurrentLine() = %d, want 2", got)
	}
	if got := windowRow(w, 0); got != "line 2" {
		t.Errorf("pinned row = %q", got)
	}
}

func TestPinnedWindowCompensatesForEviction(t *testing.T) {
	s, w := newWindowedScreen(5, 20, 8)

	// Fill the scrollback exactly.
	for i := 0; i < 12; i++ {
		feedLine(s, fmt.Sprintf("line %d", i))
	}
	w.NotifyOutputChanged()
	w.SetTrackOutput(false)
	w.ScrollTo(3)

	// Two more feeds evict the two oldest lines.
	feedLine(s, "line 12")
	feedLine(s, "line 13")
	w.NotifyOutputChanged()

	if got := w.CurrentLine(); got != 1 {
		t.Errorf("CurrentLine() = %d, want 1 after two evictions", got)
	}
	// Same content remains on top: the line only changed address.
	if got := windowRow(w, 0); got != "line 3" {
		t.Errorf("top row = %q, want \"line 3\"", got)
	}
}

func TestScrollToClampsAndNotifies(t *testing.T) {
	s, w := newWindowedScreen(5, 20, 100)
	for i := 0; i < 12; i++ {
		feedLine(s, fmt.Sprintf("line %d", i))
	}
	w.NotifyOutputChanged()

	var notified []int
	w.OnScrolled = func(line int) { notified = append(notified, line) }

	w.ScrollTo(-5)
	w.ScrollTo(999)

	maxLine := w.LineCount() - w.WindowLines()
	if len(notified) != 2 || notified[0] != 0 || notified[1] != maxLine {
		t.Errorf("notified = %v, want [0 %d]", notified, maxLine)
	}
}

func TestScrollByPagesAndLines(t *testing.T) {
	s, w := newWindowedScreen(6, 20, 100)
	for i := 0; i < 30; i++ {
		feedLine(s, fmt.Sprintf("line %d", i))
	}
	w.NotifyOutputChanged()
	top := w.CurrentLine()

	w.ScrollBy(ScrollLines, -3)
	if got := w.CurrentLine(); got != top-3 {
		t.Errorf("after -3 lines CurrentLine() = %d, want %d", got, top-3)
	}
	w.ScrollBy(ScrollPages, -1)
	if got := w.CurrentLine(); got != top-6 {
		t.Errorf("after -1 page CurrentLine() = %d, want %d", got, top-6)
	}

	w.ScrollToEnd()
	if !w.AtEndOfOutput() {
		t.Error("ScrollToEnd should reach the live edge")
	}
}

func TestWindowImagePadsPastEnd(t *testing.T) {
	s := NewScreen(5, 10)
	feedText(s, "x")
	w := NewScreenWindow(s)
	w.SetWindowLines(8) // taller than the screen

	img := w.GetImage()
	if len(img) != w.WindowLines()*w.WindowColumns() {
		t.Fatalf("image size = %d, want %d", len(img), w.WindowLines()*w.WindowColumns())
	}
	if img[0].Rune != 'x' {
		t.Error("window should show screen content")
	}
}

func TestWindowImageCacheInvalidation(t *testing.T) {
	s, w := newWindowedScreen(5, 20, 100)
	feedText(s, "before")
	w.NotifyOutputChanged()

	if got := windowRow(w, 0); got != "before" {
		t.Fatalf("row = %q", got)
	}

	// Without a notification the cached image is returned.
	s.ToStartOfLine()
	feedText(s, "after ")
	if got := windowRow(w, 0); got != "before" {
		t.Errorf("cached row = %q, want \"before\"", got)
	}

	w.NotifyOutputChanged()
	if got := windowRow(w, 0); got != "after" {
		t.Errorf("refreshed row = %q, want \"after\"", got)
	}
}

func TestWindowSelectionCoordinates(t *testing.T) {
	s, w := newWindowedScreen(5, 20, 100)
	for i := 0; i < 12; i++ {
		feedLine(s, fmt.Sprintf("line %d", i))
	}
	w.NotifyOutputChanged()
	w.SetTrackOutput(false)
	w.ScrollTo(2)

	w.SetSelectionStart(0, 0, false)
	w.SetSelectionEnd(5, 0)

	if !w.IsSelected(3, 0) {
		t.Error("cell inside the window selection should be selected")
	}
	if got := w.SelectedText(true); got != "line 2" {
		t.Errorf("SelectedText = %q", got)
	}
	if _, line := w.GetSelectionStart(); line != 0 {
		t.Errorf("selection line in window coordinates = %d, want 0", line)
	}
}

func TestScrollRegionBlitOnlyAtLiveEdge(t *testing.T) {
	s, w := newWindowedScreen(5, 20, 100)
	for i := 0; i < 12; i++ {
		feedLine(s, fmt.Sprintf("line %d", i))
	}

	feedLine(s, "one more")
	w.NotifyOutputChanged()
	if region := w.ScrollRegion(); region.Height != s.BottomMargin()-s.TopMargin() {
		t.Errorf("live edge region = %+v", region)
	}

	w.SetTrackOutput(false)
	w.ScrollTo(0)
	if region := w.ScrollRegion(); region != (Rect{0, 0, w.WindowColumns(), w.WindowLines()}) {
		t.Errorf("scrolled-back region = %+v, want the full window", region)
	}
}
