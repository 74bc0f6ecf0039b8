// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: vt/screen_window.go
// Summary: A movable viewport over a Screen and its scrollback, tracking
// the live output or pinned to a scrollback position.

package vt

// ScrollMode selects the unit for ScrollBy.
type ScrollMode int

const (
	ScrollLines ScrollMode = iota
	ScrollPages
)

// ScreenWindow is a window onto a section of a Screen plus its
// scrollback. Views hold a window rather than the screen itself; the
// window converts between viewport and screen coordinates and caches the
// visible image between output notifications.
//
// Callbacks, when set, fire synchronously from the mutating call.
type ScreenWindow struct {
	screen *Screen

	windowBuffer      []Character
	bufferNeedsUpdate bool

	windowLines int
	currentLine int
	trackOutput bool
	scrollCount int

	// OnOutputChanged fires after NotifyOutputChanged repositions the
	// window over fresh output.
	OnOutputChanged func()
	// OnScrolled fires whenever the window moves, with the new top line.
	OnScrolled func(line int)
	// OnSelectionChanged fires when the selection is changed through
	// this window.
	OnSelectionChanged func()
}

// NewScreenWindow returns a window onto screen, tracking output.
func NewScreenWindow(screen *Screen) *ScreenWindow {
	return &ScreenWindow{
		screen:            screen,
		windowLines:       1,
		trackOutput:       true,
		bufferNeedsUpdate: true,
	}
}

// SetScreen switches the window to a different screen buffer.
func (w *ScreenWindow) SetScreen(screen *Screen) {
	w.screen = screen
	w.bufferNeedsUpdate = true
}

// Screen returns the screen this window looks onto.
func (w *ScreenWindow) Screen() *Screen { return w.screen }

// SetWindowLines sets the viewport height.
func (w *ScreenWindow) SetWindowLines(lines int) {
	if lines < 1 {
		lines = 1
	}
	w.windowLines = lines
	w.bufferNeedsUpdate = true
}

// WindowLines returns the viewport height.
func (w *ScreenWindow) WindowLines() int {
	return min(w.windowLines, w.screen.GetLines())
}

// WindowColumns returns the viewport width.
func (w *ScreenWindow) WindowColumns() int { return w.screen.GetColumns() }

// LineCount returns the total addressable lines: scrollback plus screen.
func (w *ScreenWindow) LineCount() int {
	return w.screen.GetHistLines() + w.screen.GetLines()
}

// ColumnCount returns the screen width.
func (w *ScreenWindow) ColumnCount() int { return w.screen.GetColumns() }

// CurrentLine returns the first visible line of the window.
func (w *ScreenWindow) CurrentLine() int { return w.currentLine }

func (w *ScreenWindow) endWindowLine() int {
	return min(w.currentLine+w.WindowLines(), w.LineCount()) - 1
}

// CursorPosition returns the cursor in window coordinates.
func (w *ScreenWindow) CursorPosition() (x, y int) {
	return w.screen.GetCursorX(), w.screen.GetCursorY()
}

// GetImage returns the visible image. The slice is cached and refreshed
// lazily; callers must not hold it across window mutations.
func (w *ScreenWindow) GetImage() []Character {
	if w.bufferNeedsUpdate {
		size := w.WindowLines() * w.WindowColumns()
		img := w.screen.GetImage(w.currentLine, w.endWindowLine())
		if len(img) < size {
			// Window extends past the end of the output.
			padded := make([]Character, size)
			copy(padded, img)
			for i := len(img); i < size; i++ {
				padded[i] = DefaultChar
			}
			img = padded
		}
		w.windowBuffer = img
		w.bufferNeedsUpdate = false
	}
	return w.windowBuffer
}

// GetLineProperties returns the per-line flags for the visible lines.
func (w *ScreenWindow) GetLineProperties() []LineProperty {
	result := w.screen.GetLineProperties(w.currentLine, w.endWindowLine())
	if len(result) != w.WindowLines() {
		padded := make([]LineProperty, w.WindowLines())
		copy(padded, result)
		result = padded
	}
	return result
}

// ScrollRegion returns the area the last output pass scrolled, letting a
// view blit instead of repaint when the window sits at the live edge.
func (w *ScreenWindow) ScrollRegion() Rect {
	equalToScreenSize := w.WindowLines() == w.screen.GetLines()
	if w.AtEndOfOutput() && equalToScreenSize {
		return w.screen.LastScrolledRegion()
	}
	return Rect{0, 0, w.WindowColumns(), w.WindowLines()}
}

// SetSelectionStart anchors a selection at window coordinates.
func (w *ScreenWindow) SetSelectionStart(column, line int, columnMode bool) {
	w.screen.SetSelectionStart(column, min(line+w.currentLine, w.endWindowLine()), columnMode)
	w.bufferNeedsUpdate = true
	if w.OnSelectionChanged != nil {
		w.OnSelectionChanged()
	}
}

// SetSelectionEnd extends the selection to window coordinates.
func (w *ScreenWindow) SetSelectionEnd(column, line int) {
	w.screen.SetSelectionEnd(column, min(line+w.currentLine, w.endWindowLine()))
	w.bufferNeedsUpdate = true
	if w.OnSelectionChanged != nil {
		w.OnSelectionChanged()
	}
}

// GetSelectionStart returns the selection start in window coordinates.
func (w *ScreenWindow) GetSelectionStart() (column, line int) {
	column, line = w.screen.GetSelectionStart()
	return column, line - w.currentLine
}

// GetSelectionEnd returns the selection end in window coordinates.
func (w *ScreenWindow) GetSelectionEnd() (column, line int) {
	column, line = w.screen.GetSelectionEnd()
	return column, line - w.currentLine
}

// IsSelected reports whether the window cell at (column, line) is
// selected.
func (w *ScreenWindow) IsSelected(column, line int) bool {
	return w.screen.IsSelected(column, min(line+w.currentLine, w.endWindowLine()))
}

// ClearSelection discards the selection.
func (w *ScreenWindow) ClearSelection() {
	w.screen.ClearSelection()
	if w.OnSelectionChanged != nil {
		w.OnSelectionChanged()
	}
}

// SelectedText returns the selected text.
func (w *ScreenWindow) SelectedText(preserveLineBreaks bool) string {
	return w.screen.SelectedText(preserveLineBreaks)
}

// ScrollTo moves the window so line is its first visible line, clamped
// to the valid range. The move always notifies, even when clamping
// leaves the position unchanged.
func (w *ScreenWindow) ScrollTo(line int) {
	maxCurrentLine := w.LineCount() - w.WindowLines()
	line = max(0, min(line, maxCurrentLine))

	delta := line - w.currentLine
	w.currentLine = line
	w.scrollCount += delta
	w.bufferNeedsUpdate = true

	if w.OnScrolled != nil {
		w.OnScrolled(w.currentLine)
	}
}

// ScrollBy moves the window by amount units of mode. Pages are half a
// window tall.
func (w *ScreenWindow) ScrollBy(mode ScrollMode, amount int) {
	switch mode {
	case ScrollLines:
		w.ScrollTo(w.currentLine + amount)
	case ScrollPages:
		w.ScrollTo(w.currentLine + amount*(w.WindowLines()/2))
	}
}

// ScrollToEnd pins the window to the live edge of the output.
func (w *ScreenWindow) ScrollToEnd() {
	w.ScrollTo(w.LineCount() - w.WindowLines())
}

// AtEndOfOutput reports whether the window shows the live edge.
func (w *ScreenWindow) AtEndOfOutput() bool {
	return w.currentLine == w.LineCount()-w.WindowLines()
}

// SetTrackOutput selects between following fresh output and staying
// pinned at the current scrollback position.
func (w *ScreenWindow) SetTrackOutput(trackOutput bool) {
	w.trackOutput = trackOutput
}

// TrackOutput reports whether the window follows fresh output.
func (w *ScreenWindow) TrackOutput() bool { return w.trackOutput }

// ScrollCount returns lines the window has moved since the last reset,
// net of output scrolling while tracking.
func (w *ScreenWindow) ScrollCount() int { return w.scrollCount }

// ResetScrollCount zeroes the scroll counter.
func (w *ScreenWindow) ResetScrollCount() { w.scrollCount = 0 }

// NotifyOutputChanged repositions the window after the screen changed:
// tracking windows snap to the live edge, pinned windows compensate for
// lines evicted from a full scrollback.
func (w *ScreenWindow) NotifyOutputChanged() {
	w.bufferNeedsUpdate = true

	if w.trackOutput {
		w.scrollCount -= w.screen.ScrolledLines()
		w.currentLine = max(0, w.screen.GetHistLines()-(w.WindowLines()-w.screen.GetLines()))
	} else {
		w.currentLine = max(0, w.currentLine-w.screen.DroppedLines())
	}

	w.screen.ResetScrolledLines()
	w.screen.ResetDroppedLines()

	if w.OnOutputChanged != nil {
		w.OnOutputChanged()
	}
}
