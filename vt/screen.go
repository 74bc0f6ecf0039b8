// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: vt/screen.go
// Summary: The terminal character grid: cursor, margins, modes, selection,
// editing and scrolling, and the bridge into scrollback history.
// Usage: Mutated by the emulation engine, observed through ScreenWindow.

package vt

import (
	"strings"

	runewidth "github.com/mattn/go-runewidth"
)

// Screen modes. The emulation engine maps DEC mode numbers onto these.
const (
	ModeOrigin  = iota // cursor addressing relative to the top margin
	ModeWrap           // auto-wrap at the right edge
	ModeInsert         // insert instead of overwrite
	ModeScreen         // reverse video for the whole screen
	ModeCursor         // cursor visible
	ModeNewLine        // LF implies CR
	ModesScreen        // count
)

// loc flattens an (x, y) position into a linear offset.
func loc(x, y, columns int) int { return y*columns + x }

// Rect is a rectangular region of the grid in character cells.
type Rect struct {
	X, Y, Width, Height int
}

// savedState is the cursor position and appearance stashed by DECSC.
type savedState struct {
	cursorColumn int
	cursorLine   int
	rendition    Rendition
	foreground   CharacterColor
	background   CharacterColor
}

// Screen is a fixed-size image of lines x columns cells. Rows are stored
// at their used length; columns beyond a row's length render as the
// default cell. Row index lines is a spare row that scrolling may touch.
//
// The selection is kept as two linear offsets into the combined
// history-lines + screen-lines address space, so it stays meaningful as
// rows migrate into scrollback.
type Screen struct {
	lines   int
	columns int

	screenLines    [][]Character
	lineProperties []LineProperty

	history HistoryScroll

	cuX, cuY int

	currentRendition  Rendition
	currentForeground CharacterColor
	currentBackground CharacterColor

	marginTop    int
	marginBottom int

	currentModes [ModesScreen]bool
	savedModes   [ModesScreen]bool

	tabStops []bool

	selBegin           int
	selTopLeft         int
	selBottomRight     int
	blockSelectionMode bool

	effectiveForeground CharacterColor
	effectiveBackground CharacterColor
	effectiveRendition  Rendition

	saved savedState

	lastPos       int
	lastDrawnChar rune

	scrolledLinesCount int
	droppedLinesCount  int
	lastScrolledRegion Rect
}

// NewScreen constructs a screen of the given size with history disabled.
func NewScreen(lines, columns int) *Screen {
	s := &Screen{
		lines:          lines,
		columns:        columns,
		screenLines:    make([][]Character, lines+1),
		lineProperties: make([]LineProperty, lines+1),
		history:        NewHistoryScrollNone(),
		lastPos:        -1,
	}
	s.initTabStops()
	s.ClearSelection()
	s.Reset(true)
	return s
}

// --- Cursor motion ---

// CursorUp moves the cursor up n lines, stopping at the top margin when
// the cursor starts below it. n of 0 means 1.
func (s *Screen) CursorUp(n int) {
	if n == 0 {
		n = 1
	}
	stop := s.marginTop
	if s.cuY < s.marginTop {
		stop = 0
	}
	s.cuX = min(s.columns-1, s.cuX)
	s.cuY = max(stop, s.cuY-n)
}

// CursorDown moves the cursor down n lines, stopping at the bottom margin
// when the cursor starts above it.
func (s *Screen) CursorDown(n int) {
	if n == 0 {
		n = 1
	}
	stop := s.marginBottom
	if s.cuY > s.marginBottom {
		stop = s.lines - 1
	}
	s.cuX = min(s.columns-1, s.cuX)
	s.cuY = min(stop, s.cuY+n)
}

// CursorLeft moves the cursor left n columns, stopping at the first.
func (s *Screen) CursorLeft(n int) {
	if n == 0 {
		n = 1
	}
	s.cuX = min(s.columns-1, s.cuX)
	s.cuX = max(0, s.cuX-n)
}

// CursorRight moves the cursor right n columns, stopping at the last.
func (s *Screen) CursorRight(n int) {
	if n == 0 {
		n = 1
	}
	s.cuX = min(s.columns-1, s.cuX+n)
}

// CursorNextLine moves the cursor down n lines to the start of the line.
func (s *Screen) CursorNextLine(n int) {
	if n == 0 {
		n = 1
	}
	s.cuX = 0
	for ; n > 0; n-- {
		if s.cuY < s.lines-1 {
			s.cuY++
		}
	}
}

// CursorPreviousLine moves the cursor up n lines to the start of the line.
func (s *Screen) CursorPreviousLine(n int) {
	if n == 0 {
		n = 1
	}
	s.cuX = 0
	for ; n > 0; n-- {
		if s.cuY > 0 {
			s.cuY--
		}
	}
}

// SetCursorX positions the cursor at 1-based column x.
func (s *Screen) SetCursorX(x int) {
	if x == 0 {
		x = 1
	}
	x--
	s.cuX = max(0, min(s.columns-1, x))
}

// SetCursorY positions the cursor at 1-based line y, relative to the top
// margin when origin mode is set.
func (s *Screen) SetCursorY(y int) {
	if y == 0 {
		y = 1
	}
	y--
	originOffset := 0
	if s.GetMode(ModeOrigin) {
		originOffset = s.marginTop
	}
	s.cuY = max(0, min(s.lines-1, y+originOffset))
}

// SetCursorYX positions the cursor at 1-based (y, x).
func (s *Screen) SetCursorYX(y, x int) {
	s.SetCursorY(y)
	s.SetCursorX(x)
}

// GetCursorX returns the 0-based cursor column.
func (s *Screen) GetCursorX() int { return s.cuX }

// GetCursorY returns the 0-based cursor line.
func (s *Screen) GetCursorY() int { return s.cuY }

// Home moves the cursor to the origin.
func (s *Screen) Home() {
	s.cuX = 0
	s.cuY = 0
}

// ToStartOfLine moves the cursor to the first column.
func (s *Screen) ToStartOfLine() { s.cuX = 0 }

// --- Margins ---

// SetMargins sets the scrolling region from 1-based top and bottom lines.
// Zero selects the default (full screen). An inverted or out-of-range pair
// is ignored.
func (s *Screen) SetMargins(topLine, bottomLine int) {
	if topLine == 0 {
		topLine = 1
	}
	if bottomLine == 0 {
		bottomLine = s.lines
	}
	top := topLine - 1
	bot := bottomLine - 1
	if !(0 <= top && top < bot && bot < s.lines) {
		return
	}
	s.marginTop = top
	s.marginBottom = bot
	s.cuX = 0
	if s.GetMode(ModeOrigin) {
		s.cuY = top
	} else {
		s.cuY = 0
	}
}

// TopMargin returns the top scrolling margin.
func (s *Screen) TopMargin() int { return s.marginTop }

// BottomMargin returns the bottom scrolling margin.
func (s *Screen) BottomMargin() int { return s.marginBottom }

// SetDefaultMargins resets the scrolling region to the full screen.
func (s *Screen) SetDefaultMargins() {
	s.marginTop = 0
	s.marginBottom = s.lines - 1
}

// --- Modes ---

// SetMode enables a screen mode. Enabling origin mode homes the cursor to
// the top margin.
func (s *Screen) SetMode(mode int) {
	s.currentModes[mode] = true
	if mode == ModeOrigin {
		s.cuX = 0
		s.cuY = s.marginTop
	}
}

// ResetMode disables a screen mode. Disabling origin mode homes the
// cursor to the absolute origin.
func (s *Screen) ResetMode(mode int) {
	s.currentModes[mode] = false
	if mode == ModeOrigin {
		s.cuX = 0
		s.cuY = 0
	}
}

// SaveMode stashes a mode's current state.
func (s *Screen) SaveMode(mode int) { s.savedModes[mode] = s.currentModes[mode] }

// RestoreMode restores a mode from its stashed state.
func (s *Screen) RestoreMode(mode int) { s.currentModes[mode] = s.savedModes[mode] }

// GetMode reports whether a screen mode is enabled.
func (s *Screen) GetMode(mode int) bool { return s.currentModes[mode] }

// --- Cursor save/restore ---

// SaveCursor stashes the cursor position and appearance (DECSC).
func (s *Screen) SaveCursor() {
	s.saved.cursorColumn = s.cuX
	s.saved.cursorLine = s.cuY
	s.saved.rendition = s.currentRendition
	s.saved.foreground = s.currentForeground
	s.saved.background = s.currentBackground
}

// RestoreCursor restores the stashed cursor position and appearance
// (DECRC), clamped to the current grid.
func (s *Screen) RestoreCursor() {
	s.cuX = min(s.saved.cursorColumn, s.columns-1)
	s.cuY = min(s.saved.cursorLine, s.lines-1)
	s.currentRendition = s.saved.rendition
	s.currentForeground = s.saved.foreground
	s.currentBackground = s.saved.background
	s.updateEffectiveRendition()
}

// --- Tab stops ---

func (s *Screen) initTabStops() {
	s.tabStops = make([]bool, s.columns)
	for i := range s.tabStops {
		s.tabStops[i] = i%8 == 0 && i != 0
	}
}

// ClearTabStops removes every tab stop.
func (s *Screen) ClearTabStops() {
	s.tabStops = make([]bool, s.columns)
}

// ChangeTabStop sets or clears a tab stop at the cursor column.
func (s *Screen) ChangeTabStop(set bool) {
	if s.cuX >= s.columns {
		return
	}
	s.tabStops[s.cuX] = set
}

// Tab moves the cursor to the n-th next tab stop.
func (s *Screen) Tab(n int) {
	if n == 0 {
		n = 1
	}
	for ; n > 0 && s.cuX < s.columns-1; n-- {
		s.CursorRight(1)
		for s.cuX < s.columns-1 && !s.tabStops[s.cuX] {
			s.CursorRight(1)
		}
	}
}

// BackTab moves the cursor to the n-th previous tab stop.
func (s *Screen) BackTab(n int) {
	if n == 0 {
		n = 1
	}
	for ; n > 0 && s.cuX > 0; n-- {
		s.CursorLeft(1)
		for s.cuX > 0 && !s.tabStops[s.cuX] {
			s.CursorLeft(1)
		}
	}
}

// --- Geometry and history ---

// GetLines returns the number of visible lines.
func (s *Screen) GetLines() int { return s.lines }

// GetColumns returns the number of columns.
func (s *Screen) GetColumns() int { return s.columns }

// GetHistLines returns the number of lines held in scrollback.
func (s *Screen) GetHistLines() int { return s.history.GetLines() }

// SetScroll swaps in the history backend described by t. With
// copyPreviousScroll set, existing scrollback is carried forward into the
// new backend (bounded by its capacity).
func (s *Screen) SetScroll(t HistoryType, copyPreviousScroll bool) {
	s.ClearSelection()
	if copyPreviousScroll {
		s.history = t.Scroll(s.history)
	} else {
		old := s.history
		s.history = t.Scroll(nil)
		if file, ok := old.(*HistoryScrollFile); ok {
			file.Close()
		}
	}
}

// GetScroll returns the active history strategy.
func (s *Screen) GetScroll() HistoryType { return s.history.Type() }

// HasScroll reports whether lines scrolled off the top are retained.
func (s *Screen) HasScroll() bool { return s.history.HasScroll() }

// History exposes the active scrollback store.
func (s *Screen) History() HistoryScroll { return s.history }

// --- Selection ---

// ClearSelection discards the current selection.
func (s *Screen) ClearSelection() {
	s.selBottomRight = -1
	s.selTopLeft = -1
	s.selBegin = -1
}

// SetSelectionStart anchors a selection at (column, line) in the combined
// history+screen address space.
func (s *Screen) SetSelectionStart(column, line int, blockMode bool) {
	s.selBegin = loc(column, line, s.columns)
	if column == s.columns {
		s.selBegin--
	}
	s.selBottomRight = s.selBegin
	s.selTopLeft = s.selBegin
	s.blockSelectionMode = blockMode
}

// SetSelectionEnd extends the selection to (column, line).
func (s *Screen) SetSelectionEnd(column, line int) {
	if s.selBegin == -1 {
		return
	}
	endPos := loc(column, line, s.columns)
	if endPos < s.selBegin {
		s.selTopLeft = endPos
		s.selBottomRight = s.selBegin
	} else {
		if column == s.columns {
			endPos--
		}
		s.selTopLeft = s.selBegin
		s.selBottomRight = endPos
	}

	// Normalize the corners in block mode so topLeft/bottomRight really
	// are the rectangle's corners.
	if s.blockSelectionMode {
		topRow := s.selTopLeft / s.columns
		topColumn := s.selTopLeft % s.columns
		bottomRow := s.selBottomRight / s.columns
		bottomColumn := s.selBottomRight % s.columns
		s.selTopLeft = loc(min(topColumn, bottomColumn), topRow, s.columns)
		s.selBottomRight = loc(max(topColumn, bottomColumn), bottomRow, s.columns)
	}
}

// IsSelected reports whether (column, line) falls inside the selection.
func (s *Screen) IsSelected(column, line int) bool {
	columnInSelection := true
	if s.blockSelectionMode {
		columnInSelection = column >= s.selTopLeft%s.columns &&
			column <= s.selBottomRight%s.columns
	}
	pos := loc(column, line, s.columns)
	return pos >= s.selTopLeft && pos <= s.selBottomRight && columnInSelection
}

// IsSelectionValid reports whether a selection exists.
func (s *Screen) IsSelectionValid() bool {
	return s.selTopLeft >= 0 && s.selBottomRight >= 0
}

// GetSelectionStart returns the selection's top-left (column, line).
func (s *Screen) GetSelectionStart() (column, line int) {
	if s.selTopLeft != -1 {
		return s.selTopLeft % s.columns, s.selTopLeft / s.columns
	}
	return s.cuX + s.GetHistLines(), s.cuY + s.GetHistLines()
}

// GetSelectionEnd returns the selection's bottom-right (column, line).
func (s *Screen) GetSelectionEnd() (column, line int) {
	if s.selBottomRight != -1 {
		return s.selBottomRight % s.columns, s.selBottomRight / s.columns
	}
	return s.cuX + s.GetHistLines(), s.cuY + s.GetHistLines()
}

// checkSelection clears the selection wholesale if it overlaps the
// screen-space range [from, to]. Selections never partially survive a
// mutation that touches them.
func (s *Screen) checkSelection(from, to int) {
	if s.selBegin == -1 {
		return
	}
	scrTL := loc(0, s.history.GetLines(), s.columns)
	if s.selBottomRight >= from+scrTL && s.selTopLeft <= to+scrTL {
		s.ClearSelection()
	}
}

// --- Rendition ---

func (s *Screen) updateEffectiveRendition() {
	s.effectiveRendition = s.currentRendition
	if s.currentRendition&ReReverse != 0 {
		s.effectiveForeground = s.currentBackground
		s.effectiveBackground = s.currentForeground
	} else {
		s.effectiveForeground = s.currentForeground
		s.effectiveBackground = s.currentBackground
	}
	if s.currentRendition&ReBold != 0 {
		s.effectiveForeground.SetIntensive()
	}
}

// SetForeColor sets the foreground used for subsequently written cells.
// An invalid color falls back to the default foreground.
func (s *Screen) SetForeColor(space ColorSpace, color int) {
	s.currentForeground = NewColor(space, color)
	if !s.currentForeground.IsValid() {
		s.currentForeground = NewColor(ColorSpaceDefault, DefaultForeColor)
	}
	s.updateEffectiveRendition()
}

// SetBackColor sets the background used for subsequently written cells.
func (s *Screen) SetBackColor(space ColorSpace, color int) {
	s.currentBackground = NewColor(space, color)
	if !s.currentBackground.IsValid() {
		s.currentBackground = NewColor(ColorSpaceDefault, DefaultBackColor)
	}
	s.updateEffectiveRendition()
}

// SetRendition enables rendition flags for subsequently written cells.
func (s *Screen) SetRendition(r Rendition) {
	s.currentRendition |= r
	s.updateEffectiveRendition()
}

// ResetRendition disables rendition flags for subsequently written cells.
func (s *Screen) ResetRendition(r Rendition) {
	s.currentRendition &^= r
	s.updateEffectiveRendition()
}

// SetDefaultRendition resets colors and rendition to their defaults.
func (s *Screen) SetDefaultRendition() {
	s.currentForeground = NewColor(ColorSpaceDefault, DefaultForeColor)
	s.currentBackground = NewColor(ColorSpaceDefault, DefaultBackColor)
	s.currentRendition = DefaultRendition
	s.updateEffectiveRendition()
}

// --- Reset and clearing ---

// Clear clears the entire screen and homes the cursor.
func (s *Screen) Clear() {
	s.ClearEntireScreen()
	s.Home()
}

// Reset restores default modes, margins and rendition. Calling it twice
// in a row leaves the same state as calling it once.
func (s *Screen) Reset(clearScreen bool) {
	s.SetMode(ModeWrap)
	s.SaveMode(ModeWrap)
	s.ResetMode(ModeOrigin)
	s.SaveMode(ModeOrigin)
	s.ResetMode(ModeInsert)
	s.SaveMode(ModeInsert)
	s.SetMode(ModeCursor)
	s.ResetMode(ModeScreen)
	s.ResetMode(ModeNewLine)

	s.marginTop = 0
	s.marginBottom = s.lines - 1

	s.SetDefaultRendition()
	s.SaveCursor()

	if clearScreen {
		s.Clear()
	}
}

// ClearEntireScreen clears the visible image, first pushing its rows into
// scrollback so a full-screen clear never loses content.
func (s *Screen) ClearEntireScreen() {
	if s.isScreenEmpty() {
		s.Home()
		return
	}

	if s.HasScroll() {
		for i := 0; i < s.lines-1; i++ {
			s.history.AddCells(s.screenLines[i])
			s.history.AddLine(s.lineProperties[i]&LineWrapped != 0)
		}
	}

	s.ClearSelection()
	for i := range s.screenLines {
		s.screenLines[i] = nil
		s.lineProperties[i] = LineDefault
	}
	s.Home()
}

func (s *Screen) isScreenEmpty() bool {
	for _, line := range s.screenLines {
		for _, c := range line {
			if c.Rune != ' ' {
				return false
			}
		}
	}
	return true
}

// ClearToEndOfScreen clears from the cursor to the end of the screen.
func (s *Screen) ClearToEndOfScreen() {
	s.clearImage(loc(s.cuX, s.cuY, s.columns),
		loc(s.columns-1, s.lines-1, s.columns), ' ')
}

// ClearToBeginOfScreen clears from the top of the screen to the cursor.
func (s *Screen) ClearToBeginOfScreen() {
	s.clearImage(loc(0, 0, s.columns), loc(s.cuX, s.cuY, s.columns), ' ')
}

// ClearEntireLine clears the cursor's line.
func (s *Screen) ClearEntireLine() {
	s.clearImage(loc(0, s.cuY, s.columns),
		loc(s.columns-1, s.cuY, s.columns), ' ')
}

// ClearToEndOfLine clears from the cursor to the end of the line.
func (s *Screen) ClearToEndOfLine() {
	s.clearImage(loc(s.cuX, s.cuY, s.columns),
		loc(s.columns-1, s.cuY, s.columns), ' ')
}

// ClearToBeginOfLine clears from the start of the line to the cursor.
func (s *Screen) ClearToBeginOfLine() {
	s.clearImage(loc(0, s.cuY, s.columns), loc(s.cuX, s.cuY, s.columns), ' ')
}

// HelpAlign fills the screen with 'E' (DECALN).
func (s *Screen) HelpAlign() {
	s.clearImage(loc(0, 0, s.columns),
		loc(s.columns-1, s.lines-1, s.columns), 'E')
}

// Backspace moves the cursor one column left without erasing.
func (s *Screen) Backspace() {
	s.cuX = min(s.columns-1, s.cuX)
	s.cuX = max(0, s.cuX-1)
	if len(s.screenLines[s.cuY]) < s.cuX+1 {
		s.extendLine(s.cuY, s.cuX+1)
	}
}

func (s *Screen) extendLine(y, length int) {
	for len(s.screenLines[y]) < length {
		s.screenLines[y] = append(s.screenLines[y], DefaultChar)
	}
}

// clearImage fills the screen-space range [loca, loce] with ch carrying
// the current colors, clearing the selection when it overlaps.
func (s *Screen) clearImage(loca, loce int, ch rune) {
	scrTL := loc(0, s.history.GetLines(), s.columns)
	if s.selBottomRight > loca+scrTL && s.selTopLeft < loce+scrTL {
		s.ClearSelection()
	}

	topLine := loca / s.columns
	bottomLine := loce / s.columns

	clearCh := Character{
		Rune:       ch,
		Rendition:  DefaultRendition,
		Foreground: s.currentForeground,
		Background: s.currentBackground,
	}
	isDefaultCh := clearCh == DefaultChar

	for y := topLine; y <= bottomLine; y++ {
		s.lineProperties[y] = LineDefault

		endCol := s.columns - 1
		if y == bottomLine {
			endCol = loce % s.columns
		}
		startCol := 0
		if y == topLine {
			startCol = loca % s.columns
		}

		if isDefaultCh && endCol == s.columns-1 {
			// Truncation is equivalent to filling with defaults.
			if startCol == 0 {
				s.screenLines[y] = nil
			} else if startCol < len(s.screenLines[y]) {
				s.screenLines[y] = s.screenLines[y][:startCol]
			}
		} else {
			s.extendLine(y, endCol+1)
			for i := startCol; i <= endCol; i++ {
				s.screenLines[y][i] = clearCh
			}
		}
	}
}

// --- Scrolling ---

// addHistLine pushes the top screen row into scrollback and re-homes the
// selection offsets: a successful append shifts the screen origin down by
// one line-width, an eviction shifts everything up by one.
func (s *Screen) addHistLine() {
	if !s.HasScroll() {
		return
	}
	oldHistLines := s.history.GetLines()

	s.history.AddCells(s.screenLines[0])
	s.history.AddLine(s.lineProperties[0]&LineWrapped != 0)

	newHistLines := s.history.GetLines()
	beginIsTL := s.selBegin == s.selTopLeft

	// History full: the oldest line was evicted to make room.
	if newHistLines == oldHistLines {
		s.droppedLinesCount++
	}

	if newHistLines > oldHistLines {
		if s.selBegin != -1 {
			s.selTopLeft += s.columns
			s.selBottomRight += s.columns
		}
	}

	if s.selBegin != -1 {
		topBR := loc(0, 1+newHistLines, s.columns)
		if s.selTopLeft < topBR {
			s.selTopLeft -= s.columns
		}
		if s.selBottomRight < topBR {
			s.selBottomRight -= s.columns
		}
		if s.selBottomRight < 0 {
			s.ClearSelection()
		} else if s.selTopLeft < 0 {
			s.selTopLeft = 0
		}
		if s.selBegin != -1 {
			if beginIsTL {
				s.selBegin = s.selTopLeft
			} else {
				s.selBegin = s.selBottomRight
			}
		}
	}
}

// scrollUp moves rows [fromLine+n, bottomMargin] up by n and clears the
// vacated rows at the bottom of the region.
func (s *Screen) scrollUp(fromLine, n int) {
	if n <= 0 {
		return
	}
	if fromLine > s.marginBottom {
		return
	}
	if fromLine+n > s.marginBottom {
		n = s.marginBottom + 1 - fromLine
	}

	s.scrolledLinesCount -= n
	s.lastScrolledRegion = Rect{0, s.marginTop, s.columns - 1, s.marginBottom - s.marginTop}

	s.moveImage(loc(0, fromLine, s.columns),
		loc(0, fromLine+n, s.columns),
		loc(s.columns, s.marginBottom, s.columns))
	s.clearImage(loc(0, s.marginBottom-n+1, s.columns),
		loc(s.columns-1, s.marginBottom, s.columns), ' ')
}

// scrollDown moves rows [fromLine, bottomMargin-n] down by n and clears
// the vacated rows at the top of the region.
func (s *Screen) scrollDown(fromLine, n int) {
	s.scrolledLinesCount += n

	if n <= 0 {
		return
	}
	if fromLine > s.marginBottom {
		return
	}
	if fromLine+n > s.marginBottom {
		n = s.marginBottom - fromLine
	}
	if n <= 0 {
		return
	}

	s.moveImage(loc(0, fromLine+n, s.columns),
		loc(0, fromLine, s.columns),
		loc(s.columns-1, s.marginBottom-n, s.columns))
	s.clearImage(loc(0, fromLine, s.columns),
		loc(s.columns-1, fromLine+n-1, s.columns), ' ')
}

// moveImage copies the row span [sourceBegin, sourceEnd] to dest (offsets
// in screen space) and re-homes or clears the selection accordingly.
func (s *Screen) moveImage(dest, sourceBegin, sourceEnd int) {
	linesCount := (sourceEnd - sourceBegin) / s.columns

	copyRow := func(i int) {
		srcLine := sourceBegin/s.columns + i
		destLine := dest/s.columns + i
		if srcLine >= len(s.screenLines) || destLine >= len(s.screenLines) {
			return
		}
		row := make([]Character, len(s.screenLines[srcLine]))
		copy(row, s.screenLines[srcLine])
		s.screenLines[destLine] = row
		s.lineProperties[destLine] = s.lineProperties[srcLine]
	}

	if dest < sourceBegin {
		for i := 0; i <= linesCount; i++ {
			copyRow(i)
		}
	} else {
		for i := linesCount; i >= 0; i-- {
			copyRow(i)
		}
	}

	if s.lastPos != -1 {
		diff := dest - sourceBegin
		s.lastPos += diff
		if s.lastPos < 0 || s.lastPos >= s.lines*s.columns {
			s.lastPos = -1
		}
	}

	if s.selBegin != -1 {
		beginIsTL := s.selBegin == s.selTopLeft
		diff := dest - sourceBegin
		scrTL := loc(0, s.history.GetLines(), s.columns)
		srca := sourceBegin + scrTL
		srce := sourceEnd + scrTL
		desta := srca + diff
		deste := srce + diff

		if s.selTopLeft >= srca && s.selTopLeft <= srce {
			s.selTopLeft += diff
		} else if s.selTopLeft >= desta && s.selTopLeft <= deste {
			s.selBottomRight = -1
		}

		if s.selBottomRight >= srca && s.selBottomRight <= srce {
			s.selBottomRight += diff
		} else if s.selBottomRight >= desta && s.selBottomRight <= deste {
			s.selBottomRight = -1
		}

		if s.selBottomRight < 0 {
			s.ClearSelection()
		} else if s.selTopLeft < 0 {
			s.selTopLeft = 0
		}

		if s.selBegin != -1 {
			if beginIsTL {
				s.selBegin = s.selTopLeft
			} else {
				s.selBegin = s.selBottomRight
			}
		}
	}
}

// ScrolledLines returns lines scrolled since the last reset of the count.
// Negative values mean content moved up.
func (s *Screen) ScrolledLines() int { return s.scrolledLinesCount }

// DroppedLines returns lines evicted from a full history since the last
// reset of the count.
func (s *Screen) DroppedLines() int { return s.droppedLinesCount }

// ResetScrolledLines zeroes the scrolled-lines counter.
func (s *Screen) ResetScrolledLines() { s.scrolledLinesCount = 0 }

// ResetDroppedLines zeroes the dropped-lines counter.
func (s *Screen) ResetDroppedLines() { s.droppedLinesCount = 0 }

// LastScrolledRegion returns the region touched by the latest scroll.
func (s *Screen) LastScrolledRegion() Rect { return s.lastScrolledRegion }

// --- Output ---

// DisplayCharacter writes c at the cursor with the current rendition,
// wrapping or clamping at the right edge, and advances the cursor by the
// character's width. Zero-width characters are dropped.
func (s *Screen) DisplayCharacter(c rune) {
	if c < 32 || c == 0x7F {
		return
	}
	w := runewidth.RuneWidth(c)
	if w == 0 {
		return
	}

	if s.cuX+w > s.columns {
		if s.GetMode(ModeWrap) {
			s.lineProperties[s.cuY] |= LineWrapped
			s.NextLine()
		} else {
			s.cuX = s.columns - w
		}
	}

	s.extendLine(s.cuY, s.cuX+w)

	if s.GetMode(ModeInsert) {
		s.InsertChars(w)
	}

	s.lastPos = loc(s.cuX, s.cuY, s.columns)
	s.checkSelection(s.lastPos, s.lastPos)

	s.screenLines[s.cuY][s.cuX] = Character{
		Rune:       c,
		Rendition:  s.effectiveRendition,
		Foreground: s.effectiveForeground,
		Background: s.effectiveBackground,
	}
	s.lastDrawnChar = c

	if w == 2 {
		s.extendLine(s.cuY, s.cuX+2)
		// Continuation cell of the double-width character.
		s.screenLines[s.cuY][s.cuX+1] = Character{
			Rune:       0,
			Rendition:  s.effectiveRendition,
			Foreground: s.effectiveForeground,
			Background: s.effectiveBackground,
		}
	}

	s.cuX += w
}

// DisplayExtendedCharacter writes an interned combining-sequence key at
// the cursor, marking the cell with ReExtendedChar.
func (s *Screen) DisplayExtendedCharacter(key uint16, width int) {
	if width <= 0 {
		width = 1
	}
	if s.cuX+width > s.columns {
		if s.GetMode(ModeWrap) {
			s.lineProperties[s.cuY] |= LineWrapped
			s.NextLine()
		} else {
			s.cuX = s.columns - width
		}
	}
	s.extendLine(s.cuY, s.cuX+width)
	if s.GetMode(ModeInsert) {
		s.InsertChars(width)
	}

	s.lastPos = loc(s.cuX, s.cuY, s.columns)
	s.checkSelection(s.lastPos, s.lastPos)

	s.screenLines[s.cuY][s.cuX] = Character{
		Rune:       rune(key),
		Rendition:  s.effectiveRendition | ReExtendedChar,
		Foreground: s.effectiveForeground,
		Background: s.effectiveBackground,
	}
	s.cuX += width
}

// LastDrawnChar returns the most recently written code point, for REP.
func (s *Screen) LastDrawnChar() rune { return s.lastDrawnChar }

// --- Editing ---

// EraseChars overwrites n cells from the cursor with blanks.
func (s *Screen) EraseChars(n int) {
	if n == 0 {
		n = 1
	}
	p := max(0, min(s.cuX+n-1, s.columns-1))
	s.clearImage(loc(s.cuX, s.cuY, s.columns), loc(p, s.cuY, s.columns), ' ')
}

// DeleteChars removes n cells at the cursor, shifting the rest of the
// line left.
func (s *Screen) DeleteChars(n int) {
	if n == 0 {
		n = 1
	}
	line := s.screenLines[s.cuY]
	if s.cuX >= len(line) {
		return
	}
	if s.cuX+n > len(line) {
		n = len(line) - s.cuX
	}
	if n <= 0 {
		return
	}
	s.screenLines[s.cuY] = append(line[:s.cuX], line[s.cuX+n:]...)
}

// InsertChars inserts n blank cells at the cursor, shifting the rest of
// the line right and dropping overflow past the last column.
func (s *Screen) InsertChars(n int) {
	if n == 0 {
		n = 1
	}
	line := s.screenLines[s.cuY]
	for len(line) < s.cuX {
		line = append(line, DefaultChar)
	}

	blank := Character{
		Rune:       ' ',
		Foreground: NewColor(ColorSpaceDefault, DefaultForeColor),
		Background: NewColor(ColorSpaceDefault, DefaultBackColor),
	}
	inserted := make([]Character, 0, len(line)+n)
	inserted = append(inserted, line[:s.cuX]...)
	for i := 0; i < n; i++ {
		inserted = append(inserted, blank)
	}
	inserted = append(inserted, line[s.cuX:]...)

	if len(inserted) > s.columns {
		inserted = inserted[:s.columns]
	}
	s.screenLines[s.cuY] = inserted
}

// RepeatChars writes the last drawn character count more times (REP).
func (s *Screen) RepeatChars(count int) {
	if count == 0 {
		count = 1
	}
	for i := 0; i < count; i++ {
		if s.lastDrawnChar > 0 {
			s.DisplayCharacter(s.lastDrawnChar)
		}
	}
}

// DeleteLines removes n lines at the cursor, scrolling the region below
// up.
func (s *Screen) DeleteLines(n int) {
	if n == 0 {
		n = 1
	}
	s.scrollUp(s.cuY, n)
}

// InsertLines inserts n blank lines at the cursor, scrolling the region
// below down.
func (s *Screen) InsertLines(n int) {
	if n == 0 {
		n = 1
	}
	s.scrollDown(s.cuY, n)
}

// Index moves the cursor down one line, scrolling the region up when it
// sits on the bottom margin. This is the one path that appends to
// history during normal output.
func (s *Screen) Index() {
	if s.cuY == s.marginBottom {
		s.ScrollUpRegion(1)
	} else if s.cuY < s.lines-1 {
		s.cuY++
	}
}

// ReverseIndex moves the cursor up one line, scrolling the region down
// when it sits on the top margin.
func (s *Screen) ReverseIndex() {
	if s.cuY == s.marginTop {
		s.scrollDown(s.marginTop, 1)
	} else if s.cuY > 0 {
		s.cuY--
	}
}

// NextLine moves the cursor to the start of the next line, scrolling if
// needed.
func (s *Screen) NextLine() {
	s.ToStartOfLine()
	s.Index()
}

// NewLine performs a line feed, returning to the first column when
// newline mode is set.
func (s *Screen) NewLine() {
	if s.GetMode(ModeNewLine) {
		s.ToStartOfLine()
	}
	s.Index()
}

// ScrollUpRegion scrolls the scrolling region up n lines. When the region
// starts at the top of the screen the departing row is pushed into
// history first.
func (s *Screen) ScrollUpRegion(n int) {
	if n == 0 {
		n = 1
	}
	if s.marginTop == 0 {
		s.addHistLine()
	}
	s.scrollUp(s.marginTop, n)
}

// ScrollDownRegion scrolls the scrolling region down n lines.
func (s *Screen) ScrollDownRegion(n int) {
	if n == 0 {
		n = 1
	}
	s.scrollDown(s.marginTop, n)
}

// --- Image extraction ---

// GetImage returns a freshly-owned snapshot of the merged
// history + screen rows [startLine, endLine], with selection reverse and
// the cursor marker applied as overlays. It never aliases live storage.
func (s *Screen) GetImage(startLine, endLine int) []Character {
	histLines := s.history.GetLines()
	if startLine < 0 {
		startLine = 0
	}
	if endLine < startLine {
		endLine = startLine
	}
	if endLine >= histLines+s.lines {
		endLine = histLines + s.lines - 1
	}

	mergedLines := endLine - startLine + 1
	dest := make([]Character, mergedLines*s.columns)
	for i := range dest {
		dest[i] = DefaultChar
	}

	linesInHistory := max(0, min(histLines-startLine, mergedLines))
	linesInScreen := mergedLines - linesInHistory

	if linesInHistory > 0 {
		s.copyFromHistory(dest, startLine, linesInHistory)
	}
	if linesInScreen > 0 {
		screenStart := startLine + linesInHistory - histLines
		s.copyFromScreen(dest[linesInHistory*s.columns:], screenStart, linesInScreen)
	}

	if s.GetMode(ModeScreen) {
		for i := range dest {
			reverseRendition(&dest[i])
		}
	}

	cursorIndex := loc(s.cuX, s.cuY+linesInHistory-max(0, startLine-histLines), s.columns)
	if s.GetMode(ModeCursor) && cursorIndex >= 0 && cursorIndex < len(dest) {
		dest[cursorIndex].Rendition |= ReCursor
	}
	return dest
}

func (s *Screen) copyFromHistory(dest []Character, startLine, count int) {
	for line := startLine; line < startLine+count; line++ {
		length := min(s.columns, s.history.GetLineLen(line))
		destLineOffset := (line - startLine) * s.columns

		if length > 0 {
			copy(dest[destLineOffset:destLineOffset+length],
				s.history.GetCells(line, 0, length))
		}
		for column := length; column < s.columns; column++ {
			dest[destLineOffset+column] = DefaultChar
		}

		if s.selBegin != -1 {
			for column := 0; column < s.columns; column++ {
				if s.IsSelected(column, line) {
					reverseRendition(&dest[destLineOffset+column])
				}
			}
		}
	}
}

func (s *Screen) copyFromScreen(dest []Character, startLine, count int) {
	histLines := s.history.GetLines()
	for line := startLine; line < startLine+count; line++ {
		destLineStart := (line - startLine) * s.columns
		for column := 0; column < s.columns; column++ {
			destIndex := destLineStart + column
			if line < len(s.screenLines) && column < len(s.screenLines[line]) {
				dest[destIndex] = s.screenLines[line][column]
			} else {
				dest[destIndex] = DefaultChar
			}
			if s.selBegin != -1 && s.IsSelected(column, line+histLines) {
				reverseRendition(&dest[destIndex])
			}
		}
	}
}

func reverseRendition(c *Character) {
	c.Foreground, c.Background = c.Background, c.Foreground
}

// GetLineProperties returns the per-line flags for the merged
// history + screen rows [startLine, endLine].
func (s *Screen) GetLineProperties(startLine, endLine int) []LineProperty {
	histLines := s.history.GetLines()
	if startLine < 0 {
		startLine = 0
	}
	if endLine < startLine {
		endLine = startLine
	}
	if endLine >= histLines+s.lines {
		endLine = histLines + s.lines - 1
	}

	mergedLines := endLine - startLine + 1
	linesInHistory := max(0, min(histLines-startLine, mergedLines))
	linesInScreen := mergedLines - linesInHistory

	result := make([]LineProperty, mergedLines)
	index := 0
	for line := startLine; line < startLine+linesInHistory; line++ {
		if s.history.IsWrappedLine(line) {
			result[index] |= LineWrapped
		}
		index++
	}
	firstScreenLine := startLine + linesInHistory - histLines
	for line := firstScreenLine; line < firstScreenLine+linesInScreen; line++ {
		if line >= 0 && line < len(s.lineProperties) {
			result[index] = s.lineProperties[line]
		}
		index++
	}
	return result
}

// SetLineProperty sets or clears a flag on the cursor's line.
func (s *Screen) SetLineProperty(property LineProperty, enable bool) {
	if enable {
		s.lineProperties[s.cuY] |= property
	} else {
		s.lineProperties[s.cuY] &^= property
	}
}

// --- Resizing ---

// ResizeImage changes the screen size. Rows that would fall off the
// bottom are pushed into history, every row is padded or truncated to the
// new width, margins reset to the full screen and the cursor is clamped.
func (s *Screen) ResizeImage(newLines, newColumns int) {
	if newLines == s.lines && newColumns == s.columns {
		return
	}

	if s.cuY > newLines-1 {
		s.marginBottom = s.lines - 1
		for i := 0; i < s.cuY-(newLines-1); i++ {
			s.addHistLine()
			s.scrollUp(0, 1)
		}
	}

	newScreenLines := make([][]Character, newLines+1)
	for i := 0; i <= newLines; i++ {
		if i < len(s.screenLines) {
			row := make([]Character, len(s.screenLines[i]))
			copy(row, s.screenLines[i])
			if len(row) > newColumns {
				row = row[:newColumns]
			}
			newScreenLines[i] = row
		}
	}

	newLineProperties := make([]LineProperty, newLines+1)
	for i := 0; i <= newLines; i++ {
		if i < len(s.lineProperties) {
			newLineProperties[i] = s.lineProperties[i]
		}
	}

	s.ClearSelection()

	s.screenLines = newScreenLines
	s.lineProperties = newLineProperties
	s.lines = newLines
	s.columns = newColumns
	s.cuX = min(s.cuX, s.columns-1)
	s.cuY = min(s.cuY, s.lines-1)

	s.marginTop = 0
	s.marginBottom = s.lines - 1
	s.initTabStops()
}

// --- Text extraction ---

// SelectedText returns the selection as plain text. With
// preserveLineBreaks unset, hard line breaks become spaces.
func (s *Screen) SelectedText(preserveLineBreaks bool) string {
	if !s.IsSelectionValid() {
		return ""
	}
	var b strings.Builder
	dec := NewPlainTextDecoder()
	dec.Begin(&b)
	s.WriteSelectionToStream(dec, preserveLineBreaks)
	dec.End()
	return b.String()
}

// WriteSelectionToStream decodes the selected cells into dec.
func (s *Screen) WriteSelectionToStream(dec Decoder, preserveLineBreaks bool) {
	if !s.IsSelectionValid() {
		return
	}
	s.WriteToStream(dec, s.selTopLeft, s.selBottomRight, preserveLineBreaks)
}

// WriteToStream decodes the linear range [startIndex, endIndex] of the
// combined history + screen address space into dec.
func (s *Screen) WriteToStream(dec Decoder, startIndex, endIndex int, preserveLineBreaks bool) {
	top := startIndex / s.columns
	left := startIndex % s.columns
	bottom := endIndex / s.columns
	right := endIndex % s.columns

	if top < 0 || left < 0 || bottom < 0 || right < 0 {
		return
	}

	for y := top; y <= bottom; y++ {
		start := 0
		if y == top || s.blockSelectionMode {
			start = left
		}
		count := -1
		if y == bottom || s.blockSelectionMode {
			count = right - start + 1
		}

		appendNewLine := y != bottom
		copied := s.copyLineToStream(y, start, count, dec, appendNewLine, preserveLineBreaks)

		// Selection extending past the end of the last line means the
		// user selected the break itself.
		if y == bottom && copied < count {
			dec.DecodeLine([]Character{{Rune: '\n'}}, LineDefault)
		}
	}
}

// WriteLinesToStream decodes whole lines [fromLine, toLine] of the
// combined address space into dec.
func (s *Screen) WriteLinesToStream(dec Decoder, fromLine, toLine int) {
	s.WriteToStream(dec, loc(0, fromLine, s.columns),
		loc(s.columns-1, toLine, s.columns), true)
}

func (s *Screen) copyLineToStream(line, start, count int, dec Decoder,
	appendNewLine, preserveLineBreaks bool) int {

	currentLineProperties := LineDefault
	var buffer []Character

	histLines := s.history.GetLines()
	if line < histLines {
		lineLength := s.history.GetLineLen(line)
		start = min(start, max(0, lineLength-1))
		if count == -1 {
			count = lineLength - start
		} else {
			count = min(start+count, lineLength) - start
		}
		if count < 0 {
			count = 0
		}
		if count > 0 {
			buffer = s.history.GetCells(line, start, count)
		}
		if s.history.IsWrappedLine(line) {
			currentLineProperties |= LineWrapped
		}
	} else {
		if count == -1 {
			count = s.columns - start
		}
		screenLine := line - histLines
		if screenLine < len(s.screenLines) {
			lineData := s.screenLines[screenLine]
			length := len(lineData)
			for i := start; i < min(start+count, length); i++ {
				buffer = append(buffer, lineData[i])
			}
			count = max(0, min(count, length-start))
			if screenLine < len(s.lineProperties) {
				currentLineProperties |= s.lineProperties[screenLine]
			}
		} else {
			count = 0
		}
	}

	omitLineBreak := currentLineProperties&LineWrapped != 0 || !preserveLineBreaks
	if !omitLineBreak && appendNewLine {
		buffer = append(buffer, Character{Rune: '\n'})
		count++
	}

	dec.DecodeLine(buffer, currentLineProperties)
	return count
}

// collectUsedExtendedChars records the interning keys referenced by live
// cells, for the extended-char table's eviction sweep.
func (s *Screen) collectUsedExtendedChars(used map[uint16]bool) {
	for i := 0; i < s.lines && i < len(s.screenLines); i++ {
		line := s.screenLines[i]
		for j := 0; j < len(line) && j < s.columns; j++ {
			if line[j].Rendition&ReExtendedChar != 0 {
				used[uint16(line[j].Rune)] = true
			}
		}
	}
}
