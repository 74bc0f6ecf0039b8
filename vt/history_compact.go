// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: vt/history_compact.go
// Summary: Packed scrollback backend: shared block pool plus run-length
// encoded per-line format arrays.

package vt

// Shell output is overwhelmingly long runs of uniformly styled text, so a
// line is stored as its code points plus one format record per style
// change instead of a full Character per cell.

const compactBlockSize = 4096 * 64 // 256KB

// characterFormat is one run of the RLE format array: the style that
// applies from startPos until the next record's startPos.
type characterFormat struct {
	fg        CharacterColor
	bg        CharacterColor
	rendition Rendition
	startPos  int
}

func (f *characterFormat) setFormat(c Character) {
	f.rendition = c.Rendition
	f.fg = c.Foreground
	f.bg = c.Background
}

func (f *characterFormat) equalsFormat(c Character) bool {
	return f.rendition == c.Rendition && f.fg == c.Foreground && f.bg == c.Background
}

// compactBlock is one fixed-size arena. Lines bump-allocate from tail and
// the block is recycled once every allocation on it has been released.
type compactBlock struct {
	used       int
	allocCount int
}

func (b *compactBlock) remaining() int { return compactBlockSize - b.used }

func (b *compactBlock) allocate(size int) bool {
	if b.used+size > compactBlockSize {
		return false
	}
	b.used += size
	b.allocCount++
	return true
}

func (b *compactBlock) deallocate() {
	b.allocCount--
}

// compactBlockList tracks the pool of blocks servicing one scroll.
type compactBlockList struct {
	blocks []*compactBlock
}

// allocate reserves size bytes on the newest block, opening a new block
// when the current one cannot fit the request.
func (l *compactBlockList) allocate(size int) *compactBlock {
	if len(l.blocks) == 0 || l.blocks[len(l.blocks)-1].remaining() < size {
		l.blocks = append(l.blocks, &compactBlock{})
	}
	block := l.blocks[len(l.blocks)-1]
	if !block.allocate(size) {
		return nil
	}
	return block
}

func (l *compactBlockList) deallocate(block *compactBlock) {
	block.deallocate()
	if block.allocCount != 0 {
		return
	}
	for i, b := range l.blocks {
		if b == block {
			l.blocks = append(l.blocks[:i], l.blocks[i+1:]...)
			return
		}
	}
}

func (l *compactBlockList) length() int { return len(l.blocks) }

// compactLine is one stored history line: packed code points plus the RLE
// format array, both accounted against the block pool.
type compactLine struct {
	text    []rune
	formats []characterFormat
	wrapped bool

	textBlock   *compactBlock
	formatBlock *compactBlock
}

const compactFormatSize = 16 // accounting size of one characterFormat

func newCompactLine(cells []Character, pool *compactBlockList) *compactLine {
	line := &compactLine{}
	if len(cells) == 0 {
		return line
	}

	formatLength := 1
	cur := cells[0]
	for k := 1; k < len(cells); k++ {
		if !cells[k].EqualsFormat(cur) {
			formatLength++
			cur = cells[k]
		}
	}

	line.formatBlock = pool.allocate(formatLength * compactFormatSize)
	line.textBlock = pool.allocate(len(cells) * 2)

	line.formats = make([]characterFormat, formatLength)
	line.formats[0].setFormat(cells[0])
	line.formats[0].startPos = 0
	j := 1
	for k := 1; k < len(cells) && j < formatLength; k++ {
		if !line.formats[j-1].equalsFormat(cells[k]) {
			line.formats[j].setFormat(cells[k])
			line.formats[j].startPos = k
			j++
		}
	}

	line.text = make([]rune, len(cells))
	for i, c := range cells {
		line.text[i] = c.Rune
	}
	return line
}

func (l *compactLine) release(pool *compactBlockList) {
	if l.textBlock != nil {
		pool.deallocate(l.textBlock)
		l.textBlock = nil
	}
	if l.formatBlock != nil {
		pool.deallocate(l.formatBlock)
		l.formatBlock = nil
	}
}

func (l *compactLine) length() int { return len(l.text) }

func (l *compactLine) characterAt(index int) Character {
	if index < 0 || index >= len(l.text) {
		return DefaultChar
	}
	pos := 0
	for pos+1 < len(l.formats) && index >= l.formats[pos+1].startPos {
		pos++
	}
	return Character{
		Rune:       l.text[index],
		Rendition:  l.formats[pos].rendition,
		Foreground: l.formats[pos].fg,
		Background: l.formats[pos].bg,
	}
}

// CompactHistoryScroll is the bounded packed backend. It trades per-cell
// retrieval cost for a much smaller footprint on style-stable output.
type CompactHistoryScroll struct {
	histType HistoryType

	lines    []*compactLine
	pool     compactBlockList
	maxLines int
}

// NewCompactHistoryScroll creates a packed scroll capped at maxLines.
func NewCompactHistoryScroll(maxLines int) *CompactHistoryScroll {
	s := &CompactHistoryScroll{histType: CompactHistoryType{Lines: maxLines}}
	s.SetMaxLineCount(maxLines)
	return s
}

func (s *CompactHistoryScroll) HasScroll() bool   { return true }
func (s *CompactHistoryScroll) GetLines() int     { return len(s.lines) }
func (s *CompactHistoryScroll) Type() HistoryType { return s.histType }

// MaxLineCount returns the line cap.
func (s *CompactHistoryScroll) MaxLineCount() int { return s.maxLines }

func (s *CompactHistoryScroll) AddCells(cells []Character) {
	if s.maxLines == 0 {
		return
	}
	line := newCompactLine(cells, &s.pool)
	if len(s.lines) >= s.maxLines && len(s.lines) > 0 {
		s.lines[0].release(&s.pool)
		s.lines = s.lines[1:]
	}
	s.lines = append(s.lines, line)
}

func (s *CompactHistoryScroll) AddLine(previousWrapped bool) {
	if len(s.lines) > 0 {
		s.lines[len(s.lines)-1].wrapped = previousWrapped
	}
}

func (s *CompactHistoryScroll) GetLineLen(lineno int) int {
	if lineno < 0 || lineno >= len(s.lines) {
		return 0
	}
	return s.lines[lineno].length()
}

func (s *CompactHistoryScroll) IsWrappedLine(lineno int) bool {
	if lineno < 0 || lineno >= len(s.lines) {
		return false
	}
	return s.lines[lineno].wrapped
}

func (s *CompactHistoryScroll) GetCells(lineno, colno, count int) []Character {
	if count == 0 {
		return nil
	}
	out := make([]Character, count)
	for i := range out {
		out[i] = DefaultChar
	}
	if lineno < 0 || lineno >= len(s.lines) {
		return out
	}
	line := s.lines[lineno]
	for i := 0; i < count; i++ {
		out[i] = line.characterAt(colno + i)
	}
	return out
}

// SetMaxLineCount adjusts the cap, dropping oldest lines when shrinking.
func (s *CompactHistoryScroll) SetMaxLineCount(lines int) {
	if lines < 0 {
		lines = 0
	}
	s.maxLines = lines
	for len(s.lines) > lines {
		s.lines[0].release(&s.pool)
		s.lines = s.lines[1:]
	}
	s.histType = CompactHistoryType{Lines: lines}
}

// blockCount is exposed for tests to check pool recycling.
func (s *CompactHistoryScroll) blockCount() int { return s.pool.length() }
