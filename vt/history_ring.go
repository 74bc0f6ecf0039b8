package vt

// HistoryScrollBuffer is the bounded in-memory backend: a pre-sized
// circular array of line slots. Once the ring is full each append
// overwrites the oldest slot, and logical line numbers are remapped onto
// physical slots through bufferIndex.
type HistoryScrollBuffer struct {
	histType HistoryType

	buffer   [][]Character
	wrapped  []bool
	maxLines int
	used     int
	head     int
}

// NewHistoryScrollBuffer creates a ring holding at most maxLines lines.
func NewHistoryScrollBuffer(maxLines int) *HistoryScrollBuffer {
	s := &HistoryScrollBuffer{histType: HistoryTypeBuffer{Lines: maxLines}}
	s.SetMaxLineCount(maxLines)
	return s
}

func (s *HistoryScrollBuffer) HasScroll() bool   { return true }
func (s *HistoryScrollBuffer) GetLines() int     { return s.used }
func (s *HistoryScrollBuffer) Type() HistoryType { return s.histType }

// MaxLineCount returns the ring's capacity.
func (s *HistoryScrollBuffer) MaxLineCount() int { return s.maxLines }

func (s *HistoryScrollBuffer) AddCells(cells []Character) {
	if s.maxLines == 0 {
		return
	}
	line := make([]Character, len(cells))
	copy(line, cells)
	s.buffer[s.head] = line
	s.wrapped[s.head] = false
	s.head = (s.head + 1) % s.maxLines
	if s.used < s.maxLines {
		s.used++
	}
}

func (s *HistoryScrollBuffer) AddLine(previousWrapped bool) {
	if s.used == 0 {
		return
	}
	s.wrapped[s.bufferIndex(s.used-1)] = previousWrapped
}

func (s *HistoryScrollBuffer) GetLineLen(lineno int) int {
	if lineno < 0 || lineno >= s.used {
		return 0
	}
	return len(s.buffer[s.bufferIndex(lineno)])
}

func (s *HistoryScrollBuffer) IsWrappedLine(lineno int) bool {
	if lineno < 0 || lineno >= s.used {
		return false
	}
	return s.wrapped[s.bufferIndex(lineno)]
}

func (s *HistoryScrollBuffer) GetCells(lineno, colno, count int) []Character {
	if count == 0 {
		return nil
	}
	out := make([]Character, count)
	for i := range out {
		out[i] = DefaultChar
	}
	if lineno < 0 || lineno >= s.used {
		return out
	}
	line := s.buffer[s.bufferIndex(lineno)]
	for i := 0; i < count; i++ {
		if col := colno + i; col >= 0 && col < len(line) {
			out[i] = line[col]
		}
	}
	return out
}

// SetMaxLineCount resizes the ring. Shrinking keeps the newest lines;
// growing preserves everything and leaves the new slots empty. Surviving
// lines keep their relative order.
func (s *HistoryScrollBuffer) SetMaxLineCount(lines int) {
	if lines < 0 {
		lines = 0
	}
	newBuffer := make([][]Character, lines)
	newWrapped := make([]bool, lines)

	keep := s.used
	if keep > lines {
		keep = lines
	}
	// Newest lines win when shrinking.
	first := s.used - keep
	for i := 0; i < keep; i++ {
		idx := s.bufferIndex(first + i)
		newBuffer[i] = s.buffer[idx]
		newWrapped[i] = s.wrapped[idx]
	}

	s.used = keep
	s.maxLines = lines
	if s.used == s.maxLines {
		s.head = 0
	} else {
		s.head = s.used
	}
	s.buffer = newBuffer
	s.wrapped = newWrapped
	s.histType = HistoryTypeBuffer{Lines: lines}
}

// bufferIndex maps a logical line number (0 = oldest retained) onto its
// physical slot. While the ring is filling the mapping is the identity;
// once full the oldest line sits at head, the next slot to be
// overwritten.
func (s *HistoryScrollBuffer) bufferIndex(lineno int) int {
	if s.used == s.maxLines && s.maxLines > 0 {
		return (s.head + lineno) % s.maxLines
	}
	return lineno
}
