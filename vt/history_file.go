// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: vt/history_file.go
// Summary: Unbounded disk-backed scrollback: three append-only temp-file
// streams (line index, cell records, wrap flags).
// Notes: I/O failures truncate history instead of propagating; terminal
// output must keep flowing even when scrollback breaks.

package vt

import (
	"encoding/binary"
	"io"
	"log"
	"os"
)

// historyFile switches from seek+read to a cached snapshot of the file
// once consecutive reads outnumber writes by this margin. Scrollback
// rendering and history search are read storms over a file that barely
// grows, so amortizing the syscalls there pays for the copy.
const mapThreshold = -1000

// charRecordSize is the fixed on-disk size of one serialized Character:
// rune(4) + rendition(2) + fg(4) + bg(4).
const charRecordSize = 14

func encodeCharacter(dst []byte, c Character) {
	binary.LittleEndian.PutUint32(dst[0:], uint32(c.Rune))
	binary.LittleEndian.PutUint16(dst[4:], uint16(c.Rendition))
	dst[6] = byte(c.Foreground.Space)
	dst[7] = c.Foreground.u
	dst[8] = c.Foreground.v
	dst[9] = c.Foreground.w
	dst[10] = byte(c.Background.Space)
	dst[11] = c.Background.u
	dst[12] = c.Background.v
	dst[13] = c.Background.w
}

func decodeCharacter(src []byte) Character {
	return Character{
		Rune:      rune(binary.LittleEndian.Uint32(src[0:])),
		Rendition: Rendition(binary.LittleEndian.Uint16(src[4:])),
		Foreground: CharacterColor{
			Space: ColorSpace(src[6]), u: src[7], v: src[8], w: src[9],
		},
		Background: CharacterColor{
			Space: ColorSpace(src[10]), u: src[11], v: src[12], w: src[13],
		},
	}
}

// historyFile is a growable append-only byte store over an unlinked temp
// file. Reads either seek+read directly or hit an in-memory snapshot,
// chosen by the read/write balance.
type historyFile struct {
	file   *os.File
	length int

	// negative when reads dominate; crossing mapThreshold snapshots
	// the file into memory until the next write invalidates it
	readWriteBalance int
	snapshot         []byte

	broken bool
}

func newHistoryFile() *historyFile {
	h := &historyFile{}
	f, err := os.CreateTemp("", "termcore-history-")
	if err != nil {
		log.Printf("[vt] cannot open history temp file: %v", err)
		h.broken = true
		return h
	}
	// Unlink immediately so the scratch file disappears with the fd.
	os.Remove(f.Name())
	h.file = f
	return h
}

func (h *historyFile) close() {
	if h.file != nil {
		h.file.Close()
		h.file = nil
	}
	h.snapshot = nil
	h.length = 0
}

func (h *historyFile) isMapped() bool { return h.snapshot != nil }

func (h *historyFile) mapFile() {
	if h.file == nil {
		return
	}
	if _, err := h.file.Seek(0, io.SeekStart); err != nil {
		h.readWriteBalance = 0
		return
	}
	buf := make([]byte, h.length)
	if _, err := io.ReadFull(h.file, buf); err != nil {
		log.Printf("[vt] history snapshot read failed: %v", err)
		h.readWriteBalance = 0
		return
	}
	h.snapshot = buf
}

func (h *historyFile) unmap() { h.snapshot = nil }

func (h *historyFile) add(data []byte) {
	if h.broken || h.file == nil {
		return
	}
	if h.snapshot != nil {
		h.unmap()
	}
	h.readWriteBalance++

	n, err := h.file.WriteAt(data, int64(h.length))
	h.length += n
	if err != nil {
		log.Printf("[vt] history write failed: %v", err)
		h.broken = true
	}
}

func (h *historyFile) get(dst []byte, loc int) bool {
	if loc < 0 || loc+len(dst) > h.length {
		log.Printf("[vt] history read out of range (len=%d loc=%d size=%d)", len(dst), loc, h.length)
		return false
	}

	h.readWriteBalance--
	if h.snapshot == nil && h.readWriteBalance < mapThreshold {
		h.mapFile()
	}

	if h.snapshot != nil {
		copy(dst, h.snapshot[loc:loc+len(dst)])
		return true
	}
	if h.file == nil {
		return false
	}
	if _, err := h.file.ReadAt(dst, int64(loc)); err != nil {
		log.Printf("[vt] history read failed: %v", err)
		return false
	}
	return true
}

func (h *historyFile) len() int { return h.length }

// HistoryScrollFile is the unbounded disk-backed backend. Three parallel
// append-only streams hold a 4-byte offset per line, the serialized cells,
// and one wrap flag byte per line; a line's byte range is the span between
// two adjacent index entries.
type HistoryScrollFile struct {
	histType HistoryType

	index     *historyFile // 4-byte cell-stream offset per line
	cells     *historyFile // charRecordSize bytes per cell
	lineflags *historyFile // 1 byte per line
}

// NewHistoryScrollFile creates a disk-backed scroll over fresh temp files.
func NewHistoryScrollFile() *HistoryScrollFile {
	return &HistoryScrollFile{
		histType:  HistoryTypeFile{},
		index:     newHistoryFile(),
		cells:     newHistoryFile(),
		lineflags: newHistoryFile(),
	}
}

// Close releases the backing temp files.
func (s *HistoryScrollFile) Close() {
	s.index.close()
	s.cells.close()
	s.lineflags.close()
}

func (s *HistoryScrollFile) HasScroll() bool   { return true }
func (s *HistoryScrollFile) Type() HistoryType { return s.histType }

func (s *HistoryScrollFile) GetLines() int {
	return s.index.len() / 4
}

func (s *HistoryScrollFile) GetLineLen(lineno int) int {
	return (s.startOfLine(lineno+1) - s.startOfLine(lineno)) / charRecordSize
}

func (s *HistoryScrollFile) IsWrappedLine(lineno int) bool {
	if lineno < 0 || lineno >= s.GetLines() {
		return false
	}
	var flag [1]byte
	if !s.lineflags.get(flag[:], lineno) {
		return false
	}
	return flag[0] != 0
}

// startOfLine returns the cell-stream offset where lineno begins. Line n
// starts where the index says line n-1 ended; requests past the last line
// land on the current end of the cell stream.
func (s *HistoryScrollFile) startOfLine(lineno int) int {
	if lineno <= 0 {
		return 0
	}
	if lineno <= s.GetLines() {
		if !s.index.isMapped() {
			s.index.mapFile()
		}
		var buf [4]byte
		if s.index.get(buf[:], (lineno-1)*4) {
			return int(binary.LittleEndian.Uint32(buf[:]))
		}
	}
	return s.cells.len()
}

func (s *HistoryScrollFile) GetCells(lineno, colno, count int) []Character {
	if count == 0 {
		return nil
	}
	out := make([]Character, count)
	for i := range out {
		out[i] = DefaultChar
	}
	start := s.startOfLine(lineno) + colno*charRecordSize
	buf := make([]byte, count*charRecordSize)
	if !s.cells.get(buf, start) {
		return out
	}
	for i := 0; i < count; i++ {
		out[i] = decodeCharacter(buf[i*charRecordSize:])
	}
	return out
}

func (s *HistoryScrollFile) AddCells(cells []Character) {
	buf := make([]byte, len(cells)*charRecordSize)
	for i, c := range cells {
		encodeCharacter(buf[i*charRecordSize:], c)
	}
	s.cells.add(buf)
}

func (s *HistoryScrollFile) AddLine(previousWrapped bool) {
	if s.index.isMapped() {
		s.index.unmap()
	}
	var off [4]byte
	binary.LittleEndian.PutUint32(off[:], uint32(s.cells.len()))
	s.index.add(off[:])

	flag := byte(0)
	if previousWrapped {
		flag = 1
	}
	s.lineflags.add([]byte{flag})
}
