// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: vt/history_search.go
// Summary: Regular-expression search across scrollback plus the live
// screen, processed in bounded chunks.

package vt

import (
	"context"
	"regexp"
	"strings"
)

// searchChunkLines bounds the lines decoded per iteration, so a caller
// can interleave other work (or cancel) between chunks.
const searchChunkLines = 10000

// SearchMatch is the location of a match in the combined
// history + screen address space, inclusive on both ends.
type SearchMatch struct {
	StartColumn, StartLine int
	EndColumn, EndLine     int
}

// HistorySearch scans an emulation's output history for a compiled
// regular expression, forward or backward, wrapping around the start
// position.
type HistorySearch struct {
	emulation *Emulation
	re        *regexp.Regexp
	forwards  bool

	startColumn int
	startLine   int

	found SearchMatch
}

// NewHistorySearch prepares a search over emulation starting at
// (startColumn, startLine).
func NewHistorySearch(emulation *Emulation, re *regexp.Regexp, forwards bool,
	startColumn, startLine int) *HistorySearch {
	return &HistorySearch{
		emulation:   emulation,
		re:          re,
		forwards:    forwards,
		startColumn: startColumn,
		startLine:   startLine,
	}
}

// Search runs the scan to completion, checking ctx between chunks. It
// returns the first match in search order, or ok=false when the pattern
// does not occur (or the context was cancelled).
func (s *HistorySearch) Search(ctx context.Context) (match SearchMatch, ok bool) {
	if s.re == nil || s.re.String() == "" {
		return SearchMatch{}, false
	}

	lineCount := s.emulation.LineCount()
	var found bool
	if s.forwards {
		found = s.searchRange(ctx, s.startColumn, s.startLine, -1, lineCount) ||
			s.searchRange(ctx, 0, 0, s.startColumn, s.startLine)
	} else {
		found = s.searchRange(ctx, 0, 0, s.startColumn, s.startLine) ||
			s.searchRange(ctx, s.startColumn, s.startLine, -1, lineCount)
	}
	if !found {
		return SearchMatch{}, false
	}
	return s.found, true
}

// searchRange scans lines [startLine, endLine], bounded on the last line
// by endColumn (-1 meaning end of line), in chunks of searchChunkLines.
func (s *HistorySearch) searchRange(ctx context.Context, startColumn, startLine, endColumn, endLine int) bool {
	linesRead := 0
	linesToRead := endLine - startLine + 1

	for {
		if ctx != nil && ctx.Err() != nil {
			return false
		}
		blockSize := min(searchChunkLines, linesToRead-linesRead)
		if blockSize <= 0 {
			return false
		}

		var buf strings.Builder
		dec := NewPlainTextDecoder()
		dec.SetExtendedCharTable(s.emulation.ExtendedChars())
		dec.SetRecordLinePositions(true)
		dec.Begin(&buf)

		blockStartLine := startLine + linesRead
		if !s.forwards {
			blockStartLine = endLine - linesRead - blockSize + 1
		}
		chunkEndLine := blockStartLine + blockSize - 1

		s.emulation.WriteToStream(dec, blockStartLine, chunkEndLine)
		dec.End()

		text := buf.String()
		linePositions := dec.LinePositions()

		// The last recorded position starts a trailing empty line.
		numberOfLines := len(linePositions) - 1
		endPosition := len(text)
		if numberOfLines > 0 && endColumn > -1 {
			endPosition = linePositions[numberOfLines-1] + endColumn
		}

		matchStart, matchEnd := -1, -1
		if s.forwards {
			if loc := s.re.FindStringIndex(text[min(startColumn, len(text)):]); loc != nil {
				matchStart = loc[0] + min(startColumn, len(text))
				matchEnd = matchStart + (loc[1] - loc[0])
				if matchStart >= endPosition {
					matchStart = -1
				}
			}
		} else {
			// Keep the last match that starts inside the valid span.
			for _, loc := range s.re.FindAllStringIndex(text, -1) {
				if loc[0] >= startColumn && loc[0] < endPosition {
					matchStart = loc[0]
					matchEnd = loc[1]
				}
			}
		}

		if matchStart > -1 {
			last := matchEnd - 1

			startLineInString := findLineNumberInString(linePositions, matchStart)
			s.found.StartColumn = matchStart - linePositions[startLineInString]
			s.found.StartLine = startLineInString + blockStartLine

			endLineInString := findLineNumberInString(linePositions, last)
			s.found.EndColumn = last - linePositions[endLineInString]
			s.found.EndLine = endLineInString + blockStartLine
			return true
		}

		linesRead += blockSize
	}
}

func findLineNumberInString(linePositions []int, position int) int {
	lineNum := 0
	for lineNum+1 < len(linePositions) && linePositions[lineNum+1] <= position {
		lineNum++
	}
	return lineNum
}
