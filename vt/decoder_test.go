// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: vt/decoder_test.go
// Summary: Plain-text and HTML decoder tests.

package vt

import (
	"strings"
	"testing"
)

func decodePlain(cells []Character, properties LineProperty) string {
	var b strings.Builder
	dec := NewPlainTextDecoder()
	dec.Begin(&b)
	dec.DecodeLine(cells, properties)
	dec.End()
	return b.String()
}

func TestPlainTextTrimsTrailingBlanks(t *testing.T) {
	if got := decodePlain(lineOfText("hi   "), LineDefault); got != "hi" {
		t.Errorf("decoded = %q, want \"hi\"", got)
	}
	// Wrapped lines keep their padding: the next row continues them.
	if got := decodePlain(lineOfText("hi   "), LineWrapped); got != "hi   " {
		t.Errorf("wrapped decoded = %q, want \"hi   \"", got)
	}
}

func TestPlainTextKeepsNewlineCells(t *testing.T) {
	// Line-break cells emitted between decoded lines are content, only
	// literal space padding is trimmed.
	if got := decodePlain([]Character{{Rune: '\n'}}, LineDefault); got != "\n" {
		t.Errorf("decoded = %q, want \"\\n\"", got)
	}
	cells := append(lineOfText("end  "), Character{Rune: '\n'})
	if got := decodePlain(cells, LineDefault); got != "end  \n" {
		t.Errorf("decoded = %q, want \"end  \\n\"", got)
	}
}

func TestPlainTextSkipsContinuationCells(t *testing.T) {
	cells := []Character{
		{Rune: '中'},
		{Rune: 0},
		{Rune: '!'},
	}
	if got := decodePlain(cells, LineDefault); got != "中!" {
		t.Errorf("decoded = %q, want \"中!\"", got)
	}
}

func TestPlainTextResolvesExtendedChars(t *testing.T) {
	table := NewExtendedCharTable()
	key := table.CreateExtendedChar([]rune{'a', 0x0308})

	var b strings.Builder
	dec := NewPlainTextDecoder()
	dec.SetExtendedCharTable(table)
	dec.Begin(&b)
	dec.DecodeLine([]Character{
		{Rune: rune(key), Rendition: ReExtendedChar},
		{Rune: '!'},
	}, LineDefault)
	dec.End()

	if got := b.String(); got != "ä!" {
		t.Errorf("decoded = %q", got)
	}
}

func TestPlainTextLinePositions(t *testing.T) {
	var b strings.Builder
	dec := NewPlainTextDecoder()
	dec.SetRecordLinePositions(true)
	dec.Begin(&b)
	dec.DecodeLine(lineOfText("abc"), LineDefault)
	dec.DecodeLine(lineOfText("defgh"), LineDefault)
	dec.DecodeLine(lineOfText(""), LineDefault)
	dec.End()

	want := []int{0, 3, 8}
	got := dec.LinePositions()
	if len(got) != len(want) {
		t.Fatalf("LinePositions() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestHTMLDecoderEscapesAndStyles(t *testing.T) {
	cells := lineOfText("a<b")
	for i := range cells {
		cells[i].Rendition = ReBold
		cells[i].Foreground = NewRGBColor(0xAA, 0x00, 0x00)
	}

	var b strings.Builder
	dec := NewHTMLDecoder(nil)
	dec.Begin(&b)
	dec.DecodeLine(cells, LineDefault)
	dec.End()
	got := b.String()

	if !strings.Contains(got, "font-weight:bold;") {
		t.Error("bold cells should set font-weight")
	}
	if !strings.Contains(got, "color:#aa0000;") {
		t.Errorf("foreground color missing: %q", got)
	}
	if !strings.Contains(got, "a&lt;b") {
		t.Errorf("markup characters should be escaped: %q", got)
	}
	if !strings.Contains(got, "<br>") {
		t.Error("lines should end with <br>")
	}
	if !strings.HasPrefix(got, "<span>") || !strings.HasSuffix(got, "</span>") {
		t.Errorf("output should be wrapped in an outer span: %q", got)
	}
}

func TestHTMLDecoderBatchesUniformRuns(t *testing.T) {
	cells := lineOfText("same style run")

	var b strings.Builder
	dec := NewHTMLDecoder(nil)
	dec.Begin(&b)
	dec.DecodeLine(cells, LineDefault)
	dec.End()

	// One outer span plus a single inner span for the whole run.
	if got := strings.Count(b.String(), "<span"); got != 2 {
		t.Errorf("span count = %d, want 2: %q", got, b.String())
	}
}

func TestHTMLDecoderHardensSpaceRuns(t *testing.T) {
	var b strings.Builder
	dec := NewHTMLDecoder(nil)
	dec.Begin(&b)
	dec.DecodeLine(lineOfText("a  b"), LineWrapped)
	dec.End()

	if !strings.Contains(b.String(), "a &#160;b") {
		t.Errorf("second space of a run should harden: %q", b.String())
	}
}
