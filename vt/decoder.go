// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: vt/decoder.go
// Summary: Decoders turning rows of Character cells back into plain text
// or HTML, used for selection copy, search and export.

package vt

import (
	"fmt"
	"io"
	"strings"

	runewidth "github.com/mattn/go-runewidth"
)

// Decoder consumes lines of terminal cells and writes their decoded form
// to an output stream. A decoder is single-use: Begin, any number of
// DecodeLine calls, End.
type Decoder interface {
	Begin(w io.Writer)
	End()
	DecodeLine(cells []Character, properties LineProperty)
}

// PlainTextDecoder converts cells into plain text, trimming trailing
// whitespace from each line.
type PlainTextDecoder struct {
	output              io.Writer
	extendedChars       *ExtendedCharTable
	recordLinePositions bool
	linePositions       []int
	charsWritten        int
}

// NewPlainTextDecoder returns a plain text decoder without combining
// character support.
func NewPlainTextDecoder() *PlainTextDecoder {
	return &PlainTextDecoder{}
}

// SetExtendedCharTable supplies the table for resolving cells flagged
// with ReExtendedChar.
func (d *PlainTextDecoder) SetExtendedCharTable(t *ExtendedCharTable) {
	d.extendedChars = t
}

// SetRecordLinePositions enables tracking of each line's start offset in
// the decoded output stream.
func (d *PlainTextDecoder) SetRecordLinePositions(record bool) {
	d.recordLinePositions = record
}

// LinePositions returns the recorded start offset of each decoded line.
func (d *PlainTextDecoder) LinePositions() []int { return d.linePositions }

func (d *PlainTextDecoder) Begin(w io.Writer) {
	d.output = w
	d.charsWritten = 0
	d.linePositions = nil
}

func (d *PlainTextDecoder) End() {
	d.output = nil
}

func (d *PlainTextDecoder) DecodeLine(cells []Character, properties LineProperty) {
	if d.output == nil {
		return
	}
	if d.recordLinePositions {
		d.linePositions = append(d.linePositions, d.charsWritten)
	}

	// Trailing blank cells are padding, not content.
	outputCount := len(cells)
	if properties&LineWrapped == 0 {
		for outputCount > 0 && cells[outputCount-1].IsSpace() {
			outputCount--
		}
	}

	var b strings.Builder
	for i := 0; i < outputCount; {
		c := cells[i]
		if c.Rendition&ReExtendedChar != 0 && d.extendedChars != nil {
			if seq := d.extendedChars.LookupExtendedChar(uint16(c.Rune)); seq != nil {
				b.WriteString(string(seq))
			}
			i++
			continue
		}
		if c.Rune != 0 {
			b.WriteRune(c.Rune)
		}
		// A double-width character owns the following continuation cell.
		i += max(1, runewidth.RuneWidth(c.Rune))
	}

	text := b.String()
	io.WriteString(d.output, text)
	d.charsWritten += len([]rune(text))
}

// HTMLDecoder converts cells into HTML spans preserving colors and the
// bold and underline renditions.
type HTMLDecoder struct {
	output  io.Writer
	palette *[TableColors]ColorEntry

	innerSpanOpen  bool
	lastRendition  Rendition
	lastForeground CharacterColor
	lastBackground CharacterColor
}

// NewHTMLDecoder returns an HTML decoder rendering with the given
// palette. A nil palette falls back to the built-in color table.
func NewHTMLDecoder(palette *[TableColors]ColorEntry) *HTMLDecoder {
	if palette == nil {
		palette = &BaseColorTable
	}
	return &HTMLDecoder{palette: palette, lastRendition: DefaultRendition}
}

func (d *HTMLDecoder) Begin(w io.Writer) {
	d.output = w
	io.WriteString(w, "<span>")
}

func (d *HTMLDecoder) End() {
	if d.output == nil {
		return
	}
	d.closeSpan()
	io.WriteString(d.output, "</span>")
	d.output = nil
}

func (d *HTMLDecoder) DecodeLine(cells []Character, properties LineProperty) {
	if d.output == nil {
		return
	}
	var b strings.Builder
	spaceCount := 0

	for i := range cells {
		c := cells[i]

		// Open a new span whenever the format changes.
		if d.innerSpanOpen == false || c.Rendition != d.lastRendition ||
			c.Foreground != d.lastForeground || c.Background != d.lastBackground {

			if d.innerSpanOpen {
				d.closeSpanBuf(&b)
			}
			d.lastRendition = c.Rendition
			d.lastForeground = c.Foreground
			d.lastBackground = c.Background

			var style strings.Builder
			useBold := c.Rendition&ReBold != 0
			if d.palette != nil {
				weight := c.FontWeight(d.palette)
				if weight != WeightUseCurrentFormat {
					useBold = weight == WeightBold
				}
			}
			if useBold {
				style.WriteString("font-weight:bold;")
			}
			if c.Rendition&ReUnderline != 0 {
				style.WriteString("font-decoration:underline;")
			}
			if d.palette != nil {
				fg := c.Foreground.Resolve(d.palette)
				fmt.Fprintf(&style, "color:#%02x%02x%02x;", fg.R, fg.G, fg.B)
				if !c.IsTransparent(d.palette) {
					bg := c.Background.Resolve(d.palette)
					fmt.Fprintf(&style, "background-color:#%02x%02x%02x;", bg.R, bg.G, bg.B)
				}
			}
			fmt.Fprintf(&b, "<span style=\"%s\">", style.String())
			d.innerSpanOpen = true
		}

		if c.Rune == ' ' {
			spaceCount++
		} else {
			spaceCount = 0
		}

		switch {
		case c.Rune == '<':
			b.WriteString("&lt;")
		case c.Rune == '>':
			b.WriteString("&gt;")
		case c.Rune == '&':
			b.WriteString("&amp;")
		case spaceCount > 1:
			// Runs of spaces collapse in HTML; keep them hard.
			b.WriteString("&#160;")
		case c.Rune != 0:
			b.WriteRune(c.Rune)
		}
	}

	b.WriteString("<br>")
	io.WriteString(d.output, b.String())
}

func (d *HTMLDecoder) closeSpan() {
	if d.innerSpanOpen {
		io.WriteString(d.output, "</span>")
		d.innerSpanOpen = false
	}
}

func (d *HTMLDecoder) closeSpanBuf(b *strings.Builder) {
	if d.innerSpanOpen {
		b.WriteString("</span>")
		d.innerSpanOpen = false
	}
}
