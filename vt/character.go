// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: vt/character.go
// Summary: The atomic cell type of the character grid and per-line flags.

package vt

// Rendition is the set of styling flags carried by a cell, independent of
// its colors.
type Rendition uint16

const (
	ReBold Rendition = 1 << iota
	ReBlink
	ReUnderline
	ReReverse
	ReItalic
	// ReCursor is a transient render marker applied by image extraction,
	// never stored in the grid.
	ReCursor
	// ReExtendedChar marks a cell whose Rune field is a key into an
	// ExtendedCharTable instead of a literal code point.
	ReExtendedChar
	ReFaint
	ReStrikeout
	ReConceal
	ReOverline

	DefaultRendition Rendition = 0
)

// String returns a human-readable representation of the rendition flags.
func (r Rendition) String() string {
	if r == 0 {
		return "none"
	}
	names := []struct {
		bit  Rendition
		name string
	}{
		{ReBold, "bold"},
		{ReBlink, "blink"},
		{ReUnderline, "underline"},
		{ReReverse, "reverse"},
		{ReItalic, "italic"},
		{ReCursor, "cursor"},
		{ReExtendedChar, "extended"},
		{ReFaint, "faint"},
		{ReStrikeout, "strikeout"},
		{ReConceal, "conceal"},
		{ReOverline, "overline"},
	}
	out := ""
	for _, n := range names {
		if r&n.bit == 0 {
			continue
		}
		if out != "" {
			out += "|"
		}
		out += n.name
	}
	if out == "" {
		return "unknown"
	}
	return out
}

// LineProperty carries flags that apply to a whole grid row.
type LineProperty uint8

const (
	LineDefault      LineProperty = 0
	LineWrapped      LineProperty = 1 << 0 // logical line continues on the next row
	LineDoubleWidth  LineProperty = 1 << 1
	LineDoubleHeight LineProperty = 1 << 2
)

// Character is a single cell of the terminal image: a code point plus the
// styling needed to draw it. When ReExtendedChar is set, Rune holds an
// interning key for a combining sequence rather than a code point.
type Character struct {
	Rune       rune
	Rendition  Rendition
	Foreground CharacterColor
	Background CharacterColor
}

// DefaultChar is the blank cell used to fill unwritten regions.
var DefaultChar = Character{
	Rune:       ' ',
	Rendition:  DefaultRendition,
	Foreground: NewColor(ColorSpaceDefault, DefaultForeColor),
	Background: NewColor(ColorSpaceDefault, DefaultBackColor),
}

// IsSpace reports whether the cell holds a literal space. Other
// whitespace runes, such as the newline cells that separate lines in a
// decoded stream, count as content.
func (c Character) IsSpace() bool {
	if c.Rendition&ReExtendedChar != 0 {
		return false
	}
	return c.Rune == ' '
}

// IsTransparent reports whether the cell's background lets the display's
// own background show through, per the palette's transparency flags.
func (c Character) IsTransparent(palette *[TableColors]ColorEntry) bool {
	switch c.Background.Space {
	case ColorSpaceDefault:
		return palette[c.Background.u&1].Transparent
	case ColorSpaceSystem:
		return palette[(c.Background.u&7)+2].Transparent
	}
	return false
}

// FontWeight returns the weight the palette forces for this cell's
// foreground, or WeightUseCurrentFormat when the rendition decides.
func (c Character) FontWeight(palette *[TableColors]ColorEntry) FontWeight {
	switch c.Foreground.Space {
	case ColorSpaceDefault:
		return palette[c.Foreground.u&1].Weight
	case ColorSpaceSystem:
		return palette[(c.Foreground.u&7)+2].Weight
	}
	return WeightUseCurrentFormat
}

// EqualsFormat reports whether two cells share rendition and colors, which
// lets decoders and renderers batch runs of uniformly styled text.
func (c Character) EqualsFormat(other Character) bool {
	return c.Rendition == other.Rendition &&
		c.Foreground == other.Foreground &&
		c.Background == other.Background
}
