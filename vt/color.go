// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: vt/color.go
// Summary: Color-space union for terminal cell colors and palette resolution.
// Usage: Consumed by the screen model and the character decoders.

package vt

// ColorSpace identifies how a CharacterColor's payload bytes are interpreted.
type ColorSpace uint8

const (
	ColorSpaceUndefined ColorSpace = iota
	ColorSpaceDefault              // default foreground/background slot + intense bit
	ColorSpaceSystem               // one of the 8 system colors + intense bit
	ColorSpace256                  // index into the xterm 256-color ramp
	ColorSpaceRGB                  // raw 8-bit channels
)

// Palette layout: two default slots, eight normal system colors, then the
// same ten again in their intense variants.
const (
	BaseColors  = 10
	TableColors = 2 * BaseColors

	DefaultForeColor = 0
	DefaultBackColor = 1
)

// RGB is a resolved 24-bit color value.
type RGB struct {
	R, G, B uint8
}

// FontWeight lets a palette entry force bold or normal rendering
// independently of the cell's rendition flags.
type FontWeight int

const (
	WeightUseCurrentFormat FontWeight = iota
	WeightNormal
	WeightBold
)

// ColorEntry is one slot of a display palette.
type ColorEntry struct {
	Color       RGB
	Transparent bool // when used as a background, let the display show through
	Weight      FontWeight
}

// color256 resolves an index on the fixed xterm ramp: 0-7 system, 8-15
// intense system, 16-231 the 6x6x6 color cube, 232-255 grayscale.
func color256(u uint8, base *[TableColors]ColorEntry) RGB {
	if u < 8 {
		return base[u+2].Color
	}
	u -= 8
	if u < 8 {
		return base[int(u)+2+BaseColors].Color
	}
	u -= 8

	if u < 216 {
		cube := func(c uint8) uint8 {
			if c == 0 {
				return 0
			}
			return 40*c + 55
		}
		return RGB{cube((u / 36) % 6), cube((u / 6) % 6), cube(u % 6)}
	}
	u -= 216

	gray := u*10 + 8
	return RGB{gray, gray, gray}
}

// CharacterColor describes the color of a single cell. It is a tagged
// union: the meaning of u, v and w depends on Space.
//
//	Space      u          v        w
//	Undefined  0          0        0
//	Default    0..1       intense  0
//	System     0..7       intense  0
//	Index256   0..255     0        0
//	RGB        red        green    blue
type CharacterColor struct {
	Space   ColorSpace
	u, v, w uint8
}

// NewColor builds a CharacterColor from a color space and a packed value.
// For Default the low bit selects fore/back, for System the low three bits
// select the color and bit 3 the intense variant, for Index256 the low byte
// is the ramp index, and for RGB the value is 0xRRGGBB.
func NewColor(space ColorSpace, co int) CharacterColor {
	c := CharacterColor{Space: space}
	switch space {
	case ColorSpaceUndefined:
	case ColorSpaceDefault:
		c.u = uint8(co & 1)
	case ColorSpaceSystem:
		c.u = uint8(co & 7)
		c.v = uint8((co >> 3) & 1)
	case ColorSpace256:
		c.u = uint8(co & 255)
	case ColorSpaceRGB:
		c.u = uint8((co >> 16) & 255)
		c.v = uint8((co >> 8) & 255)
		c.w = uint8(co & 255)
	default:
		c.Space = ColorSpaceUndefined
	}
	return c
}

// NewRGBColor builds an RGB-space color from individual channels.
func NewRGBColor(r, g, b uint8) CharacterColor {
	return CharacterColor{Space: ColorSpaceRGB, u: r, v: g, w: b}
}

// IsValid reports whether the color has a defined color space.
func (c CharacterColor) IsValid() bool {
	return c.Space != ColorSpaceUndefined
}

// SetIntensive promotes a Default- or System-space color to its intense
// variant. Other spaces are unaffected.
func (c *CharacterColor) SetIntensive() {
	if c.Space == ColorSpaceSystem || c.Space == ColorSpaceDefault {
		c.v = 1
	}
}

// Resolve returns the concrete RGB value of this color against the given
// palette. The palette only matters for the Default and System spaces;
// Index256 and RGB resolve on their own. An Undefined color resolves to
// black.
func (c CharacterColor) Resolve(palette *[TableColors]ColorEntry) RGB {
	switch c.Space {
	case ColorSpaceDefault:
		if c.v != 0 {
			return palette[int(c.u)+BaseColors].Color
		}
		return palette[c.u].Color
	case ColorSpaceSystem:
		if c.v != 0 {
			return palette[int(c.u)+2+BaseColors].Color
		}
		return palette[c.u+2].Color
	case ColorSpace256:
		return color256(c.u, palette)
	case ColorSpaceRGB:
		return RGB{c.u, c.v, c.w}
	}
	return RGB{}
}

// BaseColorTable is the fallback palette used when no display supplies one.
var BaseColorTable = [TableColors]ColorEntry{
	// default foreground, default background
	{Color: RGB{0x00, 0x00, 0x00}},
	{Color: RGB{0xFF, 0xFF, 0xFF}},
	// system colors
	{Color: RGB{0x00, 0x00, 0x00}},
	{Color: RGB{0xB2, 0x18, 0x18}},
	{Color: RGB{0x18, 0xB2, 0x18}},
	{Color: RGB{0xB2, 0x68, 0x18}},
	{Color: RGB{0x18, 0x18, 0xB2}},
	{Color: RGB{0xB2, 0x18, 0xB2}},
	{Color: RGB{0x18, 0xB2, 0xB2}},
	{Color: RGB{0xB2, 0xB2, 0xB2}},
	// intense variants
	{Color: RGB{0x4D, 0x4D, 0x4D}},
	{Color: RGB{0xFF, 0xFF, 0xFF}},
	{Color: RGB{0x4D, 0x4D, 0x4D}},
	{Color: RGB{0xFF, 0x65, 0x65}},
	{Color: RGB{0x65, 0xFF, 0x65}},
	{Color: RGB{0xFF, 0xB5, 0x65}},
	{Color: RGB{0x65, 0x65, 0xFF}},
	{Color: RGB{0xFF, 0x65, 0xFF}},
	{Color: RGB{0x65, 0xFF, 0xFF}},
	{Color: RGB{0xFF, 0xFF, 0xFF}},
}
