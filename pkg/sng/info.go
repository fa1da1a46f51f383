package sng

// Color-type mask bits, as in the PNG IHDR color type field.
const (
	ColorMaskPalette = 0x01
	ColorMaskColor   = 0x02
	ColorMaskAlpha   = 0x04
)

// Interlace schemes.
const (
	InterlaceNone  = 0
	InterlaceAdam7 = 1
)

// Valid bitmask flags recording which optional properties were set.
const (
	ValidGAMA = 1 << iota
	ValidCHRM
	ValidSRGB
)

// RGB is one palette entry.
type RGB struct {
	R, G, B uint8
}

// Chromaticity holds the eight cHRM floats.
type Chromaticity struct {
	WhiteX, WhiteY float64
	RedX, RedY     float64
	GreenX, GreenY float64
	BlueX, BlueY   float64
}

// Info is the image description accumulated while chunks are compiled
// and consumed once by the emission backend. One instance per compile.
type Info struct {
	Width     uint32
	Height    uint32
	BitDepth  uint8
	ColorType uint8
	Interlace uint8

	Gamma           float64
	RenderingIntent uint8
	Chroma          Chromaticity

	Palette []RGB

	Valid uint32
}

// NewInfo returns an image description with the IHDR defaults applied.
func NewInfo() *Info {
	return &Info{BitDepth: 8}
}

// SampleSize returns the per-pixel sample size in bits for the current
// color type. Palette images use 8: one index byte per pixel.
func (info *Info) SampleSize() int {
	if info.ColorType&ColorMaskPalette != 0 {
		return 8
	}
	switch info.ColorType {
	case ColorMaskColor:
		return int(info.BitDepth) * 3
	case ColorMaskColor | ColorMaskAlpha:
		return int(info.BitDepth) * 4
	case ColorMaskAlpha:
		return int(info.BitDepth) * 2
	}
	return int(info.BitDepth)
}

// PixelBytes returns the number of bytes one pixel occupies in a decoded
// data segment. Samples narrower than a byte are supplied one per byte
// and packed by the emission backend.
func (info *Info) PixelBytes() int {
	n := info.SampleSize() / 8
	if n < 1 {
		n = 1
	}
	return n
}
