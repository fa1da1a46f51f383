package png

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	stdpng "image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/sng.go/pkg/sng"
)

func grayInfo(w, h uint32, depth uint8) *sng.Info {
	info := sng.NewInfo()
	info.Width = w
	info.Height = h
	info.BitDepth = depth
	return info
}

func TestSignature(t *testing.T) {
	var buf bytes.Buffer
	e := NewWriter(&buf)
	require.NoError(t, e.WriteInfo(grayInfo(1, 1, 8)))
	assert.Equal(t, Signature, buf.Bytes()[:8])
}

func TestChunkFraming(t *testing.T) {
	var buf bytes.Buffer
	e := NewWriter(&buf)
	payload := []byte{1, 2, 3}
	require.NoError(t, e.WriteChunk("IDAT", payload))

	raw := buf.Bytes()
	require.Len(t, raw, 4+4+3+4)
	assert.Equal(t, uint32(3), binary.BigEndian.Uint32(raw[0:4]))
	assert.Equal(t, "IDAT", string(raw[4:8]))
	assert.Equal(t, payload, raw[8:11])

	wantCRC := crc32.ChecksumIEEE(append([]byte("IDAT"), payload...))
	assert.Equal(t, wantCRC, binary.BigEndian.Uint32(raw[11:15]))

	assert.Equal(t, int64(len(raw)), e.Bytes())
}

func TestChunkTypeLength(t *testing.T) {
	e := NewWriter(&bytes.Buffer{})
	err := e.WriteChunk("bad", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "four characters")
}

func TestHeaderLegality(t *testing.T) {
	tests := []struct {
		name      string
		colorType uint8
		depth     uint8
		width     uint32
		ok        bool
	}{
		{"gray 1", 0, 1, 1, true},
		{"gray 16", 0, 16, 1, true},
		{"truecolor 8", 2, 8, 1, true},
		{"truecolor 4", 2, 4, 1, false},
		{"palette 16", 3, 16, 1, false},
		{"gray 3", 0, 3, 1, false},
		{"palette without color bit", 1, 8, 1, false},
		{"zero width", 0, 8, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := grayInfo(tt.width, 1, tt.depth)
			info.ColorType = tt.colorType
			err := NewWriter(&bytes.Buffer{}).WriteInfo(info)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRoundTripGray8(t *testing.T) {
	var buf bytes.Buffer
	e := NewWriter(&buf)
	info := grayInfo(2, 2, 8)
	require.NoError(t, e.WriteInfo(info))
	require.NoError(t, e.WriteImage([][]byte{
		{0x00, 0x55},
		{0xAA, 0xFF},
	}))
	require.NoError(t, e.WriteEnd())

	img, err := stdpng.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())

	want := [][]uint8{{0x00, 0x55}, {0xAA, 0xFF}}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			assert.Equal(t, want[y][x], g.Y, "pixel %d,%d", x, y)
		}
	}
}

func TestRoundTripGray1Packing(t *testing.T) {
	var buf bytes.Buffer
	e := NewWriter(&buf)
	info := grayInfo(8, 1, 1)
	require.NoError(t, e.WriteInfo(info))
	// one sample per byte in; packed to single bits on the wire
	require.NoError(t, e.WriteImage([][]byte{{1, 0, 1, 0, 1, 0, 1, 0}}))
	require.NoError(t, e.WriteEnd())

	img, err := stdpng.Decode(&buf)
	require.NoError(t, err)
	for x := 0; x < 8; x++ {
		g := color.GrayModel.Convert(img.At(x, 0)).(color.Gray)
		if x%2 == 0 {
			assert.Equal(t, uint8(0xFF), g.Y, "pixel %d", x)
		} else {
			assert.Equal(t, uint8(0x00), g.Y, "pixel %d", x)
		}
	}
}

func TestRoundTripPalette(t *testing.T) {
	var buf bytes.Buffer
	e := NewWriter(&buf)
	info := grayInfo(2, 1, 8)
	info.ColorType = sng.ColorMaskPalette | sng.ColorMaskColor
	info.Palette = []sng.RGB{{R: 10, G: 20, B: 30}, {R: 200, G: 100, B: 50}}
	require.NoError(t, e.WriteInfo(info))
	require.NoError(t, e.WriteImage([][]byte{{0, 1}}))
	require.NoError(t, e.WriteEnd())

	img, err := stdpng.Decode(&buf)
	require.NoError(t, err)
	paletted, ok := img.(*image.Paletted)
	require.True(t, ok)
	require.Len(t, paletted.Palette, 2)

	r, g, b, _ := paletted.At(0, 0).RGBA()
	assert.Equal(t, []uint32{10, 20, 30}, []uint32{r >> 8, g >> 8, b >> 8})
	r, g, b, _ = paletted.At(1, 0).RGBA()
	assert.Equal(t, []uint32{200, 100, 50}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestRoundTripTruecolor(t *testing.T) {
	var buf bytes.Buffer
	e := NewWriter(&buf)
	info := grayInfo(2, 1, 8)
	info.ColorType = sng.ColorMaskColor
	require.NoError(t, e.WriteInfo(info))
	require.NoError(t, e.WriteImage([][]byte{{0x00, 0xFF, 0x00, 0xFF, 0x00, 0x00}}))
	require.NoError(t, e.WriteEnd())

	img, err := stdpng.Decode(&buf)
	require.NoError(t, err)
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, []uint32{0x00, 0xFF, 0x00}, []uint32{r >> 8, g >> 8, b >> 8})
	r, g, b, _ = img.At(1, 0).RGBA()
	assert.Equal(t, []uint32{0xFF, 0x00, 0x00}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestAncillaryChunksEmitted(t *testing.T) {
	var buf bytes.Buffer
	e := NewWriter(&buf)
	info := grayInfo(1, 1, 8)
	info.Gamma = 0.45455
	info.Chroma = sng.Chromaticity{WhiteX: 0.3127, WhiteY: 0.3290}
	info.RenderingIntent = 1
	info.Valid = sng.ValidGAMA | sng.ValidCHRM | sng.ValidSRGB
	require.NoError(t, e.WriteInfo(info))

	raw := buf.Bytes()
	assert.True(t, bytes.Contains(raw, []byte("gAMA")))
	assert.True(t, bytes.Contains(raw, []byte("cHRM")))
	assert.True(t, bytes.Contains(raw, []byte("sRGB")))

	// gAMA carries the 1/100000 fixed-point value
	i := bytes.Index(raw, []byte("gAMA"))
	assert.Equal(t, uint32(45455), binary.BigEndian.Uint32(raw[i+4:i+8]))

	// the stream still decodes with the ancillary chunks present
	require.NoError(t, e.WriteImage([][]byte{{0x7F}}))
	require.NoError(t, e.WriteEnd())
	_, err := stdpng.Decode(&buf)
	assert.NoError(t, err)
}

func TestInterlacedImageRejected(t *testing.T) {
	e := NewWriter(&bytes.Buffer{})
	info := grayInfo(1, 1, 8)
	info.Interlace = sng.InterlaceAdam7
	require.NoError(t, e.WriteInfo(info))
	err := e.WriteImage([][]byte{{0x00}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interlaced")
}

func TestImageBeforeInfo(t *testing.T) {
	e := NewWriter(&bytes.Buffer{})
	err := e.WriteImage([][]byte{{0x00}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image header")
}
