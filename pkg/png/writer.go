// Package png is the emission backend for the SNG compiler: it owns
// chunk framing, CRC-32 checksums, and zlib compression of pixel
// streams. It implements sng.Backend over any io.Writer.
package png

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/jpfielding/sng.go/pkg/sng"
)

// Signature is the eight-byte PNG file signature.
var Signature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// legalDepths maps each PNG color type to its permitted bit depths.
var legalDepths = map[uint8][]uint8{
	0: {1, 2, 4, 8, 16}, // grayscale
	2: {8, 16},          // truecolor
	3: {1, 2, 4, 8},     // palette
	4: {8, 16},          // grayscale + alpha
	6: {8, 16},          // truecolor + alpha
}

// Writer emits a PNG stream chunk by chunk. The compiler drives it in
// order: WriteInfo once, then WriteChunk/WriteImage for the pixel data,
// then WriteEnd. One instance per output stream.
type Writer struct {
	w    *countingWriter
	info *sng.Info
}

// NewWriter returns a Writer emitting to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: &countingWriter{w: w}}
}

// Bytes returns how many bytes have been flushed so far.
func (e *Writer) Bytes() int64 {
	return e.w.n
}

// WriteInfo writes the signature, IHDR, and any ancillary properties
// recorded in info (gAMA, cHRM, sRGB, PLTE), in the order the PNG
// specification requires of them.
func (e *Writer) WriteInfo(info *sng.Info) error {
	if err := e.checkHeader(info); err != nil {
		return err
	}
	e.info = info

	if _, err := e.w.Write(Signature); err != nil {
		return err
	}

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], info.Width)
	binary.BigEndian.PutUint32(ihdr[4:8], info.Height)
	ihdr[8] = info.BitDepth
	ihdr[9] = info.ColorType
	ihdr[10] = 0 // compression method: deflate
	ihdr[11] = 0 // filter method: adaptive
	ihdr[12] = info.Interlace
	if err := e.WriteChunk("IHDR", ihdr); err != nil {
		return err
	}

	if info.Valid&sng.ValidGAMA != 0 {
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, scaled(info.Gamma))
		if err := e.WriteChunk("gAMA", buf); err != nil {
			return err
		}
	}

	if info.Valid&sng.ValidCHRM != 0 {
		ch := info.Chroma
		buf := make([]byte, 32)
		for i, v := range []float64{
			ch.WhiteX, ch.WhiteY,
			ch.RedX, ch.RedY,
			ch.GreenX, ch.GreenY,
			ch.BlueX, ch.BlueY,
		} {
			binary.BigEndian.PutUint32(buf[i*4:], scaled(v))
		}
		if err := e.WriteChunk("cHRM", buf); err != nil {
			return err
		}
	}

	if info.Valid&sng.ValidSRGB != 0 {
		if err := e.WriteChunk("sRGB", []byte{info.RenderingIntent}); err != nil {
			return err
		}
	}

	if len(info.Palette) > 0 {
		buf := make([]byte, 0, len(info.Palette)*3)
		for _, entry := range info.Palette {
			buf = append(buf, entry.R, entry.G, entry.B)
		}
		if err := e.WriteChunk("PLTE", buf); err != nil {
			return err
		}
	}

	return nil
}

func (e *Writer) checkHeader(info *sng.Info) error {
	if info.Width == 0 || info.Height == 0 {
		return fmt.Errorf("zero image dimensions")
	}
	depths, ok := legalDepths[info.ColorType]
	if !ok {
		return fmt.Errorf("illegal color type %d", info.ColorType)
	}
	for _, d := range depths {
		if d == info.BitDepth {
			return nil
		}
	}
	return fmt.Errorf("bit depth %d is illegal for color type %d",
		info.BitDepth, info.ColorType)
}

// WriteChunk frames one chunk: length, type, payload, CRC-32 over type
// plus payload. The payload is written verbatim, uncompressed; raw IDAT
// segments arrive here already in their on-the-wire form.
func (e *Writer) WriteChunk(typ string, data []byte) error {
	if len(typ) != 4 {
		return fmt.Errorf("chunk type %q is not four characters", typ)
	}
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(len(data)))
	copy(hdr[4:8], typ)
	if _, err := e.w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := e.w.Write(data); err != nil {
		return err
	}
	crc := crc32.NewIEEE()
	crc.Write(hdr[4:8])
	crc.Write(data)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	_, err := e.w.Write(sum[:])
	return err
}

// WriteImage compresses the decoded pixel matrix into a single IDAT
// chunk. Rows arrive one sample per byte for sub-byte depths and are
// packed here; every row gets filter type 0 (None).
func (e *Writer) WriteImage(rows [][]byte) error {
	if e.info == nil {
		return fmt.Errorf("no image header written")
	}
	if e.info.Interlace != sng.InterlaceNone {
		// TODO: Adam7 pass extraction; pre-interlaced pixel streams can
		// still be supplied through raw IDAT chunks.
		return fmt.Errorf("interlaced image emission is not supported")
	}

	var stream bytes.Buffer
	zw := zlib.NewWriter(&stream)
	for _, row := range rows {
		if _, err := zw.Write([]byte{0}); err != nil {
			return err
		}
		if _, err := zw.Write(e.packRow(row)); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}

	return e.WriteChunk("IDAT", stream.Bytes())
}

// packRow packs one-sample-per-byte rows down to the target bit depth,
// high bits first within each byte. Depths of 8 and up pass through.
func (e *Writer) packRow(row []byte) []byte {
	depth := int(e.info.BitDepth)
	if depth >= 8 {
		return row
	}
	perByte := 8 / depth
	mask := byte(1<<depth - 1)
	out := make([]byte, (len(row)+perByte-1)/perByte)
	for i, s := range row {
		shift := 8 - depth - (i%perByte)*depth
		out[i/perByte] |= (s & mask) << shift
	}
	return out
}

// WriteEnd terminates the stream with IEND.
func (e *Writer) WriteEnd() error {
	return e.WriteChunk("IEND", nil)
}

// scaled converts a unit float to the 1/100000 fixed-point encoding the
// gAMA and cHRM chunks use.
func scaled(v float64) uint32 {
	return uint32(v*100000 + 0.5)
}

// countingWriter tracks bytes flushed downstream.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
