package sng

import (
	"io"
	"strconv"

	"github.com/jpfielding/sng.go/pkg/sng/chunk"
)

// Backend consumes the finished image description and raw pixel buffers.
// It alone performs chunk framing, checksums, and compression. Errors it
// returns surface as KindBackend so callers can tell them apart from
// grammar failures.
type Backend interface {
	// WriteInfo flushes the pre-pixel portion of the image: header plus
	// any ancillary properties accumulated so far.
	WriteInfo(info *Info) error
	// WriteChunk frames one chunk verbatim; data is not interpreted.
	WriteChunk(typ string, data []byte) error
	// WriteImage writes the whole pixel matrix, one decoded row per
	// slice, packing sub-byte samples as needed.
	WriteImage(rows [][]byte) error
	// WriteEnd finishes the output stream.
	WriteEnd() error
}

// compiler holds all mutable state for one compile: lexer position,
// image model, and vocabulary counts. Nothing here is shared between
// compiles.
type compiler struct {
	lex   *lexer
	info  *Info
	vocab *chunk.Vocabulary
	prev  chunk.Type
	out   Backend
}

// Compile reads SNG chunk specifications from r and drives out with the
// result. name labels diagnostics ("file:line: message"). The first
// failure aborts the compile; output already flushed before the failure
// must be discarded.
func Compile(r io.Reader, name string, out Backend) error {
	c := &compiler{
		lex:   newLexer(r, name),
		info:  NewInfo(),
		vocab: chunk.NewVocabulary(),
		prev:  chunk.None,
		out:   out,
	}
	return c.run()
}

func (c *compiler) errf(k Kind, format string, args ...any) *Error {
	return c.lex.errf(k, format, args...)
}

func (c *compiler) backend(err error) error {
	if err == nil {
		return nil
	}
	e := c.errf(KindBackend, "%v", err)
	e.Err = err
	return e
}

// innerToken fetches a token inside a chunk body. more is false exactly
// when the closing delimiter has been consumed; EOF before the delimiter
// is a syntax error.
func (c *compiler) innerToken() (tok string, more bool, err error) {
	tok, err = c.lex.next()
	if err == io.EOF {
		return "", false, c.errf(KindSyntax, "unexpected EOF")
	}
	if err != nil {
		return "", false, err
	}
	return tok, tok != "}", nil
}

// require consumes the next token and fails unless it matches want.
func (c *compiler) require(want string) error {
	tok, err := c.lex.next()
	if err == io.EOF {
		return c.errf(KindSyntax, "unexpected EOF")
	}
	if err != nil {
		return err
	}
	if tok != want {
		return c.errf(KindSyntax, "unexpected token %s", tok)
	}
	return nil
}

// longNumeric fetches and validates a PNG long (range 0..2^31-2).
// Base prefixes (0x, 0) are honored.
func (c *compiler) longNumeric() (uint32, error) {
	tok, err := c.lex.next()
	if err == io.EOF {
		return 0, c.errf(KindSyntax, "EOF while expecting long-integer constant")
	}
	if err != nil {
		return 0, err
	}
	v, perr := strconv.ParseUint(tok, 0, 64)
	if perr != nil || v >= 2147483647 {
		return 0, c.errf(KindSemantic, "invalid or out of range long constant")
	}
	return uint32(v), nil
}

// byteNumeric fetches and validates a byte constant.
func (c *compiler) byteNumeric() (uint8, error) {
	tok, err := c.lex.next()
	if err == io.EOF {
		return 0, c.errf(KindSyntax, "EOF while expecting byte constant")
	}
	if err != nil {
		return 0, err
	}
	v, perr := strconv.ParseUint(tok, 0, 64)
	if perr != nil || v > 255 {
		return 0, c.errf(KindSemantic, "invalid or out of range byte constant")
	}
	return uint8(v), nil
}

// doubleNumeric fetches and validates a non-negative floating constant.
func (c *compiler) doubleNumeric() (float64, error) {
	tok, err := c.lex.next()
	if err == io.EOF {
		return 0, c.errf(KindSyntax, "EOF while expecting double-precision constant")
	}
	if err != nil {
		return 0, err
	}
	v, perr := strconv.ParseFloat(tok, 64)
	if perr != nil || v < 0 {
		return 0, c.errf(KindSemantic, "invalid or out of range double-precision constant")
	}
	return v, nil
}

// collectData reads a raw data segment up to the closing delimiter,
// feeding every non-space character through the decoder. The segment is
// consumed from the byte stream directly; tokenization does not apply.
func (c *compiler) collectData(format Format) ([]byte, error) {
	d := newDataDecoder(format)
	for {
		b, err := c.lex.readRaw()
		if err == io.EOF {
			return nil, c.errf(KindSyntax, "unexpected EOF in data segment")
		}
		if err != nil {
			return nil, err
		}
		if b == '}' {
			break
		}
		if isSpace(b) {
			continue
		}
		if derr := d.push(b); derr != nil {
			return nil, c.errf(KindSemantic, "%v", derr)
		}
	}
	data, err := d.finish()
	if err != nil {
		return nil, c.errf(KindSemantic, "%v", err)
	}
	return data, nil
}

// handler binds a chunk type to its ordering guard and body compiler.
// Guards are predicates over the vocabulary counts accumulated so far;
// they run after the generic repetition check and before the body is
// touched.
type handler struct {
	guard   func(*compiler) error
	compile func(*compiler) error
}

var handlers = map[chunk.Type]handler{
	chunk.IHDR:    {guardFirst, (*compiler).compileIHDR},
	chunk.PLTE:    {guardPLTE, (*compiler).compilePLTE},
	chunk.IDAT:    {guardIDAT, (*compiler).compileIDAT},
	chunk.CHRM:    {beforePaletteAndData(chunk.CHRM), (*compiler).compileCHRM},
	chunk.GAMA:    {beforePaletteAndData(chunk.GAMA), (*compiler).compileGAMA},
	chunk.ICCP:    {beforePaletteAndData(chunk.ICCP), notImplemented(chunk.ICCP)},
	chunk.SBIT:    {beforePaletteAndData(chunk.SBIT), notImplemented(chunk.SBIT)},
	chunk.SRGB:    {beforePaletteAndData(chunk.SRGB), (*compiler).compileSRGB},
	chunk.BKGD:    {betweenPaletteAndData(chunk.BKGD), notImplemented(chunk.BKGD)},
	chunk.HIST:    {guardHIST, notImplemented(chunk.HIST)},
	chunk.TRNS:    {betweenPaletteAndData(chunk.TRNS), notImplemented(chunk.TRNS)},
	chunk.PHYS:    {beforeData(chunk.PHYS), notImplemented(chunk.PHYS)},
	chunk.SPLT:    {beforeData(chunk.SPLT), notImplemented(chunk.SPLT)},
	chunk.TIME:    {nil, notImplemented(chunk.TIME)},
	chunk.ITXT:    {nil, notImplemented(chunk.ITXT)},
	chunk.TEXT:    {nil, notImplemented(chunk.TEXT)},
	chunk.ZTXT:    {nil, notImplemented(chunk.ZTXT)},
	chunk.OFFS:    {beforeData(chunk.OFFS), notImplemented(chunk.OFFS)},
	chunk.PCAL:    {beforeData(chunk.PCAL), notImplemented(chunk.PCAL)},
	chunk.SCAL:    {beforeData(chunk.SCAL), notImplemented(chunk.SCAL)},
	chunk.GIFG:    {nil, notImplemented(chunk.GIFG)},
	chunk.GIFT:    {nil, notImplemented(chunk.GIFT)},
	chunk.GIFX:    {nil, notImplemented(chunk.GIFX)},
	chunk.FRAC:    {nil, notImplemented(chunk.FRAC)},
	chunk.IMAGE:   {guardIMAGE, (*compiler).compileIMAGE},
	chunk.Private: {nil, privateNotImplemented},
}

func guardFirst(c *compiler) error {
	if c.prev != chunk.None {
		return c.errf(KindSemantic, "IHDR chunk must come first")
	}
	return nil
}

func guardPLTE(c *compiler) error {
	switch {
	case c.vocab.Seen(chunk.IDAT):
		return c.errf(KindSemantic, "PLTE chunk must come before IDAT")
	case c.vocab.Seen(chunk.BKGD):
		return c.errf(KindSemantic, "PLTE chunk encountered after bKGD")
	case c.vocab.Seen(chunk.TRNS):
		return c.errf(KindSemantic, "PLTE chunk encountered after tRNS")
	case c.info.ColorType&ColorMaskPalette == 0:
		return c.errf(KindSemantic, "PLTE chunk specified for non-palette image type")
	}
	return nil
}

func guardIDAT(c *compiler) error {
	if c.vocab.Seen(chunk.IMAGE) {
		return c.errf(KindSemantic, "can't mix IDAT and IMAGE specs")
	}
	if c.prev != chunk.IDAT && c.vocab.Seen(chunk.IDAT) {
		return c.errf(KindSemantic, "IDAT chunks must be contiguous")
	}
	return nil
}

func guardHIST(c *compiler) error {
	if !c.vocab.Seen(chunk.PLTE) || c.vocab.Seen(chunk.IDAT) {
		return c.errf(KindSemantic, "hIST chunk must come between PLTE and IDAT")
	}
	return nil
}

func guardIMAGE(c *compiler) error {
	if c.vocab.Seen(chunk.IDAT) {
		return c.errf(KindSemantic, "can't mix IDAT and IMAGE specs")
	}
	return nil
}

func privateNotImplemented(c *compiler) error {
	return c.errf(KindNotImplemented, "private chunk types are not handled yet")
}

// beforePaletteAndData guards color-management chunks that must precede
// both the palette and any pixel data.
func beforePaletteAndData(t chunk.Type) func(*compiler) error {
	return func(c *compiler) error {
		if c.vocab.Seen(chunk.PLTE) || c.vocab.Seen(chunk.IDAT) {
			return c.errf(KindSemantic, "%s chunk must come before PLTE and IDAT", t.Name())
		}
		return nil
	}
}

// betweenPaletteAndData guards chunks legal only between an optional
// palette and the pixel data.
func betweenPaletteAndData(t chunk.Type) func(*compiler) error {
	return func(c *compiler) error {
		if c.vocab.Seen(chunk.IDAT) {
			return c.errf(KindSemantic, "%s chunk must come between PLTE (if any) and IDAT", t.Name())
		}
		return nil
	}
}

// beforeData guards chunks that merely have to precede the pixel data.
func beforeData(t chunk.Type) func(*compiler) error {
	return func(c *compiler) error {
		if c.vocab.Seen(chunk.IDAT) {
			return c.errf(KindSemantic, "%s chunk must come before IDAT", t.Name())
		}
		return nil
	}
}

// notImplemented terminates the compile for recognized chunk types whose
// body grammar is not supported. This is a deliberate limitation, not a
// parsing gap: the keyword and its ordering guards are still honored.
func notImplemented(t chunk.Type) func(*compiler) error {
	return func(c *compiler) error {
		return c.errf(KindNotImplemented, "%s chunk type is not handled yet", t.Name())
	}
}

// run is the dispatch loop plus the end-of-stream checks. It is the
// single unwind point: every failure below propagates here untouched.
func (c *compiler) run() error {
	for {
		keyword, err := c.lex.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		t, ok := c.vocab.Lookup(keyword)
		if !ok {
			return c.errf(KindSemantic, "unknown chunk type %q", keyword)
		}

		tok, err := c.lex.next()
		if err == io.EOF {
			return c.errf(KindSyntax, "unexpected EOF")
		}
		if err != nil {
			return err
		}
		if tok != "{" {
			return c.errf(KindSyntax, "missing chunk delimiter")
		}

		if !t.MultipleOK() && c.vocab.Seen(t) {
			return c.errf(KindSemantic, "illegal repeated chunk")
		}

		h := handlers[t]
		if h.guard != nil {
			if err := h.guard(c); err != nil {
				return err
			}
		}
		if err := h.compile(c); err != nil {
			return err
		}

		if t == chunk.IMAGE {
			// IMAGE satisfies the pixel-data requirement and blocks
			// any later chunk that must precede IDAT.
			c.vocab.Mark(chunk.IDAT)
		}
		c.prev = t
		c.vocab.Mark(t)
	}

	// end-of-stream sanity checks
	c.lex.eof = true
	if c.info.ColorType&ColorMaskPalette != 0 && !c.vocab.Seen(chunk.PLTE) {
		return c.errf(KindSemantic, "palette property set, but no PLTE chunk found")
	}
	if !c.vocab.Seen(chunk.IDAT) {
		return c.errf(KindSemantic, "no image data")
	}

	return c.backend(c.out.WriteEnd())
}

// writeInfo flushes the pre-pixel portion of the stream exactly once,
// just before the first pixel-bearing chunk.
func (c *compiler) writeInfo() error {
	return c.backend(c.out.WriteInfo(c.info))
}

func (c *compiler) compileIHDR() error {
	for {
		tok, more, err := c.innerToken()
		if err != nil {
			return err
		}
		if !more {
			break
		}
		switch tok {
		case "height":
			if c.info.Height, err = c.longNumeric(); err != nil {
				return err
			}
		case "width":
			if c.info.Width, err = c.longNumeric(); err != nil {
				return err
			}
		case "bitdepth":
			if c.info.BitDepth, err = c.byteNumeric(); err != nil {
				return err
			}
		case "palette":
			c.info.ColorType |= ColorMaskPalette
		case "color":
			c.info.ColorType |= ColorMaskColor
		case "alpha":
			c.info.ColorType |= ColorMaskAlpha
		case "interlace":
			c.info.Interlace = InterlaceAdam7
		case "using", "with":
			// syntactic sugar
		default:
			return c.errf(KindSyntax, "bad token %q in IHDR specification", tok)
		}
	}

	if c.info.Height == 0 {
		return c.errf(KindSemantic, "image height is zero or nonexistent")
	}
	if c.info.Width == 0 {
		return c.errf(KindSemantic, "image width is zero or nonexistent")
	}
	return nil
}

func (c *compiler) compilePLTE() error {
	for {
		tok, more, err := c.innerToken()
		if err != nil {
			return err
		}
		if !more {
			break
		}
		if tok != "(" {
			return c.errf(KindSyntax, "bad syntax in PLTE description")
		}
		if len(c.info.Palette) >= 256 {
			return c.errf(KindSemantic, "too many entries in PLTE specification")
		}
		var entry RGB
		if entry.R, err = c.byteNumeric(); err != nil {
			return err
		}
		if err = c.require(","); err != nil {
			return err
		}
		if entry.G, err = c.byteNumeric(); err != nil {
			return err
		}
		if err = c.require(","); err != nil {
			return err
		}
		if entry.B, err = c.byteNumeric(); err != nil {
			return err
		}
		if err = c.require(")"); err != nil {
			return err
		}
		c.info.Palette = append(c.info.Palette, entry)
	}
	return nil
}

func (c *compiler) compileIDAT() error {
	if !c.vocab.Seen(chunk.IDAT) {
		if err := c.writeInfo(); err != nil {
			return err
		}
	}
	data, err := c.collectData(FormatHex)
	if err != nil {
		return err
	}
	return c.backend(c.out.WriteChunk("IDAT", data))
}

func (c *compiler) compileCHRM() error {
	var cmask uint8
	for {
		tok, more, err := c.innerToken()
		if err != nil {
			return err
		}
		if !more {
			break
		}

		var cvx, cvy *float64
		switch tok {
		case "white":
			cvx, cvy = &c.info.Chroma.WhiteX, &c.info.Chroma.WhiteY
			cmask |= 0x01
		case "red":
			cvx, cvy = &c.info.Chroma.RedX, &c.info.Chroma.RedY
			cmask |= 0x02
		case "green":
			cvx, cvy = &c.info.Chroma.GreenX, &c.info.Chroma.GreenY
			cmask |= 0x04
		case "blue":
			cvx, cvy = &c.info.Chroma.BlueX, &c.info.Chroma.BlueY
			cmask |= 0x08
		default:
			return c.errf(KindSemantic, "invalid color name in cHRM specification")
		}

		if err = c.require("("); err != nil {
			return err
		}
		if *cvx, err = c.doubleNumeric(); err != nil {
			return err
		}
		if err = c.require(","); err != nil {
			return err
		}
		if *cvy, err = c.doubleNumeric(); err != nil {
			return err
		}
		if err = c.require(")"); err != nil {
			return err
		}
	}

	if cmask != 0x0f {
		return c.errf(KindSemantic, "cHRM specification is not complete")
	}
	c.info.Valid |= ValidCHRM
	return nil
}

func (c *compiler) compileGAMA() error {
	gamma, err := c.doubleNumeric()
	if err != nil {
		return err
	}
	tok, err := c.lex.next()
	if err == io.EOF || (err == nil && tok != "}") {
		return c.errf(KindSyntax, "bad token in gAMA specification")
	}
	if err != nil {
		return err
	}
	c.info.Gamma = gamma
	c.info.Valid |= ValidGAMA
	return nil
}

// compileSRGB records the rendering intent and, like the reference
// library call it replaces, installs the standard sRGB gamma and
// chromaticity values alongside it.
func (c *compiler) compileSRGB() error {
	intent, err := c.byteNumeric()
	if err != nil {
		return err
	}
	tok, err := c.lex.next()
	if err == io.EOF || (err == nil && tok != "}") {
		return c.errf(KindSyntax, "bad token in sRGB specification")
	}
	if err != nil {
		return err
	}
	c.info.RenderingIntent = intent
	c.info.Gamma = 0.45455
	c.info.Chroma = Chromaticity{
		WhiteX: 0.3127, WhiteY: 0.3290,
		RedX: 0.6400, RedY: 0.3300,
		GreenX: 0.3000, GreenY: 0.6000,
		BlueX: 0.1500, BlueY: 0.0600,
	}
	c.info.Valid |= ValidSRGB | ValidGAMA | ValidCHRM
	return nil
}

func (c *compiler) compileIMAGE() error {
	if err := c.writeInfo(); err != nil {
		return err
	}

	sampleSize := c.info.SampleSize()

	// One base-62 character per sample works when a sample fits in 5
	// bits, or when the image is paletted with at most 62 entries.
	// These cover the common cases; everything else is hex.
	format := FormatHex
	if sampleSize <= 5 ||
		(c.info.ColorType&ColorMaskPalette != 0 && len(c.info.Palette) <= 62) {
		format = FormatBase62
	}

	data, err := c.collectData(format)
	if err != nil {
		return err
	}

	rowBytes := int(c.info.Width) * c.info.PixelBytes()
	if len(data) != int(c.info.Height)*rowBytes {
		return c.errf(KindSemantic, "size of IMAGE doesn't match height * width in IHDR")
	}

	rows := make([][]byte, c.info.Height)
	for i := range rows {
		rows[i] = data[i*rowBytes : (i+1)*rowBytes]
	}
	return c.backend(c.out.WriteImage(rows))
}
