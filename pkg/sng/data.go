package sng

import (
	"errors"
	"fmt"
)

// Format selects one of the two data-segment encodings.
type Format int

const (
	// FormatBase62 encodes one byte value 0-61 per character:
	// 0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ.
	// Digits map to 0-9, lowercase to 10-35, uppercase to 36-61. The
	// case mapping is asymmetric on purpose.
	FormatBase62 Format = iota
	// FormatHex encodes one byte per pair of case-insensitive hex
	// digits, high nibble first.
	FormatHex
)

// memoryQuantum is the fixed increment the payload buffer grows by.
const memoryQuantum = 1024

var errOddHexDigits = errors.New("odd number of hex digits in data segment")

// dataDecoder assembles a raw byte payload from data-segment characters.
// The caller strips whitespace and the closing delimiter; the decoder
// sees only candidate alphabet characters.
type dataDecoder struct {
	format  Format
	buf     []byte
	pending byte
	half    bool
}

func newDataDecoder(format Format) *dataDecoder {
	return &dataDecoder{format: format, buf: make([]byte, 0, memoryQuantum)}
}

// grow extends capacity by one quantum when the buffer is full.
func (d *dataDecoder) grow() {
	if len(d.buf) < cap(d.buf) {
		return
	}
	next := make([]byte, len(d.buf), cap(d.buf)+memoryQuantum)
	copy(next, d.buf)
	d.buf = next
}

func (d *dataDecoder) emit(value byte) {
	d.grow()
	d.buf = append(d.buf, value)
}

// push decodes one data-segment character.
func (d *dataDecoder) push(c byte) error {
	switch d.format {
	case FormatBase62:
		var value byte
		switch {
		case c >= '0' && c <= '9':
			value = c - '0'
		case c >= 'A' && c <= 'Z':
			value = (c - 'A') + 36
		case c >= 'a' && c <= 'z':
			value = (c - 'a') + 10
		default:
			return fmt.Errorf("bad character %q in IDAT block", c)
		}
		d.emit(value)

	case FormatHex:
		var value byte
		switch {
		case c >= '0' && c <= '9':
			value = c - '0'
		case c >= 'A' && c <= 'F':
			value = (c - 'A') + 10
		case c >= 'a' && c <= 'f':
			value = (c - 'a') + 10
		default:
			return fmt.Errorf("bad character %q in IDAT block", c)
		}
		if d.half {
			d.emit(d.pending<<4 | value)
			d.half = false
		} else {
			d.pending = value
			d.half = true
		}
	}
	return nil
}

// finish returns the assembled payload. A trailing unpaired hex digit is
// an error; there is no silent padding.
func (d *dataDecoder) finish() ([]byte, error) {
	if d.format == FormatHex && d.half {
		return nil, errOddHexDigits
	}
	return d.buf, nil
}
