package sng

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxTokenLen caps a single token. The limit is inherited from the SNG
// grammar; exceeding it is a reported lex failure, never a silent
// truncation.
const maxTokenLen = 80

// lexer turns the input byte stream into tokens. It owns line tracking,
// comment skipping, quoting, and exactly one token of pushback. One
// instance per compile; never shared.
type lexer struct {
	r      *bufio.Reader
	file   string
	line   int
	tok    string
	pushed bool
	eof    bool
}

func newLexer(r io.Reader, file string) *lexer {
	return &lexer{r: bufio.NewReader(r), file: file, line: 1}
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// isPunct matches printable ASCII that is neither alphanumeric nor space,
// the same set C's ispunct accepts in the POSIX locale.
func isPunct(c byte) bool {
	return c > ' ' && c < 0x7f &&
		!(c >= '0' && c <= '9') &&
		!(c >= 'a' && c <= 'z') &&
		!(c >= 'A' && c <= 'Z')
}

func (l *lexer) errf(k Kind, format string, args ...any) *Error {
	line := l.line
	if l.eof {
		line = LineEOF
	}
	return &Error{File: l.file, Line: line, Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// readRaw hands out one raw byte, keeping the line counter honest. Used
// by the token scanner and by data-segment collection, which bypasses
// tokenization entirely.
func (l *lexer) readRaw() (byte, error) {
	c, err := l.r.ReadByte()
	if err != nil {
		return 0, err
	}
	if c == '\n' {
		l.line++
	}
	return c, nil
}

// push marks the most recently fetched token as not consumed. Pushback
// depth is one: the caller must re-fetch before pushing again.
func (l *lexer) push() {
	l.pushed = true
}

// next returns the next token, or io.EOF once input is exhausted.
// Whitespace and #-comments are skipped. A quoted string ('...' or
// "...") yields its contents; an unquoted token is a run of
// non-punctuation bytes ('.' permitted, so floats lex whole) or a single
// punctuation byte.
func (l *lexer) next() (string, error) {
	if l.pushed {
		l.pushed = false
		return l.tok, nil
	}
	if l.eof {
		return "", io.EOF
	}

	// skip leading whitespace and comments
	var w byte
	for {
		c, err := l.readRaw()
		if err != nil {
			if err == io.EOF {
				l.eof = true
			}
			return "", err
		}
		if isSpace(c) {
			continue
		}
		if c == '#' {
			for {
				c, err = l.readRaw()
				if err != nil {
					if err == io.EOF {
						l.eof = true
					}
					return "", err
				}
				if c == '\n' {
					break
				}
			}
			continue
		}
		w = c
		break
	}

	var sb strings.Builder
	switch {
	case w == '\'' || w == '"':
		for {
			c, err := l.readRaw()
			if err != nil {
				if err == io.EOF {
					l.eof = true
				}
				return "", err
			}
			if c == w {
				break
			}
			if c == '\n' {
				return "", l.errf(KindLex, "runaway string")
			}
			if sb.Len() >= maxTokenLen {
				return "", l.errf(KindLex, "string token too long")
			}
			sb.WriteByte(c)
		}

	case isPunct(w):
		sb.WriteByte(w)

	default:
		sb.WriteByte(w)
		for {
			c, err := l.readRaw()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", err
			}
			if isSpace(c) {
				break
			}
			if isPunct(c) && c != '.' {
				l.r.UnreadByte()
				break
			}
			if sb.Len() >= maxTokenLen {
				return "", l.errf(KindLex, "token too long")
			}
			sb.WriteByte(c)
		}
	}

	l.tok = sb.String()
	return l.tok, nil
}
