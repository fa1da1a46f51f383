package sng

import (
	"errors"
	"fmt"
)

// Kind classifies a compile failure.
type Kind int

const (
	// KindLex - malformed token (runaway string, token too long)
	KindLex Kind = iota + 1
	// KindSyntax - unexpected token, missing delimiter, unexpected EOF
	KindSyntax
	// KindSemantic - unknown chunk type, illegal repetition, ordering
	// violation, incomplete specification, range violation, size mismatch
	KindSemantic
	// KindNotImplemented - recognized but unsupported chunk type
	KindNotImplemented
	// KindBackend - failure reported by the emission backend
	KindBackend
)

// LineEOF marks an error raised after the input is exhausted; it renders
// as "EOF" in place of a line number.
const LineEOF = -1

// Error is the single error type every compile failure funnels through.
// Compile returns at most one of these per invocation; there is no
// recovery or partial success, and output already flushed before the
// failure must be discarded by the caller.
type Error struct {
	File string
	Line int
	Kind Kind
	Msg  string
	Err  error // underlying backend error, if any
}

func (e *Error) Error() string {
	if e.Line == LineEOF {
		return fmt.Sprintf("%s:EOF: %s", e.File, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsBackend reports whether err was raised by the emission backend rather
// than by the compiler's own lexical/grammar/semantic checks. Callers use
// this to pick an exit status without parsing message text.
func IsBackend(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == KindBackend
}
