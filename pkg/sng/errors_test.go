package sng

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormat(t *testing.T) {
	e := &Error{File: "drawing.sng", Line: 12, Kind: KindSyntax, Msg: "missing chunk delimiter"}
	assert.Equal(t, "drawing.sng:12: missing chunk delimiter", e.Error())

	e = &Error{File: "drawing.sng", Line: LineEOF, Kind: KindSemantic, Msg: "no image data"}
	assert.Equal(t, "drawing.sng:EOF: no image data", e.Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("short write")
	e := &Error{File: "x.sng", Line: 3, Kind: KindBackend, Msg: "short write", Err: cause}
	assert.ErrorIs(t, e, cause)
}

func TestIsBackend(t *testing.T) {
	backend := &Error{File: "x.sng", Line: 1, Kind: KindBackend, Msg: "emit failed"}
	local := &Error{File: "x.sng", Line: 1, Kind: KindSemantic, Msg: "unknown chunk type"}

	assert.True(t, IsBackend(backend))
	assert.False(t, IsBackend(local))
	assert.False(t, IsBackend(errors.New("plain")))
	assert.False(t, IsBackend(nil))

	// survives wrapping
	require.True(t, IsBackend(fmt.Errorf("compile: %w", backend)))
}
