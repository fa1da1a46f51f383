package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	log := Logger(&buf, false, slog.LevelWarn)

	log.Info("quiet")
	log.Warn("loud")

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := Logger(&buf, true, slog.LevelInfo)
	log.Info("hello", "k", "v")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
	assert.Contains(t, buf.String(), `"k":"v"`)
}

func TestAppendCtx(t *testing.T) {
	var buf bytes.Buffer
	log := Logger(&buf, true, slog.LevelInfo)

	ctx := AppendCtx(context.Background(), slog.String("compile_id", "abc123"))
	ctx = AppendCtx(ctx, slog.String("source", "x.sng"))

	log.InfoContext(ctx, "compile finished")
	out := buf.String()
	require.Contains(t, out, "abc123")
	assert.Contains(t, out, "x.sng")

	// attrs stay scoped to their context
	buf.Reset()
	log.InfoContext(context.Background(), "other")
	assert.NotContains(t, buf.String(), "abc123")
}
