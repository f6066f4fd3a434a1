package logger

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/moviebot/core/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(buf *bytes.Buffer, format logFormat) (*structuredHandler, *asyncWriter) {
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	return newStructuredHandler(handlerConfig{
		level:    slog.LevelDebug,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	}), aw
}

func drain(t *testing.T, aw *asyncWriter, buf *bytes.Buffer) string {
	t.Helper()
	require.NoError(t, aw.Flush())
	require.NoError(t, aw.Close())
	return strings.TrimSpace(buf.String())
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	log := slog.New(handler).With("component", "tg.router")
	LogEvent(ctx, log, slog.LevelInfo, "route.matched",
		slog.String("status", "ok"),
		slog.String("route", "rate_<n>_<n>"),
		slog.String("state", "IDLE"),
	)

	tokens := strings.Split(drain(t, aw, buf), " ")
	expected := []string{"ts=", "level=INFO", "component=tg.router", "event=route.matched", "status=ok", "rid=rid-123"}
	require.GreaterOrEqual(t, len(tokens), len(expected))
	for i, prefix := range expected {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want prefix %s", i, tokens[i], prefix)
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)
	ctx := WithRID(Background(), "rid-json")
	ctx = WithUpdateMeta(ctx, 11, 22, 33)

	log := slog.New(handler).With("component", "service.movies")
	LogEvent(ctx, log, slog.LevelError, "movie.create",
		slog.String("status", "fail"),
		slog.Int64("movie_id", 12),
		slog.String("err", "boom"),
		slog.String("error_kind", "api"),
	)

	line := drain(t, aw, buf)
	require.True(t, strings.HasPrefix(line, "{"), line)
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"service.movies"`, `"event":"movie.create"`, `"status":"fail"`, `"rid":"rid-json"`, `"movie_id":12`, `"err":"boom"`, `"error_kind":"api"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		require.NotEqual(t, -1, idx, "missing %s in %s", pref, line)
		assert.Greater(t, idx, pos, "%s out of order in %s", pref, line)
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	rawRID := BuildRID(123, 456, 789)
	ctx := WithRID(Background(), rawRID)
	LogEvent(ctx, slog.New(handler), slog.LevelInfo, "rid.test", slog.String("status", "ok"))

	line := drain(t, aw, buf)
	assert.Contains(t, line, "rid="+CompactRID(rawRID))
	assert.NotContains(t, line, "rid_full=")
	assert.Contains(t, line, "component=app")
}

func TestStructuredHandlerCompactRIDJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)
	rawRID := "12:34:56"
	ctx := WithRID(Background(), rawRID)
	LogEvent(ctx, slog.New(handler), slog.LevelInfo, "rid.test", slog.String("status", "ok"))

	line := drain(t, aw, buf)
	assert.Contains(t, line, `"rid":"`+CompactRID(rawRID)+`"`)
	assert.Contains(t, line, `"rid_full":"`+rawRID+`"`)
	assert.Contains(t, line, `"ts_unix_nano"`)
}

func TestStructuredHandlerDropsUnknownEnumerations(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	LogEvent(Background(), slog.New(handler), slog.LevelDebug, "cache.lookup",
		slog.String("cache", "warm"),
		slog.String("outcome", "ok"),
		slog.String("key", "channels:all"),
	)

	line := drain(t, aw, buf)
	assert.NotContains(t, line, "cache=")
	assert.Contains(t, line, "outcome=ok")
	assert.Contains(t, line, "key=channels:all")
}

func TestBuildOutputsAddsRotatingSink(t *testing.T) {
	dir := t.TempDir()
	cfg := &coreconfig.Config{Logging: coreconfig.LoggingConfig{
		Dir:        dir,
		BotFile:    "bot.log",
		MaxBackups: 3,
	}}

	writers, closers, err := buildOutputs(cfg)
	require.NoError(t, err)
	require.Len(t, writers, 2)
	require.Len(t, closers, 1)

	sink := rotatingSink(filepath.Join(dir, "bot.log"), cfg.Logging)
	assert.Equal(t, 50, sink.MaxSize)
	assert.Equal(t, 3, sink.MaxBackups)

	_, err = writers[1].Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, closers[0].Close())
	assert.FileExists(t, filepath.Join(dir, "bot.log"))
}

func TestBuildOutputsStdoutOnly(t *testing.T) {
	writers, closers, err := buildOutputs(&coreconfig.Config{})
	require.NoError(t, err)
	assert.Len(t, writers, 1)
	assert.Empty(t, closers)
}

func TestStructuredHandlerConversationFields(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	ctx := WithUpdateMeta(Background(), 5, 30, 30)
	ctx = WithHandler(ctx, "state.waiting_feedback")
	ctx = WithState(ctx, "WAITING_FEEDBACK")
	ctx = WithVerdict(ctx, "allow")
	LogEvent(ctx, slog.New(handler), slog.LevelInfo, "handler.handled",
		slog.String("status", "OK"),
		slog.Duration("duration", 1500*time.Microsecond),
	)

	line := drain(t, aw, buf)
	assert.Contains(t, line, "handler=state.waiting_feedback")
	assert.Contains(t, line, "state=WAITING_FEEDBACK")
	assert.Contains(t, line, "verdict=allow")
	assert.Contains(t, line, "user_id=30")
	assert.Contains(t, line, "status=ok")
	assert.Contains(t, line, "duration_ms=2")
}

func TestRecordFieldsWinOverContext(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	ctx := WithState(Background(), "IDLE")
	LogEvent(ctx, slog.New(handler), slog.LevelInfo, "state.changed", slog.String("state", "WAITING_MOVIE"))

	line := drain(t, aw, buf)
	assert.Contains(t, line, "state=WAITING_MOVIE")
	assert.NotContains(t, line, "state=IDLE")
}

func TestCompactRID(t *testing.T) {
	assert.Equal(t, "a.b.c", CompactRID("10:11:12"))
	assert.Equal(t, "not-a-rid", CompactRID("not-a-rid"))
	assert.Equal(t, "1:x:3", CompactRID("1:x:3"))
	assert.Equal(t, "", CompactRID(""))
}

func TestSanitizeLimit(t *testing.T) {
	assert.Equal(t, "Dune\tpart", Sanitize("Du\x00ne\tpart\u200b"))
	assert.Equal(t, "Дюна", SanitizeLimit("Дюна 2", 4))
	assert.Empty(t, SanitizeLimit("x", 0))
}
