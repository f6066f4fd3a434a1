package logger

import (
	"log/slog"
	"testing"

	coreconfig "github.com/m3rciful/moviebot/core/config"

	"github.com/stretchr/testify/assert"
)

func TestSelectFormat(t *testing.T) {
	assert.Equal(t, formatJSON, selectFormat(coreconfig.LoggingConfig{}))
	assert.Equal(t, formatKV, selectFormat(coreconfig.LoggingConfig{Profile: "Dev"}))
	assert.Equal(t, formatJSON, selectFormat(coreconfig.LoggingConfig{Profile: "dev", Format: "json"}))
	assert.Equal(t, formatKV, selectFormat(coreconfig.LoggingConfig{Format: "pretty"}))
}

func TestSelectKeyOrder(t *testing.T) {
	assert.Equal(t, defaultKeyOrder, selectKeyOrder(""))
	assert.Equal(t, defaultKeyOrder, selectKeyOrder("default"))
	assert.Equal(t, defaultKeyOrder, selectKeyOrder(" , "))
	assert.Equal(t, []string{"ts", "movie_id"}, selectKeyOrder("ts, movie_id,"))
}

func TestSelectLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, selectLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, selectLevel("warning"))
	assert.Equal(t, slog.LevelInfo, selectLevel("verbose"))
}

func TestParseDebugSample(t *testing.T) {
	num, den := parseDebugSample("")
	assert.Equal(t, [2]int{1, 50}, [2]int{num, den})
	num, den = parseDebugSample("0")
	assert.Equal(t, [2]int{0, 0}, [2]int{num, den})
	num, den = parseDebugSample("-1/4")
	assert.Equal(t, [2]int{1, 50}, [2]int{num, den})
}

func TestComponentFallsBackToBase(t *testing.T) {
	assert.Same(t, L, Component("  "))
	assert.NotSame(t, L, Component("service.movies"))
}
