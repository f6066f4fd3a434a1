// Package logger is the bot's structured logging. Every line is a flat
// record keyed by component and event; update identifiers ride along in the
// context so handlers, storage and the sender correlate without passing ids.
package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/moviebot/core/buildinfo"
	coreconfig "github.com/m3rciful/moviebot/core/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultDebugNum = 1
	defaultDebugDen = 50
	defaultMaxSize  = 50
)

var (
	initOnce sync.Once
	stopOnce sync.Once

	logWriter  *asyncWriter
	logClosers []io.Closer

	levelVar     slog.LevelVar
	debugSampler = newRatioSampler(defaultDebugNum, defaultDebugDen)
	traceAll     bool

	// L is the base logger; component loggers below derive from it.
	L *slog.Logger

	DB          *slog.Logger // connections
	MIG         *slog.Logger // schema migrations
	KV          *slog.Logger // Redis sessions and caches
	TG          *slog.Logger // Telegram transport
	TWire       *slog.Logger // route and middleware wiring
	SVCUsers    *slog.Logger
	SVCMovies   *slog.Logger // movies, ratings, views and categories
	SVCChannels *slog.Logger
	SVCFeedback *slog.Logger
	SVCRequests *slog.Logger
)

func init() {
	// Until InitLogger runs everything is discarded, so packages and tests
	// can log unconditionally.
	L = slog.New(slog.NewTextHandler(io.Discard, nil))
	wireComponents()
}

// InitLogger configures the global logger from cfg. Only the first call has
// any effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		if cfg == nil {
			cfg = &coreconfig.Config{}
		}
		levelVar.Set(selectLevel(cfg.Logging.Level))
		debugSampler.Set(parseDebugSample(cfg.Logging.DebugSample))
		traceAll = isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE"))

		var outputs []io.Writer
		outputs, logClosers, err = buildOutputs(cfg)
		if err != nil {
			return
		}
		logWriter = newAsyncWriter(outputs, 64*1024)
		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   logWriter,
			format:   selectFormat(cfg.Logging),
			keyOrder: selectKeyOrder(cfg.Logging.KeysOrder),
		}))
		slog.SetDefault(L)
		wireComponents()
		logStartup(cfg)
	})
	return err
}

func wireComponents() {
	for _, c := range []struct {
		dst  **slog.Logger
		name string
	}{
		{&DB, "db"},
		{&MIG, "db.migrate"},
		{&KV, "redis"},
		{&TG, "tg"},
		{&TWire, "tg.wire"},
		{&SVCUsers, "service.users"},
		{&SVCMovies, "service.movies"},
		{&SVCChannels, "service.channels"},
		{&SVCFeedback, "service.feedback"},
		{&SVCRequests, "service.requests"},
	} {
		*c.dst = L.With("component", c.name)
	}
}

func logStartup(cfg *coreconfig.Config) {
	build := buildinfo.Get()
	L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
		slog.String("component", "app"),
		slog.String("event", "startup"),
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", build.Version),
		slog.String("build_commit", build.Commit),
		slog.String("build_time", build.Date),
		slog.Bool("build_dirty", build.Dirty),
		slog.String("cfg_profile", selectProfile(cfg.Logging.Profile)),
	)
}

// Shutdown flushes buffered lines and closes the file sinks. Later calls are no-ops.
func Shutdown() error {
	var errs []error
	stopOnce.Do(func() {
		if logWriter != nil {
			errs = append(errs, logWriter.Flush(), logWriter.Close())
		}
		for _, c := range logClosers {
			errs = append(errs, c.Close())
		}
	})
	return errors.Join(errs...)
}

// selectFormat honours an explicit format, then falls back to kv for the
// debug and dev profiles and JSON everywhere else.
func selectFormat(lc coreconfig.LoggingConfig) logFormat {
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	switch selectProfile(lc.Profile) {
	case "debug", "dev":
		return formatKV
	}
	return formatJSON
}

// selectKeyOrder parses a comma separated key list; "" and "default" keep the built-in order.
func selectKeyOrder(raw string) []string {
	var order []string
	if raw = strings.TrimSpace(raw); raw != "default" {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
	}
	if len(order) == 0 {
		return append([]string(nil), defaultKeyOrder...)
	}
	return order
}

func selectLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func selectProfile(raw string) string {
	if p := strings.ToLower(strings.TrimSpace(raw)); p != "" {
		return p
	}
	return "prod"
}

// parseDebugSample defaults to 1/50; "0" disables sampling so every debug line passes.
func parseDebugSample(spec string) (int, int) {
	if strings.TrimSpace(spec) == "" {
		return defaultDebugNum, defaultDebugDen
	}
	num, den := parseRatioSpec(spec)
	if num == 0 && den == 0 {
		return 0, 0
	}
	if num <= 0 || den <= 0 {
		return defaultDebugNum, defaultDebugDen
	}
	return num, den
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// buildOutputs always writes to stdout and adds a rotating file when both
// logging.dir and logging.bot_file are set. An unusable directory is
// reported on stderr and skipped.
func buildOutputs(cfg *coreconfig.Config) ([]io.Writer, []io.Closer, error) {
	writers := []io.Writer{os.Stdout}
	if cfg == nil {
		return writers, nil, nil
	}
	dir := strings.TrimSpace(cfg.Logging.Dir)
	file := strings.TrimSpace(cfg.Logging.BotFile)
	if dir == "" || file == "" {
		return writers, nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logger: create log dir %s: %v", dir, err)
		return writers, nil, nil
	}
	sink := rotatingSink(filepath.Join(dir, file), cfg.Logging)
	return append(writers, sink), []io.Closer{sink}, nil
}

func rotatingSink(path string, lc coreconfig.LoggingConfig) *lumberjack.Logger {
	size := lc.MaxSizeMB
	if size <= 0 {
		size = defaultMaxSize
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    size,
		MaxBackups: lc.MaxBackups,
		MaxAge:     lc.MaxAgeDays,
		Compress:   lc.Compress,
	}
}

// ShouldSampleDebug reports whether a high-volume debug line should be
// written. TRACE=1 lets every line through.
func ShouldSampleDebug() bool {
	return traceAll || debugSampler.Allow()
}

// Background returns context.Background().
func Background() context.Context {
	return context.Background()
}

// LogEvent writes one event through logg, or through the context logger when logg is nil.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns L scoped to name.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Event logs event for component at level.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), level, event, attrs...)
}

// Debug logs a debug-level event for component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}
