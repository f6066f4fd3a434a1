package logger

import "strings"

// Every line has the same leading keys so kv output lines up in a terminal.
// Within the tail, keys follow the bot's concerns: update routing, the
// movie catalogue, then failures.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type",

	// routing and conversation
	"handler", "route", "operation", "op", "cb_key",
	"state", "next_state", "verdict", "reason", "missing",
	"outcome", "duration_ms", "messages", "kb",

	// listings and caches
	"count", "page", "pages", "cache", "key", "payload", "lang", "username",

	// transport and storage
	"mode", "listen", "public_url", "http_code", "db", "host", "port",

	// catalogue
	"movie_id", "code", "channel_id", "category_id", "request_id", "feedback_id",

	// failures
	"err", "err_code", "error_kind", "cause", "retryable",
	"attempts", "backoff_ms", "rate_limited", "collapsed", "repeats",
}

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
	"fatal":   "FATAL",
}

// statusValues is open: unknown statuses are kept lowercased.
var statusValues = set("ok", "fail", "skip", "retry", "rate_limited", "cancelled")

// closedEnums drop values outside their set.
var closedEnums = map[string]map[string]struct{}{
	"cache":   set("hit", "miss", "refresh"),
	"outcome": set("ok", "fail", "cancelled", "rate_limited"),
}

func set(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if name, ok := levelNames[strings.ToLower(level)]; ok {
		return name
	}
	return strings.ToUpper(level)
}

func normalizeStatus(status string) (string, bool) {
	status = strings.ToLower(strings.TrimSpace(status))
	_, known := statusValues[status]
	return status, known
}

// normalizeEnum reports whether value belongs to the closed enum key.
func normalizeEnum(key, value string) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	_, ok := closedEnums[key][value]
	return value, ok
}
