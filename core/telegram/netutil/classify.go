package netutil

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Error kinds reported by Classify.
const (
	KindAPI     = "api"
	KindFlood   = "flood"
	KindTimeout = "timeout"
	KindDNS     = "dns"
	KindDial    = "dial"
	KindTLS     = "tls"
	KindHTTP4xx = "http_4xx"
	KindHTTP5xx = "http_5xx"
	KindUnknown = "unknown"
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// Classify maps an error from a Telegram call to a short kind used in logs.
// Rejections by the Bot API are "api" (or "flood"); connectivity failures get
// their own kinds so the two never mix in dashboards.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var floodErr tele.FloodError
	if errors.As(err, &floodErr) {
		return KindFlood
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return KindAPI
	}
	var groupErr tele.GroupError
	if errors.As(err, &groupErr) {
		return KindAPI
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindDNS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return KindTimeout
		}
		if opErr.Op == "dial" {
			return KindDial
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return KindTimeout
	}

	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return KindTLS
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return KindTLS
	}

	status := statusFromMessage(err.Error())
	switch {
	case status >= 500:
		return KindHTTP5xx
	case status == http.StatusTooManyRequests:
		return KindFlood
	case status >= 400:
		return KindHTTP4xx
	}
	return KindUnknown
}

// IsNetwork reports whether kind describes a connectivity failure rather than an API rejection.
func IsNetwork(kind string) bool {
	switch kind {
	case KindTimeout, KindDNS, KindDial, KindTLS:
		return true
	}
	return false
}

// Redact removes bot tokens from error text.
func Redact(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

// statusFromMessage extracts a trailing "(NNN)" status code from telebot error text.
func statusFromMessage(msg string) int {
	lastOpen := strings.LastIndex(msg, "(")
	lastClose := strings.LastIndex(msg, ")")
	if lastOpen < 0 || lastClose <= lastOpen+1 {
		return 0
	}
	code, err := strconv.Atoi(strings.TrimSpace(msg[lastOpen+1 : lastClose]))
	if err != nil {
		return 0
	}
	return code
}
