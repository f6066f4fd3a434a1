package netutil

import (
	"errors"
	"net"
)

// ShouldRetry reports whether a failed Bot API call may succeed if repeated
// unchanged: timeouts, refused dials and 5xx answers. Rejections such as a
// blocked chat or a stale file id fail the same way every time.
func ShouldRetry(err error) bool {
	switch Classify(err) {
	case KindTimeout, KindDial, KindHTTP5xx:
		return true
	case KindUnknown:
		var netErr net.Error
		return errors.As(err, &netErr) && netErr.Timeout()
	}
	return false
}
