package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/moviebot/core/telegram/netutil"
)

// HTTPOptions tunes the Bot API client. Zero fields take the defaults below.
type HTTPOptions struct {
	// Timeout bounds one API call including retries. It must exceed the
	// long poll timeout or getUpdates is cut short.
	Timeout        time.Duration `yaml:"timeout" envconfig:"TELEGRAM_HTTP_TIMEOUT"`
	ResponseHeader time.Duration `yaml:"response_header_timeout" envconfig:"TELEGRAM_HTTP_RESPONSE_HEADER_TIMEOUT"`
	Retries        int           `yaml:"retries" envconfig:"TELEGRAM_HTTP_RETRIES"`
	Backoff        time.Duration `yaml:"backoff" envconfig:"TELEGRAM_HTTP_BACKOFF"`
}

func (o HTTPOptions) withDefaults() HTTPOptions {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.ResponseHeader <= 0 {
		o.ResponseHeader = 20 * time.Second
	}
	if o.Retries < 0 {
		o.Retries = 0
	} else if o.Retries == 0 {
		o.Retries = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 2 * time.Second
	}
	return o
}

// BuildHTTPClient returns the client used for every Bot API call. Transient
// network failures are retried with linear backoff; see netutil.ShouldRetry.
func BuildHTTPClient(opts HTTPOptions) *http.Client {
	opts = opts.withDefaults()
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: opts.ResponseHeader,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: &retryTransport{base: transport, retries: opts.Retries, backoff: opts.Backoff},
	}
}

type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	for attempt := 1; attempt <= t.retries && err != nil && netutil.ShouldRetry(err); attempt++ {
		// A consumed body without GetBody cannot be replayed.
		if req.Body != nil && req.GetBody == nil {
			return nil, err
		}
		timer := time.NewTimer(t.backoff * time.Duration(attempt))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}

		next := req.Clone(req.Context())
		if req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, bodyErr
			}
			next.Body = body
		}
		resp, err = t.base.RoundTrip(next)
	}
	return resp, err
}
