package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// The vendor rejects requests without a browser-looking user agent.
const userAgent = "Mozilla/5.0 (Linux; Android 12) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/101.0.4951.15 Mobile Safari/537.36"

const (
	retryCount        = 3
	retryWaitTime     = 500 * time.Millisecond
	retryMaxWaitTime  = 5 * time.Second
	defaultReqTimeout = 30 * time.Second
)

// Transport executes single HTTP calls against the vendor cloud with
// uniform error classification and bounded retry. Transient failures
// (connection errors, 429 and 5xx statuses) are retried with
// exponential backoff; other 4xx statuses indicate a request-shape
// problem and fail immediately.
type Transport struct {
	rest    *resty.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// NewRestClient builds the resty client shared by Transport and
// SessionManager. Its cookie jar carries the session artifact.
func NewRestClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = defaultReqTimeout
	}

	r := resty.New()
	r.SetBaseURL(baseURL)
	r.SetHeader("Content-Type", "application/json; charset=UTF-8")
	r.SetHeader("User-Agent", userAgent)
	r.SetTimeout(timeout)
	r.SetRetryCount(retryCount)
	r.SetRetryWaitTime(retryWaitTime)
	r.SetRetryMaxWaitTime(retryMaxWaitTime)
	r.AddRetryCondition(func(resp *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return retryableStatus(resp.StatusCode())
	})

	return r
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func NewTransport(rest *resty.Client, limiter *rate.Limiter, logger *logrus.Logger) *Transport {
	if limiter == nil {
		limiter = rate.NewLimiter(5, 10)
	}
	return &Transport{rest: rest, limiter: limiter, logger: logger}
}

// GetJSON issues a GET and decodes a structured response into out.
func (t *Transport) GetJSON(ctx context.Context, path string, out interface{}) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return &TransportError{Path: path, Err: err}
	}
	resp, err := t.rest.R().SetContext(ctx).SetResult(out).Get(path)
	return t.check(resp, err, path)
}

// GetRaw issues a GET and returns the body and content type without
// decoding, for endpoints that do not reliably report structured data.
func (t *Transport) GetRaw(ctx context.Context, url string) ([]byte, string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, "", &TransportError{Path: url, Err: err}
	}
	resp, err := t.rest.R().SetContext(ctx).Get(url)
	if err := t.check(resp, err, url); err != nil {
		return nil, "", err
	}
	return resp.Body(), resp.Header().Get("Content-Type"), nil
}

// PostJSON issues a write. The vendor returns no meaningful success
// body for writes, so only the status is classified. A failed write is
// always surfaced: callers must treat it as unknown outcome and
// re-poll to confirm.
func (t *Transport) PostJSON(ctx context.Context, path string, body interface{}) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return &TransportError{Path: path, Err: err}
	}
	resp, err := t.rest.R().SetContext(ctx).SetBody(body).Post(path)
	return t.check(resp, err, path)
}

func (t *Transport) PutJSON(ctx context.Context, path string, body interface{}) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return &TransportError{Path: path, Err: err}
	}
	resp, err := t.rest.R().SetContext(ctx).SetBody(body).Put(path)
	return t.check(resp, err, path)
}

func (t *Transport) Delete(ctx context.Context, path string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return &TransportError{Path: path, Err: err}
	}
	resp, err := t.rest.R().SetContext(ctx).Delete(path)
	return t.check(resp, err, path)
}

func (t *Transport) check(resp *resty.Response, err error, path string) error {
	path = trimQuery(path)
	if err != nil {
		t.logger.WithFields(logrus.Fields{"path": path}).WithError(err).Debug("API request error")
		return &TransportError{Path: path, Err: err}
	}
	if resp.IsError() {
		t.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode(),
			"path":   path,
		}).Debug("API request failed")
		return &TransportError{Status: resp.StatusCode(), Path: path}
	}
	t.logger.WithFields(logrus.Fields{
		"status": resp.StatusCode(),
		"path":   path,
	}).Debug("API request")
	return nil
}

// trimQuery keeps credentials and cursor values out of the logs.
func trimQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
