// Package httpx is the JSON HTTP client shared by quote providers.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	clierr "github.com/ggonzalez94/solw/internal/errors"
	"go.uber.org/zap"
)

const (
	baseBackoff   = 120 * time.Millisecond
	maxBackoff    = 2 * time.Second
	maxRetryAfter = 5 * time.Second
)

type Client struct {
	httpClient *http.Client
	retries    int
	userAgent  string
	log        *zap.Logger
	wait       func(ctx context.Context, d time.Duration) error
}

func New(timeout time.Duration, retries int) *Client {
	if retries < 0 {
		retries = 0
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		retries:    retries,
		userAgent:  "solw",
		log:        zap.NewNop(),
		wait:       sleepCtx,
	}
}

// WithLogger returns a copy that logs retries and failures to log.
func (c *Client) WithLogger(log *zap.Logger) *Client {
	cp := *c
	if log == nil {
		log = zap.NewNop()
	}
	cp.log = log.Named("http")
	return &cp
}

func (c *Client) WithUserAgent(ua string) *Client {
	cp := *c
	if strings.TrimSpace(ua) != "" {
		cp.userAgent = ua
	}
	return &cp
}

// outcome is the result of a single round trip.
type outcome struct {
	header     http.Header
	err        error
	retryable  bool
	retryAfter time.Duration
}

// DoJSON sends req, retrying transport failures, 429 and 5xx responses, and
// decodes a 2xx body into out. A nil out discards the body.
func (c *Client) DoJSON(ctx context.Context, req *http.Request, out any) (http.Header, error) {
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	log := c.log.With(zap.String("method", req.Method), zap.String("host", req.URL.Host), zap.String("path", req.URL.Path))

	var last outcome
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			d := backoff(attempt)
			if last.retryAfter > d {
				d = last.retryAfter
			}
			log.Debug("retrying request", zap.Int("attempt", attempt), zap.Duration("wait", d), zap.Error(last.err))
			if err := c.wait(ctx, d); err != nil {
				return nil, cancelled(err)
			}
		}
		last = c.roundTrip(ctx, req, out, log)
		if last.err == nil || !last.retryable {
			return last.header, last.err
		}
	}
	log.Debug("giving up", zap.Int("attempts", c.retries+1), zap.Error(last.err))
	return last.header, last.err
}

func (c *Client) roundTrip(ctx context.Context, req *http.Request, out any, log *zap.Logger) outcome {
	clone := req.Clone(ctx)
	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return outcome{err: clierr.Wrap(clierr.CodeInternal, "clone request body", err)}
		}
		clone.Body = body
	}

	started := time.Now()
	resp, err := c.httpClient.Do(clone)
	if err != nil {
		if ctx.Err() != nil {
			return outcome{err: cancelled(ctx.Err())}
		}
		return outcome{err: mapNetError(err), retryable: true}
	}
	buf, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	log.Debug("response", zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(started)), zap.Int("bytes", len(buf)))
	if readErr != nil {
		return outcome{header: resp.Header, err: clierr.Wrap(clierr.CodeUnavailable, "read provider response", readErr), retryable: true}
	}

	res := classify(resp.StatusCode, buf)
	res.header = resp.Header
	if resp.StatusCode == http.StatusTooManyRequests {
		res.retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	}
	if res.err != nil || out == nil {
		return res
	}
	if len(bytes.TrimSpace(buf)) == 0 {
		res.err = clierr.New(clierr.CodeUnavailable, "provider returned empty response")
		return res
	}
	if err := json.Unmarshal(buf, out); err != nil {
		res.err = clierr.Wrap(clierr.CodeUnavailable, "decode provider JSON", err)
	}
	return res
}

// classify maps an HTTP status onto the CLI error taxonomy.
func classify(status int, body []byte) outcome {
	switch {
	case status >= 200 && status < 300:
		return outcome{}
	case status == http.StatusTooManyRequests:
		return outcome{err: clierr.New(clierr.CodeRateLimited, "provider rate limited request"), retryable: true}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return outcome{err: clierr.New(clierr.CodeAuth, "provider authentication failed")}
	case status >= http.StatusInternalServerError:
		return outcome{err: clierr.New(clierr.CodeUnavailable, fmt.Sprintf("provider unavailable (status %d)", status)), retryable: true}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		msg := "provider rejected request"
		if detail := errorDetail(body); detail != "" {
			msg += ": " + detail
		}
		return outcome{err: clierr.New(clierr.CodeUsage, msg)}
	default:
		return outcome{err: clierr.New(clierr.CodeUnsupported, fmt.Sprintf("provider returned unexpected status %d", status))}
	}
}

func DoBodyJSON(ctx context.Context, c *Client, method, url string, body []byte, headers map[string]string, out any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.DoJSON(ctx, req, out)
}

// errorDetail pulls a message out of Jupiter style error bodies.
func errorDetail(buf []byte) string {
	var body struct {
		Error     string `json:"error"`
		Message   string `json:"message"`
		ErrorCode string `json:"errorCode"`
	}
	if err := json.Unmarshal(buf, &body); err != nil {
		return ""
	}
	detail := strings.TrimSpace(body.Error)
	if detail == "" {
		detail = strings.TrimSpace(body.Message)
	}
	if body.ErrorCode != "" && detail != "" {
		detail = fmt.Sprintf("%s (%s)", detail, body.ErrorCode)
	}
	return detail
}

// parseRetryAfter accepts delta-seconds or an HTTP date. Waits are capped so
// a hostile header cannot stall the CLI.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(v); err == nil {
		d = at.Sub(now)
	}
	if d < 0 {
		return 0
	}
	if d > maxRetryAfter {
		return maxRetryAfter
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func cancelled(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return clierr.Wrap(clierr.CodeUnavailable, "provider timeout", err)
	}
	return clierr.Wrap(clierr.CodeInterrupted, "request cancelled", err)
}

func mapNetError(err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return clierr.Wrap(clierr.CodeUnavailable, "provider timeout", err)
	}
	return clierr.Wrap(clierr.CodeUnavailable, "provider request failed", err)
}

func backoff(attempt int) time.Duration {
	d := baseBackoff * time.Duration(1<<uint(attempt-1))
	if d > maxBackoff {
		d = maxBackoff
	}
	return d + time.Duration(rand.Intn(75))*time.Millisecond
}
