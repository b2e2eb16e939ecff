package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobmatch/internal/domain/job"

	"github.com/araddon/dateparse"
)

const (
	userAgent       = "jobmatch/0.1 (+https://github.com/jobmatch)"
	maxResponseBody = 5 << 20
	retryBaseDelay  = 300 * time.Millisecond
)

// statusError is a non-2xx response. 4xx other than 429 is not retried.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("status %d", e.code)
	}
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

func httpHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept-Language": "en-US,en;q=0.9",
	}
}

// httpGetWithRetry GETs url up to attempts times with a linear backoff.
func httpGetWithRetry(ctx context.Context, client *http.Client, rawURL string, headers map[string]string, attempts int) ([]byte, error) {
	if attempts <= 0 {
		attempts = 1
	}
	if client == nil {
		client = http.DefaultClient
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i) * retryBaseDelay):
			}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		body, err := httpGetOnce(ctx, client, rawURL, headers)
		if err == nil {
			return body, nil
		}
		lastErr = err
		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return nil, err
		}
	}
	return nil, lastErr
}

func httpGetOnce(ctx context.Context, client *http.Client, rawURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range httpHeaders() {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(snippet))}
	}
	return readAllLimit(resp.Body, maxResponseBody)
}

func readAllLimit(r io.Reader, max int64) ([]byte, error) {
	lr := &io.LimitedReader{R: r, N: max + 1}
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > max {
		return nil, fmt.Errorf("response too large")
	}
	return b, nil
}

func pickNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// parsePosted returns the parsed date, or nil plus the original text when the
// value is not a recognizable date. The validator retries the raw text later.
func parsePosted(raw string) (*time.Time, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ""
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return nil, raw
	}
	t = t.UTC()
	return &t, ""
}

func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

func floatPtr(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}

// expandSearchURL fills {query} and {location} placeholders with escaped values.
func expandSearchURL(tmpl string, q Query) string {
	return strings.NewReplacer(
		"{query}", url.QueryEscape(strings.TrimSpace(q.SearchTerm)),
		"{location}", url.QueryEscape(strings.TrimSpace(q.Location)),
	).Replace(strings.TrimSpace(tmpl))
}

func hostFromBaseURL(base string) string {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil || u.Host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(u.Host); err == nil {
		return h
	}
	return u.Host
}

func absoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	b, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}

func capPostings(in []job.Posting, max int) []job.Posting {
	if max > 0 && len(in) > max {
		return in[:max]
	}
	return in
}
