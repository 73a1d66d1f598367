package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	internal_errors "github.com/studcollab/looped/shared/errors"
	"github.com/studcollab/looped/shared/logger"
	"github.com/studcollab/looped/shared/middleware/metrics"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	accessTokenCookie    = "accessToken"
	maxErrorBody         = 4 << 10
)

// APIClient struct handles all communication with the backend API.
// A client bound to a user (WithToken/WithCookies) is a copy; the zero-user
// client is shared.
type APIClient struct {
	BaseURL    string
	HttpClient *http.Client
	Timeout    time.Duration

	token   string
	cookies []*http.Cookie
}

func New(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HttpClient: &http.Client{},
		Timeout:    timeout,
	}
}

// WithToken returns a copy that authenticates as the token's owner.
func (c *APIClient) WithToken(token string) *APIClient {
	cp := *c
	cp.token = token
	return &cp
}

// WithCookies returns a copy that forwards cookies on every request.
func (c *APIClient) WithCookies(cookies ...*http.Cookie) *APIClient {
	cp := *c
	cp.cookies = append(append([]*http.Cookie{}, c.cookies...), cookies...)
	return &cp
}

type requestOption func(*http.Request)

func withIdempotencyKey(key string) requestOption {
	return func(r *http.Request) {
		if key != "" {
			r.Header.Set(IdempotencyKeyHeader, key)
		}
	}
}

// do is the single, unified helper for making API requests. Every call gets
// the client timeout; exceeding it is reported as the backend being
// unavailable.
func (c *APIClient) do(ctx context.Context, method, path string, in, out any, opts ...requestOption) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create API request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: c.token})
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	for _, opt := range opts {
		opt(req)
	}

	start := time.Now()
	resp, err := c.HttpClient.Do(req)
	if err != nil {
		metrics.BackendRequestDuration.WithLabelValues(method, "unavailable").Observe(time.Since(start).Seconds())
		logger.Log.Debug("backend request failed", "component", "apiclient", "method", method, "path", path, "error", err)
		return internal_errors.Unavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.BackendRequestDuration.WithLabelValues(method, strconv.Itoa(resp.StatusCode/100)+"xx").Observe(time.Since(start).Seconds())
		return statusError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		metrics.BackendRequestDuration.WithLabelValues(method, "ok").Observe(time.Since(start).Seconds())
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return internal_errors.Unavailable(fmt.Errorf("read response body: %w", err))
	}
	metrics.BackendRequestDuration.WithLabelValues(method, "ok").Observe(time.Since(start).Seconds())
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("cannot decode %s %s response: %w", method, path, err)
	}
	return nil
}

// statusError turns a non-2xx answer into an ErrorWithStatusCode. A JSON
// body with "message" or "error" is preferred over the raw text.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(raw))

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		switch {
		case payload.Message != "":
			msg = payload.Message
		case payload.Error != "":
			msg = payload.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &internal_errors.ErrorWithStatusCode{Message: msg, StatusCode: resp.StatusCode}
}
