// Package api is the typed client for the shop backend REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

// ErrUnavailable is returned while the circuit breaker rejects calls.
var ErrUnavailable = errors.New("backend unavailable")

// errAbandoned marks a request the caller gave up on; it says nothing about
// the backend's health.
var errAbandoned = errors.New("request abandoned by caller")

// Error is a non-2xx backend response. Detail carries the FastAPI
// {"detail": ...} message when the body has one.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}

func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*response]
	sfg     singleflight.Group // collapses identical concurrent GETs
}

type Option func(*Client)

// WithHTTPClient replaces the default otelhttp-instrumented client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithBreakerSettings replaces the default breaker (5 consecutive failures,
// 30s open).
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(cl *Client) { cl.breaker = gobreaker.NewCircuitBreaker[*response](st) }
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api",
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		breaker: gobreaker.NewCircuitBreaker[*response](DefaultBreakerSettings()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func DefaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:    "shop-backend",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, errAbandoned)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
}

type response struct {
	status int
	body   []byte
}

// get collapses identical concurrent GETs. The shared request is detached
// from any single caller and bounded by the client timeout; each caller
// stops waiting when its own context ends.
func (c *Client) get(ctx context.Context, path string, out any) error {
	shared := context.WithoutCancel(ctx)
	ch := c.sfg.DoChan(path, func() (interface{}, error) {
		return c.send(shared, http.MethodGet, path, nil)
	})

	select {
	case <-ctx.Done():
		return fmt.Errorf("%s %s: %w", http.MethodGet, path, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return decode(res.Val.([]byte), out)
	}
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, in, out)
}

func (c *Client) put(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, in, out)
}

func (c *Client) delete(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	raw, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	return decode(raw, out)
}

// send runs one request through the breaker. Transport failures and 5xx
// responses count against the breaker. 4xx responses and requests whose
// context ended first do not.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	resp, err := c.breaker.Execute(func() (*response, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		httpResp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", errAbandoned, err)
			}
			return nil, err
		}
		defer httpResp.Body.Close()

		data, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		r := &response{status: httpResp.StatusCode, body: data}
		if r.status >= http.StatusInternalServerError {
			return nil, newError(r)
		}
		return r, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s %s: %w: %w", method, path, ErrUnavailable, err)
		}
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.status < 200 || resp.status >= 300 {
		return nil, fmt.Errorf("%s %s: %w", method, path, newError(resp))
	}
	return resp.body, nil
}

func newError(r *response) *Error {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	e := &Error{StatusCode: r.status}
	if err := json.Unmarshal(r.body, &payload); err != nil || len(payload.Detail) == 0 {
		e.Detail = strings.TrimSpace(string(r.body))
		return e
	}

	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		e.Detail = detail
		return e
	}
	// validation errors come back as a list
	e.Detail = string(payload.Detail)
	return e
}

func decode(data []byte, out any) error {
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
