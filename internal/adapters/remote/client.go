// Package remote implements the schedule Store over the REST API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trainingplan/internal/adapters/http/perf"
	domain "trainingplan/internal/domain/schedule"
)

// DefaultTimeout bounds each request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// SchedulePath is the API resource for the single schedule document.
const SchedulePath = "/api/schedule"

// NetworkError reports that the request never produced an HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: network error: %v", e.Op, SchedulePath, e.Err)
}

// Unwrap exposes both the cause and the storage sentinel.
func (e *NetworkError) Unwrap() []error {
	return []error{domain.ErrStorage, e.Err}
}

// Timeout reports whether the failure was a deadline.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// StatusError is a non-2xx response from the service.
type StatusError struct {
	Op      string
	Status  int
	Message string
	Detail  string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return fmt.Sprintf("%s %s: %d %s", e.Op, SchedulePath, e.Status, msg)
}

// Unwrap maps the status onto the domain error taxonomy.
func (e *StatusError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusBadRequest:
		return domain.ErrValidation
	default:
		return domain.ErrStorage
	}
}

// Client is a schedule Store backed by the remote service.
type Client struct {
	baseURL string
	http      *http.Client
	timeout   time.Duration
	collector *perf.Collector
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCollector records every round trip to collector.
func WithCollector(collector *perf.Collector) Option {
	return func(c *Client) { c.collector = collector }
}

// New creates a client for the service at baseURL.
// PRE: baseURL is an absolute http(s) URL
// POST: Returns a ready client or a configuration error
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get fetches the document.
// POST: 404 maps to ErrNotFound; absent fields are left zero for the caller to default
func (c *Client) Get(ctx context.Context) (domain.Document, error) {
	var doc domain.Document
	if err := c.do(ctx, http.MethodGet, nil, &doc); err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}

// Put replaces the document on the service.
// PRE: doc has a title and rows; checked locally before any request
func (c *Client) Put(ctx context.Context, doc domain.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", domain.ErrStorage, err)
	}
	return c.do(ctx, http.MethodPost, body, nil)
}

// Reset asks the service to restore the default document.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, nil, nil)
}

type messageBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method string, body []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+SchedulePath, reader)
	if err != nil {
		return &NetworkError{Op: method, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(method, 0, start)
		slog.Warn("remote_request_failed", "method", method, "error", err)
		return &NetworkError{Op: method, Err: err}
	}
	defer resp.Body.Close()
	c.observe(method, resp.StatusCode, start)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: method, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg messageBody
		_ = json.Unmarshal(data, &msg)
		return &StatusError{Op: method, Status: resp.StatusCode, Message: msg.Message, Detail: msg.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", domain.ErrStorage, method, err)
	}
	return nil
}

func (c *Client) observe(method string, status int, start time.Time) {
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	slog.Debug("remote_request", "method", method, "status", status, "duration_ms", durationMs)
	if c.collector == nil {
		return
	}
	c.collector.Record(perf.Entry{
		Kind:       perf.KindRemote,
		Path:       method + " " + SchedulePath,
		StatusCode: status,
		DurationMs: durationMs,
		Timestamp:  start,
	})
}
