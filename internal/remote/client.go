package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taskboard/internal/logger"
	"taskboard/internal/models/task"
	"taskboard/internal/repository"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxErrorBody = 4 << 10

// StatusError is a non-2xx answer from the task store.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: task store answered %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: task store answered %d", e.Op, e.StatusCode)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = timeout
	}
}

// WithListRetries sets how many times List is retried on network errors and 5xx answers.
func WithListRetries(n uint64) Option {
	return func(c *Client) {
		c.listRetries = n
	}
}

func WithBearerToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithOwnerFilter asks the store to list only ownerKey's tasks.
func WithOwnerFilter(ownerKey string) Option {
	return func(c *Client) {
		c.owner = ownerKey
	}
}

// Client talks to the task store over HTTP+JSON.
type Client struct {
	base        *url.URL
	http        *http.Client
	token       string
	owner       string
	listRetries uint64
	newBackOff  func() backoff.BackOff
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("parse store url: unsupported scheme %q", base.Scheme)
	}
	c := &Client{
		base: base,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
		listRetries: 3,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List fetches every task the store holds. Transient failures are retried with backoff.
func (c *Client) List(ctx context.Context) ([]task.Task, error) {
	path := "/tasks"
	if c.owner != "" {
		path += "?email=" + url.QueryEscape(c.owner)
	}
	var tasks []task.Task
	attempt := 0
	op := func() error {
		attempt++
		tasks = nil
		err := c.do(ctx, "list", http.MethodGet, path, nil, &tasks)
		if err == nil {
			return nil
		}
		var se *StatusError
		if errors.Is(err, repository.ErrNotFound) || (errors.As(err, &se) && !se.Temporary()) {
			return backoff.Permanent(err)
		}
		logger.Warn("Remote: list attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.listRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return tasks, nil
}

// Create sends t without an id and returns the store's copy. The store may answer with the
// task itself or wrapped as {"task": ...}.
func (c *Client) Create(ctx context.Context, t task.Task) (task.Task, error) {
	t.ID = ""
	var raw json.RawMessage
	if err := c.do(ctx, "create", http.MethodPost, "/tasks", t, &raw); err != nil {
		return task.Task{}, err
	}
	created, err := decodeCreated(raw)
	if err != nil {
		return task.Task{}, fmt.Errorf("create: %w", err)
	}
	if created.ID == "" {
		return task.Task{}, fmt.Errorf("create: store returned a task without id")
	}
	return created, nil
}

func (c *Client) Update(ctx context.Context, id string, t task.Task) (task.Task, error) {
	t.ID = id
	var updated task.Task
	if err := c.do(ctx, "update", http.MethodPut, "/tasks/"+url.PathEscape(id), t, &updated); err != nil {
		return task.Task{}, err
	}
	if updated.ID == "" {
		// Some stores only acknowledge the write.
		return t, nil
	}
	return updated, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete", http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	start := time.Now()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	logger.Debug("Remote: request done",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("ms", time.Since(start)))

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", op, path, repository.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func decodeCreated(raw json.RawMessage) (task.Task, error) {
	var wrapped struct {
		Task json.RawMessage `json:"task"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Task) > 0 && string(wrapped.Task) != "null" {
		raw = wrapped.Task
	}
	var t task.Task
	if err := json.Unmarshal(raw, &t); err != nil {
		return task.Task{}, fmt.Errorf("decode created task: %w", err)
	}
	return t, nil
}
