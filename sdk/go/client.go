// Package nretracksdk is a thin HTTP client for the NRE task tracker API.
// It is the task service used by UIs and the CLI import/export commands:
// it synthesizes identifiers and creation timestamps for new records and
// translates transport failures into ConnectivityError so callers can
// show a retry banner instead of a generic failure.
package nretracksdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"nretrack/internal/csvcodec"
	"nretrack/internal/domain"
)

// Client is an NRE task tracker HTTP API client. Safe for concurrent
// use once constructed; do not mutate the fields after handing the
// client to other goroutines.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	breaker *gobreaker.CircuitBreaker
}

// New creates a client with sane defaults. The circuit breaker opens
// after a few consecutive transport failures so a dead server does not
// stall every subsequent UI action on a full timeout.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "nretrack-api",
			MaxRequests: 1,
			Timeout:     2 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 3
			},
		}),
	}
}

// ConnectivityError means the backing server was unreachable (or the
// breaker is open after repeated failures). Surfaced as a persistent
// banner with manual retry rather than an alert.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("server unreachable: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// ListTasks returns all tasks, createdAt descending.
func (c *Client) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var resp []domain.Task
	err := c.do(ctx, http.MethodGet, "tasks", nil, &resp)
	return resp, err
}

// CreateTask assigns a fresh id and creation timestamp, forwards the
// merged record, and returns the stored task.
func (c *Client) CreateTask(ctx context.Context, data domain.TaskFormData) (domain.Task, error) {
	t := domain.Task{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UnixMilli(),
	}.Merge(data)
	var resp domain.Task
	err := c.do(ctx, http.MethodPost, "tasks", t, &resp)
	return resp, err
}

// UpdateTask replaces the full record at the task's id.
func (c *Client) UpdateTask(ctx context.Context, t domain.Task) error {
	return c.do(ctx, http.MethodPut, "tasks/"+url.PathEscape(t.ID), t, nil)
}

// DeleteTask removes the record.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "tasks/"+url.PathEscape(id), nil, nil)
}

// Lists fetches the dropdown option lists.
func (c *Client) Lists(ctx context.Context) (domain.DropdownOptions, error) {
	var resp domain.DropdownOptions
	err := c.do(ctx, http.MethodGet, "lists", nil, &resp)
	return resp, err
}

// SaveLists replaces the dropdown option lists.
func (c *Client) SaveLists(ctx context.Context, lists domain.DropdownOptions) error {
	return c.do(ctx, http.MethodPost, "lists", lists, nil)
}

// Port returns the configured server port.
func (c *Client) Port(ctx context.Context) (int, error) {
	var resp struct {
		Port int `json:"port"`
	}
	err := c.do(ctx, http.MethodGet, "config", nil, &resp)
	return resp.Port, err
}

// SetPort persists a new server port, applied on restart.
func (c *Client) SetPort(ctx context.Context, port int) error {
	return c.do(ctx, http.MethodPost, "config", map[string]int{"port": port}, nil)
}

// NetworkInfo holds the LAN-reachable address for cross-device sharing.
type NetworkInfo struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

// NetworkInfo returns the best-guess LAN address of the server.
func (c *Client) NetworkInfo(ctx context.Context) (NetworkInfo, error) {
	var resp NetworkInfo
	err := c.do(ctx, http.MethodGet, "network-info", nil, &resp)
	return resp, err
}

// ImportCSV creates one task per valid CSV row, sequentially. Returns the
// number of tasks created; on error the earlier rows stay committed.
func (c *Client) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	return csvcodec.Import(ctx, r, func(ctx context.Context, data domain.TaskFormData) error {
		_, err := c.CreateTask(ctx, data)
		return err
	})
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	u := strings.TrimRight(c.BaseURL, "/") + "/api/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, u, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.breaker.Execute(func() (any, error) {
		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, &ConnectivityError{Err: err}
		}
		return resp, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return &ConnectivityError{Err: err}
		}
		return err
	}
	resp := res.(*http.Response)
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
