// Package client talks to a running recap server over its JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/recap/internal/adapters/http/api"
	"github.com/okian/recap/internal/domain/model"
)

const defaultTimeout = 5 * time.Second

// Client wraps http.Client with the board routes.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Leaderboard fetches the current ranked view.
func (c *Client) Leaderboard(ctx context.Context) (api.ViewResponse, error) {
	var v api.ViewResponse
	err := c.do(ctx, http.MethodGet, "/api/leaderboard", "", nil, &v)
	return v, err
}

// Add requests a new default entry. key is the optional idempotency key.
func (c *Client) Add(ctx context.Context, key string) (api.MutationResponse, error) {
	var out api.MutationResponse
	err := c.do(ctx, http.MethodPost, "/api/cappers", key, nil, &out)
	return out, err
}

// Commit stores value into field of the targeted entry.
func (c *Client) Commit(ctx context.Context, key string, t model.Target, field, value string) (api.MutationResponse, error) {
	body, err := json.Marshal(api.CommitRequest{Field: field, Value: &value})
	if err != nil {
		return api.MutationResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}
	var out api.MutationResponse
	err = c.do(ctx, http.MethodPatch, targetPath(t), key, body, &out)
	return out, err
}

// Delete requests removal of the targeted entry.
func (c *Client) Delete(ctx context.Context, key string, t model.Target) (api.MutationResponse, error) {
	var out api.MutationResponse
	err := c.do(ctx, http.MethodDelete, targetPath(t), key, nil, &out)
	return out, err
}

// Import sends an export document. The server acknowledges every document
// it could read off the wire; duplicate reports a replayed key.
func (c *Client) Import(ctx context.Context, key string, doc []byte) (duplicate bool, err error) {
	var ack struct {
		Status    string `json:"status"`
		Duplicate bool   `json:"duplicate"`
	}
	err = c.do(ctx, http.MethodPost, "/api/import", key, doc, &ack)
	return ack.Duplicate, err
}

// Export downloads the board document verbatim.
func (c *Client) Export(ctx context.Context) ([]byte, error) {
	var raw json.RawMessage
	err := c.do(ctx, http.MethodGet, "/api/export", "", nil, &raw)
	return raw, err
}

func targetPath(t model.Target) string {
	if t.ByIndex {
		return "/api/rows/" + strconv.Itoa(t.Index)
	}
	return "/api/cappers/" + url.PathEscape(t.EntryID)
}

func (c *Client) do(ctx context.Context, method, path, key string, body []byte, dst any) error {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequest, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set(api.IdempotencyHeader, key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequest, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if raw, ok := dst.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: invalid response body: %w", ErrRequest, err)
	}
	return nil
}
