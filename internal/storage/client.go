// Package storage talks to the hosted file-storage service.
package storage

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

	"github.com/bryan-buckman/nutrihub/internal/model"
)

// ErrBucketNotFound is returned by GetBucket when the bucket does not exist.
var ErrBucketNotFound = errors.New("bucket not found")

const bucketPath = "/storage/v1/bucket"

// Client calls the storage REST API with a service key.
type Client struct {
	BaseURL    string
	ServiceKey string
	HTTP       *http.Client
}

// NewClient returns a client for the storage service at baseURL.
func NewClient(baseURL, serviceKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ServiceKey: serviceKey,
		HTTP:       &http.Client{Timeout: 15 * time.Second},
	}
}

// GetBucket fetches a bucket by id.
func (c *Client) GetBucket(ctx context.Context, id string) (*model.Bucket, error) {
	var b model.Bucket
	status, body, err := c.do(ctx, http.MethodGet, bucketPath+"/"+url.PathEscape(id), nil, &b)
	if err != nil {
		return nil, err
	}
	// The service answers 400 with a "not found" message for missing buckets.
	if status == http.StatusNotFound ||
		(status == http.StatusBadRequest && strings.Contains(strings.ToLower(string(body)), "not found")) {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, id)
	}
	if status >= 300 {
		return nil, fmt.Errorf("get bucket %s: status %d: %s", id, status, strings.TrimSpace(string(body)))
	}
	return &b, nil
}

// CreateBucket creates a bucket with the given settings.
func (c *Client) CreateBucket(ctx context.Context, b model.Bucket) error {
	if b.ID == "" {
		b.ID = b.Name
	}
	status, body, err := c.do(ctx, http.MethodPost, bucketPath, b, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("create bucket %s: status %d: %s", b.ID, status, strings.TrimSpace(string(body)))
	}
	slog.Info("[Storage] Bucket created", slog.String("bucket", b.ID))
	return nil
}

// do sends a JSON request. A 2xx body is decoded into out when out is set;
// other bodies are returned raw for the caller to interpret.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.ServiceKey)
	req.Header.Set("apikey", c.ServiceKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 300 && out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, data, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, data, nil
}
