// Package remote fetches emissions CSV files over HTTP.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotModified is returned when the server reports the cached copy is current.
var ErrNotModified = errors.New("remote dataset not modified")

// ServiceStats summarises a HEAD probe of the dataset URL.
type ServiceStats struct {
	URL           string `json:"url"`
	PingMS        int64  `json:"ping_ms"`
	StatusCode    int    `json:"status_code"`
	ContentLength int64  `json:"content_length"`
	LastModified  string `json:"last_modified,omitempty"`
	ETag          string `json:"etag,omitempty"`
}

// Client downloads a CSV with retries and remembers its ETag.
type Client struct {
	url    string
	client *resty.Client

	mu   sync.Mutex
	etag string
}

// NewClient creates a client for url. retries is the number of extra attempts
// after a failed request.
func NewClient(url string, timeout time.Duration, retries int) *Client {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(retries)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.SetRetryMaxWaitTime(5 * time.Second)
	client.SetHeader("User-Agent", "co2-dashboard")
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= http.StatusInternalServerError
	})

	return &Client{
		url:    strings.TrimSpace(url),
		client: client,
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// URL is the dataset address.
func (c *Client) URL() string { return c.url }

// Fetch downloads the CSV body. When conditional is true and the server
// answers 304 for the last seen ETag, ErrNotModified is returned.
func (c *Client) Fetch(ctx context.Context, conditional bool) ([]byte, error) {
	if !c.Enabled() {
		return nil, errors.New("remote dataset url not configured")
	}

	req := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")
	c.mu.Lock()
	if conditional && c.etag != "" {
		req.SetHeader("If-None-Match", c.etag)
	}
	c.mu.Unlock()

	resp, err := req.Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", c.url, err)
	}
	if resp.StatusCode() == http.StatusNotModified {
		return nil, ErrNotModified
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		body := resp.Body()
		if len(body) > 2048 {
			body = body[:2048]
		}
		return nil, fmt.Errorf("fetch %s: status=%d body=%s", c.url, resp.StatusCode(), strings.TrimSpace(string(body)))
	}

	if etag := resp.Header().Get("ETag"); etag != "" {
		c.mu.Lock()
		c.etag = etag
		c.mu.Unlock()
	}
	return resp.Body(), nil
}

// ServiceStats issues a HEAD request against the dataset URL.
func (c *Client) ServiceStats(ctx context.Context) (*ServiceStats, error) {
	if !c.Enabled() {
		return nil, errors.New("remote dataset url not configured")
	}
	start := time.Now()
	resp, err := c.client.R().SetContext(ctx).Head(c.url)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", c.url, err)
	}
	out := &ServiceStats{
		URL:           c.url,
		PingMS:        time.Since(start).Milliseconds(),
		StatusCode:    resp.StatusCode(),
		ContentLength: resp.RawResponse.ContentLength,
		LastModified:  resp.Header().Get("Last-Modified"),
		ETag:          resp.Header().Get("ETag"),
	}
	if resp.StatusCode() >= 400 {
		return out, fmt.Errorf("probe %s: status=%d", c.url, resp.StatusCode())
	}
	return out, nil
}
