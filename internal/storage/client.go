package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client downloads objects from the storage provider's REST API using the
// project URL and a service-role key. Only the webhook path needs it.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewClient builds a storage client. The base URL is the project root, e.g.
// https://project.supabase.co; the object API lives under /storage/v1.
func NewClient(baseURL, serviceKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Download fetches one object from a bucket and returns its bytes.
func (c *Client) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("storage base URL is not configured")
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s",
		c.baseURL, url.PathEscape(bucket), escapeObjectPath(path))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build storage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage download failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("storage returned %d for %s/%s: %s",
			resp.StatusCode, bucket, path, strings.TrimSpace(string(body)))
	}

	return body, nil
}

// escapeObjectPath escapes each path segment while keeping the separators.
func escapeObjectPath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
