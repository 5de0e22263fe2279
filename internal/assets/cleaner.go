// Package assets removes uploaded files (event and sponsor banners) from
// external object storage when the events that own them are archived.
package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Cleaner deletes an uploaded asset by its public URL.
type Cleaner interface {
	DeleteAsset(ctx context.Context, assetURL string) error
}

// NopCleaner ignores all delete requests. Used when no storage backend is
// configured.
type NopCleaner struct{}

func (NopCleaner) DeleteAsset(ctx context.Context, assetURL string) error {
	return nil
}

// HTTPCleaner deletes assets through the storage provider's object API.
// Asset URLs outside the configured base URL are ignored so the cleaner
// never issues deletes against third-party hosts.
type HTTPCleaner struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPCleaner creates a cleaner for the given storage endpoint.
func NewHTTPCleaner(baseURL, token string) *HTTPCleaner {
	return &HTTPCleaner{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// DeleteAsset issues a DELETE for the object behind the URL. A 404 from
// the storage provider counts as success.
func (c *HTTPCleaner) DeleteAsset(ctx context.Context, assetURL string) error {
	if !strings.HasPrefix(assetURL, c.baseURL+"/") {
		return nil
	}

	if _, err := url.Parse(assetURL); err != nil {
		return fmt.Errorf("invalid asset URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, assetURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("storage returned status %d", resp.StatusCode)
	}

	return nil
}
