package realtime

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Client fetches GTFS-RT protobuf data from a URL or a local file.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a client whose HTTP requests time out after timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch returns the raw protobuf bytes of src, which is either an http(s) URL or a
// file path. It returns nil if src is empty.
func (c *Client) Fetch(ctx context.Context, src string) ([]byte, error) {
	if src == "" {
		return nil, nil
	}
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		b, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", src, err)
		}
		return b, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", src, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, src)
	}

	return io.ReadAll(resp.Body)
}

// FetchAll fetches the trip updates and alerts feeds. Empty sources are skipped and
// return nil for that feed.
func (c *Client) FetchAll(ctx context.Context, tripUpdates, alerts string) ([]byte, []byte, error) {
	tu, err := c.Fetch(ctx, tripUpdates)
	if err != nil {
		return nil, nil, fmt.Errorf("trip updates: %w", err)
	}

	sa, err := c.Fetch(ctx, alerts)
	if err != nil {
		return nil, nil, fmt.Errorf("service alerts: %w", err)
	}

	return tu, sa, nil
}
