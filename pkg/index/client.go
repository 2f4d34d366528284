package index

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/glorpus-work/blendup/pkg/errors"
)

// DefaultUserAgent is sent with every index request.
const DefaultUserAgent = "blendup/1.0"

// Client fetches the index page.
type Client struct {
	client    *http.Client
	userAgent string
}

// NewClient creates an index client. A zero timeout leaves the net/http
// default (no timeout) in place.
func NewClient(timeout time.Duration, userAgent string) *Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// FetchIndex downloads the directory-listing page at baseURL and returns its
// body verbatim.
func (c *Client) FetchIndex(ctx context.Context, baseURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %w", errors.ErrNetwork, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: error connecting to %s: %w", errors.ErrNetwork, baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status code from %s: %d", errors.ErrNetwork, baseURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read index page: %w", errors.ErrNetwork, err)
	}
	return string(body), nil
}
