// Package selfupdate checks whether a newer release of blendup itself has
// been published.
package selfupdate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-version"

	"github.com/glorpus-work/blendup/pkg/errors"
)

// Defaults for the release feed.
const (
	DefaultFeedURL = "https://api.github.com/repos/glorpus-work/blendup/releases/latest"
	DefaultTimeout = 5 * time.Second
)

// ReleaseInfo is the subset of the release feed document blendup reads.
type ReleaseInfo struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Result describes the outcome of a check.
type Result struct {
	Current         string
	Latest          string
	ReleaseURL      string
	UpdateAvailable bool
}

// Checker queries the release feed.
type Checker struct {
	feedURL    string
	userAgent  string
	httpClient *http.Client
}

// Option configures a Checker.
type Option func(*Checker)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) {
		c.httpClient = client
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Checker) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewChecker creates a checker for feedURL; an empty URL selects DefaultFeedURL.
func NewChecker(feedURL string, opts ...Option) *Checker {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}
	c := &Checker{
		feedURL:    feedURL,
		userAgent:  "blendup-update-checker",
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check compares currentVersion with the latest published release.
// Development builds ("dev" or unparsable versions) are never reported as
// outdated.
func (c *Checker) Check(ctx context.Context, currentVersion string) (*Result, error) {
	release, err := c.fetchLatest(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Current:    currentVersion,
		Latest:     release.TagName,
		ReleaseURL: release.HTMLURL,
	}

	current, err := version.NewVersion(strings.TrimSpace(currentVersion))
	if err != nil {
		return res, nil
	}
	latest, err := version.NewVersion(strings.TrimSpace(release.TagName))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid release tag %q", errors.ErrNetwork, release.TagName)
	}
	res.UpdateAvailable = current.LessThan(latest)
	return res, nil
}

func (c *Checker) fetchLatest(ctx context.Context) (*ReleaseInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WrapKind(errors.ErrNetwork, err, "release feed request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: release feed returned status %d", errors.ErrNetwork, resp.StatusCode)
	}

	var release ReleaseInfo
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, errors.WrapKind(errors.ErrNetwork, err, "decode release feed")
	}
	return &release, nil
}
