// Package impactmarket discovers Impact.com brand programs a publisher can
// still apply to. Impact has no public marketplace API, so the affi.io
// directory of Impact programs is scraped page by page.
package impactmarket

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ignite/offer-finder/internal/domain"
	"github.com/ignite/offer-finder/internal/pkg/httpretry"
)

const (
	// DefaultBaseURL is the directory host.
	DefaultBaseURL = "https://affi.io"
	// DefaultSignupURL is where a publisher applies to a program.
	DefaultSignupURL = "https://app.impact.com/campaign-mediapartner-signup"

	directoryPath   = "/n/impactradius"
	defaultMaxPages = 10
	userAgent       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	maxBodySize     = 2 * 1024 * 1024
)

// Config holds the scraper settings
type Config struct {
	BaseURL    string
	SignupURL  string
	MaxPages   int
	PageDelay  time.Duration // pause between pages
	MaxRetries int
	Timeout    time.Duration
}

// Client scrapes the Impact program directory
type Client struct {
	baseURL    string
	signupURL  string
	maxPages   int
	pageDelay  time.Duration
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new directory scraper
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.SignupURL == "" {
		config.SignupURL = DefaultSignupURL
	}
	if config.MaxPages <= 0 {
		config.MaxPages = defaultMaxPages
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(config.BaseURL, "/"),
		signupURL: strings.TrimRight(config.SignupURL, "/"),
		maxPages:  config.MaxPages,
		pageDelay: config.PageDelay,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: config.Timeout,
		}, config.MaxRetries),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

func (c *Client) pageURL(page int) string {
	if page <= 1 {
		return c.baseURL + directoryPath
	}
	return fmt.Sprintf("%s%s?page=%d", c.baseURL, directoryPath, page)
}

func (c *Client) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w: %w", domain.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("HTTP %d: %w", resp.StatusCode, domain.ErrNetworkUnavailable)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return doc, nil
}

// wait pauses between pages, returning early if ctx ends.
func (c *Client) wait(ctx context.Context) error {
	if c.pageDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.pageDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
