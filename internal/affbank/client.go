// Package affbank discovers offers from the Affbank public offer directory.
// There is no API: the directory's search page is fetched and its offer
// table scraped with goquery. No credentials are needed.
package affbank

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ignite/offer-finder/internal/domain"
	"github.com/ignite/offer-finder/internal/pkg/httpretry"
)

// DefaultBaseURL is the public directory host.
const DefaultBaseURL = "https://affbank.com"

const (
	userAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	maxBodySize = 2 * 1024 * 1024
)

// Config holds the scraper settings
type Config struct {
	BaseURL    string
	MaxRetries int
	Timeout    time.Duration
}

// Client scrapes the Affbank directory
type Client struct {
	baseURL    string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new directory scraper
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: config.Timeout,
		}, config.MaxRetries),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

func (c *Client) offersURL(keyword string) string {
	u := c.baseURL + "/offers/"
	if keyword != "" {
		u += "?search=" + url.QueryEscape(keyword)
	}
	return u
}

// fetchDocument GETs a directory page and parses it. Any non-200 answer or
// transport failure means the directory is unavailable.
func (c *Client) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

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
