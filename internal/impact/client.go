// Package impact integrates the Impact.com Mediapartners API. Impact calls
// offers "campaigns"; commission terms live on the partner's contract.
package impact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ignite/offer-finder/internal/currency"
	"github.com/ignite/offer-finder/internal/domain"
	"github.com/ignite/offer-finder/internal/pkg/httpretry"
	"github.com/ignite/offer-finder/internal/pkg/logger"
	"github.com/ignite/offer-finder/internal/pkg/ratelimit"
)

// errResourceNotFound marks a 404. Only single-campaign lookups turn it into
// domain.ErrOfferNotFound; elsewhere a 404 is an ordinary API error.
var errResourceNotFound = errors.New("resource not found")

// Client is the Impact API client
type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	pageSize   int
	maxPages   int
	httpClient httpretry.HTTPDoer
	limiter    ratelimit.Limiter
	limitKey   string
	converter  *currency.Converter
}

// NewClient creates a new Impact API client
func NewClient(config Config) *Client {
	config = config.withDefaults()
	return &Client{
		baseURL:    config.BaseURL,
		accountSID: config.AccountSID,
		authToken:  config.AuthToken,
		pageSize:   config.PageSize,
		maxPages:   config.MaxPages,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: config.Timeout,
		}, config.MaxRetries),
		limitKey:  limitKey(config.AccountSID),
		converter: currency.NewConverter(nil),
	}
}

// limitKey names the request budget shared by every process using the same
// account. The SID is hashed so it never appears in Redis keys or logs.
func limitKey(accountSID string) string {
	sum := sha256.Sum256([]byte(accountSID))
	return "impact:" + hex.EncodeToString(sum[:8])
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// SetLimiter routes every request through a shared request budget.
func (c *Client) SetLimiter(l ratelimit.Limiter) {
	c.limiter = l
}

// SetConverter replaces the FX table used for non-USD payouts.
func (c *Client) SetConverter(conv *currency.Converter) {
	if conv != nil {
		c.converter = conv
	}
}

// doRequest performs an authenticated GET against the Impact API. Endpoints
// may be relative paths or the absolute URIs Impact returns for paging.
func (c *Client) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	if c.limiter != nil {
		allowed, err := c.limiter.Allow(ctx, c.limitKey)
		if !allowed {
			return nil, fmt.Errorf("rate limited: %w", domain.ErrNetworkUnavailable)
		}
		if err != nil {
			logger.Debug("impact rate limiter unavailable, continuing", "error", err)
		}
	}

	reqURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		reqURL = c.baseURL + endpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w: %w", domain.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w: %w", domain.ErrNetworkUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("API error (status %d): %w", resp.StatusCode, domain.ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("API error (status %d): %w", resp.StatusCode, errResourceNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("API error (status %d): %w", resp.StatusCode, domain.ErrNetworkUnavailable)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	return body, nil
}

func (c *Client) campaignsPath() string {
	return fmt.Sprintf("/Mediapartners/%s/Campaigns", url.PathEscape(c.accountSID))
}

// ListCampaigns fetches one page of active campaigns. endpoint is empty for
// the first page, or the @nextpageuri of the previous response.
func (c *Client) ListCampaigns(ctx context.Context, endpoint string) (*CampaignsResponse, error) {
	if endpoint == "" {
		q := url.Values{}
		q.Set("PageSize", fmt.Sprintf("%d", c.pageSize))
		q.Set("CampaignState", "ACTIVE")
		endpoint = c.campaignsPath() + "?" + q.Encode()
	}

	body, err := c.doRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var response CampaignsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse campaigns: %w", err)
	}
	return &response, nil
}

// GetCampaign fetches a single campaign
func (c *Client) GetCampaign(ctx context.Context, campaignID string) (*Campaign, error) {
	body, err := c.doRequest(ctx, c.campaignsPath()+"/"+url.PathEscape(campaignID))
	if errors.Is(err, errResourceNotFound) {
		return nil, fmt.Errorf("campaign %s: %w", campaignID, domain.ErrOfferNotFound)
	}
	if err != nil {
		return nil, err
	}

	var campaign Campaign
	if err := json.Unmarshal(body, &campaign); err != nil {
		return nil, fmt.Errorf("failed to parse campaign: %w", err)
	}
	return &campaign, nil
}

// GetContract fetches the contract behind a campaign's ContractUri
func (c *Client) GetContract(ctx context.Context, contractURI string) (*Contract, error) {
	body, err := c.doRequest(ctx, contractURI)
	if err != nil {
		return nil, err
	}

	var contract Contract
	if err := json.Unmarshal(body, &contract); err != nil {
		return nil, fmt.Errorf("failed to parse contract: %w", err)
	}
	return &contract, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
