package impact

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ignite/offer-finder/internal/currency"
	"github.com/ignite/offer-finder/internal/domain"
	"github.com/ignite/offer-finder/internal/network"
	"github.com/ignite/offer-finder/internal/pkg/logger"
	"github.com/ignite/offer-finder/internal/pkg/ratelimit"
)

// Credential field names
const (
	FieldAccountSID = "account_sid"
	FieldAuthToken  = "auth_token"
	FieldBaseURL    = "base_url"
)

const defaultSearchLimit = 50

var _ network.Adapter = (*Client)(nil)

// Factory registers Impact with the network registry. Credential fields
// override the matching values in base.
func Factory(base Config, limiter ratelimit.Limiter, conv *currency.Converter) network.Factory {
	return network.Factory{
		Network:  domain.NetworkImpact,
		Required: []string{FieldAccountSID, FieldAuthToken},
		New: func(creds network.Credentials) (network.Adapter, error) {
			cfg := base
			cfg.AccountSID = creds.Get(FieldAccountSID)
			cfg.AuthToken = creds.Get(FieldAuthToken)
			if v := creds.Get(FieldBaseURL); v != "" {
				cfg.BaseURL = v
			}
			if cfg.BaseURL != "" {
				u, err := url.Parse(cfg.BaseURL)
				if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
					return nil, fmt.Errorf("invalid base_url %q", cfg.BaseURL)
				}
			}

			client := NewClient(cfg)
			if limiter != nil {
				client.SetLimiter(limiter)
			}
			client.SetConverter(conv)
			return client, nil
		},
	}
}

func (c *Client) Network() domain.Network { return domain.NetworkImpact }

func (c *Client) Capabilities() network.Capabilities {
	return network.Capabilities{Search: true, OfferDetails: true}
}

// TestConnection requests a single campaign to validate the credentials.
func (c *Client) TestConnection(ctx context.Context) domain.ConnectionStatus {
	_, err := c.doRequest(ctx, c.campaignsPath()+"?PageSize=1")
	switch {
	case err == nil:
		return domain.ConnectionStatus{State: domain.ConnectionOK}
	case errors.Is(err, domain.ErrUnauthorized):
		return domain.ConnectionStatus{State: domain.ConnectionUnauthorized, Message: "credentials rejected"}
	default:
		return domain.ConnectionStatus{State: domain.ConnectionUnreachable, Message: err.Error()}
	}
}

// SearchOffers pages through active campaigns, keeping those whose name or
// description contains keyword, until limit matches or the page cap.
func (c *Client) SearchOffers(ctx context.Context, keyword string, limit int) ([]domain.Offer, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	kw := strings.ToLower(strings.TrimSpace(keyword))
	start := time.Now()

	var offers []domain.Offer
	scanned, pages := 0, 0
	next := ""

	for pages < c.maxPages && len(offers) < limit {
		page, err := c.ListCampaigns(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("impact search: %w", err)
		}
		pages++

		for _, camp := range page.Campaigns {
			scanned++
			if !matches(camp, kw) {
				continue
			}
			offer := c.toOffer(camp)
			c.enrichContract(ctx, &offer, camp)
			offers = append(offers, offer.Normalize())
			if len(offers) >= limit {
				break
			}
		}

		next = page.NextPageURI
		if next == "" {
			break
		}
	}

	logger.Info("impact search complete",
		"keyword", keyword,
		"matched", len(offers),
		"scanned", scanned,
		"pages", pages,
		"duration_ms", time.Since(start).Milliseconds())

	return offers, nil
}

// GetOfferDetails fetches one campaign with contract terms applied.
func (c *Client) GetOfferDetails(ctx context.Context, offerID string) (domain.Offer, error) {
	offerID = strings.TrimSpace(offerID)
	if offerID == "" {
		return domain.Offer{}, fmt.Errorf("%w: empty campaign id", domain.ErrInvalidQuery)
	}

	camp, err := c.GetCampaign(ctx, offerID)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("impact offer details %s: %w", offerID, err)
	}
	if camp.CampaignID == "" {
		camp.CampaignID = Text(offerID)
	}

	offer := c.toOffer(*camp)
	c.enrichContract(ctx, &offer, *camp)
	return offer.Normalize(), nil
}
