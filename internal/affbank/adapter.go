package affbank

import (
	"context"
	"fmt"
	"strings"

	"github.com/ignite/offer-finder/internal/domain"
	"github.com/ignite/offer-finder/internal/network"
	"github.com/ignite/offer-finder/internal/pkg/logger"
)

const defaultSearchLimit = 50

var _ network.Adapter = (*Client)(nil)

// Factory registers the directory with the network registry. It needs no
// credentials, so enabled alone decides whether it joins the search set.
func Factory(config Config, enabled bool) network.Factory {
	return network.Factory{
		Network: domain.NetworkAffbank,
		New: func(network.Credentials) (network.Adapter, error) {
			if !enabled {
				return nil, nil
			}
			return NewClient(config), nil
		},
	}
}

func (c *Client) Network() domain.Network { return domain.NetworkAffbank }

func (c *Client) Capabilities() network.Capabilities {
	return network.Capabilities{Search: true}
}

// TestConnection checks that the directory index answers.
func (c *Client) TestConnection(ctx context.Context) domain.ConnectionStatus {
	if _, err := c.fetchDocument(ctx, c.offersURL("")); err != nil {
		return domain.ConnectionStatus{State: domain.ConnectionUnreachable, Message: err.Error()}
	}
	return domain.ConnectionStatus{State: domain.ConnectionOK}
}

// SearchOffers scrapes the directory search page. EPC and conversion rate
// are never published, so they stay unknown.
func (c *Client) SearchOffers(ctx context.Context, keyword string, limit int) ([]domain.Offer, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	keyword = strings.TrimSpace(keyword)

	doc, err := c.fetchDocument(ctx, c.offersURL(keyword))
	if err != nil {
		return nil, fmt.Errorf("affbank search: %w", err)
	}

	offers := c.parseOffers(doc, keyword, limit)
	logger.Info("affbank search complete", "keyword", keyword, "matched", len(offers))
	return offers, nil
}

// GetOfferDetails is not offered by the directory.
func (c *Client) GetOfferDetails(ctx context.Context, offerID string) (domain.Offer, error) {
	return domain.Offer{}, fmt.Errorf("affbank offer details: %w", domain.ErrNotImplemented)
}
