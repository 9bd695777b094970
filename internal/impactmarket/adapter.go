package impactmarket

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/offer-finder/internal/domain"
	"github.com/ignite/offer-finder/internal/network"
	"github.com/ignite/offer-finder/internal/pkg/logger"
)

const defaultSearchLimit = 50

var _ network.Adapter = (*Client)(nil)

// Factory registers the directory with the network registry. No credentials
// are needed; enabled alone decides whether it joins the search set.
func Factory(config Config, enabled bool) network.Factory {
	return network.Factory{
		Network: domain.NetworkMarketplace,
		New: func(network.Credentials) (network.Adapter, error) {
			if !enabled {
				return nil, nil
			}
			return NewClient(config), nil
		},
	}
}

func (c *Client) Network() domain.Network { return domain.NetworkMarketplace }

func (c *Client) Capabilities() network.Capabilities {
	return network.Capabilities{Search: true}
}

// TestConnection checks that the first directory page answers.
func (c *Client) TestConnection(ctx context.Context) domain.ConnectionStatus {
	if _, err := c.fetchDocument(ctx, c.pageURL(1)); err != nil {
		return domain.ConnectionStatus{State: domain.ConnectionUnreachable, Message: err.Error()}
	}
	return domain.ConnectionStatus{State: domain.ConnectionOK}
}

// SearchOffers walks directory pages until limit programs whose name
// contains keyword are found, a page comes back empty, or the page cap.
// A failure on the first page fails the search; later failures keep what
// was collected.
func (c *Client) SearchOffers(ctx context.Context, keyword string, limit int) ([]domain.Offer, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	kw := strings.ToLower(strings.TrimSpace(keyword))
	start := time.Now()

	var offers []domain.Offer
	seen := make(map[string]bool)
	pages := 0

	for page := 1; page <= c.maxPages && len(offers) < limit; page++ {
		if page > 1 {
			if err := c.wait(ctx); err != nil {
				return nil, err
			}
		}

		doc, err := c.fetchDocument(ctx, c.pageURL(page))
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("impact marketplace search: %w", err)
			}
			logger.Warn("impact marketplace page failed, keeping earlier pages", "page", page, "error", err)
			break
		}
		pages++

		programs := parsePrograms(doc)
		if len(programs) == 0 {
			break
		}

		for _, p := range programs {
			if kw != "" && !strings.Contains(strings.ToLower(p.Name), kw) {
				continue
			}
			if seen[p.Slug] {
				continue
			}
			seen[p.Slug] = true
			offers = append(offers, c.toOffer(p))
			if len(offers) >= limit {
				break
			}
		}
	}

	logger.Info("impact marketplace search complete",
		"keyword", keyword,
		"matched", len(offers),
		"pages", pages,
		"duration_ms", time.Since(start).Milliseconds())
	return offers, nil
}

// GetOfferDetails is not offered by the directory.
func (c *Client) GetOfferDetails(ctx context.Context, offerID string) (domain.Offer, error) {
	return domain.Offer{}, fmt.Errorf("impact marketplace offer details: %w", domain.ErrNotImplemented)
}
