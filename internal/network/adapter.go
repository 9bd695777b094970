// Package network defines the contract every affiliate network integration
// satisfies, plus the registry that turns configured credentials into adapters.
//
// Integrations live in their own packages:
//   - internal/impact:  Impact.com Mediapartners API
//   - internal/affbank: Affbank public offer directory (HTML)
//   - unimplemented.go: CJ, Awin and Partnerstack placeholders
package network

import (
	"context"

	"github.com/ignite/offer-finder/internal/domain"
)

// Adapter translates keyword queries into unified offers for one network.
type Adapter interface {
	// Network identifies the integration.
	Network() domain.Network

	// Capabilities reports optional operations without calling them.
	Capabilities() Capabilities

	// TestConnection verifies credentials and reachability. Auth and
	// transport failures are reported in the status, never as an error.
	TestConnection(ctx context.Context) domain.ConnectionStatus

	// SearchOffers returns up to limit offers matching keyword. Failures wrap
	// domain.ErrUnauthorized or domain.ErrNetworkUnavailable; an empty result
	// is a success.
	SearchOffers(ctx context.Context, keyword string, limit int) ([]domain.Offer, error)

	// GetOfferDetails fetches one enriched offer. Networks without a details
	// endpoint return domain.ErrNotImplemented.
	GetOfferDetails(ctx context.Context, offerID string) (domain.Offer, error)
}

// Capabilities lists the optional operations an adapter supports.
type Capabilities struct {
	Search       bool `json:"search"`
	OfferDetails bool `json:"offer_details"`
}
