package impact

import (
	"context"
	"strings"

	"github.com/ignite/offer-finder/internal/domain"
	"github.com/ignite/offer-finder/internal/pkg/logger"
)

// matches is the case-insensitive substring check on name and description.
func matches(c Campaign, keyword string) bool {
	if keyword == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.CampaignName), keyword) ||
		strings.Contains(strings.ToLower(c.CampaignDescription), keyword)
}

// toOffer maps a campaign to the unified offer. Commission starts from the
// campaign-level action payout; enrichContract may refine it.
func (c *Client) toOffer(camp Campaign) domain.Offer {
	offer := domain.Offer{
		Network:     domain.NetworkImpact,
		ID:          string(camp.CampaignID),
		Name:        strings.TrimSpace(camp.CampaignName),
		Advertiser:  strings.TrimSpace(camp.AdvertiserName),
		Category:    camp.Category,
		Description: strings.TrimSpace(camp.CampaignDescription),
		URL:         camp.TrackingLink,
	}
	if offer.Name == "" {
		offer.Name = "Campaign " + offer.ID
	}
	if offer.URL == "" {
		offer.URL = camp.CampaignURL
	}

	if camp.Stats != nil {
		if camp.Stats.EPC.Valid {
			if epc, ok := c.usd(camp.Stats.EPC.Value, camp.Currency, offer.ID); ok {
				offer.EPC = domain.Float(epc)
			}
		}
		if camp.Stats.ConversionRate.Valid {
			offer.ConversionRate = domain.Float(camp.Stats.ConversionRate.Value / 100)
		}
	}

	if len(camp.Actions) > 0 && camp.Actions[0].Payout != nil {
		d := camp.Actions[0].Payout.Default
		code := d.Currency
		if code == "" {
			code = camp.Currency
		}
		if d.Amount.Valid && d.Amount.Value > 0 {
			if amount, ok := c.usd(d.Amount.Value, code, offer.ID); ok {
				offer.Commission = domain.FlatCommission(amount)
			}
		}
	}

	return offer
}

// enrichContract reads the first event payout of the campaign's contract.
// A percent rate wins over fixed payout groups. Failures leave the offer as
// it was.
func (c *Client) enrichContract(ctx context.Context, offer *domain.Offer, camp Campaign) {
	if camp.ContractURI == "" {
		return
	}

	contract, err := c.GetContract(ctx, camp.ContractURI)
	if err != nil {
		logger.Debug("impact contract unavailable", "campaign", offer.ID, "error", err)
		return
	}
	if len(contract.Terms.EventPayouts) == 0 {
		return
	}

	event := contract.Terms.EventPayouts[0]
	if event.DefaultPayoutRate.Valid && event.DefaultPayoutRate.Value > 0 {
		offer.Commission = domain.PercentCommission(event.DefaultPayoutRate.Value)
		return
	}
	if len(event.PayoutGroups) > 0 {
		g := event.PayoutGroups[0]
		if g.Payout.Valid && g.Payout.Value > 0 {
			if amount, ok := c.usd(g.Payout.Value, g.Currency, offer.ID); ok {
				offer.Commission = domain.FlatCommission(amount)
			}
		}
	}
}

// usd converts an amount, dropping it when the currency is unknown so a
// foreign amount is never read as dollars.
func (c *Client) usd(amount float64, code, campaignID string) (float64, bool) {
	v, ok := c.converter.ToUSD(amount, code)
	if !ok {
		logger.Warn("impact amount in unknown currency, ignoring", "campaign", campaignID, "currency", code)
	}
	return v, ok
}
