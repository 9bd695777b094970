package domain

import (
	"fmt"
	"math"
)

// Network identifies the affiliate network an offer came from.
type Network string

const (
	NetworkImpact       Network = "impact"
	NetworkCJ           Network = "cj"
	NetworkAwin         Network = "awin"
	NetworkPartnerstack Network = "partnerstack"
	NetworkAffbank      Network = "affbank"
	NetworkMarketplace  Network = "impact_marketplace"
)

// CommissionKind tags how a Commission value must be read.
type CommissionKind string

const (
	CommissionUnknown CommissionKind = ""
	CommissionFlat    CommissionKind = "flat"    // USD per conversion
	CommissionPercent CommissionKind = "percent" // percent of sale, 0-100
)

// Commission is the payout per conversion. The kind is resolved once by the
// adapter that built the offer and never inferred downstream.
type Commission struct {
	Kind  CommissionKind `json:"kind"`
	Value float64        `json:"value"`
}

// FlatCommission returns a flat USD commission.
func FlatCommission(usd float64) Commission {
	return Commission{Kind: CommissionFlat, Value: usd}
}

// PercentCommission returns a percent-of-sale commission.
func PercentCommission(pct float64) Commission {
	return Commission{Kind: CommissionPercent, Value: pct}
}

// Known reports whether the commission carries a value.
func (c Commission) Known() bool {
	return c.Kind == CommissionFlat || c.Kind == CommissionPercent
}

// String renders the commission the way the export layer prints it.
func (c Commission) String() string {
	switch c.Kind {
	case CommissionFlat:
		return fmt.Sprintf("%.2f", c.Value)
	case CommissionPercent:
		return fmt.Sprintf("%.2f%%", c.Value)
	default:
		return ""
	}
}

// Offer is the unified representation of one affiliate offer, independent of
// its source network. Offers are built by network adapters and treated as
// immutable values afterwards.
type Offer struct {
	Network        Network    `json:"network"`
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Advertiser     string     `json:"advertiser,omitempty"`
	EPC            *float64   `json:"epc"` // USD, nil when the network doesn't report it
	Commission     Commission `json:"commission"`
	ConversionRate *float64   `json:"conversion_rate"` // 0..1, nil when unavailable
	Category       string     `json:"category,omitempty"`
	Description    string     `json:"description,omitempty"`
	URL            string     `json:"url"`
}

// Key returns the (network, id) pair that identifies the offer within one
// aggregation run.
func (o Offer) Key() string {
	return string(o.Network) + ":" + o.ID
}

// Validate reports the first data-model violation on the offer.
func (o Offer) Validate() error {
	if o.Network == "" {
		return fmt.Errorf("offer %q: missing network", o.ID)
	}
	if o.ID == "" {
		return fmt.Errorf("offer from %s: missing id", o.Network)
	}
	if o.EPC != nil && (*o.EPC < 0 || math.IsNaN(*o.EPC)) {
		return fmt.Errorf("offer %s: negative epc %v", o.Key(), *o.EPC)
	}
	if o.ConversionRate != nil {
		cr := *o.ConversionRate
		if cr < 0 || cr > 1 || math.IsNaN(cr) {
			return fmt.Errorf("offer %s: conversion rate %v outside [0,1]", o.Key(), cr)
		}
	}
	if o.Commission.Known() && (o.Commission.Value < 0 || math.IsNaN(o.Commission.Value)) {
		return fmt.Errorf("offer %s: negative commission %v", o.Key(), o.Commission.Value)
	}
	return nil
}

// Normalize returns a copy with metrics forced into the data-model ranges.
// Negative or NaN metrics become unknown, conversion rates above 1 are capped.
func (o Offer) Normalize() Offer {
	out := o
	if o.EPC != nil {
		if v := *o.EPC; v < 0 || math.IsNaN(v) {
			out.EPC = nil
		} else {
			out.EPC = Float(v)
		}
	}
	if o.ConversionRate != nil {
		v := *o.ConversionRate
		switch {
		case v < 0 || math.IsNaN(v):
			out.ConversionRate = nil
		case v > 1:
			out.ConversionRate = Float(1)
		default:
			out.ConversionRate = Float(v)
		}
	}
	if o.Commission.Known() && (o.Commission.Value < 0 || math.IsNaN(o.Commission.Value)) {
		out.Commission = Commission{}
	}
	return out
}

// Float returns a pointer to v. Handy for optional metrics.
func Float(v float64) *float64 {
	return &v
}

// Tier is the qualitative bucket derived from a score.
type Tier string

const (
	TierExcellent       Tier = "excellent"
	TierGood            Tier = "good"
	TierNeedsEvaluation Tier = "needs_evaluation"
)

// TierFor maps a 0-100 score to its tier.
func TierFor(score int) Tier {
	switch {
	case score >= 80:
		return TierExcellent
	case score >= 60:
		return TierGood
	default:
		return TierNeedsEvaluation
	}
}

// ScoredOffer is an Offer with its suitability score attached. The aggregator
// builds these; adapter-returned offers are left untouched.
type ScoredOffer struct {
	Offer
	Score int  `json:"score"`
	Tier  Tier `json:"tier"`
}
