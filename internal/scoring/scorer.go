// Package scoring rates offers for video-platform promotion.
//
// The score is the sum of three capped components:
//
//	EPC         0-40  linear in epc, saturating at EPCCeiling
//	Commission  0-30  linear in the normalized commission (see Normalize)
//	Conversion  0-30  linear in conversion rate, saturating at ConversionCeiling
//
// Missing metrics contribute 0 points, except an unknown conversion rate which
// contributes the fixed UnknownConversionPoints. Score never fails.
package scoring

import (
	"math"

	"github.com/ignite/offer-finder/internal/domain"
)

const (
	maxEPCPoints        = 40.0
	maxCommissionPoints = 30.0
	maxConversionPoints = 30.0
)

// Config holds the saturation points of each component.
type Config struct {
	EPCCeiling              float64 `yaml:"epc_ceiling"`                // USD per click worth full 40 points
	FlatCeiling             float64 `yaml:"flat_commission_ceiling"`    // USD per conversion worth full 30 points
	PercentCeiling          float64 `yaml:"percent_commission_ceiling"` // percent of sale worth full 30 points
	ConversionCeiling       float64 `yaml:"conversion_ceiling"`         // conversion rate (0..1) worth full 30 points
	UnknownConversionPoints float64 `yaml:"unknown_conversion_points"`
}

// DefaultConfig returns the production scoring curve.
func DefaultConfig() Config {
	return Config{
		EPCCeiling:              2.0,
		FlatCeiling:             60.0,
		PercentCeiling:          15.0,
		ConversionCeiling:       0.10,
		UnknownConversionPoints: 0,
	}
}

// Scorer maps an offer's metrics to a 0-100 score and tier.
type Scorer struct {
	config Config
}

// New creates a Scorer. Non-positive ceilings fall back to the defaults so the
// scoring function stays total.
func New(cfg Config) *Scorer {
	def := DefaultConfig()
	if !(cfg.EPCCeiling > 0) {
		cfg.EPCCeiling = def.EPCCeiling
	}
	if !(cfg.FlatCeiling > 0) {
		cfg.FlatCeiling = def.FlatCeiling
	}
	if !(cfg.PercentCeiling > 0) {
		cfg.PercentCeiling = def.PercentCeiling
	}
	if !(cfg.ConversionCeiling > 0) {
		cfg.ConversionCeiling = def.ConversionCeiling
	}
	cfg.UnknownConversionPoints = clamp(cfg.UnknownConversionPoints, 0, maxConversionPoints)
	return &Scorer{config: cfg}
}

// Config returns the effective configuration.
func (s *Scorer) Config() Config {
	return s.config
}

// Score returns the suitability score and its tier.
func (s *Scorer) Score(o domain.Offer) (int, domain.Tier) {
	b := s.Breakdown(o)
	return b.Total, domain.TierFor(b.Total)
}

// Apply returns a scored copy of the offer.
func (s *Scorer) Apply(o domain.Offer) domain.ScoredOffer {
	score, tier := s.Score(o)
	return domain.ScoredOffer{Offer: o, Score: score, Tier: tier}
}

// Breakdown holds the per-component points behind a score.
type Breakdown struct {
	EPC        float64 `json:"epc"`
	Commission float64 `json:"commission"`
	Conversion float64 `json:"conversion"`
	Total      int     `json:"total"`
}

// Breakdown computes each component and the clamped, rounded total.
func (s *Scorer) Breakdown(o domain.Offer) Breakdown {
	var b Breakdown

	if o.EPC != nil {
		b.EPC = maxEPCPoints * ratio(*o.EPC, s.config.EPCCeiling)
	}

	b.Commission = maxCommissionPoints * s.Normalize(o.Commission)

	if o.ConversionRate != nil {
		b.Conversion = maxConversionPoints * ratio(*o.ConversionRate, s.config.ConversionCeiling)
	} else {
		b.Conversion = s.config.UnknownConversionPoints
	}

	total := math.Round(b.EPC + b.Commission + b.Conversion)
	b.Total = int(clamp(total, 0, 100))
	return b
}

// Normalize places flat and percent commissions on one 0..1 scale: the share
// of the matching ceiling reached, capped at 1. Unknown commissions are 0.
func (s *Scorer) Normalize(c domain.Commission) float64 {
	switch c.Kind {
	case domain.CommissionFlat:
		return ratio(c.Value, s.config.FlatCeiling)
	case domain.CommissionPercent:
		return ratio(c.Value, s.config.PercentCeiling)
	default:
		return 0
	}
}

// ratio returns v/ceiling clamped to [0,1]; NaN counts as 0.
func ratio(v, ceiling float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	return clamp(v/ceiling, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
