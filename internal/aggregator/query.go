package aggregator

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/offer-finder/internal/domain"
	"github.com/ignite/offer-finder/internal/network"
)

// Query is one search request. Nil thresholds are not applied.
type Query struct {
	Keyword       string   `json:"keyword"`
	MinScore      *int     `json:"min_score,omitempty"`
	MinEPC        *float64 `json:"min_epc,omitempty"`
	MinCommission *float64 `json:"min_commission,omitempty"` // 0-100 normalized commission index
}

// Validate checks the query before any network is contacted.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Keyword) == "" {
		return fmt.Errorf("%w: keyword is required", domain.ErrInvalidQuery)
	}
	if q.MinScore != nil && (*q.MinScore < 0 || *q.MinScore > 100) {
		return fmt.Errorf("%w: min_score %d outside 0-100", domain.ErrInvalidQuery, *q.MinScore)
	}
	if q.MinEPC != nil {
		v := *q.MinEPC
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: min_epc must be a non-negative number", domain.ErrInvalidQuery)
		}
	}
	if q.MinCommission != nil {
		v := *q.MinCommission
		if math.IsNaN(v) || v < 0 || v > 100 {
			return fmt.Errorf("%w: min_commission must be within 0-100", domain.ErrInvalidQuery)
		}
	}
	return nil
}

// Result is the outcome of one aggregation run.
type Result struct {
	RunID        uuid.UUID                               `json:"run_id"`
	Keyword      string                                  `json:"keyword"`
	Offers       []domain.ScoredOffer                    `json:"offers"`
	Networks     []domain.Network                        `json:"networks"`
	Status       map[domain.Network]domain.NetworkStatus `json:"network_status"`
	Unconfigured []network.Unconfigured                  `json:"unconfigured"`
	Duration     time.Duration                           `json:"-"`
	DurationMS   int64                                   `json:"duration_ms"`
}

// Failed lists the searched networks that did not answer successfully, in
// search order.
func (r *Result) Failed() []domain.Network {
	var out []domain.Network
	for _, n := range r.Networks {
		if r.Status[n].State != domain.SearchOK {
			out = append(out, n)
		}
	}
	return out
}
