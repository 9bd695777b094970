// Package aggregator fans a keyword search out to every configured network,
// then merges, scores, filters and ranks what comes back.
//
// One network failing never fails the search: its outcome is recorded in
// Result.Status and the other networks' offers are still returned. Only an
// invalid query or an empty network set is an error.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/offer-finder/internal/domain"
	"github.com/ignite/offer-finder/internal/network"
	"github.com/ignite/offer-finder/internal/pkg/logger"
	"github.com/ignite/offer-finder/internal/scoring"
)

// ErrUnknownNetwork is returned for detail lookups on a network outside the
// search set.
var ErrUnknownNetwork = errors.New("network not configured")

const (
	defaultRequestTimeout = 30 * time.Second
	defaultResultLimit    = 50
)

// Aggregator runs searches across a fixed set of adapters.
type Aggregator struct {
	adapters     []network.Adapter
	unconfigured []network.Unconfigured
	scorer       *scoring.Scorer
	timeout      time.Duration
	limit        int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithScorer sets the scorer. The default uses scoring.DefaultConfig.
func WithScorer(s *scoring.Scorer) Option {
	return func(a *Aggregator) {
		if s != nil {
			a.scorer = s
		}
	}
}

// WithRequestTimeout bounds each adapter call.
func WithRequestTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithResultLimit caps the offers requested from each network.
func WithResultLimit(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.limit = n
		}
	}
}

// WithUnconfigured records networks left out at setup so results can list them.
func WithUnconfigured(u []network.Unconfigured) Option {
	return func(a *Aggregator) {
		a.unconfigured = append([]network.Unconfigured(nil), u...)
	}
}

// New creates an aggregator over adapters. Their order is the merge order.
func New(adapters []network.Adapter, opts ...Option) *Aggregator {
	a := &Aggregator{
		adapters: append([]network.Adapter(nil), adapters...),
		scorer:   scoring.New(scoring.DefaultConfig()),
		timeout:  defaultRequestTimeout,
		limit:    defaultResultLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Networks lists the searched networks in order.
func (a *Aggregator) Networks() []domain.Network {
	out := make([]domain.Network, 0, len(a.adapters))
	for _, ad := range a.adapters {
		out = append(out, ad.Network())
	}
	return out
}

// Unconfigured lists the networks excluded at setup.
func (a *Aggregator) Unconfigured() []network.Unconfigured {
	return append([]network.Unconfigured(nil), a.unconfigured...)
}

// Adapters returns the adapters with their capabilities, in order.
func (a *Aggregator) Adapters() []network.Adapter {
	return append([]network.Adapter(nil), a.adapters...)
}

// Scorer returns the scorer used for ranking.
func (a *Aggregator) Scorer() *scoring.Scorer {
	return a.scorer
}

type fetchResult struct {
	index  int
	offers []domain.Offer
	err    error
	took   time.Duration
}

// Search runs q against every adapter concurrently. If ctx ends before all
// adapters answer, ctx.Err() is returned and partial results are discarded.
func (a *Aggregator) Search(ctx context.Context, q Query) (*Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if len(a.adapters) == 0 {
		return nil, domain.ErrNoNetworksConfigured
	}

	keyword := strings.TrimSpace(q.Keyword)
	runID := uuid.New()
	start := time.Now()

	logger.Info("search started", "run_id", runID.String(), "keyword", keyword, "networks", len(a.adapters))

	// Buffered so abandoned goroutines never block after a cancellation.
	results := make(chan fetchResult, len(a.adapters))
	var wg sync.WaitGroup

	for i, ad := range a.adapters {
		wg.Add(1)
		go func(i int, ad network.Adapter) {
			defer wg.Done()
			results <- a.fetch(ctx, i, ad, keyword)
		}(i, ad)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("search cancelled", "run_id", runID.String(), "error", ctx.Err())
		return nil, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fetched := make([]fetchResult, len(a.adapters))
	for range a.adapters {
		r := <-results
		fetched[r.index] = r
	}

	result := &Result{
		RunID:        runID,
		Keyword:      keyword,
		Networks:     a.Networks(),
		Status:       make(map[domain.Network]domain.NetworkStatus, len(a.adapters)),
		Unconfigured: a.Unconfigured(),
	}

	merged := a.merge(fetched, result.Status, runID)

	offers := make([]domain.ScoredOffer, 0, len(merged))
	for _, o := range merged {
		scored := a.scorer.Apply(o)
		if a.keep(q, scored) {
			offers = append(offers, scored)
		}
	}
	Sort(offers)

	result.Offers = offers
	result.Duration = time.Since(start)
	result.DurationMS = result.Duration.Milliseconds()

	logger.Info("search complete",
		"run_id", runID.String(),
		"keyword", keyword,
		"merged", len(merged),
		"returned", len(offers),
		"failed_networks", len(result.Failed()),
		"duration_ms", result.DurationMS)

	return result, nil
}

// fetch calls one adapter under its own timeout. A panic is reported as the
// network being unavailable, and so is an adapter that ignores its deadline.
func (a *Aggregator) fetch(ctx context.Context, i int, ad network.Adapter, keyword string) fetchResult {
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	offers, err := callWithin(callCtx, ad.Network(), func() ([]domain.Offer, error) {
		return ad.SearchOffers(callCtx, keyword, a.limit)
	})
	if err != nil {
		offers = nil
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrNetworkUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrNetworkUnavailable, err)
		}
	}
	return fetchResult{index: i, offers: offers, err: err, took: time.Since(start)}
}

// callWithin runs fn on its own goroutine and stops waiting once ctx ends.
// fn keeps running in the background until it returns; its answer is dropped.
func callWithin[T any](ctx context.Context, n domain.Network, fn func() (T, error)) (T, error) {
	type answer struct {
		value T
		err   error
	}

	ch := make(chan answer, 1)
	go func() {
		var ans answer
		defer func() {
			if r := recover(); r != nil {
				logger.Error("network adapter panicked", "network", n, "panic", fmt.Sprint(r))
				ans = answer{err: fmt.Errorf("adapter panic: %v: %w", r, domain.ErrNetworkUnavailable)}
			}
			ch <- ans
		}()
		ans.value, ans.err = fn()
	}()

	select {
	case ans := <-ch:
		return ans.value, ans.err
	case <-ctx.Done():
		var zero T
		logger.Warn("network did not answer in time", "network", n, "error", ctx.Err())
		return zero, fmt.Errorf("%s did not answer: %w: %w", n, domain.ErrNetworkUnavailable, ctx.Err())
	}
}

// merge concatenates results in adapter order, records per-network status and
// drops repeated (network, id) pairs keeping the first occurrence.
func (a *Aggregator) merge(fetched []fetchResult, status map[domain.Network]domain.NetworkStatus, runID uuid.UUID) []domain.Offer {
	seen := make(map[string]bool)
	var merged []domain.Offer

	for _, r := range fetched {
		ad := a.adapters[r.index]
		n := ad.Network()

		if r.err != nil {
			state := domain.SearchStateFor(r.err)
			logger.Warn("network search failed",
				"run_id", runID.String(), "network", n, "state", state,
				"error", r.err, "duration_ms", r.took.Milliseconds())
			status[n] = domain.NetworkStatus{State: state, Message: r.err.Error()}
			continue
		}

		st := domain.NetworkStatus{State: domain.SearchOK}
		invalid := 0
		offers := r.offers
		if len(offers) > a.limit {
			offers = offers[:a.limit]
		}
		for _, o := range offers {
			if o.Network == "" {
				o.Network = n
			}
			o = o.Normalize()
			if err := o.Validate(); err != nil {
				invalid++
				logger.Debug("dropping invalid offer", "network", n, "error", err)
				continue
			}
			if seen[o.Key()] {
				st.Duplicates++
				continue
			}
			seen[o.Key()] = true
			st.Count++
			merged = append(merged, o)
		}
		if invalid > 0 {
			st.Message = fmt.Sprintf("%d offers dropped as invalid", invalid)
		}
		status[n] = st

		logger.Info("network search ok",
			"run_id", runID.String(), "network", n,
			"offers", st.Count, "duplicates", st.Duplicates,
			"duration_ms", r.took.Milliseconds())
	}

	return merged
}

// keep applies the query thresholds. An unknown metric never satisfies a
// threshold on that metric.
func (a *Aggregator) keep(q Query, so domain.ScoredOffer) bool {
	if q.MinScore != nil && so.Score < *q.MinScore {
		return false
	}
	if q.MinEPC != nil {
		if so.EPC == nil || *so.EPC < *q.MinEPC {
			return false
		}
	}
	if q.MinCommission != nil {
		if !so.Commission.Known() || a.scorer.Normalize(so.Commission)*100 < *q.MinCommission {
			return false
		}
	}
	return true
}

// Sort orders offers by score and EPC descending (unknown EPC last), then by
// name, network and id ascending.
func Sort(offers []domain.ScoredOffer) {
	sort.SliceStable(offers, func(i, j int) bool {
		a, b := offers[i], offers[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if ea, eb := epcKey(a.EPC), epcKey(b.EPC); ea != eb {
			return ea > eb
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Network != b.Network {
			return a.Network < b.Network
		}
		return a.ID < b.ID
	})
}

func epcKey(epc *float64) float64 {
	if epc == nil {
		return -1
	}
	return *epc
}

// Details fetches one offer from a configured network and scores it.
func (a *Aggregator) Details(ctx context.Context, n domain.Network, offerID string) (domain.ScoredOffer, error) {
	offerID = strings.TrimSpace(offerID)
	if offerID == "" {
		return domain.ScoredOffer{}, fmt.Errorf("%w: offer id is required", domain.ErrInvalidQuery)
	}
	for _, ad := range a.adapters {
		if ad.Network() != n {
			continue
		}
		if !ad.Capabilities().OfferDetails {
			return domain.ScoredOffer{}, fmt.Errorf("%s offer details: %w", n, domain.ErrNotImplemented)
		}

		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		offer, err := callWithin(callCtx, n, func() (domain.Offer, error) {
			return ad.GetOfferDetails(callCtx, offerID)
		})
		if err != nil {
			return domain.ScoredOffer{}, err
		}
		return a.scorer.Apply(offer.Normalize()), nil
	}
	return domain.ScoredOffer{}, fmt.Errorf("%s: %w", n, ErrUnknownNetwork)
}

// TestConnections checks every adapter concurrently.
func (a *Aggregator) TestConnections(ctx context.Context) map[domain.Network]domain.ConnectionStatus {
	type connResult struct {
		network domain.Network
		status  domain.ConnectionStatus
	}

	results := make(chan connResult, len(a.adapters))
	var wg sync.WaitGroup

	for _, ad := range a.adapters {
		wg.Add(1)
		go func(ad network.Adapter) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			status, err := callWithin(callCtx, ad.Network(), func() (domain.ConnectionStatus, error) {
				return ad.TestConnection(callCtx), nil
			})
			if err != nil {
				status = domain.ConnectionStatus{State: domain.ConnectionUnreachable, Message: err.Error()}
			}
			results <- connResult{network: ad.Network(), status: status}
		}(ad)
	}

	wg.Wait()
	close(results)

	out := make(map[domain.Network]domain.ConnectionStatus, len(a.adapters))
	for p := range results {
		out[p.network] = p.status
		logger.Info("connection test", "network", p.network, "state", p.status.State)
	}
	return out
}
