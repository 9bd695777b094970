package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/offer-finder/internal/aggregator"
	"github.com/ignite/offer-finder/internal/domain"
	"github.com/ignite/offer-finder/internal/export"
	"github.com/ignite/offer-finder/internal/network"
	"github.com/ignite/offer-finder/internal/pkg/httputil"
	"github.com/ignite/offer-finder/internal/pkg/logger"
)

// CSVUploader stores a CSV export and returns where it landed.
type CSVUploader interface {
	UploadCSV(ctx context.Context, key string, offers []domain.ScoredOffer) (string, error)
}

// Handlers contains HTTP handlers for the API
type Handlers struct {
	aggregator *aggregator.Aggregator
	uploader   CSVUploader
	startTime  time.Time
	now        func() time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(agg *aggregator.Aggregator, uploader CSVUploader) *Handlers {
	return &Handlers{
		aggregator: agg,
		uploader:   uploader,
		startTime:  time.Now(),
		now:        time.Now,
	}
}

// HealthCheck returns service health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if len(h.aggregator.Networks()) == 0 {
		status = "degraded"
	}

	httputil.OK(w, map[string]interface{}{
		"status":       status,
		"timestamp":    h.now(),
		"networks":     len(h.aggregator.Networks()),
		"unconfigured": len(h.aggregator.Unconfigured()),
		"uptime":       time.Since(h.startTime).Round(time.Second).String(),
	})
}

// NetworkInfo describes one configured network
type NetworkInfo struct {
	Network      domain.Network       `json:"network"`
	Name         string               `json:"name"`
	Capabilities network.Capabilities `json:"capabilities"`
}

// ListNetworks returns the configured and skipped networks
func (h *Handlers) ListNetworks(w http.ResponseWriter, r *http.Request) {
	configured := make([]NetworkInfo, 0, len(h.aggregator.Adapters()))
	for _, ad := range h.aggregator.Adapters() {
		configured = append(configured, NetworkInfo{
			Network:      ad.Network(),
			Name:         export.NetworkName(ad.Network()),
			Capabilities: ad.Capabilities(),
		})
	}

	unconfigured := h.aggregator.Unconfigured()
	if unconfigured == nil {
		unconfigured = []network.Unconfigured{}
	}

	httputil.OK(w, map[string]interface{}{
		"configured":   configured,
		"unconfigured": unconfigured,
	})
}

// TestConnections checks every configured network
func (h *Handlers) TestConnections(w http.ResponseWriter, r *http.Request) {
	results := h.aggregator.TestConnections(r.Context())

	healthy := 0
	for _, s := range results {
		if s.OK() {
			healthy++
		}
	}

	httputil.OK(w, map[string]interface{}{
		"results": results,
		"healthy": healthy,
		"total":   len(results),
	})
}

// Search runs a search from query parameters
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	h.search(w, r, q)
}

// SearchJSON runs a search from a JSON body
func (h *Handlers) SearchJSON(w http.ResponseWriter, r *http.Request) {
	var q aggregator.Query
	if !httputil.Decode(w, r, &q) {
		return
	}
	h.search(w, r, q)
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request, q aggregator.Query) {
	res, err := h.aggregator.Search(r.Context(), q)
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, res)
}

// ExportCSV runs a search and returns the ranked list as a CSV download
func (h *Handlers) ExportCSV(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		httputil.FromError(w, err)
		return
	}

	res, err := h.aggregator.Search(r.Context(), q)
	if err != nil {
		httputil.FromError(w, err)
		return
	}

	// Buffer so an encoding failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, res.Offers); err != nil {
		httputil.InternalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, csvFilename(res.Keyword)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Warn("csv export write failed", "error", err)
	}
}

// ExportRequest is the body of POST /api/search/export
type ExportRequest struct {
	aggregator.Query
	Key string `json:"key,omitempty"`
}

// ExportS3 runs a search and uploads the CSV to the export bucket
func (h *Handlers) ExportS3(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		httputil.ErrorCode(w, http.StatusServiceUnavailable, httputil.CodeExportDisabled, "s3 export is not configured")
		return
	}

	var req ExportRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	res, err := h.aggregator.Search(r.Context(), req.Query)
	if err != nil {
		httputil.FromError(w, err)
		return
	}

	key := strings.TrimSpace(req.Key)
	if key == "" {
		key = export.DefaultKey(res.Keyword, h.now())
	}

	uri, err := h.uploader.UploadCSV(r.Context(), key, res.Offers)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	logger.Info("search exported", "run_id", res.RunID, "uri", uri, "offers", len(res.Offers))
	httputil.OK(w, map[string]interface{}{
		"run_id": res.RunID,
		"uri":    uri,
		"offers": len(res.Offers),
	})
}

// GetOfferDetails returns one scored offer from a network
func (h *Handlers) GetOfferDetails(w http.ResponseWriter, r *http.Request) {
	n := domain.Network(strings.ToLower(chi.URLParam(r, "network")))
	offerID := chi.URLParam(r, "offerID")

	offer, err := h.aggregator.Details(r.Context(), n, offerID)
	if err != nil {
		if errors.Is(err, aggregator.ErrUnknownNetwork) {
			httputil.NotFound(w, fmt.Sprintf("network %q is not configured", n))
			return
		}
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, offer)
}

// parseQuery reads keyword and the optional thresholds from the URL.
// Malformed numbers are rejected rather than ignored.
func parseQuery(r *http.Request) (aggregator.Query, error) {
	v := r.URL.Query()

	q := aggregator.Query{Keyword: v.Get("keyword")}
	if q.Keyword == "" {
		q.Keyword = v.Get("q")
	}

	if s := v.Get("min_score"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, fmt.Errorf("%w: min_score %q is not an integer", domain.ErrInvalidQuery, s)
		}
		q.MinScore = &n
	}

	var err error
	if q.MinEPC, err = parseFloatParam(v.Get("min_epc"), "min_epc"); err != nil {
		return q, err
	}
	if q.MinCommission, err = parseFloatParam(v.Get("min_commission"), "min_commission"); err != nil {
		return q, err
	}
	return q, nil
}

func parseFloatParam(s, name string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q is not a number", domain.ErrInvalidQuery, name, s)
	}
	return &f, nil
}

func csvFilename(keyword string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(keyword)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "offers.csv"
	}
	return "offers-" + b.String() + ".csv"
}
