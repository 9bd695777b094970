package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ignite/offer-finder/internal/aggregator"
	"github.com/ignite/offer-finder/internal/config"
	"github.com/ignite/offer-finder/internal/domain"
	"github.com/ignite/offer-finder/internal/export"
	"github.com/ignite/offer-finder/internal/impact"
	"github.com/ignite/offer-finder/internal/network"
	"github.com/ignite/offer-finder/internal/pkg/httputil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	network domain.Network
	offers  []domain.Offer
	err     error
	keyword string
}

func (s *stubAdapter) Network() domain.Network { return s.network }

func (s *stubAdapter) Capabilities() network.Capabilities {
	return network.Capabilities{Search: true, OfferDetails: true}
}

func (s *stubAdapter) TestConnection(ctx context.Context) domain.ConnectionStatus {
	return domain.ConnectionStatus{State: domain.ConnectionOK}
}

func (s *stubAdapter) SearchOffers(ctx context.Context, keyword string, limit int) ([]domain.Offer, error) {
	s.keyword = keyword
	return s.offers, s.err
}

func (s *stubAdapter) GetOfferDetails(ctx context.Context, id string) (domain.Offer, error) {
	for _, o := range s.offers {
		if o.ID == id {
			return o, nil
		}
	}
	return domain.Offer{}, domain.ErrNetworkUnavailable
}

type fakeS3 struct {
	key  string
	body []byte
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.key = *params.Key
	f.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, nil
}

func impactStub() *stubAdapter {
	return &stubAdapter{
		network: domain.NetworkImpact,
		offers: []domain.Offer{
			{Network: domain.NetworkImpact, ID: "1", Name: "Low VPN", EPC: domain.Float(0.5), URL: "https://example.com/low"},
			{Network: domain.NetworkImpact, ID: "2", Name: "Top VPN", EPC: domain.Float(2.0), Commission: domain.FlatCommission(40), URL: "https://example.com/top"},
		},
	}
}

func newTestServer(t *testing.T, uploader CSVUploader, adapters ...network.Adapter) *Server {
	t.Helper()
	agg := aggregator.New(adapters,
		aggregator.WithRequestTimeout(time.Second),
		aggregator.WithUnconfigured([]network.Unconfigured{{Network: domain.NetworkAwin, Reason: "missing api_key"}}),
	)
	return NewServer(config.ServerConfig{}, agg, uploader)
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, nil, impactStub())
	rec := do(t, s, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.EqualValues(t, 1, body["networks"])
}

func TestHealthCheckDegradedWithoutNetworks(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/health", "")

	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "degraded", body["status"])
}

func TestListNetworks(t *testing.T) {
	s := newTestServer(t, nil, impactStub(), network.NewUnimplemented(domain.NetworkCJ))
	rec := do(t, s, http.MethodGet, "/api/networks", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Configured   []NetworkInfo          `json:"configured"`
		Unconfigured []network.Unconfigured `json:"unconfigured"`
	}
	decode(t, rec, &body)

	require.Len(t, body.Configured, 2)
	assert.Equal(t, domain.NetworkImpact, body.Configured[0].Network)
	assert.Equal(t, "Impact", body.Configured[0].Name)
	assert.True(t, body.Configured[0].Capabilities.OfferDetails)
	assert.Equal(t, "CJ", body.Configured[1].Name)
	assert.False(t, body.Configured[1].Capabilities.Search)

	require.Len(t, body.Unconfigured, 1)
	assert.Equal(t, "missing api_key", body.Unconfigured[0].Reason)
}

func TestTestConnections(t *testing.T) {
	s := newTestServer(t, nil, impactStub(), network.NewUnimplemented(domain.NetworkCJ))
	rec := do(t, s, http.MethodGet, "/api/networks/test", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Results map[domain.Network]domain.ConnectionStatus `json:"results"`
		Healthy int                                        `json:"healthy"`
		Total   int                                        `json:"total"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 1, body.Healthy)
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, domain.ConnectionNotImplemented, body.Results[domain.NetworkCJ].State)
}

func TestSearchRanksOffers(t *testing.T) {
	stub := impactStub()
	s := newTestServer(t, nil, stub, network.NewUnimplemented(domain.NetworkCJ))
	rec := do(t, s, http.MethodGet, "/api/search?keyword=vpn", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var res aggregator.Result
	decode(t, rec, &res)

	assert.Equal(t, "vpn", stub.keyword)
	require.Len(t, res.Offers, 2)
	assert.Equal(t, "Top VPN", res.Offers[0].Name)
	assert.GreaterOrEqual(t, res.Offers[0].Score, res.Offers[1].Score)
	assert.Equal(t, domain.SearchOK, res.Status[domain.NetworkImpact].State)
	assert.Equal(t, domain.SearchNotImplemented, res.Status[domain.NetworkCJ].State)
}

func TestSearchJSONBody(t *testing.T) {
	s := newTestServer(t, nil, impactStub())
	rec := do(t, s, http.MethodPost, "/api/search", `{"keyword":"vpn","min_epc":1}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var res aggregator.Result
	decode(t, rec, &res)
	require.Len(t, res.Offers, 1)
	assert.Equal(t, "2", res.Offers[0].ID)
}

func TestSearchBadRequests(t *testing.T) {
	s := newTestServer(t, nil, impactStub())

	tests := []struct {
		name   string
		target string
	}{
		{"missing keyword", "/api/search"},
		{"blank keyword", "/api/search?keyword=%20%20"},
		{"score not a number", "/api/search?keyword=vpn&min_score=high"},
		{"score out of range", "/api/search?keyword=vpn&min_score=101"},
		{"epc not a number", "/api/search?keyword=vpn&min_epc=abc"},
		{"negative commission", "/api/search?keyword=vpn&min_commission=-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body httputil.ErrorResponse
			decode(t, rec, &body)
			assert.Equal(t, httputil.CodeInvalidQuery, body.Code)
		})
	}
}

func TestSearchInvalidJSON(t *testing.T) {
	s := newTestServer(t, nil, impactStub())
	rec := do(t, s, http.MethodPost, "/api/search", `{"keyword":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchNoNetworks(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/api/search?keyword=vpn", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body httputil.ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, httputil.CodeNoNetworksConfigured, body.Code)
}

func TestSearchAllNetworksFailedStillReturnsResult(t *testing.T) {
	broken := &stubAdapter{network: domain.NetworkImpact, err: domain.ErrUnauthorized}
	s := newTestServer(t, nil, broken)
	rec := do(t, s, http.MethodGet, "/api/search?keyword=vpn", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var res aggregator.Result
	decode(t, rec, &res)
	assert.Empty(t, res.Offers)
	assert.Equal(t, domain.SearchUnauthorized, res.Status[domain.NetworkImpact].State)
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t, nil, impactStub())
	rec := do(t, s, http.MethodGet, "/api/search/export.csv?keyword=Cheap%20VPN", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="offers-cheap-vpn.csv"`, rec.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, export.Header, records[0])
	assert.Equal(t, "Top VPN", records[1][1])
}

func TestExportCSVInvalidQuery(t *testing.T) {
	s := newTestServer(t, nil, impactStub())
	rec := do(t, s, http.MethodGet, "/api/search/export.csv", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportS3(t *testing.T) {
	api := &fakeS3{}
	uploader := export.NewS3UploaderWithClient(api, "exports", "offers")
	s := newTestServer(t, uploader, impactStub())
	s.handlers.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	rec := do(t, s, http.MethodPost, "/api/search/export", `{"keyword":"vpn"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "s3://exports/offers/vpn/20260301T120000Z.csv", body["uri"])
	assert.EqualValues(t, 2, body["offers"])
	assert.Equal(t, "offers/vpn/20260301T120000Z.csv", api.key)
	assert.Contains(t, string(api.body), "Top VPN")
}

func TestExportS3CustomKey(t *testing.T) {
	api := &fakeS3{}
	s := newTestServer(t, export.NewS3UploaderWithClient(api, "exports", ""), impactStub())

	rec := do(t, s, http.MethodPost, "/api/search/export", `{"keyword":"vpn","key":"weekly/vpn.csv"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "weekly/vpn.csv", api.key)
}

func TestExportS3NotConfigured(t *testing.T) {
	s := newTestServer(t, nil, impactStub())
	rec := do(t, s, http.MethodPost, "/api/search/export", `{"keyword":"vpn"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body httputil.ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, httputil.CodeExportDisabled, body.Code)
}

func TestGetOfferDetails(t *testing.T) {
	s := newTestServer(t, nil, impactStub(), network.NewUnimplemented(domain.NetworkCJ))

	rec := do(t, s, http.MethodGet, "/api/networks/impact/offers/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var offer domain.ScoredOffer
	decode(t, rec, &offer)
	assert.Equal(t, "Top VPN", offer.Name)
	assert.Positive(t, offer.Score)

	rec = do(t, s, http.MethodGet, "/api/networks/cj/offers/2", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/networks/awin/offers/2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/networks/impact/offers/missing", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetOfferDetailsImpactMissingCampaign(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"Message":"not found"}`))
	}))
	defer srv.Close()

	client := impact.NewClient(impact.Config{AccountSID: "IRsid", AuthToken: "tok", BaseURL: srv.URL})
	s := newTestServer(t, nil, client)

	rec := do(t, s, http.MethodGet, "/api/networks/impact/offers/404404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body httputil.ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, httputil.CodeNotFound, body.Code)

	rec = do(t, s, http.MethodGet, "/api/networks/impact/offers/%20", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &body)
	assert.Equal(t, httputil.CodeInvalidQuery, body.Code)
}

func TestCSVFilename(t *testing.T) {
	assert.Equal(t, "offers-vpn.csv", csvFilename("VPN"))
	assert.Equal(t, "offers-web-hosting.csv", csvFilename(" web hosting "))
	assert.Equal(t, "offers.csv", csvFilename("!!"))
}

func TestShutdownWithoutListen(t *testing.T) {
	s := newTestServer(t, nil)
	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestShutdownWhileServing(t *testing.T) {
	agg := aggregator.New(nil)
	s := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 0}, agg, nil)
	assert.Contains(t, s.Addr(), ":0")

	served := make(chan error, 1)
	go func() {
		served <- s.ListenAndServe()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-served:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return after Shutdown")
	}
}
