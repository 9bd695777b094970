package impact

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ignite/offer-finder/internal/currency"
	"github.com/ignite/offer-finder/internal/domain"
	"github.com/ignite/offer-finder/internal/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSID = "IRtest123"

func campaignsJSON(next string, campaigns ...map[string]interface{}) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"@page":        "1",
		"@nextpageuri": next,
		"Campaigns":    campaigns,
	})
	return body
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		AccountSID: testSID,
		AuthToken:  "tok",
		BaseURL:    server.URL,
		PageSize:   2,
	})
}

func TestSearchOffers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != testSID || pass != "tok" {
			t.Errorf("basic auth = %q/%q (%v)", user, pass, ok)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}

		switch r.URL.Path {
		case "/Mediapartners/" + testSID + "/Campaigns":
			if r.URL.Query().Get("CampaignState") != "ACTIVE" {
				t.Errorf("CampaignState = %q", r.URL.Query().Get("CampaignState"))
			}
			w.Write(campaignsJSON("",
				map[string]interface{}{
					"CampaignId":     "1001",
					"CampaignName":   "NordVPN",
					"AdvertiserName": "Nord Security",
					"TrackingLink":   "https://nord.example/track",
					"ContractUri":    "/Mediapartners/" + testSID + "/Contracts/1001",
					"Stats":          map[string]interface{}{"EPC": "1.25", "ConversionRate": 2.5},
				},
				map[string]interface{}{
					"CampaignId":          1002,
					"CampaignName":        "Budget Hosting",
					"CampaignDescription": "Fast VPN and hosting bundle",
					"CampaignUrl":         "https://hosting.example",
					"ContractUri":         "/Mediapartners/" + testSID + "/Contracts/1002",
				},
				map[string]interface{}{
					"CampaignId":   "1003",
					"CampaignName": "Meal Kits",
				},
			))
		case "/Mediapartners/" + testSID + "/Contracts/1001":
			w.Write([]byte(`{"Terms":{"EventPayouts":[{"EventCategory":"SALE","DefaultPayoutRate":"40"}]}}`))
		case "/Mediapartners/" + testSID + "/Contracts/1002":
			w.Write([]byte(`{"Terms":{"EventPayouts":[{"EventCategory":"LEAD","DefaultPayoutRate":"","PayoutGroups":[{"Payout":"25.00"}]}]}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	offers, err := client.SearchOffers(context.Background(), "VPN", 10)
	require.NoError(t, err)
	require.Len(t, offers, 2)

	nord := offers[0]
	assert.Equal(t, domain.NetworkImpact, nord.Network)
	assert.Equal(t, "1001", nord.ID)
	assert.Equal(t, "Nord Security", nord.Advertiser)
	assert.Equal(t, "https://nord.example/track", nord.URL)
	require.NotNil(t, nord.EPC)
	assert.InDelta(t, 1.25, *nord.EPC, 1e-9)
	require.NotNil(t, nord.ConversionRate)
	assert.InDelta(t, 0.025, *nord.ConversionRate, 1e-9)
	assert.Equal(t, domain.PercentCommission(40), nord.Commission)

	hosting := offers[1]
	assert.Equal(t, "1002", hosting.ID)
	assert.Equal(t, "https://hosting.example", hosting.URL)
	assert.Nil(t, hosting.EPC)
	assert.Nil(t, hosting.ConversionRate)
	assert.Equal(t, domain.FlatCommission(25), hosting.Commission)
}

func TestSearchOffersPagination(t *testing.T) {
	pages := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		pages++
		switch r.URL.Query().Get("Page") {
		case "":
			w.Write(campaignsJSON("/Mediapartners/"+testSID+"/Campaigns?Page=2",
				map[string]interface{}{"CampaignId": "1", "CampaignName": "Travel one"},
				map[string]interface{}{"CampaignId": "2", "CampaignName": "Other"},
			))
		case "2":
			w.Write(campaignsJSON("/Mediapartners/"+testSID+"/Campaigns?Page=3",
				map[string]interface{}{"CampaignId": "3", "CampaignName": "Travel two"},
				map[string]interface{}{"CampaignId": "4", "CampaignName": "Travel three"},
			))
		default:
			t.Errorf("fetched page %s after limit was reached", r.URL.Query().Get("Page"))
			w.Write(campaignsJSON(""))
		}
	})

	offers, err := client.SearchOffers(context.Background(), "travel", 2)
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, "1", offers[0].ID)
	assert.Equal(t, "3", offers[1].ID)
	assert.Equal(t, 2, pages)
}

func TestSearchOffersPageCap(t *testing.T) {
	pages := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		pages++
		w.Write(campaignsJSON("/Mediapartners/"+testSID+"/Campaigns?Page=next",
			map[string]interface{}{"CampaignId": "x", "CampaignName": "Unrelated"},
		))
	})
	client.maxPages = 3

	offers, err := client.SearchOffers(context.Background(), "vpn", 10)
	require.NoError(t, err)
	assert.Empty(t, offers)
	assert.Equal(t, 3, pages)
}

func TestSearchOffersErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, domain.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, domain.ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, domain.ErrNetworkUnavailable},
		{"server error", http.StatusBadGateway, domain.ErrNetworkUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			offers, err := client.SearchOffers(context.Background(), "vpn", 10)
			assert.Nil(t, offers)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSearchOffersTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(Config{AccountSID: testSID, AuthToken: "tok", BaseURL: url})
	_, err := client.SearchOffers(context.Background(), "vpn", 10)
	assert.ErrorIs(t, err, domain.ErrNetworkUnavailable)
}

func TestContractFailureKeepsCampaignPayout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/Contracts/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(campaignsJSON("", map[string]interface{}{
			"CampaignId":   "7",
			"CampaignName": "VPN Pro",
			"ContractUri":  "/Mediapartners/" + testSID + "/Contracts/7",
			"Actions": []map[string]interface{}{
				{"Type": "SALE", "Payout": map[string]interface{}{"Default": map[string]interface{}{"Amount": "12.50"}}},
			},
		}))
	})

	offers, err := client.SearchOffers(context.Background(), "vpn", 10)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, domain.FlatCommission(12.5), offers[0].Commission)
}

func TestCurrencyConversion(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(campaignsJSON("",
			map[string]interface{}{
				"CampaignId": "8", "CampaignName": "Euro VPN", "Currency": "EUR",
				"Stats": map[string]interface{}{"EPC": 1.0},
				"Actions": []map[string]interface{}{
					{"Payout": map[string]interface{}{"Default": map[string]interface{}{"Amount": 10}}},
				},
			},
			map[string]interface{}{
				"CampaignId": "9", "CampaignName": "Yen VPN", "Currency": "JPY",
				"Stats": map[string]interface{}{"EPC": 100.0},
			},
		))
	})
	client.SetConverter(currency.NewConverter(map[string]float64{"EUR": 1.1}))

	offers, err := client.SearchOffers(context.Background(), "vpn", 10)
	require.NoError(t, err)
	require.Len(t, offers, 2)

	require.NotNil(t, offers[0].EPC)
	assert.InDelta(t, 1.1, *offers[0].EPC, 1e-9)
	assert.InDelta(t, 11.0, offers[0].Commission.Value, 1e-9)
	assert.Nil(t, offers[1].EPC)
}

func TestConversionRateAbove100PercentIsCapped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(campaignsJSON("", map[string]interface{}{
			"CampaignId": "5", "CampaignName": "VPN",
			"Stats": map[string]interface{}{"ConversionRate": "140", "EPC": "-1"},
		}))
	})

	offers, err := client.SearchOffers(context.Background(), "vpn", 10)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	require.NotNil(t, offers[0].ConversionRate)
	assert.Equal(t, 1.0, *offers[0].ConversionRate)
	assert.Nil(t, offers[0].EPC)
}

type denyLimiter struct {
	calls int
	key   string
}

func (d *denyLimiter) Allow(ctx context.Context, key string) (bool, error) {
	d.calls++
	d.key = key
	return false, nil
}

func TestRateLimitedRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	})
	limiter := &denyLimiter{}
	client.SetLimiter(limiter)

	_, err := client.SearchOffers(context.Background(), "vpn", 10)
	assert.ErrorIs(t, err, domain.ErrNetworkUnavailable)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Equal(t, 1, limiter.calls)

	assert.True(t, strings.HasPrefix(limiter.key, "impact:"), limiter.key)
	assert.NotContains(t, limiter.key, testSID)
	assert.Equal(t, limitKey(testSID), limiter.key)
	assert.NotEqual(t, limitKey("IRother"), limiter.key)
}

func TestTestConnection(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   domain.ConnectionState
	}{
		{"ok", http.StatusOK, domain.ConnectionOK},
		{"unauthorized", http.StatusUnauthorized, domain.ConnectionUnauthorized},
		{"not found", http.StatusNotFound, domain.ConnectionUnreachable},
		{"server error", http.StatusInternalServerError, domain.ConnectionUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("PageSize") != "1" {
					t.Errorf("PageSize = %q, want 1", r.URL.Query().Get("PageSize"))
				}
				w.WriteHeader(tt.status)
				w.Write(campaignsJSON(""))
			})
			status := client.TestConnection(context.Background())
			assert.Equal(t, tt.want, status.State)
		})
	}
}

func TestGetOfferDetails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Mediapartners/" + testSID + "/Campaigns/42":
			w.Write([]byte(`{"CampaignId":"42","CampaignName":"Surfshark","ContractUri":"/c/42","Stats":{"EPC":0.8}}`))
		case "/c/42":
			w.Write([]byte(`{"Terms":{"EventPayouts":[{"PayoutGroups":[{"Payout":30}]}]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	offer, err := client.GetOfferDetails(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "Surfshark", offer.Name)
	assert.Equal(t, domain.FlatCommission(30), offer.Commission)
	assert.True(t, client.Capabilities().OfferDetails)

	_, err = client.GetOfferDetails(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrOfferNotFound)

	_, err = client.GetOfferDetails(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestNumberUnmarshal(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
		value float64
	}{
		{`1.5`, true, 1.5},
		{`"2.25"`, true, 2.25},
		{`"3%"`, true, 3},
		{`""`, false, 0},
		{`null`, false, 0},
		{`"n/a"`, false, 0},
	}
	for _, tt := range tests {
		var n Number
		require.NoError(t, json.Unmarshal([]byte(tt.in), &n), tt.in)
		assert.Equal(t, tt.valid, n.Valid, tt.in)
		assert.Equal(t, tt.value, n.Value, tt.in)
	}
}

func TestFactory(t *testing.T) {
	f := Factory(Config{}, nil, nil)
	assert.Equal(t, domain.NetworkImpact, f.Network)
	assert.ElementsMatch(t, []string{FieldAccountSID, FieldAuthToken}, f.Required)

	a, err := f.New(network.Credentials{Fields: map[string]string{
		FieldAccountSID: testSID, FieldAuthToken: "tok",
	}})
	require.NoError(t, err)
	assert.Equal(t, domain.NetworkImpact, a.Network())

	_, err = f.New(network.Credentials{Fields: map[string]string{
		FieldAccountSID: testSID, FieldAuthToken: "tok", FieldBaseURL: "not a url",
	}})
	assert.Error(t, err)
}
