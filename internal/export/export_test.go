package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ignite/offer-finder/internal/aggregator"
	"github.com/ignite/offer-finder/internal/domain"
	"github.com/ignite/offer-finder/internal/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOffers() []domain.ScoredOffer {
	return []domain.ScoredOffer{
		{
			Offer: domain.Offer{
				Network:        domain.NetworkImpact,
				ID:             "1",
				Name:           "NordVPN, Annual",
				EPC:            domain.Float(1.5),
				Commission:     domain.PercentCommission(40),
				ConversionRate: domain.Float(0.025),
				URL:            "https://nord.example/t?a=1&b=2",
			},
			Score: 82,
			Tier:  domain.TierExcellent,
		},
		{
			Offer: domain.Offer{
				Network:    domain.NetworkAffbank,
				ID:         "meal",
				Name:       "Meal kit",
				Commission: domain.FlatCommission(12.5),
			},
			Score: 6,
			Tier:  domain.TierNeedsEvaluation,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleOffers()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, Header, records[0])
	assert.Equal(t, []string{"impact", "NordVPN, Annual", "1.50", "40.00%", "0.0250", "82", "excellent", "https://nord.example/t?a=1&b=2"}, records[1])
	assert.Equal(t, []string{"affbank", "Meal kit", "", "12.50", "", "6", "needs_evaluation", ""}, records[2])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, strings.Join(Header, ",")+"\n", buf.String())
}

func TestRowsPreserveOrder(t *testing.T) {
	rows := Rows(sampleOffers())
	require.Len(t, rows, 2)
	assert.Equal(t, "NordVPN, Annual", rows[0][1])
	assert.Equal(t, "Meal kit", rows[1][1])
}

func TestRenderTable(t *testing.T) {
	res := &aggregator.Result{
		Keyword:  "vpn",
		Offers:   sampleOffers(),
		Networks: []domain.Network{domain.NetworkImpact, domain.NetworkAffbank, domain.NetworkCJ},
		Status: map[domain.Network]domain.NetworkStatus{
			domain.NetworkImpact:  {State: domain.SearchOK, Count: 1},
			domain.NetworkAffbank: {State: domain.SearchOK, Count: 1},
			domain.NetworkCJ:      {State: domain.SearchNotImplemented},
		},
		Unconfigured: []network.Unconfigured{{Network: domain.NetworkAwin, Reason: "missing api_key"}},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, res))
	out := buf.String()

	assert.Contains(t, out, "NETWORK")
	assert.Contains(t, out, "NordVPN, Annual")
	assert.Contains(t, out, "Needs Evaluation")
	assert.Contains(t, out, "2.50%")
	assert.Contains(t, out, "Impact: 1 offers; Affbank: 1 offers; CJ: not implemented")
	assert.Contains(t, out, "Awin not configured: missing api_key")
}

func TestRenderTableNoOffers(t *testing.T) {
	res := &aggregator.Result{Keyword: "nothing", Status: map[domain.Network]domain.NetworkStatus{}}
	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, res))
	assert.Contains(t, buf.String(), `No offers matched "nothing".`)
}

func TestNetworkName(t *testing.T) {
	assert.Equal(t, "Impact", NetworkName(domain.NetworkImpact))
	assert.Equal(t, "CJ", NetworkName(domain.NetworkCJ))
	assert.Equal(t, "PartnerStack", NetworkName(domain.NetworkPartnerstack))
	assert.Equal(t, "Awin", NetworkName(domain.NetworkAwin))
	assert.Equal(t, "Impact Marketplace", NetworkName(domain.NetworkMarketplace))
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "short", shorten("short", 10))
	assert.Equal(t, "abcd…", shorten("abcdefgh", 5))
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestUploadCSV(t *testing.T) {
	api := &fakeS3{}
	u := NewS3UploaderWithClient(api, "exports", "/offers/")

	uri, err := u.UploadCSV(context.Background(), "vpn/run.csv", sampleOffers())
	require.NoError(t, err)

	assert.Equal(t, "s3://exports/offers/vpn/run.csv", uri)
	require.NotNil(t, api.input)
	assert.Equal(t, "exports", *api.input.Bucket)
	assert.Equal(t, "offers/vpn/run.csv", *api.input.Key)
	assert.Equal(t, "text/csv", *api.input.ContentType)
	assert.True(t, strings.HasPrefix(string(api.body), strings.Join(Header, ",")))
}

func TestUploadErrors(t *testing.T) {
	u := NewS3UploaderWithClient(&fakeS3{err: errors.New("access denied")}, "exports", "")

	_, err := u.Upload(context.Background(), "a.csv", []byte("x"))
	assert.ErrorContains(t, err, "access denied")

	_, err = u.Upload(context.Background(), "/", []byte("x"))
	assert.Error(t, err)
}

func TestNewS3UploaderRequiresBucket(t *testing.T) {
	_, err := NewS3Uploader(context.Background(), S3Config{})
	assert.Error(t, err)
}

func TestDefaultKey(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, "web-hosting/20260304T050607Z.csv", DefaultKey("  Web Hosting! ", at))
	assert.Equal(t, "search/20260304T050607Z.csv", DefaultKey("", at))
}
