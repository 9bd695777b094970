package impact

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public Impact API host.
const DefaultBaseURL = "https://api.impact.com"

// Config holds the Impact client settings
type Config struct {
	AccountSID string
	AuthToken  string
	BaseURL    string
	PageSize   int
	MaxPages   int
	MaxRetries int
	Timeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.PageSize <= 0 {
		c.PageSize = 100
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 10
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// CampaignsResponse is one page of GET /Mediapartners/{sid}/Campaigns
type CampaignsResponse struct {
	Campaigns   []Campaign `json:"Campaigns"`
	Page        string     `json:"@page"`
	NumPages    string     `json:"@numpages"`
	NextPageURI string     `json:"@nextpageuri"`
}

// Campaign is an Impact campaign as seen by a media partner
type Campaign struct {
	CampaignID          Text     `json:"CampaignId"`
	CampaignName        string   `json:"CampaignName"`
	CampaignDescription string   `json:"CampaignDescription"`
	AdvertiserID        Text     `json:"AdvertiserId"`
	AdvertiserName      string   `json:"AdvertiserName"`
	CampaignURL         string   `json:"CampaignUrl"`
	TrackingLink        string   `json:"TrackingLink"`
	ContractURI         string   `json:"ContractUri"`
	Category            string   `json:"Category"`
	Currency            string   `json:"Currency"`
	Actions             []Action `json:"Actions"`
	Stats               *Stats   `json:"Stats"`
}

// Action is a campaign-level payout summary
type Action struct {
	Type   string        `json:"Type"`
	Payout *ActionPayout `json:"Payout"`
}

// ActionPayout wraps the default payout of an action
type ActionPayout struct {
	Default struct {
		Amount   Number `json:"Amount"`
		Currency string `json:"Currency"`
	} `json:"Default"`
}

// Stats are the performance metrics Impact reports per campaign.
// ConversionRate is a percentage (2.5 means 2.5%).
type Stats struct {
	EPC             Number `json:"EPC"`
	ConversionRate  Number `json:"ConversionRate"`
	PopularityScore Number `json:"PopularityScore"`
}

// Contract is the media partner's active contract for a campaign
type Contract struct {
	Terms struct {
		EventPayouts []EventPayout `json:"EventPayouts"`
	} `json:"Terms"`
}

// EventPayout is one commissionable event in a contract
type EventPayout struct {
	EventCategory     string        `json:"EventCategory"`
	DefaultPayoutRate Number        `json:"DefaultPayoutRate"`
	PayoutGroups      []PayoutGroup `json:"PayoutGroups"`
}

// PayoutGroup is a fixed-amount payout tier
type PayoutGroup struct {
	Payout   Number `json:"Payout"`
	Currency string `json:"PayoutCurrency"`
}

// Number decodes Impact's numeric fields, which arrive as JSON numbers,
// quoted strings or empty strings depending on the endpoint.
type Number struct {
	Value float64
	Valid bool
}

// UnmarshalJSON never fails: unparseable values decode as invalid.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(data)
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return nil
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(str), "%"))
	}
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	*n = Number{Value: v, Valid: true}
	return nil
}

// Text decodes identifiers that may be numbers or strings.
type Text string

// UnmarshalJSON accepts either representation.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(strings.TrimSpace(s))
		return nil
	}
	*t = Text(data)
	return nil
}
