package affbank

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ignite/offer-finder/internal/domain"
)

var (
	dollarPattern  = regexp.MustCompile(`\$\s*(\d+(?:\.\d+)?)`)
	percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// Listing tags the directory prepends to offer names.
var categoryTags = []string{"Sponsored", "Gambling & betting", "Dating", "Finance", "Sweepstakes"}

// parsePayout reads "$12.50" as flat and "30%" as percent. Anything else,
// including "Revshare" or an empty cell, is unknown.
func parsePayout(text string) domain.Commission {
	text = strings.ReplaceAll(text, ",", "")
	if m := dollarPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return domain.FlatCommission(v)
		}
	}
	if m := percentPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return domain.PercentCommission(v)
		}
	}
	return domain.Commission{}
}

// cleanName strips listing tags and returns the first tag found as category.
func cleanName(raw string) (name, category string) {
	name = raw
	for _, tag := range categoryTags {
		if strings.Contains(name, tag) {
			if category == "" && tag != "Sponsored" {
				category = tag
			}
			name = strings.ReplaceAll(name, tag, " ")
		}
	}
	name = strings.TrimSpace(spacePattern.ReplaceAllString(name, " "))
	return name, category
}

// slug is the last path segment of an offer link, used as the offer id.
func slug(href string) string {
	href = strings.SplitN(href, "?", 2)[0]
	href = strings.SplitN(href, "#", 2)[0]
	s := path.Base(strings.TrimRight(href, "/"))
	if s == "." || s == "/" {
		return ""
	}
	return s
}

func cellText(s *goquery.Selection) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s.Text(), " "))
}

// parseOffers reads the first table of a directory page. Rows after the
// header carry: name link, network, country, payout. Rows whose name plus
// network does not contain keyword are skipped.
func (c *Client) parseOffers(doc *goquery.Document, keyword string, limit int) []domain.Offer {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	seen := make(map[string]bool)
	var offers []domain.Offer

	rows := doc.Find("table").First().Find("tr")
	rows.Each(func(i int, row *goquery.Selection) {
		if i == 0 || len(offers) >= limit {
			return
		}

		cells := row.Find("td, th")
		if cells.Length() < 4 {
			return
		}

		link := cells.Eq(0).Find("a").First()
		if link.Length() == 0 {
			return
		}
		rawName := cellText(link)
		href, _ := link.Attr("href")

		listingNetwork := cellText(cells.Eq(1).Find("a").First())
		if listingNetwork == "" {
			listingNetwork = cellText(cells.Eq(1))
		}
		country := cellText(cells.Eq(2))
		commission := parsePayout(cellText(cells.Eq(3)))

		if kw != "" && !strings.Contains(strings.ToLower(rawName+" "+listingNetwork), kw) {
			return
		}

		name, category := cleanName(rawName)
		if name == "" {
			return
		}

		id := slug(href)
		if id == "" {
			id = fmt.Sprintf("row-%d", i)
		}
		if seen[id] {
			return
		}
		seen[id] = true

		offers = append(offers, domain.Offer{
			Network:     domain.NetworkAffbank,
			ID:          id,
			Name:        name,
			Advertiser:  listingNetwork,
			Commission:  commission,
			Category:    category,
			Description: describe(listingNetwork, country, commission),
			URL:         c.absolute(href),
		}.Normalize())
	})

	return offers
}

func describe(listingNetwork, country string, commission domain.Commission) string {
	if listingNetwork == "" {
		listingNetwork = "unknown network"
	}
	d := "Affiliate offer from " + listingNetwork
	if country != "" {
		d += " (Country: " + country + ")"
	}
	switch commission.Kind {
	case domain.CommissionFlat:
		d += fmt.Sprintf(" - Earn $%.2f", commission.Value)
	case domain.CommissionPercent:
		d += fmt.Sprintf(" - Earn %g%%", commission.Value)
	}
	return d
}

func (c *Client) absolute(href string) string {
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "/"):
		return c.baseURL + href
	default:
		return href
	}
}
