package impactmarket

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ignite/offer-finder/internal/domain"
)

var spacePattern = regexp.MustCompile(`\s+`)

// program is one directory row.
type program struct {
	Name    string
	Slug    string
	Country string
}

// parsePrograms reads the first table of a directory page. Columns are
// rank, program link, country and status; only "Opened" programs accept
// applications.
func parsePrograms(doc *goquery.Document) []program {
	var out []program
	doc.Find("table").First().Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}

		link := cells.Eq(1).Find("a").First()
		if link.Length() == 0 {
			return
		}
		name := cellText(link)
		if name == "" {
			return
		}
		if !strings.EqualFold(cellText(cells.Eq(3)), "opened") {
			return
		}

		href, _ := link.Attr("href")
		out = append(out, program{
			Name:    name,
			Slug:    slugFor(href, name),
			Country: cellText(cells.Eq(2)),
		})
	})
	return out
}

// slugFor takes the program slug from a "/m/<slug>" link, falling back to
// the lowercased name.
func slugFor(href, name string) string {
	if i := strings.Index(href, "/m/"); i >= 0 {
		s := href[i+len("/m/"):]
		s = strings.SplitN(s, "?", 2)[0]
		if s = strings.Trim(s, "/"); s != "" {
			return s
		}
	}
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

func cellText(s *goquery.Selection) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s.Text(), " "))
}

// toOffer builds a signup lead. The directory publishes no payout or
// performance figures, so every metric is unknown.
func (c *Client) toOffer(p program) domain.Offer {
	desc := fmt.Sprintf("Impact.com affiliate program. Apply at impact.com to promote %s.", p.Name)
	if p.Country != "" {
		desc = fmt.Sprintf("Impact.com affiliate program (Country: %s). Apply at impact.com to promote %s.", p.Country, p.Name)
	}
	return domain.Offer{
		Network:     domain.NetworkMarketplace,
		ID:          p.Slug,
		Name:        p.Name,
		Advertiser:  p.Name,
		Category:    "Direct Brand",
		Description: desc,
		URL:         fmt.Sprintf("%s/%s.brand", c.signupURL, p.Slug),
	}
}
