package export

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ignite/offer-finder/internal/aggregator"
	"github.com/ignite/offer-finder/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const maxNameWidth = 40

// Brand spellings that title casing gets wrong.
var displayNames = map[domain.Network]string{
	domain.NetworkCJ:           "CJ",
	domain.NetworkPartnerstack: "PartnerStack",
}

// NetworkName returns the human spelling of a network id.
func NetworkName(n domain.Network) string {
	if name, ok := displayNames[n]; ok {
		return name
	}
	return titleCase(string(n))
}

// TierName renders "needs_evaluation" as "Needs Evaluation".
func TierName(t domain.Tier) string {
	return titleCase(string(t))
}

func titleCase(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

// RenderTable writes the ranked offers as an aligned table followed by a
// one-line-per-network status summary.
func RenderTable(w io.Writer, res *aggregator.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "#\tNETWORK\tOFFER\tSCORE\tTIER\tEPC\tCOMMISSION\tCONV\n")
	for i, o := range res.Offers {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			i+1,
			NetworkName(o.Network),
			shorten(o.Name, maxNameWidth),
			o.Score,
			TierName(o.Tier),
			dash(formatEPC(o.EPC)),
			dash(o.Commission.String()),
			dash(formatPercent(o.ConversionRate)),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(res.Offers) == 0 {
		fmt.Fprintf(w, "\nNo offers matched %q.\n", res.Keyword)
	}

	fmt.Fprintf(w, "\n%s\n", StatusLine(res))
	for _, u := range res.Unconfigured {
		fmt.Fprintf(w, "  %s not configured: %s\n", NetworkName(u.Network), u.Reason)
	}
	return nil
}

// StatusLine summarizes what each network contributed, e.g.
// "Impact: 12 offers; CJ: unreachable".
func StatusLine(res *aggregator.Result) string {
	parts := make([]string, 0, len(res.Networks))
	for _, n := range res.Networks {
		st := res.Status[n]
		if st.State == domain.SearchOK {
			parts = append(parts, fmt.Sprintf("%s: %d offers", NetworkName(n), st.Count))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", NetworkName(n), strings.ReplaceAll(string(st.State), "_", " ")))
	}
	return strings.Join(parts, "; ")
}

func formatPercent(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f%%", *v*100)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
