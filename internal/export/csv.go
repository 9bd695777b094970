// Package export renders ranked offers for people and spreadsheets: an
// aligned terminal table, CSV, and CSV uploads to S3.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ignite/offer-finder/internal/domain"
)

// Header is the fixed CSV column order.
var Header = []string{"network", "name", "epc", "commission", "conversion_rate", "score", "tier", "url"}

// Row formats one offer in Header order. Unknown metrics are empty cells.
func Row(o domain.ScoredOffer) []string {
	return []string{
		string(o.Network),
		o.Name,
		formatEPC(o.EPC),
		o.Commission.String(),
		formatRate(o.ConversionRate),
		strconv.Itoa(o.Score),
		string(o.Tier),
		o.URL,
	}
}

// Rows formats offers in the given order.
func Rows(offers []domain.ScoredOffer) [][]string {
	rows := make([][]string, 0, len(offers))
	for _, o := range offers {
		rows = append(rows, Row(o))
	}
	return rows
}

// WriteCSV writes a header and one row per offer. An empty list still
// produces the header.
func WriteCSV(w io.Writer, offers []domain.ScoredOffer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(Rows(offers)); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

func formatEPC(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatRate(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.4f", *v)
}
