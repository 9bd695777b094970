// Package currency converts network-reported amounts into USD, the single
// reference unit offers are scored in.
package currency

import (
	"strings"
)

// USD is the reference currency.
const USD = "USD"

// defaultRates are units of USD per one unit of the currency. Operators
// override or extend them through the currency.rates config section.
var defaultRates = map[string]float64{
	"USD": 1,
	"EUR": 1.08,
	"GBP": 1.27,
	"CAD": 0.73,
	"AUD": 0.66,
}

// Converter holds a static FX table.
type Converter struct {
	rates map[string]float64
}

// NewConverter builds a converter from the built-in table plus overrides.
// Non-positive overrides are ignored.
func NewConverter(overrides map[string]float64) *Converter {
	rates := make(map[string]float64, len(defaultRates)+len(overrides))
	for code, r := range defaultRates {
		rates[code] = r
	}
	for code, r := range overrides {
		if r > 0 {
			rates[strings.ToUpper(strings.TrimSpace(code))] = r
		}
	}
	rates[USD] = 1
	return &Converter{rates: rates}
}

// ToUSD converts amount from code. An empty code is treated as USD. Unknown
// currencies return the amount unchanged with ok=false so the caller can log it.
func (c *Converter) ToUSD(amount float64, code string) (float64, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || code == USD {
		return amount, true
	}
	if c == nil {
		return amount, false
	}
	rate, ok := c.rates[code]
	if !ok {
		return amount, false
	}
	return amount * rate, true
}
