// Package pricing implements the CRM's price calculation engine: margin and
// markup derivation, target-price suggestion, and the discount/tax
// composition pipeline, orchestrated behind request-scoped instrumentation
// and memoization.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/naracommerce/backend-crm/internal/money"
)

// MarginMarkupResult reports profitability for a cost/selling price pair.
// Margin is profit over selling price; markup is profit over cost. The two
// percentages are always computed independently from profit so neither
// compounds the rounding of the other.
type MarginMarkupResult struct {
	Cost         decimal.Decimal `json:"cost"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
	Profit       decimal.Decimal `json:"profit"`
	MarginPct    decimal.Decimal `json:"marginPercentage"`
	MarkupPct    decimal.Decimal `json:"markupPercentage"`
}

// CalculateMarginMarkup derives profit, margin and markup. Preconditions:
// cost > 0, sellingPrice > 0, sellingPrice >= cost; each violation returns
// its own sentinel.
func CalculateMarginMarkup(cost, sellingPrice decimal.Decimal) (MarginMarkupResult, error) {
	if cost.Sign() <= 0 {
		return MarginMarkupResult{}, ErrInvalidCost
	}
	if sellingPrice.Sign() <= 0 {
		return MarginMarkupResult{}, ErrInvalidSellingPrice
	}
	if sellingPrice.LessThan(cost) {
		return MarginMarkupResult{}, ErrPriceBelowCost
	}

	profit := money.Round(sellingPrice.Sub(cost))
	return MarginMarkupResult{
		Cost:         money.Round(cost),
		SellingPrice: money.Round(sellingPrice),
		Profit:       profit,
		MarginPct:    money.Ratio(profit, sellingPrice),
		MarkupPct:    money.Ratio(profit, cost),
	}, nil
}
