package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/naracommerce/backend-crm/internal/money"
)

// Advisory thresholds. These are heuristics for the recommendation list, not
// a contract on pricing correctness.
var (
	priceMovePct  = decimal.NewFromInt(20)
	lowMarginPct  = decimal.NewFromInt(10)
	highMarginPct = decimal.NewFromInt(70)
	lowMarkupPct  = decimal.NewFromInt(20)
	minProfit     = decimal.NewFromInt(1)
	hundredPct    = decimal.NewFromInt(100)
)

// PriceSuggestionResult is the solver output for a target margin or markup.
type PriceSuggestionResult struct {
	ProductID       string          `json:"productId"`
	SuggestedPrice  decimal.Decimal `json:"suggestedPrice"`
	CurrentPrice    decimal.Decimal `json:"currentPrice"`
	Cost            decimal.Decimal `json:"cost"`
	ProjectedMargin decimal.Decimal `json:"projectedMargin"`
	ProjectedMarkup decimal.Decimal `json:"projectedMarkup"`
	Recommendations []string        `json:"recommendations"`
}

// SuggestFromMargin solves price = cost / (1 - margin/100). A target of 100
// implies an infinite price and is rejected by the bounds check.
func SuggestFromMargin(cost, targetMargin decimal.Decimal) (decimal.Decimal, error) {
	if cost.Sign() <= 0 {
		return decimal.Zero, ErrInvalidCost
	}
	if targetMargin.Sign() < 0 || targetMargin.GreaterThanOrEqual(hundredPct) {
		return decimal.Zero, ErrMarginOutOfRange
	}
	denominator := decimal.NewFromInt(1).Sub(targetMargin.Div(hundredPct))
	return money.Round(cost.Div(denominator)), nil
}

// SuggestFromMarkup solves price = cost * (1 + markup/100).
func SuggestFromMarkup(cost, targetMarkup decimal.Decimal) (decimal.Decimal, error) {
	if cost.Sign() <= 0 {
		return decimal.Zero, ErrInvalidCost
	}
	if targetMarkup.Sign() < 0 {
		return decimal.Zero, ErrMarkupOutOfRange
	}
	return money.Round(cost.Mul(decimal.NewFromInt(1).Add(targetMarkup.Div(hundredPct)))), nil
}

// BuildRecommendations produces the ordered advisory list for a suggestion.
func BuildRecommendations(suggested, current decimal.Decimal, projected MarginMarkupResult) []string {
	recs := make([]string, 0, 4)
	if current.Sign() > 0 {
		change := money.Ratio(suggested.Sub(current), current)
		if change.Abs().GreaterThan(priceMovePct) {
			direction := "increase"
			if change.Sign() < 0 {
				direction = "decrease"
			}
			recs = append(recs, fmt.Sprintf("suggested price is a %s%% %s from the current price; phase the change in gradually", change.Abs(), direction))
		}
	}
	if projected.MarginPct.LessThan(lowMarginPct) {
		recs = append(recs, fmt.Sprintf("projected margin %s%% is low; review costs or target a higher price", projected.MarginPct))
	} else if projected.MarginPct.GreaterThan(highMarginPct) {
		recs = append(recs, fmt.Sprintf("projected margin %s%% is high; check competitiveness against the market", projected.MarginPct))
	}
	if projected.MarkupPct.LessThan(lowMarkupPct) {
		recs = append(recs, fmt.Sprintf("projected markup %s%% is below the usual commercial floor", projected.MarkupPct))
	}
	if projected.Profit.LessThan(minProfit) {
		recs = append(recs, fmt.Sprintf("projected profit %s per unit barely covers handling", projected.Profit))
	}
	return recs
}
