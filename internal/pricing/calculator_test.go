package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculateMarginMarkup(t *testing.T) {
	result, err := CalculateMarginMarkup(decimal.NewFromInt(50), decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if !result.Profit.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected profit 50, got %s", result.Profit)
	}
	if !result.MarginPct.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected margin 50, got %s", result.MarginPct)
	}
	if !result.MarkupPct.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected markup 100, got %s", result.MarkupPct)
	}
}

func TestCalculateMarginMarkupRoundsToCurrency(t *testing.T) {
	result, err := CalculateMarginMarkup(decimal.RequireFromString("33.33"), decimal.RequireFromString("49.99"))
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if !result.Profit.Equal(decimal.RequireFromString("16.66")) {
		t.Fatalf("expected profit 16.66, got %s", result.Profit)
	}
	if !result.MarginPct.Equal(decimal.RequireFromString("33.33")) {
		t.Fatalf("expected margin 33.33, got %s", result.MarginPct)
	}
	if !result.MarkupPct.Equal(decimal.RequireFromString("49.98")) {
		t.Fatalf("expected markup 49.98, got %s", result.MarkupPct)
	}
}

func TestCalculateMarginMarkupRejectsZeroCost(t *testing.T) {
	_, err := CalculateMarginMarkup(decimal.Zero, decimal.NewFromInt(10))
	if !errors.Is(err, ErrInvalidCost) {
		t.Fatalf("expected ErrInvalidCost, got %v", err)
	}
}

func TestCalculateMarginMarkupRejectsZeroSellingPrice(t *testing.T) {
	_, err := CalculateMarginMarkup(decimal.NewFromInt(10), decimal.Zero)
	if !errors.Is(err, ErrInvalidSellingPrice) {
		t.Fatalf("expected ErrInvalidSellingPrice, got %v", err)
	}
}

func TestCalculateMarginMarkupRejectsPriceBelowCost(t *testing.T) {
	_, err := CalculateMarginMarkup(decimal.NewFromInt(10), decimal.NewFromInt(5))
	if !errors.Is(err, ErrPriceBelowCost) {
		t.Fatalf("expected ErrPriceBelowCost, got %v", err)
	}
}

func TestMarginAndMarkupComputedIndependently(t *testing.T) {
	cost := decimal.RequireFromString("7.77")
	price := decimal.RequireFromString("11.11")
	result, err := CalculateMarginMarkup(cost, price)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	profit := price.Sub(cost)
	wantMargin := profit.Div(price).Mul(decimal.NewFromInt(100)).Round(2)
	wantMarkup := profit.Div(cost).Mul(decimal.NewFromInt(100)).Round(2)
	if !result.MarginPct.Equal(wantMargin) {
		t.Fatalf("margin: want %s, got %s", wantMargin, result.MarginPct)
	}
	if !result.MarkupPct.Equal(wantMarkup) {
		t.Fatalf("markup: want %s, got %s", wantMarkup, result.MarkupPct)
	}
}
