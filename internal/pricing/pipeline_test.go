package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type stubDiscounts struct {
	pct decimal.Decimal
	err error
}

func (s stubDiscounts) CustomerDiscountPct(context.Context, string) (decimal.Decimal, error) {
	return s.pct, s.err
}

type stubPromotions struct {
	promos []Promotion
	err    error
}

func (s stubPromotions) ApplicablePromotions(context.Context, string, decimal.Decimal) ([]Promotion, error) {
	return s.promos, s.err
}

type stubTaxes struct {
	rate decimal.Decimal
	err  error
}

func (s stubTaxes) TaxRate(context.Context, string) (decimal.Decimal, error) {
	return s.rate, s.err
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(s)
}

func TestPipelineNeutralSources(t *testing.T) {
	p := NewPipeline(nil, nil, nil, zerolog.Nop())
	out := p.Run(context.Background(), PipelineInput{
		ProductID:       "p1",
		Quantity:        decimal.NewFromInt(2),
		BasePrice:       decimal.NewFromInt(100),
		ApplyPromotions: true,
		IncludeTaxes:    true,
	})

	if !out.Subtotal.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("subtotal = %s, want 200", out.Subtotal)
	}
	if !out.TotalDiscount.IsZero() || !out.TaxAmount.IsZero() {
		t.Fatalf("neutral sources must contribute zero, got discount=%s tax=%s", out.TotalDiscount, out.TaxAmount)
	}
	if !out.FinalPrice.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("final = %s, want 200", out.FinalPrice)
	}
	if out.Degraded {
		t.Fatalf("neutral run must not be degraded")
	}
}

func TestPipelineComposesInOrder(t *testing.T) {
	// subtotal 200, 10% customer discount (20), then a 25% promotion on the
	// remaining 180 (45), then 11% tax on 135.
	p := NewPipeline(
		stubDiscounts{pct: decimal.NewFromInt(10)},
		stubPromotions{promos: []Promotion{{Code: "SALE25", Kind: PromotionPercentage, Value: decimal.NewFromInt(25)}}},
		stubTaxes{rate: decimal.NewFromInt(11)},
		zerolog.Nop(),
	)
	out := p.Run(context.Background(), PipelineInput{
		ProductID:       "p1",
		CustomerID:      "c1",
		Quantity:        decimal.NewFromInt(2),
		BasePrice:       decimal.NewFromInt(100),
		ApplyPromotions: true,
		IncludeTaxes:    true,
	})

	if !out.CustomerDiscount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("customer discount = %s, want 20", out.CustomerDiscount)
	}
	if !out.PromotionalDiscount.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("promotional discount = %s, want 45 (25%% of the 180 remaining)", out.PromotionalDiscount)
	}
	if !out.PriceAfterDiscounts.Equal(decimal.NewFromInt(135)) {
		t.Fatalf("price after discounts = %s, want 135", out.PriceAfterDiscounts)
	}
	if !out.TaxAmount.Equal(dec(t, "14.85")) {
		t.Fatalf("tax = %s, want 14.85", out.TaxAmount)
	}
	if !out.FinalPrice.Equal(dec(t, "149.85")) {
		t.Fatalf("final = %s, want 149.85", out.FinalPrice)
	}
}

func TestPipelinePromotionOrderingAndCaps(t *testing.T) {
	promoCap := decimal.NewFromInt(10)
	p := NewPipeline(nil,
		stubPromotions{promos: []Promotion{
			// Low priority percentage listed first; the fixed promotion must
			// apply before it.
			{Code: "PCT20", Kind: PromotionPercentage, Value: decimal.NewFromInt(20), MaxAmount: &promoCap, Priority: 1},
			{Code: "FLAT40", Kind: PromotionFixed, Value: decimal.NewFromInt(40), Priority: 5},
		}},
		nil, zerolog.Nop(),
	)
	out := p.Run(context.Background(), PipelineInput{
		ProductID:       "p1",
		Quantity:        decimal.NewFromInt(1),
		BasePrice:       decimal.NewFromInt(100),
		ApplyPromotions: true,
	})

	// FLAT40 first: 100 -> 60. PCT20 next: 20% of 60 is 12, capped at 10.
	if !out.PromotionalDiscount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("promotional discount = %s, want 50", out.PromotionalDiscount)
	}
	if !out.FinalPrice.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("final = %s, want 50", out.FinalPrice)
	}
}

func TestPipelinePromotionsNeverExceedRemaining(t *testing.T) {
	p := NewPipeline(nil,
		stubPromotions{promos: []Promotion{
			{Code: "FLAT80", Kind: PromotionFixed, Value: decimal.NewFromInt(80), Priority: 2},
			{Code: "FLAT80B", Kind: PromotionFixed, Value: decimal.NewFromInt(80), Priority: 1},
		}},
		nil, zerolog.Nop(),
	)
	out := p.Run(context.Background(), PipelineInput{
		ProductID:       "p1",
		Quantity:        decimal.NewFromInt(1),
		BasePrice:       decimal.NewFromInt(100),
		ApplyPromotions: true,
	})

	// The second promotion is bounded by the 20 still remaining.
	if !out.PromotionalDiscount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("promotional discount = %s, want 100", out.PromotionalDiscount)
	}
	if out.FinalPrice.Sign() != 0 {
		t.Fatalf("final = %s, want 0", out.FinalPrice)
	}
}

func TestPipelineSkipsPromotionsAndTaxesWhenDisabled(t *testing.T) {
	p := NewPipeline(nil,
		stubPromotions{promos: []Promotion{{Code: "FLAT40", Kind: PromotionFixed, Value: decimal.NewFromInt(40)}}},
		stubTaxes{rate: decimal.NewFromInt(11)},
		zerolog.Nop(),
	)
	out := p.Run(context.Background(), PipelineInput{
		ProductID: "p1",
		Quantity:  decimal.NewFromInt(1),
		BasePrice: decimal.NewFromInt(100),
	})

	if !out.PromotionalDiscount.IsZero() || !out.TaxAmount.IsZero() {
		t.Fatalf("disabled steps contributed: promo=%s tax=%s", out.PromotionalDiscount, out.TaxAmount)
	}
	if !out.FinalPrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("final = %s, want 100", out.FinalPrice)
	}
}

func TestPipelineDegradesOnLookupFailure(t *testing.T) {
	boom := errors.New("rule store unavailable")
	p := NewPipeline(
		stubDiscounts{err: boom},
		stubPromotions{err: boom},
		stubTaxes{err: boom},
		zerolog.Nop(),
	)
	out := p.Run(context.Background(), PipelineInput{
		ProductID:       "p1",
		CustomerID:      "c1",
		Quantity:        decimal.NewFromInt(1),
		BasePrice:       decimal.NewFromInt(100),
		ApplyPromotions: true,
		IncludeTaxes:    true,
	})

	if !out.Degraded {
		t.Fatalf("expected degraded breakdown")
	}
	if !out.FinalPrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("degraded steps must contribute zero, final = %s", out.FinalPrice)
	}
}
