package pricing

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/naracommerce/backend-crm/internal/money"
)

// PromotionKind selects how a promotion value is interpreted.
type PromotionKind string

const (
	// PromotionPercentage discounts a percentage of the remaining amount,
	// optionally capped by MaxAmount.
	PromotionPercentage PromotionKind = "percentage"
	// PromotionFixed discounts a fixed currency amount.
	PromotionFixed PromotionKind = "fixed"
)

// Promotion is one applicable promotion rule.
type Promotion struct {
	Code      string
	Kind      PromotionKind
	Value     decimal.Decimal
	// MaxAmount caps percentage promotions; nil means uncapped.
	MaxAmount *decimal.Decimal
	Priority  int
}

// DiscountSource resolves the standing discount percentage for a customer.
type DiscountSource interface {
	CustomerDiscountPct(ctx context.Context, customerID string) (decimal.Decimal, error)
}

// PromotionSource resolves promotions applicable to a product purchase.
type PromotionSource interface {
	ApplicablePromotions(ctx context.Context, productID string, quantity decimal.Decimal) ([]Promotion, error)
}

// TaxSource resolves the tax rate percentage for a product.
type TaxSource interface {
	TaxRate(ctx context.Context, productID string) (decimal.Decimal, error)
}

// Neutral defaults for the rule sources. Discount eligibility, promotion
// rules and tax law live outside this core; until those integrations exist
// every lookup resolves to a zero contribution.

// NoDiscounts is the neutral DiscountSource.
type NoDiscounts struct{}

// CustomerDiscountPct always returns zero.
func (NoDiscounts) CustomerDiscountPct(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

// NoPromotions is the neutral PromotionSource.
type NoPromotions struct{}

// ApplicablePromotions always returns an empty set.
func (NoPromotions) ApplicablePromotions(context.Context, string, decimal.Decimal) ([]Promotion, error) {
	return nil, nil
}

// NoTaxes is the neutral TaxSource.
type NoTaxes struct{}

// TaxRate always returns zero.
func (NoTaxes) TaxRate(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

// PipelineInput is the normalized input for one composition run.
type PipelineInput struct {
	ProductID       string
	CustomerID      string
	Quantity        decimal.Decimal
	BasePrice       decimal.Decimal
	ApplyPromotions bool
	IncludeTaxes    bool
}

// Breakdown is the composed price with every intermediate amount, each
// rounded to currency precision as it is produced.
type Breakdown struct {
	Subtotal            decimal.Decimal `json:"subtotal"`
	CustomerDiscount    decimal.Decimal `json:"customerDiscount"`
	PromotionalDiscount decimal.Decimal `json:"promotionalDiscount"`
	TotalDiscount       decimal.Decimal `json:"totalDiscount"`
	PriceAfterDiscounts decimal.Decimal `json:"priceAfterDiscounts"`
	TaxRate             decimal.Decimal `json:"taxRate"`
	TaxAmount           decimal.Decimal `json:"taxAmount"`
	FinalPrice          decimal.Decimal `json:"finalPrice"`
	// Degraded reports that at least one rule lookup failed and was
	// substituted with a zero contribution.
	Degraded bool `json:"degraded"`
}

// Pipeline composes subtotal, customer discount, promotional discounts and
// tax in a fixed order. Rule lookup failures never fail the run: the failed
// step contributes zero, the failure is logged as a warning, and the
// breakdown is flagged as degraded so callers can tell "no discount applies"
// from "discount lookup failed".
type Pipeline struct {
	Discounts  DiscountSource
	Promotions PromotionSource
	Taxes      TaxSource
	Logger     zerolog.Logger
}

// NewPipeline constructs a Pipeline, substituting neutral sources for nil.
func NewPipeline(discounts DiscountSource, promotions PromotionSource, taxes TaxSource, logger zerolog.Logger) *Pipeline {
	if discounts == nil {
		discounts = NoDiscounts{}
	}
	if promotions == nil {
		promotions = NoPromotions{}
	}
	if taxes == nil {
		taxes = NoTaxes{}
	}
	return &Pipeline{Discounts: discounts, Promotions: promotions, Taxes: taxes, Logger: logger}
}

// Run executes the composition steps in order.
func (p *Pipeline) Run(ctx context.Context, in PipelineInput) Breakdown {
	out := Breakdown{}
	out.Subtotal = money.Round(in.Quantity.Mul(in.BasePrice))

	out.CustomerDiscount = p.customerDiscount(ctx, in, out.Subtotal, &out.Degraded)
	if in.ApplyPromotions {
		remaining := out.Subtotal.Sub(out.CustomerDiscount)
		out.PromotionalDiscount = p.promotionalDiscount(ctx, in, remaining, &out.Degraded)
	}

	out.TotalDiscount = money.Clamp(out.CustomerDiscount.Add(out.PromotionalDiscount), decimal.Zero, out.Subtotal)
	out.PriceAfterDiscounts = money.Round(out.Subtotal.Sub(out.TotalDiscount))

	if in.IncludeTaxes {
		out.TaxRate = p.taxRate(ctx, in, &out.Degraded)
		out.TaxAmount = money.Percent(out.PriceAfterDiscounts, out.TaxRate)
	}
	out.FinalPrice = money.Round(out.PriceAfterDiscounts.Add(out.TaxAmount))
	return out
}

func (p *Pipeline) customerDiscount(ctx context.Context, in PipelineInput, subtotal decimal.Decimal, degraded *bool) decimal.Decimal {
	if in.CustomerID == "" {
		return decimal.Zero
	}
	pct, err := p.Discounts.CustomerDiscountPct(ctx, in.CustomerID)
	if err != nil {
		p.Logger.Warn().Err(err).Str("customer_id", in.CustomerID).Msg("customer discount lookup failed, using zero")
		*degraded = true
		return decimal.Zero
	}
	return money.Clamp(money.Percent(subtotal, pct), decimal.Zero, subtotal)
}

func (p *Pipeline) promotionalDiscount(ctx context.Context, in PipelineInput, remaining decimal.Decimal, degraded *bool) decimal.Decimal {
	promos, err := p.Promotions.ApplicablePromotions(ctx, in.ProductID, in.Quantity)
	if err != nil {
		p.Logger.Warn().Err(err).Str("product_id", in.ProductID).Msg("promotion lookup failed, using zero")
		*degraded = true
		return decimal.Zero
	}
	if len(promos) == 0 {
		return decimal.Zero
	}

	ordered := make([]Promotion, len(promos))
	copy(ordered, promos)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	total := decimal.Zero
	for _, promo := range ordered {
		if remaining.Sign() <= 0 {
			break
		}
		amount := promotionAmount(promo, remaining)
		amount = money.Clamp(amount, decimal.Zero, remaining)
		total = total.Add(amount)
		remaining = remaining.Sub(amount)
	}
	return money.Round(total)
}

func promotionAmount(promo Promotion, remaining decimal.Decimal) decimal.Decimal {
	switch promo.Kind {
	case PromotionPercentage:
		amount := money.Percent(remaining, promo.Value)
		if promo.MaxAmount != nil && amount.GreaterThan(*promo.MaxAmount) {
			amount = money.Round(*promo.MaxAmount)
		}
		return amount
	case PromotionFixed:
		return money.Round(promo.Value)
	default:
		return decimal.Zero
	}
}

func (p *Pipeline) taxRate(ctx context.Context, in PipelineInput, degraded *bool) decimal.Decimal {
	rate, err := p.Taxes.TaxRate(ctx, in.ProductID)
	if err != nil {
		p.Logger.Warn().Err(err).Str("product_id", in.ProductID).Msg("tax rate lookup failed, using zero")
		*degraded = true
		return decimal.Zero
	}
	return rate
}
