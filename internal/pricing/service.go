package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/naracommerce/backend-crm/internal/audit"
	"github.com/naracommerce/backend-crm/internal/cache"
	"github.com/naracommerce/backend-crm/internal/entity"
	"github.com/naracommerce/backend-crm/internal/money"
	"github.com/naracommerce/backend-crm/internal/obs"
)

// RateLimiter is the limiter contract the service checks for in-process
// callers; the HTTP boundary enforces the same limiter via middleware.
type RateLimiter interface {
	Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error)
}

// DiscountBreakdown details the discount composition of a calculation.
type DiscountBreakdown struct {
	CustomerDiscount    decimal.Decimal `json:"customerDiscount"`
	PromotionalDiscount decimal.Decimal `json:"promotionalDiscount"`
	TotalDiscount       decimal.Decimal `json:"totalDiscount"`
}

// TaxBreakdown details the applied tax.
type TaxBreakdown struct {
	Amount decimal.Decimal `json:"amount"`
	Rate   decimal.Decimal `json:"rate"`
}

// Portion expresses profit as an amount plus a percentage basis.
type Portion struct {
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

// CalculationDetails carries the cost basis behind a calculation.
type CalculationDetails struct {
	Cost      decimal.Decimal `json:"cost"`
	Profit    decimal.Decimal `json:"profit"`
	Timestamp time.Time       `json:"timestamp"`
}

// PriceCalculationResult is the full outcome of a calculate-price call.
// Invariant: FinalPrice = Subtotal - TotalDiscount + TaxAmount with every
// intermediate rounded to currency precision.
type PriceCalculationResult struct {
	ProductID  string             `json:"productId"`
	Quantity   decimal.Decimal    `json:"quantity"`
	BasePrice  decimal.Decimal    `json:"basePrice"`
	Subtotal   decimal.Decimal    `json:"subtotal"`
	Discounts  DiscountBreakdown  `json:"discounts"`
	Taxes      TaxBreakdown       `json:"taxes"`
	FinalPrice decimal.Decimal    `json:"finalPrice"`
	Margin     Portion            `json:"margin"`
	Markup     Portion            `json:"markup"`
	Details    CalculationDetails `json:"calculationDetails"`
	Degraded   bool               `json:"degraded"`
}

// SuggestPriceRequest captures one suggest-price call. Exactly one of
// TargetMargin/TargetMarkup must be set.
type SuggestPriceRequest struct {
	ProductID    string
	TargetMargin *decimal.Decimal
	TargetMarkup *decimal.Decimal
	CustomerID   string
	Quantity     decimal.Decimal
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Resolver         *entity.Resolver
	Pipeline         *Pipeline
	Limiter          RateLimiter
	Audit            *audit.Recorder
	Logger           zerolog.Logger
	ResultTTL        time.Duration
	ResultMaxEntries int
	RateWindow       time.Duration
	RateMax          int
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Service orchestrates the pricing operations: entity resolution, the
// discount/tax pipeline, the margin/markup calculator and the suggestion
// solver, each behind the shared result cache and audit instrumentation.
type Service struct {
	resolver   *entity.Resolver
	pipeline   *Pipeline
	limiter    RateLimiter
	results    *cache.Memory[any]
	auditRec   *audit.Recorder
	logger     zerolog.Logger
	rateWindow time.Duration
	rateMax    int
	now        func() time.Time
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Resolver == nil {
		return nil, errors.New("pricing: entity resolver is required")
	}
	pipeline := cfg.Pipeline
	if pipeline == nil {
		pipeline = NewPipeline(nil, nil, nil, cfg.Logger)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	rateWindow := cfg.RateWindow
	if rateWindow <= 0 {
		rateWindow = time.Minute
	}
	return &Service{
		resolver: cfg.Resolver,
		pipeline: pipeline,
		limiter:  cfg.Limiter,
		results: cache.NewMemory[any](cache.MemoryConfig{
			TTL:        cfg.ResultTTL,
			MaxEntries: cfg.ResultMaxEntries,
			Now:        cfg.Now,
		}),
		auditRec:   cfg.Audit,
		logger:     cfg.Logger,
		rateWindow: rateWindow,
		rateMax:    cfg.RateMax,
		now:        now,
	}, nil
}

// CalculatePrice runs the full composition for one request.
func (s *Service) CalculatePrice(ctx context.Context, req PriceCalculationRequest) (*PriceCalculationResult, error) {
	start := s.now()
	n := req.Normalize()
	params := fmt.Sprintf("product=%s qty=%s customer=%s promos=%t taxes=%t",
		n.ProductID, n.Quantity, n.CustomerID, n.ApplyPromotions, n.IncludeTaxes)

	result, err := s.calculatePrice(ctx, n)
	if err != nil {
		s.finish(ctx, "calculate_price", params, "", start, err)
		return nil, err
	}
	summary := fmt.Sprintf("final=%s subtotal=%s discount=%s tax=%s degraded=%t",
		result.FinalPrice, result.Subtotal, result.Discounts.TotalDiscount, result.Taxes.Amount, result.Degraded)
	s.finish(ctx, "calculate_price", params, summary, start, nil)
	return result, nil
}

func (s *Service) calculatePrice(ctx context.Context, n NormalizedRequest) (*PriceCalculationResult, error) {
	if n.Quantity.Sign() <= 0 {
		return nil, wrapDomainError(ErrInvalidQuantity)
	}
	if n.BasePrice != nil && n.BasePrice.Sign() < 0 {
		return nil, wrapDomainError(ErrInvalidBasePrice)
	}

	key := n.CacheKey()
	if cached, ok := s.results.Get(key); ok {
		countCache("results", "hit")
		if result, ok := cached.(*PriceCalculationResult); ok {
			return result, nil
		}
	}
	countCache("results", "miss")

	product, err := s.resolver.Product(ctx, n.ProductID)
	if err != nil {
		return nil, wrapDomainError(err)
	}
	if n.CustomerID != "" {
		if _, err := s.resolver.Customer(ctx, n.CustomerID); err != nil {
			return nil, wrapDomainError(err)
		}
	}

	basePrice := product.SalePrice
	if n.BasePrice != nil {
		basePrice = *n.BasePrice
	}

	breakdown := s.pipeline.Run(ctx, PipelineInput{
		ProductID:       n.ProductID,
		CustomerID:      n.CustomerID,
		Quantity:        n.Quantity,
		BasePrice:       money.Round(basePrice),
		ApplyPromotions: n.ApplyPromotions,
		IncludeTaxes:    n.IncludeTaxes,
	})

	totalCost := money.Round(product.CostPrice.Mul(n.Quantity))
	profit := money.Round(breakdown.FinalPrice.Sub(totalCost))
	result := &PriceCalculationResult{
		ProductID: n.ProductID,
		Quantity:  n.Quantity,
		BasePrice: money.Round(basePrice),
		Subtotal:  breakdown.Subtotal,
		Discounts: DiscountBreakdown{
			CustomerDiscount:    breakdown.CustomerDiscount,
			PromotionalDiscount: breakdown.PromotionalDiscount,
			TotalDiscount:       breakdown.TotalDiscount,
		},
		Taxes:      TaxBreakdown{Amount: breakdown.TaxAmount, Rate: breakdown.TaxRate},
		FinalPrice: breakdown.FinalPrice,
		Margin:     Portion{Amount: profit, Percentage: money.Ratio(profit, breakdown.FinalPrice)},
		Markup:     Portion{Amount: profit, Percentage: money.Ratio(profit, totalCost)},
		Details:    CalculationDetails{Cost: totalCost, Profit: profit, Timestamp: s.now().UTC()},
		Degraded:   breakdown.Degraded,
	}
	s.results.Set(key, result)
	return result, nil
}

// CalculateMarginMarkup derives profitability for a cost/price pair.
func (s *Service) CalculateMarginMarkup(ctx context.Context, cost, sellingPrice decimal.Decimal) (*MarginMarkupResult, error) {
	start := s.now()
	params := fmt.Sprintf("cost=%s selling_price=%s", cost, sellingPrice)

	key := marginMarkupKey(cost, sellingPrice)
	if cached, ok := s.results.Get(key); ok {
		countCache("results", "hit")
		if result, ok := cached.(*MarginMarkupResult); ok {
			s.finish(ctx, "calculate_margin_markup", params, summaryMarginMarkup(result), start, nil)
			return result, nil
		}
	}
	countCache("results", "miss")

	computed, err := CalculateMarginMarkup(cost, sellingPrice)
	if err != nil {
		wrapped := wrapDomainError(err)
		s.finish(ctx, "calculate_margin_markup", params, "", start, wrapped)
		return nil, wrapped
	}
	result := &computed
	s.results.Set(key, result)
	s.finish(ctx, "calculate_margin_markup", params, summaryMarginMarkup(result), start, nil)
	return result, nil
}

// SuggestPrice solves for the selling price matching a target margin or
// markup and annotates the result with advisories.
func (s *Service) SuggestPrice(ctx context.Context, req SuggestPriceRequest) (*PriceSuggestionResult, error) {
	start := s.now()
	params := fmt.Sprintf("product=%s margin=%s markup=%s customer=%s",
		req.ProductID, decimalOrDash(req.TargetMargin), decimalOrDash(req.TargetMarkup), req.CustomerID)

	result, err := s.suggestPrice(ctx, req)
	if err != nil {
		s.finish(ctx, "suggest_price", params, "", start, err)
		return nil, err
	}
	summary := fmt.Sprintf("suggested=%s current=%s margin=%s markup=%s",
		result.SuggestedPrice, result.CurrentPrice, result.ProjectedMargin, result.ProjectedMarkup)
	s.finish(ctx, "suggest_price", params, summary, start, nil)
	return result, nil
}

func (s *Service) suggestPrice(ctx context.Context, req SuggestPriceRequest) (*PriceSuggestionResult, error) {
	if (req.TargetMargin == nil) == (req.TargetMarkup == nil) {
		return nil, wrapDomainError(ErrTargetConflict)
	}
	quantity := req.Quantity
	if quantity.IsZero() {
		quantity = decimal.NewFromInt(1)
	}
	if quantity.Sign() < 0 {
		return nil, wrapDomainError(ErrInvalidQuantity)
	}

	key := suggestionKey(req.ProductID, req.TargetMargin, req.TargetMarkup, req.CustomerID, quantity)
	if cached, ok := s.results.Get(key); ok {
		countCache("results", "hit")
		if result, ok := cached.(*PriceSuggestionResult); ok {
			return result, nil
		}
	}
	countCache("results", "miss")

	product, err := s.resolver.Product(ctx, req.ProductID)
	if err != nil {
		return nil, wrapDomainError(err)
	}
	if req.CustomerID != "" {
		if _, err := s.resolver.Customer(ctx, req.CustomerID); err != nil {
			return nil, wrapDomainError(err)
		}
	}

	cost := product.CostPrice
	var suggested decimal.Decimal
	if req.TargetMargin != nil {
		suggested, err = SuggestFromMargin(cost, *req.TargetMargin)
	} else {
		suggested, err = SuggestFromMarkup(cost, *req.TargetMarkup)
	}
	if err != nil {
		return nil, wrapDomainError(err)
	}

	// Confirm the suggestion by recomputing profitability on the solved
	// price; targets and projections must agree within rounding tolerance.
	projected, err := CalculateMarginMarkup(cost, suggested)
	if err != nil {
		return nil, wrapDomainError(err)
	}

	result := &PriceSuggestionResult{
		ProductID:       req.ProductID,
		SuggestedPrice:  suggested,
		CurrentPrice:    money.Round(product.SalePrice),
		Cost:            money.Round(cost),
		ProjectedMargin: projected.MarginPct,
		ProjectedMarkup: projected.MarkupPct,
		Recommendations: BuildRecommendations(suggested, product.SalePrice, projected),
	}
	s.results.Set(key, result)
	return result, nil
}

// ShouldRateLimit counts a request for clientKey against the fixed window
// and reports whether it must be rejected before any business logic runs.
func (s *Service) ShouldRateLimit(ctx context.Context, clientKey string) bool {
	if s.limiter == nil || s.rateMax <= 0 {
		return false
	}
	allowed, _, _, err := s.limiter.Allow(ctx, clientKey, s.rateWindow, s.rateMax)
	if err != nil {
		s.logger.Warn().Err(err).Msg("rate limiter check failed, allowing request")
		return false
	}
	if !allowed {
		s.logger.Warn().Str("client_key", clientKey).Msg("request rate limited")
		if obs.RateLimitRejectedTotal != nil {
			obs.RateLimitRejectedTotal.Inc()
		}
	}
	return !allowed
}

// CacheStats reports result and entity cache counters.
func (s *Service) CacheStats() map[string]cache.Stats {
	return map[string]cache.Stats{
		"results":  s.results.Stats(),
		"entities": s.resolver.Stats(),
	}
}

// ClearCaches drops all memoized state. Exposed for operational resets and
// called on shutdown.
func (s *Service) ClearCaches() {
	s.results.Clear()
	s.resolver.Clear()
}

// StartSweepers launches background TTL sweeps for all caches.
func (s *Service) StartSweepers(ctx context.Context, interval time.Duration) {
	s.results.StartSweeper(ctx, interval)
	s.resolver.StartSweeper(ctx, interval)
}

func (s *Service) finish(ctx context.Context, operation, params, summary string, start time.Time, err error) {
	duration := s.now().Sub(start)
	entry := audit.Entry{
		Operation: operation,
		Params:    params,
		Summary:   summary,
		Duration:  duration,
		Status:    audit.StatusSuccess,
	}
	resultLabel := "success"
	if err != nil {
		entry.Status = audit.StatusError
		entry.ErrorDetail = err.Error()
		resultLabel = "error"
	}
	s.auditRec.Record(ctx, entry)
	countCalc(operation, resultLabel)
}

func countCalc(operation, result string) {
	if obs.CalculationsTotal != nil {
		obs.CalculationsTotal.WithLabelValues(operation, result).Inc()
	}
}

func countCache(cacheName, event string) {
	if obs.CacheEventsTotal != nil {
		obs.CacheEventsTotal.WithLabelValues(cacheName, event).Inc()
	}
}

func summaryMarginMarkup(r *MarginMarkupResult) string {
	return fmt.Sprintf("profit=%s margin=%s markup=%s", r.Profit, r.MarginPct, r.MarkupPct)
}

func decimalOrDash(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.String()
}
