package pricing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceCalculationRequest captures one calculate-price call. Optional fields
// left unset take their documented defaults during normalization, so a
// request with omitted optionals and one with the explicit defaults are the
// same logical request.
type PriceCalculationRequest struct {
	ProductID       string
	Quantity        decimal.Decimal
	BasePrice       *decimal.Decimal
	CustomerID      string
	ApplyPromotions *bool
	IncludeTaxes    *bool
}

// NormalizedRequest is a PriceCalculationRequest with every default applied.
type NormalizedRequest struct {
	ProductID       string
	Quantity        decimal.Decimal
	BasePrice       *decimal.Decimal
	CustomerID      string
	ApplyPromotions bool
	IncludeTaxes    bool
}

// Normalize applies defaults: promotions and taxes on, customer optional.
func (r PriceCalculationRequest) Normalize() NormalizedRequest {
	n := NormalizedRequest{
		ProductID:       strings.TrimSpace(r.ProductID),
		Quantity:        r.Quantity,
		BasePrice:       r.BasePrice,
		CustomerID:      strings.TrimSpace(r.CustomerID),
		ApplyPromotions: true,
		IncludeTaxes:    true,
	}
	if r.ApplyPromotions != nil {
		n.ApplyPromotions = *r.ApplyPromotions
	}
	if r.IncludeTaxes != nil {
		n.IncludeTaxes = *r.IncludeTaxes
	}
	return n
}

// CacheKey returns a deterministic key over the normalized fields. Field
// order is fixed and decimals render through String, which trims trailing
// zeros, so logically identical requests always collide.
func (n NormalizedRequest) CacheKey() string {
	base := "-"
	if n.BasePrice != nil {
		base = n.BasePrice.String()
	}
	return hashKey("calc",
		n.ProductID,
		n.Quantity.String(),
		base,
		n.CustomerID,
		boolKey(n.ApplyPromotions),
		boolKey(n.IncludeTaxes),
	)
}

// marginMarkupKey keys the result cache for margin/markup calculations.
func marginMarkupKey(cost, sellingPrice decimal.Decimal) string {
	return hashKey("margin", cost.String(), sellingPrice.String())
}

// suggestionKey keys the result cache for price suggestions.
func suggestionKey(productID string, targetMargin, targetMarkup *decimal.Decimal, customerID string, quantity decimal.Decimal) string {
	margin, markup := "-", "-"
	if targetMargin != nil {
		margin = targetMargin.String()
	}
	if targetMarkup != nil {
		markup = targetMarkup.String()
	}
	return hashKey("suggest", productID, margin, markup, customerID, quantity.String())
}

func hashKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func boolKey(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
