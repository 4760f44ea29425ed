// Package entity resolves product and customer records for the pricing core,
// memoizing persistence lookups behind a TTL cache.
package entity

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrProductNotFound indicates the product id has no backing record.
	ErrProductNotFound = errors.New("product not found")
	// ErrCustomerNotFound indicates the customer id has no backing record.
	ErrCustomerNotFound = errors.New("customer not found")
)

// Product is the catalog record the pricing core consumes.
type Product struct {
	ID        string
	SKU       string
	Name      string
	SalePrice decimal.Decimal
	CostPrice decimal.Decimal
	// TaxRate is the per-product tax percentage; zero when no tax rule is
	// configured for the product.
	TaxRate decimal.Decimal
	Active  bool
}

// Customer carries the commercial attributes relevant to discounting.
type Customer struct {
	ID      string
	Name    string
	Segment string
	// DiscountPct is the standing customer discount percentage; zero when the
	// customer has no negotiated discount.
	DiscountPct decimal.Decimal
}
