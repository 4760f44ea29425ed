package entity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ProductStore is the persistence contract for product lookups.
type ProductStore interface {
	FindProductByID(ctx context.Context, id string) (Product, error)
}

// CustomerStore is the persistence contract for customer lookups.
type CustomerStore interface {
	FindCustomerByID(ctx context.Context, id string) (Customer, error)
}

// PGStore implements the store contracts over a pgx connection pool. The
// products and customers tables are owned by the main CRM application; this
// store only reads them.
type PGStore struct {
	Pool *pgxpool.Pool
}

const findProductSQL = `
SELECT id, sku, name, sale_price, cost_price, COALESCE(tax_rate, 0), active
FROM products
WHERE id = $1`

// FindProductByID fetches a single product row.
func (s *PGStore) FindProductByID(ctx context.Context, id string) (Product, error) {
	if s == nil || s.Pool == nil {
		return Product{}, errors.New("entity: store not configured")
	}
	var (
		p         Product
		salePrice pgtype.Numeric
		costPrice pgtype.Numeric
		taxRate   pgtype.Numeric
	)
	row := s.Pool.QueryRow(ctx, findProductSQL, id)
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &salePrice, &costPrice, &taxRate, &p.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, fmt.Errorf("find product %s: %w", id, err)
	}
	p.SalePrice = numericToDecimal(salePrice)
	p.CostPrice = numericToDecimal(costPrice)
	p.TaxRate = numericToDecimal(taxRate)
	return p, nil
}

const findCustomerSQL = `
SELECT id, name, COALESCE(segment, ''), COALESCE(discount_pct, 0)
FROM customers
WHERE id = $1`

// FindCustomerByID fetches a single customer row.
func (s *PGStore) FindCustomerByID(ctx context.Context, id string) (Customer, error) {
	if s == nil || s.Pool == nil {
		return Customer{}, errors.New("entity: store not configured")
	}
	var (
		c           Customer
		discountPct pgtype.Numeric
	)
	row := s.Pool.QueryRow(ctx, findCustomerSQL, id)
	if err := row.Scan(&c.ID, &c.Name, &c.Segment, &discountPct); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrCustomerNotFound
		}
		return Customer{}, fmt.Errorf("find customer %s: %w", id, err)
	}
	c.DiscountPct = numericToDecimal(discountPct)
	return c, nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
