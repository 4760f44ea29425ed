package entity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type fakeStores struct {
	products      map[string]Product
	customers     map[string]Customer
	productCalls  int
	customerCalls int
}

func (f *fakeStores) FindProductByID(_ context.Context, id string) (Product, error) {
	f.productCalls++
	p, ok := f.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (f *fakeStores) FindCustomerByID(_ context.Context, id string) (Customer, error) {
	f.customerCalls++
	c, ok := f.customers[id]
	if !ok {
		return Customer{}, ErrCustomerNotFound
	}
	return c, nil
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		products: map[string]Product{
			"p1": {ID: "p1", SKU: "SKU-1", Name: "Widget", SalePrice: decimal.NewFromInt(100), CostPrice: decimal.NewFromInt(50), Active: true},
		},
		customers: map[string]Customer{
			"c1": {ID: "c1", Name: "Acme Ltd"},
		},
	}
}

func TestResolverMemoizesHits(t *testing.T) {
	stores := newFakeStores()
	r, err := NewResolver(ResolverConfig{Products: stores, Customers: stores, TTL: time.Minute})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	for i := 0; i < 3; i++ {
		p, err := r.Product(context.Background(), "p1")
		if err != nil {
			t.Fatalf("resolve product: %v", err)
		}
		if p.SKU != "SKU-1" {
			t.Fatalf("unexpected product %+v", p)
		}
	}
	if stores.productCalls != 1 {
		t.Fatalf("expected a single store lookup, got %d", stores.productCalls)
	}
}

func TestResolverNeverCachesNotFound(t *testing.T) {
	stores := newFakeStores()
	r, err := NewResolver(ResolverConfig{Products: stores, Customers: stores, TTL: time.Minute})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	if _, err := r.Product(context.Background(), "ghost"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected product not found, got %v", err)
	}

	// The record appears later; the earlier miss must not be remembered.
	stores.products["ghost"] = Product{ID: "ghost", Name: "Late arrival"}
	p, err := r.Product(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("expected late-created product to resolve, got %v", err)
	}
	if p.Name != "Late arrival" {
		t.Fatalf("unexpected product %+v", p)
	}
	if stores.productCalls != 2 {
		t.Fatalf("expected 2 store lookups, got %d", stores.productCalls)
	}
}

func TestResolverTTLExpiry(t *testing.T) {
	stores := newFakeStores()
	clock := time.Unix(1_700_000_000, 0)
	r, err := NewResolver(ResolverConfig{Products: stores, Customers: stores, TTL: 30 * time.Second, Now: func() time.Time { return clock }})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	if _, err := r.Customer(context.Background(), "c1"); err != nil {
		t.Fatalf("resolve customer: %v", err)
	}
	if _, err := r.Customer(context.Background(), "c1"); err != nil {
		t.Fatalf("resolve customer: %v", err)
	}
	if stores.customerCalls != 1 {
		t.Fatalf("expected 1 lookup before expiry, got %d", stores.customerCalls)
	}

	clock = clock.Add(31 * time.Second)
	if _, err := r.Customer(context.Background(), "c1"); err != nil {
		t.Fatalf("resolve customer after expiry: %v", err)
	}
	if stores.customerCalls != 2 {
		t.Fatalf("expected fresh lookup after TTL, got %d", stores.customerCalls)
	}
}
