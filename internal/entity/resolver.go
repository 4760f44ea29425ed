package entity

import (
	"context"
	"errors"
	"time"

	"github.com/naracommerce/backend-crm/internal/cache"
)

// ResolverConfig groups Resolver dependencies.
type ResolverConfig struct {
	Products  ProductStore
	Customers CustomerStore
	TTL       time.Duration
	// Now overrides the cache clock in tests.
	Now func() time.Time
}

// Resolver memoizes product and customer lookups. Hits never touch the
// store; misses delegate and cache the result for the configured TTL.
// Not-found results are never cached since the record could be created
// moments later. There is no invalidation hook for external writes; staleness
// is bounded only by the TTL.
type Resolver struct {
	products  ProductStore
	customers CustomerStore

	productCache  *cache.Memory[Product]
	customerCache *cache.Memory[Customer]
}

// NewResolver constructs a Resolver.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.Products == nil {
		return nil, errors.New("entity: product store is required")
	}
	if cfg.Customers == nil {
		return nil, errors.New("entity: customer store is required")
	}
	return &Resolver{
		products:      cfg.Products,
		customers:     cfg.Customers,
		productCache:  cache.NewMemory[Product](cache.MemoryConfig{TTL: cfg.TTL, Now: cfg.Now}),
		customerCache: cache.NewMemory[Customer](cache.MemoryConfig{TTL: cfg.TTL, Now: cfg.Now}),
	}, nil
}

// Product resolves a product by id through the cache.
func (r *Resolver) Product(ctx context.Context, id string) (Product, error) {
	p, _, err := r.productCache.GetOrCompute(id, func() (Product, error) {
		return r.products.FindProductByID(ctx, id)
	})
	return p, err
}

// Customer resolves a customer by id through the cache.
func (r *Resolver) Customer(ctx context.Context, id string) (Customer, error) {
	c, _, err := r.customerCache.GetOrCompute(id, func() (Customer, error) {
		return r.customers.FindCustomerByID(ctx, id)
	})
	return c, err
}

// Stats reports combined entity cache counters.
func (r *Resolver) Stats() cache.Stats {
	ps := r.productCache.Stats()
	cs := r.customerCache.Stats()
	combined := cache.Stats{
		Entries: ps.Entries + cs.Entries,
		Hits:    ps.Hits + cs.Hits,
		Misses:  ps.Misses + cs.Misses,
	}
	if total := combined.Hits + combined.Misses; total > 0 {
		combined.HitRate = float64(combined.Hits) / float64(total) * 100
	}
	return combined
}

// Clear drops both caches.
func (r *Resolver) Clear() {
	r.productCache.Clear()
	r.customerCache.Clear()
}

// StartSweeper launches TTL sweeps for both caches.
func (r *Resolver) StartSweeper(ctx context.Context, interval time.Duration) {
	r.productCache.StartSweeper(ctx, interval)
	r.customerCache.StartSweeper(ctx, interval)
}
