package catalog

import (
	"context"
	"time"
)

// Repository is the product and sales storage used by Service.
type Repository interface {
	// InsertProduct stores p and sets its ID.
	InsertProduct(ctx context.Context, p *Product) error
	// BestSellingProductIDs ranks product IDs by quantity sold in paid,
	// active orders created within [from, to].
	BestSellingProductIDs(ctx context.Context, from, to time.Time, limit int) ([]string, error)
	// ActiveProductsByIDs returns the active products among ids in any order.
	ActiveProductsByIDs(ctx context.Context, ids []string) ([]Product, error)
	// NewestActiveProducts returns active products newest first, skipping exclude.
	NewestActiveProducts(ctx context.Context, exclude []string, limit int) ([]Product, error)
}
