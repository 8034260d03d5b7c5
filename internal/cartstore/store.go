package cartstore

import (
	"context"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Store is one profile's cart. Implementations are safe for concurrent use.
type Store interface {
	// Upsert writes line under line.ProductID, replacing any previous entry.
	// Quantity is stored as given; callers normalize it first.
	Upsert(ctx context.Context, line domain.CartLine) error

	// Remove deletes the entry for productID. Absent ids are not an error.
	Remove(ctx context.Context, productID string) error

	// ListAll returns every entry in no particular order.
	ListAll(ctx context.Context) ([]domain.CartLine, error)

	// Clear deletes every entry of the profile.
	Clear(ctx context.Context) error
}

// Backend owns the underlying storage and hands out per-profile stores.
type Backend interface {
	Profile(profileID string) Store
	Close() error
}

// unavailable tags a backend failure so callers can match domain.ErrStorageUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}
