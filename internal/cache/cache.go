package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// ProductCache keeps catalog reads off the document store.
type ProductCache interface {
	GetAll(ctx context.Context) ([]domain.Product, error)
	SetAll(ctx context.Context, products []domain.Product) error
	Get(ctx context.Context, id string) (*domain.Product, error)
	Set(ctx context.Context, product *domain.Product) error
}

// IdempotencyStore remembers which order a checkout Idempotency-Key produced.
type IdempotencyStore interface {
	// TryLock claims key within scope. False means another request already holds it.
	TryLock(ctx context.Context, scope, key string) (bool, error)
	// Unlock releases a claim that did not produce a result.
	Unlock(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

var ErrCacheMiss = errors.New("cache miss")
