package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var (
	ErrProductNotFound = fmt.Errorf("product %w", domain.ErrNotFound)
	ErrOrderNotFound   = fmt.Errorf("order %w", domain.ErrNotFound)
)

// ProductRepository reads the catalog. Products are never written by the storefront itself.
type ProductRepository interface {
	GetAllProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// OrderRepository creates orders and reads them back by id.
type OrderRepository interface {
	// CreateOrder persists the draft and returns the id assigned by the store.
	CreateOrder(ctx context.Context, draft domain.OrderDraft) (string, error)
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
}

// remote tags driver failures so callers can match domain.ErrNetworkFailure.
func remote(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrNetworkFailure, err)
}
