package service

import (
	"context"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/cartstore"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/metrics"
)

// CartSnapshot is the rendered state of the cart page.
type CartSnapshot struct {
	Lines     []domain.CartLine `json:"items"`
	Total     float64           `json:"total"`
	ItemCount int               `json:"item_count"`
}

// CartView holds the visible cart model of one profile.
// Edits are staged, written to the store, and only then committed to the visible model.
// A failed write discards the staged edit.
type CartView struct {
	store   cartstore.Store
	metrics *metrics.Registry
	lines   []domain.CartLine
}

func NewCartView(store cartstore.Store, m *metrics.Registry) *CartView {
	return &CartView{store: store, metrics: m}
}

// Load replaces the visible model with the store contents.
func (v *CartView) Load(ctx context.Context) error {
	lines, err := v.store.ListAll(ctx)
	if err != nil {
		return err
	}
	v.lines = lines
	return nil
}

func (v *CartView) Snapshot() CartSnapshot {
	lines := make([]domain.CartLine, len(v.lines))
	copy(lines, v.lines)
	return CartSnapshot{
		Lines:     lines,
		Total:     domain.CartTotal(lines),
		ItemCount: domain.ItemCount(lines),
	}
}

// UpdateQuantity sets the quantity of one line. Quantities below 1 are rejected
// without touching the store.
func (v *CartView) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	idx := v.indexOf(productID)
	if idx < 0 {
		return fmt.Errorf("cart item %s: %w", productID, domain.ErrNotFound)
	}

	staged := v.lines[idx]
	staged.Quantity = quantity

	err := v.store.Upsert(ctx, staged)
	v.metrics.CartMutation("upsert", err)
	if err != nil {
		return err
	}

	committed := make([]domain.CartLine, len(v.lines))
	copy(committed, v.lines)
	committed[idx] = staged
	v.lines = committed
	return nil
}

// Remove deletes one line. Removing a line that is not in the cart is a no-op.
func (v *CartView) Remove(ctx context.Context, productID string) error {
	staged := make([]domain.CartLine, 0, len(v.lines))
	for _, l := range v.lines {
		if l.ProductID != productID {
			staged = append(staged, l)
		}
	}

	err := v.store.Remove(ctx, productID)
	v.metrics.CartMutation("remove", err)
	if err != nil {
		return err
	}

	v.lines = staged
	return nil
}

func (v *CartView) indexOf(productID string) int {
	for i, l := range v.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}
