package cartstore

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var errClosed = errors.New("store is closed")

// MemoryBackend keeps carts in process memory. Contents do not survive a restart.
type MemoryBackend struct {
	mu     sync.RWMutex
	carts  map[string]map[string]domain.CartLine // profileID -> productID -> line
	closed bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{carts: make(map[string]map[string]domain.CartLine)}
}

func (b *MemoryBackend) Profile(profileID string) Store {
	return &memoryStore{backend: b, profileID: profileID}
}

func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.carts = nil
	return nil
}

type memoryStore struct {
	backend   *MemoryBackend
	profileID string
}

func (s *memoryStore) Upsert(ctx context.Context, line domain.CartLine) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return unavailable("upsert cart line", errClosed)
	}

	cart, ok := b.carts[s.profileID]
	if !ok {
		cart = make(map[string]domain.CartLine)
		b.carts[s.profileID] = cart
	}
	cart[line.ProductID] = copyLine(line)
	return nil
}

func (s *memoryStore) Remove(ctx context.Context, productID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return unavailable("remove cart line", errClosed)
	}

	delete(b.carts[s.profileID], productID)
	return nil
}

func (s *memoryStore) ListAll(ctx context.Context) ([]domain.CartLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := s.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, unavailable("list cart lines", errClosed)
	}

	cart := b.carts[s.profileID]
	lines := make([]domain.CartLine, 0, len(cart))
	for _, l := range cart {
		lines = append(lines, copyLine(l))
	}
	return lines, nil
}

func (s *memoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return unavailable("clear cart", errClosed)
	}

	delete(b.carts, s.profileID)
	return nil
}

func copyLine(l domain.CartLine) domain.CartLine {
	if l.SelectedVariant != nil {
		v := *l.SelectedVariant
		l.SelectedVariant = &v
	}
	return l
}
