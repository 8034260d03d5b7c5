package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/cartstore"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/repository"
)

var errStoreDown = errors.New("disk is read-only")

// mockProductRepository implements repository.ProductRepository for testing
type mockProductRepository struct {
	m        sync.Mutex
	products map[string]domain.Product
	err      error
	listHits int
	getHits  int
	// block, when set, holds GetProduct until closed or until the call context ends
	block chan struct{}
}

func newMockProductRepository(products ...domain.Product) *mockProductRepository {
	r := &mockProductRepository{products: map[string]domain.Product{}}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (m *mockProductRepository) GetAllProducts(context.Context) ([]domain.Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.listHits++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Product, 0, len(m.products))
	for _, id := range sortedKeys(m.products) {
		out = append(out, m.products[id])
	}
	return out, nil
}

func (m *mockProductRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	m.m.Lock()
	m.getHits++
	block := m.block
	m.m.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (m *mockProductRepository) gets() int {
	m.m.Lock()
	defer m.m.Unlock()
	return m.getHits
}

func sortedKeys(m map[string]domain.Product) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// mockProductCache implements cache.ProductCache for testing
type mockProductCache struct {
	m        sync.Mutex
	all      []domain.Product
	products map[string]domain.Product
	getErr   error
	sets     chan struct{}
}

func newMockProductCache() *mockProductCache {
	return &mockProductCache{products: map[string]domain.Product{}, sets: make(chan struct{}, 16)}
}

func (m *mockProductCache) GetAll(context.Context) ([]domain.Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.all == nil {
		return nil, cache.ErrCacheMiss
	}
	return m.all, nil
}

func (m *mockProductCache) SetAll(_ context.Context, products []domain.Product) error {
	m.m.Lock()
	m.all = products
	m.m.Unlock()
	m.notify()
	return nil
}

func (m *mockProductCache) Get(_ context.Context, id string) (*domain.Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.products[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &p, nil
}

func (m *mockProductCache) Set(_ context.Context, p *domain.Product) error {
	m.m.Lock()
	m.products[p.ID] = *p
	m.m.Unlock()
	m.notify()
	return nil
}

func (m *mockProductCache) notify() {
	select {
	case m.sets <- struct{}{}:
	default:
	}
}

// failingStore wraps a cartstore.Store and fails selected operations.
type failingStore struct {
	cartstore.Store
	failUpsert bool
	failRemove bool
	failList   bool
	failClear  bool
	upserts    int
	clears     int
}

func (f *failingStore) Upsert(ctx context.Context, l domain.CartLine) error {
	f.upserts++
	if f.failUpsert {
		return errStoreDown
	}
	return f.Store.Upsert(ctx, l)
}

func (f *failingStore) Remove(ctx context.Context, id string) error {
	if f.failRemove {
		return errStoreDown
	}
	return f.Store.Remove(ctx, id)
}

func (f *failingStore) ListAll(ctx context.Context) ([]domain.CartLine, error) {
	if f.failList {
		return nil, errStoreDown
	}
	return f.Store.ListAll(ctx)
}

func (f *failingStore) Clear(ctx context.Context) error {
	f.clears++
	if f.failClear {
		return errStoreDown
	}
	return f.Store.Clear(ctx)
}

// mockOrderRepository implements repository.OrderRepository for testing
type mockOrderRepository struct {
	m         sync.Mutex
	created   []domain.OrderDraft
	orders    map[string]*domain.Order
	createErr error
	getErr    error
	nextID    string
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: map[string]*domain.Order{}, nextID: "65f1c0ffee0000000000beef"}
}

func (m *mockOrderRepository) CreateOrder(_ context.Context, draft domain.OrderDraft) (string, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.createErr != nil {
		return "", m.createErr
	}
	m.created = append(m.created, draft)
	m.orders[m.nextID] = &domain.Order{
		ID:          m.nextID,
		Lines:       draft.Lines(),
		TotalAmount: draft.TotalAmount(),
		Customer:    draft.Customer(),
		Notes:       draft.Notes(),
		Status:      draft.Status(),
	}
	return m.nextID, nil
}

func (m *mockOrderRepository) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return o, nil
}

// mockIdempotencyStore implements cache.IdempotencyStore for testing
type mockIdempotencyStore struct {
	locks  map[string]bool
	values map[string]string
	err    error
}

func newMockIdempotencyStore() *mockIdempotencyStore {
	return &mockIdempotencyStore{locks: map[string]bool{}, values: map[string]string{}}
}

func (m *mockIdempotencyStore) TryLock(_ context.Context, scope, key string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.locks[scope+key] {
		return false, nil
	}
	m.locks[scope+key] = true
	return true, nil
}

func (m *mockIdempotencyStore) Unlock(_ context.Context, scope, key string) error {
	delete(m.locks, scope+key)
	return nil
}

func (m *mockIdempotencyStore) Remember(_ context.Context, scope, key, value string) error {
	m.values[scope+key] = value
	return nil
}

func (m *mockIdempotencyStore) Recall(_ context.Context, scope, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[scope+key]
	return v, ok, nil
}

// mockPublisher implements EventPublisher for testing
type mockPublisher struct {
	events []publisher.OrderPlacedEvent
	err    error
}

func (m *mockPublisher) PublishOrderPlaced(_ context.Context, ev publisher.OrderPlacedEvent) error {
	m.events = append(m.events, ev)
	return m.err
}
