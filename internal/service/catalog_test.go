package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cartstore"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogFixture() []domain.Product {
	return []domain.Product{
		{
			ID:                "shirt",
			ProductName:       "Ankara Shirt",
			Description:       "Hand made cotton",
			UnitPrice:         1000,
			Images:            []string{"https://img.example/shirt.jpg", "https://img.example/shirt2.jpg"},
			AvailableQuantity: 5,
			Variants:          []domain.Variant{{Name: "Size", Value: "M"}, {Name: "Size", Value: "XL"}},
		},
		{
			ID:          "cap",
			ProductName: "Cap",
			Description: "Cotton cap",
			UnitPrice:   500,
		},
		{
			ID:          "mug",
			ProductName: "Mug",
			Description: "Ceramic",
			UnitPrice:   300,
		},
	}
}

func waitForCacheSet(t *testing.T, c *mockProductCache) {
	t.Helper()
	select {
	case <-c.sets:
	case <-time.After(time.Second):
		t.Fatal("cache was not populated")
	}
}

func TestListProducts_CacheAside(t *testing.T) {
	repo := newMockProductRepository(catalogFixture()...)
	c := newMockProductCache()
	m := metrics.NewRegistry()
	svc := NewCatalogService(repo, c, m)
	ctx := context.Background()

	products, err := svc.ListProducts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, products, 3)
	waitForCacheSet(t, c)

	products, err = svc.ListProducts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, products, 3)

	assert.Equal(t, 1, repo.listHits)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("all", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("all", "hit")))
}

func TestListProducts_Search(t *testing.T) {
	svc := NewCatalogService(newMockProductRepository(catalogFixture()...), newMockProductCache(), metrics.NewRegistry())
	ctx := context.Background()

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"cap", "mug", "shirt"}},
		{"   ", []string{"cap", "mug", "shirt"}},
		{"ANKARA", []string{"shirt"}},
		{"cotton", []string{"cap", "shirt"}},
		{"ceram", []string{"mug"}},
		{"laptop", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			products, err := svc.ListProducts(ctx, tt.query)
			require.NoError(t, err)
			var ids []string
			for _, p := range products {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestListProducts_CacheErrorFallsBackToRepo(t *testing.T) {
	repo := newMockProductRepository(catalogFixture()...)
	c := newMockProductCache()
	c.getErr = errors.New("redis down")
	svc := NewCatalogService(repo, c, metrics.NewRegistry())

	products, err := svc.ListProducts(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, products, 3)
}

func TestListProducts_RepoError(t *testing.T) {
	repo := newMockProductRepository()
	repo.err = domain.ErrNetworkFailure
	svc := NewCatalogService(repo, newMockProductCache(), metrics.NewRegistry())

	_, err := svc.ListProducts(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrNetworkFailure)
}

func TestGetProduct_NotFound(t *testing.T) {
	svc := NewCatalogService(newMockProductRepository(catalogFixture()...), newMockProductCache(), metrics.NewRegistry())

	p, err := svc.GetProduct(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, p)
}

func TestGetProduct_ConcurrentCallersShareOneFetch(t *testing.T) {
	repo := newMockProductRepository(catalogFixture()...)
	svc := NewCatalogService(repo, newMockProductCache(), metrics.NewRegistry())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := svc.GetProduct(context.Background(), "shirt")
			assert.NoError(t, err)
			assert.Equal(t, "Ankara Shirt", p.ProductName)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, repo.getHits, 20)
	assert.GreaterOrEqual(t, repo.getHits, 1)
}

func TestGetProduct_CancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	repo := newMockProductRepository(catalogFixture()...)
	repo.block = make(chan struct{})
	svc := NewCatalogService(repo, newMockProductCache(), metrics.NewRegistry())

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderDone := make(chan struct{})
	go func() {
		defer close(leaderDone)
		_, _ = svc.GetProduct(leaderCtx, "shirt")
	}()
	require.Eventually(t, func() bool { return repo.gets() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		p   *domain.Product
		err error
	}
	follower := make(chan result, 1)
	go func() {
		p, err := svc.GetProduct(context.Background(), "shirt")
		follower <- result{p, err}
	}()
	time.Sleep(50 * time.Millisecond) // let the follower join the flight

	cancelLeader()
	<-leaderDone
	close(repo.block)

	select {
	case res := <-follower:
		require.NoError(t, res.err)
		assert.Equal(t, "Ankara Shirt", res.p.ProductName)
	case <-time.After(2 * time.Second):
		t.Fatal("follower did not return")
	}
	assert.Equal(t, 1, repo.gets())
}

func TestGetProduct_FlightTimeoutBoundsFetch(t *testing.T) {
	repo := newMockProductRepository(catalogFixture()...)
	repo.block = make(chan struct{})
	defer close(repo.block)
	svc := NewCatalogService(repo, newMockProductCache(), metrics.NewRegistry()).
		WithFlightTimeout(20 * time.Millisecond)

	_, err := svc.GetProduct(context.Background(), "shirt")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAddToCart(t *testing.T) {
	svc := NewCatalogService(newMockProductRepository(catalogFixture()...), newMockProductCache(), metrics.NewRegistry())
	ctx := context.Background()

	tests := []struct {
		name      string
		productID string
		quantity  int
		variant   *domain.Variant
		wantQty   int
		wantImage string
		wantErr   error
	}{
		{
			name:      "clamps to stock",
			productID: "shirt",
			quantity:  50,
			variant:   &domain.Variant{Name: "Size", Value: "XL"},
			wantQty:   5,
			wantImage: "https://img.example/shirt.jpg",
		},
		{
			name:      "zero becomes one",
			productID: "cap",
			quantity:  0,
			wantQty:   1,
			wantImage: domain.PlaceholderImage,
		},
		{
			name:      "unknown stock caps at 999",
			productID: "mug",
			quantity:  5000,
			wantQty:   999,
			wantImage: domain.PlaceholderImage,
		},
		{
			name:      "variant must exist",
			productID: "shirt",
			quantity:  1,
			variant:   &domain.Variant{Name: "Size", Value: "S"},
			wantErr:   ErrUnknownVariant,
		},
		{
			name:      "missing product",
			productID: "ghost",
			quantity:  1,
			wantErr:   domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := cartstore.NewMemoryBackend().Profile("p")
			line, err := svc.AddToCart(ctx, store, tt.productID, tt.quantity, tt.variant)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				lines, _ := store.ListAll(ctx)
				assert.Empty(t, lines)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantQty, line.Quantity)
			assert.Equal(t, tt.wantImage, line.ImageRef)

			lines, err := store.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, lines, 1)
			assert.Equal(t, line, lines[0])
		})
	}
}

func TestAddToCart_ReAddOverwrites(t *testing.T) {
	svc := NewCatalogService(newMockProductRepository(catalogFixture()...), newMockProductCache(), metrics.NewRegistry())
	ctx := context.Background()
	store := cartstore.NewMemoryBackend().Profile("p")

	_, err := svc.AddToCart(ctx, store, "cap", 3, nil)
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, store, "cap", 2, nil)
	require.NoError(t, err)

	lines, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestAddToCart_StoreFailure(t *testing.T) {
	svc := NewCatalogService(newMockProductRepository(catalogFixture()...), newMockProductCache(), metrics.NewRegistry())
	backend := cartstore.NewMemoryBackend()
	store := backend.Profile("p")
	require.NoError(t, backend.Close())

	_, err := svc.AddToCart(context.Background(), store, "cap", 1, nil)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}
