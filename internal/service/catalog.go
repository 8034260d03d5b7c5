package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/cartstore"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"golang.org/x/sync/singleflight"
)

type CatalogService struct {
	repo    repository.ProductRepository
	cache   cache.ProductCache
	metrics *metrics.Registry
	sfg     singleflight.Group // Prevents cache stampede

	flightTimeout time.Duration
}

const defaultFlightTimeout = 10 * time.Second

func NewCatalogService(repo repository.ProductRepository, c cache.ProductCache, m *metrics.Registry) *CatalogService {
	return &CatalogService{
		repo:    repo,
		cache:   c,
		metrics: m,

		flightTimeout: defaultFlightTimeout,
	}
}

// WithFlightTimeout bounds one shared cache-then-repository fetch.
func (s *CatalogService) WithFlightTimeout(d time.Duration) *CatalogService {
	if d > 0 {
		s.flightTimeout = d
	}
	return s
}

// flight runs fn once per key for all concurrent callers. fn runs detached from the
// caller's cancellation, so one aborted request does not fail the others; each caller
// still stops waiting when its own context ends.
func (s *CatalogService) flight(ctx context.Context, key string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	ch := s.sfg.DoChan(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.flightTimeout)
		defer cancel()
		return fn(fctx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ListProducts returns the catalog, filtered by query when it is not blank.
func (s *CatalogService) ListProducts(ctx context.Context, query string) ([]domain.Product, error) {
	v, err := s.flight(ctx, "products:all", func(ctx context.Context) (interface{}, error) {
		products, err := s.cache.GetAll(ctx)
		if err == nil {
			s.lookup("all", "hit")
			return products, nil
		}
		s.cacheMiss(ctx, "all", err)

		products, err = s.repo.GetAllProducts(ctx)
		if err != nil {
			return nil, err
		}

		go func(products []domain.Product) {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.SetAll(setCtx, products); err != nil {
				logger.FromCtx(ctx).Warn("cache set error", "key", "all", "error", err)
			}
		}(products)

		return products, nil
	})
	if err != nil {
		return nil, err
	}

	all := v.([]domain.Product)
	out := make([]domain.Product, 0, len(all))
	for _, p := range all {
		if p.Matches(query) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	v, err := s.flight(ctx, "product:"+id, func(ctx context.Context) (interface{}, error) {
		p, err := s.cache.Get(ctx, id)
		if err == nil {
			s.lookup("product", "hit")
			return p, nil
		}
		s.cacheMiss(ctx, "product", err)

		p, err = s.repo.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}

		go func(p domain.Product) {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.Set(setCtx, &p); err != nil {
				logger.FromCtx(ctx).Warn("cache set error", "key", "product", "error", err)
			}
		}(*p)

		return p, nil
	})
	if err != nil {
		return nil, err
	}

	// callers sharing a flight must not share the pointer
	p := *v.(*domain.Product)
	return &p, nil
}

// AddToCart reads the product, normalizes quantity and writes the line to store.
// A product already in the cart is overwritten, not merged.
func (s *CatalogService) AddToCart(ctx context.Context, store cartstore.Store, productID string, quantity int, variant *domain.Variant) (domain.CartLine, error) {
	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return domain.CartLine{}, err
	}

	if variant != nil && !p.HasVariant(*variant) {
		return domain.CartLine{}, fmt.Errorf("%w: %s=%s", ErrUnknownVariant, variant.Name, variant.Value)
	}

	line := p.ToCartLine(quantity, variant)
	err = store.Upsert(ctx, line)
	s.metrics.CartMutation("upsert", err)
	if err != nil {
		return domain.CartLine{}, err
	}
	return line, nil
}

func (s *CatalogService) cacheMiss(ctx context.Context, key string, err error) {
	if errors.Is(err, cache.ErrCacheMiss) {
		s.lookup(key, "miss")
		return
	}
	// log cache error but continue
	s.lookup(key, "error")
	logger.FromCtx(ctx).Warn("cache get error", "key", key, "error", err)
}

func (s *CatalogService) lookup(key, result string) {
	s.metrics.CacheLookups.WithLabelValues(key, result).Inc()
}
