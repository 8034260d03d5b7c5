package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/pkg/circuitbreaker"
)

type BreakerConfig struct {
	CallTimeout         time.Duration
	OpenTimeout         time.Duration
	ConsecutiveFailures uint32
	HalfOpenRequests    uint32
}

// countsAsFailure keeps not-found answers and caller cancellations from tripping the breaker.
func countsAsFailure(err error) bool {
	return err != nil &&
		!errors.Is(err, domain.ErrNotFound) &&
		!errors.Is(err, context.Canceled)
}

func breakerSettings(name string, cfg BreakerConfig, log *slog.Logger) circuitbreaker.Settings {
	return circuitbreaker.Settings{
		Name:                name,
		MaxRequests:         cfg.HalfOpenRequests,
		Timeout:             cfg.OpenTimeout,
		ConsecutiveFailures: cfg.ConsecutiveFailures,
		IsSuccessful:        func(err error) bool { return !countsAsFailure(err) },
		Logger:              log,
	}
}

// guard bounds one remote call by timeout and maps breaker rejection to ErrNetworkFailure.
func guard[T any](ctx context.Context, b *circuitbreaker.Breaker[T], timeout time.Duration, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	res, err := b.Execute(func() (T, error) {
		callCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return fn(callCtx)
	})
	if errors.Is(err, circuitbreaker.ErrUnavailable) {
		return res, fmt.Errorf("%s: %w: %w", op, domain.ErrNetworkFailure, err)
	}
	return res, err
}

// GuardedProducts wraps a ProductRepository with a per-call timeout and a circuit breaker.
type GuardedProducts struct {
	next    ProductRepository
	timeout time.Duration
	list    *circuitbreaker.Breaker[[]domain.Product]
	get     *circuitbreaker.Breaker[*domain.Product]
}

func NewGuardedProducts(next ProductRepository, cfg BreakerConfig, log *slog.Logger) *GuardedProducts {
	return &GuardedProducts{
		next:    next,
		timeout: cfg.CallTimeout,
		list:    circuitbreaker.New[[]domain.Product](breakerSettings("products.list", cfg, log)),
		get:     circuitbreaker.New[*domain.Product](breakerSettings("products.get", cfg, log)),
	}
}

func (g *GuardedProducts) GetAllProducts(ctx context.Context) ([]domain.Product, error) {
	return guard(ctx, g.list, g.timeout, "list products", g.next.GetAllProducts)
}

func (g *GuardedProducts) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return guard(ctx, g.get, g.timeout, "get product", func(ctx context.Context) (*domain.Product, error) {
		return g.next.GetProduct(ctx, id)
	})
}

// GuardedOrders wraps an OrderRepository the same way. Writes and reads trip separately.
type GuardedOrders struct {
	next    OrderRepository
	timeout time.Duration
	create  *circuitbreaker.Breaker[string]
	get     *circuitbreaker.Breaker[*domain.Order]
}

func NewGuardedOrders(next OrderRepository, cfg BreakerConfig, log *slog.Logger) *GuardedOrders {
	return &GuardedOrders{
		next:    next,
		timeout: cfg.CallTimeout,
		create:  circuitbreaker.New[string](breakerSettings("orders.create", cfg, log)),
		get:     circuitbreaker.New[*domain.Order](breakerSettings("orders.get", cfg, log)),
	}
}

func (g *GuardedOrders) CreateOrder(ctx context.Context, draft domain.OrderDraft) (string, error) {
	return guard(ctx, g.create, g.timeout, "create order", func(ctx context.Context) (string, error) {
		return g.next.CreateOrder(ctx, draft)
	})
}

func (g *GuardedOrders) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	return guard(ctx, g.get, g.timeout, "get order", func(ctx context.Context) (*domain.Order, error) {
		return g.next.GetOrderByID(ctx, id)
	})
}
