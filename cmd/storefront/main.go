package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fjod/go_cart/storefront/configs"
	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/cartstore"
	"github.com/fjod/go_cart/storefront/internal/domain"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func main() {
	configDir := flag.String("config", "./configs", "directory holding base.yaml and <env>.yaml")
	envName := flag.String("env", os.Getenv("APP_ENV"), "environment overlay (dev, staging, prod)")
	flag.Parse()

	cfg, err := configs.Load(*configDir, *envName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Component: cfg.App.Name,
		Level:     cfg.App.LogLevel,
		FilePath:  cfg.App.LogFile,
	})

	if err := run(cfg, log); err != nil {
		log.Error("storefront stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg configs.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Spans are not exported; they give every request a trace id for log correlation.
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer func() { _ = tp.Shutdown(context.Background()) }()

	reg := metrics.NewRegistry()

	// Document store
	pool := repository.DefaultPoolConfig()
	pool.MaxPoolSize = cfg.Mongo.MaxPoolSize
	pool.MinPoolSize = cfg.Mongo.MinPoolSize
	db, err := repository.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database, pool)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Client().Disconnect(context.Background()); err != nil {
			log.Warn("mongo disconnect", "error", err)
		}
	}()
	log.Info("connected to MongoDB", "database", cfg.Mongo.Database)

	products := repository.NewMongoProductRepository(db)
	if cfg.Mongo.SeedFile != "" {
		if err := seedProducts(ctx, products, cfg.Mongo.SeedFile); err != nil {
			return err
		}
		log.Info("catalog seeded", "file", cfg.Mongo.SeedFile)
	}

	breaker := repository.BreakerConfig{
		CallTimeout:         cfg.Mongo.CallTimeout,
		OpenTimeout:         cfg.Breaker.OpenTimeout,
		ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		HalfOpenRequests:    cfg.Breaker.HalfOpenRequests,
	}
	productRepo := repository.NewGuardedProducts(products, breaker, log)
	orderRepo := repository.NewGuardedOrders(repository.NewMongoOrderRepository(db), breaker, log)

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// cache and idempotency degrade gracefully, keep serving
		log.Warn("redis unreachable", "addr", cfg.Redis.Addr, "error", err)
	}

	carts, err := openCartStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := carts.Close(); err != nil {
			log.Warn("cart store close", "error", err)
		}
	}()
	log.Info("cart store opened", "backend", cfg.CartStore.Backend)

	var events eventSink = publisher.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		events = publisher.NewKafkaPublisher(cfg.Kafka.TopicOrders, cfg.Kafka.Brokers...)
		log.Info("publishing order events", "topic", cfg.Kafka.TopicOrders, "brokers", cfg.Kafka.Brokers)
	}
	defer func() {
		if err := events.Close(); err != nil {
			log.Warn("publisher close", "error", err)
		}
	}()

	catalog := service.NewCatalogService(productRepo, cache.NewRedisCache(rdb, cfg.Redis.CacheTTL), reg).
		WithFlightTimeout(cfg.HTTP.RequestTimeout)
	checkout := service.NewCheckoutService(orderRepo, cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL), events, reg)
	confirmation := service.NewConfirmationService(orderRepo,
		service.BankDetails{
			AccountName:   cfg.Payment.AccountName,
			BankName:      cfg.Payment.BankName,
			AccountNumber: cfg.Payment.AccountNumber,
		},
		service.ContactConfig{URL: cfg.Contact.URL, Message: cfg.Contact.Message},
	)

	router := h.NewRouter(h.RouterConfig{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		SecureCookies:  cfg.HTTP.SecureCookies,
		Logger:         log,
		Metrics:        reg,
	}, h.Handlers{
		Products: h.NewProductHandler(catalog, carts, cfg.HTTP.RequestTimeout),
		Cart:     h.NewCartHandler(carts, reg, cfg.HTTP.RequestTimeout),
		Checkout: h.NewCheckoutHandler(checkout, carts, cfg.HTTP.RequestTimeout),
		Orders:   h.NewOrderHandler(confirmation, cfg.HTTP.RequestTimeout),
	})

	srv := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("storefront starting", "addr", cfg.App.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}

func openCartStore(cfg configs.Config) (cartstore.Backend, error) {
	switch cfg.CartStore.Backend {
	case "pebble":
		return cartstore.OpenPebble(cfg.CartStore.PebbleDir)
	case "sqlite":
		return cartstore.OpenSQLite(cfg.CartStore.SQLitePath)
	default:
		return cartstore.NewMemoryBackend(), nil
	}
}

type productSeeder interface {
	SeedProducts(ctx context.Context, products []domain.Product) error
}

type eventSink interface {
	service.EventPublisher
	Close() error
}

func seedProducts(ctx context.Context, repo productSeeder, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var products []domain.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return fmt.Errorf("decode seed file: %w", err)
	}
	return repo.SeedProducts(ctx, products)
}
