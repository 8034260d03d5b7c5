package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "STOREFRONT_"

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		IdleTimeout     time.Duration `koanf:"idle_timeout"`
		RequestTimeout  time.Duration `koanf:"request_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
		MaxBodyBytes    int64         `koanf:"max_body_bytes"`
		SecureCookies   bool          `koanf:"secure_cookies"`
	} `koanf:"http"`

	Mongo struct {
		URI         string        `koanf:"uri"`
		Database    string        `koanf:"database"`
		MaxPoolSize uint64        `koanf:"max_pool_size"`
		MinPoolSize uint64        `koanf:"min_pool_size"`
		CallTimeout time.Duration `koanf:"call_timeout"`
		SeedFile    string        `koanf:"seed_file"`
	} `koanf:"mongo"`

	Breaker struct {
		ConsecutiveFailures uint32        `koanf:"consecutive_failures"`
		OpenTimeout         time.Duration `koanf:"open_timeout"`
		HalfOpenRequests    uint32        `koanf:"half_open_requests"`
	} `koanf:"breaker"`

	CartStore struct {
		// Backend is one of pebble, sqlite, memory.
		Backend    string `koanf:"backend"`
		PebbleDir  string `koanf:"pebble_dir"`
		SQLitePath string `koanf:"sqlite_path"`
	} `koanf:"cart_store"`

	Redis struct {
		Addr     string        `koanf:"addr"`
		Password string        `koanf:"password"`
		DB       int           `koanf:"db"`
		CacheTTL time.Duration `koanf:"cache_ttl"`
	} `koanf:"redis"`

	Idempotency struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"idempotency"`

	Kafka struct {
		Brokers     []string `koanf:"brokers"`
		TopicOrders string   `koanf:"topic_orders"`
	} `koanf:"kafka"`

	Payment struct {
		AccountName   string `koanf:"account_name"`
		BankName      string `koanf:"bank_name"`
		AccountNumber string `koanf:"account_number"`
	} `koanf:"payment"`

	Contact struct {
		URL     string `koanf:"url"`
		Message string `koanf:"message"`
	} `koanf:"contact"`
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod). Optional: allow missing for local runs.
	if envName != "" {
		_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())
	}

	// 3) environment variables override (prefix STOREFRONT_, nested with __)
	// e.g. STOREFRONT_MONGO__URI, STOREFRONT_CART_STORE__BACKEND
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	if c.Mongo.URI == "" || c.Mongo.Database == "" {
		return fmt.Errorf("mongo.uri and mongo.database required")
	}
	if c.Mongo.CallTimeout <= 0 {
		return fmt.Errorf("mongo.call_timeout must be positive")
	}
	switch c.CartStore.Backend {
	case "pebble":
		if c.CartStore.PebbleDir == "" {
			return fmt.Errorf("cart_store.pebble_dir required for pebble backend")
		}
	case "sqlite":
		if c.CartStore.SQLitePath == "" {
			return fmt.Errorf("cart_store.sqlite_path required for sqlite backend")
		}
	case "memory":
	default:
		return fmt.Errorf("cart_store.backend %q: want pebble, sqlite or memory", c.CartStore.Backend)
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr required")
	}
	if c.Payment.AccountNumber == "" {
		return fmt.Errorf("payment.account_number required")
	}
	if c.Contact.URL == "" {
		return fmt.Errorf("contact.url required")
	}
	return nil
}
