package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	Port            string        `env:"PORT,             default=8080"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`
	MetricsEnabled  bool          `env:"METRICS_ENABLED,  default=true"`

	Auth  AuthConfig
	Store StoreConfig
	Mongo MongoConfig
	Redis RedisConfig
}

type AuthConfig struct {
	SecretKey        string        `env:"SECRET_KEY"`
	Issuer           string        `env:"JWT_ISSUER,           default=user-service"`
	AccessLifespan   time.Duration `env:"JWT_ACCESS_LIFESPAN,  default=24h"`
	RefreshLifespan  time.Duration `env:"JWT_REFRESH_LIFESPAN, default=720h"`
	BcryptCost       int           `env:"BCRYPT_COST,          default=10"`
	MaxLoginAttempts int           `env:"LOGIN_MAX_ATTEMPTS,   default=5"`
	LoginWindow      time.Duration `env:"LOGIN_ATTEMPT_WINDOW, default=15m"`
}

type StoreConfig struct {
	Driver      string `env:"STORE_DRIVER, default=postgres"`
	DatabaseURL string `env:"DATABASE_URL, default=postgres://localhost:5432/users?sslmode=disable"`
	SQLitePath  string `env:"SQLITE_PATH,  default=users.db"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=user_service"`
}

// RedisConfig enables login throttling when Addr is set.
type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

// Load reads configuration from environment variables.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through l; tests pass envconfig.MapLookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Auth.SecretKey == "" {
		errs = append(errs, errors.New("SECRET_KEY is required"))
	}
	if c.Auth.AccessLifespan <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_LIFESPAN must be positive"))
	}
	if c.Auth.RefreshLifespan < c.Auth.AccessLifespan {
		errs = append(errs, errors.New("JWT_REFRESH_LIFESPAN must not be shorter than JWT_ACCESS_LIFESPAN"))
	}
	if c.Auth.MaxLoginAttempts <= 0 {
		errs = append(errs, errors.New("LOGIN_MAX_ATTEMPTS must be positive"))
	}
	if c.Redis.Addr != "" && c.Auth.LoginWindow <= 0 {
		errs = append(errs, errors.New("LOGIN_ATTEMPT_WINDOW must be positive when REDIS_ADDR is set"))
	}
	switch c.Store.Driver {
	case DriverPostgres, DriverSQLite, DriverMongo, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// IsDevelopment reports whether human-friendly logging should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
