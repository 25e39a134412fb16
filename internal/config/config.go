package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

const EnvPrefix = "cart"

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	Health HealthConfig
}

// Load reads the process environment. Callers that want a .env file load it first.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env              string        `envconfig:"CART_APP_ENV" default:"dev"`
	LogLevel         string        `envconfig:"CART_LOG_LEVEL" default:"info"`
	LogFormat        string        `envconfig:"CART_LOG_FORMAT" default:"json"`
	HTTPAddr         string        `envconfig:"CART_HTTP_ADDR" default:":8080"`
	GRPCAddr         string        `envconfig:"CART_GRPC_ADDR" default:":50051"`
	OperationTimeout time.Duration `envconfig:"CART_OPERATION_TIMEOUT" default:"5s"`
	ShutdownTimeout  time.Duration `envconfig:"CART_SHUTDOWN_TIMEOUT" default:"10s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, "dev")
}

type DBConfig struct {
	Driver          string        `envconfig:"CART_DB_DRIVER" default:"mysql"`
	DSN             string        `envconfig:"CART_DB_DSN" default:"root:root@tcp(localhost:3306)/cart"`
	MaxOpenConns    int           `envconfig:"CART_DB_MAX_OPEN_CONNS" default:"50"`
	MaxIdleConns    int           `envconfig:"CART_DB_MAX_IDLE_CONNS" default:"25"`
	ConnMaxLifetime time.Duration `envconfig:"CART_DB_CONN_MAX_LIFETIME" default:"5m"`
	AutoMigrate     bool          `envconfig:"CART_DB_AUTO_MIGRATE" default:"true"`
}

// RedisConfig is optional. Without an address the server locks in process and
// keyed add-to-cart requests are not deduplicated.
type RedisConfig struct {
	Addr           string        `envconfig:"CART_REDIS_ADDR"`
	Password       string        `envconfig:"CART_REDIS_PASSWORD"`
	DB             int           `envconfig:"CART_REDIS_DB" default:"0"`
	PoolSize       int           `envconfig:"CART_REDIS_POOL_SIZE" default:"100"`
	LockTTL        time.Duration `envconfig:"CART_REDIS_LOCK_TTL" default:"10s"`
	IdempotencyTTL time.Duration `envconfig:"CART_REDIS_IDEMPOTENCY_TTL" default:"24h"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

type HealthConfig struct {
	PingInterval time.Duration `envconfig:"CART_HEALTH_PING_INTERVAL" default:"5s"`
}

func (c *Config) Validate() error {
	var errs []error

	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	switch c.DB.Driver {
	case DriverMySQL, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("CART_DB_DRIVER must be %q or %q, got %q", DriverMySQL, DriverSQLite, c.DB.Driver))
	}
	if strings.TrimSpace(c.DB.DSN) == "" {
		errs = append(errs, errors.New("CART_DB_DSN is required"))
	}
	if c.App.OperationTimeout <= 0 {
		errs = append(errs, errors.New("CART_OPERATION_TIMEOUT must be positive"))
	}
	if c.App.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("CART_SHUTDOWN_TIMEOUT must be positive"))
	}
	if c.Health.PingInterval <= 0 {
		errs = append(errs, errors.New("CART_HEALTH_PING_INTERVAL must be positive"))
	}
	if c.Redis.Enabled() && c.Redis.LockTTL <= 0 {
		errs = append(errs, errors.New("CART_REDIS_LOCK_TTL must be positive"))
	} else if c.Redis.Enabled() && c.Redis.LockTTL <= c.App.OperationTimeout {
		// a lock that expires inside the operation lets a second holder in
		errs = append(errs, fmt.Errorf("CART_REDIS_LOCK_TTL (%s) must exceed CART_OPERATION_TIMEOUT (%s)",
			c.Redis.LockTTL, c.App.OperationTimeout))
	}
	return multierr.Combine(errs...)
}
