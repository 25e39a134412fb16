package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.HTTPAddr != ":8080" {
		t.Fatalf("unexpected http addr %q", cfg.App.HTTPAddr)
	}
	if cfg.App.GRPCAddr != ":50051" {
		t.Fatalf("unexpected grpc addr %q", cfg.App.GRPCAddr)
	}
	if cfg.App.OperationTimeout != 5*time.Second {
		t.Fatalf("expected operation timeout 5s, got %v", cfg.App.OperationTimeout)
	}
	if cfg.DB.Driver != DriverMySQL {
		t.Fatalf("expected mysql driver, got %q", cfg.DB.Driver)
	}
	if cfg.DB.MaxOpenConns != 50 || cfg.DB.MaxIdleConns != 25 {
		t.Fatalf("unexpected pool sizes %d/%d", cfg.DB.MaxOpenConns, cfg.DB.MaxIdleConns)
	}
	if !cfg.DB.AutoMigrate {
		t.Fatal("expected auto migrate on by default")
	}
	if cfg.Redis.Enabled() {
		t.Fatal("redis should be disabled without an address")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CART_DB_DRIVER", "SQLite")
	t.Setenv("CART_DB_DSN", "/tmp/cart.db")
	t.Setenv("CART_OPERATION_TIMEOUT", "750ms")
	t.Setenv("CART_REDIS_ADDR", "localhost:6379")
	t.Setenv("CART_REDIS_LOCK_TTL", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.DB.Driver != DriverSQLite {
		t.Fatalf("expected driver to be normalized to sqlite, got %q", cfg.DB.Driver)
	}
	if cfg.App.OperationTimeout != 750*time.Millisecond {
		t.Fatalf("expected 750ms, got %v", cfg.App.OperationTimeout)
	}
	if !cfg.Redis.Enabled() || cfg.Redis.LockTTL != 3*time.Second {
		t.Fatalf("unexpected redis config %+v", cfg.Redis)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"unknown driver", "CART_DB_DRIVER", "postgres", "CART_DB_DRIVER"},
		{"empty dsn", "CART_DB_DSN", " ", "CART_DB_DSN"},
		{"zero timeout", "CART_OPERATION_TIMEOUT", "0s", "CART_OPERATION_TIMEOUT"},
		{"bad duration", "CART_SHUTDOWN_TIMEOUT", "soon", "parsing config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_LockTTLShorterThanOperation(t *testing.T) {
	t.Setenv("CART_REDIS_ADDR", "localhost:6379")
	t.Setenv("CART_REDIS_LOCK_TTL", "1s")
	t.Setenv("CART_OPERATION_TIMEOUT", "5s")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "must exceed CART_OPERATION_TIMEOUT") {
		t.Fatalf("unexpected error %v", err)
	}

	t.Setenv("CART_REDIS_LOCK_TTL", "5s")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a lock ttl equal to the operation timeout")
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Config{
		App:    AppConfig{OperationTimeout: 0, ShutdownTimeout: time.Second},
		DB:     DBConfig{Driver: "oracle", DSN: ""},
		Health: HealthConfig{PingInterval: time.Second},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"CART_DB_DRIVER", "CART_DB_DSN", "CART_OPERATION_TIMEOUT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}
