package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/inventory-cart/internal/adapter/storage"
	"github.com/rl1809/inventory-cart/internal/config"
	"github.com/rl1809/inventory-cart/internal/core/domain"
	"github.com/rl1809/inventory-cart/internal/core/service"
	"github.com/rl1809/inventory-cart/internal/logger"
	"github.com/rl1809/inventory-cart/internal/port"
)

const (
	initialStock  = 20
	totalRequests = 50
)

var errAssertions = errors.New("stress assertions failed")

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "stress-test", Format: "console"})

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	// run owns every resource, so its deferred cleanup is done before the exit
	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "stress test failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	// sqlite without a dsn runs against a throwaway file
	dsn := cfg.DB.DSN
	if cfg.DB.Driver == config.DriverSQLite && os.Getenv("CART_DB_DSN") == "" {
		dir, err := os.MkdirTemp("", "cart-stress")
		if err != nil {
			return fmt.Errorf("create temp dir: %w", err)
		}
		defer os.RemoveAll(dir)
		dsn = filepath.Join(dir, "stress.db")
	}

	db, store, err := storage.OpenStore(ctx, cfg.DB.Driver, dsn, storage.PoolOptions{
		MaxOpenConns: cfg.DB.MaxOpenConns,
		MaxIdleConns: cfg.DB.MaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(db, cfg.DB.Driver); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	opts := []service.Option{service.WithOperationTimeout(cfg.App.OperationTimeout)}
	var locker port.Locker = storage.NewKeyedLocker()
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		redisAdapter := storage.NewRedisAdapter(rdb, cfg.Redis.LockTTL, cfg.Redis.IdempotencyTTL)
		locker = redisAdapter
		opts = append(opts, service.WithIdempotency(redisAdapter))
	}

	catalogService := service.NewCatalogService(store, locker, opts...)
	cartService := service.NewCartService(store, locker, opts...)

	// Clear previous test data
	if err := cartService.ClearCart(ctx); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	item, err := catalogService.CreateItem(ctx, domain.InventoryItem{
		Name:        "stress-item-" + uuid.NewString()[:8],
		Image:       "stress.png",
		Description: "concurrent add-to-cart target",
		Price:       decimal.RequireFromString("9.99"),
		Quantity:    initialStock,
	})
	if err != nil {
		return fmt.Errorf("seed item: %w", err)
	}
	defer func() {
		if err := cartService.ClearCart(ctx); err == nil {
			_ = catalogService.DeleteItem(ctx, item.ID)
		}
	}()

	// Counters
	var successCount, rejectedCount, errorCount atomic.Int32

	// Spawn concurrent requests
	var g errgroup.Group
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		g.Go(func() error {
			err := cartService.AddToCart(ctx, uuid.NewString(), item.ID, 1)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				rejectedCount.Add(1)
			default:
				errorCount.Add(1)
				logg.Error(ctx, "add to cart failed", err)
			}
			return nil
		})
	}

	g.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	rejected := rejectedCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Driver:           %s\n", cfg.DB.Driver)
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Rejected:         %d\n", rejected)
	fmt.Printf("Errors:           %d\n", errorCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	failed := false

	// Assertions
	if success == initialStock && rejected == totalRequests-initialStock {
		fmt.Printf("PASS: Exactly %d adds succeeded, %d rejected\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d rejected, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, rejected)
		failed = true
	}

	// Verify the merged cart line
	cart, err := cartService.ListCart(ctx)
	if err != nil {
		return fmt.Errorf("list cart: %w", err)
	}
	lineQuantity := 0
	for _, line := range cart.Items {
		if line.InventoryID == item.ID {
			lineQuantity = line.Quantity
		}
	}
	fmt.Printf("Cart Line Quantity: %d (total %s)\n", lineQuantity, cart.Total.StringFixed(2))

	if lineQuantity == initialStock {
		fmt.Println("PASS: Cart line holds the full stock")
	} else {
		fmt.Printf("FAIL: Expected line quantity %d, got %d\n", initialStock, lineQuantity)
		failed = true
	}

	if failed {
		return errAssertions
	}
	return nil
}
