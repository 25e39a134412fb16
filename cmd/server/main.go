package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/inventory-cart/internal/adapter/handler"
	"github.com/rl1809/inventory-cart/internal/adapter/storage"
	"github.com/rl1809/inventory-cart/internal/config"
	"github.com/rl1809/inventory-cart/internal/core/service"
	"github.com/rl1809/inventory-cart/internal/logger"
	"github.com/rl1809/inventory-cart/internal/metrics"
	"github.com/rl1809/inventory-cart/internal/port"
)

const serviceName = "cart-api"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "server stopped with error", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "server stopped")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	// Initialize the store
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, store, err := storage.OpenStore(connectCtx, cfg.DB.Driver, cfg.DB.DSN, storage.PoolOptions{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	cancel()
	if err != nil {
		return err
	}
	defer db.Close()
	logg.Info(logg.WithField(ctx, "driver", cfg.DB.Driver), "connected to database")

	if cfg.DB.AutoMigrate {
		if err := storage.RunMigrations(db, cfg.DB.Driver); err != nil {
			return err
		}
		logg.Info(ctx, "migrations applied")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []service.Option{
		service.WithOperationTimeout(cfg.App.OperationTimeout),
		service.WithMetrics(metrics.NewEngine(reg)),
	}
	checks := map[string]handler.Pinger{"database": store}

	// Initialize Redis when configured, otherwise lock in process
	var locker port.Locker = storage.NewKeyedLocker()
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		logg.Info(ctx, "connected to redis")

		redisAdapter := storage.NewRedisAdapter(rdb, cfg.Redis.LockTTL, cfg.Redis.IdempotencyTTL)
		locker = redisAdapter
		opts = append(opts, service.WithIdempotency(redisAdapter))
		checks["redis"] = redisAdapter
	}

	catalogService := service.NewCatalogService(store, locker, opts...)
	cartService := service.NewCartService(store, locker, opts...)

	httpHandler := handler.NewHTTPHandler(catalogService, cartService, logg).
		WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	for name, check := range checks {
		httpHandler.WithHealthCheck(name, check)
	}
	httpServer := &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           httpHandler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthHandler := handler.NewGRPCHealthHandler(checks, cfg.Health.PingInterval, logg)
	healthHandler.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.App.GRPCAddr)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logg.Info(logg.WithField(ctx, "addr", cfg.App.HTTPAddr), "HTTP server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logg.Info(logg.WithField(ctx, "addr", cfg.App.GRPCAddr), "gRPC server listening")
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		healthHandler.Run(gctx)
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(ctx, "shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer shutdownCancel()
		err := httpServer.Shutdown(shutdownCtx)
		logg.Info(ctx, "HTTP server stopped")

		grpcServer.GracefulStop()
		logg.Info(ctx, "gRPC server stopped")
		return err
	})

	return g.Wait()
}
