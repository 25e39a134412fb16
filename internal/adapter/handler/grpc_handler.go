package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/inventory-cart/internal/logger"
)

// ServiceName is the gRPC health service name reported for the cart API.
const ServiceName = "inventory.cart"

const defaultPingInterval = 5 * time.Second

// GRPCHealthHandler serves grpc.health.v1 and keeps the reported status in
// line with periodic pings of the backing stores.
type GRPCHealthHandler struct {
	server   *health.Server
	checks   map[string]Pinger
	interval time.Duration
	logger   *logger.Logger
}

func NewGRPCHealthHandler(checks map[string]Pinger, interval time.Duration, logg *logger.Logger) *GRPCHealthHandler {
	if interval <= 0 {
		interval = defaultPingInterval
	}
	if logg == nil {
		logg = logger.Nop()
	}
	h := &GRPCHealthHandler{
		server:   health.NewServer(),
		checks:   checks,
		interval: interval,
		logger:   logg,
	}
	h.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

func (h *GRPCHealthHandler) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Run checks the stores until ctx is done, then marks the service as shutting down.
func (h *GRPCHealthHandler) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.CheckStores(ctx)
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.CheckStores(ctx)
		}
	}
}

// CheckStores pings every store once and updates the served status.
func (h *GRPCHealthHandler) CheckStores(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.logger.Error(h.logger.WithField(ctx, "dependency", name), "health check failed", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.setStatus(status)
	return status
}

func (h *GRPCHealthHandler) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
}
