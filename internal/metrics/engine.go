package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rl1809/inventory-cart/internal/core/domain"
)

// Engine records outcomes and latency of catalog and cart operations.
type Engine struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewEngine registers the engine collectors on reg. A nil registerer yields a no-op recorder.
func NewEngine(reg prometheus.Registerer) *Engine {
	if reg == nil {
		return &Engine{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Catalog and cart operations by result.",
	}, []string{"op", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_operation_duration_seconds",
		Help:    "Duration of catalog and cart operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	reg.MustRegister(operations, duration)
	return &Engine{
		operations: operations,
		duration:   duration,
	}
}

// Observe records one finished operation.
func (e *Engine) Observe(op string, started time.Time, err error) {
	if e == nil || e.operations == nil {
		return
	}
	e.operations.WithLabelValues(op, Result(err)).Inc()
	e.duration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// Result maps an operation error to its metric label.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrDuplicateRequest):
		return "duplicate"
	case errors.Is(err, domain.ErrStorageTimeout):
		return "timeout"
	default:
		return "error"
	}
}
