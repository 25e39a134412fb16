package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rl1809/inventory-cart/internal/core/domain"
)

func TestResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{domain.ErrNotFound, "not_found"},
		{fmt.Errorf("add: %w", domain.ErrInsufficientStock), "insufficient_stock"},
		{domain.ErrValidation, "invalid"},
		{domain.ErrConflict, "conflict"},
		{domain.ErrDuplicateRequest, "duplicate"},
		{domain.ErrStorageTimeout, "timeout"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := Result(tt.err); got != tt.want {
			t.Errorf("Result(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestEngineObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEngine(reg)

	m.Observe("add_to_cart", time.Now(), nil)
	m.Observe("add_to_cart", time.Now(), domain.ErrInsufficientStock)
	m.Observe("add_to_cart", time.Now(), domain.ErrInsufficientStock)

	if got := testutil.ToFloat64(m.operations.WithLabelValues("add_to_cart", "ok")); got != 1 {
		t.Errorf("expected 1 ok, got %v", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("add_to_cart", "insufficient_stock")); got != 2 {
		t.Errorf("expected 2 insufficient_stock, got %v", got)
	}
}

func TestEngineNilSafe(t *testing.T) {
	var m *Engine
	m.Observe("clear_cart", time.Now(), nil)

	NewEngine(nil).Observe("clear_cart", time.Now(), nil)
}
