package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/inventory-cart/internal/core/domain"
	"github.com/rl1809/inventory-cart/internal/metrics"
	"github.com/rl1809/inventory-cart/internal/port"
)

const defaultOperationTimeout = 5 * time.Second

type settings struct {
	timeout     time.Duration
	metrics     *metrics.Engine
	idempotency port.IdempotencyStore
}

type Option func(*settings)

// WithOperationTimeout bounds every operation, including time spent waiting for locks.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Engine) Option {
	return func(s *settings) { s.metrics = m }
}

// WithIdempotency enables duplicate detection for keyed add-to-cart requests.
func WithIdempotency(store port.IdempotencyStore) Option {
	return func(s *settings) { s.idempotency = store }
}

func newSettings(opts []Option) settings {
	s := settings{timeout: defaultOperationTimeout}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s settings) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := fn(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrStorageTimeout) {
		err = fmt.Errorf("%s: %w: %v", op, domain.ErrStorageTimeout, err)
	}
	s.metrics.Observe(op, started, err)
	return err
}

func itemLockKey(inventoryID int64) string {
	return fmt.Sprintf("inventory:%d", inventoryID)
}
