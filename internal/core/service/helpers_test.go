package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rl1809/inventory-cart/internal/adapter/storage"
	"github.com/rl1809/inventory-cart/internal/core/domain"
	"github.com/rl1809/inventory-cart/internal/core/service"
)

type testEnv struct {
	store   *storage.SQLAdapter
	catalog *service.CatalogService
	cart    *service.CartService
}

func setupTestEnv(t *testing.T, opts ...service.Option) *testEnv {
	t.Helper()

	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "cart.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.RunMigrations(db, storage.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := storage.NewSQLiteAdapter(db)
	locker := storage.NewKeyedLocker()

	return &testEnv{
		store:   store,
		catalog: service.NewCatalogService(store, locker, opts...),
		cart:    service.NewCartService(store, locker, opts...),
	}
}

func (e *testEnv) createItem(t *testing.T, name, price string, quantity int) domain.InventoryItem {
	t.Helper()
	item, err := e.catalog.CreateItem(context.Background(), domain.InventoryItem{
		Name:        name,
		Image:       name + ".png",
		Description: "a " + name,
		Price:       decimal.RequireFromString(price),
		Quantity:    quantity,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	return item
}

func (e *testEnv) listCart(t *testing.T) domain.Cart {
	t.Helper()
	cart, err := e.cart.ListCart(context.Background())
	if err != nil {
		t.Fatalf("list cart: %v", err)
	}
	return cart
}

func (e *testEnv) lineFor(t *testing.T, inventoryID int64) domain.CartLineView {
	t.Helper()
	for _, line := range e.listCart(t).Items {
		if line.InventoryID == inventoryID {
			return line
		}
	}
	t.Fatalf("no cart line for item %d", inventoryID)
	return domain.CartLineView{}
}

func assertTotal(t *testing.T, cart domain.Cart, want string) {
	t.Helper()
	if !cart.Total.Equal(decimal.RequireFromString(want)) {
		t.Errorf("expected total %s, got %s", want, cart.Total)
	}
}

// mockIdempotencyStore mirrors the redis SETNX semantics.
type mockIdempotencyStore struct {
	mu       sync.Mutex
	keys     map[string]bool
	released []string
}

func newMockIdempotencyStore() *mockIdempotencyStore {
	return &mockIdempotencyStore{keys: make(map[string]bool)}
}

func (m *mockIdempotencyStore) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *mockIdempotencyStore) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.keys, key)
	m.released = append(m.released, key)
	return nil
}

// blockingLocker never grants a lock and waits for the caller's deadline.
type blockingLocker struct{}

func (blockingLocker) Lock(ctx context.Context, key string) (func(), error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
