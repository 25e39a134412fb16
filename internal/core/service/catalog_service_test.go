package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/inventory-cart/internal/adapter/storage"
	"github.com/rl1809/inventory-cart/internal/core/domain"
	"github.com/rl1809/inventory-cart/internal/core/service"
	"github.com/rl1809/inventory-cart/internal/port"
)

func TestCatalog_CreateAndGet(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	created := env.createItem(t, "laptop", "599.99", 3)
	if created.ID == 0 {
		t.Fatal("expected generated id")
	}

	got, err := env.catalog.GetItem(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "laptop" || got.Quantity != 3 || !got.Price.Equal(created.Price) {
		t.Errorf("unexpected item %+v", got)
	}

	_, err = env.catalog.GetItem(ctx, created.ID+1)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalog_CreateValidation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		price string
		qty   int
	}{
		{"negative price", "-0.01", 1},
		{"negative quantity", "1.00", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.catalog.CreateItem(ctx, domain.InventoryItem{
				Name:     "bad",
				Price:    decimal.RequireFromString(tt.price),
				Quantity: tt.qty,
			})
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}

	items, err := env.catalog.ListItems(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("invalid items must not be stored, got %d", len(items))
	}

	// zero price and zero stock are allowed
	env.createItem(t, "freebie", "0", 0)
}

func TestCatalog_Update(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	item := env.createItem(t, "lamp", "5.00", 2)
	item.Name = "desk lamp"
	item.Image = "desk-lamp.png"
	item.Description = "brighter"
	item.Price = decimal.RequireFromString("6.25")
	item.Quantity = 9

	if err := env.catalog.UpdateItem(ctx, item); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := env.catalog.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != item.Name || got.Image != item.Image || got.Description != item.Description ||
		got.Quantity != 9 || !got.Price.Equal(item.Price) {
		t.Errorf("update not applied, got %+v", got)
	}

	item.ID += 100
	if err := env.catalog.UpdateItem(ctx, item); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	item.ID = got.ID
	item.Quantity = -1
	if err := env.catalog.UpdateItem(ctx, item); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestCatalog_Delete(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	item := env.createItem(t, "rug", "40.00", 2)

	if err := env.catalog.DeleteItem(ctx, item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := env.catalog.DeleteItem(ctx, item.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete should fail with ErrNotFound, got %v", err)
	}
}

func TestCatalog_DeleteItemInCart(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	item := env.createItem(t, "vase", "18.00", 2)
	if err := env.cart.AddToCart(ctx, "", item.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := env.catalog.DeleteItem(ctx, item.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := env.cart.ClearCart(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := env.catalog.DeleteItem(ctx, item.ID); err != nil {
		t.Errorf("delete after clearing the cart: %v", err)
	}
}

func TestCatalog_ListItemsConcurrent(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		env.createItem(t, "item", "1.00", i)
	}

	var wg sync.WaitGroup
	results := make([][]domain.InventoryItem, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			items, err := env.catalog.ListItems(ctx)
			if err != nil {
				t.Errorf("list: %v", err)
				return
			}
			results[i] = items
		}(i)
	}
	wg.Wait()

	for _, items := range results {
		if len(items) != 3 {
			t.Fatalf("expected 3 items, got %d", len(items))
		}
	}

	// callers get their own slice
	results[0][0].Name = "mutated"
	fresh, err := env.catalog.ListItems(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if fresh[0].Name == "mutated" {
		t.Error("listing shares memory between callers")
	}
}

func TestCatalog_UpdateLockTimeout(t *testing.T) {
	env := setupTestEnv(t)
	item := env.createItem(t, "fan", "22.00", 1)

	svc := service.NewCatalogService(env.store, blockingLocker{}, service.WithOperationTimeout(20*time.Millisecond))

	err := svc.UpdateItem(context.Background(), item)
	if !errors.Is(err, domain.ErrStorageTimeout) {
		t.Errorf("expected ErrStorageTimeout, got %v", err)
	}
	err = svc.DeleteItem(context.Background(), item.ID)
	if !errors.Is(err, domain.ErrStorageTimeout) {
		t.Errorf("expected ErrStorageTimeout, got %v", err)
	}
}

// gatedCatalog holds the first listing until gate is closed. The listing reads
// the store before it blocks, so it returns what the store held at that time.
type gatedCatalog struct {
	port.CatalogRepository
	gate    chan struct{}
	started chan struct{}
	calls   atomic.Int32
}

func newGatedCatalog(inner port.CatalogRepository) *gatedCatalog {
	return &gatedCatalog{
		CatalogRepository: inner,
		gate:              make(chan struct{}),
		started:           make(chan struct{}),
	}
}

func (g *gatedCatalog) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	items, err := g.CatalogRepository.ListItems(ctx)
	if g.calls.Add(1) != 1 {
		return items, err
	}
	close(g.started)
	select {
	case <-g.gate:
		return items, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCatalog_ListItemsCallerCancelled(t *testing.T) {
	env := setupTestEnv(t)
	env.createItem(t, "lamp", "15.00", 2)

	gated := newGatedCatalog(env.store)
	svc := service.NewCatalogService(gated, storage.NewKeyedLocker(), service.WithOperationTimeout(5*time.Second))

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.ListItems(ctxA)
		errA <- err
	}()
	<-gated.started

	type listing struct {
		items []domain.InventoryItem
		err   error
	}
	resB := make(chan listing, 1)
	go func() {
		items, err := svc.ListItems(context.Background())
		resB <- listing{items, err}
	}()
	// let the second caller join the shared read
	time.Sleep(50 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the cancelled caller to get context.Canceled, got %v", err)
	}

	close(gated.gate)
	got := <-resB
	if got.err != nil {
		t.Fatalf("second caller failed because the first gave up: %v", got.err)
	}
	if len(got.items) != 1 || got.items[0].Name != "lamp" {
		t.Errorf("unexpected listing %+v", got.items)
	}
	if n := gated.calls.Load(); n != 1 {
		t.Errorf("expected one store read, got %d", n)
	}
}

func TestCatalog_ListItemsAfterUpdate(t *testing.T) {
	env := setupTestEnv(t)
	item := env.createItem(t, "lamp", "15.00", 2)

	gated := newGatedCatalog(env.store)
	svc := service.NewCatalogService(gated, storage.NewKeyedLocker(), service.WithOperationTimeout(5*time.Second))

	staleDone := make(chan struct{})
	go func() {
		defer close(staleDone)
		_, _ = svc.ListItems(context.Background())
	}()
	<-gated.started

	item.Name = "desk lamp"
	if err := svc.UpdateItem(context.Background(), item); err != nil {
		t.Fatalf("update: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	items, err := svc.ListItems(ctx)
	close(gated.gate)
	<-staleDone
	if err != nil {
		t.Fatalf("list after update: %v", err)
	}
	if len(items) != 1 || items[0].Name != "desk lamp" {
		t.Errorf("listing after a committed update returned %+v", items)
	}
}
