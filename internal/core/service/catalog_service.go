package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/rl1809/inventory-cart/internal/core/domain"
	"github.com/rl1809/inventory-cart/internal/port"
)

type CatalogService struct {
	catalog port.CatalogRepository
	locker  port.Locker
	settings
	listGroup singleflight.Group
}

func NewCatalogService(catalog port.CatalogRepository, locker port.Locker, opts ...Option) *CatalogService {
	return &CatalogService{
		catalog:  catalog,
		locker:   locker,
		settings: newSettings(opts),
	}
}

const listItemsKey = "items"

// ListItems collapses concurrent listings into one store read. The shared read
// is detached from any single caller, so a caller that gives up does not fail
// the others, and each caller still stops waiting at its own deadline.
func (s *CatalogService) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	var items []domain.InventoryItem
	err := s.run(ctx, "list_items", func(ctx context.Context) error {
		ch := s.listGroup.DoChan(listItemsKey, func() (interface{}, error) {
			flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
			defer cancel()
			return s.catalog.ListItems(flightCtx)
		})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return res.Err
			}
			shared := res.Val.([]domain.InventoryItem)
			items = make([]domain.InventoryItem, len(shared))
			copy(items, shared)
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// listingChanged makes listings that start after a committed write read the
// store again instead of joining a read that began before it.
func (s *CatalogService) listingChanged() {
	s.listGroup.Forget(listItemsKey)
}

func (s *CatalogService) GetItem(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	var item *domain.InventoryItem
	err := s.run(ctx, "get_item", func(ctx context.Context) error {
		var err error
		item, err = s.catalog.GetItem(ctx, id)
		return err
	})
	return item, err
}

func (s *CatalogService) CreateItem(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error) {
	var created domain.InventoryItem
	err := s.run(ctx, "create_item", func(ctx context.Context) error {
		if err := item.Validate(); err != nil {
			return err
		}
		var err error
		created, err = s.catalog.CreateItem(ctx, item)
		if err == nil {
			s.listingChanged()
		}
		return err
	})
	return created, err
}

// UpdateItem replaces every mutable field of the item. It holds the item lock so
// a price or stock change never interleaves with a cart mutation on the same item.
func (s *CatalogService) UpdateItem(ctx context.Context, item domain.InventoryItem) error {
	return s.run(ctx, "update_item", func(ctx context.Context) error {
		if err := item.Validate(); err != nil {
			return err
		}
		unlock, err := s.locker.Lock(ctx, itemLockKey(item.ID))
		if err != nil {
			return fmt.Errorf("lock item %d: %w", item.ID, err)
		}
		defer unlock()

		if err := s.catalog.UpdateItem(ctx, item); err != nil {
			return err
		}
		s.listingChanged()
		return nil
	})
}

// DeleteItem fails with domain.ErrConflict while the item is in the cart.
func (s *CatalogService) DeleteItem(ctx context.Context, id int64) error {
	return s.run(ctx, "delete_item", func(ctx context.Context) error {
		unlock, err := s.locker.Lock(ctx, itemLockKey(id))
		if err != nil {
			return fmt.Errorf("lock item %d: %w", id, err)
		}
		defer unlock()

		if err := s.catalog.DeleteItem(ctx, id); err != nil {
			return err
		}
		s.listingChanged()
		return nil
	})
}
