package port

import (
	"context"

	"github.com/rl1809/inventory-cart/internal/core/domain"
)

type CatalogRepository interface {
	// ListItems returns every inventory item ordered by id
	ListItems(ctx context.Context) ([]domain.InventoryItem, error)

	// GetItem returns domain.ErrNotFound when no item has the id
	GetItem(ctx context.Context, id int64) (*domain.InventoryItem, error)

	// CreateItem inserts the item and returns it with its generated id
	CreateItem(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error)

	// UpdateItem replaces all mutable fields, domain.ErrNotFound if the id is absent
	UpdateItem(ctx context.Context, item domain.InventoryItem) error

	// DeleteItem removes the item, domain.ErrNotFound if no row was affected and
	// domain.ErrConflict while a cart line still references it
	DeleteItem(ctx context.Context, id int64) error
}
