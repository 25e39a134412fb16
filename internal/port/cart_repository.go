package port

import (
	"context"

	"github.com/rl1809/inventory-cart/internal/core/domain"
)

type CartRepository interface {
	// ListCart joins every cart line with its inventory item in a single read
	ListCart(ctx context.Context) ([]domain.CartLineView, error)

	// GetLine returns domain.ErrNotFound when the line does not exist
	GetLine(ctx context.Context, lineID int64) (*domain.CartLine, error)

	// DeleteLine returns domain.ErrNotFound if no line had the id
	DeleteLine(ctx context.Context, lineID int64) error

	// ClearCart deletes every line
	ClearCart(ctx context.Context) error

	// WithinTx runs fn in one transaction, committing only if fn returns nil
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx CartTx) error) error
}

// CartTx is the set of reads and writes a cart mutation performs atomically.
type CartTx interface {
	// LockItem reads the inventory row and holds a row lock on it until the
	// transaction ends, domain.ErrNotFound if absent
	LockItem(ctx context.Context, inventoryID int64) (*domain.InventoryItem, error)

	// LineByInventory returns nil, nil when the item has no cart line
	LineByInventory(ctx context.Context, inventoryID int64) (*domain.CartLine, error)

	// LineByID returns domain.ErrNotFound when the line does not exist
	LineByID(ctx context.Context, lineID int64) (*domain.CartLine, error)

	InsertLine(ctx context.Context, inventoryID int64, quantity int) (int64, error)
	SetLineQuantity(ctx context.Context, lineID int64, quantity int) error
	DeleteLine(ctx context.Context, lineID int64) error
}
