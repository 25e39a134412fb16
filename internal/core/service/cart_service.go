package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/inventory-cart/internal/core/domain"
	"github.com/rl1809/inventory-cart/internal/port"
)

const idempotencyReleaseTimeout = time.Second

type CartService struct {
	carts  port.CartRepository
	locker port.Locker
	settings
}

func NewCartService(carts port.CartRepository, locker port.Locker, opts ...Option) *CartService {
	return &CartService{
		carts:    carts,
		locker:   locker,
		settings: newSettings(opts),
	}
}

// ListCart returns every line with live catalog data and the total derived from it.
func (s *CartService) ListCart(ctx context.Context) (domain.Cart, error) {
	var cart domain.Cart
	err := s.run(ctx, "list_cart", func(ctx context.Context) error {
		lines, err := s.carts.ListCart(ctx)
		if err != nil {
			return err
		}
		cart = domain.NewCart(lines)
		return nil
	})
	return cart, err
}

// AddToCart merges quantity into the item's cart line, creating it when absent.
// The stock read, the line read and the write happen under the item lock in one
// transaction, and the merged quantity never exceeds the item's stock.
// A non-empty requestID is claimed in the idempotency store first.
func (s *CartService) AddToCart(ctx context.Context, requestID string, inventoryID int64, quantity int) error {
	return s.run(ctx, "add_to_cart", func(ctx context.Context) error {
		if quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
		}

		release, err := s.claimRequest(ctx, requestID)
		if err != nil {
			return err
		}

		err = s.addToCart(ctx, inventoryID, quantity)
		if err != nil {
			release()
		}
		return err
	})
}

func (s *CartService) addToCart(ctx context.Context, inventoryID int64, quantity int) error {
	unlock, err := s.locker.Lock(ctx, itemLockKey(inventoryID))
	if err != nil {
		return fmt.Errorf("lock item %d: %w", inventoryID, err)
	}
	defer unlock()

	return s.carts.WithinTx(ctx, func(ctx context.Context, tx port.CartTx) error {
		item, err := tx.LockItem(ctx, inventoryID)
		if err != nil {
			return err
		}

		line, err := tx.LineByInventory(ctx, inventoryID)
		if err != nil {
			return err
		}

		reserved := 0
		if line != nil {
			reserved = line.Quantity
		}
		// compared without summing so a huge request cannot wrap around
		if quantity > item.Quantity-reserved {
			return fmt.Errorf("%w: item %d has %d in stock, cart holds %d, requested %d",
				domain.ErrInsufficientStock, inventoryID, item.Quantity, reserved, quantity)
		}

		if line != nil {
			err = tx.SetLineQuantity(ctx, line.ID, reserved+quantity)
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			// removed by a concurrent clear since it was read
		}
		_, err = tx.InsertLine(ctx, inventoryID, quantity)
		return err
	})
}

func (s *CartService) claimRequest(ctx context.Context, requestID string) (release func(), err error) {
	noop := func() {}
	if requestID == "" || s.idempotency == nil {
		return noop, nil
	}

	key := "cart:add:" + requestID
	ok, err := s.idempotency.SetIdempotency(ctx, key)
	if err != nil {
		return noop, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		return noop, domain.ErrDuplicateRequest
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), idempotencyReleaseTimeout)
		defer cancel()
		_ = s.idempotency.ReleaseIdempotency(releaseCtx, key)
	}, nil
}

// SetCartLineQuantity overwrites the line quantity, or removes the line when
// quantity is zero or negative. Unlike AddToCart the value is absolute.
func (s *CartService) SetCartLineQuantity(ctx context.Context, lineID int64, quantity int) error {
	return s.run(ctx, "set_cart_line_quantity", func(ctx context.Context) error {
		line, err := s.carts.GetLine(ctx, lineID)
		if err != nil {
			return err
		}

		// the inventory id of a line never changes, so it is safe to lock on it
		// before the line is re-read inside the transaction
		unlock, err := s.locker.Lock(ctx, itemLockKey(line.InventoryID))
		if err != nil {
			return fmt.Errorf("lock item %d: %w", line.InventoryID, err)
		}
		defer unlock()

		return s.carts.WithinTx(ctx, func(ctx context.Context, tx port.CartTx) error {
			item, err := tx.LockItem(ctx, line.InventoryID)
			if err != nil {
				return err
			}
			current, err := tx.LineByID(ctx, lineID)
			if err != nil {
				return err
			}

			if quantity > item.Quantity {
				return fmt.Errorf("%w: item %d has %d in stock, requested %d",
					domain.ErrInsufficientStock, item.ID, item.Quantity, quantity)
			}
			if quantity <= 0 {
				return tx.DeleteLine(ctx, current.ID)
			}
			return tx.SetLineQuantity(ctx, current.ID, quantity)
		})
	})
}

func (s *CartService) RemoveCartLine(ctx context.Context, lineID int64) error {
	return s.run(ctx, "remove_cart_line", func(ctx context.Context) error {
		return s.carts.DeleteLine(ctx, lineID)
	})
}

// ClearCart deletes every line. It succeeds on an empty cart.
func (s *CartService) ClearCart(ctx context.Context) error {
	return s.run(ctx, "clear_cart", func(ctx context.Context) error {
		return s.carts.ClearCart(ctx)
	})
}
