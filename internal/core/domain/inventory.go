package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Limits of the persisted columns: DECIMAL(10,2) price and INT quantity.
const (
	PriceScale  = 2
	MaxQuantity = math.MaxInt32
)

var MaxPrice = decimal.New(9999999999, -PriceScale)

type InventoryItem struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"` // units in stock
}

// Validate checks the fields a catalog write must satisfy.
func (i InventoryItem) Validate() error {
	if i.Price.IsNegative() {
		return fmt.Errorf("%w: price must be non-negative", ErrValidation)
	}
	if !i.Price.Equal(i.Price.Truncate(PriceScale)) {
		return fmt.Errorf("%w: price must have at most %d decimal places", ErrValidation, PriceScale)
	}
	if i.Price.GreaterThan(MaxPrice) {
		return fmt.Errorf("%w: price must be at most %s", ErrValidation, MaxPrice.StringFixed(PriceScale))
	}
	if i.Quantity < 0 {
		return fmt.Errorf("%w: quantity must be non-negative", ErrValidation)
	}
	if i.Quantity > MaxQuantity {
		return fmt.Errorf("%w: quantity must be at most %d", ErrValidation, MaxQuantity)
	}
	return nil
}
