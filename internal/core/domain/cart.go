package domain

import "github.com/shopspring/decimal"

type CartLine struct {
	ID          int64
	InventoryID int64
	Quantity    int
}

// CartLineView is a cart line joined with the current state of its inventory item.
type CartLineView struct {
	ID                int64           `json:"id"`
	InventoryID       int64           `json:"inventoryId"`
	Quantity          int             `json:"quantity"`
	Price             decimal.Decimal `json:"price"`
	Name              string          `json:"name"`
	Image             string          `json:"image"`
	InventoryQuantity int             `json:"inventoryQuantity"`
}

// Subtotal is the line quantity times the current item price.
func (v CartLineView) Subtotal() decimal.Decimal {
	return v.Price.Mul(decimal.NewFromInt(int64(v.Quantity)))
}

type Cart struct {
	Items []CartLineView  `json:"cartItems"`
	Total decimal.Decimal `json:"total"`
}

// NewCart builds a cart from one snapshot of lines and derives the total from it.
func NewCart(lines []CartLineView) Cart {
	if lines == nil {
		lines = []CartLineView{}
	}
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return Cart{Items: lines, Total: total}
}
