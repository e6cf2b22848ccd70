package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a committed purchase. TotalAmount is always derived from its items.
type Order struct {
	ID          int64
	UserID      int64
	TotalAmount decimal.Decimal
	Items       []OrderItem
	CreatedAt   time.Time
}

// OrderItem is one line of an order, recording the unit price charged at purchase time.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
}

// Subtotal returns price x quantity for the line.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderLine is a requested product/quantity pair, before prices are known.
type OrderLine struct {
	ProductID int64
	Quantity  int
}
