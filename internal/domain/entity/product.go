package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable catalog item. Stock is decremented only by order placement.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CategoryID  *int64
	CreatedAt   time.Time
}

// CanFulfil reports whether the current stock covers the requested quantity.
func (p *Product) CanFulfil(quantity int) bool {
	return quantity > 0 && p.Stock >= quantity
}
