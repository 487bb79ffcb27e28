package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo (una sola ubicación).
// Quantity solo se modifica a través del ledger de stock.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
