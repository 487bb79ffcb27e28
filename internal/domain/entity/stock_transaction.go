package entity

import "time"

// InitialStockReason motivo del movimiento que registra la cantidad inicial al crear un producto.
const InitialStockReason = "Stock inicial"

// StockTransaction registro inmutable de un cambio de cantidad.
// ChangeAmount es positivo en entradas y negativo en salidas; nunca cero.
type StockTransaction struct {
	ID             int64
	ProductID      int64
	ChangeAmount   int64
	Reason         string
	IdempotencyKey string // opcional, único por producto
	CreatedAt      time.Time
}

// IsIncrease indica si el movimiento sumó stock.
func (t *StockTransaction) IsIncrease() bool {
	return t.ChangeAmount > 0
}

// LedgerSummary agregado de los movimientos de un producto.
type LedgerSummary struct {
	ProductID        int64
	TransactionCount int64
	Balance          int64 // suma de ChangeAmount
}
