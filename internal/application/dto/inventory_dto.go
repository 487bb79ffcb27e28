package dto

import "time"

// StockChangeRequest body para POST /products/{id}/stock/increase|decrease.
type StockChangeRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// StockTransactionResponse salida de un movimiento de stock.
type StockTransactionResponse struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"productId"`
	ChangeAmount int64     `json:"changeAmount"`
	Reason       string    `json:"reason"`
	CreatedAt    time.Time `json:"createdAt"`
}

// StockLevelResponse cantidad actual y conciliación contra el log de movimientos.
type StockLevelResponse struct {
	ProductID        int64 `json:"productId"`
	Quantity         int64 `json:"quantity"`
	LedgerBalance    int64 `json:"ledgerBalance"`
	TransactionCount int64 `json:"transactionCount"`
	Consistent       bool  `json:"consistent"`
}
