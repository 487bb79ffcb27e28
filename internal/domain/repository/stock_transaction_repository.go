package repository

import (
	"context"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain/entity"
)

// StockTransactionRepository define el puerto del log de movimientos (solo inserción).
// No expone Update ni Delete.
type StockTransactionRepository interface {
	// Append inserta el movimiento y asigna ID y CreatedAt.
	Append(ctx context.Context, transaction *entity.StockTransaction) error
	// ListByProduct ordena por created_at DESC, id DESC. limit <= 0 devuelve todos.
	ListByProduct(ctx context.Context, productID int64, limit, offset int) ([]*entity.StockTransaction, error)
	GetByIdempotencyKey(ctx context.Context, productID int64, key string) (*entity.StockTransaction, error)
	Summarize(ctx context.Context, productID int64) (entity.LedgerSummary, error)
}
