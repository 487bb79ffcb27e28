package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain/entity"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain/repository"
)

var _ repository.StockTransactionRepository = (*StockTransactionRepo)(nil)

// StockTransactionRepo log de movimientos sobre PostgreSQL. Solo INSERT y SELECT.
type StockTransactionRepo struct {
	q Querier
}

// NewStockTransactionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockTransactionRepository(q Querier) *StockTransactionRepo {
	return &StockTransactionRepo{q: q}
}

// Append inserta el movimiento y completa ID y CreatedAt asignados por la DB.
func (r *StockTransactionRepo) Append(ctx context.Context, t *entity.StockTransaction) error {
	query := `
		INSERT INTO stock_transactions (product_id, change_amount, reason, idempotency_key)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING id, created_at`
	err := r.q.QueryRow(ctx, query, t.ProductID, t.ChangeAmount, t.Reason, t.IdempotencyKey).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			// otra transacción confirmó la misma clave; al reintentar se ve como repetición
			return fmt.Errorf("%w: %v", domain.ErrConcurrencyConflict, err)
		case isForeignKeyViolation(err):
			return domain.ErrNotFound
		case isCheckViolation(err):
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		return fmt.Errorf("insert stock transaction: %w", err)
	}
	return nil
}

// ListByProduct más recientes primero (created_at DESC, id DESC). limit <= 0 devuelve todo.
func (r *StockTransactionRepo) ListByProduct(ctx context.Context, productID int64, limit, offset int) ([]*entity.StockTransaction, error) {
	query := `
		SELECT id, product_id, change_amount, reason, COALESCE(idempotency_key, ''), created_at
		FROM stock_transactions
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2`
	args := []any{productID, offset}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock transactions: %w", err)
	}
	defer rows.Close()

	list := make([]*entity.StockTransaction, 0)
	for rows.Next() {
		var t entity.StockTransaction
		if err := rows.Scan(&t.ID, &t.ProductID, &t.ChangeAmount, &t.Reason, &t.IdempotencyKey, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stock transaction: %w", err)
		}
		list = append(list, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stock transactions: %w", err)
	}
	return list, nil
}

// GetByIdempotencyKey nil, nil si la clave no se ha usado para ese producto.
func (r *StockTransactionRepo) GetByIdempotencyKey(ctx context.Context, productID int64, key string) (*entity.StockTransaction, error) {
	if key == "" {
		return nil, nil
	}
	query := `
		SELECT id, product_id, change_amount, reason, idempotency_key, created_at
		FROM stock_transactions
		WHERE product_id = $1 AND idempotency_key = $2`
	var t entity.StockTransaction
	err := r.q.QueryRow(ctx, query, productID, key).Scan(&t.ID, &t.ProductID, &t.ChangeAmount, &t.Reason, &t.IdempotencyKey, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock transaction by key: %w", err)
	}
	return &t, nil
}

// Summarize cuenta y suma los movimientos del producto.
func (r *StockTransactionRepo) Summarize(ctx context.Context, productID int64) (entity.LedgerSummary, error) {
	sum := entity.LedgerSummary{ProductID: productID}
	query := `
		SELECT COUNT(*), COALESCE(SUM(change_amount), 0)::BIGINT
		FROM stock_transactions
		WHERE product_id = $1`
	if err := r.q.QueryRow(ctx, query, productID).Scan(&sum.TransactionCount, &sum.Balance); err != nil {
		return sum, fmt.Errorf("summarize stock transactions: %w", err)
	}
	return sum, nil
}
