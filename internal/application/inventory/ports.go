package inventory

import (
	"context"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain/entity"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback; si no, Commit. Garantiza atomicidad del ledger.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		productRepo repository.ProductRepository,
		txRepo repository.StockTransactionRepository,
	) error) error
}

// IdempotencyCache atajo para claves de idempotencia ya confirmadas.
// La base de datos sigue siendo la fuente de verdad; un fallo de caché no debe abortar la operación.
type IdempotencyCache interface {
	Get(ctx context.Context, productID int64, key string) (*entity.StockTransaction, bool, error)
	Put(ctx context.Context, transaction *entity.StockTransaction) error
}

// StockCardGenerator genera la tarjeta de stock (kardex) en PDF.
type StockCardGenerator interface {
	GenerateStockCard(ctx context.Context, card *StockCard) ([]byte, error)
}

type noopCache struct{}

func (noopCache) Get(context.Context, int64, string) (*entity.StockTransaction, bool, error) {
	return nil, false, nil
}

func (noopCache) Put(context.Context, *entity.StockTransaction) error { return nil }
