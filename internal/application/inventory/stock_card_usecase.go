package inventory

import (
	"context"
	"time"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain/entity"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain/repository"
)

// StockCard kardex de un producto: movimientos en orden cronológico con saldo acumulado.
type StockCard struct {
	Product     *entity.Product
	Lines       []StockCardLine
	GeneratedAt time.Time
}

// StockCardLine una fila del kardex.
type StockCardLine struct {
	TransactionID int64
	Date          time.Time
	Reason        string
	In            int64
	Out           int64
	Balance       int64
}

// StockCardUseCase arma el kardex y lo entrega al generador de PDF.
type StockCardUseCase struct {
	txRunner  TxRunner
	generator StockCardGenerator
	now       func() time.Time
}

// NewStockCardUseCase construye el caso de uso. generator solo se usa en Render.
func NewStockCardUseCase(txRunner TxRunner, generator StockCardGenerator) *StockCardUseCase {
	return &StockCardUseCase{
		txRunner:  txRunner,
		generator: generator,
		now:       time.Now,
	}
}

// Build arma el kardex completo del producto.
// Producto y movimientos se leen en la misma transacción con la fila bloqueada en modo compartido,
// así la cantidad del encabezado coincide con el saldo final.
func (uc *StockCardUseCase) Build(ctx context.Context, productID int64) (*StockCard, error) {
	var (
		product *entity.Product
		list    []*entity.StockTransaction
	)
	err := uc.txRunner.Run(ctx, func(productRepo repository.ProductRepository, txRepo repository.StockTransactionRepository) error {
		var err error
		product, err = productRepo.GetForShare(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}
		list, err = txRepo.ListByProduct(ctx, productID, 0, 0)
		return err
	})
	if err != nil {
		return nil, classify(err)
	}

	card := &StockCard{Product: product, GeneratedAt: uc.now().UTC(), Lines: make([]StockCardLine, 0, len(list))}
	var balance int64
	// ListByProduct entrega más recientes primero; el kardex va del más antiguo al más reciente.
	for i := len(list) - 1; i >= 0; i-- {
		t := list[i]
		balance += t.ChangeAmount
		line := StockCardLine{TransactionID: t.ID, Date: t.CreatedAt, Reason: t.Reason, Balance: balance}
		if t.IsIncrease() {
			line.In = t.ChangeAmount
		} else {
			line.Out = -t.ChangeAmount
		}
		card.Lines = append(card.Lines, line)
	}
	return card, nil
}

// Render genera el PDF del kardex.
func (uc *StockCardUseCase) Render(ctx context.Context, productID int64) ([]byte, error) {
	card, err := uc.Build(ctx, productID)
	if err != nil {
		return nil, err
	}
	return uc.generator.GenerateStockCard(ctx, card)
}
