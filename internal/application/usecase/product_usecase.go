package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/application/dto"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/application/inventory"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain/entity"
	domaininv "github.com/ivanov2024/Inventory-managment-microservice/internal/domain/inventory"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain/repository"
)

const (
	productNameMin        = 3
	productNameMax        = 100
	productDescriptionMax = 150
)

var productPriceMax = decimal.NewFromInt(9999)

// ProductUseCase alta y consulta de productos. La cantidad solo cambia vía el ledger;
// la cantidad inicial se registra como primer movimiento en la misma transacción del alta.
type ProductUseCase struct {
	txRunner inventory.TxRunner
	repo     repository.ProductRepository
	policy   domaininv.StockPolicy
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(txRunner inventory.TxRunner, repo repository.ProductRepository, policy domaininv.StockPolicy) *ProductUseCase {
	return &ProductUseCase{txRunner: txRunner, repo: repo, policy: policy}
}

// Create crea un producto y, si InitialQuantity > 0, su movimiento de stock inicial.
func (uc *ProductUseCase) Create(ctx context.Context, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := uc.validate(in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &entity.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Quantity:    in.InitialQuantity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := uc.txRunner.Run(ctx, func(productRepo repository.ProductRepository, txRepo repository.StockTransactionRepository) error {
		if err := productRepo.Create(ctx, product); err != nil {
			return err
		}
		if in.InitialQuantity == 0 {
			return nil
		}
		return txRepo.Append(ctx, &entity.StockTransaction{
			ProductID:    product.ID,
			ChangeAmount: in.InitialQuantity,
			Reason:       entity.InitialStockReason,
		})
	})
	if err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto por ID. Devuelve nil, nil si no existe.
func (uc *ProductUseCase) GetByID(ctx context.Context, id int64) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}
	return toProductResponse(product), nil
}

func (uc *ProductUseCase) validate(in dto.CreateProductRequest) error {
	if n := utf8.RuneCountInString(in.Name); n < productNameMin || n > productNameMax {
		return fmt.Errorf("%w: el nombre debe tener entre %d y %d caracteres", domain.ErrInvalidInput, productNameMin, productNameMax)
	}
	if utf8.RuneCountInString(in.Description) > productDescriptionMax {
		return fmt.Errorf("%w: la descripción admite hasta %d caracteres", domain.ErrInvalidInput, productDescriptionMax)
	}
	if in.Price.IsNegative() || in.Price.GreaterThan(productPriceMax) {
		return fmt.Errorf("%w: el precio debe estar entre 0 y %s", domain.ErrInvalidInput, productPriceMax)
	}
	if in.InitialQuantity < 0 {
		return fmt.Errorf("%w: la cantidad inicial no puede ser negativa", domain.ErrInvalidInput)
	}
	if uc.policy.MaxQuantity > 0 && in.InitialQuantity > uc.policy.MaxQuantity {
		return fmt.Errorf("%w: la cantidad inicial supera el máximo de %d", domain.ErrStockLimitExceeded, uc.policy.MaxQuantity)
	}
	return nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	if p == nil {
		return nil
	}
	return &dto.ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Quantity:    p.Quantity,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
