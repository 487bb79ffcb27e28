package repository

import (
	"context"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
// GetByID y GetForUpdate devuelven (nil, nil) si el producto no existe.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id int64) (*entity.Product, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id int64) (*entity.Product, error)
	// GetForShare bloqueo compartido (SELECT FOR SHARE): otros lectores pasan, los escritores esperan.
	GetForShare(ctx context.Context, id int64) (*entity.Product, error)
	UpdateQuantity(ctx context.Context, id int64, quantity int64) error
}
