package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain/entity"
	domaininv "github.com/ivanov2024/Inventory-managment-microservice/internal/domain/inventory"
	"github.com/ivanov2024/Inventory-managment-microservice/pkg/config"
	"github.com/ivanov2024/Inventory-managment-microservice/pkg/logger"
)

func TestOpen_Memoria(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Driver: "memory"}}

	deps, err := Open(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer deps.Close()

	assert.Nil(t, deps.Pool())
	assert.Nil(t, deps.Cache)

	p := &entity.Product{Name: "Teclado", Quantity: 4}
	require.NoError(t, deps.Products.Create(context.Background(), p))
	got, err := deps.Products.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(4), got.Quantity)
}

func TestOpen_RedisInalcanzable_SigueSinCache(t *testing.T) {
	cfg := &config.Config{
		Storage: config.StorageConfig{Driver: "memory"},
		Redis:   config.RedisConfig{Addr: "127.0.0.1:1"},
	}

	deps, err := Open(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer deps.Close()
	assert.Nil(t, deps.Cache)
}

func TestStockPolicy(t *testing.T) {
	p := StockPolicy(config.LedgerConfig{ReasonMinLength: 5, MaxQuantity: 100})
	assert.Equal(t, 5, p.ReasonMinLength)
	assert.Equal(t, domaininv.DefaultReasonMaxLength, p.ReasonMaxLength)
	assert.Equal(t, int64(100), p.MaxQuantity)
}
