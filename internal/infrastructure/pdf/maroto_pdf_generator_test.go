package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/application/inventory"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain/entity"
)

func TestGenerateStockCard_DevuelvePDF(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	card := &inventory.StockCard{
		Product:     &entity.Product{ID: 1, Name: "Harina", Price: decimal.NewFromInt(4500), Quantity: 7},
		GeneratedAt: now,
		Lines: []inventory.StockCardLine{
			{TransactionID: 1, Date: now, Reason: entity.InitialStockReason, In: 10, Balance: 10},
			{TransactionID: 2, Date: now, Reason: "Venta mostrador", Out: 3, Balance: 7},
		},
	}

	out, err := NewMarotoPDFGenerator().GenerateStockCard(context.Background(), card)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestGenerateStockCard_SinProducto(t *testing.T) {
	_, err := NewMarotoPDFGenerator().GenerateStockCard(context.Background(), &inventory.StockCard{})
	assert.Error(t, err)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "999", formatMoney("999"))
	assert.Equal(t, "25.000", formatMoney("25000"))
	assert.Equal(t, "1.000.000", formatMoney("1000000"))
}
