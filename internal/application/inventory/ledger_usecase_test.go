package inventory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/application/dto"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/application/inventory"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain/entity"
	domaininv "github.com/ivanov2024/Inventory-managment-microservice/internal/domain/inventory"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain/repository"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

func newLedger(store *memory.Store, runner inventory.TxRunner, cache inventory.IdempotencyCache) *inventory.LedgerUseCase {
	if runner == nil {
		runner = store
	}
	return inventory.NewLedgerUseCase(runner, store.Products(), store.Transactions(), cache, inventory.LedgerConfig{
		Policy:      domaininv.DefaultStockPolicy(),
		MaxAttempts: 3,
	}, nil)
}

// seed crea un producto cuyo stock inicial queda registrado en el log.
func seed(t *testing.T, store *memory.Store, qty int64) int64 {
	t.Helper()
	ctx := context.Background()
	p := &entity.Product{Name: "Café molido", Quantity: qty}
	err := store.Run(ctx, func(pr repository.ProductRepository, tr repository.StockTransactionRepository) error {
		if err := pr.Create(ctx, p); err != nil {
			return err
		}
		if qty == 0 {
			return nil
		}
		return tr.Append(ctx, &entity.StockTransaction{ProductID: p.ID, ChangeAmount: qty, Reason: entity.InitialStockReason})
	})
	require.NoError(t, err)
	return p.ID
}

func quantity(t *testing.T, store *memory.Store, id int64) int64 {
	t.Helper()
	p, err := store.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Quantity
}

func history(t *testing.T, store *memory.Store, id int64) []*entity.StockTransaction {
	t.Helper()
	list, err := store.Transactions().ListByProduct(context.Background(), id, 0, 0)
	require.NoError(t, err)
	return list
}

// assertConservacion la cantidad siempre es la suma de los movimientos.
func assertConservacion(t *testing.T, store *memory.Store, id int64) {
	t.Helper()
	var sum int64
	for _, tx := range history(t, store, id) {
		sum += tx.ChangeAmount
	}
	assert.Equal(t, quantity(t, store, id), sum, "cantidad y log deben cuadrar")
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]*entity.StockTransaction
	err  error
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string]*entity.StockTransaction)} }

func (c *mapCache) Get(_ context.Context, productID int64, key string) (*entity.StockTransaction, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	t, ok := c.data[fmt.Sprintf("%d:%s", productID, key)]
	return t, ok, nil
}

func (c *mapCache) Put(_ context.Context, t *entity.StockTransaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	cp := *t
	c.data[fmt.Sprintf("%d:%s", t.ProductID, t.IdempotencyKey)] = &cp
	return nil
}

// flakyRunner falla con err las primeras n llamadas sin ejecutar fn.
type flakyRunner struct {
	inner inventory.TxRunner
	fails int32
	err   error
	calls atomic.Int32
}

func (r *flakyRunner) Run(ctx context.Context, fn func(repository.ProductRepository, repository.StockTransactionRepository) error) error {
	if r.calls.Add(1) <= r.fails {
		return r.err
	}
	return r.inner.Run(ctx, fn)
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenarios básicos
// ──────────────────────────────────────────────────────────────────────────────

func TestIncrease_SumaYRegistraMovimiento(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 50)
	uc := newLedger(store, nil, nil)

	res, err := uc.Increase(context.Background(), inventory.StockChangeInput{ProductID: id, Amount: 20, Reason: "Restock"})
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.ChangeAmount)
	assert.Equal(t, "Restock", res.Reason)
	assert.NotZero(t, res.ID)

	assert.Equal(t, int64(70), quantity(t, store, id))
	list := history(t, store, id)
	require.Len(t, list, 2)
	assert.Equal(t, int64(20), list[0].ChangeAmount)
	assertConservacion(t, store, id)
}

func TestDecrease_RestaYRegistraMovimientoNegativo(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 50)
	uc := newLedger(store, nil, nil)

	res, err := uc.Decrease(context.Background(), inventory.StockChangeInput{ProductID: id, Amount: 15, Reason: "Sale"})
	require.NoError(t, err)
	assert.Equal(t, int64(-15), res.ChangeAmount)

	assert.Equal(t, int64(35), quantity(t, store, id))
	list := history(t, store, id)
	require.Len(t, list, 2)
	assert.Equal(t, int64(-15), list[0].ChangeAmount)
	assertConservacion(t, store, id)
}

func TestDecrease_StockInsuficiente_NoCambiaNada(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 10)
	uc := newLedger(store, nil, nil)

	_, err := uc.Decrease(context.Background(), inventory.StockChangeInput{ProductID: id, Amount: 20, Reason: "Sale"})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Equal(t, int64(10), quantity(t, store, id))
	assert.Len(t, history(t, store, id), 1)
}

func TestDecrease_HastaCero(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 10)
	uc := newLedger(store, nil, nil)

	_, err := uc.Decrease(context.Background(), inventory.StockChangeInput{ProductID: id, Amount: 10, Reason: "Liquidación"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), quantity(t, store, id))
	assertConservacion(t, store, id)
}

func TestCambio_ProductoInexistente_NotFound(t *testing.T) {
	store := memory.New()
	uc := newLedger(store, nil, nil)
	ctx := context.Background()

	_, err := uc.Increase(ctx, inventory.StockChangeInput{ProductID: 404, Amount: 1, Reason: "Restock"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = uc.Decrease(ctx, inventory.StockChangeInput{ProductID: 404, Amount: 1, Reason: "Sale"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, history(t, store, 404))
}

func TestCambio_EntradaInvalida_NoEscribe(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 10)
	uc := newLedger(store, nil, nil)

	cases := []struct {
		name string
		in   inventory.StockChangeInput
	}{
		{"cantidad cero", inventory.StockChangeInput{ProductID: id, Amount: 0, Reason: "Restock"}},
		{"cantidad negativa", inventory.StockChangeInput{ProductID: id, Amount: -5, Reason: "Restock"}},
		{"motivo corto", inventory.StockChangeInput{ProductID: id, Amount: 1, Reason: "ab"}},
		{"motivo solo espacios", inventory.StockChangeInput{ProductID: id, Amount: 1, Reason: "      "}},
		{"id inválido", inventory.StockChangeInput{ProductID: 0, Amount: 1, Reason: "Restock"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Increase(context.Background(), tc.in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			_, err = uc.Decrease(context.Background(), tc.in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
	assert.Equal(t, int64(10), quantity(t, store, id))
	assert.Len(t, history(t, store, id), 1)
}

func TestIncrease_MotivoSeNormaliza(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 0)
	uc := newLedger(store, nil, nil)

	res, err := uc.Increase(context.Background(), inventory.StockChangeInput{ProductID: id, Amount: 3, Reason: "  Compra proveedor  "})
	require.NoError(t, err)
	assert.Equal(t, "Compra proveedor", res.Reason)
}

func TestIncrease_TopeDeCantidad(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 9990)
	policy := domaininv.DefaultStockPolicy()
	policy.MaxQuantity = 9999
	uc := inventory.NewLedgerUseCase(store, store.Products(), store.Transactions(), nil, inventory.LedgerConfig{Policy: policy}, nil)

	_, err := uc.Increase(context.Background(), inventory.StockChangeInput{ProductID: id, Amount: 10, Reason: "Restock"})
	assert.ErrorIs(t, err, domain.ErrStockLimitExceeded)
	assert.Equal(t, int64(9990), quantity(t, store, id))

	_, err = uc.Increase(context.Background(), inventory.StockChangeInput{ProductID: id, Amount: 9, Reason: "Restock"})
	require.NoError(t, err)
	assert.Equal(t, int64(9999), quantity(t, store, id))
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia
// ──────────────────────────────────────────────────────────────────────────────

func TestDecrease_Concurrente_SinSobreventa(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 10)
	uc := newLedger(store, nil, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.Decrease(context.Background(), inventory.StockChangeInput{ProductID: id, Amount: 6, Reason: "Sale"})
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			insufficient++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, int64(4), quantity(t, store, id))

	var minus6 int
	for _, tx := range history(t, store, id) {
		if tx.ChangeAmount == -6 {
			minus6++
		}
	}
	assert.Equal(t, 1, minus6)
	assertConservacion(t, store, id)
}

func TestCambios_Concurrentes_Conservacion(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 100)
	other := seed(t, store, 5)
	uc := newLedger(store, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, _ = uc.Increase(context.Background(), inventory.StockChangeInput{ProductID: id, Amount: 3, Reason: "Restock"})
		}()
		go func() {
			defer wg.Done()
			_, _ = uc.Decrease(context.Background(), inventory.StockChangeInput{ProductID: id, Amount: 7, Reason: "Sale"})
		}()
		go func() {
			defer wg.Done()
			_, _ = uc.Decrease(context.Background(), inventory.StockChangeInput{ProductID: other, Amount: 1, Reason: "Sale"})
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, quantity(t, store, id), int64(0))
	assert.Equal(t, int64(0), quantity(t, store, other))
	assertConservacion(t, store, id)
	assertConservacion(t, store, other)
}

// ──────────────────────────────────────────────────────────────────────────────
// Reintentos y clasificación de errores
// ──────────────────────────────────────────────────────────────────────────────

func TestCambio_ReintentaConflictos(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 10)
	runner := &flakyRunner{inner: store, fails: 2, err: fmt.Errorf("tx: %w", domain.ErrConcurrencyConflict)}
	uc := newLedger(store, runner, nil)

	_, err := uc.Decrease(context.Background(), inventory.StockChangeInput{ProductID: id, Amount: 4, Reason: "Sale"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), runner.calls.Load())
	assert.Equal(t, int64(6), quantity(t, store, id))
}

func TestCambio_ConflictoPersistente_SeDevuelve(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 10)
	runner := &flakyRunner{inner: store, fails: 100, err: domain.ErrConcurrencyConflict}
	uc := newLedger(store, runner, nil)

	_, err := uc.Decrease(context.Background(), inventory.StockChangeInput{ProductID: id, Amount: 4, Reason: "Sale"})
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, int32(3), runner.calls.Load())
	assert.Equal(t, int64(10), quantity(t, store, id))
}

func TestCambio_ErrorDesconocido_EsPersistencia(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 10)
	boom := errors.New("conexión perdida")
	runner := &flakyRunner{inner: store, fails: 1, err: boom}
	uc := newLedger(store, runner, nil)

	_, err := uc.Increase(context.Background(), inventory.StockChangeInput{ProductID: id, Amount: 4, Reason: "Restock"})
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), runner.calls.Load(), "solo los conflictos se reintentan")
}

func TestCambio_ContextoVencido(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 10)
	uc := newLedger(store, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := uc.Decrease(ctx, inventory.StockChangeInput{ProductID: id, Amount: 1, Reason: "Sale"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, errors.Is(err, domain.ErrPersistence))
	assert.Equal(t, int64(10), quantity(t, store, id))
}

// ──────────────────────────────────────────────────────────────────────────────
// Idempotencia
// ──────────────────────────────────────────────────────────────────────────────

func TestCambio_ClaveIdempotencia_Repeticion(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 10)
	uc := newLedger(store, nil, nil)
	in := inventory.StockChangeInput{ProductID: id, Amount: 4, Reason: "Sale", IdempotencyKey: "pedido-123"}

	first, err := uc.Decrease(context.Background(), in)
	require.NoError(t, err)
	second, err := uc.Decrease(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(6), quantity(t, store, id))
	assert.Len(t, history(t, store, id), 2)
}

func TestCambio_ClaveIdempotencia_OtroPayload(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 10)
	uc := newLedger(store, nil, nil)

	_, err := uc.Decrease(context.Background(), inventory.StockChangeInput{ProductID: id, Amount: 4, Reason: "Sale", IdempotencyKey: "pedido-123"})
	require.NoError(t, err)
	_, err = uc.Increase(context.Background(), inventory.StockChangeInput{ProductID: id, Amount: 4, Reason: "Sale", IdempotencyKey: "pedido-123"})
	assert.ErrorIs(t, err, domain.ErrIdempotencyKeyReused)
	assert.Equal(t, int64(6), quantity(t, store, id))
}

func TestCambio_ClaveIdempotencia_UsaCache(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 10)
	cache := newMapCache()
	uc := newLedger(store, nil, cache)
	in := inventory.StockChangeInput{ProductID: id, Amount: 2, Reason: "Restock", IdempotencyKey: "lote-9"}

	first, err := uc.Increase(context.Background(), in)
	require.NoError(t, err)
	cached, ok, _ := cache.Get(context.Background(), id, "lote-9")
	require.True(t, ok)
	assert.Equal(t, first.ID, cached.ID)

	second, err := uc.Increase(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(12), quantity(t, store, id))
}

func TestCambio_CacheCaida_NoBloquea(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 10)
	cache := newMapCache()
	cache.err = errors.New("redis caído")
	uc := newLedger(store, nil, cache)

	_, err := uc.Increase(context.Background(), inventory.StockChangeInput{ProductID: id, Amount: 2, Reason: "Restock", IdempotencyKey: "lote-9"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), quantity(t, store, id))
}

// ──────────────────────────────────────────────────────────────────────────────
// Consultas
// ──────────────────────────────────────────────────────────────────────────────

func TestListTransactions_MasRecientesPrimero(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 10)
	uc := newLedger(store, nil, nil)
	ctx := context.Background()

	_, err := uc.Increase(ctx, inventory.StockChangeInput{ProductID: id, Amount: 5, Reason: "Restock"})
	require.NoError(t, err)
	_, err = uc.Decrease(ctx, inventory.StockChangeInput{ProductID: id, Amount: 3, Reason: "Sale"})
	require.NoError(t, err)

	list, err := uc.ListTransactions(ctx, id, dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, int64(-3), list[0].ChangeAmount)
	assert.Equal(t, int64(5), list[1].ChangeAmount)
	assert.Equal(t, int64(10), list[2].ChangeAmount)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].CreatedAt.After(list[i-1].CreatedAt))
	}

	again, err := uc.ListTransactions(ctx, id, dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, list, again, "listar no modifica el estado")

	page, err := uc.ListTransactions(ctx, id, dto.PageRequest{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(5), page[0].ChangeAmount)
}

func TestListTransactions_SinMovimientos_ListaVacia(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 0)
	uc := newLedger(store, nil, nil)

	list, err := uc.ListTransactions(context.Background(), id, dto.PageRequest{})
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestListTransactions_ProductoInexistente(t *testing.T) {
	uc := newLedger(memory.New(), nil, nil)
	_, err := uc.ListTransactions(context.Background(), 1, dto.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStockLevel_Cuadra(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 10)
	uc := newLedger(store, nil, nil)
	_, err := uc.Decrease(context.Background(), inventory.StockChangeInput{ProductID: id, Amount: 3, Reason: "Sale"})
	require.NoError(t, err)

	lvl, err := uc.StockLevel(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(7), lvl.Quantity)
	assert.Equal(t, int64(7), lvl.LedgerBalance)
	assert.Equal(t, int64(2), lvl.TransactionCount)
	assert.True(t, lvl.Consistent)
}

func TestStockLevel_Descuadre(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 10)
	// escritura directa fuera del ledger
	require.NoError(t, store.Products().UpdateQuantity(context.Background(), id, 8))
	uc := newLedger(store, nil, nil)

	lvl, err := uc.StockLevel(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, lvl.Consistent)

	_, err = uc.StockLevel(context.Background(), 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStockLevel_ReintentaConflictos(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 10)
	runner := &flakyRunner{inner: store, fails: 2, err: fmt.Errorf("lock timeout: %w", domain.ErrConcurrencyConflict)}
	uc := newLedger(store, runner, nil)

	lvl, err := uc.StockLevel(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, lvl.Consistent)
	assert.Equal(t, int32(3), runner.calls.Load())
}

func TestStockLevel_ConEscriturasConcurrentes_SiempreCuadra(t *testing.T) {
	store := memory.New()
	id := seed(t, store, 100)
	uc := newLedger(store, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := inventory.StockChangeInput{ProductID: id, Amount: 2, Reason: "Movimiento"}
			if i%2 == 0 {
				_, _ = uc.Increase(ctx, in)
			} else {
				_, _ = uc.Decrease(ctx, in)
			}
		}(i)
	}

	for i := 0; i < 20; i++ {
		lvl, err := uc.StockLevel(ctx, id)
		require.NoError(t, err)
		assert.True(t, lvl.Consistent, "cantidad %d, saldo del log %d", lvl.Quantity, lvl.LedgerBalance)
	}
	wg.Wait()
	assertConservacion(t, store, id)
}
