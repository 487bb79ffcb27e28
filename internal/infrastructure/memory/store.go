// Package memory implementa el almacenamiento del ledger en memoria, con las mismas
// garantías que Postgres: bloqueo por producto, escrituras atómicas al confirmar y
// descarte total al abortar.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain/entity"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain/repository"
)

// Store datos confirmados más un candado (canal de capacidad 1) por producto.
type Store struct {
	mu            sync.RWMutex
	products      map[int64]entity.Product
	transactions  map[int64][]entity.StockTransaction // orden de confirmación
	locks         map[int64]chan struct{}
	nextProductID int64
	nextTxID      int64
	lastCreatedAt time.Time
	now           func() time.Time
}

// New crea un Store vacío.
func New() *Store {
	return &Store{
		products:     make(map[int64]entity.Product),
		transactions: make(map[int64][]entity.StockTransaction),
		locks:        make(map[int64]chan struct{}),
		now:          time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Products repositorio sin transacción explícita: cada escritura se confirma sola.
func (s *Store) Products() repository.ProductRepository { return autoProducts{s} }

// Transactions repositorio de movimientos sin transacción explícita.
func (s *Store) Transactions() repository.StockTransactionRepository { return autoTransactions{s} }

// Run ejecuta fn con repositorios atados a una transacción. Si fn falla o ctx se cancela
// antes de confirmar no se aplica ninguna escritura.
func (s *Store) Run(ctx context.Context, fn func(
	productRepo repository.ProductRepository,
	txRepo repository.StockTransactionRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{
		s:       s,
		held:    make(map[int64]chan struct{}),
		created: make(map[int64]*entity.Product),
		updated: make(map[int64]int64),
	}
	defer tx.release()

	if err := fn(txProducts{tx}, txTransactions{tx}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *Store) lockFor(id int64) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[id] = ch
	}
	return ch
}

func (s *Store) exists(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.products[id]
	return ok
}

func (s *Store) committedProduct(id int64) (entity.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

// memTx escrituras pendientes de una transacción.
type memTx struct {
	s       *Store
	held    map[int64]chan struct{}
	created map[int64]*entity.Product
	updated map[int64]int64 // productID -> nueva cantidad
	pending []*entity.StockTransaction
}

func (tx *memTx) lock(ctx context.Context, id int64) error {
	if _, ok := tx.held[id]; ok {
		return nil
	}
	ch := tx.s.lockFor(id)
	select {
	case ch <- struct{}{}:
		tx.held[id] = ch
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (tx *memTx) release() {
	for id, ch := range tx.held {
		<-ch
		delete(tx.held, id)
	}
}

// product devuelve la vista de la transacción: pendientes sobre confirmados.
func (tx *memTx) product(id int64) (*entity.Product, bool) {
	if p, ok := tx.created[id]; ok {
		cp := *p
		return &cp, true
	}
	p, ok := tx.s.committedProduct(id)
	if !ok {
		return nil, false
	}
	if q, ok := tx.updated[id]; ok {
		p.Quantity = q
	}
	return &p, true
}

func (tx *memTx) commit() {
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range tx.created {
		s.products[id] = *p
	}
	now := s.now().UTC()
	for id, q := range tx.updated {
		p := s.products[id]
		p.Quantity = q
		p.UpdatedAt = now
		s.products[id] = p
	}
	for _, t := range tx.pending {
		s.nextTxID++
		t.ID = s.nextTxID
		t.CreatedAt = s.nextCreatedAt()
		s.transactions[t.ProductID] = append(s.transactions[t.ProductID], *t)
	}
}

// nextCreatedAt sellos estrictamente crecientes, como clock_timestamp() en Postgres.
func (s *Store) nextCreatedAt() time.Time {
	ts := s.now().UTC()
	if !ts.After(s.lastCreatedAt) {
		ts = s.lastCreatedAt.Add(time.Microsecond)
	}
	s.lastCreatedAt = ts
	return ts
}

type txProducts struct{ tx *memTx }

func (r txProducts) Create(ctx context.Context, p *entity.Product) error {
	if p.Quantity < 0 {
		return domain.ErrInsufficientStock
	}
	s := r.tx.s
	s.mu.Lock()
	s.nextProductID++
	p.ID = s.nextProductID
	s.mu.Unlock()

	if err := r.tx.lock(ctx, p.ID); err != nil {
		return err
	}
	cp := *p
	cp.Name = strings.Clone(p.Name)
	cp.Description = strings.Clone(p.Description)
	r.tx.created[p.ID] = &cp
	return nil
}

func (r txProducts) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, ok := r.tx.product(id)
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (r txProducts) GetForUpdate(ctx context.Context, id int64) (*entity.Product, error) {
	if _, ok := r.tx.created[id]; !ok {
		if !r.tx.s.exists(id) {
			return nil, nil
		}
		if err := r.tx.lock(ctx, id); err != nil {
			return nil, err
		}
	}
	p, ok := r.tx.product(id)
	if !ok {
		return nil, nil
	}
	return p, nil
}

// GetForShare usa el mismo candado exclusivo por producto; en memoria no hay modo compartido.
func (r txProducts) GetForShare(ctx context.Context, id int64) (*entity.Product, error) {
	return r.GetForUpdate(ctx, id)
}

func (r txProducts) UpdateQuantity(ctx context.Context, id int64, quantity int64) error {
	if quantity < 0 {
		return domain.ErrInsufficientStock
	}
	if p, ok := r.tx.created[id]; ok {
		p.Quantity = quantity
		return nil
	}
	if !r.tx.s.exists(id) {
		return domain.ErrNotFound
	}
	if err := r.tx.lock(ctx, id); err != nil {
		return err
	}
	r.tx.updated[id] = quantity
	return nil
}

type txTransactions struct{ tx *memTx }

func (r txTransactions) Append(ctx context.Context, t *entity.StockTransaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.ChangeAmount == 0 {
		return fmt.Errorf("%w: el cambio de stock no puede ser cero", domain.ErrInvalidInput)
	}
	if _, ok := r.tx.product(t.ProductID); !ok {
		return domain.ErrNotFound
	}
	if t.IdempotencyKey != "" {
		prev, err := r.GetByIdempotencyKey(ctx, t.ProductID, t.IdempotencyKey)
		if err != nil {
			return err
		}
		if prev != nil {
			return domain.ErrConcurrencyConflict
		}
	}
	// Las cadenas pueden venir de buffers que el llamador reutiliza.
	t.Reason = strings.Clone(t.Reason)
	t.IdempotencyKey = strings.Clone(t.IdempotencyKey)
	r.tx.pending = append(r.tx.pending, t)
	return nil
}

// ListByProduct solo ve movimientos confirmados.
func (r txTransactions) ListByProduct(ctx context.Context, productID int64, limit, offset int) ([]*entity.StockTransaction, error) {
	return r.tx.s.list(ctx, productID, limit, offset)
}

func (r txTransactions) GetByIdempotencyKey(ctx context.Context, productID int64, key string) (*entity.StockTransaction, error) {
	for _, t := range r.tx.pending {
		if t.ProductID == productID && t.IdempotencyKey == key {
			cp := *t
			return &cp, nil
		}
	}
	return r.tx.s.byIdempotencyKey(ctx, productID, key)
}

func (r txTransactions) Summarize(ctx context.Context, productID int64) (entity.LedgerSummary, error) {
	sum, err := r.tx.s.summarize(ctx, productID)
	if err != nil {
		return sum, err
	}
	for _, t := range r.tx.pending {
		if t.ProductID == productID {
			sum.TransactionCount++
			sum.Balance += t.ChangeAmount
		}
	}
	return sum, nil
}

func (s *Store) list(ctx context.Context, productID int64, limit, offset int) ([]*entity.StockTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	rows := s.transactions[productID]
	out := make([]*entity.StockTransaction, 0, len(rows))
	for i := range rows {
		cp := rows[i]
		out = append(out, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if offset >= len(out) {
		return []*entity.StockTransaction{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) byIdempotencyKey(ctx context.Context, productID int64, key string) (*entity.StockTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.transactions[productID] {
		if t.IdempotencyKey == key {
			cp := t
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) summarize(ctx context.Context, productID int64) (entity.LedgerSummary, error) {
	sum := entity.LedgerSummary{ProductID: productID}
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.transactions[productID] {
		sum.TransactionCount++
		sum.Balance += t.ChangeAmount
	}
	return sum, nil
}

// autoProducts cada llamada corre en su propia transacción.
type autoProducts struct{ s *Store }

func (r autoProducts) Create(ctx context.Context, p *entity.Product) error {
	return r.s.Run(ctx, func(pr repository.ProductRepository, _ repository.StockTransactionRepository) error {
		return pr.Create(ctx, p)
	})
}

func (r autoProducts) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, ok := r.s.committedProduct(id)
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r autoProducts) GetForUpdate(ctx context.Context, id int64) (*entity.Product, error) {
	var out *entity.Product
	err := r.s.Run(ctx, func(pr repository.ProductRepository, _ repository.StockTransactionRepository) error {
		p, err := pr.GetForUpdate(ctx, id)
		out = p
		return err
	})
	return out, err
}

func (r autoProducts) GetForShare(ctx context.Context, id int64) (*entity.Product, error) {
	return r.GetForUpdate(ctx, id)
}

func (r autoProducts) UpdateQuantity(ctx context.Context, id int64, quantity int64) error {
	return r.s.Run(ctx, func(pr repository.ProductRepository, _ repository.StockTransactionRepository) error {
		return pr.UpdateQuantity(ctx, id, quantity)
	})
}

type autoTransactions struct{ s *Store }

func (r autoTransactions) Append(ctx context.Context, t *entity.StockTransaction) error {
	return r.s.Run(ctx, func(_ repository.ProductRepository, tr repository.StockTransactionRepository) error {
		return tr.Append(ctx, t)
	})
}

func (r autoTransactions) ListByProduct(ctx context.Context, productID int64, limit, offset int) ([]*entity.StockTransaction, error) {
	return r.s.list(ctx, productID, limit, offset)
}

func (r autoTransactions) GetByIdempotencyKey(ctx context.Context, productID int64, key string) (*entity.StockTransaction, error) {
	return r.s.byIdempotencyKey(ctx, productID, key)
}

func (r autoTransactions) Summarize(ctx context.Context, productID int64) (entity.LedgerSummary, error) {
	return r.s.summarize(ctx, productID)
}
