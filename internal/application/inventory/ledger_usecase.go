package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/application/dto"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain/entity"
	domaininv "github.com/ivanov2024/Inventory-managment-microservice/internal/domain/inventory"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain/repository"
	"github.com/ivanov2024/Inventory-managment-microservice/pkg/logger"
)

const tracerName = "github.com/ivanov2024/Inventory-managment-microservice/internal/application/inventory"

// LedgerConfig parámetros del ledger.
type LedgerConfig struct {
	Policy       domaininv.StockPolicy
	MaxAttempts  int           // intentos ante ErrConcurrencyConflict (mínimo 1)
	RetryBackoff time.Duration // espera lineal entre intentos
}

// StockChangeInput entrada de Increase/Decrease. Amount es siempre la magnitud (positiva).
type StockChangeInput struct {
	ProductID      int64
	Amount         int64
	Reason         string
	IdempotencyKey string
	UserID         string
}

// LedgerUseCase única vía para modificar la cantidad de un producto.
// Cada cambio bloquea la fila del producto (SELECT FOR UPDATE), valida, actualiza la cantidad
// y agrega el movimiento en la misma transacción; si algo falla no queda nada persistido.
type LedgerUseCase struct {
	txRunner    TxRunner
	productRepo repository.ProductRepository
	txRepo      repository.StockTransactionRepository
	cache       IdempotencyCache
	cfg         LedgerConfig
	log         *logger.Logger
	tracer      trace.Tracer
}

// NewLedgerUseCase construye el caso de uso. cache y log pueden ser nil.
func NewLedgerUseCase(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	txRepo repository.StockTransactionRepository,
	cache IdempotencyCache,
	cfg LedgerConfig,
	log *logger.Logger,
) *LedgerUseCase {
	if cache == nil {
		cache = noopCache{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &LedgerUseCase{
		txRunner:    txRunner,
		productRepo: productRepo,
		txRepo:      txRepo,
		cache:       cache,
		cfg:         cfg,
		log:         log,
		tracer:      otel.Tracer(tracerName),
	}
}

// Increase suma Amount al stock y registra un movimiento +Amount.
func (uc *LedgerUseCase) Increase(ctx context.Context, in StockChangeInput) (*dto.StockTransactionResponse, error) {
	return uc.change(ctx, "increase", in, in.Amount)
}

// Decrease resta Amount del stock y registra un movimiento -Amount.
// Devuelve domain.ErrInsufficientStock sin escribir nada si el stock no alcanza.
func (uc *LedgerUseCase) Decrease(ctx context.Context, in StockChangeInput) (*dto.StockTransactionResponse, error) {
	return uc.change(ctx, "decrease", in, -in.Amount)
}

func (uc *LedgerUseCase) change(ctx context.Context, op string, in StockChangeInput, change int64) (*dto.StockTransactionResponse, error) {
	ctx, span := uc.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(
		attribute.Int64("product.id", in.ProductID),
		attribute.Int64("stock.amount", in.Amount),
	))
	defer span.End()

	reason := domaininv.NormalizeReason(in.Reason)
	if err := uc.validate(in, reason); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if in.IdempotencyKey != "" {
		if prev, ok := uc.cachedReplay(ctx, in); ok {
			if !sameChange(prev, change, reason) {
				return nil, domain.ErrIdempotencyKeyReused
			}
			span.SetAttributes(attribute.Bool("stock.replay", true))
			return toStockTransactionResponse(prev), nil
		}
	}

	var committed *entity.StockTransaction
	replay := false
	err := uc.runAtomic(ctx, func(productRepo repository.ProductRepository, txRepo repository.StockTransactionRepository) error {
		committed, replay = nil, false

		product, err := productRepo.GetForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}

		if in.IdempotencyKey != "" {
			prev, err := txRepo.GetByIdempotencyKey(ctx, in.ProductID, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if prev != nil {
				if !sameChange(prev, change, reason) {
					return domain.ErrIdempotencyKeyReused
				}
				committed, replay = prev, true
				return nil
			}
		}

		next, err := uc.cfg.Policy.Apply(product.Quantity, change)
		if err != nil {
			return err
		}
		if err := productRepo.UpdateQuantity(ctx, product.ID, next); err != nil {
			return err
		}
		st := &entity.StockTransaction{
			ProductID:      product.ID,
			ChangeAmount:   change,
			Reason:         reason,
			IdempotencyKey: in.IdempotencyKey,
		}
		if err := txRepo.Append(ctx, st); err != nil {
			return err
		}
		committed = st
		return nil
	})
	if err != nil {
		err = classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		uc.logFailure(ctx, op, in, err)
		return nil, err
	}

	if in.IdempotencyKey != "" {
		if err := uc.cache.Put(ctx, committed); err != nil {
			uc.log.Warn().Err(err).Int64("product_id", in.ProductID).Msg("no se pudo guardar la clave de idempotencia en caché")
		}
	}

	span.SetAttributes(attribute.Int64("stock.transaction_id", committed.ID), attribute.Bool("stock.replay", replay))
	uc.log.Info().Ctx(ctx).
		Str("op", op).
		Int64("product_id", in.ProductID).
		Int64("change", change).
		Int64("transaction_id", committed.ID).
		Bool("replay", replay).
		Str("user_id", in.UserID).
		Msg("movimiento de stock registrado")
	return toStockTransactionResponse(committed), nil
}

// ListTransactions devuelve los movimientos del producto, más recientes primero.
func (uc *LedgerUseCase) ListTransactions(ctx context.Context, productID int64, page dto.PageRequest) ([]dto.StockTransactionResponse, error) {
	ctx, span := uc.tracer.Start(ctx, "ledger.list_transactions", trace.WithAttributes(attribute.Int64("product.id", productID)))
	defer span.End()

	page.Normalize()
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, classify(err)
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	list, err := uc.txRepo.ListByProduct(ctx, productID, page.Limit, page.Offset)
	if err != nil {
		return nil, classify(err)
	}
	out := make([]dto.StockTransactionResponse, 0, len(list))
	for _, t := range list {
		out = append(out, *toStockTransactionResponse(t))
	}
	return out, nil
}

// StockLevel devuelve la cantidad actual y la compara con la suma del log.
// Un bloqueo compartido sobre la fila evita escrituras entre ambas lecturas sin frenar a otros lectores.
func (uc *LedgerUseCase) StockLevel(ctx context.Context, productID int64) (*dto.StockLevelResponse, error) {
	var out *dto.StockLevelResponse
	err := uc.runAtomic(ctx, func(productRepo repository.ProductRepository, txRepo repository.StockTransactionRepository) error {
		out = nil
		product, err := productRepo.GetForShare(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}
		summary, err := txRepo.Summarize(ctx, productID)
		if err != nil {
			return err
		}
		out = &dto.StockLevelResponse{
			ProductID:        productID,
			Quantity:         product.Quantity,
			LedgerBalance:    summary.Balance,
			TransactionCount: summary.TransactionCount,
			Consistent:       summary.Balance == product.Quantity,
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !out.Consistent {
		uc.log.Error().
			Int64("product_id", productID).
			Int64("quantity", out.Quantity).
			Int64("ledger_balance", out.LedgerBalance).
			Msg("cantidad descuadrada respecto al log de movimientos")
	}
	return out, nil
}

func (uc *LedgerUseCase) validate(in StockChangeInput, reason string) error {
	if in.ProductID <= 0 {
		return fmt.Errorf("%w: id de producto inválido", domain.ErrInvalidInput)
	}
	if err := uc.cfg.Policy.ValidateAmount(in.Amount); err != nil {
		return err
	}
	if err := uc.cfg.Policy.ValidateReason(reason); err != nil {
		return err
	}
	return uc.cfg.Policy.ValidateIdempotencyKey(in.IdempotencyKey)
}

func (uc *LedgerUseCase) cachedReplay(ctx context.Context, in StockChangeInput) (*entity.StockTransaction, bool) {
	prev, ok, err := uc.cache.Get(ctx, in.ProductID, in.IdempotencyKey)
	if err != nil {
		uc.log.Warn().Err(err).Int64("product_id", in.ProductID).Msg("caché de idempotencia no disponible")
		return nil, false
	}
	return prev, ok
}

// runAtomic reintenta la transacción completa ante conflictos de concurrencia.
func (uc *LedgerUseCase) runAtomic(ctx context.Context, fn func(repository.ProductRepository, repository.StockTransactionRepository) error) error {
	var err error
	for attempt := 1; attempt <= uc.cfg.MaxAttempts; attempt++ {
		err = uc.txRunner.Run(ctx, fn)
		if !errors.Is(err, domain.ErrConcurrencyConflict) || attempt == uc.cfg.MaxAttempts {
			return err
		}
		uc.log.Warn().Err(err).Int("attempt", attempt).Msg("conflicto de concurrencia, reintentando")
		if uc.cfg.RetryBackoff <= 0 {
			continue
		}
		timer := time.NewTimer(uc.cfg.RetryBackoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func (uc *LedgerUseCase) logFailure(ctx context.Context, op string, in StockChangeInput, err error) {
	ev := uc.log.Warn()
	if errors.Is(err, domain.ErrPersistence) {
		ev = uc.log.Error()
	}
	ev.Ctx(ctx).Err(err).
		Str("op", op).
		Int64("product_id", in.ProductID).
		Int64("amount", in.Amount).
		Msg("movimiento de stock rechazado")
}

// knownErrors errores que se propagan tal cual; el resto se considera fallo de persistencia.
var knownErrors = []error{
	domain.ErrNotFound,
	domain.ErrInvalidInput,
	domain.ErrInsufficientStock,
	domain.ErrStockLimitExceeded,
	domain.ErrConcurrencyConflict,
	domain.ErrIdempotencyKeyReused,
	domain.ErrPersistence,
	context.Canceled,
	context.DeadlineExceeded,
}

func classify(err error) error {
	for _, known := range knownErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
}

func sameChange(t *entity.StockTransaction, change int64, reason string) bool {
	return t.ChangeAmount == change && t.Reason == reason
}

func toStockTransactionResponse(t *entity.StockTransaction) *dto.StockTransactionResponse {
	return &dto.StockTransactionResponse{
		ID:           t.ID,
		ProductID:    t.ProductID,
		ChangeAmount: t.ChangeAmount,
		Reason:       t.Reason,
		CreatedAt:    t.CreatedAt,
	}
}
