// Package bootstrap arma el almacenamiento y la caché según la configuración.
// Lo comparten el servidor HTTP y stockctl.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/application/inventory"
	domaininv "github.com/ivanov2024/Inventory-managment-microservice/internal/domain/inventory"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain/repository"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/infrastructure/memory"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/infrastructure/postgres"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/infrastructure/rediscache"
	"github.com/ivanov2024/Inventory-managment-microservice/pkg/config"
	"github.com/ivanov2024/Inventory-managment-microservice/pkg/logger"
)

// Deps dependencias de persistencia listas para inyectar en los casos de uso.
// Products y Transactions operan fuera de transacción (lecturas y listados).
type Deps struct {
	TxRunner     inventory.TxRunner
	Products     repository.ProductRepository
	Transactions repository.StockTransactionRepository
	Cache        inventory.IdempotencyCache // nil si Redis no está configurado

	pool  *pgxpool.Pool
	redis *redis.Client
}

// Open conecta el backend elegido en STORAGE_DRIVER y, si REDIS_ADDR está definido, la caché.
// Un Redis inalcanzable no impide arrancar: se registra y se sigue sin caché.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Deps, error) {
	deps := &Deps{}

	switch cfg.Storage.Driver {
	case "memory":
		store := memory.New()
		deps.TxRunner = store
		deps.Products = store.Products()
		deps.Transactions = store.Transactions()
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conectar a PostgreSQL: %w", err)
		}
		log.Info().Msg("conexión a PostgreSQL establecida")

		if cfg.DB.AutoMigrate {
			if _, err := postgres.Migrate(ctx, pool, log); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migraciones: %w", err)
			}
		}
		deps.pool = pool
		deps.TxRunner = postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout)
		deps.Products = postgres.NewProductRepository(pool)
		deps.Transactions = postgres.NewStockTransactionRepository(pool)
	}

	if cfg.Redis.Addr != "" {
		client, err := rediscache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no disponible, se continúa sin caché de idempotencia")
		} else {
			deps.redis = client
			deps.Cache = rediscache.NewIdempotencyCache(client, cfg.Redis.IdempotencyTTL)
			log.Info().Str("addr", cfg.Redis.Addr).Msg("caché de idempotencia en redis activa")
		}
	}
	return deps, nil
}

// Pool devuelve el pool de PostgreSQL o nil con el backend en memoria.
func (d *Deps) Pool() *pgxpool.Pool { return d.pool }

// Close libera conexiones. Seguro de llamar varias veces.
func (d *Deps) Close() {
	if d.redis != nil {
		_ = d.redis.Close()
		d.redis = nil
	}
	if d.pool != nil {
		d.pool.Close()
		d.pool = nil
	}
}

// StockPolicy traduce la configuración del ledger a la política de dominio.
func StockPolicy(cfg config.LedgerConfig) domaininv.StockPolicy {
	p := domaininv.DefaultStockPolicy()
	if cfg.ReasonMinLength > 0 {
		p.ReasonMinLength = cfg.ReasonMinLength
	}
	if cfg.ReasonMaxLength > 0 {
		p.ReasonMaxLength = cfg.ReasonMaxLength
	}
	p.MaxQuantity = cfg.MaxQuantity
	return p
}
