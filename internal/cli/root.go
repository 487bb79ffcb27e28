// Package cli implementa stockctl, la herramienta de operación del ledger de stock.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/application/inventory"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/application/usecase"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/bootstrap"
	"github.com/ivanov2024/Inventory-managment-microservice/pkg/config"
	"github.com/ivanov2024/Inventory-managment-microservice/pkg/logger"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stockctl",
		Short:         "Operación del ledger de stock",
		Long:          "stockctl aplica migraciones, carga productos desde CSV, consulta movimientos, genera el kardex en PDF y emite tokens para operadores.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newTokenCmd())
	return cmd
}

// NewRootCmdForTest devuelve el comando raíz para pruebas.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

// Execute corre stockctl con los argumentos del proceso.
func Execute() error {
	return newRootCmd().Execute()
}

// env configuración, logger y casos de uso que necesitan los subcomandos.
type env struct {
	cfg       *config.Config
	log       *logger.Logger
	deps      *bootstrap.Deps
	ledger    *inventory.LedgerUseCase
	stockCard *inventory.StockCardUseCase
	products  *usecase.ProductUseCase
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	return cfg, log, nil
}

// openEnv conecta el almacenamiento; el llamador debe invocar close.
func openEnv(ctx context.Context, gen inventory.StockCardGenerator) (*env, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	deps, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("abrir almacenamiento: %w", err)
	}
	policy := bootstrap.StockPolicy(cfg.Ledger)
	return &env{
		cfg:  cfg,
		log:  log,
		deps: deps,
		ledger: inventory.NewLedgerUseCase(deps.TxRunner, deps.Products, deps.Transactions, deps.Cache, inventory.LedgerConfig{
			Policy:       policy,
			MaxAttempts:  cfg.Ledger.MaxAttempts,
			RetryBackoff: cfg.Ledger.RetryBackoff,
		}, log),
		stockCard: inventory.NewStockCardUseCase(deps.TxRunner, gen),
		products:  usecase.NewProductUseCase(deps.TxRunner, deps.Products, policy),
	}, nil
}

func (e *env) close() { e.deps.Close() }
