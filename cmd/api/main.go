package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/swaggo/swag"

	"github.com/ivanov2024/Inventory-managment-microservice/docs"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/application/inventory"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/application/usecase"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/bootstrap"
	infrapdf "github.com/ivanov2024/Inventory-managment-microservice/internal/infrastructure/pdf"
	httpRouter "github.com/ivanov2024/Inventory-managment-microservice/internal/interfaces/http"
	"github.com/ivanov2024/Inventory-managment-microservice/pkg/config"
	"github.com/ivanov2024/Inventory-managment-microservice/pkg/logger"
	"github.com/ivanov2024/Inventory-managment-microservice/pkg/telemetry"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
		Hooks: []zerolog.Hook{telemetry.TraceHook{}},
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: cfg.App.Name,
		Host:        cfg.Telemetry.Host,
		SampleRatio: cfg.Telemetry.SampleRatio,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazas")
	}

	deps, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer deps.Close()

	policy := bootstrap.StockPolicy(cfg.Ledger)
	ledgerUC := inventory.NewLedgerUseCase(deps.TxRunner, deps.Products, deps.Transactions, deps.Cache, inventory.LedgerConfig{
		Policy:       policy,
		MaxAttempts:  cfg.Ledger.MaxAttempts,
		RetryBackoff: cfg.Ledger.RetryBackoff,
	}, log)
	stockCardUC := inventory.NewStockCardUseCase(deps.TxRunner, infrapdf.NewMarotoPDFGenerator())
	productUC := usecase.NewProductUseCase(deps.TxRunner, deps.Products, policy)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    docs.SwaggerInfo.Title,
		}))
	}
	app.Get("/openapi.json", func(c *fiber.Ctx) error {
		doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(doc)
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:           ledgerUC,
		StockCard:        stockCardUC,
		ProductUC:        productUC,
		JWTSecret:        cfg.JWT.Secret,
		OperationTimeout: cfg.Ledger.OperationTimeout,
		Log:              log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("cierre de trazas")
	}

	log.Info().Msg("aplicación detenida")
}
