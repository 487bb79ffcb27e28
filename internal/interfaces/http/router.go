package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/application/inventory"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/application/usecase"
	"github.com/ivanov2024/Inventory-managment-microservice/pkg/jwt"
	"github.com/ivanov2024/Inventory-managment-microservice/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger           *inventory.LedgerUseCase
	StockCard        *inventory.StockCardUseCase
	ProductUC        *usecase.ProductUseCase
	JWTSecret        string        // vacío = sin autenticación
	OperationTimeout time.Duration // tope por operación del ledger
	Log              *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	app.Use(RequestID())

	products := app.Group("/products", RequestLogger(log))
	canWrite := func(c *fiber.Ctx) error { return c.Next() }
	if deps.JWTSecret != "" {
		products.Use(AuthMiddleware(deps.JWTSecret))
		canWrite = RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)
	} else {
		log.Warn().Msg("JWT_SECRET vacío: API sin autenticación")
	}

	productHandler := NewProductHandler(deps.ProductUC)
	products.Post("/", canWrite, productHandler.Create)
	products.Get("/:id", productHandler.GetByID)

	stockHandler := NewStockHandler(deps.Ledger, deps.StockCard, deps.OperationTimeout)
	products.Post("/:id/stock/increase", canWrite, stockHandler.Increase)
	products.Post("/:id/stock/decrease", canWrite, stockHandler.Decrease)
	products.Get("/:id/stock/transactions", stockHandler.ListTransactions)
	products.Get("/:id/stock/report.pdf", stockHandler.StockCardPDF)
	products.Get("/:id/stock", stockHandler.StockLevel)
}
