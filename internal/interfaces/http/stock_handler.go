package http

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/application/dto"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/application/inventory"
)

// HeaderIdempotencyKey cabecera opcional para deduplicar reintentos del cliente.
const HeaderIdempotencyKey = "Idempotency-Key"

// StockHandler endpoints del ledger de stock.
type StockHandler struct {
	ledger    *inventory.LedgerUseCase
	stockCard *inventory.StockCardUseCase
	timeout   time.Duration
}

// NewStockHandler timeout > 0 acota cada operación.
func NewStockHandler(ledger *inventory.LedgerUseCase, stockCard *inventory.StockCardUseCase, timeout time.Duration) *StockHandler {
	return &StockHandler{ledger: ledger, stockCard: stockCard, timeout: timeout}
}

// Increase godoc
// @Summary      Aumentar stock
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Param        id               path    int                      true   "ID del producto"
// @Param        Idempotency-Key  header  string                   false  "Clave para deduplicar reintentos"
// @Param        body             body    dto.StockChangeRequest   true   "amount > 0, reason 3..150"
// @Success      204
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /products/{id}/stock/increase [post]
func (h *StockHandler) Increase(c *fiber.Ctx) error {
	return h.change(c, h.ledger.Increase)
}

// Decrease godoc
// @Summary      Disminuir stock
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Param        id               path    int                      true   "ID del producto"
// @Param        Idempotency-Key  header  string                   false  "Clave para deduplicar reintentos"
// @Param        body             body    dto.StockChangeRequest   true   "amount > 0, reason 3..150"
// @Success      204
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse  "INSUFFICIENT_STOCK"
// @Router       /products/{id}/stock/decrease [post]
func (h *StockHandler) Decrease(c *fiber.Ctx) error {
	return h.change(c, h.ledger.Decrease)
}

type changeFunc func(ctx context.Context, in inventory.StockChangeInput) (*dto.StockTransactionResponse, error)

func (h *StockHandler) change(c *fiber.Ctx, fn changeFunc) error {
	productID, err := productIDParam(c)
	if err != nil {
		return badRequest(c, "VALIDATION", "id de producto inválido")
	}
	var in dto.StockChangeRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}

	ctx, cancel := h.operationContext(c)
	defer cancel()

	_, err = fn(ctx, inventory.StockChangeInput{
		ProductID:      productID,
		Amount:         in.Amount,
		Reason:         in.Reason,
		IdempotencyKey: utils.CopyString(c.Get(HeaderIdempotencyKey)), // c.Get apunta al buffer de fasthttp
		UserID:         GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListTransactions godoc
// @Summary      Historial de movimientos
// @Description  Más recientes primero. Sin limit devuelve todo; limit se recorta a 500.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id      path   int  true   "ID del producto"
// @Param        limit   query  int  false  "Máximo de filas"
// @Param        offset  query  int  false  "Desplazamiento"
// @Success      200  {array}   dto.StockTransactionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /products/{id}/stock/transactions [get]
func (h *StockHandler) ListTransactions(c *fiber.Ctx) error {
	productID, err := productIDParam(c)
	if err != nil {
		return badRequest(c, "VALIDATION", "id de producto inválido")
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "VALIDATION", "limit y offset deben ser enteros")
	}

	ctx, cancel := h.operationContext(c)
	defer cancel()

	list, err := h.ledger.ListTransactions(ctx, productID, page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(list)
}

// StockLevel godoc
// @Summary      Cantidad actual y conciliación con el log
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id  path  int  true  "ID del producto"
// @Success      200  {object}  dto.StockLevelResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /products/{id}/stock [get]
func (h *StockHandler) StockLevel(c *fiber.Ctx) error {
	productID, err := productIDParam(c)
	if err != nil {
		return badRequest(c, "VALIDATION", "id de producto inválido")
	}
	ctx, cancel := h.operationContext(c)
	defer cancel()

	out, err := h.ledger.StockLevel(ctx, productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// StockCardPDF godoc
// @Summary      Tarjeta de stock (kardex) en PDF
// @Tags         stock
// @Security     Bearer
// @Produce      application/pdf
// @Param        id  path  int  true  "ID del producto"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /products/{id}/stock/report.pdf [get]
func (h *StockHandler) StockCardPDF(c *fiber.Ctx) error {
	productID, err := productIDParam(c)
	if err != nil {
		return badRequest(c, "VALIDATION", "id de producto inválido")
	}
	ctx, cancel := h.operationContext(c)
	defer cancel()

	pdf, err := h.stockCard.Render(ctx, productID)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="kardex-`+strconv.FormatInt(productID, 10)+`.pdf"`)
	return c.Send(pdf)
}

func (h *StockHandler) operationContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), h.timeout)
}

func productIDParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.ErrBadRequest
	}
	return id, nil
}
