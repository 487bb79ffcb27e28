package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound             = errors.New("recurso no encontrado")
	ErrInvalidInput         = errors.New("entrada inválida")
	ErrInsufficientStock    = errors.New("stock insuficiente")
	ErrStockLimitExceeded   = errors.New("la cantidad supera el stock máximo permitido")
	ErrConcurrencyConflict  = errors.New("conflicto de concurrencia, reintente la operación")
	ErrIdempotencyKeyReused = errors.New("la clave de idempotencia ya se usó con otros datos")
	ErrPersistence          = errors.New("fallo de persistencia")
)
