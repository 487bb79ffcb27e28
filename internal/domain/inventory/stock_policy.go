package inventory

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain"
)

// Valores por defecto de las reglas del ledger.
const (
	DefaultReasonMinLength = 3
	DefaultReasonMaxLength = 150
	MaxIdempotencyKeyLen   = 100
)

// StockPolicy reglas de validación y cálculo del ledger (servicio de dominio).
type StockPolicy struct {
	ReasonMinLength int
	ReasonMaxLength int
	MaxQuantity     int64 // 0 = sin tope
}

// DefaultStockPolicy devuelve la política con los límites por defecto y sin tope de cantidad.
func DefaultStockPolicy() StockPolicy {
	return StockPolicy{
		ReasonMinLength: DefaultReasonMinLength,
		ReasonMaxLength: DefaultReasonMaxLength,
	}
}

// NormalizeReason recorta espacios y normaliza a NFC para medir la longitud en caracteres.
func NormalizeReason(reason string) string {
	return norm.NFC.String(strings.TrimSpace(reason))
}

// ValidateReason espera un motivo ya normalizado.
func (p StockPolicy) ValidateReason(reason string) error {
	n := utf8.RuneCountInString(reason)
	if n < p.ReasonMinLength || (p.ReasonMaxLength > 0 && n > p.ReasonMaxLength) {
		return fmt.Errorf("%w: el motivo debe tener entre %d y %d caracteres", domain.ErrInvalidInput, p.ReasonMinLength, p.ReasonMaxLength)
	}
	return nil
}

// ValidateAmount exige una magnitud estrictamente positiva.
func (p StockPolicy) ValidateAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: la cantidad debe ser mayor que cero", domain.ErrInvalidInput)
	}
	return nil
}

// ValidateIdempotencyKey acepta vacío (sin deduplicación).
func (p StockPolicy) ValidateIdempotencyKey(key string) error {
	if len(key) > MaxIdempotencyKeyLen {
		return fmt.Errorf("%w: la clave de idempotencia admite máximo %d caracteres", domain.ErrInvalidInput, MaxIdempotencyKeyLen)
	}
	return nil
}

// Apply calcula la nueva cantidad tras un cambio firmado.
// Nunca devuelve una cantidad negativa ni por encima de MaxQuantity.
func (p StockPolicy) Apply(current, change int64) (int64, error) {
	if change == 0 {
		return current, fmt.Errorf("%w: el cambio de stock no puede ser cero", domain.ErrInvalidInput)
	}
	if change < 0 {
		if current < -change {
			return current, domain.ErrInsufficientStock
		}
		return current + change, nil
	}
	if current > math.MaxInt64-change {
		return current, domain.ErrStockLimitExceeded
	}
	next := current + change
	if p.MaxQuantity > 0 && next > p.MaxQuantity {
		return current, domain.ErrStockLimitExceeded
	}
	return next, nil
}
