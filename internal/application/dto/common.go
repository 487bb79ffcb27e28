package dto

// Límites de paginación para listados de movimientos.
const (
	MaxPageLimit = 500
)

// PageRequest paginación para listados. Limit 0 = sin límite.
type PageRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// Normalize aplica los topes: Limit negativo se trata como 0, Limit > MaxPageLimit se recorta.
func (p *PageRequest) Normalize() {
	if p.Limit < 0 {
		p.Limit = 0
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
