package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearCajaRequest struct {
	Nombre string `json:"nombre" validate:"required,min=2,max=100"`
}

// MontosPorMoneda carries one amount per currency; every reconciliation
// figure travels in this shape.
type MontosPorMoneda struct {
	USD decimal.Decimal `json:"usd"`
	VES decimal.Decimal `json:"ves"`
	EUR decimal.Decimal `json:"eur"`
}

type AbrirSesionRequest struct {
	CajaID   string          `json:"caja_id"  validate:"required,uuid"`
	Apertura MontosPorMoneda `json:"apertura"`
	// Exchange-rate snapshots for the session (units per USD).
	TasaVES decimal.Decimal `json:"tasa_ves" validate:"required"`
	TasaEUR decimal.Decimal `json:"tasa_eur" validate:"required"`
	Notas   *string         `json:"notas"`
}

type CerrarSesionRequest struct {
	// Conteo is the physically counted cash, declared per currency.
	Conteo MontosPorMoneda `json:"conteo"`
	Notas  *string         `json:"notas"`
}

type MovimientoCajaRequest struct {
	Tipo   string          `json:"tipo"   validate:"required,oneof=deposito retiro"`
	Monto  decimal.Decimal `json:"monto"  validate:"required"`
	Moneda string          `json:"moneda" validate:"required,oneof=USD VES EUR"`
	Motivo string          `json:"motivo" validate:"required,min=3"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CajaResponse struct {
	ID        string `json:"id"`
	Nombre    string `json:"nombre"`
	Activa    bool   `json:"activa"`
	CreatedAt string `json:"created_at"`
}

type MovimientoCajaResponse struct {
	ID        string          `json:"id"`
	Tipo      string          `json:"tipo"`
	Monto     decimal.Decimal `json:"monto"`
	Moneda    string          `json:"moneda"`
	Motivo    string          `json:"motivo"`
	UsuarioID string          `json:"usuario_id"`
	CreatedAt string          `json:"created_at"`
}

type SesionResponse struct {
	ID        string `json:"id"`
	CajaID    string `json:"caja_id"`
	Caja      string `json:"caja,omitempty"`
	UsuarioID string `json:"usuario_id"`
	Estado    string `json:"estado"`

	Apertura MontosPorMoneda `json:"apertura"`
	TasaVES  decimal.Decimal `json:"tasa_ves"`
	TasaEUR  decimal.Decimal `json:"tasa_eur"`

	// Esperado, Conteo and Desvio are present only on closed sessions.
	Esperado *MontosPorMoneda `json:"esperado,omitempty"`
	Conteo   *MontosPorMoneda `json:"conteo,omitempty"`
	Desvio   *MontosPorMoneda `json:"desvio,omitempty"`

	NotasApertura *string                  `json:"notas_apertura,omitempty"`
	NotasCierre   *string                  `json:"notas_cierre,omitempty"`
	Movimientos   []MovimientoCajaResponse `json:"movimientos,omitempty"`
	OpenedAt      string                   `json:"opened_at"`
	ClosedAt      *string                  `json:"closed_at,omitempty"`
}

type SesionListResponse struct {
	Data  []SesionResponse `json:"data"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}
