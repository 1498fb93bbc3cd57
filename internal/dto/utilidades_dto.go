package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type LineaTotalesRequest struct {
	Cantidad       decimal.Decimal `json:"cantidad"        validate:"required"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario" validate:"required"`
	TasaImpuesto   decimal.Decimal `json:"tasa_impuesto"`
}

// TotalesRequest is the live preview the UI calls on every cart change.
type TotalesRequest struct {
	Lineas  []LineaTotalesRequest `json:"lineas"   validate:"required,dive"`
	TasaVES decimal.Decimal       `json:"tasa_ves"`
	TasaEUR decimal.Decimal       `json:"tasa_eur"`
}

type MontoEnLetrasRequest struct {
	Monto  decimal.Decimal `json:"monto"`
	Moneda string          `json:"moneda" validate:"required,oneof=USD VES EUR"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type TotalesResponse struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Impuesto decimal.Decimal `json:"impuesto"`
	Total    decimal.Decimal `json:"total"`
	// Converted totals are present only when a positive rate was supplied.
	TotalVES *decimal.Decimal `json:"total_ves,omitempty"`
	TotalEUR *decimal.Decimal `json:"total_eur,omitempty"`
}

type MontoEnLetrasResponse struct {
	Texto string `json:"texto"`
}
