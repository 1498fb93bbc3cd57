package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// FacturaFilter is bound from query string of GET /v1/facturas.
type FacturaFilter struct {
	Estado    string `form:"estado"` // borrador | emitida | parcial | pagada | anulada | all
	ClienteID string `form:"cliente_id"       validate:"omitempty,uuid"`
	Desde     string `form:"desde"` // YYYY-MM-DD inclusive
	Hasta     string `form:"hasta"` // YYYY-MM-DD exclusive
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ItemFacturaRequest struct {
	ProductoID string          `json:"producto_id" validate:"required,uuid"`
	Cantidad   decimal.Decimal `json:"cantidad"    validate:"required"`
}

type CrearFacturaRequest struct {
	ClienteID *string              `json:"cliente_id" validate:"omitempty,uuid"`
	Moneda    string               `json:"moneda"     validate:"required,oneof=USD VES EUR"`
	Items     []ItemFacturaRequest `json:"items"      validate:"required,min=1,dive"`
	Notas     *string              `json:"notas"`
}

// ActualizarFacturaRequest replaces the full editable surface of a draft.
// A draft can never be left without lines; deleting it is a separate call.
type ActualizarFacturaRequest struct {
	ClienteID *string              `json:"cliente_id" validate:"omitempty,uuid"`
	Items     []ItemFacturaRequest `json:"items"      validate:"required,min=1,dive"`
	Notas     *string              `json:"notas"`
}

type EmitirFacturaRequest struct {
	// Rate snapshots frozen onto the invoice at issue time (units per USD).
	TasaVES decimal.Decimal `json:"tasa_ves" validate:"required"`
	TasaEUR decimal.Decimal `json:"tasa_eur" validate:"required"`
}

type RegistrarPagoRequest struct {
	Metodo string          `json:"metodo" validate:"required,oneof=efectivo tarjeta transferencia pago_movil"`
	Monto  decimal.Decimal `json:"monto"  validate:"required"`
	Moneda string          `json:"moneda" validate:"required,oneof=USD VES EUR"`
	// SesionCajaID is mandatory for efectivo: cash must land in an open
	// register session.
	SesionCajaID *string `json:"sesion_caja_id" validate:"omitempty,uuid"`
	Referencia   *string `json:"referencia"`
}

type AnularFacturaRequest struct {
	Motivo string `json:"motivo" validate:"required,min=5"`
}

type EnviarFacturaRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemFacturaResponse struct {
	ID             string          `json:"id"`
	ProductoID     string          `json:"producto_id"`
	Descripcion    string          `json:"descripcion"`
	Cantidad       decimal.Decimal `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	TasaImpuesto   decimal.Decimal `json:"tasa_impuesto"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type PagoResponse struct {
	ID               string          `json:"id"`
	Metodo           string          `json:"metodo"`
	Monto            decimal.Decimal `json:"monto"`
	Moneda           string          `json:"moneda"`
	MontoNormalizado decimal.Decimal `json:"monto_normalizado"`
	SesionCajaID     *string         `json:"sesion_caja_id,omitempty"`
	Referencia       *string         `json:"referencia,omitempty"`
	CreatedAt        string          `json:"created_at"`
}

type FacturaResponse struct {
	ID        string  `json:"id"`
	Numero    *string `json:"numero,omitempty"`
	Estado    string  `json:"estado"`
	ClienteID *string `json:"cliente_id,omitempty"`
	Cliente   *string `json:"cliente,omitempty"`
	Moneda    string  `json:"moneda"`

	TasaVES decimal.Decimal `json:"tasa_ves"`
	TasaEUR decimal.Decimal `json:"tasa_eur"`

	Items    []ItemFacturaResponse `json:"items"`
	Subtotal decimal.Decimal       `json:"subtotal"`
	Impuesto decimal.Decimal       `json:"impuesto"`
	Total    decimal.Decimal       `json:"total"`
	Pagado   decimal.Decimal       `json:"pagado"`
	Saldo    decimal.Decimal       `json:"saldo"`
	// TotalEnLetras is the printed legal-amount line, e.g.
	// "SON: CIEN DOLARES CON 00/100".
	TotalEnLetras string `json:"total_en_letras,omitempty"`

	Pagos          []PagoResponse `json:"pagos,omitempty"`
	PagosRetenidos bool           `json:"pagos_retenidos,omitempty"`
	Notas          *string        `json:"notas,omitempty"`
	MotivoAnulado  *string        `json:"motivo_anulado,omitempty"`
	EmitidaAt      *string        `json:"emitida_at,omitempty"`
	AnuladaAt      *string        `json:"anulada_at,omitempty"`
	CreatedAt      string         `json:"created_at"`
}

type FacturaListResponse struct {
	Data  []FacturaResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
