package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// ProductoFilter is bound from query string of GET /v1/productos.
type ProductoFilter struct {
	Barcode string `form:"barcode"`
	Nombre  string `form:"nombre"`
	Activo  string `form:"activo"` // "false" | "all" | default activos
	Page    int    `form:"page,default=1"   validate:"min=1"`
	Limit   int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearProductoRequest struct {
	CodigoBarras string          `json:"codigo_barras" validate:"required,min=3,max=50"`
	Nombre       string          `json:"nombre"        validate:"required,min=2,max=200"`
	Descripcion  *string         `json:"descripcion"`
	PrecioVenta  decimal.Decimal `json:"precio_venta"  validate:"required"`
	TasaImpuesto decimal.Decimal `json:"tasa_impuesto"`
	StockActual  decimal.Decimal `json:"stock_actual"`
	StockMinimo  decimal.Decimal `json:"stock_minimo"`
	UnidadMedida string          `json:"unidad_medida" validate:"omitempty,oneof=unidad kg litro metro caja"`
}

type ActualizarProductoRequest struct {
	Nombre       string          `json:"nombre"        validate:"omitempty,min=2,max=200"`
	Descripcion  *string         `json:"descripcion"`
	PrecioVenta  decimal.Decimal `json:"precio_venta"`
	TasaImpuesto decimal.Decimal `json:"tasa_impuesto"`
	StockMinimo  decimal.Decimal `json:"stock_minimo"`
	UnidadMedida string          `json:"unidad_medida" validate:"omitempty,oneof=unidad kg litro metro caja"`
}

type AjusteStockRequest struct {
	Delta  decimal.Decimal `json:"delta"  validate:"required"`
	Motivo string          `json:"motivo" validate:"required,min=3"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductoResponse struct {
	ID           string          `json:"id"`
	CodigoBarras string          `json:"codigo_barras"`
	Nombre       string          `json:"nombre"`
	Descripcion  *string         `json:"descripcion,omitempty"`
	PrecioVenta  decimal.Decimal `json:"precio_venta"`
	TasaImpuesto decimal.Decimal `json:"tasa_impuesto"`
	StockActual  decimal.Decimal `json:"stock_actual"`
	StockMinimo  decimal.Decimal `json:"stock_minimo"`
	UnidadMedida string          `json:"unidad_medida"`
	Activo       bool            `json:"activo"`
}

type ProductoListResponse struct {
	Data  []ProductoResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// PrecioResponse is served by the price-check endpoint; it may come from the
// Redis cache instead of the database.
type PrecioResponse struct {
	ProductoID  string          `json:"producto_id"`
	Nombre      string          `json:"nombre"`
	PrecioUSD   decimal.Decimal `json:"precio_usd"`
	PrecioVES   decimal.Decimal `json:"precio_ves"`
	PrecioEUR   decimal.Decimal `json:"precio_eur"`
	TasaVES     decimal.Decimal `json:"tasa_ves"`
	TasaEUR     decimal.Decimal `json:"tasa_eur"`
	DesdeCache  bool            `json:"desde_cache"`
	ConsultadoA string          `json:"consultado_a"`
}
