package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Producto is a catalog item. Stock is decimal because some goods sell by
// weight or volume (kg, litros).
type Producto struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CodigoBarras string    `gorm:"uniqueIndex;not null"`
	Nombre       string    `gorm:"index;not null"`
	Descripcion  *string
	PrecioVenta  decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	// TasaImpuesto is the IVA percent applied when the product is invoiced.
	TasaImpuesto decimal.Decimal `gorm:"type:decimal(5,2);not null;default:16"`
	StockActual  decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0"`
	StockMinimo  decimal.Decimal `gorm:"type:decimal(12,3);not null;default:5"`
	UnidadMedida string          `gorm:"not null;default:'unidad'"`
	Activo       bool            `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
