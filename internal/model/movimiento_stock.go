package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovimientoStock registra cada cambio de stock en un producto.
// Se crea automáticamente al emitir o anular una factura, o por ajuste manual.
type MovimientoStock struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Tipo          string          `gorm:"not null"`                    // "emision" | "ajuste_manual" | "restauracion_anulacion"
	Cantidad      decimal.Decimal `gorm:"type:decimal(12,3);not null"` // positive = entrada, negative = salida
	StockAnterior decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	StockNuevo    decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	Motivo        string
	ReferenciaID  *uuid.UUID `gorm:"type:uuid"` // factura_id if applicable
	CreatedAt     time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

// TableName overrides GORM's default pluralization (movimiento_stocks → movimientos_stock).
func (MovimientoStock) TableName() string { return "movimientos_stock" }
