package model

import (
	"time"

	"venpos/internal/moneda"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Pago is one payment against an issued invoice. Payments are immutable;
// they survive even if the invoice is later cancelled (see
// Factura.PagosRetenidos).
type Pago struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FacturaID uuid.UUID `gorm:"type:uuid;not null;index"`
	UsuarioID uuid.UUID `gorm:"type:uuid;not null"`

	// Metodo: "efectivo" | "tarjeta" | "transferencia" | "pago_movil".
	Metodo string          `gorm:"type:varchar(30);not null"`
	Monto  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Moneda moneda.Moneda   `gorm:"type:varchar(3);not null"`
	// MontoNormalizado is Monto converted to the invoice currency with the
	// invoice's snapshotted rate, rounded to 2 decimals.
	MontoNormalizado decimal.Decimal `gorm:"type:decimal(14,2);not null"`

	// SesionCajaID links cash payments to the open register session so the
	// session's expected totals include them. Required for efectivo.
	SesionCajaID *uuid.UUID `gorm:"type:uuid;index"`

	Referencia *string
	CreatedAt  time.Time
}
