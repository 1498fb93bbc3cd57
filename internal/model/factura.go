package model

import (
	"time"

	"venpos/internal/moneda"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EstadoFactura is the lifecycle state of an invoice.
//
//	borrador → emitida → parcial → pagada
//	emitida | parcial → anulada
//	borrador → (eliminada físicamente)
//
// pagada and anulada are terminal.
type EstadoFactura string

const (
	FacturaBorrador EstadoFactura = "borrador"
	FacturaEmitida  EstadoFactura = "emitida"
	FacturaParcial  EstadoFactura = "parcial"
	FacturaPagada   EstadoFactura = "pagada"
	FacturaAnulada  EstadoFactura = "anulada"
)

// Editable reports whether lines and header fields may still change.
func (e EstadoFactura) Editable() bool { return e == FacturaBorrador }

// AceptaPagos reports whether payments may be registered against the invoice.
func (e EstadoFactura) AceptaPagos() bool {
	return e == FacturaEmitida || e == FacturaParcial
}

// Anulable reports whether the invoice can be cancelled. Paid invoices
// require a credit note, drafts are deleted instead.
func (e EstadoFactura) Anulable() bool {
	return e == FacturaEmitida || e == FacturaParcial
}

// Factura is an invoice. Totals are stored denormalized and recomputed from
// the lines on every mutation; on issued invoices they are frozen along with
// the exchange-rate snapshot.
type Factura struct {
	ID     uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Numero *string       `gorm:"uniqueIndex"` // assigned at issue time, e.g. FAC-00000042
	Estado EstadoFactura `gorm:"type:varchar(20);not null;default:'borrador';index"`

	ClienteID *uuid.UUID    `gorm:"type:uuid;index"`
	UsuarioID uuid.UUID     `gorm:"type:uuid;not null"`
	Moneda    moneda.Moneda `gorm:"type:varchar(3);not null;default:'USD'"`
	// TasaVES / TasaEUR are snapshots taken when the invoice is issued.
	// Amounts shown in other currencies always derive from these, never
	// from a live rate.
	TasaVES decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	TasaEUR decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`

	Subtotal decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Impuesto decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Total    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	// Pagado accumulates payments normalized to the invoice currency.
	Pagado decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`

	// PagosRetenidos marks an anulada invoice that had payments registered
	// before cancellation; the payment rows stay untouched for audit.
	PagosRetenidos bool `gorm:"not null;default:false"`

	Notas         *string
	EmitidaAt     *time.Time
	AnuladaAt     *time.Time
	MotivoAnulado *string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Cliente *Cliente      `gorm:"foreignKey:ClienteID"`
	Items   []FacturaItem `gorm:"foreignKey:FacturaID"`
	Pagos   []Pago        `gorm:"foreignKey:FacturaID"`
}

// Saldo returns the outstanding amount in the invoice currency.
func (f *Factura) Saldo() decimal.Decimal { return f.Total.Sub(f.Pagado) }

// Lineas adapts the stored items for the totals calculator.
func (f *Factura) Lineas() []moneda.Linea {
	lineas := make([]moneda.Linea, len(f.Items))
	for i, it := range f.Items {
		lineas[i] = moneda.Linea{
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
			TasaImpuesto:   it.TasaImpuesto,
		}
	}
	return lineas
}

// FacturaItem is one invoice line. Product name and unit price are copied at
// the moment the line is added so later catalog edits do not rewrite history.
type FacturaItem struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FacturaID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductoID uuid.UUID `gorm:"type:uuid;not null"`

	Descripcion    string          `gorm:"not null"`
	Cantidad       decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	TasaImpuesto   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	CreatedAt      time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

// TableName overrides GORM's pluralization.
func (FacturaItem) TableName() string { return "factura_items" }
