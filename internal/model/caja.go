package model

import (
	"time"

	"venpos/internal/moneda"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EstadoSesion is the lifecycle state of a cash register session.
type EstadoSesion string

const (
	SesionAbierta EstadoSesion = "abierta"
	SesionCerrada EstadoSesion = "cerrada"
)

// Caja is a named cash-handling point. Registers are created by an
// administrator and never deleted, only deactivated.
type Caja struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre    string    `gorm:"not null;uniqueIndex"`
	Activa    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MontosMoneda holds one amount per supported currency. Reconciliation is
// always per currency: a shortfall in one is never offset by a surplus in
// another.
type MontosMoneda struct {
	USD decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"usd"`
	VES decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"ves"`
	EUR decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"eur"`
}

// Por returns the amount for one currency.
func (m MontosMoneda) Por(mon moneda.Moneda) decimal.Decimal {
	switch mon {
	case moneda.USD:
		return m.USD
	case moneda.VES:
		return m.VES
	case moneda.EUR:
		return m.EUR
	}
	return decimal.Zero
}

// Sumar adds monto to the bucket for mon.
func (m *MontosMoneda) Sumar(mon moneda.Moneda, monto decimal.Decimal) {
	switch mon {
	case moneda.USD:
		m.USD = m.USD.Add(monto)
	case moneda.VES:
		m.VES = m.VES.Add(monto)
	case moneda.EUR:
		m.EUR = m.EUR.Add(monto)
	}
}

// Menos returns m − o, per currency.
func (m MontosMoneda) Menos(o MontosMoneda) MontosMoneda {
	return MontosMoneda{
		USD: m.USD.Sub(o.USD),
		VES: m.VES.Sub(o.VES),
		EUR: m.EUR.Sub(o.EUR),
	}
}

// SesionCaja is one open-to-close cycle of a Caja.
// Invariant: at most one sesion with Estado == SesionAbierta per caja.
// Closing is terminal — a closed session is never mutated again.
type SesionCaja struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CajaID    uuid.UUID    `gorm:"type:uuid;not null;index"`
	UsuarioID uuid.UUID    `gorm:"type:uuid;not null"`
	Estado    EstadoSesion `gorm:"type:varchar(20);not null;default:'abierta';index"`

	Apertura MontosMoneda `gorm:"embedded;embeddedPrefix:apertura_"`
	// TasaVES / TasaEUR are the exchange-rate snapshots captured at open
	// time (VES / EUR per USD). Never re-derived at read time.
	TasaVES decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	TasaEUR decimal.Decimal `gorm:"type:decimal(18,6);not null"`

	// Cierre, Esperado and Desvio are meaningful only once Estado is
	// cerrada. Desvio = Cierre − Esperado, computed independently per
	// currency and reproducible from stored data.
	Cierre   MontosMoneda `gorm:"embedded;embeddedPrefix:cierre_"`
	Esperado MontosMoneda `gorm:"embedded;embeddedPrefix:esperado_"`
	Desvio   MontosMoneda `gorm:"embedded;embeddedPrefix:desvio_"`

	NotasApertura *string
	NotasCierre   *string
	OpenedAt      time.Time
	ClosedAt      *time.Time

	Caja        *Caja            `gorm:"foreignKey:CajaID"`
	Movimientos []MovimientoCaja `gorm:"foreignKey:SesionCajaID"`
}

// TableName overrides GORM's pluralization (sesion_cajas → sesiones_caja).
func (SesionCaja) TableName() string { return "sesiones_caja" }

// MovimientoCaja is a manual deposit or withdrawal inside a session.
// Tipo: "deposito" | "retiro". Movements are immutable — corrections create
// inverse entries, never edits.
type MovimientoCaja struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SesionCajaID uuid.UUID       `gorm:"type:uuid;not null;index"`
	UsuarioID    uuid.UUID       `gorm:"type:uuid;not null"`
	Tipo         string          `gorm:"type:varchar(20);not null"`
	Monto        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Moneda       moneda.Moneda   `gorm:"type:varchar(3);not null"`
	Motivo       string          `gorm:"not null"`
	CreatedAt    time.Time
}

// TableName overrides GORM's pluralization.
func (MovimientoCaja) TableName() string { return "movimientos_caja" }
