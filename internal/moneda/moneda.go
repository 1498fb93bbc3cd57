// Package moneda is the pure currency and totals calculator. It holds no
// state and performs no I/O: services call it to compute invoice totals and
// handlers expose it directly for live UI previews.
//
// All rounding is half-up to 2 decimals (decimal.Round rounds half away from
// zero, which is half-up for the non-negative amounts handled here). Sums are
// accumulated without intermediate rounding so the result does not depend on
// line order.
package moneda

import (
	"venpos/internal/apperr"

	"github.com/shopspring/decimal"
)

// Moneda is one of the three currencies the system operates in.
type Moneda string

const (
	USD Moneda = "USD"
	VES Moneda = "VES"
	EUR Moneda = "EUR"
)

// Todas lists the supported currencies in canonical order.
func Todas() []Moneda { return []Moneda{USD, VES, EUR} }

// Valida reports whether m is a supported currency code.
func (m Moneda) Valida() bool {
	return m == USD || m == VES || m == EUR
}

// EtiquetaLegal is the plural currency name used in the printed
// legal-amount line.
func (m Moneda) EtiquetaLegal() string {
	switch m {
	case VES:
		return "BOLIVARES"
	case EUR:
		return "EUROS"
	default:
		return "DOLARES"
	}
}

// Linea is one invoice line as seen by the calculator.
type Linea struct {
	Cantidad       decimal.Decimal
	PrecioUnitario decimal.Decimal
	TasaImpuesto   decimal.Decimal // percent, e.g. 16 for 16% IVA
}

var cien = decimal.NewFromInt(100)

// Redondear rounds a monetary amount to 2 decimals, half-up.
func Redondear(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// CalcularLinea returns the raw subtotal and tax of a single line. No
// rounding happens at line level — totals are rounded once, in
// CalcularTotales.
func CalcularLinea(cantidad, precioUnitario, tasaImpuesto decimal.Decimal) (subtotal, impuesto decimal.Decimal) {
	subtotal = cantidad.Mul(precioUnitario)
	impuesto = subtotal.Mul(tasaImpuesto).Div(cien)
	return subtotal, impuesto
}

// CalcularTotales sums every line's subtotal and tax, rounds each sum
// independently to 2 decimals, and returns total = round(subtotal + impuesto).
func CalcularTotales(lineas []Linea) (subtotal, impuesto, total decimal.Decimal) {
	for _, l := range lineas {
		s, i := CalcularLinea(l.Cantidad, l.PrecioUnitario, l.TasaImpuesto)
		subtotal = subtotal.Add(s)
		impuesto = impuesto.Add(i)
	}
	subtotal = Redondear(subtotal)
	impuesto = Redondear(impuesto)
	total = Redondear(subtotal.Add(impuesto))
	return subtotal, impuesto, total
}

// Convertir applies a snapshotted exchange rate (target currency units per
// one unit of the source currency) and rounds to 2 decimals. Rates are never
// looked up live — callers pass the rate stored on the invoice or session.
func Convertir(monto, tasa decimal.Decimal) (decimal.Decimal, error) {
	if tasa.Sign() <= 0 {
		return decimal.Zero, apperr.Validacion("tasa de cambio debe ser positiva")
	}
	return Redondear(monto.Mul(tasa)), nil
}
