package moneda

// letras.go — legal-amount word rendering for printed invoices.
// Output format: "SON: <INTEGER WORDS> <CURRENCY> CON <CENTS>/100".
// Grammar notes:
//   - exactly 100 renders "CIEN", never "CIENTO"
//   - 1000–1999 renders bare "MIL" (no "UN" prefix)
//   - exactly 1,000,000 renders "UN MILLON"; other millions use "MILLONES"

import (
	"fmt"
	"strings"

	"venpos/internal/apperr"

	"github.com/shopspring/decimal"
)

var (
	unidades = [10]string{
		"", "UN", "DOS", "TRES", "CUATRO", "CINCO", "SEIS", "SIETE", "OCHO", "NUEVE",
	}
	decenas = [10]string{
		"", "DIEZ", "VEINTE", "TREINTA", "CUARENTA", "CINCUENTA", "SESENTA", "SETENTA", "OCHENTA", "NOVENTA",
	}
	especiales = [10]string{
		"DIEZ", "ONCE", "DOCE", "TRECE", "CATORCE", "QUINCE", "DIECISEIS", "DIECISIETE", "DIECIOCHO", "DIECINUEVE",
	}
	veintes = [10]string{
		"VEINTE", "VEINTIUNO", "VEINTIDOS", "VEINTITRES", "VEINTICUATRO", "VEINTICINCO", "VEINTISEIS", "VEINTISIETE", "VEINTIOCHO", "VEINTINUEVE",
	}
	centenas = [10]string{
		"", "CIENTO", "DOSCIENTOS", "TRESCIENTOS", "CUATROCIENTOS", "QUINIENTOS", "SEISCIENTOS", "SETECIENTOS", "OCHOCIENTOS", "NOVECIENTOS",
	}
)

// escribirGrupo appends the words for a three-digit group (0–999) to b.
func escribirGrupo(b *strings.Builder, n int64) {
	if n == 0 {
		return
	}
	if n == 100 {
		b.WriteString("CIEN ")
		return
	}
	if n >= 100 {
		b.WriteString(centenas[n/100])
		b.WriteByte(' ')
		n %= 100
	}
	switch {
	case n >= 30:
		b.WriteString(decenas[n/10])
		b.WriteByte(' ')
		if n%10 > 0 {
			b.WriteString("Y ")
			b.WriteString(unidades[n%10])
			b.WriteByte(' ')
		}
	case n >= 20:
		b.WriteString(veintes[n-20])
		b.WriteByte(' ')
	case n >= 10:
		b.WriteString(especiales[n-10])
		b.WriteByte(' ')
	case n > 0:
		b.WriteString(unidades[n])
		b.WriteByte(' ')
	}
}

// escribirMiles appends the words for 0–999,999 to b.
func escribirMiles(b *strings.Builder, n int64) {
	if n >= 1000 {
		if miles := n / 1000; miles == 1 {
			b.WriteString("MIL ")
		} else {
			escribirGrupo(b, miles)
			b.WriteString("MIL ")
		}
		n %= 1000
	}
	escribirGrupo(b, n)
}

// MontoEnLetras renders a non-negative amount as Spanish legal words, e.g.
// MontoEnLetras(1250.50, "BOLIVARES") → "SON: MIL DOSCIENTOS CINCUENTA
// BOLIVARES CON 50/100". Negative amounts fail with ErrValidacion.
func MontoEnLetras(monto decimal.Decimal, etiquetaMoneda string) (string, error) {
	if monto.Sign() < 0 {
		return "", apperr.Validacion("el monto no puede ser negativo")
	}

	monto = monto.Round(2)
	entero := monto.IntPart()
	centimos := monto.Sub(decimal.NewFromInt(entero)).Mul(cien).IntPart()

	var b strings.Builder
	b.WriteString("SON: ")

	switch {
	case entero == 0:
		b.WriteString("CERO ")
	case entero >= 1_000_000:
		millones := entero / 1_000_000
		escribirMiles(&b, millones)
		if millones == 1 {
			b.WriteString("MILLON ")
		} else {
			b.WriteString("MILLONES ")
		}
		escribirMiles(&b, entero%1_000_000)
	default:
		escribirMiles(&b, entero)
	}

	b.WriteString(etiquetaMoneda)
	fmt.Fprintf(&b, " CON %02d/100", centimos)
	return b.String(), nil
}
