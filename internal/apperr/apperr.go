// Package apperr defines the typed failures returned by the transactional
// core. Handlers translate them to HTTP status codes; services never return
// raw gorm errors to the edge.
package apperr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrValidacion covers malformed input: negative amounts, empty item
	// lists, unknown currencies. Recoverable — the caller re-prompts.
	ErrValidacion = errors.New("entrada invalida")

	// ErrTransicionInvalida means the operation is not legal from the
	// current estado of the factura or sesion. No side effects occurred.
	ErrTransicionInvalida = errors.New("transicion de estado invalida")

	// ErrSesionYaAbierta: the register already has an open session.
	ErrSesionYaAbierta = errors.New("ya existe una sesion abierta para esta caja")

	// ErrSinSesionActiva: the operation requires an open session and none exists.
	ErrSinSesionActiva = errors.New("no hay sesion de caja abierta")

	// ErrConflictoConcurrencia: two operations raced on the same resource;
	// the loser must re-read current state before retrying.
	ErrConflictoConcurrencia = errors.New("conflicto de concurrencia")

	// ErrNoEncontrado: the referenced record does not exist.
	ErrNoEncontrado = errors.New("registro no encontrado")
)

// StockInsuficiente is returned when issuing an invoice would drive a
// product's stock below zero. The whole issuance aborts; no line is applied.
type StockInsuficiente struct {
	ProductoID uuid.UUID
	Producto   string
	Solicitado decimal.Decimal
	Disponible decimal.Decimal
}

func (e *StockInsuficiente) Error() string {
	return fmt.Sprintf("stock insuficiente para %s: solicitado %s, disponible %s",
		e.Producto, e.Solicitado.String(), e.Disponible.String())
}

// Validacion wraps ErrValidacion with a human-readable detail.
func Validacion(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidacion}, args...)...)
}

// Transicion wraps ErrTransicionInvalida with the offending estados.
func Transicion(desde, operacion string) error {
	return fmt.Errorf("%w: no se puede %s desde el estado %q", ErrTransicionInvalida, operacion, desde)
}
