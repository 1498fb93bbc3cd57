package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"venpos/internal/apperr"
	"venpos/internal/dto"
	"venpos/internal/model"
	"venpos/internal/moneda"
	"venpos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CajaService interface {
	CrearCaja(ctx context.Context, req dto.CrearCajaRequest) (*dto.CajaResponse, error)
	ListarCajas(ctx context.Context, incluirInactivas bool) ([]dto.CajaResponse, error)
	DesactivarCaja(ctx context.Context, id uuid.UUID) error

	AbrirSesion(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirSesionRequest) (*dto.SesionResponse, error)
	SesionActiva(ctx context.Context, cajaID uuid.UUID) (*dto.SesionResponse, error)
	CerrarSesion(ctx context.Context, sesionID uuid.UUID, req dto.CerrarSesionRequest) (*dto.SesionResponse, error)
	RegistrarMovimiento(ctx context.Context, sesionID, usuarioID uuid.UUID, req dto.MovimientoCajaRequest) (*dto.MovimientoCajaResponse, error)
	Historial(ctx context.Context, cajaID uuid.UUID, page, limit int) (*dto.SesionListResponse, error)
	ObtenerSesion(ctx context.Context, sesionID uuid.UUID) (*dto.SesionResponse, error)
}

type cajaService struct {
	repo repository.CajaRepository
}

func NewCajaService(repo repository.CajaRepository) CajaService {
	return &cajaService{repo: repo}
}

// ── Cajas ─────────────────────────────────────────────────────────────────────

func (s *cajaService) CrearCaja(ctx context.Context, req dto.CrearCajaRequest) (*dto.CajaResponse, error) {
	caja := &model.Caja{Nombre: req.Nombre, Activa: true}
	if err := s.repo.CreateCaja(ctx, caja); err != nil {
		return nil, err
	}
	return cajaToResponse(caja), nil
}

func (s *cajaService) ListarCajas(ctx context.Context, incluirInactivas bool) ([]dto.CajaResponse, error) {
	cajas, err := s.repo.ListCajas(ctx, incluirInactivas)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CajaResponse, 0, len(cajas))
	for i := range cajas {
		out = append(out, *cajaToResponse(&cajas[i]))
	}
	return out, nil
}

// DesactivarCaja hides the register from new session opens. A register with
// an open session cannot be deactivated.
func (s *cajaService) DesactivarCaja(ctx context.Context, id uuid.UUID) error {
	caja, err := s.repo.FindCajaByID(ctx, id)
	if err != nil {
		return fmt.Errorf("caja %s: %w", id, apperr.ErrNoEncontrado)
	}
	if _, err := s.repo.FindSesionAbierta(ctx, id); err == nil {
		return apperr.Validacion("la caja tiene una sesión abierta")
	}
	caja.Activa = false
	return s.repo.UpdateCaja(ctx, caja)
}

// ── AbrirSesion ───────────────────────────────────────────────────────────────
// The caja row lock serializes concurrent opens: two simultaneous requests
// for the same register cannot both pass the open-session check.

func (s *cajaService) AbrirSesion(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirSesionRequest) (*dto.SesionResponse, error) {
	cajaID, err := uuid.Parse(req.CajaID)
	if err != nil {
		return nil, apperr.Validacion("caja_id inválido")
	}
	if req.TasaVES.Sign() <= 0 || req.TasaEUR.Sign() <= 0 {
		return nil, apperr.Validacion("las tasas de cambio deben ser positivas")
	}
	apertura := montosFromDTO(req.Apertura)
	for _, m := range moneda.Todas() {
		if apertura.Por(m).Sign() < 0 {
			return nil, apperr.Validacion("el monto de apertura en %s no puede ser negativo", m)
		}
	}

	var sesion *model.SesionCaja
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		caja, err := s.repo.FindCajaForUpdateTx(tx, cajaID)
		if err != nil {
			return fmt.Errorf("caja %s: %w", cajaID, apperr.ErrNoEncontrado)
		}
		if !caja.Activa {
			return apperr.Validacion("la caja %s está inactiva", caja.Nombre)
		}
		if _, err := s.repo.FindSesionAbiertaTx(tx, cajaID); err == nil {
			return apperr.ErrSesionYaAbierta
		}

		sesion = &model.SesionCaja{
			CajaID:        cajaID,
			UsuarioID:     usuarioID,
			Estado:        model.SesionAbierta,
			Apertura:      apertura,
			TasaVES:       req.TasaVES,
			TasaEUR:       req.TasaEUR,
			NotasApertura: req.Notas,
			OpenedAt:      time.Now(),
		}
		return s.repo.CreateSesionTx(tx, sesion)
	})
	if txErr != nil {
		return nil, txErr
	}
	return sesionToResponse(sesion), nil
}

// ── SesionActiva ──────────────────────────────────────────────────────────────

// SesionActiva is a pure read: a register without an open session answers
// with none, not with an error.
func (s *cajaService) SesionActiva(ctx context.Context, cajaID uuid.UUID) (*dto.SesionResponse, error) {
	sesion, err := s.repo.FindSesionAbierta(ctx, cajaID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sesionToResponse(sesion), nil
}

func (s *cajaService) ObtenerSesion(ctx context.Context, sesionID uuid.UUID) (*dto.SesionResponse, error) {
	sesion, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		return nil, fmt.Errorf("sesión %s: %w", sesionID, apperr.ErrNoEncontrado)
	}
	return sesionToResponse(sesion), nil
}

// ── CerrarSesion ──────────────────────────────────────────────────────────────
// Blind count: the caller declares the physically counted amounts without
// seeing the expected figures. Per currency:
//
//	esperado = apertura + pagos en efectivo + depósitos − retiros
//	desvio   = conteo − esperado
//
// No cross-currency netting. The session row lock serializes close against
// cash payments: the sums are read while the lock is held, so a payment
// either commits before the lock (and is counted) or waits and is rejected
// against the now-closed session. The guarded UPDATE still backstops a
// second concurrent close: it updates zero rows and reports a conflict.

func (s *cajaService) CerrarSesion(ctx context.Context, sesionID uuid.UUID, req dto.CerrarSesionRequest) (*dto.SesionResponse, error) {
	conteo := montosFromDTO(req.Conteo)
	for _, m := range moneda.Todas() {
		if conteo.Por(m).Sign() < 0 {
			return nil, apperr.Validacion("el conteo en %s no puede ser negativo", m)
		}
	}

	var sesion *model.SesionCaja
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		sesion, err = s.repo.FindSesionForUpdateTx(tx, sesionID)
		if err != nil {
			return fmt.Errorf("sesión %s: %w", sesionID, apperr.ErrNoEncontrado)
		}
		if sesion.Estado != model.SesionAbierta {
			return apperr.Transicion(string(sesion.Estado), "cerrar")
		}

		esperado, err := s.calcularEsperadoTx(tx, sesion)
		if err != nil {
			return err
		}

		sesion.Cierre = conteo
		sesion.Esperado = esperado
		sesion.Desvio = conteo.Menos(esperado)
		sesion.NotasCierre = req.Notas

		rows, err := s.repo.CerrarSesionTx(tx, sesion)
		if err != nil {
			return err
		}
		if rows == 0 {
			return apperr.ErrConflictoConcurrencia
		}

		sesion.Estado = model.SesionCerrada
		now := time.Now()
		sesion.ClosedAt = &now
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return sesionToResponse(sesion), nil
}

// calcularEsperadoTx rebuilds the expected cash per currency from stored data
// only, so the figure is reproducible after the fact. It must run while the
// session row lock is held.
func (s *cajaService) calcularEsperadoTx(tx *gorm.DB, sesion *model.SesionCaja) (model.MontosMoneda, error) {
	var esperado model.MontosMoneda

	pagos, err := s.repo.SumPagosEfectivoPorMonedaTx(tx, sesion.ID)
	if err != nil {
		return esperado, err
	}
	movs, err := s.repo.SumMovimientosPorMonedaTx(tx, sesion.ID)
	if err != nil {
		return esperado, err
	}

	for _, m := range moneda.Todas() {
		esperado.Sumar(m, sesion.Apertura.Por(m))
		esperado.Sumar(m, pagos[m])
		esperado.Sumar(m, movs[m])
	}
	return esperado, nil
}

// ── RegistrarMovimiento ───────────────────────────────────────────────────────
// Depósito / retiro manual. Movements are immutable — no Update/Delete;
// corrections are inverse entries.

func (s *cajaService) RegistrarMovimiento(ctx context.Context, sesionID, usuarioID uuid.UUID, req dto.MovimientoCajaRequest) (*dto.MovimientoCajaResponse, error) {
	if req.Monto.Sign() <= 0 {
		return nil, apperr.Validacion("el monto debe ser positivo")
	}
	mon := moneda.Moneda(req.Moneda)
	if !mon.Valida() {
		return nil, apperr.Validacion("moneda no soportada: %s", req.Moneda)
	}

	mov := &model.MovimientoCaja{
		SesionCajaID: sesionID,
		UsuarioID:    usuarioID,
		Tipo:         req.Tipo,
		Monto:        req.Monto,
		Moneda:       mon,
		Motivo:       req.Motivo,
	}
	// Movements feed esperado just like cash payments, so the insert takes
	// the same session row lock close holds while summing.
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		sesion, err := s.repo.FindSesionForUpdateTx(tx, sesionID)
		if err != nil {
			return fmt.Errorf("sesión %s: %w", sesionID, apperr.ErrNoEncontrado)
		}
		if sesion.Estado != model.SesionAbierta {
			return apperr.ErrSinSesionActiva
		}
		return s.repo.CreateMovimientoTx(tx, mov)
	})
	if txErr != nil {
		return nil, txErr
	}
	return movimientoToResponse(mov), nil
}

// ── Historial ─────────────────────────────────────────────────────────────────

func (s *cajaService) Historial(ctx context.Context, cajaID uuid.UUID, page, limit int) (*dto.SesionListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	sesiones, total, err := s.repo.ListSesiones(ctx, cajaID, page, limit)
	if err != nil {
		return nil, err
	}
	data := make([]dto.SesionResponse, 0, len(sesiones))
	for i := range sesiones {
		data = append(data, *sesionToResponse(&sesiones[i]))
	}
	return &dto.SesionListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

// ── Mapeo a DTOs ──────────────────────────────────────────────────────────────

func montosFromDTO(m dto.MontosPorMoneda) model.MontosMoneda {
	return model.MontosMoneda{USD: m.USD, VES: m.VES, EUR: m.EUR}
}

func montosToDTO(m model.MontosMoneda) dto.MontosPorMoneda {
	return dto.MontosPorMoneda{USD: m.USD, VES: m.VES, EUR: m.EUR}
}

func cajaToResponse(c *model.Caja) *dto.CajaResponse {
	return &dto.CajaResponse{
		ID:        c.ID.String(),
		Nombre:    c.Nombre,
		Activa:    c.Activa,
		CreatedAt: c.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func movimientoToResponse(m *model.MovimientoCaja) *dto.MovimientoCajaResponse {
	return &dto.MovimientoCajaResponse{
		ID:        m.ID.String(),
		Tipo:      m.Tipo,
		Monto:     m.Monto,
		Moneda:    string(m.Moneda),
		Motivo:    m.Motivo,
		UsuarioID: m.UsuarioID.String(),
		CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func sesionToResponse(s *model.SesionCaja) *dto.SesionResponse {
	resp := &dto.SesionResponse{
		ID:            s.ID.String(),
		CajaID:        s.CajaID.String(),
		UsuarioID:     s.UsuarioID.String(),
		Estado:        string(s.Estado),
		Apertura:      montosToDTO(s.Apertura),
		TasaVES:       s.TasaVES,
		TasaEUR:       s.TasaEUR,
		NotasApertura: s.NotasApertura,
		NotasCierre:   s.NotasCierre,
		OpenedAt:      s.OpenedAt.Format("2006-01-02T15:04:05Z"),
	}
	if s.Caja != nil {
		resp.Caja = s.Caja.Nombre
	}
	if s.Estado == model.SesionCerrada {
		esperado := montosToDTO(s.Esperado)
		conteo := montosToDTO(s.Cierre)
		desvio := montosToDTO(s.Desvio)
		resp.Esperado = &esperado
		resp.Conteo = &conteo
		resp.Desvio = &desvio
	}
	for i := range s.Movimientos {
		resp.Movimientos = append(resp.Movimientos, *movimientoToResponse(&s.Movimientos[i]))
	}
	if s.ClosedAt != nil {
		t := s.ClosedAt.Format("2006-01-02T15:04:05Z")
		resp.ClosedAt = &t
	}
	return resp
}
