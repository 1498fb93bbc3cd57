package service_test

import (
	"context"
	"testing"
	"time"

	"venpos/internal/apperr"
	"venpos/internal/dto"
	"venpos/internal/model"
	"venpos/internal/moneda"
	"venpos/internal/repository"
	"venpos/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Full in-memory CajaRepository ────────────────────────────────────────────

type fakeCajaRepo struct {
	cajas       map[uuid.UUID]*model.Caja
	sesiones    map[uuid.UUID]*model.SesionCaja
	movimientos []model.MovimientoCaja
	// pagosEfectivo simulates cash payments linked to a session, per currency.
	pagosEfectivo map[uuid.UUID]map[moneda.Moneda]decimal.Decimal
	// cierreRobado simulates a concurrent close: the next CerrarSesionTx call
	// updates zero rows, as the guarded UPDATE would.
	cierreRobado bool
	// alBloquearSesion runs once right after FindSesionForUpdateTx grants the
	// lock; it interleaves a writer that committed just before the lock.
	alBloquearSesion func()
}

func newFakeCajaRepo() *fakeCajaRepo {
	return &fakeCajaRepo{
		cajas:         make(map[uuid.UUID]*model.Caja),
		sesiones:      make(map[uuid.UUID]*model.SesionCaja),
		pagosEfectivo: make(map[uuid.UUID]map[moneda.Moneda]decimal.Decimal),
	}
}

func (r *fakeCajaRepo) DB() *gorm.DB { return nil }

func (r *fakeCajaRepo) CreateCaja(_ context.Context, c *model.Caja) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	r.cajas[c.ID] = c
	return nil
}

func (r *fakeCajaRepo) FindCajaByID(_ context.Context, id uuid.UUID) (*model.Caja, error) {
	c, ok := r.cajas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (r *fakeCajaRepo) ListCajas(_ context.Context, incluirInactivas bool) ([]model.Caja, error) {
	var out []model.Caja
	for _, c := range r.cajas {
		if c.Activa || incluirInactivas {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeCajaRepo) UpdateCaja(_ context.Context, c *model.Caja) error {
	r.cajas[c.ID] = c
	return nil
}

func (r *fakeCajaRepo) FindCajaForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.Caja, error) {
	return r.FindCajaByID(context.Background(), id)
}

func (r *fakeCajaRepo) FindSesionAbiertaTx(_ *gorm.DB, cajaID uuid.UUID) (*model.SesionCaja, error) {
	return r.FindSesionAbierta(context.Background(), cajaID)
}

func (r *fakeCajaRepo) CreateSesionTx(_ *gorm.DB, s *model.SesionCaja) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.sesiones[s.ID] = s
	return nil
}

func (r *fakeCajaRepo) FindSesionAbierta(_ context.Context, cajaID uuid.UUID) (*model.SesionCaja, error) {
	for _, s := range r.sesiones {
		if s.CajaID == cajaID && s.Estado == model.SesionAbierta {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCajaRepo) FindSesionByID(_ context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	s, ok := r.sesiones[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *fakeCajaRepo) ListSesiones(_ context.Context, cajaID uuid.UUID, page, limit int) ([]model.SesionCaja, int64, error) {
	var out []model.SesionCaja
	for _, s := range r.sesiones {
		if cajaID == uuid.Nil || s.CajaID == cajaID {
			out = append(out, *s)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeCajaRepo) FindSesionForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.SesionCaja, error) {
	s, err := r.FindSesionByID(context.Background(), id)
	if err == nil && r.alBloquearSesion != nil {
		h := r.alBloquearSesion
		r.alBloquearSesion = nil
		h()
	}
	return s, err
}

func (r *fakeCajaRepo) CerrarSesionTx(_ *gorm.DB, s *model.SesionCaja) (int64, error) {
	if r.cierreRobado {
		r.cierreRobado = false
		return 0, nil
	}
	actual, ok := r.sesiones[s.ID]
	if !ok || actual.Estado != model.SesionAbierta {
		return 0, nil
	}
	actual.Estado = model.SesionCerrada
	actual.Cierre = s.Cierre
	actual.Esperado = s.Esperado
	actual.Desvio = s.Desvio
	actual.NotasCierre = s.NotasCierre
	now := time.Now()
	actual.ClosedAt = &now
	return 1, nil
}

func (r *fakeCajaRepo) CreateMovimientoTx(_ *gorm.DB, m *model.MovimientoCaja) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *fakeCajaRepo) ListMovimientos(_ context.Context, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error) {
	var out []model.MovimientoCaja
	for _, m := range r.movimientos {
		if m.SesionCajaID == sesionCajaID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeCajaRepo) SumMovimientosPorMonedaTx(_ *gorm.DB, sesionCajaID uuid.UUID) (map[moneda.Moneda]decimal.Decimal, error) {
	sums := map[moneda.Moneda]decimal.Decimal{
		moneda.USD: decimal.Zero, moneda.VES: decimal.Zero, moneda.EUR: decimal.Zero,
	}
	for _, m := range r.movimientos {
		if m.SesionCajaID != sesionCajaID {
			continue
		}
		if m.Tipo == "deposito" {
			sums[m.Moneda] = sums[m.Moneda].Add(m.Monto)
		} else {
			sums[m.Moneda] = sums[m.Moneda].Sub(m.Monto)
		}
	}
	return sums, nil
}

func (r *fakeCajaRepo) SumPagosEfectivoPorMonedaTx(_ *gorm.DB, sesionCajaID uuid.UUID) (map[moneda.Moneda]decimal.Decimal, error) {
	sums := map[moneda.Moneda]decimal.Decimal{
		moneda.USD: decimal.Zero, moneda.VES: decimal.Zero, moneda.EUR: decimal.Zero,
	}
	for mon, monto := range r.pagosEfectivo[sesionCajaID] {
		sums[mon] = monto
	}
	return sums, nil
}

var _ repository.CajaRepository = (*fakeCajaRepo)(nil)

// ── Helpers ──────────────────────────────────────────────────────────────────

func crearCaja(t *testing.T, repo *fakeCajaRepo) uuid.UUID {
	t.Helper()
	caja := &model.Caja{Nombre: "Caja " + uuid.NewString()[:8], Activa: true}
	require.NoError(t, repo.CreateCaja(context.Background(), caja))
	return caja.ID
}

func abrirSesion(t *testing.T, svc service.CajaService, cajaID uuid.UUID, aperturaUSD string) uuid.UUID {
	t.Helper()
	resp, err := svc.AbrirSesion(context.Background(), uuid.New(), dto.AbrirSesionRequest{
		CajaID:   cajaID.String(),
		Apertura: dto.MontosPorMoneda{USD: decimal.RequireFromString(aperturaUSD)},
		TasaVES:  decimal.RequireFromString("36.5"),
		TasaEUR:  decimal.RequireFromString("0.92"),
	})
	require.NoError(t, err)
	return uuid.MustParse(resp.ID)
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestAbrirSesion(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := service.NewCajaService(repo)
	cajaID := crearCaja(t, repo)

	resp, err := svc.AbrirSesion(context.Background(), uuid.New(), dto.AbrirSesionRequest{
		CajaID:   cajaID.String(),
		Apertura: dto.MontosPorMoneda{USD: decimal.NewFromInt(100), VES: decimal.NewFromInt(500)},
		TasaVES:  decimal.RequireFromString("36.5"),
		TasaEUR:  decimal.RequireFromString("0.92"),
	})

	require.NoError(t, err)
	assert.Equal(t, "abierta", resp.Estado)
	assert.Equal(t, "100", resp.Apertura.USD.String())
	assert.Equal(t, "500", resp.Apertura.VES.String())
	// Expected figures stay hidden while the session is open (blind count)
	assert.Nil(t, resp.Esperado)
	assert.Nil(t, resp.Desvio)
}

func TestAbrirSesion_Duplicada(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := service.NewCajaService(repo)
	cajaID := crearCaja(t, repo)

	abrirSesion(t, svc, cajaID, "100")

	_, err := svc.AbrirSesion(context.Background(), uuid.New(), dto.AbrirSesionRequest{
		CajaID:   cajaID.String(),
		Apertura: dto.MontosPorMoneda{USD: decimal.NewFromInt(50)},
		TasaVES:  decimal.RequireFromString("36.5"),
		TasaEUR:  decimal.RequireFromString("0.92"),
	})
	assert.ErrorIs(t, err, apperr.ErrSesionYaAbierta)
}

func TestAbrirSesion_TasaInvalida(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := service.NewCajaService(repo)
	cajaID := crearCaja(t, repo)

	_, err := svc.AbrirSesion(context.Background(), uuid.New(), dto.AbrirSesionRequest{
		CajaID:  cajaID.String(),
		TasaVES: decimal.Zero,
		TasaEUR: decimal.RequireFromString("0.92"),
	})
	assert.ErrorIs(t, err, apperr.ErrValidacion)
}

func TestAbrirSesion_AperturaNegativa(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := service.NewCajaService(repo)
	cajaID := crearCaja(t, repo)

	_, err := svc.AbrirSesion(context.Background(), uuid.New(), dto.AbrirSesionRequest{
		CajaID:   cajaID.String(),
		Apertura: dto.MontosPorMoneda{USD: decimal.NewFromInt(-10)},
		TasaVES:  decimal.RequireFromString("36.5"),
		TasaEUR:  decimal.RequireFromString("0.92"),
	})
	assert.ErrorIs(t, err, apperr.ErrValidacion)
}

func TestCerrarSesion_DesvioPorMoneda(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := service.NewCajaService(repo)
	cajaID := crearCaja(t, repo)
	sesionID := abrirSesion(t, svc, cajaID, "100")

	// Cash sales: 50 USD
	repo.pagosEfectivo[sesionID] = map[moneda.Moneda]decimal.Decimal{
		moneda.USD: decimal.NewFromInt(50),
	}
	// Manual movements in VES: +500 deposito, -200 retiro
	usuarioID := uuid.New()
	_, err := svc.RegistrarMovimiento(context.Background(), sesionID, usuarioID, dto.MovimientoCajaRequest{
		Tipo: "deposito", Monto: decimal.NewFromInt(500), Moneda: "VES", Motivo: "Fondo de cambio",
	})
	require.NoError(t, err)
	_, err = svc.RegistrarMovimiento(context.Background(), sesionID, usuarioID, dto.MovimientoCajaRequest{
		Tipo: "retiro", Monto: decimal.NewFromInt(200), Moneda: "VES", Motivo: "Pago a proveedor",
	})
	require.NoError(t, err)

	// Esperado: USD 100+50=150, VES 0+500-200=300, EUR 0.
	// Conteo: USD 150 exacto, VES 250 (faltan 50), EUR 0.
	resp, err := svc.CerrarSesion(context.Background(), sesionID, dto.CerrarSesionRequest{
		Conteo: dto.MontosPorMoneda{
			USD: decimal.NewFromInt(150),
			VES: decimal.NewFromInt(250),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "cerrada", resp.Estado)
	require.NotNil(t, resp.Esperado)
	assert.Equal(t, "150", resp.Esperado.USD.String())
	assert.Equal(t, "300", resp.Esperado.VES.String())
	assert.Equal(t, "0", resp.Desvio.USD.String())
	assert.Equal(t, "-50", resp.Desvio.VES.String())
	assert.Equal(t, "0", resp.Desvio.EUR.String())
}

func TestCerrarSesion_SinNeteoEntreMonedas(t *testing.T) {
	// A surplus in USD never cancels a shortage in VES: each currency keeps
	// its own deviation.
	repo := newFakeCajaRepo()
	svc := service.NewCajaService(repo)
	cajaID := crearCaja(t, repo)
	sesionID := abrirSesion(t, svc, cajaID, "100")

	resp, err := svc.CerrarSesion(context.Background(), sesionID, dto.CerrarSesionRequest{
		Conteo: dto.MontosPorMoneda{
			USD: decimal.NewFromInt(110), // +10 USD
			VES: decimal.Zero,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "10", resp.Desvio.USD.String())
	assert.Equal(t, "0", resp.Desvio.VES.String())
}

func TestCerrarSesion_YaCerrada(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := service.NewCajaService(repo)
	cajaID := crearCaja(t, repo)
	sesionID := abrirSesion(t, svc, cajaID, "100")

	_, err := svc.CerrarSesion(context.Background(), sesionID, dto.CerrarSesionRequest{
		Conteo: dto.MontosPorMoneda{USD: decimal.NewFromInt(100)},
	})
	require.NoError(t, err)

	_, err = svc.CerrarSesion(context.Background(), sesionID, dto.CerrarSesionRequest{
		Conteo: dto.MontosPorMoneda{USD: decimal.NewFromInt(100)},
	})
	assert.ErrorIs(t, err, apperr.ErrTransicionInvalida)
}

func TestCerrarSesion_Concurrente(t *testing.T) {
	// The guarded UPDATE hits zero rows when another close won the race.
	repo := newFakeCajaRepo()
	svc := service.NewCajaService(repo)
	cajaID := crearCaja(t, repo)
	sesionID := abrirSesion(t, svc, cajaID, "100")

	repo.cierreRobado = true
	_, err := svc.CerrarSesion(context.Background(), sesionID, dto.CerrarSesionRequest{
		Conteo: dto.MontosPorMoneda{USD: decimal.NewFromInt(100)},
	})
	assert.ErrorIs(t, err, apperr.ErrConflictoConcurrencia)
}

func TestCerrarSesion_IncluyePagoQueGanoElBloqueo(t *testing.T) {
	// The expected sums are read while the session row lock is held, so a
	// cash payment that committed just before the lock was granted must be
	// part of esperado.
	repo := newFakeCajaRepo()
	svc := service.NewCajaService(repo)
	cajaID := crearCaja(t, repo)
	sesionID := abrirSesion(t, svc, cajaID, "100")

	repo.alBloquearSesion = func() {
		repo.pagosEfectivo[sesionID] = map[moneda.Moneda]decimal.Decimal{
			moneda.USD: decimal.NewFromInt(50),
		}
	}

	resp, err := svc.CerrarSesion(context.Background(), sesionID, dto.CerrarSesionRequest{
		Conteo: dto.MontosPorMoneda{USD: decimal.NewFromInt(150)},
	})
	require.NoError(t, err)
	assert.Equal(t, "150", resp.Esperado.USD.String())
	assert.Equal(t, "0", resp.Desvio.USD.String())
}

func TestCerrarSesion_ConteoNegativo(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := service.NewCajaService(repo)
	cajaID := crearCaja(t, repo)
	sesionID := abrirSesion(t, svc, cajaID, "100")

	_, err := svc.CerrarSesion(context.Background(), sesionID, dto.CerrarSesionRequest{
		Conteo: dto.MontosPorMoneda{USD: decimal.NewFromInt(-1)},
	})
	assert.ErrorIs(t, err, apperr.ErrValidacion)
}

func TestRegistrarMovimiento_SesionCerrada(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := service.NewCajaService(repo)
	cajaID := crearCaja(t, repo)
	sesionID := abrirSesion(t, svc, cajaID, "100")

	_, err := svc.CerrarSesion(context.Background(), sesionID, dto.CerrarSesionRequest{
		Conteo: dto.MontosPorMoneda{USD: decimal.NewFromInt(100)},
	})
	require.NoError(t, err)

	_, err = svc.RegistrarMovimiento(context.Background(), sesionID, uuid.New(), dto.MovimientoCajaRequest{
		Tipo: "deposito", Monto: decimal.NewFromInt(10), Moneda: "USD", Motivo: "Tarde",
	})
	assert.ErrorIs(t, err, apperr.ErrSinSesionActiva)
}

func TestSesionActiva_SinSesion(t *testing.T) {
	// No open session is a normal answer, not an error.
	repo := newFakeCajaRepo()
	svc := service.NewCajaService(repo)
	cajaID := crearCaja(t, repo)

	resp, err := svc.SesionActiva(context.Background(), cajaID)
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestSesionActiva_Abierta(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := service.NewCajaService(repo)
	cajaID := crearCaja(t, repo)
	sesionID := abrirSesion(t, svc, cajaID, "100")

	resp, err := svc.SesionActiva(context.Background(), cajaID)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, sesionID.String(), resp.ID)
}

func TestDesactivarCaja_ConSesionAbierta(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := service.NewCajaService(repo)
	cajaID := crearCaja(t, repo)
	abrirSesion(t, svc, cajaID, "100")

	err := svc.DesactivarCaja(context.Background(), cajaID)
	assert.ErrorIs(t, err, apperr.ErrValidacion)
}

func TestAbrirSesion_CajaInactiva(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := service.NewCajaService(repo)
	cajaID := crearCaja(t, repo)
	require.NoError(t, svc.DesactivarCaja(context.Background(), cajaID))

	_, err := svc.AbrirSesion(context.Background(), uuid.New(), dto.AbrirSesionRequest{
		CajaID:   cajaID.String(),
		Apertura: dto.MontosPorMoneda{USD: decimal.NewFromInt(50)},
		TasaVES:  decimal.RequireFromString("36.5"),
		TasaEUR:  decimal.RequireFromString("0.92"),
	})
	assert.ErrorIs(t, err, apperr.ErrValidacion)
}
