package repository

import (
	"context"
	"time"

	"venpos/internal/model"
	"venpos/internal/moneda"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CajaRepository interface {
	CreateCaja(ctx context.Context, c *model.Caja) error
	FindCajaByID(ctx context.Context, id uuid.UUID) (*model.Caja, error)
	ListCajas(ctx context.Context, incluirInactivas bool) ([]model.Caja, error)
	UpdateCaja(ctx context.Context, c *model.Caja) error

	FindCajaForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Caja, error)
	FindSesionAbiertaTx(tx *gorm.DB, cajaID uuid.UUID) (*model.SesionCaja, error)
	CreateSesionTx(tx *gorm.DB, s *model.SesionCaja) error

	FindSesionAbierta(ctx context.Context, cajaID uuid.UUID) (*model.SesionCaja, error)
	FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error)
	ListSesiones(ctx context.Context, cajaID uuid.UUID, page, limit int) ([]model.SesionCaja, int64, error)

	// FindSesionForUpdateTx locks the session row. Close holds this lock
	// while it reads the sums, and cash payments take it before inserting,
	// so a payment can never slip between the sums and the close.
	FindSesionForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error)

	// CerrarSesionTx persists the closing snapshot guarded by the current
	// state; it returns the number of rows updated so the caller can detect
	// a concurrent close (0 rows = session was no longer abierta).
	CerrarSesionTx(tx *gorm.DB, s *model.SesionCaja) (int64, error)

	CreateMovimientoTx(tx *gorm.DB, m *model.MovimientoCaja) error
	ListMovimientos(ctx context.Context, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error)

	// SumMovimientosPorMonedaTx nets manual deposits and withdrawals of a
	// session, one figure per currency.
	SumMovimientosPorMonedaTx(tx *gorm.DB, sesionCajaID uuid.UUID) (map[moneda.Moneda]decimal.Decimal, error)
	// SumPagosEfectivoPorMonedaTx totals the cash payments linked to the
	// session, one figure per currency.
	SumPagosEfectivoPorMonedaTx(tx *gorm.DB, sesionCajaID uuid.UUID) (map[moneda.Moneda]decimal.Decimal, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) DB() *gorm.DB { return r.db }

func (r *cajaRepo) CreateCaja(ctx context.Context, c *model.Caja) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *cajaRepo) FindCajaByID(ctx context.Context, id uuid.UUID) (*model.Caja, error) {
	var c model.Caja
	err := r.db.WithContext(ctx).First(&c, id).Error
	return &c, err
}

func (r *cajaRepo) ListCajas(ctx context.Context, incluirInactivas bool) ([]model.Caja, error) {
	var cajas []model.Caja
	q := r.db.WithContext(ctx)
	if !incluirInactivas {
		q = q.Where("activa = true")
	}
	err := q.Order("nombre ASC").Find(&cajas).Error
	return cajas, err
}

func (r *cajaRepo) UpdateCaja(ctx context.Context, c *model.Caja) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// FindCajaForUpdateTx locks the caja row; the open-session uniqueness check
// rides on this lock.
func (r *cajaRepo) FindCajaForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Caja, error) {
	var c model.Caja
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, id).Error
	return &c, err
}

func (r *cajaRepo) FindSesionAbiertaTx(tx *gorm.DB, cajaID uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := tx.Where("caja_id = ? AND estado = ?", cajaID, model.SesionAbierta).First(&s).Error
	return &s, err
}

func (r *cajaRepo) CreateSesionTx(tx *gorm.DB, s *model.SesionCaja) error {
	return tx.Create(s).Error
}

func (r *cajaRepo) FindSesionAbierta(ctx context.Context, cajaID uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).
		Where("caja_id = ? AND estado = ?", cajaID, model.SesionAbierta).
		First(&s).Error
	return &s, err
}

func (r *cajaRepo) FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).Preload("Caja").Preload("Movimientos").First(&s, id).Error
	return &s, err
}

func (r *cajaRepo) ListSesiones(ctx context.Context, cajaID uuid.UUID, page, limit int) ([]model.SesionCaja, int64, error) {
	var sesiones []model.SesionCaja
	var total int64

	q := r.db.WithContext(ctx).Model(&model.SesionCaja{})
	if cajaID != uuid.Nil {
		q = q.Where("caja_id = ?", cajaID)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	err := q.Preload("Caja").
		Order("opened_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&sesiones).Error
	return sesiones, total, err
}

func (r *cajaRepo) FindSesionForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, id).Error
	return &s, err
}

func (r *cajaRepo) CerrarSesionTx(tx *gorm.DB, s *model.SesionCaja) (int64, error) {
	res := tx.Model(&model.SesionCaja{}).
		Where("id = ? AND estado = ?", s.ID, model.SesionAbierta).
		Updates(map[string]interface{}{
			"estado":       model.SesionCerrada,
			"cierre_usd":   s.Cierre.USD,
			"cierre_ves":   s.Cierre.VES,
			"cierre_eur":   s.Cierre.EUR,
			"esperado_usd": s.Esperado.USD,
			"esperado_ves": s.Esperado.VES,
			"esperado_eur": s.Esperado.EUR,
			"desvio_usd":   s.Desvio.USD,
			"desvio_ves":   s.Desvio.VES,
			"desvio_eur":   s.Desvio.EUR,
			"notas_cierre": s.NotasCierre,
			"closed_at":    time.Now(),
		})
	return res.RowsAffected, res.Error
}

func (r *cajaRepo) CreateMovimientoTx(tx *gorm.DB, m *model.MovimientoCaja) error {
	return tx.Create(m).Error
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := r.db.WithContext(ctx).
		Where("sesion_caja_id = ?", sesionCajaID).
		Order("created_at ASC").Find(&movs).Error
	return movs, err
}

type sumaPorMoneda struct {
	Moneda moneda.Moneda
	Total  decimal.Decimal
}

func (r *cajaRepo) SumMovimientosPorMonedaTx(tx *gorm.DB, sesionCajaID uuid.UUID) (map[moneda.Moneda]decimal.Decimal, error) {
	var filas []sumaPorMoneda
	err := tx.Raw(`
		SELECT moneda,
		       COALESCE(SUM(CASE WHEN tipo = 'deposito' THEN monto ELSE -monto END), 0) AS total
		FROM movimientos_caja
		WHERE sesion_caja_id = ?
		GROUP BY moneda`, sesionCajaID).Scan(&filas).Error
	if err != nil {
		return nil, err
	}
	return porMoneda(filas), nil
}

func (r *cajaRepo) SumPagosEfectivoPorMonedaTx(tx *gorm.DB, sesionCajaID uuid.UUID) (map[moneda.Moneda]decimal.Decimal, error) {
	var filas []sumaPorMoneda
	err := tx.Raw(`
		SELECT moneda, COALESCE(SUM(monto), 0) AS total
		FROM pagos
		WHERE sesion_caja_id = ? AND metodo = 'efectivo'
		GROUP BY moneda`, sesionCajaID).Scan(&filas).Error
	if err != nil {
		return nil, err
	}
	return porMoneda(filas), nil
}

func porMoneda(filas []sumaPorMoneda) map[moneda.Moneda]decimal.Decimal {
	out := make(map[moneda.Moneda]decimal.Decimal, len(moneda.Todas()))
	for _, m := range moneda.Todas() {
		out[m] = decimal.Zero
	}
	for _, f := range filas {
		out[f.Moneda] = f.Total
	}
	return out
}
