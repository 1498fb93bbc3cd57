package repository

import (
	"context"

	"venpos/internal/dto"
	"venpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FacturaRepository interface {
	Create(ctx context.Context, f *model.Factura) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Factura, error)
	List(ctx context.Context, filter dto.FacturaFilter) ([]model.Factura, int64, error)
	Save(ctx context.Context, f *model.Factura) error

	// Transactional variants — callers must pass the tx instance.
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Factura, error)
	UpdateTx(tx *gorm.DB, f *model.Factura) error
	ReplaceItemsTx(tx *gorm.DB, facturaID uuid.UUID, items []model.FacturaItem) error
	CreatePagoTx(tx *gorm.DB, p *model.Pago) error
	DeleteTx(tx *gorm.DB, f *model.Factura) error
	NextNumeroTx(tx *gorm.DB) (int64, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type facturaRepo struct{ db *gorm.DB }

func NewFacturaRepository(db *gorm.DB) FacturaRepository { return &facturaRepo{db: db} }

func (r *facturaRepo) DB() *gorm.DB { return r.db }

func (r *facturaRepo) Create(ctx context.Context, f *model.Factura) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *facturaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Factura, error) {
	var f model.Factura
	err := r.db.WithContext(ctx).
		Preload("Items.Producto").Preload("Pagos").Preload("Cliente").
		First(&f, id).Error
	return &f, err
}

func (r *facturaRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Factura, error) {
	var f model.Factura
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&f, id).Error
	if err != nil {
		return nil, err
	}
	// Items and Pagos are loaded separately: FOR UPDATE cannot be combined
	// with the LEFT JOINs Preload would emit on some drivers.
	if err := tx.Where("factura_id = ?", id).Order("created_at ASC").Find(&f.Items).Error; err != nil {
		return nil, err
	}
	err = tx.Where("factura_id = ?", id).Order("created_at ASC").Find(&f.Pagos).Error
	return &f, err
}

func (r *facturaRepo) Save(ctx context.Context, f *model.Factura) error {
	return r.db.WithContext(ctx).Save(f).Error
}

func (r *facturaRepo) UpdateTx(tx *gorm.DB, f *model.Factura) error {
	return tx.Save(f).Error
}

// ReplaceItemsTx swaps the full line set of a draft. Issued invoices never
// reach this path.
func (r *facturaRepo) ReplaceItemsTx(tx *gorm.DB, facturaID uuid.UUID, items []model.FacturaItem) error {
	if err := tx.Where("factura_id = ?", facturaID).Delete(&model.FacturaItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].FacturaID = facturaID
	}
	return tx.Create(&items).Error
}

func (r *facturaRepo) CreatePagoTx(tx *gorm.DB, p *model.Pago) error {
	return tx.Create(p).Error
}

func (r *facturaRepo) DeleteTx(tx *gorm.DB, f *model.Factura) error {
	if err := tx.Where("factura_id = ?", f.ID).Delete(&model.FacturaItem{}).Error; err != nil {
		return err
	}
	return tx.Delete(f).Error
}

func (r *facturaRepo) NextNumeroTx(tx *gorm.DB) (int64, error) {
	// Uses a PostgreSQL sequence for gapless-enough, strictly increasing
	// invoice numbers under concurrency.
	var num int64
	err := tx.Raw("SELECT nextval('facturas_numero_seq')").Scan(&num).Error
	return num, err
}

func (r *facturaRepo) List(ctx context.Context, filter dto.FacturaFilter) ([]model.Factura, int64, error) {
	var facturas []model.Factura
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Factura{})

	if filter.Estado != "" && filter.Estado != "all" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.ClienteID != "" {
		q = q.Where("cliente_id = ?", filter.ClienteID)
	}
	if filter.Desde != "" {
		q = q.Where("created_at >= ?", filter.Desde)
	}
	if filter.Hasta != "" {
		q = q.Where("created_at < ?", filter.Hasta)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Items").Preload("Cliente").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&facturas).Error

	return facturas, total, err
}
