package repository

import (
	"context"

	"venpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClienteRepository interface {
	Create(ctx context.Context, c *model.Cliente) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Cliente, error)
	FindByDocumento(ctx context.Context, documento string) (*model.Cliente, error)
	Search(ctx context.Context, texto string, limit int) ([]model.Cliente, error)
	Update(ctx context.Context, c *model.Cliente) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type clienteRepo struct{ db *gorm.DB }

func NewClienteRepository(db *gorm.DB) ClienteRepository { return &clienteRepo{db: db} }

func (r *clienteRepo) Create(ctx context.Context, c *model.Cliente) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *clienteRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Cliente, error) {
	var c model.Cliente
	err := r.db.WithContext(ctx).First(&c, id).Error
	return &c, err
}

func (r *clienteRepo) FindByDocumento(ctx context.Context, documento string) (*model.Cliente, error) {
	var c model.Cliente
	err := r.db.WithContext(ctx).Where("documento = ? AND activo = true", documento).First(&c).Error
	return &c, err
}

func (r *clienteRepo) Search(ctx context.Context, texto string, limit int) ([]model.Cliente, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var clientes []model.Cliente
	err := r.db.WithContext(ctx).
		Where("activo = true AND (nombre ILIKE ? OR documento ILIKE ?)", "%"+texto+"%", "%"+texto+"%").
		Order("nombre ASC").Limit(limit).
		Find(&clientes).Error
	return clientes, err
}

func (r *clienteRepo) Update(ctx context.Context, c *model.Cliente) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *clienteRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Cliente{}).Where("id = ?", id).Update("activo", false).Error
}
