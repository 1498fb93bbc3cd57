package service

import (
	"context"
	"fmt"

	"venpos/internal/apperr"
	"venpos/internal/dto"
	"venpos/internal/model"
	"venpos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventarioService covers manual stock corrections and stock history.
// Invoice-driven stock changes live in FacturaService; this service handles
// everything a supervisor does by hand.
type InventarioService interface {
	AjustarStock(ctx context.Context, productoID uuid.UUID, req dto.AjusteStockRequest) (*dto.ProductoResponse, error)
	ListarMovimientos(ctx context.Context, filter repository.MovimientoStockFilter) ([]model.MovimientoStock, int64, error)
	AlertasStockBajo(ctx context.Context) ([]dto.ProductoResponse, error)
}

type inventarioService struct {
	productoRepo repository.ProductoRepository
	movRepo      repository.MovimientoStockRepository
}

func NewInventarioService(productoRepo repository.ProductoRepository, movRepo repository.MovimientoStockRepository) InventarioService {
	return &inventarioService{productoRepo: productoRepo, movRepo: movRepo}
}

// AjustarStock applies a signed delta and records the movement in the same
// transaction. Negative resulting stock is rejected.
func (s *inventarioService) AjustarStock(ctx context.Context, productoID uuid.UUID, req dto.AjusteStockRequest) (*dto.ProductoResponse, error) {
	if req.Delta.IsZero() {
		return nil, apperr.Validacion("el ajuste no puede ser cero")
	}

	var p *model.Producto
	txErr := runTx(ctx, s.productoRepo.DB(), func(tx *gorm.DB) error {
		productos, err := s.productoRepo.FindManyForUpdateTx(tx, []uuid.UUID{productoID})
		if err != nil || len(productos) == 0 {
			return fmt.Errorf("producto %s: %w", productoID, apperr.ErrNoEncontrado)
		}
		p = &productos[0]

		nuevo := p.StockActual.Add(req.Delta)
		if nuevo.Sign() < 0 {
			return &apperr.StockInsuficiente{
				ProductoID: p.ID,
				Producto:   p.Nombre,
				Solicitado: req.Delta.Neg(),
				Disponible: p.StockActual,
			}
		}

		if err := s.productoRepo.UpdateStockTx(tx, p.ID, req.Delta); err != nil {
			return err
		}
		mov := &model.MovimientoStock{
			ProductoID:    p.ID,
			Tipo:          "ajuste_manual",
			Cantidad:      req.Delta,
			StockAnterior: p.StockActual,
			StockNuevo:    nuevo,
			Motivo:        req.Motivo,
		}
		if err := s.movRepo.CreateTx(tx, mov); err != nil {
			return err
		}
		p.StockActual = nuevo
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return productoToResponse(p), nil
}

func (s *inventarioService) ListarMovimientos(ctx context.Context, filter repository.MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	return s.movRepo.List(ctx, filter)
}

// AlertasStockBajo lists active products at or below their minimum stock.
func (s *inventarioService) AlertasStockBajo(ctx context.Context) ([]dto.ProductoResponse, error) {
	productos, _, err := s.productoRepo.List(ctx, dto.ProductoFilter{Page: 1, Limit: 200})
	if err != nil {
		return nil, err
	}
	alertas := make([]dto.ProductoResponse, 0)
	for i := range productos {
		if productos[i].StockActual.LessThanOrEqual(productos[i].StockMinimo) {
			alertas = append(alertas, *productoToResponse(&productos[i]))
		}
	}
	return alertas, nil
}
