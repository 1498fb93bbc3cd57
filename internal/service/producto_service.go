package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"venpos/internal/apperr"
	"venpos/internal/dto"
	"venpos/internal/model"
	"venpos/internal/moneda"
	"venpos/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// ProductoService defines the business logic contract for the catalog.
type ProductoService interface {
	Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error)
	ObtenerPorBarcode(ctx context.Context, barcode string) (*dto.ProductoResponse, error)
	Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error)
	Desactivar(ctx context.Context, id uuid.UUID) error

	// ConsultarPrecio serves the price-check kiosk; reads go through Redis
	// with a short TTL so barcode scans do not hammer the database.
	ConsultarPrecio(ctx context.Context, barcode string, tasaVES, tasaEUR decimal.Decimal) (*dto.PrecioResponse, error)
}

const precioCacheTTL = 5 * time.Minute

type productoService struct {
	repo repository.ProductoRepository
	rdb  *redis.Client
}

func NewProductoService(repo repository.ProductoRepository, rdb *redis.Client) ProductoService {
	return &productoService{repo: repo, rdb: rdb}
}

func (s *productoService) Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error) {
	if req.PrecioVenta.Sign() <= 0 {
		return nil, apperr.Validacion("precio_venta debe ser positivo")
	}
	if req.StockActual.Sign() < 0 {
		return nil, apperr.Validacion("stock_actual no puede ser negativo")
	}
	p := &model.Producto{
		CodigoBarras: req.CodigoBarras,
		Nombre:       req.Nombre,
		Descripcion:  req.Descripcion,
		PrecioVenta:  req.PrecioVenta,
		TasaImpuesto: req.TasaImpuesto,
		StockActual:  req.StockActual,
		StockMinimo:  req.StockMinimo,
		Activo:       true,
	}
	if req.UnidadMedida != "" {
		p.UnidadMedida = req.UnidadMedida
	} else {
		p.UnidadMedida = "unidad"
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return productoToResponse(p), nil
}

func (s *productoService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("producto %s: %w", id, apperr.ErrNoEncontrado)
	}
	return productoToResponse(p), nil
}

func (s *productoService) ObtenerPorBarcode(ctx context.Context, barcode string) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, fmt.Errorf("producto con código %s: %w", barcode, apperr.ErrNoEncontrado)
	}
	return productoToResponse(p), nil
}

func (s *productoService) Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	productos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProductoResponse, 0, len(productos))
	for i := range productos {
		data = append(data, *productoToResponse(&productos[i]))
	}
	return &dto.ProductoListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *productoService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("producto %s: %w", id, apperr.ErrNoEncontrado)
	}
	if req.Nombre != "" {
		p.Nombre = req.Nombre
	}
	if req.Descripcion != nil {
		p.Descripcion = req.Descripcion
	}
	if req.PrecioVenta.Sign() > 0 {
		p.PrecioVenta = req.PrecioVenta
	}
	if req.TasaImpuesto.Sign() >= 0 && !req.TasaImpuesto.IsZero() {
		p.TasaImpuesto = req.TasaImpuesto
	}
	if req.StockMinimo.Sign() > 0 {
		p.StockMinimo = req.StockMinimo
	}
	if req.UnidadMedida != "" {
		p.UnidadMedida = req.UnidadMedida
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidarPrecio(ctx, p.CodigoBarras)
	return productoToResponse(p), nil
}

func (s *productoService) Desactivar(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("producto %s: %w", id, apperr.ErrNoEncontrado)
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.invalidarPrecio(ctx, p.CodigoBarras)
	return nil
}

// ── Consulta de precios ───────────────────────────────────────────────────────

type precioCacheado struct {
	ProductoID string          `json:"producto_id"`
	Nombre     string          `json:"nombre"`
	PrecioUSD  decimal.Decimal `json:"precio_usd"`
}

func precioCacheKey(barcode string) string { return "precio:" + barcode }

func (s *productoService) ConsultarPrecio(ctx context.Context, barcode string, tasaVES, tasaEUR decimal.Decimal) (*dto.PrecioResponse, error) {
	// Rates are optional: zero means the caller did not ask for that conversion.
	if tasaVES.Sign() < 0 || tasaEUR.Sign() < 0 {
		return nil, apperr.Validacion("las tasas de cambio no pueden ser negativas")
	}

	var cached precioCacheado
	desdeCache := false
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, precioCacheKey(barcode)).Bytes(); err == nil {
			if json.Unmarshal(raw, &cached) == nil {
				desdeCache = true
			}
		}
	}

	if !desdeCache {
		p, err := s.repo.FindByBarcode(ctx, barcode)
		if err != nil {
			return nil, fmt.Errorf("producto con código %s: %w", barcode, apperr.ErrNoEncontrado)
		}
		cached = precioCacheado{ProductoID: p.ID.String(), Nombre: p.Nombre, PrecioUSD: p.PrecioVenta}
		if s.rdb != nil {
			if raw, err := json.Marshal(cached); err == nil {
				// Best-effort: a cache miss next time is cheaper than failing the scan.
				_ = s.rdb.Set(ctx, precioCacheKey(barcode), raw, precioCacheTTL).Err()
			}
		}
	}

	var precioVES, precioEUR decimal.Decimal
	var err error
	if tasaVES.Sign() > 0 {
		if precioVES, err = moneda.Convertir(cached.PrecioUSD, tasaVES); err != nil {
			return nil, err
		}
	}
	if tasaEUR.Sign() > 0 {
		if precioEUR, err = moneda.Convertir(cached.PrecioUSD, tasaEUR); err != nil {
			return nil, err
		}
	}

	return &dto.PrecioResponse{
		ProductoID:  cached.ProductoID,
		Nombre:      cached.Nombre,
		PrecioUSD:   cached.PrecioUSD,
		PrecioVES:   precioVES,
		PrecioEUR:   precioEUR,
		TasaVES:     tasaVES,
		TasaEUR:     tasaEUR,
		DesdeCache:  desdeCache,
		ConsultadoA: time.Now().Format("2006-01-02T15:04:05Z"),
	}, nil
}

func (s *productoService) invalidarPrecio(ctx context.Context, barcode string) {
	if s.rdb != nil {
		_ = s.rdb.Del(ctx, precioCacheKey(barcode)).Err()
	}
}

func productoToResponse(p *model.Producto) *dto.ProductoResponse {
	return &dto.ProductoResponse{
		ID:           p.ID.String(),
		CodigoBarras: p.CodigoBarras,
		Nombre:       p.Nombre,
		Descripcion:  p.Descripcion,
		PrecioVenta:  p.PrecioVenta,
		TasaImpuesto: p.TasaImpuesto,
		StockActual:  p.StockActual,
		StockMinimo:  p.StockMinimo,
		UnidadMedida: p.UnidadMedida,
		Activo:       p.Activo,
	}
}
