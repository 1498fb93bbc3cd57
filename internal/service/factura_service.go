package service

import (
	"context"
	"fmt"
	"time"

	"venpos/internal/apperr"
	"venpos/internal/dto"
	"venpos/internal/model"
	"venpos/internal/moneda"
	"venpos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type FacturaService interface {
	CrearBorrador(ctx context.Context, usuarioID uuid.UUID, req dto.CrearFacturaRequest) (*dto.FacturaResponse, error)
	ActualizarBorrador(ctx context.Context, id uuid.UUID, req dto.ActualizarFacturaRequest) (*dto.FacturaResponse, error)
	Emitir(ctx context.Context, id uuid.UUID, req dto.EmitirFacturaRequest) (*dto.FacturaResponse, error)
	RegistrarPago(ctx context.Context, facturaID uuid.UUID, usuarioID uuid.UUID, req dto.RegistrarPagoRequest) (*dto.FacturaResponse, error)
	Anular(ctx context.Context, id uuid.UUID, motivo string) (*dto.FacturaResponse, error)
	EliminarBorrador(ctx context.Context, id uuid.UUID) error
	Obtener(ctx context.Context, id uuid.UUID) (*dto.FacturaResponse, error)
	Listar(ctx context.Context, filter dto.FacturaFilter) (*dto.FacturaListResponse, error)
}

type facturaService struct {
	repo         repository.FacturaRepository
	productoRepo repository.ProductoRepository
	movStockRepo repository.MovimientoStockRepository
	cajaRepo     repository.CajaRepository
}

func NewFacturaService(
	repo repository.FacturaRepository,
	productoRepo repository.ProductoRepository,
	movStockRepo repository.MovimientoStockRepository,
	cajaRepo repository.CajaRepository,
) FacturaService {
	return &facturaService{
		repo:         repo,
		productoRepo: productoRepo,
		movStockRepo: movStockRepo,
		cajaRepo:     cajaRepo,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// toleranciaPago absorbe residuos de redondeo al comparar pagado vs total.
var toleranciaPago = decimal.RequireFromString("0.01")

// ── CrearBorrador ─────────────────────────────────────────────────────────────

func (s *facturaService) CrearBorrador(ctx context.Context, usuarioID uuid.UUID, req dto.CrearFacturaRequest) (*dto.FacturaResponse, error) {
	mon := moneda.Moneda(req.Moneda)
	if !mon.Valida() {
		return nil, apperr.Validacion("moneda no soportada: %s", req.Moneda)
	}

	items, err := s.resolverItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	f := model.Factura{
		Estado:    model.FacturaBorrador,
		UsuarioID: usuarioID,
		Moneda:    mon,
		Notas:     req.Notas,
		Items:     items,
	}
	if req.ClienteID != nil {
		cid, err := uuid.Parse(*req.ClienteID)
		if err != nil {
			return nil, apperr.Validacion("cliente_id inválido")
		}
		f.ClienteID = &cid
	}
	f.Subtotal, f.Impuesto, f.Total = moneda.CalcularTotales(f.Lineas())

	if err := s.repo.Create(ctx, &f); err != nil {
		return nil, err
	}
	return facturaToResponse(&f), nil
}

// resolverItems copies description, unit price and tax rate from the catalog
// at line creation time. Draft lines do not touch stock. An empty line list
// is rejected here so neither create nor update can produce a lineless draft.
func (s *facturaService) resolverItems(ctx context.Context, reqItems []dto.ItemFacturaRequest) ([]model.FacturaItem, error) {
	if len(reqItems) == 0 {
		return nil, apperr.Validacion("la factura debe tener al menos una línea")
	}
	items := make([]model.FacturaItem, 0, len(reqItems))
	for _, it := range reqItems {
		if it.Cantidad.Sign() <= 0 {
			return nil, apperr.Validacion("la cantidad debe ser positiva")
		}
		pid, err := uuid.Parse(it.ProductoID)
		if err != nil {
			return nil, apperr.Validacion("producto_id inválido: %s", it.ProductoID)
		}
		p, err := s.productoRepo.FindByID(ctx, pid)
		if err != nil {
			return nil, fmt.Errorf("producto %s: %w", it.ProductoID, apperr.ErrNoEncontrado)
		}
		if !p.Activo {
			return nil, apperr.Validacion("producto %s está inactivo", p.Nombre)
		}
		items = append(items, model.FacturaItem{
			ProductoID:     p.ID,
			Descripcion:    p.Nombre,
			Cantidad:       it.Cantidad,
			PrecioUnitario: p.PrecioVenta,
			TasaImpuesto:   p.TasaImpuesto,
		})
	}
	return items, nil
}

// ── ActualizarBorrador ────────────────────────────────────────────────────────

func (s *facturaService) ActualizarBorrador(ctx context.Context, id uuid.UUID, req dto.ActualizarFacturaRequest) (*dto.FacturaResponse, error) {
	items, err := s.resolverItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	var f *model.Factura
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		f, err = s.repo.FindByIDForUpdateTx(tx, id)
		if err != nil {
			return fmt.Errorf("factura %s: %w", id, apperr.ErrNoEncontrado)
		}
		if !f.Estado.Editable() {
			return apperr.Transicion(string(f.Estado), "actualizar")
		}

		if req.ClienteID != nil {
			cid, err := uuid.Parse(*req.ClienteID)
			if err != nil {
				return apperr.Validacion("cliente_id inválido")
			}
			f.ClienteID = &cid
		} else {
			f.ClienteID = nil
		}
		f.Notas = req.Notas
		f.Items = items
		f.Subtotal, f.Impuesto, f.Total = moneda.CalcularTotales(f.Lineas())

		if err := s.repo.ReplaceItemsTx(tx, f.ID, items); err != nil {
			return err
		}
		f.Items = items
		return s.repo.UpdateTx(tx, f)
	})
	if txErr != nil {
		return nil, txErr
	}
	return facturaToResponse(f), nil
}

// ── Emitir ────────────────────────────────────────────────────────────────────
// Issue is the only operation that turns a draft into a fiscal document:
//  1. lock the invoice row, verify it is still a draft with at least one line
//  2. lock all referenced products in id order
//  3. verify stock covers every line; any shortfall aborts the whole issue
//  4. decrement stock and record one movimiento per product
//  5. assign the sequential number and freeze totals + rate snapshots

func (s *facturaService) Emitir(ctx context.Context, id uuid.UUID, req dto.EmitirFacturaRequest) (*dto.FacturaResponse, error) {
	if req.TasaVES.Sign() <= 0 || req.TasaEUR.Sign() <= 0 {
		return nil, apperr.Validacion("las tasas de cambio deben ser positivas")
	}

	var f *model.Factura
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		f, err = s.repo.FindByIDForUpdateTx(tx, id)
		if err != nil {
			return fmt.Errorf("factura %s: %w", id, apperr.ErrNoEncontrado)
		}
		if !f.Estado.Editable() {
			return apperr.Transicion(string(f.Estado), "emitir")
		}
		if len(f.Items) == 0 {
			return apperr.Validacion("no se puede emitir una factura sin líneas")
		}

		// Aggregate quantities per product: the same product may appear on
		// several lines.
		requerido := make(map[uuid.UUID]decimal.Decimal)
		ids := make([]uuid.UUID, 0, len(f.Items))
		for _, it := range f.Items {
			if _, ok := requerido[it.ProductoID]; !ok {
				ids = append(ids, it.ProductoID)
			}
			requerido[it.ProductoID] = requerido[it.ProductoID].Add(it.Cantidad)
		}

		productos, err := s.productoRepo.FindManyForUpdateTx(tx, ids)
		if err != nil {
			return err
		}
		if len(productos) != len(ids) {
			return fmt.Errorf("producto referenciado: %w", apperr.ErrNoEncontrado)
		}

		// All-or-nothing: validate every line before decrementing anything.
		for _, p := range productos {
			if !p.Activo {
				return apperr.Validacion("producto %s está inactivo", p.Nombre)
			}
			if p.StockActual.LessThan(requerido[p.ID]) {
				return &apperr.StockInsuficiente{
					ProductoID: p.ID,
					Producto:   p.Nombre,
					Solicitado: requerido[p.ID],
					Disponible: p.StockActual,
				}
			}
		}

		num, err := s.repo.NextNumeroTx(tx)
		if err != nil {
			return err
		}
		numero := fmt.Sprintf("FAC-%08d", num)

		for _, p := range productos {
			cant := requerido[p.ID]
			if err := s.productoRepo.UpdateStockTx(tx, p.ID, cant.Neg()); err != nil {
				return err
			}
			ref := f.ID
			mov := &model.MovimientoStock{
				ProductoID:    p.ID,
				Tipo:          "emision",
				Cantidad:      cant.Neg(),
				StockAnterior: p.StockActual,
				StockNuevo:    p.StockActual.Sub(cant),
				Motivo:        fmt.Sprintf("Emisión factura %s", numero),
				ReferenciaID:  &ref,
			}
			if err := s.movStockRepo.CreateTx(tx, mov); err != nil {
				return err
			}
		}

		now := time.Now()
		f.Numero = &numero
		f.Estado = model.FacturaEmitida
		f.TasaVES = req.TasaVES
		f.TasaEUR = req.TasaEUR
		f.EmitidaAt = &now
		f.Subtotal, f.Impuesto, f.Total = moneda.CalcularTotales(f.Lineas())
		return s.repo.UpdateTx(tx, f)
	})
	if txErr != nil {
		return nil, txErr
	}
	return facturaToResponse(f), nil
}

// ── RegistrarPago ─────────────────────────────────────────────────────────────

func (s *facturaService) RegistrarPago(ctx context.Context, facturaID uuid.UUID, usuarioID uuid.UUID, req dto.RegistrarPagoRequest) (*dto.FacturaResponse, error) {
	if req.Monto.Sign() <= 0 {
		return nil, apperr.Validacion("el monto del pago debe ser positivo")
	}
	monPago := moneda.Moneda(req.Moneda)
	if !monPago.Valida() {
		return nil, apperr.Validacion("moneda no soportada: %s", req.Moneda)
	}

	var sesionID *uuid.UUID
	if req.Metodo == "efectivo" {
		if req.SesionCajaID == nil {
			return nil, apperr.Validacion("un pago en efectivo requiere sesion_caja_id")
		}
		sid, err := uuid.Parse(*req.SesionCajaID)
		if err != nil {
			return nil, apperr.Validacion("sesion_caja_id inválido")
		}
		sesionID = &sid
	}

	var f *model.Factura
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		f, err = s.repo.FindByIDForUpdateTx(tx, facturaID)
		if err != nil {
			return fmt.Errorf("factura %s: %w", facturaID, apperr.ErrNoEncontrado)
		}
		if !f.Estado.AceptaPagos() {
			return apperr.Transicion(string(f.Estado), "registrar pago")
		}

		// Cash must land in an open register session. The session row lock
		// serializes this check against a concurrent close, so the payment
		// cannot commit after the close already summed the cash.
		if sesionID != nil {
			sesion, err := s.cajaRepo.FindSesionForUpdateTx(tx, *sesionID)
			if err != nil {
				return fmt.Errorf("sesión %s: %w", *sesionID, apperr.ErrNoEncontrado)
			}
			if sesion.Estado != model.SesionAbierta {
				return apperr.ErrSinSesionActiva
			}
		}

		normalizado, err := normalizarMonto(req.Monto, monPago, f.Moneda, f.TasaVES, f.TasaEUR)
		if err != nil {
			return err
		}

		saldo := f.Saldo()
		if normalizado.GreaterThan(saldo.Add(toleranciaPago)) {
			return apperr.Validacion("el pago de %s excede el saldo pendiente de %s",
				normalizado.StringFixed(2), saldo.StringFixed(2))
		}

		pago := &model.Pago{
			FacturaID:        f.ID,
			UsuarioID:        usuarioID,
			Metodo:           req.Metodo,
			Monto:            req.Monto,
			Moneda:           monPago,
			MontoNormalizado: normalizado,
			SesionCajaID:     sesionID,
			Referencia:       req.Referencia,
		}
		if err := s.repo.CreatePagoTx(tx, pago); err != nil {
			return err
		}

		f.Pagado = f.Pagado.Add(normalizado)
		// Rounding residue up to one cent still counts as fully paid.
		if f.Pagado.GreaterThanOrEqual(f.Total.Sub(toleranciaPago)) {
			f.Estado = model.FacturaPagada
		} else {
			f.Estado = model.FacturaParcial
		}
		f.Pagos = append(f.Pagos, *pago)
		return s.repo.UpdateTx(tx, f)
	})
	if txErr != nil {
		return nil, txErr
	}
	return facturaToResponse(f), nil
}

// normalizarMonto converts a payment amount to the invoice currency using the
// invoice's snapshotted rates (VES and EUR per USD). The conversion pivots
// through USD.
func normalizarMonto(monto decimal.Decimal, de, a moneda.Moneda, tasaVES, tasaEUR decimal.Decimal) (decimal.Decimal, error) {
	if de == a {
		return moneda.Redondear(monto), nil
	}
	tasaDe, err := tasaPorUSD(de, tasaVES, tasaEUR)
	if err != nil {
		return decimal.Zero, err
	}
	tasaA, err := tasaPorUSD(a, tasaVES, tasaEUR)
	if err != nil {
		return decimal.Zero, err
	}
	enUSD := monto.Div(tasaDe)
	return moneda.Redondear(enUSD.Mul(tasaA)), nil
}

func tasaPorUSD(m moneda.Moneda, tasaVES, tasaEUR decimal.Decimal) (decimal.Decimal, error) {
	var tasa decimal.Decimal
	switch m {
	case moneda.USD:
		return decimal.NewFromInt(1), nil
	case moneda.VES:
		tasa = tasaVES
	case moneda.EUR:
		tasa = tasaEUR
	}
	if tasa.Sign() <= 0 {
		return decimal.Zero, apperr.Validacion("la factura no tiene tasa de cambio para %s", m)
	}
	return tasa, nil
}

// ── Anular ────────────────────────────────────────────────────────────────────
// Cancelling restores the stock the issue consumed, with one inverse movement
// per product. Registered payments are never deleted; the invoice is flagged
// so the refund can be handled by hand.

func (s *facturaService) Anular(ctx context.Context, id uuid.UUID, motivo string) (*dto.FacturaResponse, error) {
	var f *model.Factura
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		f, err = s.repo.FindByIDForUpdateTx(tx, id)
		if err != nil {
			return fmt.Errorf("factura %s: %w", id, apperr.ErrNoEncontrado)
		}
		if !f.Estado.Anulable() {
			return apperr.Transicion(string(f.Estado), "anular")
		}

		restaurar := make(map[uuid.UUID]decimal.Decimal)
		ids := make([]uuid.UUID, 0, len(f.Items))
		for _, it := range f.Items {
			if _, ok := restaurar[it.ProductoID]; !ok {
				ids = append(ids, it.ProductoID)
			}
			restaurar[it.ProductoID] = restaurar[it.ProductoID].Add(it.Cantidad)
		}

		productos, err := s.productoRepo.FindManyForUpdateTx(tx, ids)
		if err != nil {
			return err
		}
		numero := ""
		if f.Numero != nil {
			numero = *f.Numero
		}
		for _, p := range productos {
			cant := restaurar[p.ID]
			if err := s.productoRepo.UpdateStockTx(tx, p.ID, cant); err != nil {
				return err
			}
			ref := f.ID
			mov := &model.MovimientoStock{
				ProductoID:    p.ID,
				Tipo:          "restauracion_anulacion",
				Cantidad:      cant,
				StockAnterior: p.StockActual,
				StockNuevo:    p.StockActual.Add(cant),
				Motivo:        fmt.Sprintf("Anulación factura %s — %s", numero, motivo),
				ReferenciaID:  &ref,
			}
			if err := s.movStockRepo.CreateTx(tx, mov); err != nil {
				return err
			}
		}

		now := time.Now()
		f.Estado = model.FacturaAnulada
		f.AnuladaAt = &now
		f.MotivoAnulado = &motivo
		f.PagosRetenidos = f.Pagado.Sign() > 0
		return s.repo.UpdateTx(tx, f)
	})
	if txErr != nil {
		return nil, txErr
	}
	return facturaToResponse(f), nil
}

// ── EliminarBorrador ──────────────────────────────────────────────────────────

func (s *facturaService) EliminarBorrador(ctx context.Context, id uuid.UUID) error {
	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		f, err := s.repo.FindByIDForUpdateTx(tx, id)
		if err != nil {
			return fmt.Errorf("factura %s: %w", id, apperr.ErrNoEncontrado)
		}
		if !f.Estado.Editable() {
			return apperr.Transicion(string(f.Estado), "eliminar")
		}
		// Drafts never touched stock, so there is nothing to compensate.
		return s.repo.DeleteTx(tx, f)
	})
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *facturaService) Obtener(ctx context.Context, id uuid.UUID) (*dto.FacturaResponse, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("factura %s: %w", id, apperr.ErrNoEncontrado)
	}
	return facturaToResponse(f), nil
}

func (s *facturaService) Listar(ctx context.Context, filter dto.FacturaFilter) (*dto.FacturaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	facturas, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.FacturaResponse, 0, len(facturas))
	for i := range facturas {
		data = append(data, *facturaToResponse(&facturas[i]))
	}
	return &dto.FacturaListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// ── Mapeo a DTOs ──────────────────────────────────────────────────────────────

func facturaToResponse(f *model.Factura) *dto.FacturaResponse {
	items := make([]dto.ItemFacturaResponse, 0, len(f.Items))
	for _, it := range f.Items {
		items = append(items, dto.ItemFacturaResponse{
			ID:             it.ID.String(),
			ProductoID:     it.ProductoID.String(),
			Descripcion:    it.Descripcion,
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
			TasaImpuesto:   it.TasaImpuesto,
			Subtotal:       moneda.Redondear(it.Cantidad.Mul(it.PrecioUnitario)),
		})
	}
	pagos := make([]dto.PagoResponse, 0, len(f.Pagos))
	for _, p := range f.Pagos {
		var sesion *string
		if p.SesionCajaID != nil {
			s := p.SesionCajaID.String()
			sesion = &s
		}
		pagos = append(pagos, dto.PagoResponse{
			ID:               p.ID.String(),
			Metodo:           p.Metodo,
			Monto:            p.Monto,
			Moneda:           string(p.Moneda),
			MontoNormalizado: p.MontoNormalizado,
			SesionCajaID:     sesion,
			Referencia:       p.Referencia,
			CreatedAt:        p.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	resp := &dto.FacturaResponse{
		ID:             f.ID.String(),
		Numero:         f.Numero,
		Estado:         string(f.Estado),
		Moneda:         string(f.Moneda),
		TasaVES:        f.TasaVES,
		TasaEUR:        f.TasaEUR,
		Items:          items,
		Subtotal:       f.Subtotal,
		Impuesto:       f.Impuesto,
		Total:          f.Total,
		Pagado:         f.Pagado,
		Saldo:          f.Saldo(),
		Pagos:          pagos,
		PagosRetenidos: f.PagosRetenidos,
		Notas:          f.Notas,
		MotivoAnulado:  f.MotivoAnulado,
		CreatedAt:      f.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if f.ClienteID != nil {
		cid := f.ClienteID.String()
		resp.ClienteID = &cid
	}
	if f.Cliente != nil {
		resp.Cliente = &f.Cliente.Nombre
	}
	if f.Estado != model.FacturaBorrador {
		if letras, err := moneda.MontoEnLetras(f.Total, f.Moneda.EtiquetaLegal()); err == nil {
			resp.TotalEnLetras = letras
		}
	}
	if f.EmitidaAt != nil {
		s := f.EmitidaAt.Format("2006-01-02T15:04:05Z")
		resp.EmitidaAt = &s
	}
	if f.AnuladaAt != nil {
		s := f.AnuladaAt.Format("2006-01-02T15:04:05Z")
		resp.AnuladaAt = &s
	}
	return resp
}
