package service_test

import (
	"context"
	"testing"
	"time"

	"venpos/internal/apperr"
	"venpos/internal/dto"
	"venpos/internal/model"
	"venpos/internal/repository"
	"venpos/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── In-memory FacturaRepository ──────────────────────────────────────────────

type fakeFacturaRepo struct {
	facturas map[uuid.UUID]*model.Factura
	pagos    []model.Pago
	seq      int64
}

func newFakeFacturaRepo() *fakeFacturaRepo {
	return &fakeFacturaRepo{facturas: make(map[uuid.UUID]*model.Factura)}
}

func (r *fakeFacturaRepo) DB() *gorm.DB { return nil }

func (r *fakeFacturaRepo) Create(_ context.Context, f *model.Factura) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	for i := range f.Items {
		if f.Items[i].ID == uuid.Nil {
			f.Items[i].ID = uuid.New()
		}
		f.Items[i].FacturaID = f.ID
	}
	f.CreatedAt = time.Now()
	r.facturas[f.ID] = f
	return nil
}

func (r *fakeFacturaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Factura, error) {
	f, ok := r.facturas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return f, nil
}

func (r *fakeFacturaRepo) List(_ context.Context, filter dto.FacturaFilter) ([]model.Factura, int64, error) {
	var out []model.Factura
	for _, f := range r.facturas {
		if filter.Estado != "" && filter.Estado != "all" && string(f.Estado) != filter.Estado {
			continue
		}
		out = append(out, *f)
	}
	return out, int64(len(out)), nil
}

func (r *fakeFacturaRepo) Save(_ context.Context, f *model.Factura) error {
	r.facturas[f.ID] = f
	return nil
}

func (r *fakeFacturaRepo) FindByIDForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.Factura, error) {
	f, ok := r.facturas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	// The locked read loads the payment rows too, like the real repository.
	f.Pagos = nil
	for _, p := range r.pagos {
		if p.FacturaID == id {
			f.Pagos = append(f.Pagos, p)
		}
	}
	return f, nil
}

func (r *fakeFacturaRepo) UpdateTx(_ *gorm.DB, f *model.Factura) error {
	r.facturas[f.ID] = f
	return nil
}

func (r *fakeFacturaRepo) ReplaceItemsTx(_ *gorm.DB, facturaID uuid.UUID, items []model.FacturaItem) error {
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].FacturaID = facturaID
	}
	if f, ok := r.facturas[facturaID]; ok {
		f.Items = items
	}
	return nil
}

func (r *fakeFacturaRepo) CreatePagoTx(_ *gorm.DB, p *model.Pago) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	r.pagos = append(r.pagos, *p)
	return nil
}

func (r *fakeFacturaRepo) DeleteTx(_ *gorm.DB, f *model.Factura) error {
	delete(r.facturas, f.ID)
	return nil
}

func (r *fakeFacturaRepo) NextNumeroTx(_ *gorm.DB) (int64, error) {
	r.seq++
	return r.seq, nil
}

var _ repository.FacturaRepository = (*fakeFacturaRepo)(nil)

// ── In-memory ProductoRepository ─────────────────────────────────────────────

type fakeProductoRepo struct {
	productos map[uuid.UUID]*model.Producto
}

func newFakeProductoRepo() *fakeProductoRepo {
	return &fakeProductoRepo{productos: make(map[uuid.UUID]*model.Producto)}
}

func (r *fakeProductoRepo) DB() *gorm.DB { return nil }

func (r *fakeProductoRepo) Create(_ context.Context, p *model.Producto) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.productos[p.ID] = p
	return nil
}

func (r *fakeProductoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Producto, error) {
	p, ok := r.productos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *fakeProductoRepo) FindByBarcode(_ context.Context, barcode string) (*model.Producto, error) {
	for _, p := range r.productos {
		if p.CodigoBarras == barcode && p.Activo {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProductoRepo) List(_ context.Context, _ dto.ProductoFilter) ([]model.Producto, int64, error) {
	var out []model.Producto
	for _, p := range r.productos {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *fakeProductoRepo) Update(_ context.Context, p *model.Producto) error {
	r.productos[p.ID] = p
	return nil
}

func (r *fakeProductoRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if p, ok := r.productos[id]; ok {
		p.Activo = false
	}
	return nil
}

func (r *fakeProductoRepo) Reactivar(_ context.Context, id uuid.UUID) error {
	if p, ok := r.productos[id]; ok {
		p.Activo = true
	}
	return nil
}

func (r *fakeProductoRepo) FindManyForUpdateTx(_ *gorm.DB, ids []uuid.UUID) ([]model.Producto, error) {
	var out []model.Producto
	for _, id := range ids {
		if p, ok := r.productos[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeProductoRepo) UpdateStockTx(_ *gorm.DB, id uuid.UUID, delta decimal.Decimal) error {
	p := r.productos[id]
	p.StockActual = p.StockActual.Add(delta)
	return nil
}

func (r *fakeProductoRepo) AjustarStock(_ context.Context, id uuid.UUID, delta decimal.Decimal) error {
	return r.UpdateStockTx(nil, id, delta)
}

var _ repository.ProductoRepository = (*fakeProductoRepo)(nil)

// ── In-memory MovimientoStockRepository ──────────────────────────────────────

type fakeMovStockRepo struct {
	movimientos []model.MovimientoStock
}

func (r *fakeMovStockRepo) Create(_ context.Context, m *model.MovimientoStock) error {
	return r.CreateTx(nil, m)
}

func (r *fakeMovStockRepo) CreateTx(_ *gorm.DB, m *model.MovimientoStock) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *fakeMovStockRepo) List(_ context.Context, filter repository.MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	var out []model.MovimientoStock
	for _, m := range r.movimientos {
		if filter.Tipo != "" && m.Tipo != filter.Tipo {
			continue
		}
		if filter.ProductoID != nil && m.ProductoID != *filter.ProductoID {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

var _ repository.MovimientoStockRepository = (*fakeMovStockRepo)(nil)

// ── Fixture ──────────────────────────────────────────────────────────────────

type facturaFixture struct {
	svc       service.FacturaService
	repo      *fakeFacturaRepo
	productos *fakeProductoRepo
	movStock  *fakeMovStockRepo
	cajas     *fakeCajaRepo
}

func newFacturaFixture() *facturaFixture {
	fx := &facturaFixture{
		repo:      newFakeFacturaRepo(),
		productos: newFakeProductoRepo(),
		movStock:  &fakeMovStockRepo{},
		cajas:     newFakeCajaRepo(),
	}
	fx.svc = service.NewFacturaService(fx.repo, fx.productos, fx.movStock, fx.cajas)
	return fx
}

func (fx *facturaFixture) crearProducto(t *testing.T, nombre, stock string) uuid.UUID {
	t.Helper()
	p := &model.Producto{
		CodigoBarras: "750" + uuid.NewString()[:10],
		Nombre:       nombre,
		PrecioVenta:  decimal.NewFromInt(100),
		TasaImpuesto: decimal.NewFromInt(16),
		StockActual:  decimal.RequireFromString(stock),
		Activo:       true,
	}
	require.NoError(t, fx.productos.Create(context.Background(), p))
	return p.ID
}

func (fx *facturaFixture) crearBorrador(t *testing.T, items ...dto.ItemFacturaRequest) uuid.UUID {
	t.Helper()
	resp, err := fx.svc.CrearBorrador(context.Background(), uuid.New(), dto.CrearFacturaRequest{
		Moneda: "USD",
		Items:  items,
	})
	require.NoError(t, err)
	return uuid.MustParse(resp.ID)
}

func (fx *facturaFixture) emitir(t *testing.T, id uuid.UUID) *dto.FacturaResponse {
	t.Helper()
	resp, err := fx.svc.Emitir(context.Background(), id, dto.EmitirFacturaRequest{
		TasaVES: decimal.RequireFromString("36.5"),
		TasaEUR: decimal.RequireFromString("0.92"),
	})
	require.NoError(t, err)
	return resp
}

func item(productoID uuid.UUID, cantidad string) dto.ItemFacturaRequest {
	return dto.ItemFacturaRequest{ProductoID: productoID.String(), Cantidad: decimal.RequireFromString(cantidad)}
}

// ── Emitir ────────────────────────────────────────────────────────────────────

func TestEmitir_DescuentaStockYAsignaNumero(t *testing.T) {
	fx := newFacturaFixture()
	pid := fx.crearProducto(t, "Harina PAN", "10")
	fid := fx.crearBorrador(t, item(pid, "2"))

	resp := fx.emitir(t, fid)

	assert.Equal(t, "emitida", resp.Estado)
	require.NotNil(t, resp.Numero)
	assert.Equal(t, "FAC-00000001", *resp.Numero)
	assert.Equal(t, "232", resp.Total.String()) // 2×100 + 16% IVA
	assert.NotEmpty(t, resp.TotalEnLetras)
	assert.NotNil(t, resp.EmitidaAt)

	p, _ := fx.productos.FindByID(context.Background(), pid)
	assert.Equal(t, "8", p.StockActual.String())

	require.Len(t, fx.movStock.movimientos, 1)
	mov := fx.movStock.movimientos[0]
	assert.Equal(t, "emision", mov.Tipo)
	assert.Equal(t, "-2", mov.Cantidad.String())
	assert.Equal(t, "10", mov.StockAnterior.String())
	assert.Equal(t, "8", mov.StockNuevo.String())
}

func TestEmitir_NumerosConsecutivos(t *testing.T) {
	fx := newFacturaFixture()
	pid := fx.crearProducto(t, "Café", "100")

	r1 := fx.emitir(t, fx.crearBorrador(t, item(pid, "1")))
	r2 := fx.emitir(t, fx.crearBorrador(t, item(pid, "1")))

	assert.Equal(t, "FAC-00000001", *r1.Numero)
	assert.Equal(t, "FAC-00000002", *r2.Numero)
}

func TestEmitir_StockInsuficiente_TodoONada(t *testing.T) {
	fx := newFacturaFixture()
	conStock := fx.crearProducto(t, "Arroz", "50")
	sinStock := fx.crearProducto(t, "Azúcar", "1")
	fid := fx.crearBorrador(t, item(conStock, "5"), item(sinStock, "3"))

	_, err := fx.svc.Emitir(context.Background(), fid, dto.EmitirFacturaRequest{
		TasaVES: decimal.RequireFromString("36.5"),
		TasaEUR: decimal.RequireFromString("0.92"),
	})

	var stockErr *apperr.StockInsuficiente
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Azúcar", stockErr.Producto)
	assert.Equal(t, "3", stockErr.Solicitado.String())
	assert.Equal(t, "1", stockErr.Disponible.String())

	// Nothing was decremented, not even the line that had stock.
	p, _ := fx.productos.FindByID(context.Background(), conStock)
	assert.Equal(t, "50", p.StockActual.String())
	assert.Empty(t, fx.movStock.movimientos)
}

func TestEmitir_LineasDuplicadasSeAgregan(t *testing.T) {
	// The same product on two lines must be validated against the sum.
	fx := newFacturaFixture()
	pid := fx.crearProducto(t, "Aceite", "5")
	fid := fx.crearBorrador(t, item(pid, "3"), item(pid, "3"))

	_, err := fx.svc.Emitir(context.Background(), fid, dto.EmitirFacturaRequest{
		TasaVES: decimal.RequireFromString("36.5"),
		TasaEUR: decimal.RequireFromString("0.92"),
	})

	var stockErr *apperr.StockInsuficiente
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "6", stockErr.Solicitado.String())
}

func TestCrearBorrador_SinLineas(t *testing.T) {
	// A draft without lines never comes into existence.
	fx := newFacturaFixture()

	_, err := fx.svc.CrearBorrador(context.Background(), uuid.New(), dto.CrearFacturaRequest{
		Moneda: "USD",
	})
	assert.ErrorIs(t, err, apperr.ErrValidacion)
	assert.Empty(t, fx.repo.facturas)
}

func TestActualizarBorrador_SinLineas(t *testing.T) {
	// An update cannot empty a draft either.
	fx := newFacturaFixture()
	pid := fx.crearProducto(t, "Avena", "10")
	fid := fx.crearBorrador(t, item(pid, "1"))

	_, err := fx.svc.ActualizarBorrador(context.Background(), fid, dto.ActualizarFacturaRequest{})
	assert.ErrorIs(t, err, apperr.ErrValidacion)

	f, ferr := fx.svc.Obtener(context.Background(), fid)
	require.NoError(t, ferr)
	assert.Len(t, f.Items, 1)
}

func TestEmitir_YaEmitida(t *testing.T) {
	fx := newFacturaFixture()
	pid := fx.crearProducto(t, "Pasta", "10")
	fid := fx.crearBorrador(t, item(pid, "1"))
	fx.emitir(t, fid)

	_, err := fx.svc.Emitir(context.Background(), fid, dto.EmitirFacturaRequest{
		TasaVES: decimal.RequireFromString("36.5"),
		TasaEUR: decimal.RequireFromString("0.92"),
	})
	assert.ErrorIs(t, err, apperr.ErrTransicionInvalida)
}

// ── RegistrarPago ─────────────────────────────────────────────────────────────

func pagar(fx *facturaFixture, fid uuid.UUID, metodo, monto, mon string) (*dto.FacturaResponse, error) {
	return fx.svc.RegistrarPago(context.Background(), fid, uuid.New(), dto.RegistrarPagoRequest{
		Metodo: metodo,
		Monto:  decimal.RequireFromString(monto),
		Moneda: mon,
	})
}

func TestRegistrarPago_ParcialLuegoPagada(t *testing.T) {
	fx := newFacturaFixture()
	pid := fx.crearProducto(t, "Queso", "10")
	fid := fx.crearBorrador(t, item(pid, "2")) // total 232 USD
	fx.emitir(t, fid)

	resp, err := pagar(fx, fid, "tarjeta", "50", "USD")
	require.NoError(t, err)
	assert.Equal(t, "parcial", resp.Estado)
	assert.Equal(t, "182", resp.Saldo.String())
	require.Len(t, resp.Pagos, 1)

	resp, err = pagar(fx, fid, "transferencia", "182", "USD")
	require.NoError(t, err)
	assert.Equal(t, "pagada", resp.Estado)
	assert.Equal(t, "0", resp.Saldo.String())
	// Both payments are reported, not just the one appended now.
	require.Len(t, resp.Pagos, 2)
	assert.Equal(t, "tarjeta", resp.Pagos[0].Metodo)
	assert.Equal(t, "transferencia", resp.Pagos[1].Metodo)
}

func TestRegistrarPago_MonedaCruzada(t *testing.T) {
	// VES payment on a USD invoice converts with the frozen snapshot:
	// 1825 VES / 36.5 = 50 USD.
	fx := newFacturaFixture()
	pid := fx.crearProducto(t, "Jamón", "10")
	fid := fx.crearBorrador(t, item(pid, "2"))
	fx.emitir(t, fid)

	resp, err := pagar(fx, fid, "pago_movil", "1825", "VES")
	require.NoError(t, err)
	assert.Equal(t, "parcial", resp.Estado)
	assert.Equal(t, "50.00", resp.Pagado.StringFixed(2))
	require.Len(t, resp.Pagos, 1)
	assert.Equal(t, "1825", resp.Pagos[0].Monto.String())
	assert.Equal(t, "VES", resp.Pagos[0].Moneda)
	assert.Equal(t, "50.00", resp.Pagos[0].MontoNormalizado.StringFixed(2))
}

func TestRegistrarPago_Sobrepago(t *testing.T) {
	fx := newFacturaFixture()
	pid := fx.crearProducto(t, "Leche", "10")
	fid := fx.crearBorrador(t, item(pid, "1")) // total 116
	fx.emitir(t, fid)

	_, err := pagar(fx, fid, "tarjeta", "200", "USD")
	assert.ErrorIs(t, err, apperr.ErrValidacion)
}

func TestRegistrarPago_ToleranciaDeCentavo(t *testing.T) {
	// A one-cent shortfall from rounding still settles the invoice.
	fx := newFacturaFixture()
	pid := fx.crearProducto(t, "Pan", "10")
	fid := fx.crearBorrador(t, item(pid, "1")) // total 116
	fx.emitir(t, fid)

	resp, err := pagar(fx, fid, "tarjeta", "115.99", "USD")
	require.NoError(t, err)
	assert.Equal(t, "pagada", resp.Estado)
}

func TestRegistrarPago_EfectivoRequiereSesion(t *testing.T) {
	fx := newFacturaFixture()
	pid := fx.crearProducto(t, "Huevos", "10")
	fid := fx.crearBorrador(t, item(pid, "1"))
	fx.emitir(t, fid)

	_, err := pagar(fx, fid, "efectivo", "50", "USD")
	assert.ErrorIs(t, err, apperr.ErrValidacion)
}

func TestRegistrarPago_EfectivoSesionCerrada(t *testing.T) {
	fx := newFacturaFixture()
	cajaSvc := service.NewCajaService(fx.cajas)
	cajaID := crearCaja(t, fx.cajas)
	sesionID := abrirSesion(t, cajaSvc, cajaID, "0")
	_, err := cajaSvc.CerrarSesion(context.Background(), sesionID, dto.CerrarSesionRequest{})
	require.NoError(t, err)

	pid := fx.crearProducto(t, "Mantequilla", "10")
	fid := fx.crearBorrador(t, item(pid, "1"))
	fx.emitir(t, fid)

	sid := sesionID.String()
	_, err = fx.svc.RegistrarPago(context.Background(), fid, uuid.New(), dto.RegistrarPagoRequest{
		Metodo:       "efectivo",
		Monto:        decimal.NewFromInt(50),
		Moneda:       "USD",
		SesionCajaID: &sid,
	})
	assert.ErrorIs(t, err, apperr.ErrSinSesionActiva)
}

func TestRegistrarPago_SobreBorrador(t *testing.T) {
	fx := newFacturaFixture()
	pid := fx.crearProducto(t, "Atún", "10")
	fid := fx.crearBorrador(t, item(pid, "1"))

	_, err := pagar(fx, fid, "tarjeta", "10", "USD")
	assert.ErrorIs(t, err, apperr.ErrTransicionInvalida)
}

// ── Anular ────────────────────────────────────────────────────────────────────

func TestAnular_RestauraStockYRetienePagos(t *testing.T) {
	fx := newFacturaFixture()
	pid := fx.crearProducto(t, "Caraotas", "10")
	fid := fx.crearBorrador(t, item(pid, "4"))
	fx.emitir(t, fid)
	_, err := pagar(fx, fid, "tarjeta", "100", "USD")
	require.NoError(t, err)

	resp, err := fx.svc.Anular(context.Background(), fid, "Cliente devolvió la mercancía")
	require.NoError(t, err)

	assert.Equal(t, "anulada", resp.Estado)
	assert.True(t, resp.PagosRetenidos)
	assert.NotNil(t, resp.MotivoAnulado)
	require.Len(t, fx.repo.pagos, 1) // payment rows stay for audit

	p, _ := fx.productos.FindByID(context.Background(), pid)
	assert.Equal(t, "10", p.StockActual.String())

	// One emission movement plus one restoration movement
	require.Len(t, fx.movStock.movimientos, 2)
	assert.Equal(t, "restauracion_anulacion", fx.movStock.movimientos[1].Tipo)
	assert.Equal(t, "4", fx.movStock.movimientos[1].Cantidad.String())
}

func TestAnular_Borrador(t *testing.T) {
	fx := newFacturaFixture()
	pid := fx.crearProducto(t, "Sal", "10")
	fid := fx.crearBorrador(t, item(pid, "1"))

	_, err := fx.svc.Anular(context.Background(), fid, "No corresponde")
	assert.ErrorIs(t, err, apperr.ErrTransicionInvalida)
}

func TestAnular_Pagada(t *testing.T) {
	fx := newFacturaFixture()
	pid := fx.crearProducto(t, "Galletas", "10")
	fid := fx.crearBorrador(t, item(pid, "1"))
	fx.emitir(t, fid)
	_, err := pagar(fx, fid, "tarjeta", "116", "USD")
	require.NoError(t, err)

	_, err = fx.svc.Anular(context.Background(), fid, "Demasiado tarde")
	assert.ErrorIs(t, err, apperr.ErrTransicionInvalida)
}

// ── Borradores ────────────────────────────────────────────────────────────────

func TestEliminarBorrador(t *testing.T) {
	fx := newFacturaFixture()
	pid := fx.crearProducto(t, "Yuca", "10")
	fid := fx.crearBorrador(t, item(pid, "2"))

	require.NoError(t, fx.svc.EliminarBorrador(context.Background(), fid))

	_, err := fx.svc.Obtener(context.Background(), fid)
	assert.ErrorIs(t, err, apperr.ErrNoEncontrado)
	// Drafts never touched stock
	p, _ := fx.productos.FindByID(context.Background(), pid)
	assert.Equal(t, "10", p.StockActual.String())
}

func TestEliminarBorrador_Emitida(t *testing.T) {
	fx := newFacturaFixture()
	pid := fx.crearProducto(t, "Plátano", "10")
	fid := fx.crearBorrador(t, item(pid, "1"))
	fx.emitir(t, fid)

	err := fx.svc.EliminarBorrador(context.Background(), fid)
	assert.ErrorIs(t, err, apperr.ErrTransicionInvalida)
}

func TestActualizarBorrador_Emitida(t *testing.T) {
	fx := newFacturaFixture()
	pid := fx.crearProducto(t, "Ñame", "10")
	fid := fx.crearBorrador(t, item(pid, "1"))
	fx.emitir(t, fid)

	_, err := fx.svc.ActualizarBorrador(context.Background(), fid, dto.ActualizarFacturaRequest{
		Items: []dto.ItemFacturaRequest{item(pid, "5")},
	})
	assert.ErrorIs(t, err, apperr.ErrTransicionInvalida)
}

func TestCrearBorrador_ProductoInactivo(t *testing.T) {
	fx := newFacturaFixture()
	pid := fx.crearProducto(t, "Refresco", "10")
	require.NoError(t, fx.productos.SoftDelete(context.Background(), pid))

	_, err := fx.svc.CrearBorrador(context.Background(), uuid.New(), dto.CrearFacturaRequest{
		Moneda: "USD",
		Items:  []dto.ItemFacturaRequest{item(pid, "1")},
	})
	assert.ErrorIs(t, err, apperr.ErrValidacion)
}

func TestCrearBorrador_CantidadInvalida(t *testing.T) {
	fx := newFacturaFixture()
	pid := fx.crearProducto(t, "Cerveza", "10")

	_, err := fx.svc.CrearBorrador(context.Background(), uuid.New(), dto.CrearFacturaRequest{
		Moneda: "USD",
		Items:  []dto.ItemFacturaRequest{item(pid, "0")},
	})
	assert.ErrorIs(t, err, apperr.ErrValidacion)
}
