package router

import (
	"time"

	"venpos/internal/config"
	"venpos/internal/handler"
	"venpos/internal/infra"
	"venpos/internal/middleware"
	"venpos/internal/repository"
	"venpos/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Infrastructure ───────────────────────────────────────────────────────
	mailer := infra.NewMailer(cfg)

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	facturaRepo := repository.NewFacturaRepository(db)
	cajaRepo := repository.NewCajaRepository(db)
	clienteRepo := repository.NewClienteRepository(db)
	movimientoStockRepo := repository.NewMovimientoStockRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(usuarioRepo, cfg)
	productoSvc := service.NewProductoService(productoRepo, rdb)
	inventarioSvc := service.NewInventarioService(productoRepo, movimientoStockRepo)
	cajaSvc := service.NewCajaService(cajaRepo)
	facturaSvc := service.NewFacturaService(facturaRepo, productoRepo, movimientoStockRepo, cajaRepo)
	clienteSvc := service.NewClienteService(clienteRepo)
	documentoSvc := service.NewDocumentoService(facturaRepo, mailer, cfg)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usuariosH := handler.NewUsuariosHandler(authSvc)
	productosH := handler.NewProductosHandler(productoSvc)
	inventarioH := handler.NewInventarioHandler(inventarioSvc)
	cajaH := handler.NewCajaHandler(cajaSvc)
	facturasH := handler.NewFacturaHandler(facturaSvc, documentoSvc)
	clientesH := handler.NewClienteHandler(clienteSvc)
	utilidadesH := handler.NewUtilidadesHandler()
	consultaH := handler.NewConsultaPreciosHandler(productoSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Price check kiosk — no auth required, read only
	r.GET("/v1/precio/:barcode", consultaH.GetPrecioPorBarcode)

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: cajero, supervisor, administrador — declared per-endpoint
		todos := middleware.RequireRole("cajero", "supervisor", "administrador")
		supervision := middleware.RequireRole("supervisor", "administrador")
		admin := middleware.RequireRole("administrador")

		// Cajas — reads for everyone, writes for supervision
		v1.GET("/cajas", todos, cajaH.ListarCajas)
		v1.GET("/cajas/:caja_id/sesion-activa", todos, cajaH.SesionActiva)
		v1.POST("/cajas", admin, cajaH.CrearCaja)
		v1.DELETE("/cajas/:id", admin, cajaH.DesactivarCaja)

		sesiones := v1.Group("/sesiones")
		{
			sesiones.POST("", todos, cajaH.AbrirSesion)
			sesiones.GET("", supervision, cajaH.Historial)
			sesiones.GET("/:id", todos, cajaH.ObtenerSesion)
			sesiones.POST("/:id/cerrar", todos, cajaH.CerrarSesion)
			sesiones.POST("/:id/movimientos", todos, cajaH.RegistrarMovimiento)
		}

		facturas := v1.Group("/facturas")
		{
			facturas.POST("", todos, facturasH.Crear)
			facturas.GET("", todos, facturasH.Listar)
			facturas.GET("/:id", todos, facturasH.Obtener)
			facturas.PUT("/:id", todos, facturasH.Actualizar)
			facturas.DELETE("/:id", todos, facturasH.Eliminar)
			facturas.POST("/:id/emitir", todos, facturasH.Emitir)
			facturas.POST("/:id/pagos", todos, facturasH.RegistrarPago)
			facturas.POST("/:id/anular", supervision, facturasH.Anular)
			facturas.GET("/:id/pdf", todos, facturasH.DescargarPDF)
			facturas.POST("/:id/enviar", todos, facturasH.Enviar)
		}

		// Productos — reads for everyone (catalog sync), writes for admin
		v1.GET("/productos", todos, productosH.Listar)
		v1.GET("/productos/:id", todos, productosH.ObtenerPorID)
		v1.POST("/productos/:id/stock", supervision, inventarioH.AjustarStock)
		prods := v1.Group("/productos", admin)
		{
			prods.POST("", productosH.Crear)
			prods.PUT("/:id", productosH.Actualizar)
			prods.DELETE("/:id", productosH.Desactivar)
		}

		inv := v1.Group("/inventario", supervision)
		{
			inv.GET("/alertas", inventarioH.AlertasStockBajo)
			inv.GET("/movimientos", inventarioH.ListarMovimientos)
		}

		clientes := v1.Group("/clientes")
		{
			clientes.POST("", todos, clientesH.Crear)
			clientes.GET("", todos, clientesH.Buscar)
			clientes.GET("/:id", todos, clientesH.Obtener)
			clientes.PUT("/:id", todos, clientesH.Actualizar)
			clientes.DELETE("/:id", supervision, clientesH.Desactivar)
		}

		utilidades := v1.Group("/utilidades", todos)
		{
			utilidades.POST("/totales", utilidadesH.Totales)
			utilidades.POST("/monto-en-letras", utilidadesH.MontoEnLetras)
		}

		usuarios := v1.Group("/usuarios", admin)
		{
			usuarios.POST("", usuariosH.Crear)
			usuarios.GET("", usuariosH.Listar)
			usuarios.PUT("/:id", usuariosH.Actualizar)
			usuarios.DELETE("/:id", usuariosH.Desactivar)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
