//go:build integration

package e2e

// End-to-end tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./tests/e2e/... -v
//
// Covered flows:
//   - draft → emitir → pago → pagada, with stock side effects
//   - emitir with insufficient stock rejects the whole invoice
//   - anular restores stock and keeps payments
//   - session open → cash payment → blind close with per-currency deviation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"venpos/internal/config"
	"venpos/internal/infra"
	"venpos/internal/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	token  string // admin JWT
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("venpos_test"),
		tcPostgres.WithUsername("venpos"),
		tcPostgres.WithPassword("venpos"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:               8000,
		Env:                "test",
		JWTSecret:          "test-secret-key",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		NombreNegocio:      "VenPOS Test",
		PDFStoragePath:     t.TempDir(),
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	// Seed admin user
	hash, err := bcrypt.GenerateFromPassword([]byte("venpos2026"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, db.Exec(`INSERT INTO usuarios (username, nombre, email, password_hash, rol, activo)
		VALUES ('admin@e2e.test', 'Admin E2E', 'admin@e2e.test', ?, 'administrador', true)
		ON CONFLICT DO NOTHING`, string(hash)).Error)

	r := router.New(cfg, db, rdb)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	loginResp := do(t, srv, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{"username": "admin@e2e.test", "password": "venpos2026"}),
		"",
	)
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	var loginBody struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, loginResp, &loginBody)
	require.NotEmpty(t, loginBody.AccessToken)

	return &testEnv{server: srv, token: loginBody.AccessToken}
}

func (env *testEnv) crearProducto(t *testing.T, nombre, barcode string, stock float64) string {
	t.Helper()
	resp := do(t, env.server, "POST", "/v1/productos",
		jsonBody(t, map[string]any{
			"nombre":        nombre,
			"codigo_barras": barcode,
			"precio_venta":  100.0,
			"tasa_impuesto": 16.0,
			"stock_actual":  stock,
		}), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var prod struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &prod)
	return prod.ID
}

func (env *testEnv) crearBorrador(t *testing.T, productoID string, cantidad float64) string {
	t.Helper()
	resp := do(t, env.server, "POST", "/v1/facturas",
		jsonBody(t, map[string]any{
			"moneda": "USD",
			"items":  []map[string]any{{"producto_id": productoID, "cantidad": cantidad}},
		}), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var factura struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &factura)
	return factura.ID
}

func (env *testEnv) emitir(t *testing.T, facturaID string) *http.Response {
	t.Helper()
	return do(t, env.server, "POST", "/v1/facturas/"+facturaID+"/emitir",
		jsonBody(t, map[string]any{"tasa_ves": 36.5, "tasa_eur": 0.92}), env.token)
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_FacturaCicloCompleto(t *testing.T) {
	env := setupTestEnv(t)
	prodID := env.crearProducto(t, "Gaseosa 500ml", "7890001000001", 20)
	facturaID := env.crearBorrador(t, prodID, 3)

	// Emitir: assigns number, freezes rates, decrements stock
	emitResp := env.emitir(t, facturaID)
	require.Equal(t, http.StatusOK, emitResp.StatusCode)
	var emitida struct {
		Numero        string `json:"numero"`
		Estado        string `json:"estado"`
		Total         string `json:"total"`
		TotalEnLetras string `json:"total_en_letras"`
	}
	decodeJSON(t, emitResp, &emitida)
	assert.Equal(t, "emitida", emitida.Estado)
	assert.Equal(t, "FAC-00000001", emitida.Numero)
	assert.Equal(t, "348", emitida.Total) // 3×100 + 16% IVA
	assert.Contains(t, emitida.TotalEnLetras, "SON:")
	assert.Contains(t, emitida.TotalEnLetras, "DOLARES")

	// Stock decremented
	prodResp := do(t, env.server, "GET", "/v1/productos/"+prodID, nil, env.token)
	require.Equal(t, http.StatusOK, prodResp.StatusCode)
	var prod struct {
		StockActual string `json:"stock_actual"`
	}
	decodeJSON(t, prodResp, &prod)
	assert.Equal(t, "17", prod.StockActual)

	// Pay in full
	pagoResp := do(t, env.server, "POST", "/v1/facturas/"+facturaID+"/pagos",
		jsonBody(t, map[string]any{"metodo": "tarjeta", "monto": 348.0, "moneda": "USD"}),
		env.token)
	require.Equal(t, http.StatusOK, pagoResp.StatusCode)
	var pagada struct {
		Estado string `json:"estado"`
		Saldo  string `json:"saldo"`
	}
	decodeJSON(t, pagoResp, &pagada)
	assert.Equal(t, "pagada", pagada.Estado)
	assert.Equal(t, "0", pagada.Saldo)
}

func TestE2E_EmitirSinStock(t *testing.T) {
	env := setupTestEnv(t)
	prodID := env.crearProducto(t, "Jugo 1L", "7890001000003", 1)
	facturaID := env.crearBorrador(t, prodID, 5)

	emitResp := env.emitir(t, facturaID)
	assert.Equal(t, http.StatusConflict, emitResp.StatusCode)

	// Stock untouched, invoice still a draft
	prodResp := do(t, env.server, "GET", "/v1/productos/"+prodID, nil, env.token)
	var prod struct {
		StockActual string `json:"stock_actual"`
	}
	decodeJSON(t, prodResp, &prod)
	assert.Equal(t, "1", prod.StockActual)

	factResp := do(t, env.server, "GET", "/v1/facturas/"+facturaID, nil, env.token)
	var factura struct {
		Estado string `json:"estado"`
	}
	decodeJSON(t, factResp, &factura)
	assert.Equal(t, "borrador", factura.Estado)
}

func TestE2E_AnularRestauraStock(t *testing.T) {
	env := setupTestEnv(t)
	prodID := env.crearProducto(t, "Leche 1L", "7890001000004", 10)
	facturaID := env.crearBorrador(t, prodID, 3)
	require.Equal(t, http.StatusOK, env.emitir(t, facturaID).StatusCode)

	anularResp := do(t, env.server, "POST", "/v1/facturas/"+facturaID+"/anular",
		jsonBody(t, map[string]any{"motivo": "Error de carga en prueba"}), env.token)
	require.Equal(t, http.StatusOK, anularResp.StatusCode)
	var anulada struct {
		Estado string `json:"estado"`
	}
	decodeJSON(t, anularResp, &anulada)
	assert.Equal(t, "anulada", anulada.Estado)

	prodResp := do(t, env.server, "GET", "/v1/productos/"+prodID, nil, env.token)
	var prod struct {
		StockActual string `json:"stock_actual"`
	}
	decodeJSON(t, prodResp, &prod)
	assert.Equal(t, "10", prod.StockActual)
}

func TestE2E_SesionCajaConciliacion(t *testing.T) {
	env := setupTestEnv(t)

	// Create register + open session with 100 USD
	cajaResp := do(t, env.server, "POST", "/v1/cajas",
		jsonBody(t, map[string]any{"nombre": "Caja Principal"}), env.token)
	require.Equal(t, http.StatusCreated, cajaResp.StatusCode)
	var caja struct {
		ID string `json:"id"`
	}
	decodeJSON(t, cajaResp, &caja)

	sesionResp := do(t, env.server, "POST", "/v1/sesiones",
		jsonBody(t, map[string]any{
			"caja_id":  caja.ID,
			"apertura": map[string]any{"usd": 100.0},
			"tasa_ves": 36.5,
			"tasa_eur": 0.92,
		}), env.token)
	require.Equal(t, http.StatusCreated, sesionResp.StatusCode)
	var sesion struct {
		ID     string `json:"id"`
		Estado string `json:"estado"`
	}
	decodeJSON(t, sesionResp, &sesion)
	require.Equal(t, "abierta", sesion.Estado)

	// A second open on the same register must conflict
	dupResp := do(t, env.server, "POST", "/v1/sesiones",
		jsonBody(t, map[string]any{
			"caja_id":  caja.ID,
			"apertura": map[string]any{"usd": 50.0},
			"tasa_ves": 36.5,
			"tasa_eur": 0.92,
		}), env.token)
	assert.Equal(t, http.StatusConflict, dupResp.StatusCode)

	// Cash sale: 1×100+16% = 116 USD paid in cash into the session
	prodID := env.crearProducto(t, "Café molido", "7890001000005", 10)
	facturaID := env.crearBorrador(t, prodID, 1)
	require.Equal(t, http.StatusOK, env.emitir(t, facturaID).StatusCode)

	pagoResp := do(t, env.server, "POST", "/v1/facturas/"+facturaID+"/pagos",
		jsonBody(t, map[string]any{
			"metodo": "efectivo", "monto": 116.0, "moneda": "USD",
			"sesion_caja_id": sesion.ID,
		}), env.token)
	require.Equal(t, http.StatusOK, pagoResp.StatusCode)

	// Blind close declaring 200 USD: esperado = 100 + 116 = 216 → desvio −16
	cierreResp := do(t, env.server, "POST", "/v1/sesiones/"+sesion.ID+"/cerrar",
		jsonBody(t, map[string]any{"conteo": map[string]any{"usd": 200.0}}), env.token)
	require.Equal(t, http.StatusOK, cierreResp.StatusCode)
	var cerrada struct {
		Estado   string `json:"estado"`
		Esperado struct {
			USD string `json:"usd"`
		} `json:"esperado"`
		Desvio struct {
			USD string `json:"usd"`
			VES string `json:"ves"`
		} `json:"desvio"`
	}
	decodeJSON(t, cierreResp, &cerrada)
	assert.Equal(t, "cerrada", cerrada.Estado)
	assert.Equal(t, "216", cerrada.Esperado.USD)
	assert.Equal(t, "-16", cerrada.Desvio.USD)
	assert.Equal(t, "0", cerrada.Desvio.VES)
}

func TestE2E_ConsultaPrecioSinAuth(t *testing.T) {
	env := setupTestEnv(t)
	env.crearProducto(t, "Chocolate", "7890001000006", 5)

	resp := do(t, env.server, "GET", "/v1/precio/7890001000006?tasa_ves=36.5", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var precio struct {
		Nombre     string `json:"nombre"`
		PrecioUSD  string `json:"precio_usd"`
		PrecioVES  string `json:"precio_ves"`
		DesdeCache bool   `json:"desde_cache"`
	}
	decodeJSON(t, resp, &precio)
	assert.Equal(t, "Chocolate", precio.Nombre)
	assert.Equal(t, "100", precio.PrecioUSD)
	assert.Equal(t, "3650", precio.PrecioVES)
	assert.False(t, precio.DesdeCache)

	// Second hit is served from Redis
	resp2 := do(t, env.server, "GET", "/v1/precio/7890001000006?tasa_ves=36.5", nil, "")
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	var precio2 struct {
		DesdeCache bool `json:"desde_cache"`
	}
	decodeJSON(t, resp2, &precio2)
	assert.True(t, precio2.DesdeCache)
}
