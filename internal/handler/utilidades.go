package handler

import (
	"net/http"

	"venpos/internal/dto"
	"venpos/internal/moneda"

	"github.com/gin-gonic/gin"
)

// UtilidadesHandler exposes the pure calculator endpoints the POS UI calls
// while the cart is still being edited, before any invoice exists.
type UtilidadesHandler struct{}

func NewUtilidadesHandler() *UtilidadesHandler { return &UtilidadesHandler{} }

// Totales godoc
// @Summary Calcula subtotal, impuesto y total de un carrito sin persistir nada
// @Tags utilidades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.TotalesRequest true "Lineas del carrito y tasas opcionales"
// @Success 200 {object} dto.TotalesResponse
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/utilidades/totales [post]
func (h *UtilidadesHandler) Totales(c *gin.Context) {
	var req dto.TotalesRequest
	if !bindAndValidate(c, &req) {
		return
	}

	lineas := make([]moneda.Linea, len(req.Lineas))
	for i, l := range req.Lineas {
		lineas[i] = moneda.Linea{
			Cantidad:       l.Cantidad,
			PrecioUnitario: l.PrecioUnitario,
			TasaImpuesto:   l.TasaImpuesto,
		}
	}
	subtotal, impuesto, total := moneda.CalcularTotales(lineas)

	resp := dto.TotalesResponse{Subtotal: subtotal, Impuesto: impuesto, Total: total}
	if req.TasaVES.Sign() > 0 {
		if v, err := moneda.Convertir(total, req.TasaVES); err == nil {
			resp.TotalVES = &v
		}
	}
	if req.TasaEUR.Sign() > 0 {
		if v, err := moneda.Convertir(total, req.TasaEUR); err == nil {
			resp.TotalEUR = &v
		}
	}
	c.JSON(http.StatusOK, resp)
}

// MontoEnLetras godoc
// @Summary Convierte un monto a su linea legal en letras
// @Tags utilidades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.MontoEnLetrasRequest true "Monto y moneda"
// @Success 200 {object} dto.MontoEnLetrasResponse
// @Failure 422 {object} apierror.APIError "Monto negativo o fuera de rango"
// @Router /v1/utilidades/monto-en-letras [post]
func (h *UtilidadesHandler) MontoEnLetras(c *gin.Context) {
	var req dto.MontoEnLetrasRequest
	if !bindAndValidate(c, &req) {
		return
	}
	texto, err := moneda.MontoEnLetras(req.Monto, moneda.Moneda(req.Moneda).EtiquetaLegal())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MontoEnLetrasResponse{Texto: texto})
}
