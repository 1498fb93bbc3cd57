package handler

import (
	"net/http"

	"venpos/internal/apierror"
	"venpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ConsultaPreciosHandler serves the public price-check kiosk. Read only,
// no authentication, cached in Redis by the service layer.
type ConsultaPreciosHandler struct {
	svc service.ProductoService
}

func NewConsultaPreciosHandler(svc service.ProductoService) *ConsultaPreciosHandler {
	return &ConsultaPreciosHandler{svc: svc}
}

// GetPrecioPorBarcode godoc
// @Summary Consulta de precio por codigo de barras (sin autenticacion)
// @Tags precio
// @Produce json
// @Param barcode path string true "Codigo de barras"
// @Param tasa_ves query string false "Tasa VES/USD para precio convertido"
// @Param tasa_eur query string false "Tasa EUR/USD para precio convertido"
// @Success 200 {object} dto.PrecioResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/precio/{barcode} [get]
func (h *ConsultaPreciosHandler) GetPrecioPorBarcode(c *gin.Context) {
	tasaVES, err := parseTasa(c.Query("tasa_ves"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("tasa_ves inválida"))
		return
	}
	tasaEUR, err := parseTasa(c.Query("tasa_eur"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("tasa_eur inválida"))
		return
	}

	resp, err := h.svc.ConsultarPrecio(c.Request.Context(), c.Param("barcode"), tasaVES, tasaEUR)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func parseTasa(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
