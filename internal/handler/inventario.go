package handler

import (
	"net/http"
	"strconv"

	"venpos/internal/apierror"
	"venpos/internal/dto"
	"venpos/internal/repository"
	"venpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InventarioHandler struct{ svc service.InventarioService }

func NewInventarioHandler(svc service.InventarioService) *InventarioHandler {
	return &InventarioHandler{svc: svc}
}

// AjustarStock godoc
// @Summary Aplica un ajuste manual de stock con motivo auditado
// @Tags inventario
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID del producto"
// @Param body body dto.AjusteStockRequest true "Delta firmado y motivo"
// @Success 200 {object} dto.ProductoResponse
// @Failure 409 {object} apierror.APIError "El ajuste dejaria stock negativo"
// @Router /v1/productos/{id}/stock [post]
func (h *InventarioHandler) AjustarStock(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	var req dto.AjusteStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AjustarStock(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarMovimientos godoc
// @Summary Lista el historial de movimientos de stock
// @Tags inventario
// @Produce json
// @Security BearerAuth
// @Param producto_id query string false "Filtra por producto"
// @Param tipo query string false "emision | ajuste_manual | restauracion_anulacion"
// @Success 200 {object} map[string]interface{}
// @Router /v1/inventario/movimientos [get]
func (h *InventarioHandler) ListarMovimientos(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	filter := repository.MovimientoStockFilter{
		Tipo:  c.Query("tipo"),
		Page:  page,
		Limit: limit,
	}
	if raw := c.Query("producto_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("producto_id inválido"))
			return
		}
		filter.ProductoID = &id
	}

	movs, total, err := h.svc.ListarMovimientos(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  movs,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// AlertasStockBajo godoc
// @Summary Lista productos activos con stock en o bajo el minimo
// @Tags inventario
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.ProductoResponse
// @Router /v1/inventario/alertas [get]
func (h *InventarioHandler) AlertasStockBajo(c *gin.Context) {
	resp, err := h.svc.AlertasStockBajo(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
