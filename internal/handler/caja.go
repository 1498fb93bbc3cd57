package handler

import (
	"net/http"
	"strconv"

	"venpos/internal/apierror"
	"venpos/internal/dto"
	"venpos/internal/middleware"
	"venpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CajaHandler struct{ svc service.CajaService }

func NewCajaHandler(svc service.CajaService) *CajaHandler { return &CajaHandler{svc: svc} }

// CrearCaja godoc
// @Summary Crea una caja registradora
// @Tags cajas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CrearCajaRequest true "Datos de la caja"
// @Success 201 {object} dto.CajaResponse
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/cajas [post]
func (h *CajaHandler) CrearCaja(c *gin.Context) {
	var req dto.CrearCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CrearCaja(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListarCajas godoc
// @Summary Lista las cajas registradoras
// @Tags cajas
// @Produce json
// @Security BearerAuth
// @Param incluir_inactivas query bool false "Incluye cajas desactivadas"
// @Success 200 {array} dto.CajaResponse
// @Router /v1/cajas [get]
func (h *CajaHandler) ListarCajas(c *gin.Context) {
	incluir := c.Query("incluir_inactivas") == "true"
	resp, err := h.svc.ListarCajas(c.Request.Context(), incluir)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DesactivarCaja godoc
// @Summary Desactiva una caja registradora
// @Tags cajas
// @Security BearerAuth
// @Param id path string true "ID de la caja"
// @Success 204
// @Failure 404 {object} apierror.APIError
// @Router /v1/cajas/{id} [delete]
func (h *CajaHandler) DesactivarCaja(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	if err := h.svc.DesactivarCaja(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AbrirSesion godoc
// @Summary Abre una sesion de caja con fondos iniciales por moneda
// @Tags sesiones
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirSesionRequest true "Datos de apertura"
// @Success 201 {object} dto.SesionResponse
// @Failure 409 {object} apierror.APIError "Ya hay una sesion abierta"
// @Router /v1/sesiones [post]
func (h *CajaHandler) AbrirSesion(c *gin.Context) {
	var req dto.AbrirSesionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AbrirSesion(c.Request.Context(), middleware.UsuarioID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// SesionActiva godoc
// @Summary Obtiene la sesion abierta de una caja; null si no hay ninguna
// @Tags sesiones
// @Produce json
// @Security BearerAuth
// @Param caja_id path string true "ID de la caja"
// @Success 200 {object} dto.SesionResponse
// @Router /v1/cajas/{caja_id}/sesion-activa [get]
func (h *CajaHandler) SesionActiva(c *gin.Context) {
	cajaID, err := uuid.Parse(c.Param("caja_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	resp, err := h.svc.SesionActiva(c.Request.Context(), cajaID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ObtenerSesion godoc
// @Summary Obtiene una sesion por id, con movimientos
// @Tags sesiones
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de la sesion"
// @Success 200 {object} dto.SesionResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/sesiones/{id} [get]
func (h *CajaHandler) ObtenerSesion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	resp, err := h.svc.ObtenerSesion(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CerrarSesion godoc
// @Summary Cierra la sesion con conteo ciego por moneda
// @Tags sesiones
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de la sesion"
// @Param body body dto.CerrarSesionRequest true "Conteo declarado"
// @Success 200 {object} dto.SesionResponse
// @Failure 409 {object} apierror.APIError "Sesion ya cerrada o cierre concurrente"
// @Router /v1/sesiones/{id}/cerrar [post]
func (h *CajaHandler) CerrarSesion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	var req dto.CerrarSesionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CerrarSesion(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarMovimiento godoc
// @Summary Registra un deposito o retiro manual en la sesion
// @Tags sesiones
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de la sesion"
// @Param body body dto.MovimientoCajaRequest true "Movimiento manual"
// @Success 201 {object} dto.MovimientoCajaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/sesiones/{id}/movimientos [post]
func (h *CajaHandler) RegistrarMovimiento(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	var req dto.MovimientoCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarMovimiento(c.Request.Context(), id, middleware.UsuarioID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Historial godoc
// @Summary Lista las sesiones de una caja, mas reciente primero
// @Tags sesiones
// @Produce json
// @Security BearerAuth
// @Param caja_id query string false "Filtra por caja"
// @Success 200 {object} dto.SesionListResponse
// @Router /v1/sesiones [get]
func (h *CajaHandler) Historial(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	cajaID := uuid.Nil
	if raw := c.Query("caja_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("caja_id inválido"))
			return
		}
		cajaID = id
	}

	resp, err := h.svc.Historial(c.Request.Context(), cajaID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
