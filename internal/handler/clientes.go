package handler

import (
	"net/http"
	"strconv"

	"venpos/internal/apierror"
	"venpos/internal/dto"
	"venpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ClienteHandler struct{ svc service.ClienteService }

func NewClienteHandler(svc service.ClienteService) *ClienteHandler {
	return &ClienteHandler{svc: svc}
}

// Crear godoc
// @Summary Registra un cliente
// @Tags clientes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CrearClienteRequest true "Cliente"
// @Success 201 {object} dto.ClienteResponse
// @Failure 422 {object} apierror.APIError "Documento duplicado"
// @Router /v1/clientes [post]
func (h *ClienteHandler) Crear(c *gin.Context) {
	var req dto.CrearClienteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Obtener godoc
// @Summary Obtiene un cliente por id
// @Tags clientes
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID del cliente"
// @Success 200 {object} dto.ClienteResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/clientes/{id} [get]
func (h *ClienteHandler) Obtener(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Buscar godoc
// @Summary Busca clientes por nombre o documento
// @Tags clientes
// @Produce json
// @Security BearerAuth
// @Param q query string true "Texto a buscar"
// @Success 200 {array} dto.ClienteResponse
// @Router /v1/clientes [get]
func (h *ClienteHandler) Buscar(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	resp, err := h.svc.Buscar(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Actualizar godoc
// @Summary Actualiza datos de contacto de un cliente
// @Tags clientes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID del cliente"
// @Param body body dto.ActualizarClienteRequest true "Campos a actualizar"
// @Success 200 {object} dto.ClienteResponse
// @Router /v1/clientes/{id} [put]
func (h *ClienteHandler) Actualizar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	var req dto.ActualizarClienteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Desactivar godoc
// @Summary Desactiva un cliente
// @Tags clientes
// @Security BearerAuth
// @Param id path string true "ID del cliente"
// @Success 204
// @Router /v1/clientes/{id} [delete]
func (h *ClienteHandler) Desactivar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	if err := h.svc.Desactivar(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
