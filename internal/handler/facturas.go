package handler

import (
	"net/http"

	"venpos/internal/apierror"
	"venpos/internal/dto"
	"venpos/internal/middleware"
	"venpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type FacturaHandler struct {
	svc  service.FacturaService
	docs service.DocumentoService
}

func NewFacturaHandler(svc service.FacturaService, docs service.DocumentoService) *FacturaHandler {
	return &FacturaHandler{svc: svc, docs: docs}
}

// facturaID parses the :id path param, writing a 400 on failure.
func facturaID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return uuid.Nil, false
	}
	return id, true
}

// Crear godoc
// @Summary Crea una factura en borrador
// @Tags facturas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CrearFacturaRequest true "Factura a crear"
// @Success 201 {object} dto.FacturaResponse
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/facturas [post]
func (h *FacturaHandler) Crear(c *gin.Context) {
	var req dto.CrearFacturaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CrearBorrador(c.Request.Context(), middleware.UsuarioID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Actualizar godoc
// @Summary Reemplaza items, cliente y notas de un borrador
// @Tags facturas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de la factura"
// @Param body body dto.ActualizarFacturaRequest true "Nuevo contenido"
// @Success 200 {object} dto.FacturaResponse
// @Failure 409 {object} apierror.APIError "La factura ya no es editable"
// @Router /v1/facturas/{id} [put]
func (h *FacturaHandler) Actualizar(c *gin.Context) {
	id, ok := facturaID(c)
	if !ok {
		return
	}
	var req dto.ActualizarFacturaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ActualizarBorrador(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Emitir godoc
// @Summary Emite un borrador: asigna numero, congela tasas y descuenta stock
// @Tags facturas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de la factura"
// @Param body body dto.EmitirFacturaRequest true "Tasas de cambio del momento"
// @Success 200 {object} dto.FacturaResponse
// @Failure 409 {object} apierror.APIError "Stock insuficiente o estado invalido"
// @Router /v1/facturas/{id}/emitir [post]
func (h *FacturaHandler) Emitir(c *gin.Context) {
	id, ok := facturaID(c)
	if !ok {
		return
	}
	var req dto.EmitirFacturaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Emitir(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarPago godoc
// @Summary Registra un pago sobre una factura emitida o parcial
// @Tags facturas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de la factura"
// @Param body body dto.RegistrarPagoRequest true "Pago"
// @Success 200 {object} dto.FacturaResponse
// @Failure 409 {object} apierror.APIError "Sobrepago, sin sesion de caja o estado invalido"
// @Router /v1/facturas/{id}/pagos [post]
func (h *FacturaHandler) RegistrarPago(c *gin.Context) {
	id, ok := facturaID(c)
	if !ok {
		return
	}
	var req dto.RegistrarPagoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarPago(c.Request.Context(), id, middleware.UsuarioID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Anular godoc
// @Summary Anula una factura emitida o parcial y restaura el stock
// @Tags facturas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de la factura"
// @Param body body dto.AnularFacturaRequest true "Motivo de anulacion"
// @Success 200 {object} dto.FacturaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/facturas/{id}/anular [post]
func (h *FacturaHandler) Anular(c *gin.Context) {
	id, ok := facturaID(c)
	if !ok {
		return
	}
	var req dto.AnularFacturaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Anular(c.Request.Context(), id, req.Motivo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Eliminar godoc
// @Summary Elimina un borrador (solo borradores pueden eliminarse)
// @Tags facturas
// @Security BearerAuth
// @Param id path string true "ID de la factura"
// @Success 204
// @Failure 409 {object} apierror.APIError
// @Router /v1/facturas/{id} [delete]
func (h *FacturaHandler) Eliminar(c *gin.Context) {
	id, ok := facturaID(c)
	if !ok {
		return
	}
	if err := h.svc.EliminarBorrador(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Obtener godoc
// @Summary Obtiene una factura con items y pagos
// @Tags facturas
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de la factura"
// @Success 200 {object} dto.FacturaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/facturas/{id} [get]
func (h *FacturaHandler) Obtener(c *gin.Context) {
	id, ok := facturaID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Listar godoc
// @Summary Lista facturas con filtros por estado, cliente y fecha
// @Tags facturas
// @Produce json
// @Security BearerAuth
// @Param estado query string false "borrador | emitida | parcial | pagada | anulada"
// @Param cliente_id query string false "Filtra por cliente"
// @Param desde query string false "YYYY-MM-DD inclusive"
// @Param hasta query string false "YYYY-MM-DD exclusive"
// @Success 200 {object} dto.FacturaListResponse
// @Router /v1/facturas [get]
func (h *FacturaHandler) Listar(c *gin.Context) {
	var filter dto.FacturaFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Filtros inválidos: "+err.Error()))
		return
	}
	if err := validate.Struct(filter); err != nil {
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DescargarPDF godoc
// @Summary Genera y descarga el PDF de una factura emitida
// @Tags facturas
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "ID de la factura"
// @Success 200 {file} binary
// @Failure 409 {object} apierror.APIError "Los borradores no tienen PDF"
// @Router /v1/facturas/{id}/pdf [get]
func (h *FacturaHandler) DescargarPDF(c *gin.Context) {
	id, ok := facturaID(c)
	if !ok {
		return
	}
	path, err := h.docs.GenerarPDF(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.FileAttachment(path, "factura.pdf")
}

// Enviar godoc
// @Summary Envia la factura en PDF por correo
// @Tags facturas
// @Accept json
// @Security BearerAuth
// @Param id path string true "ID de la factura"
// @Param body body dto.EnviarFacturaRequest true "Destinatario"
// @Success 202
// @Failure 409 {object} apierror.APIError
// @Router /v1/facturas/{id}/enviar [post]
func (h *FacturaHandler) Enviar(c *gin.Context) {
	id, ok := facturaID(c)
	if !ok {
		return
	}
	var req dto.EnviarFacturaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.docs.EnviarPorCorreo(c.Request.Context(), id, req.Email); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
