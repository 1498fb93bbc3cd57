package handler

import (
	"errors"
	"net/http"
	"reflect"

	"venpos/internal/apierror"
	"venpos/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError maps service errors to HTTP statuses:
//
//	422 — input that parses but violates business validation
//	409 — state conflicts: invalid transitions, insufficient stock,
//	      duplicate open sessions, concurrent updates
//	404 — missing records
//	500 — everything else (logged by the error middleware, detail hidden)
func respondError(c *gin.Context, err error) {
	var stock *apperr.StockInsuficiente
	switch {
	case errors.As(err, &stock):
		c.JSON(http.StatusConflict, apierror.New(stock.Error()))
	case errors.Is(err, apperr.ErrValidacion):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
	case errors.Is(err, apperr.ErrTransicionInvalida),
		errors.Is(err, apperr.ErrSesionYaAbierta),
		errors.Is(err, apperr.ErrSinSesionActiva),
		errors.Is(err, apperr.ErrConflictoConcurrencia):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, apperr.ErrNoEncontrado):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.New("Error interno del servidor"))
	}
}
