// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"centraltaxi/internal/modules/client"
	"centraltaxi/internal/modules/driver"
	"centraltaxi/internal/modules/order"
	"centraltaxi/internal/modules/report"
	"centraltaxi/internal/modules/reservation"
	"centraltaxi/internal/modules/voucher"
	"centraltaxi/internal/session"
	"centraltaxi/internal/types"
)

// errorResponse tells the console whether to keep the operator's form filled in.
type errorResponse struct {
	Error    string `json:"error"`
	Field    string `json:"field,omitempty"`
	KeepForm bool   `json:"keepForm,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func writeServiceError(c *gin.Context, err error) {
	var invalid *types.ValidationError
	var inactive *driver.InactiveUnitError
	switch {
	case errors.As(err, &invalid):
		writeJSON(c, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: invalid.Field})
	case errors.As(err, &inactive):
		writeJSON(c, http.StatusConflict, errorResponse{Error: err.Error(), KeepForm: true})
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, client.ErrNotFound),
		errors.Is(err, driver.ErrUnitNotFound),
		errors.Is(err, reservation.ErrNotFound),
		errors.Is(err, voucher.ErrNotFound):
		writeJSON(c, http.StatusNotFound, errorResponse{Error: err.Error(), KeepForm: true})
	case errors.Is(err, order.ErrBadRequest),
		errors.Is(err, client.ErrBadRequest),
		errors.Is(err, client.ErrInvalidPhone),
		errors.Is(err, driver.ErrBadRequest),
		errors.Is(err, driver.ErrInvalidPhotoURL),
		errors.Is(err, driver.ErrPhotoNotUploaded),
		errors.Is(err, driver.ErrUnsupportedImage),
		errors.Is(err, reservation.ErrBadRequest),
		errors.Is(err, report.ErrBadRequest),
		errors.Is(err, types.ErrInvalidCoords):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrInvalidState),
		errors.Is(err, order.ErrDuplicateSubmit),
		errors.Is(err, reservation.ErrAlreadyAssigned):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNoSession):
		writeError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, session.ErrUnknownOperator), errors.Is(err, session.ErrInactiveOperator):
		writeError(c, http.StatusForbidden, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
