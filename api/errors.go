package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/slotbooking/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorStatus maps a service error to an HTTP status and a stable code
// clients can switch on.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, domain.ErrSlotNotFound):
		return http.StatusNotFound, "slot_not_found"
	case errors.Is(err, domain.ErrReservationNotFound):
		return http.StatusNotFound, "reservation_not_found"
	case errors.Is(err, domain.ErrHoldConflict):
		return http.StatusConflict, "hold_conflict"
	case errors.Is(err, domain.ErrNotHeld):
		return http.StatusConflict, "not_held"
	case errors.Is(err, domain.ErrOwnerMismatch):
		return http.StatusForbidden, "owner_mismatch"
	case errors.Is(err, domain.ErrHoldExpired):
		return http.StatusGone, "hold_expired"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Storage errors are logged by the request logger, not echoed back.
		_ = c.Error(err)
		msg = "internal error"
	}
	c.JSON(status, errorResponse{Code: code, Message: msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Code: "validation_error", Message: msg})
}
