// README: Shared handler utilities: JSON envelopes and sentinel-to-status
// error mapping.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"raahi/internal/modules/booking"
	"raahi/internal/modules/driver"
	"raahi/internal/modules/fare"
	"raahi/internal/modules/payment"
	"raahi/internal/modules/wallet"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation),
		errors.Is(err, fare.ErrUnknownRate),
		errors.Is(err, fare.ErrInvalidDistance),
		errors.Is(err, fare.ErrInvalidTripDays),
		errors.Is(err, fare.ErrVendorPriceRequired),
		errors.Is(err, fare.ErrVendorPriceBelowBase),
		errors.Is(err, driver.ErrUnknownClass),
		errors.Is(err, booking.ErrInvalidCode),
		errors.Is(err, payment.ErrWrongPaymentMode):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrUnauthorized):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, driver.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrConflict),
		errors.Is(err, booking.ErrInvalidState),
		errors.Is(err, booking.ErrCodeAttemptsExceeded):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrWalletBlocked),
		errors.Is(err, booking.ErrPrepaymentRequired),
		errors.Is(err, wallet.ErrInsufficientFunds):
		writeError(c, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, payment.ErrPaymentIntegrity):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
