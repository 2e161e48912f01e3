package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iqbalhamzah/dinelink/billing"
	"github.com/iqbalhamzah/dinelink/services"
	"github.com/iqbalhamzah/dinelink/utils"
)

type CustomError struct {
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

var ErrNoPermission = &CustomError{"You do not have permission"}

// respondServiceError maps the domain error taxonomy onto HTTP codes.
// Unknown errors are persistence failures: logged in full, surfaced as
// a generic retry message.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, billing.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidPayment):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrInsufficientTender):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrAlreadySettled):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.Is(err, services.ErrOrderNotReady):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.Is(err, services.ErrTokenExpired):
		utils.RespondError(c, http.StatusUnauthorized, err)
	case errors.Is(err, services.ErrTokenNotFound),
		errors.Is(err, services.ErrTableNotFound),
		errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrPaymentNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	default:
		utils.ErrorLogger.Printf("Persistence failure: %v", err)
		utils.RespondError(c, http.StatusInternalServerError,
			errors.New("something went wrong, please try again"))
	}
}
