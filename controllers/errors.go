package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tablelink/restaurant-ops/services"
	"github.com/tablelink/restaurant-ops/utils"
)

type CustomError struct {
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

var ErrUnauthenticated = &CustomError{"authentication required"}

// respondServiceError translates typed service failures into HTTP statuses.
// The services never pick status codes themselves.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrInvalidSession):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.Is(err, services.ErrAccessDenied),
		errors.Is(err, services.ErrTenantResolution),
		errors.Is(err, services.ErrCrossTenant):
		utils.RespondError(c, http.StatusForbidden, err)
	case errors.Is(err, services.ErrSessionExpired),
		errors.Is(err, services.ErrSessionNotActive),
		errors.Is(err, services.ErrInactiveToken):
		utils.RespondError(c, http.StatusUnauthorized, err)
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrAlreadyTerminal),
		errors.Is(err, services.ErrEmptyOrder),
		errors.Is(err, services.ErrGuestNameRequired):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrTrackingExists),
		errors.Is(err, services.ErrAgentUnavailable),
		errors.Is(err, services.ErrNoAgentsAvailable):
		utils.RespondError(c, http.StatusConflict, err)
	default:
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}
