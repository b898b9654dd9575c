package handler

import (
	"errors"
	"net/http"

	"github.com/google/logger"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/raffle-ticketing/internal/draw"
	"github.com/iliyamo/raffle-ticketing/internal/inventory"
	"github.com/iliyamo/raffle-ticketing/internal/service"
)

// respondError maps domain errors to HTTP responses.  Unknown errors are
// logged and reported as a generic 500.
func respondError(c echo.Context, err error) error {
	var ue *inventory.UnavailableError
	switch {
	case errors.As(err, &ue):
		return c.JSON(http.StatusConflict, echo.Map{"error": inventory.ErrNumberUnavailable.Error(), "unavailable": ue.Numbers})
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, inventory.ErrInvalidSize),
		errors.Is(err, inventory.ErrNoNumbers),
		errors.Is(err, draw.ErrInvalidThreshold):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrRaffleNotFound),
		errors.Is(err, inventory.ErrRaffleNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "raffle not found"})
	case errors.Is(err, inventory.ErrTicketNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
	case errors.Is(err, draw.ErrAlreadyDrawn):
		return c.JSON(http.StatusConflict, echo.Map{"error": "this raffle already closed"})
	case errors.Is(err, inventory.ErrInvalidTransition),
		errors.Is(err, service.ErrRaffleInactive):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	logger.Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
