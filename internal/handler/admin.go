package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/raffle-ticketing/internal/draw"
	"github.com/iliyamo/raffle-ticketing/internal/middleware"
	"github.com/iliyamo/raffle-ticketing/internal/model"
	"github.com/iliyamo/raffle-ticketing/internal/service"
)

// AdminHandler serves raffle management: creation, payment validation,
// draws and bookkeeping.  Routes are guarded by JWTAuth + RequireRole.
type AdminHandler struct {
	Raffles *service.RaffleService
}

func NewAdminHandler(s *service.RaffleService) *AdminHandler {
	if s == nil {
		panic("nil service passed to NewAdminHandler")
	}
	return &AdminHandler{Raffles: s}
}

type createRaffleReq struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Terms           string          `json:"terms"`
	StartNumber     int             `json:"start_number"`
	TicketCount     int             `json:"ticket_count"`
	TicketPrice     decimal.Decimal `json:"ticket_price"`
	CloseDate       *time.Time      `json:"close_date"`
	TriggerMode     string          `json:"trigger_mode"`
	SalesThreshold  int             `json:"sales_threshold"`
	NotifyThreshold int             `json:"notify_threshold"`
	PrizePercent    *int            `json:"prize_percent"`
}

// CreateRaffle handles POST /v1/admin/raffles.  The caller becomes the
// raffle's manager.
func (h *AdminHandler) CreateRaffle(c echo.Context) error {
	var req createRaffleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	r, err := h.Raffles.CreateRaffle(ctx, service.CreateRaffleInput{
		Title:           req.Title,
		Description:     req.Description,
		Terms:           req.Terms,
		StartNumber:     req.StartNumber,
		TicketCount:     req.TicketCount,
		TicketPrice:     req.TicketPrice,
		CloseDate:       req.CloseDate,
		TriggerMode:     model.TriggerMode(req.TriggerMode),
		SalesThreshold:  req.SalesThreshold,
		NotifyThreshold: req.NotifyThreshold,
		PrizePercent:    req.PrizePercent,
		ManagedBy:       middleware.Actor(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// SetActive handles PATCH /v1/admin/raffles/:id/active with {"active": bool}.
func (h *AdminHandler) SetActive(c echo.Context) error {
	var req struct {
		Active *bool `json:"active"`
	}
	if err := c.Bind(&req); err != nil || req.Active == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "active flag required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	r, err := h.Raffles.SetActive(ctx, c.Param("id"), *req.Active)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// DeleteRaffle handles DELETE /v1/admin/raffles/:id.
func (h *AdminHandler) DeleteRaffle(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Raffles.DeleteRaffle(ctx, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PendingPayments handles GET /v1/admin/raffles/:id/payments.
func (h *AdminHandler) PendingPayments(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	tickets, err := h.Raffles.PendingPayments(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": tickets})
}

// ConfirmTicket handles POST /v1/admin/raffles/:id/tickets/:number/confirm.
func (h *AdminHandler) ConfirmTicket(c echo.Context) error {
	return h.ticketAction(c, func(ctx context.Context, id string, n int) error {
		return h.Raffles.ConfirmPayment(ctx, id, n, middleware.Actor(c))
	}, model.StatusSold)
}

// RejectTicket handles POST /v1/admin/raffles/:id/tickets/:number/reject.
func (h *AdminHandler) RejectTicket(c echo.Context) error {
	return h.ticketAction(c, func(ctx context.Context, id string, n int) error {
		return h.Raffles.RejectPayment(ctx, id, n, middleware.Actor(c))
	}, model.StatusAvailable)
}

// ReleaseTicket handles POST /v1/admin/raffles/:id/tickets/:number/release.
func (h *AdminHandler) ReleaseTicket(c echo.Context) error {
	return h.ticketAction(c, h.Raffles.ReleaseTicket, model.StatusAvailable)
}

func (h *AdminHandler) ticketAction(c echo.Context, act func(context.Context, string, int) error, result model.TicketStatus) error {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket number"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := act(ctx, c.Param("id"), n); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"number": n, "status": result})
}

// DrawNow handles POST /v1/admin/raffles/:id/draw: draw immediately,
// whatever the trigger says.
func (h *AdminHandler) DrawNow(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Raffles.DrawNow(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CheckDraw handles POST /v1/admin/raffles/:id/draw/check.
func (h *AdminHandler) CheckDraw(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Raffles.CheckDraw(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if res == nil {
		return c.JSON(http.StatusOK, echo.Map{"decision": draw.NotYet.String()})
	}
	return c.JSON(http.StatusOK, echo.Map{"decision": draw.Fire.String(), "result": res})
}

type revokeReq struct {
	CloseDate      *time.Time `json:"close_date"`
	SalesThreshold *int       `json:"sales_threshold"`
	Reactivate     bool       `json:"reactivate"`
}

// RevokeDraw handles DELETE /v1/admin/raffles/:id/draw.  The body is
// optional.
func (h *AdminHandler) RevokeDraw(c echo.Context) error {
	var req revokeReq
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
		}
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	r, err := h.Raffles.RevokeDraw(ctx, c.Param("id"), draw.Reset{
		CloseDate:      req.CloseDate,
		SalesThreshold: req.SalesThreshold,
		Reactivate:     req.Reactivate,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// ListRaffles handles GET /v1/admin/raffles: every raffle, inactive ones
// included, with the full winner record.
func (h *AdminHandler) ListRaffles(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := h.Raffles.List(ctx, false)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"raffles": list})
}

// GetRaffle handles GET /v1/admin/raffles/:id.
func (h *AdminHandler) GetRaffle(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	d, err := h.Raffles.Get(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Winner handles GET /v1/admin/raffles/:id/winner, including the winner's
// contact and payment reference for prize delivery.
func (h *AdminHandler) Winner(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	st, err := h.Raffles.Winner(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Finance handles GET /v1/admin/raffles/:id/finance.
func (h *AdminHandler) Finance(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	f, err := h.Raffles.Finance(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, f)
}
